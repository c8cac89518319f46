package config

import "time"

// Config represents the complete configuration structure
type Config struct {
	Environment string        `mapstructure:"environment"`
	Auth        AuthConfig    `mapstructure:"auth"`
	Client      ClientConfig  `mapstructure:"client"`
	Retry       RetryConfig   `mapstructure:"retry"`
	Upload      UploadConfig  `mapstructure:"upload"`
	Filters     FilterConfig  `mapstructure:"filters"`
	Logging     LoggingConfig `mapstructure:"logging"`
}

// AuthConfig holds ScienceBase credentials. An empty password means the
// CLI prompts for one.
type AuthConfig struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// ClientConfig tunes the HTTP client
type ClientConfig struct {
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxItemCount int           `mapstructure:"max_item_count"`
	UserAgent    string        `mapstructure:"user_agent"`
	Debug        bool          `mapstructure:"debug"`
}

// RetryConfig controls waiting out 429 and 503 responses
type RetryConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxAttempts     int           `mapstructure:"max_attempts"`
	MaxElapsed      time.Duration `mapstructure:"max_elapsed"`
}

// UploadConfig contains file ingestion settings
type UploadConfig struct {
	FetchConcurrency int  `mapstructure:"fetch_concurrency"`
	ScrapeFile       bool `mapstructure:"scrape_file"`
}

// FilterConfig contains named filter expressions for find --where
type FilterConfig map[string]string

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Color  bool   `mapstructure:"color"`
}
