package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/viper"

	"github.com/usgs/sbgo/sciencebase"
)

// EnvPrefix is the prefix of environment variables overriding config keys,
// e.g. SB_AUTH_PASSWORD for auth.password
const EnvPrefix = "SB"

// Load loads the configuration from file and the environment. Without an
// explicit path a missing config file is fine: defaults and SB_ variables
// are enough for anonymous reads.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set default values
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Look for config in standard locations
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		// Check current directory first
		v.AddConfigPath(".")

		// Check home directory
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".sbgo"))
		}

		// Check /etc
		v.AddConfigPath("/etc/sbgo/")
	}

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || configPath != "" {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Validate configuration
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "production")

	// Registered so SB_AUTH_* reach Unmarshal without a config file
	v.SetDefault("auth.username", "")
	v.SetDefault("auth.password", "")

	// Client defaults
	v.SetDefault("client.timeout", 2*time.Minute)
	v.SetDefault("client.max_item_count", sciencebase.DefaultMaxItemCount)
	v.SetDefault("client.user_agent", "")
	v.SetDefault("client.debug", false)

	// Retry defaults
	v.SetDefault("retry.enabled", false)
	v.SetDefault("retry.initial_interval", sciencebase.DefaultRetryInterval)
	v.SetDefault("retry.max_attempts", sciencebase.DefaultRetryAttempts)
	v.SetDefault("retry.max_elapsed", time.Duration(0))

	// Upload defaults
	v.SetDefault("upload.fetch_concurrency", 1)
	v.SetDefault("upload.scrape_file", true)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.color", true)
}

// validate checks the configuration and reports every problem at once
func validate(cfg *Config) error {
	var result *multierror.Error

	if _, err := sciencebase.ParseEnvironment(cfg.Environment); err != nil {
		result = multierror.Append(result, err)
	}

	if err := validation.ValidateStruct(&cfg.Client,
		validation.Field(&cfg.Client.Timeout, validation.Min(time.Duration(0))),
		validation.Field(&cfg.Client.MaxItemCount, validation.Required, validation.Min(1)),
	); err != nil {
		result = multierror.Append(result, fmt.Errorf("client: %w", err))
	}

	if err := validation.ValidateStruct(&cfg.Retry,
		validation.Field(&cfg.Retry.InitialInterval, validation.Min(time.Duration(0))),
		validation.Field(&cfg.Retry.MaxAttempts, validation.Min(0)),
		validation.Field(&cfg.Retry.MaxElapsed, validation.Min(time.Duration(0))),
	); err != nil {
		result = multierror.Append(result, fmt.Errorf("retry: %w", err))
	}

	if err := validation.ValidateStruct(&cfg.Upload,
		validation.Field(&cfg.Upload.FetchConcurrency, validation.Required, validation.Min(1)),
	); err != nil {
		result = multierror.Append(result, fmt.Errorf("upload: %w", err))
	}

	if cfg.Auth.Password != "" && cfg.Auth.Username == "" {
		result = multierror.Append(result, errors.New("auth.username is required when auth.password is set"))
	}

	for name, expression := range cfg.Filters {
		if strings.TrimSpace(expression) == "" {
			result = multierror.Append(result, fmt.Errorf("filters.%s: expression is empty", name))
		}
	}

	if err := validation.ValidateStruct(&cfg.Logging,
		validation.Field(&cfg.Logging.Level, validation.Required,
			validation.In("trace", "debug", "info", "warn", "error")),
		validation.Field(&cfg.Logging.Format, validation.Required,
			validation.In("console", "json")),
	); err != nil {
		result = multierror.Append(result, fmt.Errorf("logging: %w", err))
	}

	return result.ErrorOrNil()
}

// ParsedEnvironment returns the configured catalog environment
func (c *Config) ParsedEnvironment() (sciencebase.Environment, error) {
	return sciencebase.ParseEnvironment(c.Environment)
}

// RetryPolicy builds the retry policy for the client
func (c *Config) RetryPolicy() sciencebase.RetryPolicy {
	return sciencebase.RetryPolicy{
		InitialInterval: c.Retry.InitialInterval,
		MaxAttempts:     c.Retry.MaxAttempts,
		MaxElapsed:      c.Retry.MaxElapsed,
	}
}

// ClientOptions translates the client, retry and upload sections into
// sciencebase client options
func (c *Config) ClientOptions() []sciencebase.Option {
	opts := []sciencebase.Option{
		sciencebase.WithMaxItemCount(c.Client.MaxItemCount),
		sciencebase.WithRetryPolicy(c.RetryPolicy()),
		sciencebase.WithFetchConcurrency(c.Upload.FetchConcurrency),
		sciencebase.WithScrapeFile(c.Upload.ScrapeFile),
		sciencebase.WithDebug(c.Client.Debug),
	}
	if c.Client.Timeout > 0 {
		opts = append(opts, sciencebase.WithTimeout(c.Client.Timeout))
	}
	if c.Client.UserAgent != "" {
		opts = append(opts, sciencebase.WithUserAgent(c.Client.UserAgent))
	}
	return opts
}
