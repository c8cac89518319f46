package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/usgs/sbgo/sciencebase"
)

func validConfig() *Config {
	return &Config{
		Environment: "beta",
		Client: ClientConfig{
			Timeout:      time.Minute,
			MaxItemCount: 100,
		},
		Retry: RetryConfig{
			InitialInterval: time.Second,
			MaxAttempts:     3,
		},
		Upload: UploadConfig{
			FetchConcurrency: 1,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		modify      func(*Config)
		wantErr     bool
		errContains []string
	}{
		{
			name:   "valid config",
			modify: func(*Config) {},
		},
		{
			name:        "unknown environment",
			modify:      func(c *Config) { c.Environment = "staging" },
			wantErr:     true,
			errContains: []string{"staging"},
		},
		{
			name:        "zero page size",
			modify:      func(c *Config) { c.Client.MaxItemCount = 0 },
			wantErr:     true,
			errContains: []string{"client"},
		},
		{
			name:   "unbounded retries allowed",
			modify: func(c *Config) { c.Retry.MaxAttempts = 0 },
		},
		{
			name:        "negative retries",
			modify:      func(c *Config) { c.Retry.MaxAttempts = -1 },
			wantErr:     true,
			errContains: []string{"retry"},
		},
		{
			name:        "password without username",
			modify:      func(c *Config) { c.Auth.Password = "secret" },
			wantErr:     true,
			errContains: []string{"auth.username"},
		},
		{
			name:        "empty filter",
			modify:      func(c *Config) { c.Filters = FilterConfig{"stale": " "} },
			wantErr:     true,
			errContains: []string{"filters.stale"},
		},
		{
			name: "every problem reported",
			modify: func(c *Config) {
				c.Logging.Level = "verbose"
				c.Logging.Format = "xml"
				c.Upload.FetchConcurrency = 0
			},
			wantErr:     true,
			errContains: []string{"logging", "upload", "2 errors"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modify(cfg)

			err := validate(cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			for _, want := range tt.errContains {
				if !strings.Contains(err.Error(), want) {
					t.Errorf("error %q should mention %q", err.Error(), want)
				}
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
environment: beta
auth:
  username: jdoe@usgs.gov
client:
  timeout: 30s
  max_item_count: 250
retry:
  enabled: true
  initial_interval: 5s
  max_attempts: 0
upload:
  fetch_concurrency: 4
  scrape_file: false
filters:
  csv: 'hasFile("*.csv")'
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	t.Setenv("SB_AUTH_PASSWORD", "from-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Auth.Username != "jdoe@usgs.gov" || cfg.Auth.Password != "from-env" {
		t.Errorf("unexpected auth: %+v", cfg.Auth)
	}
	if cfg.Client.Timeout != 30*time.Second || cfg.Client.MaxItemCount != 250 {
		t.Errorf("unexpected client config: %+v", cfg.Client)
	}
	if !cfg.Retry.Enabled || cfg.Retry.InitialInterval != 5*time.Second || cfg.Retry.MaxAttempts != 0 {
		t.Errorf("unexpected retry config: %+v", cfg.Retry)
	}
	if cfg.Upload.FetchConcurrency != 4 || cfg.Upload.ScrapeFile {
		t.Errorf("unexpected upload config: %+v", cfg.Upload)
	}
	if cfg.Filters["csv"] != `hasFile("*.csv")` {
		t.Errorf("unexpected filters: %v", cfg.Filters)
	}
	// Unset keys keep their defaults
	if cfg.Logging.Format != "console" || !cfg.Logging.Color {
		t.Errorf("unexpected logging config: %+v", cfg.Logging)
	}

	env, err := cfg.ParsedEnvironment()
	if err != nil || env != sciencebase.Beta {
		t.Errorf("ParsedEnvironment() = %v, %v", env, err)
	}
	if p := cfg.RetryPolicy(); p.InitialInterval != 5*time.Second || p.MaxAttempts != 0 {
		t.Errorf("unexpected retry policy: %+v", p)
	}
	if len(cfg.ClientOptions()) == 0 {
		t.Error("expected client options")
	}
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("SB_ENVIRONMENT", "dev")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Environment != "dev" {
		t.Errorf("Environment = %q, want dev", cfg.Environment)
	}
	if cfg.Client.MaxItemCount != sciencebase.DefaultMaxItemCount {
		t.Errorf("MaxItemCount = %d", cfg.Client.MaxItemCount)
	}
	if cfg.Retry.InitialInterval != sciencebase.DefaultRetryInterval || cfg.Retry.MaxAttempts != sciencebase.DefaultRetryAttempts {
		t.Errorf("unexpected retry defaults: %+v", cfg.Retry)
	}
	if !cfg.Upload.ScrapeFile || cfg.Upload.FetchConcurrency != 1 {
		t.Errorf("unexpected upload defaults: %+v", cfg.Upload)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing explicit config file")
	}
}
