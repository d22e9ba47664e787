package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BaseURL != "https://6in4.ru/tunnel" {
		t.Fatalf("base url: %s", cfg.BaseURL)
	}
	if cfg.OutputFormat != OutputJSON {
		t.Fatalf("output format: %s", cfg.OutputFormat)
	}
	if cfg.SessionMinInterval != time.Second {
		t.Fatalf("min interval: %v", cfg.SessionMinInterval)
	}
	if !cfg.RateLimitBareJSON {
		t.Fatalf("bare json rate limit should default on")
	}
	if cfg.PostgresEnabled() || cfg.S3Enabled() {
		t.Fatalf("optional backends should be off by default")
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "get2put.yaml")
	data := []byte(`
base_url: "http://upstream.local/tunnel/"
output_format: plain
logging_enabled: true
session_min_interval: 2s
rate_limit: 5
`)
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("OUTPUT_FORMAT", "JSON")
	t.Setenv("RATE_LIMIT", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BaseURL != "http://upstream.local/tunnel" {
		t.Fatalf("trailing slash should be trimmed: %s", cfg.BaseURL)
	}
	if cfg.OutputFormat != OutputJSON {
		t.Fatalf("env should override file: %s", cfg.OutputFormat)
	}
	if !cfg.LoggingEnabled {
		t.Fatalf("logging should come from file")
	}
	if cfg.SessionMinInterval != 2*time.Second {
		t.Fatalf("min interval: %v", cfg.SessionMinInterval)
	}
	if cfg.RateLimit != 5 {
		t.Fatalf("bad env int should keep file value, got %d", cfg.RateLimit)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"output format", func(c *Config) { c.OutputFormat = "xml" }},
		{"relative base url", func(c *Config) { c.BaseURL = "/tunnel" }},
		{"ftp base url", func(c *Config) { c.BaseURL = "ftp://host/tunnel" }},
		{"zero interval", func(c *Config) { c.SessionMinInterval = 0 }},
		{"zero session ttl", func(c *Config) { c.SessionTTL = 0 }},
		{"negative session ttl", func(c *Config) { c.SessionTTL = -time.Hour }},
		{"zero purge interval", func(c *Config) { c.SessionPurgeInterval = 0 }},
		{"negative rate", func(c *Config) { c.RateLimit = -1 }},
		{"s3 without creds", func(c *Config) { c.S3Bucket = "records" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := defaults()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestLoadRejectsZeroPurgeInterval(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("SESSION_PURGE_INTERVAL", "0s")
	if _, err := Load(); err == nil {
		t.Fatalf("zero purge interval should fail to load")
	}
}
