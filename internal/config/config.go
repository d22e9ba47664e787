package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	OutputJSON  = "json"
	OutputPlain = "plain"
)

type Config struct {
	ListenAddr    string `yaml:"listen_addr"`
	TLSListenAddr string `yaml:"tls_listen_addr"`

	BaseURL         string        `yaml:"base_url"`
	UpstreamTimeout time.Duration `yaml:"upstream_timeout"`

	OutputFormat      string `yaml:"output_format"`
	LegacyStatusCodes bool   `yaml:"legacy_status_codes"`
	RateLimitBareJSON bool   `yaml:"rate_limit_bare_json"`
	TrustProxyHeaders bool   `yaml:"trust_proxy_headers"`

	LoggingEnabled bool   `yaml:"logging_enabled"`
	LogFile        string `yaml:"log_file"`
	LogSQLitePath  string `yaml:"log_sqlite_path"`
	LogLevel       string `yaml:"log_level"`
	LogFormat      string `yaml:"log_format"`

	SessionCookie        string        `yaml:"session_cookie"`
	SessionMinInterval   time.Duration `yaml:"session_min_interval"`
	SessionTTL           time.Duration `yaml:"session_ttl"`
	SessionPurgeInterval time.Duration `yaml:"session_purge_interval"`

	RateLimit       int           `yaml:"rate_limit"`
	RateLimitWindow time.Duration `yaml:"rate_limit_window"`

	MetricsEnabled bool `yaml:"metrics_enabled"`
	OperatorRoutes bool `yaml:"operator_routes"`

	PostgresUser     string `yaml:"postgres_user"`
	PostgresPassword string `yaml:"postgres_password"`
	PostgresHost     string `yaml:"postgres_host"`
	PostgresPort     string `yaml:"postgres_port"`
	PostgresDatabase string `yaml:"postgres_database"`
	PostgresSSLMode  string `yaml:"postgres_ssl_mode"`

	S3Bucket    string `yaml:"s3_bucket"`
	S3Region    string `yaml:"s3_region"`
	S3Endpoint  string `yaml:"s3_endpoint"`
	S3AccessKey string `yaml:"s3_access_key"`
	S3SecretKey string `yaml:"s3_secret_key"`
}

func defaults() *Config {
	return &Config{
		ListenAddr:           ":8080",
		BaseURL:              "https://6in4.ru/tunnel",
		UpstreamTimeout:      30 * time.Second,
		OutputFormat:         OutputJSON,
		RateLimitBareJSON:    true,
		LogFile:              "get2put.log",
		LogLevel:             "info",
		LogFormat:            "text",
		SessionCookie:        "get2put_session",
		SessionMinInterval:   time.Second,
		SessionTTL:           24 * time.Hour,
		SessionPurgeInterval: 30 * time.Minute,
		RateLimitWindow:      time.Minute,
		MetricsEnabled:       true,
		PostgresUser:         "get2put",
		PostgresPort:         "5432",
		PostgresDatabase:     "get2put",
		PostgresSSLMode:      "disable",
		S3Region:             "us-east-1",
	}
}

// Load builds the configuration from an optional YAML file named by
// CONFIG_FILE, then applies environment overrides.
func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.ListenAddr = getEnv("LISTEN_ADDR", cfg.ListenAddr)
	cfg.TLSListenAddr = getEnv("TLS_LISTEN_ADDR", cfg.TLSListenAddr)
	cfg.BaseURL = getEnv("BASE_URL", cfg.BaseURL)
	cfg.UpstreamTimeout = getEnvDuration("UPSTREAM_TIMEOUT", cfg.UpstreamTimeout)
	cfg.OutputFormat = strings.ToLower(getEnv("OUTPUT_FORMAT", cfg.OutputFormat))
	cfg.LegacyStatusCodes = getEnvBool("LEGACY_STATUS_CODES", cfg.LegacyStatusCodes)
	cfg.RateLimitBareJSON = getEnvBool("RATE_LIMIT_BARE_JSON", cfg.RateLimitBareJSON)
	cfg.TrustProxyHeaders = getEnvBool("TRUST_PROXY_HEADERS", cfg.TrustProxyHeaders)
	cfg.LoggingEnabled = getEnvBool("LOGGING_ENABLED", cfg.LoggingEnabled)
	cfg.LogFile = getEnv("LOG_FILE", cfg.LogFile)
	cfg.LogSQLitePath = getEnv("LOG_SQLITE_PATH", cfg.LogSQLitePath)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnv("LOG_FORMAT", cfg.LogFormat)
	cfg.SessionCookie = getEnv("SESSION_COOKIE", cfg.SessionCookie)
	cfg.SessionMinInterval = getEnvDuration("SESSION_MIN_INTERVAL", cfg.SessionMinInterval)
	cfg.SessionTTL = getEnvDuration("SESSION_TTL", cfg.SessionTTL)
	cfg.SessionPurgeInterval = getEnvDuration("SESSION_PURGE_INTERVAL", cfg.SessionPurgeInterval)
	cfg.RateLimit = getEnvInt("RATE_LIMIT", cfg.RateLimit)
	cfg.RateLimitWindow = getEnvDuration("RATE_LIMIT_WINDOW", cfg.RateLimitWindow)
	cfg.MetricsEnabled = getEnvBool("METRICS_ENABLED", cfg.MetricsEnabled)
	cfg.OperatorRoutes = getEnvBool("OPERATOR_ROUTES", cfg.OperatorRoutes)
	cfg.PostgresUser = getEnv("POSTGRES_USER", cfg.PostgresUser)
	cfg.PostgresPassword = getEnv("POSTGRES_PASSWORD", cfg.PostgresPassword)
	cfg.PostgresHost = getEnv("POSTGRES_HOST", cfg.PostgresHost)
	cfg.PostgresPort = getEnv("POSTGRES_PORT", cfg.PostgresPort)
	cfg.PostgresDatabase = getEnv("POSTGRES_DATABASE", cfg.PostgresDatabase)
	cfg.PostgresSSLMode = getEnv("POSTGRES_SSL_MODE", cfg.PostgresSSLMode)
	cfg.S3Bucket = getEnv("S3_BUCKET", cfg.S3Bucket)
	cfg.S3Region = getEnv("AWS_REGION", cfg.S3Region)
	cfg.S3Endpoint = getEnv("S3_ENDPOINT", cfg.S3Endpoint)
	cfg.S3AccessKey = getEnv("AWS_ACCESS_KEY_ID", cfg.S3AccessKey)
	cfg.S3SecretKey = getEnv("AWS_SECRET_ACCESS_KEY", cfg.S3SecretKey)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func (c *Config) Validate() error {
	switch c.OutputFormat {
	case OutputJSON, OutputPlain:
	default:
		return fmt.Errorf("invalid output format %q: want %q or %q", c.OutputFormat, OutputPlain, OutputJSON)
	}

	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid base url %q: absolute http(s) url required", c.BaseURL)
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")

	if c.SessionMinInterval <= 0 {
		return fmt.Errorf("session min interval must be positive")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("session ttl must be positive")
	}
	if c.SessionPurgeInterval <= 0 {
		return fmt.Errorf("session purge interval must be positive")
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate limit must not be negative")
	}
	if c.RateLimit > 0 && c.RateLimitWindow <= 0 {
		return fmt.Errorf("rate limit window must be positive")
	}
	if c.S3Bucket != "" && (c.S3AccessKey == "" || c.S3SecretKey == "") {
		return fmt.Errorf("AWS credentials must be provided when S3_BUCKET is set")
	}
	return nil
}

func (c *Config) PostgresEnabled() bool {
	return c.PostgresHost != ""
}

func (c *Config) S3Enabled() bool {
	return c.S3Bucket != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
