// Package config defines the bot configuration and validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// duration wraps time.Duration so TOML values like "30m" decode directly.
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// Config is the root configuration. Fields are populated from a TOML file
// and then optionally overridden by TRADEBOT_* environment variables.
type Config struct {
	Database DatabaseConfig `toml:"database"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Feed     FeedConfig     `toml:"feed"`
	Server   ServerConfig   `toml:"server"`
	Retry    RetryConfig    `toml:"retry"`
	Archive  ArchiveConfig  `toml:"archive"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters. An empty Addr disables the
// event bus.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for trade archives.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// FeedConfig holds the order-fill notification feed parameters. An empty URL
// disables the feed.
type FeedConfig struct {
	URL string `toml:"url"`
}

// ServerConfig holds the HTTP API parameters. Port 0 disables the server.
type ServerConfig struct {
	Port        int      `toml:"port"`
	APIKey      string   `toml:"api_key"`
	CORSOrigins []string `toml:"cors_origins"`
}

// RetryConfig holds the store retry/backoff policy.
type RetryConfig struct {
	MaxAttempts  int      `toml:"max_attempts"`
	InitialDelay duration `toml:"initial_delay"`
	MaxDelay     duration `toml:"max_delay"`
	Multiplier   float64  `toml:"multiplier"`
}

// ArchiveConfig controls periodic trade archival to blob storage.
type ArchiveConfig struct {
	Enabled       bool     `toml:"enabled"`
	RetentionDays int      `toml:"retention_days"`
	Interval      duration `toml:"interval"`
}

// Defaults returns the built-in configuration defaults.
func Defaults() Config {
	return Config{
		Database: DatabaseConfig{
			Host:          "localhost",
			Port:          5432,
			SSLMode:       "disable",
			PoolMaxConns:  8,
			PoolMinConns:  1,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			PoolSize:   8,
			MaxRetries: 3,
		},
		Retry: RetryConfig{
			MaxAttempts:  5,
			InitialDelay: duration{100 * time.Millisecond},
			MaxDelay:     duration{5 * time.Second},
			Multiplier:   2.0,
		},
		Archive: ArchiveConfig{
			RetentionDays: 90,
			Interval:      duration{24 * time.Hour},
		},
		Mode:     "trade",
		LogLevel: "info",
	}
}

// Validate checks the configuration for the selected mode.
func (c *Config) Validate() error {
	switch c.Mode {
	case "trade", "archive", "full", "paper":
	default:
		return fmt.Errorf("config: unknown mode %q", c.Mode)
	}

	if strings.TrimSpace(c.Database.DSN) == "" {
		if c.Database.Host == "" || c.Database.Database == "" || c.Database.User == "" {
			return fmt.Errorf("config: database requires dsn or host/database/user")
		}
	}

	if c.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("config: retry.max_attempts must be positive")
	}
	if c.Retry.Multiplier < 1 {
		return fmt.Errorf("config: retry.multiplier must be >= 1")
	}
	if c.Retry.InitialDelay.Duration <= 0 || c.Retry.MaxDelay.Duration < c.Retry.InitialDelay.Duration {
		return fmt.Errorf("config: retry delays must satisfy 0 < initial_delay <= max_delay")
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port must be in [0, 65535]")
	}

	if c.Archive.Enabled {
		if c.S3.Bucket == "" || c.S3.Region == "" {
			return fmt.Errorf("config: archive requires s3 bucket and region")
		}
		if c.Archive.RetentionDays <= 0 {
			return fmt.Errorf("config: archive.retention_days must be positive")
		}
		if c.Archive.Interval.Duration <= 0 {
			return fmt.Errorf("config: archive.interval must be positive")
		}
	}

	return nil
}
