package config

import (
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads the TOML file at path on top of the built-in defaults and then
// applies TRADEBOT_* environment overrides. The result has NOT been
// validated; call Config.Validate afterwards.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env if present; silently ignore when missing.
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides overwrites config fields from well-known TRADEBOT_*
// variables when set, letting operators inject secrets at deploy time.
func applyEnvOverrides(cfg *Config) {
	setStr(&cfg.Database.DSN, "TRADEBOT_DATABASE_DSN")
	setStr(&cfg.Database.Host, "TRADEBOT_DATABASE_HOST")
	setInt(&cfg.Database.Port, "TRADEBOT_DATABASE_PORT")
	setStr(&cfg.Database.Database, "TRADEBOT_DATABASE_NAME")
	setStr(&cfg.Database.User, "TRADEBOT_DATABASE_USER")
	setStr(&cfg.Database.Password, "TRADEBOT_DATABASE_PASSWORD")
	setStr(&cfg.Database.SSLMode, "TRADEBOT_DATABASE_SSLMODE")
	setInt(&cfg.Database.PoolMaxConns, "TRADEBOT_DATABASE_POOL_MAX_CONNS")
	setInt(&cfg.Database.PoolMinConns, "TRADEBOT_DATABASE_POOL_MIN_CONNS")
	setBool(&cfg.Database.RunMigrations, "TRADEBOT_DATABASE_RUN_MIGRATIONS")

	setStr(&cfg.Redis.Addr, "TRADEBOT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "TRADEBOT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "TRADEBOT_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "TRADEBOT_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "TRADEBOT_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "TRADEBOT_REDIS_TLS_ENABLED")

	setStr(&cfg.S3.Endpoint, "TRADEBOT_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "TRADEBOT_S3_REGION")
	setStr(&cfg.S3.Bucket, "TRADEBOT_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "TRADEBOT_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "TRADEBOT_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "TRADEBOT_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "TRADEBOT_S3_FORCE_PATH_STYLE")

	setStr(&cfg.Feed.URL, "TRADEBOT_FEED_URL")

	setInt(&cfg.Server.Port, "TRADEBOT_SERVER_PORT")
	setStr(&cfg.Server.APIKey, "TRADEBOT_SERVER_API_KEY")

	setInt(&cfg.Retry.MaxAttempts, "TRADEBOT_RETRY_MAX_ATTEMPTS")
	setDuration(&cfg.Retry.InitialDelay, "TRADEBOT_RETRY_INITIAL_DELAY")
	setDuration(&cfg.Retry.MaxDelay, "TRADEBOT_RETRY_MAX_DELAY")
	setFloat64(&cfg.Retry.Multiplier, "TRADEBOT_RETRY_MULTIPLIER")

	setBool(&cfg.Archive.Enabled, "TRADEBOT_ARCHIVE_ENABLED")
	setInt(&cfg.Archive.RetentionDays, "TRADEBOT_ARCHIVE_RETENTION_DAYS")
	setDuration(&cfg.Archive.Interval, "TRADEBOT_ARCHIVE_INTERVAL")

	setStr(&cfg.Mode, "TRADEBOT_MODE")
	setStr(&cfg.LogLevel, "TRADEBOT_LOG_LEVEL")
}

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}
