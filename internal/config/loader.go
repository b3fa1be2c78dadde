package config

import (
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies MARCOBOT_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known MARCOBOT_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// ── Scanner ──
	setStr(&cfg.Scanner.Exchange, "MARCOBOT_SCANNER_EXCHANGE")
	setStr(&cfg.Scanner.Currency, "MARCOBOT_SCANNER_CURRENCY")
	setFloat64(&cfg.Scanner.Amount, "MARCOBOT_SCANNER_AMOUNT")
	setInt(&cfg.Scanner.TopK, "MARCOBOT_SCANNER_TOP_K")
	setInt(&cfg.Scanner.Workers, "MARCOBOT_SCANNER_WORKERS")
	setDuration(&cfg.Scanner.Interval, "MARCOBOT_SCANNER_INTERVAL")
	setDuration(&cfg.Scanner.RefineTimeout, "MARCOBOT_SCANNER_REFINE_TIMEOUT")
	setDuration(&cfg.Scanner.UpdateInterval, "MARCOBOT_SCANNER_UPDATE_INTERVAL")

	// ── Binance ──
	setStr(&cfg.Binance.BaseURL, "MARCOBOT_BINANCE_BASE_URL")
	setStr(&cfg.Binance.APIKey, "MARCOBOT_BINANCE_API_KEY")
	setStr(&cfg.Binance.APISecret, "MARCOBOT_BINANCE_API_SECRET")
	setFloat64(&cfg.Binance.TradingFees, "MARCOBOT_BINANCE_TRADING_FEES")

	// ── Bittrex ──
	setStr(&cfg.Bittrex.BaseURL, "MARCOBOT_BITTREX_BASE_URL")
	setFloat64(&cfg.Bittrex.TradingFees, "MARCOBOT_BITTREX_TRADING_FEES")

	// ── Feed ──
	setBool(&cfg.Feed.Enabled, "MARCOBOT_FEED_ENABLED")
	setStr(&cfg.Feed.WsURL, "MARCOBOT_FEED_WS_URL")

	// ── Postgres ──
	setBool(&cfg.Postgres.Enabled, "MARCOBOT_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "MARCOBOT_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "MARCOBOT_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "MARCOBOT_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "MARCOBOT_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "MARCOBOT_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "MARCOBOT_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "MARCOBOT_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "MARCOBOT_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "MARCOBOT_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "MARCOBOT_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "MARCOBOT_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "MARCOBOT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "MARCOBOT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "MARCOBOT_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "MARCOBOT_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "MARCOBOT_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "MARCOBOT_REDIS_TLS_ENABLED")
	setDuration(&cfg.Redis.BookTTL, "MARCOBOT_REDIS_BOOK_TTL")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "MARCOBOT_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "MARCOBOT_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "MARCOBOT_S3_REGION")
	setStr(&cfg.S3.Bucket, "MARCOBOT_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "MARCOBOT_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "MARCOBOT_S3_SECRET_KEY")
	setBool(&cfg.S3.ForcePathStyle, "MARCOBOT_S3_FORCE_PATH_STYLE")

	// ── Rate limit ──
	setBool(&cfg.RateLimit.Enabled, "MARCOBOT_RATE_LIMIT_ENABLED")
	setInt(&cfg.RateLimit.Limit, "MARCOBOT_RATE_LIMIT_LIMIT")
	setDuration(&cfg.RateLimit.Window, "MARCOBOT_RATE_LIMIT_WINDOW")

	// ── Archive ──
	setBool(&cfg.Archive.Enabled, "MARCOBOT_ARCHIVE_ENABLED")
	setInt(&cfg.Archive.RetentionDays, "MARCOBOT_ARCHIVE_RETENTION_DAYS")
	setDuration(&cfg.Archive.Interval, "MARCOBOT_ARCHIVE_INTERVAL")

	// ── Top-level ──
	setStr(&cfg.Mode, "MARCOBOT_MODE")
	setStr(&cfg.LogLevel, "MARCOBOT_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

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
