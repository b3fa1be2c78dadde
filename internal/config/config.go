// Package config defines the top-level configuration for the scanner and
// provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by MARCOBOT_* environment
// variables.
type Config struct {
	Scanner   ScannerConfig   `toml:"scanner"`
	Binance   BinanceConfig   `toml:"binance"`
	Bittrex   BittrexConfig   `toml:"bittrex"`
	Feed      FeedConfig      `toml:"feed"`
	Postgres  PostgresConfig  `toml:"postgres"`
	Redis     RedisConfig     `toml:"redis"`
	S3        S3Config        `toml:"s3"`
	RateLimit RateLimitConfig `toml:"rate_limit"`
	Archive   ArchiveConfig   `toml:"archive"`
	Mode      string          `toml:"mode"`
	LogLevel  string          `toml:"log_level"`
}

// ScannerConfig holds the discovery and selection parameters.
type ScannerConfig struct {
	// Exchange and Currency define where cycles start and end.
	Exchange string `toml:"exchange"`
	Currency string `toml:"currency"`

	// Amount is the input amount refined against order books. Use 1 when
	// only the ratio matters.
	Amount float64 `toml:"amount"`

	// TopK bounds how many candidates per pass are refined.
	TopK int `toml:"top_k"`

	// Workers bounds how many refinements run concurrently.
	Workers int `toml:"workers"`

	// Interval is the scan loop period.
	Interval duration `toml:"interval"`

	// RefineTimeout bounds each candidate's refinement.
	RefineTimeout duration `toml:"refine_timeout"`

	// UpdateInterval is the full market/wallet refresh period.
	UpdateInterval duration `toml:"update_interval"`
}

// BinanceConfig holds Binance API settings. API credentials are only needed
// for wallet facts; without them the venue grows no withdraw edges.
type BinanceConfig struct {
	BaseURL     string   `toml:"base_url"`
	APIKey      string   `toml:"api_key"`
	APISecret   string   `toml:"api_secret"`
	TradingFees float64  `toml:"trading_fees"`
	HTTPTimeout duration `toml:"http_timeout"`
}

// BittrexConfig holds Bittrex API settings.
type BittrexConfig struct {
	BaseURL     string   `toml:"base_url"`
	TradingFees float64  `toml:"trading_fees"`
	HTTPTimeout duration `toml:"http_timeout"`
}

// FeedConfig holds the live top-of-book stream settings.
type FeedConfig struct {
	Enabled bool   `toml:"enabled"`
	WsURL   string `toml:"ws_url"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Enabled       bool   `toml:"enabled"`
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

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Enabled    bool     `toml:"enabled"`
	Addr       string   `toml:"addr"`
	Password   string   `toml:"password"`
	DB         int      `toml:"db"`
	PoolSize   int      `toml:"pool_size"`
	MaxRetries int      `toml:"max_retries"`
	TLSEnabled bool     `toml:"tls_enabled"`
	BookTTL    duration `toml:"book_ttl"`
}

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// RateLimitConfig throttles order-book fetches per venue. Requires Redis.
type RateLimitConfig struct {
	Enabled bool     `toml:"enabled"`
	Limit   int      `toml:"limit"`
	Window  duration `toml:"window"`
}

// ArchiveConfig controls opportunity history archival. Requires Postgres
// and S3.
type ArchiveConfig struct {
	Enabled       bool     `toml:"enabled"`
	RetentionDays int      `toml:"retention_days"`
	Interval      duration `toml:"interval"`
}

// duration wraps time.Duration so TOML values can be written as "2s".
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Scanner: ScannerConfig{
			Exchange:       "binance",
			Currency:       "btc",
			Amount:         1,
			TopK:           10,
			Workers:        4,
			Interval:       duration{2 * time.Second},
			RefineTimeout:  duration{10 * time.Second},
			UpdateInterval: duration{5 * time.Minute},
		},
		Binance: BinanceConfig{
			BaseURL:     "https://api.binance.com",
			TradingFees: 0.001,
			HTTPTimeout: duration{10 * time.Second},
		},
		Bittrex: BittrexConfig{
			BaseURL:     "https://bittrex.com",
			TradingFees: 0.0025,
			HTTPTimeout: duration{10 * time.Second},
		},
		Feed: FeedConfig{
			Enabled: true,
			WsURL:   "wss://stream.binance.com:9443",
		},
		Postgres: PostgresConfig{
			Port:          5432,
			SSLMode:       "disable",
			PoolMaxConns:  4,
			PoolMinConns:  0,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
			BookTTL:  duration{time.Minute},
		},
		RateLimit: RateLimitConfig{
			Limit:  20,
			Window: duration{time.Second},
		},
		Archive: ArchiveConfig{
			RetentionDays: 90,
			Interval:      duration{24 * time.Hour},
		},
		Mode:     "scan",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"scan":   true,
	"update": true,
	"bot":    true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: scan, update, bot)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Scanner
	if c.Scanner.Exchange == "" {
		errs = append(errs, "scanner: exchange must not be empty")
	}
	if c.Scanner.Currency == "" {
		errs = append(errs, "scanner: currency must not be empty")
	}
	if c.Scanner.Amount <= 0 {
		errs = append(errs, "scanner: amount must be > 0")
	}
	if c.Scanner.TopK < 1 {
		errs = append(errs, "scanner: top_k must be >= 1")
	}
	if c.Scanner.Workers < 1 {
		errs = append(errs, "scanner: workers must be >= 1")
	}
	if c.Scanner.Interval.Duration <= 0 {
		errs = append(errs, "scanner: interval must be positive")
	}
	if c.Scanner.RefineTimeout.Duration <= 0 {
		errs = append(errs, "scanner: refine_timeout must be positive")
	}
	if c.Scanner.UpdateInterval.Duration <= 0 {
		errs = append(errs, "scanner: update_interval must be positive")
	}

	// Venues
	if c.Binance.TradingFees < 0 || c.Binance.TradingFees >= 1 {
		errs = append(errs, "binance: trading_fees must be in [0, 1)")
	}
	if c.Bittrex.TradingFees < 0 || c.Bittrex.TradingFees >= 1 {
		errs = append(errs, "bittrex: trading_fees must be in [0, 1)")
	}

	// Postgres
	if c.Postgres.Enabled {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 {
			errs = append(errs, "postgres: pool_min_conns must be >= 0")
		}
		if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
		}
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
		if c.Redis.BookTTL.Duration <= 0 {
			errs = append(errs, "redis: book_ttl must be positive")
		}
	}

	// S3
	if c.S3.Enabled {
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must not be empty")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
	}

	// Rate limit
	if c.RateLimit.Enabled {
		if !c.Redis.Enabled {
			errs = append(errs, "rate_limit: requires redis to be enabled")
		}
		if c.RateLimit.Limit < 1 {
			errs = append(errs, "rate_limit: limit must be >= 1")
		}
		if c.RateLimit.Window.Duration <= 0 {
			errs = append(errs, "rate_limit: window must be positive")
		}
	}

	// Archive
	if c.Archive.Enabled {
		if !c.Postgres.Enabled {
			errs = append(errs, "archive: requires postgres to be enabled")
		}
		if !c.S3.Enabled {
			errs = append(errs, "archive: requires s3 to be enabled")
		}
		if c.Archive.RetentionDays < 1 {
			errs = append(errs, "archive: retention_days must be >= 1")
		}
		if c.Archive.Interval.Duration <= 0 {
			errs = append(errs, "archive: interval must be positive")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
