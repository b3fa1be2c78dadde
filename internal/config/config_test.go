package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "scan", cfg.Mode)
	assert.Equal(t, "binance", cfg.Scanner.Exchange)
	assert.Equal(t, "btc", cfg.Scanner.Currency)
	assert.Equal(t, 10, cfg.Scanner.TopK)
	assert.Equal(t, 2*time.Second, cfg.Scanner.Interval.Duration)
	assert.Equal(t, 0.001, cfg.Binance.TradingFees)
	assert.Equal(t, 0.0025, cfg.Bittrex.TradingFees)
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
mode = "bot"
log_level = "debug"

[scanner]
currency = "eth"
top_k = 5
interval = "500ms"

[redis]
enabled = true
addr = "redis:6379"
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "bot", cfg.Mode)
	assert.Equal(t, "eth", cfg.Scanner.Currency)
	assert.Equal(t, 5, cfg.Scanner.TopK)
	assert.Equal(t, 500*time.Millisecond, cfg.Scanner.Interval.Duration)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)

	// Untouched sections keep their defaults.
	assert.Equal(t, "binance", cfg.Scanner.Exchange)
	assert.Equal(t, 1.0, cfg.Scanner.Amount)
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	t.Setenv("MARCOBOT_MODE", "update")
	t.Setenv("MARCOBOT_SCANNER_CURRENCY", "ltc")
	t.Setenv("MARCOBOT_SCANNER_TOP_K", "3")
	t.Setenv("MARCOBOT_SCANNER_INTERVAL", "5s")
	t.Setenv("MARCOBOT_BINANCE_API_KEY", "key-from-env")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "update", cfg.Mode)
	assert.Equal(t, "ltc", cfg.Scanner.Currency)
	assert.Equal(t, 3, cfg.Scanner.TopK)
	assert.Equal(t, 5*time.Second, cfg.Scanner.Interval.Duration)
	assert.Equal(t, "key-from-env", cfg.Binance.APIKey)
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "turbo"
	cfg.Scanner.TopK = 0
	cfg.Scanner.Amount = -1

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
	assert.Contains(t, err.Error(), "top_k")
	assert.Contains(t, err.Error(), "amount")
}

func TestValidateCrossSectionRequirements(t *testing.T) {
	cfg := Defaults()
	cfg.RateLimit.Enabled = true
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate_limit: requires redis")

	cfg = Defaults()
	cfg.Archive.Enabled = true
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "archive: requires postgres")
	assert.Contains(t, err.Error(), "archive: requires s3")
}

func TestValidatePostgresSection(t *testing.T) {
	cfg := Defaults()
	cfg.Postgres.Enabled = true
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres: host")

	cfg.Postgres.DSN = "postgres://user:pass@db:5432/marcobot"
	require.NoError(t, cfg.Validate())
}
