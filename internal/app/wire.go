package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/ehupin/marcobot/internal/blob/s3"
	"github.com/ehupin/marcobot/internal/cache/redis"
	"github.com/ehupin/marcobot/internal/config"
	"github.com/ehupin/marcobot/internal/discovery"
	"github.com/ehupin/marcobot/internal/domain"
	"github.com/ehupin/marcobot/internal/exchange"
	"github.com/ehupin/marcobot/internal/exchange/binance"
	"github.com/ehupin/marcobot/internal/exchange/bittrex"
	"github.com/ehupin/marcobot/internal/graph"
	"github.com/ehupin/marcobot/internal/selector"
	"github.com/ehupin/marcobot/internal/simulator"
	"github.com/ehupin/marcobot/internal/store/postgres"
	"github.com/ehupin/marcobot/internal/updater"
)

// Dependencies bundles everything the application modes need. It is
// constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	Graph    *graph.Store
	Registry *exchange.Registry

	// Books is the order-book provider the refiner reads from, with the
	// rate-limiting and recording middleware already applied.
	Books domain.OrderBookProvider

	Discovery *discovery.Engine
	Selector  *selector.Selector
	Updater   *updater.Updater

	// Optional, nil when the backing service is disabled.
	MarketStore      domain.MarketStore
	OpportunityStore domain.OpportunityStore
	BookCache        domain.OrderBookCache
	RateLimiter      domain.RateLimiter
	Archiver         *s3blob.Archiver
}

// Wire constructs all concrete dependencies from the configuration and
// returns them with a cleanup function to be called on shutdown.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{
		Graph: graph.New(),
	}

	// --- Venue adapters ---
	deps.Registry = exchange.NewRegistry(
		binance.New(binance.Config{
			BaseURL:     cfg.Binance.BaseURL,
			APIKey:      cfg.Binance.APIKey,
			APISecret:   cfg.Binance.APISecret,
			TradingFees: cfg.Binance.TradingFees,
			HTTPTimeout: cfg.Binance.HTTPTimeout.Duration,
		}, logger),
		bittrex.New(bittrex.Config{
			BaseURL:     cfg.Bittrex.BaseURL,
			TradingFees: cfg.Bittrex.TradingFees,
			HTTPTimeout: cfg.Bittrex.HTTPTimeout.Duration,
		}, logger),
	)

	// --- PostgreSQL ---
	if cfg.Postgres.Enabled {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		pool := pgClient.Pool()
		deps.MarketStore = postgres.NewMarketStore(pool)
		deps.OpportunityStore = postgres.NewOpportunityStore(pool)
	}

	// --- Redis ---
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.BookCache = redis.NewOrderBookCache(redisClient, cfg.Redis.BookTTL.Duration)
		deps.RateLimiter = redis.NewRateLimiter(redisClient)
	}

	// --- Order-book provider chain ---
	deps.Books = domain.OrderBookProvider(deps.Registry)
	if cfg.RateLimit.Enabled && deps.RateLimiter != nil {
		deps.Books = exchange.NewThrottledBooks(deps.Books, deps.RateLimiter,
			cfg.RateLimit.Limit, cfg.RateLimit.Window.Duration)
	}
	if deps.BookCache != nil {
		deps.Books = exchange.NewRecordedBooks(deps.Books, deps.BookCache, logger)
	}

	// --- S3 archival ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		if deps.OpportunityStore != nil {
			deps.Archiver = s3blob.NewArchiver(s3blob.NewWriter(s3Client), deps.OpportunityStore, logger)
		}
	}

	// --- Core pipeline ---
	refiner := simulator.NewRefiner(deps.Books, deps.Registry, logger)
	deps.Discovery = discovery.New(deps.Graph, logger)
	deps.Selector = selector.New(refiner,
		cfg.Scanner.TopK, cfg.Scanner.Workers, cfg.Scanner.RefineTimeout.Duration, logger)
	deps.Updater = updater.New(deps.Registry, deps.Graph, deps.MarketStore, logger)

	return deps, cleanup, nil
}
