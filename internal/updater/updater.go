// Package updater keeps the market graph current: it periodically pulls
// markets and wallet facts from every registered venue and applies them to
// the in-memory graph, mirroring the snapshots to persistent storage.
package updater

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ehupin/marcobot/internal/domain"
	"github.com/ehupin/marcobot/internal/exchange"
	"github.com/ehupin/marcobot/internal/graph"
)

// Updater refreshes the graph from venue APIs. The market store is optional;
// when present it receives the same rows best-effort, and a storage failure
// never blocks the in-memory refresh.
type Updater struct {
	registry *exchange.Registry
	graph    *graph.Store
	store    domain.MarketStore
	logger   *slog.Logger
}

// New creates an Updater. store may be nil.
func New(registry *exchange.Registry, g *graph.Store, store domain.MarketStore, logger *slog.Logger) *Updater {
	return &Updater{
		registry: registry,
		graph:    g,
		store:    store,
		logger:   logger.With(slog.String("component", "updater")),
	}
}

// RefreshAll refreshes every venue once. A venue that fails is logged and
// skipped; the refresh fails only when no venue contributed any markets,
// with an error wrapping ErrGraphUnavailable.
func (u *Updater) RefreshAll(ctx context.Context) error {
	refreshed := 0
	for _, adapter := range u.registry.All() {
		if err := u.refreshVenue(ctx, adapter); err != nil {
			u.logger.Warn("venue refresh failed",
				slog.String("exchange", adapter.Name()),
				slog.Any("error", err),
			)
			continue
		}
		refreshed++
	}
	if refreshed == 0 {
		return fmt.Errorf("updater: no venue refreshed: %w", domain.ErrGraphUnavailable)
	}
	return nil
}

func (u *Updater) refreshVenue(ctx context.Context, adapter exchange.Adapter) error {
	name := adapter.Name()

	markets, err := adapter.FetchMarkets(ctx)
	if err != nil {
		return fmt.Errorf("fetch markets: %w", err)
	}
	wallets, err := adapter.FetchCurrencies(ctx)
	if err != nil {
		return fmt.Errorf("fetch currencies: %w", err)
	}

	u.graph.UpsertExchange(domain.Exchange{Name: name, TradingFees: adapter.TradingFees()})
	u.graph.UpsertMarkets(markets)
	u.graph.UpsertWallets(wallets)

	if u.store != nil {
		if err := u.store.UpsertMarkets(ctx, markets); err != nil {
			u.logger.Warn("failed to persist markets",
				slog.String("exchange", name), slog.Any("error", err))
		}
		if err := u.store.UpsertWallets(ctx, wallets); err != nil {
			u.logger.Warn("failed to persist wallets",
				slog.String("exchange", name), slog.Any("error", err))
		}
	}

	u.logger.Info("venue refreshed",
		slog.String("exchange", name),
		slog.Int("markets", len(markets)),
		slog.Int("wallets", len(wallets)),
	)
	return nil
}

// Run refreshes immediately, then on every tick until ctx is cancelled.
func (u *Updater) Run(ctx context.Context, interval time.Duration) error {
	if err := u.RefreshAll(ctx); err != nil {
		u.logger.Warn("initial refresh incomplete", slog.Any("error", err))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := u.RefreshAll(ctx); err != nil {
				u.logger.Warn("refresh incomplete", slog.Any("error", err))
			}
		}
	}
}
