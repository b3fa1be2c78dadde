package app

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ehupin/marcobot/internal/domain"
	"github.com/ehupin/marcobot/internal/exchange/binance"
	"github.com/ehupin/marcobot/internal/feed"
)

// ScanMode refreshes the graph once, runs a single discovery and selection
// pass, and exits.
func (a *App) ScanMode(ctx context.Context, deps *Dependencies) error {
	if err := deps.Updater.RefreshAll(ctx); err != nil {
		return err
	}
	return a.runScanPass(ctx, deps)
}

// UpdateMode runs the market/wallet refresh loop and nothing else. Useful for
// keeping the persistent market snapshot current from a dedicated instance.
func (a *App) UpdateMode(ctx context.Context, deps *Dependencies) error {
	return deps.Updater.Run(ctx, a.cfg.Scanner.UpdateInterval.Duration)
}

// BotMode is the long-running scanner: the refresh loop, the live
// top-of-book feed, the scan loop, and the archival loop run concurrently
// until the context is cancelled.
func (a *App) BotMode(ctx context.Context, deps *Dependencies) error {
	if err := deps.Updater.RefreshAll(ctx); err != nil {
		a.logger.Warn("initial refresh incomplete", slog.Any("error", err))
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return deps.Updater.Run(gctx, a.cfg.Scanner.UpdateInterval.Duration)
	})

	if a.cfg.Feed.Enabled {
		symbols := a.feedSymbols(gctx, deps)
		ticker := feed.NewBinanceBookTicker(a.cfg.Feed.WsURL, symbols, deps.Graph, a.logger)
		g.Go(func() error {
			return ticker.Run(gctx)
		})
	}

	g.Go(func() error {
		return a.scanLoop(gctx, deps)
	})

	if deps.Archiver != nil && a.cfg.Archive.Enabled {
		g.Go(func() error {
			return a.archiveLoop(gctx, deps)
		})
	}

	return g.Wait()
}

// feedSymbols lists the pairs worth streaming: every market on Binance that
// touches the start currency, since those are the legs discovery prices from
// the start exchange side.
func (a *App) feedSymbols(ctx context.Context, deps *Dependencies) []string {
	snap, err := deps.Graph.Snapshot(ctx)
	if err != nil {
		a.logger.Warn("cannot list feed symbols", slog.Any("error", err))
		return nil
	}
	markets := snap.MarketsWith(binance.Name, domain.Currency(a.cfg.Scanner.Currency))
	symbols := make([]string, 0, len(markets))
	for _, m := range markets {
		symbols = append(symbols, m.Symbol())
	}
	return symbols
}

// scanLoop runs one pass per tick. A pass still running when the next tick
// arrives is operating on stale prices: it is cancelled and awaited before
// the new pass starts.
func (a *App) scanLoop(ctx context.Context, deps *Dependencies) error {
	ticker := time.NewTicker(a.cfg.Scanner.Interval.Duration)
	defer ticker.Stop()

	var (
		wg         sync.WaitGroup
		cancelPass context.CancelFunc
	)
	defer func() {
		if cancelPass != nil {
			cancelPass()
		}
		wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if cancelPass != nil {
				cancelPass()
				wg.Wait()
			}
			passCtx, cancel := context.WithCancel(ctx)
			cancelPass = cancel

			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := a.runScanPass(passCtx, deps); err != nil && passCtx.Err() == nil {
					a.logger.Warn("scan pass failed", slog.Any("error", err))
				}
			}()
		}
	}
}

// runScanPass discovers candidates, refines the best of them, and records
// the winner.
func (a *App) runScanPass(ctx context.Context, deps *Dependencies) error {
	start := time.Now()

	candidates, err := deps.Discovery.Discover(ctx,
		a.cfg.Scanner.Exchange, domain.Currency(a.cfg.Scanner.Currency))
	if err != nil {
		if errors.Is(err, domain.ErrGraphUnavailable) {
			a.logger.Warn("graph not ready, skipping pass")
			return nil
		}
		return err
	}
	if len(candidates) == 0 {
		a.logger.Debug("no candidates above break-even")
		return nil
	}

	best, found, err := deps.Selector.SelectBest(ctx, candidates, a.cfg.Scanner.Amount)
	if err != nil {
		return err
	}
	if !found {
		a.logger.Info("no candidate survived refinement",
			slog.Int("candidates", len(candidates)),
			slog.Duration("elapsed", time.Since(start)),
		)
		return nil
	}

	a.logger.Info("opportunity found",
		slog.String("id", best.ID),
		slog.String("src", best.Candidate.SrcExchange+":"+best.Candidate.SrcMarket),
		slog.String("tmp", string(best.Candidate.TmpCurrency)),
		slog.String("dst", best.Candidate.DstExchange+":"+best.Candidate.DstMarket),
		slog.Float64("ratio", best.Candidate.Ratio),
		slog.Float64("refined_ratio", best.Estimate.RefinedRatio),
		slog.Duration("elapsed", time.Since(start)),
	)

	if deps.OpportunityStore != nil {
		if err := deps.OpportunityStore.Insert(ctx, best); err != nil {
			a.logger.Warn("failed to persist opportunity",
				slog.String("id", best.ID), slog.Any("error", err))
		}
	}
	return nil
}

// archiveLoop periodically moves opportunity rows older than the retention
// window out to object storage.
func (a *App) archiveLoop(ctx context.Context, deps *Dependencies) error {
	ticker := time.NewTicker(a.cfg.Archive.Interval.Duration)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			cutoff := time.Now().AddDate(0, 0, -a.cfg.Archive.RetentionDays)
			count, err := deps.Archiver.ArchiveOpportunities(ctx, cutoff)
			if err != nil {
				a.logger.Warn("archival failed", slog.Any("error", err))
				continue
			}
			if count > 0 {
				a.logger.Info("archived opportunities", slog.Int64("count", count))
			}
		}
	}
}
