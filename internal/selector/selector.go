// Package selector refines the best discovery candidates against real
// order-book liquidity and picks the single best opportunity of a pass.
package selector

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ehupin/marcobot/internal/domain"
	"github.com/ehupin/marcobot/internal/simulator"
)

// Selector bounds how many candidates per pass are refined (TopK), how many
// refinements run at once (Workers), and how long each may take (Timeout).
type Selector struct {
	refiner *simulator.Refiner
	topK    int
	workers int
	timeout time.Duration
	logger  *slog.Logger
}

// New creates a Selector. topK and workers must be positive.
func New(refiner *simulator.Refiner, topK, workers int, timeout time.Duration, logger *slog.Logger) *Selector {
	return &Selector{
		refiner: refiner,
		topK:    topK,
		workers: workers,
		timeout: timeout,
		logger:  logger.With(slog.String("component", "selector")),
	}
}

// SelectBest refines the top candidates for the given input amount and
// returns the one with the highest refined ratio. A candidate whose
// refinement fails is logged and dropped; only ctx cancellation aborts the
// pass. ok is false when no candidate survives.
func (s *Selector) SelectBest(ctx context.Context, candidates []domain.Candidate, amount float64) (domain.Opportunity, bool, error) {
	if len(candidates) > s.topK {
		candidates = candidates[:s.topK]
	}
	if len(candidates) == 0 {
		return domain.Opportunity{}, false, nil
	}

	var (
		mu        sync.Mutex
		estimates = make(map[string]domain.Estimate, len(candidates))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for _, cand := range candidates {
		g.Go(func() error {
			rctx, cancel := context.WithTimeout(gctx, s.timeout)
			defer cancel()

			est, err := s.refiner.Refine(rctx, cand, amount)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				s.logger.Warn("refinement failed, dropping candidate",
					slog.String("candidate_id", cand.ID),
					slog.String("src", cand.SrcExchange+":"+cand.SrcMarket),
					slog.String("dst", cand.DstExchange+":"+cand.DstMarket),
					slog.Any("error", err),
				)
				return nil
			}
			mu.Lock()
			estimates[cand.ID] = est
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.Opportunity{}, false, err
	}

	// Candidates arrive sorted by top-of-book ratio; iterate in order so ties
	// on refined ratio resolve to the earlier candidate.
	var (
		best  domain.Opportunity
		found bool
	)
	for _, cand := range candidates {
		est, ok := estimates[cand.ID]
		if !ok {
			continue
		}
		if !found || est.RefinedRatio > best.Estimate.RefinedRatio {
			best = domain.Opportunity{
				ID:         cand.ID,
				Candidate:  cand,
				Estimate:   est,
				DetectedAt: cand.DetectedAt,
			}
			found = true
		}
	}
	if !found {
		s.logger.Debug("no candidate survived refinement", slog.Int("attempted", len(candidates)))
		return domain.Opportunity{}, false, nil
	}

	s.logger.Info("best opportunity selected",
		slog.String("opportunity_id", best.ID),
		slog.Float64("refined_ratio", best.Estimate.RefinedRatio),
		slog.String("src", best.Candidate.SrcExchange+":"+best.Candidate.SrcMarket),
		slog.String("dst", best.Candidate.DstExchange+":"+best.Candidate.DstMarket),
	)
	return best, true, nil
}
