// Package discovery enumerates two-leg arbitrage cycles over a market-graph
// snapshot and prices them from top-of-book quotes.
package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/ehupin/marcobot/internal/domain"
)

// Engine discovers candidates. It only ever reads graph snapshots; it fetches
// nothing from the network and is safe to run concurrently.
type Engine struct {
	graph  domain.Graph
	logger *slog.Logger
}

// New creates a discovery Engine.
func New(graph domain.Graph, logger *slog.Logger) *Engine {
	return &Engine{
		graph:  graph,
		logger: logger.With(slog.String("component", "discovery")),
	}
}

// legPriceType returns the book side a conversion consumes on market m when
// spending currency spent. Spending the quote currency buys base at the ask;
// spending the base currency sells into the bid.
func legPriceType(m domain.Market, spent domain.Currency) domain.PriceType {
	if spent == m.Quote {
		return domain.PriceAsk
	}
	return domain.PriceBid
}

// legFactor is the per-unit conversion factor of a leg: amount of the other
// currency obtained for one unit spent, before fees.
func legFactor(pt domain.PriceType, price float64) float64 {
	if pt == domain.PriceAsk {
		return 1 / price
	}
	return price
}

// Discover enumerates every cycle that starts and ends in startCurrency on
// startExchange: a trade into an intermediate currency, a withdrawal, and a
// trade back on any market over the same pair except the source market
// itself. A cycle needs the intermediate currency to be withdrawable at the
// source venue and depositable at the destination venue. Candidates are
// deduplicated, restricted to ratio > 1, and sorted best first. The returned
// slice may be empty; a nil snapshot aborts the whole pass with an error
// wrapping ErrGraphUnavailable.
func (e *Engine) Discover(ctx context.Context, startExchange string, startCurrency domain.Currency) ([]domain.Candidate, error) {
	snap, err := e.graph.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("discovery: %w", err)
	}

	startX, ok := snap.Exchange(startExchange)
	if !ok {
		return nil, fmt.Errorf("discovery: %q: %w", startExchange, domain.ErrUnknownExchange)
	}

	now := time.Now().UTC()
	seen := make(map[string]struct{})
	keys := make(map[string]string) // candidate ID -> dedupe key, for stable ordering
	var out []domain.Candidate

	for _, src := range snap.MarketsWith(startExchange, startCurrency) {
		tmp, ok := src.Other(startCurrency)
		if !ok {
			continue
		}

		srcPT := legPriceType(src, startCurrency)
		srcPrice := src.PriceFor(srcPT)
		if !usablePrice(srcPrice) {
			continue
		}

		wallet, ok := snap.Wallet(startExchange, tmp)
		if !ok || !wallet.WithdrawEnabled {
			continue
		}

		for _, dst := range snap.MarketsBetween(startCurrency, tmp) {
			if dst.ID() == src.ID() {
				continue
			}
			dstX, ok := snap.Exchange(dst.Exchange)
			if !ok {
				continue
			}

			dstWallet, ok := snap.Wallet(dst.Exchange, tmp)
			if !ok || !dstWallet.DepositEnabled {
				continue
			}

			dstPT := legPriceType(dst, tmp)
			dstPrice := dst.PriceFor(dstPT)
			if !usablePrice(dstPrice) {
				continue
			}

			perUnit := legFactor(srcPT, srcPrice)*(1-startX.TradingFees) - wallet.WithdrawFee
			ratio := perUnit * legFactor(dstPT, dstPrice) * (1 - dstX.TradingFees)
			if math.IsNaN(ratio) || math.IsInf(ratio, 0) || ratio <= 1 {
				continue
			}

			key := src.ID() + "|" + string(srcPT) + "|" + dst.ID() + "|" + string(dstPT)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}

			id := uuid.NewString()
			keys[id] = key
			out = append(out, domain.Candidate{
				ID:             id,
				StartExchange:  startExchange,
				StartCurrency:  startCurrency,
				SrcExchange:    src.Exchange,
				SrcMarket:      src.Symbol(),
				SrcPriceType:   srcPT,
				SrcPrice:       srcPrice,
				SrcTradingFees: startX.TradingFees,
				TmpCurrency:    tmp,
				WithdrawalFee:  wallet.WithdrawFee,
				DstExchange:    dst.Exchange,
				DstMarket:      dst.Symbol(),
				DstPriceType:   dstPT,
				DstPrice:       dstPrice,
				DstTradingFees: dstX.TradingFees,
				Ratio:          ratio,
				DetectedAt:     now,
			})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Ratio != out[j].Ratio {
			return out[i].Ratio > out[j].Ratio
		}
		return keys[out[i].ID] < keys[out[j].ID]
	})

	e.logger.Debug("discovery pass complete",
		slog.String("exchange", startExchange),
		slog.String("currency", string(startCurrency)),
		slog.Int("candidates", len(out)),
	)
	return out, nil
}

func usablePrice(p float64) bool {
	return p > 0 && !math.IsNaN(p) && !math.IsInf(p, 0)
}
