// Package simulator converts hypothetical input amounts into realized output
// amounts by walking real order books, and refines discovery candidates into
// liquidity-aware estimates.
package simulator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ehupin/marcobot/internal/domain"
)

// Simulate walks the given side of an order book, consuming levels best price
// first, and returns the output amount obtainable for input.
//
// An ask level absorbs price*amount units of input (quote) and produces
// amount units of output (base); a bid level absorbs amount units of input
// (base) and produces price*amount units of output (quote). The boundary
// level is consumed proportionally. If the book is exhausted before the input
// is, the unmet remainder is simply not converted: a liquidity shortfall is
// reflected in a smaller output, never in an error.
func Simulate(book domain.OrderBook, input float64, side domain.PriceType) float64 {
	remaining := input
	output := 0.0

	for _, level := range book {
		if remaining <= 0 {
			break
		}

		var inputCapacity, outputCapacity float64
		if side == domain.PriceAsk {
			inputCapacity = level.Price * level.Amount
			outputCapacity = level.Amount
		} else {
			inputCapacity = level.Amount
			outputCapacity = level.Price * level.Amount
		}
		if inputCapacity <= 0 {
			continue
		}

		if inputCapacity <= remaining {
			remaining -= inputCapacity
			output += outputCapacity
			continue
		}

		// Last level touched: take the matching fraction and stop.
		output += outputCapacity * (remaining / inputCapacity)
		remaining = 0
		break
	}

	return output
}

// Refiner turns a discovery candidate into an Estimate using live order books
// and the venue fee schedules. It is a pure function of its inputs plus the
// provider's snapshot; it never retries and never mutates the graph.
type Refiner struct {
	books  domain.OrderBookProvider
	fees   domain.FeeProvider
	logger *slog.Logger
}

// NewRefiner creates a Refiner.
func NewRefiner(books domain.OrderBookProvider, fees domain.FeeProvider, logger *slog.Logger) *Refiner {
	return &Refiner{
		books:  books,
		fees:   fees,
		logger: logger.With(slog.String("component", "refiner")),
	}
}

// Refine simulates the candidate's two legs for the given input amount:
// leg 1 trade on the source market, the withdrawal of the intermediate
// currency, then leg 2 on the destination market. Trading fees are applied
// once per leg, after each walk. Use amount 1 when only the ratio matters.
func (r *Refiner) Refine(ctx context.Context, cand domain.Candidate, amount float64) (domain.Estimate, error) {
	if amount <= 0 {
		return domain.Estimate{}, fmt.Errorf("simulator: refine %s: non-positive amount %v", cand.ID, amount)
	}

	srcBook, err := r.books.GetOrderBook(ctx, cand.SrcExchange, cand.SrcMarket, cand.SrcPriceType)
	if err != nil {
		return domain.Estimate{}, fmt.Errorf("simulator: src book %s %s: %w", cand.SrcExchange, cand.SrcMarket, err)
	}
	srcOut, err := r.fees.ApplyTradingFees(cand.SrcExchange, Simulate(srcBook, amount, cand.SrcPriceType))
	if err != nil {
		return domain.Estimate{}, fmt.Errorf("simulator: src trading fees: %w", err)
	}

	withdrawOut, err := r.fees.ApplyWithdrawFees(ctx, cand.SrcExchange, cand.TmpCurrency, srcOut)
	if err != nil {
		return domain.Estimate{}, fmt.Errorf("simulator: withdraw %s from %s: %w", cand.TmpCurrency, cand.SrcExchange, err)
	}

	dstBook, err := r.books.GetOrderBook(ctx, cand.DstExchange, cand.DstMarket, cand.DstPriceType)
	if err != nil {
		return domain.Estimate{}, fmt.Errorf("simulator: dst book %s %s: %w", cand.DstExchange, cand.DstMarket, err)
	}
	dstOut, err := r.fees.ApplyTradingFees(cand.DstExchange, Simulate(dstBook, withdrawOut, cand.DstPriceType))
	if err != nil {
		return domain.Estimate{}, fmt.Errorf("simulator: dst trading fees: %w", err)
	}

	est := domain.Estimate{
		InputAmount:    amount,
		SrcTradeOutput: srcOut,
		WithdrawOutput: withdrawOut,
		DstTradeOutput: dstOut,
		RefinedRatio:   dstOut / amount,
	}
	r.logger.Debug("candidate refined",
		slog.String("candidate_id", cand.ID),
		slog.Float64("top_of_book_ratio", cand.Ratio),
		slog.Float64("refined_ratio", est.RefinedRatio),
	)
	return est, nil
}
