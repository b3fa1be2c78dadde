package exchange

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ehupin/marcobot/internal/domain"
)

// ThrottledBooks rate-limits order-book fetches per venue through a shared
// limiter, so several scanner instances stay inside public-API quotas.
type ThrottledBooks struct {
	next    domain.OrderBookProvider
	limiter domain.RateLimiter
	limit   int
	window  time.Duration
}

// NewThrottledBooks wraps next with a per-venue rate limit.
func NewThrottledBooks(next domain.OrderBookProvider, limiter domain.RateLimiter, limit int, window time.Duration) *ThrottledBooks {
	return &ThrottledBooks{next: next, limiter: limiter, limit: limit, window: window}
}

// GetOrderBook implements domain.OrderBookProvider. A denied request fails
// with an error wrapping domain.ErrRateLimited and is not forwarded.
func (t *ThrottledBooks) GetOrderBook(ctx context.Context, exchange, symbol string, side domain.PriceType) (domain.OrderBook, error) {
	allowed, err := t.limiter.Allow(ctx, "books:"+exchange, t.limit, t.window)
	if err != nil {
		return nil, fmt.Errorf("exchange: rate limiter: %w", err)
	}
	if !allowed {
		return nil, fmt.Errorf("exchange: %s book fetches: %w", exchange, domain.ErrRateLimited)
	}
	return t.next.GetOrderBook(ctx, exchange, symbol, side)
}

// RecordedBooks mirrors every successfully fetched book side into the cache.
// Cache failures are logged and otherwise ignored; the fetch result stands.
type RecordedBooks struct {
	next   domain.OrderBookProvider
	cache  domain.OrderBookCache
	logger *slog.Logger
}

// NewRecordedBooks wraps next with write-through book recording.
func NewRecordedBooks(next domain.OrderBookProvider, cache domain.OrderBookCache, logger *slog.Logger) *RecordedBooks {
	return &RecordedBooks{
		next:   next,
		cache:  cache,
		logger: logger.With(slog.String("component", "book_recorder")),
	}
}

// GetOrderBook implements domain.OrderBookProvider.
func (r *RecordedBooks) GetOrderBook(ctx context.Context, exchange, symbol string, side domain.PriceType) (domain.OrderBook, error) {
	book, err := r.next.GetOrderBook(ctx, exchange, symbol, side)
	if err != nil {
		return nil, err
	}
	if cacheErr := r.cache.SetBook(ctx, exchange, symbol, side, book); cacheErr != nil {
		r.logger.Warn("failed to record order book",
			slog.String("exchange", exchange),
			slog.String("symbol", symbol),
			slog.Any("error", cacheErr),
		)
	}
	return book, nil
}

var (
	_ domain.OrderBookProvider = (*ThrottledBooks)(nil)
	_ domain.OrderBookProvider = (*RecordedBooks)(nil)
)
