package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ehupin/marcobot/internal/domain"
)

// OrderBookCache mirrors fetched order-book sides into Redis with a short
// TTL, so the book snapshots behind a refinement pass can be inspected after
// the fact and shared between scanner instances.
type OrderBookCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewOrderBookCache creates an OrderBookCache backed by the given Client.
func NewOrderBookCache(c *Client, ttl time.Duration) *OrderBookCache {
	return &OrderBookCache{rdb: c.Underlying(), ttl: ttl}
}

func bookKey(exchange, symbol string, side domain.PriceType) string {
	return "book:" + exchange + ":" + symbol + ":" + string(side)
}

// SetBook stores one side of a book, replacing any previous snapshot.
func (c *OrderBookCache) SetBook(ctx context.Context, exchange, symbol string, side domain.PriceType, book domain.OrderBook) error {
	data, err := json.Marshal(book)
	if err != nil {
		return fmt.Errorf("redis: marshal book %s:%s: %w", exchange, symbol, err)
	}
	if err := c.rdb.Set(ctx, bookKey(exchange, symbol, side), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set book %s:%s: %w", exchange, symbol, err)
	}
	return nil
}

// GetBook returns the cached side of a book. A missing or expired entry
// fails with an error wrapping domain.ErrNotFound.
func (c *OrderBookCache) GetBook(ctx context.Context, exchange, symbol string, side domain.PriceType) (domain.OrderBook, error) {
	data, err := c.rdb.Get(ctx, bookKey(exchange, symbol, side)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redis: book %s:%s %s: %w", exchange, symbol, side, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("redis: get book %s:%s: %w", exchange, symbol, err)
	}

	var book domain.OrderBook
	if err := json.Unmarshal(data, &book); err != nil {
		return nil, fmt.Errorf("redis: unmarshal book %s:%s: %w", exchange, symbol, err)
	}
	return book, nil
}

// Compile-time interface check.
var _ domain.OrderBookCache = (*OrderBookCache)(nil)
