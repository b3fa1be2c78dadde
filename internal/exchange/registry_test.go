package exchange

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehupin/marcobot/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubAdapter struct {
	name  string
	fees  float64
	book  domain.OrderBook
	calls int
}

func (s *stubAdapter) Name() string         { return s.name }
func (s *stubAdapter) TradingFees() float64 { return s.fees }

func (s *stubAdapter) FetchMarkets(ctx context.Context) ([]domain.Market, error) {
	return nil, nil
}

func (s *stubAdapter) FetchCurrencies(ctx context.Context) ([]domain.WalletStatus, error) {
	return nil, nil
}

func (s *stubAdapter) GetOrderBook(ctx context.Context, symbol string, side domain.PriceType) (domain.OrderBook, error) {
	s.calls++
	return s.book, nil
}

func (s *stubAdapter) ApplyTradingFees(amount float64) float64 { return amount * (1 - s.fees) }

func (s *stubAdapter) ApplyWithdrawFees(ctx context.Context, c domain.Currency, amount float64) (float64, error) {
	return amount, nil
}

var _ Adapter = (*stubAdapter)(nil)

type stubLimiter struct {
	allowed bool
	err     error
	lastKey string
}

func (s *stubLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	s.lastKey = key
	return s.allowed, s.err
}

type stubCache struct {
	sets map[string]domain.OrderBook
	err  error
}

func (s *stubCache) SetBook(ctx context.Context, exchange, symbol string, side domain.PriceType, book domain.OrderBook) error {
	if s.err != nil {
		return s.err
	}
	if s.sets == nil {
		s.sets = make(map[string]domain.OrderBook)
	}
	s.sets[exchange+":"+symbol+":"+string(side)] = book
	return nil
}

func (s *stubCache) GetBook(ctx context.Context, exchange, symbol string, side domain.PriceType) (domain.OrderBook, error) {
	return nil, domain.ErrNotFound
}

func TestRegistryGet(t *testing.T) {
	a := &stubAdapter{name: "binance", fees: 0.001}
	r := NewRegistry(a)

	got, err := r.Get("binance")
	require.NoError(t, err)
	assert.Same(t, Adapter(a), got)

	_, err = r.Get("kraken")
	require.ErrorIs(t, err, domain.ErrUnknownExchange)
}

func TestRegistryAllSorted(t *testing.T) {
	r := NewRegistry(&stubAdapter{name: "bittrex"}, &stubAdapter{name: "binance"})

	all := r.All()
	require.Len(t, all, 2)
	assert.Equal(t, "binance", all[0].Name())
	assert.Equal(t, "bittrex", all[1].Name())
}

func TestRegistryDelegation(t *testing.T) {
	a := &stubAdapter{name: "binance", fees: 0.001, book: domain.OrderBook{{Price: 0.05, Amount: 2}}}
	r := NewRegistry(a)

	book, err := r.GetOrderBook(context.Background(), "binance", "eth/btc", domain.PriceAsk)
	require.NoError(t, err)
	assert.Equal(t, a.book, book)

	out, err := r.ApplyTradingFees("binance", 1)
	require.NoError(t, err)
	assert.InDelta(t, 0.999, out, 1e-12)

	_, err = r.GetOrderBook(context.Background(), "kraken", "eth/btc", domain.PriceAsk)
	require.ErrorIs(t, err, domain.ErrUnknownExchange)
	_, err = r.ApplyWithdrawFees(context.Background(), "kraken", "eth", 1)
	require.ErrorIs(t, err, domain.ErrUnknownExchange)
}

func TestThrottledBooks(t *testing.T) {
	a := &stubAdapter{name: "binance", book: domain.OrderBook{{Price: 0.05, Amount: 2}}}
	r := NewRegistry(a)

	limiter := &stubLimiter{allowed: true}
	tb := NewThrottledBooks(r, limiter, 10, time.Second)

	book, err := tb.GetOrderBook(context.Background(), "binance", "eth/btc", domain.PriceAsk)
	require.NoError(t, err)
	assert.Equal(t, a.book, book)
	assert.Equal(t, "books:binance", limiter.lastKey)

	limiter.allowed = false
	_, err = tb.GetOrderBook(context.Background(), "binance", "eth/btc", domain.PriceAsk)
	require.ErrorIs(t, err, domain.ErrRateLimited)
	assert.Equal(t, 1, a.calls, "denied fetches are not forwarded")

	limiter.err = errors.New("redis down")
	_, err = tb.GetOrderBook(context.Background(), "binance", "eth/btc", domain.PriceAsk)
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrRateLimited)
}

func TestRecordedBooks(t *testing.T) {
	a := &stubAdapter{name: "binance", book: domain.OrderBook{{Price: 0.05, Amount: 2}}}
	r := NewRegistry(a)

	cache := &stubCache{}
	rb := NewRecordedBooks(r, cache, testLogger())

	book, err := rb.GetOrderBook(context.Background(), "binance", "eth/btc", domain.PriceAsk)
	require.NoError(t, err)
	assert.Equal(t, a.book, book)
	assert.Equal(t, a.book, cache.sets["binance:eth/btc:"+string(domain.PriceAsk)])
}

func TestRecordedBooksToleratesCacheFailure(t *testing.T) {
	a := &stubAdapter{name: "binance", book: domain.OrderBook{{Price: 0.05, Amount: 2}}}
	rb := NewRecordedBooks(NewRegistry(a), &stubCache{err: errors.New("redis down")}, testLogger())

	book, err := rb.GetOrderBook(context.Background(), "binance", "eth/btc", domain.PriceAsk)
	require.NoError(t, err)
	assert.Equal(t, a.book, book)
}
