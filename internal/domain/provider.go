package domain

import (
	"context"
	"time"
)

// OrderBookProvider returns one side of a market's book, sorted best price
// first. An empty book is a valid result (no liquidity), not an error; fetch
// failures wrap ErrOrderBookUnavailable. Retry policy, if any, belongs to the
// implementation, never to the callers.
type OrderBookProvider interface {
	GetOrderBook(ctx context.Context, exchange, symbol string, side PriceType) (OrderBook, error)
}

// FeeProvider applies venue fee schedules to simulated amounts.
type FeeProvider interface {
	// ApplyTradingFees deducts the exchange's multiplicative trading fee.
	ApplyTradingFees(exchange string, amount float64) (float64, error)

	// ApplyWithdrawFees deducts the flat withdrawal fee for moving amount of c
	// off the exchange. It fails with an error wrapping ErrWithdrawalBlocked
	// when the wallet is withdrawal-disabled or amount is below the minimum.
	ApplyWithdrawFees(ctx context.Context, exchange string, c Currency, amount float64) (float64, error)
}

// OpportunityStore persists selected opportunities.
type OpportunityStore interface {
	Insert(ctx context.Context, opp Opportunity) error
	MarkExecuted(ctx context.Context, id string) error
	ListRecent(ctx context.Context, limit int) ([]Opportunity, error)
	ListBefore(ctx context.Context, before time.Time) ([]Opportunity, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// MarketStore persists market and wallet snapshots taken by the updater.
type MarketStore interface {
	UpsertMarkets(ctx context.Context, markets []Market) error
	UpsertWallets(ctx context.Context, wallets []WalletStatus) error
}

// OrderBookCache mirrors recently fetched order books for observability.
type OrderBookCache interface {
	SetBook(ctx context.Context, exchange, symbol string, side PriceType, book OrderBook) error
	GetBook(ctx context.Context, exchange, symbol string, side PriceType) (OrderBook, error)
}

// RateLimiter provides distributed rate limiting, keyed per venue.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
