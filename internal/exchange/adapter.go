// Package exchange defines the venue adapter contract and the registry that
// presents all configured venues behind the domain provider interfaces.
package exchange

import (
	"context"

	"github.com/ehupin/marcobot/internal/domain"
)

// Adapter is one trading venue's public-API client. Implementations live in
// subpackages (binance, bittrex) and are registered explicitly at wiring time.
type Adapter interface {
	// Name is the venue identifier used throughout the graph, e.g. "binance".
	Name() string

	// TradingFees is the venue's fractional taker fee.
	TradingFees() float64

	// FetchMarkets lists every tradable pair with top-of-book prices.
	FetchMarkets(ctx context.Context) ([]domain.Market, error)

	// FetchCurrencies lists per-currency wallet facts. Adapters retain the
	// last successful result so ApplyWithdrawFees can answer without a
	// network round trip.
	FetchCurrencies(ctx context.Context) ([]domain.WalletStatus, error)

	// GetOrderBook returns one side of a pair's book, best price first.
	// Failures wrap domain.ErrOrderBookUnavailable.
	GetOrderBook(ctx context.Context, symbol string, side domain.PriceType) (domain.OrderBook, error)

	// ApplyTradingFees deducts the venue's trading fee from amount.
	ApplyTradingFees(amount float64) float64

	// ApplyWithdrawFees deducts the flat withdrawal fee for moving amount of c
	// off the venue. Wraps domain.ErrWithdrawalBlocked when withdrawals are
	// disabled or amount is below the venue minimum.
	ApplyWithdrawFees(ctx context.Context, c domain.Currency, amount float64) (float64, error)
}
