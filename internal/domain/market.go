// Package domain defines the market-graph data model shared by the scanner
// components: currencies, exchanges, markets, wallet facts, order books, and
// the arbitrage candidate/estimate types, together with the collaborator
// interfaces the core depends on.
package domain

import (
	"strings"
	"time"
)

// Currency is a canonical asset symbol, lowercase (e.g. "btc").
type Currency string

// PriceType identifies which side of a market a conversion consumes.
type PriceType string

const (
	PriceAsk PriceType = "ask"
	PriceBid PriceType = "bid"
)

// Exchange is a named trading venue. TradingFees is the fractional rate
// applied multiplicatively to every trade's output on this venue.
type Exchange struct {
	Name        string
	TradingFees float64
}

// Market is a tradable pair on one specific exchange. Prices are top-of-book
// and denominated in quote currency per unit of base currency. Volumes are
// 24h figures and informational only.
type Market struct {
	Exchange    string
	Base        Currency
	Quote       Currency
	BidPrice    float64
	AskPrice    float64
	BaseVolume  float64
	QuoteVolume float64

	// Lot-size constraints, in base currency units.
	MinTradeAmount float64
	MinTradeStep   float64

	UpdatedAt time.Time
}

// Symbol returns the market's pair label in base/quote form, e.g. "eth/btc".
func (m Market) Symbol() string {
	return string(m.Base) + "/" + string(m.Quote)
}

// ID returns the market's globally unique identifier, e.g. "binance:eth/btc".
func (m Market) ID() string {
	return m.Exchange + ":" + m.Symbol()
}

// Has reports whether c is one of the market's two sides.
func (m Market) Has(c Currency) bool {
	return m.Base == c || m.Quote == c
}

// Other returns the side opposite to c. The second return value is false when
// c is not part of the market.
func (m Market) Other(c Currency) (Currency, bool) {
	switch c {
	case m.Base:
		return m.Quote, true
	case m.Quote:
		return m.Base, true
	default:
		return "", false
	}
}

// PriceFor returns the stored top-of-book price for the given price type.
func (m Market) PriceFor(pt PriceType) float64 {
	if pt == PriceAsk {
		return m.AskPrice
	}
	return m.BidPrice
}

// WalletStatus carries the per-venue wallet facts for one currency: whether
// funds can be moved off the venue and at what cost. WithdrawFee is flat and
// expressed in units of the currency itself.
type WalletStatus struct {
	Exchange        string
	Currency        Currency
	WithdrawEnabled bool
	WithdrawMin     float64
	WithdrawFee     float64
	DepositEnabled  bool
}

// ParseSymbol splits a base/quote pair label into its two currencies.
// It returns ok=false for anything that is not exactly "base/quote".
func ParseSymbol(symbol string) (base, quote Currency, ok bool) {
	parts := strings.Split(symbol, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return Currency(parts[0]), Currency(parts[1]), true
}
