package exchange

import (
	"context"
	"fmt"
	"sort"

	"github.com/ehupin/marcobot/internal/domain"
)

// Registry maps venue names to adapters and implements the domain provider
// interfaces on top of them. It is populated once at wiring time and
// read-only afterwards.
type Registry struct {
	adapters map[string]Adapter
}

// NewRegistry creates a Registry over the given adapters, keyed by Name.
func NewRegistry(adapters ...Adapter) *Registry {
	m := make(map[string]Adapter, len(adapters))
	for _, a := range adapters {
		m[a.Name()] = a
	}
	return &Registry{adapters: m}
}

// Get returns the adapter for the named venue.
func (r *Registry) Get(name string) (Adapter, error) {
	a, ok := r.adapters[name]
	if !ok {
		return nil, fmt.Errorf("exchange: %q: %w", name, domain.ErrUnknownExchange)
	}
	return a, nil
}

// All returns every registered adapter in stable name order.
func (r *Registry) All() []Adapter {
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]Adapter, 0, len(names))
	for _, name := range names {
		out = append(out, r.adapters[name])
	}
	return out
}

// GetOrderBook implements domain.OrderBookProvider.
func (r *Registry) GetOrderBook(ctx context.Context, exchange, symbol string, side domain.PriceType) (domain.OrderBook, error) {
	a, err := r.Get(exchange)
	if err != nil {
		return nil, err
	}
	return a.GetOrderBook(ctx, symbol, side)
}

// ApplyTradingFees implements domain.FeeProvider.
func (r *Registry) ApplyTradingFees(exchange string, amount float64) (float64, error) {
	a, err := r.Get(exchange)
	if err != nil {
		return 0, err
	}
	return a.ApplyTradingFees(amount), nil
}

// ApplyWithdrawFees implements domain.FeeProvider.
func (r *Registry) ApplyWithdrawFees(ctx context.Context, exchange string, c domain.Currency, amount float64) (float64, error) {
	a, err := r.Get(exchange)
	if err != nil {
		return 0, err
	}
	return a.ApplyWithdrawFees(ctx, c, amount)
}

var (
	_ domain.OrderBookProvider = (*Registry)(nil)
	_ domain.FeeProvider       = (*Registry)(nil)
)
