// Package graph implements the in-memory market graph store. The updater and
// the live feed write into it; the discovery engine reads from immutable
// snapshots, so a pass never observes a half-applied refresh.
package graph

import (
	"context"
	"fmt"
	"sync"

	"github.com/ehupin/marcobot/internal/domain"
)

// Store holds the current market graph: exchange nodes, market edges, and
// per-venue wallet facts. All mutating methods take the write lock; Snapshot
// copies the state under the read lock.
type Store struct {
	mu        sync.RWMutex
	exchanges map[string]domain.Exchange
	markets   map[string]domain.Market       // keyed by Market.ID()
	wallets   map[string]domain.WalletStatus // keyed by exchange ":" currency
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		exchanges: make(map[string]domain.Exchange),
		markets:   make(map[string]domain.Market),
		wallets:   make(map[string]domain.WalletStatus),
	}
}

func walletKey(exchange string, c domain.Currency) string {
	return exchange + ":" + string(c)
}

// UpsertExchange creates or replaces an exchange node.
func (s *Store) UpsertExchange(x domain.Exchange) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exchanges[x.Name] = x
}

// UpsertMarkets creates or replaces market edges. Markets whose two sides are
// not distinct are ignored; the base/quote role assignment is an invariant of
// the model and malformed rows must not enter the graph.
func (s *Store) UpsertMarkets(markets []domain.Market) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range markets {
		if m.Base == m.Quote || m.Base == "" || m.Quote == "" {
			continue
		}
		s.markets[m.ID()] = m
	}
}

// UpsertWallets creates or replaces wallet facts.
func (s *Store) UpsertWallets(wallets []domain.WalletStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range wallets {
		s.wallets[walletKey(w.Exchange, w.Currency)] = w
	}
}

// SetTopOfBook updates only the bid/ask of an existing market. Used by the
// live feed between full refreshes; unknown markets are ignored.
func (s *Store) SetTopOfBook(exchange, symbol string, bid, ask float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := exchange + ":" + symbol
	m, ok := s.markets[id]
	if !ok {
		return
	}
	if bid > 0 {
		m.BidPrice = bid
	}
	if ask > 0 {
		m.AskPrice = ask
	}
	s.markets[id] = m
}

// Snapshot returns a consistent copy of the graph. It fails with
// ErrGraphUnavailable while the graph has not been populated yet.
func (s *Store) Snapshot(ctx context.Context) (domain.GraphSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("graph: snapshot: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.exchanges) == 0 || len(s.markets) == 0 {
		return nil, fmt.Errorf("graph: empty store: %w", domain.ErrGraphUnavailable)
	}

	snap := &snapshot{
		exchanges: make(map[string]domain.Exchange, len(s.exchanges)),
		wallets:   make(map[string]domain.WalletStatus, len(s.wallets)),
		byExchCur: make(map[string][]domain.Market),
		byPair:    make(map[string][]domain.Market),
	}
	for name, x := range s.exchanges {
		snap.exchanges[name] = x
	}
	for key, w := range s.wallets {
		snap.wallets[key] = w
	}
	for _, m := range s.markets {
		snap.byExchCur[walletKey(m.Exchange, m.Base)] = append(snap.byExchCur[walletKey(m.Exchange, m.Base)], m)
		snap.byExchCur[walletKey(m.Exchange, m.Quote)] = append(snap.byExchCur[walletKey(m.Exchange, m.Quote)], m)
		snap.byPair[pairKey(m.Base, m.Quote)] = append(snap.byPair[pairKey(m.Base, m.Quote)], m)
	}
	return snap, nil
}

// pairKey is order-independent so both role assignments land in one bucket.
func pairKey(a, b domain.Currency) string {
	if a > b {
		a, b = b, a
	}
	return string(a) + "|" + string(b)
}

// snapshot is the immutable view handed to the discovery engine.
type snapshot struct {
	exchanges map[string]domain.Exchange
	wallets   map[string]domain.WalletStatus
	byExchCur map[string][]domain.Market
	byPair    map[string][]domain.Market
}

func (s *snapshot) Exchange(name string) (domain.Exchange, bool) {
	x, ok := s.exchanges[name]
	return x, ok
}

func (s *snapshot) MarketsWith(exchange string, c domain.Currency) []domain.Market {
	return s.byExchCur[walletKey(exchange, c)]
}

func (s *snapshot) MarketsBetween(a, b domain.Currency) []domain.Market {
	return s.byPair[pairKey(a, b)]
}

func (s *snapshot) Wallet(exchange string, c domain.Currency) (domain.WalletStatus, bool) {
	w, ok := s.wallets[walletKey(exchange, c)]
	return w, ok
}

// Compile-time interface check.
var _ domain.Graph = (*Store)(nil)
