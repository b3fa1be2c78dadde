package domain

import "context"

// GraphSnapshot is a consistent, immutable view of the market graph. All
// queries answer from the same materialized state; a snapshot never changes
// after it is taken, so a discovery pass can traverse it without locking.
type GraphSnapshot interface {
	// Exchange returns the venue node by name.
	Exchange(name string) (Exchange, bool)

	// MarketsWith returns every market on the given exchange that has c as
	// either its base or quote side.
	MarketsWith(exchange string, c Currency) []Market

	// MarketsBetween returns every market, on any exchange, whose two sides
	// are exactly {a, b} in either role assignment.
	MarketsBetween(a, b Currency) []Market

	// Wallet returns the wallet facts for c on the given exchange.
	Wallet(exchange string, c Currency) (WalletStatus, bool)
}

// Graph produces snapshots of the market graph. Snapshot fails with an error
// wrapping ErrGraphUnavailable when no consistent view can be produced.
type Graph interface {
	Snapshot(ctx context.Context) (GraphSnapshot, error)
}
