package domain

import "errors"

var (
	// ErrGraphUnavailable means the graph snapshot could not be produced.
	// It aborts a whole discovery pass; no partial candidate list is returned.
	ErrGraphUnavailable = errors.New("market graph unavailable")

	// ErrWithdrawalBlocked means a wallet is withdrawal-disabled or the amount
	// is below the venue's minimum. It is terminal for one candidate only.
	ErrWithdrawalBlocked = errors.New("withdrawal blocked")

	// ErrOrderBookUnavailable means an order-book fetch failed (network or
	// malformed data). Terminal for one candidate only.
	ErrOrderBookUnavailable = errors.New("order book unavailable")

	ErrNotFound        = errors.New("not found")
	ErrUnknownExchange = errors.New("unknown exchange")
	ErrRateLimited     = errors.New("rate limited")
)
