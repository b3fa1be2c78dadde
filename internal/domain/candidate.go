package domain

import "time"

// Candidate is one two-leg conversion cycle produced by discovery: start
// currency to TmpCurrency on SrcMarket, a withdrawal of TmpCurrency from
// SrcExchange, then TmpCurrency back to the start currency on DstMarket.
// Ratio is the fee-adjusted top-of-book estimate of output per unit input.
type Candidate struct {
	ID string

	StartExchange string
	StartCurrency Currency

	SrcExchange    string
	SrcMarket      string // pair label, e.g. "eth/btc"
	SrcPriceType   PriceType
	SrcPrice       float64
	SrcTradingFees float64

	TmpCurrency   Currency
	WithdrawalFee float64 // flat, in TmpCurrency units

	DstExchange    string
	DstMarket      string
	DstPriceType   PriceType
	DstPrice       float64
	DstTradingFees float64

	Ratio      float64
	DetectedAt time.Time
}

// Estimate is the result of refining a Candidate against real order-book
// liquidity for a concrete input amount.
type Estimate struct {
	InputAmount    float64
	SrcTradeOutput float64 // TmpCurrency after leg 1 and trading fees
	WithdrawOutput float64 // TmpCurrency after the flat withdrawal fee
	DstTradeOutput float64 // start currency after leg 2 and trading fees
	RefinedRatio   float64 // DstTradeOutput / InputAmount
}

// Opportunity is a selected best candidate together with its refinement,
// as persisted to the opportunity history.
type Opportunity struct {
	ID         string
	Candidate  Candidate
	Estimate   Estimate
	DetectedAt time.Time
	Executed   bool
	ExecutedAt *time.Time
}
