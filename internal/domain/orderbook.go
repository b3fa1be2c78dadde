package domain

// PriceLevel is a single price+amount entry on one side of an order book.
// Amount is denominated in base currency; Price in quote per base.
type PriceLevel struct {
	Price  float64
	Amount float64
}

// OrderBook is one side of a market's book, sorted best price first:
// ascending prices for asks, descending for bids. An empty book is valid and
// means no liquidity on that side.
type OrderBook []PriceLevel
