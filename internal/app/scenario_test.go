package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehupin/marcobot/internal/discovery"
	"github.com/ehupin/marcobot/internal/domain"
	"github.com/ehupin/marcobot/internal/graph"
	"github.com/ehupin/marcobot/internal/selector"
	"github.com/ehupin/marcobot/internal/simulator"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type scenarioBooks struct {
	books map[string]domain.OrderBook
}

func (s *scenarioBooks) GetOrderBook(ctx context.Context, exchange, symbol string, side domain.PriceType) (domain.OrderBook, error) {
	book, ok := s.books[exchange+":"+symbol+":"+string(side)]
	if !ok {
		return nil, fmt.Errorf("scenario: %s %s %s: %w", exchange, symbol, side, domain.ErrOrderBookUnavailable)
	}
	return book, nil
}

type scenarioFees struct {
	trading  map[string]float64
	withdraw float64
}

func (s *scenarioFees) ApplyTradingFees(exchange string, amount float64) (float64, error) {
	fee, ok := s.trading[exchange]
	if !ok {
		return 0, fmt.Errorf("scenario: %s: %w", exchange, domain.ErrUnknownExchange)
	}
	return amount * (1 - fee), nil
}

func (s *scenarioFees) ApplyWithdrawFees(ctx context.Context, exchange string, c domain.Currency, amount float64) (float64, error) {
	return amount - s.withdraw, nil
}

// TestScanPipelineEndToEnd walks one full pass by hand: a populated market
// graph, candidate discovery from btc on binance, then refinement against
// deep order books. With deep books the refined ratio must reproduce the
// top-of-book estimate exactly.
func TestScanPipelineEndToEnd(t *testing.T) {
	g := graph.New()
	g.UpsertExchange(domain.Exchange{Name: "binance", TradingFees: 0.001})
	g.UpsertExchange(domain.Exchange{Name: "bittrex", TradingFees: 0.0025})
	g.UpsertMarkets([]domain.Market{
		{Exchange: "binance", Base: "eth", Quote: "btc", BidPrice: 0.049, AskPrice: 0.05},
		{Exchange: "bittrex", Base: "eth", Quote: "btc", BidPrice: 0.052, AskPrice: 0.053},
	})
	g.UpsertWallets([]domain.WalletStatus{
		{Exchange: "binance", Currency: "eth", WithdrawEnabled: true, WithdrawFee: 0.001},
		{Exchange: "bittrex", Currency: "eth", DepositEnabled: true},
	})

	eng := discovery.New(g, testLogger())
	cands, err := eng.Discover(context.Background(), "binance", "btc")
	require.NoError(t, err)
	require.Len(t, cands, 1)

	c := cands[0]
	assert.Equal(t, "binance", c.SrcExchange)
	assert.Equal(t, "eth/btc", c.SrcMarket)
	assert.Equal(t, domain.PriceAsk, c.SrcPriceType)
	assert.Equal(t, domain.Currency("eth"), c.TmpCurrency)
	assert.Equal(t, "bittrex", c.DstExchange)
	assert.Equal(t, "eth/btc", c.DstMarket)
	assert.Equal(t, domain.PriceBid, c.DstPriceType)

	// Buy eth with btc at 0.05, pay the taker fee, withdraw a flat 0.001 eth,
	// sell eth back into btc at 0.052 on the destination, pay its taker fee.
	want := (1/0.05*0.999 - 0.001) * 0.052 * 0.9975
	assert.InDelta(t, want, c.Ratio, 1e-9)

	books := &scenarioBooks{books: map[string]domain.OrderBook{
		"binance:eth/btc:ask": {{Price: 0.05, Amount: 1e9}},
		"bittrex:eth/btc:bid": {{Price: 0.052, Amount: 1e9}},
	}}
	fees := &scenarioFees{
		trading:  map[string]float64{"binance": 0.001, "bittrex": 0.0025},
		withdraw: 0.001,
	}

	refiner := simulator.NewRefiner(books, fees, testLogger())
	sel := selector.New(refiner, 10, 2, time.Second, testLogger())

	best, found, err := sel.SelectBest(context.Background(), cands, 1)
	require.NoError(t, err)
	require.True(t, found)

	assert.Equal(t, c.ID, best.ID)
	assert.Equal(t, 1.0, best.Estimate.InputAmount)
	assert.InDelta(t, want, best.Estimate.RefinedRatio, 1e-9)
	assert.InDelta(t, want, best.Estimate.DstTradeOutput, 1e-6)
}
