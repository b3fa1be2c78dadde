package discovery

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehupin/marcobot/internal/domain"
	"github.com/ehupin/marcobot/internal/graph"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// twoVenueGraph builds a profitable btc -> eth -> btc cycle: eth is bought
// at the ask on binance, withdrawn, and sold into the bid on bittrex.
func twoVenueGraph() *graph.Store {
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
	return g
}

func TestDiscoverQuoteRoleStartUsesAsk(t *testing.T) {
	e := New(twoVenueGraph(), testLogger())

	cands, err := e.Discover(context.Background(), "binance", "btc")
	require.NoError(t, err)
	require.Len(t, cands, 1)

	c := cands[0]
	assert.Equal(t, "binance", c.SrcExchange)
	assert.Equal(t, "eth/btc", c.SrcMarket)
	assert.Equal(t, domain.PriceAsk, c.SrcPriceType)
	assert.Equal(t, 0.05, c.SrcPrice)
	assert.Equal(t, domain.Currency("eth"), c.TmpCurrency)
	assert.Equal(t, "bittrex", c.DstExchange)
	assert.Equal(t, domain.PriceBid, c.DstPriceType)
	assert.Equal(t, 0.052, c.DstPrice)

	// Spending btc at the ask yields 1/0.05 eth per btc; fees and the
	// withdrawal cost come off before the bid-side sale on bittrex.
	want := (1/0.05*0.999 - 0.001) * 0.052 * 0.9975
	assert.InDelta(t, want, c.Ratio, 1e-12)
	assert.NotEmpty(t, c.ID)
}

func TestDiscoverBaseRoleStartUsesBid(t *testing.T) {
	g := graph.New()
	g.UpsertExchange(domain.Exchange{Name: "binance", TradingFees: 0.001})
	g.UpsertExchange(domain.Exchange{Name: "bittrex", TradingFees: 0.0025})
	g.UpsertMarkets([]domain.Market{
		{Exchange: "binance", Base: "btc", Quote: "usdt", BidPrice: 40000, AskPrice: 40100},
		{Exchange: "bittrex", Base: "btc", Quote: "usdt", BidPrice: 38900, AskPrice: 39000},
	})
	g.UpsertWallets([]domain.WalletStatus{
		{Exchange: "binance", Currency: "usdt", WithdrawEnabled: true, WithdrawFee: 1},
		{Exchange: "bittrex", Currency: "usdt", DepositEnabled: true},
	})

	e := New(g, testLogger())
	cands, err := e.Discover(context.Background(), "binance", "btc")
	require.NoError(t, err)
	require.Len(t, cands, 1)

	c := cands[0]
	assert.Equal(t, domain.PriceBid, c.SrcPriceType)
	assert.Equal(t, domain.Currency("usdt"), c.TmpCurrency)
	assert.Equal(t, domain.PriceAsk, c.DstPriceType)

	want := (40000*0.999 - 1) * (1 / 39000.0) * 0.9975
	assert.InDelta(t, want, c.Ratio, 1e-12)
}

func TestDiscoverExcludesBreakEvenAndWorse(t *testing.T) {
	g := graph.New()
	g.UpsertExchange(domain.Exchange{Name: "binance", TradingFees: 0})
	g.UpsertExchange(domain.Exchange{Name: "bittrex", TradingFees: 0})
	// Identical prices and zero fees make the round trip exactly break even.
	g.UpsertMarkets([]domain.Market{
		{Exchange: "binance", Base: "eth", Quote: "btc", BidPrice: 0.05, AskPrice: 0.05},
		{Exchange: "bittrex", Base: "eth", Quote: "btc", BidPrice: 0.05, AskPrice: 0.05},
	})
	g.UpsertWallets([]domain.WalletStatus{
		{Exchange: "binance", Currency: "eth", WithdrawEnabled: true, WithdrawFee: 0},
		{Exchange: "bittrex", Currency: "eth", DepositEnabled: true},
	})

	e := New(g, testLogger())
	cands, err := e.Discover(context.Background(), "binance", "btc")
	require.NoError(t, err)
	assert.Empty(t, cands)
}

func TestDiscoverSkipsWithdrawDisabled(t *testing.T) {
	g := twoVenueGraph()
	g.UpsertWallets([]domain.WalletStatus{
		{Exchange: "binance", Currency: "eth", WithdrawEnabled: false, WithdrawFee: 0.001},
	})

	e := New(g, testLogger())
	cands, err := e.Discover(context.Background(), "binance", "btc")
	require.NoError(t, err)
	assert.Empty(t, cands)
}

func TestDiscoverSkipsMissingWallet(t *testing.T) {
	g := graph.New()
	g.UpsertExchange(domain.Exchange{Name: "binance", TradingFees: 0.001})
	g.UpsertExchange(domain.Exchange{Name: "bittrex", TradingFees: 0.0025})
	g.UpsertMarkets([]domain.Market{
		{Exchange: "binance", Base: "eth", Quote: "btc", BidPrice: 0.049, AskPrice: 0.05},
		{Exchange: "bittrex", Base: "eth", Quote: "btc", BidPrice: 0.052, AskPrice: 0.053},
	})

	e := New(g, testLogger())
	cands, err := e.Discover(context.Background(), "binance", "btc")
	require.NoError(t, err)
	assert.Empty(t, cands)
}

func TestDiscoverSkipsDepositDisabledDestination(t *testing.T) {
	g := twoVenueGraph()
	g.UpsertWallets([]domain.WalletStatus{
		{Exchange: "bittrex", Currency: "eth", DepositEnabled: false},
	})

	e := New(g, testLogger())
	cands, err := e.Discover(context.Background(), "binance", "btc")
	require.NoError(t, err)
	assert.Empty(t, cands, "a destination that cannot receive eth is no cycle")
}

func TestDiscoverSkipsMissingDestinationWallet(t *testing.T) {
	g := graph.New()
	g.UpsertExchange(domain.Exchange{Name: "binance", TradingFees: 0.001})
	g.UpsertExchange(domain.Exchange{Name: "bittrex", TradingFees: 0.0025})
	g.UpsertMarkets([]domain.Market{
		{Exchange: "binance", Base: "eth", Quote: "btc", BidPrice: 0.049, AskPrice: 0.05},
		{Exchange: "bittrex", Base: "eth", Quote: "btc", BidPrice: 0.052, AskPrice: 0.053},
	})
	// Only the source venue carries wallet facts for eth.
	g.UpsertWallets([]domain.WalletStatus{
		{Exchange: "binance", Currency: "eth", WithdrawEnabled: true, WithdrawFee: 0.001},
	})

	e := New(g, testLogger())
	cands, err := e.Discover(context.Background(), "binance", "btc")
	require.NoError(t, err)
	assert.Empty(t, cands)
}

func TestDiscoverAllowsSameVenueRoleSwappedDestination(t *testing.T) {
	g := twoVenueGraph()
	// A second listing of the pair on the start venue, roles swapped, is a
	// valid destination; only the source market itself is excluded.
	g.UpsertMarkets([]domain.Market{
		{Exchange: "binance", Base: "btc", Quote: "eth", BidPrice: 19.0, AskPrice: 19.2},
	})
	g.UpsertWallets([]domain.WalletStatus{
		{Exchange: "binance", Currency: "eth", WithdrawEnabled: true, WithdrawFee: 0.001, DepositEnabled: true},
	})

	e := New(g, testLogger())
	cands, err := e.Discover(context.Background(), "binance", "btc")
	require.NoError(t, err)

	var sameVenue *domain.Candidate
	for i, c := range cands {
		assert.NotEqual(t, c.SrcMarket, c.DstMarket, "source market must never be its own destination")
		if c.DstExchange == "binance" {
			sameVenue = &cands[i]
		}
	}
	require.NotNil(t, sameVenue)
	assert.Equal(t, "btc/eth", sameVenue.DstMarket)
	// Spending eth on btc/eth consumes the ask side.
	assert.Equal(t, domain.PriceAsk, sameVenue.DstPriceType)
	want := (1/0.05*0.999 - 0.001) * (1 / 19.2) * 0.999
	assert.InDelta(t, want, sameVenue.Ratio, 1e-12)
}

func TestDiscoverSkipsUnusablePrices(t *testing.T) {
	g := twoVenueGraph()
	g.UpsertMarkets([]domain.Market{
		{Exchange: "bittrex", Base: "eth", Quote: "btc", BidPrice: 0, AskPrice: 0},
	})

	e := New(g, testLogger())
	cands, err := e.Discover(context.Background(), "binance", "btc")
	require.NoError(t, err)
	assert.Empty(t, cands)
}

func TestDiscoverSortsBestFirst(t *testing.T) {
	g := twoVenueGraph()
	g.UpsertExchange(domain.Exchange{Name: "kraken", TradingFees: 0.002})
	g.UpsertMarkets([]domain.Market{
		{Exchange: "kraken", Base: "eth", Quote: "btc", BidPrice: 0.055, AskPrice: 0.056},
	})
	g.UpsertWallets([]domain.WalletStatus{
		{Exchange: "kraken", Currency: "eth", DepositEnabled: true},
	})

	e := New(g, testLogger())
	cands, err := e.Discover(context.Background(), "binance", "btc")
	require.NoError(t, err)
	require.Len(t, cands, 2)
	assert.Equal(t, "kraken", cands[0].DstExchange)
	assert.Greater(t, cands[0].Ratio, cands[1].Ratio)
}

func TestDiscoverEmptyGraph(t *testing.T) {
	e := New(graph.New(), testLogger())
	_, err := e.Discover(context.Background(), "binance", "btc")
	require.ErrorIs(t, err, domain.ErrGraphUnavailable)
}

func TestDiscoverUnknownExchange(t *testing.T) {
	e := New(twoVenueGraph(), testLogger())
	_, err := e.Discover(context.Background(), "kraken", "btc")
	require.ErrorIs(t, err, domain.ErrUnknownExchange)
}
