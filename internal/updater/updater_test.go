package updater

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehupin/marcobot/internal/domain"
	"github.com/ehupin/marcobot/internal/exchange"
	"github.com/ehupin/marcobot/internal/graph"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeAdapter is a canned-response venue for exercising the refresh flow.
type fakeAdapter struct {
	name    string
	fees    float64
	markets []domain.Market
	wallets []domain.WalletStatus
	err     error
}

func (f *fakeAdapter) Name() string         { return f.name }
func (f *fakeAdapter) TradingFees() float64 { return f.fees }

func (f *fakeAdapter) FetchMarkets(ctx context.Context) ([]domain.Market, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.markets, nil
}

func (f *fakeAdapter) FetchCurrencies(ctx context.Context) ([]domain.WalletStatus, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.wallets, nil
}

func (f *fakeAdapter) GetOrderBook(ctx context.Context, symbol string, side domain.PriceType) (domain.OrderBook, error) {
	return nil, domain.ErrOrderBookUnavailable
}

func (f *fakeAdapter) ApplyTradingFees(amount float64) float64 { return amount * (1 - f.fees) }

func (f *fakeAdapter) ApplyWithdrawFees(ctx context.Context, c domain.Currency, amount float64) (float64, error) {
	return amount, nil
}

var _ exchange.Adapter = (*fakeAdapter)(nil)

// failingMarketStore always errors, to prove persistence stays best-effort.
type failingMarketStore struct{}

func (failingMarketStore) UpsertMarkets(ctx context.Context, markets []domain.Market) error {
	return errors.New("db down")
}

func (failingMarketStore) UpsertWallets(ctx context.Context, wallets []domain.WalletStatus) error {
	return errors.New("db down")
}

func goodAdapter() *fakeAdapter {
	return &fakeAdapter{
		name: "binance",
		fees: 0.001,
		markets: []domain.Market{
			{Exchange: "binance", Base: "eth", Quote: "btc", BidPrice: 0.049, AskPrice: 0.05},
		},
		wallets: []domain.WalletStatus{
			{Exchange: "binance", Currency: "eth", WithdrawEnabled: true, WithdrawFee: 0.001},
		},
	}
}

func TestRefreshAllPopulatesGraph(t *testing.T) {
	g := graph.New()
	u := New(exchange.NewRegistry(goodAdapter()), g, nil, testLogger())

	require.NoError(t, u.RefreshAll(context.Background()))

	snap, err := g.Snapshot(context.Background())
	require.NoError(t, err)

	x, ok := snap.Exchange("binance")
	require.True(t, ok)
	assert.Equal(t, 0.001, x.TradingFees)
	assert.Len(t, snap.MarketsWith("binance", "btc"), 1)

	w, ok := snap.Wallet("binance", "eth")
	require.True(t, ok)
	assert.True(t, w.WithdrawEnabled)
}

func TestRefreshAllSkipsFailedVenue(t *testing.T) {
	g := graph.New()
	broken := &fakeAdapter{name: "bittrex", err: errors.New("api down")}
	u := New(exchange.NewRegistry(goodAdapter(), broken), g, nil, testLogger())

	require.NoError(t, u.RefreshAll(context.Background()))

	snap, err := g.Snapshot(context.Background())
	require.NoError(t, err)
	_, ok := snap.Exchange("bittrex")
	assert.False(t, ok)
}

func TestRefreshAllFailsWhenNoVenueRefreshed(t *testing.T) {
	broken := &fakeAdapter{name: "bittrex", err: errors.New("api down")}
	u := New(exchange.NewRegistry(broken), graph.New(), nil, testLogger())

	err := u.RefreshAll(context.Background())
	require.ErrorIs(t, err, domain.ErrGraphUnavailable)
}

func TestRefreshAllToleratesStoreFailure(t *testing.T) {
	g := graph.New()
	u := New(exchange.NewRegistry(goodAdapter()), g, failingMarketStore{}, testLogger())

	require.NoError(t, u.RefreshAll(context.Background()))

	_, err := g.Snapshot(context.Background())
	assert.NoError(t, err)
}
