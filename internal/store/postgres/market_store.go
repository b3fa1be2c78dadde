package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehupin/marcobot/internal/domain"
)

// MarketStore implements domain.MarketStore using PostgreSQL.
type MarketStore struct {
	pool *pgxpool.Pool
}

// NewMarketStore creates a MarketStore backed by the given connection pool.
func NewMarketStore(pool *pgxpool.Pool) *MarketStore {
	return &MarketStore{pool: pool}
}

// UpsertMarkets writes a market snapshot, replacing stale rows in one batch.
func (s *MarketStore) UpsertMarkets(ctx context.Context, markets []domain.Market) error {
	if len(markets) == 0 {
		return nil
	}

	const query = `
		INSERT INTO markets (
			exchange, base_currency, quote_currency,
			bid_price, ask_price, base_volume, quote_volume,
			min_trade_amount, min_trade_step, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (exchange, base_currency, quote_currency) DO UPDATE SET
			bid_price        = EXCLUDED.bid_price,
			ask_price        = EXCLUDED.ask_price,
			base_volume      = EXCLUDED.base_volume,
			quote_volume     = EXCLUDED.quote_volume,
			min_trade_amount = EXCLUDED.min_trade_amount,
			min_trade_step   = EXCLUDED.min_trade_step,
			updated_at       = EXCLUDED.updated_at`

	batch := &pgx.Batch{}
	for _, m := range markets {
		batch.Queue(query,
			m.Exchange, string(m.Base), string(m.Quote),
			m.BidPrice, m.AskPrice, m.BaseVolume, m.QuoteVolume,
			m.MinTradeAmount, m.MinTradeStep, m.UpdatedAt,
		)
	}
	if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("postgres: upsert %d markets: %w", len(markets), err)
	}
	return nil
}

// UpsertWallets writes a wallet facts snapshot.
func (s *MarketStore) UpsertWallets(ctx context.Context, wallets []domain.WalletStatus) error {
	if len(wallets) == 0 {
		return nil
	}

	const query = `
		INSERT INTO exchange_currencies (
			exchange, currency,
			withdraw_enabled, withdraw_min, withdraw_fee, deposit_enabled,
			updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (exchange, currency) DO UPDATE SET
			withdraw_enabled = EXCLUDED.withdraw_enabled,
			withdraw_min     = EXCLUDED.withdraw_min,
			withdraw_fee     = EXCLUDED.withdraw_fee,
			deposit_enabled  = EXCLUDED.deposit_enabled,
			updated_at       = NOW()`

	batch := &pgx.Batch{}
	for _, w := range wallets {
		batch.Queue(query,
			w.Exchange, string(w.Currency),
			w.WithdrawEnabled, w.WithdrawMin, w.WithdrawFee, w.DepositEnabled,
		)
	}
	if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("postgres: upsert %d wallets: %w", len(wallets), err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.MarketStore = (*MarketStore)(nil)
