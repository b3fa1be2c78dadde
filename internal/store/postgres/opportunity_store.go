package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehupin/marcobot/internal/domain"
)

// OpportunityStore implements domain.OpportunityStore using PostgreSQL.
type OpportunityStore struct {
	pool *pgxpool.Pool
}

// NewOpportunityStore creates an OpportunityStore backed by the given pool.
func NewOpportunityStore(pool *pgxpool.Pool) *OpportunityStore {
	return &OpportunityStore{pool: pool}
}

const opportunityCols = `id, start_exchange, start_currency,
	src_exchange, src_market, src_price_type, src_price, src_trading_fees,
	tmp_currency, withdrawal_fee,
	dst_exchange, dst_market, dst_price_type, dst_price, dst_trading_fees,
	ratio, input_amount, src_trade_output, withdraw_output, dst_trade_output,
	refined_ratio, detected_at, executed, executed_at`

// Insert stores a selected opportunity.
func (s *OpportunityStore) Insert(ctx context.Context, opp domain.Opportunity) error {
	const query = `
		INSERT INTO opportunities (` + opportunityCols + `
		) VALUES (
			$1, $2, $3,
			$4, $5, $6, $7, $8,
			$9, $10,
			$11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20,
			$21, $22, $23, $24
		)`

	c, e := opp.Candidate, opp.Estimate
	_, err := s.pool.Exec(ctx, query,
		opp.ID, c.StartExchange, string(c.StartCurrency),
		c.SrcExchange, c.SrcMarket, string(c.SrcPriceType), c.SrcPrice, c.SrcTradingFees,
		string(c.TmpCurrency), c.WithdrawalFee,
		c.DstExchange, c.DstMarket, string(c.DstPriceType), c.DstPrice, c.DstTradingFees,
		c.Ratio, e.InputAmount, e.SrcTradeOutput, e.WithdrawOutput, e.DstTradeOutput,
		e.RefinedRatio, opp.DetectedAt, opp.Executed, opp.ExecutedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert opportunity %s: %w", opp.ID, err)
	}
	return nil
}

// MarkExecuted sets the executed flag and timestamp for an opportunity.
func (s *OpportunityStore) MarkExecuted(ctx context.Context, id string) error {
	const query = `
		UPDATE opportunities SET
			executed    = TRUE,
			executed_at = NOW()
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("postgres: mark opportunity executed %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListRecent returns the most recent opportunities, newest first.
func (s *OpportunityStore) ListRecent(ctx context.Context, limit int) ([]domain.Opportunity, error) {
	query := `SELECT ` + opportunityCols + ` FROM opportunities ORDER BY detected_at DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}
	return s.list(ctx, query, args...)
}

// ListBefore returns every opportunity detected before the given time,
// oldest first, for archival.
func (s *OpportunityStore) ListBefore(ctx context.Context, before time.Time) ([]domain.Opportunity, error) {
	query := `SELECT ` + opportunityCols + ` FROM opportunities
		WHERE detected_at < $1 ORDER BY detected_at ASC`
	return s.list(ctx, query, before)
}

// DeleteBefore removes opportunities detected before the given time and
// returns the number of rows deleted.
func (s *OpportunityStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM opportunities WHERE detected_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete opportunities before %s: %w", before, err)
	}
	return tag.RowsAffected(), nil
}

func (s *OpportunityStore) list(ctx context.Context, query string, args ...any) ([]domain.Opportunity, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list opportunities: %w", err)
	}
	defer rows.Close()

	var opps []domain.Opportunity
	for rows.Next() {
		var (
			opp        domain.Opportunity
			startCur   string
			srcPT      string
			tmpCur     string
			dstPT      string
			executedAt *time.Time
		)
		c, e := &opp.Candidate, &opp.Estimate
		if err := rows.Scan(
			&opp.ID, &c.StartExchange, &startCur,
			&c.SrcExchange, &c.SrcMarket, &srcPT, &c.SrcPrice, &c.SrcTradingFees,
			&tmpCur, &c.WithdrawalFee,
			&c.DstExchange, &c.DstMarket, &dstPT, &c.DstPrice, &c.DstTradingFees,
			&c.Ratio, &e.InputAmount, &e.SrcTradeOutput, &e.WithdrawOutput, &e.DstTradeOutput,
			&e.RefinedRatio, &opp.DetectedAt, &opp.Executed, &executedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan opportunity: %w", err)
		}
		c.ID = opp.ID
		c.StartCurrency = domain.Currency(startCur)
		c.SrcPriceType = domain.PriceType(srcPT)
		c.TmpCurrency = domain.Currency(tmpCur)
		c.DstPriceType = domain.PriceType(dstPT)
		c.DetectedAt = opp.DetectedAt
		opp.ExecutedAt = executedAt
		opps = append(opps, opp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate opportunities: %w", err)
	}
	return opps, nil
}

// Compile-time interface check.
var _ domain.OpportunityStore = (*OpportunityStore)(nil)
