package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/evetabi/settlement/internal/domain"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// MarketRepository handles all database operations for Markets.
type MarketRepository struct {
	db *sqlx.DB
}

// NewMarketRepository creates a new MarketRepository.
func NewMarketRepository(db *sqlx.DB) *MarketRepository {
	return &MarketRepository{db: db}
}

// Create inserts a new market row within the given transaction, so market
// and pool wallet creation commit together.
func (r *MarketRepository) Create(ctx context.Context, tx *sqlx.Tx, m *domain.Market) error {
	query := `
		INSERT INTO markets
			(id, creator, market_type, outcome_names, outcome_count, quantities,
			 curve, liquidity_lamports, status, resolved, cancelled,
			 max_position_bps, max_trade_shares, cooldown_seconds,
			 creator_fee_escrow, settled_pool, dispute_count,
			 resolution_time, created_at, updated_at)
		VALUES
			(:id, :creator, :market_type, :outcome_names, :outcome_count, :quantities,
			 :curve, :liquidity_lamports, :status, :resolved, :cancelled,
			 :max_position_bps, :max_trade_shares, :cooldown_seconds,
			 :creator_fee_escrow, :settled_pool, :dispute_count,
			 :resolution_time, :created_at, :updated_at)`
	_, err := tx.NamedExecContext(ctx, query, m)
	if err != nil {
		return fmt.Errorf("market_repo.Create: %w", err)
	}
	return nil
}

// GetByID fetches a market by its primary key.
func (r *MarketRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Market, error) {
	var m domain.Market
	err := r.db.GetContext(ctx, &m, `SELECT * FROM markets WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrMarketNotFound
		}
		return nil, fmt.Errorf("market_repo.GetByID: %w", err)
	}
	return &m, nil
}

// GetForUpdate locks a market row inside a transaction. Every mutation goes
// through this lock, which serialises trades, disputes and settlement per
// market.
func (r *MarketRepository) GetForUpdate(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*domain.Market, error) {
	var m domain.Market
	err := tx.GetContext(ctx, &m, `SELECT * FROM markets WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrMarketNotFound
		}
		return nil, fmt.Errorf("market_repo.GetForUpdate: %w", err)
	}
	return &m, nil
}

// Save writes back every mutable field of a market within the transaction
// that holds its row lock.
func (r *MarketRepository) Save(ctx context.Context, tx *sqlx.Tx, m *domain.Market) error {
	query := `
		UPDATE markets SET
			quantities         = :quantities,
			status             = :status,
			resolved           = :resolved,
			cancelled          = :cancelled,
			winning_outcome    = :winning_outcome,
			proposed_outcome   = :proposed_outcome,
			proposed_at        = :proposed_at,
			contest_deadline   = :contest_deadline,
			dispute_count      = :dispute_count,
			creator_fee_escrow = :creator_fee_escrow,
			settled_pool       = :settled_pool,
			updated_at         = :updated_at
		WHERE id = :id`
	res, err := tx.NamedExecContext(ctx, query, m)
	if err != nil {
		return fmt.Errorf("market_repo.Save: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrMarketNotFound
	}
	return nil
}

// List returns a paginated slice of markets filtered by optional status.
// status="" returns all statuses.
// Returns (markets, totalCount, error).
func (r *MarketRepository) List(ctx context.Context, limit, offset int, status string) ([]*domain.Market, int, error) {
	var markets []*domain.Market
	var total int

	if status != "" {
		if err := r.db.GetContext(ctx, &total,
			`SELECT COUNT(*) FROM markets WHERE status = $1`, status); err != nil {
			return nil, 0, fmt.Errorf("market_repo.List count: %w", err)
		}
		if err := r.db.SelectContext(ctx, &markets,
			`SELECT * FROM markets WHERE status = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
			status, limit, offset); err != nil {
			return nil, 0, fmt.Errorf("market_repo.List select: %w", err)
		}
	} else {
		if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM markets`); err != nil {
			return nil, 0, fmt.Errorf("market_repo.List count: %w", err)
		}
		if err := r.db.SelectContext(ctx, &markets,
			`SELECT * FROM markets ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
			limit, offset); err != nil {
			return nil, 0, fmt.Errorf("market_repo.List select: %w", err)
		}
	}
	return markets, total, nil
}

// ListOpen returns open markets ordered by resolution time, for the summary
// broadcast loop.
func (r *MarketRepository) ListOpen(ctx context.Context) ([]*domain.Market, error) {
	var markets []*domain.Market
	err := r.db.SelectContext(ctx, &markets,
		`SELECT * FROM markets WHERE status = 'open' ORDER BY resolution_time ASC`)
	if err != nil {
		return nil, fmt.Errorf("market_repo.ListOpen: %w", err)
	}
	return markets, nil
}

// ListDisputed returns proposed markets with at least one dispute whose
// contest deadline has passed: the back-office adjudication queue.
func (r *MarketRepository) ListDisputed(ctx context.Context, now time.Time) ([]*domain.Market, error) {
	var markets []*domain.Market
	err := r.db.SelectContext(ctx, &markets,
		`SELECT * FROM markets
		 WHERE status = 'proposed' AND dispute_count > 0 AND contest_deadline <= $1
		 ORDER BY contest_deadline ASC`,
		now)
	if err != nil {
		return nil, fmt.Errorf("market_repo.ListDisputed: %w", err)
	}
	return markets, nil
}

// ListAbandoned returns open markets whose propose window lapsed with no
// proposal: candidates for the permissionless cancel path.
func (r *MarketRepository) ListAbandoned(ctx context.Context, now time.Time, proposeWindow time.Duration) ([]*domain.Market, error) {
	var markets []*domain.Market
	err := r.db.SelectContext(ctx, &markets,
		`SELECT * FROM markets
		 WHERE status = 'open' AND resolution_time + $2::interval <= $1
		 ORDER BY resolution_time ASC`,
		now, proposeWindow.String())
	if err != nil {
		return nil, fmt.Errorf("market_repo.ListAbandoned: %w", err)
	}
	return markets, nil
}

// FinanceReport holds aggregated settlement figures for a date range.
type FinanceReport struct {
	From              time.Time `json:"from"`
	To                time.Time `json:"to"`
	PlatformFees      int64     `json:"platform_fees"`
	CreatorFees       int64     `json:"creator_fees"`
	TradeVolume       int64     `json:"trade_volume"`
	WinningsPaid      int64     `json:"winnings_paid"`
	RefundsPaid       int64     `json:"refunds_paid"`
	MarketsFinalized  int       `json:"markets_finalized"`
	MarketsCancelled  int       `json:"markets_cancelled"`
}

// GetFinanceReport aggregates wallet transactions and market outcomes for a
// date range.
func (r *MarketRepository) GetFinanceReport(ctx context.Context, from, to time.Time) (*FinanceReport, error) {
	type txRow struct {
		PlatformFees int64 `db:"platform_fees"`
		CreatorFees  int64 `db:"creator_fees"`
		TradeVolume  int64 `db:"trade_volume"`
		WinningsPaid int64 `db:"winnings_paid"`
		RefundsPaid  int64 `db:"refunds_paid"`
	}
	var fin txRow
	err := r.db.GetContext(ctx, &fin, `
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE type = 'platform_fee' AND amount > 0), 0) AS platform_fees,
			COALESCE(SUM(amount) FILTER (WHERE type = 'creator_fee'  AND amount > 0), 0) AS creator_fees,
			COALESCE(SUM(ABS(amount)) FILTER (WHERE type IN ('buy','sell_refund')), 0) / 2 AS trade_volume,
			COALESCE(SUM(amount) FILTER (WHERE type = 'winnings' AND amount > 0), 0) AS winnings_paid,
			COALESCE(SUM(amount) FILTER (WHERE type = 'refund'   AND amount > 0), 0) AS refunds_paid
		FROM wallet_transactions
		WHERE created_at >= $1 AND created_at < $2`,
		from, to)
	if err != nil {
		return nil, fmt.Errorf("market_repo.GetFinanceReport transactions: %w", err)
	}

	type mRow struct {
		Finalized int `db:"finalized"`
		Cancelled int `db:"cancelled"`
	}
	var mdata mRow
	err = r.db.GetContext(ctx, &mdata, `
		SELECT
			COUNT(*) FILTER (WHERE status = 'finalized') AS finalized,
			COUNT(*) FILTER (WHERE status = 'cancelled') AS cancelled
		FROM markets
		WHERE updated_at >= $1 AND updated_at < $2
		  AND status IN ('finalized','cancelled')`,
		from, to)
	if err != nil {
		return nil, fmt.Errorf("market_repo.GetFinanceReport markets: %w", err)
	}

	return &FinanceReport{
		From:             from,
		To:               to,
		PlatformFees:     fin.PlatformFees,
		CreatorFees:      fin.CreatorFees,
		TradeVolume:      fin.TradeVolume,
		WinningsPaid:     fin.WinningsPaid,
		RefundsPaid:      fin.RefundsPaid,
		MarketsFinalized: mdata.Finalized,
		MarketsCancelled: mdata.Cancelled,
	}, nil
}
