package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/evetabi/settlement/internal/domain"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// PositionRepository handles all database operations for Positions.
type PositionRepository struct {
	db *sqlx.DB
}

// NewPositionRepository creates a new PositionRepository.
func NewPositionRepository(db *sqlx.DB) *PositionRepository {
	return &PositionRepository{db: db}
}

// Create inserts a new position inside an existing transaction.
func (r *PositionRepository) Create(ctx context.Context, tx *sqlx.Tx, p *domain.Position) error {
	query := `
		INSERT INTO positions
			(id, market_id, user_id, shares, net_cost, claimed, last_trade_at, created_at, updated_at)
		VALUES
			(:id, :market_id, :user_id, :shares, :net_cost, :claimed, :last_trade_at, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, query, p); err != nil {
		return fmt.Errorf("position_repo.Create: %w", err)
	}
	return nil
}

// GetForUpdate locks the user's position in a market inside a transaction.
// Missing rows map to ErrPositionNotFound; trade paths create on demand.
func (r *PositionRepository) GetForUpdate(ctx context.Context, tx *sqlx.Tx, marketID, userID uuid.UUID) (*domain.Position, error) {
	var p domain.Position
	err := tx.GetContext(ctx, &p,
		`SELECT * FROM positions WHERE market_id = $1 AND user_id = $2 FOR UPDATE`,
		marketID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPositionNotFound
		}
		return nil, fmt.Errorf("position_repo.GetForUpdate: %w", err)
	}
	return &p, nil
}

// Get fetches the user's position in a market without locking.
func (r *PositionRepository) Get(ctx context.Context, marketID, userID uuid.UUID) (*domain.Position, error) {
	var p domain.Position
	err := r.db.GetContext(ctx, &p,
		`SELECT * FROM positions WHERE market_id = $1 AND user_id = $2`,
		marketID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPositionNotFound
		}
		return nil, fmt.Errorf("position_repo.Get: %w", err)
	}
	return &p, nil
}

// Save writes back the mutable fields of a position within the transaction
// that holds its row lock.
func (r *PositionRepository) Save(ctx context.Context, tx *sqlx.Tx, p *domain.Position) error {
	query := `
		UPDATE positions SET
			shares        = :shares,
			net_cost      = :net_cost,
			claimed       = :claimed,
			last_trade_at = :last_trade_at,
			updated_at    = :updated_at
		WHERE id = :id`
	res, err := tx.NamedExecContext(ctx, query, p)
	if err != nil {
		return fmt.Errorf("position_repo.Save: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrPositionNotFound
	}
	return nil
}

// GetByUserID returns a user's positions across markets, paginated.
func (r *PositionRepository) GetByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Position, error) {
	var positions []*domain.Position
	err := r.db.SelectContext(ctx, &positions,
		`SELECT * FROM positions WHERE user_id = $1 ORDER BY updated_at DESC LIMIT $2 OFFSET $3`,
		userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("position_repo.GetByUserID: %w", err)
	}
	return positions, nil
}

// GetByMarket returns all positions in a market, paginated.
func (r *PositionRepository) GetByMarket(ctx context.Context, marketID uuid.UUID, limit, offset int) ([]*domain.Position, error) {
	var positions []*domain.Position
	err := r.db.SelectContext(ctx, &positions,
		`SELECT * FROM positions WHERE market_id = $1 ORDER BY created_at ASC LIMIT $2 OFFSET $3`,
		marketID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("position_repo.GetByMarket: %w", err)
	}
	return positions, nil
}

// CountUnclaimed returns the number of unclaimed positions in a market, used
// by the back-office settlement progress view.
func (r *PositionRepository) CountUnclaimed(ctx context.Context, marketID uuid.UUID) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM positions WHERE market_id = $1 AND claimed = false`, marketID)
	if err != nil {
		return 0, fmt.Errorf("position_repo.CountUnclaimed: %w", err)
	}
	return n, nil
}
