package repository

import (
	"context"
	"fmt"

	"github.com/evetabi/settlement/internal/domain"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// EventRepository appends and reads the per-market audit event stream.
type EventRepository struct {
	db *sqlx.DB
}

// NewEventRepository creates a new EventRepository.
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

// Append inserts an event inside an existing transaction, so the event
// commits atomically with the state change it records.
func (r *EventRepository) Append(ctx context.Context, tx *sqlx.Tx, e *domain.Event) error {
	query := `
		INSERT INTO market_events
			(id, market_id, type, actor, payload, created_at)
		VALUES
			(:id, :market_id, :type, :actor, :payload, :created_at)`
	if _, err := tx.NamedExecContext(ctx, query, e); err != nil {
		return fmt.Errorf("event_repo.Append: %w", err)
	}
	return nil
}

// GetByMarket returns a market's events in chronological order, paginated.
func (r *EventRepository) GetByMarket(ctx context.Context, marketID uuid.UUID, limit, offset int) ([]*domain.Event, error) {
	var events []*domain.Event
	err := r.db.SelectContext(ctx, &events,
		`SELECT * FROM market_events WHERE market_id = $1 ORDER BY created_at ASC LIMIT $2 OFFSET $3`,
		marketID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("event_repo.GetByMarket: %w", err)
	}
	return events, nil
}

// GetRecent returns the newest events across all markets, for the
// back-office activity feed.
func (r *EventRepository) GetRecent(ctx context.Context, limit int) ([]*domain.Event, error) {
	var events []*domain.Event
	err := r.db.SelectContext(ctx, &events,
		`SELECT * FROM market_events ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("event_repo.GetRecent: %w", err)
	}
	return events, nil
}
