package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ──────────────────────────────────────────────────────────────────────────────
// Events — append-only audit rows, one per mutating operation
// ──────────────────────────────────────────────────────────────────────────────

// EventType identifies the operation an event row records.
type EventType string

const (
	EventMarketCreated       EventType = "market_created"
	EventSharesBought        EventType = "shares_bought"
	EventSharesSold          EventType = "shares_sold"
	EventResolutionProposed  EventType = "resolution_proposed"
	EventResolutionDisputed  EventType = "resolution_disputed"
	EventMarketFinalized     EventType = "market_finalized"
	EventMarketCancelled     EventType = "market_cancelled"
	EventWinningsClaimed     EventType = "winnings_claimed"
	EventRefundClaimed       EventType = "refund_claimed"
	EventCreatorFeesClaimed  EventType = "creator_fees_claimed"
)

// CancelReason distinguishes the two paths into StatusCancelled.
type CancelReason string

const (
	CancelNoProposalReason CancelReason = "no_proposal"
	CancelAdminReason      CancelReason = "admin"
)

// Event is a persisted audit record. Payload carries the type-specific
// fields as JSONB; constructors below keep the shapes consistent.
type Event struct {
	ID       uuid.UUID       `json:"id"        db:"id"`
	MarketID uuid.UUID       `json:"market_id" db:"market_id"`
	Type     EventType       `json:"type"      db:"type"`
	Actor    uuid.UUID       `json:"actor"     db:"actor"`
	Payload  json.RawMessage `json:"payload"   db:"payload"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// TradePayload is the payload of shares_bought / shares_sold events.
type TradePayload struct {
	Outcome     int   `json:"outcome"`
	Shares      int64 `json:"shares"`
	GrossAmount int64 `json:"gross_amount"`
	PlatformFee int64 `json:"platform_fee"`
	CreatorFee  int64 `json:"creator_fee"`
	NetAmount   int64 `json:"net_amount"`
	Supply      int64 `json:"supply"` // post-trade supply on the outcome
}

// ResolutionPayload is the payload of proposal / finalize events.
type ResolutionPayload struct {
	Outcome         int        `json:"outcome"`
	ContestDeadline *time.Time `json:"contest_deadline,omitempty"`
	DisputeCount    int        `json:"dispute_count"`
}

// CancelPayload is the payload of market_cancelled events.
type CancelPayload struct {
	Reason CancelReason `json:"reason"`
}

// ClaimPayload is the payload of claim events.
type ClaimPayload struct {
	Amount  int64 `json:"amount"`
	Outcome int   `json:"outcome,omitempty"`
	Shares  int64 `json:"shares,omitempty"`
}

// NewEvent builds an event row, marshalling the payload. Marshalling only
// fails on unsupported types, so constructors treat it as programmer error.
func NewEvent(marketID, actor uuid.UUID, typ EventType, payload any, now time.Time) (*Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Event{
		ID:        uuid.New(),
		MarketID:  marketID,
		Type:      typ,
		Actor:     actor,
		Payload:   raw,
		CreatedAt: now,
	}, nil
}
