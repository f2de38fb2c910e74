// Package ws holds WebSocket message types and the Hub implementation.
// messages.go defines all message structs broadcast to connected clients.
package ws

import (
	"time"

	"github.com/evetabi/settlement/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MsgType identifies the kind of WS message so clients can switch on it.
type MsgType string

const (
	MsgTypeMarketUpdate    MsgType = "market_update"
	MsgTypeTrade           MsgType = "trade"
	MsgTypeMarketFinalized MsgType = "market_finalized"
	MsgTypeMarketCancelled MsgType = "market_cancelled"
	MsgTypeNewMarket       MsgType = "new_market"
	MsgTypeError           MsgType = "error"
)

// ──────────────────────────────────────────────────────────────────────────────
// MarketUpdateMessage — pushed after trades and on the broadcast tick.
// ──────────────────────────────────────────────────────────────────────────────

// MarketUpdateMessage wraps a market summary with its current prices.
type MarketUpdateMessage struct {
	Type      MsgType               `json:"type"`
	Market    *domain.MarketSummary `json:"market"`
	Timestamp time.Time             `json:"timestamp"`
}

// ──────────────────────────────────────────────────────────────────────────────
// TradeMessage — broadcast after a trade commits so prices refresh for all.
// ──────────────────────────────────────────────────────────────────────────────

// TradeMessage notifies all clients that a market's quantities have changed.
type TradeMessage struct {
	Type      MsgType           `json:"type"`
	MarketID  uuid.UUID         `json:"market_id"`
	Side      string            `json:"side"` // "buy" or "sell"
	Outcome   int               `json:"outcome"`
	Shares    int64             `json:"shares"`
	Prices    []decimal.Decimal `json:"prices"`
	Timestamp time.Time         `json:"timestamp"`
}

// ──────────────────────────────────────────────────────────────────────────────
// Terminal transition messages
// ──────────────────────────────────────────────────────────────────────────────

// MarketFinalizedMessage tells clients which outcome won.
type MarketFinalizedMessage struct {
	Type           MsgType   `json:"type"`
	MarketID       uuid.UUID `json:"market_id"`
	WinningOutcome int       `json:"winning_outcome"`
	SettledPool    int64     `json:"settled_pool"`
	Timestamp      time.Time `json:"timestamp"`
}

// MarketCancelledMessage tells clients a market was voided and refunds opened.
type MarketCancelledMessage struct {
	Type      MsgType   `json:"type"`
	MarketID  uuid.UUID `json:"market_id"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMarketMessage carries the identity of a freshly created market.
type NewMarketMessage struct {
	Type           MsgType   `json:"type"`
	MarketID       uuid.UUID `json:"market_id"`
	OutcomeNames   []string  `json:"outcome_names"`
	ResolutionTime time.Time `json:"resolution_time"`
	Timestamp      time.Time `json:"timestamp"`
}

// ──────────────────────────────────────────────────────────────────────────────
// ErrorMessage — sent to a single client on a non-fatal error.
// ──────────────────────────────────────────────────────────────────────────────

// ErrorMessage is sent directly to one client (not broadcast).
type ErrorMessage struct {
	Type    MsgType `json:"type"`
	Code    string  `json:"code"`
	Message string  `json:"message"`
}
