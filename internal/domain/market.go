// Package domain defines the core business entities of the outcome-market
// settlement engine: markets, user positions, the resolution state machine,
// and the event types emitted by every mutating operation.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/evetabi/settlement/internal/fixedpoint"
	"github.com/evetabi/settlement/internal/pricing"
)

// ──────────────────────────────────────────────────────────────────────────────
// Types & constants
// ──────────────────────────────────────────────────────────────────────────────

// MarketStatus represents the lifecycle state of a market.
type MarketStatus string

const (
	StatusOpen      MarketStatus = "open"      // trading; awaiting resolution time
	StatusProposed  MarketStatus = "proposed"  // outcome proposed, dispute window running
	StatusFinalized MarketStatus = "finalized" // winning outcome locked in; terminal
	StatusCancelled MarketStatus = "cancelled" // voided; positions refundable; terminal
)

// MarketType distinguishes two-outcome markets from multi-outcome ones.
type MarketType string

const (
	TypeBinary MarketType = "binary"
	TypeMulti  MarketType = "multi"
)

// IsValid returns true for a recognised market type.
func (t MarketType) IsValid() bool {
	return t == TypeBinary || t == TypeMulti
}

// Structural limits.
const (
	MaxOutcomes = 10
	MinOutcomes = 2
	MaxNameLen  = 40
)

// Fee split, in basis points of the trade amount.
const (
	PlatformFeeBps int64 = 100 // 1%
	CreatorFeeBps  int64 = 200 // 2%
)

// Default resolution windows. The service layer may override them from
// configuration; these are the values every deployment has shipped with.
const (
	DefaultProposeWindow = 24 * time.Hour // creator's window to propose after end
	DefaultDisputeWindow = 4 * time.Hour  // contest window after a proposal
)

// Anti-manipulation bounds, fixed at market creation.
const (
	MaxTradeSharesHard   int64 = 5_000_000
	MinPositionBps             = 500
	MaxPositionBps             = 9_000
	PositionCapDisabled        = 10_000
	MaxCooldownSeconds   int64 = 120
)

// ──────────────────────────────────────────────────────────────────────────────
// Market
// ──────────────────────────────────────────────────────────────────────────────

// Market is a single tradable instrument: a set of mutually exclusive
// outcomes priced by a cost-function market maker, settled through a
// propose→dispute→finalize flow.
type Market struct {
	ID      uuid.UUID `json:"id"      db:"id"`
	Creator uuid.UUID `json:"creator" db:"creator"`

	MarketType   MarketType     `json:"market_type"   db:"market_type"`
	OutcomeNames pq.StringArray `json:"outcome_names" db:"outcome_names"`
	OutcomeCount int            `json:"outcome_count" db:"outcome_count"`

	// Quantities is the pricing state vector: cumulative shares issued per
	// outcome. Only the first OutcomeCount entries may be non-zero.
	Quantities pq.Int64Array `json:"quantities" db:"quantities"`

	Curve             pricing.Curve `json:"curve"              db:"curve"`
	LiquidityLamports int64         `json:"liquidity_lamports" db:"liquidity_lamports"`

	Status    MarketStatus `json:"status"    db:"status"`
	Resolved  bool         `json:"resolved"  db:"resolved"`
	Cancelled bool         `json:"cancelled" db:"cancelled"`

	WinningOutcome  *int16     `json:"winning_outcome"  db:"winning_outcome"`
	ProposedOutcome *int16     `json:"proposed_outcome" db:"proposed_outcome"`
	ProposedAt      *time.Time `json:"proposed_at"      db:"proposed_at"`
	ContestDeadline *time.Time `json:"contest_deadline" db:"contest_deadline"`
	DisputeCount    int        `json:"dispute_count"    db:"dispute_count"`

	MaxPositionBps  int   `json:"max_position_bps" db:"max_position_bps"`
	MaxTradeShares  int64 `json:"max_trade_shares" db:"max_trade_shares"`
	CooldownSeconds int64 `json:"cooldown_seconds" db:"cooldown_seconds"`

	// CreatorFeeEscrow accumulates the creator's fee share until claimed
	// after finalization. Escrowing rather than paying out per trade keeps
	// pool solvency accounting independent of fee withdrawals.
	CreatorFeeEscrow int64 `json:"creator_fee_escrow" db:"creator_fee_escrow"`

	// SettledPool snapshots the distributable pool (pool balance minus the
	// creator escrow) at finalization, so winnings payouts do not depend on
	// claim order.
	SettledPool int64 `json:"settled_pool" db:"settled_pool"`

	ResolutionTime time.Time `json:"resolution_time" db:"resolution_time"`
	CreatedAt      time.Time `json:"created_at"      db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"      db:"updated_at"`
}

// QuantityVector returns the active slice of the share-supply vector in the
// unsigned form the pricing models work on.
func (m *Market) QuantityVector() []uint64 {
	q := make([]uint64, m.OutcomeCount)
	for i := 0; i < m.OutcomeCount && i < len(m.Quantities); i++ {
		q[i] = uint64(m.Quantities[i])
	}
	return q
}

// TotalSupply returns the total shares issued across all outcomes.
func (m *Market) TotalSupply() int64 {
	var total int64
	for i := 0; i < m.OutcomeCount && i < len(m.Quantities); i++ {
		total += m.Quantities[i]
	}
	return total
}

// PricingModel builds the cost model matching this market's configuration.
func (m *Market) PricingModel() (pricing.Model, error) {
	return pricing.ForCurve(m.Curve, uint64(m.LiquidityLamports))
}

// IsOpen returns true while the market accepts trades and proposals.
func (m *Market) IsOpen() bool { return m.Status == StatusOpen }

// IsTerminal returns true once no further transition is possible.
func (m *Market) IsTerminal() bool {
	return m.Status == StatusFinalized || m.Status == StatusCancelled
}

// CheckOutcome validates an outcome index against this market.
func (m *Market) CheckOutcome(idx int) error {
	if idx < 0 || idx >= m.OutcomeCount {
		return ErrInvalidOutcomeIndex
	}
	return nil
}

// guard enforces the shared pre-condition of every transition: the market is
// neither resolved nor cancelled and sits in the expected state.
func (m *Market) guard(expected MarketStatus) error {
	if m.Resolved {
		return ErrMarketResolved
	}
	if m.Cancelled {
		return ErrInvalidState
	}
	if m.Status != expected {
		return ErrInvalidState
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Resolution state machine: Open → Proposed → {Finalized | Cancelled}
// ──────────────────────────────────────────────────────────────────────────────

// ProposeResolution moves an ended market to Proposed. Only the creator may
// propose (the caller verifies identity); allowed from resolution time until
// the propose window closes.
func (m *Market) ProposeResolution(outcome int, now time.Time, proposeWindow, disputeWindow time.Duration) error {
	if err := m.guard(StatusOpen); err != nil {
		return err
	}
	if now.Before(m.ResolutionTime) {
		return ErrMarketNotEnded
	}
	if now.After(m.ResolutionTime.Add(proposeWindow)) {
		return ErrTooLateToPropose
	}
	if err := m.CheckOutcome(outcome); err != nil {
		return err
	}

	out := int16(outcome)
	deadline := now.Add(disputeWindow)

	m.Status = StatusProposed
	m.ProposedOutcome = &out
	m.ProposedAt = &now
	m.ContestDeadline = &deadline
	m.DisputeCount = 0
	return nil
}

// Dispute flags a pending proposal. Any participant may call it while the
// contest window is open; it never changes the status, only forces the
// admin-adjudicated path once the deadline passes.
func (m *Market) Dispute(now time.Time) error {
	if err := m.guard(StatusProposed); err != nil {
		return err
	}
	if m.ContestDeadline == nil {
		return ErrInvalidState
	}
	if !now.Before(*m.ContestDeadline) {
		return ErrDisputeWindowClosed
	}
	m.DisputeCount++
	return nil
}

// FinalizeNoDisputes settles an uncontested proposal once the window closes.
// Permissionless: with zero disputes the proposal stands on its own and no
// privileged actor is required.
func (m *Market) FinalizeNoDisputes(now time.Time) error {
	if err := m.guard(StatusProposed); err != nil {
		return err
	}
	if m.ContestDeadline == nil || m.ProposedOutcome == nil {
		return ErrInvalidState
	}
	if now.Before(*m.ContestDeadline) {
		return ErrTooEarly
	}
	if m.DisputeCount > 0 {
		return ErrHasDisputes
	}

	win := *m.ProposedOutcome
	m.Status = StatusFinalized
	m.Resolved = true
	m.WinningOutcome = &win
	return nil
}

// AdminFinalize settles a disputed proposal with an explicitly supplied
// outcome, which may differ from the proposed one. Admin identity is
// verified by the caller before this runs.
func (m *Market) AdminFinalize(outcome int, now time.Time) error {
	if err := m.guard(StatusProposed); err != nil {
		return err
	}
	if m.ContestDeadline == nil {
		return ErrInvalidState
	}
	if now.Before(*m.ContestDeadline) {
		return ErrTooEarly
	}
	if m.DisputeCount == 0 {
		return ErrNoDispute
	}
	if err := m.CheckOutcome(outcome); err != nil {
		return err
	}

	win := int16(outcome)
	m.Status = StatusFinalized
	m.Resolved = true
	m.WinningOutcome = &win
	return nil
}

// AdminCancel voids a disputed market whose deadline has passed, when the
// admin will not adjudicate an outcome. Positions become refundable.
func (m *Market) AdminCancel(now time.Time) error {
	if err := m.guard(StatusProposed); err != nil {
		return err
	}
	if m.ContestDeadline == nil {
		return ErrInvalidState
	}
	if now.Before(*m.ContestDeadline) {
		return ErrTooEarly
	}
	if m.DisputeCount == 0 {
		return ErrNoDispute
	}

	m.Status = StatusCancelled
	m.Cancelled = true
	return nil
}

// CancelNoProposal voids an abandoned market: the creator never proposed and
// the propose window has lapsed. Permissionless, so stuck capital can always
// be recovered.
func (m *Market) CancelNoProposal(now time.Time, proposeWindow time.Duration) error {
	if err := m.guard(StatusOpen); err != nil {
		return err
	}
	if now.Before(m.ResolutionTime) {
		return ErrMarketNotEnded
	}
	if now.Before(m.ResolutionTime.Add(proposeWindow)) {
		return ErrTooEarly
	}

	m.Status = StatusCancelled
	m.Cancelled = true
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Creation
// ──────────────────────────────────────────────────────────────────────────────

// CreateMarketParams carries the inputs for creating a market.
type CreateMarketParams struct {
	Creator           uuid.UUID     `json:"-"`
	ResolutionTime    time.Time     `json:"resolution_time"`
	OutcomeNames      []string      `json:"outcome_names"`
	MarketType        MarketType    `json:"market_type"`
	Curve             pricing.Curve `json:"curve"`
	LiquidityLamports int64         `json:"liquidity_lamports"`
	MaxPositionBps    int           `json:"max_position_bps"`
	MaxTradeShares    int64         `json:"max_trade_shares"`
	CooldownSeconds   int64         `json:"cooldown_seconds"`
}

// Validate rejects malformed creation parameters before any state exists.
func (p *CreateMarketParams) Validate(now time.Time) error {
	n := len(p.OutcomeNames)
	if n < MinOutcomes || n > MaxOutcomes {
		return ErrInvalidOutcomes
	}
	if !p.MarketType.IsValid() {
		return ErrInvalidOutcomes
	}
	if p.MarketType == TypeBinary && n != 2 {
		return ErrInvalidOutcomes
	}
	for _, name := range p.OutcomeNames {
		s := strings.TrimSpace(name)
		if s == "" || len(s) > MaxNameLen {
			return ErrInvalidOutcomes
		}
	}
	if !p.ResolutionTime.After(now) {
		return ErrInvalidResolutionTime
	}
	if !p.Curve.IsValid() {
		return ErrInvalidCurve
	}
	if p.LiquidityLamports <= 0 {
		return ErrInvalidLiquidity
	}
	if !(p.MaxPositionBps == PositionCapDisabled ||
		(p.MaxPositionBps >= MinPositionBps && p.MaxPositionBps <= MaxPositionBps)) {
		return ErrInvalidAntiManip
	}
	if p.MaxTradeShares < 1 || p.MaxTradeShares > MaxTradeSharesHard {
		return ErrInvalidAntiManip
	}
	if p.CooldownSeconds < 0 || p.CooldownSeconds > MaxCooldownSeconds {
		return ErrInvalidAntiManip
	}
	return nil
}

// NewMarket builds an Open market from validated parameters.
func NewMarket(p CreateMarketParams, now time.Time) *Market {
	names := make(pq.StringArray, len(p.OutcomeNames))
	for i, n := range p.OutcomeNames {
		names[i] = strings.TrimSpace(n)
	}
	return &Market{
		ID:                uuid.New(),
		Creator:           p.Creator,
		MarketType:        p.MarketType,
		OutcomeNames:      names,
		OutcomeCount:      len(names),
		Quantities:        make(pq.Int64Array, len(names)),
		Curve:             p.Curve,
		LiquidityLamports: p.LiquidityLamports,
		Status:            StatusOpen,
		MaxPositionBps:    p.MaxPositionBps,
		MaxTradeShares:    p.MaxTradeShares,
		CooldownSeconds:   p.CooldownSeconds,
		ResolutionTime:    p.ResolutionTime,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// MarketSummary — read model for list endpoints and WS broadcasts
// ──────────────────────────────────────────────────────────────────────────────

// MarketSummary is a derived, read-only view of a Market with current prices.
type MarketSummary struct {
	ID              uuid.UUID         `json:"id"`
	Status          MarketStatus      `json:"status"`
	MarketType      MarketType        `json:"market_type"`
	OutcomeNames    []string          `json:"outcome_names"`
	Quantities      []int64           `json:"quantities"`
	Prices          []decimal.Decimal `json:"prices"` // per-outcome, human units
	DisputeCount    int               `json:"dispute_count"`
	WinningOutcome  *int16            `json:"winning_outcome,omitempty"`
	ResolutionTime  time.Time         `json:"resolution_time"`
	ContestDeadline *time.Time        `json:"contest_deadline,omitempty"`
}

// ToSummary builds a MarketSummary from the market and its scaled prices.
func (m *Market) ToSummary(scaledPrices []uint64) MarketSummary {
	prices := make([]decimal.Decimal, len(scaledPrices))
	scale := decimal.NewFromInt(int64(fixedpoint.Scale))
	for i, p := range scaledPrices {
		prices[i] = decimal.NewFromInt(int64(p)).Div(scale)
	}
	return MarketSummary{
		ID:              m.ID,
		Status:          m.Status,
		MarketType:      m.MarketType,
		OutcomeNames:    []string(m.OutcomeNames),
		Quantities:      []int64(m.Quantities),
		Prices:          prices,
		DisputeCount:    m.DisputeCount,
		WinningOutcome:  m.WinningOutcome,
		ResolutionTime:  m.ResolutionTime,
		ContestDeadline: m.ContestDeadline,
	}
}
