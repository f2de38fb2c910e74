package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Position is a user's per-market holding: shares per outcome, the net
// amount paid in (buys minus sell refunds, floored at zero), and the claim
// flag that makes winnings/refund payouts one-shot.
type Position struct {
	ID       uuid.UUID `json:"id"        db:"id"`
	MarketID uuid.UUID `json:"market_id" db:"market_id"`
	UserID   uuid.UUID `json:"user_id"   db:"user_id"`

	// Shares holds one entry per market outcome, indexed like the market's
	// quantity vector.
	Shares pq.Int64Array `json:"shares" db:"shares"`

	// NetCost is the refund basis on cancellation. Sells subtract the gross
	// refund and the floor at zero prevents refund inflation from trading
	// profits.
	NetCost int64 `json:"net_cost" db:"net_cost"`

	Claimed     bool       `json:"claimed"       db:"claimed"`
	LastTradeAt *time.Time `json:"last_trade_at" db:"last_trade_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// NewPosition creates an empty position for a user in a market.
func NewPosition(marketID, userID uuid.UUID, outcomeCount int, now time.Time) *Position {
	return &Position{
		ID:        uuid.New(),
		MarketID:  marketID,
		UserID:    userID,
		Shares:    make(pq.Int64Array, outcomeCount),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// SharesOf returns the holding on a single outcome, zero when the stored
// vector is shorter than the index.
func (p *Position) SharesOf(outcome int) int64 {
	if outcome < 0 || outcome >= len(p.Shares) {
		return 0
	}
	return p.Shares[outcome]
}

// TotalShares returns the holding summed across all outcomes.
func (p *Position) TotalShares() int64 {
	var total int64
	for _, s := range p.Shares {
		total += s
	}
	return total
}

// InCooldown reports whether a trade at now would violate the market's
// per-trader cooldown.
func (p *Position) InCooldown(now time.Time, cooldownSeconds int64) bool {
	if cooldownSeconds <= 0 || p.LastTradeAt == nil {
		return false
	}
	return now.Sub(*p.LastTradeAt) < time.Duration(cooldownSeconds)*time.Second
}

// ApplyBuy records a filled buy: shares added, cost added to the refund
// basis, trade timestamp advanced.
func (p *Position) ApplyBuy(outcome int, shares, cost int64, now time.Time) {
	p.Shares[outcome] += shares
	p.NetCost += cost
	p.LastTradeAt = &now
	p.UpdatedAt = now
}

// ApplySell records a filled sell. The refund basis is reduced by the gross
// refund and floored at zero.
func (p *Position) ApplySell(outcome int, shares, grossRefund int64, now time.Time) {
	p.Shares[outcome] -= shares
	p.NetCost -= grossRefund
	if p.NetCost < 0 {
		p.NetCost = 0
	}
	p.LastTradeAt = &now
	p.UpdatedAt = now
}
