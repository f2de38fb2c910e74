// Package pricing implements the cost-function market makers that price
// outcome shares. Two interchangeable strategies exist: the logarithmic
// scoring rule (LMSR) and a simpler per-outcome linear bonding curve.
//
// All amounts are integer lamports; shares are whole units. Buy costs round
// up and never return zero — a zero-cost buy would be free money.
package pricing

import (
	"errors"
	"fmt"
)

// Curve identifies the pricing strategy of a market.
type Curve string

const (
	CurveLMSR   Curve = "lmsr"
	CurveLinear Curve = "linear"
)

// IsValid reports whether the curve tag is recognised.
func (c Curve) IsValid() bool {
	return c == CurveLMSR || c == CurveLinear
}

// Linear-curve defaults (lamports).
const (
	BasePriceLamports      uint64 = 10_000_000 // 0.01 unit per share at zero supply
	SlopeLamportsPerSupply uint64 = 1_000
)

var (
	// ErrInvalidLiquidity is returned when the liquidity parameter is zero.
	ErrInvalidLiquidity = errors.New("pricing: liquidity parameter must be positive")

	// ErrInsufficientSupply is returned when a sell exceeds outstanding shares.
	ErrInsufficientSupply = errors.New("pricing: sell exceeds outstanding supply")

	// ErrZeroShares is returned for trades of zero shares.
	ErrZeroShares = errors.New("pricing: shares must be positive")
)

// Model prices buys and sells against a share-quantity vector.
//
// The quantity vector is never mutated; callers apply deltas themselves
// after the trade commits.
type Model interface {
	// BuyCost returns the lamports required to mint `shares` of `outcome`.
	// Strictly positive for shares > 0.
	BuyCost(q []uint64, outcome int, shares uint64) (uint64, error)

	// SellRefund returns the lamports released by burning `shares` of
	// `outcome`. Requires q[outcome] >= shares.
	SellRefund(q []uint64, outcome int, shares uint64) (uint64, error)

	// Price returns the instantaneous per-share price of `outcome`. For the
	// LMSR this is the outcome probability scaled to fixedpoint.Scale; for
	// the linear curve it is the marginal lamport price of the next share.
	Price(q []uint64, outcome int) (uint64, error)
}

// ForCurve builds the model matching a market's stored curve tag and
// liquidity parameter.
func ForCurve(c Curve, liquidityLamports uint64) (Model, error) {
	switch c {
	case CurveLMSR:
		return NewLMSR(liquidityLamports)
	case CurveLinear:
		return NewLinear(BasePriceLamports, SlopeLamportsPerSupply), nil
	default:
		return nil, fmt.Errorf("pricing: unknown curve %q", c)
	}
}

// Prices evaluates Price for every outcome in the vector.
func Prices(m Model, q []uint64) ([]uint64, error) {
	out := make([]uint64, len(q))
	for i := range q {
		p, err := m.Price(q, i)
		if err != nil {
			return nil, err
		}
		out[i] = p
	}
	return out, nil
}
