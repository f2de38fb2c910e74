package pricing

import (
	"github.com/evetabi/settlement/internal/fixedpoint"
)

// Linear prices each outcome on an independent bonding curve: the k-th share
// of an outcome with supply s costs base + slope*(s+k). A trade of Δ shares
// starting from supply s therefore costs
//
//	Δ*base + slope * Δ*(2s + Δ - 1)/2
//
// the arithmetic-series sum in closed form. Simpler than the LMSR — no
// transcendental functions — but without a shared liquidity pool it does not
// bound the operator's loss; it is kept as the lightweight variant.
type Linear struct {
	base  uint64 // lamports per share at zero supply
	slope uint64 // lamports added per unit of supply
}

// NewLinear builds a linear-curve model.
func NewLinear(base, slope uint64) *Linear {
	return &Linear{base: base, slope: slope}
}

// cost returns the lamports for `shares` starting at `startSupply`.
func (l *Linear) cost(startSupply, shares uint64) (uint64, error) {
	if shares == 0 {
		return 0, ErrZeroShares
	}

	basePart, err := fixedpoint.Mul(shares, l.base)
	if err != nil {
		return 0, err
	}

	// series = shares*(2*startSupply + shares - 1)/2; one factor is always
	// even, so halve it first and keep the product inside 64 bits checked.
	twoQ0, err := fixedpoint.Mul(startSupply, 2)
	if err != nil {
		return 0, err
	}
	inside, err := fixedpoint.Add(twoQ0, shares-1)
	if err != nil {
		return 0, err
	}
	var series uint64
	if shares%2 == 0 {
		series, err = fixedpoint.Mul(shares/2, inside)
	} else {
		series, err = fixedpoint.Mul(shares, inside/2)
	}
	if err != nil {
		return 0, err
	}

	slopePart, err := fixedpoint.Mul(l.slope, series)
	if err != nil {
		return 0, err
	}
	return fixedpoint.Add(basePart, slopePart)
}

// BuyCost implements Model.
func (l *Linear) BuyCost(q []uint64, outcome int, shares uint64) (uint64, error) {
	return l.cost(q[outcome], shares)
}

// SellRefund implements Model: the refund equals the cost of the same shares
// bought at the post-sell supply, so a round trip nets to zero.
func (l *Linear) SellRefund(q []uint64, outcome int, shares uint64) (uint64, error) {
	if shares == 0 {
		return 0, ErrZeroShares
	}
	if q[outcome] < shares {
		return 0, ErrInsufficientSupply
	}
	return l.cost(q[outcome]-shares, shares)
}

// Price implements Model: the marginal lamport price of the next share.
func (l *Linear) Price(q []uint64, outcome int) (uint64, error) {
	slopePart, err := fixedpoint.Mul(l.slope, q[outcome])
	if err != nil {
		return 0, err
	}
	return fixedpoint.Add(l.base, slopePart)
}
