package pricing

import (
	"github.com/evetabi/settlement/internal/fixedpoint"
)

// LMSR prices shares with the logarithmic market scoring rule
//
//	C(q) = b * ln( Σ_i exp(q_i / b) )
//
// where b is the liquidity parameter in lamports and one share carries a
// notional of fixedpoint.Scale lamports. Trade cost is the difference of
// the cost function before and after the trade, so any sequence of trades
// returning q to its origin nets to zero (path independence) and the
// operator's worst-case subsidy is bounded by b*ln(n).
//
// The sum is evaluated in log-sum-exp form: with m = max_i q_i/b,
//
//	C(q) = b * ( m + ln( Σ_i exp(q_i/b - m) ) )
//
// which keeps every exponent argument <= 0 regardless of supply magnitude.
type LMSR struct {
	b uint64 // liquidity, lamports
}

// NewLMSR builds an LMSR model. The liquidity parameter must be positive.
func NewLMSR(b uint64) (*LMSR, error) {
	if b == 0 {
		return nil, ErrInvalidLiquidity
	}
	return &LMSR{b: b}, nil
}

// ratios converts the share vector to scaled q_i/b values and returns them
// with their maximum.
func (l *LMSR) ratios(q []uint64) ([]uint64, uint64, error) {
	rs := make([]uint64, len(q))
	var m uint64
	for i, qi := range q {
		// q_i (shares) * Scale (notional) * Scale (fixed point) / b
		r, err := fixedpoint.MulDiv(qi, fixedpoint.Scale2, l.b)
		if err != nil {
			return nil, 0, err
		}
		rs[i] = r
		if r > m {
			m = r
		}
	}
	return rs, m, nil
}

// expSum returns Σ_i exp(r_i - m); terms below the representable range
// contribute zero. The result is always >= Scale because the maximum term
// is exp(0) = 1.
func expSum(rs []uint64, m uint64) (uint64, error) {
	var sum uint64
	for _, r := range rs {
		d := int64(r) - int64(m) // <= 0
		e, err := fixedpoint.Exp(d)
		if err != nil {
			return 0, err
		}
		var aerr error
		sum, aerr = fixedpoint.Add(sum, e)
		if aerr != nil {
			return 0, aerr
		}
	}
	return sum, nil
}

// Cost evaluates the cost function in lamports, rounded up.
func (l *LMSR) Cost(q []uint64) (uint64, error) {
	rs, m, err := l.ratios(q)
	if err != nil {
		return 0, err
	}
	sum, err := expSum(rs, m)
	if err != nil {
		return 0, err
	}
	lnSum, err := fixedpoint.Ln(sum)
	if err != nil {
		return 0, err
	}
	scaled, err := fixedpoint.Add(m, lnSum)
	if err != nil {
		return 0, err
	}
	return fixedpoint.MulDivCeil(l.b, scaled, fixedpoint.Scale)
}

// BuyCost implements Model. The result is floored at 1 lamport so rounding
// can never produce a free buy.
func (l *LMSR) BuyCost(q []uint64, outcome int, shares uint64) (uint64, error) {
	if shares == 0 {
		return 0, ErrZeroShares
	}
	before, err := l.Cost(q)
	if err != nil {
		return 0, err
	}
	after := cloneWith(q, outcome, shares, true)
	if after == nil {
		return 0, fixedpoint.ErrOverflow
	}
	costAfter, err := l.Cost(after)
	if err != nil {
		return 0, err
	}
	if costAfter <= before {
		return 1, nil
	}
	return costAfter - before, nil
}

// SellRefund implements Model.
func (l *LMSR) SellRefund(q []uint64, outcome int, shares uint64) (uint64, error) {
	if shares == 0 {
		return 0, ErrZeroShares
	}
	if q[outcome] < shares {
		return 0, ErrInsufficientSupply
	}
	before, err := l.Cost(q)
	if err != nil {
		return 0, err
	}
	after := cloneWith(q, outcome, shares, false)
	costAfter, err := l.Cost(after)
	if err != nil {
		return 0, err
	}
	if costAfter >= before {
		return 0, nil
	}
	return before - costAfter, nil
}

// Price implements Model: p_i = exp(r_i - m) / Σ_j exp(r_j - m), scaled to
// fixedpoint.Scale. Prices over all outcomes sum to Scale within floor
// rounding.
func (l *LMSR) Price(q []uint64, outcome int) (uint64, error) {
	rs, m, err := l.ratios(q)
	if err != nil {
		return 0, err
	}
	sum, err := expSum(rs, m)
	if err != nil {
		return 0, err
	}
	ei, err := fixedpoint.Exp(int64(rs[outcome]) - int64(m))
	if err != nil {
		return 0, err
	}
	return fixedpoint.MulDiv(ei, fixedpoint.Scale, sum)
}

// cloneWith copies q with q[outcome] adjusted by shares. Returns nil when an
// addition would overflow.
func cloneWith(q []uint64, outcome int, shares uint64, add bool) []uint64 {
	out := make([]uint64, len(q))
	copy(out, q)
	if add {
		next, err := fixedpoint.Add(out[outcome], shares)
		if err != nil {
			return nil
		}
		out[outcome] = next
	} else {
		out[outcome] -= shares
	}
	return out
}
