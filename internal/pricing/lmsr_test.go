package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evetabi/settlement/internal/fixedpoint"
)

const testB = 50_000_000_000 // 50 units of liquidity

func newTestLMSR(t *testing.T) *LMSR {
	t.Helper()
	m, err := NewLMSR(testB)
	require.NoError(t, err)
	return m
}

func TestNewLMSR_RejectsZeroLiquidity(t *testing.T) {
	_, err := NewLMSR(0)
	assert.ErrorIs(t, err, ErrInvalidLiquidity)
}

func TestLMSR_BinaryScenario(t *testing.T) {
	// Fresh binary market, buy 5 YES shares: cost must be positive and the
	// YES price must move above 1/2 while NO drops below it.
	m := newTestLMSR(t)
	q := []uint64{0, 0}

	cost, err := m.BuyCost(q, 0, 5)
	require.NoError(t, err)
	assert.Greater(t, cost, uint64(0))

	q[0] += 5

	yes, err := m.Price(q, 0)
	require.NoError(t, err)
	no, err := m.Price(q, 1)
	require.NoError(t, err)

	half := fixedpoint.Scale / 2
	assert.Greater(t, yes, half, "YES should be priced above 0.5 after the buy")
	assert.Less(t, no, half, "NO should be priced below 0.5 after the buy")
}

func TestLMSR_PricesSumToOne(t *testing.T) {
	m := newTestLMSR(t)

	vectors := [][]uint64{
		{0, 0},
		{5, 0},
		{100, 40},
		{1, 2, 3, 4, 5},
		{1_000_000, 0, 250_000},
		{0, 0, 0, 0, 0, 0, 0, 0, 0, 0},
	}
	for _, q := range vectors {
		prices, err := Prices(m, q)
		require.NoError(t, err)

		var sum uint64
		for _, p := range prices {
			sum += p
		}
		// Floor rounding loses at most one unit per outcome.
		assert.LessOrEqual(t, sum, fixedpoint.Scale)
		assert.GreaterOrEqual(t, sum, fixedpoint.Scale-uint64(len(q)))
	}
}

func TestLMSR_NoFreeTrade(t *testing.T) {
	m := newTestLMSR(t)
	q := []uint64{0, 0}

	for _, shares := range []uint64{1, 2, 10, 1000} {
		cost, err := m.BuyCost(q, 1, shares)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, cost, uint64(1), "buy of %d shares must never be free", shares)
	}
}

func TestLMSR_PathIndependence(t *testing.T) {
	// Any trade sequence that returns q to its origin must net to zero up to
	// the ceiling bias, which is bounded by one lamport per trade.
	m := newTestLMSR(t)
	q := []uint64{0, 0, 0}

	type step struct {
		outcome int
		shares  uint64
		buy     bool
	}
	steps := []step{
		{0, 10, true},
		{1, 25, true},
		{0, 5, false},
		{2, 40, true},
		{1, 25, false},
		{2, 40, false},
		{0, 5, false},
	}

	var paid, refunded uint64
	for _, s := range steps {
		if s.buy {
			c, err := m.BuyCost(q, s.outcome, s.shares)
			require.NoError(t, err)
			paid += c
			q[s.outcome] += s.shares
		} else {
			r, err := m.SellRefund(q, s.outcome, s.shares)
			require.NoError(t, err)
			refunded += r
			q[s.outcome] -= s.shares
		}
	}

	require.Equal(t, []uint64{0, 0, 0}, q, "sequence must return to the origin")
	var diff uint64
	if paid > refunded {
		diff = paid - refunded
	} else {
		diff = refunded - paid
	}
	assert.LessOrEqual(t, diff, uint64(len(steps)), "net flow %d exceeds rounding bias", diff)
}

func TestLMSR_CostSplitConsistency(t *testing.T) {
	// Buying Δ1+Δ2 at once costs the same as buying Δ1 then Δ2, up to the
	// per-trade ceiling bias: both walks evaluate the same cost function.
	m := newTestLMSR(t)
	q := []uint64{30, 70}

	whole, err := m.BuyCost(q, 0, 100)
	require.NoError(t, err)

	first, err := m.BuyCost(q, 0, 60)
	require.NoError(t, err)
	q2 := []uint64{90, 70}
	second, err := m.BuyCost(q2, 0, 40)
	require.NoError(t, err)

	split := first + second
	var diff uint64
	if split > whole {
		diff = split - whole
	} else {
		diff = whole - split
	}
	assert.LessOrEqual(t, diff, uint64(2))
}

func TestLMSR_CostIncreasesWithSupply(t *testing.T) {
	// Marginal cost rises as supply grows: the curve is convex.
	m := newTestLMSR(t)

	prev := uint64(0)
	for i, q0 := range []uint64{0, 1_000, 10_000, 100_000} {
		cost, err := m.BuyCost([]uint64{q0, 0}, 0, 100)
		require.NoError(t, err)
		if i > 0 {
			assert.GreaterOrEqual(t, cost, prev, "cost should not fall as supply grows")
		}
		prev = cost
	}
}

func TestLMSR_SellRequiresSupply(t *testing.T) {
	m := newTestLMSR(t)
	_, err := m.SellRefund([]uint64{3, 0}, 0, 4)
	assert.ErrorIs(t, err, ErrInsufficientSupply)

	_, err = m.SellRefund([]uint64{3, 0}, 0, 0)
	assert.ErrorIs(t, err, ErrZeroShares)
}

func TestLMSR_LargeSupplyStaysStable(t *testing.T) {
	// The log-sum-exp form must keep pricing well-defined far beyond the
	// point where naive exp(q/b) would overflow.
	m := newTestLMSR(t)
	q := []uint64{5_000_000_000, 10}

	p, err := m.Price(q, 0)
	require.NoError(t, err)
	assert.Greater(t, p, fixedpoint.Scale-fixedpoint.Scale/1000, "dominant outcome should price near 1")

	cost, err := m.BuyCost(q, 0, 1)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, cost, uint64(1))
}

func TestForCurve(t *testing.T) {
	lm, err := ForCurve(CurveLMSR, testB)
	require.NoError(t, err)
	assert.IsType(t, &LMSR{}, lm)

	lin, err := ForCurve(CurveLinear, testB)
	require.NoError(t, err)
	assert.IsType(t, &Linear{}, lin)

	_, err = ForCurve(Curve("parabolic"), testB)
	assert.Error(t, err)

	_, err = ForCurve(CurveLMSR, 0)
	assert.ErrorIs(t, err, ErrInvalidLiquidity)
}
