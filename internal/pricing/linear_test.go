package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinear_ClosedFormMatchesPerShareSum(t *testing.T) {
	lin := NewLinear(BasePriceLamports, SlopeLamportsPerSupply)

	tests := []struct {
		start  uint64
		shares uint64
	}{
		{0, 1},
		{0, 7},
		{10, 4},
		{999, 250},
		{123_456, 1_000},
	}
	for _, tt := range tests {
		q := []uint64{tt.start, 0}
		got, err := lin.BuyCost(q, 0, tt.shares)
		require.NoError(t, err)

		// Reference: price each share individually.
		var want uint64
		for k := uint64(0); k < tt.shares; k++ {
			want += BasePriceLamports + SlopeLamportsPerSupply*(tt.start+k)
		}
		assert.Equal(t, want, got, "start=%d shares=%d", tt.start, tt.shares)
	}
}

func TestLinear_RoundTripNetsToZero(t *testing.T) {
	// Selling the shares just bought refunds exactly the purchase price: the
	// refund is the cost evaluated at the post-sell supply.
	lin := NewLinear(BasePriceLamports, SlopeLamportsPerSupply)
	q := []uint64{40, 0}

	cost, err := lin.BuyCost(q, 0, 15)
	require.NoError(t, err)

	q[0] += 15
	refund, err := lin.SellRefund(q, 0, 15)
	require.NoError(t, err)

	assert.Equal(t, cost, refund)
}

func TestLinear_MarginalPrice(t *testing.T) {
	lin := NewLinear(BasePriceLamports, SlopeLamportsPerSupply)

	p0, err := lin.Price([]uint64{0, 0}, 0)
	require.NoError(t, err)
	assert.Equal(t, BasePriceLamports, p0)

	p, err := lin.Price([]uint64{500, 0}, 0)
	require.NoError(t, err)
	assert.Equal(t, BasePriceLamports+500*SlopeLamportsPerSupply, p)
}

func TestLinear_Guards(t *testing.T) {
	lin := NewLinear(BasePriceLamports, SlopeLamportsPerSupply)

	_, err := lin.BuyCost([]uint64{0, 0}, 0, 0)
	assert.ErrorIs(t, err, ErrZeroShares)

	_, err = lin.SellRefund([]uint64{2, 0}, 0, 3)
	assert.ErrorIs(t, err, ErrInsufficientSupply)
}
