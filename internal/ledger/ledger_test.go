package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evetabi/settlement/internal/domain"
	"github.com/evetabi/settlement/internal/engine"
	"github.com/evetabi/settlement/internal/ledger"
	"github.com/evetabi/settlement/internal/pricing"
)

func testWallets() ledger.Wallets {
	return ledger.Wallets{Trader: uuid.New(), Pool: uuid.New(), Platform: uuid.New()}
}

func TestPlans_AreBalanced(t *testing.T) {
	w := testWallets()
	marketID := uuid.New()

	buy := &engine.TradeReceipt{
		Outcome: 0, Shares: 10,
		Cost: 10_000, PlatformFee: 100, CreatorFee: 200,
		TotalAmount: 10_300, NetAmount: 10_200,
	}
	sell := &engine.TradeReceipt{
		Outcome: 0, Shares: 10,
		Cost: 9_000, PlatformFee: 90, CreatorFee: 180,
		TotalAmount: 8_820, NetAmount: 8_730,
	}
	claim := &engine.ClaimReceipt{Amount: 5_000}

	assert.True(t, ledger.Balanced(ledger.PlanBuy(buy, w, marketID)))
	assert.True(t, ledger.Balanced(ledger.PlanSell(sell, w, marketID)))
	assert.True(t, ledger.Balanced(ledger.PlanClaim(claim, domain.TxWinnings, w, marketID)))
	assert.True(t, ledger.Balanced(ledger.PlanCreatorFees(claim, w.Trader, w.Pool, marketID)))
}

func TestApply_InsufficientBalanceStops(t *testing.T) {
	ctx := context.Background()
	w := testWallets()
	store := ledger.NewMemory()
	store.Fund(w.Trader, 100)

	buy := &engine.TradeReceipt{
		Cost: 1_000, PlatformFee: 10, CreatorFee: 20,
		TotalAmount: 1_030, NetAmount: 1_020,
	}
	err := ledger.Apply(ctx, store, ledger.PlanBuy(buy, w, uuid.New()))
	require.ErrorIs(t, err, domain.ErrInsufficientBalance)
}

// Full market lifecycle through the memory store: deposits in, trades, a
// finalization, every claim out. Total lamports are conserved and the pool
// drains to the escrow remainder plus flooring dust.
func TestLifecycle_Conservation(t *testing.T) {
	ctx := context.Background()
	end := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	now := end.Add(-time.Hour)

	params := domain.CreateMarketParams{
		Creator:           uuid.New(),
		ResolutionTime:    end,
		OutcomeNames:      []string{"YES", "NO"},
		MarketType:        domain.TypeBinary,
		Curve:             pricing.CurveLMSR,
		LiquidityLamports: 50_000_000_000,
		MaxPositionBps:    domain.PositionCapDisabled,
		MaxTradeShares:    1_000_000,
	}
	require.NoError(t, params.Validate(now))
	m := domain.NewMarket(params, now)

	store := ledger.NewMemory()
	poolID, platformID, creatorID := uuid.New(), uuid.New(), uuid.New()

	type trader struct {
		wallet uuid.UUID
		pos    *domain.Position
	}
	traders := []trader{}
	const deposit = 100_000_000_000
	var depositTotal int64
	for i := 0; i < 3; i++ {
		tr := trader{wallet: uuid.New(), pos: domain.NewPosition(m.ID, uuid.New(), 2, now)}
		store.Fund(tr.wallet, deposit)
		depositTotal += deposit
		traders = append(traders, tr)
	}

	buys := []struct {
		trader  int
		outcome int
		shares  int64
	}{{0, 0, 40}, {1, 1, 25}, {2, 0, 15}, {1, 0, 5}}

	for i, b := range buys {
		tr := traders[b.trader]
		r, err := engine.Buy(m, tr.pos, b.outcome, b.shares, 0, now.Add(time.Duration(i)*time.Minute))
		require.NoError(t, err)
		w := ledger.Wallets{Trader: tr.wallet, Pool: poolID, Platform: platformID}
		require.NoError(t, ledger.Apply(ctx, store, ledger.PlanBuy(r, w, m.ID)))
	}

	// Trader 2 exits half their holding before the close.
	r, err := engine.Sell(m, traders[2].pos, 0, 7, 0, now.Add(30*time.Minute))
	require.NoError(t, err)
	w2 := ledger.Wallets{Trader: traders[2].wallet, Pool: poolID, Platform: platformID}
	require.NoError(t, ledger.Apply(ctx, store, ledger.PlanSell(r, w2, m.ID)))

	require.NoError(t, m.ProposeResolution(0, end, domain.DefaultProposeWindow, domain.DefaultDisputeWindow))
	require.NoError(t, m.FinalizeNoDisputes(*m.ContestDeadline))
	claimAt := m.ContestDeadline.Add(time.Hour)

	distributable := store.Balance(poolID) - m.CreatorFeeEscrow
	require.Positive(t, distributable)

	for _, tr := range traders {
		cr, err := engine.ClaimWinnings(m, tr.pos, distributable, claimAt)
		if err != nil {
			assert.ErrorIs(t, err, domain.ErrNoWinningShares)
			continue
		}
		wt := ledger.Wallets{Trader: tr.wallet, Pool: poolID, Platform: platformID}
		require.NoError(t, ledger.Apply(ctx, store, ledger.PlanClaim(cr, domain.TxWinnings, wt, m.ID)))
	}

	fees, err := engine.ClaimCreatorFees(m, claimAt)
	require.NoError(t, err)
	store.Fund(creatorID, 0)
	require.NoError(t, ledger.Apply(ctx, store, ledger.PlanCreatorFees(fees, creatorID, poolID, m.ID)))

	// Conservation: every lamport deposited is in some wallet.
	var total int64
	for _, tr := range traders {
		total += store.Balance(tr.wallet)
	}
	total += store.Balance(poolID) + store.Balance(platformID) + store.Balance(creatorID)
	assert.Equal(t, depositTotal, total)

	// Pool holds only flooring dust after all claims.
	assert.GreaterOrEqual(t, store.Balance(poolID), int64(0))
	assert.Less(t, store.Balance(poolID), int64(3))
}
