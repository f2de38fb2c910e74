package domain_test

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/evetabi/settlement/internal/domain"
	"github.com/evetabi/settlement/internal/pricing"
)

const (
	proposeWindow = domain.DefaultProposeWindow
	disputeWindow = domain.DefaultDisputeWindow
)

// newTestMarket builds an open binary market ending at end.
func newTestMarket(t *testing.T, end time.Time) *domain.Market {
	t.Helper()
	p := domain.CreateMarketParams{
		Creator:           uuid.New(),
		ResolutionTime:    end,
		OutcomeNames:      []string{"YES", "NO"},
		MarketType:        domain.TypeBinary,
		Curve:             pricing.CurveLMSR,
		LiquidityLamports: 50_000_000_000,
		MaxPositionBps:    domain.PositionCapDisabled,
		MaxTradeShares:    1_000_000,
		CooldownSeconds:   0,
	}
	if err := p.Validate(end.Add(-time.Hour)); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
	return domain.NewMarket(p, end.Add(-time.Hour))
}

// ── Creation validation ───────────────────────────────────────────────────────

func TestCreateMarketParams_Validate(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	base := domain.CreateMarketParams{
		Creator:           uuid.New(),
		ResolutionTime:    now.Add(24 * time.Hour),
		OutcomeNames:      []string{"YES", "NO"},
		MarketType:        domain.TypeBinary,
		Curve:             pricing.CurveLMSR,
		LiquidityLamports: 1_000_000_000,
		MaxPositionBps:    domain.PositionCapDisabled,
		MaxTradeShares:    100,
		CooldownSeconds:   10,
	}

	tests := []struct {
		name    string
		mutate  func(p *domain.CreateMarketParams)
		wantErr error
	}{
		{"valid binary", func(p *domain.CreateMarketParams) {}, nil},
		{"valid multi", func(p *domain.CreateMarketParams) {
			p.MarketType = domain.TypeMulti
			p.OutcomeNames = []string{"A", "B", "C", "D"}
		}, nil},
		{"binary with three outcomes", func(p *domain.CreateMarketParams) {
			p.OutcomeNames = []string{"A", "B", "C"}
		}, domain.ErrInvalidOutcomes},
		{"single outcome", func(p *domain.CreateMarketParams) {
			p.MarketType = domain.TypeMulti
			p.OutcomeNames = []string{"A"}
		}, domain.ErrInvalidOutcomes},
		{"too many outcomes", func(p *domain.CreateMarketParams) {
			p.MarketType = domain.TypeMulti
			p.OutcomeNames = []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k"}
		}, domain.ErrInvalidOutcomes},
		{"blank outcome name", func(p *domain.CreateMarketParams) {
			p.OutcomeNames = []string{"YES", "   "}
		}, domain.ErrInvalidOutcomes},
		{"name too long", func(p *domain.CreateMarketParams) {
			long := make([]byte, domain.MaxNameLen+1)
			for i := range long {
				long[i] = 'x'
			}
			p.OutcomeNames = []string{"YES", string(long)}
		}, domain.ErrInvalidOutcomes},
		{"resolution time in the past", func(p *domain.CreateMarketParams) {
			p.ResolutionTime = now.Add(-time.Minute)
		}, domain.ErrInvalidResolutionTime},
		{"resolution time equals now", func(p *domain.CreateMarketParams) {
			p.ResolutionTime = now
		}, domain.ErrInvalidResolutionTime},
		{"zero liquidity", func(p *domain.CreateMarketParams) {
			p.LiquidityLamports = 0
		}, domain.ErrInvalidLiquidity},
		{"unknown curve", func(p *domain.CreateMarketParams) {
			p.Curve = "parabolic"
		}, domain.ErrInvalidCurve},
		{"position cap below floor", func(p *domain.CreateMarketParams) {
			p.MaxPositionBps = domain.MinPositionBps - 1
		}, domain.ErrInvalidAntiManip},
		{"position cap above ceiling", func(p *domain.CreateMarketParams) {
			p.MaxPositionBps = domain.MaxPositionBps + 1
		}, domain.ErrInvalidAntiManip},
		{"position cap disabled sentinel ok", func(p *domain.CreateMarketParams) {
			p.MaxPositionBps = domain.PositionCapDisabled
		}, nil},
		{"zero max trade shares", func(p *domain.CreateMarketParams) {
			p.MaxTradeShares = 0
		}, domain.ErrInvalidAntiManip},
		{"max trade shares above hard cap", func(p *domain.CreateMarketParams) {
			p.MaxTradeShares = domain.MaxTradeSharesHard + 1
		}, domain.ErrInvalidAntiManip},
		{"cooldown too long", func(p *domain.CreateMarketParams) {
			p.CooldownSeconds = domain.MaxCooldownSeconds + 1
		}, domain.ErrInvalidAntiManip},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := base
			tt.mutate(&p)
			err := p.Validate(now)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewMarket_InitialState(t *testing.T) {
	end := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	m := newTestMarket(t, end)

	if m.Status != domain.StatusOpen {
		t.Errorf("Status = %s, want %s", m.Status, domain.StatusOpen)
	}
	if m.Resolved || m.Cancelled {
		t.Error("new market must be neither resolved nor cancelled")
	}
	if len(m.Quantities) != 2 {
		t.Fatalf("len(Quantities) = %d, want 2", len(m.Quantities))
	}
	if m.TotalSupply() != 0 {
		t.Errorf("TotalSupply() = %d, want 0", m.TotalSupply())
	}
}

// ── Propose ───────────────────────────────────────────────────────────────────

func TestMarket_ProposeResolution(t *testing.T) {
	end := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

	t.Run("before end rejected", func(t *testing.T) {
		m := newTestMarket(t, end)
		err := m.ProposeResolution(0, end.Add(-time.Second), proposeWindow, disputeWindow)
		if !errors.Is(err, domain.ErrMarketNotEnded) {
			t.Errorf("err = %v, want ErrMarketNotEnded", err)
		}
	})

	t.Run("at end accepted", func(t *testing.T) {
		m := newTestMarket(t, end)
		if err := m.ProposeResolution(1, end, proposeWindow, disputeWindow); err != nil {
			t.Fatalf("err = %v, want nil", err)
		}
		if m.Status != domain.StatusProposed {
			t.Errorf("Status = %s, want %s", m.Status, domain.StatusProposed)
		}
		if m.ProposedOutcome == nil || *m.ProposedOutcome != 1 {
			t.Errorf("ProposedOutcome = %v, want 1", m.ProposedOutcome)
		}
		wantDeadline := end.Add(disputeWindow)
		if m.ContestDeadline == nil || !m.ContestDeadline.Equal(wantDeadline) {
			t.Errorf("ContestDeadline = %v, want %v", m.ContestDeadline, wantDeadline)
		}
	})

	t.Run("at window edge accepted", func(t *testing.T) {
		m := newTestMarket(t, end)
		err := m.ProposeResolution(0, end.Add(proposeWindow), proposeWindow, disputeWindow)
		if err != nil {
			t.Errorf("err = %v, want nil", err)
		}
	})

	t.Run("after window rejected", func(t *testing.T) {
		m := newTestMarket(t, end)
		err := m.ProposeResolution(0, end.Add(proposeWindow+time.Second), proposeWindow, disputeWindow)
		if !errors.Is(err, domain.ErrTooLateToPropose) {
			t.Errorf("err = %v, want ErrTooLateToPropose", err)
		}
	})

	t.Run("bad outcome index rejected", func(t *testing.T) {
		m := newTestMarket(t, end)
		err := m.ProposeResolution(2, end, proposeWindow, disputeWindow)
		if !errors.Is(err, domain.ErrInvalidOutcomeIndex) {
			t.Errorf("err = %v, want ErrInvalidOutcomeIndex", err)
		}
	})

	t.Run("double propose rejected", func(t *testing.T) {
		m := newTestMarket(t, end)
		if err := m.ProposeResolution(0, end, proposeWindow, disputeWindow); err != nil {
			t.Fatal(err)
		}
		err := m.ProposeResolution(1, end.Add(time.Minute), proposeWindow, disputeWindow)
		if !errors.Is(err, domain.ErrInvalidState) {
			t.Errorf("err = %v, want ErrInvalidState", err)
		}
	})
}

// ── Dispute ───────────────────────────────────────────────────────────────────

func TestMarket_Dispute(t *testing.T) {
	end := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

	proposed := func(t *testing.T) *domain.Market {
		m := newTestMarket(t, end)
		if err := m.ProposeResolution(0, end, proposeWindow, disputeWindow); err != nil {
			t.Fatal(err)
		}
		return m
	}

	t.Run("one second before deadline accepted", func(t *testing.T) {
		m := proposed(t)
		deadline := *m.ContestDeadline
		if err := m.Dispute(deadline.Add(-time.Second)); err != nil {
			t.Fatalf("err = %v, want nil", err)
		}
		if m.DisputeCount != 1 {
			t.Errorf("DisputeCount = %d, want 1", m.DisputeCount)
		}
		if m.Status != domain.StatusProposed {
			t.Errorf("dispute must not change status, got %s", m.Status)
		}
	})

	t.Run("exactly at deadline rejected", func(t *testing.T) {
		m := proposed(t)
		err := m.Dispute(*m.ContestDeadline)
		if !errors.Is(err, domain.ErrDisputeWindowClosed) {
			t.Errorf("err = %v, want ErrDisputeWindowClosed", err)
		}
	})

	t.Run("on open market rejected", func(t *testing.T) {
		m := newTestMarket(t, end)
		err := m.Dispute(end)
		if !errors.Is(err, domain.ErrInvalidState) {
			t.Errorf("err = %v, want ErrInvalidState", err)
		}
	})

	t.Run("disputes accumulate", func(t *testing.T) {
		m := proposed(t)
		at := m.ContestDeadline.Add(-time.Minute)
		for i := 0; i < 3; i++ {
			if err := m.Dispute(at); err != nil {
				t.Fatal(err)
			}
		}
		if m.DisputeCount != 3 {
			t.Errorf("DisputeCount = %d, want 3", m.DisputeCount)
		}
	})
}

// ── Finalize ──────────────────────────────────────────────────────────────────

func TestMarket_FinalizeNoDisputes(t *testing.T) {
	end := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

	proposed := func(t *testing.T) *domain.Market {
		m := newTestMarket(t, end)
		if err := m.ProposeResolution(1, end, proposeWindow, disputeWindow); err != nil {
			t.Fatal(err)
		}
		return m
	}

	t.Run("after deadline with zero disputes", func(t *testing.T) {
		m := proposed(t)
		if err := m.FinalizeNoDisputes(*m.ContestDeadline); err != nil {
			t.Fatalf("err = %v, want nil", err)
		}
		if m.Status != domain.StatusFinalized || !m.Resolved {
			t.Errorf("Status = %s resolved = %v, want finalized/true", m.Status, m.Resolved)
		}
		if m.WinningOutcome == nil || *m.WinningOutcome != 1 {
			t.Errorf("WinningOutcome = %v, want 1", m.WinningOutcome)
		}
	})

	t.Run("before deadline rejected", func(t *testing.T) {
		m := proposed(t)
		err := m.FinalizeNoDisputes(m.ContestDeadline.Add(-time.Second))
		if !errors.Is(err, domain.ErrTooEarly) {
			t.Errorf("err = %v, want ErrTooEarly", err)
		}
	})

	t.Run("single dispute forces admin path", func(t *testing.T) {
		m := proposed(t)
		if err := m.Dispute(m.ContestDeadline.Add(-time.Minute)); err != nil {
			t.Fatal(err)
		}
		err := m.FinalizeNoDisputes(m.ContestDeadline.Add(time.Minute))
		if !errors.Is(err, domain.ErrHasDisputes) {
			t.Errorf("err = %v, want ErrHasDisputes", err)
		}
	})

	t.Run("double finalize rejected", func(t *testing.T) {
		m := proposed(t)
		if err := m.FinalizeNoDisputes(*m.ContestDeadline); err != nil {
			t.Fatal(err)
		}
		err := m.FinalizeNoDisputes(m.ContestDeadline.Add(time.Hour))
		if !errors.Is(err, domain.ErrMarketResolved) {
			t.Errorf("err = %v, want ErrMarketResolved", err)
		}
	})
}

func TestMarket_AdminFinalize(t *testing.T) {
	end := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

	proposed := func(t *testing.T) *domain.Market {
		m := newTestMarket(t, end)
		if err := m.ProposeResolution(0, end, proposeWindow, disputeWindow); err != nil {
			t.Fatal(err)
		}
		return m
	}

	t.Run("rejected when undisputed", func(t *testing.T) {
		m := proposed(t)
		err := m.AdminFinalize(0, m.ContestDeadline.Add(time.Minute))
		if !errors.Is(err, domain.ErrNoDispute) {
			t.Errorf("err = %v, want ErrNoDispute", err)
		}
	})

	t.Run("may overturn the proposed outcome", func(t *testing.T) {
		m := proposed(t)
		if err := m.Dispute(m.ContestDeadline.Add(-time.Minute)); err != nil {
			t.Fatal(err)
		}
		if err := m.AdminFinalize(1, m.ContestDeadline.Add(time.Minute)); err != nil {
			t.Fatalf("err = %v, want nil", err)
		}
		if m.WinningOutcome == nil || *m.WinningOutcome != 1 {
			t.Errorf("WinningOutcome = %v, want 1 (overturned)", m.WinningOutcome)
		}
	})

	t.Run("rejected before deadline even with disputes", func(t *testing.T) {
		m := proposed(t)
		if err := m.Dispute(m.ContestDeadline.Add(-time.Minute)); err != nil {
			t.Fatal(err)
		}
		err := m.AdminFinalize(0, m.ContestDeadline.Add(-time.Second))
		if !errors.Is(err, domain.ErrTooEarly) {
			t.Errorf("err = %v, want ErrTooEarly", err)
		}
	})
}

// ── Cancel ────────────────────────────────────────────────────────────────────

func TestMarket_AdminCancel(t *testing.T) {
	end := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	m := newTestMarket(t, end)
	if err := m.ProposeResolution(0, end, proposeWindow, disputeWindow); err != nil {
		t.Fatal(err)
	}

	if err := m.AdminCancel(m.ContestDeadline.Add(time.Minute)); !errors.Is(err, domain.ErrNoDispute) {
		t.Fatalf("undisputed cancel err = %v, want ErrNoDispute", err)
	}

	if err := m.Dispute(m.ContestDeadline.Add(-time.Minute)); err != nil {
		t.Fatal(err)
	}
	if err := m.AdminCancel(m.ContestDeadline.Add(time.Minute)); err != nil {
		t.Fatalf("err = %v, want nil", err)
	}
	if m.Status != domain.StatusCancelled || !m.Cancelled {
		t.Errorf("Status = %s cancelled = %v, want cancelled/true", m.Status, m.Cancelled)
	}
	if m.Resolved {
		t.Error("cancelled market must not be marked resolved")
	}
}

func TestMarket_CancelNoProposal(t *testing.T) {
	end := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

	t.Run("before window lapse rejected", func(t *testing.T) {
		m := newTestMarket(t, end)
		err := m.CancelNoProposal(end.Add(proposeWindow-time.Second), proposeWindow)
		if !errors.Is(err, domain.ErrTooEarly) {
			t.Errorf("err = %v, want ErrTooEarly", err)
		}
	})

	t.Run("after window lapse accepted", func(t *testing.T) {
		m := newTestMarket(t, end)
		if err := m.CancelNoProposal(end.Add(proposeWindow), proposeWindow); err != nil {
			t.Fatalf("err = %v, want nil", err)
		}
		if m.Status != domain.StatusCancelled {
			t.Errorf("Status = %s, want cancelled", m.Status)
		}
	})

	t.Run("rejected once proposed", func(t *testing.T) {
		m := newTestMarket(t, end)
		if err := m.ProposeResolution(0, end, proposeWindow, disputeWindow); err != nil {
			t.Fatal(err)
		}
		err := m.CancelNoProposal(end.Add(proposeWindow+time.Hour), proposeWindow)
		if !errors.Is(err, domain.ErrInvalidState) {
			t.Errorf("err = %v, want ErrInvalidState", err)
		}
	})
}

// ── Position ──────────────────────────────────────────────────────────────────

func TestPosition_BuySellNetCost(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p := domain.NewPosition(uuid.New(), uuid.New(), 2, now)

	p.ApplyBuy(0, 10, 1_000, now)
	if p.SharesOf(0) != 10 || p.NetCost != 1_000 {
		t.Fatalf("after buy: shares=%d netCost=%d, want 10/1000", p.SharesOf(0), p.NetCost)
	}

	// Sell refund larger than the basis floors at zero.
	p.ApplySell(0, 10, 1_500, now.Add(time.Minute))
	if p.SharesOf(0) != 0 {
		t.Errorf("shares = %d, want 0", p.SharesOf(0))
	}
	if p.NetCost != 0 {
		t.Errorf("NetCost = %d, want 0 (floored)", p.NetCost)
	}
}

func TestPosition_InCooldown(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p := domain.NewPosition(uuid.New(), uuid.New(), 2, now)

	if p.InCooldown(now, 60) {
		t.Error("fresh position must not be in cooldown")
	}

	p.ApplyBuy(0, 1, 100, now)
	if !p.InCooldown(now.Add(59*time.Second), 60) {
		t.Error("59s after trade with 60s cooldown should be in cooldown")
	}
	if p.InCooldown(now.Add(60*time.Second), 60) {
		t.Error("60s after trade with 60s cooldown should be clear")
	}
	if p.InCooldown(now.Add(time.Second), 0) {
		t.Error("zero cooldown must never block")
	}
}
