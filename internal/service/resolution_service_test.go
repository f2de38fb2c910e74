package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/evetabi/settlement/internal/config"
	"github.com/evetabi/settlement/internal/domain"
	"github.com/evetabi/settlement/internal/pricing"
)

// TestDisputeMutation_OpenToAnyActor checks that disputing needs no position
// in the market: the mutation runs against a zero-value service, so any
// lookup beyond the market row itself would blow up here.
func TestDisputeMutation_OpenToAnyActor(t *testing.T) {
	end := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
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
	if err := params.Validate(end.Add(-time.Hour)); err != nil {
		t.Fatal(err)
	}
	m := domain.NewMarket(params, end.Add(-time.Hour))
	if err := m.ProposeResolution(0, end, domain.DefaultProposeWindow, domain.DefaultDisputeWindow); err != nil {
		t.Fatal(err)
	}

	bystander := uuid.New() // never traded, holds no position
	svc := &ResolutionService{}
	event, err := svc.disputeMutation(bystander)(m, m.ContestDeadline.Add(-time.Minute))
	if err != nil {
		t.Fatalf("dispute by a non-participant: err = %v, want nil", err)
	}
	if m.DisputeCount != 1 {
		t.Errorf("DisputeCount = %d, want 1", m.DisputeCount)
	}
	if event.Actor != bystander {
		t.Errorf("event actor = %s, want %s", event.Actor, bystander)
	}
	if event.Type != domain.EventResolutionDisputed {
		t.Errorf("event type = %s, want %s", event.Type, domain.EventResolutionDisputed)
	}
}

// TestAdminTransitions_RequireAuthority checks that admin settlement rejects
// everyone but the configured authority before touching the database.
func TestAdminTransitions_RequireAuthority(t *testing.T) {
	cfg := &config.Config{}
	cfg.Settlement.AdminUserID = uuid.New()
	svc := &ResolutionService{cfg: cfg}

	ctx := context.Background()
	impostor := uuid.New()

	if err := svc.AdminFinalize(ctx, uuid.New(), impostor, 0); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("AdminFinalize err = %v, want ErrForbidden", err)
	}
	if err := svc.AdminCancel(ctx, uuid.New(), impostor); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("AdminCancel err = %v, want ErrForbidden", err)
	}
	if err := svc.AdminFinalize(ctx, uuid.New(), uuid.Nil, 0); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("AdminFinalize with zero id err = %v, want ErrForbidden", err)
	}
}
