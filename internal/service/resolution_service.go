package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/evetabi/settlement/internal/config"
	"github.com/evetabi/settlement/internal/domain"
	"github.com/evetabi/settlement/internal/metrics"
	"github.com/evetabi/settlement/internal/repository"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// ResolutionService drives the market lifecycle: proposal, disputes and the
// four terminal transitions. Every operation is caller-triggered — there is
// no background resolver — and runs under the market row lock.
type ResolutionService struct {
	db           *sqlx.DB
	marketRepo   *repository.MarketRepository
	positionRepo *repository.PositionRepository
	walletRepo   *repository.WalletRepository
	eventRepo    *repository.EventRepository
	cfg          *config.Config
	cache        SummaryCache
	broadcaster  Broadcaster
}

// NewResolutionService builds a ResolutionService.
func NewResolutionService(
	db *sqlx.DB,
	marketRepo *repository.MarketRepository,
	positionRepo *repository.PositionRepository,
	walletRepo *repository.WalletRepository,
	eventRepo *repository.EventRepository,
	cache SummaryCache,
	cfg *config.Config,
) *ResolutionService {
	return &ResolutionService{
		db:           db,
		marketRepo:   marketRepo,
		positionRepo: positionRepo,
		walletRepo:   walletRepo,
		eventRepo:    eventRepo,
		cache:        cache,
		cfg:          cfg,
	}
}

// SetBroadcaster injects the WS Hub dependency post-construction.
func (s *ResolutionService) SetBroadcaster(b Broadcaster) { s.broadcaster = b }

// ──────────────────────────────────────────────────────────────────────────────
// Propose / Dispute
// ──────────────────────────────────────────────────────────────────────────────

// Propose records the creator's resolution proposal and opens the dispute
// window. Only the market creator may propose.
func (s *ResolutionService) Propose(ctx context.Context, marketID, actorID uuid.UUID, outcome int) error {
	return s.transition(ctx, "resolution_service.Propose", marketID, func(m *domain.Market, now time.Time) (*domain.Event, error) {
		if m.Creator != actorID {
			return nil, domain.ErrForbidden
		}
		if err := m.ProposeResolution(outcome, now, s.cfg.Settlement.ProposeWindow, s.cfg.Settlement.DisputeWindow); err != nil {
			return nil, err
		}
		return domain.NewEvent(m.ID, actorID, domain.EventResolutionProposed, domain.ResolutionPayload{
			Outcome:         outcome,
			ContestDeadline: m.ContestDeadline,
		}, now)
	})
}

// Dispute flags the pending proposal. Any authenticated actor may dispute;
// a dispute only routes the market to admin adjudication, so holding a
// position is not required to raise one.
func (s *ResolutionService) Dispute(ctx context.Context, marketID, actorID uuid.UUID) error {
	return s.transition(ctx, "resolution_service.Dispute", marketID, s.disputeMutation(actorID))
}

// disputeMutation increments the dispute counter and records who raised it.
func (s *ResolutionService) disputeMutation(actorID uuid.UUID) func(*domain.Market, time.Time) (*domain.Event, error) {
	return func(m *domain.Market, now time.Time) (*domain.Event, error) {
		if err := m.Dispute(now); err != nil {
			return nil, err
		}
		return domain.NewEvent(m.ID, actorID, domain.EventResolutionDisputed, domain.ResolutionPayload{
			Outcome:         int(*m.ProposedOutcome),
			ContestDeadline: m.ContestDeadline,
			DisputeCount:    m.DisputeCount,
		}, now)
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Terminal transitions
// ──────────────────────────────────────────────────────────────────────────────

// FinalizeNoDisputes settles an uncontested proposal. Permissionless — any
// caller may trigger it once the contest deadline passes.
func (s *ResolutionService) FinalizeNoDisputes(ctx context.Context, marketID, actorID uuid.UUID) error {
	return s.finalize(ctx, "resolution_service.FinalizeNoDisputes", marketID, actorID, func(m *domain.Market, now time.Time) error {
		return m.FinalizeNoDisputes(now)
	})
}

// AdminFinalize settles a disputed proposal with the admin's outcome. The
// caller must be the configured settlement authority; back-office roles are
// not enough, since roles live in a mutable column.
func (s *ResolutionService) AdminFinalize(ctx context.Context, marketID, adminID uuid.UUID, outcome int) error {
	if !s.cfg.IsAdmin(adminID) {
		return domain.ErrForbidden
	}
	return s.finalize(ctx, "resolution_service.AdminFinalize", marketID, adminID, func(m *domain.Market, now time.Time) error {
		return m.AdminFinalize(outcome, now)
	})
}

// finalize runs either finalization path, snapshots the distributable pool
// and emits the finalized event.
func (s *ResolutionService) finalize(ctx context.Context, op string, marketID, actorID uuid.UUID, apply func(*domain.Market, time.Time) error) error {
	err := s.transition(ctx, op, marketID, func(m *domain.Market, now time.Time) (*domain.Event, error) {
		if err := apply(m, now); err != nil {
			return nil, err
		}

		pool, err := s.walletRepo.GetMarketPool(ctx, marketID)
		if err != nil {
			return nil, err
		}
		m.SettledPool = pool.Balance - m.CreatorFeeEscrow
		if m.SettledPool < 0 {
			return nil, domain.ErrInsufficientPool
		}

		return domain.NewEvent(m.ID, actorID, domain.EventMarketFinalized, domain.ResolutionPayload{
			Outcome:      int(*m.WinningOutcome),
			DisputeCount: m.DisputeCount,
		}, now)
	})
	if err == nil {
		metrics.ObserveSettlement("finalized")
	}
	return err
}

// AdminCancel voids a disputed market past its deadline. Same authority
// check as AdminFinalize.
func (s *ResolutionService) AdminCancel(ctx context.Context, marketID, adminID uuid.UUID) error {
	if !s.cfg.IsAdmin(adminID) {
		return domain.ErrForbidden
	}
	err := s.transition(ctx, "resolution_service.AdminCancel", marketID, func(m *domain.Market, now time.Time) (*domain.Event, error) {
		if err := m.AdminCancel(now); err != nil {
			return nil, err
		}
		return domain.NewEvent(m.ID, adminID, domain.EventMarketCancelled,
			domain.CancelPayload{Reason: domain.CancelAdminReason}, now)
	})
	if err == nil {
		metrics.ObserveSettlement("cancelled_admin")
	}
	return err
}

// CancelNoProposal voids an abandoned market. Permissionless.
func (s *ResolutionService) CancelNoProposal(ctx context.Context, marketID, actorID uuid.UUID) error {
	err := s.transition(ctx, "resolution_service.CancelNoProposal", marketID, func(m *domain.Market, now time.Time) (*domain.Event, error) {
		if err := m.CancelNoProposal(now, s.cfg.Settlement.ProposeWindow); err != nil {
			return nil, err
		}
		return domain.NewEvent(m.ID, actorID, domain.EventMarketCancelled,
			domain.CancelPayload{Reason: domain.CancelNoProposalReason}, now)
	})
	if err == nil {
		metrics.ObserveSettlement("cancelled_no_proposal")
	}
	return err
}

// ──────────────────────────────────────────────────────────────────────────────
// Shared transition plumbing
// ──────────────────────────────────────────────────────────────────────────────

// transition loads the market under a row lock, applies the mutation, saves
// the market, appends the returned event and commits.
func (s *ResolutionService) transition(ctx context.Context, op string, marketID uuid.UUID, apply func(*domain.Market, time.Time) (*domain.Event, error)) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin tx: %w", op, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	m, err := s.marketRepo.GetForUpdate(ctx, tx, marketID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	now := time.Now().UTC()
	event, err := apply(m, now)
	if err != nil {
		return err
	}
	m.UpdatedAt = now

	if err = s.marketRepo.Save(ctx, tx, m); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err = s.eventRepo.Append(ctx, tx, event); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", op, err)
	}

	slog.Info("market transition", "op", op, "market_id", marketID, "status", m.Status)
	go s.postTransitionAsync(marketID)
	return nil
}

// postTransitionAsync invalidates the cache and pushes the new summary,
// plus a terminal-transition notice when the market just settled or voided.
func (s *ResolutionService) postTransitionAsync(marketID uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if s.cache != nil {
		s.cache.Invalidate(ctx, marketID)
	}
	if s.broadcaster == nil {
		return
	}
	m, err := s.marketRepo.GetByID(ctx, marketID)
	if err != nil {
		slog.Warn("post-transition refresh failed", "market_id", marketID, "err", err)
		return
	}
	summary, err := Summarize(m)
	if err != nil {
		slog.Warn("post-transition summarize failed", "market_id", marketID, "err", err)
		return
	}
	s.broadcaster.BroadcastMarketUpdate(summary)

	switch m.Status {
	case domain.StatusFinalized:
		if m.WinningOutcome != nil {
			s.broadcaster.BroadcastMarketFinalized(m.ID, int(*m.WinningOutcome), m.SettledPool)
		}
	case domain.StatusCancelled:
		// a cancelled market with no proposal on record was abandoned
		reason := domain.CancelAdminReason
		if m.ProposedOutcome == nil {
			reason = domain.CancelNoProposalReason
		}
		s.broadcaster.BroadcastMarketCancelled(m.ID, string(reason))
	}
}

// ListDisputed returns the admin adjudication queue.
func (s *ResolutionService) ListDisputed(ctx context.Context) ([]*domain.Market, error) {
	markets, err := s.marketRepo.ListDisputed(ctx, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("resolution_service.ListDisputed: %w", err)
	}
	return markets, nil
}

// ListAbandoned returns markets eligible for the permissionless cancel.
func (s *ResolutionService) ListAbandoned(ctx context.Context) ([]*domain.Market, error) {
	markets, err := s.marketRepo.ListAbandoned(ctx, time.Now().UTC(), s.cfg.Settlement.ProposeWindow)
	if err != nil {
		return nil, fmt.Errorf("resolution_service.ListAbandoned: %w", err)
	}
	return markets, nil
}
