package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/evetabi/settlement/internal/domain"
	"github.com/evetabi/settlement/internal/engine"
	"github.com/evetabi/settlement/internal/ledger"
	"github.com/evetabi/settlement/internal/metrics"
	"github.com/evetabi/settlement/internal/repository"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// ClaimService moves money out of settled markets: winnings after
// finalization, cost-basis refunds after cancellation, and the creator's
// escrowed fees.
type ClaimService struct {
	db           *sqlx.DB
	marketRepo   *repository.MarketRepository
	positionRepo *repository.PositionRepository
	walletRepo   *repository.WalletRepository
	eventRepo    *repository.EventRepository
}

// NewClaimService builds a ClaimService.
func NewClaimService(
	db *sqlx.DB,
	marketRepo *repository.MarketRepository,
	positionRepo *repository.PositionRepository,
	walletRepo *repository.WalletRepository,
	eventRepo *repository.EventRepository,
) *ClaimService {
	return &ClaimService{
		db:           db,
		marketRepo:   marketRepo,
		positionRepo: positionRepo,
		walletRepo:   walletRepo,
		eventRepo:    eventRepo,
	}
}

// ClaimWinnings pays the caller their pro-rata share of the settled pool.
// The payout base is the pool snapshot taken at finalization, so claim order
// never changes anyone's amount.
func (s *ClaimService) ClaimWinnings(ctx context.Context, marketID, userID uuid.UUID) (*engine.ClaimReceipt, error) {
	const op = "claim_service.ClaimWinnings"

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: begin tx: %w", op, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	m, err := s.marketRepo.GetForUpdate(ctx, tx, marketID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	p, err := s.positionRepo.GetForUpdate(ctx, tx, marketID, userID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	receipt, err := engine.ClaimWinnings(m, p, m.SettledPool, now)
	if err != nil {
		return nil, err
	}

	wallets, err := s.resolveWallets(ctx, userID, marketID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = ledger.Apply(ctx, s.walletRepo.Bind(tx), ledger.PlanClaim(receipt, domain.TxWinnings, wallets, marketID)); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = s.positionRepo.Save(ctx, tx, p); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = s.appendClaimEvent(ctx, tx, m.ID, userID, domain.EventWinningsClaimed, receipt, now); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s: commit: %w", op, err)
	}

	metrics.ObserveClaim("winnings", receipt.Amount)
	slog.Info("winnings claimed", "market_id", marketID, "user_id", userID, "amount", receipt.Amount)
	return receipt, nil
}

// ClaimRefund returns the caller's cost basis after a cancellation. Fees are
// sunk, so basis refunds never exceed what the pool actually holds.
func (s *ClaimService) ClaimRefund(ctx context.Context, marketID, userID uuid.UUID) (*engine.ClaimReceipt, error) {
	const op = "claim_service.ClaimRefund"

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: begin tx: %w", op, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	m, err := s.marketRepo.GetForUpdate(ctx, tx, marketID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	p, err := s.positionRepo.GetForUpdate(ctx, tx, marketID, userID)
	if err != nil {
		return nil, err
	}

	pool, err := s.walletRepo.GetMarketPool(ctx, marketID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	now := time.Now().UTC()
	receipt, err := engine.ClaimRefund(m, p, pool.Balance, now)
	if err != nil {
		return nil, err
	}

	wallets, err := s.resolveWallets(ctx, userID, marketID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = ledger.Apply(ctx, s.walletRepo.Bind(tx), ledger.PlanClaim(receipt, domain.TxRefund, wallets, marketID)); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = s.positionRepo.Save(ctx, tx, p); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = s.appendClaimEvent(ctx, tx, m.ID, userID, domain.EventRefundClaimed, receipt, now); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s: commit: %w", op, err)
	}

	metrics.ObserveClaim("refund", receipt.Amount)
	slog.Info("refund claimed", "market_id", marketID, "user_id", userID, "amount", receipt.Amount)
	return receipt, nil
}

// ClaimCreatorFees pays the escrowed creator fees out of the market pool.
// Only the market creator may claim, and only after finalization.
func (s *ClaimService) ClaimCreatorFees(ctx context.Context, marketID, userID uuid.UUID) (*engine.ClaimReceipt, error) {
	const op = "claim_service.ClaimCreatorFees"

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: begin tx: %w", op, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	m, err := s.marketRepo.GetForUpdate(ctx, tx, marketID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if m.Creator != userID {
		err = domain.ErrForbidden
		return nil, err
	}

	now := time.Now().UTC()
	receipt, err := engine.ClaimCreatorFees(m, now)
	if err != nil {
		return nil, err
	}

	creatorWallet, err := s.walletRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	pool, err := s.walletRepo.GetMarketPool(ctx, marketID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err = ledger.Apply(ctx, s.walletRepo.Bind(tx), ledger.PlanCreatorFees(receipt, creatorWallet.ID, pool.ID, marketID)); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = s.marketRepo.Save(ctx, tx, m); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = s.appendClaimEvent(ctx, tx, m.ID, userID, domain.EventCreatorFeesClaimed, receipt, now); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s: commit: %w", op, err)
	}

	metrics.ObserveClaim("creator_fees", receipt.Amount)
	slog.Info("creator fees claimed", "market_id", marketID, "creator", userID, "amount", receipt.Amount)
	return receipt, nil
}

func (s *ClaimService) appendClaimEvent(ctx context.Context, tx *sqlx.Tx, marketID, actor uuid.UUID, typ domain.EventType, r *engine.ClaimReceipt, now time.Time) error {
	event, err := domain.NewEvent(marketID, actor, typ, domain.ClaimPayload{
		Amount:  r.Amount,
		Outcome: r.Outcome,
		Shares:  r.Shares,
	}, now)
	if err != nil {
		return err
	}
	return s.eventRepo.Append(ctx, tx, event)
}

func (s *ClaimService) resolveWallets(ctx context.Context, userID, marketID uuid.UUID) (ledger.Wallets, error) {
	trader, err := s.walletRepo.GetByUserID(ctx, userID)
	if err != nil {
		return ledger.Wallets{}, err
	}
	pool, err := s.walletRepo.GetMarketPool(ctx, marketID)
	if err != nil {
		return ledger.Wallets{}, err
	}
	return ledger.Wallets{Trader: trader.ID, Pool: pool.ID}, nil
}
