package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/evetabi/settlement/internal/config"
	"github.com/evetabi/settlement/internal/domain"
	"github.com/evetabi/settlement/internal/engine"
	"github.com/evetabi/settlement/internal/ledger"
	"github.com/evetabi/settlement/internal/metrics"
	"github.com/evetabi/settlement/internal/repository"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// TradeService executes buys and sells. Each trade runs in a single
// PostgreSQL transaction: the market row lock serialises all concurrent
// activity on one market, so the engine sees a consistent quantity vector.
type TradeService struct {
	db           *sqlx.DB
	marketRepo   *repository.MarketRepository
	positionRepo *repository.PositionRepository
	walletRepo   *repository.WalletRepository
	eventRepo    *repository.EventRepository
	cfg          *config.Config
	cache        SummaryCache
	broadcaster  Broadcaster
}

// NewTradeService creates a TradeService.
func NewTradeService(
	db *sqlx.DB,
	marketRepo *repository.MarketRepository,
	positionRepo *repository.PositionRepository,
	walletRepo *repository.WalletRepository,
	eventRepo *repository.EventRepository,
	cache SummaryCache,
	cfg *config.Config,
) *TradeService {
	return &TradeService{
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
func (s *TradeService) SetBroadcaster(b Broadcaster) { s.broadcaster = b }

// TradeRequest carries the validated inputs of a buy or sell.
type TradeRequest struct {
	UserID   uuid.UUID
	MarketID uuid.UUID
	Outcome  int
	Shares   int64
	// Limit is the slippage bound: max total cost on buys, min net refund
	// on sells. Zero disables the check.
	Limit int64
}

// Buy purchases shares. On success the trader's wallet is debited for the
// cost plus fees, the pool credited, and the receipt returned.
func (s *TradeService) Buy(ctx context.Context, req TradeRequest) (*engine.TradeReceipt, error) {
	return s.trade(ctx, req, false)
}

// Sell returns shares to the market. The trader is credited with the gross
// refund minus fees.
func (s *TradeService) Sell(ctx context.Context, req TradeRequest) (*engine.TradeReceipt, error) {
	return s.trade(ctx, req, true)
}

func (s *TradeService) trade(ctx context.Context, req TradeRequest, sell bool) (*engine.TradeReceipt, error) {
	op := "trade_service.Buy"
	if sell {
		op = "trade_service.Sell"
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: begin tx: %w", op, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	// Market lock first; wallets are only ever locked while holding it, so
	// the lock order is total and deadlock-free.
	m, err := s.marketRepo.GetForUpdate(ctx, tx, req.MarketID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	now := time.Now().UTC()
	pos, err := s.positionRepo.GetForUpdate(ctx, tx, req.MarketID, req.UserID)
	created := false
	if err != nil {
		if !errors.Is(err, domain.ErrPositionNotFound) {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		pos = domain.NewPosition(m.ID, req.UserID, m.OutcomeCount, now)
		created = true
		err = nil
	}

	var receipt *engine.TradeReceipt
	if sell {
		receipt, err = engine.Sell(m, pos, req.Outcome, req.Shares, req.Limit, now)
	} else {
		receipt, err = engine.Buy(m, pos, req.Outcome, req.Shares, req.Limit, now)
	}
	if err != nil {
		return nil, err
	}

	wallets, err := s.resolveWallets(ctx, req.UserID, req.MarketID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var plan []ledger.Entry
	eventType := domain.EventSharesBought
	if sell {
		plan = ledger.PlanSell(receipt, wallets, m.ID)
		eventType = domain.EventSharesSold
	} else {
		plan = ledger.PlanBuy(receipt, wallets, m.ID)
	}
	if err = ledger.Apply(ctx, s.walletRepo.Bind(tx), plan); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err = s.marketRepo.Save(ctx, tx, m); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if created {
		err = s.positionRepo.Create(ctx, tx, pos)
	} else {
		err = s.positionRepo.Save(ctx, tx, pos)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	event, err := domain.NewEvent(m.ID, req.UserID, eventType, domain.TradePayload{
		Outcome:     receipt.Outcome,
		Shares:      receipt.Shares,
		GrossAmount: receipt.Cost,
		PlatformFee: receipt.PlatformFee,
		CreatorFee:  receipt.CreatorFee,
		NetAmount:   receipt.NetAmount,
		Supply:      receipt.Supply,
	}, now)
	if err != nil {
		return nil, fmt.Errorf("%s: event: %w", op, err)
	}
	if err = s.eventRepo.Append(ctx, tx, event); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s: commit: %w", op, err)
	}

	side := "buy"
	if sell {
		side = "sell"
	}
	metrics.ObserveTrade(side, string(m.Curve), receipt.Shares, receipt.TotalAmount)

	go s.postTradeAsync(m.ID, side, receipt.Outcome, receipt.Shares)
	return receipt, nil
}

// resolveWallets looks up the three parties of a trade. Reads only; row
// locks are taken inside ledger.Apply in a fixed order.
func (s *TradeService) resolveWallets(ctx context.Context, userID, marketID uuid.UUID) (ledger.Wallets, error) {
	trader, err := s.walletRepo.GetByUserID(ctx, userID)
	if err != nil {
		return ledger.Wallets{}, err
	}
	pool, err := s.walletRepo.GetMarketPool(ctx, marketID)
	if err != nil {
		return ledger.Wallets{}, err
	}
	platform, err := s.walletRepo.GetPlatformWallet(ctx)
	if err != nil {
		return ledger.Wallets{}, err
	}
	return ledger.Wallets{Trader: trader.ID, Pool: pool.ID, Platform: platform.ID}, nil
}

// postTradeAsync refreshes the summary cache and pushes WS updates after a
// committed trade. Failures are logged, never surfaced to the trader.
func (s *TradeService) postTradeAsync(marketID uuid.UUID, side string, outcome int, shares int64) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	m, err := s.marketRepo.GetByID(ctx, marketID)
	if err != nil {
		slog.Warn("post-trade refresh failed", "market_id", marketID, "err", err)
		return
	}
	summary, err := Summarize(m)
	if err != nil {
		slog.Warn("post-trade summarize failed", "market_id", marketID, "err", err)
		return
	}
	if s.cache != nil {
		s.cache.Set(ctx, summary)
	}
	if s.broadcaster != nil {
		s.broadcaster.BroadcastTrade(marketID, side, outcome, shares, summary.Prices)
		s.broadcaster.BroadcastMarketUpdate(summary)
	}
}

// GetPosition returns the caller's position in a market.
func (s *TradeService) GetPosition(ctx context.Context, marketID, userID uuid.UUID) (*domain.Position, error) {
	pos, err := s.positionRepo.Get(ctx, marketID, userID)
	if err != nil {
		return nil, fmt.Errorf("trade_service.GetPosition: %w", err)
	}
	return pos, nil
}

// GetMyPositions returns the caller's positions across markets, paginated.
func (s *TradeService) GetMyPositions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Position, error) {
	positions, err := s.positionRepo.GetByUserID(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("trade_service.GetMyPositions: %w", err)
	}
	return positions, nil
}

// Quote prices a prospective trade without executing it.
func (s *TradeService) Quote(ctx context.Context, marketID uuid.UUID, outcome int, shares int64, sell bool) (int64, error) {
	m, err := s.marketRepo.GetByID(ctx, marketID)
	if err != nil {
		return 0, fmt.Errorf("trade_service.Quote: %w", err)
	}
	if shares <= 0 {
		return 0, domain.ErrInvalidShares
	}
	if err := m.CheckOutcome(outcome); err != nil {
		return 0, err
	}
	model, err := m.PricingModel()
	if err != nil {
		return 0, fmt.Errorf("trade_service.Quote: %w", err)
	}
	if sell {
		refund, err := model.SellRefund(m.QuantityVector(), outcome, uint64(shares))
		if err != nil {
			return 0, fmt.Errorf("trade_service.Quote: %w", err)
		}
		return int64(refund), nil
	}
	cost, err := model.BuyCost(m.QuantityVector(), outcome, uint64(shares))
	if err != nil {
		return 0, fmt.Errorf("trade_service.Quote: %w", err)
	}
	return int64(cost), nil
}
