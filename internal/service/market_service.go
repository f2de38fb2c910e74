package service

import (
	"context"
	"fmt"
	"time"

	"github.com/evetabi/settlement/internal/config"
	"github.com/evetabi/settlement/internal/domain"
	"github.com/evetabi/settlement/internal/pricing"
	"github.com/evetabi/settlement/internal/repository"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// ──────────────────────────────────────────────────────────────────────────────
// Injected interfaces — declared here to break import cycles
// ──────────────────────────────────────────────────────────────────────────────

// Broadcaster is the interface the services need from the WS hub.
type Broadcaster interface {
	BroadcastMarketUpdate(summary *domain.MarketSummary)
	BroadcastTrade(marketID uuid.UUID, side string, outcome int, shares int64, prices []decimal.Decimal)
	BroadcastMarketFinalized(marketID uuid.UUID, winningOutcome int, settledPool int64)
	BroadcastMarketCancelled(marketID uuid.UUID, reason string)
	BroadcastNewMarket(m *domain.Market)
}

// SummaryCache is the minimal interface onto the redis summary cache.
// A nil cache disables caching entirely.
type SummaryCache interface {
	Get(ctx context.Context, marketID uuid.UUID) (*domain.MarketSummary, bool)
	Set(ctx context.Context, summary *domain.MarketSummary)
	Invalidate(ctx context.Context, marketID uuid.UUID)
}

// ──────────────────────────────────────────────────────────────────────────────
// MarketService
// ──────────────────────────────────────────────────────────────────────────────

// MarketService handles market creation and read paths. Lifecycle
// transitions live in ResolutionService, trading in TradeService.
type MarketService struct {
	db          *sqlx.DB
	marketRepo  *repository.MarketRepository
	walletRepo  *repository.WalletRepository
	eventRepo   *repository.EventRepository
	cache       SummaryCache
	cfg         *config.Config
	broadcaster Broadcaster // injected after WS Hub is built
}

// SetBroadcaster injects the WS Hub dependency post-construction.
func (s *MarketService) SetBroadcaster(b Broadcaster) { s.broadcaster = b }

// NewMarketService creates a MarketService. cache may be nil.
func NewMarketService(
	db *sqlx.DB,
	marketRepo *repository.MarketRepository,
	walletRepo *repository.WalletRepository,
	eventRepo *repository.EventRepository,
	cache SummaryCache,
	cfg *config.Config,
) *MarketService {
	return &MarketService{
		db:         db,
		marketRepo: marketRepo,
		walletRepo: walletRepo,
		eventRepo:  eventRepo,
		cache:      cache,
		cfg:        cfg,
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// CreateMarket
// ──────────────────────────────────────────────────────────────────────────────

// CreateMarket validates the parameters and atomically persists the market,
// its pool wallet and the creation event.
func (s *MarketService) CreateMarket(ctx context.Context, params domain.CreateMarketParams) (*domain.Market, error) {
	now := time.Now().UTC()
	if err := params.Validate(now); err != nil {
		return nil, err
	}
	m := domain.NewMarket(params, now)

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("market_service.CreateMarket: begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.marketRepo.Create(ctx, tx, m); err != nil {
		return nil, fmt.Errorf("market_service.CreateMarket: %w", err)
	}

	// Every market gets its own pool wallet; all trade lamports flow
	// through it and every payout drains it.
	poolType := domain.WalletTypeMarketPool
	marketID := m.ID
	pool := &domain.Wallet{
		ID:         uuid.New(),
		WalletType: &poolType,
		MarketID:   &marketID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err = s.walletRepo.Create(ctx, tx, pool); err != nil {
		return nil, fmt.Errorf("market_service.CreateMarket: pool wallet: %w", err)
	}

	event, err := domain.NewEvent(m.ID, params.Creator, domain.EventMarketCreated, map[string]any{
		"market_type":      m.MarketType,
		"outcome_names":    []string(m.OutcomeNames),
		"curve":            m.Curve,
		"liquidity":        m.LiquidityLamports,
		"resolution_time":  m.ResolutionTime,
		"max_position_bps": m.MaxPositionBps,
		"max_trade_shares": m.MaxTradeShares,
		"cooldown_seconds": m.CooldownSeconds,
	}, now)
	if err != nil {
		return nil, fmt.Errorf("market_service.CreateMarket: event: %w", err)
	}
	if err = s.eventRepo.Append(ctx, tx, event); err != nil {
		return nil, fmt.Errorf("market_service.CreateMarket: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("market_service.CreateMarket: commit: %w", err)
	}

	if s.broadcaster != nil {
		s.broadcaster.BroadcastNewMarket(m)
	}
	return m, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Read paths
// ──────────────────────────────────────────────────────────────────────────────

// GetMarket fetches a market by ID.
func (s *MarketService) GetMarket(ctx context.Context, id uuid.UUID) (*domain.Market, error) {
	m, err := s.marketRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("market_service.GetMarket: %w", err)
	}
	return m, nil
}

// ListMarkets returns a paginated list of markets.
// status="" returns all statuses.  Returns (markets, total, error).
func (s *MarketService) ListMarkets(ctx context.Context, limit, offset int, status string) ([]*domain.Market, int, error) {
	markets, total, err := s.marketRepo.List(ctx, limit, offset, status)
	if err != nil {
		return nil, 0, fmt.Errorf("market_service.ListMarkets: %w", err)
	}
	return markets, total, nil
}

// GetSummary returns a market's summary with current per-outcome prices,
// served from the redis cache when warm.
func (s *MarketService) GetSummary(ctx context.Context, id uuid.UUID) (*domain.MarketSummary, error) {
	if s.cache != nil {
		if summary, ok := s.cache.Get(ctx, id); ok {
			return summary, nil
		}
	}

	m, err := s.marketRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("market_service.GetSummary: %w", err)
	}
	summary, err := Summarize(m)
	if err != nil {
		return nil, fmt.Errorf("market_service.GetSummary: %w", err)
	}

	if s.cache != nil {
		s.cache.Set(ctx, summary)
	}
	return summary, nil
}

// ListOpenSummaries returns summaries for every open market, for the WS
// broadcast loop.
func (s *MarketService) ListOpenSummaries(ctx context.Context) ([]*domain.MarketSummary, error) {
	markets, err := s.marketRepo.ListOpen(ctx)
	if err != nil {
		return nil, fmt.Errorf("market_service.ListOpenSummaries: %w", err)
	}
	summaries := make([]*domain.MarketSummary, 0, len(markets))
	for _, m := range markets {
		summary, err := Summarize(m)
		if err != nil {
			return nil, fmt.Errorf("market_service.ListOpenSummaries: market %s: %w", m.ID, err)
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// GetEvents returns a market's audit event stream.
func (s *MarketService) GetEvents(ctx context.Context, marketID uuid.UUID, limit, offset int) ([]*domain.Event, error) {
	events, err := s.eventRepo.GetByMarket(ctx, marketID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("market_service.GetEvents: %w", err)
	}
	return events, nil
}

// Summarize computes a market's current prices and builds its summary.
func Summarize(m *domain.Market) (*domain.MarketSummary, error) {
	model, err := m.PricingModel()
	if err != nil {
		return nil, err
	}
	prices, err := pricing.Prices(model, m.QuantityVector())
	if err != nil {
		return nil, err
	}
	summary := m.ToSummary(prices)
	return &summary, nil
}
