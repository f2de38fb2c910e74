package handler

import (
	"net/http"

	"github.com/evetabi/settlement/internal/config"
	"github.com/evetabi/settlement/internal/domain"
	"github.com/evetabi/settlement/internal/repository"
	"github.com/evetabi/settlement/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RiskHandler serves /admin/risk endpoints: position concentration per
// market and pool solvency across the book.
type RiskHandler struct {
	marketSvc    *service.MarketService
	marketRepo   *repository.MarketRepository
	positionRepo *repository.PositionRepository
	walletRepo   *repository.WalletRepository
	cfg          *config.Config
}

// NewRiskHandler creates a RiskHandler.
func NewRiskHandler(
	marketSvc *service.MarketService,
	marketRepo *repository.MarketRepository,
	positionRepo *repository.PositionRepository,
	walletRepo *repository.WalletRepository,
	cfg *config.Config,
) *RiskHandler {
	return &RiskHandler{
		marketSvc:    marketSvc,
		marketRepo:   marketRepo,
		positionRepo: positionRepo,
		walletRepo:   walletRepo,
		cfg:          cfg,
	}
}

// concentrationRow is one holder's share of a market's outstanding supply.
type concentrationRow struct {
	UserID     uuid.UUID `json:"user_id"`
	Outcome    int       `json:"outcome"`
	Shares     int64     `json:"shares"`
	HoldingBps int64     `json:"holding_bps"`
	AtCap      bool      `json:"at_cap"`
}

// Concentration godoc
// GET /admin/risk/markets/:id/concentration
// Lists holders ranked by their largest single-outcome stake, expressed in
// basis points of total outstanding supply, against the market's cap.
func (h *RiskHandler) Concentration(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid market id")
		return
	}

	ctx := c.Request.Context()
	market, err := h.marketSvc.GetMarket(ctx, id)
	if err != nil {
		respondAdminDomainError(c, err)
		return
	}
	positions, err := h.positionRepo.GetByMarket(ctx, id, 500, 0)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", err.Error())
		return
	}

	supply := market.TotalSupply()
	rows := make([]concentrationRow, 0, len(positions))
	for _, p := range positions {
		// rank by the holder's biggest single-outcome stake
		var topOutcome int
		var topShares int64
		for i := range market.Quantities {
			if s := p.SharesOf(i); s > topShares {
				topShares, topOutcome = s, i
			}
		}
		if topShares == 0 {
			continue
		}
		var bps int64
		if supply > 0 {
			bps = topShares * 10000 / supply
		}
		rows = append(rows, concentrationRow{
			UserID:     p.UserID,
			Outcome:    topOutcome,
			Shares:     topShares,
			HoldingBps: bps,
			AtCap:      market.MaxPositionBps != domain.PositionCapDisabled && bps >= int64(market.MaxPositionBps),
		})
	}

	respondSuccess(c, http.StatusOK, gin.H{
		"market_id":        id,
		"total_supply":     supply,
		"max_position_bps": market.MaxPositionBps,
		"holders":          rows,
	})
}

// solvencyRow is a market pool's balance against its obligations.
type solvencyRow struct {
	MarketID      uuid.UUID           `json:"market_id"`
	Status        domain.MarketStatus `json:"status"`
	PoolBalance   int64               `json:"pool_balance"`
	CreatorEscrow int64               `json:"creator_escrow"`
	SettledPool   int64               `json:"settled_pool"`
	Unclaimed     int                 `json:"unclaimed_positions"`
	Shortfall     bool                `json:"shortfall"`
}

// Solvency godoc
// GET /admin/risk/solvency?status=finalized&page=1&limit=50
// Compares each market pool's balance against the creator fee escrow and,
// for finalized markets, the count of positions still waiting to claim. A
// shortfall flags a pool that cannot cover its escrow.
func (h *RiskHandler) Solvency(c *gin.Context) {
	status := c.DefaultQuery("status", string(domain.StatusFinalized))
	page, limit := adminPagination(c)
	offset := (page - 1) * limit

	ctx := c.Request.Context()
	markets, total, err := h.marketRepo.List(ctx, limit, offset, status)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", err.Error())
		return
	}

	rows := make([]solvencyRow, 0, len(markets))
	for _, m := range markets {
		row := solvencyRow{
			MarketID:      m.ID,
			Status:        m.Status,
			CreatorEscrow: m.CreatorFeeEscrow,
			SettledPool:   m.SettledPool,
		}
		if pool, err := h.walletRepo.GetMarketPool(ctx, m.ID); err == nil {
			row.PoolBalance = pool.Balance
		}
		if m.Status == domain.StatusFinalized || m.Status == domain.StatusCancelled {
			row.Unclaimed, _ = h.positionRepo.CountUnclaimed(ctx, m.ID)
		}
		row.Shortfall = row.PoolBalance-row.CreatorEscrow < 0
		rows = append(rows, row)
	}

	respondList(c, rows, total, page, limit)
}
