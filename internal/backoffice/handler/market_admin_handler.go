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

// MarketAdminHandler serves /admin/markets endpoints: the dispute
// adjudication queue and the two admin-only terminal transitions.
type MarketAdminHandler struct {
	marketSvc     *service.MarketService
	resolutionSvc *service.ResolutionService
	positionRepo  *repository.PositionRepository
	eventRepo     *repository.EventRepository
	cfg           *config.Config
}

// NewMarketAdminHandler creates a MarketAdminHandler.
func NewMarketAdminHandler(
	marketSvc *service.MarketService,
	resolutionSvc *service.ResolutionService,
	positionRepo *repository.PositionRepository,
	eventRepo *repository.EventRepository,
	cfg *config.Config,
) *MarketAdminHandler {
	return &MarketAdminHandler{
		marketSvc:     marketSvc,
		resolutionSvc: resolutionSvc,
		positionRepo:  positionRepo,
		eventRepo:     eventRepo,
		cfg:           cfg,
	}
}

// List godoc
// GET /admin/markets?status=proposed&page=1&limit=50
func (h *MarketAdminHandler) List(c *gin.Context) {
	status := c.Query("status")
	page, limit := adminPagination(c)
	offset := (page - 1) * limit

	markets, total, err := h.marketSvc.ListMarkets(c.Request.Context(), limit, offset, status)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", err.Error())
		return
	}
	respondList(c, markets, total, page, limit)
}

// Detail godoc
// GET /admin/markets/:id — full market row, positions and the audit trail.
func (h *MarketAdminHandler) Detail(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid market id")
		return
	}

	ctx := c.Request.Context()
	market, err := h.marketSvc.GetMarket(ctx, id)
	if err != nil {
		if err == domain.ErrMarketNotFound {
			respondError(c, http.StatusNotFound, "ERR_NOT_FOUND", err.Error())
			return
		}
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", err.Error())
		return
	}

	positions, _ := h.positionRepo.GetByMarket(ctx, id, 200, 0)
	events, _ := h.eventRepo.GetByMarket(ctx, id, 200, 0)
	unclaimed, _ := h.positionRepo.CountUnclaimed(ctx, id)

	respondSuccess(c, http.StatusOK, gin.H{
		"market":    market,
		"positions": positions,
		"events":    events,
		"unclaimed": unclaimed,
	})
}

// Disputed godoc
// GET /admin/markets/disputed — proposals past their deadline with disputes,
// waiting for admin adjudication.
func (h *MarketAdminHandler) Disputed(c *gin.Context) {
	markets, err := h.resolutionSvc.ListDisputed(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", err.Error())
		return
	}
	respondSuccess(c, http.StatusOK, markets)
}

// Abandoned godoc
// GET /admin/markets/abandoned — open markets whose propose window lapsed.
func (h *MarketAdminHandler) Abandoned(c *gin.Context) {
	markets, err := h.resolutionSvc.ListAbandoned(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", err.Error())
		return
	}
	respondSuccess(c, http.StatusOK, markets)
}

// Finalize godoc
// POST /admin/markets/:id/finalize
// Body: {"outcome":1} — settles a disputed market, possibly overturning the
// creator's proposal.
func (h *MarketAdminHandler) Finalize(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid market id")
		return
	}
	var body struct {
		Outcome *int `json:"outcome" binding:"required"`
	}
	if err = c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	if err = h.resolutionSvc.AdminFinalize(c.Request.Context(), id, adminUserID(c), *body.Outcome); err != nil {
		respondAdminDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"market_id": id, "status": "finalized", "outcome": *body.Outcome})
}

// Cancel godoc
// POST /admin/markets/:id/cancel — voids a disputed market; all traders
// become eligible for cost-basis refunds.
func (h *MarketAdminHandler) Cancel(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid market id")
		return
	}
	if err = h.resolutionSvc.AdminCancel(c.Request.Context(), id, adminUserID(c)); err != nil {
		respondAdminDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"market_id": id, "status": "cancelled"})
}
