package handler

import (
	"net/http"

	"github.com/evetabi/settlement/internal/api/middleware"
	"github.com/evetabi/settlement/internal/domain"
	"github.com/evetabi/settlement/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// MarketHandler serves market creation and query endpoints.
type MarketHandler struct {
	marketSvc *service.MarketService
}

// NewMarketHandler creates a MarketHandler.
func NewMarketHandler(marketSvc *service.MarketService) *MarketHandler {
	return &MarketHandler{marketSvc: marketSvc}
}

// Create godoc
// POST /api/markets [JWT]
// Body: {"resolution_time":"...","outcome_names":["YES","NO"],"market_type":"binary",
//
//	"curve":"lmsr","liquidity_lamports":50000000000,"max_position_bps":10000,
//	"max_trade_shares":1000000,"cooldown_seconds":0}
func (h *MarketHandler) Create(c *gin.Context) {
	var params domain.CreateMarketParams
	if err := c.ShouldBindJSON(&params); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}
	params.Creator = middleware.GetUserID(c)

	market, err := h.marketSvc.CreateMarket(c.Request.Context(), params)
	if err != nil {
		respondDomainError(c, err, "could not create market")
		return
	}
	respondSuccess(c, http.StatusCreated, market)
}

// GetOpen godoc
// GET /api/markets/open
func (h *MarketHandler) GetOpen(c *gin.Context) {
	summaries, err := h.marketSvc.ListOpenSummaries(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not fetch open markets")
		return
	}
	respondSuccess(c, http.StatusOK, summaries)
}

// GetByID godoc
// GET /api/markets/:id — summary view with live prices.
func (h *MarketHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid market id")
		return
	}

	summary, err := h.marketSvc.GetSummary(c.Request.Context(), id)
	if err != nil {
		respondDomainError(c, err, "could not fetch market")
		return
	}
	respondSuccess(c, http.StatusOK, summary)
}

// GetDetail godoc
// GET /api/markets/:id/detail — full market row including lifecycle fields.
func (h *MarketHandler) GetDetail(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid market id")
		return
	}

	market, err := h.marketSvc.GetMarket(c.Request.Context(), id)
	if err != nil {
		respondDomainError(c, err, "could not fetch market")
		return
	}
	respondSuccess(c, http.StatusOK, market)
}

// GetEvents godoc
// GET /api/markets/:id/events?page=1&limit=20 — market audit trail, oldest first.
func (h *MarketHandler) GetEvents(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid market id")
		return
	}
	page, limit := parsePagination(c)
	offset := (page - 1) * limit

	events, err := h.marketSvc.GetEvents(c.Request.Context(), id, limit, offset)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not fetch events")
		return
	}
	respondList(c, events, len(events), page, limit)
}

// ListMarkets godoc
// GET /api/markets?status=finalized&page=1&limit=20
func (h *MarketHandler) ListMarkets(c *gin.Context) {
	status := c.Query("status")
	page, limit := parsePagination(c)
	offset := (page - 1) * limit

	markets, total, err := h.marketSvc.ListMarkets(c.Request.Context(), limit, offset, status)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not list markets")
		return
	}
	respondList(c, markets, total, page, limit)
}
