package handler

import (
	"net/http"
	"strconv"

	"github.com/evetabi/settlement/internal/api/middleware"
	"github.com/evetabi/settlement/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TradeHandler serves buy/sell, quote and position endpoints.
type TradeHandler struct {
	tradeSvc *service.TradeService
}

// NewTradeHandler creates a TradeHandler.
func NewTradeHandler(tradeSvc *service.TradeService) *TradeHandler {
	return &TradeHandler{tradeSvc: tradeSvc}
}

// tradeBody is the request body shared by buys and sells. Limit is the
// trader's slippage bound: max total cost on buys, min net refund on sells.
// Zero disables the check.
type tradeBody struct {
	Outcome int   `json:"outcome"`
	Shares  int64 `json:"shares" binding:"required"`
	Limit   int64 `json:"limit"`
}

// Buy godoc
// POST /api/markets/:id/buy [JWT]
// Body: {"outcome":0,"shares":100,"limit":55000000}
func (h *TradeHandler) Buy(c *gin.Context) {
	h.trade(c, false)
}

// Sell godoc
// POST /api/markets/:id/sell [JWT]
func (h *TradeHandler) Sell(c *gin.Context) {
	h.trade(c, true)
}

func (h *TradeHandler) trade(c *gin.Context, sell bool) {
	userID := middleware.GetUserID(c)

	marketID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid market id")
		return
	}

	var body tradeBody
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	req := service.TradeRequest{
		UserID:   userID,
		MarketID: marketID,
		Outcome:  body.Outcome,
		Shares:   body.Shares,
		Limit:    body.Limit,
	}

	var receipt interface{}
	if sell {
		receipt, err = h.tradeSvc.Sell(c.Request.Context(), req)
	} else {
		receipt, err = h.tradeSvc.Buy(c.Request.Context(), req)
	}
	if err != nil {
		respondDomainError(c, err, "trade failed")
		return
	}
	respondSuccess(c, http.StatusCreated, receipt)
}

// Quote godoc
// GET /api/markets/:id/quote?outcome=0&shares=100&side=buy
// Returns the current cost (or refund) without executing. Unauthenticated;
// the quote carries no reservation.
func (h *TradeHandler) Quote(c *gin.Context) {
	marketID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid market id")
		return
	}
	outcome, err := strconv.Atoi(c.DefaultQuery("outcome", "0"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", "invalid outcome")
		return
	}
	shares, err := strconv.ParseInt(c.Query("shares"), 10, 64)
	if err != nil || shares <= 0 {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", "shares must be a positive integer")
		return
	}
	sell := c.DefaultQuery("side", "buy") == "sell"

	amount, err := h.tradeSvc.Quote(c.Request.Context(), marketID, outcome, shares, sell)
	if err != nil {
		respondDomainError(c, err, "could not compute quote")
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{
		"market_id": marketID,
		"outcome":   outcome,
		"shares":    shares,
		"side":      c.DefaultQuery("side", "buy"),
		"amount":    amount,
	})
}

// GetMyPositions godoc
// GET /api/positions/my?page=1&limit=20 [JWT]
func (h *TradeHandler) GetMyPositions(c *gin.Context) {
	userID := middleware.GetUserID(c)
	page, limit := parsePagination(c)
	offset := (page - 1) * limit

	positions, err := h.tradeSvc.GetMyPositions(c.Request.Context(), userID, limit, offset)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not fetch positions")
		return
	}
	respondList(c, positions, len(positions), page, limit)
}

// GetPosition godoc
// GET /api/markets/:id/position [JWT] — the caller's position in one market.
func (h *TradeHandler) GetPosition(c *gin.Context) {
	userID := middleware.GetUserID(c)

	marketID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid market id")
		return
	}

	position, err := h.tradeSvc.GetPosition(c.Request.Context(), marketID, userID)
	if err != nil {
		respondDomainError(c, err, "could not fetch position")
		return
	}
	respondSuccess(c, http.StatusOK, position)
}
