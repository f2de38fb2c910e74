package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/evetabi/settlement/internal/domain"
	"github.com/gin-gonic/gin"
)

// ──────────────────────────────────────────────────────────────────────────────
// Standard response helpers
// ──────────────────────────────────────────────────────────────────────────────

// respondSuccess writes {"success": true, "data": data} with the given status.
func respondSuccess(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

// respondError writes {"success": false, "error": msg, "code": code}.
func respondError(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error":   msg,
		"code":    code,
	})
}

// respondList writes {"success": true, "data": items, "meta": {...}}.
func respondList(c *gin.Context, items interface{}, total, page, limit int) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    items,
		"meta": gin.H{
			"total": total,
			"page":  page,
			"limit": limit,
		},
	})
}

// ──────────────────────────────────────────────────────────────────────────────
// Domain error mapping
// ──────────────────────────────────────────────────────────────────────────────

// errCodes maps domain sentinels to stable API error codes.
var errCodes = map[error]string{
	domain.ErrInvalidOutcomes:       "ERR_INVALID_OUTCOMES",
	domain.ErrInvalidResolutionTime: "ERR_INVALID_RESOLUTION_TIME",
	domain.ErrInvalidLiquidity:      "ERR_INVALID_LIQUIDITY",
	domain.ErrInvalidCurve:          "ERR_INVALID_CURVE",
	domain.ErrInvalidAntiManip:      "ERR_INVALID_LIMITS",
	domain.ErrInvalidShares:         "ERR_INVALID_SHARES",
	domain.ErrInvalidOutcomeIndex:   "ERR_INVALID_OUTCOME",
	domain.ErrMarketNotFound:        "ERR_MARKET_NOT_FOUND",
	domain.ErrPositionNotFound:      "ERR_POSITION_NOT_FOUND",
	domain.ErrMarketClosed:          "ERR_MARKET_CLOSED",
	domain.ErrMarketResolved:        "ERR_MARKET_RESOLVED",
	domain.ErrMarketNotEnded:        "ERR_MARKET_NOT_ENDED",
	domain.ErrInvalidState:          "ERR_INVALID_STATE",
	domain.ErrTooEarly:              "ERR_TOO_EARLY",
	domain.ErrTooLateToPropose:      "ERR_PROPOSE_WINDOW_CLOSED",
	domain.ErrDisputeWindowClosed:   "ERR_DISPUTE_WINDOW_CLOSED",
	domain.ErrHasDisputes:           "ERR_HAS_DISPUTES",
	domain.ErrNoDispute:             "ERR_NO_DISPUTE",
	domain.ErrTradeTooLarge:         "ERR_TRADE_TOO_LARGE",
	domain.ErrCooldownActive:        "ERR_COOLDOWN_ACTIVE",
	domain.ErrPositionCapExceeded:   "ERR_POSITION_CAP",
	domain.ErrNotEnoughShares:       "ERR_NOT_ENOUGH_SHARES",
	domain.ErrMaxCostExceeded:       "ERR_MAX_COST_EXCEEDED",
	domain.ErrMinRefundNotMet:       "ERR_MIN_REFUND_NOT_MET",
	domain.ErrNoWinningShares:       "ERR_NO_WINNING_SHARES",
	domain.ErrAlreadyClaimed:        "ERR_ALREADY_CLAIMED",
	domain.ErrNothingToRefund:       "ERR_NOTHING_TO_REFUND",
	domain.ErrNothingToClaim:        "ERR_NOTHING_TO_CLAIM",
	domain.ErrInvalidPayout:         "ERR_INVALID_PAYOUT",
	domain.ErrInsufficientBalance:   "ERR_INSUFFICIENT_BALANCE",
	domain.ErrForbidden:             "ERR_FORBIDDEN",
}

// respondDomainError maps a service error to an HTTP status and stable code.
// Unknown errors are masked with a generic 500.
func respondDomainError(c *gin.Context, err error, fallback string) {
	code := "ERR_INTERNAL"
	for sentinel, sc := range errCodes {
		if errors.Is(err, sentinel) {
			code = sc
			break
		}
	}

	var status int
	switch {
	case errors.Is(err, domain.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrInsufficientBalance):
		status = http.StatusPaymentRequired
	case domain.IsNotFound(err):
		status = http.StatusNotFound
	case domain.IsValidation(err):
		status = http.StatusBadRequest
	case domain.IsConflict(err):
		status = http.StatusConflict
	default:
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", fallback)
		return
	}
	respondError(c, status, code, err.Error())
}

// ── helpers ──────────────────────────────────────────────────────────────────

func parsePagination(c *gin.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return
}
