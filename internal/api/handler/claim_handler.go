package handler

import (
	"net/http"

	"github.com/evetabi/settlement/internal/api/middleware"
	"github.com/evetabi/settlement/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ClaimHandler serves payout endpoints on settled markets.
type ClaimHandler struct {
	claimSvc *service.ClaimService
}

// NewClaimHandler creates a ClaimHandler.
func NewClaimHandler(claimSvc *service.ClaimService) *ClaimHandler {
	return &ClaimHandler{claimSvc: claimSvc}
}

// ClaimWinnings godoc
// POST /api/markets/:id/claim [JWT]
func (h *ClaimHandler) ClaimWinnings(c *gin.Context) {
	userID := middleware.GetUserID(c)

	marketID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid market id")
		return
	}

	receipt, err := h.claimSvc.ClaimWinnings(c.Request.Context(), marketID, userID)
	if err != nil {
		respondDomainError(c, err, "could not claim winnings")
		return
	}
	respondSuccess(c, http.StatusOK, receipt)
}

// ClaimRefund godoc
// POST /api/markets/:id/refund [JWT]
func (h *ClaimHandler) ClaimRefund(c *gin.Context) {
	userID := middleware.GetUserID(c)

	marketID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid market id")
		return
	}

	receipt, err := h.claimSvc.ClaimRefund(c.Request.Context(), marketID, userID)
	if err != nil {
		respondDomainError(c, err, "could not claim refund")
		return
	}
	respondSuccess(c, http.StatusOK, receipt)
}

// ClaimCreatorFees godoc
// POST /api/markets/:id/creator-fees [JWT, creator only]
func (h *ClaimHandler) ClaimCreatorFees(c *gin.Context) {
	userID := middleware.GetUserID(c)

	marketID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid market id")
		return
	}

	receipt, err := h.claimSvc.ClaimCreatorFees(c.Request.Context(), marketID, userID)
	if err != nil {
		respondDomainError(c, err, "could not claim creator fees")
		return
	}
	respondSuccess(c, http.StatusOK, receipt)
}
