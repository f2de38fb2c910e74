package handler

import (
	"net/http"

	"github.com/evetabi/settlement/internal/api/middleware"
	"github.com/evetabi/settlement/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ResolutionHandler serves the public lifecycle endpoints: propose, dispute
// and the two permissionless transitions. Admin overrides live in the
// back-office service.
type ResolutionHandler struct {
	resolutionSvc *service.ResolutionService
}

// NewResolutionHandler creates a ResolutionHandler.
func NewResolutionHandler(resolutionSvc *service.ResolutionService) *ResolutionHandler {
	return &ResolutionHandler{resolutionSvc: resolutionSvc}
}

// Propose godoc
// POST /api/markets/:id/propose [JWT, creator only]
// Body: {"outcome":0}
func (h *ResolutionHandler) Propose(c *gin.Context) {
	userID := middleware.GetUserID(c)

	marketID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid market id")
		return
	}

	var body struct {
		Outcome *int `json:"outcome" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	if err := h.resolutionSvc.Propose(c.Request.Context(), marketID, userID, *body.Outcome); err != nil {
		respondDomainError(c, err, "could not propose resolution")
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"market_id": marketID, "proposed_outcome": *body.Outcome})
}

// Dispute godoc
// POST /api/markets/:id/dispute [JWT, participants only]
func (h *ResolutionHandler) Dispute(c *gin.Context) {
	userID := middleware.GetUserID(c)

	marketID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid market id")
		return
	}

	if err := h.resolutionSvc.Dispute(c.Request.Context(), marketID, userID); err != nil {
		respondDomainError(c, err, "could not dispute resolution")
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"market_id": marketID, "disputed": true})
}

// Finalize godoc
// POST /api/markets/:id/finalize [JWT]
// Permissionless: settles an undisputed proposal after its contest deadline.
func (h *ResolutionHandler) Finalize(c *gin.Context) {
	userID := middleware.GetUserID(c)

	marketID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid market id")
		return
	}

	if err := h.resolutionSvc.FinalizeNoDisputes(c.Request.Context(), marketID, userID); err != nil {
		respondDomainError(c, err, "could not finalize market")
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"market_id": marketID, "finalized": true})
}

// CancelAbandoned godoc
// POST /api/markets/:id/cancel-abandoned [JWT]
// Permissionless: voids a market whose creator never proposed in time.
func (h *ResolutionHandler) CancelAbandoned(c *gin.Context) {
	userID := middleware.GetUserID(c)

	marketID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid market id")
		return
	}

	if err := h.resolutionSvc.CancelNoProposal(c.Request.Context(), marketID, userID); err != nil {
		respondDomainError(c, err, "could not cancel market")
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"market_id": marketID, "cancelled": true})
}
