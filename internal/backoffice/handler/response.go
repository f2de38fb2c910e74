package handler

import (
	"net/http"
	"strconv"

	"github.com/evetabi/settlement/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ──────────────────────────────────────────────────────────────────────────────
// Standard admin response helpers (mirrors internal/api/handler/response.go)
// ──────────────────────────────────────────────────────────────────────────────

func respondSuccess(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

func respondError(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error":   msg,
		"code":    code,
	})
}

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

// adminUserID returns the authenticated admin's user ID. The admin JWT
// middleware stores the subject claim as a string; a zero UUID is returned
// if it is missing or malformed, which domain-level checks then reject.
func adminUserID(c *gin.Context) uuid.UUID {
	raw, _ := c.Get("userID")
	s, _ := raw.(string)
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil
	}
	return id
}

// respondAdminDomainError maps domain errors onto admin API statuses.
// Admin endpoints see raw error text; there is no masking here since the
// surface is IP-whitelisted and role-gated.
func respondAdminDomainError(c *gin.Context, err error) {
	switch {
	case domain.IsNotFound(err):
		respondError(c, http.StatusNotFound, "ERR_NOT_FOUND", err.Error())
	case domain.IsValidation(err):
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
	case domain.IsConflict(err):
		respondError(c, http.StatusConflict, "ERR_CONFLICT", err.Error())
	case domain.IsAuthError(err):
		respondError(c, http.StatusForbidden, "ERR_FORBIDDEN", err.Error())
	default:
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", err.Error())
	}
}

// adminPagination reads page/limit query params with sane defaults for admin views.
func adminPagination(c *gin.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 500 {
		limit = 50
	}
	return
}
