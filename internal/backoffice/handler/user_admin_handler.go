package handler

import (
	"net/http"

	"github.com/evetabi/settlement/internal/config"
	"github.com/evetabi/settlement/internal/domain"
	"github.com/evetabi/settlement/internal/ledger"
	"github.com/evetabi/settlement/internal/repository"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// UserAdminHandler serves /admin/users endpoints.
type UserAdminHandler struct {
	db         *sqlx.DB
	userRepo   *repository.UserRepository
	walletRepo *repository.WalletRepository
	cfg        *config.Config
}

// NewUserAdminHandler creates a UserAdminHandler.
func NewUserAdminHandler(
	db *sqlx.DB,
	userRepo *repository.UserRepository,
	walletRepo *repository.WalletRepository,
	cfg *config.Config,
) *UserAdminHandler {
	return &UserAdminHandler{db: db, userRepo: userRepo, walletRepo: walletRepo, cfg: cfg}
}

// List godoc
// GET /admin/users?page=1&limit=50
func (h *UserAdminHandler) List(c *gin.Context) {
	page, limit := adminPagination(c)
	offset := (page - 1) * limit

	users, total, err := h.userRepo.List(c.Request.Context(), limit, offset)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", err.Error())
		return
	}
	respondList(c, users, total, page, limit)
}

// Detail godoc
// GET /admin/users/:id
func (h *UserAdminHandler) Detail(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid user id")
		return
	}

	ctx := c.Request.Context()
	user, err := h.userRepo.GetByID(ctx, id)
	if err != nil {
		if err == domain.ErrUserNotFound {
			respondError(c, http.StatusNotFound, "ERR_NOT_FOUND", err.Error())
			return
		}
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", err.Error())
		return
	}

	wallet, _ := h.walletRepo.GetByUserID(ctx, id)
	txns, _ := h.walletRepo.GetTransactions(ctx, id, 50, 0)

	respondSuccess(c, http.StatusOK, gin.H{
		"user":         user,
		"wallet":       wallet,
		"transactions": txns,
	})
}

// Suspend godoc
// POST /admin/users/:id/suspend
func (h *UserAdminHandler) Suspend(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid user id")
		return
	}
	if err = h.userRepo.SetActive(c.Request.Context(), id, false); err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", err.Error())
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"user_id": id, "is_active": false})
}

// Activate godoc
// POST /admin/users/:id/activate
func (h *UserAdminHandler) Activate(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid user id")
		return
	}
	if err = h.userRepo.SetActive(c.Request.Context(), id, true); err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", err.Error())
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"user_id": id, "is_active": true})
}

// AdjustBalance godoc
// POST /admin/users/:id/balance
// Body: {"amount": 500000000, "note": "goodwill credit"}
// Amount is a signed lamport delta applied to the user's wallet.
func (h *UserAdminHandler) AdjustBalance(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid user id")
		return
	}
	var body struct {
		Amount int64  `json:"amount" binding:"required"`
		Note   string `json:"note"`
	}
	if err = c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	ctx := c.Request.Context()
	wallet, err := h.walletRepo.GetByUserID(ctx, id)
	if err != nil {
		respondError(c, http.StatusNotFound, "ERR_WALLET_NOT_FOUND", err.Error())
		return
	}

	txType := domain.TxDeposit
	if body.Amount < 0 {
		txType = domain.TxWithdraw
	}
	note := body.Note
	if note == "" {
		note = "admin balance adjustment"
	}

	tx, err := h.db.BeginTxx(ctx, nil)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", err.Error())
		return
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = h.walletRepo.Adjust(ctx, tx, ledger.Entry{
		WalletID:    wallet.ID,
		Amount:      body.Amount,
		Type:        txType,
		Description: note,
	}); err != nil {
		respondAdminDomainError(c, err)
		return
	}
	if err = tx.Commit(); err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", err.Error())
		return
	}

	respondSuccess(c, http.StatusOK, gin.H{
		"user_id":     id,
		"amount":      body.Amount,
		"new_balance": wallet.Balance + body.Amount,
	})
}

// SetRole godoc
// POST /admin/users/:id/role
// Body: {"role": "finance"}
func (h *UserAdminHandler) SetRole(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid user id")
		return
	}
	var body struct {
		Role string `json:"role" binding:"required"`
	}
	if err = c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}
	role := domain.UserRole(body.Role)
	// The admin role cannot be granted over the API; the settlement
	// authority is pinned in config and admin rows are seeded at deploy
	// time, so a compromised admin token cannot mint more admins.
	validRoles := map[domain.UserRole]bool{
		domain.RoleUser:     true,
		domain.RoleFinance:  true,
		domain.RoleReadOnly: true,
	}
	if !validRoles[role] {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ROLE", "role not grantable")
		return
	}
	if err = h.userRepo.UpdateRole(c.Request.Context(), id, role); err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", err.Error())
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"user_id": id, "role": role})
}
