package handler

import (
	"net/http"

	"github.com/evetabi/settlement/internal/api/middleware"
	"github.com/evetabi/settlement/internal/repository"
	"github.com/gin-gonic/gin"
)

// WalletHandler serves balance and transaction history endpoints. Balances
// are integer lamports; deposits and withdrawals settle on-chain and are out
// of scope for this service.
type WalletHandler struct {
	walletRepo *repository.WalletRepository
}

// NewWalletHandler creates a WalletHandler.
func NewWalletHandler(walletRepo *repository.WalletRepository) *WalletHandler {
	return &WalletHandler{walletRepo: walletRepo}
}

// GetBalance godoc
// GET /api/wallet/balance [JWT]
func (h *WalletHandler) GetBalance(c *gin.Context) {
	userID := middleware.GetUserID(c)
	wallet, err := h.walletRepo.GetByUserID(c.Request.Context(), userID)
	if err != nil {
		respondError(c, http.StatusNotFound, "ERR_WALLET_NOT_FOUND", err.Error())
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{
		"wallet_id": wallet.ID,
		"balance":   wallet.Balance,
	})
}

// GetTransactions godoc
// GET /api/wallet/transactions?page=1&limit=20 [JWT]
func (h *WalletHandler) GetTransactions(c *gin.Context) {
	userID := middleware.GetUserID(c)
	page, limit := parsePagination(c)
	offset := (page - 1) * limit

	txns, err := h.walletRepo.GetTransactions(c.Request.Context(), userID, limit, offset)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not fetch transactions")
		return
	}
	respondList(c, txns, len(txns), page, limit)
}
