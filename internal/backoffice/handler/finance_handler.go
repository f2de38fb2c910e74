package handler

import (
	"net/http"
	"time"

	"github.com/evetabi/settlement/internal/config"
	"github.com/evetabi/settlement/internal/repository"
	"github.com/gin-gonic/gin"
)

// FinanceHandler serves /admin/finance endpoints. Balances are on-chain
// lamports mirrored into the internal ledger; there is no fiat on/off-ramp
// to administer here.
type FinanceHandler struct {
	walletRepo *repository.WalletRepository
	marketRepo *repository.MarketRepository
	cfg        *config.Config
}

// NewFinanceHandler creates a FinanceHandler.
func NewFinanceHandler(
	walletRepo *repository.WalletRepository,
	marketRepo *repository.MarketRepository,
	cfg *config.Config,
) *FinanceHandler {
	return &FinanceHandler{walletRepo: walletRepo, marketRepo: marketRepo, cfg: cfg}
}

// Report godoc
// GET /admin/finance/report?from=2024-01-01&to=2024-01-31
// Aggregates platform fees, creator fee escrow and settled pool volume over
// the requested window.
func (h *FinanceHandler) Report(c *gin.Context) {
	ctx := c.Request.Context()

	fromStr := c.Query("from")
	toStr := c.Query("to")

	var from, to time.Time
	var err error
	if fromStr != "" {
		from, err = time.Parse("2006-01-02", fromStr)
		if err != nil {
			respondError(c, http.StatusBadRequest, "ERR_INVALID_DATE", "from must be YYYY-MM-DD")
			return
		}
	} else {
		from = time.Now().UTC().AddDate(0, -1, 0).Truncate(24 * time.Hour) // default: last 30 days
	}
	if toStr != "" {
		to, err = time.Parse("2006-01-02", toStr)
		if err != nil {
			respondError(c, http.StatusBadRequest, "ERR_INVALID_DATE", "to must be YYYY-MM-DD")
			return
		}
		to = to.Add(24 * time.Hour) // inclusive
	} else {
		to = time.Now().UTC()
	}

	report, err := h.marketRepo.GetFinanceReport(ctx, from, to)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", err.Error())
		return
	}
	respondSuccess(c, http.StatusOK, report)
}

// Transactions godoc
// GET /admin/finance/transactions?page=1&limit=50
func (h *FinanceHandler) Transactions(c *gin.Context) {
	page, limit := adminPagination(c)
	offset := (page - 1) * limit
	txns, err := h.walletRepo.GetPlatformTransactions(c.Request.Context(), limit, offset)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", err.Error())
		return
	}
	respondList(c, txns, len(txns), page, limit)
}
