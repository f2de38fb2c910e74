package handler

import (
	"net/http"
	"time"

	"github.com/evetabi/settlement/internal/config"
	"github.com/evetabi/settlement/internal/domain"
	"github.com/evetabi/settlement/internal/repository"
	"github.com/evetabi/settlement/internal/service"
	"github.com/evetabi/settlement/internal/ws"
	"github.com/gin-gonic/gin"
)

// DashboardHandler serves the /admin/dashboard endpoint.
type DashboardHandler struct {
	marketSvc     *service.MarketService
	resolutionSvc *service.ResolutionService
	walletRepo    *repository.WalletRepository
	eventRepo     *repository.EventRepository
	hub           *ws.Hub
	cfg           *config.Config
}

// NewDashboardHandler creates a DashboardHandler.
func NewDashboardHandler(
	marketSvc *service.MarketService,
	resolutionSvc *service.ResolutionService,
	walletRepo *repository.WalletRepository,
	eventRepo *repository.EventRepository,
	hub *ws.Hub,
	cfg *config.Config,
) *DashboardHandler {
	return &DashboardHandler{
		marketSvc:     marketSvc,
		resolutionSvc: resolutionSvc,
		walletRepo:    walletRepo,
		eventRepo:     eventRepo,
		hub:           hub,
		cfg:           cfg,
	}
}

// Dashboard godoc
// GET /admin/dashboard
func (h *DashboardHandler) Dashboard(c *gin.Context) {
	ctx := c.Request.Context()

	// ── Market counts by status ──────────────────────────────────────────────
	counts := gin.H{}
	for _, status := range []domain.MarketStatus{domain.StatusOpen, domain.StatusProposed, domain.StatusFinalized, domain.StatusCancelled} {
		_, total, err := h.marketSvc.ListMarkets(ctx, 1, 0, string(status))
		if err == nil {
			counts[string(status)] = total
		}
	}

	// ── Adjudication queues ──────────────────────────────────────────────────
	disputed, _ := h.resolutionSvc.ListDisputed(ctx)
	abandoned, _ := h.resolutionSvc.ListAbandoned(ctx)

	// ── Platform wallet (accumulated platform fees, lamports) ────────────────
	var platformBalance int64
	if wallet, err := h.walletRepo.GetPlatformWallet(ctx); err == nil {
		platformBalance = wallet.Balance
	}

	// ── Recent settlement activity ───────────────────────────────────────────
	events, _ := h.eventRepo.GetRecent(ctx, 20)

	// ── WS connections ───────────────────────────────────────────────────────
	var wsConnections int
	if h.hub != nil {
		wsConnections = h.hub.ConnectedCount()
	}

	respondSuccess(c, http.StatusOK, gin.H{
		"timestamp":        time.Now().UTC(),
		"market_counts":    counts,
		"disputed_queue":   len(disputed),
		"abandoned_queue":  len(abandoned),
		"platform_balance": platformBalance,
		"recent_events":    events,
		"ws_connections":   wsConnections,
	})
}
