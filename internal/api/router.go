package api

import (
	"net/http"

	"github.com/evetabi/settlement/internal/api/handler"
	"github.com/evetabi/settlement/internal/api/middleware"
	"github.com/evetabi/settlement/internal/config"
	"github.com/evetabi/settlement/internal/repository"
	"github.com/evetabi/settlement/internal/service"
	"github.com/evetabi/settlement/internal/ws"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterDeps bundles every dependency needed to build the router.
// Populated once in main() and passed to SetupRouter.
type RouterDeps struct {
	AuthSvc       *service.AuthService
	MarketSvc     *service.MarketService
	TradeSvc      *service.TradeService
	ResolutionSvc *service.ResolutionService
	ClaimSvc      *service.ClaimService
	WalletRepo    *repository.WalletRepository
	Hub           *ws.Hub
	Cfg           *config.Config
}

// SetupRouter creates and configures the main Gin engine with all routes,
// middleware, CORS, and rate limiting rules.
func SetupRouter(deps RouterDeps) *gin.Engine {
	if deps.Cfg.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())

	// ── CORS ─────────────────────────────────────────────────────────────────
	r.Use(corsMiddleware(deps.Cfg))

	// ── Health check / metrics ───────────────────────────────────────────────
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// ── Handlers ─────────────────────────────────────────────────────────────
	userH := handler.NewUserHandler(deps.AuthSvc, deps.WalletRepo)
	marketH := handler.NewMarketHandler(deps.MarketSvc)
	tradeH := handler.NewTradeHandler(deps.TradeSvc)
	resolutionH := handler.NewResolutionHandler(deps.ResolutionSvc)
	claimH := handler.NewClaimHandler(deps.ClaimSvc)
	walletH := handler.NewWalletHandler(deps.WalletRepo)

	// ── JWT middleware (shared) ───────────────────────────────────────────────
	jwtMW := middleware.JWTMiddleware(deps.AuthSvc)

	// ── Rate limiters ─────────────────────────────────────────────────────────
	authRL := middleware.RateLimitMiddleware(10)  // 10 req/s per IP for auth endpoints
	tradeRL := middleware.RateLimitMiddleware(30) // 30 req/s per IP for trade endpoints

	api := r.Group("/api")
	{
		// ── Auth (public, strict rate limit) ─────────────────────────────────
		auth := api.Group("/auth")
		auth.Use(authRL)
		{
			auth.POST("/register", userH.Register)
			auth.POST("/login", userH.Login)
			auth.POST("/refresh", userH.Refresh)
		}

		// ── Markets (public reads) ───────────────────────────────────────────
		markets := api.Group("/markets")
		{
			markets.GET("", marketH.ListMarkets)
			markets.GET("/open", marketH.GetOpen)
			markets.GET("/:id", marketH.GetByID)
			markets.GET("/:id/detail", marketH.GetDetail)
			markets.GET("/:id/events", marketH.GetEvents)
			markets.GET("/:id/quote", tradeH.Quote)
		}

		// ── Authenticated routes ──────────────────────────────────────────────
		authed := api.Group("")
		authed.Use(jwtMW)
		{
			// Profile
			authed.GET("/me", userH.Me)

			// Market creation and lifecycle
			authed.POST("/markets", marketH.Create)
			authed.POST("/markets/:id/propose", resolutionH.Propose)
			authed.POST("/markets/:id/dispute", resolutionH.Dispute)
			authed.POST("/markets/:id/finalize", resolutionH.Finalize)
			authed.POST("/markets/:id/cancel-abandoned", resolutionH.CancelAbandoned)

			// Trading
			trades := authed.Group("/markets/:id")
			trades.Use(tradeRL)
			{
				trades.POST("/buy", tradeH.Buy)
				trades.POST("/sell", tradeH.Sell)
			}
			authed.GET("/markets/:id/position", tradeH.GetPosition)
			authed.GET("/positions/my", tradeH.GetMyPositions)

			// Claims
			authed.POST("/markets/:id/claim", claimH.ClaimWinnings)
			authed.POST("/markets/:id/refund", claimH.ClaimRefund)
			authed.POST("/markets/:id/creator-fees", claimH.ClaimCreatorFees)

			// Wallet
			wallet := authed.Group("/wallet")
			{
				wallet.GET("/balance", walletH.GetBalance)
				wallet.GET("/transactions", walletH.GetTransactions)
			}
		}
	}

	// ── WebSocket ─────────────────────────────────────────────────────────────
	if deps.Hub != nil {
		r.GET("/ws", func(c *gin.Context) {
			deps.Hub.ServeWs(c.Writer, c.Request)
		})
	}

	return r
}

// ── CORS helper ───────────────────────────────────────────────────────────────

// corsMiddleware returns a gin middleware that sets appropriate CORS headers.
// In DEBUG mode all origins are allowed; in production only configured origins.
func corsMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		if !cfg.IsProd() {
			// Development: allow any origin
			c.Header("Access-Control-Allow-Origin", "*")
		} else if origin != "" {
			allowed := map[string]bool{
				"https://evetabi.com":     true,
				"https://www.evetabi.com": true,
			}
			if allowed[origin] {
				c.Header("Access-Control-Allow-Origin", origin)
			}
		}

		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
