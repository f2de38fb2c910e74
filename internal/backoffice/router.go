package backoffice

import (
	"net/http"
	"strings"

	"github.com/evetabi/settlement/internal/backoffice/handler"
	"github.com/evetabi/settlement/internal/config"
	"github.com/evetabi/settlement/internal/repository"
	"github.com/evetabi/settlement/internal/service"
	"github.com/evetabi/settlement/internal/ws"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

// BackofficeDeps bundles every dependency needed for the admin router.
type BackofficeDeps struct {
	DB            *sqlx.DB
	AuthSvc       *service.AuthService
	MarketSvc     *service.MarketService
	ResolutionSvc *service.ResolutionService
	UserRepo      *repository.UserRepository
	MarketRepo    *repository.MarketRepository
	PositionRepo  *repository.PositionRepository
	WalletRepo    *repository.WalletRepository
	EventRepo     *repository.EventRepository
	Hub           *ws.Hub
	Cfg           *config.Config
}

// SetupBackofficeRouter creates the admin Gin engine on port 8081.
func SetupBackofficeRouter(deps BackofficeDeps) *gin.Engine {
	if deps.Cfg.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(ipWhitelistMiddleware(deps.Cfg.Server.BackofficeAllowedIPs))

	dashH := handler.NewDashboardHandler(deps.MarketSvc, deps.ResolutionSvc, deps.WalletRepo, deps.EventRepo, deps.Hub, deps.Cfg)
	marketH := handler.NewMarketAdminHandler(deps.MarketSvc, deps.ResolutionSvc, deps.PositionRepo, deps.EventRepo, deps.Cfg)
	userH := handler.NewUserAdminHandler(deps.DB, deps.UserRepo, deps.WalletRepo, deps.Cfg)
	riskH := handler.NewRiskHandler(deps.MarketSvc, deps.MarketRepo, deps.PositionRepo, deps.WalletRepo, deps.Cfg)
	financeH := handler.NewFinanceHandler(deps.WalletRepo, deps.MarketRepo, deps.Cfg)

	jwtMW := adminJWTMiddleware(deps.AuthSvc)

	admin := r.Group("/admin")
	admin.Use(jwtMW)
	{
		admin.GET("/dashboard", dashH.Dashboard)

		// Markets: dispute adjudication and admin transitions
		m := admin.Group("/markets")
		{
			m.GET("", marketH.List)
			m.GET("/disputed", marketH.Disputed)
			m.GET("/abandoned", marketH.Abandoned)
			m.GET("/:id", marketH.Detail)
			m.POST("/:id/finalize", requireRole("admin"), marketH.Finalize)
			m.POST("/:id/cancel", requireRole("admin"), marketH.Cancel)
		}

		// Users
		u := admin.Group("/users")
		{
			u.GET("", userH.List)
			u.GET("/:id", userH.Detail)
			u.POST("/:id/suspend", requireRole("admin"), userH.Suspend)
			u.POST("/:id/activate", requireRole("admin"), userH.Activate)
			u.POST("/:id/balance", requireRole("admin", "finance"), userH.AdjustBalance)
			u.POST("/:id/role", requireRole("admin"), userH.SetRole)
		}

		// Risk
		risk := admin.Group("/risk")
		{
			risk.GET("/markets/:id/concentration", riskH.Concentration)
			risk.GET("/solvency", riskH.Solvency)
		}

		// Finance
		fin := admin.Group("/finance")
		{
			fin.GET("/report", financeH.Report)
			fin.GET("/transactions", financeH.Transactions)
		}
	}

	return r
}

// ── IP whitelist middleware ───────────────────────────────────────────────────

// ipWhitelistMiddleware blocks requests from IPs not in the allowlist.
// allowedIPs is a comma-separated string; empty means allow all.
func ipWhitelistMiddleware(allowedIPs string) gin.HandlerFunc {
	if allowedIPs == "" {
		return func(c *gin.Context) { c.Next() } // dev mode: no restriction
	}

	allowed := make(map[string]bool)
	for _, ip := range strings.Split(allowedIPs, ",") {
		ip = strings.TrimSpace(ip)
		if ip != "" {
			allowed[ip] = true
		}
	}

	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		if !allowed[clientIP] {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "access denied: your IP is not whitelisted",
			})
			return
		}
		c.Next()
	}
}

// ── Admin JWT middleware ──────────────────────────────────────────────────────

// adminJWTMiddleware validates a JWT and requires the caller to have a
// backoffice-capable role. Readonly holders can view everything; mutations
// are gated per-route by requireRole.
func adminJWTMiddleware(authSvc *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		claims, err := authSvc.ParseAccessToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil || claims.TokenType != "access" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		backofficeRoles := map[string]bool{
			"admin":    true,
			"finance":  true,
			"readonly": true,
		}
		if !backofficeRoles[claims.Role] {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient permissions"})
			return
		}

		c.Set("userID", claims.Subject)
		c.Set("role", claims.Role)
		c.Next()
	}
}

// requireRole restricts a mutating route to the listed roles.
func requireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *gin.Context) {
		role, _ := c.Get("role")
		if s, ok := role.(string); !ok || !allowed[s] {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient permissions"})
			return
		}
		c.Next()
	}
}
