// Package main is the entry point for the evetabi settlement API server.
// It wires together the pricing engine, services, WebSocket hub and the
// summary broadcast scheduler, then serves HTTP until signalled.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/evetabi/settlement/internal/api"
	"github.com/evetabi/settlement/internal/cache"
	"github.com/evetabi/settlement/internal/config"
	"github.com/evetabi/settlement/internal/repository"
	"github.com/evetabi/settlement/internal/scheduler"
	"github.com/evetabi/settlement/internal/service"
	"github.com/evetabi/settlement/internal/ws"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq" // postgres driver
)

func main() {
	_ = godotenv.Load() // .env is optional; real env vars win

	// ── 1. Config + logger ────────────────────────────────────────────────────
	cfg := config.MustLoad()

	var logHandler slog.Handler
	if cfg.IsProd() {
		logHandler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		logHandler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	logger := slog.New(logHandler)
	slog.SetDefault(logger)

	logger.Info("starting evetabi settlement server", "env", cfg.Server.Env, "port", cfg.Server.Port)

	// ── 2. Database ───────────────────────────────────────────────────────────
	db, err := sqlx.Connect("postgres", cfg.DB.DSN)
	if err != nil {
		logger.Error("database connection failed", "err", err)
		os.Exit(1)
	}
	db.SetMaxOpenConns(cfg.DB.MaxOpenConns)
	db.SetMaxIdleConns(cfg.DB.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.DB.ConnMaxLifetime)

	if err = db.Ping(); err != nil {
		logger.Error("database ping failed", "err", err)
		os.Exit(1)
	}
	logger.Info("database connected")

	// ── 3. Migrations ─────────────────────────────────────────────────────────
	if err = runMigrations(db, "migrations"); err != nil {
		logger.Error("migrations failed", "err", err)
		os.Exit(1)
	}
	logger.Info("migrations applied")

	// ── 4. Repositories ───────────────────────────────────────────────────────
	userRepo := repository.NewUserRepository(db)
	walletRepo := repository.NewWalletRepository(db)
	marketRepo := repository.NewMarketRepository(db)
	positionRepo := repository.NewPositionRepository(db)
	eventRepo := repository.NewEventRepository(db)

	// ── 5. Summary cache (optional) ───────────────────────────────────────────
	var summaryCache service.SummaryCache
	if c := cache.New(cfg.Redis); c != nil {
		if err = c.Ping(context.Background()); err != nil {
			logger.Warn("redis unavailable, summary cache disabled", "err", err)
		} else {
			summaryCache = c
			logger.Info("summary cache connected", "addr", cfg.Redis.Addr)
		}
	}

	// ── 6. Services ───────────────────────────────────────────────────────────
	authSvc := service.NewAuthService(db, userRepo, walletRepo, cfg)
	marketSvc := service.NewMarketService(db, marketRepo, walletRepo, eventRepo, summaryCache, cfg)
	tradeSvc := service.NewTradeService(db, marketRepo, positionRepo, walletRepo, eventRepo, summaryCache, cfg)
	resolutionSvc := service.NewResolutionService(db, marketRepo, positionRepo, walletRepo, eventRepo, summaryCache, cfg)
	claimSvc := service.NewClaimService(db, marketRepo, positionRepo, walletRepo, eventRepo)

	// ── 7. WebSocket Hub ──────────────────────────────────────────────────────
	jwtSecret := []byte(cfg.JWT.AccessSecret)
	var allowedOrigins []string
	if ori := os.Getenv("WS_ALLOWED_ORIGINS"); ori != "" {
		for _, o := range strings.Split(ori, ",") {
			allowedOrigins = append(allowedOrigins, strings.TrimSpace(o))
		}
	}
	hub := ws.NewHub(jwtSecret, allowedOrigins)

	marketSvc.SetBroadcaster(hub)
	tradeSvc.SetBroadcaster(hub)
	resolutionSvc.SetBroadcaster(hub)

	// ── 8. Root context + signal handling ─────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go hub.Run()
	logger.Info("websocket hub started")

	// ── 9. Scheduler (summary broadcasts only; transitions are API-driven) ────
	sched := scheduler.NewScheduler(marketSvc, scheduler.WrapHub(hub), cfg, logger)
	sched.Start(ctx)

	// ── 10. HTTP Router ───────────────────────────────────────────────────────
	router := api.SetupRouter(api.RouterDeps{
		AuthSvc:       authSvc,
		MarketSvc:     marketSvc,
		TradeSvc:      tradeSvc,
		ResolutionSvc: resolutionSvc,
		ClaimSvc:      claimSvc,
		WalletRepo:    walletRepo,
		Hub:           hub,
		Cfg:           cfg,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// ── 11. Start server ──────────────────────────────────────────────────────
	go func() {
		logger.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
			stop() // trigger graceful shutdown
		}
	}()

	// ── 12. Graceful shutdown ─────────────────────────────────────────────────
	<-ctx.Done()
	logger.Info("shutdown signal received, draining connections…")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err = srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown error", "err", err)
	}

	db.Close()
	logger.Info("server stopped cleanly")
}

// runMigrations reads all *.sql files from dir, sorted by name, and executes
// them sequentially.  Idempotent: SQL files should use IF NOT EXISTS / ON CONFLICT.
func runMigrations(db *sqlx.DB, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("runMigrations: read dir %q: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)

	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return fmt.Errorf("runMigrations: read %q: %w", f, err)
		}
		if _, err = db.Exec(string(data)); err != nil {
			return fmt.Errorf("runMigrations: exec %q: %w", f, err)
		}
		slog.Info("migration applied", "file", filepath.Base(f))
	}
	return nil
}
