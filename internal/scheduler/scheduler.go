// Package scheduler runs the background broadcast loop that pushes open
// market summaries to WebSocket clients. All lifecycle transitions are
// caller-triggered HTTP operations; the scheduler never mutates market state.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/evetabi/settlement/internal/config"
	"github.com/evetabi/settlement/internal/service"
	"github.com/evetabi/settlement/internal/ws"
)

// WsHub defines the broadcast operations the Scheduler needs from the
// WebSocket hub. Declared here so the scheduler package does not depend on
// the hub implementation.
type WsHub interface {
	BroadcastMarketUpdate(msg ws.MarketUpdateMessage)
	ConnectedCount() int
}

// hubAdapter bridges the concrete ws.Hub, whose BroadcastMarketUpdate takes
// the raw summary for the service.Broadcaster interface.
type hubAdapter struct{ hub *ws.Hub }

func (a hubAdapter) BroadcastMarketUpdate(msg ws.MarketUpdateMessage) {
	a.hub.BroadcastMarketUpdate(msg.Market)
}
func (a hubAdapter) ConnectedCount() int { return a.hub.ConnectedCount() }

// WrapHub adapts a *ws.Hub to the WsHub interface.
func WrapHub(h *ws.Hub) WsHub { return hubAdapter{hub: h} }

// ──────────────────────────────────────────────────────────────────────────────
// Scheduler
// ──────────────────────────────────────────────────────────────────────────────

// Scheduler runs the summary broadcast goroutine. Call Start(ctx) once from
// main(); cancel the context to shut it down gracefully.
type Scheduler struct {
	marketSvc *service.MarketService
	hub       WsHub
	cfg       *config.Config
	logger    *slog.Logger
}

// NewScheduler creates a Scheduler.
func NewScheduler(
	marketSvc *service.MarketService,
	hub WsHub,
	cfg *config.Config,
	logger *slog.Logger,
) *Scheduler {
	return &Scheduler{
		marketSvc: marketSvc,
		hub:       hub,
		cfg:       cfg,
		logger:    logger,
	}
}

// Start launches the broadcast goroutine. It returns immediately; the loop
// runs until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	go s.summaryBroadcastLoop(ctx)
	s.logger.Info("scheduler started")
}

// ──────────────────────────────────────────────────────────────────────────────
// summaryBroadcastLoop
// ──────────────────────────────────────────────────────────────────────────────

// summaryBroadcastLoop pushes all open market summaries to connected WS
// clients every 5 seconds. Trades push their own updates immediately; this
// tick keeps idle clients from drifting.
func (s *Scheduler) summaryBroadcastLoop(ctx context.Context) {
	defer s.recoverAndLog("summaryBroadcastLoop")

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("summaryBroadcastLoop: shutting down")
			return
		case <-ticker.C:
			s.broadcastSummaries(ctx)
		}
	}
}

// broadcastSummaries is the inner body of summaryBroadcastLoop, extracted so
// that the defer/recover in the loop catches panics correctly.
func (s *Scheduler) broadcastSummaries(ctx context.Context) {
	if s.hub == nil || s.hub.ConnectedCount() == 0 {
		return
	}

	summaries, err := s.marketSvc.ListOpenSummaries(ctx)
	if err != nil {
		s.logger.Warn("summaryBroadcastLoop: list open markets failed", "err", err)
		return
	}

	now := time.Now().UTC()
	for _, summary := range summaries {
		s.hub.BroadcastMarketUpdate(ws.MarketUpdateMessage{
			Type:      ws.MsgTypeMarketUpdate,
			Market:    summary,
			Timestamp: now,
		})
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Panic recovery
// ──────────────────────────────────────────────────────────────────────────────

// recoverAndLog is deferred inside each goroutine to catch unexpected panics,
// log them, and allow the scheduler to continue running.
func (s *Scheduler) recoverAndLog(loop string) {
	if r := recover(); r != nil {
		s.logger.Error("PANIC recovered in scheduler loop",
			"loop", loop, "panic", r)
	}
}
