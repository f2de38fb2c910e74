// Package cache holds the Redis-backed market summary cache. Summaries are
// small, hot and change on every trade, so they get a short TTL and explicit
// invalidation on lifecycle transitions.
package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/evetabi/settlement/internal/config"
	"github.com/evetabi/settlement/internal/domain"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const summaryKeyPrefix = "settlement:summary:"

// SummaryCache caches rendered market summaries in Redis. A nil receiver is
// valid and disables caching, so callers never branch on configuration.
type SummaryCache struct {
	client *redis.Client
	ttl    time.Duration
}

// New connects to Redis per config. Returns nil (caching disabled) when no
// address is configured.
func New(cfg config.RedisConfig) *SummaryCache {
	if cfg.Addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &SummaryCache{client: client, ttl: cfg.SummaryTTL}
}

func summaryKey(id uuid.UUID) string { return summaryKeyPrefix + id.String() }

// Get returns the cached summary, or (nil, false) on miss or any Redis error.
// Cache failures are soft: the caller falls through to the database.
func (c *SummaryCache) Get(ctx context.Context, id uuid.UUID) (*domain.MarketSummary, bool) {
	if c == nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, summaryKey(id)).Bytes()
	if err != nil {
		if err != redis.Nil {
			slog.Warn("summary cache get failed", "market_id", id, "err", err)
		}
		return nil, false
	}
	var summary domain.MarketSummary
	if err := json.Unmarshal(raw, &summary); err != nil {
		return nil, false
	}
	return &summary, true
}

// Set stores the summary under its market key with the configured TTL.
func (c *SummaryCache) Set(ctx context.Context, summary *domain.MarketSummary) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(summary)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, summaryKey(summary.ID), raw, c.ttl).Err(); err != nil {
		slog.Warn("summary cache set failed", "market_id", summary.ID, "err", err)
	}
}

// Invalidate drops the cached summary, used on lifecycle transitions where a
// stale TTL window would show the wrong status.
func (c *SummaryCache) Invalidate(ctx context.Context, id uuid.UUID) {
	if c == nil {
		return
	}
	if err := c.client.Del(ctx, summaryKey(id)).Err(); err != nil {
		slog.Warn("summary cache invalidate failed", "market_id", id, "err", err)
	}
}

// Ping verifies connectivity at startup.
func (c *SummaryCache) Ping(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.client.Ping(ctx).Err()
}
