package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// ──────────────────────────────────────────────────────────────────────────────
// Per-IP rate limiting
// ──────────────────────────────────────────────────────────────────────────────

// ipLimiter wraps a token bucket with its last-seen timestamp for eviction.
type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiter holds per-IP limiters behind a shared lock.
type rateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*ipLimiter
	rps      rate.Limit
	burst    int
}

// newRateLimiter creates a limiter with the given requests-per-second
// allowance. The burst capacity is set to max(10, rps) so short spikes are
// absorbed.
func newRateLimiter(rps int) *rateLimiter {
	burst := rps
	if burst < 10 {
		burst = 10
	}
	return &rateLimiter{
		limiters: make(map[string]*ipLimiter),
		rps:      rate.Limit(rps),
		burst:    burst,
	}
}

// allow reports whether the given key may proceed, creating its bucket on
// first sight.
func (rl *rateLimiter) allow(key string) bool {
	rl.mu.Lock()
	l, ok := rl.limiters[key]
	if !ok {
		l = &ipLimiter{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.limiters[key] = l
	}
	l.lastSeen = time.Now()
	rl.mu.Unlock()

	return l.limiter.Allow()
}

// evictStale drops limiters idle for longer than the cutoff so the map does
// not grow without bound.
func (rl *rateLimiter) evictStale(maxIdle time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	cutoff := time.Now().Add(-maxIdle)
	for ip, l := range rl.limiters {
		if l.lastSeen.Before(cutoff) {
			delete(rl.limiters, ip)
		}
	}
}

// RateLimitMiddleware returns a gin.HandlerFunc that enforces a per-IP rate
// limit of rps requests per second. Clients exceeding the limit receive
// 429 Too Many Requests.
func RateLimitMiddleware(rps int) gin.HandlerFunc {
	rl := newRateLimiter(rps)

	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			rl.evictStale(10 * time.Minute)
		}
	}()

	return func(c *gin.Context) {
		if !rl.allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "too many requests, slow down",
			})
			return
		}
		c.Next()
	}
}
