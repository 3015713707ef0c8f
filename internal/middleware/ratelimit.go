// Package middleware provides HTTP middleware for the lineage server.
package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// maxLimiters is the maximum number of tracked IPs to prevent memory exhaustion.
const maxLimiters = 100_000

// limiterIdle is how long an unused per-IP limiter is kept.
const limiterIdle = 10 * time.Minute

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter applies a token bucket per client IP.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*ipLimiter
	rate     rate.Limit
	burst    int
}

// NewRateLimiter creates a RateLimiter with the given requests per second and burst size.
// It starts a background goroutine to evict idle limiters, which stops when ctx is cancelled.
func NewRateLimiter(ctx context.Context, ratePerSec float64, burst int) *RateLimiter {
	rl := &RateLimiter{
		limiters: make(map[string]*ipLimiter),
		rate:     rate.Limit(ratePerSec),
		burst:    burst,
	}
	go rl.startCleanup(ctx)

	return rl
}

// startCleanup periodically evicts idle limiters.
func (rl *RateLimiter) startCleanup(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			rl.mu.Lock()
			for ip, l := range rl.limiters {
				if now.Sub(l.lastSeen) > limiterIdle {
					delete(rl.limiters, ip)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// allow reports whether ip may proceed, and false with full=true when no
// limiter could be allocated.
func (rl *RateLimiter) allow(ip string) (ok, full bool) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	l, found := rl.limiters[ip]
	if !found {
		if len(rl.limiters) >= maxLimiters {
			return false, true
		}

		l = &ipLimiter{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[ip] = l
	}

	l.lastSeen = time.Now()

	return l.limiter.Allow(), false
}

// Handler returns Gin middleware that applies rate limiting per client IP.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		// ClientIP ignores forwarding headers because the router trusts no proxies.
		ok, full := rl.allow(c.ClientIP())

		switch {
		case full:
			respondError(c, http.StatusTooManyRequests, "rate_limited", "too many clients")
		case !ok:
			c.Header("Retry-After", "1")
			respondError(c, http.StatusTooManyRequests, "rate_limited", "rate limit exceeded")
		default:
			c.Next()
		}
	}
}
