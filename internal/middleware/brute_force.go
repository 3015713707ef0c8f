package middleware

import (
	"context"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	bruteForceMaxAttempts = 5
	bruteForceWindow      = 15 * time.Minute
	bruteForceLockout     = 5 * time.Minute
	bruteForceCleanup     = 60 * time.Second
	bruteForceMaxRecords  = 10000
)

type failureRecord struct {
	attempts  int
	firstFail time.Time
	lockedAt  time.Time
}

// BruteForceGuard tracks authentication failures per client and locks out
// clients that exceed the failure threshold within the tracking window.
type BruteForceGuard struct {
	mu      sync.Mutex
	records map[string]*failureRecord
	log     *logrus.Logger
}

// NewBruteForceGuard creates a new guard and starts a background cleanup goroutine
// that stops when ctx is cancelled.
func NewBruteForceGuard(ctx context.Context, log *logrus.Logger) *BruteForceGuard {
	g := &BruteForceGuard{
		records: make(map[string]*failureRecord),
		log:     log,
	}
	go g.cleanupLoop(ctx)
	return g
}

// IsBlocked reports whether client is currently locked out.
func (g *BruteForceGuard) IsBlocked(client string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	rec, ok := g.records[client]
	if !ok {
		return false
	}

	return !rec.lockedAt.IsZero() && time.Since(rec.lockedAt) < bruteForceLockout
}

// RecordFailure records a failed authentication attempt by client.
func (g *BruteForceGuard) RecordFailure(client string) {
	now := time.Now()

	g.mu.Lock()
	defer g.mu.Unlock()

	rec, ok := g.records[client]
	if !ok {
		g.records[client] = &failureRecord{attempts: 1, firstFail: now}
		return
	}

	// Outside the tracking window the count starts over.
	if now.Sub(rec.firstFail) > bruteForceWindow {
		*rec = failureRecord{attempts: 1, firstFail: now}
		return
	}

	rec.attempts++
	if rec.attempts >= bruteForceMaxAttempts && rec.lockedAt.IsZero() {
		rec.lockedAt = now
		g.log.WithField("client_ip", client).Warn("client locked out after repeated auth failures")
	}
}

// Reset clears failure tracking for client (call on successful auth).
func (g *BruteForceGuard) Reset(client string) {
	g.mu.Lock()
	delete(g.records, client)
	g.mu.Unlock()
}

func (g *BruteForceGuard) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(bruteForceCleanup)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			g.sweep(now)
		}
	}
}

// sweep drops expired lockouts and stale windows, then trims to the cap.
func (g *BruteForceGuard) sweep(now time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for k, rec := range g.records {
		expiredLock := !rec.lockedAt.IsZero() && now.Sub(rec.lockedAt) >= bruteForceLockout
		if expiredLock || now.Sub(rec.firstFail) >= bruteForceWindow {
			delete(g.records, k)
		}
	}

	if over := len(g.records) - bruteForceMaxRecords; over > 0 {
		g.evictOldest(over)
	}
}

// evictOldest removes the n records with the oldest first failure.
// Caller must hold g.mu.
func (g *BruteForceGuard) evictOldest(n int) {
	keys := make([]string, 0, len(g.records))
	for k := range g.records {
		keys = append(keys, k)
	}

	slices.SortFunc(keys, func(a, b string) int {
		return g.records[a].firstFail.Compare(g.records[b].firstFail)
	})

	for _, k := range keys[:n] {
		delete(g.records, k)
	}
}

// BruteForceMiddleware returns middleware that rejects locked-out clients.
func BruteForceMiddleware(guard *BruteForceGuard) gin.HandlerFunc {
	return func(c *gin.Context) {
		if guard.IsBlocked(c.ClientIP()) {
			respondError(c, http.StatusTooManyRequests, "rate_limited", "too many failed authentication attempts")
			return
		}

		c.Next()
	}
}
