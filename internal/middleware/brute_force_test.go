package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/persistorai/lineage/internal/middleware"
)

func newTestGuard() (*middleware.BruteForceGuard, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	return middleware.NewBruteForceGuard(ctx, quietLogger()), cancel
}

func TestBruteForce_ResetClearsCount(t *testing.T) {
	guard, cancel := newTestGuard()
	defer cancel()

	guard.RecordFailure("1.1.1.1")
	guard.RecordFailure("1.1.1.1")
	guard.Reset("1.1.1.1")

	if guard.IsBlocked("1.1.1.1") {
		t.Fatal("client should not be blocked after reset")
	}
}

func TestBruteForce_BlocksAtThreshold(t *testing.T) {
	tests := []struct {
		failures int
		blocked  bool
	}{
		{failures: 4, blocked: false},
		{failures: 5, blocked: true},
		{failures: 8, blocked: true},
	}

	for _, tc := range tests {
		guard, cancel := newTestGuard()

		for range tc.failures {
			guard.RecordFailure("2.2.2.2")
		}

		if got := guard.IsBlocked("2.2.2.2"); got != tc.blocked {
			t.Errorf("after %d failures blocked = %v, want %v", tc.failures, got, tc.blocked)
		}

		if guard.IsBlocked("3.3.3.3") {
			t.Error("other clients must not be blocked")
		}

		cancel()
	}
}

func TestBruteForce_MiddlewareBlocksClient(t *testing.T) {
	guard, cancel := newTestGuard()
	defer cancel()

	for range 5 {
		guard.RecordFailure("4.4.4.4")
	}

	r := gin.New()
	r.Use(middleware.BruteForceMiddleware(guard))
	r.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, tc := range []struct {
		addr string
		want int
	}{
		{"4.4.4.4:1000", http.StatusTooManyRequests},
		{"5.5.5.5:1000", http.StatusOK},
	} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
		req.RemoteAddr = tc.addr
		r.ServeHTTP(w, req)

		if w.Code != tc.want {
			t.Errorf("%s: got %d, want %d", tc.addr, w.Code, tc.want)
		}
	}
}
