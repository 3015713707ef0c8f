package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/lineage/internal/middleware"
	"github.com/persistorai/lineage/internal/relstore"
	"github.com/persistorai/lineage/internal/ws"
)

// RouterDeps holds all dependencies needed by the router.
type RouterDeps struct {
	Log         *logrus.Logger
	Store       relstore.Store
	Hub         *ws.Hub
	Traversal   TraversalService
	Edges       EdgeService
	Runs        RunService
	CORSOrigins []string
	// APIKey enables bearer authentication when non-empty.
	APIKey  string
	Version string
	// RateLimit and RateBurst override the per-IP defaults when positive.
	RateLimit float64
	RateBurst int
}

// Router-level limits.
const (
	maxBodySize = 16 << 20 // 16 MB, room for a full bulk edge insert
	rateLimit   = 100      // requests per second per IP
	rateBurst   = 200      // token bucket burst size
)

// setupMiddleware configures all middleware on the Gin engine.
func setupMiddleware(ctx context.Context, r *gin.Engine, deps *RouterDeps) {
	r.SetTrustedProxies(nil) //nolint:errcheck // nil always succeeds.
	r.Use(middleware.RequestID(deps.Log))
	r.Use(ginLogger(deps.Log))
	r.Use(gin.Recovery())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.MaxBodySize(maxBodySize))

	// cors.New panics on an empty origin list; no origins means same-origin only.
	if len(deps.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     deps.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Content-Type", "Authorization"},
			MaxAge:           1 * time.Hour,
			AllowCredentials: false,
		}))
	}

	limit, burst := float64(rateLimit), rateBurst
	if deps.RateLimit > 0 {
		limit = deps.RateLimit
	}
	if deps.RateBurst > 0 {
		burst = deps.RateBurst
	}

	r.Use(middleware.NewRateLimiter(ctx, limit, burst).Handler())
	r.Use(middleware.PrometheusMiddleware())

	// Metrics endpoint (unauthenticated, like health).
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// registerRoutes sets up all API route handlers on the given router group.
func registerRoutes(ctx context.Context, api *gin.RouterGroup, deps *RouterDeps) {
	log := deps.Log

	health := NewHealthHandler(deps.Store, deps.Hub, log, deps.Version)
	traversal := NewTraversalHandler(deps.Traversal, log)
	edges := NewEdgeHandler(deps.Edges, log)
	runs := NewRunHandler(deps.Runs, log)

	// Health and readiness are unauthenticated.
	api.GET("/health", health.Liveness)
	api.GET("/ready", health.Readiness)

	if deps.APIKey != "" {
		guard := middleware.NewBruteForceGuard(ctx, log)
		api.Use(middleware.BruteForceMiddleware(guard))
		api.Use(middleware.APIKeyAuth(deps.APIKey, log, guard))
	}

	// Edge relation.
	api.POST("/edges", edges.Insert)
	api.GET("/edges/count", edges.Count)
	api.DELETE("/edges", edges.Clear)

	// Traversals.
	api.POST("/closure", traversal.Closure)
	api.POST("/closure/batch", traversal.BatchClosure)
	api.POST("/paths", traversal.Paths)

	// Run log.
	api.GET("/runs", runs.List)
	api.GET("/runs/:id", runs.Get)

	// WebSocket endpoint.
	if deps.Hub != nil {
		api.GET("/ws", wsHandler(ctx, log, deps.Hub, deps.CORSOrigins))
	}
}

// NewRouter creates and configures the Gin engine with all middleware and routes.
func NewRouter(ctx context.Context, deps *RouterDeps) http.Handler {
	r := gin.New()
	setupMiddleware(ctx, r, deps)
	registerRoutes(ctx, r.Group("/api/v1"), deps)

	return r
}
