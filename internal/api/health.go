// Package api provides HTTP handlers for the lineage server.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/lineage/internal/relstore"
	"github.com/persistorai/lineage/internal/ws"
)

// HealthHandler serves health check endpoints.
type HealthHandler struct {
	store     relstore.Store
	hub       *ws.Hub
	log       *logrus.Logger
	version   string
	startTime time.Time
}

// NewHealthHandler creates a HealthHandler. store and hub may be nil.
func NewHealthHandler(store relstore.Store, hub *ws.Hub, log *logrus.Logger, version string) *HealthHandler {
	return &HealthHandler{
		store:     store,
		hub:       hub,
		log:       log,
		version:   version,
		startTime: time.Now(),
	}
}

// readinessResponse is the JSON payload returned by the readiness endpoint.
type readinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// healthResponse is the JSON payload returned by the health/liveness endpoint.
type healthResponse struct {
	Status        string  `json:"status"`
	Version       string  `json:"version"`
	Database      string  `json:"database"`
	Dialect       string  `json:"dialect,omitempty"`
	WSClients     int     `json:"ws_clients"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// Liveness handles GET /api/v1/health. The database ping is informational.
func (h *HealthHandler) Liveness(c *gin.Context) {
	resp := healthResponse{
		Status:        "ok",
		Version:       h.version,
		Database:      "connected",
		UptimeSeconds: time.Since(h.startTime).Seconds(),
	}

	if h.store != nil {
		resp.Dialect = string(h.store.Dialect())

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := h.store.Ping(ctx); err != nil {
			resp.Database = "disconnected"
		}
	} else {
		resp.Database = "not_configured"
	}

	if h.hub != nil {
		resp.WSClients = h.hub.ClientCount()
	}

	c.JSON(http.StatusOK, resp)
}

// Readiness handles GET /api/v1/ready and checks the store and schema.
func (h *HealthHandler) Readiness(c *gin.Context) {
	checks := map[string]string{
		"database": "ok",
		"schema":   "ok",
	}
	status := "ready"
	statusCode := http.StatusOK

	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	if h.store == nil {
		checks["database"] = "not_configured"
	} else if err := h.store.Ping(ctx); err != nil {
		h.log.WithError(err).Error("readiness: database ping failed")
		checks["database"] = "error"
	}

	if checks["database"] == "ok" {
		if err := h.checkSchema(ctx); err != nil {
			h.log.WithError(err).Error("readiness: schema check failed")
			checks["schema"] = "error"
		}
	} else {
		checks["schema"] = "unknown"
	}

	if checks["database"] != "ok" || checks["schema"] != "ok" {
		status = "not_ready"
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, readinessResponse{
		Status: status,
		Checks: checks,
	})
}

// checkSchema verifies the migrated schema by counting the runs table.
func (h *HealthHandler) checkSchema(ctx context.Context) error {
	out, err := h.store.Query(ctx, relstore.Stmt("SELECT COUNT(*) FROM runs"))
	if err != nil {
		return fmt.Errorf("schema check: %w", err)
	}

	if _, err := relstore.ParseCount(out); err != nil {
		return fmt.Errorf("schema check: %w", err)
	}

	return nil
}
