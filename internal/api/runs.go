package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/lineage/internal/models"
)

// RunHandler serves recorded runs.
type RunHandler struct {
	repo RunService
	log  *logrus.Logger
}

// NewRunHandler creates a RunHandler.
func NewRunHandler(repo RunService, log *logrus.Logger) *RunHandler {
	return &RunHandler{repo: repo, log: log}
}

// List handles GET /api/v1/runs.
func (h *RunHandler) List(c *gin.Context) {
	limit := parseInt(c.DefaultQuery("limit", "50"), 50)

	runs, err := h.repo.ListRuns(c.Request.Context(), limit)
	if err != nil {
		h.log.WithError(err).Error("listing runs")
		respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")

		return
	}

	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

// Get handles GET /api/v1/runs/:id.
func (h *RunHandler) Get(c *gin.Context) {
	id := c.Param("id")
	if err := validatePathID(id); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid id: "+err.Error())

		return
	}

	run, err := h.repo.GetRun(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrRunNotFound) {
			respondError(c, http.StatusNotFound, ErrCodeNotFound, "run not found")

			return
		}

		h.log.WithError(err).Error("getting run")
		respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")

		return
	}

	c.JSON(http.StatusOK, run)
}
