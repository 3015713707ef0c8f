package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/lineage/internal/models"
)

// EdgeHandler serves the edge relation endpoints.
type EdgeHandler struct {
	repo EdgeService
	log  *logrus.Logger
}

// NewEdgeHandler creates an EdgeHandler with the given service and logger.
func NewEdgeHandler(repo EdgeService, log *logrus.Logger) *EdgeHandler {
	return &EdgeHandler{repo: repo, log: log}
}

// Insert handles POST /api/v1/edges.
func (h *EdgeHandler) Insert(c *gin.Context) {
	var req models.InsertEdgesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body")

		return
	}

	if err := req.Validate(); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeValidationError, err.Error())

		return
	}

	n, err := h.repo.InsertEdges(c.Request.Context(), req)
	if err != nil {
		h.log.WithError(err).Error("inserting edges")
		respondError(c, http.StatusBadGateway, ErrCodeStoreError, "inserting edges failed")

		return
	}

	h.log.WithFields(logrus.Fields{"action": "edges.insert", "edges": n}).Info("audit")

	c.JSON(http.StatusCreated, gin.H{"inserted": n})
}

// Count handles GET /api/v1/edges/count.
func (h *EdgeHandler) Count(c *gin.Context) {
	n, err := h.repo.CountEdges(c.Request.Context())
	if err != nil {
		h.log.WithError(err).Error("counting edges")
		respondError(c, http.StatusBadGateway, ErrCodeStoreError, "counting edges failed")

		return
	}

	c.JSON(http.StatusOK, gin.H{"count": n})
}

// Clear handles DELETE /api/v1/edges.
func (h *EdgeHandler) Clear(c *gin.Context) {
	n, err := h.repo.ClearEdges(c.Request.Context())
	if err != nil {
		h.log.WithError(err).Error("clearing edges")
		respondError(c, http.StatusBadGateway, ErrCodeStoreError, "clearing edges failed")

		return
	}

	h.log.WithFields(logrus.Fields{"action": "edges.clear", "edges": n}).Info("audit")

	c.JSON(http.StatusOK, gin.H{"deleted": n})
}
