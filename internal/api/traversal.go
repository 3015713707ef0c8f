package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/lineage/internal/models"
)

// defaultMaxDepth applies to path requests that omit max_depth.
const defaultMaxDepth = 10

// defaultDirection applies to closure requests that omit direction.
const defaultDirection = models.Backward

// TraversalHandler serves closure and path endpoints.
type TraversalHandler struct {
	svc TraversalService
	log *logrus.Logger
}

// NewTraversalHandler creates a TraversalHandler.
func NewTraversalHandler(svc TraversalService, log *logrus.Logger) *TraversalHandler {
	return &TraversalHandler{svc: svc, log: log}
}

// closureBody is the wire form of a closure request. Direction accepts the
// aliases understood by models.ParseDirection.
type closureBody struct {
	Seeds     []models.Vertex `json:"seeds"`
	Direction string          `json:"direction"`
	MaxRounds int             `json:"max_rounds"`
	Annotate  bool            `json:"annotate"`
}

func (b closureBody) request() (models.ClosureRequest, error) {
	dir := defaultDirection
	if b.Direction != "" {
		d, err := models.ParseDirection(b.Direction)
		if err != nil {
			return models.ClosureRequest{}, err
		}
		dir = d
	}

	return models.ClosureRequest{Seeds: b.Seeds, Direction: dir, MaxRounds: b.MaxRounds, Annotate: b.Annotate}, nil
}

// Closure handles POST /api/v1/closure. A run that stops at its round cap is
// a 200 with outcome round_cap_exceeded.
func (h *TraversalHandler) Closure(c *gin.Context) {
	var body closureBody
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body")
		return
	}

	req, err := body.request()
	if err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeValidationError, err.Error())
		return
	}

	res, err := h.svc.Closure(c.Request.Context(), req)
	if err != nil {
		var partial any
		if res != nil {
			partial = res
		}

		respondRunError(c, h.log, "running closure", err, partial)

		return
	}

	c.JSON(http.StatusOK, res)
}

// BatchClosure handles POST /api/v1/closure/batch.
func (h *TraversalHandler) BatchClosure(c *gin.Context) {
	var body struct {
		Queries []closureBody `json:"queries"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body")
		return
	}

	req := models.BatchClosureRequest{Queries: make([]models.ClosureRequest, len(body.Queries))}
	for i, q := range body.Queries {
		cr, err := q.request()
		if err != nil {
			respondError(c, http.StatusBadRequest, ErrCodeValidationError, err.Error())
			return
		}
		req.Queries[i] = cr
	}

	results, err := h.svc.BatchClosure(c.Request.Context(), req)
	if err != nil {
		respondRunError(c, h.log, "running batch closure", err, nil)
		return
	}

	c.JSON(http.StatusOK, gin.H{"results": results})
}

// pathBody is the wire form of a path request; a missing max_depth takes the default.
type pathBody struct {
	Sources      []models.Vertex `json:"sources"`
	Destinations []models.Vertex `json:"destinations"`
	MaxDepth     *int            `json:"max_depth"`
}

// Paths handles POST /api/v1/paths. No source within range is a 200 with
// forward outcome no_sources and empty vertex and edge lists.
func (h *TraversalHandler) Paths(c *gin.Context) {
	var body pathBody
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body")
		return
	}

	req := models.PathRequest{Sources: body.Sources, Destinations: body.Destinations, MaxDepth: defaultMaxDepth}
	if body.MaxDepth != nil {
		req.MaxDepth = *body.MaxDepth
	}

	res, err := h.svc.Paths(c.Request.Context(), req)
	if err != nil {
		var partial any
		if res != nil {
			partial = res
		}

		respondRunError(c, h.log, "running paths", err, partial)

		return
	}

	c.JSON(http.StatusOK, res)
}
