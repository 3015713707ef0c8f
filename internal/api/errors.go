package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/lineage/internal/httputil"
	"github.com/persistorai/lineage/internal/metrics"
	"github.com/persistorai/lineage/internal/models"
)

// Error code constants for standardized API responses.
const (
	ErrCodeInvalidRequest  = "invalid_request"
	ErrCodeNotFound        = "not_found"
	ErrCodeInternalError   = "internal_error"
	ErrCodeUnauthorized    = "unauthorized"
	ErrCodeRateLimited     = "rate_limited"
	ErrCodeValidationError = "validation_error"
	ErrCodeStoreError      = "store_error"
	ErrCodeCancelled       = "cancelled"
)

// respondError writes a standardized JSON error response, pulling the request
// ID from the Gin context (set by the request ID middleware).
func respondError(c *gin.Context, status int, code, message string) {
	metrics.ErrorsTotal.WithLabelValues(code).Inc()
	httputil.RespondError(c, status, code, message)
}

// isValidation reports whether err is a request validation failure.
func isValidation(err error) bool {
	return errors.Is(err, models.ErrEmptySeedSet) ||
		errors.Is(err, models.ErrInvalidRoundCap) ||
		errors.Is(err, models.ErrInvalidDirection) ||
		errors.Is(err, models.ErrMissingEdges) ||
		errors.Is(err, models.ErrInvalidBatch)
}

// respondRunError maps a traversal error to a response. Store failures carry
// the failing phase and round, plus whatever partial result was read back.
func respondRunError(c *gin.Context, log *logrus.Logger, op string, err error, partial any) {
	if isValidation(err) {
		respondError(c, http.StatusBadRequest, ErrCodeValidationError, err.Error())
		return
	}

	var (
		execErr  *models.StoreExecutionError
		queryErr *models.StoreQueryError
	)

	// A context error surfaces wrapped in a store error when it interrupts a
	// round, so it is matched first.
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		respondError(c, http.StatusGatewayTimeout, ErrCodeCancelled, "traversal timed out")
	case errors.Is(err, context.Canceled):
		respondError(c, http.StatusServiceUnavailable, ErrCodeCancelled, "traversal cancelled")
	case errors.As(err, &execErr):
		respondStoreError(c, execErr.Phase, execErr.Round, err, partial)
	case errors.As(err, &queryErr):
		respondStoreError(c, queryErr.Phase, queryErr.Round, err, partial)
	default:
		log.WithError(err).Error(op)
		respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")
	}
}

func respondStoreError(c *gin.Context, phase models.Phase, round int, err error, partial any) {
	metrics.ErrorsTotal.WithLabelValues(ErrCodeStoreError).Inc()

	extra := gin.H{"phase": phase, "round": round}
	if partial != nil {
		extra["partial"] = partial
	}

	httputil.RespondErrorWith(c, http.StatusBadGateway, ErrCodeStoreError, err.Error(), extra)
}
