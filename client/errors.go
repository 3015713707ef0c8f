package client

import (
	"encoding/json"
	"errors"
	"fmt"
)

// APIError represents a structured error response from the lineage API.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	RequestID  string `json:"request_id,omitempty"`
	// Phase and Round locate a store failure inside a run.
	Phase string `json:"phase,omitempty"`
	Round int    `json:"round,omitempty"`
	// Partial holds the result read back before a run failed, if any.
	Partial json.RawMessage `json:"partial,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	msg := fmt.Sprintf("lineage: %d %s: %s", e.StatusCode, e.Code, e.Message)
	if e.Phase != "" {
		msg += fmt.Sprintf(" (phase=%s round=%d)", e.Phase, e.Round)
	}
	if e.RequestID != "" {
		msg += fmt.Sprintf(" (request_id=%s)", e.RequestID)
	}
	return msg
}

// PartialClosure decodes the partial closure result carried by a failed run.
// It returns nil when the error carries none.
func (e *APIError) PartialClosure() (*ClosureResult, error) {
	if len(e.Partial) == 0 {
		return nil, nil
	}
	var res ClosureResult
	if err := json.Unmarshal(e.Partial, &res); err != nil {
		return nil, fmt.Errorf("decode partial result: %w", err)
	}
	return &res, nil
}

func statusOf(err error) int {
	var e *APIError
	if errors.As(err, &e) {
		return e.StatusCode
	}
	return 0
}

// IsNotFound returns true if the error is a 404 not found.
func IsNotFound(err error) bool { return statusOf(err) == 404 }

// IsValidation returns true if the server rejected the request as malformed.
func IsValidation(err error) bool { return statusOf(err) == 400 }

// IsRateLimited returns true if the error is a 429 rate limit.
func IsRateLimited(err error) bool { return statusOf(err) == 429 }

// IsStoreError returns true if a run failed inside the relational store.
func IsStoreError(err error) bool { return statusOf(err) == 502 }

// parseAPIError attempts to decode a JSON error body; falls back to raw text.
func parseAPIError(statusCode int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: statusCode}
	if err := json.Unmarshal(body, apiErr); err != nil || apiErr.Code == "" {
		apiErr.Code = "unknown"
		apiErr.Message = string(body)
	}
	return apiErr
}
