package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for request validation. Validation happens before any
// store operation is issued.
var (
	ErrEmptySeedSet     = errors.New("seed set must not be empty")
	ErrInvalidRoundCap  = errors.New("invalid round cap")
	ErrInvalidDirection = errors.New("invalid direction")
	ErrMissingEdges     = errors.New("edges are required")
	ErrInvalidBatch     = errors.New("invalid batch")
)

// ErrRoundCapExceeded marks a run that stopped at its round cap without
// reaching a fixpoint. It is a non-fatal outcome, distinct from convergence.
var ErrRoundCapExceeded = errors.New("round cap exceeded before fixpoint")

// ErrRunNotFound indicates a run record lookup miss.
var ErrRunNotFound = errors.New("run not found")

// StoreExecutionError reports a round batch the store failed to execute.
// The round is aborted and not retried.
type StoreExecutionError struct {
	Phase Phase
	Round int
	Err   error
}

func (e *StoreExecutionError) Error() string {
	return fmt.Sprintf("%s round %d: store execution failed: %v", e.Phase, e.Round, e.Err)
}

func (e *StoreExecutionError) Unwrap() error { return e.Err }

// StoreQueryError reports an aggregate read that failed and could not be
// substituted by the emptiness probe.
type StoreQueryError struct {
	Phase Phase
	Round int
	Err   error
}

func (e *StoreQueryError) Error() string {
	return fmt.Sprintf("%s round %d: store query failed: %v", e.Phase, e.Round, e.Err)
}

func (e *StoreQueryError) Unwrap() error { return e.Err }
