package models

import (
	"fmt"
	"time"
)

// Phase names the traversal pass a round belongs to.
type Phase string

// Traversal phases.
const (
	PhaseClosure  Phase = "closure"
	PhaseBackward Phase = "backward"
	PhaseForward  Phase = "forward"
)

// Outcome describes how a traversal pass stopped.
type Outcome string

// Traversal outcomes.
const (
	// OutcomeConverged means a round discovered no new vertex.
	OutcomeConverged Outcome = "converged"
	// OutcomeRoundCap means the round cap was reached with a non-empty frontier.
	OutcomeRoundCap Outcome = "round_cap_exceeded"
	// OutcomeNoSources means no source vertex was within range of a
	// destination, so the forward pass had nothing to expand.
	OutcomeNoSources Outcome = "no_sources"
	// OutcomeFailed marks a recorded run that ended with an error.
	OutcomeFailed Outcome = "failed"
)

// RoundReport is emitted after every round.
type RoundReport struct {
	RunID        string        `json:"run_id"`
	Phase        Phase         `json:"phase"`
	Round        int           `json:"round"`
	FrontierSize int           `json:"frontier_size"`
	VisitedSize  int           `json:"visited_size"`
	Elapsed      time.Duration `json:"elapsed_ns"`
}

// ClosureRequest is the payload for a reachability closure query.
type ClosureRequest struct {
	Seeds     []Vertex  `json:"seeds"`
	Direction Direction `json:"direction"`
	MaxRounds int       `json:"max_rounds"`
	Annotate  bool      `json:"annotate,omitempty"`
}

// Validate checks the request. A zero MaxRounds is rejected here; callers
// that want a default must fill it in first.
func (r *ClosureRequest) Validate() error {
	if len(r.Seeds) == 0 {
		return ErrEmptySeedSet
	}

	if !r.Direction.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidDirection, r.Direction)
	}

	if r.MaxRounds < 1 {
		return fmt.Errorf("%w: max_rounds must be at least 1, got %d", ErrInvalidRoundCap, r.MaxRounds)
	}

	return nil
}

// ClosureResult is the full forward or backward closure of a seed set.
type ClosureResult struct {
	RunID     string        `json:"run_id"`
	Direction Direction     `json:"direction"`
	Seeds     []Vertex      `json:"seeds"`
	Visited   []Vertex      `json:"visited"`
	Subgraph  []DepthEdge   `json:"subgraph,omitempty"`
	Rounds    int           `json:"rounds"`
	Outcome   Outcome       `json:"outcome"`
	Reports   []RoundReport `json:"reports"`
	Partial   bool          `json:"partial,omitempty"`
}

// Converged reports whether the closure reached a fixpoint.
func (r *ClosureResult) Converged() bool {
	return r.Outcome == OutcomeConverged
}

// Err returns ErrRoundCapExceeded when the run stopped at its cap, nil otherwise.
func (r *ClosureResult) Err() error {
	if r.Outcome == OutcomeRoundCap {
		return ErrRoundCapExceeded
	}

	return nil
}

// BatchClosureRequest runs several independent closures concurrently.
type BatchClosureRequest struct {
	Queries []ClosureRequest `json:"queries"`
}

// maxBatchQueries caps a single batch request.
const maxBatchQueries = 64

// Validate checks every query in the batch.
func (r *BatchClosureRequest) Validate() error {
	if len(r.Queries) == 0 {
		return fmt.Errorf("%w: queries are required", ErrInvalidBatch)
	}

	if len(r.Queries) > maxBatchQueries {
		return fmt.Errorf("%w: queries exceeds maximum of %d per batch", ErrInvalidBatch, maxBatchQueries)
	}

	for i := range r.Queries {
		if err := r.Queries[i].Validate(); err != nil {
			return fmt.Errorf("query %d: %w", i, err)
		}
	}

	return nil
}

// PathRequest is the payload for a depth-bounded path subgraph query.
type PathRequest struct {
	Sources      []Vertex `json:"sources"`
	Destinations []Vertex `json:"destinations"`
	MaxDepth     int      `json:"max_depth"`
}

// Validate checks the request.
func (r *PathRequest) Validate() error {
	if len(r.Sources) == 0 {
		return fmt.Errorf("sources: %w", ErrEmptySeedSet)
	}

	if len(r.Destinations) == 0 {
		return fmt.Errorf("destinations: %w", ErrEmptySeedSet)
	}

	if r.MaxDepth < 0 {
		return fmt.Errorf("%w: max_depth must not be negative, got %d", ErrInvalidRoundCap, r.MaxDepth)
	}

	return nil
}

// PhaseSummary describes one pass of a bounded path run.
type PhaseSummary struct {
	Rounds      int     `json:"rounds"`
	Outcome     Outcome `json:"outcome"`
	VisitedSize int     `json:"visited_size"`
}

// PathResult is the bounded path subgraph between two vertex sets.
type PathResult struct {
	RunID    string        `json:"run_id"`
	MaxDepth int           `json:"max_depth"`
	Vertices []Vertex      `json:"vertices"`
	Edges    []PathEdge    `json:"edges"`
	Backward PhaseSummary  `json:"backward"`
	Forward  PhaseSummary  `json:"forward"`
	Reports  []RoundReport `json:"reports"`
	Partial  bool          `json:"partial,omitempty"`
}

// Empty reports whether no source lies on a path within budget.
func (r *PathResult) Empty() bool {
	return len(r.Vertices) == 0
}
