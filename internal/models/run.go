package models

import "time"

// RunKind labels what a recorded run computed.
type RunKind string

// Run kinds.
const (
	RunClosure RunKind = "closure"
	RunPaths   RunKind = "paths"
)

// Run is the persisted record of one traversal invocation.
type Run struct {
	ID          string        `json:"id"`
	Kind        RunKind       `json:"kind"`
	Direction   Direction     `json:"direction,omitempty"`
	Outcome     Outcome       `json:"outcome"`
	Rounds      int           `json:"rounds"`
	VisitedSize int           `json:"visited_size"`
	Error       string        `json:"error,omitempty"`
	StartedAt   time.Time     `json:"started_at"`
	Duration    time.Duration `json:"duration_ns"`
}
