package models

import (
	"fmt"
	"strings"
)

// Direction selects which endpoint of an edge a traversal follows.
type Direction string

// Traversal directions.
const (
	// Forward follows src → dst (descendants).
	Forward Direction = "forward"
	// Backward follows dst → src (ancestors).
	Backward Direction = "backward"
)

// ParseDirection accepts "forward"/"backward" and the aliases
// "descendants"/"ancestors", case-insensitively.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "forward", "descendants", "down":
		return Forward, nil
	case "backward", "ancestors", "up":
		return Backward, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidDirection, s)
	}
}

// Valid reports whether d is one of the known directions.
func (d Direction) Valid() bool {
	return d == Forward || d == Backward
}

// Reverse returns the opposite direction.
func (d Direction) Reverse() Direction {
	if d == Forward {
		return Backward
	}

	return Forward
}

// Near returns the edge column joined against the frontier.
func (d Direction) Near() string {
	if d == Backward {
		return "dst"
	}

	return "src"
}

// Far returns the edge column that yields the next candidates.
func (d Direction) Far() string {
	if d == Backward {
		return "src"
	}

	return "dst"
}

// Edge is a directed pair of vertices in the base edge relation.
type Edge struct {
	Src Vertex `json:"src"`
	Dst Vertex `json:"dst"`
}

// String renders the edge as "src->dst".
func (e Edge) String() string {
	return fmt.Sprintf("%d->%d", e.Src, e.Dst)
}

// DepthEdge is an edge recorded during backward discovery, tagged with the
// round at which it was traversed.
type DepthEdge struct {
	Src   Vertex `json:"src"`
	Dst   Vertex `json:"dst"`
	Depth int    `json:"depth"`
}

// Edge drops the depth annotation.
func (e DepthEdge) Edge() Edge {
	return Edge{Src: e.Src, Dst: e.Dst}
}

// PathEdge is an edge of a bounded path subgraph. Depth is the backward
// discovery depth and Hop the forward hop at which it was traversed; every
// PathEdge satisfies Depth+Hop <= the run's max depth.
type PathEdge struct {
	Src   Vertex `json:"src"`
	Dst   Vertex `json:"dst"`
	Depth int    `json:"depth"`
	Hop   int    `json:"hop"`
}

// Edge drops the annotations.
func (e PathEdge) Edge() Edge {
	return Edge{Src: e.Src, Dst: e.Dst}
}

// InsertEdgesRequest is the payload for bulk loading edges.
type InsertEdgesRequest struct {
	Edges []Edge `json:"edges"`
}

// maxInsertEdges caps a single bulk insert request.
const maxInsertEdges = 100_000

// Validate checks the request is non-empty and within limits.
func (r *InsertEdgesRequest) Validate() error {
	if len(r.Edges) == 0 {
		return ErrMissingEdges
	}

	if len(r.Edges) > maxInsertEdges {
		return fmt.Errorf("edges exceeds maximum of %d per request", maxInsertEdges)
	}

	return nil
}
