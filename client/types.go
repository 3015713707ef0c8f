package client

import "time"

// Direction selects which end of an edge a traversal follows.
type Direction string

// Traversal directions.
const (
	Forward  Direction = "forward"
	Backward Direction = "backward"
)

// Outcome reports how a traversal phase ended.
type Outcome string

// Traversal outcomes.
const (
	OutcomeConverged Outcome = "converged"
	OutcomeRoundCap  Outcome = "round_cap_exceeded"
	OutcomeNoSources Outcome = "no_sources"
	OutcomeFailed    Outcome = "failed"
)

// Edge is a directed edge between two integer vertices.
type Edge struct {
	Src int64 `json:"src"`
	Dst int64 `json:"dst"`
}

// DepthEdge is a subgraph edge annotated with the round that discovered it.
type DepthEdge struct {
	Src   int64 `json:"src"`
	Dst   int64 `json:"dst"`
	Depth int   `json:"depth"`
}

// PathEdge is an edge on a bounded path between sources and destinations.
type PathEdge struct {
	Src   int64 `json:"src"`
	Dst   int64 `json:"dst"`
	Depth int   `json:"depth"`
	Hop   int   `json:"hop"`
}

// RoundReport describes one traversal round.
type RoundReport struct {
	RunID        string        `json:"run_id"`
	Phase        string        `json:"phase"`
	Round        int           `json:"round"`
	FrontierSize int           `json:"frontier_size"`
	VisitedSize  int           `json:"visited_size"`
	Elapsed      time.Duration `json:"elapsed_ns"`
}

// ClosureRequest asks for the closure of Seeds. Zero MaxRounds takes the
// server default and an empty Direction means backward.
type ClosureRequest struct {
	Seeds     []int64   `json:"seeds"`
	Direction Direction `json:"direction,omitempty"`
	MaxRounds int       `json:"max_rounds,omitempty"`
	Annotate  bool      `json:"annotate,omitempty"`
}

// ClosureResult is the outcome of a closure run.
type ClosureResult struct {
	RunID     string        `json:"run_id"`
	Direction Direction     `json:"direction"`
	Seeds     []int64       `json:"seeds"`
	Visited   []int64       `json:"visited"`
	Subgraph  []DepthEdge   `json:"subgraph,omitempty"`
	Rounds    int           `json:"rounds"`
	Outcome   Outcome       `json:"outcome"`
	Reports   []RoundReport `json:"reports"`
	Partial   bool          `json:"partial,omitempty"`
}

// PathRequest asks for the edges on paths of at most MaxDepth hops from
// Sources to Destinations. A nil MaxDepth takes the server default.
type PathRequest struct {
	Sources      []int64 `json:"sources"`
	Destinations []int64 `json:"destinations"`
	MaxDepth     *int    `json:"max_depth,omitempty"`
}

// PhaseSummary summarizes one phase of a path run.
type PhaseSummary struct {
	Rounds      int     `json:"rounds"`
	Outcome     Outcome `json:"outcome"`
	VisitedSize int     `json:"visited_size"`
}

// PathResult is the outcome of a bounded path run.
type PathResult struct {
	RunID    string        `json:"run_id"`
	MaxDepth int           `json:"max_depth"`
	Vertices []int64       `json:"vertices"`
	Edges    []PathEdge    `json:"edges"`
	Backward PhaseSummary  `json:"backward"`
	Forward  PhaseSummary  `json:"forward"`
	Reports  []RoundReport `json:"reports"`
	Partial  bool          `json:"partial,omitempty"`
}

// Run is a recorded traversal.
type Run struct {
	ID          string        `json:"id"`
	Kind        string        `json:"kind"`
	Direction   Direction     `json:"direction,omitempty"`
	Outcome     Outcome       `json:"outcome"`
	Rounds      int           `json:"rounds"`
	VisitedSize int           `json:"visited_size"`
	Error       string        `json:"error,omitempty"`
	StartedAt   time.Time     `json:"started_at"`
	Duration    time.Duration `json:"duration_ns"`
}

// HealthResponse is the liveness check payload.
type HealthResponse struct {
	Status        string  `json:"status"`
	Version       string  `json:"version"`
	Database      string  `json:"database"`
	Dialect       string  `json:"dialect,omitempty"`
	WSClients     int     `json:"ws_clients"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}
