package engine_test

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/persistorai/lineage/internal/models"
)

func TestBoundedPaths_OutOfRangeSourceIsEmptySuccess(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			res, err := newEngine().BoundedPaths(context.Background(), b.open(t, chainEdges()), models.PathRequest{
				Sources: []models.Vertex{1}, Destinations: []models.Vertex{4}, MaxDepth: 2,
			})
			if err != nil {
				t.Fatalf("BoundedPaths: %v", err)
			}

			if !res.Empty() || len(res.Edges) != 0 {
				t.Errorf("expected empty result, got vertices %v edges %v", res.Vertices, res.Edges)
			}

			if res.Forward.Outcome != models.OutcomeNoSources {
				t.Errorf("forward outcome = %s, want no_sources", res.Forward.Outcome)
			}

			// Backward reached {2,3,4} and stopped at its cap.
			if res.Backward.VisitedSize != 3 || res.Backward.Rounds != 2 || res.Backward.Outcome != models.OutcomeRoundCap {
				t.Errorf("backward = %+v", res.Backward)
			}

			if res.Partial {
				t.Error("no_sources must not be reported as partial")
			}
		})
	}
}

func TestBoundedPaths_ChainWithinBudget(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			res, err := newEngine().BoundedPaths(context.Background(), b.open(t, chainEdges()), models.PathRequest{
				Sources: []models.Vertex{1}, Destinations: []models.Vertex{4}, MaxDepth: 3,
			})
			if err != nil {
				t.Fatalf("BoundedPaths: %v", err)
			}

			want := []models.PathEdge{
				{Src: 1, Dst: 2, Depth: 3, Hop: 0},
				{Src: 2, Dst: 3, Depth: 2, Hop: 1},
				{Src: 3, Dst: 4, Depth: 1, Hop: 2},
			}
			if !slices.Equal(res.Edges, want) {
				t.Errorf("edges = %v, want %v", res.Edges, want)
			}

			if !slices.Equal(res.Vertices, []models.Vertex{1, 2, 3, 4}) {
				t.Errorf("vertices = %v", res.Vertices)
			}

			if res.Backward.VisitedSize != 4 {
				t.Errorf("backward visited = %d, want 4", res.Backward.VisitedSize)
			}

			for _, e := range res.Edges {
				if e.Depth+e.Hop > 3 {
					t.Errorf("edge %+v exceeds budget", e)
				}
			}
		})
	}
}

func TestBoundedPaths_BudgetBoundaryIsInclusive(t *testing.T) {
	// 1->2->4 has length 2, 1->3->5->4 has length 3.
	edges := []models.Edge{{Src: 1, Dst: 2}, {Src: 2, Dst: 4}, {Src: 1, Dst: 3}, {Src: 3, Dst: 5}, {Src: 5, Dst: 4}}

	tests := []struct {
		maxDepth int
		want     []models.PathEdge
	}{
		{
			maxDepth: 1,
			want:     []models.PathEdge{},
		},
		{
			maxDepth: 2,
			want: []models.PathEdge{
				{Src: 1, Dst: 2, Depth: 2, Hop: 0},
				{Src: 2, Dst: 4, Depth: 1, Hop: 1},
			},
		},
		{
			maxDepth: 3,
			want: []models.PathEdge{
				{Src: 1, Dst: 2, Depth: 2, Hop: 0},
				{Src: 1, Dst: 3, Depth: 3, Hop: 0},
				{Src: 2, Dst: 4, Depth: 1, Hop: 1},
				{Src: 3, Dst: 5, Depth: 2, Hop: 1},
				{Src: 5, Dst: 4, Depth: 1, Hop: 2},
			},
		},
	}

	for _, b := range backends {
		for _, tc := range tests {
			res, err := newEngine().BoundedPaths(context.Background(), b.open(t, edges), models.PathRequest{
				Sources: []models.Vertex{1}, Destinations: []models.Vertex{4}, MaxDepth: tc.maxDepth,
			})
			if err != nil {
				t.Fatalf("%s max_depth %d: %v", b.name, tc.maxDepth, err)
			}

			if !slices.Equal(res.Edges, tc.want) {
				t.Errorf("%s max_depth %d: edges = %v, want %v", b.name, tc.maxDepth, res.Edges, tc.want)
			}
		}
	}
}

func TestBoundedPaths_SourceThatIsDestinationIsKept(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			res, err := newEngine().BoundedPaths(context.Background(), b.open(t, []models.Edge{{Src: 1, Dst: 2}}), models.PathRequest{
				Sources: []models.Vertex{2}, Destinations: []models.Vertex{2}, MaxDepth: 2,
			})
			if err != nil {
				t.Fatalf("BoundedPaths: %v", err)
			}

			if !slices.Equal(res.Vertices, []models.Vertex{2}) || len(res.Edges) != 0 {
				t.Errorf("vertices = %v edges = %v, want [2] and no edges", res.Vertices, res.Edges)
			}

			if res.Forward.Outcome != models.OutcomeConverged {
				t.Errorf("forward outcome = %s", res.Forward.Outcome)
			}
		})
	}
}

func TestBoundedPaths_ZeroDepthIsIntersection(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			res, err := newEngine().BoundedPaths(context.Background(), b.open(t, chainEdges()), models.PathRequest{
				Sources: []models.Vertex{1, 2}, Destinations: []models.Vertex{2, 3}, MaxDepth: 0,
			})
			if err != nil {
				t.Fatalf("BoundedPaths: %v", err)
			}

			if !slices.Equal(res.Vertices, []models.Vertex{2}) || len(res.Edges) != 0 {
				t.Errorf("vertices = %v edges = %v", res.Vertices, res.Edges)
			}

			if res.Backward.Rounds != 0 || res.Forward.Rounds != 0 || len(res.Reports) != 0 {
				t.Errorf("expected no rounds, got backward %d forward %d reports %d", res.Backward.Rounds, res.Forward.Rounds, len(res.Reports))
			}
		})
	}
}

func TestBoundedPaths_MatchesDistanceOracle(t *testing.T) {
	for _, seed := range []uint64{3, 5, 8, 13} {
		edges := randomEdges(seed, 30, 55)
		sources := []models.Vertex{0, 1, 2}
		dests := []models.Vertex{models.Vertex(20 + seed%5), 29}

		for _, maxDepth := range []int{1, 2, 4, 6} {
			wantV, wantE := oraclePaths(edges, sources, dests, maxDepth)

			for _, b := range backends {
				res, err := newEngine().BoundedPaths(context.Background(), b.open(t, edges), models.PathRequest{
					Sources: sources, Destinations: dests, MaxDepth: maxDepth,
				})
				if err != nil {
					t.Fatalf("%s seed %d depth %d: %v", b.name, seed, maxDepth, err)
				}

				if len(wantV) == 0 {
					if !res.Empty() || res.Forward.Outcome != models.OutcomeNoSources {
						t.Errorf("%s seed %d depth %d: expected no_sources, got %v", b.name, seed, maxDepth, res.Vertices)
					}

					continue
				}

				if !slices.Equal(res.Vertices, wantV) {
					t.Errorf("%s seed %d depth %d: vertices %v, oracle %v", b.name, seed, maxDepth, res.Vertices, wantV)
				}

				if !slices.Equal(res.Edges, wantE) {
					t.Errorf("%s seed %d depth %d: edges %v, oracle %v", b.name, seed, maxDepth, res.Edges, wantE)
				}
			}
		}
	}
}

func TestBoundedPaths_Validation(t *testing.T) {
	tests := []struct {
		name string
		req  models.PathRequest
		want error
	}{
		{name: "no sources", req: models.PathRequest{Destinations: []models.Vertex{1}, MaxDepth: 2}, want: models.ErrEmptySeedSet},
		{name: "no destinations", req: models.PathRequest{Sources: []models.Vertex{1}, MaxDepth: 2}, want: models.ErrEmptySeedSet},
		{name: "negative depth", req: models.PathRequest{Sources: []models.Vertex{1}, Destinations: []models.Vertex{2}, MaxDepth: -1}, want: models.ErrInvalidRoundCap},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ws := &faultyWorkspace{Workspace: openMemory(t, chainEdges())}

			if _, err := newEngine().BoundedPaths(context.Background(), ws, tc.req); !errors.Is(err, tc.want) {
				t.Errorf("err = %v, want %v", err, tc.want)
			}

			if ws.seedCalls != 0 {
				t.Error("store touched before validation")
			}
		})
	}
}

func TestBoundedPaths_FailureReportsPhase(t *testing.T) {
	// Backward needs 4 rounds to converge at depth 5, so round 4 fails there.
	ws := &faultyWorkspace{Workspace: openMemory(t, chainEdges()), failRound: 4}

	_, err := newEngine().BoundedPaths(context.Background(), ws, models.PathRequest{
		Sources: []models.Vertex{1}, Destinations: []models.Vertex{4}, MaxDepth: 5,
	})

	var execErr *models.StoreExecutionError
	if !errors.As(err, &execErr) || execErr.Phase != models.PhaseBackward || execErr.Round != 4 {
		t.Fatalf("expected backward round 4 failure, got %v", err)
	}

	ws = &faultyWorkspace{Workspace: openMemory(t, chainEdges()), failRound: 2, failPhase: models.PhaseForward}

	res, err := newEngine().BoundedPaths(context.Background(), ws, models.PathRequest{
		Sources: []models.Vertex{1}, Destinations: []models.Vertex{4}, MaxDepth: 3,
	})
	if !errors.As(err, &execErr) || execErr.Phase != models.PhaseForward || execErr.Round != 2 {
		t.Fatalf("expected forward round 2 failure, got %v", err)
	}

	if !res.Partial || res.Backward.Rounds != 3 || res.Forward.Rounds != 1 {
		t.Errorf("partial = %v backward %+v forward %+v", res.Partial, res.Backward, res.Forward)
	}

	want := []models.PathEdge{{Src: 1, Dst: 2, Depth: 3, Hop: 0}}
	if !slices.Equal(res.Edges, want) || !slices.Equal(res.Vertices, []models.Vertex{1, 2}) {
		t.Errorf("partial vertices %v edges %v", res.Vertices, res.Edges)
	}
}

func TestBoundedPaths_ReportsBothPhases(t *testing.T) {
	res, err := newEngine().BoundedPaths(context.Background(), openMemory(t, chainEdges()), models.PathRequest{
		Sources: []models.Vertex{1}, Destinations: []models.Vertex{4}, MaxDepth: 3,
	})
	if err != nil {
		t.Fatalf("BoundedPaths: %v", err)
	}

	var back, fwd int

	for _, r := range res.Reports {
		switch r.Phase {
		case models.PhaseBackward:
			back++
		case models.PhaseForward:
			fwd++
		default:
			t.Errorf("unexpected phase %q", r.Phase)
		}
	}

	if back != res.Backward.Rounds || fwd != res.Forward.Rounds || back != 3 || fwd != 3 {
		t.Errorf("reports backward %d forward %d, summaries %+v %+v", back, fwd, res.Backward, res.Forward)
	}
}
