package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// newTestServer creates a test server that routes to the given handler map.
// Keys are "METHOD /path", values are handler funcs.
func newTestServer(t *testing.T, routes map[string]http.HandlerFunc) (*httptest.Server, *Client) {
	t.Helper()
	mux := http.NewServeMux()
	for pattern, handler := range routes {
		mux.HandleFunc(pattern, handler)
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	c := New(srv.URL, WithAPIKey("test-key"))
	return srv, c
}

func jsonResponse(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func TestHealth(t *testing.T) {
	_, c := newTestServer(t, map[string]http.HandlerFunc{
		"GET /api/v1/health": func(w http.ResponseWriter, _ *http.Request) {
			jsonResponse(w, 200, HealthResponse{Status: "ok", Version: "0.3.0", Dialect: "sqlite"})
		},
	})
	resp, err := c.Health(context.Background())
	if err != nil {
		t.Fatalf("Health() error: %v", err)
	}
	if resp.Status != "ok" || resp.Dialect != "sqlite" {
		t.Errorf("unexpected health %+v", resp)
	}
}

func TestClosure(t *testing.T) {
	var got ClosureRequest
	_, c := newTestServer(t, map[string]http.HandlerFunc{
		"POST /api/v1/closure": func(w http.ResponseWriter, r *http.Request) {
			json.NewDecoder(r.Body).Decode(&got) //nolint:errcheck
			jsonResponse(w, 200, ClosureResult{
				RunID: "r1", Direction: Backward, Seeds: got.Seeds,
				Visited: []int64{1, 2, 3}, Rounds: 3, Outcome: OutcomeConverged,
			})
		},
	})

	res, err := c.Traversal.Closure(context.Background(), &ClosureRequest{Seeds: []int64{3}, MaxRounds: 10})
	if err != nil {
		t.Fatalf("Closure() error: %v", err)
	}
	if got.MaxRounds != 10 || len(got.Seeds) != 1 || got.Seeds[0] != 3 {
		t.Errorf("server saw %+v", got)
	}
	if got.Direction != "" {
		t.Errorf("empty direction should be omitted, got %q", got.Direction)
	}
	if res.Outcome != OutcomeConverged || len(res.Visited) != 3 {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestBatchClosure(t *testing.T) {
	_, c := newTestServer(t, map[string]http.HandlerFunc{
		"POST /api/v1/closure/batch": func(w http.ResponseWriter, r *http.Request) {
			var body struct {
				Queries []ClosureRequest `json:"queries"`
			}
			json.NewDecoder(r.Body).Decode(&body) //nolint:errcheck
			results := make([]ClosureResult, len(body.Queries))
			for i, q := range body.Queries {
				results[i] = ClosureResult{Seeds: q.Seeds, Outcome: OutcomeConverged}
			}
			jsonResponse(w, 200, map[string]any{"results": results})
		},
	})

	res, err := c.Traversal.BatchClosure(context.Background(), []ClosureRequest{
		{Seeds: []int64{1}}, {Seeds: []int64{2}, Direction: Forward},
	})
	if err != nil {
		t.Fatalf("BatchClosure() error: %v", err)
	}
	if len(res) != 2 || res[1].Seeds[0] != 2 {
		t.Errorf("results out of order: %+v", res)
	}
}

func TestPaths(t *testing.T) {
	var raw map[string]any
	_, c := newTestServer(t, map[string]http.HandlerFunc{
		"POST /api/v1/paths": func(w http.ResponseWriter, r *http.Request) {
			raw = nil
			json.NewDecoder(r.Body).Decode(&raw) //nolint:errcheck
			jsonResponse(w, 200, PathResult{
				MaxDepth: 2,
				Vertices: []int64{1, 2},
				Edges:    []PathEdge{{Src: 1, Dst: 2, Depth: 1, Hop: 1}},
			})
		},
	})

	depth := 2
	res, err := c.Traversal.Paths(context.Background(), &PathRequest{
		Sources: []int64{1}, Destinations: []int64{2}, MaxDepth: &depth,
	})
	if err != nil {
		t.Fatalf("Paths() error: %v", err)
	}
	if raw["max_depth"] != float64(2) {
		t.Errorf("max_depth not sent: %v", raw)
	}
	if len(res.Edges) != 1 || res.Edges[0].Hop != 1 {
		t.Errorf("unexpected edges %+v", res.Edges)
	}

	if _, err := c.Traversal.Paths(context.Background(), &PathRequest{Sources: []int64{1}, Destinations: []int64{2}}); err != nil {
		t.Fatalf("Paths() error: %v", err)
	}
	if _, ok := raw["max_depth"]; ok {
		t.Errorf("nil max_depth should be omitted: %v", raw)
	}
}

func TestEdges(t *testing.T) {
	_, c := newTestServer(t, map[string]http.HandlerFunc{
		"POST /api/v1/edges": func(w http.ResponseWriter, r *http.Request) {
			var body struct {
				Edges []Edge `json:"edges"`
			}
			json.NewDecoder(r.Body).Decode(&body) //nolint:errcheck
			jsonResponse(w, 201, map[string]int{"inserted": len(body.Edges)})
		},
		"GET /api/v1/edges/count": func(w http.ResponseWriter, _ *http.Request) {
			jsonResponse(w, 200, map[string]int{"count": 7})
		},
		"DELETE /api/v1/edges": func(w http.ResponseWriter, _ *http.Request) {
			jsonResponse(w, 200, map[string]int{"deleted": 7})
		},
	})

	ctx := context.Background()

	n, err := c.Edges.Insert(ctx, []Edge{{Src: 1, Dst: 2}, {Src: 2, Dst: 3}})
	if err != nil || n != 2 {
		t.Fatalf("Insert() = %d, %v", n, err)
	}

	n, err = c.Edges.Count(ctx)
	if err != nil || n != 7 {
		t.Fatalf("Count() = %d, %v", n, err)
	}

	n, err = c.Edges.Clear(ctx)
	if err != nil || n != 7 {
		t.Fatalf("Clear() = %d, %v", n, err)
	}
}

func TestRuns(t *testing.T) {
	_, c := newTestServer(t, map[string]http.HandlerFunc{
		"GET /api/v1/runs": func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("limit") != "5" {
				t.Errorf("limit = %q", r.URL.Query().Get("limit"))
			}
			jsonResponse(w, 200, map[string]any{"runs": []Run{{ID: "r1", Kind: "closure"}}})
		},
		"GET /api/v1/runs/r1": func(w http.ResponseWriter, _ *http.Request) {
			jsonResponse(w, 200, Run{ID: "r1", Kind: "closure", Outcome: OutcomeConverged})
		},
	})

	ctx := context.Background()

	runs, err := c.Runs.List(ctx, 5)
	if err != nil || len(runs) != 1 {
		t.Fatalf("List() = %v, %v", runs, err)
	}

	run, err := c.Runs.Get(ctx, "r1")
	if err != nil || run.Outcome != OutcomeConverged {
		t.Fatalf("Get() = %+v, %v", run, err)
	}
}

func TestAPIError(t *testing.T) {
	_, c := newTestServer(t, map[string]http.HandlerFunc{
		"GET /api/v1/runs/missing": func(w http.ResponseWriter, _ *http.Request) {
			jsonResponse(w, 404, map[string]string{"code": "not_found", "message": "run not found"})
		},
		"POST /api/v1/closure": func(w http.ResponseWriter, _ *http.Request) {
			jsonResponse(w, 502, map[string]any{
				"code": "store_error", "message": "relation missing",
				"phase": "closure", "round": 2,
				"partial": ClosureResult{Visited: []int64{4}, Partial: true},
			})
		},
	})

	ctx := context.Background()

	_, err := c.Runs.Get(ctx, "missing")
	if !IsNotFound(err) {
		t.Errorf("expected not found, got: %v", err)
	}

	_, err = c.Traversal.Closure(ctx, &ClosureRequest{Seeds: []int64{4}})
	if !IsStoreError(err) {
		t.Fatalf("expected store error, got: %v", err)
	}

	apiErr := err.(*APIError)
	if apiErr.Phase != "closure" || apiErr.Round != 2 {
		t.Errorf("unexpected location %s/%d", apiErr.Phase, apiErr.Round)
	}

	partial, err := apiErr.PartialClosure()
	if err != nil || partial == nil || !partial.Partial || partial.Visited[0] != 4 {
		t.Errorf("PartialClosure() = %+v, %v", partial, err)
	}
}

func TestAPIError_PlainBody(t *testing.T) {
	err := parseAPIError(500, []byte("boom"))
	if err.Code != "unknown" || err.Message != "boom" {
		t.Errorf("unexpected %+v", err)
	}
}

func TestAuthHeader(t *testing.T) {
	_, c := newTestServer(t, map[string]http.HandlerFunc{
		"GET /api/v1/health": func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer test-key" {
				t.Errorf("missing auth header, got %q", r.Header.Get("Authorization"))
			}
			jsonResponse(w, 200, HealthResponse{Status: "ok"})
		},
	})
	if _, err := c.Health(context.Background()); err != nil {
		t.Fatalf("Health() error: %v", err)
	}
}
