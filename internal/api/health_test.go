package api_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/persistorai/lineage/internal/api"
)

func TestLiveness_ReturnsOK(t *testing.T) {
	t.Parallel()

	h := api.NewHealthHandler(nil, nil, testLogger(), "test-v1")

	r := newTestRouter()
	r.GET("/health", h.Liveness)

	w := doRequest(r, http.MethodGet, "/health", "")

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if body["status"] != "ok" || body["version"] != "test-v1" || body["database"] != "not_configured" {
		t.Errorf("unexpected body %v", body)
	}
}

func TestLiveness_DisconnectedStoreIsStillLive(t *testing.T) {
	t.Parallel()

	h := api.NewHealthHandler(&mockStore{pingErr: errors.New("down")}, nil, testLogger(), "v")

	r := newTestRouter()
	r.GET("/health", h.Liveness)

	w := doRequest(r, http.MethodGet, "/health", "")

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if body["database"] != "disconnected" || body["dialect"] != "sqlite" {
		t.Errorf("unexpected body %v", body)
	}
}

func TestReadiness(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		store      *mockStore
		wantCode   int
		wantSchema string
	}{
		{name: "ready", store: &mockStore{queryOut: "3\n"}, wantCode: http.StatusOK, wantSchema: "ok"},
		{name: "database down", store: &mockStore{pingErr: errors.New("down")}, wantCode: http.StatusServiceUnavailable, wantSchema: "unknown"},
		{name: "schema missing", store: &mockStore{queryErr: errors.New("no such table")}, wantCode: http.StatusServiceUnavailable, wantSchema: "error"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			h := api.NewHealthHandler(tc.store, nil, testLogger(), "v")

			r := newTestRouter()
			r.GET("/ready", h.Readiness)

			w := doRequest(r, http.MethodGet, "/ready", "")
			if w.Code != tc.wantCode {
				t.Fatalf("expected %d, got %d: %s", tc.wantCode, w.Code, w.Body.String())
			}

			var body struct {
				Checks map[string]string `json:"checks"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}

			if body.Checks["schema"] != tc.wantSchema {
				t.Errorf("schema check = %q, want %q", body.Checks["schema"], tc.wantSchema)
			}
		})
	}
}
