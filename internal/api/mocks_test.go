package api_test

import (
	"context"

	"github.com/persistorai/lineage/internal/models"
	"github.com/persistorai/lineage/internal/relstore"
)

// mockTraversal implements api.TraversalService for testing.
type mockTraversal struct {
	closureFn func(ctx context.Context, req models.ClosureRequest) (*models.ClosureResult, error)
	batchFn   func(ctx context.Context, req models.BatchClosureRequest) ([]*models.ClosureResult, error)
	pathsFn   func(ctx context.Context, req models.PathRequest) (*models.PathResult, error)
}

func (m *mockTraversal) Closure(ctx context.Context, req models.ClosureRequest) (*models.ClosureResult, error) {
	return m.closureFn(ctx, req)
}

func (m *mockTraversal) BatchClosure(ctx context.Context, req models.BatchClosureRequest) ([]*models.ClosureResult, error) {
	return m.batchFn(ctx, req)
}

func (m *mockTraversal) Paths(ctx context.Context, req models.PathRequest) (*models.PathResult, error) {
	return m.pathsFn(ctx, req)
}

// mockEdgeRepo implements api.EdgeService for testing.
type mockEdgeRepo struct {
	insertFn func(ctx context.Context, req models.InsertEdgesRequest) (int64, error)
	countFn  func(ctx context.Context) (int64, error)
	clearFn  func(ctx context.Context) (int64, error)
}

func (m *mockEdgeRepo) InsertEdges(ctx context.Context, req models.InsertEdgesRequest) (int64, error) {
	return m.insertFn(ctx, req)
}

func (m *mockEdgeRepo) CountEdges(ctx context.Context) (int64, error) {
	return m.countFn(ctx)
}

func (m *mockEdgeRepo) ClearEdges(ctx context.Context) (int64, error) {
	return m.clearFn(ctx)
}

// mockRunRepo implements api.RunService for testing.
type mockRunRepo struct {
	listFn func(ctx context.Context, limit int) ([]models.Run, error)
	getFn  func(ctx context.Context, id string) (*models.Run, error)
}

func (m *mockRunRepo) ListRuns(ctx context.Context, limit int) ([]models.Run, error) {
	return m.listFn(ctx, limit)
}

func (m *mockRunRepo) GetRun(ctx context.Context, id string) (*models.Run, error) {
	return m.getFn(ctx, id)
}

// mockStore implements relstore.Store for health checks.
type mockStore struct {
	pingErr  error
	queryErr error
	queryOut string
}

func (m *mockStore) ExecuteBatch(context.Context, []relstore.Statement) error { return nil }

func (m *mockStore) Query(context.Context, relstore.Statement) (string, error) {
	return m.queryOut, m.queryErr
}

func (m *mockStore) Dialect() relstore.Dialect { return relstore.DialectSQLite }

func (m *mockStore) Ping(context.Context) error { return m.pingErr }
