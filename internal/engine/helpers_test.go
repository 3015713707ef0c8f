package engine_test

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/persistorai/lineage/internal/engine"
	"github.com/persistorai/lineage/internal/models"
	"github.com/persistorai/lineage/internal/relstore"
	"github.com/persistorai/lineage/internal/workset"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.ErrorLevel)

	return l
}

func newEngine(opts ...engine.Option) *engine.Engine {
	return engine.New(testLogger(), opts...)
}

type backend struct {
	name string
	open func(t *testing.T, edges []models.Edge) workset.Workspace
}

var backends = []backend{
	{name: "sql", open: openSQL},
	{name: "memory", open: openMemory},
}

func openSQL(t *testing.T, edges []models.Edge) workset.Workspace {
	t.Helper()

	ctx := context.Background()

	st, err := relstore.OpenSQLite(ctx, ":memory:", testLogger())
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	if err := st.ExecuteBatch(ctx, []relstore.Statement{relstore.Stmt("CREATE TABLE edges (src BIGINT NOT NULL, dst BIGINT NOT NULL)")}); err != nil {
		t.Fatalf("creating edges: %v", err)
	}

	if len(edges) > 0 {
		if _, err := st.LoadEdges(ctx, "edges", edges); err != nil {
			t.Fatalf("LoadEdges: %v", err)
		}
	}

	ws, err := workset.NewSQL(st, "lineage", workset.NewNamespace(), "edges", testLogger())
	if err != nil {
		t.Fatalf("NewSQL: %v", err)
	}
	t.Cleanup(func() { ws.Close(context.Background()) }) //nolint:errcheck // test cleanup.

	return ws
}

func openMemory(_ *testing.T, edges []models.Edge) workset.Workspace {
	return workset.NewMemory(workset.NewGraph(edges), workset.NewNamespace())
}

var errInjected = errors.New("injected store failure")

// faultyWorkspace wraps a Workspace and fails selected operations.
type faultyWorkspace struct {
	workset.Workspace

	failSeed    bool
	failRound   int
	failPhase   models.Phase // empty matches every phase
	failCount   bool
	failProbe   bool
	failVisited bool

	seedCalls   int
	expandCalls int
}

func (f *faultyWorkspace) Seed(ctx context.Context, seeds []models.Vertex) error {
	f.seedCalls++
	if f.failSeed {
		return errInjected
	}

	return f.Workspace.Seed(ctx, seeds)
}

func (f *faultyWorkspace) Expand(ctx context.Context, step workset.Step) error {
	f.expandCalls++
	if step.Round == f.failRound && (f.failPhase == "" || f.failPhase == step.Phase) {
		return errInjected
	}

	return f.Workspace.Expand(ctx, step)
}

func (f *faultyWorkspace) FrontierSize(ctx context.Context) (int, error) {
	if f.failCount {
		return 0, errInjected
	}

	return f.Workspace.FrontierSize(ctx)
}

func (f *faultyWorkspace) FrontierEmpty(ctx context.Context) (bool, error) {
	if f.failProbe {
		return false, errInjected
	}

	return f.Workspace.FrontierEmpty(ctx)
}

func (f *faultyWorkspace) Visited(ctx context.Context) ([]models.Vertex, error) {
	if f.failVisited {
		return nil, errInjected
	}

	return f.Workspace.Visited(ctx)
}

func chainEdges() []models.Edge {
	return []models.Edge{{Src: 1, Dst: 2}, {Src: 2, Dst: 3}, {Src: 3, Dst: 4}}
}
