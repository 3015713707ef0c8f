package engine_test

import (
	"context"
	"os"
	"testing"

	"github.com/persistorai/lineage/internal/models"
	"github.com/persistorai/lineage/internal/relstore"
	"github.com/persistorai/lineage/internal/workset"
)

// The scenario suite also runs on PostgreSQL when TEST_DATABASE_URL is set.
func init() {
	if os.Getenv("TEST_DATABASE_URL") != "" {
		backends = append(backends, backend{name: "postgres", open: openPostgres})
	}
}

// openPostgres loads edges into a relation private to the test and opens a
// workspace over it. Both are dropped on cleanup.
func openPostgres(t *testing.T, edges []models.Edge) workset.Workspace {
	t.Helper()

	ctx := context.Background()

	st, closeFn, err := relstore.Open(ctx, os.Getenv("TEST_DATABASE_URL"), 4, testLogger())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(closeFn)

	edgeRel := "test_edges_" + workset.NewNamespace()
	if err := st.ExecuteBatch(ctx, []relstore.Statement{
		relstore.Stmt("CREATE TABLE %s (src BIGINT NOT NULL, dst BIGINT NOT NULL)", edgeRel),
	}); err != nil {
		t.Fatalf("creating %s: %v", edgeRel, err)
	}
	t.Cleanup(func() {
		st.ExecuteBatch(context.Background(), []relstore.Statement{relstore.Stmt("DROP TABLE IF EXISTS %s", edgeRel)}) //nolint:errcheck // test cleanup.
	})

	if len(edges) > 0 {
		loader, ok := st.(relstore.EdgeLoader)
		if !ok {
			t.Fatal("postgres store does not load edges")
		}

		if _, err := loader.LoadEdges(ctx, edgeRel, edges); err != nil {
			t.Fatalf("LoadEdges: %v", err)
		}
	}

	ws, err := workset.NewSQL(st, "lineage", workset.NewNamespace(), edgeRel, testLogger())
	if err != nil {
		t.Fatalf("NewSQL: %v", err)
	}
	t.Cleanup(func() { ws.Close(context.Background()) }) //nolint:errcheck // test cleanup.

	return ws
}
