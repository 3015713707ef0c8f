package store_test

import (
	"context"
	"errors"
	"os"
	"slices"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/lineage/internal/db"
	"github.com/persistorai/lineage/internal/models"
	"github.com/persistorai/lineage/internal/relstore"
	"github.com/persistorai/lineage/internal/store"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.ErrorLevel)

	return l
}

type dialectCase struct {
	name string
	open func(t *testing.T) store.Base
}

// dialects returns SQLite always and PostgreSQL when TEST_DATABASE_URL is set.
func dialects() []dialectCase {
	cases := []dialectCase{{name: "sqlite", open: openSQLite}}

	if os.Getenv("TEST_DATABASE_URL") != "" {
		cases = append(cases, dialectCase{name: "postgres", open: openPostgres})
	}

	return cases
}

func openSQLite(t *testing.T) store.Base {
	t.Helper()

	ctx := context.Background()

	st, err := relstore.OpenSQLite(ctx, ":memory:", testLogger())
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	if err := db.RunMigrations(ctx, st, testLogger()); err != nil {
		t.Fatalf("RunMigrations: %v", err)
	}

	return store.Base{Store: st, Log: testLogger()}
}

func openPostgres(t *testing.T) store.Base {
	t.Helper()

	ctx := context.Background()

	st, closeFn, err := relstore.Open(ctx, os.Getenv("TEST_DATABASE_URL"), 4, testLogger())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(closeFn)

	if err := db.RunMigrations(ctx, st, testLogger()); err != nil {
		t.Fatalf("RunMigrations: %v", err)
	}

	// Tests share the database; start from empty relations.
	if err := st.ExecuteBatch(ctx, []relstore.Statement{relstore.Stmt("DELETE FROM edges"), relstore.Stmt("DELETE FROM runs")}); err != nil {
		t.Fatalf("clearing relations: %v", err)
	}

	return store.Base{Store: st, Log: testLogger()}
}

func TestEdgeStore_InsertCountClear(t *testing.T) {
	for _, d := range dialects() {
		t.Run(d.name, func(t *testing.T) {
			es, err := store.NewEdgeStore(d.open(t), "edges")
			if err != nil {
				t.Fatalf("NewEdgeStore: %v", err)
			}

			ctx := context.Background()
			edges := []models.Edge{{Src: 2, Dst: 3}, {Src: 1, Dst: 2}, {Src: 1, Dst: 2}}

			n, err := es.Insert(ctx, edges)
			if err != nil || n != 3 {
				t.Fatalf("Insert = %d, %v; want 3", n, err)
			}

			count, err := es.Count(ctx)
			if err != nil || count != 3 {
				t.Fatalf("Count = %d, %v; want 3", count, err)
			}

			all, err := es.All(ctx)
			if err != nil {
				t.Fatalf("All: %v", err)
			}

			want := []models.Edge{{Src: 1, Dst: 2}, {Src: 1, Dst: 2}, {Src: 2, Dst: 3}}
			if !slices.Equal(all, want) {
				t.Errorf("All = %v, want %v", all, want)
			}

			removed, err := es.Clear(ctx)
			if err != nil || removed != 3 {
				t.Fatalf("Clear = %d, %v; want 3", removed, err)
			}

			if count, _ := es.Count(ctx); count != 0 {
				t.Errorf("Count after Clear = %d", count)
			}
		})
	}
}

func TestNewEdgeStore_RejectsUnsafeRelation(t *testing.T) {
	if _, err := store.NewEdgeStore(store.Base{}, "edges; DROP TABLE runs"); err == nil {
		t.Error("expected error for unsafe relation name")
	}
}

// batchOnly hides the bulk loader so Insert takes the statement path.
type batchOnly struct {
	relstore.Store
}

func TestEdgeStore_InsertWithoutBulkLoader(t *testing.T) {
	base := openSQLite(t)
	base.Store = batchOnly{Store: base.Store}

	es, err := store.NewEdgeStore(base, "edges")
	if err != nil {
		t.Fatalf("NewEdgeStore: %v", err)
	}

	edges := make([]models.Edge, 1234)
	for i := range edges {
		edges[i] = models.Edge{Src: int64(i), Dst: int64(i + 1)}
	}

	ctx := context.Background()

	if n, err := es.Insert(ctx, edges); err != nil || n != 1234 {
		t.Fatalf("Insert = %d, %v", n, err)
	}

	if count, err := es.Count(ctx); err != nil || count != 1234 {
		t.Errorf("Count = %d, %v; want 1234", count, err)
	}
}

func TestRunStore_RecordListGet(t *testing.T) {
	for _, d := range dialects() {
		t.Run(d.name, func(t *testing.T) {
			rs := store.NewRunStore(d.open(t))
			ctx := context.Background()
			base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

			older := &models.Run{
				ID: uuid.NewString(), Kind: models.RunClosure, Direction: models.Backward,
				Outcome: models.OutcomeConverged, Rounds: 4, VisitedSize: 17,
				StartedAt: base, Duration: 1500 * time.Millisecond,
			}
			newer := &models.Run{
				ID: uuid.NewString(), Kind: models.RunPaths, Outcome: models.OutcomeNoSources,
				Error: "it's\tbroken\nbadly", StartedAt: base.Add(time.Minute), Duration: 20 * time.Millisecond,
			}

			for _, r := range []*models.Run{older, newer} {
				if err := rs.Record(ctx, r); err != nil {
					t.Fatalf("Record: %v", err)
				}
			}

			runs, err := rs.List(ctx, 10)
			if err != nil {
				t.Fatalf("List: %v", err)
			}

			if len(runs) < 2 || runs[0].ID != newer.ID || runs[1].ID != older.ID {
				t.Fatalf("List order = %+v", runs)
			}

			if runs[0].Error != newer.Error {
				t.Errorf("error text = %q, want %q", runs[0].Error, newer.Error)
			}

			got, err := rs.Get(ctx, older.ID)
			if err != nil {
				t.Fatalf("Get: %v", err)
			}

			if !got.StartedAt.Equal(older.StartedAt) || got.Duration != older.Duration || got.Rounds != 4 ||
				got.VisitedSize != 17 || got.Direction != models.Backward || got.Outcome != models.OutcomeConverged {
				t.Errorf("Get = %+v, want %+v", got, older)
			}

			if _, err := rs.Get(ctx, "missing"); !errors.Is(err, models.ErrRunNotFound) {
				t.Errorf("Get(missing) = %v, want ErrRunNotFound", err)
			}
		})
	}
}
