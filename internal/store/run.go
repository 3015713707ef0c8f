package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/persistorai/lineage/internal/models"
	"github.com/persistorai/lineage/internal/relstore"
)

const runColumns = `id, kind, direction, outcome, rounds, visited_size, error, started_at, duration_ms`

// startedAtLayout is fixed-width so text ordering matches time ordering.
const startedAtLayout = "2006-01-02T15:04:05.000000Z07:00"

// maxListLimit caps list queries.
const maxListLimit = 1000

// RunStore persists run records.
type RunStore struct {
	Base
}

// NewRunStore creates a new RunStore.
func NewRunStore(base Base) *RunStore {
	return &RunStore{Base: base}
}

// Record inserts a finished run.
func (s *RunStore) Record(ctx context.Context, run *models.Run) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	stmt := relstore.Stmt(
		"INSERT INTO runs ("+runColumns+") VALUES (%s, %s, %s, %s, %d, %d, %s, %s, %d)",
		quote(run.ID),
		quote(string(run.Kind)),
		quote(string(run.Direction)),
		quote(string(run.Outcome)),
		run.Rounds,
		run.VisitedSize,
		quote(run.Error),
		quote(run.StartedAt.UTC().Format(startedAtLayout)),
		run.Duration.Milliseconds(),
	)

	if err := s.Store.ExecuteBatch(ctx, []relstore.Statement{stmt}); err != nil {
		return fmt.Errorf("recording run %s: %w", run.ID, err)
	}

	return nil
}

// List returns the most recent runs, newest first.
func (s *RunStore) List(ctx context.Context, limit int) ([]models.Run, error) {
	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	out, err := s.Store.Query(ctx, relstore.Stmt("SELECT "+runColumns+" FROM runs ORDER BY started_at DESC, id LIMIT %d", limit))
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}

	return parseRuns(relstore.Rows(out))
}

// Get returns one run by ID.
func (s *RunStore) Get(ctx context.Context, id string) (*models.Run, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	out, err := s.Store.Query(ctx, relstore.Stmt("SELECT "+runColumns+" FROM runs WHERE id = %s", quote(id)))
	if err != nil {
		return nil, fmt.Errorf("getting run %s: %w", id, err)
	}

	runs, err := parseRuns(relstore.Rows(out))
	if err != nil {
		return nil, err
	}

	if len(runs) == 0 {
		return nil, models.ErrRunNotFound
	}

	return &runs[0], nil
}

func parseRuns(rows [][]string) ([]models.Run, error) {
	runs := make([]models.Run, 0, len(rows))

	for i, row := range rows {
		run, err := scanRun(row)
		if err != nil {
			return nil, fmt.Errorf("parsing run row %d: %w", i, err)
		}

		runs = append(runs, run)
	}

	return runs, nil
}

func scanRun(row []string) (models.Run, error) {
	const columns = 9
	if len(row) != columns {
		return models.Run{}, fmt.Errorf("got %d columns, want %d", len(row), columns)
	}

	rounds, err := strconv.Atoi(row[4])
	if err != nil {
		return models.Run{}, fmt.Errorf("rounds: %w", err)
	}

	visited, err := strconv.Atoi(row[5])
	if err != nil {
		return models.Run{}, fmt.Errorf("visited_size: %w", err)
	}

	started, err := time.Parse(startedAtLayout, relstore.Text(row[7]))
	if err != nil {
		return models.Run{}, fmt.Errorf("started_at: %w", err)
	}

	ms, err := strconv.ParseInt(row[8], 10, 64)
	if err != nil {
		return models.Run{}, fmt.Errorf("duration_ms: %w", err)
	}

	return models.Run{
		ID:          relstore.Text(row[0]),
		Kind:        models.RunKind(relstore.Text(row[1])),
		Direction:   models.Direction(relstore.Text(row[2])),
		Outcome:     models.Outcome(relstore.Text(row[3])),
		Rounds:      rounds,
		VisitedSize: visited,
		Error:       relstore.Text(row[6]),
		StartedAt:   started,
		Duration:    time.Duration(ms) * time.Millisecond,
	}, nil
}
