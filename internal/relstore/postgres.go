package relstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/lineage/internal/dbpool"
	"github.com/persistorai/lineage/internal/models"
)

// Compile-time interface checks.
var (
	_ Store      = (*Postgres)(nil)
	_ EdgeLoader = (*Postgres)(nil)
)

// Postgres is a Store backed by a pgx connection pool.
type Postgres struct {
	pool *dbpool.Pool
	log  *logrus.Logger
}

// NewPostgres wraps pool as a Store.
func NewPostgres(pool *dbpool.Pool, log *logrus.Logger) *Postgres {
	return &Postgres{pool: pool, log: log}
}

// Pool returns the underlying connection pool.
func (p *Postgres) Pool() *dbpool.Pool { return p.pool }

// Dialect implements Store.
func (p *Postgres) Dialect() Dialect { return DialectPostgres }

// Ping implements Store.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.HealthCheck(ctx)
}

// ExecuteBatch runs statements in order inside one transaction. Statements
// use the simple protocol: later statements may reference relations created
// earlier in the same batch, and per-run SQL must not be prepared or cached.
func (p *Postgres) ExecuteBatch(ctx context.Context, stmts []Statement) error {
	if len(stmts) == 0 {
		return nil
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning batch transaction: %w", err)
	}

	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback after commit.

	for i, s := range stmts {
		if _, err := tx.Exec(ctx, s.SQL, pgx.QueryExecModeSimpleProtocol); err != nil {
			return &ExecutionError{Index: i, Statement: s.SQL, Err: err}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing batch: %w", err)
	}

	p.log.WithField("statements", len(stmts)).Debug("batch executed")

	return nil
}

// Query wraps stmt in COPY (...) TO STDOUT and returns the text output.
func (p *Postgres) Query(ctx context.Context, stmt Statement) (string, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var buf strings.Builder

	sql := "COPY (" + strings.TrimSuffix(strings.TrimSpace(stmt.SQL), ";") + ") TO STDOUT"
	if _, err := p.pool.CopyTo(ctx, &buf, sql); err != nil {
		return "", fmt.Errorf("copying query output: %w", err)
	}

	return buf.String(), nil
}

// LoadEdges bulk-loads edges with the COPY protocol.
func (p *Postgres) LoadEdges(ctx context.Context, table string, edges []models.Edge) (int64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	n, err := p.pool.CopyFrom(ctx, table, []string{"src", "dst"}, pgx.CopyFromSlice(len(edges), func(i int) ([]any, error) {
		return []any{edges[i].Src, edges[i].Dst}, nil
	}))
	if err != nil {
		return 0, fmt.Errorf("copying edges into %s: %w", table, err)
	}

	return n, nil
}
