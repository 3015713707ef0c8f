package relstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite" // register the pure-Go sqlite driver.

	"github.com/persistorai/lineage/internal/models"
)

// Compile-time interface checks.
var (
	_ Store      = (*SQLite)(nil)
	_ EdgeLoader = (*SQLite)(nil)
)

// SQLite is a Store backed by an embedded SQLite database.
type SQLite struct {
	db  *sql.DB
	log *logrus.Logger
}

// OpenSQLite opens the database at path. Use ":memory:" for a private
// in-process database.
func OpenSQLite(ctx context.Context, path string, log *logrus.Logger) (*SQLite, error) {
	dsn := path
	if path != ":memory:" {
		dsn = "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}

	// A single connection keeps ":memory:" databases shared across calls and
	// serializes writers, which SQLite requires anyway.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close() //nolint:errcheck // already failing.

		return nil, fmt.Errorf("pinging sqlite database: %w", err)
	}

	return &SQLite{db: db, log: log}, nil
}

// DB exposes the underlying handle for schema migrations.
func (s *SQLite) DB() *sql.DB { return s.db }

// Dialect implements Store.
func (s *SQLite) Dialect() Dialect { return DialectSQLite }

// Ping implements Store.
func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// ExecuteBatch runs stmts in order inside one transaction.
func (s *SQLite) ExecuteBatch(ctx context.Context, stmts []Statement) error {
	if len(stmts) == 0 {
		return nil
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning batch transaction: %w", err)
	}

	defer tx.Rollback() //nolint:errcheck // best-effort rollback after commit.

	for i, st := range stmts {
		if _, err := tx.ExecContext(ctx, st.SQL); err != nil {
			return &ExecutionError{Index: i, Statement: st.SQL, Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing batch: %w", err)
	}

	s.log.WithField("statements", len(stmts)).Debug("batch executed")

	return nil
}

// Query renders the rows of stmt in COPY text format.
func (s *SQLite) Query(ctx context.Context, stmt Statement) (string, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, stmt.SQL)
	if err != nil {
		return "", fmt.Errorf("running query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return "", fmt.Errorf("reading columns: %w", err)
	}

	values := make([]sql.NullString, len(cols))
	dest := make([]any, len(cols))

	for i := range values {
		dest[i] = &values[i]
	}

	var buf strings.Builder

	cells := make([]string, len(cols))

	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return "", fmt.Errorf("scanning row: %w", err)
		}

		for i, v := range values {
			if v.Valid {
				cells[i] = copyEscaper.Replace(v.String)
			} else {
				cells[i] = `\N`
			}
		}

		buf.WriteString(strings.Join(cells, "\t"))
		buf.WriteByte('\n')
	}

	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("iterating rows: %w", err)
	}

	return buf.String(), nil
}

// LoadEdges inserts edges through one prepared statement in a transaction.
func (s *SQLite) LoadEdges(ctx context.Context, table string, edges []models.Edge) (int64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning edge load: %w", err)
	}

	defer tx.Rollback() //nolint:errcheck // best-effort rollback after commit.

	ins, err := tx.PrepareContext(ctx, "INSERT INTO "+table+" (src, dst) VALUES (?, ?)")
	if err != nil {
		return 0, fmt.Errorf("preparing edge insert: %w", err)
	}
	defer ins.Close()

	for _, e := range edges {
		if _, err := ins.ExecContext(ctx, e.Src, e.Dst); err != nil {
			return 0, fmt.Errorf("inserting edge %s: %w", e, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing edge load: %w", err)
	}

	return int64(len(edges)), nil
}
