// Package relstore adapts relational databases to the narrow interface the
// traversal engine drives: ordered statement batches and text-valued queries.
//
// Query results use the COPY text format regardless of backend: one row per
// line, columns separated by tabs, NULL rendered as \N.
package relstore

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/persistorai/lineage/internal/models"
)

const defaultQueryTimeout = 5 * time.Minute

// Dialect identifies the SQL backend behind a Store.
type Dialect string

// Supported dialects.
const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// Statement is a single SQL statement. Values are inlined as literals by the
// statement builders, so no placeholders are used.
type Statement struct {
	SQL string
}

// Stmt formats a Statement.
func Stmt(format string, args ...any) Statement {
	return Statement{SQL: fmt.Sprintf(format, args...)}
}

// String returns the SQL text.
func (s Statement) String() string { return s.SQL }

// Store executes statement batches and text queries against named relations.
type Store interface {
	// ExecuteBatch runs stmts in order as one unit.
	ExecuteBatch(ctx context.Context, stmts []Statement) error
	// Query runs a read-only statement and returns its rows as text.
	Query(ctx context.Context, stmt Statement) (string, error)
	// Dialect reports the backend dialect.
	Dialect() Dialect
	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error
}

// EdgeLoader is implemented by stores with a fast bulk path for edge rows.
type EdgeLoader interface {
	LoadEdges(ctx context.Context, table string, edges []models.Edge) (int64, error)
}

// ExecutionError reports the statement of a batch that failed.
type ExecutionError struct {
	Index     int
	Statement string
	Err       error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("statement %d (%s): %v", e.Index, abbreviate(e.Statement, 120), e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

func abbreviate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= n {
		return s
	}

	return s[:n] + "..."
}

// withTimeout creates a context with the default query timeout.
func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, defaultQueryTimeout)
}

// ParseCount parses a single scalar aggregate result. Whitespace, including
// the trailing newline of the text format, is trimmed first.
func ParseCount(text string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return 0, fmt.Errorf("parsing aggregate result %q: %w", abbreviate(text, 40), err)
	}

	return n, nil
}

// Rows splits a text result into rows of column values. Empty lines are skipped.
func Rows(text string) [][]string {
	lines := strings.Split(text, "\n")
	out := make([][]string, 0, len(lines))

	for _, line := range lines {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}

		out = append(out, strings.Split(line, "\t"))
	}

	return out
}

// NullText is the text-format rendering of NULL.
const NullText = `\N`

var (
	copyEscaper   = strings.NewReplacer(`\`, `\\`, "\t", `\t`, "\n", `\n`, "\r", `\r`)
	copyUnescaper = strings.NewReplacer(`\\`, `\`, `\t`, "\t", `\n`, "\n", `\r`, "\r")
)

// Text decodes one text-format cell. NULL decodes to the empty string.
func Text(cell string) string {
	if cell == NullText {
		return ""
	}

	return copyUnescaper.Replace(cell)
}

// ParseInts parses column col of every row as an int64.
func ParseInts(rows [][]string, col int) ([]int64, error) {
	out := make([]int64, 0, len(rows))

	for i, row := range rows {
		if col >= len(row) {
			return nil, fmt.Errorf("row %d has %d columns, want at least %d", i, len(row), col+1)
		}

		v, err := strconv.ParseInt(strings.TrimSpace(row[col]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("row %d column %d: %w", i, col, err)
		}

		out = append(out, v)
	}

	return out, nil
}
