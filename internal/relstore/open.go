package relstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/persistorai/lineage/internal/dbpool"
)

// SQLitePath extracts the database path from a sqlite:// URL. It reports
// false when url is not a sqlite URL.
func SQLitePath(url string) (string, bool) {
	switch {
	case url == "sqlite::memory:" || url == "sqlite://:memory:":
		return ":memory:", true
	case strings.HasPrefix(url, "sqlite://"):
		return strings.TrimPrefix(url, "sqlite://"), true
	default:
		return "", false
	}
}

// Open connects to the store named by databaseURL: postgres:// and
// postgresql:// use pgx, sqlite:// uses the embedded driver. The returned
// function releases the connection.
func Open(ctx context.Context, databaseURL string, maxConns int32, log *logrus.Logger) (Store, func(), error) {
	if path, ok := SQLitePath(databaseURL); ok {
		s, err := OpenSQLite(ctx, path, log)
		if err != nil {
			return nil, nil, err
		}

		return s, func() { s.Close() }, nil //nolint:errcheck // shutdown path.
	}

	if !strings.HasPrefix(databaseURL, "postgres://") && !strings.HasPrefix(databaseURL, "postgresql://") {
		return nil, nil, fmt.Errorf("unsupported database URL scheme")
	}

	pool, err := dbpool.NewPool(ctx, databaseURL, dbpool.Options{MaxConns: maxConns})
	if err != nil {
		return nil, nil, err
	}

	return NewPostgres(pool, log), pool.Close, nil
}
