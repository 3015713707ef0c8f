// Package store provides data access for the edge relation and the run log.
//
// Each store owns one relation and embeds shared dependencies through Base.
// Everything goes through relstore.Store, so both dialects share one
// implementation.
package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/persistorai/lineage/internal/relstore"
)

const defaultQueryTimeout = 30 * time.Second

// Base contains shared dependencies for all stores.
type Base struct {
	Store relstore.Store
	Log   *logrus.Logger
}

// withTimeout creates a context with the default query timeout.
func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, defaultQueryTimeout)
}

// count runs a COUNT(*) style query.
func (b *Base) count(ctx context.Context, sql string) (int64, error) {
	out, err := b.Store.Query(ctx, relstore.Statement{SQL: sql})
	if err != nil {
		return 0, err
	}

	n, err := strconv.ParseInt(strings.TrimSpace(out), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing count %q: %w", strings.TrimSpace(out), err)
	}

	return n, nil
}

// quote renders s as a SQL string literal. NUL bytes are dropped.
func quote(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")

	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
