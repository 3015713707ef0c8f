package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// edge is one row of the edge relation.
type edge struct {
	Src int64
	Dst int64
}

// readEdges reads every row of table from SQLite.
func readEdges(ctx context.Context, db *sql.DB, table string) ([]edge, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf(`SELECT src, dst FROM %q`, table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var edges []edge
	for rows.Next() {
		var e edge
		if err := rows.Scan(&e.Src, &e.Dst); err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

// copyEdges bulk-loads edges with COPY FROM.
func copyEdges(ctx context.Context, tx pgx.Tx, table string, edges []edge) (int64, error) {
	return tx.CopyFrom(ctx, pgx.Identifier{table}, []string{"src", "dst"},
		pgx.CopyFromSlice(len(edges), func(i int) ([]any, error) {
			return []any{edges[i].Src, edges[i].Dst}, nil
		}))
}
