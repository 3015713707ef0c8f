package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/url"
	"os"
	"regexp"

	"github.com/jackc/pgx/v5"
)

var tableRe = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

// validTable reports whether name is safe to use as an unquoted identifier.
func validTable(name string) bool {
	return tableRe.MatchString(name)
}

// sanitizeURL removes credentials from a database URL for display.
func sanitizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "[unparseable URL]"
	}
	u.User = nil
	return u.String()
}

// envOr returns the environment variable value or a default.
func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func isTrue(s string) bool {
	return s == "true" || s == "1"
}

// countRows counts the rows of table.
func countRows(ctx context.Context, tx pgx.Tx, table string) (int64, error) {
	var count int64
	err := tx.QueryRow(ctx, "SELECT count(*) FROM "+pgx.Identifier{table}.Sanitize()).Scan(&count)
	return count, err
}

// spotCheck verifies that 5 random copied edges are present in PostgreSQL.
func spotCheck(ctx context.Context, tx pgx.Tx, table string, edges []edge) ([]string, error) {
	if len(edges) == 0 {
		return nil, nil
	}
	count := min(5, len(edges))
	var checks []string

	for _, idx := range rand.Perm(len(edges))[:count] {
		e := edges[idx]
		var found bool
		err := tx.QueryRow(ctx,
			fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM %s WHERE src = $1 AND dst = $2)", pgx.Identifier{table}.Sanitize()),
			e.Src, e.Dst,
		).Scan(&found)
		if err != nil {
			return checks, err
		}
		if found {
			checks = append(checks, fmt.Sprintf("ok   %d -> %d", e.Src, e.Dst))
		} else {
			checks = append(checks, fmt.Sprintf("MISS %d -> %d", e.Src, e.Dst))
		}
	}
	return checks, nil
}

// printReport outputs the final migration summary.
func printReport(r *report) {
	fmt.Println()
	fmt.Println("=== lineage edge migration ===")
	if r.DryRun {
		fmt.Println("MODE: DRY RUN (no changes made)")
	}
	fmt.Printf("Source: %s\n", r.Source)
	fmt.Printf("Target: %s (table %s, %d rows before)\n", r.Target, r.Table, r.TargetBefore)
	fmt.Println()
	fmt.Printf("Edges: %d read, %d copied, %d verified [%s]\n",
		r.EdgesRead, r.EdgesCopied, r.EdgesVerified, status(r))

	if len(r.SpotChecks) > 0 {
		fmt.Println("\nSpot checks:")
		for _, c := range r.SpotChecks {
			fmt.Printf("  %s\n", c)
		}
	}

	fmt.Printf("\nDuration: %.1fs\n", r.Duration.Seconds())
	if r.Err != nil {
		fmt.Printf("Status: FAILED: %v\n", r.Err)
	} else {
		fmt.Println("Status: SUCCESS")
	}
}

func status(r *report) string {
	switch {
	case r.DryRun:
		return "dry run"
	case r.EdgesRead == r.EdgesCopied && r.EdgesCopied == r.EdgesVerified:
		return "ok"
	default:
		return "MISMATCH"
	}
}
