// Package main provides a standalone script that copies a lineage edge
// relation from a SQLite database into PostgreSQL.
//
// Usage:
//
//	SQLITE_PATH=lineage.db DATABASE_URL=postgres://... go run ./scripts/migrate
//
// The target table must already exist (start lineage-server against the
// PostgreSQL database once to run its migrations). Set TRUNCATE=true to
// replace existing target rows instead of appending.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	_ "modernc.org/sqlite"
)

// config holds environment-driven migration settings.
type config struct {
	SQLitePath  string
	DatabaseURL string
	Table       string
	Truncate    bool
	DryRun      bool
}

// report holds the final migration summary.
type report struct {
	Source        string
	Target        string
	Table         string
	EdgesRead     int64
	EdgesCopied   int64
	EdgesVerified int64
	TargetBefore  int64
	SpotChecks    []string
	Duration      time.Duration
	DryRun        bool
	Err           error
}

func main() {
	cfg := loadConfig()
	if cfg.DatabaseURL == "" {
		slog.Error("DATABASE_URL is required")
		os.Exit(1)
	}

	if !validTable(cfg.Table) {
		slog.Error("EDGE_RELATION must be a lowercase SQL identifier", "table", cfg.Table)
		os.Exit(1)
	}

	slog.Info("starting migration",
		"sqlite", cfg.SQLitePath,
		"table", cfg.Table,
		"truncate", cfg.Truncate,
		"dry_run", cfg.DryRun,
	)

	start := time.Now()
	r, err := runMigration(context.Background(), cfg)
	r.Duration = time.Since(start)
	if err != nil {
		r.Err = err
		slog.Error("migration failed", "error", err)
	}
	printReport(&r)
	if err != nil {
		os.Exit(1)
	}
}

// loadConfig reads configuration from environment variables.
func loadConfig() config {
	return config{
		SQLitePath:  envOr("SQLITE_PATH", "lineage.db"),
		DatabaseURL: envOr("DATABASE_URL", ""),
		Table:       envOr("EDGE_RELATION", "edges"),
		Truncate:    isTrue(os.Getenv("TRUNCATE")),
		DryRun:      isTrue(os.Getenv("DRY_RUN")),
	}
}

// runMigration reads every edge from SQLite and copies it in one transaction.
func runMigration(ctx context.Context, cfg config) (report, error) {
	r := report{
		Source: cfg.SQLitePath,
		Target: sanitizeURL(cfg.DatabaseURL),
		Table:  cfg.Table,
		DryRun: cfg.DryRun,
	}

	lite, err := sql.Open("sqlite", "file:"+cfg.SQLitePath+"?mode=ro")
	if err != nil {
		return r, fmt.Errorf("open sqlite: %w", err)
	}
	defer lite.Close()

	edges, err := readEdges(ctx, lite, cfg.Table)
	if err != nil {
		return r, fmt.Errorf("read edges: %w", err)
	}
	r.EdgesRead = int64(len(edges))
	slog.Info("read edges from sqlite", "count", r.EdgesRead)

	if cfg.DryRun {
		slog.Info("dry run, skipping PostgreSQL writes")
		r.EdgesCopied = r.EdgesRead
		return r, nil
	}

	conn, err := pgx.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return r, fmt.Errorf("connect postgres: %w", err)
	}
	defer conn.Close(ctx)

	tx, err := conn.Begin(ctx)
	if err != nil {
		return r, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback after commit.

	if cfg.Truncate {
		if _, err := tx.Exec(ctx, "TRUNCATE "+pgx.Identifier{cfg.Table}.Sanitize()); err != nil {
			return r, fmt.Errorf("truncate: %w", err)
		}
	}

	if r.TargetBefore, err = countRows(ctx, tx, cfg.Table); err != nil {
		return r, fmt.Errorf("count target: %w", err)
	}

	if r.EdgesCopied, err = copyEdges(ctx, tx, cfg.Table, edges); err != nil {
		return r, fmt.Errorf("copy edges: %w", err)
	}
	slog.Info("copied edges", "count", r.EdgesCopied)

	total, err := countRows(ctx, tx, cfg.Table)
	if err != nil {
		return r, fmt.Errorf("verify edge count: %w", err)
	}
	r.EdgesVerified = total - r.TargetBefore

	if r.SpotChecks, err = spotCheck(ctx, tx, cfg.Table, edges); err != nil {
		return r, fmt.Errorf("spot check: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return r, fmt.Errorf("commit: %w", err)
	}
	slog.Info("transaction committed")
	return r, nil
}
