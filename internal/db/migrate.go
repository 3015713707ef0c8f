// Migration runner using goose (github.com/pressly/goose/v3).
//
// Migrations live in internal/db/migrations/<dialect>/ and are embedded via
// //go:embed. The server applies pending migrations on startup. PostgreSQL
// additionally installs the NOTIFY trigger that feeds NotifyBridge.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as database/sql driver
	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/lineage/internal/db/migrations"
	"github.com/persistorai/lineage/internal/relstore"
)

// MigrationFS returns the migration directory and goose dialect for d.
func MigrationFS(d relstore.Dialect) (fs.FS, goose.Dialect, error) {
	var dialect goose.Dialect

	switch d {
	case relstore.DialectPostgres:
		dialect = goose.DialectPostgres
	case relstore.DialectSQLite:
		dialect = goose.DialectSQLite3
	default:
		return nil, "", fmt.Errorf("no migrations for dialect %q", d)
	}

	sub, err := fs.Sub(migrations.FS, string(d))
	if err != nil {
		return nil, "", fmt.Errorf("opening %s migrations: %w", d, err)
	}

	return sub, dialect, nil
}

// RunMigrations applies all pending migrations for the store's dialect.
func RunMigrations(ctx context.Context, st relstore.Store, log *logrus.Logger) error {
	fsys, dialect, err := MigrationFS(st.Dialect())
	if err != nil {
		return err
	}

	var sqlDB *sql.DB

	switch s := st.(type) {
	case *relstore.SQLite:
		sqlDB = s.DB()
	case *relstore.Postgres:
		// goose requires a *sql.DB; open one through the pgx stdlib driver.
		sqlDB, err = sql.Open("pgx", s.Pool().ConnString())
		if err != nil {
			return fmt.Errorf("opening sql.DB for migrations: %w", err)
		}
		defer sqlDB.Close()
	default:
		return fmt.Errorf("migrations unsupported for store %T", st)
	}

	provider, err := goose.NewProvider(dialect, sqlDB, fsys)
	if err != nil {
		return fmt.Errorf("creating goose provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("applying migrations: %w", err)
	}

	for _, r := range results {
		if r.Error != nil {
			return fmt.Errorf("migration %d (%s) failed: %w", r.Source.Version, r.Source.Path, r.Error)
		}

		log.WithFields(logrus.Fields{
			"dialect":  st.Dialect(),
			"version":  r.Source.Version,
			"file":     r.Source.Path,
			"duration": r.Duration,
		}).Info("migration applied")
	}

	if len(results) == 0 {
		log.Debug("all migrations already applied")
	}

	return nil
}
