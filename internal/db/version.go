package db

import (
	"io/fs"

	"github.com/persistorai/lineage/internal/db/migrations"
	"github.com/persistorai/lineage/internal/relstore"
)

// SchemaVersion returns the number of migration files for d, which equals the
// schema version once RunMigrations has succeeded. The readiness probe
// reports it.
func SchemaVersion(d relstore.Dialect) int {
	entries, err := fs.ReadDir(migrations.FS, string(d))
	if err != nil {
		return 0
	}

	count := 0

	for _, e := range entries {
		if !e.IsDir() {
			count++
		}
	}

	return count
}
