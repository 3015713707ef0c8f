// Package migrations embeds the goose SQL migrations, one directory per dialect.
package migrations

import "embed"

// FS contains the embedded SQL migration files under postgres/ and sqlite/.
//
//go:embed postgres/*.sql sqlite/*.sql
var FS embed.FS
