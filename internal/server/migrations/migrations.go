// Package migrations embeds the goose schema migrations, one directory per
// database dialect.
package migrations

import "embed"

// Directory names inside FS.
const (
	PostgresDir = "postgres"
	SQLiteDir   = "sqlite"
)

//go:embed postgres/*.sql sqlite/*.sql
var FS embed.FS
