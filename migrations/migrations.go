// Package migrations embeds the schema migrations of the mirror database,
// one directory per SQL dialect.
package migrations

import "embed"

//go:embed sqlite/*.sql
var Sqlite embed.FS

//go:embed postgres/*.sql
var Postgres embed.FS
