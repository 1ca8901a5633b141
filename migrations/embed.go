// Package migrations embeds the catalog schema applied by
// database.RunMigrations.
package migrations

import "embed"

// FS holds the *.up.sql and *.down.sql files.
//
//go:embed *.sql
var FS embed.FS
