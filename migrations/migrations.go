// Package migrations embeds the SQL schema so the binary and tests share one copy.
package migrations

import "embed"

// FS holds every NNN_name.sql migration
//
//go:embed *.sql
var FS embed.FS
