// Package migrations holds the Postgres schema as golang-migrate files.
package migrations

import "embed"

// FS contains every *.sql migration, so binaries can migrate without the source tree
//
//go:embed *.sql
var FS embed.FS
