// Package migrations carries the versioned PostgreSQL schema. Files follow
// the golang-migrate naming scheme: {version}_{title}.{up|down}.sql.
package migrations

import "embed"

// FS holds every migration file compiled into the binary
//
//go:embed *.sql
var FS embed.FS
