// Package migrations embeds the tracker SQLite schema.
package migrations

import "embed"

// FS contains embedded SQLite migrations for tracker storage.
//
//go:embed *.sql
var FS embed.FS
