// Package migrations embeds the goose SQL migrations of the local database.
// Bumping the schema means adding a numbered file; it is applied once, the
// next time the database is opened.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
