// Package migrations embeds the SQL schema migrations for history.db.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
