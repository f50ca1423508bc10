// Package migrations embeds the SQL schema files applied by db.Migrator.
package migrations

import "embed"

//go:embed *.sql
var Files embed.FS
