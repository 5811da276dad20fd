// Package migrations carries the SQL schema, embedded so the migrate binary
// runs from any working directory.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
