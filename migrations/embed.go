// Package migrations holds the goose SQL migrations for each supported database
// dialect, embedded into the binary.
package migrations

import "embed"

// FS contains one directory per dialect: sqlite/ and postgres/.
//
//go:embed sqlite/*.sql postgres/*.sql
var FS embed.FS
