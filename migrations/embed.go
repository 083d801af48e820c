package migrations

import "embed"

// Files exposes embedded SQL schema files per database dialect.
//
//go:embed sqlite/*.sql postgres/*.sql
var Files embed.FS
