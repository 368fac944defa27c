package postgres

import "embed"

// Migrations holds the schema, applied at startup from the "migrations" dir.
//
//go:embed migrations/*.sql
var Migrations embed.FS
