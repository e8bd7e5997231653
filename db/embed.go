// Package db holds the SQL schema migrations of the Marathon database.
package db

import "embed"

// Migrations contains the migration files under migrations/.
//
//go:embed migrations/*.sql
var Migrations embed.FS
