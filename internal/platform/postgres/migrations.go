package postgres

import "embed"

// MigrationsTable is the goose version table name.
const MigrationsTable = "schema_migrations"

// Migrations holds the goose SQL migrations, applied in filename order.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory of Migrations that goose reads from.
const MigrationsDir = "migrations"
