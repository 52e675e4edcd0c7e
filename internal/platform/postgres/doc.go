// Package postgres provides PostgreSQL-specific implementations for the data
// storage interfaces defined in the internal/store package, and the goose
// migrations that create their schema.
package postgres
