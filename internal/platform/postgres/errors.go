package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/tasklog/internal/domain"
	"github.com/phrazzld/tasklog/internal/store"
)

// SQLSTATE codes the stores react to.
const (
	uniqueViolationCode     = "23505"
	foreignKeyViolationCode = "23503"
	checkViolationCode      = "23514"
	notNullViolationCode    = "23502"
	// raised by the append-only guard triggers on task_audit_log
	raiseExceptionCode = "P0001"
)

// constraintFailures maps SQLSTATE codes to the store sentinel they imply and
// a label for the wrapped message.
var constraintFailures = map[string]struct {
	sentinel error
	label    string
}{
	uniqueViolationCode:     {store.ErrDuplicate, "unique violation"},
	foreignKeyViolationCode: {store.ErrInvalidEntity, "foreign key violation"},
	checkViolationCode:      {store.ErrInvalidEntity, "check violation"},
	notNullViolationCode:    {store.ErrInvalidEntity, "not null violation"},
	raiseExceptionCode:      {store.ErrInvalidEntity, "rejected by trigger"},
}

// MapError translates a driver error into the store taxonomy. Constraint
// violations become ErrDuplicate or ErrInvalidEntity, sql.ErrNoRows becomes
// ErrNotFound and anything else is ErrStorage. The driver error stays in the
// chain.
func MapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrConflict),
		errors.Is(err, domain.ErrStorage):
		return err
	case errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("%w: %v", store.ErrNotFound, err)
	}

	if pgErr, ok := pgError(err); ok {
		if f, known := constraintFailures[pgErr.Code]; known {
			detail := pgErr.ConstraintName
			if detail == "" {
				detail = pgErr.ColumnName
			}
			if detail == "" {
				detail = pgErr.Message
			}
			return fmt.Errorf("%w: %s (%s): %w", f.sentinel, f.label, detail, err)
		}
	}

	return fmt.Errorf("%w: %w", store.ErrStorage, err)
}

func pgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	ok := errors.As(err, &pgErr)
	return pgErr, ok
}

// IsUniqueViolation reports whether err carries SQLSTATE 23505.
func IsUniqueViolation(err error) bool {
	pgErr, ok := pgError(err)
	return ok && pgErr.Code == uniqueViolationCode
}

// CheckRowsAffected returns notFound, or store.ErrNotFound when notFound is
// nil, if result touched no rows.
func CheckRowsAffected(result sql.Result, notFound error) error {
	if result == nil {
		return fmt.Errorf("%w: no result", store.ErrStorage)
	}

	n, err := result.RowsAffected()
	switch {
	case err != nil:
		return fmt.Errorf("%w: rows affected: %w", store.ErrStorage, err)
	case n > 0:
		return nil
	case notFound != nil:
		return notFound
	default:
		return store.ErrNotFound
	}
}

// MapUniqueViolation maps a PostgreSQL unique violation to specificError and
// defers to MapError for anything else.
func MapUniqueViolation(err error, specificError error) error {
	if IsUniqueViolation(err) && specificError != nil {
		return fmt.Errorf("%w: %w", specificError, err)
	}
	return MapError(err)
}

// nullableUUID converts an optional ID into a value the driver stores as NULL
// when absent.
func nullableUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

// uuidPtr is the inverse of nullableUUID.
func uuidPtr(id uuid.NullUUID) *uuid.UUID {
	if !id.Valid {
		return nil
	}
	v := id.UUID
	return &v
}
