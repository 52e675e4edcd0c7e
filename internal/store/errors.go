package store

import (
	"errors"
	"fmt"

	"github.com/phrazzld/tasklog/internal/domain"
)

// Common store errors used across all store implementations. Each one wraps
// the matching domain error so callers can classify failures with errors.Is
// against either package.
var (
	// ErrNotFound is returned when a requested entity does not exist in the store.
	ErrNotFound = fmt.Errorf("%w: entity not found", domain.ErrNotFound)

	// ErrDuplicate is returned when an operation would create a duplicate
	// of a unique entity.
	ErrDuplicate = fmt.Errorf("%w: entity already exists", domain.ErrConflict)

	// ErrInvalidEntity is returned when the database rejects an entity
	// (check, not-null or foreign key constraint).
	ErrInvalidEntity = fmt.Errorf("%w: invalid entity", domain.ErrValidation)

	// ErrStorage is returned for connection, timeout and other failures that
	// say nothing about the data itself.
	ErrStorage = fmt.Errorf("%w: database error", domain.ErrStorage)

	// ErrTransactionFailed is returned when a database transaction fails
	// to begin or commit.
	ErrTransactionFailed = fmt.Errorf("%w: transaction failed", domain.ErrStorage)

	// Entity-specific "not found" errors

	ErrTaskNotFound     = fmt.Errorf("%w: task", ErrNotFound)
	ErrSnapshotNotFound = fmt.Errorf("%w: snapshot", ErrNotFound)
	ErrOwnerNotFound    = fmt.Errorf("%w: owner", ErrNotFound)

	// Entity-specific "duplicate" errors

	// ErrSnapshotExists indicates a snapshot already exists for a (task, day) pair.
	ErrSnapshotExists = fmt.Errorf("%w: snapshot for task and day", ErrDuplicate)

	// ErrOwnerExists indicates an owner with the same username already exists.
	ErrOwnerExists = fmt.Errorf("%w: owner username", ErrDuplicate)
)

// IsNotFoundError checks if the error is any kind of "not found" error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicateError checks if the error is any kind of "duplicate" error.
func IsDuplicateError(err error) bool {
	return errors.Is(err, ErrDuplicate)
}

// StoreError is a custom error type for store-specific errors with additional context.
type StoreError struct {
	Entity    string // The entity type (e.g., "task", "snapshot")
	Operation string // The operation that failed (e.g., "create", "update")
	Message   string // Error message
	Err       error  // Original error
}

// Error implements the error interface for StoreError.
func (e *StoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf(
			"%s operation on %s failed: %s: %v",
			e.Operation,
			e.Entity,
			e.Message,
			e.Err,
		)
	}
	return fmt.Sprintf("%s operation on %s failed: %s", e.Operation, e.Entity, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new StoreError with the given entity, operation, message, and wrapped error.
func NewStoreError(entity, operation, message string, err error) *StoreError {
	return &StoreError{
		Entity:    entity,
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}

// Classify returns err unchanged when it already matches one of the domain
// taxonomy errors, and wraps it with ErrStorage otherwise.
func Classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrConflict),
		errors.Is(err, domain.ErrStorage):
		return err
	default:
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}
}
