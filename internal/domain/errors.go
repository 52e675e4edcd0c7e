package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Error taxonomy shared by every component. Each error returned across a
// package boundary matches exactly one of these with errors.Is.
var (
	// ErrValidation is returned when a value is malformed or out of range.
	// It is the caller's fault and is never retried.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned when a referenced entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a write would violate a uniqueness rule,
	// for example a second snapshot for the same task and day.
	ErrConflict = errors.New("conflict")

	// ErrStorage is returned for transient infrastructure failures
	// (database or cache unavailable, transaction aborted).
	ErrStorage = errors.New("storage unavailable")
)

// Validation errors for specific fields.
var (
	ErrInvalidPriority = fmt.Errorf("%w: priority must be one of LOW, MEDIUM, HIGH, CRITICAL", ErrValidation)
	ErrEmptyTaskID     = fmt.Errorf("%w: task ID cannot be empty", ErrValidation)
	ErrEmptyTaskName   = fmt.Errorf("%w: task name cannot be empty", ErrValidation)
	ErrEmptyActor      = fmt.Errorf("%w: actor cannot be empty", ErrValidation)
	ErrEmptyOwnerName  = fmt.Errorf("%w: owner username cannot be empty", ErrValidation)
	ErrZeroSnapshotDay = fmt.Errorf("%w: snapshot date cannot be zero", ErrValidation)
	ErrInvalidDate     = fmt.Errorf("%w: date must use the YYYY-MM-DD format", ErrValidation)
)

// IsRetryable reports whether err is a transient storage failure.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStorage)
}

// newID returns a time-ordered UUIDv7, so ordering rows by ID follows
// creation order.
func newID() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}
