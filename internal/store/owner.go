package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/tasklog/internal/domain"
)

// OwnerStore persists the owners tasks can be assigned to.
type OwnerStore interface {
	// Create inserts owner. A taken username fails with ErrOwnerExists.
	Create(ctx context.Context, owner *domain.Owner) error

	// GetByID returns ErrOwnerNotFound if the owner does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Owner, error)

	// GetByUsername returns ErrOwnerNotFound if the owner does not exist.
	GetByUsername(ctx context.Context, username string) (*domain.Owner, error)

	// WithTx returns an OwnerStore that runs every statement inside tx.
	WithTx(tx *sql.Tx) OwnerStore
}
