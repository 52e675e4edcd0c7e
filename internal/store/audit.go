package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/tasklog/internal/domain"
)

// AuditStore is the append-only persistence of status transitions.
// It exposes no update or delete operations.
type AuditStore interface {
	// Append inserts entry. A task_id that does not reference an existing
	// task fails with ErrInvalidEntity.
	Append(ctx context.Context, entry *domain.AuditEntry) error

	// LastChangedAt returns the newest changed_at recorded for taskID, or the
	// zero time when the task has no entries.
	LastChangedAt(ctx context.Context, taskID uuid.UUID) (time.Time, error)

	// History returns every entry for taskID ordered by changed_at ascending.
	History(ctx context.Context, taskID uuid.UUID) ([]*domain.AuditEntry, error)

	// WithTx returns an AuditStore that runs every statement inside tx.
	WithTx(tx *sql.Tx) AuditStore
}
