package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/tasklog/internal/domain"
)

// SnapshotStore persists daily snapshots. Snapshots are never updated or
// deleted; the (task_id, snapshot_date) pair is enforced unique by the
// database.
type SnapshotStore interface {
	// LockDay serializes materialization of day across processes until the
	// surrounding transaction ends. It must run inside a transaction.
	LockDay(ctx context.Context, day time.Time) error

	// ExistsForDate reports whether any snapshot exists for day.
	ExistsForDate(ctx context.Context, day time.Time) (bool, error)

	// CreateBatch inserts all snapshots or none. A (task, day) collision
	// fails with ErrSnapshotExists.
	CreateBatch(ctx context.Context, snapshots []*domain.DailySnapshot) error

	// List returns one page of snapshot items and the total number of matching
	// snapshots. With a nil filterDate items are ordered by (date desc, id desc);
	// with a date they are ordered by id desc.
	List(ctx context.Context, filterDate *time.Time, limit, offset int) ([]domain.SnapshotItem, int, error)

	// GetItem returns a single snapshot joined with its task and owner,
	// including the task timestamps. Returns ErrSnapshotNotFound if absent.
	GetItem(ctx context.Context, id uuid.UUID) (*domain.SnapshotItem, error)

	// WithTx returns a SnapshotStore that runs every statement inside tx.
	WithTx(tx *sql.Tx) SnapshotStore
}
