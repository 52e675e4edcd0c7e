package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/tasklog/internal/domain"
	"github.com/phrazzld/tasklog/internal/platform/logger"
	"github.com/phrazzld/tasklog/internal/store"
)

// snapshotInsertChunk bounds the rows per INSERT statement to stay well
// below PostgreSQL's 65535 bind parameter limit.
const snapshotInsertChunk = 1000

const snapshotItemSelect = `
	SELECT s.id, s.task_id, s.snapshot_date, s.status, s.priority,
	       t.name, t.description, t.assigned_owner_id, COALESCE(o.username, ''),
	       t.created_at, t.updated_at
	FROM daily_snapshots s
	JOIN tasks t ON t.id = s.task_id
	LEFT JOIN owners o ON o.id = t.assigned_owner_id
`

// PostgresSnapshotStore implements store.SnapshotStore on the daily_snapshots
// table. The uq_daily_snapshots_task_date constraint backs the per-day
// uniqueness of snapshots.
type PostgresSnapshotStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresSnapshotStore creates a new PostgresSnapshotStore.
func NewPostgresSnapshotStore(db store.DBTX, logger *slog.Logger) *PostgresSnapshotStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresSnapshotStore{
		db:     db,
		logger: logger.With(slog.String("component", "snapshot_store")),
	}
}

var _ store.SnapshotStore = (*PostgresSnapshotStore)(nil)

// snapshotLockClass namespaces the advisory locks taken by LockDay.
const snapshotLockClass int32 = 0x736e6170

// LockDay implements store.SnapshotStore.LockDay with a transaction-scoped
// advisory lock keyed by the day number since the Unix epoch.
func (s *PostgresSnapshotStore) LockDay(ctx context.Context, day time.Time) error {
	dayNumber := int32(domain.Day(day).Unix() / 86400)
	if _, err := s.db.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1, $2)`, snapshotLockClass, dayNumber); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to lock snapshot day", slog.String("error", err.Error()))
		return store.NewStoreError("snapshot", "lock_day", "failed to lock snapshot day", MapError(err))
	}
	return nil
}

// ExistsForDate implements store.SnapshotStore.ExistsForDate.
func (s *PostgresSnapshotStore) ExistsForDate(ctx context.Context, day time.Time) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM daily_snapshots WHERE snapshot_date = $1)`

	var exists bool
	if err := s.db.QueryRowContext(ctx, query, domain.Day(day)).Scan(&exists); err != nil {
		return false, store.NewStoreError("snapshot", "exists_for_date", "failed to query snapshots", MapError(err))
	}
	return exists, nil
}

// CreateBatch implements store.SnapshotStore.CreateBatch. Atomicity comes
// from the caller's transaction when the batch spans several statements.
func (s *PostgresSnapshotStore) CreateBatch(ctx context.Context, snapshots []*domain.DailySnapshot) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	for start := 0; start < len(snapshots); start += snapshotInsertChunk {
		end := start + snapshotInsertChunk
		if end > len(snapshots) {
			end = len(snapshots)
		}

		query, args := buildSnapshotInsert(snapshots[start:end])
		if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
			log.Error("failed to insert snapshot batch",
				slog.String("error", err.Error()),
				slog.Int("batch_start", start),
				slog.Int("batch_size", end-start))
			return store.NewStoreError("snapshot", "create_batch", "failed to insert snapshots",
				MapUniqueViolation(err, store.ErrSnapshotExists))
		}
	}

	log.Debug("snapshot batch inserted", slog.Int("count", len(snapshots)))
	return nil
}

func buildSnapshotInsert(batch []*domain.DailySnapshot) (string, []any) {
	const cols = 5

	var b strings.Builder
	b.WriteString(`INSERT INTO daily_snapshots (id, task_id, snapshot_date, status, priority) VALUES `)

	args := make([]any, 0, len(batch)*cols)
	for i, snap := range batch {
		if i > 0 {
			b.WriteString(", ")
		}
		n := i * cols
		fmt.Fprintf(&b, "($%d, $%d, $%d, $%d, $%d)", n+1, n+2, n+3, n+4, n+5)
		args = append(args,
			snap.ID,
			snap.TaskID,
			domain.Day(snap.SnapshotDate),
			snap.Status,
			string(snap.Priority),
		)
	}

	return b.String(), args
}

// List implements store.SnapshotStore.List.
func (s *PostgresSnapshotStore) List(
	ctx context.Context,
	filterDate *time.Time,
	limit, offset int,
) ([]domain.SnapshotItem, int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var (
		countQuery = `SELECT COUNT(*) FROM daily_snapshots`
		listQuery  = snapshotItemSelect
		args       []any
	)

	if filterDate != nil {
		countQuery += ` WHERE snapshot_date = $1`
		listQuery += ` WHERE s.snapshot_date = $1 ORDER BY s.id DESC LIMIT $2 OFFSET $3`
		args = append(args, domain.Day(*filterDate))
	} else {
		listQuery += ` ORDER BY s.snapshot_date DESC, s.id DESC LIMIT $1 OFFSET $2`
	}

	var total int
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		log.Error("failed to count snapshots", slog.String("error", err.Error()))
		return nil, 0, store.NewStoreError("snapshot", "list", "failed to count snapshots", MapError(err))
	}

	items := make([]domain.SnapshotItem, 0)
	if total == 0 || offset < 0 || offset >= total {
		return items, total, nil
	}

	rows, err := s.db.QueryContext(ctx, listQuery, append(args, limit, offset)...)
	if err != nil {
		log.Error("failed to list snapshots", slog.String("error", err.Error()))
		return nil, 0, store.NewStoreError("snapshot", "list", "failed to query snapshots", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		item, err := scanSnapshotItem(rows)
		if err != nil {
			return nil, 0, store.NewStoreError("snapshot", "list", "failed to scan snapshot", MapError(err))
		}
		item.TaskCreatedAt = nil
		item.TaskUpdatedAt = nil
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, store.NewStoreError("snapshot", "list", "failed to iterate snapshots", MapError(err))
	}

	return items, total, nil
}

// GetItem implements store.SnapshotStore.GetItem.
func (s *PostgresSnapshotStore) GetItem(ctx context.Context, id uuid.UUID) (*domain.SnapshotItem, error) {
	item, err := scanSnapshotItem(s.db.QueryRowContext(ctx, snapshotItemSelect+` WHERE s.id = $1`, id))
	if err != nil {
		if IsNotFoundError(err) {
			return nil, store.ErrSnapshotNotFound
		}
		return nil, store.NewStoreError("snapshot", "get", "failed to query snapshot", MapError(err))
	}
	return item, nil
}

// WithTx implements store.SnapshotStore.WithTx.
func (s *PostgresSnapshotStore) WithTx(tx *sql.Tx) store.SnapshotStore {
	return &PostgresSnapshotStore{
		db:     tx,
		logger: s.logger,
	}
}

func scanSnapshotItem(row rowScanner) (*domain.SnapshotItem, error) {
	var (
		item      domain.SnapshotItem
		date      time.Time
		priority  string
		ownerID   uuid.NullUUID
		createdAt time.Time
		updatedAt time.Time
	)

	if err := row.Scan(
		&item.ID,
		&item.TaskID,
		&date,
		&item.Status,
		&priority,
		&item.TaskName,
		&item.Description,
		&ownerID,
		&item.AssignedOwner,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}

	item.SnapshotDate = domain.FormatDay(date)
	item.Priority = domain.Priority(priority)
	item.AssignedOwnerID = uuidPtr(ownerID)
	createdAt = createdAt.UTC()
	updatedAt = updatedAt.UTC()
	item.TaskCreatedAt = &createdAt
	item.TaskUpdatedAt = &updatedAt

	return &item, nil
}
