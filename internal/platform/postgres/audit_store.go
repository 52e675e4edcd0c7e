package postgres

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/tasklog/internal/domain"
	"github.com/phrazzld/tasklog/internal/platform/logger"
	"github.com/phrazzld/tasklog/internal/store"
)

// PostgresAuditStore implements store.AuditStore on the task_audit_log table.
type PostgresAuditStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresAuditStore creates a new PostgresAuditStore.
// If logger is nil, a default logger will be used.
func NewPostgresAuditStore(db store.DBTX, logger *slog.Logger) *PostgresAuditStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresAuditStore{
		db:     db,
		logger: logger.With(slog.String("component", "audit_store")),
	}
}

var _ store.AuditStore = (*PostgresAuditStore)(nil)

// Append implements store.AuditStore.Append.
func (s *PostgresAuditStore) Append(ctx context.Context, entry *domain.AuditEntry) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		INSERT INTO task_audit_log (id, task_id, previous_status, new_status, changed_by, changed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		entry.ID,
		entry.TaskID,
		entry.PreviousStatus,
		entry.NewStatus,
		entry.ChangedBy,
		entry.ChangedAt,
	)
	if err != nil {
		log.Error("failed to append audit entry",
			slog.String("error", err.Error()),
			slog.String("task_id", entry.TaskID.String()))
		return store.NewStoreError("audit_entry", "append", "failed to insert audit entry", MapError(err))
	}

	log.Debug("audit entry appended",
		slog.String("task_id", entry.TaskID.String()),
		slog.Bool("previous_status", entry.PreviousStatus),
		slog.Bool("new_status", entry.NewStatus),
		slog.String("changed_by", entry.ChangedBy))
	return nil
}

// LastChangedAt implements store.AuditStore.LastChangedAt.
func (s *PostgresAuditStore) LastChangedAt(ctx context.Context, taskID uuid.UUID) (time.Time, error) {
	query := `SELECT MAX(changed_at) FROM task_audit_log WHERE task_id = $1`

	var last sql.NullTime
	if err := s.db.QueryRowContext(ctx, query, taskID).Scan(&last); err != nil {
		return time.Time{}, store.NewStoreError("audit_entry", "last_changed_at", "failed to query audit log", MapError(err))
	}
	if !last.Valid {
		return time.Time{}, nil
	}
	return last.Time.UTC(), nil
}

// History implements store.AuditStore.History.
func (s *PostgresAuditStore) History(ctx context.Context, taskID uuid.UUID) ([]*domain.AuditEntry, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, task_id, previous_status, new_status, changed_by, changed_at
		FROM task_audit_log
		WHERE task_id = $1
		ORDER BY changed_at ASC, id ASC
	`
	rows, err := s.db.QueryContext(ctx, query, taskID)
	if err != nil {
		log.Error("failed to query audit history",
			slog.String("error", err.Error()),
			slog.String("task_id", taskID.String()))
		return nil, store.NewStoreError("audit_entry", "history", "failed to query audit log", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	entries := make([]*domain.AuditEntry, 0)
	for rows.Next() {
		var entry domain.AuditEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.TaskID,
			&entry.PreviousStatus,
			&entry.NewStatus,
			&entry.ChangedBy,
			&entry.ChangedAt,
		); err != nil {
			return nil, store.NewStoreError("audit_entry", "history", "failed to scan audit entry", MapError(err))
		}
		entry.ChangedAt = entry.ChangedAt.UTC()
		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("audit_entry", "history", "failed to iterate audit log", MapError(err))
	}

	return entries, nil
}

// WithTx implements store.AuditStore.WithTx.
func (s *PostgresAuditStore) WithTx(tx *sql.Tx) store.AuditStore {
	return &PostgresAuditStore{
		db:     tx,
		logger: s.logger,
	}
}
