package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/tasklog/internal/clock"
	"github.com/phrazzld/tasklog/internal/domain"
	"github.com/phrazzld/tasklog/internal/platform/logger"
	"github.com/phrazzld/tasklog/internal/store"
)

// Invalidator drops every cached snapshot read.
type Invalidator interface {
	InvalidateAll(ctx context.Context) error
}

// CreateTaskParams are the inputs of TaskService.Create. Priority is parsed
// case-insensitively. A nil CreatedAt stamps the task with the current time.
type CreateTaskParams struct {
	Name            string
	Description     string
	Priority        string
	AssignedOwnerID *uuid.UUID
	CreatedAt       *time.Time
}

// TaskService owns task mutations and their audit trail.
type TaskService struct {
	db     *sql.DB
	tasks  store.TaskStore
	audit  *AuditTrail
	cache  Invalidator
	clock  clock.Clock
	logger *slog.Logger
}

// NewTaskService creates a TaskService. It returns an error if a required
// dependency is nil. cache may be nil when no read cache is in use.
func NewTaskService(
	db *sql.DB,
	tasks store.TaskStore,
	audit *AuditTrail,
	cache Invalidator,
	clk clock.Clock,
	logger *slog.Logger,
) (*TaskService, error) {
	if db == nil {
		return nil, errors.New("db cannot be nil")
	}
	if tasks == nil {
		return nil, errors.New("task store cannot be nil")
	}
	if audit == nil {
		return nil, errors.New("audit trail cannot be nil")
	}
	if clk == nil {
		clk = clock.System()
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &TaskService{
		db:     db,
		tasks:  tasks,
		audit:  audit,
		cache:  cache,
		clock:  clk,
		logger: logger.With(slog.String("component", "task_service")),
	}, nil
}

// TaskWriter creates and deactivates tasks.
type TaskWriter interface {
	Create(ctx context.Context, params CreateTaskParams) (*domain.Task, error)
	SoftDelete(ctx context.Context, id uuid.UUID, actor string) (bool, error)
}

// Create persists a new active task.
func (s *TaskService) Create(ctx context.Context, params CreateTaskParams) (*domain.Task, error) {
	task, err := s.create(ctx, s.tasks, params)
	if err != nil {
		return nil, err
	}
	if err := s.invalidate(ctx); err != nil {
		return nil, NewServiceError("create", "failed to invalidate read cache", err)
	}
	return task, nil
}

func (s *TaskService) create(ctx context.Context, tasks store.TaskStore, params CreateTaskParams) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	priority, err := domain.ParsePriority(params.Priority)
	if err != nil {
		return nil, NewServiceError("create", "invalid priority", err)
	}

	now := s.clock.Now()
	if params.CreatedAt != nil {
		now = *params.CreatedAt
	}

	task, err := domain.NewTask(params.Name, params.Description, priority, params.AssignedOwnerID, now)
	if err != nil {
		return nil, NewServiceError("create", "invalid task", err)
	}

	if err := tasks.Create(ctx, task); err != nil {
		log.Error("failed to create task", slog.String("error", err.Error()))
		return nil, NewServiceError("create", "failed to save task", err)
	}

	log.Info("task created",
		slog.String("task_id", task.ID.String()),
		slog.String("priority", task.Priority.String()))
	return task, nil
}

// Update applies patch to the task with the given id on behalf of actor.
// A status change records an audit entry in the same transaction. The read
// cache is invalidated after the transaction commits; if that fails the
// write stands and the error matches domain.ErrStorage.
func (s *TaskService) Update(
	ctx context.Context,
	id uuid.UUID,
	patch domain.TaskPatch,
	actor string,
) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(slog.String("task_id", id.String()))
	ctx = logger.WithLogger(ctx, log)

	if actor == "" {
		return nil, NewServiceError("update", "missing actor", domain.ErrEmptyActor)
	}
	if patch.IsEmpty() {
		return s.Get(ctx, id)
	}

	var updated *domain.Task
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		var err error
		updated, err = s.applyPatch(ctx, tx, id, patch, actor)
		return err
	})
	if err != nil {
		if !store.IsNotFoundError(err) {
			log.Error("failed to update task", slog.String("error", err.Error()))
		}
		return nil, NewServiceError("update", "failed to update task", err)
	}

	log.Info("task updated", slog.Bool("status", updated.Status), slog.String("changed_by", actor))

	if err := s.invalidate(ctx); err != nil {
		return nil, NewServiceError("update", "failed to invalidate read cache", err)
	}
	return updated, nil
}

// applyPatch locks the task row, applies patch and records the status
// transition, all inside tx.
func (s *TaskService) applyPatch(
	ctx context.Context,
	tx *sql.Tx,
	id uuid.UUID,
	patch domain.TaskPatch,
	actor string,
) (*domain.Task, error) {
	tasks := s.tasks.WithTx(tx)

	task, err := tasks.GetByIDForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}

	previous, err := task.Apply(patch, s.clock.Now())
	if err != nil {
		return nil, err
	}

	if err := tasks.Update(ctx, task); err != nil {
		return nil, err
	}

	if previous != task.Status {
		if _, err := s.audit.WithTx(tx).Record(ctx, task.ID, previous, task.Status, actor); err != nil {
			return nil, err
		}
	}
	return task, nil
}

// InTransaction runs fn with a TaskWriter bound to one transaction, so the
// writes fn makes are kept together or not at all. tx lets fn bind other
// stores to the same transaction. The read cache is invalidated once, after
// commit. fn's error is returned unchanged.
func (s *TaskService) InTransaction(
	ctx context.Context,
	fn func(ctx context.Context, tx *sql.Tx, tasks TaskWriter) error,
) error {
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		return fn(ctx, tx, &txWriter{service: s, tx: tx})
	})
	if err != nil {
		return err
	}
	if err := s.invalidate(ctx); err != nil {
		return NewServiceError("batch", "failed to invalidate read cache", err)
	}
	return nil
}

// txWriter is the TaskWriter handed out by InTransaction. It leaves cache
// invalidation to InTransaction.
type txWriter struct {
	service *TaskService
	tx      *sql.Tx
}

func (w *txWriter) Create(ctx context.Context, params CreateTaskParams) (*domain.Task, error) {
	return w.service.create(ctx, w.service.tasks.WithTx(w.tx), params)
}

func (w *txWriter) SoftDelete(ctx context.Context, id uuid.UUID, actor string) (bool, error) {
	if actor == "" {
		return false, NewServiceError("update", "missing actor", domain.ErrEmptyActor)
	}
	inactive := false
	if _, err := w.service.applyPatch(ctx, w.tx, id, domain.TaskPatch{Status: &inactive}, actor); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, NewServiceError("update", "failed to update task", err)
	}
	return true, nil
}

// SoftDelete marks the task inactive. It reports false when no task has the
// given id. The row is never removed.
func (s *TaskService) SoftDelete(ctx context.Context, id uuid.UUID, actor string) (bool, error) {
	inactive := false
	_, err := s.Update(ctx, id, domain.TaskPatch{Status: &inactive}, actor)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Get returns the task with the given id.
func (s *TaskService) Get(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, NewServiceError("get", "failed to load task", err)
	}
	return task, nil
}

// History returns the status transitions of the task, oldest first.
func (s *TaskService) History(ctx context.Context, id uuid.UUID) ([]*domain.AuditEntry, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	entries, err := s.audit.History(ctx, id)
	if err != nil {
		return nil, NewServiceError("history", "failed to load audit entries", err)
	}
	return entries, nil
}

func (s *TaskService) invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	if err := s.cache.InvalidateAll(ctx); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to invalidate read cache",
			slog.String("error", err.Error()))
		return err
	}
	return nil
}
