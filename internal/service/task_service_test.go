package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/phrazzld/tasklog/internal/clock"
	"github.com/phrazzld/tasklog/internal/domain"
	"github.com/phrazzld/tasklog/internal/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// orderedInvalidator records how many audit entries existed for a task each
// time the cache was invalidated.
type orderedInvalidator struct {
	mu      sync.Mutex
	audit   *mocks.MockAuditStore
	watch   uuid.UUID
	calls   int
	seen    []int
	failErr error
}

func (o *orderedInvalidator) InvalidateAll(context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls++
	o.seen = append(o.seen, o.audit.CountFor(o.watch))
	return o.failErr
}

type serviceFixture struct {
	svc   *TaskService
	sql   sqlmock.Sqlmock
	tasks *mocks.MockTaskStore
	audit *mocks.MockAuditStore
	cache *orderedInvalidator
	clock *clock.Manual
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	tasks := mocks.NewMockTaskStore()
	audit := mocks.NewMockAuditStore()
	clk := clock.NewManual(start)
	inv := &orderedInvalidator{audit: audit}

	svc, err := NewTaskService(db, tasks, NewAuditTrail(audit, clk, discardLogger()), inv, clk, discardLogger())
	require.NoError(t, err)

	return &serviceFixture{svc: svc, sql: mock, tasks: tasks, audit: audit, cache: inv, clock: clk}
}

func (f *serviceFixture) createTask(t *testing.T) *domain.Task {
	t.Helper()
	task, err := f.svc.Create(context.Background(), CreateTaskParams{
		Name:     "write report",
		Priority: "high",
	})
	require.NoError(t, err)
	f.cache.watch = task.ID
	return task
}

func (f *serviceFixture) expectCommit() {
	f.sql.ExpectBegin()
	f.sql.ExpectCommit()
}

func boolPtr(b bool) *bool { return &b }

func strPtr(s string) *string { return &s }

func TestTaskService_Create(t *testing.T) {
	f := newServiceFixture(t)

	task := f.createTask(t)

	assert.True(t, task.Status)
	assert.Equal(t, domain.PriorityHigh, task.Priority)
	assert.Equal(t, start, task.CreatedAt)
	assert.Equal(t, start, task.UpdatedAt)
	assert.Equal(t, 1, f.tasks.Count())
	assert.Equal(t, 1, f.cache.calls)
}

func TestTaskService_CreateWithExplicitTimestamp(t *testing.T) {
	f := newServiceFixture(t)
	imported := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)

	task, err := f.svc.Create(context.Background(), CreateTaskParams{
		Name:      "legacy",
		Priority:  "LOW",
		CreatedAt: &imported,
	})
	require.NoError(t, err)
	assert.Equal(t, imported, task.CreatedAt)
}

func TestTaskService_CreateRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name   string
		params CreateTaskParams
	}{
		{"unknown priority", CreateTaskParams{Name: "a", Priority: "URGENT"}},
		{"empty priority", CreateTaskParams{Name: "a"}},
		{"blank name", CreateTaskParams{Name: "  ", Priority: "LOW"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newServiceFixture(t)

			task, err := f.svc.Create(context.Background(), tt.params)

			assert.Nil(t, task)
			assert.ErrorIs(t, err, domain.ErrValidation)
			assert.Zero(t, f.tasks.Count(), "nothing should be persisted")
			assert.Zero(t, f.cache.calls)
		})
	}
}

func TestTaskService_AuditCountMatchesTransitions(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	task := f.createTask(t)

	patches := []domain.TaskPatch{
		{Status: boolPtr(false)},
		{Status: boolPtr(false)},
		{Name: strPtr("renamed")},
		{Status: boolPtr(true)},
		{Status: boolPtr(true), Description: strPtr("again")},
	}
	for range patches {
		f.expectCommit()
	}

	for _, patch := range patches {
		f.clock.Advance(time.Minute)
		_, err := f.svc.Update(ctx, task.ID, patch, "alice")
		require.NoError(t, err)
	}

	assert.Equal(t, 2, f.audit.CountFor(task.ID))
	assert.Equal(t, 1+len(patches), f.cache.calls)

	history, err := f.svc.History(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.True(t, history[0].PreviousStatus)
	assert.False(t, history[0].NewStatus)
	assert.False(t, history[1].PreviousStatus)
	assert.True(t, history[1].NewStatus)
	assert.Equal(t, "alice", history[0].ChangedBy)
	assert.False(t, history[1].ChangedAt.Before(history[0].ChangedAt))

	stored, err := f.svc.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", stored.Name)
	assert.Equal(t, "again", stored.Description)
	assert.Equal(t, start.Add(5*time.Minute), stored.UpdatedAt)

	assert.NoError(t, f.sql.ExpectationsWereMet())
}

func TestTaskService_AuditWrittenBeforeInvalidation(t *testing.T) {
	f := newServiceFixture(t)
	task := f.createTask(t)
	f.expectCommit()

	_, err := f.svc.Update(context.Background(), task.ID, domain.TaskPatch{Status: boolPtr(false)}, "alice")
	require.NoError(t, err)

	require.Len(t, f.cache.seen, 2)
	assert.Equal(t, 1, f.cache.seen[1], "audit entry must exist when the cache is invalidated")
}

func TestTaskService_ChangedAtNeverDecreases(t *testing.T) {
	f := newServiceFixture(t)
	task := f.createTask(t)

	later := start.Add(time.Hour)
	f.audit.Entries = append(f.audit.Entries, &domain.AuditEntry{
		ID:             uuid.New(),
		TaskID:         task.ID,
		PreviousStatus: false,
		NewStatus:      true,
		ChangedBy:      "other-node",
		ChangedAt:      later,
	})

	f.expectCommit()
	_, err := f.svc.Update(context.Background(), task.ID, domain.TaskPatch{Status: boolPtr(false)}, "alice")
	require.NoError(t, err)

	history, err := f.svc.History(context.Background(), task.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, later, history[1].ChangedAt)
}

func TestTaskService_UpdateFailures(t *testing.T) {
	t.Run("unknown task", func(t *testing.T) {
		f := newServiceFixture(t)
		f.sql.ExpectBegin()
		f.sql.ExpectRollback()

		_, err := f.svc.Update(context.Background(), uuid.New(), domain.TaskPatch{Status: boolPtr(false)}, "alice")

		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.Zero(t, f.cache.calls)
		assert.NoError(t, f.sql.ExpectationsWereMet())
	})

	t.Run("invalid priority leaves the task unchanged", func(t *testing.T) {
		f := newServiceFixture(t)
		task := f.createTask(t)
		f.sql.ExpectBegin()
		f.sql.ExpectRollback()

		bad := domain.Priority("SOMEDAY")
		_, err := f.svc.Update(context.Background(), task.ID, domain.TaskPatch{Priority: &bad}, "alice")

		assert.ErrorIs(t, err, domain.ErrValidation)
		stored, getErr := f.tasks.GetByID(context.Background(), task.ID)
		require.NoError(t, getErr)
		assert.Equal(t, domain.PriorityHigh, stored.Priority)
		assert.Equal(t, 0, f.tasks.UpdateCalls)
		assert.NoError(t, f.sql.ExpectationsWereMet())
	})

	t.Run("audit failure rolls back", func(t *testing.T) {
		f := newServiceFixture(t)
		task := f.createTask(t)
		f.audit.AppendFn = func(context.Context, *domain.AuditEntry) error {
			return errors.New("connection reset")
		}
		f.sql.ExpectBegin()
		f.sql.ExpectRollback()

		_, err := f.svc.Update(context.Background(), task.ID, domain.TaskPatch{Status: boolPtr(false)}, "alice")

		assert.ErrorIs(t, err, domain.ErrStorage)
		assert.Equal(t, 1, f.cache.calls, "only the create invalidated")
		assert.NoError(t, f.sql.ExpectationsWereMet())
	})

	t.Run("commit failure", func(t *testing.T) {
		f := newServiceFixture(t)
		task := f.createTask(t)
		f.sql.ExpectBegin()
		f.sql.ExpectCommit().WillReturnError(errors.New("server closed the connection"))

		_, err := f.svc.Update(context.Background(), task.ID, domain.TaskPatch{Name: strPtr("x")}, "alice")

		assert.ErrorIs(t, err, domain.ErrStorage)
		assert.Equal(t, 1, f.cache.calls)
	})

	t.Run("missing actor", func(t *testing.T) {
		f := newServiceFixture(t)
		task := f.createTask(t)

		_, err := f.svc.Update(context.Background(), task.ID, domain.TaskPatch{Status: boolPtr(false)}, "")

		assert.ErrorIs(t, err, domain.ErrValidation)
	})
}

func TestTaskService_InvalidationFailureIsStorageError(t *testing.T) {
	f := newServiceFixture(t)
	task := f.createTask(t)
	f.cache.failErr = errors.New("redis: connection refused")
	f.expectCommit()

	_, err := f.svc.Update(context.Background(), task.ID, domain.TaskPatch{Status: boolPtr(false)}, "alice")

	assert.ErrorIs(t, err, domain.ErrStorage)
	stored, getErr := f.tasks.GetByID(context.Background(), task.ID)
	require.NoError(t, getErr)
	assert.False(t, stored.Status, "the write is durable")
	assert.Equal(t, 1, f.audit.CountFor(task.ID))
}

func TestTaskService_EmptyPatchWritesNothing(t *testing.T) {
	f := newServiceFixture(t)
	task := f.createTask(t)

	got, err := f.svc.Update(context.Background(), task.ID, domain.TaskPatch{}, "alice")

	require.NoError(t, err)
	assert.Equal(t, task.ID, got.ID)
	assert.Equal(t, 0, f.tasks.UpdateCalls)
	assert.Equal(t, 1, f.cache.calls)
	assert.NoError(t, f.sql.ExpectationsWereMet())
}

func TestTaskService_SoftDelete(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	task := f.createTask(t)

	f.expectCommit()
	ok, err := f.svc.SoftDelete(ctx, task.ID, "alice")
	require.NoError(t, err)
	assert.True(t, ok)

	stored, err := f.svc.Get(ctx, task.ID)
	require.NoError(t, err, "soft deleted tasks are kept")
	assert.False(t, stored.Status)
	assert.Equal(t, 1, f.audit.CountFor(task.ID))

	f.sql.ExpectBegin()
	f.sql.ExpectRollback()
	ok, err = f.svc.SoftDelete(ctx, uuid.New(), "alice")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, f.sql.ExpectationsWereMet())
}

func TestTaskService_ReadsUnknownTask(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.svc.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.svc.History(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestNewTaskService_RequiresDependencies(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	audit := NewAuditTrail(mocks.NewMockAuditStore(), nil, nil)

	_, err = NewTaskService(nil, mocks.NewMockTaskStore(), audit, nil, nil, nil)
	assert.Error(t, err)
	_, err = NewTaskService(db, nil, audit, nil, nil, nil)
	assert.Error(t, err)
	_, err = NewTaskService(db, mocks.NewMockTaskStore(), nil, nil, nil, nil)
	assert.Error(t, err)

	svc, err := NewTaskService(db, mocks.NewMockTaskStore(), audit, nil, nil, nil)
	require.NoError(t, err)
	assert.NotNil(t, svc)
}

func TestTaskService_InTransactionCommitsOnceAndInvalidatesOnce(t *testing.T) {
	f := newServiceFixture(t)
	f.expectCommit()

	err := f.svc.InTransaction(context.Background(), func(ctx context.Context, _ *sql.Tx, tasks TaskWriter) error {
		first, err := tasks.Create(ctx, CreateTaskParams{Name: "a", Priority: "LOW"})
		if err != nil {
			return err
		}
		f.cache.watch = first.ID
		if _, err := tasks.Create(ctx, CreateTaskParams{Name: "b", Priority: "HIGH"}); err != nil {
			return err
		}
		deleted, err := tasks.SoftDelete(ctx, first.ID, "import")
		if err != nil {
			return err
		}
		assert.True(t, deleted)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, 2, f.tasks.Count())
	assert.Equal(t, 1, f.audit.CountFor(f.cache.watch))
	assert.Equal(t, 1, f.cache.calls)
	assert.NoError(t, f.sql.ExpectationsWereMet())
}

func TestTaskService_InTransactionRollsBackWithoutInvalidating(t *testing.T) {
	f := newServiceFixture(t)
	f.sql.ExpectBegin()
	f.sql.ExpectRollback()

	failure := errors.New("record 3 failed")
	err := f.svc.InTransaction(context.Background(), func(ctx context.Context, _ *sql.Tx, tasks TaskWriter) error {
		if _, err := tasks.Create(ctx, CreateTaskParams{Name: "a", Priority: "URGENT"}); err == nil {
			t.Error("expected invalid priority to be rejected")
		}
		missing, err := tasks.SoftDelete(ctx, uuid.New(), "import")
		require.NoError(t, err)
		assert.False(t, missing)
		return failure
	})

	assert.ErrorIs(t, err, failure)
	assert.Zero(t, f.cache.calls)
	assert.NoError(t, f.sql.ExpectationsWereMet())
}
