package snapshot

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/phrazzld/tasklog/internal/domain"
	"github.com/phrazzld/tasklog/internal/mocks"
	"github.com/phrazzld/tasklog/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	jan1 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	jan2 = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordingInvalidator struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (r *recordingInvalidator) InvalidateAll(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return r.err
}

type engineFixture struct {
	engine    *Engine
	sql       sqlmock.Sqlmock
	tasks     *mocks.MockTaskStore
	snapshots *mocks.MockSnapshotStore
	cache     *recordingInvalidator
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	tasks := mocks.NewMockTaskStore()
	snapshots := mocks.NewMockSnapshotStore(tasks)
	inv := &recordingInvalidator{}

	engine, err := NewEngine(db, tasks, snapshots, inv, discardLogger())
	require.NoError(t, err)

	return &engineFixture{engine: engine, sql: mock, tasks: tasks, snapshots: snapshots, cache: inv}
}

func (f *engineFixture) addTask(t *testing.T, name string, priority domain.Priority, active bool) *domain.Task {
	t.Helper()
	task, err := domain.NewTask(name, "", priority, nil, jan1.Add(-time.Hour))
	require.NoError(t, err)
	task.Status = active
	f.tasks.Put(task)
	return task
}

func TestEngine_MaterializeIsIdempotent(t *testing.T) {
	f := newEngineFixture(t)
	f.addTask(t, "a", domain.PriorityLow, true)
	f.addTask(t, "b", domain.PriorityHigh, true)
	f.addTask(t, "c", domain.PriorityMedium, false)

	f.sql.ExpectBegin()
	f.sql.ExpectCommit()
	f.sql.ExpectBegin()
	f.sql.ExpectCommit()

	first, err := f.engine.Materialize(context.Background(), jan1)
	require.NoError(t, err)
	assert.Equal(t, 2, first.CreatedCount)
	assert.False(t, first.Skipped)

	second, err := f.engine.Materialize(context.Background(), jan1.Add(13*time.Hour))
	require.NoError(t, err)
	assert.True(t, second.Skipped)
	assert.Zero(t, second.CreatedCount)

	assert.Equal(t, 2, f.snapshots.CountFor(jan1))
	assert.Equal(t, 1, f.cache.calls, "only a non-empty commit invalidates")
	assert.NoError(t, f.sql.ExpectationsWereMet())
}

func TestEngine_InactiveTasksAreExcluded(t *testing.T) {
	f := newEngineFixture(t)
	a := f.addTask(t, "A", domain.PriorityHigh, true)

	f.sql.ExpectBegin()
	f.sql.ExpectCommit()
	_, err := f.engine.Materialize(context.Background(), jan1)
	require.NoError(t, err)

	snaps := f.snapshots.ForDay(jan1)
	require.Len(t, snaps, 1)
	assert.Equal(t, a.ID, snaps[0].TaskID)
	assert.True(t, snaps[0].Status)
	assert.Equal(t, domain.PriorityHigh, snaps[0].Priority)
	assert.Equal(t, jan1, snaps[0].SnapshotDate)

	a.Status = false
	f.tasks.Put(a)

	f.sql.ExpectBegin()
	f.sql.ExpectCommit()
	result, err := f.engine.Materialize(context.Background(), jan2)
	require.NoError(t, err)
	assert.Zero(t, result.CreatedCount)
	assert.Empty(t, f.snapshots.ForDay(jan2))
	assert.NoError(t, f.sql.ExpectationsWereMet())
}

func TestEngine_Failures(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(f *engineFixture)
		expected error
	}{
		{
			name: "storage failure while reading tasks",
			setup: func(f *engineFixture) {
				f.tasks.ListActiveFn = func(context.Context) ([]*domain.Task, error) {
					return nil, store.NewStoreError("task", "list_active", "failed", store.ErrStorage)
				}
			},
			expected: domain.ErrStorage,
		},
		{
			name: "unclassified failure while writing",
			setup: func(f *engineFixture) {
				f.snapshots.CreateBatchFn = func(context.Context, []*domain.DailySnapshot) error {
					return errors.New("connection reset by peer")
				}
			},
			expected: domain.ErrStorage,
		},
		{
			name: "day lock unavailable",
			setup: func(f *engineFixture) {
				f.snapshots.LockDayFn = func(context.Context, time.Time) error {
					return store.NewStoreError("snapshot", "lock_day", "failed", store.ErrStorage)
				}
			},
			expected: domain.ErrStorage,
		},
		{
			name: "concurrent run won the race",
			setup: func(f *engineFixture) {
				f.snapshots.CreateBatchFn = func(context.Context, []*domain.DailySnapshot) error {
					return store.ErrSnapshotExists
				}
			},
			expected: domain.ErrConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newEngineFixture(t)
			f.addTask(t, "a", domain.PriorityLow, true)
			tt.setup(f)

			f.sql.ExpectBegin()
			f.sql.ExpectRollback()

			_, err := f.engine.Materialize(context.Background(), jan1)
			assert.ErrorIs(t, err, tt.expected)
			assert.Zero(t, f.snapshots.CountFor(jan1))
			assert.Zero(t, f.cache.calls)
			assert.NoError(t, f.sql.ExpectationsWereMet())
		})
	}
}

func TestEngine_LocksDayBeforeCheckingExistence(t *testing.T) {
	f := newEngineFixture(t)
	f.addTask(t, "a", domain.PriorityLow, true)

	var steps []string
	f.snapshots.LockDayFn = func(_ context.Context, day time.Time) error {
		assert.Equal(t, jan1, day)
		steps = append(steps, "lock")
		return nil
	}
	f.snapshots.ExistsForDateFn = func(context.Context, time.Time) (bool, error) {
		steps = append(steps, "exists")
		return false, nil
	}

	f.sql.ExpectBegin()
	f.sql.ExpectCommit()
	_, err := f.engine.Materialize(context.Background(), jan1.Add(6*time.Hour))
	require.NoError(t, err)

	assert.Equal(t, []string{"lock", "exists"}, steps)
	assert.NoError(t, f.sql.ExpectationsWereMet())
}

func TestEngine_BeginFailure(t *testing.T) {
	f := newEngineFixture(t)
	f.sql.ExpectBegin().WillReturnError(errors.New("too many connections"))

	_, err := f.engine.Materialize(context.Background(), jan1)
	assert.ErrorIs(t, err, domain.ErrStorage)
}

func TestEngine_InvalidationFailureIsNotReturned(t *testing.T) {
	f := newEngineFixture(t)
	f.addTask(t, "a", domain.PriorityLow, true)
	f.cache.err = errors.New("redis down")

	f.sql.ExpectBegin()
	f.sql.ExpectCommit()

	result, err := f.engine.Materialize(context.Background(), jan1)
	require.NoError(t, err)
	assert.Equal(t, 1, result.CreatedCount)
	assert.Equal(t, 1, f.cache.calls)
}

func TestEngine_ZeroDay(t *testing.T) {
	f := newEngineFixture(t)

	_, err := f.engine.Materialize(context.Background(), time.Time{})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestNewEngineValidation(t *testing.T) {
	tasks := mocks.NewMockTaskStore()

	_, err := NewEngine(nil, tasks, mocks.NewMockSnapshotStore(tasks), nil, nil)
	assert.Error(t, err)
}
