package mocks

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/tasklog/internal/domain"
	"github.com/phrazzld/tasklog/internal/store"
)

// MockSnapshotStore implements store.SnapshotStore in memory. When Tasks is
// set, items are joined with the task's name and description.
type MockSnapshotStore struct {
	LockDayFn       func(ctx context.Context, day time.Time) error
	ExistsForDateFn func(ctx context.Context, day time.Time) (bool, error)
	CreateBatchFn   func(ctx context.Context, snapshots []*domain.DailySnapshot) error
	ListFn          func(ctx context.Context, filterDate *time.Time, limit, offset int) ([]domain.SnapshotItem, int, error)
	GetItemFn       func(ctx context.Context, id uuid.UUID) (*domain.SnapshotItem, error)

	Tasks *MockTaskStore

	mu        sync.Mutex
	Snapshots []*domain.DailySnapshot
	ListCalls int
	LockCalls int
}

// NewMockSnapshotStore creates an empty MockSnapshotStore joined to tasks.
func NewMockSnapshotStore(tasks *MockTaskStore) *MockSnapshotStore {
	return &MockSnapshotStore{Tasks: tasks}
}

var _ store.SnapshotStore = (*MockSnapshotStore)(nil)

// LockDay implements store.SnapshotStore.
func (m *MockSnapshotStore) LockDay(ctx context.Context, day time.Time) error {
	m.mu.Lock()
	m.LockCalls++
	m.mu.Unlock()
	if m.LockDayFn != nil {
		return m.LockDayFn(ctx, day)
	}
	return nil
}

// ExistsForDate implements store.SnapshotStore.
func (m *MockSnapshotStore) ExistsForDate(ctx context.Context, day time.Time) (bool, error) {
	if m.ExistsForDateFn != nil {
		return m.ExistsForDateFn(ctx, day)
	}
	return m.CountFor(day) > 0, nil
}

// CreateBatch implements store.SnapshotStore. A (task, day) collision
// rejects the whole batch.
func (m *MockSnapshotStore) CreateBatch(ctx context.Context, snapshots []*domain.DailySnapshot) error {
	if m.CreateBatchFn != nil {
		return m.CreateBatchFn(ctx, snapshots)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	seen := make(map[string]bool, len(m.Snapshots)+len(snapshots))
	for _, s := range m.Snapshots {
		seen[pairKey(s)] = true
	}
	for _, s := range snapshots {
		if seen[pairKey(s)] {
			return store.ErrSnapshotExists
		}
		seen[pairKey(s)] = true
	}
	for _, s := range snapshots {
		cp := *s
		m.Snapshots = append(m.Snapshots, &cp)
	}
	return nil
}

func pairKey(s *domain.DailySnapshot) string {
	return s.TaskID.String() + "|" + domain.FormatDay(s.SnapshotDate)
}

// List implements store.SnapshotStore.
func (m *MockSnapshotStore) List(
	ctx context.Context,
	filterDate *time.Time,
	limit, offset int,
) ([]domain.SnapshotItem, int, error) {
	m.mu.Lock()
	m.ListCalls++
	m.mu.Unlock()

	if m.ListFn != nil {
		return m.ListFn(ctx, filterDate, limit, offset)
	}

	m.mu.Lock()
	matched := make([]*domain.DailySnapshot, 0)
	for _, s := range m.Snapshots {
		if filterDate == nil || s.SnapshotDate.Equal(domain.Day(*filterDate)) {
			matched = append(matched, s)
		}
	}
	m.mu.Unlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].SnapshotDate.Equal(matched[j].SnapshotDate) {
			return matched[i].SnapshotDate.After(matched[j].SnapshotDate)
		}
		return matched[i].ID.String() > matched[j].ID.String()
	})

	items := make([]domain.SnapshotItem, 0)
	if offset < 0 || offset >= len(matched) {
		return items, len(matched), nil
	}
	for i := offset; i < len(matched) && i-offset < limit; i++ {
		items = append(items, m.item(matched[i], false))
	}
	return items, len(matched), nil
}

// GetItem implements store.SnapshotStore.
func (m *MockSnapshotStore) GetItem(ctx context.Context, id uuid.UUID) (*domain.SnapshotItem, error) {
	if m.GetItemFn != nil {
		return m.GetItemFn(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.Snapshots {
		if s.ID == id {
			item := m.item(s, true)
			return &item, nil
		}
	}
	return nil, store.ErrSnapshotNotFound
}

func (m *MockSnapshotStore) item(s *domain.DailySnapshot, withTimestamps bool) domain.SnapshotItem {
	item := domain.SnapshotItem{
		ID:           s.ID,
		TaskID:       s.TaskID,
		SnapshotDate: domain.FormatDay(s.SnapshotDate),
		Status:       s.Status,
		Priority:     s.Priority,
	}
	if m.Tasks == nil {
		return item
	}
	if task, err := m.Tasks.get(s.TaskID); err == nil {
		item.TaskName = task.Name
		item.Description = task.Description
		item.AssignedOwnerID = task.AssignedOwnerID
		if withTimestamps {
			created, updated := task.CreatedAt, task.UpdatedAt
			item.TaskCreatedAt = &created
			item.TaskUpdatedAt = &updated
		}
	}
	return item
}

// WithTx implements store.SnapshotStore.
func (m *MockSnapshotStore) WithTx(*sql.Tx) store.SnapshotStore {
	return m
}

// CountFor returns the number of snapshots stored for day.
func (m *MockSnapshotStore) CountFor(day time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.Snapshots {
		if s.SnapshotDate.Equal(domain.Day(day)) {
			n++
		}
	}
	return n
}

// ForDay returns the snapshots stored for day.
func (m *MockSnapshotStore) ForDay(day time.Time) []*domain.DailySnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.DailySnapshot, 0)
	for _, s := range m.Snapshots {
		if s.SnapshotDate.Equal(domain.Day(day)) {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out
}
