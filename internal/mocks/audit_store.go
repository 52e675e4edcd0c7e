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

// MockAuditStore implements store.AuditStore in memory.
type MockAuditStore struct {
	AppendFn        func(ctx context.Context, entry *domain.AuditEntry) error
	LastChangedAtFn func(ctx context.Context, taskID uuid.UUID) (time.Time, error)
	HistoryFn       func(ctx context.Context, taskID uuid.UUID) ([]*domain.AuditEntry, error)

	mu      sync.Mutex
	Entries []*domain.AuditEntry
}

// NewMockAuditStore creates an empty MockAuditStore.
func NewMockAuditStore() *MockAuditStore {
	return &MockAuditStore{}
}

var _ store.AuditStore = (*MockAuditStore)(nil)

// Append implements store.AuditStore.
func (m *MockAuditStore) Append(ctx context.Context, entry *domain.AuditEntry) error {
	if m.AppendFn != nil {
		return m.AppendFn(ctx, entry)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *entry
	m.Entries = append(m.Entries, &cp)
	return nil
}

// LastChangedAt implements store.AuditStore.
func (m *MockAuditStore) LastChangedAt(ctx context.Context, taskID uuid.UUID) (time.Time, error) {
	if m.LastChangedAtFn != nil {
		return m.LastChangedAtFn(ctx, taskID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var last time.Time
	for _, e := range m.Entries {
		if e.TaskID == taskID && e.ChangedAt.After(last) {
			last = e.ChangedAt
		}
	}
	return last, nil
}

// History implements store.AuditStore.
func (m *MockAuditStore) History(ctx context.Context, taskID uuid.UUID) ([]*domain.AuditEntry, error) {
	if m.HistoryFn != nil {
		return m.HistoryFn(ctx, taskID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.AuditEntry, 0)
	for _, e := range m.Entries {
		if e.TaskID == taskID {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ChangedAt.Before(out[j].ChangedAt)
	})
	return out, nil
}

// WithTx implements store.AuditStore.
func (m *MockAuditStore) WithTx(*sql.Tx) store.AuditStore {
	return m
}

// CountFor returns the number of entries recorded for taskID.
func (m *MockAuditStore) CountFor(taskID uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.Entries {
		if e.TaskID == taskID {
			n++
		}
	}
	return n
}
