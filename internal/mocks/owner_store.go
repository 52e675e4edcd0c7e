package mocks

import (
	"context"
	"database/sql"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/tasklog/internal/domain"
	"github.com/phrazzld/tasklog/internal/store"
)

// MockOwnerStore implements store.OwnerStore in memory.
type MockOwnerStore struct {
	CreateFn        func(ctx context.Context, owner *domain.Owner) error
	GetByUsernameFn func(ctx context.Context, username string) (*domain.Owner, error)

	mu     sync.Mutex
	Owners map[string]*domain.Owner
}

// NewMockOwnerStore creates an empty MockOwnerStore.
func NewMockOwnerStore() *MockOwnerStore {
	return &MockOwnerStore{Owners: make(map[string]*domain.Owner)}
}

var _ store.OwnerStore = (*MockOwnerStore)(nil)

// Create implements store.OwnerStore.
func (m *MockOwnerStore) Create(ctx context.Context, owner *domain.Owner) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, owner)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Owners[owner.Username]; ok {
		return store.ErrOwnerExists
	}
	cp := *owner
	m.Owners[owner.Username] = &cp
	return nil
}

// GetByID implements store.OwnerStore.
func (m *MockOwnerStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Owner, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.Owners {
		if o.ID == id {
			cp := *o
			return &cp, nil
		}
	}
	return nil, store.ErrOwnerNotFound
}

// GetByUsername implements store.OwnerStore.
func (m *MockOwnerStore) GetByUsername(ctx context.Context, username string) (*domain.Owner, error) {
	if m.GetByUsernameFn != nil {
		return m.GetByUsernameFn(ctx, username)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.Owners[username]
	if !ok {
		return nil, store.ErrOwnerNotFound
	}
	cp := *o
	return &cp, nil
}

// WithTx implements store.OwnerStore.
func (m *MockOwnerStore) WithTx(*sql.Tx) store.OwnerStore {
	return m
}
