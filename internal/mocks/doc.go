// Package mocks provides in-memory implementations of the store interfaces
// for unit tests.
//
// Every mock keeps its data in maps guarded by a mutex and enforces the same
// uniqueness and not-found rules as the Postgres stores. Each method can be
// overridden through a function field:
//
//	tasks := mocks.NewMockTaskStore()
//	tasks.ListActiveFn = func(ctx context.Context) ([]*domain.Task, error) {
//	    return nil, store.ErrStorage
//	}
//
// WithTx returns the mock itself, so tests that drive store.RunInTransaction
// through go-sqlmock observe every write made inside the transaction.
package mocks
