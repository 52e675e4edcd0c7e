package cache

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strconv"
	"sync"
	"time"

	"github.com/phrazzld/tasklog/internal/clock"
)

type memoryEntry struct {
	value   []byte
	expires time.Time
}

// MemoryStore implements Store in process memory. Expired entries are
// dropped lazily on access.
type MemoryStore struct {
	mu      sync.Mutex
	clock   clock.Clock
	entries map[string]memoryEntry
	closed  bool
}

// NewMemoryStore creates an empty MemoryStore. A nil clock uses system time.
func NewMemoryStore(clk clock.Clock) *MemoryStore {
	if clk == nil {
		clk = clock.System()
	}
	return &MemoryStore{
		clock:   clk,
		entries: make(map[string]memoryEntry),
	}
}

var _ Store = (*MemoryStore)(nil)

var errClosed = errors.New("memory store closed")

// lookup returns the live entry at key. Callers hold m.mu.
func (m *MemoryStore) lookup(key string) (memoryEntry, bool) {
	e, ok := m.entries[key]
	if !ok {
		return memoryEntry{}, false
	}
	if !e.expires.IsZero() && !m.clock.Now().Before(e.expires) {
		delete(m.entries, key)
		return memoryEntry{}, false
	}
	return e, true
}

// Get implements Store.Get.
func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, false, unavailable("get", errClosed)
	}
	e, ok := m.lookup(key)
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, true, nil
}

// Set implements Store.Set.
func (m *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return unavailable("set", errClosed)
	}
	e := memoryEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expires = m.clock.Now().Add(ttl)
	}
	m.entries[key] = e
	return nil
}

// Incr implements Store.Incr.
func (m *MemoryStore) Incr(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, unavailable("incr", errClosed)
	}
	var n int64
	if e, ok := m.lookup(key); ok {
		v, err := strconv.ParseInt(string(e.value), 10, 64)
		if err != nil {
			return 0, unavailable("incr", fmt.Errorf("value at %q is not an integer", key))
		}
		n = v
	}
	n++
	m.entries[key] = memoryEntry{value: []byte(strconv.FormatInt(n, 10))}
	return n, nil
}

// GetInt implements Store.GetInt.
func (m *MemoryStore) GetInt(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, unavailable("get counter", errClosed)
	}
	e, ok := m.lookup(key)
	if !ok {
		return 0, nil
	}
	n, err := strconv.ParseInt(string(e.value), 10, 64)
	if err != nil {
		return 0, unavailable("get counter", fmt.Errorf("value at %q is not an integer", key))
	}
	return n, nil
}

// DeletePattern implements Store.DeletePattern with path.Match globbing.
func (m *MemoryStore) DeletePattern(_ context.Context, pattern string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, unavailable("delete", errClosed)
	}
	deleted := 0
	for key := range m.entries {
		ok, err := path.Match(pattern, key)
		if err != nil {
			return deleted, unavailable("delete", err)
		}
		if ok {
			delete(m.entries, key)
			deleted++
		}
	}
	return deleted, nil
}

// Ping implements Store.Ping.
func (m *MemoryStore) Ping(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return unavailable("ping", errClosed)
	}
	return nil
}

// Close implements Store.Close. A closed store fails every operation.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.entries = make(map[string]memoryEntry)
	return nil
}

// Len returns the number of live entries.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for key := range m.entries {
		if _, ok := m.lookup(key); ok {
			n++
		}
	}
	return n
}
