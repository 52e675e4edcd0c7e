package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/phrazzld/tasklog/internal/domain"
)

// ErrUnavailable wraps every backend failure. It classifies as a storage error.
var ErrUnavailable = fmt.Errorf("%w: cache unavailable", domain.ErrStorage)

// Store is a minimal key-value backend. Keys passed in are relative; a
// backend may namespace them with its own prefix.
type Store interface {
	// Get returns the value at key and whether it was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value at key for ttl. A non-positive ttl means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Incr atomically increments the integer at key and returns the new value.
	// A missing key counts as zero.
	Incr(ctx context.Context, key string) (int64, error)

	// GetInt returns the integer at key, or zero when absent.
	GetInt(ctx context.Context, key string) (int64, error)

	// DeletePattern removes every key matching the glob pattern and returns
	// how many were removed.
	DeletePattern(ctx context.Context, pattern string) (int, error)

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases the backend's resources.
	Close() error
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrUnavailable, op, err)
}
