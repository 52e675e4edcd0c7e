package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/tasklog/internal/domain"
	"github.com/phrazzld/tasklog/internal/platform/logger"
)

// DefaultTTL bounds how long a cached page may be served without invalidation.
const DefaultTTL = time.Hour

const (
	generationKey   = "tasks:generation"
	versionedPrefix = "tasks:v"
)

// Request outcomes reported to an Observer.
const (
	ResultHit   = "hit"
	ResultMiss  = "miss"
	ResultError = "error"
)

// Observer receives cache events, typically to export metrics.
type Observer interface {
	CacheRequest(result string)
	CacheInvalidated()
}

type noopObserver struct{}

func (noopObserver) CacheRequest(string) {}
func (noopObserver) CacheInvalidated()   {}

// ReadCache caches snapshot pages and items. Keys embed a generation number;
// InvalidateAll bumps it so that nothing written under an older generation is
// read again, including fills that raced the invalidation.
//
// Backend failures on read are reported as misses so callers fall back to the
// database. Failures on write are logged and dropped.
type ReadCache struct {
	store    Store
	ttl      time.Duration
	logger   *slog.Logger
	observer Observer
}

// Option configures a ReadCache.
type Option func(*ReadCache)

// WithObserver registers o for cache events.
func WithObserver(o Observer) Option {
	return func(c *ReadCache) {
		if o != nil {
			c.observer = o
		}
	}
}

// WithLogger sets the cache logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *ReadCache) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewReadCache creates a ReadCache over store. A non-positive ttl uses DefaultTTL.
func NewReadCache(store Store, ttl time.Duration, opts ...Option) *ReadCache {
	if store == nil {
		panic("cache store cannot be nil")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	c := &ReadCache{
		store:    store,
		ttl:      ttl,
		logger:   slog.Default(),
		observer: noopObserver{},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(slog.String("component", "read_cache"))
	return c
}

// Generation returns the current key generation.
func (c *ReadCache) Generation(ctx context.Context) (int64, error) {
	return c.store.GetInt(ctx, generationKey)
}

// PageKey returns the key for one snapshot page under the current generation.
func (c *ReadCache) PageKey(ctx context.Context, filterDate *time.Time, page, perPage int) (string, error) {
	gen, err := c.Generation(ctx)
	if err != nil {
		return "", err
	}
	return PageKey(gen, filterDate, page, perPage), nil
}

// ItemKey returns the key for one snapshot item under the current generation.
func (c *ReadCache) ItemKey(ctx context.Context, id uuid.UUID) (string, error) {
	gen, err := c.Generation(ctx)
	if err != nil {
		return "", err
	}
	return ItemKey(gen, id), nil
}

// PageKey formats tasks:v<gen>:date:<YYYY-MM-DD|all>:page:<p>:per_page:<n>.
func PageKey(generation int64, filterDate *time.Time, page, perPage int) string {
	date := "all"
	if filterDate != nil {
		date = domain.FormatDay(*filterDate)
	}
	return versionedPrefix + strconv.FormatInt(generation, 10) +
		":date:" + date +
		":page:" + strconv.Itoa(page) +
		":per_page:" + strconv.Itoa(perPage)
}

// ItemKey formats tasks:v<gen>:id:<uuid>.
func ItemKey(generation int64, id uuid.UUID) string {
	return versionedPrefix + strconv.FormatInt(generation, 10) + ":id:" + id.String()
}

// GetPage returns the page cached at key.
func (c *ReadCache) GetPage(ctx context.Context, key string) (*domain.Page, bool) {
	var page domain.Page
	if !c.get(ctx, key, &page) {
		return nil, false
	}
	if page.Items == nil {
		page.Items = []domain.SnapshotItem{}
	}
	return &page, true
}

// GetItem returns the snapshot item cached at key.
func (c *ReadCache) GetItem(ctx context.Context, key string) (*domain.SnapshotItem, bool) {
	var item domain.SnapshotItem
	if !c.get(ctx, key, &item) {
		return nil, false
	}
	return &item, true
}

func (c *ReadCache) get(ctx context.Context, key string, dest any) bool {
	log := logger.FromContextOrDefault(ctx, c.logger)

	data, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.observer.CacheRequest(ResultError)
		log.Warn("cache read failed, falling back to store",
			slog.String("key", key),
			slog.String("error", err.Error()))
		return false
	}
	if !ok {
		c.observer.CacheRequest(ResultMiss)
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		c.observer.CacheRequest(ResultError)
		log.Warn("discarding undecodable cache entry",
			slog.String("key", key),
			slog.String("error", err.Error()))
		return false
	}

	c.observer.CacheRequest(ResultHit)
	return true
}

// Put stores value at key for the cache TTL.
func (c *ReadCache) Put(ctx context.Context, key string, value any) {
	log := logger.FromContextOrDefault(ctx, c.logger)

	data, err := json.Marshal(value)
	if err != nil {
		log.Error("failed to encode cache entry",
			slog.String("key", key),
			slog.String("error", err.Error()))
		return
	}
	if err := c.store.Set(ctx, key, data, c.ttl); err != nil {
		log.Warn("failed to write cache entry",
			slog.String("key", key),
			slog.String("error", err.Error()))
	}
}

// InvalidateAll makes every cached page and item unreachable. The generation
// bump is what guarantees freshness; stale entries are then deleted as a
// cleanup and a failed delete is only logged.
func (c *ReadCache) InvalidateAll(ctx context.Context) error {
	log := logger.FromContextOrDefault(ctx, c.logger)

	gen, err := c.store.Incr(ctx, generationKey)
	if err != nil {
		log.Error("failed to bump cache generation", slog.String("error", err.Error()))
		return err
	}
	c.observer.CacheInvalidated()

	deleted, err := c.store.DeletePattern(ctx, versionedPrefix+"*")
	if err != nil {
		log.Warn("failed to delete stale cache entries",
			slog.Int64("generation", gen),
			slog.String("error", err.Error()))
		return nil
	}

	log.Debug("cache invalidated",
		slog.Int64("generation", gen),
		slog.Int("deleted", deleted))
	return nil
}

// Ping checks the backend.
func (c *ReadCache) Ping(ctx context.Context) error {
	return c.store.Ping(ctx)
}
