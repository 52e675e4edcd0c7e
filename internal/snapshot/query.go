package snapshot

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/tasklog/internal/cache"
	"github.com/phrazzld/tasklog/internal/domain"
	"github.com/phrazzld/tasklog/internal/platform/logger"
	"github.com/phrazzld/tasklog/internal/store"
	"golang.org/x/sync/singleflight"
)

// Paging limits.
const (
	DefaultPerPage = 10
	MaxPerPage     = 100
)

// NormalizePage clamps perPage to [1, MaxPerPage] and raises page to at least 1.
func NormalizePage(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 1
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	return page, perPage
}

// QueryService serves snapshot reads through the read cache. Concurrent
// misses for the same key share one database read.
type QueryService struct {
	snapshots store.SnapshotStore
	cache     *cache.ReadCache
	group     singleflight.Group
	logger    *slog.Logger
}

// NewQueryService creates a QueryService. A nil cache reads the store directly.
func NewQueryService(snapshots store.SnapshotStore, readCache *cache.ReadCache, logger *slog.Logger) *QueryService {
	if snapshots == nil {
		panic("snapshot store cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &QueryService{
		snapshots: snapshots,
		cache:     readCache,
		logger:    logger.With(slog.String("component", "snapshot_query")),
	}
}

// List returns one page of snapshots. A nil filterDate lists every day,
// newest first. A page past the end has no items but correct totals.
func (q *QueryService) List(ctx context.Context, filterDate *time.Time, page, perPage int) (*domain.Page, error) {
	page, perPage = NormalizePage(page, perPage)
	if filterDate != nil {
		day := domain.Day(*filterDate)
		filterDate = &day
	}

	load := func(ctx context.Context) (*domain.Page, error) {
		return q.loadPage(ctx, filterDate, page, perPage)
	}

	key, ok := q.key(ctx, func(ctx context.Context) (string, error) {
		return q.cache.PageKey(ctx, filterDate, page, perPage)
	})
	if !ok {
		return load(ctx)
	}

	if cached, hit := q.cache.GetPage(ctx, key); hit {
		return cached, nil
	}

	// The shared load outlives the caller that started it.
	shared := context.WithoutCancel(ctx)
	v, err, _ := q.group.Do(key, func() (any, error) {
		result, err := load(shared)
		if err != nil {
			return nil, err
		}
		q.cache.Put(shared, key, result)
		return result, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Page), nil
}

// GetByID returns one snapshot with its task timestamps.
func (q *QueryService) GetByID(ctx context.Context, id uuid.UUID) (*domain.SnapshotItem, error) {
	load := func(ctx context.Context) (*domain.SnapshotItem, error) {
		return q.snapshots.GetItem(ctx, id)
	}

	key, ok := q.key(ctx, func(ctx context.Context) (string, error) {
		return q.cache.ItemKey(ctx, id)
	})
	if !ok {
		return load(ctx)
	}

	if cached, hit := q.cache.GetItem(ctx, key); hit {
		return cached, nil
	}

	shared := context.WithoutCancel(ctx)
	v, err, _ := q.group.Do(key, func() (any, error) {
		item, err := load(shared)
		if err != nil {
			return nil, err
		}
		q.cache.Put(shared, key, item)
		return item, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.SnapshotItem), nil
}

// key resolves a cache key, reporting false when the cache is disabled or
// unreachable.
func (q *QueryService) key(ctx context.Context, build func(context.Context) (string, error)) (string, bool) {
	if q.cache == nil {
		return "", false
	}
	key, err := build(ctx)
	if err != nil {
		logger.FromContextOrDefault(ctx, q.logger).Warn("read cache unavailable, reading from store",
			slog.String("error", err.Error()))
		return "", false
	}
	return key, true
}

// pageOffset returns the row offset of page, saturating at math.MaxInt so a
// huge page number reads as past the end.
func pageOffset(page, perPage int) int {
	if page-1 > math.MaxInt/perPage {
		return math.MaxInt
	}
	return (page - 1) * perPage
}

func (q *QueryService) loadPage(ctx context.Context, filterDate *time.Time, page, perPage int) (*domain.Page, error) {
	offset := pageOffset(page, perPage)
	items, total, err := q.snapshots.List(ctx, filterDate, perPage, offset)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.SnapshotItem{}
	}

	return &domain.Page{
		Items:       items,
		Total:       total,
		Pages:       domain.PageCount(total, perPage),
		CurrentPage: page,
		PerPage:     perPage,
	}, nil
}
