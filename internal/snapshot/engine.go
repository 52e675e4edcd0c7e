package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/tasklog/internal/domain"
	"github.com/phrazzld/tasklog/internal/platform/logger"
	"github.com/phrazzld/tasklog/internal/store"
)

// Invalidator drops derived read state after a write.
type Invalidator interface {
	InvalidateAll(ctx context.Context) error
}

// Engine materializes the snapshots of a single day.
type Engine struct {
	db        *sql.DB
	tasks     store.TaskStore
	snapshots store.SnapshotStore
	cache     Invalidator
	logger    *slog.Logger
}

// NewEngine creates an Engine. cache may be nil when no read cache is in use.
func NewEngine(
	db *sql.DB,
	tasks store.TaskStore,
	snapshots store.SnapshotStore,
	cache Invalidator,
	logger *slog.Logger,
) (*Engine, error) {
	if db == nil {
		return nil, errors.New("db cannot be nil")
	}
	if tasks == nil {
		return nil, errors.New("task store cannot be nil")
	}
	if snapshots == nil {
		return nil, errors.New("snapshot store cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		db:        db,
		tasks:     tasks,
		snapshots: snapshots,
		cache:     cache,
		logger:    logger.With(slog.String("component", "snapshot_engine")),
	}, nil
}

// Materialize records every active task for day. If day already has
// snapshots nothing is written and the result is Skipped. The batch commits
// atomically; on any error nothing for day is written.
//
// Errors classify as domain.ErrConflict when a concurrent run won the race,
// and as domain.ErrStorage for infrastructure failures.
func (e *Engine) Materialize(ctx context.Context, day time.Time) (domain.SnapshotResult, error) {
	if day.IsZero() {
		return domain.SnapshotResult{}, domain.ErrZeroSnapshotDay
	}
	day = domain.Day(day)
	result := domain.SnapshotResult{Day: day}

	log := logger.FromContextOrDefault(ctx, e.logger).With(slog.String("day", domain.FormatDay(day)))
	ctx = logger.WithLogger(ctx, log)

	err := store.RunInTransaction(ctx, e.db, func(ctx context.Context, tx *sql.Tx) error {
		snapshots := e.snapshots.WithTx(tx)

		// Concurrent runs for day, in any process, queue here; a later run
		// then sees the committed rows and skips.
		if err := snapshots.LockDay(ctx, day); err != nil {
			return err
		}

		exists, err := snapshots.ExistsForDate(ctx, day)
		if err != nil {
			return err
		}
		if exists {
			result.Skipped = true
			return nil
		}

		active, err := e.tasks.WithTx(tx).ListActive(ctx)
		if err != nil {
			return err
		}

		batch := make([]*domain.DailySnapshot, 0, len(active))
		for _, task := range active {
			snap, err := domain.NewDailySnapshot(task, day)
			if err != nil {
				return fmt.Errorf("task %s: %w", task.ID, err)
			}
			batch = append(batch, snap)
		}

		if err := snapshots.CreateBatch(ctx, batch); err != nil {
			return err
		}
		result.CreatedCount = len(batch)
		return nil
	})
	if err != nil {
		err = store.Classify(err)
		log.Warn("snapshot materialization failed", slog.String("error", err.Error()))
		return domain.SnapshotResult{Day: day}, err
	}

	if result.Skipped {
		log.Info("snapshots already exist, skipping")
		return result, nil
	}

	log.Info("snapshots materialized", slog.Int("created_count", result.CreatedCount))

	if result.CreatedCount > 0 && e.cache != nil {
		if err := e.cache.InvalidateAll(ctx); err != nil {
			log.Error("failed to invalidate read cache after materialization",
				slog.String("error", err.Error()))
		}
	}

	return result, nil
}
