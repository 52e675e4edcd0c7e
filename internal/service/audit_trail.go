package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/tasklog/internal/clock"
	"github.com/phrazzld/tasklog/internal/domain"
	"github.com/phrazzld/tasklog/internal/platform/logger"
	"github.com/phrazzld/tasklog/internal/store"
)

// ErrNoTransition is returned when an audit entry would record a status
// that did not change.
var ErrNoTransition = fmt.Errorf("%w: status did not change", domain.ErrValidation)

// AuditTrail is the append-only log of task status transitions.
type AuditTrail struct {
	audit  store.AuditStore
	clock  clock.Clock
	logger *slog.Logger
}

// NewAuditTrail creates an AuditTrail. A nil clock uses the system clock.
func NewAuditTrail(audit store.AuditStore, clk clock.Clock, logger *slog.Logger) *AuditTrail {
	if audit == nil {
		panic("audit store cannot be nil")
	}
	if clk == nil {
		clk = clock.System()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditTrail{
		audit:  audit,
		clock:  clk,
		logger: logger.With(slog.String("component", "audit_trail")),
	}
}

// WithTx returns an AuditTrail whose writes run inside tx.
func (a *AuditTrail) WithTx(tx *sql.Tx) *AuditTrail {
	return &AuditTrail{
		audit:  a.audit.WithTx(tx),
		clock:  a.clock,
		logger: a.logger,
	}
}

// Record appends one transition for taskID. The entry's changed_at is never
// earlier than the newest entry already recorded for the task.
func (a *AuditTrail) Record(
	ctx context.Context,
	taskID uuid.UUID,
	previous, next bool,
	actor string,
) (*domain.AuditEntry, error) {
	log := logger.FromContextOrDefault(ctx, a.logger)

	if previous == next {
		return nil, ErrNoTransition
	}

	last, err := a.audit.LastChangedAt(ctx, taskID)
	if err != nil {
		return nil, store.Classify(err)
	}

	entry, err := domain.NewAuditEntry(taskID, previous, next, actor, a.clock.Now(), last)
	if err != nil {
		return nil, err
	}

	if err := a.audit.Append(ctx, entry); err != nil {
		log.Error("failed to append audit entry",
			slog.String("error", err.Error()),
			slog.String("task_id", taskID.String()))
		return nil, store.Classify(err)
	}

	log.Debug("recorded status transition",
		slog.String("task_id", taskID.String()),
		slog.Bool("previous_status", previous),
		slog.Bool("new_status", next),
		slog.String("changed_by", actor))
	return entry, nil
}

// History returns every transition of taskID, oldest first.
func (a *AuditTrail) History(ctx context.Context, taskID uuid.UUID) ([]*domain.AuditEntry, error) {
	entries, err := a.audit.History(ctx, taskID)
	if err != nil {
		return nil, store.Classify(err)
	}
	return entries, nil
}
