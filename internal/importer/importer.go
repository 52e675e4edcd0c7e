package importer

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/tasklog/internal/clock"
	"github.com/phrazzld/tasklog/internal/domain"
	"github.com/phrazzld/tasklog/internal/platform/logger"
	"github.com/phrazzld/tasklog/internal/service"
	"github.com/phrazzld/tasklog/internal/store"
	"golang.org/x/crypto/bcrypt"
)

// Actor is recorded as the author of status changes made by an import.
const Actor = "import"

// TaskBatcher is the part of service.TaskService an import needs: task
// writes grouped in one transaction.
type TaskBatcher interface {
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx *sql.Tx, tasks service.TaskWriter) error) error
}

// Summary counts what an import did.
type Summary struct {
	Created           int `json:"tasks_created"`
	Deactivated       int `json:"tasks_deactivated"`
	OwnersProvisioned int `json:"owners_provisioned"`
}

// RecordError reports the record an import stopped at. Index is zero-based.
type RecordError struct {
	Index int
	Err   error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("import record %d: %v", e.Index, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// Option configures an Importer.
type Option func(*Importer)

// WithBcryptCost sets the cost used to hash placeholder passwords.
func WithBcryptCost(cost int) Option {
	return func(i *Importer) {
		i.bcryptCost = cost
	}
}

// Importer creates tasks from parsed records.
type Importer struct {
	tasks      TaskBatcher
	owners     store.OwnerStore
	clock      clock.Clock
	bcryptCost int
	logger     *slog.Logger
}

// New creates an Importer. A nil clock uses the system clock.
func New(tasks TaskBatcher, owners store.OwnerStore, clk clock.Clock, logger *slog.Logger, opts ...Option) (*Importer, error) {
	if tasks == nil {
		return nil, errors.New("task batcher cannot be nil")
	}
	if owners == nil {
		return nil, errors.New("owner store cannot be nil")
	}
	if clk == nil {
		clk = clock.System()
	}
	if logger == nil {
		logger = slog.Default()
	}

	i := &Importer{
		tasks:      tasks,
		owners:     owners,
		clock:      clk,
		bcryptCost: bcrypt.DefaultCost,
		logger:     logger.With(slog.String("component", "importer")),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// Import creates one task per record, in order, in a single transaction.
// Records with an inactive status are created and then soft deleted so the
// transition is audited. Every record is validated before anything is
// written. On failure nothing is kept and the error is a *RecordError
// naming the first failing record.
func (i *Importer) Import(ctx context.Context, records []Record) (Summary, error) {
	log := logger.FromContextOrDefault(ctx, i.logger)

	if err := i.validate(records); err != nil {
		return Summary{}, err
	}

	var summary Summary
	err := i.tasks.InTransaction(ctx, func(ctx context.Context, tx *sql.Tx, tasks service.TaskWriter) error {
		summary = Summary{}
		owners := i.owners.WithTx(tx)
		seen := make(map[string]uuid.UUID)

		for idx, rec := range records {
			ownerID, provisioned, err := i.resolveOwner(ctx, owners, seen, rec.AssignedOwnerName)
			if err != nil {
				return &RecordError{Index: idx, Err: err}
			}
			if provisioned {
				summary.OwnersProvisioned++
			}

			task, err := tasks.Create(ctx, service.CreateTaskParams{
				Name:            rec.Name,
				Description:     rec.Description,
				Priority:        rec.Priority,
				AssignedOwnerID: ownerID,
				CreatedAt:       i.createdAt(rec),
			})
			if err != nil {
				return &RecordError{Index: idx, Err: err}
			}
			summary.Created++

			if !rec.Status {
				if _, err := tasks.SoftDelete(ctx, task.ID, Actor); err != nil {
					return &RecordError{Index: idx, Err: err}
				}
				summary.Deactivated++
			}
		}
		return nil
	})
	if err != nil {
		log.Warn("import rolled back", slog.String("error", err.Error()))
		return Summary{}, err
	}

	log.Info("import finished",
		slog.Int("tasks_created", summary.Created),
		slog.Int("tasks_deactivated", summary.Deactivated),
		slog.Int("owners_provisioned", summary.OwnersProvisioned))
	return summary, nil
}

// validate rejects the batch at the first record that could never be stored.
func (i *Importer) validate(records []Record) error {
	for idx, rec := range records {
		priority, err := domain.ParsePriority(rec.Priority)
		if err != nil {
			return &RecordError{Index: idx, Err: err}
		}
		if _, err := domain.NewTask(rec.Name, rec.Description, priority, nil, *i.createdAt(rec)); err != nil {
			return &RecordError{Index: idx, Err: err}
		}
	}
	return nil
}

func (i *Importer) createdAt(rec Record) *time.Time {
	if rec.CreatedAt != nil {
		return rec.CreatedAt
	}
	now := i.clock.Now()
	return &now
}

// resolveOwner returns the id of the named owner, creating a placeholder
// owner when none exists. An empty name means the task is unassigned.
func (i *Importer) resolveOwner(
	ctx context.Context,
	owners store.OwnerStore,
	seen map[string]uuid.UUID,
	name string,
) (*uuid.UUID, bool, error) {
	if name == "" {
		return nil, false, nil
	}
	if id, ok := seen[name]; ok {
		return &id, false, nil
	}

	owner, err := owners.GetByUsername(ctx, name)
	switch {
	case err == nil:
		seen[name] = owner.ID
		return &owner.ID, false, nil
	case !errors.Is(err, domain.ErrNotFound):
		return nil, false, store.Classify(err)
	}

	// A concurrent import provisioning the same name surfaces as
	// domain.ErrConflict; the unique violation has aborted the transaction,
	// so the whole import fails and can be retried.
	owner, err = i.provisionOwner(ctx, owners, name)
	if err != nil {
		return nil, false, err
	}

	seen[name] = owner.ID
	return &owner.ID, true, nil
}

func (i *Importer) provisionOwner(ctx context.Context, owners store.OwnerStore, name string) (*domain.Owner, error) {
	secret := make([]byte, 16)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("failed to generate placeholder password: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(hex.EncodeToString(secret)), i.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash placeholder password: %w", err)
	}

	owner, err := domain.NewOwner(name, name+"@example.com", string(hash), i.clock.Now())
	if err != nil {
		return nil, err
	}
	if err := owners.Create(ctx, owner); err != nil {
		return nil, store.Classify(err)
	}

	logger.FromContextOrDefault(ctx, i.logger).Info("provisioned placeholder owner",
		slog.String("owner_id", owner.ID.String()),
		slog.String("username", owner.Username))
	return owner, nil
}
