package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditEntry is an immutable record of one observed status transition.
type AuditEntry struct {
	ID             uuid.UUID `json:"id"`
	TaskID         uuid.UUID `json:"task_id"`
	PreviousStatus bool      `json:"previous_status"`
	NewStatus      bool      `json:"new_status"`
	ChangedBy      string    `json:"changed_by"`
	ChangedAt      time.Time `json:"changed_at"`
}

// NewAuditEntry records a transition from previous to next made by actor.
// changedAt is clamped to notBefore so that entries for one task never go
// backwards in time.
func NewAuditEntry(
	taskID uuid.UUID,
	previous, next bool,
	actor string,
	changedAt, notBefore time.Time,
) (*AuditEntry, error) {
	if taskID == uuid.Nil {
		return nil, ErrEmptyTaskID
	}
	if actor == "" {
		return nil, ErrEmptyActor
	}

	changedAt = changedAt.UTC()
	if changedAt.Before(notBefore) {
		changedAt = notBefore.UTC()
	}

	return &AuditEntry{
		ID:             newID(),
		TaskID:         taskID,
		PreviousStatus: previous,
		NewStatus:      next,
		ChangedBy:      actor,
		ChangedAt:      changedAt,
	}, nil
}
