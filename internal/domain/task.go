package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Priority is the urgency level of a task.
type Priority string

// Valid priority values.
const (
	PriorityLow      Priority = "LOW"
	PriorityMedium   Priority = "MEDIUM"
	PriorityHigh     Priority = "HIGH"
	PriorityCritical Priority = "CRITICAL"
)

// Priorities lists every valid priority in ascending urgency.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical}

// ParsePriority converts s into a Priority. Matching is case-insensitive and
// ignores surrounding whitespace.
func ParsePriority(s string) (Priority, error) {
	p := Priority(strings.ToUpper(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", ErrInvalidPriority
	}
	return p, nil
}

// Valid reports whether p is one of the four enumerated priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

func (p Priority) String() string {
	return string(p)
}

// Task is a mutable unit of work. It is never hard-deleted; Status=false is
// the deleted state.
type Task struct {
	ID              uuid.UUID  `json:"id"`
	Name            string     `json:"name"`
	Description     string     `json:"description"`
	Status          bool       `json:"status"`
	Priority        Priority   `json:"priority"`
	AssignedOwnerID *uuid.UUID `json:"assigned_owner_id,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// NewTask creates an active task stamped with now.
func NewTask(name, description string, priority Priority, ownerID *uuid.UUID, now time.Time) (*Task, error) {
	now = now.UTC()
	task := &Task{
		ID:              newID(),
		Name:            strings.TrimSpace(name),
		Description:     description,
		Status:          true,
		Priority:        priority,
		AssignedOwnerID: ownerID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks the task invariants.
func (t *Task) Validate() error {
	if t.ID == uuid.Nil {
		return ErrEmptyTaskID
	}
	if t.Name == "" {
		return ErrEmptyTaskName
	}
	if !t.Priority.Valid() {
		return ErrInvalidPriority
	}
	return nil
}

// TaskPatch carries the fields of a partial update. Nil fields are left
// untouched. ClearOwner unassigns the owner and wins over AssignedOwnerID.
type TaskPatch struct {
	Name            *string
	Description     *string
	Status          *bool
	Priority        *Priority
	AssignedOwnerID *uuid.UUID
	ClearOwner      bool
}

// IsEmpty reports whether the patch changes nothing.
func (p TaskPatch) IsEmpty() bool {
	return p.Name == nil && p.Description == nil && p.Status == nil &&
		p.Priority == nil && p.AssignedOwnerID == nil && !p.ClearOwner
}

// Apply validates the patch and applies it to t, refreshing UpdatedAt.
// It returns the status t had before the patch. On error t is unchanged.
func (t *Task) Apply(patch TaskPatch, now time.Time) (previousStatus bool, err error) {
	previousStatus = t.Status

	next := *t
	if patch.Name != nil {
		next.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Description != nil {
		next.Description = *patch.Description
	}
	if patch.Status != nil {
		next.Status = *patch.Status
	}
	if patch.Priority != nil {
		next.Priority = *patch.Priority
	}
	if patch.AssignedOwnerID != nil {
		owner := *patch.AssignedOwnerID
		next.AssignedOwnerID = &owner
	}
	if patch.ClearOwner {
		next.AssignedOwnerID = nil
	}

	if err := next.Validate(); err != nil {
		return previousStatus, err
	}

	next.UpdatedAt = now.UTC()
	*t = next
	return previousStatus, nil
}
