package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DateLayout is the wire format of calendar days.
const DateLayout = "2006-01-02"

// Day truncates t to midnight UTC of its UTC calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDay parses a YYYY-MM-DD string into a UTC day.
func ParseDay(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t, nil
}

// FormatDay renders a day as YYYY-MM-DD.
func FormatDay(t time.Time) string {
	return Day(t).Format(DateLayout)
}

// DailySnapshot is the immutable record of a task being active on a day.
// The pair (TaskID, SnapshotDate) is unique.
type DailySnapshot struct {
	ID           uuid.UUID `json:"id"`
	TaskID       uuid.UUID `json:"task_id"`
	SnapshotDate time.Time `json:"snapshot_date"`
	Status       bool      `json:"status"`
	Priority     Priority  `json:"priority"`
}

// NewDailySnapshot copies the state of task into a snapshot for day.
func NewDailySnapshot(task *Task, day time.Time) (*DailySnapshot, error) {
	if day.IsZero() {
		return nil, ErrZeroSnapshotDay
	}
	if err := task.Validate(); err != nil {
		return nil, err
	}

	return &DailySnapshot{
		ID:           newID(),
		TaskID:       task.ID,
		SnapshotDate: Day(day),
		Status:       task.Status,
		Priority:     task.Priority,
	}, nil
}

// SnapshotResult is the outcome of materializing one day.
type SnapshotResult struct {
	Day          time.Time `json:"day"`
	CreatedCount int       `json:"created_count"`
	Skipped      bool      `json:"skipped"`
}

// SnapshotItem is a snapshot joined with the current task and owner data,
// the shape served to readers.
type SnapshotItem struct {
	ID              uuid.UUID  `json:"id"`
	TaskID          uuid.UUID  `json:"task_id"`
	SnapshotDate    string     `json:"snapshot_date"`
	Status          bool       `json:"status"`
	Priority        Priority   `json:"priority"`
	TaskName        string     `json:"task_name"`
	Description     string     `json:"description"`
	AssignedOwnerID *uuid.UUID `json:"assigned_owner_id,omitempty"`
	AssignedOwner   string     `json:"assigned_owner,omitempty"`
	TaskCreatedAt   *time.Time `json:"task_created_at,omitempty"`
	TaskUpdatedAt   *time.Time `json:"task_updated_at,omitempty"`
}

// Page is one page of snapshot items. Pages are 1-indexed.
type Page struct {
	Items       []SnapshotItem `json:"tasks"`
	Total       int            `json:"total"`
	Pages       int            `json:"pages"`
	CurrentPage int            `json:"current_page"`
	PerPage     int            `json:"per_page"`
}

// PageCount returns the number of pages needed for total items.
func PageCount(total, perPage int) int {
	if total <= 0 || perPage <= 0 {
		return 0
	}
	return (total + perPage - 1) / perPage
}
