package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePriority(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    Priority
		wantErr bool
	}{
		{name: "upper case", input: "HIGH", want: PriorityHigh},
		{name: "lower case", input: "low", want: PriorityLow},
		{name: "surrounding space", input: " critical ", want: PriorityCritical},
		{name: "medium", input: "Medium", want: PriorityMedium},
		{name: "unknown", input: "URGENT", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParsePriority(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrValidation)
				assert.ErrorIs(t, err, ErrInvalidPriority)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewTask(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC)
	owner := uuid.New()

	t.Run("valid task starts active", func(t *testing.T) {
		t.Parallel()
		task, err := NewTask("Write report", "quarterly", PriorityHigh, &owner, now)
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, task.ID)
		assert.True(t, task.Status)
		assert.Equal(t, PriorityHigh, task.Priority)
		assert.Equal(t, now, task.CreatedAt)
		assert.Equal(t, now, task.UpdatedAt)
		assert.Equal(t, owner, *task.AssignedOwnerID)
	})

	t.Run("invalid priority", func(t *testing.T) {
		t.Parallel()
		_, err := NewTask("Write report", "", Priority("URGENT"), nil, now)
		assert.ErrorIs(t, err, ErrInvalidPriority)
	})

	t.Run("blank name", func(t *testing.T) {
		t.Parallel()
		_, err := NewTask("   ", "", PriorityLow, nil, now)
		assert.ErrorIs(t, err, ErrEmptyTaskName)
	})
}

func TestTaskApply(t *testing.T) {
	t.Parallel()

	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	later := created.Add(time.Hour)

	newTask := func(t *testing.T) *Task {
		task, err := NewTask("Task", "desc", PriorityLow, nil, created)
		require.NoError(t, err)
		return task
	}

	t.Run("applies only supplied fields", func(t *testing.T) {
		t.Parallel()
		task := newTask(t)
		name := "Renamed"
		prev, err := task.Apply(TaskPatch{Name: &name}, later)
		require.NoError(t, err)
		assert.True(t, prev)
		assert.Equal(t, "Renamed", task.Name)
		assert.Equal(t, "desc", task.Description)
		assert.Equal(t, PriorityLow, task.Priority)
		assert.Equal(t, later, task.UpdatedAt)
		assert.Equal(t, created, task.CreatedAt)
	})

	t.Run("reports previous status", func(t *testing.T) {
		t.Parallel()
		task := newTask(t)
		inactive := false
		prev, err := task.Apply(TaskPatch{Status: &inactive}, later)
		require.NoError(t, err)
		assert.True(t, prev)
		assert.False(t, task.Status)
	})

	t.Run("invalid priority leaves task untouched", func(t *testing.T) {
		t.Parallel()
		task := newTask(t)
		bad := Priority("NOPE")
		name := "changed"
		_, err := task.Apply(TaskPatch{Name: &name, Priority: &bad}, later)
		assert.ErrorIs(t, err, ErrValidation)
		assert.Equal(t, "Task", task.Name)
		assert.Equal(t, PriorityLow, task.Priority)
		assert.Equal(t, created, task.UpdatedAt)
	})

	t.Run("clear owner wins", func(t *testing.T) {
		t.Parallel()
		task := newTask(t)
		owner := uuid.New()
		_, err := task.Apply(TaskPatch{AssignedOwnerID: &owner, ClearOwner: true}, later)
		require.NoError(t, err)
		assert.Nil(t, task.AssignedOwnerID)
	})
}

func TestTaskPatchIsEmpty(t *testing.T) {
	t.Parallel()

	assert.True(t, TaskPatch{}.IsEmpty())
	status := false
	assert.False(t, TaskPatch{Status: &status}.IsEmpty())
	assert.False(t, TaskPatch{ClearOwner: true}.IsEmpty())
}
