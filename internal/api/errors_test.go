package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/phrazzld/tasklog/internal/api/shared"
	"github.com/phrazzld/tasklog/internal/domain"
	"github.com/phrazzld/tasklog/internal/importer"
	"github.com/phrazzld/tasklog/internal/service"
	"github.com/phrazzld/tasklog/internal/service/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapErrorToStatusCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"expired token", auth.ErrExpiredToken, http.StatusUnauthorized},
		{"validation", domain.ErrInvalidPriority, http.StatusBadRequest},
		{"wrapped not found", fmt.Errorf("get: %w", domain.ErrNotFound), http.StatusNotFound},
		{"conflict", domain.ErrConflict, http.StatusConflict},
		{"service storage error", service.NewServiceError("update", "commit failed", errors.New("conn reset")), http.StatusServiceUnavailable},
		{"unclassified", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MapErrorToStatusCode(tt.err))
		})
	}
}

func TestGetSafeErrorMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, "An unexpected error occurred"},
		{"priority", fmt.Errorf("create: %w", domain.ErrInvalidPriority), "Priority must be one of LOW, MEDIUM, HIGH, CRITICAL"},
		{"record", &importer.RecordError{Index: 0, Err: domain.ErrEmptyTaskName}, "Record 1: Task name is required"},
		{"storage hides details", fmt.Errorf("dial postgres://u:pw@db: %w", domain.ErrStorage), "Service temporarily unavailable"},
		{"unknown hides details", errors.New("secret internals"), "An unexpected error occurred"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetSafeErrorMessage(tt.err))
		})
	}
}

func TestSanitizeValidationError(t *testing.T) {
	t.Parallel()

	err := shared.ValidateRequest(&CreateTaskRequest{Priority: "LOW"})
	require.Error(t, err)
	assert.Equal(t, "Invalid task_name: required field", SanitizeValidationError(err))

	assert.Equal(t, "Validation error", SanitizeValidationError(errors.New("other")))
}
