package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/tasklog/internal/api/shared"
	"github.com/phrazzld/tasklog/internal/domain"
	"github.com/phrazzld/tasklog/internal/platform/logger"
	"github.com/phrazzld/tasklog/internal/service"
)

// TaskService is the task use case surface the handlers call.
type TaskService interface {
	Create(ctx context.Context, params service.CreateTaskParams) (*domain.Task, error)
	Update(ctx context.Context, id uuid.UUID, patch domain.TaskPatch, actor string) (*domain.Task, error)
	SoftDelete(ctx context.Context, id uuid.UUID, actor string) (bool, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Task, error)
	History(ctx context.Context, id uuid.UUID) ([]*domain.AuditEntry, error)
}

// CreateTaskRequest is the body of POST /api/tasks.
type CreateTaskRequest struct {
	Name            string  `json:"task_name"         validate:"required,max=255"`
	Description     string  `json:"description"       validate:"max=10000"`
	Status          *bool   `json:"status"`
	Priority        string  `json:"priority"          validate:"required"`
	AssignedOwnerID *string `json:"assigned_owner_id" validate:"omitempty,uuid"`
}

// UpdateTaskRequest is the body of PATCH /api/tasks/{id}. Absent fields are
// left unchanged. ClearOwner unassigns the task.
type UpdateTaskRequest struct {
	Name            *string `json:"task_name"         validate:"omitempty,max=255"`
	Description     *string `json:"description"       validate:"omitempty,max=10000"`
	Status          *bool   `json:"status"`
	Priority        *string `json:"priority"`
	AssignedOwnerID *string `json:"assigned_owner_id" validate:"omitempty,uuid"`
	ClearOwner      bool    `json:"clear_owner"`
}

// TaskResponse is the JSON form of a task.
type TaskResponse struct {
	ID              string    `json:"id"`
	Name            string    `json:"task_name"`
	Description     string    `json:"description"`
	Status          bool      `json:"status"`
	Priority        string    `json:"priority"`
	AssignedOwnerID *string   `json:"assigned_owner_id"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// AuditEntryResponse is the JSON form of one status transition.
type AuditEntryResponse struct {
	ID             string    `json:"id"`
	PreviousStatus bool      `json:"previous_status"`
	NewStatus      bool      `json:"new_status"`
	ChangedBy      string    `json:"changed_by"`
	ChangedAt      time.Time `json:"changed_at"`
}

// TaskHandler handles task HTTP requests.
type TaskHandler struct {
	tasks  TaskService
	logger *slog.Logger
}

// NewTaskHandler creates a TaskHandler.
func NewTaskHandler(tasks TaskService, logger *slog.Logger) *TaskHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskHandler{
		tasks:  tasks,
		logger: logger.With(slog.String("component", "task_handler")),
	}
}

// CreateTask handles POST /api/tasks.
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req CreateTaskRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	params := service.CreateTaskParams{
		Name:        req.Name,
		Description: req.Description,
		Priority:    req.Priority,
	}
	if req.AssignedOwnerID != nil {
		ownerID := uuid.MustParse(*req.AssignedOwnerID)
		params.AssignedOwnerID = &ownerID
	}

	task, err := h.tasks.Create(r.Context(), params)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	if req.Status != nil && !*req.Status {
		if _, err := h.tasks.SoftDelete(r.Context(), task.ID, actor); err != nil {
			HandleAPIError(w, r, err, "")
			return
		}
		task.Status = false
	}

	logger.FromContextOrDefault(r.Context(), h.logger).Debug("task created via api",
		slog.String("task_id", task.ID.String()), slog.String("actor", actor))
	shared.RespondWithJSON(w, r, http.StatusCreated, taskToResponse(task))
}

// GetTask handles GET /api/tasks/{id}.
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	id, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "Invalid task ID")
		return
	}

	task, err := h.tasks.Get(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "Task not found")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(task))
}

// UpdateTask handles PATCH /api/tasks/{id}.
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "Invalid task ID")
		return
	}

	var req UpdateTaskRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	patch := domain.TaskPatch{
		Name:        req.Name,
		Description: req.Description,
		Status:      req.Status,
		ClearOwner:  req.ClearOwner,
	}
	if req.Priority != nil {
		priority, err := domain.ParsePriority(*req.Priority)
		if err != nil {
			HandleAPIError(w, r, err, "")
			return
		}
		patch.Priority = &priority
	}
	if req.AssignedOwnerID != nil {
		ownerID := uuid.MustParse(*req.AssignedOwnerID)
		patch.AssignedOwnerID = &ownerID
	}

	task, err := h.tasks.Update(r.Context(), id, patch, actor)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(task))
}

// DeleteTask handles DELETE /api/tasks/{id}. The task is deactivated, not
// removed.
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "Invalid task ID")
		return
	}

	found, err := h.tasks.SoftDelete(r.Context(), id, actor)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	if !found {
		shared.RespondWithError(w, r, http.StatusNotFound, "Task not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetTaskHistory handles GET /api/tasks/{id}/history.
func (h *TaskHandler) GetTaskHistory(w http.ResponseWriter, r *http.Request) {
	id, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "Invalid task ID")
		return
	}

	entries, err := h.tasks.History(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "Task not found")
		return
	}

	out := make([]AuditEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, AuditEntryResponse{
			ID:             e.ID.String(),
			PreviousStatus: e.PreviousStatus,
			NewStatus:      e.NewStatus,
			ChangedBy:      e.ChangedBy,
			ChangedAt:      e.ChangedAt,
		})
	}
	shared.RespondWithJSON(w, r, http.StatusOK, map[string]any{
		"task_id": id.String(),
		"history": out,
	})
}

func taskToResponse(task *domain.Task) TaskResponse {
	resp := TaskResponse{
		ID:          task.ID.String(),
		Name:        task.Name,
		Description: task.Description,
		Status:      task.Status,
		Priority:    task.Priority.String(),
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
	}
	if task.AssignedOwnerID != nil {
		owner := task.AssignedOwnerID.String()
		resp.AssignedOwnerID = &owner
	}
	return resp
}
