package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/tasklog/internal/api/shared"
	"github.com/phrazzld/tasklog/internal/domain"
	"github.com/phrazzld/tasklog/internal/snapshot"
)

// SnapshotQuery is the read surface over materialized snapshots.
type SnapshotQuery interface {
	List(ctx context.Context, filterDate *time.Time, page, perPage int) (*domain.Page, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.SnapshotItem, error)
}

// SnapshotHandler serves snapshot reads.
type SnapshotHandler struct {
	query  SnapshotQuery
	logger *slog.Logger
}

// NewSnapshotHandler creates a SnapshotHandler.
func NewSnapshotHandler(query SnapshotQuery, logger *slog.Logger) *SnapshotHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SnapshotHandler{
		query:  query,
		logger: logger.With(slog.String("component", "snapshot_handler")),
	}
}

// ListSnapshots handles GET /api/snapshots?date=&page=&per_page=.
func (h *SnapshotHandler) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	day, err := queryDay(r, "date")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	page, err := queryInt(r, "page", 1)
	if err != nil {
		HandleAPIError(w, r, err, "page must be an integer")
		return
	}
	perPage, err := queryInt(r, "per_page", snapshot.DefaultPerPage)
	if err != nil {
		HandleAPIError(w, r, err, "per_page must be an integer")
		return
	}

	result, err := h.query.List(r.Context(), day, page, perPage)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, result)
}

// GetSnapshot handles GET /api/snapshots/{id}.
func (h *SnapshotHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	id, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "Invalid snapshot ID")
		return
	}

	item, err := h.query.GetByID(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "Snapshot not found")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, item)
}
