package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/phrazzld/tasklog/internal/api/shared"
	"github.com/phrazzld/tasklog/internal/clock"
	"github.com/phrazzld/tasklog/internal/domain"
	"github.com/phrazzld/tasklog/internal/snapshot"
)

// SnapshotRunner triggers snapshot runs outside the midnight schedule.
type SnapshotRunner interface {
	Trigger(ctx context.Context, day time.Time) snapshot.RunReport
	TriggerAsync(day time.Time) error
}

// RunSnapshotRequest is the optional body of POST /api/admin/snapshots/run.
type RunSnapshotRequest struct {
	Date string `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

// RunReportResponse is the JSON form of a finished run.
type RunReportResponse struct {
	Date         string `json:"date"`
	Outcome      string `json:"outcome"`
	Attempts     int    `json:"attempts"`
	CreatedCount int    `json:"created_count"`
	Skipped      bool   `json:"skipped"`
}

// AdminHandler exposes operational actions.
type AdminHandler struct {
	runner SnapshotRunner
	clock  clock.Clock
	logger *slog.Logger
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(runner SnapshotRunner, clk clock.Clock, logger *slog.Logger) *AdminHandler {
	if clk == nil {
		clk = clock.System()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AdminHandler{
		runner: runner,
		clock:  clk,
		logger: logger.With(slog.String("component", "admin_handler")),
	}
}

// RunSnapshot handles POST /api/admin/snapshots/run. The run is started in
// the background and 202 is returned; with ?wait=true the request blocks
// until the run finishes and the report is returned.
func (h *AdminHandler) RunSnapshot(w http.ResponseWriter, r *http.Request) {
	var req RunSnapshotRequest
	if err := shared.DecodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	day := h.clock.Today()
	if req.Date != "" {
		parsed, err := domain.ParseDay(req.Date)
		if err != nil {
			HandleAPIError(w, r, err, "")
			return
		}
		day = parsed
	}

	wait := false
	if raw := r.URL.Query().Get("wait"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			shared.RespondWithError(w, r, http.StatusBadRequest, "wait must be a boolean")
			return
		}
		wait = parsed
	}

	log := h.logger.With(slog.String("day", domain.FormatDay(day)), slog.String("actor", shared.GetActor(r.Context())))

	if !wait {
		if err := h.runner.TriggerAsync(day); err != nil {
			if errors.Is(err, snapshot.ErrSchedulerStopped) {
				shared.RespondWithErrorAndLog(w, r, http.StatusServiceUnavailable, "Service shutting down", err)
				return
			}
			HandleAPIError(w, r, err, "")
			return
		}
		log.Info("manual snapshot run accepted")
		shared.RespondWithJSON(w, r, http.StatusAccepted, map[string]string{
			"date":   domain.FormatDay(day),
			"status": "accepted",
		})
		return
	}

	report := h.runner.Trigger(r.Context(), day)
	if !report.Succeeded() {
		HandleAPIError(w, r, report.Err, "")
		return
	}
	log.Info("manual snapshot run finished", slog.String("outcome", report.Outcome))
	shared.RespondWithJSON(w, r, http.StatusOK, RunReportResponse{
		Date:         domain.FormatDay(report.Day),
		Outcome:      report.Outcome,
		Attempts:     report.Attempts,
		CreatedCount: report.Result.CreatedCount,
		Skipped:      report.Result.Skipped,
	})
}
