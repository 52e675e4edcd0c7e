package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/phrazzld/tasklog/internal/clock"
	"github.com/phrazzld/tasklog/internal/domain"
	"github.com/phrazzld/tasklog/internal/snapshot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunSnapshot(t *testing.T) {
	t.Parallel()

	clk := clock.NewManual(time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC))
	today := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	explicit := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		target     string
		body       string
		runner     *mockRunner
		wantStatus int
		wantDay    time.Time
	}{
		{
			name:       "async defaults to today",
			target:     "/api/admin/snapshots/run",
			wantStatus: http.StatusAccepted,
			wantDay:    today,
		},
		{
			name:       "async with explicit date",
			target:     "/api/admin/snapshots/run",
			body:       `{"date":"2024-03-01"}`,
			wantStatus: http.StatusAccepted,
			wantDay:    explicit,
		},
		{
			name:       "wait returns the report",
			target:     "/api/admin/snapshots/run?wait=true",
			body:       `{"date":"2024-03-01"}`,
			wantStatus: http.StatusOK,
			wantDay:    explicit,
		},
		{
			name:   "wait on a failed run",
			target: "/api/admin/snapshots/run?wait=true",
			runner: &mockRunner{
				TriggerFn: func(_ context.Context, day time.Time) snapshot.RunReport {
					return snapshot.RunReport{Day: day, Attempts: 3, Outcome: snapshot.OutcomeFailed,
						Err: fmt.Errorf("insert: %w", domain.ErrStorage)}
				},
			},
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name:   "stopped scheduler",
			target: "/api/admin/snapshots/run",
			runner: &mockRunner{
				TriggerAsyncFn: func(time.Time) error { return snapshot.ErrSchedulerStopped },
			},
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name:       "bad date",
			target:     "/api/admin/snapshots/run",
			body:       `{"date":"tomorrow"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "bad wait flag",
			target:     "/api/admin/snapshots/run?wait=maybe",
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotDay time.Time
			runner := tt.runner
			if runner == nil {
				runner = &mockRunner{}
			}
			if runner.TriggerFn == nil {
				runner.TriggerFn = func(_ context.Context, day time.Time) snapshot.RunReport {
					gotDay = day
					return snapshot.RunReport{Day: day, Attempts: 1, Outcome: snapshot.OutcomeCreated,
						Result: domain.SnapshotResult{Day: day, CreatedCount: 4}}
				}
			}
			if runner.TriggerAsyncFn == nil {
				runner.TriggerAsyncFn = func(day time.Time) error {
					gotDay = day
					return nil
				}
			}

			h := NewAdminHandler(runner, clk, nil)
			rec := serve(t, http.MethodPost, "/api/admin/snapshots/run", h.RunSnapshot, tt.target,
				strings.NewReader(tt.body), "admin")

			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if !tt.wantDay.IsZero() {
				assert.Equal(t, tt.wantDay, gotDay)
			}
		})
	}
}

func TestRunSnapshot_WaitReportBody(t *testing.T) {
	t.Parallel()

	runner := &mockRunner{
		TriggerFn: func(_ context.Context, day time.Time) snapshot.RunReport {
			return snapshot.RunReport{Day: day, Attempts: 2, Outcome: snapshot.OutcomeSkipped,
				Result: domain.SnapshotResult{Day: day, Skipped: true}}
		},
	}
	h := NewAdminHandler(runner, clock.NewManual(time.Date(2024, 3, 5, 1, 0, 0, 0, time.UTC)), nil)

	rec := serve(t, http.MethodPost, "/api/admin/snapshots/run", h.RunSnapshot,
		"/api/admin/snapshots/run?wait=1", nil, "admin")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp RunReportResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, RunReportResponse{Date: "2024-03-05", Outcome: "skipped", Attempts: 2, Skipped: true}, resp)
}
