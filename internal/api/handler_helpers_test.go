package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/tasklog/internal/api/shared"
	"github.com/phrazzld/tasklog/internal/domain"
	"github.com/phrazzld/tasklog/internal/importer"
	"github.com/phrazzld/tasklog/internal/service"
	"github.com/phrazzld/tasklog/internal/snapshot"
	"github.com/stretchr/testify/require"
)

type mockTaskService struct {
	CreateFn     func(ctx context.Context, params service.CreateTaskParams) (*domain.Task, error)
	UpdateFn     func(ctx context.Context, id uuid.UUID, patch domain.TaskPatch, actor string) (*domain.Task, error)
	SoftDeleteFn func(ctx context.Context, id uuid.UUID, actor string) (bool, error)
	GetFn        func(ctx context.Context, id uuid.UUID) (*domain.Task, error)
	HistoryFn    func(ctx context.Context, id uuid.UUID) ([]*domain.AuditEntry, error)
}

func (m *mockTaskService) Create(ctx context.Context, params service.CreateTaskParams) (*domain.Task, error) {
	return m.CreateFn(ctx, params)
}

func (m *mockTaskService) Update(ctx context.Context, id uuid.UUID, patch domain.TaskPatch, actor string) (*domain.Task, error) {
	return m.UpdateFn(ctx, id, patch, actor)
}

func (m *mockTaskService) SoftDelete(ctx context.Context, id uuid.UUID, actor string) (bool, error) {
	return m.SoftDeleteFn(ctx, id, actor)
}

func (m *mockTaskService) Get(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	return m.GetFn(ctx, id)
}

func (m *mockTaskService) History(ctx context.Context, id uuid.UUID) ([]*domain.AuditEntry, error) {
	return m.HistoryFn(ctx, id)
}

type mockSnapshotQuery struct {
	ListFn    func(ctx context.Context, filterDate *time.Time, page, perPage int) (*domain.Page, error)
	GetByIDFn func(ctx context.Context, id uuid.UUID) (*domain.SnapshotItem, error)
}

func (m *mockSnapshotQuery) List(ctx context.Context, filterDate *time.Time, page, perPage int) (*domain.Page, error) {
	return m.ListFn(ctx, filterDate, page, perPage)
}

func (m *mockSnapshotQuery) GetByID(ctx context.Context, id uuid.UUID) (*domain.SnapshotItem, error) {
	return m.GetByIDFn(ctx, id)
}

type mockRunner struct {
	TriggerFn      func(ctx context.Context, day time.Time) snapshot.RunReport
	TriggerAsyncFn func(day time.Time) error
}

func (m *mockRunner) Trigger(ctx context.Context, day time.Time) snapshot.RunReport {
	return m.TriggerFn(ctx, day)
}

func (m *mockRunner) TriggerAsync(day time.Time) error {
	return m.TriggerAsyncFn(day)
}

type mockImporter struct {
	ImportFn func(ctx context.Context, records []importer.Record) (importer.Summary, error)
}

func (m *mockImporter) Import(ctx context.Context, records []importer.Record) (importer.Summary, error) {
	return m.ImportFn(ctx, records)
}

// serve routes one request through a chi router that registers handler at
// pattern. A non-empty actor is placed in the request context as the auth
// middleware would.
func serve(
	t *testing.T,
	method, pattern string,
	handler http.HandlerFunc,
	target string,
	body io.Reader,
	actor string,
) *httptest.ResponseRecorder {
	t.Helper()

	r := chi.NewRouter()
	r.Method(method, pattern, handler)

	req := httptest.NewRequest(method, target, body)
	if actor != "" {
		req = req.WithContext(shared.WithActor(req.Context(), actor))
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(b)
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp shared.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error
}

func sampleTask() *domain.Task {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	return &domain.Task{
		ID:          uuid.New(),
		Name:        "Write report",
		Description: "quarterly",
		Status:      true,
		Priority:    domain.PriorityHigh,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
