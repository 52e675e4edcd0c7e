package api

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/tasklog/internal/domain"
	"github.com/phrazzld/tasklog/internal/snapshot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListSnapshots(t *testing.T) {
	t.Parallel()

	type call struct {
		day           *time.Time
		page, perPage int
	}
	var got call
	query := &mockSnapshotQuery{
		ListFn: func(_ context.Context, day *time.Time, page, perPage int) (*domain.Page, error) {
			got = call{day, page, perPage}
			return &domain.Page{Items: []domain.SnapshotItem{}, Total: 0, Pages: 0, CurrentPage: page, PerPage: perPage}, nil
		},
	}
	h := NewSnapshotHandler(query, nil)

	t.Run("defaults", func(t *testing.T) {
		rec := serve(t, http.MethodGet, "/api/snapshots", h.ListSnapshots, "/api/snapshots", nil, "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Nil(t, got.day)
		assert.Equal(t, 1, got.page)
		assert.Equal(t, snapshot.DefaultPerPage, got.perPage)

		var page domain.Page
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
		assert.Equal(t, 1, page.CurrentPage)
	})

	t.Run("date filter and paging", func(t *testing.T) {
		rec := serve(t, http.MethodGet, "/api/snapshots", h.ListSnapshots, "/api/snapshots?date=2024-03-01&page=3&per_page=25", nil, "")
		require.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, got.day)
		assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), *got.day)
		assert.Equal(t, 3, got.page)
		assert.Equal(t, 25, got.perPage)
	})

	tests := []struct {
		name      string
		target    string
		wantError string
	}{
		{"bad date", "/api/snapshots?date=03/01/2024", "Date must use the YYYY-MM-DD format"},
		{"bad page", "/api/snapshots?page=two", "page must be an integer"},
		{"bad per_page", "/api/snapshots?per_page=lots", "per_page must be an integer"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, http.MethodGet, "/api/snapshots", h.ListSnapshots, tt.target, nil, "")
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.wantError, decodeError(t, rec))
		})
	}
}

func TestGetSnapshot(t *testing.T) {
	t.Parallel()

	known := uuid.New()
	query := &mockSnapshotQuery{
		GetByIDFn: func(_ context.Context, id uuid.UUID) (*domain.SnapshotItem, error) {
			if id != known {
				return nil, domain.ErrNotFound
			}
			return &domain.SnapshotItem{ID: id, SnapshotDate: "2024-03-01", Status: true, Priority: domain.PriorityLow, TaskName: "a"}, nil
		},
	}
	h := NewSnapshotHandler(query, nil)

	rec := serve(t, http.MethodGet, "/api/snapshots/{id}", h.GetSnapshot, "/api/snapshots/"+known.String(), nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var item domain.SnapshotItem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &item))
	assert.Equal(t, known, item.ID)
	assert.Equal(t, "2024-03-01", item.SnapshotDate)

	rec = serve(t, http.MethodGet, "/api/snapshots/{id}", h.GetSnapshot, "/api/snapshots/"+uuid.NewString(), nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Snapshot not found", decodeError(t, rec))

	rec = serve(t, http.MethodGet, "/api/snapshots/{id}", h.GetSnapshot, "/api/snapshots/latest", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
