package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/tasklog/internal/api/shared"
	"github.com/phrazzld/tasklog/internal/domain"
)

// ErrInvalidID is returned for a path parameter that is not a UUID.
var ErrInvalidID = fmt.Errorf("%w: id must be a UUID", domain.ErrValidation)

// ErrInvalidQuery is returned for a malformed query parameter.
var ErrInvalidQuery = fmt.Errorf("%w: invalid query parameter", domain.ErrValidation)

// getPathUUID extracts and parses a UUID path parameter.
func getPathUUID(r *http.Request, paramName string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, paramName))
	if err != nil {
		return uuid.Nil, ErrInvalidID
	}
	return id, nil
}

// requireActor returns the authenticated actor or writes a 401 response.
func requireActor(w http.ResponseWriter, r *http.Request) (string, bool) {
	actor := shared.GetActor(r.Context())
	if actor == "" {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Actor not found in request")
		return "", false
	}
	return actor, true
}

// queryInt parses an optional integer query parameter.
func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", ErrInvalidQuery, name)
	}
	return n, nil
}

// queryDay parses an optional YYYY-MM-DD query parameter.
func queryDay(r *http.Request, name string) (*time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	day, err := domain.ParseDay(raw)
	if err != nil {
		return nil, err
	}
	return &day, nil
}
