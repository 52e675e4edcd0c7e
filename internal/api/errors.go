package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/tasklog/internal/api/shared"
	"github.com/phrazzld/tasklog/internal/domain"
	"github.com/phrazzld/tasklog/internal/importer"
	"github.com/phrazzld/tasklog/internal/service/auth"
)

// MapErrorToStatusCode maps the domain error taxonomy onto HTTP status codes.
func MapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrMissingActor):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrStorage):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a client-facing message for err. It never
// includes the wrapped error text, which may carry internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	var recErr *importer.RecordError
	if errors.As(err, &recErr) {
		return fmt.Sprintf("Record %d: %s", recErr.Index+1, GetSafeErrorMessage(recErr.Err))
	}

	switch {
	case errors.Is(err, domain.ErrInvalidPriority):
		return "Priority must be one of LOW, MEDIUM, HIGH, CRITICAL"
	case errors.Is(err, domain.ErrEmptyTaskName):
		return "Task name is required"
	case errors.Is(err, domain.ErrInvalidDate):
		return "Date must use the YYYY-MM-DD format"
	case errors.Is(err, domain.ErrEmptyOwnerName):
		return "Owner username is required"
	case errors.Is(err, importer.ErrMissingColumns):
		return "Missing columns: " + strings.Join(importer.RequiredColumns, ", ") + " are required"
	case errors.Is(err, domain.ErrValidation):
		return "Invalid request"
	case errors.Is(err, domain.ErrNotFound):
		return "Resource not found"
	case errors.Is(err, domain.ErrConflict):
		return "Resource already exists"
	case errors.Is(err, domain.ErrStorage):
		return "Service temporarily unavailable"
	case errors.Is(err, auth.ErrExpiredToken):
		return "Token expired"
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrMissingActor):
		return "Invalid token"
	default:
		return "An unexpected error occurred"
	}
}

// HandleAPIError writes the error response for err. A non-empty message
// replaces the default client message for 4xx responses.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, message string) {
	status := MapErrorToStatusCode(err)
	userMessage := GetSafeErrorMessage(err)
	if message != "" && status < http.StatusInternalServerError {
		userMessage = message
	}
	shared.RespondWithErrorAndLog(w, r, status, userMessage, err)
}

// SanitizeValidationError turns a validator error into a short message that
// names the failing field.
func SanitizeValidationError(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Validation error"
	}

	fe := verrs[0]
	return fmt.Sprintf("Invalid %s: %s", fe.Field(), getValidationTagMessage(fe.Tag()))
}

// getValidationTagMessage maps validation tags to user-friendly error messages.
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min":
		return "too short"
	case "max":
		return "too long"
	case "oneof":
		return "invalid value"
	case "uuid":
		return "must be a UUID"
	case "datetime":
		return "must use the YYYY-MM-DD format"
	default:
		return "validation failed"
	}
}
