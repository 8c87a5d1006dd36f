package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/attendance-tracker-go/internal/domain/tracking"
	"github.com/cmlabs-hris/attendance-tracker-go/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	switch {
	case errors.Is(err, tracking.ErrPermissionDenied):
		PermissionRequired(w, "Location permission is required to start tracking")
	case errors.Is(err, tracking.ErrSessionAlreadyActive):
		Conflict(w, "A tracking session is already active")
	case errors.Is(err, tracking.ErrNoActiveSession):
		NotFound(w, "No active tracking session")
	case errors.Is(err, tracking.ErrLocationTimeout), errors.Is(err, tracking.ErrLocationUnavailable):
		ServiceUnavailable(w, "Location is currently unavailable")
	case errors.Is(err, tracking.ErrNetworkSend):
		ServiceUnavailable(w, "Remote endpoint unreachable")

	// Default
	default:
		slog.Error("Unhandled error", "error", err)
		InternalServerError(w, "An unexpected error occurred")
	}
}
