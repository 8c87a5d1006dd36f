package tracking

import "errors"

// Tracking domain errors
var (
	// Fatal to StartTracking, surfaced to the caller
	ErrPermissionDenied     = errors.New("location permission denied")
	ErrSessionAlreadyActive = errors.New("a tracking session is already active")
	ErrNoActiveSession      = errors.New("no active tracking session")

	// Recoverable, handled inside background paths
	ErrLocationTimeout     = errors.New("location request timed out")
	ErrLocationUnavailable = errors.New("location unavailable")
	ErrNetworkSend         = errors.New("failed to send to remote endpoint")
	ErrStorage             = errors.New("storage failure")
)
