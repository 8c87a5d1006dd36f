package tracking

import (
	"context"
)

// TrackingService owns the active session and the continuous watch.
type TrackingService interface {
	// StartTracking opens a session; only a permission failure is fatal
	StartTracking(ctx context.Context, employeeID string, sessionType SessionType) (TrackingSession, error)

	// StopTracking finalizes the active session, no-op when idle
	StopTracking(ctx context.Context) error

	// PauseTracking and ResumeTracking follow app foreground transitions
	PauseTracking()
	ResumeTracking()

	// CaptureOnce takes a one-shot fix for the active session
	CaptureOnce(ctx context.Context) error

	// Restore re-adopts a session persisted by a previous process
	Restore(ctx context.Context) error

	SessionStats() (SessionStats, error)
	ActiveSession() (TrackingSession, bool)
	Status() TrackerStatus
	Close()
}

// SyncService owns the offline queue and talks to the remote endpoint.
type SyncService interface {
	// Load restores the persisted queue
	Load(ctx context.Context) error

	// ProcessSample sends a sample or queues it on failure
	ProcessSample(ctx context.Context, sample LocationSample)

	// DrainQueue makes one resend pass over the queue
	DrainQueue(ctx context.Context) DrainResult

	// SaveSessionFinal persists a finalized session remotely, best-effort
	SaveSessionFinal(ctx context.Context, session TrackingSession)

	QueueLength() int
	Records() []OfflineRecord
}

// RemoteClient is the remote attendance endpoint.
type RemoteClient interface {
	SendLocation(ctx context.Context, sample LocationSample) error
	SaveSession(ctx context.Context, session TrackingSession) error
}
