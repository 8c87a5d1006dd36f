package tracking

import (
	"context"
)

// Well-known keys in the durable key-value store
const (
	ActiveSessionKey = "active_tracking_session"
	OfflineQueueKey  = "offline_location_data"
)

// OfflineQueueRepository persists the ordered offline queue as a whole.
type OfflineQueueRepository interface {
	// Load returns the persisted queue, empty when nothing was stored
	Load(ctx context.Context) ([]OfflineRecord, error)

	// Save replaces the persisted queue
	Save(ctx context.Context, records []OfflineRecord) error
}

// ActiveSessionRepository persists the snapshot of the active session.
type ActiveSessionRepository interface {
	// Load returns nil when no snapshot is stored
	Load(ctx context.Context) (*TrackingSession, error)
	Save(ctx context.Context, session TrackingSession) error
	Clear(ctx context.Context) error
}
