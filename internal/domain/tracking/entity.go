package tracking

import (
	"time"
)

type SessionType string

const (
	SessionTypeWork SessionType = "work"
)

type RecordKind string

const (
	RecordKindLocation RecordKind = "location"
	RecordKindSession  RecordKind = "session"
)

// LocationSample is a single device fix. Optional measurements are nil when
// the device did not report them. Samples are never mutated after creation.
type LocationSample struct {
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
	Accuracy     *float64  `json:"accuracy,omitempty"`
	Altitude     *float64  `json:"altitude,omitempty"`
	Heading      *float64  `json:"heading,omitempty"`
	Speed        *float64  `json:"speed,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
	SessionID    string    `json:"session_id"`
	IsBackground bool      `json:"is_background"`
}

type TrackingSession struct {
	ID            string           `json:"id"`
	EmployeeID    string           `json:"employee_id"`
	Type          SessionType      `json:"type"`
	StartTime     time.Time        `json:"start_time"`
	EndTime       *time.Time       `json:"end_time,omitempty"`
	StartLocation *LocationSample  `json:"start_location,omitempty"`
	Locations     []LocationSample `json:"locations"`
	IsActive      bool             `json:"is_active"`
}

// Clone returns a copy that shares no mutable state with s.
func (s TrackingSession) Clone() TrackingSession {
	out := s
	if s.EndTime != nil {
		end := *s.EndTime
		out.EndTime = &end
	}
	if s.StartLocation != nil {
		start := *s.StartLocation
		out.StartLocation = &start
	}
	out.Locations = make([]LocationSample, len(s.Locations))
	copy(out.Locations, s.Locations)
	return out
}

// OfflineRecord is a pending send. Exactly one of Sample or Session is set,
// matching Kind.
type OfflineRecord struct {
	ID         string           `json:"id"`
	Kind       RecordKind       `json:"kind"`
	Sample     *LocationSample  `json:"sample,omitempty"`
	Session    *TrackingSession `json:"session,omitempty"`
	StoredAt   time.Time        `json:"stored_at"`
	RetryCount int              `json:"retry_count"`
}

// TrackerConfig is fixed for the lifetime of a tracker.
type TrackerConfig struct {
	UpdateInterval           time.Duration
	DistanceFilter           float64
	BackgroundDistanceFilter float64
	ForegroundHighAccuracy   bool
	BackgroundHighAccuracy   bool
	MaxOfflineRecords        int
	// MaxRetryAttempts of 0 keeps failed records until they are delivered.
	MaxRetryAttempts      int
	LocationTimeout       time.Duration
	MaximumAge            time.Duration
	LocationRetryDelay    time.Duration
	RequeueFailedSessions bool
}

func DefaultTrackerConfig() TrackerConfig {
	return TrackerConfig{
		UpdateInterval:           30 * time.Second,
		DistanceFilter:           10,
		BackgroundDistanceFilter: 100,
		ForegroundHighAccuracy:   true,
		BackgroundHighAccuracy:   false,
		MaxOfflineRecords:        1000,
		MaxRetryAttempts:         5,
		LocationTimeout:          15 * time.Second,
		MaximumAge:               30 * time.Second,
		LocationRetryDelay:       5 * time.Second,
	}
}
