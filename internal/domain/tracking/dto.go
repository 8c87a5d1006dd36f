package tracking

import (
	"strings"
	"time"

	"github.com/cmlabs-hris/attendance-tracker-go/internal/pkg/validator"
)

// ========================================
// SESSION DTOs
// ========================================

type StartTrackingRequest struct {
	EmployeeID  string      `json:"employee_id" validate:"required"`
	SessionType SessionType `json:"session_type"`
}

// Validate checks the request and defaults the session type to work
func (r *StartTrackingRequest) Validate() error {
	r.EmployeeID = strings.TrimSpace(r.EmployeeID)
	if r.SessionType == "" {
		r.SessionType = SessionTypeWork
	}
	return validator.Struct(r)
}

type SessionStats struct {
	SessionID           string        `json:"session_id"`
	EmployeeID          string        `json:"employee_id"`
	LocationCount       int           `json:"location_count"`
	TotalDistanceMeters float64       `json:"total_distance_meters"`
	AverageSpeed        float64       `json:"average_speed"`
	StartTime           time.Time     `json:"start_time"`
	Duration            time.Duration `json:"duration"`
	IsActive            bool          `json:"is_active"`
}

// TrackerStatus is what the UI layer reads to render tracking state.
type TrackerStatus struct {
	Active      bool          `json:"active"`
	Watching    bool          `json:"watching"`
	Foreground  bool          `json:"foreground"`
	Session     *SessionStats `json:"session,omitempty"`
	QueueLength int           `json:"queue_length"`
}

type DrainResult struct {
	Attempted int `json:"attempted"`
	Sent      int `json:"sent"`
	Failed    int `json:"failed"`
	Dropped   int `json:"dropped"`
	Remaining int `json:"remaining"`
}

// ========================================
// DEVICE BRIDGE DTOs
// ========================================

type PositionRequest struct {
	Latitude  float64    `json:"latitude" validate:"latitude"`
	Longitude float64    `json:"longitude" validate:"longitude"`
	Accuracy  *float64   `json:"accuracy,omitempty" validate:"omitempty,gte=0"`
	Altitude  *float64   `json:"altitude,omitempty"`
	Heading   *float64   `json:"heading,omitempty" validate:"omitempty,gte=0,lt=360"`
	Speed     *float64   `json:"speed,omitempty" validate:"omitempty,gte=0"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

func (r *PositionRequest) Validate() error {
	return validator.Struct(r)
}

type AppStateRequest struct {
	State string `json:"state" validate:"oneof=active inactive background"`
}

func (r *AppStateRequest) Validate() error {
	return validator.Struct(r)
}

type ConnectivityRequest struct {
	IsConnected bool `json:"is_connected"`
}

type PermissionRequest struct {
	Kind    string `json:"kind" validate:"required,oneof=location"`
	Granted bool   `json:"granted"`
}

func (r *PermissionRequest) Validate() error {
	return validator.Struct(r)
}

// PositionErrorRequest reports a provider failure from the device.
type PositionErrorRequest struct {
	Code    string `json:"code" validate:"oneof=timeout unavailable permission_denied"`
	Message string `json:"message,omitempty"`
}

func (r *PositionErrorRequest) Validate() error {
	return validator.Struct(r)
}

type QueueResponse struct {
	Length  int             `json:"length"`
	Records []OfflineRecord `json:"records"`
}
