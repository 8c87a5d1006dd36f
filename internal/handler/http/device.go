package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cmlabs-hris/attendance-tracker-go/internal/domain/tracking"
	"github.com/cmlabs-hris/attendance-tracker-go/internal/handler/http/response"
	"github.com/cmlabs-hris/attendance-tracker-go/internal/pkg/geolocation"
	"github.com/cmlabs-hris/attendance-tracker-go/internal/pkg/lifecycle"
	"github.com/cmlabs-hris/attendance-tracker-go/internal/pkg/permission"
)

// DeviceHandler receives device facts from the native layer
type DeviceHandler interface {
	Position(w http.ResponseWriter, r *http.Request)
	PositionError(w http.ResponseWriter, r *http.Request)
	AppState(w http.ResponseWriter, r *http.Request)
	Connectivity(w http.ResponseWriter, r *http.Request)
	Permission(w http.ResponseWriter, r *http.Request)
}

type PositionSink interface {
	Push(pos geolocation.Position)
	Fail(err error)
}

type AppStateSink interface {
	Set(state lifecycle.AppState)
}

type ConnectivitySink interface {
	Set(connected bool)
}

type PermissionSink interface {
	Set(kind permission.Kind, granted bool)
}

type deviceHandlerImpl struct {
	positions    PositionSink
	appState     AppStateSink
	connectivity ConnectivitySink
	permissions  PermissionSink
}

// NewDeviceHandler creates a new device bridge handler
func NewDeviceHandler(positions PositionSink, appState AppStateSink, connectivity ConnectivitySink, permissions PermissionSink) DeviceHandler {
	return &deviceHandlerImpl{
		positions:    positions,
		appState:     appState,
		connectivity: connectivity,
		permissions:  permissions,
	}
}

// Position implements DeviceHandler.
func (h *deviceHandlerImpl) Position(w http.ResponseWriter, r *http.Request) {
	var req tracking.PositionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	pos := geolocation.Position{
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Accuracy:  req.Accuracy,
		Altitude:  req.Altitude,
		Heading:   req.Heading,
		Speed:     req.Speed,
	}
	if req.Timestamp != nil {
		pos.Timestamp = req.Timestamp.UTC()
	} else {
		pos.Timestamp = time.Now().UTC()
	}

	h.positions.Push(pos)
	response.Accepted(w, "Position received")
}

// PositionError implements DeviceHandler.
func (h *deviceHandlerImpl) PositionError(w http.ResponseWriter, r *http.Request) {
	var req tracking.PositionErrorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	var cause error
	switch req.Code {
	case "timeout":
		cause = geolocation.ErrTimeout
	case "permission_denied":
		cause = geolocation.ErrPermissionDenied
	default:
		cause = geolocation.ErrUnavailable
	}
	if req.Message != "" {
		cause = fmt.Errorf("%w: %s", cause, req.Message)
	}

	h.positions.Fail(cause)
	response.Accepted(w, "Position error received")
}

// AppState implements DeviceHandler.
func (h *deviceHandlerImpl) AppState(w http.ResponseWriter, r *http.Request) {
	var req tracking.AppStateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	slog.Debug("App state reported", "state", req.State)
	h.appState.Set(lifecycle.AppState(req.State))
	response.Accepted(w, "App state received")
}

// Connectivity implements DeviceHandler.
func (h *deviceHandlerImpl) Connectivity(w http.ResponseWriter, r *http.Request) {
	var req tracking.ConnectivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	slog.Debug("Connectivity reported", "is_connected", req.IsConnected)
	h.connectivity.Set(req.IsConnected)
	response.Accepted(w, "Connectivity received")
}

// Permission implements DeviceHandler.
func (h *deviceHandlerImpl) Permission(w http.ResponseWriter, r *http.Request) {
	var req tracking.PermissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	h.permissions.Set(permission.Kind(req.Kind), req.Granted)
	response.Accepted(w, "Permission received")
}
