package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cmlabs-hris/attendance-tracker-go/internal/domain/tracking"
	"github.com/cmlabs-hris/attendance-tracker-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/attendance-tracker-go/internal/handler/http/response"
	"github.com/cmlabs-hris/attendance-tracker-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/attendance-tracker-go/internal/pkg/sse"
)

// TrackingHandler serves session and queue status to the UI layer
type TrackingHandler interface {
	// Session
	Start(w http.ResponseWriter, r *http.Request)
	Stop(w http.ResponseWriter, r *http.Request)
	Status(w http.ResponseWriter, r *http.Request)
	Stats(w http.ResponseWriter, r *http.Request)

	// Offline queue
	Queue(w http.ResponseWriter, r *http.Request)
	Drain(w http.ResponseWriter, r *http.Request)

	// SSE
	Events(w http.ResponseWriter, r *http.Request)
}

type trackingHandlerImpl struct {
	trackingService tracking.TrackingService
	syncService     tracking.SyncService
	jwtService      jwt.Service
	hub             *sse.Hub
	keepalive       time.Duration
}

// NewTrackingHandler creates a new tracking handler
func NewTrackingHandler(trackingService tracking.TrackingService, syncService tracking.SyncService, jwtService jwt.Service, hub *sse.Hub) TrackingHandler {
	return &trackingHandlerImpl{
		trackingService: trackingService,
		syncService:     syncService,
		jwtService:      jwtService,
		hub:             hub,
		keepalive:       30 * time.Second,
	}
}

// Start implements TrackingHandler.
func (h *trackingHandlerImpl) Start(w http.ResponseWriter, r *http.Request) {
	var req tracking.StartTrackingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	employeeID := middleware.EmployeeID(r.Context())
	if req.EmployeeID == "" {
		req.EmployeeID = employeeID
	}
	if req.EmployeeID != employeeID {
		response.Forbidden(w, "Token does not belong to this employee")
		return
	}

	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	session, err := h.trackingService.StartTracking(r.Context(), req.EmployeeID, req.SessionType)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Tracking started", session)
}

// Stop implements TrackingHandler.
func (h *trackingHandlerImpl) Stop(w http.ResponseWriter, r *http.Request) {
	session, active := h.trackingService.ActiveSession()
	if active && session.EmployeeID != middleware.EmployeeID(r.Context()) {
		response.Forbidden(w, "Session belongs to another employee")
		return
	}

	if err := h.trackingService.StopTracking(r.Context()); err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Tracking stopped", nil)
}

// Status implements TrackingHandler.
func (h *trackingHandlerImpl) Status(w http.ResponseWriter, r *http.Request) {
	response.Success(w, h.trackingService.Status())
}

// Stats implements TrackingHandler.
func (h *trackingHandlerImpl) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.trackingService.SessionStats()
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, stats)
}

// Queue implements TrackingHandler.
func (h *trackingHandlerImpl) Queue(w http.ResponseWriter, r *http.Request) {
	records := h.syncService.Records()
	response.Success(w, tracking.QueueResponse{
		Length:  len(records),
		Records: records,
	})
}

// Drain implements TrackingHandler.
func (h *trackingHandlerImpl) Drain(w http.ResponseWriter, r *http.Request) {
	result := h.syncService.DrainQueue(r.Context())
	response.Success(w, result)
}

// Events streams tracker events for the employee bound to the token
func (h *trackingHandlerImpl) Events(w http.ResponseWriter, r *http.Request) {
	// Get token from query parameter (SSE doesn't support custom headers)
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		response.Unauthorized(w, "Missing token")
		return
	}

	employeeID, err := h.jwtService.ValidateDeviceToken(tokenStr)
	if err != nil {
		response.Unauthorized(w, "Invalid token")
		return
	}

	// Check if streaming is supported
	flusher, ok := w.(http.Flusher)
	if !ok {
		response.InternalServerError(w, "Streaming not supported")
		return
	}

	status, err := json.Marshal(h.trackingService.Status())
	if err != nil {
		slog.Error("Failed to encode tracker status", "employee_id", employeeID, "error", err)
		response.InternalServerError(w, "Failed to encode tracker status")
		return
	}

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	events, cleanup := h.hub.Subscribe(employeeID)
	defer cleanup()

	// Send initial connection event with the current status
	fmt.Fprintf(w, "event: connected\ndata: %s\n\n", status)
	flusher.Flush()

	keepalive := time.NewTicker(h.keepalive)
	defer keepalive.Stop()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(event)
			if err != nil {
				slog.Warn("Dropping unencodable event", "type", event.Type, "error", err)
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, data)
			flusher.Flush()

		case <-keepalive.C:
			fmt.Fprintf(w, "event: ping\ndata: {\"timestamp\":%d}\n\n", time.Now().Unix())
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}
