package tracking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cmlabs-hris/attendance-tracker-go/internal/domain/tracking"
	"github.com/cmlabs-hris/attendance-tracker-go/internal/pkg/geolocation"
	"github.com/cmlabs-hris/attendance-tracker-go/internal/pkg/lifecycle"
	"github.com/cmlabs-hris/attendance-tracker-go/internal/pkg/permission"
	"github.com/cmlabs-hris/attendance-tracker-go/internal/pkg/sse"
	"github.com/google/uuid"
)

const captureJobName = "background_location_capture"

type TrackingServiceImpl struct {
	cfg         tracking.TrackerConfig
	source      geolocation.Source
	permissions permission.Checker
	syncService tracking.SyncService
	sessions    tracking.ActiveSessionRepository
	scheduler   Scheduler
	appState    lifecycle.Monitor
	hub         *sse.Hub
	clock       Clock

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	session  *tracking.TrackingSession
	starting bool
	paused   bool
	closed   bool

	// watchGen changes whenever a watch is registered or cleared, so
	// callbacks from a cleared registration can be told apart.
	watchGen      uint64
	watchID       geolocation.WatchID
	watching      bool
	watchFG       bool
	retryTimer    Timer
	cancelCapture func()
}

// StartTracking implements tracking.TrackingService.
func (s *TrackingServiceImpl) StartTracking(ctx context.Context, employeeID string, sessionType tracking.SessionType) (tracking.TrackingSession, error) {
	s.mu.Lock()
	if s.session != nil || s.starting {
		s.mu.Unlock()
		return tracking.TrackingSession{}, tracking.ErrSessionAlreadyActive
	}
	s.starting = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.starting = false
		s.mu.Unlock()
	}()

	if err := s.ensurePermission(ctx); err != nil {
		return tracking.TrackingSession{}, err
	}

	if sessionType == "" {
		sessionType = tracking.SessionTypeWork
	}

	session := tracking.TrackingSession{
		ID:         uuid.Must(uuid.NewV7()).String(),
		EmployeeID: employeeID,
		Type:       sessionType,
		StartTime:  s.clock.Now(),
		Locations:  []tracking.LocationSample{},
		IsActive:   true,
	}

	var initial *tracking.LocationSample
	pos, err := s.capture(ctx, true)
	if err != nil {
		slog.Warn("Initial location capture failed, starting without start location",
			"session_id", session.ID,
			"error", err,
		)
	} else {
		sample := toSample(pos, session.ID, !s.appState.State().IsForeground())
		initial = &sample
		session.StartLocation = &sample
		session.Locations = append(session.Locations, sample)
	}

	s.mu.Lock()
	s.session = &session
	s.startWatchLocked()
	s.cancelCapture = s.scheduler.AddDeferredJob(captureJobName, s.cfg.UpdateInterval, s.CaptureOnce)
	s.persistLocked(ctx)
	snapshot := session.Clone()
	s.mu.Unlock()

	slog.Info("Tracking session started",
		"session_id", snapshot.ID,
		"employee_id", employeeID,
		"session_type", sessionType,
		"has_start_location", initial != nil,
	)

	if initial != nil {
		s.syncService.ProcessSample(ctx, *initial)
	}
	s.publish(employeeID, sse.EventSessionStarted, snapshot)

	return snapshot, nil
}

func (s *TrackingServiceImpl) ensurePermission(ctx context.Context) error {
	status, err := s.permissions.Check(ctx, permission.KindLocation)
	if err == nil && status == permission.StatusGranted {
		return nil
	}

	status, err = s.permissions.Request(ctx, permission.KindLocation)
	if err != nil {
		return fmt.Errorf("%w: %v", tracking.ErrPermissionDenied, err)
	}
	if status != permission.StatusGranted {
		return tracking.ErrPermissionDenied
	}
	return nil
}

// StopTracking implements tracking.TrackingService.
func (s *TrackingServiceImpl) StopTracking(ctx context.Context) error {
	s.mu.Lock()
	if s.session == nil {
		s.mu.Unlock()
		return nil
	}

	s.stopWatchLocked()
	if s.cancelCapture != nil {
		s.cancelCapture()
		s.cancelCapture = nil
	}

	end := s.clock.Now()
	final := s.session.Clone()
	final.EndTime = &end
	final.IsActive = false
	s.session = nil
	s.mu.Unlock()

	slog.Info("Tracking session stopped",
		"session_id", final.ID,
		"locations", len(final.Locations),
		"duration", end.Sub(final.StartTime).String(),
	)

	// Finalize even if the caller has gone away
	persistCtx := context.WithoutCancel(ctx)
	s.syncService.SaveSessionFinal(persistCtx, final)

	s.mu.Lock()
	// A session started in the meantime owns the key now
	if s.session == nil {
		if err := s.sessions.Clear(persistCtx); err != nil {
			slog.Error("Failed to clear persisted session", "session_id", final.ID, "error", err)
		}
	}
	s.mu.Unlock()

	s.publish(final.EmployeeID, sse.EventSessionStopped, final)
	return nil
}

// PauseTracking implements tracking.TrackingService.
func (s *TrackingServiceImpl) PauseTracking() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.paused = true
	if s.watching {
		slog.Info("Pausing continuous location watch")
	}
	s.stopWatchLocked()
}

// ResumeTracking implements tracking.TrackingService.
func (s *TrackingServiceImpl) ResumeTracking() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.paused = false
	if s.session == nil || s.closed {
		return
	}
	if s.watching {
		if s.watchFG || !s.appState.State().IsForeground() {
			return
		}
		// Registered while backgrounded; switch to foreground accuracy
		slog.Info("Upgrading location watch to foreground accuracy", "session_id", s.session.ID)
		s.stopWatchLocked()
	} else {
		slog.Info("Resuming continuous location watch", "session_id", s.session.ID)
	}
	s.startWatchLocked()
}

// CaptureOnce implements tracking.TrackingService.
func (s *TrackingServiceImpl) CaptureOnce(ctx context.Context) error {
	s.mu.Lock()
	if s.session == nil {
		s.mu.Unlock()
		return nil
	}
	sessionID := s.session.ID
	s.mu.Unlock()

	foreground := s.appState.State().IsForeground()
	highAccuracy := s.cfg.BackgroundHighAccuracy
	if foreground {
		highAccuracy = s.cfg.ForegroundHighAccuracy
	}

	pos, err := s.capture(ctx, highAccuracy)
	if err != nil {
		slog.Warn("One-shot location capture failed", "session_id", sessionID, "error", err)
		return err
	}

	s.accept(ctx, sessionID, pos, !foreground)
	return nil
}

func (s *TrackingServiceImpl) capture(ctx context.Context, highAccuracy bool) (geolocation.Position, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.LocationTimeout)
	defer cancel()

	pos, err := s.source.CurrentPosition(ctx, geolocation.PositionOptions{
		HighAccuracy: highAccuracy,
		Timeout:      s.cfg.LocationTimeout,
		MaximumAge:   s.cfg.MaximumAge,
	})
	if err != nil {
		return geolocation.Position{}, locationError(err)
	}
	return pos, nil
}

func locationError(err error) error {
	switch {
	case errors.Is(err, geolocation.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", tracking.ErrLocationTimeout, err)
	case errors.Is(err, geolocation.ErrPermissionDenied):
		return fmt.Errorf("%w: %v", tracking.ErrPermissionDenied, err)
	default:
		return fmt.Errorf("%w: %v", tracking.ErrLocationUnavailable, err)
	}
}

// accept appends a fix to the session it was captured for and forwards it.
func (s *TrackingServiceImpl) accept(ctx context.Context, sessionID string, pos geolocation.Position, background bool) {
	s.mu.Lock()
	sample, employeeID, ok := s.appendLocked(ctx, sessionID, pos, background)
	s.mu.Unlock()
	if !ok {
		slog.Debug("Dropping fix for a session that is no longer active", "session_id", sessionID)
		return
	}
	s.forward(ctx, employeeID, sample)
}

// appendLocked records a fix and persists the snapshot. Caller holds s.mu.
func (s *TrackingServiceImpl) appendLocked(ctx context.Context, sessionID string, pos geolocation.Position, background bool) (tracking.LocationSample, string, bool) {
	if s.session == nil || s.session.ID != sessionID {
		return tracking.LocationSample{}, "", false
	}
	sample := toSample(pos, sessionID, background)
	s.session.Locations = append(s.session.Locations, sample)
	s.persistLocked(ctx)
	return sample, s.session.EmployeeID, true
}

func (s *TrackingServiceImpl) forward(ctx context.Context, employeeID string, sample tracking.LocationSample) {
	s.syncService.ProcessSample(ctx, sample)
	s.publish(employeeID, sse.EventLocation, sample)
}

// startWatchLocked registers a continuous watch using the accuracy mode of
// the current app state. Caller holds s.mu.
func (s *TrackingServiceImpl) startWatchLocked() {
	if s.session == nil || s.watching {
		return
	}

	foreground := s.appState.State().IsForeground()
	opts := geolocation.WatchOptions{
		HighAccuracy:   s.cfg.ForegroundHighAccuracy,
		DistanceFilter: s.cfg.DistanceFilter,
		Interval:       s.cfg.UpdateInterval,
	}
	if !foreground {
		opts.HighAccuracy = s.cfg.BackgroundHighAccuracy
		opts.DistanceFilter = s.cfg.BackgroundDistanceFilter
	}

	s.watchGen++
	gen := s.watchGen
	sessionID := s.session.ID

	id, err := s.source.Watch(opts,
		func(pos geolocation.Position) { s.onWatchPosition(gen, sessionID, pos) },
		func(err error) { s.onWatchError(gen, err) },
	)
	if err != nil {
		slog.Warn("Failed to start location watch", "session_id", sessionID, "error", err)
		s.scheduleRetryLocked()
		return
	}

	s.watchID = id
	s.watching = true
	s.watchFG = foreground
	slog.Debug("Location watch started",
		"session_id", sessionID,
		"foreground", foreground,
		"high_accuracy", opts.HighAccuracy,
		"distance_filter", opts.DistanceFilter,
	)
}

// stopWatchLocked clears the watch and any pending retry. Caller holds s.mu.
func (s *TrackingServiceImpl) stopWatchLocked() {
	if s.retryTimer != nil {
		s.retryTimer.Stop()
		s.retryTimer = nil
	}
	if !s.watching {
		return
	}
	s.source.ClearWatch(s.watchID)
	s.watching = false
	s.watchGen++
}

func (s *TrackingServiceImpl) onWatchPosition(gen uint64, sessionID string, pos geolocation.Position) {
	background := !s.appState.State().IsForeground()

	s.mu.Lock()
	if !s.watching || gen != s.watchGen {
		s.mu.Unlock()
		slog.Debug("Dropping fix from a cleared watch", "session_id", sessionID)
		return
	}
	sample, employeeID, ok := s.appendLocked(s.ctx, sessionID, pos, background)
	s.mu.Unlock()

	if ok {
		s.forward(s.ctx, employeeID, sample)
	}
}

func (s *TrackingServiceImpl) onWatchError(gen uint64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.watchGen || s.session == nil {
		return
	}
	slog.Warn("Location watch error, retrying",
		"session_id", s.session.ID,
		"retry_in", s.cfg.LocationRetryDelay.String(),
		"error", locationError(err),
	)
	s.scheduleRetryLocked()
}

// scheduleRetryLocked arms a single pending retry. Caller holds s.mu.
func (s *TrackingServiceImpl) scheduleRetryLocked() {
	if s.retryTimer != nil || s.closed {
		return
	}
	s.retryTimer = s.clock.AfterFunc(s.cfg.LocationRetryDelay, s.retryLocation)
}

func (s *TrackingServiceImpl) retryLocation() {
	s.mu.Lock()
	s.retryTimer = nil
	if s.session == nil || s.paused || s.closed {
		s.mu.Unlock()
		return
	}
	if !s.watching {
		s.startWatchLocked()
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	if err := s.CaptureOnce(s.ctx); err != nil {
		s.mu.Lock()
		if s.session != nil && !s.paused {
			s.scheduleRetryLocked()
		}
		s.mu.Unlock()
	}
}

// persistLocked saves the active session snapshot. Caller holds s.mu.
func (s *TrackingServiceImpl) persistLocked(ctx context.Context) {
	if s.session == nil {
		return
	}
	if err := s.sessions.Save(context.WithoutCancel(ctx), *s.session); err != nil {
		slog.Error("Failed to persist active session", "session_id", s.session.ID, "error", err)
	}
}

// Restore implements tracking.TrackingService.
func (s *TrackingServiceImpl) Restore(ctx context.Context) error {
	snapshot, err := s.sessions.Load(ctx)
	if err != nil {
		slog.Error("Failed to load persisted session", "error", err)
		return err
	}
	if snapshot == nil {
		return nil
	}
	if !snapshot.IsActive {
		if err := s.sessions.Clear(ctx); err != nil {
			slog.Error("Failed to clear persisted session", "session_id", snapshot.ID, "error", err)
		}
		return nil
	}

	status, err := s.permissions.Check(ctx, permission.KindLocation)
	if err != nil || status != permission.StatusGranted {
		end := s.clock.Now()
		snapshot.EndTime = &end
		snapshot.IsActive = false
		slog.Warn("Finalizing persisted session, location permission no longer granted",
			"session_id", snapshot.ID,
			"status", status,
		)
		s.syncService.SaveSessionFinal(ctx, *snapshot)
		if err := s.sessions.Clear(ctx); err != nil {
			slog.Error("Failed to clear persisted session", "session_id", snapshot.ID, "error", err)
		}
		return nil
	}

	s.mu.Lock()
	if s.session != nil {
		s.mu.Unlock()
		return nil
	}
	s.session = snapshot
	s.startWatchLocked()
	s.cancelCapture = s.scheduler.AddDeferredJob(captureJobName, s.cfg.UpdateInterval, s.CaptureOnce)
	restored := snapshot.Clone()
	s.mu.Unlock()

	slog.Info("Tracking session restored",
		"session_id", restored.ID,
		"employee_id", restored.EmployeeID,
		"locations", len(restored.Locations),
	)
	s.publish(restored.EmployeeID, sse.EventSessionStarted, restored)
	return nil
}

// SessionStats implements tracking.TrackingService.
func (s *TrackingServiceImpl) SessionStats() (tracking.SessionStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		return tracking.SessionStats{}, tracking.ErrNoActiveSession
	}
	return s.statsLocked(), nil
}

func (s *TrackingServiceImpl) statsLocked() tracking.SessionStats {
	return tracking.SessionStats{
		SessionID:           s.session.ID,
		EmployeeID:          s.session.EmployeeID,
		LocationCount:       len(s.session.Locations),
		TotalDistanceMeters: tracking.TotalDistance(s.session.Locations),
		AverageSpeed:        tracking.AverageSpeed(s.session.Locations),
		StartTime:           s.session.StartTime,
		Duration:            s.clock.Now().Sub(s.session.StartTime),
		IsActive:            s.session.IsActive,
	}
}

// ActiveSession implements tracking.TrackingService.
func (s *TrackingServiceImpl) ActiveSession() (tracking.TrackingSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		return tracking.TrackingSession{}, false
	}
	return s.session.Clone(), true
}

// Status implements tracking.TrackingService.
func (s *TrackingServiceImpl) Status() tracking.TrackerStatus {
	s.mu.Lock()
	status := tracking.TrackerStatus{
		Active:     s.session != nil,
		Watching:   s.watching,
		Foreground: s.appState.State().IsForeground(),
	}
	if s.session != nil {
		stats := s.statsLocked()
		status.Session = &stats
	}
	s.mu.Unlock()

	status.QueueLength = s.syncService.QueueLength()
	return status
}

// Close releases the watch and the capture job. A persisted active session
// is left in place for Restore.
func (s *TrackingServiceImpl) Close() {
	s.mu.Lock()
	s.closed = true
	s.stopWatchLocked()
	if s.cancelCapture != nil {
		s.cancelCapture()
		s.cancelCapture = nil
	}
	s.mu.Unlock()

	s.cancel()
}

func (s *TrackingServiceImpl) publish(employeeID, eventType string, data interface{}) {
	if s.hub == nil {
		return
	}
	s.hub.Publish(employeeID, sse.Event{Type: eventType, Data: data})
}

func toSample(pos geolocation.Position, sessionID string, background bool) tracking.LocationSample {
	ts := pos.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return tracking.LocationSample{
		Latitude:     pos.Latitude,
		Longitude:    pos.Longitude,
		Accuracy:     pos.Accuracy,
		Altitude:     pos.Altitude,
		Heading:      pos.Heading,
		Speed:        pos.Speed,
		Timestamp:    ts,
		SessionID:    sessionID,
		IsBackground: background,
	}
}

func NewTrackingService(
	cfg tracking.TrackerConfig,
	source geolocation.Source,
	permissions permission.Checker,
	syncService tracking.SyncService,
	sessions tracking.ActiveSessionRepository,
	scheduler Scheduler,
	appState lifecycle.Monitor,
	hub *sse.Hub,
) tracking.TrackingService {
	return newTrackingService(cfg, source, permissions, syncService, sessions, scheduler, appState, hub, systemClock{})
}

func newTrackingService(
	cfg tracking.TrackerConfig,
	source geolocation.Source,
	permissions permission.Checker,
	syncService tracking.SyncService,
	sessions tracking.ActiveSessionRepository,
	scheduler Scheduler,
	appState lifecycle.Monitor,
	hub *sse.Hub,
	clock Clock,
) *TrackingServiceImpl {
	ctx, cancel := context.WithCancel(context.Background())
	return &TrackingServiceImpl{
		cfg:         cfg,
		source:      source,
		permissions: permissions,
		syncService: syncService,
		sessions:    sessions,
		scheduler:   scheduler,
		appState:    appState,
		hub:         hub,
		clock:       clock,
		ctx:         ctx,
		cancel:      cancel,
	}
}
