package http

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cmlabs-hris/attendance-tracker-go/internal/config"
	"github.com/cmlabs-hris/attendance-tracker-go/internal/domain/tracking"
	"github.com/cmlabs-hris/attendance-tracker-go/internal/handler/http/response"
	"github.com/cmlabs-hris/attendance-tracker-go/internal/pkg/cron"
	"github.com/cmlabs-hris/attendance-tracker-go/internal/pkg/geolocation"
	"github.com/cmlabs-hris/attendance-tracker-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/attendance-tracker-go/internal/pkg/kvstore"
	"github.com/cmlabs-hris/attendance-tracker-go/internal/pkg/lifecycle"
	"github.com/cmlabs-hris/attendance-tracker-go/internal/pkg/permission"
	"github.com/cmlabs-hris/attendance-tracker-go/internal/pkg/reachability"
	"github.com/cmlabs-hris/attendance-tracker-go/internal/pkg/remote"
	"github.com/cmlabs-hris/attendance-tracker-go/internal/pkg/sse"
	"github.com/cmlabs-hris/attendance-tracker-go/internal/repository/keyvalue"
	"github.com/cmlabs-hris/attendance-tracker-go/internal/service/coordinator"
	"github.com/cmlabs-hris/attendance-tracker-go/internal/service/syncengine"
	trackingService "github.com/cmlabs-hris/attendance-tracker-go/internal/service/tracking"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Success bool                  `json:"success"`
	Message string                `json:"message"`
	Data    json.RawMessage       `json:"data"`
	Error   *response.ErrorDetail `json:"error"`
}

type testEnv struct {
	router    http.Handler
	jwt       jwt.Service
	token     string
	tracker   tracking.TrackingService
	sync      tracking.SyncService
	online    atomic.Bool
	locations atomic.Int32
	sessions  atomic.Int32
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{}
	env.online.Store(true)

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !env.online.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		switch r.URL.Path {
		case "/api/v1/tracking/locations":
			env.locations.Add(1)
		case "/api/v1/tracking/sessions":
			env.sessions.Add(1)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	t.Cleanup(backend.Close)

	cfg := tracking.DefaultTrackerConfig()
	cfg.LocationTimeout = 200 * time.Millisecond
	cfg.UpdateInterval = time.Hour

	ctx := context.Background()
	hub := sse.NewHub()
	bridge := geolocation.NewBridge()
	app := lifecycle.NewNotifier(lifecycle.StateActive)
	network := reachability.NewNotifier(true)
	perms := permission.NewRegistry(nil)
	store := kvstore.NewMemoryStore()
	scheduler := cron.NewScheduler()

	env.sync = syncengine.NewSyncService(cfg,
		remote.NewClient(ctx, backend.URL, "", 2*time.Second),
		keyvalue.NewOfflineQueueRepository(store),
		hub,
	)
	env.tracker = trackingService.NewTrackingService(cfg, bridge, perms, env.sync,
		keyvalue.NewActiveSessionRepository(store), scheduler, app, hub)

	coord := coordinator.NewCoordinator(cfg, env.tracker, env.sync, app, network, scheduler)
	coord.Start(ctx)
	t.Cleanup(coord.Shutdown)

	env.jwt = jwt.NewJWTService("test-secret", "1h")
	token, _, err := env.jwt.GenerateDeviceToken("E1")
	require.NoError(t, err)
	env.token = token

	env.router = NewRouter(io.Discard, config.AppConfig{Env: "test"}, env.jwt,
		NewTrackingHandler(env.tracker, env.sync, env.jwt, hub),
		NewDeviceHandler(bridge, app, network, perms),
	)
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) (int, envelope) {
	t.Helper()
	return e.doWithToken(t, method, path, body, e.token)
}

func (e *testEnv) doWithToken(t *testing.T, method, path string, body interface{}, token string) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec.Code, env
}

func (e *testEnv) grantAndPosition(t *testing.T, lat, lng float64) {
	t.Helper()
	code, _ := e.do(t, http.MethodPost, "/api/v1/device/permissions", map[string]interface{}{"kind": "location", "granted": true})
	require.Equal(t, http.StatusAccepted, code)
	code, _ = e.do(t, http.MethodPost, "/api/v1/device/positions", map[string]interface{}{"latitude": lat, "longitude": lng})
	require.Equal(t, http.StatusAccepted, code)
}

func TestRouter_Heartbeat(t *testing.T) {
	env := newTestEnv(t)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_RequiresDeviceToken(t *testing.T) {
	env := newTestEnv(t)

	code, _ := env.doWithToken(t, http.MethodGet, "/api/v1/tracking/status", nil, "")
	assert.Equal(t, http.StatusUnauthorized, code)

	_, other, err := env.jwt.JWTAuth().Encode(map[string]interface{}{"employee_id": "E1", "type": "access"})
	require.NoError(t, err)
	code, body := env.doWithToken(t, http.MethodGet, "/api/v1/tracking/status", nil, other)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "UNAUTHORIZED", body.Error.Code)
}

func TestRouter_StartWithoutPermission(t *testing.T) {
	env := newTestEnv(t)

	code, body := env.do(t, http.MethodPost, "/api/v1/tracking/start", map[string]string{})

	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "PERMISSION_REQUIRED", body.Error.Code)
}

func TestRouter_StartForAnotherEmployee(t *testing.T) {
	env := newTestEnv(t)
	env.grantAndPosition(t, 30.70, 76.71)

	code, _ := env.do(t, http.MethodPost, "/api/v1/tracking/start", map[string]string{"employee_id": "E2"})

	assert.Equal(t, http.StatusForbidden, code)
}

func TestRouter_SessionLifecycle(t *testing.T) {
	env := newTestEnv(t)
	env.grantAndPosition(t, 30.70, 76.71)

	code, body := env.do(t, http.MethodPost, "/api/v1/tracking/start", map[string]string{"session_type": "work"})
	require.Equal(t, http.StatusCreated, code)
	var session tracking.TrackingSession
	require.NoError(t, json.Unmarshal(body.Data, &session))
	assert.True(t, session.IsActive)
	assert.Equal(t, "E1", session.EmployeeID)
	assert.Len(t, session.Locations, 1)
	assert.Equal(t, int32(1), env.locations.Load())

	code, _ = env.do(t, http.MethodPost, "/api/v1/tracking/start", map[string]string{})
	assert.Equal(t, http.StatusConflict, code)

	code, _ = env.do(t, http.MethodPost, "/api/v1/device/positions", map[string]interface{}{"latitude": 30.75, "longitude": 76.80})
	require.Equal(t, http.StatusAccepted, code)

	code, body = env.do(t, http.MethodGet, "/api/v1/tracking/stats", nil)
	require.Equal(t, http.StatusOK, code)
	var stats tracking.SessionStats
	require.NoError(t, json.Unmarshal(body.Data, &stats))
	assert.Equal(t, 2, stats.LocationCount)
	assert.Greater(t, stats.TotalDistanceMeters, 1000.0)

	code, body = env.do(t, http.MethodGet, "/api/v1/tracking/status", nil)
	require.Equal(t, http.StatusOK, code)
	var status tracking.TrackerStatus
	require.NoError(t, json.Unmarshal(body.Data, &status))
	assert.True(t, status.Active)
	assert.True(t, status.Watching)

	code, _ = env.do(t, http.MethodPost, "/api/v1/tracking/stop", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, int32(1), env.sessions.Load())

	code, _ = env.do(t, http.MethodGet, "/api/v1/tracking/stats", nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = env.do(t, http.MethodPost, "/api/v1/tracking/stop", nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestRouter_AppStatePausesWatch(t *testing.T) {
	env := newTestEnv(t)
	env.grantAndPosition(t, 30.70, 76.71)
	code, _ := env.do(t, http.MethodPost, "/api/v1/tracking/start", map[string]string{})
	require.Equal(t, http.StatusCreated, code)

	code, _ = env.do(t, http.MethodPost, "/api/v1/device/app-state", map[string]string{"state": "background"})
	require.Equal(t, http.StatusAccepted, code)
	assert.False(t, env.tracker.Status().Watching)

	code, _ = env.do(t, http.MethodPost, "/api/v1/device/app-state", map[string]string{"state": "active"})
	require.Equal(t, http.StatusAccepted, code)
	assert.True(t, env.tracker.Status().Watching)
}

func TestRouter_OfflineSamplesDrainWhenOnline(t *testing.T) {
	env := newTestEnv(t)
	env.online.Store(false)
	env.grantAndPosition(t, 30.70, 76.71)

	code, _ := env.do(t, http.MethodPost, "/api/v1/tracking/start", map[string]string{})
	require.Equal(t, http.StatusCreated, code)

	code, body := env.do(t, http.MethodGet, "/api/v1/tracking/queue", nil)
	require.Equal(t, http.StatusOK, code)
	var queue tracking.QueueResponse
	require.NoError(t, json.Unmarshal(body.Data, &queue))
	assert.Equal(t, 1, queue.Length)

	env.online.Store(true)
	env.do(t, http.MethodPost, "/api/v1/device/connectivity", map[string]bool{"is_connected": false})
	env.do(t, http.MethodPost, "/api/v1/device/connectivity", map[string]bool{"is_connected": true})

	assert.Eventually(t, func() bool { return env.sync.QueueLength() == 0 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, int32(1), env.locations.Load())
}

func TestRouter_ManualDrain(t *testing.T) {
	env := newTestEnv(t)
	env.online.Store(false)
	env.grantAndPosition(t, 30.70, 76.71)
	code, _ := env.do(t, http.MethodPost, "/api/v1/tracking/start", map[string]string{})
	require.Equal(t, http.StatusCreated, code)

	env.online.Store(true)
	code, body := env.do(t, http.MethodPost, "/api/v1/tracking/queue/drain", nil)
	require.Equal(t, http.StatusOK, code)

	var result tracking.DrainResult
	require.NoError(t, json.Unmarshal(body.Data, &result))
	assert.Equal(t, 0, result.Remaining)
	assert.Equal(t, 0, env.sync.QueueLength())
}

func TestRouter_DeviceValidation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		path string
		body interface{}
	}{
		{"latitude out of range", "/api/v1/device/positions", map[string]float64{"latitude": 100, "longitude": 0}},
		{"negative accuracy", "/api/v1/device/positions", map[string]float64{"latitude": 1, "longitude": 1, "accuracy": -1}},
		{"unknown app state", "/api/v1/device/app-state", map[string]string{"state": "sleeping"}},
		{"missing permission kind", "/api/v1/device/permissions", map[string]bool{"granted": true}},
		{"unknown permission kind", "/api/v1/device/permissions", map[string]interface{}{"kind": "camera", "granted": true}},
		{"unknown position error", "/api/v1/device/position-errors", map[string]string{"code": "meteor"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := env.do(t, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, http.StatusUnprocessableEntity, code)
			assert.Equal(t, "VALIDATION_ERROR", body.Error.Code)
		})
	}
}

func TestRouter_PositionError(t *testing.T) {
	env := newTestEnv(t)

	code, _ := env.do(t, http.MethodPost, "/api/v1/device/position-errors", map[string]string{"code": "timeout"})

	assert.Equal(t, http.StatusAccepted, code)
}

func TestRouter_Events(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/tracking/events")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/tracking/events?token="+env.token, nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: connected\n", line)

	line, err = reader.ReadString('\n')
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(line, "data: "))
	var status tracking.TrackerStatus
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &status))
	assert.False(t, status.Active)
	assert.True(t, status.Foreground)
}
