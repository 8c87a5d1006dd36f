// Package coordinator drives the tracker from app lifecycle and network
// reachability transitions and owns the background scheduler.
package coordinator

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cmlabs-hris/attendance-tracker-go/internal/domain/tracking"
	"github.com/cmlabs-hris/attendance-tracker-go/internal/pkg/lifecycle"
	"github.com/cmlabs-hris/attendance-tracker-go/internal/pkg/reachability"
)

const drainJobName = "offline_queue_drain"

type Scheduler interface {
	AddJob(name string, interval time.Duration, fn func(ctx context.Context) error) (cancel func())
	Start()
	Stop()
}

type Coordinator struct {
	cfg         tracking.TrackerConfig
	tracker     tracking.TrackingService
	syncService tracking.SyncService
	appState    lifecycle.Monitor
	network     reachability.Monitor
	scheduler   Scheduler

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu           sync.Mutex
	lastState    lifecycle.AppState
	online       bool
	unsubscribe  []func()
	cancelDrain  func()
	shutdownOnce sync.Once
}

func NewCoordinator(
	cfg tracking.TrackerConfig,
	tracker tracking.TrackingService,
	syncService tracking.SyncService,
	appState lifecycle.Monitor,
	network reachability.Monitor,
	scheduler Scheduler,
) *Coordinator {
	return &Coordinator{
		cfg:         cfg,
		tracker:     tracker,
		syncService: syncService,
		appState:    appState,
		network:     network,
		scheduler:   scheduler,
	}
}

// Start restores persisted state, subscribes to both monitors and starts the
// scheduler. Storage failures are logged and the tracker starts empty.
func (c *Coordinator) Start(ctx context.Context) {
	c.ctx, c.cancel = context.WithCancel(ctx)

	if err := c.syncService.Load(ctx); err != nil {
		slog.Warn("Offline queue not restored", "error", err)
	}
	if err := c.tracker.Restore(ctx); err != nil {
		slog.Warn("Tracking session not restored", "error", err)
	}

	c.mu.Lock()
	c.lastState = c.appState.State()
	c.online = c.network.IsConnected()
	c.unsubscribe = append(c.unsubscribe,
		c.appState.Subscribe(c.onAppState),
		c.network.Subscribe(c.onConnectivity),
	)
	c.cancelDrain = c.scheduler.AddJob(drainJobName, c.cfg.UpdateInterval, func(ctx context.Context) error {
		c.syncService.DrainQueue(ctx)
		return nil
	})
	c.mu.Unlock()

	c.scheduler.Start()

	slog.Info("Tracker coordinator started",
		"app_state", c.lastState,
		"online", c.online,
		"update_interval", c.cfg.UpdateInterval.String(),
	)
}

func (c *Coordinator) onAppState(state lifecycle.AppState) {
	c.mu.Lock()
	prev := c.lastState
	c.lastState = state
	c.mu.Unlock()

	switch {
	case !prev.IsForeground() && state.IsForeground():
		slog.Info("App became active", "from", prev)
		c.tracker.ResumeTracking()
		c.drain("app_active")
	case prev.IsForeground() && !state.IsForeground():
		slog.Info("App left foreground", "to", state)
		c.tracker.PauseTracking()
	}
}

func (c *Coordinator) onConnectivity(connected bool) {
	c.mu.Lock()
	was := c.online
	c.online = connected
	c.mu.Unlock()

	if !was && connected {
		slog.Info("Network reachable again")
		c.drain("network_online")
	}
}

func (c *Coordinator) drain(reason string) {
	if c.ctx.Err() != nil {
		return
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		result := c.syncService.DrainQueue(c.ctx)
		slog.Debug("Triggered drain finished", "reason", reason, "remaining", result.Remaining)
	}()
}

// Shutdown releases the subscriptions and stops the scheduler. Safe to call
// more than once.
func (c *Coordinator) Shutdown() {
	c.shutdownOnce.Do(func() {
		c.mu.Lock()
		unsubscribe := c.unsubscribe
		c.unsubscribe = nil
		cancelDrain := c.cancelDrain
		c.cancelDrain = nil
		c.mu.Unlock()

		for _, fn := range unsubscribe {
			fn()
		}
		if cancelDrain != nil {
			cancelDrain()
		}
		c.scheduler.Stop()
		if c.cancel != nil {
			c.cancel()
		}
		c.wg.Wait()
		c.tracker.Close()

		slog.Info("Tracker coordinator stopped")
	})
}
