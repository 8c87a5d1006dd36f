package syncengine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/cmlabs-hris/attendance-tracker-go/internal/domain/tracking"
	"github.com/cmlabs-hris/attendance-tracker-go/internal/pkg/sse"
	"github.com/google/uuid"
)

type SyncServiceImpl struct {
	cfg    tracking.TrackerConfig
	remote tracking.RemoteClient
	repo   tracking.OfflineQueueRepository
	hub    *sse.Hub
	now    func() time.Time

	mu       sync.Mutex
	queue    []tracking.OfflineRecord
	inFlight map[string]struct{}
}

// Load implements tracking.SyncService.
func (s *SyncServiceImpl) Load(ctx context.Context) error {
	records, err := s.repo.Load(ctx)
	if err != nil {
		slog.Error("Failed to load offline queue, starting empty", "error", err)
		return err
	}

	for i := range records {
		if records[i].ID == "" {
			records[i].ID = uuid.NewString()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Records enqueued before Load keep their place after the persisted ones
	s.queue = append(records, s.queue...)
	s.evictLocked()
	s.persistLocked(ctx)

	slog.Info("Offline queue loaded", "records", len(s.queue))
	return nil
}

// ProcessSample implements tracking.SyncService.
func (s *SyncServiceImpl) ProcessSample(ctx context.Context, sample tracking.LocationSample) {
	err := s.remote.SendLocation(ctx, sample)
	if err == nil {
		return
	}

	slog.Warn("Sample send failed, queued for retry",
		"session_id", sample.SessionID,
		"error", err,
	)
	s.enqueue(ctx, tracking.OfflineRecord{
		Kind:   tracking.RecordKindLocation,
		Sample: &sample,
	})
}

// SaveSessionFinal implements tracking.SyncService.
func (s *SyncServiceImpl) SaveSessionFinal(ctx context.Context, session tracking.TrackingSession) {
	err := s.remote.SaveSession(ctx, session)
	if err == nil {
		slog.Info("Session saved", "session_id", session.ID, "locations", len(session.Locations))
		return
	}

	if !s.cfg.RequeueFailedSessions {
		slog.Error("Failed to save session", "session_id", session.ID, "error", err)
		return
	}

	slog.Warn("Session save failed, queued for retry", "session_id", session.ID, "error", err)
	final := session.Clone()
	s.enqueue(ctx, tracking.OfflineRecord{
		Kind:    tracking.RecordKindSession,
		Session: &final,
	})
}

func (s *SyncServiceImpl) enqueue(ctx context.Context, record tracking.OfflineRecord) {
	record.ID = uuid.NewString()
	record.StoredAt = s.now().UTC().Round(0)
	record.RetryCount = 0

	s.mu.Lock()
	s.queue = append(s.queue, record)
	s.evictLocked()
	s.persistLocked(ctx)
	length := len(s.queue)
	s.mu.Unlock()

	s.broadcast(sse.EventQueueChanged, map[string]int{"queue_length": length})
}

type outcome struct {
	sent       bool
	retryCount int
}

// DrainQueue implements tracking.SyncService.
func (s *SyncServiceImpl) DrainQueue(ctx context.Context) tracking.DrainResult {
	s.mu.Lock()
	batch := make([]tracking.OfflineRecord, 0, len(s.queue))
	for _, r := range s.queue {
		if _, busy := s.inFlight[r.ID]; busy {
			continue
		}
		s.inFlight[r.ID] = struct{}{}
		batch = append(batch, r)
	}
	s.mu.Unlock()

	var result tracking.DrainResult
	outcomes := make(map[string]outcome, len(batch))

	for _, r := range batch {
		if ctx.Err() != nil {
			break
		}
		err := s.send(ctx, r)
		outcomes[r.ID] = outcome{sent: err == nil, retryCount: r.RetryCount + 1}
		if err != nil {
			slog.Debug("Queued record resend failed", "record_id", r.ID, "retry_count", r.RetryCount+1, "error", err)
		}
	}

	s.mu.Lock()
	for _, r := range batch {
		delete(s.inFlight, r.ID)
	}

	// Merge into the live queue: records appended meanwhile are kept, records
	// removed by a concurrent drain or eviction stay removed.
	kept := s.queue[:0:0]
	for _, r := range s.queue {
		o, attempted := outcomes[r.ID]
		if !attempted {
			kept = append(kept, r)
			continue
		}
		if o.sent {
			continue
		}
		if o.retryCount > r.RetryCount {
			r.RetryCount = o.retryCount
		}
		if s.cfg.MaxRetryAttempts > 0 && r.RetryCount >= s.cfg.MaxRetryAttempts {
			result.Dropped++
			slog.Warn("Dropping record after retry ceiling",
				"record_id", r.ID,
				"kind", r.Kind,
				"retry_count", r.RetryCount,
			)
			continue
		}
		kept = append(kept, r)
	}
	s.queue = kept
	s.evictLocked()
	if len(outcomes) > 0 {
		s.persistLocked(ctx)
	}
	result.Remaining = len(s.queue)
	s.mu.Unlock()

	result.Attempted = len(outcomes)
	for _, o := range outcomes {
		if o.sent {
			result.Sent++
		} else {
			result.Failed++
		}
	}

	if result.Attempted > 0 {
		slog.Info("Offline queue drained",
			"attempted", result.Attempted,
			"sent", result.Sent,
			"failed", result.Failed,
			"dropped", result.Dropped,
			"remaining", result.Remaining,
		)
		s.broadcast(sse.EventSyncCompleted, result)
	}

	return result
}

func (s *SyncServiceImpl) send(ctx context.Context, r tracking.OfflineRecord) error {
	switch r.Kind {
	case tracking.RecordKindLocation:
		if r.Sample == nil {
			return errors.New("location record without sample")
		}
		return s.remote.SendLocation(ctx, *r.Sample)
	case tracking.RecordKindSession:
		if r.Session == nil {
			return errors.New("session record without session")
		}
		return s.remote.SaveSession(ctx, *r.Session)
	default:
		return errors.New("unknown record kind: " + string(r.Kind))
	}
}

// evictLocked drops the oldest records beyond capacity. Caller holds s.mu.
func (s *SyncServiceImpl) evictLocked() {
	limit := s.cfg.MaxOfflineRecords
	if limit <= 0 || len(s.queue) <= limit {
		return
	}
	evicted := len(s.queue) - limit
	s.queue = append(s.queue[:0:0], s.queue[evicted:]...)
	slog.Warn("Offline queue full, evicted oldest records", "evicted", evicted, "capacity", limit)
}

// persistLocked writes the whole queue. Caller holds s.mu.
func (s *SyncServiceImpl) persistLocked(ctx context.Context) {
	if err := s.repo.Save(context.WithoutCancel(ctx), s.queue); err != nil {
		slog.Error("Failed to persist offline queue", "records", len(s.queue), "error", err)
	}
}

func (s *SyncServiceImpl) broadcast(eventType string, data interface{}) {
	if s.hub == nil {
		return
	}
	s.hub.Broadcast(sse.Event{Type: eventType, Data: data})
}

// QueueLength implements tracking.SyncService.
func (s *SyncServiceImpl) QueueLength() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Records implements tracking.SyncService.
func (s *SyncServiceImpl) Records() []tracking.OfflineRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]tracking.OfflineRecord, len(s.queue))
	copy(out, s.queue)
	return out
}

func NewSyncService(
	cfg tracking.TrackerConfig,
	remote tracking.RemoteClient,
	repo tracking.OfflineQueueRepository,
	hub *sse.Hub,
) tracking.SyncService {
	return &SyncServiceImpl{
		cfg:      cfg,
		remote:   remote,
		repo:     repo,
		hub:      hub,
		now:      time.Now,
		inFlight: make(map[string]struct{}),
	}
}
