package cron

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Job represents a scheduled job
type Job struct {
	Name       string
	Interval   time.Duration
	Fn         func(ctx context.Context) error
	RunOnStart bool

	ctx     context.Context
	cancel  context.CancelFunc
	running bool
}

// Scheduler manages scheduled jobs. Jobs may be added before or after Start
// and each one can be cancelled on its own without touching the others.
type Scheduler struct {
	jobs    map[int]*Job
	nextID  int
	started bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
}

// NewScheduler creates a new cron scheduler
func NewScheduler() *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		jobs:   make(map[int]*Job),
		ctx:    ctx,
		cancel: cancel,
	}
}

// AddJob adds a job that also runs immediately when it starts
func (s *Scheduler) AddJob(name string, interval time.Duration, fn func(ctx context.Context) error) (cancel func()) {
	return s.add(&Job{Name: name, Interval: interval, Fn: fn, RunOnStart: true})
}

// AddDeferredJob adds a job whose first run is one interval after it starts
func (s *Scheduler) AddDeferredJob(name string, interval time.Duration, fn func(ctx context.Context) error) (cancel func()) {
	return s.add(&Job{Name: name, Interval: interval, Fn: fn})
}

func (s *Scheduler) add(job *Job) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID
	job.ctx, job.cancel = context.WithCancel(s.ctx)
	s.jobs[id] = job
	slog.Info("Cron job registered", "name", job.Name, "interval", job.Interval)

	if s.started {
		s.launch(job)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			job.cancel()
			s.mu.Lock()
			delete(s.jobs, id)
			s.mu.Unlock()
			slog.Info("Cron job cancelled", "name", job.Name)
		})
	}
}

// launch must be called with s.mu held
func (s *Scheduler) launch(job *Job) {
	if job.running {
		return
	}
	job.running = true
	s.wg.Add(1)
	go s.runJob(job)
}

// Start begins running all scheduled jobs
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.started = true
	for _, job := range s.jobs {
		s.launch(job)
	}

	slog.Info("Cron scheduler started", "job_count", len(s.jobs))
}

// Stop gracefully stops all scheduled jobs
func (s *Scheduler) Stop() {
	slog.Info("Stopping cron scheduler...")
	s.cancel()
	s.wg.Wait()
	slog.Info("Cron scheduler stopped")
}

// JobCount returns the number of registered jobs
func (s *Scheduler) JobCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// runJob runs a single job on its schedule
func (s *Scheduler) runJob(job *Job) {
	defer s.wg.Done()

	if job.ctx.Err() != nil {
		return
	}

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	if job.RunOnStart {
		s.executeJob(job)
	}

	for {
		select {
		case <-job.ctx.Done():
			slog.Info("Cron job stopping", "name", job.Name)
			return
		case <-ticker.C:
			// A cancel racing with the tick wins
			if job.ctx.Err() != nil {
				return
			}
			s.executeJob(job)
		}
	}
}

// executeJob executes a job and logs results
func (s *Scheduler) executeJob(job *Job) {
	start := time.Now()
	slog.Debug("Cron job starting", "name", job.Name)

	defer func() {
		if p := recover(); p != nil {
			slog.Error("Cron job panicked", "name", job.Name, "panic", p)
		}
	}()

	if err := job.Fn(job.ctx); err != nil {
		slog.Error("Cron job failed", "name", job.Name, "error", err, "duration", time.Since(start))
	} else {
		slog.Debug("Cron job completed", "name", job.Name, "duration", time.Since(start))
	}
}

// RunOnce runs all jobs once (useful for testing)
func (s *Scheduler) RunOnce(ctx context.Context) {
	s.mu.Lock()
	jobs := make([]*Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, job)
	}
	s.mu.Unlock()

	for _, job := range jobs {
		if err := job.Fn(ctx); err != nil {
			slog.Error("Cron job failed", "name", job.Name, "error", err)
		}
	}
}
