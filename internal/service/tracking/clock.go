package tracking

import (
	"context"
	"time"
)

// Timer is the part of *time.Timer the service needs.
type Timer interface {
	Stop() bool
}

type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// Scheduler registers the per-session background capture job.
type Scheduler interface {
	AddDeferredJob(name string, interval time.Duration, fn func(ctx context.Context) error) (cancel func())
}
