package geolocation

import (
	"context"
	"sync"
	"time"

	"github.com/cmlabs-hris/attendance-tracker-go/internal/pkg/utils"
)

type watcher struct {
	opts       WatchOptions
	onPosition func(Position)
	onError    func(error)
	last       *Position
}

// Bridge is a Source fed by the native layer: every fix the device reports
// is pushed in and fanned out to the registered watchers.
type Bridge struct {
	mu       sync.Mutex
	nextID   WatchID
	watchers map[WatchID]*watcher
	last     *Position
	waiters  []chan Position
	now      func() time.Time
}

func NewBridge() *Bridge {
	return &Bridge{
		watchers: make(map[WatchID]*watcher),
		now:      time.Now,
	}
}

// Push delivers a fix from the device.
func (b *Bridge) Push(pos Position) {
	if pos.Timestamp.IsZero() {
		pos.Timestamp = b.now()
	}

	b.mu.Lock()
	p := pos
	b.last = &p

	waiters := b.waiters
	b.waiters = nil

	var deliver []func(Position)
	for _, w := range b.watchers {
		if w.last != nil && w.opts.DistanceFilter > 0 {
			moved := utils.Distance(
				utils.Point{Lat: w.last.Latitude, Lng: w.last.Longitude},
				utils.Point{Lat: pos.Latitude, Lng: pos.Longitude},
			)
			if moved < w.opts.DistanceFilter {
				continue
			}
		}
		w.last = &p
		deliver = append(deliver, w.onPosition)
	}
	b.mu.Unlock()

	for _, ch := range waiters {
		ch <- pos
	}
	for _, fn := range deliver {
		fn(pos)
	}
}

// Fail reports a provider error to every watcher.
func (b *Bridge) Fail(err error) {
	b.mu.Lock()
	var notify []func(error)
	for _, w := range b.watchers {
		if w.onError != nil {
			notify = append(notify, w.onError)
		}
	}
	b.mu.Unlock()

	for _, fn := range notify {
		fn(err)
	}
}

// CurrentPosition implements Source. A cached fix younger than MaximumAge is
// returned right away, otherwise it waits for the next pushed fix.
func (b *Bridge) CurrentPosition(ctx context.Context, opts PositionOptions) (Position, error) {
	b.mu.Lock()
	if b.last != nil && opts.MaximumAge > 0 && b.now().Sub(b.last.Timestamp) <= opts.MaximumAge {
		pos := *b.last
		b.mu.Unlock()
		return pos, nil
	}
	ch := make(chan Position, 1)
	b.waiters = append(b.waiters, ch)
	b.mu.Unlock()

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	select {
	case pos := <-ch:
		return pos, nil
	case <-ctx.Done():
		b.dropWaiter(ch)
		return Position{}, ErrTimeout
	}
}

func (b *Bridge) dropWaiter(ch chan Position) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, w := range b.waiters {
		if w == ch {
			b.waiters = append(b.waiters[:i], b.waiters[i+1:]...)
			return
		}
	}
}

// Watch implements Source.
func (b *Bridge) Watch(opts WatchOptions, onPosition func(Position), onError func(error)) (WatchID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.watchers[id] = &watcher{opts: opts, onPosition: onPosition, onError: onError}
	return id, nil
}

// ClearWatch implements Source.
func (b *Bridge) ClearWatch(id WatchID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.watchers, id)
}

// WatchCount returns the number of live watch registrations.
func (b *Bridge) WatchCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.watchers)
}
