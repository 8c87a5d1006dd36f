// Package lifecycle reports app foreground/background transitions.
package lifecycle

import (
	"sync"
)

type AppState string

const (
	StateActive     AppState = "active"
	StateInactive   AppState = "inactive"
	StateBackground AppState = "background"
)

func (s AppState) IsForeground() bool {
	return s == StateActive
}

// Monitor is the app-foreground subscription.
type Monitor interface {
	State() AppState
	// Subscribe registers fn for state changes; the returned func releases it
	Subscribe(fn func(AppState)) (unsubscribe func())
}

// Notifier is a Monitor driven by Set calls from the native layer.
type Notifier struct {
	// deliverMu orders Set calls end to end, listeners included
	deliverMu sync.Mutex
	mu        sync.Mutex
	state     AppState
	nextID    int
	listeners map[int]func(AppState)
}

func NewNotifier(initial AppState) *Notifier {
	return &Notifier{
		state:     initial,
		listeners: make(map[int]func(AppState)),
	}
}

func (n *Notifier) State() AppState {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

func (n *Notifier) Subscribe(fn func(AppState)) func() {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.nextID++
	id := n.nextID
	n.listeners[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			defer n.mu.Unlock()
			delete(n.listeners, id)
		})
	}
}

// Set records the new state and notifies listeners when it changed.
// Concurrent Sets are delivered in the order they were recorded; a
// listener must not call Set.
func (n *Notifier) Set(state AppState) {
	n.deliverMu.Lock()
	defer n.deliverMu.Unlock()

	n.mu.Lock()
	if state == n.state {
		n.mu.Unlock()
		return
	}
	n.state = state
	fns := make([]func(AppState), 0, len(n.listeners))
	for _, fn := range n.listeners {
		fns = append(fns, fn)
	}
	n.mu.Unlock()

	for _, fn := range fns {
		fn(state)
	}
}

// ListenerCount returns the number of live subscriptions.
func (n *Notifier) ListenerCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.listeners)
}
