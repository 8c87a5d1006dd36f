// Package reachability reports network connectivity transitions.
package reachability

import (
	"sync"
)

// Monitor is the network reachability subscription.
type Monitor interface {
	IsConnected() bool
	// Subscribe registers fn for connectivity changes; the returned func releases it
	Subscribe(fn func(isConnected bool)) (unsubscribe func())
}

// Notifier is a Monitor driven by Set, from the native layer or a Prober.
type Notifier struct {
	// deliverMu orders Set calls end to end, listeners included
	deliverMu sync.Mutex
	mu        sync.Mutex
	connected bool
	nextID    int
	listeners map[int]func(bool)
}

func NewNotifier(connected bool) *Notifier {
	return &Notifier{
		connected: connected,
		listeners: make(map[int]func(bool)),
	}
}

func (n *Notifier) IsConnected() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.connected
}

func (n *Notifier) Subscribe(fn func(bool)) func() {
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

// Set records connectivity and notifies listeners when it changed. Delivery
// is serialised so listeners observe transitions in order.
func (n *Notifier) Set(connected bool) {
	n.deliverMu.Lock()
	defer n.deliverMu.Unlock()

	n.mu.Lock()
	if connected == n.connected {
		n.mu.Unlock()
		return
	}
	n.connected = connected
	fns := make([]func(bool), 0, len(n.listeners))
	for _, fn := range n.listeners {
		fns = append(fns, fn)
	}
	n.mu.Unlock()

	for _, fn := range fns {
		fn(connected)
	}
}

// ListenerCount returns the number of live subscriptions.
func (n *Notifier) ListenerCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.listeners)
}
