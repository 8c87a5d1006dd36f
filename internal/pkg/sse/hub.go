package sse

import (
	"sync"
	"time"
)

// Event types published by the tracker
const (
	EventSessionStarted      = "session_started"
	EventSessionStopped      = "session_stopped"
	EventLocation            = "location"
	EventQueueChanged        = "queue_changed"
	EventSyncCompleted       = "sync_completed"
	EventPermissionRequested = "permission_requested"
)

// Event represents an SSE event to be sent to subscribers
type Event struct {
	EmployeeID string      `json:"employee_id,omitempty"`
	Type       string      `json:"type"`
	Data       interface{} `json:"data,omitempty"`
	At         time.Time   `json:"at"`
}

// Hub manages SSE subscribers and event broadcasting
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan Event]struct{}
}

// NewHub creates a new SSE Hub instance
func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[string]map[chan Event]struct{}),
	}
}

// Subscribe registers a new subscriber for an employee and returns the event channel and cleanup function
func (h *Hub) Subscribe(employeeID string) (chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Event, 16)

	if h.subscribers[employeeID] == nil {
		h.subscribers[employeeID] = make(map[chan Event]struct{})
	}
	h.subscribers[employeeID][ch] = struct{}{}

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subscribers[employeeID], ch)
			close(ch)
			if len(h.subscribers[employeeID]) == 0 {
				delete(h.subscribers, employeeID)
			}
		})
	}

	return ch, cleanup
}

// Publish sends an event to all subscribers of a specific employee
func (h *Hub) Publish(employeeID string, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	event.EmployeeID = employeeID
	if event.At.IsZero() {
		event.At = time.Now()
	}
	for ch := range h.subscribers[employeeID] {
		send(ch, event)
	}
}

// Broadcast sends an event to every subscriber
func (h *Hub) Broadcast(event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if event.At.IsZero() {
		event.At = time.Now()
	}
	for _, subs := range h.subscribers {
		for ch := range subs {
			send(ch, event)
		}
	}
}

func send(ch chan Event, event Event) {
	select {
	case ch <- event:
	default:
		// Skip if channel is full (non-blocking to prevent deadlock)
	}
}

// SubscriberCount returns the number of active subscribers for an employee
func (h *Hub) SubscriberCount(employeeID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if subs, ok := h.subscribers[employeeID]; ok {
		return len(subs)
	}
	return 0
}

// TotalSubscribers returns the total number of active subscribers
func (h *Hub) TotalSubscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	total := 0
	for _, subs := range h.subscribers {
		total += len(subs)
	}
	return total
}
