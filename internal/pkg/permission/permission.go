// Package permission answers device permission checks.
package permission

import (
	"context"
	"sync"
)

type Kind string

const KindLocation Kind = "location"

type Status string

const (
	StatusGranted      Status = "granted"
	StatusDenied       Status = "denied"
	StatusUndetermined Status = "undetermined"
)

// Checker is the permission capability.
type Checker interface {
	Check(ctx context.Context, kind Kind) (Status, error)
	Request(ctx context.Context, kind Kind) (Status, error)
}

// Registry holds the grants reported by the native layer. Request cannot
// show a dialog itself; it hands the request to onRequest (typically an
// event for the UI) and answers with the last known status.
type Registry struct {
	mu        sync.RWMutex
	grants    map[Kind]Status
	onRequest func(Kind)
}

func NewRegistry(onRequest func(Kind)) *Registry {
	return &Registry{
		grants:    make(map[Kind]Status),
		onRequest: onRequest,
	}
}

// Set records what the device reported for kind.
func (r *Registry) Set(kind Kind, granted bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if granted {
		r.grants[kind] = StatusGranted
	} else {
		r.grants[kind] = StatusDenied
	}
}

func (r *Registry) Check(ctx context.Context, kind Kind) (Status, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	status, ok := r.grants[kind]
	if !ok {
		return StatusUndetermined, nil
	}
	return status, nil
}

func (r *Registry) Request(ctx context.Context, kind Kind) (Status, error) {
	if r.onRequest != nil {
		r.onRequest(kind)
	}
	return r.Check(ctx, kind)
}
