// Package geolocation is the boundary to the device position provider.
package geolocation

import (
	"context"
	"errors"
	"time"
)

var (
	ErrTimeout          = errors.New("position request timed out")
	ErrUnavailable      = errors.New("position unavailable")
	ErrPermissionDenied = errors.New("position permission denied")
)

// Position is a raw device fix. Only Latitude, Longitude and Timestamp are
// guaranteed; the rest depends on device capability.
type Position struct {
	Latitude  float64
	Longitude float64
	Accuracy  *float64
	Altitude  *float64
	Heading   *float64
	Speed     *float64
	Timestamp time.Time
}

type PositionOptions struct {
	HighAccuracy bool
	Timeout      time.Duration
	MaximumAge   time.Duration
}

type WatchOptions struct {
	HighAccuracy bool
	// DistanceFilter is the minimum movement in meters between delivered fixes.
	DistanceFilter float64
	Interval       time.Duration
}

type WatchID int64

// Source produces device positions, one-shot or continuous.
type Source interface {
	CurrentPosition(ctx context.Context, opts PositionOptions) (Position, error)
	Watch(opts WatchOptions, onPosition func(Position), onError func(error)) (WatchID, error)
	ClearWatch(id WatchID)
}
