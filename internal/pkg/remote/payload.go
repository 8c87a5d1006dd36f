package remote

import (
	"encoding/json"
	"time"

	"github.com/cmlabs-hris/attendance-tracker-go/internal/domain/tracking"
	"github.com/twpayne/go-geom"
	gjson "github.com/twpayne/go-geom/encoding/geojson"
)

type locationPayload struct {
	SessionID    string    `json:"session_id"`
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
	Accuracy     *float64  `json:"accuracy,omitempty"`
	Altitude     *float64  `json:"altitude,omitempty"`
	Heading      *float64  `json:"heading,omitempty"`
	Speed        *float64  `json:"speed,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
	IsBackground bool      `json:"is_background"`
}

func newLocationPayload(s tracking.LocationSample) locationPayload {
	return locationPayload{
		SessionID:    s.SessionID,
		Latitude:     s.Latitude,
		Longitude:    s.Longitude,
		Accuracy:     s.Accuracy,
		Altitude:     s.Altitude,
		Heading:      s.Heading,
		Speed:        s.Speed,
		Timestamp:    s.Timestamp,
		IsBackground: s.IsBackground,
	}
}

type sessionPayload struct {
	ID                  string                    `json:"id"`
	EmployeeID          string                    `json:"employee_id"`
	Type                tracking.SessionType      `json:"type"`
	StartTime           time.Time                 `json:"start_time"`
	EndTime             *time.Time                `json:"end_time,omitempty"`
	StartLocation       *tracking.LocationSample  `json:"start_location,omitempty"`
	Locations           []tracking.LocationSample `json:"locations"`
	LocationCount       int                       `json:"location_count"`
	TotalDistanceMeters float64                   `json:"total_distance_meters"`
	Route               json.RawMessage           `json:"route,omitempty"`
}

func newSessionPayload(s tracking.TrackingSession) (sessionPayload, error) {
	route, err := encodeRoute(s.Locations)
	if err != nil {
		return sessionPayload{}, err
	}

	locations := s.Locations
	if locations == nil {
		locations = []tracking.LocationSample{}
	}

	return sessionPayload{
		ID:                  s.ID,
		EmployeeID:          s.EmployeeID,
		Type:                s.Type,
		StartTime:           s.StartTime,
		EndTime:             s.EndTime,
		StartLocation:       s.StartLocation,
		Locations:           locations,
		LocationCount:       len(s.Locations),
		TotalDistanceMeters: tracking.TotalDistance(s.Locations),
		Route:               route,
	}, nil
}

// encodeRoute returns the samples as a GeoJSON LineString, nil when there
// are fewer than two points.
func encodeRoute(samples []tracking.LocationSample) (json.RawMessage, error) {
	if len(samples) < 2 {
		return nil, nil
	}

	coords := make([]geom.Coord, 0, len(samples))
	for _, s := range samples {
		coords = append(coords, geom.Coord{s.Longitude, s.Latitude})
	}

	line, err := geom.NewLineString(geom.XY).SetCoords(coords)
	if err != nil {
		return nil, err
	}

	b, err := gjson.Marshal(line)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(b), nil
}
