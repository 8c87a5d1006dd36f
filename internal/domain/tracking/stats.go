package tracking

import (
	"github.com/cmlabs-hris/attendance-tracker-go/internal/pkg/utils"
)

// TotalDistance sums the great-circle distance between consecutive samples, in meters.
func TotalDistance(samples []LocationSample) float64 {
	points := make([]utils.Point, len(samples))
	for i, s := range samples {
		points[i] = utils.Point{Lat: s.Latitude, Lng: s.Longitude}
	}
	return utils.PathLength(points)
}

// AverageSpeed is the mean of the positive speeds reported. It is 0 when
// fewer than two samples exist or none reports a positive speed.
func AverageSpeed(samples []LocationSample) float64 {
	if len(samples) < 2 {
		return 0
	}
	sum := 0.0
	n := 0
	for _, s := range samples {
		if s.Speed != nil && *s.Speed > 0 {
			sum += *s.Speed
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
