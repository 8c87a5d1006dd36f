package tracking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func speed(v float64) *float64 { return &v }

func TestTotalDistance_FewerThanTwoSamples(t *testing.T) {
	assert.Equal(t, 0.0, TotalDistance(nil))
	assert.Equal(t, 0.0, TotalDistance([]LocationSample{{Latitude: 30.70, Longitude: 76.71}}))
}

func TestTotalDistance_SumsConsecutivePairs(t *testing.T) {
	now := time.Now()
	samples := []LocationSample{
		{Latitude: 0, Longitude: 0, Timestamp: now},
		{Latitude: 1, Longitude: 0, Timestamp: now.Add(time.Minute)},
		{Latitude: 1, Longitude: 0, Timestamp: now.Add(2 * time.Minute)},
		{Latitude: 2, Longitude: 0, Timestamp: now.Add(3 * time.Minute)},
	}

	assert.InDelta(t, 2*111195.0, TotalDistance(samples), 2)
}

func TestAverageSpeed_NoPositiveSpeeds(t *testing.T) {
	samples := []LocationSample{
		{Speed: nil},
		{Speed: speed(0)},
		{Speed: speed(-1)},
	}

	assert.Equal(t, 0.0, AverageSpeed(samples))
}

func TestAverageSpeed_MeanOfPositiveSpeeds(t *testing.T) {
	samples := []LocationSample{{Speed: speed(2)}, {Speed: speed(4)}}

	assert.Equal(t, 3.0, AverageSpeed(samples))
}

func TestAverageSpeed_IgnoresMissingAndZero(t *testing.T) {
	samples := []LocationSample{{Speed: speed(2)}, {Speed: nil}, {Speed: speed(0)}, {Speed: speed(6)}}

	assert.Equal(t, 4.0, AverageSpeed(samples))
}

func TestAverageSpeed_SingleSample(t *testing.T) {
	assert.Equal(t, 0.0, AverageSpeed([]LocationSample{{Speed: speed(5)}}))
}

func TestTrackingSession_Clone(t *testing.T) {
	end := time.Now()
	s := TrackingSession{
		ID:            "s1",
		StartLocation: &LocationSample{Latitude: 1},
		EndTime:       &end,
		Locations:     []LocationSample{{Latitude: 1}},
	}

	c := s.Clone()
	c.Locations[0].Latitude = 2
	c.StartLocation.Latitude = 2

	assert.Equal(t, 1.0, s.Locations[0].Latitude)
	assert.Equal(t, 1.0, s.StartLocation.Latitude)
}

func TestStartTrackingRequest_Validate(t *testing.T) {
	req := StartTrackingRequest{}
	assert.Error(t, req.Validate())

	req = StartTrackingRequest{EmployeeID: "E1"}
	assert.NoError(t, req.Validate())
	assert.Equal(t, SessionTypeWork, req.SessionType)
}

func TestPositionRequest_Validate(t *testing.T) {
	bad := PositionRequest{Latitude: 91, Longitude: 181}
	err := bad.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "latitude")
	assert.Contains(t, err.Error(), "longitude")

	good := PositionRequest{Latitude: 30.70, Longitude: 76.71}
	assert.NoError(t, good.Validate())
}

func TestAppStateRequest_Validate(t *testing.T) {
	assert.NoError(t, (&AppStateRequest{State: "background"}).Validate())
	assert.Error(t, (&AppStateRequest{State: "sleeping"}).Validate())
}

func TestPermissionRequest_Validate(t *testing.T) {
	assert.NoError(t, (&PermissionRequest{Kind: "location", Granted: true}).Validate())
	assert.Error(t, (&PermissionRequest{Kind: "location_background", Granted: true}).Validate())
	assert.Error(t, (&PermissionRequest{}).Validate())
}
