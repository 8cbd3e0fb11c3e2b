package convert

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shubham78763/trafficSignal/internal/geo"
	"github.com/shubham78763/trafficSignal/internal/model"
	"github.com/shubham78763/trafficSignal/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

var testTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func testIntersection() core.Intersection {
	return core.Intersection{
		ID:           "int-1",
		Name:         "Main & 1st",
		Location:     "Downtown",
		Coordinates:  core.Coordinates{Lat: 40.7128, Lng: -74.006},
		Signals:      core.DefaultPhaseSet().WithPairs(core.Green, core.Red),
		VehicleCount: 7,
		IsActive:     true,
		CreatedAt:    testTime,
		LastUpdated:  testTime.Add(time.Minute),
	}
}

func TestCoreToIntersection(t *testing.T) {
	row, err := CoreToIntersection(testIntersection())
	require.NoError(t, err)

	assert.Equal(t, "int-1", row.ID)
	assert.Equal(t, "Main & 1st", row.Name)
	assert.Equal(t, 40.7128, row.Latitude)
	assert.Equal(t, -74.006, row.Longitude)
	assert.Equal(t, 7, row.VehicleCount)
	assert.True(t, row.IsActive)

	xy, ok := row.Position.XY()
	require.True(t, ok)
	assert.InDelta(t, -8238310.0, xy.X, 10)

	var signals core.SignalPhaseSet
	require.NoError(t, json.Unmarshal(row.Signals, &signals))
	assert.Equal(t, core.PhaseNorthSouthGreen, signals.Phase())
}

func TestCoreToIntersection_InvalidCoordinates(t *testing.T) {
	i := testIntersection()
	i.Coordinates.Lat = 91
	_, err := CoreToIntersection(i)
	assert.ErrorIs(t, err, geo.ErrInvalidCoordinates)
}

func TestIntersectionRoundTrip(t *testing.T) {
	in := testIntersection()
	row, err := CoreToIntersection(in)
	require.NoError(t, err)
	assert.Equal(t, in, IntersectionToCore(row))
}

func TestIntersectionToCore_FallsBackToPoint(t *testing.T) {
	pt, err := geo.PointFromCoordinates(core.Coordinates{Lat: 51.5, Lng: -0.12})
	require.NoError(t, err)

	got := IntersectionToCore(model.Intersection{ID: "x", Position: pt})
	assert.InDelta(t, 51.5, got.Coordinates.Lat, 1e-6)
	assert.InDelta(t, -0.12, got.Coordinates.Lng, 1e-6)
}

func TestIntersectionToCore_BadSignals(t *testing.T) {
	tests := []struct {
		name    string
		signals datatypes.JSON
	}{
		{"empty", nil},
		{"garbage", datatypes.JSON("not json")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IntersectionToCore(model.Intersection{ID: "x", Signals: tt.signals})
			assert.Equal(t, core.DefaultPhaseSet(), got.Signals)
		})
	}
}

func TestCoreToSignalChange(t *testing.T) {
	u := core.SignalUpdate{
		IntersectionID: "int-1",
		Phases:         core.DefaultPhaseSet().WithPairs(core.Red, core.Green),
		Cycle:          3,
		Timestamp:      testTime,
	}
	row := CoreToSignalChange(u)
	assert.Equal(t, "int-1", row.IntersectionID)
	assert.Equal(t, uint64(3), row.Cycle)
	assert.Equal(t, "EW-GREEN", row.Phase)
	assert.Equal(t, testTime, row.Time)
	assert.Contains(t, string(row.Signals), `"east":{"state":"GREEN"`)
}

func TestVehicleArrivalRoundTrip(t *testing.T) {
	v := core.VehicleEvent{
		ID:             "ev-1",
		VehicleID:      "int-1_V4",
		Type:           core.Emergency,
		IntersectionID: "int-1",
		Direction:      core.West,
		Priority:       10,
		Timestamp:      testTime,
	}
	row := CoreToVehicleArrival(v)
	assert.Equal(t, "ev-1", row.EventID)
	assert.Equal(t, "EMERGENCY", row.VehicleType)
	assert.Equal(t, "WEST", row.Direction)
	assert.Equal(t, v, VehicleArrivalToCore(row))
}

func TestCoreToStatusChange(t *testing.T) {
	row := CoreToStatusChange(core.StatusChange{
		IntersectionID: "int-1",
		IsActive:       false,
		Reason:         core.ReasonExpired,
		Timestamp:      testTime,
	})
	assert.Equal(t, "int-1", row.IntersectionID)
	assert.False(t, row.IsActive)
	assert.Equal(t, "expired", row.Reason)
}
