package influx

import (
	"fmt"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/shubham78763/trafficSignal/pkg/core"
)

// SignalChangePoint is one scheduler tick.
func SignalChangePoint(u core.SignalUpdate) *influxdb2_write.Point {
	return influxdb2_write.NewPointWithMeasurement("signal_change").
		AddTag("intersection_id", u.IntersectionID).
		AddTag("phase", string(u.Phases.Phase())).
		AddField("cycle", int64(u.Cycle)).
		AddField("north", string(u.Phases.North.State)).
		AddField("east", string(u.Phases.East.State)).
		SetTime(u.Timestamp)
}

// VehicleArrivalPoint is one simulated vehicle.
func VehicleArrivalPoint(v core.VehicleEvent) *influxdb2_write.Point {
	return influxdb2_write.NewPointWithMeasurement("vehicle_arrival").
		AddTag("intersection_id", v.IntersectionID).
		AddTag("type", string(v.Type)).
		AddTag("direction", string(v.Direction)).
		AddField("vehicle_id", v.VehicleID).
		AddField("priority", v.Priority).
		SetTime(v.Timestamp)
}

// StatusPoint is an activity transition.
func StatusPoint(s core.StatusChange) *influxdb2_write.Point {
	return influxdb2_write.NewPointWithMeasurement("intersection_status").
		AddTag("intersection_id", s.IntersectionID).
		AddTag("reason", string(s.Reason)).
		AddField("active", s.IsActive).
		SetTime(s.Timestamp)
}

// EventPoint dispatches on the event kind.
func EventPoint(e core.Event) (*influxdb2_write.Point, error) {
	switch {
	case e.Kind == core.KindSignalUpdate && e.Signal != nil:
		return SignalChangePoint(*e.Signal), nil
	case e.Kind == core.KindVehicleArrival && e.Vehicle != nil:
		return VehicleArrivalPoint(*e.Vehicle), nil
	case e.Kind == core.KindStatusChange && e.Status != nil:
		return StatusPoint(*e.Status), nil
	}
	return nil, fmt.Errorf("no point for event kind %q", e.Kind)
}
