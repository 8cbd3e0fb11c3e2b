package convert

import (
	"encoding/json"

	"github.com/shubham78763/trafficSignal/internal/geo"
	"github.com/shubham78763/trafficSignal/internal/model"
	"github.com/shubham78763/trafficSignal/pkg/core"
)

// jsonToSignals decodes stored signals, falling back to the all-RED set.
func jsonToSignals(data []byte) core.SignalPhaseSet {
	if len(data) == 0 {
		return core.DefaultPhaseSet()
	}
	var s core.SignalPhaseSet
	if err := json.Unmarshal(data, &s); err != nil {
		return core.DefaultPhaseSet()
	}
	return s
}

// IntersectionToCore converts a GORM Intersection to a core.Intersection.
// The lat/lng columns win; the point is only read when both are zero.
func IntersectionToCore(i model.Intersection) core.Intersection {
	coords := core.Coordinates{Lat: i.Latitude, Lng: i.Longitude}
	if coords == (core.Coordinates{}) {
		coords = geo.CoordinatesFromPoint(i.Position)
	}
	return core.Intersection{
		ID:           i.ID,
		Name:         i.Name,
		Location:     i.Location,
		Coordinates:  coords,
		Signals:      jsonToSignals(i.Signals),
		VehicleCount: i.VehicleCount,
		IsActive:     i.IsActive,
		CreatedAt:    i.CreatedAt,
		LastUpdated:  i.LastUpdated,
	}
}

// VehicleArrivalToCore converts a GORM VehicleArrival to a core.VehicleEvent.
func VehicleArrivalToCore(v model.VehicleArrival) core.VehicleEvent {
	return core.VehicleEvent{
		ID:             v.EventID,
		VehicleID:      v.VehicleID,
		Type:           core.VehicleType(v.VehicleType),
		IntersectionID: v.IntersectionID,
		Direction:      core.ParseDirection(v.Direction),
		Priority:       v.Priority,
		Timestamp:      v.Time,
	}
}
