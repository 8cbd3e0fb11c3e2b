// Package convert provides functions to convert between GORM models and core models
package convert

import (
	"encoding/json"
	"fmt"

	"github.com/shubham78763/trafficSignal/internal/geo"
	"github.com/shubham78763/trafficSignal/internal/model"
	"github.com/shubham78763/trafficSignal/pkg/core"
	"gorm.io/datatypes"
)

// signalsToJSON converts a phase set to datatypes.JSON for DB storage.
func signalsToJSON(s core.SignalPhaseSet) datatypes.JSON {
	data, err := json.Marshal(s)
	if err != nil {
		return datatypes.JSON("{}")
	}
	return datatypes.JSON(data)
}

// CoreToIntersection converts a core.Intersection to a GORM model.Intersection.
// The stored point is the EPSG:3857 projection of the coordinates.
func CoreToIntersection(i core.Intersection) (model.Intersection, error) {
	pt, err := geo.PointFromCoordinates(i.Coordinates)
	if err != nil {
		return model.Intersection{}, fmt.Errorf("intersection %s: %w", i.ID, err)
	}
	return model.Intersection{
		ID:           i.ID,
		Name:         i.Name,
		Location:     i.Location,
		Latitude:     i.Coordinates.Lat,
		Longitude:    i.Coordinates.Lng,
		Position:     pt,
		Signals:      signalsToJSON(i.Signals),
		VehicleCount: i.VehicleCount,
		IsActive:     i.IsActive,
		CreatedAt:    i.CreatedAt,
		LastUpdated:  i.LastUpdated,
	}, nil
}

// CoreToSignalChange converts a scheduler tick to a GORM model.SignalChange.
func CoreToSignalChange(u core.SignalUpdate) model.SignalChange {
	return model.SignalChange{
		Time:           u.Timestamp,
		IntersectionID: u.IntersectionID,
		Cycle:          u.Cycle,
		Phase:          string(u.Phases.Phase()),
		Signals:        signalsToJSON(u.Phases),
	}
}

// CoreToVehicleArrival converts a core.VehicleEvent to a GORM model.VehicleArrival.
// core.VehicleEvent.ID maps to GORM VehicleArrival.EventID.
func CoreToVehicleArrival(v core.VehicleEvent) model.VehicleArrival {
	return model.VehicleArrival{
		Time:           v.Timestamp,
		EventID:        v.ID,
		IntersectionID: v.IntersectionID,
		VehicleID:      v.VehicleID,
		VehicleType:    string(v.Type),
		Direction:      string(v.Direction),
		Priority:       v.Priority,
	}
}

// CoreToStatusChange converts a core.StatusChange to a GORM model.StatusChange.
func CoreToStatusChange(s core.StatusChange) model.StatusChange {
	return model.StatusChange{
		Time:           s.Timestamp,
		IntersectionID: s.IntersectionID,
		IsActive:       s.IsActive,
		Reason:         string(s.Reason),
	}
}
