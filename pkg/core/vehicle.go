// pkg/core/vehicle.go
package core

import "time"

// Direction is the approach a vehicle arrives from.
type Direction string

const (
	North Direction = "NORTH"
	South Direction = "SOUTH"
	East  Direction = "EAST"
	West  Direction = "WEST"
)

// Directions lists all approaches in a stable order.
var Directions = [4]Direction{North, South, East, West}

// ParseDirection maps a wire value to a Direction, defaulting to North.
func ParseDirection(s string) Direction {
	switch Direction(s) {
	case South, East, West:
		return Direction(s)
	default:
		return North
	}
}

// VehicleType classifies an arriving vehicle.
type VehicleType string

const (
	Car        VehicleType = "CAR"
	Truck      VehicleType = "TRUCK"
	Motorcycle VehicleType = "MOTORCYCLE"
	Emergency  VehicleType = "EMERGENCY"
)

// VehicleTypes lists all vehicle types in a stable order.
var VehicleTypes = [4]VehicleType{Car, Truck, Motorcycle, Emergency}

// Priority returns 10 for emergency vehicles and 1 for everything else.
func (t VehicleType) Priority() int {
	if t == Emergency {
		return 10
	}
	return 1
}

// VehicleEvent records one synthetic arrival. Immutable once emitted.
type VehicleEvent struct {
	ID             string      `json:"id"`
	VehicleID      string      `json:"vehicleId"`
	Type           VehicleType `json:"type"`
	IntersectionID string      `json:"intersectionId"`
	Direction      Direction   `json:"direction"`
	Priority       int         `json:"priority"`
	Timestamp      time.Time   `json:"timestamp"`
}
