package model

import (
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&Intersection{},
	&SignalChange{},
	&VehicleArrival{},
	&StatusChange{},
}

////////////////////////
// INTERSECTION MODELS
////////////////////////

// Intersection is the persisted intersection record. The engine id is the
// primary key so that restored rows keep their identity across restarts.
type Intersection struct {
	ID           string         `json:"id" gorm:"primaryKey;size:64"`
	Name         string         `json:"name" gorm:"size:200"`
	Location     string         `json:"location" gorm:"size:200"`
	Latitude     float64        `json:"latitude"`
	Longitude    float64        `json:"longitude"`
	Position     geom.Point     `json:"position"` // EPSG:3857
	Signals      datatypes.JSON `json:"signals"`
	VehicleCount int            `json:"vehicleCount" gorm:"default:0"`
	IsActive     bool           `json:"isActive" gorm:"default:false"`
	CreatedAt    time.Time      `json:"createdAt" gorm:"index:idx_intersection_created_at"`
	LastUpdated  time.Time      `json:"lastUpdated"`
}

func (*Intersection) TableName() string {
	return "intersections"
}

////////////////////////
// EVENT MODELS
////////////////////////

// SignalChange is one scheduler tick.
type SignalChange struct {
	ID             uint           `json:"id" gorm:"primarykey;autoIncrement;"`
	Time           time.Time      `json:"time" gorm:"index:idx_signalchange_time"`
	IntersectionID string         `json:"intersectionId" gorm:"size:64;index:idx_signalchange_intersection_id"`
	Cycle          uint64         `json:"cycle"`
	Phase          string         `json:"phase" gorm:"size:16"`
	Signals        datatypes.JSON `json:"signals"`
}

func (*SignalChange) TableName() string {
	return "signal_changes"
}

// VehicleArrival is one simulated vehicle.
type VehicleArrival struct {
	ID             uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time           time.Time `json:"time" gorm:"index:idx_vehiclearrival_time"`
	EventID        string    `json:"eventId" gorm:"size:64;index:idx_vehiclearrival_event_id"`
	IntersectionID string    `json:"intersectionId" gorm:"size:64;index:idx_vehiclearrival_intersection_id"`
	VehicleID      string    `json:"vehicleId" gorm:"size:128"`
	VehicleType    string    `json:"vehicleType" gorm:"size:16"`
	Direction      string    `json:"direction" gorm:"size:8"`
	Priority       int       `json:"priority"`
}

func (*VehicleArrival) TableName() string {
	return "vehicle_arrivals"
}

// StatusChange records every Active/Inactive transition.
type StatusChange struct {
	ID             uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time           time.Time `json:"time" gorm:"index:idx_statuschange_time"`
	IntersectionID string    `json:"intersectionId" gorm:"size:64;index:idx_statuschange_intersection_id"`
	IsActive       bool      `json:"isActive"`
	Reason         string    `json:"reason" gorm:"size:16"`
}

func (*StatusChange) TableName() string {
	return "status_changes"
}
