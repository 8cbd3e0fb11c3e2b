// pkg/core/intersection.go
package core

import "time"

// SignalColor is the lamp shown to one approach of an intersection.
type SignalColor string

const (
	Red    SignalColor = "RED"
	Yellow SignalColor = "YELLOW"
	Green  SignalColor = "GREEN"
)

// DefaultDuration returns the configured duration in seconds for a color.
func (c SignalColor) DefaultDuration() int {
	switch c {
	case Yellow:
		return 5
	case Green:
		return 25
	default:
		return 30
	}
}

// SignalState is one direction's signal. Duration is metadata only.
type SignalState struct {
	State    SignalColor `json:"state"`
	Duration int         `json:"duration"`
}

// SignalPhaseSet holds the signal for each approach.
type SignalPhaseSet struct {
	North SignalState `json:"north"`
	South SignalState `json:"south"`
	East  SignalState `json:"east"`
	West  SignalState `json:"west"`
}

// DefaultPhaseSet returns the all-RED configuration used for new and freshly
// started intersections.
func DefaultPhaseSet() SignalPhaseSet {
	red := SignalState{State: Red, Duration: Red.DefaultDuration()}
	return SignalPhaseSet{North: red, South: red, East: red, West: red}
}

// Phase names the combined state of the four approaches.
type Phase string

const (
	PhaseAllRed          Phase = "ALL-RED"
	PhaseNorthSouthGreen Phase = "NS-GREEN"
	PhaseEastWestGreen   Phase = "EW-GREEN"
	PhaseInvalid         Phase = "INVALID"
)

// Phase classifies the set. Anything violating the paired-direction invariant
// is reported as PhaseInvalid.
func (s SignalPhaseSet) Phase() Phase {
	if s.North.State != s.South.State || s.East.State != s.West.State {
		return PhaseInvalid
	}
	switch {
	case s.North.State == Red && s.East.State == Red:
		return PhaseAllRed
	case s.North.State == Green && s.East.State == Red:
		return PhaseNorthSouthGreen
	case s.North.State == Red && s.East.State == Green:
		return PhaseEastWestGreen
	default:
		return PhaseInvalid
	}
}

// WithPairs returns a copy with the north/south pair set to ns and the
// east/west pair set to ew. Durations are kept.
func (s SignalPhaseSet) WithPairs(ns, ew SignalColor) SignalPhaseSet {
	s.North.State = ns
	s.South.State = ns
	s.East.State = ew
	s.West.State = ew
	return s
}

// Coordinates is a WGS84 latitude/longitude pair.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Intersection is the simulation record owned by the registry.
type Intersection struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Location     string         `json:"location"`
	Coordinates  Coordinates    `json:"coordinates"`
	Signals      SignalPhaseSet `json:"signals"`
	VehicleCount int            `json:"vehicleCount"`
	IsActive     bool           `json:"isActive"`
	CreatedAt    time.Time      `json:"createdAt"`
	LastUpdated  time.Time      `json:"lastUpdated"`
}

// Snapshot returns the collaborator read view of the intersection.
func (i Intersection) Snapshot() Snapshot {
	return Snapshot{
		Signals:      i.Signals,
		VehicleCount: i.VehicleCount,
		IsActive:     i.IsActive,
		LastUpdated:  i.LastUpdated,
	}
}

// Snapshot is the current engine state of a single intersection.
type Snapshot struct {
	Signals      SignalPhaseSet `json:"signals"`
	VehicleCount int            `json:"vehicleCount"`
	IsActive     bool           `json:"isActive"`
	LastUpdated  time.Time      `json:"lastUpdated"`
}

// NewIntersection carries the fields an external creator supplies.
type NewIntersection struct {
	Name        string      `json:"name"`
	Location    string      `json:"location"`
	Coordinates Coordinates `json:"coordinates"`
}
