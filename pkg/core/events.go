// pkg/core/events.go
package core

import "time"

// SignalUpdate is published after every scheduler tick. Cycle is the
// zero-based tick index within the current lifecycle.
type SignalUpdate struct {
	IntersectionID string         `json:"intersectionId"`
	Phases         SignalPhaseSet `json:"phases"`
	Cycle          uint64         `json:"cycle"`
	Timestamp      time.Time      `json:"timestamp"`
}

// StatusReason explains why an intersection changed activity.
type StatusReason string

const (
	ReasonStarted StatusReason = "started"
	ReasonStopped StatusReason = "stopped"
	ReasonExpired StatusReason = "expired"
	ReasonDeleted StatusReason = "deleted"
)

// StatusChange is published whenever IsActive flips or a record is removed.
type StatusChange struct {
	IntersectionID string       `json:"intersectionId"`
	IsActive       bool         `json:"isActive"`
	Reason         StatusReason `json:"reason"`
	Timestamp      time.Time    `json:"timestamp"`
}

// EventKind tags an Event.
type EventKind string

const (
	KindSignalUpdate   EventKind = "signalUpdate"
	KindVehicleArrival EventKind = "vehicleArrival"
	KindStatusChange   EventKind = "intersectionStatus"
)

// Event is the tagged union delivered by the broadcaster. Exactly one of the
// payload pointers is set, matching Kind.
type Event struct {
	Kind    EventKind     `json:"kind"`
	Signal  *SignalUpdate `json:"signal,omitempty"`
	Vehicle *VehicleEvent `json:"vehicle,omitempty"`
	Status  *StatusChange `json:"status,omitempty"`
}

// IntersectionID returns the id of the intersection the event refers to.
func (e Event) IntersectionID() string {
	switch {
	case e.Signal != nil:
		return e.Signal.IntersectionID
	case e.Vehicle != nil:
		return e.Vehicle.IntersectionID
	case e.Status != nil:
		return e.Status.IntersectionID
	}
	return ""
}

// NewSignalEvent wraps a SignalUpdate.
func NewSignalEvent(u SignalUpdate) Event {
	return Event{Kind: KindSignalUpdate, Signal: &u}
}

// NewVehicleEvent wraps a VehicleEvent.
func NewVehicleEvent(v VehicleEvent) Event {
	return Event{Kind: KindVehicleArrival, Vehicle: &v}
}

// NewStatusEvent wraps a StatusChange.
func NewStatusEvent(s StatusChange) Event {
	return Event{Kind: KindStatusChange, Status: &s}
}
