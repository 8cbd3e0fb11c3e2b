package streaming

import (
	"encoding/json"
	"fmt"

	"github.com/shubham78763/trafficSignal/pkg/core"
)

// Message types exchanged over the gateway and the websocket storage backend.
const (
	TypeSnapshot           = "intersections"
	TypeSignalUpdate       = "signalUpdate"
	TypeVehicleArrival     = "vehicleArrival"
	TypeIntersectionStatus = "intersectionStatus"
	TypeSaveIntersection   = "saveIntersection"
	TypeDeleteIntersection = "deleteIntersection"

	TypeStartIntersection = "startIntersection"
	TypeStopIntersection  = "stopIntersection"
	TypeAck               = "ack"
	TypeError             = "error"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the server's acknowledgement response.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`  // the message type being acknowledged
}

// ErrorMessage reports a failed inbound command.
type ErrorMessage struct {
	Type    string `json:"type"` // always "error"
	For     string `json:"for"`
	Message string `json:"message"`
}

// IntersectionRef names an intersection in inbound commands.
type IntersectionRef struct {
	IntersectionID string `json:"intersectionId"`
}

// VehicleArrivedPayload is the wire shape of a vehicle arrival.
type VehicleArrivedPayload struct {
	IntersectionID string            `json:"intersectionId"`
	Vehicle        core.VehicleEvent `json:"vehicle"`
}

// SnapshotPayload is sent to each gateway client on connect.
type SnapshotPayload struct {
	Intersections []core.Intersection `json:"intersections"`
}

// Encode marshals payload into an Envelope of the given type.
func Encode(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	return json.Marshal(Envelope{Type: msgType, Payload: raw})
}

// EncodeEvent marshals a broadcaster event into its wire envelope.
func EncodeEvent(e core.Event) ([]byte, error) {
	switch e.Kind {
	case core.KindSignalUpdate:
		return Encode(TypeSignalUpdate, e.Signal)
	case core.KindVehicleArrival:
		return Encode(TypeVehicleArrival, VehicleArrivedPayload{
			IntersectionID: e.Vehicle.IntersectionID,
			Vehicle:        *e.Vehicle,
		})
	case core.KindStatusChange:
		return Encode(TypeIntersectionStatus, e.Status)
	}
	return nil, fmt.Errorf("unknown event kind: %s", e.Kind)
}
