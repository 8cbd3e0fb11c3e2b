// internal/storage/storage.go
package storage

import (
	"errors"
	"time"

	"github.com/shubham78763/trafficSignal/pkg/core"
)

// ErrNotInitialized is returned by backends used before Init.
var ErrNotInitialized = errors.New("storage backend not initialized")

// Backend is the interface all storage implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Intersection records
	SaveIntersection(i *core.Intersection) error
	DeleteIntersection(id string) error

	// Event recording
	RecordSignalChange(u *core.SignalUpdate) error
	RecordVehicleArrival(v *core.VehicleEvent) error
	RecordStatusChange(s *core.StatusChange) error
}

// Loader is an optional interface for backends that can restore the
// intersections saved by a previous run.
type Loader interface {
	LoadIntersections() ([]core.Intersection, error)
}

// Exporter is an optional interface for backends that produce a file
// suitable for upload to a remote collector.
type Exporter interface {
	ExportPath() string
	ExportMetadata() ExportMetadata
}

// ExportMetadata describes an export for the upload request.
type ExportMetadata struct {
	Intersections   int           `json:"intersections"`
	SignalChanges   int           `json:"signalChanges"`
	VehicleArrivals int           `json:"vehicleArrivals"`
	StartedAt       time.Time     `json:"startedAt"`
	Duration        time.Duration `json:"duration"`
}
