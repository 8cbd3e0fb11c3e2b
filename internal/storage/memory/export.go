// internal/storage/memory/export.go
package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shubham78763/trafficSignal/pkg/core"
)

// SessionExport is the root JSON structure
type SessionExport struct {
	StartedAt     time.Time          `json:"startedAt"`
	EndedAt       time.Time          `json:"endedAt"`
	Intersections []IntersectionJSON `json:"intersections"`
}

// IntersectionJSON is one intersection and everything recorded for it
type IntersectionJSON struct {
	core.Intersection
	Deleted         bool                `json:"deleted,omitempty"`
	SignalChanges   []core.SignalUpdate `json:"signalChanges"`
	VehicleArrivals []core.VehicleEvent `json:"vehicleArrivals"`
	StatusChanges   []core.StatusChange `json:"statusChanges"`
}

// exportJSON writes the session to a (optionally gzipped) JSON file.
// Caller holds the write lock.
func (b *Backend) exportJSON() error {
	export := b.buildExport()

	filename := fmt.Sprintf("trafficsim_%s.json", b.startedAt.UTC().Format("20060102_150405"))
	if b.cfg.CompressOutput {
		filename += ".gz"
	}

	outputDir := b.cfg.OutputDir
	if outputDir == "" {
		outputDir = "."
	}
	outputPath := filepath.Join(outputDir, filename)

	// Ensure output directory exists
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	var err error
	if b.cfg.CompressOutput {
		err = writeGzipJSON(outputPath, export)
	} else {
		err = writeJSON(outputPath, export)
	}
	if err != nil {
		return err
	}

	b.lastExportPath = outputPath
	return nil
}

func (b *Backend) buildExport() SessionExport {
	export := SessionExport{
		StartedAt:     b.startedAt,
		EndedAt:       b.now(),
		Intersections: make([]IntersectionJSON, 0, len(b.order)),
	}

	for _, id := range b.order {
		r := b.records[id]
		export.Intersections = append(export.Intersections, IntersectionJSON{
			Intersection:    r.Intersection,
			Deleted:         r.Deleted,
			SignalChanges:   nonNil(r.SignalChanges),
			VehicleArrivals: nonNil(r.VehicleArrivals),
			StatusChanges:   nonNil(r.StatusChanges),
		})
	}

	return export
}

// nonNil keeps empty collections as [] rather than null in the export.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func writeJSON(path string, data SessionExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	return encoder.Encode(data)
}

func writeGzipJSON(path string, data SessionExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gzWriter := gzip.NewWriter(f)
	defer gzWriter.Close()

	encoder := json.NewEncoder(gzWriter)
	return encoder.Encode(data)
}
