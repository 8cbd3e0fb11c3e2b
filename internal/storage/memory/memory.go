// internal/storage/memory/memory.go
package memory

import (
	"sync"
	"time"

	"github.com/shubham78763/trafficSignal/internal/config"
	"github.com/shubham78763/trafficSignal/internal/storage"
	"github.com/shubham78763/trafficSignal/pkg/core"
)

// IntersectionRecord groups an intersection with all its time-series data
type IntersectionRecord struct {
	Intersection    core.Intersection
	SignalChanges   []core.SignalUpdate
	VehicleArrivals []core.VehicleEvent
	StatusChanges   []core.StatusChange
	Deleted         bool
}

// Backend stores a session in memory and exports it to JSON on Close
type Backend struct {
	cfg config.MemoryConfig
	now func() time.Time

	records   map[string]*IntersectionRecord
	order     []string // first-seen order, stable export
	startedAt time.Time
	ready     bool

	lastExportPath string
	mu             sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{
		cfg:     cfg,
		now:     time.Now,
		records: make(map[string]*IntersectionRecord),
	}
}

// Init starts a new recording session, discarding anything held
func (b *Backend) Init() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.records = make(map[string]*IntersectionRecord)
	b.order = nil
	b.startedAt = b.now()
	b.lastExportPath = ""
	b.ready = true
	return nil
}

// Close finalizes and exports the session
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.ready {
		return nil
	}
	b.ready = false
	return b.exportJSON()
}

// record returns the record for id, creating a placeholder when unseen.
// Caller holds the write lock.
func (b *Backend) record(id string) *IntersectionRecord {
	r, ok := b.records[id]
	if !ok {
		r = &IntersectionRecord{Intersection: core.Intersection{ID: id}}
		b.records[id] = r
		b.order = append(b.order, id)
	}
	return r
}

// SaveIntersection stores the latest state of an intersection
func (b *Backend) SaveIntersection(i *core.Intersection) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.ready {
		return storage.ErrNotInitialized
	}

	r := b.record(i.ID)
	r.Intersection = *i
	r.Deleted = false
	return nil
}

// DeleteIntersection marks an intersection deleted. Its events stay in the export.
func (b *Backend) DeleteIntersection(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.ready {
		return storage.ErrNotInitialized
	}

	if r, ok := b.records[id]; ok {
		r.Deleted = true
	}
	return nil
}

// GetIntersection looks up the latest saved state
func (b *Backend) GetIntersection(id string) (core.Intersection, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if r, ok := b.records[id]; ok && !r.Deleted {
		return r.Intersection, true
	}
	return core.Intersection{}, false
}

// RecordSignalChange records a scheduler tick
func (b *Backend) RecordSignalChange(u *core.SignalUpdate) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.ready {
		return storage.ErrNotInitialized
	}

	r := b.record(u.IntersectionID)
	r.SignalChanges = append(r.SignalChanges, *u)
	return nil
}

// RecordVehicleArrival records a simulated vehicle
func (b *Backend) RecordVehicleArrival(v *core.VehicleEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.ready {
		return storage.ErrNotInitialized
	}

	r := b.record(v.IntersectionID)
	r.VehicleArrivals = append(r.VehicleArrivals, *v)
	return nil
}

// RecordStatusChange records an activity transition
func (b *Backend) RecordStatusChange(s *core.StatusChange) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.ready {
		return storage.ErrNotInitialized
	}

	r := b.record(s.IntersectionID)
	r.StatusChanges = append(r.StatusChanges, *s)
	return nil
}

// ExportPath returns the file written by the last Close, or "".
func (b *Backend) ExportPath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}

// ExportMetadata summarizes the held session.
func (b *Backend) ExportMetadata() storage.ExportMetadata {
	b.mu.RLock()
	defer b.mu.RUnlock()

	meta := storage.ExportMetadata{StartedAt: b.startedAt}
	var last time.Time
	for _, r := range b.records {
		if !r.Deleted {
			meta.Intersections++
		}
		meta.SignalChanges += len(r.SignalChanges)
		meta.VehicleArrivals += len(r.VehicleArrivals)
		for _, u := range r.SignalChanges {
			if u.Timestamp.After(last) {
				last = u.Timestamp
			}
		}
		for _, v := range r.VehicleArrivals {
			if v.Timestamp.After(last) {
				last = v.Timestamp
			}
		}
	}
	if !b.startedAt.IsZero() && last.After(b.startedAt) {
		meta.Duration = last.Sub(b.startedAt)
	}
	return meta
}
