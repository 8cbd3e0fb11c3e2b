// Package registry holds the in-memory intersection store shared by the
// simulation engine and its collaborators.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shubham78763/trafficSignal/pkg/core"
)

var (
	ErrNotFound    = errors.New("intersection not found")
	ErrDuplicateID = errors.New("intersection id already registered")
)

// Registry maps intersection ids to their current record. Values handed out
// are copies; the only way to mutate a record is through Update.
type Registry struct {
	mu            sync.RWMutex
	intersections map[string]core.Intersection
}

func New() *Registry {
	return &Registry{
		intersections: make(map[string]core.Intersection),
	}
}

// Create registers a new inactive, all-RED intersection under id.
func (r *Registry) Create(id string, n core.NewIntersection, now time.Time) (core.Intersection, error) {
	rec := core.Intersection{
		ID:          id,
		Name:        n.Name,
		Location:    n.Location,
		Coordinates: n.Coordinates,
		Signals:     core.DefaultPhaseSet(),
		CreatedAt:   now,
		LastUpdated: now,
	}
	if err := r.Add(rec); err != nil {
		return core.Intersection{}, err
	}
	return rec, nil
}

// Add stores an existing record, e.g. one restored from storage.
func (r *Registry) Add(rec core.Intersection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.intersections[rec.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateID, rec.ID)
	}
	r.intersections[rec.ID] = rec
	return nil
}

func (r *Registry) Get(id string) (core.Intersection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.intersections[id]
	return rec, ok
}

// Snapshot returns the engine read view of one intersection.
func (r *Registry) Snapshot(id string) (core.Snapshot, bool) {
	rec, ok := r.Get(id)
	if !ok {
		return core.Snapshot{}, false
	}
	return rec.Snapshot(), true
}

// List returns every intersection ordered by creation time, newest first.
func (r *Registry) List() []core.Intersection {
	r.mu.RLock()
	out := make([]core.Intersection, 0, len(r.intersections))
	for _, rec := range r.intersections {
		out = append(out, rec)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Update applies fn to the stored record and returns the result. fn must not
// call back into the registry.
func (r *Registry) Update(id string, fn func(*core.Intersection)) (core.Intersection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.intersections[id]
	if !ok {
		return core.Intersection{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	fn(&rec)
	rec.ID = id
	r.intersections[id] = rec
	return rec, nil
}

// UpdateDetails changes the descriptive fields of an intersection. Empty
// fields keep their current value.
func (r *Registry) UpdateDetails(id string, n core.NewIntersection, now time.Time) (core.Intersection, error) {
	return r.Update(id, func(rec *core.Intersection) {
		if n.Name != "" {
			rec.Name = n.Name
		}
		if n.Location != "" {
			rec.Location = n.Location
		}
		if n.Coordinates != (core.Coordinates{}) {
			rec.Coordinates = n.Coordinates
		}
		rec.LastUpdated = now
	})
}

// Delete removes the record and returns it.
func (r *Registry) Delete(id string) (core.Intersection, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.intersections[id]
	if ok {
		delete(r.intersections, id)
	}
	return rec, ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.intersections)
}

// ActiveCount returns the number of intersections marked active.
func (r *Registry) ActiveCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, rec := range r.intersections {
		if rec.IsActive {
			n++
		}
	}
	return n
}
