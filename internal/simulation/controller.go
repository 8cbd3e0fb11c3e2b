// Package simulation runs the per-intersection signal scheduler and arrival
// simulator and publishes their events.
package simulation

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sort"
	"sync"

	"github.com/shubham78763/trafficSignal/internal/clock"
	"github.com/shubham78763/trafficSignal/internal/queue"
	"github.com/shubham78763/trafficSignal/internal/registry"
	"github.com/shubham78763/trafficSignal/pkg/core"
)

// Controller owns the lifecycle of every running intersection.
//
// All timer callbacks and all lifecycle transitions run under mu, so a
// callback that fires after Stop has returned observes the stopped lifecycle
// and does nothing.
type Controller struct {
	cfg    Config
	clock  clock.Clock
	rng    *rand.Rand
	newID  func() string
	logger *slog.Logger
	pub    Publisher
	reg    *registry.Registry

	mu         sync.Mutex
	lifecycles map[string]*lifecycle
	history    *queue.Ring[core.VehicleEvent]
}

// New creates a Controller. Without options it uses the wall clock, a fresh
// registry, uuid ids and discards events.
func New(cfg Config, opts ...Option) *Controller {
	cfg = cfg.normalized()
	c := &Controller{
		cfg:        cfg,
		lifecycles: make(map[string]*lifecycle),
		history:    queue.NewRing[core.VehicleEvent](cfg.HistoryCapacity),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.clock == nil {
		c.clock = clock.New()
	}
	if c.rng == nil {
		c.rng = newRand(cfg.Seed)
	}
	if c.newID == nil {
		c.newID = defaultID
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.pub == nil {
		c.pub = nopPublisher{}
	}
	if c.reg == nil {
		c.reg = registry.New()
	}
	return c
}

// Config returns the effective configuration.
func (c *Controller) Config() Config { return c.cfg }

// Registry returns the store backing this controller.
func (c *Controller) Registry() *registry.Registry { return c.reg }

// Create registers a new inactive intersection with all signals RED.
func (c *Controller) Create(n core.NewIntersection) (core.Intersection, error) {
	rec, err := c.reg.Create(c.newID(), n, c.clock.Now())
	if err != nil {
		return core.Intersection{}, fmt.Errorf("create intersection: %w", err)
	}
	c.logger.Info("intersection created", "intersectionId", rec.ID, "name", rec.Name)
	return rec, nil
}

// Update changes the descriptive fields of an intersection. Running
// lifecycles are unaffected.
func (c *Controller) Update(id string, n core.NewIntersection) (core.Intersection, error) {
	rec, err := c.reg.UpdateDetails(id, n, c.clock.Now())
	if err != nil {
		return core.Intersection{}, fmt.Errorf("update intersection: %w", err)
	}
	return rec, nil
}

// Delete stops the intersection if it is running and removes it.
func (c *Controller) Delete(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopLocked(id, core.ReasonDeleted)
	if _, ok := c.reg.Delete(id); !ok {
		return fmt.Errorf("delete intersection: %w: %s", registry.ErrNotFound, id)
	}
	c.pub.Publish(core.NewStatusEvent(core.StatusChange{
		IntersectionID: id,
		IsActive:       false,
		Reason:         core.ReasonDeleted,
		Timestamp:      c.clock.Now(),
	}))
	c.logger.Info("intersection deleted", "intersectionId", id)
	return nil
}

// Start resets the intersection to all-RED, marks it active and starts its
// scheduler and arrival simulator. Starting a running intersection is a
// no-op.
func (c *Controller) Start(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, running := c.lifecycles[id]; running {
		c.logger.Debug("intersection already running", "intersectionId", id)
		return nil
	}

	now := c.clock.Now()
	_, err := c.reg.Update(id, func(i *core.Intersection) {
		i.Signals = core.DefaultPhaseSet()
		i.IsActive = true
		i.LastUpdated = now
	})
	if err != nil {
		return fmt.Errorf("start intersection: %w", err)
	}

	lc := &lifecycle{id: id}
	c.lifecycles[id] = lc
	lc.ticker = c.clock.Every(c.cfg.SignalInterval, func() { c.tick(lc) })
	lc.simulating = true
	c.scheduleArrival(lc)
	lc.ttl = c.clock.AfterFunc(c.cfg.ArrivalTTL, func() { c.expire(lc) })

	c.pub.Publish(core.NewStatusEvent(core.StatusChange{
		IntersectionID: id,
		IsActive:       true,
		Reason:         core.ReasonStarted,
		Timestamp:      now,
	}))
	c.logger.Info("intersection started", "intersectionId", id)
	return nil
}

// Stop cancels the scheduler and arrival simulator and marks the intersection
// inactive. Stopping an inactive intersection is a no-op. Once Stop returns
// no further events are published for id.
func (c *Controller) Stop(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.stopLocked(id, core.ReasonStopped) {
		if _, ok := c.reg.Get(id); !ok {
			return fmt.Errorf("stop intersection: %w: %s", registry.ErrNotFound, id)
		}
	}
	return nil
}

// StopAll stops every running intersection and returns how many were
// stopped.
func (c *Controller) StopAll() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids := make([]string, 0, len(c.lifecycles))
	for id := range c.lifecycles {
		ids = append(ids, id)
	}
	for _, rec := range c.reg.List() {
		if rec.IsActive {
			if _, ok := c.lifecycles[rec.ID]; !ok {
				ids = append(ids, rec.ID)
			}
		}
	}
	sort.Strings(ids)

	n := 0
	for _, id := range ids {
		if c.stopLocked(id, core.ReasonStopped) {
			n++
		}
	}
	if n > 0 {
		c.logger.Info("stopped all intersections", "count", n)
	}
	return n
}

// stopLocked tears down the lifecycle for id, if any, and marks the record
// inactive. It reports whether anything changed. Caller holds c.mu.
func (c *Controller) stopLocked(id string, reason core.StatusReason) bool {
	changed := false
	if lc, ok := c.lifecycles[id]; ok {
		lc.halt()
		delete(c.lifecycles, id)
		changed = true
	}

	now := c.clock.Now()
	wasActive := false
	_, err := c.reg.Update(id, func(i *core.Intersection) {
		wasActive = i.IsActive
		if i.IsActive {
			i.IsActive = false
			i.LastUpdated = now
		}
	})
	if err != nil {
		return changed
	}
	if !wasActive && !changed {
		return false
	}

	if reason != core.ReasonDeleted {
		c.pub.Publish(core.NewStatusEvent(core.StatusChange{
			IntersectionID: id,
			IsActive:       false,
			Reason:         reason,
			Timestamp:      now,
		}))
	}
	c.logger.Info("intersection stopped", "intersectionId", id, "reason", reason)
	return true
}

// IsRunning reports whether id has a live lifecycle.
func (c *Controller) IsRunning(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.lifecycles[id]
	return ok
}

// Running returns the number of live lifecycles.
func (c *Controller) Running() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.lifecycles)
}

// Snapshot returns {signals, vehicleCount, isActive, lastUpdated} for id.
func (c *Controller) Snapshot(id string) (core.Snapshot, bool) {
	return c.reg.Snapshot(id)
}

func (c *Controller) Intersection(id string) (core.Intersection, bool) {
	return c.reg.Get(id)
}

// Intersections lists all intersections, newest first.
func (c *Controller) Intersections() []core.Intersection {
	return c.reg.List()
}

// History returns up to limit arrivals, most recent first. A non-positive
// limit returns the whole history.
func (c *Controller) History(limit int) []core.VehicleEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.history.Newest(limit)
}

// HistoryFor returns up to limit arrivals at one intersection, most recent
// first.
func (c *Controller) HistoryFor(id string, limit int) []core.VehicleEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.history.Filter(limit, func(v core.VehicleEvent) bool {
		return v.IntersectionID == id
	})
}

// HistoryLen returns the number of arrivals currently retained.
func (c *Controller) HistoryLen() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.history.Len()
}
