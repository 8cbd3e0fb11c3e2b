package simulation

import (
	"fmt"
	"time"

	"github.com/shubham78763/trafficSignal/internal/clock"
	"github.com/shubham78763/trafficSignal/pkg/core"
)

// lifecycle holds the timers of one running intersection. Every field is
// guarded by Controller.mu.
type lifecycle struct {
	id         string
	cycle      uint64
	ticker     clock.Timer
	arrival    clock.Timer
	ttl        clock.Timer
	simulating bool
	stopped    bool
}

func (lc *lifecycle) halt() {
	lc.stopped = true
	lc.stopArrivals()
	if lc.ticker != nil {
		lc.ticker.Stop()
	}
}

func (lc *lifecycle) stopArrivals() {
	lc.simulating = false
	if lc.arrival != nil {
		lc.arrival.Stop()
	}
	if lc.ttl != nil {
		lc.ttl.Stop()
	}
}

// live reports whether a callback for lc may still act. Caller holds c.mu.
func (c *Controller) live(lc *lifecycle) bool {
	return !lc.stopped && c.lifecycles[lc.id] == lc
}

// tick advances the two-phase signal cycle: even cycles give north/south
// GREEN, odd cycles east/west.
func (c *Controller) tick(lc *lifecycle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.live(lc) {
		return
	}

	ns, ew := core.Green, core.Red
	if lc.cycle%2 == 1 {
		ns, ew = core.Red, core.Green
	}
	now := c.clock.Now()
	rec, err := c.reg.Update(lc.id, func(i *core.Intersection) {
		i.Signals = i.Signals.WithPairs(ns, ew)
		i.LastUpdated = now
	})
	if err != nil {
		c.dropStale(lc, "tick")
		return
	}

	cycle := lc.cycle
	lc.cycle++
	c.pub.Publish(core.NewSignalEvent(core.SignalUpdate{
		IntersectionID: lc.id,
		Phases:         rec.Signals,
		Cycle:          cycle,
		Timestamp:      now,
	}))
}

func (c *Controller) scheduleArrival(lc *lifecycle) {
	d := c.cfg.ArrivalMin
	if spread := c.cfg.ArrivalMax - c.cfg.ArrivalMin; spread > 0 {
		d += time.Duration(c.rng.Int64N(int64(spread) + 1))
	}
	lc.arrival = c.clock.AfterFunc(d, func() { c.arrive(lc) })
}

// arrive synthesizes one vehicle, records it and schedules the next arrival.
func (c *Controller) arrive(lc *lifecycle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.live(lc) || !lc.simulating {
		return
	}

	vt := core.VehicleTypes[c.rng.IntN(len(core.VehicleTypes))]
	dir := core.Directions[c.rng.IntN(len(core.Directions))]
	now := c.clock.Now()

	rec, err := c.reg.Update(lc.id, func(i *core.Intersection) {
		i.VehicleCount++
		i.LastUpdated = now
	})
	if err != nil {
		c.dropStale(lc, "arrival")
		return
	}

	v := core.VehicleEvent{
		ID:             c.newID(),
		VehicleID:      fmt.Sprintf("%s_V%d", lc.id, rec.VehicleCount),
		Type:           vt,
		IntersectionID: lc.id,
		Direction:      dir,
		Priority:       vt.Priority(),
		Timestamp:      now,
	}
	c.history.Push(v)
	c.pub.Publish(core.NewVehicleEvent(v))

	c.scheduleArrival(lc)
}

// expire handles the arrival time-to-live.
func (c *Controller) expire(lc *lifecycle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.live(lc) || !lc.simulating {
		return
	}

	if c.cfg.TTLStopsSignals {
		c.stopLocked(lc.id, core.ReasonExpired)
		return
	}
	lc.stopArrivals()
	c.logger.Info("arrival simulator expired", "intersectionId", lc.id, "ttl", c.cfg.ArrivalTTL)
}

// dropStale ends a lifecycle whose intersection disappeared from the
// registry. Caller holds c.mu.
func (c *Controller) dropStale(lc *lifecycle, source string) {
	lc.halt()
	delete(c.lifecycles, lc.id)
	c.logger.Debug("intersection gone, lifecycle dropped", "intersectionId", lc.id, "source", source)
}
