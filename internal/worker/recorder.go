package worker

import (
	"log/slog"
	"sync/atomic"

	"github.com/shubham78763/trafficSignal/internal/broadcast"
	"github.com/shubham78763/trafficSignal/internal/storage"
	"github.com/shubham78763/trafficSignal/pkg/core"
)

// EventWriter receives every event, e.g. *influx.Manager.
type EventWriter interface {
	WriteEvent(e core.Event) error
}

// RecorderDependencies holds what the recorder forwards to.
type RecorderDependencies struct {
	// Lookup returns the current record for status-change persistence.
	Lookup   func(id string) (core.Intersection, bool)
	Backends []storage.Backend
	Writers  []EventWriter
	Logger   *slog.Logger
	Buffer   int
}

// Recorder forwards broadcast events to the storage backends and event
// writers. It is an ordinary broadcaster subscriber, so a slow sink loses
// events rather than stalling the engine.
type Recorder struct {
	deps     RecorderDependencies
	sub      *broadcast.Subscription
	handled  atomic.Uint64
	failures atomic.Uint64
}

func NewRecorder(deps RecorderDependencies) *Recorder {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Recorder{deps: deps}
}

// Start subscribes to b.
func (r *Recorder) Start(b *broadcast.Broadcaster) {
	r.sub = b.SubscribeFunc("recorder", r.deps.Buffer, r.Handle)
}

// Stop unsubscribes and waits until the last event has been handled.
func (r *Recorder) Stop() {
	if r.sub == nil {
		return
	}
	r.sub.Unsubscribe()
	<-r.sub.Done()
}

// Handled returns the number of events processed.
func (r *Recorder) Handled() uint64 { return r.handled.Load() }

// Failures returns the number of sink calls that returned an error.
func (r *Recorder) Failures() uint64 { return r.failures.Load() }

// Handle forwards one event to every sink.
func (r *Recorder) Handle(e core.Event) {
	defer r.handled.Add(1)

	for _, b := range r.deps.Backends {
		r.check(e, r.store(b, e))
	}
	for _, w := range r.deps.Writers {
		r.check(e, w.WriteEvent(e))
	}
}

func (r *Recorder) store(b storage.Backend, e core.Event) error {
	switch e.Kind {
	case core.KindSignalUpdate:
		return b.RecordSignalChange(e.Signal)
	case core.KindVehicleArrival:
		return b.RecordVehicleArrival(e.Vehicle)
	case core.KindStatusChange:
		if err := b.RecordStatusChange(e.Status); err != nil {
			return err
		}
		if e.Status.Reason == core.ReasonDeleted {
			return b.DeleteIntersection(e.Status.IntersectionID)
		}
		if r.deps.Lookup == nil {
			return nil
		}
		rec, ok := r.deps.Lookup(e.Status.IntersectionID)
		if !ok {
			return nil
		}
		rec.IsActive = e.Status.IsActive
		return b.SaveIntersection(&rec)
	}
	return nil
}

func (r *Recorder) check(e core.Event, err error) {
	if err == nil {
		return
	}
	r.failures.Add(1)
	r.deps.Logger.Warn("failed to record event",
		"kind", e.Kind,
		"intersectionId", e.IntersectionID(),
		"error", err)
}
