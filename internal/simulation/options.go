package simulation

import (
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/shubham78763/trafficSignal/internal/clock"
	"github.com/shubham78763/trafficSignal/internal/registry"
	"github.com/shubham78763/trafficSignal/pkg/core"
)

// Config holds the timing and sizing parameters of the engine.
type Config struct {
	SignalInterval  time.Duration
	ArrivalMin      time.Duration
	ArrivalMax      time.Duration
	ArrivalTTL      time.Duration
	HistoryCapacity int
	// TTLStopsSignals makes arrival TTL expiry stop the whole lifecycle and
	// mark the intersection inactive. When false only arrivals stop.
	TTLStopsSignals bool
	// Seed for the arrival random source. Zero seeds from the wall clock.
	Seed uint64
}

// DefaultConfig returns the reference timings.
func DefaultConfig() Config {
	return Config{
		SignalInterval:  5 * time.Second,
		ArrivalMin:      2 * time.Second,
		ArrivalMax:      5 * time.Second,
		ArrivalTTL:      5 * time.Minute,
		HistoryCapacity: 1000,
		TTLStopsSignals: true,
	}
}

func (c Config) normalized() Config {
	def := DefaultConfig()
	if c.SignalInterval <= 0 {
		c.SignalInterval = def.SignalInterval
	}
	if c.ArrivalMin <= 0 {
		c.ArrivalMin = def.ArrivalMin
	}
	if c.ArrivalMax < c.ArrivalMin {
		c.ArrivalMax = c.ArrivalMin
	}
	if c.ArrivalTTL <= 0 {
		c.ArrivalTTL = def.ArrivalTTL
	}
	if c.HistoryCapacity <= 0 {
		c.HistoryCapacity = def.HistoryCapacity
	}
	return c
}

// Publisher receives engine events. *broadcast.Broadcaster satisfies it.
type Publisher interface {
	Publish(core.Event)
}

type nopPublisher struct{}

func (nopPublisher) Publish(core.Event) {}

// Option configures a Controller.
type Option func(*Controller)

func WithClock(c clock.Clock) Option {
	return func(ctl *Controller) { ctl.clock = c }
}

// WithRand replaces the seeded arrival random source.
func WithRand(r *rand.Rand) Option {
	return func(ctl *Controller) { ctl.rng = r }
}

// WithIDGenerator replaces uuid generation for intersections and vehicles.
func WithIDGenerator(f func() string) Option {
	return func(ctl *Controller) { ctl.newID = f }
}

func WithLogger(l *slog.Logger) Option {
	return func(ctl *Controller) { ctl.logger = l }
}

func WithBroadcaster(p Publisher) Option {
	return func(ctl *Controller) { ctl.pub = p }
}

func WithRegistry(r *registry.Registry) Option {
	return func(ctl *Controller) { ctl.reg = r }
}

func newRand(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func defaultID() string { return uuid.NewString() }
