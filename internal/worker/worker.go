package worker

import (
	"log/slog"

	"github.com/shubham78763/trafficSignal/internal/parser"
	"github.com/shubham78763/trafficSignal/internal/storage"
	"github.com/shubham78763/trafficSignal/pkg/core"
)

// Engine is the controller surface the command handlers drive.
// *simulation.Controller satisfies it.
type Engine interface {
	Create(n core.NewIntersection) (core.Intersection, error)
	Update(id string, n core.NewIntersection) (core.Intersection, error)
	Delete(id string) error
	Start(id string) error
	Stop(id string) error
	StopAll() int
	Intersection(id string) (core.Intersection, bool)
	Intersections() []core.Intersection
	History(limit int) []core.VehicleEvent
	HistoryFor(id string, limit int) []core.VehicleEvent
}

// Dependencies holds all dependencies for the worker manager
type Dependencies struct {
	Engine        Engine
	ParserService *parser.Parser
	Logger        *slog.Logger
	// HistoryLimit caps :VEHICLE:HISTORY: results.
	HistoryLimit int
}

// Manager turns dispatcher commands into engine calls and persists the
// records they create or change.
type Manager struct {
	deps     Dependencies
	backends []storage.Backend
}

// NewManager creates a new worker manager
func NewManager(deps Dependencies, backends ...storage.Backend) *Manager {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.ParserService == nil {
		deps.ParserService = parser.NewParser(deps.Logger)
	}
	if deps.HistoryLimit <= 0 {
		deps.HistoryLimit = 1000
	}
	return &Manager{
		deps:     deps,
		backends: backends,
	}
}

// QueueLengthProvider is an optional interface that backends can implement
// to expose pending writes for monitoring.
type QueueLengthProvider interface {
	QueueLengths() map[string]int
}

// QueueLengths sums pending writes over every backend that reports them.
func (m *Manager) QueueLengths() map[string]int {
	out := map[string]int{}
	for _, b := range m.backends {
		if p, ok := b.(QueueLengthProvider); ok {
			for k, v := range p.QueueLengths() {
				out[k] += v
			}
		}
	}
	return out
}

func (m *Manager) save(rec core.Intersection) {
	for _, b := range m.backends {
		if err := b.SaveIntersection(&rec); err != nil {
			m.deps.Logger.Warn("failed to save intersection", "intersectionId", rec.ID, "error", err)
		}
	}
}
