package worker

import (
	"fmt"

	"github.com/shubham78763/trafficSignal/internal/dispatcher"
)

// Command names accepted by the dispatcher.
const (
	CommandCreate  = ":INTERSECTION:CREATE:"
	CommandUpdate  = ":INTERSECTION:UPDATE:"
	CommandDelete  = ":INTERSECTION:DELETE:"
	CommandStart   = ":INTERSECTION:START:"
	CommandStop    = ":INTERSECTION:STOP:"
	CommandStopAll = ":INTERSECTION:STOPALL:"
	CommandList    = ":INTERSECTION:LIST:"
	CommandHistory = ":VEHICLE:HISTORY:"
	CommandStats   = ":VEHICLE:STATS:"
)

// RegisterHandlers registers all command handlers with the dispatcher.
// Every handler is synchronous so that callers see the engine error.
func (m *Manager) RegisterHandlers(d *dispatcher.Dispatcher) {
	// Intersection records
	d.Register(CommandCreate, m.handleCreate, dispatcher.Logged())
	d.Register(CommandUpdate, m.handleUpdate, dispatcher.Logged())
	d.Register(CommandDelete, m.handleDelete, dispatcher.Logged())

	// Lifecycle
	d.Register(CommandStart, m.handleStart, dispatcher.Logged())
	d.Register(CommandStop, m.handleStop, dispatcher.Logged())
	d.Register(CommandStopAll, m.handleStopAll, dispatcher.Logged())

	// Reads
	d.Register(CommandList, m.handleList)
	d.Register(CommandHistory, m.handleHistory)
	d.Register(CommandStats, m.handleStats)
}

func (m *Manager) handleCreate(e dispatcher.Event) (any, error) {
	n, err := m.deps.ParserService.ParseNewIntersection(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to parse new intersection: %w", err)
	}
	rec, err := m.deps.Engine.Create(n)
	if err != nil {
		return nil, err
	}
	m.save(rec)
	return rec, nil
}

func (m *Manager) handleUpdate(e dispatcher.Event) (any, error) {
	id, n, err := m.deps.ParserService.ParseIntersectionUpdate(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to parse intersection update: %w", err)
	}
	rec, err := m.deps.Engine.Update(id, n)
	if err != nil {
		return nil, err
	}
	m.save(rec)
	return rec, nil
}

// handleDelete relies on the deleted status event to remove stored rows.
func (m *Manager) handleDelete(e dispatcher.Event) (any, error) {
	id, err := m.deps.ParserService.ParseIntersectionID(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to parse intersection delete: %w", err)
	}
	if err := m.deps.Engine.Delete(id); err != nil {
		return nil, err
	}
	return nil, nil
}

func (m *Manager) handleStart(e dispatcher.Event) (any, error) {
	id, err := m.deps.ParserService.ParseIntersectionID(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to parse intersection start: %w", err)
	}
	if err := m.deps.Engine.Start(id); err != nil {
		return nil, err
	}
	return nil, nil
}

func (m *Manager) handleStop(e dispatcher.Event) (any, error) {
	id, err := m.deps.ParserService.ParseIntersectionID(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to parse intersection stop: %w", err)
	}
	if err := m.deps.Engine.Stop(id); err != nil {
		return nil, err
	}
	return nil, nil
}

func (m *Manager) handleStopAll(dispatcher.Event) (any, error) {
	return m.deps.Engine.StopAll(), nil
}

func (m *Manager) handleList(dispatcher.Event) (any, error) {
	return m.deps.Engine.Intersections(), nil
}

func (m *Manager) handleHistory(e dispatcher.Event) (any, error) {
	limit, id, err := m.deps.ParserService.ParseHistoryQuery(e.Args, 100, m.deps.HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to parse history query: %w", err)
	}
	if id != "" {
		if _, ok := m.deps.Engine.Intersection(id); !ok {
			return nil, fmt.Errorf("history: unknown intersection %s", id)
		}
		return m.deps.Engine.HistoryFor(id, limit), nil
	}
	return m.deps.Engine.History(limit), nil
}

func (m *Manager) handleStats(dispatcher.Event) (any, error) {
	return m.Report(), nil
}
