package monitor

import (
	"encoding/json"
	"log/slog"
	"os"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/shubham78763/trafficSignal/internal/influx"
	"github.com/shubham78763/trafficSignal/pkg/core"
)

// Engine is the part of the simulation controller the monitor reads.
type Engine interface {
	Intersections() []core.Intersection
	Running() int
	HistoryLen() int
}

// Events is the part of the broadcaster the monitor reads.
type Events interface {
	Subscribers() int
	Published() uint64
	Dropped() uint64
}

// PointWriter receives engine status points. *influx.Manager satisfies it.
type PointWriter interface {
	WritePoint(bucket string, point *influxdb2_write.Point) error
}

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	Engine   Engine
	Events   Events
	Influx   PointWriter
	Logger   *slog.Logger
	Interval time.Duration
	// StatusFile, when set, is rewritten with the latest status as JSON.
	StatusFile string
	// QueueLengths reports pending storage writes, if the backend queues.
	QueueLengths func() map[string]int
}

// Status is one sample of engine health.
type Status struct {
	Time                time.Time      `json:"time"`
	Intersections       int            `json:"intersections"`
	ActiveIntersections int            `json:"activeIntersections"`
	RunningLifecycles   int            `json:"runningLifecycles"`
	HistoryLen          int            `json:"historyLen"`
	Subscribers         int            `json:"subscribers"`
	Published           uint64         `json:"published"`
	Dropped             uint64         `json:"dropped"`
	WriteQueues         map[string]int `json:"writeQueues,omitempty"`
}

// Service manages status monitoring
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	done      chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Interval <= 0 {
		deps.Interval = 30 * time.Second
	}
	return &Service{deps: deps}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Status samples the engine now.
func (s *Service) Status() Status {
	st := Status{Time: time.Now().UTC()}
	if s.deps.Engine != nil {
		list := s.deps.Engine.Intersections()
		st.Intersections = len(list)
		for _, i := range list {
			if i.IsActive {
				st.ActiveIntersections++
			}
		}
		st.RunningLifecycles = s.deps.Engine.Running()
		st.HistoryLen = s.deps.Engine.HistoryLen()
	}
	if s.deps.Events != nil {
		st.Subscribers = s.deps.Events.Subscribers()
		st.Published = s.deps.Events.Published()
		st.Dropped = s.deps.Events.Dropped()
	}
	if s.deps.QueueLengths != nil {
		st.WriteQueues = s.deps.QueueLengths()
	}
	return st
}

// Point renders a status sample for the monitor bucket.
func (st Status) Point() *influxdb2_write.Point {
	return influxdb2.NewPoint(
		"engine_status",
		map[string]string{},
		map[string]interface{}{
			"intersections":        st.Intersections,
			"active_intersections": st.ActiveIntersections,
			"running_lifecycles":   st.RunningLifecycles,
			"history_len":          st.HistoryLen,
			"subscribers":          st.Subscribers,
			"published":            st.Published,
			"dropped":              st.Dropped,
		},
		st.Time,
	)
}

// Start starts the status monitor goroutine
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stopChan, s.done
	s.mu.Unlock()

	go func() {
		defer close(done)
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
		}()

		logger := s.deps.Logger
		logger.Debug("Starting status monitor goroutine", "interval", s.deps.Interval)

		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				s.report(s.Status())
			}
		}
	}()

	return nil
}

func (s *Service) report(st Status) {
	logger := s.deps.Logger
	logger.Info("engine status",
		"intersections", st.Intersections,
		"active", st.ActiveIntersections,
		"running", st.RunningLifecycles,
		"history", st.HistoryLen,
		"subscribers", st.Subscribers,
		"published", st.Published,
		"dropped", st.Dropped,
	)

	if s.deps.StatusFile != "" {
		data, err := json.MarshalIndent(st, "", "  ")
		if err == nil {
			err = os.WriteFile(s.deps.StatusFile, append(data, '\n'), 0644)
		}
		if err != nil {
			logger.Error("Error writing status file", "error", err)
		}
	}

	if s.deps.Influx != nil {
		if err := s.deps.Influx.WritePoint(influx.MonitorBucket, st.Point()); err != nil {
			logger.Warn("Error writing status point", "error", err)
		}
	}
}

// Stop stops the status monitor and waits for the goroutine to exit.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	close(s.stopChan)
	s.isRunning = false
	done := s.done
	s.mu.Unlock()
	<-done
}
