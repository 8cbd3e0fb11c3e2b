// Package postgres implements the storage.Backend interface on PostgreSQL.
// The GORM backend does the queueing and writing; this package owns the
// connection and falls back to a local SQLite file when Postgres is down.
package postgres

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rs/zerolog"
	"github.com/shubham78763/trafficSignal/internal/config"
	"github.com/shubham78763/trafficSignal/internal/database"
	"github.com/shubham78763/trafficSignal/internal/storage"
	gormstorage "github.com/shubham78763/trafficSignal/internal/storage/gorm"
	"github.com/shubham78763/trafficSignal/pkg/core"
)

// Dependencies holds all dependencies for the Postgres storage backend.
type Dependencies struct {
	Config        config.PostgresConfig
	FallbackPath  string // SQLite file used when Postgres is unreachable
	FlushInterval time.Duration
	DBLogger      zerolog.Logger
	Logger        *slog.Logger
}

// Backend implements storage.Backend using GORM/PostgreSQL with queue-based batch writes.
type Backend struct {
	deps    Dependencies
	manager *database.Manager
	inner   *gormstorage.Backend
}

// New creates a new Postgres storage backend. No connection is made until Init.
func New(deps Dependencies) *Backend {
	return &Backend{
		deps:    deps,
		manager: database.NewManager(deps.DBLogger, deps.FallbackPath),
	}
}

// Init connects, migrates the schema and starts the DB writer goroutine.
func (b *Backend) Init() error {
	if err := b.manager.Connect(b.deps.Config); err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if err := b.manager.Setup(); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}

	b.inner = gormstorage.New(gormstorage.Dependencies{
		DB:            b.manager.DB,
		Logger:        b.deps.Logger,
		FlushInterval: b.deps.FlushInterval,
	})
	return b.inner.Init()
}

// Local reports whether writes went to the SQLite fallback.
func (b *Backend) Local() bool {
	return b.manager.ShouldSaveLocal
}

// Close stops the writer, flushes and closes the connection pool.
func (b *Backend) Close() error {
	if b.inner == nil {
		return nil
	}
	err := b.inner.Close()
	b.inner = nil
	return errors.Join(err, b.manager.Close())
}

func (b *Backend) backend() (*gormstorage.Backend, error) {
	if b.inner == nil {
		return nil, storage.ErrNotInitialized
	}
	return b.inner, nil
}

func (b *Backend) SaveIntersection(i *core.Intersection) error {
	inner, err := b.backend()
	if err != nil {
		return err
	}
	return inner.SaveIntersection(i)
}

func (b *Backend) DeleteIntersection(id string) error {
	inner, err := b.backend()
	if err != nil {
		return err
	}
	return inner.DeleteIntersection(id)
}

func (b *Backend) RecordSignalChange(u *core.SignalUpdate) error {
	inner, err := b.backend()
	if err != nil {
		return err
	}
	return inner.RecordSignalChange(u)
}

func (b *Backend) RecordVehicleArrival(v *core.VehicleEvent) error {
	inner, err := b.backend()
	if err != nil {
		return err
	}
	return inner.RecordVehicleArrival(v)
}

func (b *Backend) RecordStatusChange(s *core.StatusChange) error {
	inner, err := b.backend()
	if err != nil {
		return err
	}
	return inner.RecordStatusChange(s)
}

// LoadIntersections returns the intersections stored by previous runs.
func (b *Backend) LoadIntersections() ([]core.Intersection, error) {
	inner, err := b.backend()
	if err != nil {
		return nil, err
	}
	return inner.LoadIntersections()
}

// Flush writes every queue now.
func (b *Backend) Flush() error {
	inner, err := b.backend()
	if err != nil {
		return err
	}
	return inner.Flush()
}

// QueueLengths reports pending writes per table; empty before Init.
func (b *Backend) QueueLengths() map[string]int {
	inner, err := b.backend()
	if err != nil {
		return map[string]int{}
	}
	return inner.QueueLengths()
}
