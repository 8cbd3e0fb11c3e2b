// Package gormstorage implements the storage.Backend interface on any GORM
// dialect, with internal queues and a background DB writer goroutine.
package gormstorage

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shubham78763/trafficSignal/internal/database"
	"github.com/shubham78763/trafficSignal/internal/model"
	"github.com/shubham78763/trafficSignal/internal/model/convert"
	"github.com/shubham78763/trafficSignal/internal/queue"
	"github.com/shubham78763/trafficSignal/internal/storage"
	"github.com/shubham78763/trafficSignal/pkg/core"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const defaultFlushInterval = 2 * time.Second

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB            *gorm.DB
	Logger        *slog.Logger
	FlushInterval time.Duration
}

// intersectionOp is an upsert (Row set) or a delete (Row nil).
type intersectionOp struct {
	Row *model.Intersection
	ID  string
}

// queues holds all the write queues for batch DB insertion.
type queues struct {
	Intersections   *queue.Queue[intersectionOp]
	SignalChanges   *queue.Queue[model.SignalChange]
	VehicleArrivals *queue.Queue[model.VehicleArrival]
	StatusChanges   *queue.Queue[model.StatusChange]
}

func newQueues() *queues {
	return &queues{
		Intersections:   queue.New[intersectionOp](),
		SignalChanges:   queue.New[model.SignalChange](),
		VehicleArrivals: queue.New[model.VehicleArrival](),
		StatusChanges:   queue.New[model.StatusChange](),
	}
}

// Backend implements storage.Backend using GORM with queue-based batch writes.
type Backend struct {
	deps     Dependencies
	log      *slog.Logger
	queues   *queues
	stopChan chan struct{}
	wg       sync.WaitGroup
	flushMu  sync.Mutex
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.FlushInterval <= 0 {
		deps.FlushInterval = defaultFlushInterval
	}
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Backend{
		deps: deps,
		log:  log.With("component", "storage", "dialect", dialect(deps.DB)),
	}
}

func dialect(db *gorm.DB) string {
	if db == nil {
		return "none"
	}
	return db.Name()
}

// DB returns the underlying connection.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// Init runs schema migration and starts the DB writer goroutine.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		return storage.ErrNotInitialized
	}
	if err := database.Migrate(b.deps.DB); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}

	b.queues = newQueues()
	b.stopChan = make(chan struct{})
	b.startDBWriter()
	b.log.Info("Database setup complete", "flushInterval", b.deps.FlushInterval)
	return nil
}

// Close stops the DB writer goroutine and writes what is still queued.
func (b *Backend) Close() error {
	if b.stopChan == nil {
		return nil
	}
	close(b.stopChan)
	b.wg.Wait()
	b.stopChan = nil
	return b.Flush()
}

func (b *Backend) ready() error {
	if b.queues == nil {
		return storage.ErrNotInitialized
	}
	return nil
}

// SaveIntersection queues an upsert of the intersection row.
func (b *Backend) SaveIntersection(i *core.Intersection) error {
	if err := b.ready(); err != nil {
		return err
	}
	row, err := convert.CoreToIntersection(*i)
	if err != nil {
		return err
	}
	b.queues.Intersections.Push(intersectionOp{Row: &row, ID: row.ID})
	return nil
}

// DeleteIntersection queues removal of the intersection row. Recorded
// events are kept.
func (b *Backend) DeleteIntersection(id string) error {
	if err := b.ready(); err != nil {
		return err
	}
	b.queues.Intersections.Push(intersectionOp{ID: id})
	return nil
}

func (b *Backend) RecordSignalChange(u *core.SignalUpdate) error {
	if err := b.ready(); err != nil {
		return err
	}
	b.queues.SignalChanges.Push(convert.CoreToSignalChange(*u))
	return nil
}

func (b *Backend) RecordVehicleArrival(v *core.VehicleEvent) error {
	if err := b.ready(); err != nil {
		return err
	}
	b.queues.VehicleArrivals.Push(convert.CoreToVehicleArrival(*v))
	return nil
}

func (b *Backend) RecordStatusChange(s *core.StatusChange) error {
	if err := b.ready(); err != nil {
		return err
	}
	b.queues.StatusChanges.Push(convert.CoreToStatusChange(*s))
	return nil
}

// LoadIntersections returns every stored intersection, oldest first.
func (b *Backend) LoadIntersections() ([]core.Intersection, error) {
	if b.deps.DB == nil {
		return nil, storage.ErrNotInitialized
	}
	return loadIntersections(b.deps.DB)
}

func loadIntersections(db *gorm.DB) ([]core.Intersection, error) {
	var rows []model.Intersection
	if err := db.Order("created_at asc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load intersections: %w", err)
	}
	out := make([]core.Intersection, 0, len(rows))
	for _, r := range rows {
		out = append(out, convert.IntersectionToCore(r))
	}
	return out, nil
}

// QueueLengths reports pending writes per queue.
func (b *Backend) QueueLengths() map[string]int {
	if b.queues == nil {
		return nil
	}
	return map[string]int{
		"intersections":   b.queues.Intersections.Len(),
		"signalChanges":   b.queues.SignalChanges.Len(),
		"vehicleArrivals": b.queues.VehicleArrivals.Len(),
		"statusChanges":   b.queues.StatusChanges.Len(),
	}
}

// writeQueue writes all items from a queue to the database in a transaction.
// On failure the items are pushed back for the next cycle.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], name string, log *slog.Logger) error {
	if q.Len() == 0 {
		return nil
	}

	items := q.Drain()
	tx := db.Begin()
	if err := tx.Create(&items).Error; err != nil {
		log.Error("Error creating "+name, "error", err, "count", len(items))
		tx.Rollback()
		q.Push(items...)
		return err
	}

	return tx.Commit().Error
}

// writeIntersections applies upserts and deletes in order.
func (b *Backend) writeIntersections() error {
	q := b.queues.Intersections
	if q.Len() == 0 {
		return nil
	}

	ops := q.Drain()
	err := b.deps.DB.Transaction(func(tx *gorm.DB) error {
		for _, op := range ops {
			if op.Row == nil {
				if err := tx.Delete(&model.Intersection{}, "id = ?", op.ID).Error; err != nil {
					return err
				}
				continue
			}
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(op.Row).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		b.log.Error("Error writing intersections", "error", err, "count", len(ops))
		q.Push(ops...)
	}
	return err
}

// Flush writes every queue now. Safe to call concurrently with the writer.
func (b *Backend) Flush() error {
	if err := b.ready(); err != nil {
		return err
	}
	b.flushMu.Lock()
	defer b.flushMu.Unlock()

	db := b.deps.DB
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	keep(b.writeIntersections())
	keep(writeQueue(db, b.queues.StatusChanges, "status changes", b.log))
	keep(writeQueue(db, b.queues.SignalChanges, "signal changes", b.log))
	keep(writeQueue(db, b.queues.VehicleArrivals, "vehicle arrivals", b.log))
	return firstErr
}

// startDBWriter starts the background goroutine that periodically drains queues into the DB.
func (b *Backend) startDBWriter() {
	ticker := time.NewTicker(b.deps.FlushInterval)
	stop := b.stopChan

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				_ = b.Flush()
			}
		}
	}()
}
