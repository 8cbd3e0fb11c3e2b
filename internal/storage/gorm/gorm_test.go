package gormstorage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/shubham78763/trafficSignal/internal/database"
	"github.com/shubham78763/trafficSignal/internal/model"
	"github.com/shubham78763/trafficSignal/internal/storage"
	"github.com/shubham78763/trafficSignal/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// Compile-time interface checks
var (
	_ storage.Backend = (*Backend)(nil)
	_ storage.Loader  = (*Backend)(nil)
)

var epoch = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.GetSqliteDBStandalone(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// newTestBackend uses a long flush interval so tests control writes via Flush.
func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	b := New(Dependencies{DB: newTestDB(t), FlushInterval: time.Hour})
	require.NoError(t, b.Init())
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func testIntersection(id string) *core.Intersection {
	return &core.Intersection{
		ID:          id,
		Name:        "Main & " + id,
		Location:    "Downtown",
		Coordinates: core.Coordinates{Lat: 40.7, Lng: -74.0},
		Signals:     core.DefaultPhaseSet(),
		CreatedAt:   epoch,
		LastUpdated: epoch,
	}
}

func count[T any](t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(new(T)).Count(&n).Error)
	return n
}

func TestInitWithoutDB(t *testing.T) {
	b := New(Dependencies{})
	assert.ErrorIs(t, b.Init(), storage.ErrNotInitialized)
	assert.ErrorIs(t, b.SaveIntersection(testIntersection("a")), storage.ErrNotInitialized)
	assert.ErrorIs(t, b.RecordStatusChange(&core.StatusChange{}), storage.ErrNotInitialized)
	_, err := b.LoadIntersections()
	assert.ErrorIs(t, err, storage.ErrNotInitialized)
	assert.NoError(t, b.Close())
}

func TestRecordsQueueUntilFlush(t *testing.T) {
	b := newTestBackend(t)

	require.NoError(t, b.RecordSignalChange(&core.SignalUpdate{IntersectionID: "a", Phases: core.DefaultPhaseSet(), Timestamp: epoch}))
	require.NoError(t, b.RecordVehicleArrival(&core.VehicleEvent{ID: "e1", IntersectionID: "a", VehicleID: "a_V1", Type: core.Truck, Direction: core.South, Priority: 1, Timestamp: epoch}))
	require.NoError(t, b.RecordStatusChange(&core.StatusChange{IntersectionID: "a", IsActive: true, Reason: core.ReasonStarted, Timestamp: epoch}))

	assert.Equal(t, 1, b.QueueLengths()["signalChanges"])
	assert.Equal(t, 1, b.QueueLengths()["vehicleArrivals"])
	assert.Equal(t, int64(0), count[model.SignalChange](t, b.DB()))

	require.NoError(t, b.Flush())

	assert.Equal(t, 0, b.QueueLengths()["signalChanges"])
	assert.Equal(t, int64(1), count[model.SignalChange](t, b.DB()))
	assert.Equal(t, int64(1), count[model.VehicleArrival](t, b.DB()))
	assert.Equal(t, int64(1), count[model.StatusChange](t, b.DB()))

	var arrival model.VehicleArrival
	require.NoError(t, b.DB().First(&arrival).Error)
	assert.Equal(t, "a_V1", arrival.VehicleID)
	assert.Equal(t, "TRUCK", arrival.VehicleType)
	assert.Equal(t, "SOUTH", arrival.Direction)
}

func TestSaveIntersectionUpserts(t *testing.T) {
	b := newTestBackend(t)

	require.NoError(t, b.SaveIntersection(testIntersection("a")))
	updated := testIntersection("a")
	updated.VehicleCount = 9
	updated.IsActive = true
	updated.Signals = updated.Signals.WithPairs(core.Red, core.Green)
	require.NoError(t, b.SaveIntersection(updated))
	require.NoError(t, b.Flush())

	assert.Equal(t, int64(1), count[model.Intersection](t, b.DB()))

	loaded, err := b.LoadIntersections()
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, 9, loaded[0].VehicleCount)
	assert.True(t, loaded[0].IsActive)
	assert.Equal(t, core.PhaseEastWestGreen, loaded[0].Signals.Phase())
	assert.Equal(t, 40.7, loaded[0].Coordinates.Lat)
}

func TestSaveIntersectionRejectsBadCoordinates(t *testing.T) {
	b := newTestBackend(t)
	i := testIntersection("a")
	i.Coordinates.Lng = 500
	assert.Error(t, b.SaveIntersection(i))
	assert.Equal(t, 0, b.QueueLengths()["intersections"])
}

func TestDeleteIntersectionKeepsEvents(t *testing.T) {
	b := newTestBackend(t)

	require.NoError(t, b.SaveIntersection(testIntersection("a")))
	require.NoError(t, b.SaveIntersection(testIntersection("b")))
	require.NoError(t, b.RecordStatusChange(&core.StatusChange{IntersectionID: "a", Reason: core.ReasonDeleted, Timestamp: epoch}))
	require.NoError(t, b.DeleteIntersection("a"))
	require.NoError(t, b.Flush())

	loaded, err := b.LoadIntersections()
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "b", loaded[0].ID)
	assert.Equal(t, int64(1), count[model.StatusChange](t, b.DB()))
}

func TestLoadIntersectionsOldestFirst(t *testing.T) {
	b := newTestBackend(t)

	later := testIntersection("later")
	later.CreatedAt = epoch.Add(time.Hour)
	require.NoError(t, b.SaveIntersection(later))
	require.NoError(t, b.SaveIntersection(testIntersection("earlier")))
	require.NoError(t, b.Flush())

	loaded, err := b.LoadIntersections()
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, "earlier", loaded[0].ID)
	assert.Equal(t, "later", loaded[1].ID)
}

func TestCloseFlushes(t *testing.T) {
	db := newTestDB(t)
	b := New(Dependencies{DB: db, FlushInterval: time.Hour})
	require.NoError(t, b.Init())

	require.NoError(t, b.RecordSignalChange(&core.SignalUpdate{IntersectionID: "a", Timestamp: epoch}))
	require.NoError(t, b.Close())

	assert.Equal(t, int64(1), count[model.SignalChange](t, db))
	assert.NoError(t, b.Close())
}

func TestWriterLoopFlushes(t *testing.T) {
	b := New(Dependencies{DB: newTestDB(t), FlushInterval: 10 * time.Millisecond})
	require.NoError(t, b.Init())
	t.Cleanup(func() { _ = b.Close() })

	require.NoError(t, b.RecordStatusChange(&core.StatusChange{IntersectionID: "a", Reason: core.ReasonStarted, Timestamp: epoch}))

	assert.Eventually(t, func() bool {
		var n int64
		b.DB().Model(&model.StatusChange{}).Count(&n)
		return n == 1
	}, 2*time.Second, 10*time.Millisecond)
}
