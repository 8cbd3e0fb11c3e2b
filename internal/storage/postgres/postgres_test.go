package postgres

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shubham78763/trafficSignal/internal/config"
	"github.com/shubham78763/trafficSignal/internal/storage"
	"github.com/shubham78763/trafficSignal/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ storage.Backend = (*Backend)(nil)
	_ storage.Loader  = (*Backend)(nil)
)

func TestBeforeInit(t *testing.T) {
	b := New(Dependencies{})
	assert.ErrorIs(t, b.SaveIntersection(&core.Intersection{ID: "a"}), storage.ErrNotInitialized)
	assert.ErrorIs(t, b.DeleteIntersection("a"), storage.ErrNotInitialized)
	assert.ErrorIs(t, b.RecordSignalChange(&core.SignalUpdate{}), storage.ErrNotInitialized)
	assert.ErrorIs(t, b.RecordVehicleArrival(&core.VehicleEvent{}), storage.ErrNotInitialized)
	assert.ErrorIs(t, b.RecordStatusChange(&core.StatusChange{}), storage.ErrNotInitialized)
	assert.ErrorIs(t, b.Flush(), storage.ErrNotInitialized)
	assert.Empty(t, b.QueueLengths())
	_, err := b.LoadIntersections()
	assert.ErrorIs(t, err, storage.ErrNotInitialized)
	assert.NoError(t, b.Close())
}

func TestFallsBackToSqlite(t *testing.T) {
	b := New(Dependencies{
		Config:        config.PostgresConfig{Host: "127.0.0.1", Port: "1", Database: "trafficsim"},
		FallbackPath:  filepath.Join(t.TempDir(), "fallback.db"),
		FlushInterval: time.Hour,
		DBLogger:      zerolog.Nop(),
	})
	require.NoError(t, b.Init())
	t.Cleanup(func() { _ = b.Close() })
	assert.True(t, b.Local())

	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, b.SaveIntersection(&core.Intersection{ID: "a", Name: "Elm", Signals: core.DefaultPhaseSet(), CreatedAt: now}))
	require.NoError(t, b.RecordVehicleArrival(&core.VehicleEvent{ID: "e", IntersectionID: "a", Timestamp: now}))
	require.NoError(t, b.Flush())

	loaded, err := b.LoadIntersections()
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "Elm", loaded[0].Name)
}
