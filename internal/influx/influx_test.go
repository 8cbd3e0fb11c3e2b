package influx

import (
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shubham78763/trafficSignal/internal/config"
	"github.com/shubham78763/trafficSignal/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ts = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

func readBackup(t *testing.T, path string) string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	data, err := io.ReadAll(gz)
	require.NoError(t, err)
	return string(data)
}

func TestConnect_Disabled(t *testing.T) {
	m := NewManager(zerolog.Nop(), config.InfluxConfig{}, "")
	assert.ErrorIs(t, m.Connect(context.Background()), ErrDisabled)
	assert.Equal(t, []string{"traffic_events", MonitorBucket}, m.BucketNames)
}

func TestServerURL(t *testing.T) {
	m := NewManager(zerolog.Nop(), config.InfluxConfig{Host: "influx", Port: "8086"}, "")
	assert.Equal(t, "http://influx:8086", m.ServerURL())

	m = NewManager(zerolog.Nop(), config.InfluxConfig{Protocol: "https", Host: "h", Port: "443", Bucket: "b"}, "")
	assert.Equal(t, "https://h:443", m.ServerURL())
	assert.Equal(t, "b", m.EventsBucket)
}

func TestUnreachableFallsBackToBackup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "influx", "backup.lp.gz")
	m := NewManager(zerolog.Nop(), config.InfluxConfig{
		Enabled: true, Protocol: "http", Host: "127.0.0.1", Port: "1", Org: "trafficsim",
	}, path)

	require.NoError(t, m.Connect(context.Background()))
	assert.False(t, m.IsValid)

	require.NoError(t, m.WriteEvent(core.NewSignalEvent(core.SignalUpdate{
		IntersectionID: "a",
		Phases:         core.DefaultPhaseSet().WithPairs(core.Green, core.Red),
		Cycle:          4,
		Timestamp:      ts,
	})))
	require.NoError(t, m.WriteEvent(core.NewVehicleEvent(core.VehicleEvent{
		IntersectionID: "a", VehicleID: "a_V1", Type: core.Emergency, Direction: core.East, Priority: 10, Timestamp: ts,
	})))
	require.NoError(t, m.WriteEvent(core.NewStatusEvent(core.StatusChange{
		IntersectionID: "a", IsActive: true, Reason: core.ReasonStarted, Timestamp: ts,
	})))
	require.NoError(t, m.Close())

	lines := strings.FieldsFunc(readBackup(t, path), func(r rune) bool { return r == '\n' })
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "signal_change,"))
	assert.Contains(t, lines[0], "phase=NS-GREEN")
	assert.Contains(t, lines[0], "cycle=4i")
	assert.True(t, strings.HasPrefix(lines[1], "vehicle_arrival,"))
	assert.Contains(t, lines[1], "type=EMERGENCY")
	assert.Contains(t, lines[1], "priority=10i")
	assert.True(t, strings.HasPrefix(lines[2], "intersection_status,"))
	assert.Contains(t, lines[2], "active=true")
	assert.True(t, strings.HasSuffix(lines[2], "1714521600000000000"))
}

func TestUnreachableWithoutBackupPath(t *testing.T) {
	m := NewManager(zerolog.Nop(), config.InfluxConfig{Enabled: true, Host: "127.0.0.1", Port: "1"}, "")
	assert.Error(t, m.Connect(context.Background()))
}

func TestWritePoint_NotConnected(t *testing.T) {
	m := NewManager(zerolog.Nop(), config.InfluxConfig{}, "")
	assert.Error(t, m.WritePoint(MonitorBucket, StatusPoint(core.StatusChange{IntersectionID: "a"})))
	assert.NoError(t, m.Close())
}

func TestEventPoint_Unknown(t *testing.T) {
	_, err := EventPoint(core.Event{Kind: core.KindSignalUpdate})
	assert.Error(t, err)
}

func TestPointTags(t *testing.T) {
	p := VehicleArrivalPoint(core.VehicleEvent{IntersectionID: "x", Type: core.Car, Direction: core.North, Timestamp: ts})
	assert.Equal(t, "vehicle_arrival", p.Name())

	tags := map[string]string{}
	for _, tag := range p.TagList() {
		tags[tag.Key] = tag.Value
	}
	assert.Equal(t, map[string]string{"intersection_id": "x", "type": "CAR", "direction": "NORTH"}, tags)
}
