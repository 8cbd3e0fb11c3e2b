package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shubham78763/trafficSignal/internal/storage"
	"github.com/shubham78763/trafficSignal/pkg/core"
	"github.com/shubham78763/trafficSignal/pkg/streaming"
)

// Compile-time interface check.
var _ storage.Backend = (*Backend)(nil)

type messageLog struct {
	mu       sync.Mutex
	messages []streaming.Envelope
	secrets  []string
}

func (m *messageLog) add(env streaming.Envelope) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, env)
}

func (m *messageLog) all() []streaming.Envelope {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]streaming.Envelope, len(m.messages))
	copy(cp, m.messages)
	return cp
}

func (m *messageLog) countType(msgType string) int {
	n := 0
	for _, env := range m.all() {
		if env.Type == msgType {
			n++
		}
	}
	return n
}

// testServer creates an httptest server that upgrades to WebSocket,
// records received messages and acks each one. dropFirst closes the first
// connection after its first message.
func testServer(t *testing.T, dropFirst bool) (*httptest.Server, *messageLog, *atomic.Int32) {
	t.Helper()
	ml := &messageLog{}
	var conns atomic.Int32

	upgrader := ws.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ml.mu.Lock()
		ml.secrets = append(ml.secrets, r.URL.Query().Get("secret"))
		ml.mu.Unlock()

		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer c.Close()
		n := conns.Add(1)

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				return
			}

			var env streaming.Envelope
			if err := json.Unmarshal(msg, &env); err != nil {
				continue
			}
			ml.add(env)

			if dropFirst && n == 1 {
				return
			}

			ack, _ := json.Marshal(streaming.AckMessage{Type: streaming.TypeAck, For: env.Type})
			if err := c.WriteMessage(ws.TextMessage, ack); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv, ml, &conns
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestInitFailsWithoutServer(t *testing.T) {
	b := New(Config{URL: "ws://127.0.0.1:1/ingest"}, nil)
	assert.Error(t, b.Init())
	assert.NoError(t, b.Close())
}

func TestInitInvalidURL(t *testing.T) {
	b := New(Config{URL: "://bad"}, nil)
	assert.Error(t, b.Init())
}

func TestStreamsEveryRecord(t *testing.T) {
	srv, ml, _ := testServer(t, false)

	b := New(Config{URL: wsURL(srv), Secret: "s3cret"}, nil)
	require.NoError(t, b.Init())

	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, b.SaveIntersection(&core.Intersection{ID: "a", Name: "Main", Signals: core.DefaultPhaseSet()}))
	require.NoError(t, b.RecordStatusChange(&core.StatusChange{IntersectionID: "a", IsActive: true, Reason: core.ReasonStarted, Timestamp: now}))
	require.NoError(t, b.RecordSignalChange(&core.SignalUpdate{IntersectionID: "a", Phases: core.DefaultPhaseSet().WithPairs(core.Green, core.Red), Timestamp: now}))
	require.NoError(t, b.RecordVehicleArrival(&core.VehicleEvent{ID: "e", IntersectionID: "a", VehicleID: "a_V1", Type: core.Car, Direction: core.North, Priority: 1, Timestamp: now}))
	require.NoError(t, b.DeleteIntersection("a"))

	assert.Eventually(t, func() bool { return len(ml.all()) == 5 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, b.Close())

	msgs := ml.all()
	types := make([]string, len(msgs))
	for i, m := range msgs {
		types[i] = m.Type
	}
	assert.Equal(t, []string{
		streaming.TypeSaveIntersection,
		streaming.TypeIntersectionStatus,
		streaming.TypeSignalUpdate,
		streaming.TypeVehicleArrival,
		streaming.TypeDeleteIntersection,
	}, types)

	var arrival streaming.VehicleArrivedPayload
	require.NoError(t, json.Unmarshal(msgs[3].Payload, &arrival))
	assert.Equal(t, "a", arrival.IntersectionID)
	assert.Equal(t, "a_V1", arrival.Vehicle.VehicleID)

	var ref streaming.IntersectionRef
	require.NoError(t, json.Unmarshal(msgs[4].Payload, &ref))
	assert.Equal(t, "a", ref.IntersectionID)

	ml.mu.Lock()
	assert.Equal(t, "s3cret", ml.secrets[0])
	ml.mu.Unlock()
}

func TestReconnectReplaysIntersections(t *testing.T) {
	srv, ml, conns := testServer(t, true)

	b := New(Config{URL: wsURL(srv)}, nil)
	b.conn.backoff = 10 * time.Millisecond
	require.NoError(t, b.Init())
	t.Cleanup(func() { _ = b.Close() })

	require.NoError(t, b.SaveIntersection(&core.Intersection{ID: "a", Name: "Main"}))

	assert.Eventually(t, func() bool {
		return conns.Load() >= 2 && ml.countType(streaming.TypeSaveIntersection) >= 2
	}, 5*time.Second, 10*time.Millisecond)

	// the replacement connection carries new traffic
	require.NoError(t, b.RecordStatusChange(&core.StatusChange{IntersectionID: "a", Reason: core.ReasonStopped}))
	assert.Eventually(t, func() bool {
		return ml.countType(streaming.TypeIntersectionStatus) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestDeleteForgetsReplay(t *testing.T) {
	b := New(Config{}, nil)
	b.conn.remember("a", []byte("a"))
	b.conn.remember("b", []byte("b"))
	b.conn.remember("a", []byte("a2"))
	assert.Equal(t, []string{"a", "b"}, b.conn.replayOrder)
	assert.Equal(t, []byte("a2"), b.conn.replay["a"])

	require.NoError(t, b.DeleteIntersection("a"))
	assert.Equal(t, []string{"b"}, b.conn.replayOrder)
	assert.NotContains(t, b.conn.replay, "a")
}

func TestSendDropsWhenFull(t *testing.T) {
	b := New(Config{}, nil)
	for i := 0; i < sendChSize+3; i++ {
		b.conn.send([]byte("x"))
	}
	assert.Equal(t, uint64(3), b.Dropped())
}
