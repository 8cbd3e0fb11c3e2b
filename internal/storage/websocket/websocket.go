package websocket

import (
	"log/slog"
	"time"

	"github.com/shubham78763/trafficSignal/pkg/core"
	"github.com/shubham78763/trafficSignal/pkg/streaming"
)

// drainWait bounds how long Close waits for queued messages to be written.
const drainWait = 2 * time.Second

// Config holds WebSocket backend configuration.
type Config struct {
	URL    string
	Secret string
}

// Backend streams intersection records and events over WebSocket to a
// remote collector. It implements storage.Backend but not storage.Exporter.
type Backend struct {
	conn *connection
	cfg  Config
}

// New creates a new WebSocket storage backend.
func New(cfg Config, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		conn: newConnection(logger.With("component", "ws-storage")),
		cfg:  cfg,
	}
}

// Init connects to the WebSocket server.
func (b *Backend) Init() error {
	return b.conn.dial(b.cfg.URL, b.cfg.Secret)
}

// Close waits briefly for queued messages, then disconnects.
func (b *Backend) Close() error {
	deadline := time.Now().Add(drainWait)
	for len(b.conn.sendCh) > 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	return b.conn.close()
}

// Dropped returns how many messages were discarded on a full send buffer.
func (b *Backend) Dropped() uint64 {
	return b.conn.dropped.Load()
}

// sendEnvelope marshals the payload into an Envelope and pushes it
// to the write loop (fire-and-forget).
func (b *Backend) sendEnvelope(msgType string, payload any) error {
	data, err := streaming.Encode(msgType, payload)
	if err != nil {
		return err
	}
	b.conn.send(data)
	return nil
}

// SaveIntersection sends the record and caches it for reconnect replay.
func (b *Backend) SaveIntersection(i *core.Intersection) error {
	data, err := streaming.Encode(streaming.TypeSaveIntersection, i)
	if err != nil {
		return err
	}
	b.conn.remember(i.ID, data)
	b.conn.send(data)
	return nil
}

func (b *Backend) DeleteIntersection(id string) error {
	b.conn.remember(id, nil)
	return b.sendEnvelope(streaming.TypeDeleteIntersection, streaming.IntersectionRef{IntersectionID: id})
}

func (b *Backend) send(e core.Event) error {
	data, err := streaming.EncodeEvent(e)
	if err != nil {
		return err
	}
	b.conn.send(data)
	return nil
}

func (b *Backend) RecordSignalChange(u *core.SignalUpdate) error {
	return b.send(core.NewSignalEvent(*u))
}

func (b *Backend) RecordVehicleArrival(v *core.VehicleEvent) error {
	return b.send(core.NewVehicleEvent(*v))
}

func (b *Backend) RecordStatusChange(s *core.StatusChange) error {
	return b.send(core.NewStatusEvent(*s))
}
