// Package gateway serves engine events to websocket observers and accepts
// start/stop commands from them.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shubham78763/trafficSignal/internal/broadcast"
	"github.com/shubham78763/trafficSignal/internal/dispatcher"
	"github.com/shubham78763/trafficSignal/pkg/core"
	"github.com/shubham78763/trafficSignal/pkg/streaming"
)

const (
	writeWait    = 10 * time.Second
	replyBuffer  = 16
	maxFrameSize = 64 * 1024
)

// Commands for inbound messages.
const (
	CommandStart = ":INTERSECTION:START:"
	CommandStop  = ":INTERSECTION:STOP:"
)

// Source supplies the snapshot each client receives on connect.
type Source interface {
	Intersections() []core.Intersection
}

// Commander executes inbound commands. *dispatcher.Dispatcher satisfies it.
type Commander interface {
	Dispatch(dispatcher.Event) (any, error)
}

// Config holds the listener settings.
type Config struct {
	Listen string
	// AllowedOrigins restricts browser clients. Empty allows every origin.
	AllowedOrigins []string
	// Buffer is the per-client event queue length.
	Buffer int
}

// Server is the observer websocket endpoint.
type Server struct {
	cfg      Config
	logger   *slog.Logger
	events   *broadcast.Broadcaster
	source   Source
	commands Commander
	upgrader websocket.Upgrader
	allowed  map[string]struct{}

	httpSrv *http.Server
	clients atomic.Int64
	wg      sync.WaitGroup

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

// New creates a Server. commands may be nil, in which case inbound commands
// are answered with an error.
func New(cfg Config, events *broadcast.Broadcaster, source Source, commands Commander, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:      cfg,
		logger:   logger,
		events:   events,
		source:   source,
		commands: commands,
		allowed:  make(map[string]struct{}, len(cfg.AllowedOrigins)),
		conns:    make(map[*websocket.Conn]struct{}),
	}
	for _, o := range cfg.AllowedOrigins {
		s.allowed[o] = struct{}{}
	}
	s.upgrader = websocket.Upgrader{CheckOrigin: s.checkOrigin}
	return s
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if len(s.allowed) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	_, ok := s.allowed[origin]
	return ok
}

// Handler returns the routes served by the gateway.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.serveWS)
	mux.HandleFunc("/healthcheck", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// Start listens on cfg.Listen and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return fmt.Errorf("gateway listen: %w", err)
	}
	s.httpSrv = &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	s.logger.Info("gateway listening", "addr", ln.Addr().String())

	go func() {
		if err := s.httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("gateway stopped", "error", err)
		}
	}()
	return nil
}

// Shutdown stops accepting connections, closes every client and waits for
// their goroutines.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	if s.httpSrv != nil {
		err = s.httpSrv.Shutdown(ctx)
	}

	s.mu.Lock()
	for c := range s.conns {
		_ = c.Close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return errors.Join(err, ctx.Err())
	}
	return err
}

// Clients returns the number of connected observers.
func (s *Server) Clients() int {
	return int(s.clients.Load())
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", "error", err, "remote", r.RemoteAddr)
		return
	}
	conn.SetReadLimit(maxFrameSize)

	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.mu.Unlock()
	s.clients.Add(1)
	s.wg.Add(1)

	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		s.clients.Add(-1)
		_ = conn.Close()
		s.wg.Done()
	}()

	s.logger.Info("observer connected", "remote", r.RemoteAddr)

	// subscribe before taking the snapshot so nothing published in between is missed
	sub := s.events.Subscribe("gateway:"+r.RemoteAddr, s.cfg.Buffer)
	defer sub.Unsubscribe()

	replies := make(chan []byte, replyBuffer)
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		s.readLoop(conn, replies)
	}()

	s.writeLoop(conn, sub, replies, readDone)
	_ = conn.Close()
	<-readDone
	s.logger.Info("observer disconnected", "remote", r.RemoteAddr)
}

func (s *Server) writeLoop(conn *websocket.Conn, sub *broadcast.Subscription, replies <-chan []byte, readDone <-chan struct{}) {
	var list []core.Intersection
	if s.source != nil {
		list = s.source.Intersections()
	}
	if list == nil {
		list = []core.Intersection{}
	}
	snapshot, err := streaming.Encode(streaming.TypeSnapshot, streaming.SnapshotPayload{Intersections: list})
	if err != nil {
		s.logger.Error("encode snapshot", "error", err)
		return
	}
	if err := write(conn, snapshot); err != nil {
		return
	}

	for {
		select {
		case <-readDone:
			return
		case msg := <-replies:
			if err := write(conn, msg); err != nil {
				return
			}
		case e, ok := <-sub.Events():
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
					time.Now().Add(writeWait))
				return
			}
			data, err := streaming.EncodeEvent(e)
			if err != nil {
				s.logger.Warn("encode event", "error", err, "kind", e.Kind)
				continue
			}
			if err := write(conn, data); err != nil {
				return
			}
		}
	}
}

func write(conn *websocket.Conn, data []byte) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, data)
}

func (s *Server) readLoop(conn *websocket.Conn, replies chan<- []byte) {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("observer read error", "error", err)
			}
			return
		}
		reply := s.handle(msg)
		select {
		case replies <- reply:
		default:
			s.logger.Warn("reply queue full, dropping reply")
		}
	}
}

// handle executes one inbound envelope and returns the encoded ack or error.
func (s *Server) handle(msg []byte) []byte {
	var env streaming.Envelope
	if err := json.Unmarshal(msg, &env); err != nil {
		return errorReply("", fmt.Errorf("invalid envelope: %w", err))
	}

	var command string
	switch env.Type {
	case streaming.TypeStartIntersection:
		command = CommandStart
	case streaming.TypeStopIntersection:
		command = CommandStop
	default:
		return errorReply(env.Type, fmt.Errorf("unsupported message type %q", env.Type))
	}

	id, err := parseRef(env.Payload)
	if err != nil {
		return errorReply(env.Type, err)
	}
	if s.commands == nil {
		return errorReply(env.Type, errors.New("commands are disabled"))
	}
	if _, err := s.commands.Dispatch(dispatcher.Event{Command: command, Args: []string{id}, Source: dispatcher.SourceGateway}); err != nil {
		return errorReply(env.Type, err)
	}

	data, _ := json.Marshal(streaming.AckMessage{Type: streaming.TypeAck, For: env.Type})
	return data
}

// parseRef accepts either a bare id string or {"intersectionId": "..."}.
func parseRef(raw json.RawMessage) (string, error) {
	var id string
	if err := json.Unmarshal(raw, &id); err == nil {
		if id == "" {
			return "", errors.New("intersection id is empty")
		}
		return id, nil
	}
	var ref streaming.IntersectionRef
	if err := json.Unmarshal(raw, &ref); err != nil {
		return "", fmt.Errorf("invalid intersection reference: %w", err)
	}
	if ref.IntersectionID == "" {
		return "", errors.New("intersection id is empty")
	}
	return ref.IntersectionID, nil
}

func errorReply(forType string, err error) []byte {
	data, _ := json.Marshal(streaming.ErrorMessage{
		Type:    streaming.TypeError,
		For:     forType,
		Message: err.Error(),
	})
	return data
}
