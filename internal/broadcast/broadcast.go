// Package broadcast fans engine events out to observers.
package broadcast

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/shubham78763/trafficSignal/pkg/core"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// DefaultBuffer is the per-subscriber queue length used when Subscribe is
// given a non-positive size.
const DefaultBuffer = 256

// Subscription is one observer's view of the event stream.
type Subscription struct {
	id   uint64
	name string
	ch   chan core.Event
	b    *Broadcaster
	once sync.Once
	done chan struct{}
	fn   bool
}

// Events returns the receive channel. It is closed on Unsubscribe or Close.
func (s *Subscription) Events() <-chan core.Event { return s.ch }

// Done is closed once the subscription has ended and, for SubscribeFunc,
// its handler has returned for the last time.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Unsubscribe removes the subscription. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.b.remove(s)
}

// Broadcaster delivers every published event to all current subscribers in
// publication order. Publish never blocks: a subscriber whose queue is full
// misses the event.
type Broadcaster struct {
	logger        *slog.Logger
	defaultBuffer int

	mu     sync.RWMutex
	subs   map[uint64]*Subscription
	nextID uint64
	closed bool

	publishedN atomic.Uint64
	droppedN   atomic.Uint64

	published   metric.Int64Counter
	dropped     metric.Int64Counter
	subscribers metric.Int64ObservableGauge
}

// New creates a Broadcaster. Uses the global OTel meter for metrics (no-op if
// not configured).
func New(logger *slog.Logger, defaultBuffer int) (*Broadcaster, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if defaultBuffer <= 0 {
		defaultBuffer = DefaultBuffer
	}
	b := &Broadcaster{
		logger:        logger,
		defaultBuffer: defaultBuffer,
		subs:          make(map[uint64]*Subscription),
	}

	m := otel.Meter("github.com/shubham78763/trafficSignal/internal/broadcast")
	var err error

	b.published, err = m.Int64Counter(
		"broadcast.events.published",
		metric.WithDescription("Total events published"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating published counter: %w", err)
	}

	b.dropped, err = m.Int64Counter(
		"broadcast.events.dropped",
		metric.WithDescription("Events not delivered because a subscriber queue was full"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating dropped counter: %w", err)
	}

	b.subscribers, err = m.Int64ObservableGauge(
		"broadcast.subscribers",
		metric.WithDescription("Current number of subscribers"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating subscribers gauge: %w", err)
	}

	_, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			o.ObserveInt64(b.subscribers, int64(b.Subscribers()))
			return nil
		},
		b.subscribers,
	)
	if err != nil {
		return nil, fmt.Errorf("registering subscribers callback: %w", err)
	}

	return b, nil
}

// Subscribe registers a channel subscriber. The name is used in logs and
// metric attributes.
func (b *Broadcaster) Subscribe(name string, buffer int) *Subscription {
	return b.subscribe(name, buffer, false)
}

func (b *Broadcaster) subscribe(name string, buffer int, fn bool) *Subscription {
	if buffer <= 0 {
		buffer = b.defaultBuffer
	}
	s := &Subscription{
		name: name,
		ch:   make(chan core.Event, buffer),
		b:    b,
		done: make(chan struct{}),
		fn:   fn,
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		s.once.Do(func() { b.end(s) })
		return s
	}
	b.nextID++
	s.id = b.nextID
	b.subs[s.id] = s
	b.logger.Debug("subscriber added", "subscriber", name, "buffer", buffer)
	return s
}

// SubscribeFunc registers fn as a subscriber. fn runs on a dedicated
// goroutine, one event at a time.
func (b *Broadcaster) SubscribeFunc(name string, buffer int, fn func(core.Event)) *Subscription {
	s := b.subscribe(name, buffer, true)
	go func() {
		defer close(s.done)
		for e := range s.ch {
			fn(e)
		}
	}()
	return s
}

// Publish hands e to every current subscriber without waiting.
func (b *Broadcaster) Publish(e core.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}

	ctx := context.Background()
	kind := attribute.String("kind", string(e.Kind))
	b.publishedN.Add(1)
	b.published.Add(ctx, 1, metric.WithAttributes(kind))

	for _, s := range b.subs {
		select {
		case s.ch <- e:
		default:
			b.droppedN.Add(1)
			b.dropped.Add(ctx, 1, metric.WithAttributes(kind, attribute.String("subscriber", s.name)))
			b.logger.Debug("subscriber queue full, event dropped",
				"subscriber", s.name, "kind", e.Kind, "intersectionId", e.IntersectionID())
		}
	}
}

func (b *Broadcaster) remove(s *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s.once.Do(func() {
		if _, ok := b.subs[s.id]; !ok {
			return
		}
		delete(b.subs, s.id)
		b.end(s)
		b.logger.Debug("subscriber removed", "subscriber", s.name)
	})
}

// end closes the channel of a subscription already removed from subs.
// Caller holds b.mu.
func (b *Broadcaster) end(s *Subscription) {
	close(s.ch)
	if !s.fn {
		close(s.done)
	}
}

// Close ends every subscription. Later publishes are ignored.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, s := range b.subs {
		delete(b.subs, id)
		s.once.Do(func() { b.end(s) })
	}
}

// Subscribers returns the number of active subscriptions.
func (b *Broadcaster) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Published returns the number of events accepted by Publish.
func (b *Broadcaster) Published() uint64 { return b.publishedN.Load() }

// Dropped returns the number of per-subscriber deliveries skipped because the
// subscriber queue was full.
func (b *Broadcaster) Dropped() uint64 { return b.droppedN.Load() }
