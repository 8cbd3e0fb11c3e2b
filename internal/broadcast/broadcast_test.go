package broadcast

import (
	"sync"
	"testing"
	"time"

	"github.com/shubham78763/trafficSignal/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBroadcaster(t *testing.T) *Broadcaster {
	t.Helper()
	b, err := New(nil, 8)
	require.NoError(t, err)
	t.Cleanup(b.Close)
	return b
}

func signal(id string, cycle uint64) core.Event {
	return core.NewSignalEvent(core.SignalUpdate{IntersectionID: id, Cycle: cycle})
}

func TestPublishOrder(t *testing.T) {
	b := newTestBroadcaster(t)
	s1 := b.Subscribe("one", 0)
	s2 := b.Subscribe("two", 0)

	for i := uint64(0); i < 5; i++ {
		b.Publish(signal("x", i))
	}

	for _, s := range []*Subscription{s1, s2} {
		for i := uint64(0); i < 5; i++ {
			e := <-s.Events()
			assert.Equal(t, i, e.Signal.Cycle)
		}
	}
	assert.Equal(t, uint64(5), b.Published())
	assert.Equal(t, uint64(0), b.Dropped())
}

func TestLateSubscriberMissesEarlierEvents(t *testing.T) {
	b := newTestBroadcaster(t)
	b.Publish(signal("x", 1))
	s := b.Subscribe("late", 0)
	b.Publish(signal("x", 2))

	e := <-s.Events()
	assert.Equal(t, uint64(2), e.Signal.Cycle)
	select {
	case e := <-s.Events():
		t.Fatalf("unexpected event %+v", e)
	default:
	}
}

func TestFullSubscriberDropsWithoutBlocking(t *testing.T) {
	b := newTestBroadcaster(t)
	slow := b.Subscribe("slow", 2)
	fast := b.Subscribe("fast", 10)

	done := make(chan struct{})
	go func() {
		for i := uint64(0); i < 5; i++ {
			b.Publish(signal("x", i))
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}

	assert.Len(t, slow.Events(), 2)
	assert.Len(t, fast.Events(), 5)
	assert.Equal(t, uint64(3), b.Dropped())

	first := <-slow.Events()
	assert.Equal(t, uint64(0), first.Signal.Cycle)
}

func TestUnsubscribeIdempotent(t *testing.T) {
	b := newTestBroadcaster(t)
	s := b.Subscribe("x", 0)
	assert.Equal(t, 1, b.Subscribers())

	s.Unsubscribe()
	s.Unsubscribe()
	assert.Equal(t, 0, b.Subscribers())

	_, ok := <-s.Events()
	assert.False(t, ok)
	<-s.Done()

	b.Publish(signal("x", 1))
	assert.Equal(t, uint64(0), b.Dropped())
}

func TestSubscribeFunc(t *testing.T) {
	b := newTestBroadcaster(t)

	var mu sync.Mutex
	var got []uint64
	s := b.SubscribeFunc("fn", 0, func(e core.Event) {
		mu.Lock()
		got = append(got, e.Signal.Cycle)
		mu.Unlock()
	})

	for i := uint64(0); i < 3; i++ {
		b.Publish(signal("x", i))
	}
	s.Unsubscribe()
	<-s.Done()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []uint64{0, 1, 2}, got)
}

func TestClose(t *testing.T) {
	b, err := New(nil, 0)
	require.NoError(t, err)
	s := b.Subscribe("x", 0)
	f := b.SubscribeFunc("f", 0, func(core.Event) {})

	b.Close()
	b.Close()

	_, ok := <-s.Events()
	assert.False(t, ok)
	<-f.Done()
	assert.Equal(t, 0, b.Subscribers())

	b.Publish(signal("x", 1))
	assert.Equal(t, uint64(0), b.Published())

	after := b.SubscribeFunc("after", 0, func(core.Event) {})
	<-after.Done()
	after.Unsubscribe()
}

func TestConcurrentPublishAndUnsubscribe(t *testing.T) {
	b := newTestBroadcaster(t)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		s := b.Subscribe("s", 1)
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				b.Publish(signal("x", uint64(j)))
			}
		}()
		go func() {
			defer wg.Done()
			s.Unsubscribe()
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, b.Subscribers())
}
