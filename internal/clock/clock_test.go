package clock

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestVirtualAfterFunc(t *testing.T) {
	v := NewVirtual(epoch)
	var fired time.Time
	v.AfterFunc(3*time.Second, func() { fired = v.Now() })

	v.Advance(2 * time.Second)
	assert.True(t, fired.IsZero())
	assert.Equal(t, 1, v.Pending())

	v.Advance(time.Second)
	assert.Equal(t, epoch.Add(3*time.Second), fired)
	assert.Equal(t, 0, v.Pending())
}

func TestVirtualStop(t *testing.T) {
	v := NewVirtual(epoch)
	called := false
	tm := v.AfterFunc(time.Second, func() { called = true })

	assert.True(t, tm.Stop())
	assert.False(t, tm.Stop())
	v.Advance(time.Minute)
	assert.False(t, called)
}

func TestVirtualStopAfterFire(t *testing.T) {
	v := NewVirtual(epoch)
	tm := v.AfterFunc(time.Second, func() {})
	v.Advance(time.Second)
	assert.False(t, tm.Stop())
}

func TestVirtualEvery(t *testing.T) {
	v := NewVirtual(epoch)
	var n int
	tm := v.Every(5*time.Second, func() { n++ })

	v.Advance(4 * time.Second)
	assert.Equal(t, 0, n)
	v.Advance(21 * time.Second)
	assert.Equal(t, 5, n)

	require.True(t, tm.Stop())
	v.Advance(time.Minute)
	assert.Equal(t, 5, n)
}

func TestVirtualEveryStopFromCallback(t *testing.T) {
	v := NewVirtual(epoch)
	var n int
	var tm Timer
	tm = v.Every(time.Second, func() {
		n++
		if n == 2 {
			tm.Stop()
		}
	})
	v.Advance(10 * time.Second)
	assert.Equal(t, 2, n)
	assert.Equal(t, 0, v.Pending())
}

func TestVirtualOrdering(t *testing.T) {
	v := NewVirtual(epoch)
	var order []string
	v.AfterFunc(2*time.Second, func() { order = append(order, "b") })
	v.AfterFunc(time.Second, func() { order = append(order, "a") })
	v.AfterFunc(2*time.Second, func() { order = append(order, "c") })

	v.Advance(3 * time.Second)
	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestVirtualChainedCallbacks(t *testing.T) {
	v := NewVirtual(epoch)
	var times []time.Duration
	var next func()
	next = func() {
		times = append(times, v.Now().Sub(epoch))
		v.AfterFunc(2*time.Second, next)
	}
	v.AfterFunc(2*time.Second, next)

	v.Advance(7 * time.Second)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second, 6 * time.Second}, times)
	assert.Equal(t, epoch.Add(7*time.Second), v.Now())
}

func TestRealAfterFunc(t *testing.T) {
	c := New()
	done := make(chan struct{})
	c.AfterFunc(time.Millisecond, func() { close(done) })
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timer did not fire")
	}
}

func TestRealEvery(t *testing.T) {
	c := New()
	var n atomic.Int32
	tm := c.Every(time.Millisecond, func() { n.Add(1) })
	require.Eventually(t, func() bool { return n.Load() >= 3 }, time.Second, time.Millisecond)
	assert.True(t, tm.Stop())
	assert.False(t, tm.Stop())
}
