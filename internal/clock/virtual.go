package clock

import (
	"container/heap"
	"sync"
	"time"
)

// Virtual is a manually advanced clock. Callbacks run synchronously on the
// goroutine calling Advance, in deadline order, with Now() set to the
// callback's deadline.
type Virtual struct {
	mu   sync.Mutex
	now  time.Time
	seq  uint64
	heap timerHeap
}

// NewVirtual returns a virtual clock starting at start.
func NewVirtual(start time.Time) *Virtual {
	return &Virtual{now: start}
}

func (v *Virtual) Now() time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.now
}

func (v *Virtual) AfterFunc(d time.Duration, f func()) Timer {
	return v.schedule(d, 0, f)
}

func (v *Virtual) Every(d time.Duration, f func()) Timer {
	if d <= 0 {
		panic("clock: non-positive interval for Every")
	}
	return v.schedule(d, d, f)
}

func (v *Virtual) schedule(d, period time.Duration, f func()) *virtualTimer {
	v.mu.Lock()
	defer v.mu.Unlock()
	if d < 0 {
		d = 0
	}
	v.seq++
	t := &virtualTimer{
		clock:  v,
		when:   v.now.Add(d),
		period: period,
		seq:    v.seq,
		fn:     f,
	}
	heap.Push(&v.heap, t)
	return t
}

// Advance moves time forward by d, firing every timer whose deadline falls
// inside the window. Timers scheduled by callbacks are honoured if they are
// also due before the end of the window.
func (v *Virtual) Advance(d time.Duration) {
	v.mu.Lock()
	end := v.now.Add(d)
	v.mu.Unlock()

	for {
		v.mu.Lock()
		if len(v.heap) == 0 || v.heap[0].when.After(end) {
			v.now = end
			v.mu.Unlock()
			return
		}
		t := v.heap[0]
		v.now = t.when
		if t.period > 0 {
			v.seq++
			t.seq = v.seq
			t.when = t.when.Add(t.period)
			heap.Fix(&v.heap, 0)
		} else {
			heap.Pop(&v.heap)
		}
		fn := t.fn
		v.mu.Unlock()

		fn()
	}
}

// Pending returns the number of scheduled timers.
func (v *Virtual) Pending() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.heap)
}

type virtualTimer struct {
	clock  *Virtual
	when   time.Time
	period time.Duration
	seq    uint64
	fn     func()
	index  int
}

func (t *virtualTimer) Stop() bool {
	v := t.clock
	v.mu.Lock()
	defer v.mu.Unlock()
	if t.index < 0 {
		return false
	}
	heap.Remove(&v.heap, t.index)
	return true
}

// timerHeap orders timers by deadline, then by scheduling order.
type timerHeap []*virtualTimer

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	if h[i].when.Equal(h[j].when) {
		return h[i].seq < h[j].seq
	}
	return h[i].when.Before(h[j].when)
}

func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *timerHeap) Push(x any) {
	t := x.(*virtualTimer)
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}
