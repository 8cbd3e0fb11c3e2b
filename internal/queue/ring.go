package queue

// Ring is a fixed-capacity buffer that keeps the most recent items. It is not
// safe for concurrent use; callers serialize access.
type Ring[T any] struct {
	buf   []T
	start int
	size  int
}

// NewRing creates a ring holding at most capacity items. A capacity below 1
// is raised to 1.
func NewRing[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring[T]{buf: make([]T, capacity)}
}

// Push appends item. When the ring is full the oldest item is evicted and
// returned with evicted set.
func (r *Ring[T]) Push(item T) (old T, evicted bool) {
	if r.size < len(r.buf) {
		r.buf[(r.start+r.size)%len(r.buf)] = item
		r.size++
		return old, false
	}
	old = r.buf[r.start]
	r.buf[r.start] = item
	r.start = (r.start + 1) % len(r.buf)
	return old, true
}

// Len returns the number of stored items.
func (r *Ring[T]) Len() int { return r.size }

// Cap returns the maximum number of stored items.
func (r *Ring[T]) Cap() int { return len(r.buf) }

// Newest returns up to n items, most recent first. n <= 0 returns everything.
func (r *Ring[T]) Newest(n int) []T {
	if n <= 0 || n > r.size {
		n = r.size
	}
	out := make([]T, 0, n)
	for i := 0; i < n; i++ {
		idx := (r.start + r.size - 1 - i) % len(r.buf)
		out = append(out, r.buf[idx])
	}
	return out
}

// Filter returns up to n items matching keep, most recent first.
func (r *Ring[T]) Filter(n int, keep func(T) bool) []T {
	out := make([]T, 0)
	for i := 0; i < r.size; i++ {
		if n > 0 && len(out) == n {
			break
		}
		item := r.buf[(r.start+r.size-1-i)%len(r.buf)]
		if keep(item) {
			out = append(out, item)
		}
	}
	return out
}

// Oldest returns all items, oldest first.
func (r *Ring[T]) Oldest() []T {
	out := make([]T, 0, r.size)
	for i := 0; i < r.size; i++ {
		out = append(out, r.buf[(r.start+i)%len(r.buf)])
	}
	return out
}
