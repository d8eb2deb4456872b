package queue

import (
	"sync"
	"sync/atomic"
)

// Ring is a fixed-capacity circular queue of values.
// Producers are serialized by a short lock; the single consumer is
// lock-free.
type Ring[T any] struct {
	buf  []T
	mask uint64

	head atomic.Uint64 // next slot to read, written by the consumer
	tail atomic.Uint64 // next slot to write, written by producers

	putLock sync.Mutex
	dropped atomic.Uint64
}

// NewRing creates a Ring holding at least size items.
// The capacity is rounded up to a power of two.
func NewRing[T any](size int) *Ring[T] {
	capacity := 1
	for capacity < size {
		capacity <<= 1
	}
	return &Ring[T]{
		buf:  make([]T, capacity),
		mask: uint64(capacity - 1),
	}
}

// Cap returns the capacity.
func (r *Ring[T]) Cap() int {
	return len(r.buf)
}

// Len returns the number of queued items.
func (r *Ring[T]) Len() int {
	return int(r.tail.Load() - r.head.Load())
}

// Dropped returns the number of items rejected because the ring was full.
func (r *Ring[T]) Dropped() uint64 {
	return r.dropped.Load()
}

// Put appends v, or drops it with ErrFull.
func (r *Ring[T]) Put(v T) error {
	r.putLock.Lock()
	defer r.putLock.Unlock()
	t := r.tail.Load()
	if t-r.head.Load() >= uint64(len(r.buf)) {
		r.dropped.Add(1)
		return ErrFull
	}
	r.buf[t&r.mask] = v
	r.tail.Store(t + 1)
	return nil
}

// Get removes the oldest item. Consumer only.
func (r *Ring[T]) Get() (v T, ok bool) {
	h := r.head.Load()
	if h == r.tail.Load() {
		return
	}
	var zero T
	slot := &r.buf[h&r.mask]
	v, *slot = *slot, zero
	r.head.Store(h + 1)
	return v, true
}
