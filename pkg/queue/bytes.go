package queue

import (
	"sync"
	"sync/atomic"

	"github.com/smallnest/ringbuffer"
)

// Bytes is a bounded byte queue.
type Bytes struct {
	rb      *ringbuffer.RingBuffer
	putLock sync.Mutex
	dropped atomic.Uint64
}

// NewBytes creates a byte queue with the given capacity.
func NewBytes(size int) *Bytes {
	return &Bytes{rb: ringbuffer.New(size)}
}

// Cap returns the capacity.
func (q *Bytes) Cap() int {
	return q.rb.Capacity()
}

// Len returns the number of queued bytes.
func (q *Bytes) Len() int {
	return q.rb.Length()
}

// Dropped returns the number of bytes rejected because the queue was full.
func (q *Bytes) Dropped() uint64 {
	return q.dropped.Load()
}

// PutByte appends one byte.
func (q *Bytes) PutByte(b byte) error {
	q.putLock.Lock()
	defer q.putLock.Unlock()
	if err := q.rb.WriteByte(b); err != nil {
		q.dropped.Add(1)
		return ErrFull
	}
	return nil
}

// Put appends all of p or nothing.
func (q *Bytes) Put(p []byte) error {
	if len(p) == 0 {
		return nil
	}
	q.putLock.Lock()
	defer q.putLock.Unlock()
	if q.rb.Free() < len(p) {
		q.dropped.Add(uint64(len(p)))
		return ErrFull
	}
	if _, err := q.rb.Write(p); err != nil {
		q.dropped.Add(uint64(len(p)))
		return ErrFull
	}
	return nil
}

// GetByte removes one byte. Consumer only.
func (q *Bytes) GetByte() (byte, bool) {
	b, err := q.rb.ReadByte()
	if err != nil {
		return 0, false
	}
	return b, true
}

// Get removes up to len(p) bytes and returns the count. Consumer only.
func (q *Bytes) Get(p []byte) int {
	if len(p) == 0 || q.rb.IsEmpty() {
		return 0
	}
	n, err := q.rb.Read(p)
	if err != nil {
		return 0
	}
	return n
}
