// Package output queues formatted lines for the console transport.
package output

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/sensorhub/pkg/framework"
	"github.com/robotalks/sensorhub/pkg/queue"
	"github.com/robotalks/sensorhub/pkg/transport"
)

// LineWriter accepts complete output lines.
type LineWriter interface {
	WriteLine(line string) error
}

// Printf formats a line into w.
func Printf(w LineWriter, format string, args ...interface{}) error {
	return w.WriteLine(fmt.Sprintf(format, args...))
}

// Defaults of Writer.
const (
	DefaultQueueSize  = 4096
	DefaultChunkSize  = 256
	DefaultMinBackoff = time.Millisecond
	DefaultMaxBackoff = 64 * time.Millisecond
)

// Writer feeds queued lines to a transport.Sender one chunk at a time.
// The next chunk is sent when the previous one completes; a busy transport
// is retried from a backoff timer.
type Writer struct {
	MinBackoff time.Duration
	MaxBackoff time.Duration

	sender transport.Sender
	queue  *queue.Bytes
	buf    []byte

	lock     sync.Mutex
	inflight []byte
	sending  bool
	backoff  time.Duration
	timer    *time.Timer
	closed   bool
	failed   uint64
}

// NewWriter creates a Writer.
func NewWriter(sender transport.Sender, queueSize, chunkSize int) *Writer {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Writer{
		MinBackoff: DefaultMinBackoff,
		MaxBackoff: DefaultMaxBackoff,
		sender:     sender,
		queue:      queue.NewBytes(queueSize),
		buf:        make([]byte, chunkSize),
	}
}

// WriteLine implements LineWriter. The line is queued whole or dropped
// with queue.ErrFull. When the transport is idle the first chunk is sent
// before WriteLine returns.
func (w *Writer) WriteLine(line string) error {
	if err := w.queue.Put([]byte(line)); err != nil {
		return err
	}
	return w.kick()
}

// SendComplete implements transport.CompletionHandler.
func (w *Writer) SendComplete(err error) {
	w.lock.Lock()
	w.sending = false
	if err != nil {
		w.failed++
		glog.Errorf("output: %d bytes lost: %v", len(w.inflight), err)
	}
	w.inflight = nil
	w.lock.Unlock()
	if err := w.kick(); err != nil {
		glog.Errorf("output: %v", err)
	}
}

// Queued returns the number of bytes waiting, excluding the chunk in flight.
func (w *Writer) Queued() int {
	return w.queue.Len()
}

// Dropped returns the number of bytes rejected by the full queue.
func (w *Writer) Dropped() uint64 {
	return w.queue.Dropped()
}

// Failed returns the number of chunks lost to transport failures.
func (w *Writer) Failed() uint64 {
	w.lock.Lock()
	defer w.lock.Unlock()
	return w.failed
}

// Close stops retrying. Queued output is discarded.
func (w *Writer) Close() error {
	w.lock.Lock()
	defer w.lock.Unlock()
	w.closed = true
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	return nil
}

// kick sends the next chunk unless a send or retry is outstanding. A chunk
// failing fatally is dropped and the following one is tried at once.
func (w *Writer) kick() error {
	var errs framework.AggregatedError
	for {
		chunk := w.next()
		if chunk == nil {
			return errs.Aggregate()
		}
		err := w.sender.Send(chunk)

		w.lock.Lock()
		switch {
		case err == nil:
			w.backoff = 0
			w.lock.Unlock()
			return errs.Aggregate()
		case errors.Is(err, transport.ErrBusy):
			w.sending = false
			w.scheduleRetry()
			w.lock.Unlock()
			return errs.Aggregate()
		}
		w.sending = false
		w.inflight = nil
		w.failed++
		w.lock.Unlock()
		errs.Add(fmt.Errorf("output: send %d bytes: %w", len(chunk), err))
	}
}

// next claims the chunk to send. It returns nil while a send or retry is
// outstanding, or when nothing is queued.
func (w *Writer) next() []byte {
	w.lock.Lock()
	defer w.lock.Unlock()
	if w.sending || w.closed || w.timer != nil {
		return nil
	}
	if w.inflight == nil {
		n := w.queue.Get(w.buf)
		if n == 0 {
			return nil
		}
		w.inflight = append([]byte(nil), w.buf[:n]...)
	}
	w.sending = true
	return w.inflight
}

// scheduleRetry must be called with lock held.
func (w *Writer) scheduleRetry() {
	if w.closed || w.timer != nil {
		return
	}
	w.backoff *= 2
	if w.backoff < w.MinBackoff {
		w.backoff = w.MinBackoff
	}
	if w.backoff > w.MaxBackoff {
		w.backoff = w.MaxBackoff
	}
	glog.V(4).Infof("output: transport busy, retry in %s", w.backoff)
	w.timer = time.AfterFunc(w.backoff, func() {
		w.lock.Lock()
		w.timer = nil
		w.lock.Unlock()
		if err := w.kick(); err != nil {
			glog.Errorf("output: %v", err)
		}
	})
}
