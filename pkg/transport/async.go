package transport

import (
	"fmt"
	"io"
	"sync/atomic"
)

// Async turns a blocking io.Writer into a Sender.
// Each accepted chunk is written on its own goroutine and Handler is
// notified when the write returns.
type Async struct {
	W       io.Writer
	Handler CompletionHandler

	busy   atomic.Bool
	closed atomic.Bool
}

// NewAsync creates an Async writing to w.
func NewAsync(w io.Writer) *Async {
	return &Async{W: w}
}

// Send implements Sender.
func (a *Async) Send(p []byte) error {
	if a.closed.Load() {
		return ErrClosed
	}
	if !a.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	chunk := append([]byte(nil), p...)
	go func() {
		_, err := a.W.Write(chunk)
		if err != nil {
			err = fmt.Errorf("write %d bytes: %w", len(chunk), err)
		}
		a.busy.Store(false)
		if h := a.Handler; h != nil {
			h.SendComplete(err)
		}
	}()
	return nil
}

// Busy reports whether a chunk is in flight.
func (a *Async) Busy() bool {
	return a.busy.Load()
}

// Close rejects further sends. The underlying writer is not closed.
func (a *Async) Close() error {
	a.closed.Store(true)
	return nil
}
