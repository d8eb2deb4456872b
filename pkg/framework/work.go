package framework

import (
	"context"
	"sync/atomic"

	"github.com/golang/glog"
)

// StepFunc consumes one unit of work and reports whether anything was
// consumed. It is only called from the drain job.
type StepFunc func(context.Context) bool

// Work coalesces "work available" signals for one queue/consumer pair.
//
// The pending counter is above zero iff the drain job is posted or running.
// Signal posts the drain job only on the 0 -> 1 transition; later signals
// only increment the counter and are consumed by the job already in flight.
type Work struct {
	Name string

	poster  Poster
	step    StepFunc
	pending int64
}

// NewWork creates a Work posting its drain job to poster.
func NewWork(name string, poster Poster, step StepFunc) *Work {
	return &Work{Name: name, poster: poster, step: step}
}

// Signal records one unit of available work. Safe from any goroutine,
// never blocks.
func (w *Work) Signal() {
	if atomic.AddInt64(&w.pending, 1) == 1 {
		w.poster.Post(w)
	}
}

// Pending returns the current counter value.
func (w *Work) Pending() int {
	return int(atomic.LoadInt64(&w.pending))
}

// RunJob implements Job. It drains until the counter drops to zero.
func (w *Work) RunJob(ctx context.Context) {
	for {
		if w.step(ctx) {
			if atomic.AddInt64(&w.pending, -1) == 0 {
				return
			}
			continue
		}
		// Nothing consumed: leave only if no signal raced in meanwhile.
		n := atomic.LoadInt64(&w.pending)
		if n == 0 {
			return
		}
		if atomic.CompareAndSwapInt64(&w.pending, n, 0) {
			glog.Warningf("%s: %d signals without work, reset", w.Name, n)
			return
		}
	}
}
