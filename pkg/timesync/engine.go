// Package timesync provides the hub side of the time-sync engine: the hub
// is the time master, so its clock is the reference and it is synchronized
// as soon as beacons are transmitted.
package timesync

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/sensorhub/pkg/framework"
	"github.com/robotalks/sensorhub/pkg/trigger"
)

// ErrStopped indicates the engine is closed.
var ErrStopped = errors.New("sync engine closed")

// EventHandler receives engine events on the loop.
type EventHandler interface {
	HandleEvent(trigger.Event)
}

// BeaconFunc transmits one sync beacon carrying the master clock.
type BeaconFunc func(ticks uint64)

// Engine is a software time-sync master built on timers. Events are
// posted to Poster so the handler always runs on the loop.
type Engine struct {
	Poster  framework.Poster
	Handler EventHandler
	// Beacon is called on every beacon interval while started.
	Beacon BeaconFunc

	start time.Time

	lock    sync.Mutex
	running bool
	closed  bool
	mode    trigger.FrequencyMode
	beacon  *time.Ticker
	stopCh  chan struct{}
	armed   *time.Timer
}

// NewEngine creates an Engine whose clock starts now.
func NewEngine(poster framework.Poster, handler EventHandler) *Engine {
	return &Engine{Poster: poster, Handler: handler, start: time.Now()}
}

// BeaconInterval returns the beacon period of a frequency mode.
func BeaconInterval(mode trigger.FrequencyMode) time.Duration {
	switch mode {
	case trigger.FrequencyLow:
		return time.Second
	case trigger.FrequencyHigh:
		return 50 * time.Millisecond
	}
	return 250 * time.Millisecond
}

// NowTicks implements trigger.Engine.
func (e *Engine) NowTicks() uint64 {
	return durationToTicks(time.Since(e.start))
}

// Start implements trigger.Engine. Starting again restarts the beacons.
func (e *Engine) Start(mode trigger.FrequencyMode) error {
	e.lock.Lock()
	defer e.lock.Unlock()
	if e.closed {
		return ErrStopped
	}
	e.stopBeaconLocked()
	e.running, e.mode = true, mode
	e.beacon = time.NewTicker(BeaconInterval(mode))
	e.stopCh = make(chan struct{})
	go e.transmit(e.beacon, e.stopCh)
	glog.V(1).Infof("sync beacons started every %s", BeaconInterval(mode))
	e.post(trigger.Event{Kind: trigger.Synchronized})
	return nil
}

// Stop implements trigger.Engine. An armed trigger is kept.
func (e *Engine) Stop() error {
	e.lock.Lock()
	defer e.lock.Unlock()
	if e.running {
		e.stopBeaconLocked()
		e.running = false
		glog.V(1).Info("sync beacons stopped")
	}
	return nil
}

// Running reports whether beacons are transmitted.
func (e *Engine) Running() bool {
	e.lock.Lock()
	defer e.lock.Unlock()
	return e.running
}

// ArmTrigger implements trigger.Engine. A tick already in the past fires
// immediately and is still reported with the armed tick.
func (e *Engine) ArmTrigger(tick uint64, out trigger.Output) error {
	e.lock.Lock()
	defer e.lock.Unlock()
	if e.closed {
		return ErrStopped
	}
	if e.armed != nil {
		e.armed.Stop()
	}
	var delay time.Duration
	if now := e.NowTicks(); tick > now {
		delay = ticksToDuration(tick - now)
	}
	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		e.lock.Lock()
		if e.armed != timer {
			e.lock.Unlock()
			return
		}
		e.armed = nil
		e.lock.Unlock()
		if err := out.Toggle(); err != nil {
			glog.Errorf("trigger output: %v", err)
		}
		e.post(trigger.Event{Kind: trigger.Triggered, Tick: tick})
	})
	e.armed = timer
	return nil
}

// Close stops beacons and any armed trigger.
func (e *Engine) Close() error {
	e.lock.Lock()
	defer e.lock.Unlock()
	e.stopBeaconLocked()
	e.running, e.closed = false, true
	if e.armed != nil {
		e.armed.Stop()
		e.armed = nil
	}
	return nil
}

func (e *Engine) stopBeaconLocked() {
	if e.beacon != nil {
		e.beacon.Stop()
		close(e.stopCh)
		e.beacon, e.stopCh = nil, nil
	}
}

func (e *Engine) transmit(ticker *time.Ticker, stopCh chan struct{}) {
	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			if fn := e.Beacon; fn != nil {
				fn(e.NowTicks())
			}
		}
	}
}

func (e *Engine) post(ev trigger.Event) {
	h := e.Handler
	if h == nil {
		return
	}
	e.Poster.Post(framework.JobFunc(func(context.Context) {
		h.HandleEvent(ev)
	}))
}

// 16 ticks per microsecond.
const ticksPerUs = trigger.TicksPerMs / 1000

func durationToTicks(d time.Duration) uint64 {
	return uint64(d) * ticksPerUs / uint64(time.Microsecond)
}

func ticksToDuration(ticks uint64) time.Duration {
	return time.Duration(ticks * uint64(time.Microsecond) / ticksPerUs)
}
