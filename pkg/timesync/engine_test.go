package timesync

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/sensorhub/pkg/framework"
	"github.com/robotalks/sensorhub/pkg/trigger"
)

type recorder struct {
	lock   sync.Mutex
	events []trigger.Event
}

func (r *recorder) HandleEvent(ev trigger.Event) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) Events() []trigger.Event {
	r.lock.Lock()
	defer r.lock.Unlock()
	return append([]trigger.Event(nil), r.events...)
}

func runLoop(t *testing.T) (*framework.Loop, func()) {
	loop := framework.NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	doneCh := make(chan struct{})
	go func() {
		loop.Run(ctx)
		close(doneCh)
	}()
	return loop, func() {
		cancel()
		<-doneCh
	}
}

func TestTickConversion(t *testing.T) {
	require.Equal(t, uint64(16000), durationToTicks(time.Millisecond))
	require.Equal(t, uint64(16), durationToTicks(time.Microsecond))
	require.Equal(t, time.Second, ticksToDuration(trigger.MsToTicks(1000)))
	require.Equal(t, 250*time.Nanosecond, ticksToDuration(trigger.PulseWidthTicks))
}

func TestEngineStartStop(t *testing.T) {
	loop, stop := runLoop(t)
	defer stop()
	r := &recorder{}
	e := NewEngine(loop, r)
	defer e.Close()

	beacons := make(chan uint64, 16)
	e.Beacon = func(ticks uint64) {
		select {
		case beacons <- ticks:
		default:
		}
	}
	require.NoError(t, e.Start(trigger.FrequencyHigh))
	require.True(t, e.Running())
	require.Eventually(t, func() bool {
		evs := r.Events()
		return len(evs) == 1 && evs[0].Kind == trigger.Synchronized
	}, time.Second, time.Millisecond)
	first := <-beacons
	second := <-beacons
	require.Greater(t, second, first)

	require.NoError(t, e.Stop())
	require.False(t, e.Running())
}

func TestEngineArmTrigger(t *testing.T) {
	loop, stop := runLoop(t)
	defer stop()
	r := &recorder{}
	e := NewEngine(loop, r)
	defer e.Close()
	pin := &MemPin{}

	target := e.NowTicks() + trigger.MsToTicks(5)
	require.NoError(t, e.ArmTrigger(target, pin))
	require.Eventually(t, func() bool {
		return len(r.Events()) == 1
	}, time.Second, time.Millisecond)
	require.Equal(t, trigger.Event{Kind: trigger.Triggered, Tick: target}, r.Events()[0])
	require.True(t, e.NowTicks() >= target)
	require.True(t, pin.High())
	require.Equal(t, 1, pin.Rises())

	require.NoError(t, e.ArmTrigger(e.NowTicks()+trigger.MsToTicks(1000), pin))
	require.NoError(t, e.ArmTrigger(1, pin), "replaces, fires immediately")
	require.Eventually(t, func() bool {
		return len(r.Events()) == 2
	}, time.Second, time.Millisecond)
	require.Equal(t, uint64(1), r.Events()[1].Tick)
	require.False(t, pin.High())

	require.NoError(t, e.Close())
	require.Equal(t, ErrStopped, e.ArmTrigger(1, pin))
}

func TestEngineDrivesCoordinator(t *testing.T) {
	loop, stop := runLoop(t)
	defer stop()
	pin := &MemPin{}
	e := NewEngine(loop, nil)
	defer e.Close()
	c := trigger.NewCoordinator(e, pin)
	e.Handler = c

	// start one pulse right away instead of waiting two periods.
	doneCh := make(chan struct{})
	loop.PostFunc(func(context.Context) {
		require.NoError(t, c.Enable())
		e.ArmTrigger(e.NowTicks(), pin)
		close(doneCh)
	})
	<-doneCh
	require.Eventually(t, func() bool {
		return pin.Rises() >= 1 && !pin.High()
	}, time.Second, time.Millisecond)

	doneCh = make(chan struct{})
	loop.PostFunc(func(context.Context) {
		require.NoError(t, c.Disable())
		close(doneCh)
	})
	<-doneCh
	require.False(t, e.Running())
}
