package trigger

import (
	"fmt"

	"github.com/golang/glog"
)

// Coordinator keeps the pulse train aligned to the absolute time grid.
// All methods must be called from the hub loop.
type Coordinator struct {
	engine Engine
	out    Output

	enabled bool
	synced  bool
	pending bool
	high    bool
	target  uint64
	rising  uint64
}

// NewCoordinator creates a disabled Coordinator.
func NewCoordinator(engine Engine, out Output) *Coordinator {
	return &Coordinator{engine: engine, out: out}
}

// State returns the current state.
func (c *Coordinator) State() State {
	switch {
	case !c.enabled:
		return Disabled
	case c.synced:
		return SyncArmed
	}
	return Armed
}

// Enabled reports whether the pulse train is enabled.
func (c *Coordinator) Enabled() bool {
	return c.enabled
}

// Target returns the tick of the pending trigger, and false if none.
func (c *Coordinator) Target() (uint64, bool) {
	return c.target, c.pending
}

// GridTarget computes the first rising edge for nowMs: at least two
// periods ahead, on a multiple of the period.
func GridTarget(nowMs uint64) uint64 {
	return MsToTicks(RoundUp(nowMs+2*PeriodMs, PeriodMs))
}

// Enable starts beacon transmission and arms the first rising edge.
func (c *Coordinator) Enable() error {
	if c.enabled {
		return nil
	}
	if err := c.engine.Start(FrequencyAuto); err != nil {
		return fmt.Errorf("start sync engine: %w", err)
	}
	c.enabled = true
	return c.armGrid()
}

// Disable stops beacon transmission. A trigger already armed still fires,
// and then forces the output low instead of re-arming.
func (c *Coordinator) Disable() error {
	if !c.enabled {
		return nil
	}
	c.enabled, c.synced = false, false
	if err := c.engine.Stop(); err != nil {
		return fmt.Errorf("stop sync engine: %w", err)
	}
	return nil
}

// ConfigStartTicks returns the sampling start stamped into a broadcast
// configuration: now + ConfigLeadMs, rounded down to ConfigGridMs.
func (c *Coordinator) ConfigStartTicks() uint64 {
	ms := TicksToMs(c.engine.NowTicks()) + ConfigLeadMs
	return MsToTicks(ms / ConfigGridMs * ConfigGridMs)
}

// HandleEvent processes an engine event.
func (c *Coordinator) HandleEvent(ev Event) {
	glog.V(4).Infof("trigger: %s tick=%d state=%s", ev.Kind, ev.Tick, c.State())
	var err error
	switch ev.Kind {
	case Synchronized:
		c.synced = true
		if c.enabled && !c.pending {
			err = c.armGrid()
		}
	case Desynchronized:
		c.synced = false
		if c.enabled {
			if err = c.engine.Start(FrequencyAuto); err != nil {
				err = fmt.Errorf("restart sync engine: %w", err)
			}
		}
	case Triggered:
		err = c.triggered(ev.Tick)
	}
	if err != nil {
		glog.Errorf("trigger: %s: %v", ev.Kind, err)
	}
}

// triggered handles the fire of the pending arm. An event for any other
// tick was overtaken by a re-arm and is dropped.
func (c *Coordinator) triggered(tick uint64) error {
	if !c.pending || tick != c.target {
		glog.V(2).Infof("trigger: stale event at %d, pending=%v target=%d", tick, c.pending, c.target)
		if !c.enabled {
			c.high = false
			return c.out.Low()
		}
		return nil
	}
	c.pending = false
	if !c.enabled {
		c.high = false
		return c.out.Low()
	}
	if !c.high {
		c.high, c.rising = true, tick
		return c.arm(tick + PulseWidthTicks)
	}
	c.high = false
	return c.arm(c.rising + MsToTicks(PeriodMs))
}

func (c *Coordinator) armGrid() error {
	if err := c.out.Low(); err != nil {
		return fmt.Errorf("force output low: %w", err)
	}
	c.high = false
	return c.arm(GridTarget(TicksToMs(c.engine.NowTicks())))
}

func (c *Coordinator) arm(tick uint64) error {
	if err := c.engine.ArmTrigger(tick, c.out); err != nil {
		return fmt.Errorf("arm trigger at %d: %w", tick, err)
	}
	c.target, c.pending = tick, true
	return nil
}
