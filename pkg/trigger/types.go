// Package trigger drives the synchronized sampling pulse output.
//
// A Coordinator runs on the hub loop. It arms one-shot triggers on a
// time-sync engine so that the pulse output rises on an absolute time grid
// shared by every synchronized node.
package trigger

import "fmt"

// Timing constants of the trigger.
const (
	// TicksPerMs is the rate of the time-sync clock (16 MHz).
	TicksPerMs uint64 = 16000
	// PeriodMs is the distance between two rising edges.
	PeriodMs uint64 = 1000
	// PulseWidthTicks is the distance between a rising and a falling edge.
	PulseWidthTicks uint64 = 4
	// ConfigLeadMs is how far in the future the configured start lies.
	ConfigLeadMs uint64 = 2000
	// ConfigGridMs is the grid the configured start is rounded down to.
	ConfigGridMs uint64 = 100
)

// FrequencyMode selects the beacon rate of the time-sync engine.
type FrequencyMode int

// Beacon rates.
const (
	FrequencyAuto FrequencyMode = iota
	FrequencyLow
	FrequencyHigh
)

// Output is the pulse output bound to an armed trigger.
type Output interface {
	// Toggle inverts the output level. The engine calls it at the armed tick.
	Toggle() error
	// Low forces the output low.
	Low() error
}

// Engine is the time-sync engine.
type Engine interface {
	Start(FrequencyMode) error
	Stop() error
	NowTicks() uint64
	// ArmTrigger toggles out at tick and then reports a Triggered event.
	// Arming again replaces the pending trigger.
	ArmTrigger(tick uint64, out Output) error
}

// EventKind enumerates Engine events.
type EventKind int

// Engine events.
const (
	Synchronized EventKind = iota
	Desynchronized
	Triggered
)

// String implements fmt.Stringer.
func (k EventKind) String() string {
	switch k {
	case Synchronized:
		return "synchronized"
	case Desynchronized:
		return "desynchronized"
	case Triggered:
		return "triggered"
	}
	return fmt.Sprintf("event(%d)", int(k))
}

// Event is reported by Engine and must be delivered on the loop.
type Event struct {
	Kind EventKind
	// Tick is the armed tick of a Triggered event.
	Tick uint64
}

// State of the Coordinator.
type State int

// Coordinator states.
const (
	Disabled State = iota
	Armed
	SyncArmed
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case Disabled:
		return "disabled"
	case Armed:
		return "armed"
	case SyncArmed:
		return "synchronized"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// MsToTicks converts milliseconds to clock ticks.
func MsToTicks(ms uint64) uint64 {
	return ms * TicksPerMs
}

// TicksToMs converts clock ticks to milliseconds, truncating.
func TicksToMs(ticks uint64) uint64 {
	return ticks / TicksPerMs
}

// RoundUp rounds v up to a multiple of m.
func RoundUp(v, m uint64) uint64 {
	return (v + m - 1) / m * m
}
