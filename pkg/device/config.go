// Package device holds the hub-wide sensor configuration record which is
// edited over the command line protocol and broadcast to peer nodes.
package device

import (
	"fmt"
	"strings"
)

// Config is the sensor configuration applied by every peer node.
type Config struct {
	Gyro         bool `yaml:"gyro"`
	Accel        bool `yaml:"accel"`
	Mag          bool `yaml:"mag"`
	Quat6        bool `yaml:"quat6"`
	Quat9        bool `yaml:"quat9"`
	Euler        bool `yaml:"euler"`
	WakeOnMotion bool `yaml:"wakeOnMotion"`
	ADC          bool `yaml:"adc"`
	Stop         bool `yaml:"stop"`
	Sync         bool `yaml:"sync"`

	// FrequencyHz is the sampling frequency, 0 means unset.
	FrequencyHz uint16 `yaml:"frequencyHz"`
	// SyncStartTimeTicks is the synchronized instant (time-sync engine
	// ticks) at which peers start sampling.
	SyncStartTimeTicks uint64 `yaml:"-"`
}

// MaxFrequencyHz is the largest frequency the 3-digit field can carry.
const MaxFrequencyHz = 999

// Reset clears every field.
func (c *Config) Reset() {
	*c = Config{}
}

// String implements fmt.Stringer.
func (c Config) String() string {
	var flags []string
	add := func(on bool, name string) {
		if on {
			flags = append(flags, name)
		}
	}
	add(c.Gyro, "gyro")
	add(c.Accel, "accel")
	add(c.Mag, "mag")
	add(c.Quat6, "quat6")
	add(c.Quat9, "quat9")
	add(c.Euler, "euler")
	add(c.WakeOnMotion, "wom")
	add(c.ADC, "adc")
	add(c.Stop, "stop")
	add(c.Sync, "sync")
	return fmt.Sprintf("[%s] %dHz start=%d", strings.Join(flags, ","), c.FrequencyHz, c.SyncStartTimeTicks)
}
