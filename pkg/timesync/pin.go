package timesync

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// GPIOPin drives the trigger output on a host GPIO.
type GPIOPin struct {
	pin   gpio.PinOut
	lock  sync.Mutex
	level gpio.Level
}

// OpenPin initializes the host drivers and opens the named pin, e.g.
// "GPIO24". The pin starts low.
func OpenPin(name string) (*GPIOPin, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("host init: %w", err)
	}
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("gpio %q not found", name)
	}
	if err := pin.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("gpio %s: %w", name, err)
	}
	return &GPIOPin{pin: pin, level: gpio.Low}, nil
}

// Toggle implements trigger.Output.
func (p *GPIOPin) Toggle() error {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.level = !p.level
	return p.pin.Out(p.level)
}

// Low implements trigger.Output.
func (p *GPIOPin) Low() error {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.level = gpio.Low
	return p.pin.Out(gpio.Low)
}

// MemPin is a trigger.Output without hardware. It records the level and
// the number of rising edges.
type MemPin struct {
	lock  sync.Mutex
	high  bool
	rises int
}

// Toggle implements trigger.Output.
func (p *MemPin) Toggle() error {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.high = !p.high
	if p.high {
		p.rises++
	}
	return nil
}

// Low implements trigger.Output.
func (p *MemPin) Low() error {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.high = false
	return nil
}

// High returns the current level.
func (p *MemPin) High() bool {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.high
}

// Rises returns the number of rising edges.
func (p *MemPin) Rises() int {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.rises
}
