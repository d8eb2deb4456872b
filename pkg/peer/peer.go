// Package peer tracks the sensor nodes connected to the hub.
package peer

import (
	"errors"
	"fmt"

	"github.com/robotalks/sensorhub/pkg/device"
	"github.com/robotalks/sensorhub/pkg/framework"
	"github.com/robotalks/sensorhub/pkg/sensor"
)

var (
	// ErrNoSlot indicates all slots are taken.
	ErrNoSlot = errors.New("no free slot")
	// ErrNotConnected indicates the slot has no peer.
	ErrNotConnected = errors.New("peer not connected")
)

// Slot is a connected peer.
type Slot struct {
	Index    int
	Handle   int
	ID       string
	Received uint64
}

// Manager is the peer side of the hub.
type Manager interface {
	// Broadcast sends the configuration to every connected peer.
	Broadcast(device.Config) error
	// Disconnect drops the peer in slot.
	Disconnect(slot int) error
	// Slots lists connected peers ordered by index.
	Slots() []Slot
}

// Observer receives peer events in callback context.
type Observer interface {
	PeerConnected(Slot)
	PeerDisconnected(Slot)
	PeerNotified(slot Slot, kind sensor.Kind, payload []byte)
	// BroadcastFailed reports peers found not to have received a
	// configuration after Broadcast returned.
	BroadcastFailed(*BroadcastError)
}

// BroadcastError reports the peers which did not get the configuration.
type BroadcastError struct {
	Slots []int
	framework.AggregatedError
}

// Add records a failure on slot.
func (e *BroadcastError) Add(slot int, err error) {
	e.Slots = append(e.Slots, slot)
	e.AggregatedError.Add(fmt.Errorf("slot %d: %w", slot, err))
}

// Error implements error.
func (e *BroadcastError) Error() string {
	return fmt.Sprintf("broadcast failed on %d peers: %s", len(e.Slots), e.AggregatedError.Error())
}

// Aggregate returns e if any peer failed.
func (e *BroadcastError) Aggregate() error {
	if len(e.Slots) == 0 {
		return nil
	}
	return e
}
