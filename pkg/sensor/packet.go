// Package sensor decodes peer notifications into sensor packets and
// formats them for the console.
package sensor

import (
	"fmt"
)

// Kind identifies a notification stream of a peer.
type Kind int

// Notification kinds.
const (
	KindQuaternion Kind = iota
	KindRaw
	KindEuler
	KindADC
)

var kindNames = []string{"quat", "raw", "euler", "adc"}

// Kinds lists every notification kind.
var Kinds = []Kind{KindQuaternion, KindRaw, KindEuler, KindADC}

// String implements fmt.Stringer; the name is also the topic suffix.
func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind maps a name returned by Kind.String back to Kind.
func ParseKind(name string) (Kind, error) {
	for n, s := range kindNames {
		if s == name {
			return Kind(n), nil
		}
	}
	return 0, fmt.Errorf("unknown notification kind %q", name)
}

// Vector is a 3-axis sample.
type Vector struct {
	X, Y, Z float32
}

// Packet is one decoded sub-sample from a peer.
type Packet interface {
	SlotIndex() int
}

// Quaternion is an orientation sample.
type Quaternion struct {
	Slot       int
	W, X, Y, Z float32
}

// RawIMU is an unfused gyro/accel/magnetometer sample.
type RawIMU struct {
	Slot  int
	Gyro  Vector
	Accel Vector
	Mag   Vector
}

// ADC is an analog sample.
type ADC struct {
	Slot int
	Raw  float32
}

// Euler angles are decoded for diagnostics only, they are not queued.
type Euler struct {
	Yaw, Pitch, Roll float32
}

// SlotIndex implements Packet.
func (p *Quaternion) SlotIndex() int { return p.Slot }

// SlotIndex implements Packet.
func (p *RawIMU) SlotIndex() int { return p.Slot }

// SlotIndex implements Packet.
func (p *ADC) SlotIndex() int { return p.Slot }
