// Package sim simulates sensor nodes for exercising a hub without hardware.
package sim

import (
	"math"
	"time"

	"github.com/robotalks/sensorhub/pkg/sensor"
)

// Motion is a node spinning about its vertical axis while tilting back and
// forth, in a constant magnetic field.
type Motion struct {
	// YawRate in degrees per second.
	YawRate       float64
	// TiltAmplitude in degrees, TiltPeriod for one swing.
	TiltAmplitude float64
	TiltPeriod    time.Duration
	// Field is the magnetic field in the world frame, microtesla.
	Field         sensor.Vector
}

// DefaultMotion is a slow rotation.
var DefaultMotion = Motion{
	YawRate:       30,
	TiltAmplitude: 10,
	TiltPeriod:    4 * time.Second,
	Field:         sensor.Vector{X: 20, Y: 0, Z: -40},
}

// gravity in g.
const gravity = 1.0

func radians(d float64) float64 {
	return d * math.Pi / 180
}

// wrap keeps an angle in degrees within (-180, 180].
func wrap(d float64) float64 {
	d = math.Mod(d, 360)
	if d > 180 {
		d -= 360
	} else if d <= -180 {
		d += 360
	}
	return d
}

// Euler returns the attitude at t.
func (m Motion) Euler(t time.Duration) sensor.Euler {
	var pitch float64
	if m.TiltPeriod > 0 {
		pitch = m.TiltAmplitude * math.Sin(2*math.Pi*t.Seconds()/m.TiltPeriod.Seconds())
	}
	return sensor.Euler{
		Yaw:   float32(wrap(m.YawRate * t.Seconds())),
		Pitch: float32(pitch),
	}
}

// Quaternion returns the attitude at t as a unit quaternion.
func (m Motion) Quaternion(t time.Duration) sensor.Quaternion {
	e := m.Euler(t)
	cy, sy := math.Cos(radians(float64(e.Yaw))/2), math.Sin(radians(float64(e.Yaw))/2)
	cp, sp := math.Cos(radians(float64(e.Pitch))/2), math.Sin(radians(float64(e.Pitch))/2)
	cr, sr := math.Cos(radians(float64(e.Roll))/2), math.Sin(radians(float64(e.Roll))/2)
	return sensor.Quaternion{
		W: float32(cr*cp*cy + sr*sp*sy),
		X: float32(sr*cp*cy - cr*sp*sy),
		Y: float32(cr*sp*cy + sr*cp*sy),
		Z: float32(cr*cp*sy - sr*sp*cy),
	}
}

// Raw returns gyro (deg/s), accel (g) and magnetometer (uT) readings at t.
func (m Motion) Raw(t time.Duration) sensor.RawIMU {
	e := m.Euler(t)
	yaw, pitch := radians(float64(e.Yaw)), radians(float64(e.Pitch))
	var pitchRate float64
	if m.TiltPeriod > 0 {
		w := 2 * math.Pi / m.TiltPeriod.Seconds()
		pitchRate = m.TiltAmplitude * w * math.Cos(w*t.Seconds())
	}
	// world field rotated into the body frame, yaw then pitch.
	fx := m.Field.X*float32(math.Cos(yaw)) + m.Field.Y*float32(math.Sin(yaw))
	fy := -m.Field.X*float32(math.Sin(yaw)) + m.Field.Y*float32(math.Cos(yaw))
	return sensor.RawIMU{
		Gyro: sensor.Vector{Y: float32(pitchRate), Z: float32(m.YawRate)},
		Accel: sensor.Vector{
			X: float32(-gravity * math.Sin(pitch)),
			Z: float32(gravity * math.Cos(pitch)),
		},
		Mag: sensor.Vector{
			X: fx*float32(math.Cos(pitch)) - m.Field.Z*float32(math.Sin(pitch)),
			Y: fy,
			Z: fx*float32(math.Sin(pitch)) + m.Field.Z*float32(math.Cos(pitch)),
		},
	}
}
