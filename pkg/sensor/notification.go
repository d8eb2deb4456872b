package sensor

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// BatchSize is the number of sub-samples in one quaternion or raw
// notification.
const BatchSize = 10

// Sizes of the fixed-point records in a notification.
const (
	QuaternionSize = 16
	RawSize        = 18
	EulerSize      = 12
	ADCSampleSize  = 2
)

var (
	// ErrMalformedNotification indicates a payload of unexpected length.
	ErrMalformedNotification = errors.New("malformed notification")
)

// DecodeQuaternions decodes a batch of quaternion records.
func DecodeQuaternions(slot int, p []byte) ([]Packet, error) {
	if len(p) != BatchSize*QuaternionSize {
		return nil, fmt.Errorf("%w: quat %d bytes", ErrMalformedNotification, len(p))
	}
	pkts := make([]Packet, 0, BatchSize)
	for ; len(p) > 0; p = p[QuaternionSize:] {
		pkts = append(pkts, &Quaternion{
			Slot: slot,
			W:    Decode(int32(binary.LittleEndian.Uint32(p[0:])), FracQuaternion),
			X:    Decode(int32(binary.LittleEndian.Uint32(p[4:])), FracQuaternion),
			Y:    Decode(int32(binary.LittleEndian.Uint32(p[8:])), FracQuaternion),
			Z:    Decode(int32(binary.LittleEndian.Uint32(p[12:])), FracQuaternion),
		})
	}
	return pkts, nil
}

// DecodeRaw decodes a batch of gyro/accel/magnetometer records.
func DecodeRaw(slot int, p []byte) ([]Packet, error) {
	if len(p) != BatchSize*RawSize {
		return nil, fmt.Errorf("%w: raw %d bytes", ErrMalformedNotification, len(p))
	}
	vec := func(b []byte, frac uint) Vector {
		return Vector{
			X: Decode(int32(int16(binary.LittleEndian.Uint16(b[0:]))), frac),
			Y: Decode(int32(int16(binary.LittleEndian.Uint16(b[2:]))), frac),
			Z: Decode(int32(int16(binary.LittleEndian.Uint16(b[4:]))), frac),
		}
	}
	pkts := make([]Packet, 0, BatchSize)
	for ; len(p) > 0; p = p[RawSize:] {
		pkts = append(pkts, &RawIMU{
			Slot:  slot,
			Gyro:  vec(p[0:], FracGyro),
			Accel: vec(p[6:], FracAccel),
			Mag:   vec(p[12:], FracMag),
		})
	}
	return pkts, nil
}

// DecodeEuler decodes yaw, pitch and roll.
func DecodeEuler(p []byte) (Euler, error) {
	if len(p) != EulerSize {
		return Euler{}, fmt.Errorf("%w: euler %d bytes", ErrMalformedNotification, len(p))
	}
	return Euler{
		Yaw:   Decode(int32(binary.LittleEndian.Uint32(p[0:])), FracEuler),
		Pitch: Decode(int32(binary.LittleEndian.Uint32(p[4:])), FracEuler),
		Roll:  Decode(int32(binary.LittleEndian.Uint32(p[8:])), FracEuler),
	}, nil
}

// DecodeADC reports the first sample of an ADC notification.
func DecodeADC(slot int, p []byte) (*ADC, error) {
	if len(p) < ADCSampleSize || len(p)%ADCSampleSize != 0 {
		return nil, fmt.Errorf("%w: adc %d bytes", ErrMalformedNotification, len(p))
	}
	return &ADC{Slot: slot, Raw: float32(binary.LittleEndian.Uint16(p))}, nil
}

// EncodeQuaternions builds a quaternion notification; it is what a peer
// sends. len(qs) must be BatchSize.
func EncodeQuaternions(qs []Quaternion) []byte {
	p := make([]byte, 0, len(qs)*QuaternionSize)
	for _, q := range qs {
		for _, v := range []float32{q.W, q.X, q.Y, q.Z} {
			p = binary.LittleEndian.AppendUint32(p, uint32(Encode(float64(v), FracQuaternion)))
		}
	}
	return p
}

// EncodeRaw builds a raw notification. len(samples) must be BatchSize.
func EncodeRaw(samples []RawIMU) []byte {
	p := make([]byte, 0, len(samples)*RawSize)
	vec := func(v Vector, frac uint) {
		for _, f := range []float32{v.X, v.Y, v.Z} {
			p = binary.LittleEndian.AppendUint16(p, uint16(Encode16(float64(f), frac)))
		}
	}
	for _, s := range samples {
		vec(s.Gyro, FracGyro)
		vec(s.Accel, FracAccel)
		vec(s.Mag, FracMag)
	}
	return p
}

// EncodeEuler builds an euler notification.
func EncodeEuler(e Euler) []byte {
	p := make([]byte, 0, EulerSize)
	for _, v := range []float32{e.Yaw, e.Pitch, e.Roll} {
		p = binary.LittleEndian.AppendUint32(p, uint32(Encode(float64(v), FracEuler)))
	}
	return p
}

// EncodeADC builds an ADC notification from raw samples.
func EncodeADC(samples ...uint16) []byte {
	p := make([]byte, 0, len(samples)*ADCSampleSize)
	for _, s := range samples {
		p = binary.LittleEndian.AppendUint16(p, s)
	}
	return p
}
