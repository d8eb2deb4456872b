package sensor

import "math"

// Fraction bits of the fixed-point fields sent by peers.
const (
	FracQuaternion = 30
	FracGyro       = 5
	FracAccel      = 10
	FracMag        = 4
	FracEuler      = 16
)

// Decode converts a fixed-point value with frac fraction bits.
func Decode(raw int32, frac uint) float32 {
	return float32(float64(raw) / float64(uint64(1)<<frac))
}

// Encode converts v to fixed point with frac fraction bits, saturating at
// the int32 range.
func Encode(v float64, frac uint) int32 {
	f := math.Round(v * float64(uint64(1)<<frac))
	switch {
	case f > math.MaxInt32:
		return math.MaxInt32
	case f < math.MinInt32:
		return math.MinInt32
	}
	return int32(f)
}

// Encode16 is Encode saturating at the int16 range.
func Encode16(v float64, frac uint) int16 {
	n := Encode(v, frac)
	switch {
	case n > math.MaxInt16:
		return math.MaxInt16
	case n < math.MinInt16:
		return math.MinInt16
	}
	return int16(n)
}
