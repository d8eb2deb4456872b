package sensor

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/sensorhub/pkg/framework"
)

func TestFixedPointRoundTrip(t *testing.T) {
	for _, v := range []float64{0, 1, -1, 0.03125, 123.456, -999.99, 1000.015625} {
		for _, frac := range []uint{FracGyro, FracAccel, FracMag, FracEuler} {
			got := Decode(Encode(v, frac), frac)
			require.InDelta(t, v, float64(got), math.Ldexp(1, -int(frac))+1e-4, "v=%v frac=%d", v, frac)
		}
	}
	for v := -250.0; v <= 250; v += 0.37 {
		require.InDelta(t, v, float64(Decode(int32(Encode16(v, FracGyro)), FracGyro)), 1.0/32)
	}
	require.Equal(t, float32(1), Decode(1<<30, FracQuaternion))
	require.Equal(t, float32(-0.5), Decode(-1<<29, FracQuaternion))
	require.Equal(t, int16(math.MaxInt16), Encode16(5000, FracAccel))
}

func TestDecodeQuaternions(t *testing.T) {
	qs := make([]Quaternion, BatchSize)
	for n := range qs {
		qs[n] = Quaternion{W: 1, X: float32(n) / 10, Y: -0.25, Z: 0}
	}
	pkts, err := DecodeQuaternions(3, EncodeQuaternions(qs))
	require.NoError(t, err)
	require.Len(t, pkts, BatchSize)
	q := pkts[5].(*Quaternion)
	require.Equal(t, 3, q.SlotIndex())
	require.InDelta(t, 0.5, q.X, 1e-6)
	require.Equal(t, "3 Q   1.000    0.500    -0.250    0.000\n", Format(q))

	_, err = DecodeQuaternions(0, make([]byte, 15))
	require.True(t, errors.Is(err, ErrMalformedNotification))
}

func TestDecodeRaw(t *testing.T) {
	samples := make([]RawIMU, BatchSize)
	samples[0] = RawIMU{
		Gyro:  Vector{X: 1.5, Y: -2, Z: 0.03125},
		Accel: Vector{X: 0.5, Y: 0, Z: -1},
		Mag:   Vector{X: 10.25, Y: -3.5, Z: 0},
	}
	pkts, err := DecodeRaw(1, EncodeRaw(samples))
	require.NoError(t, err)
	require.Len(t, pkts, BatchSize)
	require.Equal(t, &RawIMU{Slot: 1, Gyro: samples[0].Gyro, Accel: samples[0].Accel, Mag: samples[0].Mag}, pkts[0])
	require.Equal(t,
		"1 G 1.500 -2.000 0.031        A 0.500 0.000 -1.000        M 10.250 -3.500 0.000\n",
		Format(pkts[0]))
}

func TestDecodeEulerAndADC(t *testing.T) {
	e, err := DecodeEuler(EncodeEuler(Euler{Yaw: 90, Pitch: -45.5, Roll: 0.25}))
	require.NoError(t, err)
	require.Equal(t, Euler{Yaw: 90, Pitch: -45.5, Roll: 0.25}, e)

	adc, err := DecodeADC(2, EncodeADC(1234, 5))
	require.NoError(t, err)
	require.Equal(t, "2 ADC 1234.000\n", Format(adc))
	_, err = DecodeADC(2, []byte{1})
	require.True(t, errors.Is(err, ErrMalformedNotification))
}

func TestParseKind(t *testing.T) {
	for _, k := range Kinds {
		parsed, err := ParseKind(k.String())
		require.NoError(t, err)
		require.Equal(t, k, parsed)
	}
	_, err := ParseKind("meta")
	require.Error(t, err)
}

type lines []string

func (l *lines) WriteLine(line string) error {
	*l = append(*l, line)
	return nil
}

func TestDemux(t *testing.T) {
	loop := framework.NewLoop()
	var out lines
	d := NewDemux(loop, &out, 64)

	require.NoError(t, d.HandleNotification(0, KindADC, EncodeADC(7)))
	require.NoError(t, d.HandleNotification(1, KindQuaternion, EncodeQuaternions(make([]Quaternion, BatchSize))))
	require.Error(t, d.HandleNotification(1, KindRaw, []byte{1, 2, 3}))
	require.NoError(t, d.HandleNotification(1, KindEuler, EncodeEuler(Euler{})))

	require.Equal(t, 1, loop.Pending(), "one drain job for all packets")
	require.Equal(t, 1+BatchSize, d.Pending())
	loop.RunPending(context.Background())
	require.Equal(t, 0, d.Pending())

	require.Len(t, out, 1+BatchSize)
	require.Equal(t, "0 ADC 7.000\n", out[0])
	require.Equal(t, "1 Q   0.000    0.000    0.000    0.000\n", out[1])

	require.Equal(t, uint64(1), d.Invalid())
	require.Error(t, d.HandleNotification(MaxSlots, KindADC, EncodeADC(1)))
}

func TestDemuxQueueFull(t *testing.T) {
	loop := framework.NewLoop()
	var out lines
	d := NewDemux(loop, &out, 4)
	err := d.HandleNotification(0, KindQuaternion, EncodeQuaternions(make([]Quaternion, BatchSize)))
	require.Error(t, err)
	require.Equal(t, uint64(1), d.Dropped())
	loop.RunPending(context.Background())
	require.Len(t, out, 4)
	require.Equal(t, 0, d.Pending())
}
