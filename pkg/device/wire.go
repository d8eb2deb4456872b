package device

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/golang/protobuf/proto"
)

// Field numbers of the configuration message sent to peers.
const (
	fieldGyro         = 1
	fieldAccel        = 2
	fieldMag          = 3
	fieldEuler        = 4
	fieldQuat6        = 5
	fieldQuat9        = 6
	fieldFrequencyHz  = 7
	fieldWakeOnMotion = 8
	fieldSync         = 9
	fieldStop         = 10
	fieldADC          = 11
	fieldSyncStart    = 12
)

const (
	wireVarint  = 0
	wireFixed64 = 1
	wireBytes   = 2
	wireFixed32 = 5
)

var (
	// ErrMalformedConfig indicates the payload is not a valid config message.
	ErrMalformedConfig = errors.New("malformed config")
)

// Marshal encodes the configuration in protobuf wire format.
// Zero values are omitted.
func (c *Config) Marshal() []byte {
	b := proto.NewBuffer(nil)
	putBool := func(field uint64, v bool) {
		if v {
			b.EncodeVarint(field<<3 | wireVarint)
			b.EncodeVarint(1)
		}
	}
	putBool(fieldGyro, c.Gyro)
	putBool(fieldAccel, c.Accel)
	putBool(fieldMag, c.Mag)
	putBool(fieldEuler, c.Euler)
	putBool(fieldQuat6, c.Quat6)
	putBool(fieldQuat9, c.Quat9)
	if c.FrequencyHz != 0 {
		b.EncodeVarint(fieldFrequencyHz<<3 | wireVarint)
		b.EncodeVarint(uint64(c.FrequencyHz))
	}
	putBool(fieldWakeOnMotion, c.WakeOnMotion)
	putBool(fieldSync, c.Sync)
	putBool(fieldStop, c.Stop)
	putBool(fieldADC, c.ADC)
	if c.SyncStartTimeTicks != 0 {
		b.EncodeVarint(fieldSyncStart<<3 | wireFixed64)
		b.EncodeFixed64(c.SyncStartTimeTicks)
	}
	return b.Bytes()
}

// Unmarshal decodes a configuration produced by Marshal.
// Unknown fields are skipped.
func (c *Config) Unmarshal(data []byte) error {
	var conf Config
	for i := 0; i < len(data); {
		key, n := proto.DecodeVarint(data[i:])
		if n == 0 {
			return fmt.Errorf("%w: bad key at %d", ErrMalformedConfig, i)
		}
		i += n
		field, wire := key>>3, key&7
		switch wire {
		case wireVarint:
			v, n := proto.DecodeVarint(data[i:])
			if n == 0 {
				return fmt.Errorf("%w: bad varint field %d", ErrMalformedConfig, field)
			}
			i += n
			conf.setVarint(field, v)
		case wireFixed64:
			if len(data)-i < 8 {
				return fmt.Errorf("%w: short fixed64 field %d", ErrMalformedConfig, field)
			}
			if field == fieldSyncStart {
				conf.SyncStartTimeTicks = binary.LittleEndian.Uint64(data[i:])
			}
			i += 8
		case wireFixed32:
			if len(data)-i < 4 {
				return fmt.Errorf("%w: short fixed32 field %d", ErrMalformedConfig, field)
			}
			i += 4
		case wireBytes:
			l, n := proto.DecodeVarint(data[i:])
			if n == 0 || uint64(len(data)-i-n) < l {
				return fmt.Errorf("%w: bad length field %d", ErrMalformedConfig, field)
			}
			i += n + int(l)
		default:
			return fmt.Errorf("%w: wire type %d", ErrMalformedConfig, wire)
		}
	}
	*c = conf
	return nil
}

func (c *Config) setVarint(field, v uint64) {
	on := v != 0
	switch field {
	case fieldGyro:
		c.Gyro = on
	case fieldAccel:
		c.Accel = on
	case fieldMag:
		c.Mag = on
	case fieldEuler:
		c.Euler = on
	case fieldQuat6:
		c.Quat6 = on
	case fieldQuat9:
		c.Quat9 = on
	case fieldFrequencyHz:
		c.FrequencyHz = uint16(v)
	case fieldWakeOnMotion:
		c.WakeOnMotion = on
	case fieldSync:
		c.Sync = on
	case fieldStop:
		c.Stop = on
	case fieldADC:
		c.ADC = on
	}
}
