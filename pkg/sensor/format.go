package sensor

import "fmt"

// Format renders a packet as a console line.
func Format(p Packet) string {
	switch v := p.(type) {
	case *Quaternion:
		return fmt.Sprintf("%d Q   %.3f    %.3f    %.3f    %.3f\n", v.Slot, v.W, v.X, v.Y, v.Z)
	case *RawIMU:
		return fmt.Sprintf("%d G %.3f %.3f %.3f        A %.3f %.3f %.3f        M %.3f %.3f %.3f\n",
			v.Slot,
			v.Gyro.X, v.Gyro.Y, v.Gyro.Z,
			v.Accel.X, v.Accel.Y, v.Accel.Z,
			v.Mag.X, v.Mag.Y, v.Mag.Z)
	case *ADC:
		return fmt.Sprintf("%d ADC %.3f\n", v.Slot, v.Raw)
	}
	return fmt.Sprintf("%d ? %v\n", p.SlotIndex(), p)
}
