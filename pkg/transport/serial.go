package transport

import (
	"context"
	"fmt"

	"github.com/golang/glog"
	"go.bug.st/serial"

	"github.com/robotalks/sensorhub/pkg/framework"
)

// DefaultBaudRate is the UART speed of the hub console.
const DefaultBaudRate = 115200

// Serial is the hub console over a serial port.
type Serial struct {
	Device   string
	Port     serial.Port
	Receiver Receiver
}

// OpenSerial opens the device in 8N1 mode.
func OpenSerial(device string, baudRate int) (*Serial, error) {
	if baudRate <= 0 {
		baudRate = DefaultBaudRate
	}
	port, err := serial.Open(device, &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", device, err)
	}
	glog.Infof("serial %s opened at %d baud", device, baudRate)
	return &Serial{Device: device, Port: port}, nil
}

// SerialPorts lists the serial ports present on the system.
func SerialPorts() ([]string, error) {
	return serial.GetPortsList()
}

// Name implements framework.Named.
func (s *Serial) Name() string {
	return "serial:" + s.Device
}

// Write implements io.Writer.
func (s *Serial) Write(p []byte) (int, error) {
	return s.Port.Write(p)
}

// Run implements framework.Runnable. The port is closed on return.
func (s *Serial) Run(ctx context.Context) error {
	return framework.RunWithContextCloser(ctx, s.Port, func() error {
		return ReadLoop(s.Port, s.Receiver)
	})
}
