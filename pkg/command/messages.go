package command

import (
	"fmt"
	"strings"

	"github.com/robotalks/sensorhub/pkg/device"
	"github.com/robotalks/sensorhub/pkg/peer"
)

// Separator frames multi-line responses.
const Separator = "------------------------------------------\n"

// Banner frames lines between two separators.
func Banner(lines ...string) string {
	var sb strings.Builder
	sb.WriteString(Separator)
	for _, line := range lines {
		sb.WriteString(line)
	}
	sb.WriteString(Separator)
	return sb.String()
}

// Response lines.
const (
	MsgInvalidCommand   = "Invalid command.\n"
	MsgInvalidFrequency = "Invalid frequency selected!\n"
	MsgSyncStarted      = "Synchonization started.\n"
	MsgSyncStopped      = "Synchonization stopped.\n"
	MsgConfigReset      = "Config reset.\n"
	MsgADCEnabled       = "ADC enabled.\n"
	MsgWakeOnMotion     = "Wake On Motion Enabled.\n"
	MsgConfigSent       = "Configuration send to peripherals.\n"
	MsgDisconnected     = "Sensors disconnected.\n"
)

// HelpText is printed by the p command.
var HelpText = Banner(
	"-----  NOMADE WIRELESS SENSOR HUB    -----\n",
	Separator,
	"Press:  'p' for help\n",
	"Press:  'c' to show current settings\n",
	"Press:  'l' to list connected sensors\n",
	"Press:  'i1' to start sync, 'i0' to stop sync\n",
	"Press:  'g' to enable gyroscope\n",
	"Press:  'a' to enable accelerometer\n",
	"Press:  'm' to enable magnetometer\n",
	"Press:  'e' to enable euler angles\n",
	"Press:  'q6' to enable 6 DoF quaternions\n",
	"Press:  'q9' to enable 9 DoF quaternions\n",
	"Press:  'n' to enable ADC\n",
	"Press:  'w' to enable wake on motion\n",
	"Press:  'r' to reset configuration\n",
	"Press:  's' to send configuration to sensors\n",
	"Press:  'd' + 'slot' to disconnect a sensor\n",
	Separator,
	"Press:  'f' + '3 digital number' to set sampling frequency\n",
	Separator,
	"Example:    q6f225s  Enable 6 DoF Quaternions with sampling rate of 225 Hz\n",
)

// SettingsText renders the c command.
func SettingsText(c *device.Config) string {
	lines := []string{"Current settings:\n"}
	add := func(on bool, line string) {
		if on {
			lines = append(lines, line)
		}
	}
	add(c.Gyro, "---    Gyroscope enabled\n")
	add(c.Accel, "---   Accelerometer enabled\n")
	add(c.Mag, "--- Magnetometer enabled\n")
	add(c.Euler, "---   Euler angles enabled\n")
	add(c.Quat6, "---   Quaternions 6 DoF enabled\n")
	add(c.Quat9, "---   Quaternions 9 DoF enabled\n")
	if c.FrequencyHz != 0 {
		lines = append(lines, fmt.Sprintf("---  Sensor frequency:  %d Hz\n", c.FrequencyHz))
	}
	add(c.ADC, "---   ADC enabled\n")
	add(c.WakeOnMotion, "---   Wake on motion enabled\n")
	add(c.Sync, "---   Synchonization enabled\n")
	return Banner(lines...)
}

// ListText renders the l command.
func ListText(slots []peer.Slot) string {
	lines := []string{"Connected devices list:\n"}
	for _, s := range slots {
		lines = append(lines, fmt.Sprintf("Sensor    %d  --> conn handle  %d\n", s.Index, s.Handle))
	}
	return Banner(lines...)
}

// UndeliveredText reports peers which did not get the configuration.
func UndeliveredText(slots []int) string {
	var sb strings.Builder
	for _, slot := range slots {
		fmt.Fprintf(&sb, "Sensor    %d  --> configuration not delivered\n", slot)
	}
	return sb.String()
}
