// Package hub provides shell commands mapping to hub console letters.
package hub

import (
	"fmt"
	"strconv"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/sensorhub/pkg/cli/sh"
	"github.com/robotalks/sensorhub/pkg/command"
	"github.com/robotalks/sensorhub/pkg/device"
	"github.com/robotalks/sensorhub/pkg/sensor"
)

// Line builds the console line for a shell command, without terminator.
func Line(name string, args []string) (string, error) {
	letter := func(b byte) string { return string([]byte{b}) }
	switch name {
	case "gyro":
		return letter(command.CmdGyro), nil
	case "accel":
		return letter(command.CmdAccel), nil
	case "mag":
		return letter(command.CmdMag), nil
	case "euler":
		return letter(command.CmdEuler), nil
	case "adc":
		return letter(command.CmdADC), nil
	case "wom":
		return letter(command.CmdWakeOnMotion), nil
	case "reset":
		return letter(command.CmdReset), nil
	case "send":
		return letter(command.CmdSend), nil
	case "list":
		return letter(command.CmdList), nil
	case "settings":
		return letter(command.CmdSettings), nil
	case "usage":
		return letter(command.CmdHelp), nil
	}
	if len(args) != 1 {
		return "", fmt.Errorf("%s: one argument expected", name)
	}
	arg := args[0]
	switch name {
	case "quat":
		switch arg {
		case "6":
			return letter(command.CmdQuat) + letter(command.Quat6), nil
		case "9":
			return letter(command.CmdQuat) + letter(command.Quat9), nil
		}
		return "", fmt.Errorf("quat: 6 or 9 expected")
	case "sync":
		switch arg {
		case "on", "1":
			return letter(command.CmdSync) + letter(command.SyncEnable), nil
		case "off", "0":
			return letter(command.CmdSync) + letter(command.SyncDisable), nil
		}
		return "", fmt.Errorf("sync: on or off expected")
	case "freq":
		hz, err := strconv.Atoi(arg)
		if err != nil || hz < 0 || hz > device.MaxFrequencyHz {
			return "", fmt.Errorf("freq: 0..%d expected", device.MaxFrequencyHz)
		}
		return fmt.Sprintf("%c%0*d", command.CmdFrequency, command.FrequencyDigits, hz), nil
	case "disconnect":
		slot, err := strconv.Atoi(arg)
		if err != nil || slot < 0 || slot >= sensor.MaxSlots {
			return "", fmt.Errorf("disconnect: slot 0..%d expected", sensor.MaxSlots-1)
		}
		return fmt.Sprintf("%c%d", command.CmdDisconnect, slot), nil
	}
	return "", fmt.Errorf("unknown command %q", name)
}

func cmd(name, help string) *ishell.Cmd {
	return &ishell.Cmd{
		Name: name,
		Help: help,
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			line, err := Line(name, c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			sh.Send(c, line)
		}),
	}
}

var (
	// Cmds are the hub console commands.
	Cmds = []*ishell.Cmd{
		cmd("gyro", "toggle gyroscope"),
		cmd("accel", "toggle accelerometer"),
		cmd("mag", "toggle magnetometer"),
		cmd("euler", "toggle euler angles"),
		cmd("adc", "toggle ADC"),
		cmd("wom", "toggle wake on motion"),
		cmd("quat", "6|9"),
		cmd("sync", "on|off"),
		cmd("freq", "HZ"),
		cmd("reset", "clear the configuration"),
		cmd("send", "broadcast the configuration"),
		cmd("list", "connected sensors"),
		cmd("settings", "current configuration"),
		cmd("usage", "hub command help"),
		cmd("disconnect", "SLOT"),
	}
)

func init() {
	sh.AddCmds(Cmds...)
}
