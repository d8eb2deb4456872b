// Package hub assembles the sensor hub: the console protocol, the sensor
// demultiplexer and the sync trigger all run as jobs on one loop.
package hub

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/golang/glog"

	"github.com/robotalks/sensorhub/pkg/command"
	"github.com/robotalks/sensorhub/pkg/device"
	"github.com/robotalks/sensorhub/pkg/framework"
	"github.com/robotalks/sensorhub/pkg/output"
	"github.com/robotalks/sensorhub/pkg/peer"
	"github.com/robotalks/sensorhub/pkg/peer/mqtt"
	"github.com/robotalks/sensorhub/pkg/sensor"
	"github.com/robotalks/sensorhub/pkg/timesync"
	"github.com/robotalks/sensorhub/pkg/transport"
	"github.com/robotalks/sensorhub/pkg/trigger"
)

// Console is the transport carrying the line protocol.
type Console interface {
	framework.Runnable
	io.Writer
}

// Hub owns all the components. Device is only touched from Loop jobs.
type Hub struct {
	Config  *Config
	Loop    *framework.Loop
	Device  device.Config
	Writer  *output.Writer
	Parser  *command.Parser
	Demux   *sensor.Demux
	Engine  *timesync.Engine
	Trigger *trigger.Coordinator
	Peers   peer.Manager
	Console Console

	async *transport.Async
}

// Components are the collaborators of a Hub.
type Components struct {
	Console Console
	// Receive is called with the Parser to attach console input.
	Receive func(transport.Receiver)
	Peers   peer.Manager
	Pin     trigger.Output
}

// NewHub opens the collaborators named by the config and assembles a Hub.
func (c *Config) NewHub() (*Hub, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	var comps Components
	switch {
	case c.ConsoleAddr != "":
		console := transport.NewConsole(c.ConsoleAddr)
		comps.Console = console
		comps.Receive = func(rcv transport.Receiver) { console.Receiver = rcv }
	case c.Serial != "":
		port, err := transport.OpenSerial(c.Serial, c.BaudRate)
		if err != nil {
			return nil, err
		}
		comps.Console = port
		comps.Receive = func(rcv transport.Receiver) { port.Receiver = rcv }
	default:
		stdio := &transport.Stdio{In: os.Stdin, Out: os.Stdout}
		comps.Console = stdio
		comps.Receive = func(rcv transport.Receiver) { stdio.Receiver = rcv }
	}

	peers, err := mqtt.NewManager(c.MQTTBrokerURL, c.ID, c.Slots)
	if err != nil {
		return nil, err
	}
	comps.Peers = peers

	if c.TriggerPin != "" {
		pin, err := timesync.OpenPin(c.TriggerPin)
		if err != nil {
			return nil, err
		}
		comps.Pin = pin
	} else {
		comps.Pin = &timesync.MemPin{}
	}

	h, err := New(c, comps)
	if err != nil {
		return nil, err
	}
	peers.Observer = h
	h.Engine.Beacon = peers.PublishBeacon
	return h, nil
}

// New assembles a Hub from collaborators.
func New(c *Config, comps Components) (*Hub, error) {
	term, err := c.TerminatorByte()
	if err != nil {
		return nil, err
	}
	h := &Hub{
		Config:  c,
		Loop:    framework.NewLoop(),
		Device:  c.Device,
		Peers:   comps.Peers,
		Console: comps.Console,
	}
	h.async = transport.NewAsync(comps.Console)
	h.Writer = output.NewWriter(h.async, c.OutputQueueSize, 0)
	h.async.Handler = h.Writer

	h.Engine = timesync.NewEngine(h.Loop, nil)
	h.Trigger = trigger.NewCoordinator(h.Engine, comps.Pin)
	h.Engine.Handler = h.Trigger

	h.Parser = command.NewParser(h.Loop, &h.Device, h.Writer, c.InputQueueSize)
	h.Parser.Terminator = term
	h.Parser.Trigger = h.Trigger
	h.Parser.Peers = h.Peers
	if comps.Receive != nil {
		comps.Receive(h.Parser)
	}

	h.Demux = sensor.NewDemux(h.Loop, h.Writer, c.PacketQueueSize)
	return h, nil
}

// AddToRunner implements framework.RunnerAdder.
func (h *Hub) AddToRunner(r *framework.Runner) {
	r.Go(framework.NamedRun("hub", framework.RunnableFunc(h.Run)), h.Console)
	if runner, ok := h.Peers.(framework.Runnable); ok {
		r.Go(runner)
	}
}

// Run services the loop until ctx is done.
func (h *Hub) Run(ctx context.Context) error {
	defer h.Close()
	if h.Device.Sync {
		h.Loop.PostFunc(func(context.Context) {
			if err := h.Trigger.Enable(); err != nil {
				glog.Errorf("enable sync: %v", err)
			}
		})
	}
	glog.Infof("hub %s started: %s", h.Config.ID, h.Device)
	return h.Loop.Run(ctx)
}

// Close stops the engine and output.
func (h *Hub) Close() error {
	h.Engine.Close()
	h.Writer.Close()
	return h.async.Close()
}

// PeerConnected implements peer.Observer.
func (h *Hub) PeerConnected(s peer.Slot) {
	h.Loop.PostFunc(func(context.Context) {
		h.println(fmt.Sprintf("Connected: %d\n", s.Index))
	})
}

// PeerDisconnected implements peer.Observer.
func (h *Hub) PeerDisconnected(s peer.Slot) {
	h.Loop.PostFunc(func(context.Context) {
		h.println(fmt.Sprintf("Disconnected: %d\n", s.Index))
	})
}

// PeerNotified implements peer.Observer.
func (h *Hub) PeerNotified(s peer.Slot, kind sensor.Kind, payload []byte) {
	h.Demux.HandleNotification(s.Index, kind, payload)
}

// BroadcastFailed implements peer.Observer.
func (h *Hub) BroadcastFailed(err *peer.BroadcastError) {
	h.Loop.PostFunc(func(context.Context) {
		h.println(command.UndeliveredText(err.Slots))
	})
}

func (h *Hub) println(line string) {
	if err := h.Writer.WriteLine(line); err != nil {
		glog.Warningf("output: %v", err)
	}
}
