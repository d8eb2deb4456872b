package hub

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/sensorhub/pkg/command"
	"github.com/robotalks/sensorhub/pkg/device"
	"github.com/robotalks/sensorhub/pkg/peer"
	"github.com/robotalks/sensorhub/pkg/sensor"
	"github.com/robotalks/sensorhub/pkg/timesync"
	"github.com/robotalks/sensorhub/pkg/transport"
	"github.com/robotalks/sensorhub/pkg/trigger"
)

type memConsole struct {
	lock sync.Mutex
	buf  strings.Builder
}

func (c *memConsole) Run(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func (c *memConsole) Write(p []byte) (int, error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.buf.Write(p)
}

func (c *memConsole) String() string {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.buf.String()
}

type memPeers struct {
	lock       sync.Mutex
	broadcasts []device.Config
}

func (p *memPeers) Broadcast(cfg device.Config) error {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.broadcasts = append(p.broadcasts, cfg)
	return nil
}

func (p *memPeers) Disconnect(slot int) error {
	return peer.ErrNotConnected
}

func (p *memPeers) Slots() []peer.Slot {
	return []peer.Slot{{Index: 0, Handle: 1, ID: "n0", Received: 4}}
}

func newTestHub(t *testing.T) (*Hub, *memConsole, *memPeers, transport.Receiver) {
	console, peers := &memConsole{}, &memPeers{}
	var rcv transport.Receiver
	h, err := New(NewConfig(), Components{
		Console: console,
		Receive: func(r transport.Receiver) { rcv = r },
		Peers:   peers,
		Pin:     &timesync.MemPin{},
	})
	require.NoError(t, err)
	t.Cleanup(func() { h.Close() })
	return h, console, peers, rcv
}

func waitOutput(t *testing.T, console *memConsole, expect string) {
	require.Eventually(t, func() bool {
		return strings.Contains(console.String(), expect)
	}, 2*time.Second, time.Millisecond, "waiting for %q in %q", expect, console.String())
}

func TestHubCommands(t *testing.T) {
	h, console, peers, rcv := newTestHub(t)
	require.NotNil(t, rcv)

	rcv.ReceiveBytes([]byte("gaf100\r"))
	h.Loop.RunPending(context.Background())
	require.Equal(t, device.Config{Gyro: true, Accel: true, FrequencyHz: 100}, h.Device)

	rcv.ReceiveBytes([]byte("s\r"))
	h.Loop.RunPending(context.Background())
	require.Len(t, peers.broadcasts, 1)
	require.True(t, peers.broadcasts[0].SyncStartTimeTicks >= trigger.MsToTicks(trigger.ConfigLeadMs))
	waitOutput(t, console, command.MsgConfigSent)

	rcv.ReceiveBytes([]byte("l\r"))
	h.Loop.RunPending(context.Background())
	waitOutput(t, console, "Sensor    0  --> conn handle  1\n")
}

func TestHubSync(t *testing.T) {
	h, console, _, rcv := newTestHub(t)
	rcv.ReceiveBytes([]byte("i1\r"))
	h.Loop.RunPending(context.Background())
	require.True(t, h.Device.Sync)
	require.Equal(t, trigger.SyncArmed, h.Trigger.State(), "master is synchronized once beacons start")
	require.True(t, h.Engine.Running())
	waitOutput(t, console, command.MsgSyncStarted)

	rcv.ReceiveBytes([]byte("i0\r"))
	h.Loop.RunPending(context.Background())
	require.Equal(t, trigger.Disabled, h.Trigger.State())
	require.False(t, h.Engine.Running())
}

func TestHubPeerEvents(t *testing.T) {
	h, console, _, _ := newTestHub(t)
	slot := peer.Slot{Index: 2, Handle: 7, ID: "n2"}
	h.PeerConnected(slot)
	h.PeerNotified(slot, sensor.KindADC, sensor.EncodeADC(512))
	h.PeerDisconnected(slot)
	h.Loop.RunPending(context.Background())
	waitOutput(t, console, "Connected: 2\n")
	waitOutput(t, console, "2 ADC 512.000\n")
	waitOutput(t, console, "Disconnected: 2\n")

	var berr peer.BroadcastError
	berr.Add(3, context.DeadlineExceeded)
	h.BroadcastFailed(&berr)
	h.Loop.RunPending(context.Background())
	waitOutput(t, console, "Sensor    3  --> configuration not delivered\n")
}

func TestConfigLoad(t *testing.T) {
	c := NewConfig()
	require.NoError(t, c.Load([]byte(`
id: lab-hub
mqtt: mqtt://broker:1883/lab/
terminator: lf
slots: 4
device:
  gyro: true
  frequencyHz: 225
`)))
	require.Equal(t, "lab-hub", c.ID)
	require.Equal(t, "mqtt://broker:1883/lab/", c.MQTTBrokerURL)
	require.Equal(t, 4, c.Slots)
	require.Equal(t, device.Config{Gyro: true, FrequencyHz: 225}, c.Device)
	require.Equal(t, transport.DefaultBaudRate, c.BaudRate, "defaults kept")
	term, err := c.TerminatorByte()
	require.NoError(t, err)
	require.Equal(t, command.TerminatorLF, term)
	require.NoError(t, c.Validate())

	require.Error(t, NewConfig().Load([]byte("unknown: 1\n")))
}

func TestConfigValidate(t *testing.T) {
	testCases := []struct {
		name   string
		modify func(*Config)
	}{
		{"no id", func(c *Config) { c.ID = "" }},
		{"slots", func(c *Config) { c.Slots = sensor.MaxSlots + 1 }},
		{"frequency", func(c *Config) { c.Device.FrequencyHz = 1000 }},
		{"terminator", func(c *Config) { c.Terminator = "crlf" }},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := NewConfig()
			c.ID = "hub"
			tc.modify(c)
			require.Error(t, c.Validate())
		})
	}
}
