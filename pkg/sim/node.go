package sim

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"

	"github.com/robotalks/sensorhub/pkg/device"
	"github.com/robotalks/sensorhub/pkg/peer/mqtt"
	"github.com/robotalks/sensorhub/pkg/sensor"
	"github.com/robotalks/sensorhub/pkg/trigger"
)

// DefaultFrequencyHz is used when the hub leaves the frequency unset.
const DefaultFrequencyHz = 100

// Firmware is advertised in the node meta.
const Firmware = "sim-1"

// ErrDisconnected is returned by Run when the hub dropped the node.
var ErrDisconnected = errors.New("disconnected by hub")

type publisher interface {
	PubWith(topic string, payload []byte, qos byte, retain bool) paho.Token
}

// Notification is one message a node sends.
type Notification struct {
	Kind    sensor.Kind
	Payload []byte
}

// Node is a simulated sensor peer attached to the broker.
type Node struct {
	ID       string
	Label    string
	Motion   Motion
	// ADCLevel is the mean analog reading.
	ADCLevel uint16

	bus *mqtt.Bus
	pub publisher
	now func() time.Time

	lock       sync.Mutex
	config     device.Config
	configured bool
	configAt   time.Time
	hubTicks   uint64
	beaconAt   time.Time
	dropped    chan struct{}
	dropOnce   sync.Once
}

// NewNode creates a node connecting to brokerURL.
func NewNode(brokerURL, id string) (*Node, error) {
	opts, prefix, err := mqtt.ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, fmt.Errorf("broker url: %w", err)
	}
	opts.SetBinaryWill(prefix+mqtt.NodeTopic(id, mqtt.MetaTopic), nil, 1, true)
	if opts.ClientID == "" {
		opts.SetClientID("sensornode:" + id)
	}
	n := newNode(id)
	n.bus = mqtt.NewBus(opts, prefix)
	n.pub = n.bus
	n.bus.OnConnect = func(*mqtt.Bus) { n.advertise() }
	return n, nil
}

func newNode(id string) *Node {
	return &Node{
		ID:       id,
		Label:    "sim " + id,
		Motion:   DefaultMotion,
		ADCLevel: 2048,
		now:      time.Now,
		dropped:  make(chan struct{}),
	}
}

// Name implements framework.Named.
func (n *Node) Name() string {
	return "node:" + n.ID
}

// Run implements framework.Runnable.
func (n *Node) Run(ctx context.Context) error {
	n.bus.Sub(mqtt.NodeTopic(n.ID, "+"), n.handleMessage)
	n.bus.Sub(mqtt.HubsTopic+"/+/"+mqtt.BeaconTopic, n.handleMessage)
	token := n.bus.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	defer n.bus.Close()

	timer := time.NewTimer(n.Period())
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			n.retire()
			return ctx.Err()
		case <-n.dropped:
			n.retire()
			return ErrDisconnected
		case <-timer.C:
			for _, msg := range n.Batch() {
				n.pub.PubWith(mqtt.NodeTopic(n.ID, msg.Kind.String()), msg.Payload, 0, false)
			}
			timer.Reset(n.Period())
		}
	}
}

func (n *Node) advertise() {
	meta, _ := json.Marshal(&mqtt.Meta{Name: n.Label, Firmware: Firmware})
	n.pub.PubWith(mqtt.NodeTopic(n.ID, mqtt.MetaTopic), meta, 1, true)
}

func (n *Node) retire() {
	n.pub.PubWith(mqtt.NodeTopic(n.ID, mqtt.MetaTopic), nil, 1, true).WaitTimeout(time.Second)
}

// Config returns the configuration last received from the hub.
func (n *Node) Config() (device.Config, bool) {
	n.lock.Lock()
	defer n.lock.Unlock()
	return n.config, n.configured
}

// Apply installs a configuration.
func (n *Node) Apply(cfg device.Config) {
	n.lock.Lock()
	n.config, n.configured, n.configAt = cfg, true, n.now()
	n.lock.Unlock()
	glog.Infof("node %s config %s", n.ID, cfg)
}

// Period is the interval between batches.
func (n *Node) Period() time.Duration {
	cfg, _ := n.Config()
	freq := int(cfg.FrequencyHz)
	if freq == 0 {
		freq = DefaultFrequencyHz
	}
	return time.Second * sensor.BatchSize / time.Duration(freq)
}

// HubTicks estimates the hub master clock from the last beacon.
func (n *Node) HubTicks() (uint64, bool) {
	n.lock.Lock()
	defer n.lock.Unlock()
	if n.beaconAt.IsZero() {
		return 0, false
	}
	elapsed := n.now().Sub(n.beaconAt)
	return n.hubTicks + uint64(elapsed.Microseconds())*trigger.TicksPerMs/1000, true
}

// Batch produces the notifications due now for the current configuration.
func (n *Node) Batch() []Notification {
	cfg, ok := n.Config()
	if !ok || cfg.Stop {
		return nil
	}
	if cfg.Sync && cfg.SyncStartTimeTicks > 0 {
		ticks, ok := n.HubTicks()
		if !ok || ticks < cfg.SyncStartTimeTicks {
			return nil
		}
	}
	n.lock.Lock()
	start := n.configAt
	n.lock.Unlock()
	t := n.now().Sub(start)
	step := n.Period() / sensor.BatchSize

	var msgs []Notification
	if cfg.Quat6 || cfg.Quat9 {
		qs := make([]sensor.Quaternion, sensor.BatchSize)
		for i := range qs {
			qs[i] = n.Motion.Quaternion(t + time.Duration(i)*step)
		}
		msgs = append(msgs, Notification{Kind: sensor.KindQuaternion, Payload: sensor.EncodeQuaternions(qs)})
	}
	if cfg.Gyro || cfg.Accel || cfg.Mag {
		samples := make([]sensor.RawIMU, sensor.BatchSize)
		for i := range samples {
			s := n.Motion.Raw(t + time.Duration(i)*step)
			if !cfg.Gyro {
				s.Gyro = sensor.Vector{}
			}
			if !cfg.Accel {
				s.Accel = sensor.Vector{}
			}
			if !cfg.Mag {
				s.Mag = sensor.Vector{}
			}
			samples[i] = s
		}
		msgs = append(msgs, Notification{Kind: sensor.KindRaw, Payload: sensor.EncodeRaw(samples)})
	}
	if cfg.Euler {
		msgs = append(msgs, Notification{Kind: sensor.KindEuler, Payload: sensor.EncodeEuler(n.Motion.Euler(t))})
	}
	if cfg.ADC {
		level := float64(n.ADCLevel) + 100*math.Sin(t.Seconds())
		msgs = append(msgs, Notification{Kind: sensor.KindADC, Payload: sensor.EncodeADC(uint16(level))})
	}
	return msgs
}

func (n *Node) handleMessage(topic string, payload []byte) {
	if id, sub, ok := mqtt.ParseNodeTopic(topic); ok {
		if id != n.ID {
			return
		}
		switch sub {
		case mqtt.ConfigTopic:
			var cfg device.Config
			if err := cfg.Unmarshal(payload); err != nil {
				glog.Warningf("node %s: bad config: %v", n.ID, err)
				return
			}
			n.Apply(cfg)
		case mqtt.DisconnectTopic:
			glog.Infof("node %s disconnected by hub", n.ID)
			n.dropOnce.Do(func() { close(n.dropped) })
		}
		return
	}
	if mqtt.MatchTopic(topic, mqtt.HubsTopic+"/+/"+mqtt.BeaconTopic) && len(payload) == 8 {
		n.lock.Lock()
		n.hubTicks, n.beaconAt = binary.LittleEndian.Uint64(payload), n.now()
		n.lock.Unlock()
	}
}
