package mqtt

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"

	"github.com/robotalks/sensorhub/pkg/device"
	"github.com/robotalks/sensorhub/pkg/peer"
	"github.com/robotalks/sensorhub/pkg/sensor"
)

// DefaultPublishTimeout bounds the wait for all broadcast publishes.
const DefaultPublishTimeout = 200 * time.Millisecond

type publisher interface {
	PubWith(topic string, payload []byte, qos byte, retain bool) paho.Token
}

// Manager implements peer.Manager over MQTT.
//
// A peer is connected while its retained meta topic is non-empty; peers set
// an empty will on the meta topic so the broker retires them when the link
// drops.
type Manager struct {
	HubID          string
	Observer       peer.Observer
	PublishTimeout time.Duration

	bus      *Bus
	pub      publisher
	table    *peer.Table
	inflight sync.WaitGroup
}

// NewManager creates a Manager connecting to brokerURL.
func NewManager(brokerURL, hubID string, slots int) (*Manager, error) {
	opts, prefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, fmt.Errorf("broker url: %w", err)
	}
	hubMeta := HubTopic(hubID, MetaTopic)
	opts.SetBinaryWill(prefix+hubMeta, nil, 1, true)
	if opts.ClientID == "" {
		opts.SetClientID("sensorhub:" + hubID)
	}
	m := newManager(hubID, slots)
	m.bus = NewBus(opts, prefix)
	m.pub = m.bus
	m.bus.OnConnect = func(b *Bus) {
		meta, _ := json.Marshal(&Meta{Hub: hubID})
		b.PubWith(hubMeta, meta, 1, true)
	}
	return m, nil
}

func newManager(hubID string, slots int) *Manager {
	return &Manager{
		HubID:          hubID,
		PublishTimeout: DefaultPublishTimeout,
		table:          peer.NewTable(slots),
	}
}

// Name implements framework.Named.
func (m *Manager) Name() string {
	return "peers"
}

// Run implements framework.Runnable.
func (m *Manager) Run(ctx context.Context) error {
	m.bus.Sub(NodesTopic+"/+/+", m.handleMessage)
	token := m.bus.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	<-ctx.Done()
	m.inflight.Wait()
	m.bus.PubWith(HubTopic(m.HubID, MetaTopic), nil, 1, true).WaitTimeout(time.Second)
	m.bus.Close()
	return ctx.Err()
}

// Broadcast implements peer.Manager. Publishing is started for all peers
// and Broadcast returns; completions are awaited off the caller within
// PublishTimeout and failures go to Observer.BroadcastFailed.
func (m *Manager) Broadcast(cfg device.Config) error {
	payload := cfg.Marshal()
	slots := m.table.List()
	tokens := make([]paho.Token, len(slots))
	for n, slot := range slots {
		tokens[n] = m.pub.PubWith(NodeTopic(slot.ID, ConfigTopic), payload, 1, false)
	}
	m.inflight.Add(1)
	go m.awaitBroadcast(cfg, slots, tokens)
	return nil
}

func (m *Manager) awaitBroadcast(cfg device.Config, slots []peer.Slot, tokens []paho.Token) {
	defer m.inflight.Done()
	deadline := time.Now().Add(m.PublishTimeout)
	var errs peer.BroadcastError
	for n, token := range tokens {
		if !token.WaitTimeout(time.Until(deadline)) {
			errs.Add(slots[n].Index, context.DeadlineExceeded)
			continue
		}
		if err := token.Error(); err != nil {
			errs.Add(slots[n].Index, err)
		}
	}
	glog.V(1).Infof("config %s sent to %d peers", cfg, len(slots)-len(errs.Slots))
	if len(errs.Slots) == 0 {
		return
	}
	glog.Warningf("config: %v", &errs)
	if o := m.Observer; o != nil {
		o.BroadcastFailed(&errs)
	}
}

// PublishBeacon publishes the master clock as 8 little-endian bytes on
// hubs/<id>/beacon. It is the timesync.BeaconFunc of the hub.
func (m *Manager) PublishBeacon(ticks uint64) {
	var payload [8]byte
	binary.LittleEndian.PutUint64(payload[:], ticks)
	m.pub.PubWith(HubTopic(m.HubID, BeaconTopic), payload[:], 0, false)
}

// Disconnect implements peer.Manager.
func (m *Manager) Disconnect(index int) error {
	slot, ok := m.table.DetachSlot(index)
	if !ok {
		return fmt.Errorf("slot %d: %w", index, peer.ErrNotConnected)
	}
	m.pub.PubWith(NodeTopic(slot.ID, DisconnectTopic), nil, 1, false)
	m.notifyDisconnected(slot)
	return nil
}

// Slots implements peer.Manager.
func (m *Manager) Slots() []peer.Slot {
	return m.table.List()
}

func (m *Manager) handleMessage(topic string, payload []byte) {
	id, sub, ok := ParseNodeTopic(topic)
	if !ok {
		return
	}
	switch sub {
	case MetaTopic:
		m.handleMeta(id, payload)
	case ConfigTopic, DisconnectTopic:
	default:
		kind, err := sensor.ParseKind(sub)
		if err != nil {
			glog.V(2).Infof("ignore %q: %v", topic, err)
			return
		}
		slot, ok := m.table.Count(id)
		if !ok {
			glog.V(2).Infof("ignore %s from unknown peer %s", sub, id)
			return
		}
		if o := m.Observer; o != nil {
			o.PeerNotified(slot, kind, payload)
		}
	}
}

func (m *Manager) handleMeta(id string, payload []byte) {
	if len(payload) == 0 {
		if slot, ok := m.table.Detach(id); ok {
			m.notifyDisconnected(slot)
		}
		return
	}
	var meta Meta
	if err := json.Unmarshal(payload, &meta); err != nil {
		glog.Warningf("peer %s: bad meta: %v", id, err)
	}
	slot, attached, err := m.table.Attach(id)
	if err != nil {
		glog.Warningf("peer %s rejected: %v", id, err)
		return
	}
	if !attached {
		return
	}
	glog.Infof("peer %s (%s %s) connected on slot %d handle %d", id, meta.Name, meta.Firmware, slot.Index, slot.Handle)
	if o := m.Observer; o != nil {
		o.PeerConnected(slot)
	}
}

func (m *Manager) notifyDisconnected(slot peer.Slot) {
	glog.Infof("peer %s disconnected from slot %d after %d notifications", slot.ID, slot.Index, slot.Received)
	if o := m.Observer; o != nil {
		o.PeerDisconnected(slot)
	}
}
