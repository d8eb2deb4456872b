package mqtt

import (
	"strings"
)

// Topic layout, relative to the bus prefix.
//
//	nodes/<id>/meta        retained peer info, empty when the peer is gone
//	nodes/<id>/<kind>      notifications, kind is sensor.Kind.String()
//	nodes/<id>/config      configuration published by the hub
//	nodes/<id>/disconnect  hub request to drop the peer
//	hubs/<id>/meta         retained hub info
//	hubs/<id>/beacon       sync beacon, master clock ticks
const (
	NodesTopic      = "nodes"
	HubsTopic       = "hubs"
	MetaTopic       = "meta"
	ConfigTopic     = "config"
	DisconnectTopic = "disconnect"
	BeaconTopic     = "beacon"
)

// NodeTopic builds nodes/<id>/<sub>.
func NodeTopic(id, sub string) string {
	return NodesTopic + "/" + id + "/" + sub
}

// HubTopic builds hubs/<id>/<sub>.
func HubTopic(id, sub string) string {
	return HubsTopic + "/" + id + "/" + sub
}

// ParseNodeTopic splits nodes/<id>/<sub>.
func ParseNodeTopic(topic string) (id, sub string, ok bool) {
	items := strings.Split(topic, "/")
	if len(items) != 3 || items[0] != NodesTopic || items[1] == "" {
		return "", "", false
	}
	return items[1], items[2], true
}

// Meta is published retained by peers and hubs.
type Meta struct {
	Name     string `json:"name,omitempty"`
	Firmware string `json:"firmware,omitempty"`
	Hub      string `json:"hub,omitempty"`
}
