package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/robotalks/sensorhub/pkg/device"
	"github.com/robotalks/sensorhub/pkg/peer/mqtt"
	"github.com/robotalks/sensorhub/pkg/sensor"
	"github.com/robotalks/sensorhub/pkg/trigger"
)

var (
	mqttURL = "mqtt://localhost:1883/sensorhub/"
)

func init() {
	if val := os.Getenv("SENSORHUB_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
}

func describe(topic string, payload []byte) string {
	if strings.HasSuffix(topic, "/"+mqtt.MetaTopic) {
		if len(payload) == 0 {
			return "(gone)"
		}
		return string(payload)
	}
	if mqtt.MatchTopic(topic, mqtt.HubsTopic+"/+/"+mqtt.BeaconTopic) {
		if len(payload) != 8 {
			return "bad beacon"
		}
		ticks := binary.LittleEndian.Uint64(payload)
		return fmt.Sprintf("beacon %d (%dms)", ticks, trigger.TicksToMs(ticks))
	}
	_, sub, ok := mqtt.ParseNodeTopic(topic)
	if !ok {
		return string(payload)
	}
	switch sub {
	case mqtt.ConfigTopic:
		var cfg device.Config
		if err := cfg.Unmarshal(payload); err != nil {
			return err.Error()
		}
		return "config " + cfg.String()
	case mqtt.DisconnectTopic:
		return "disconnect"
	}
	kind, err := sensor.ParseKind(sub)
	if err != nil {
		return err.Error()
	}
	var packets []sensor.Packet
	switch kind {
	case sensor.KindQuaternion:
		packets, err = sensor.DecodeQuaternions(0, payload)
	case sensor.KindRaw:
		packets, err = sensor.DecodeRaw(0, payload)
	case sensor.KindEuler:
		var e sensor.Euler
		if e, err = sensor.DecodeEuler(payload); err == nil {
			return fmt.Sprintf("euler yaw %.2f pitch %.2f roll %.2f", e.Yaw, e.Pitch, e.Roll)
		}
	case sensor.KindADC:
		var adc *sensor.ADC
		if adc, err = sensor.DecodeADC(0, payload); err == nil {
			packets = []sensor.Packet{adc}
		}
	}
	if err != nil {
		return err.Error()
	}
	lines := make([]string, len(packets))
	for n, p := range packets {
		lines[n] = strings.TrimRight(sensor.Format(p), "\r\n")
	}
	return strings.Join(lines, " | ")
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	opts, prefix, err := mqtt.ClientOptionsFromURL(mqttURL)
	if err != nil {
		log.Fatalln(err)
	}
	bus := mqtt.NewBus(opts, prefix)
	bus.Sub("#", func(topic string, payload []byte) {
		log.Printf("%s: %s", topic, describe(topic, payload))
	})
	if token := bus.Connect(); token.Wait() && token.Error() != nil {
		log.Fatalln(token.Error())
	}
	<-(chan struct{})(nil)
}
