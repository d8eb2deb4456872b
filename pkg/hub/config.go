package hub

import (
	"bytes"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/denisbrodbeck/machineid"
	"gopkg.in/yaml.v3"

	"github.com/robotalks/sensorhub/pkg/command"
	"github.com/robotalks/sensorhub/pkg/device"
	"github.com/robotalks/sensorhub/pkg/output"
	"github.com/robotalks/sensorhub/pkg/sensor"
	"github.com/robotalks/sensorhub/pkg/transport"
)

// Config defines the configurations of the hub.
type Config struct {
	// ID names the hub on the broker, defaults to the machine ID.
	ID string `yaml:"id"`
	// MQTTBrokerURL specifies the broker peers are bridged through.
	// e.g. mqtt://host:port/topic-prefix
	MQTTBrokerURL string `yaml:"mqtt"`
	// Serial is the console serial device. Empty uses stdio unless
	// ConsoleAddr is set.
	Serial   string `yaml:"serial"`
	BaudRate int    `yaml:"baudRate"`
	// ConsoleAddr serves the console over websocket instead.
	ConsoleAddr string `yaml:"console"`
	// Terminator is the line terminator, "cr" or "lf".
	Terminator string `yaml:"terminator"`
	// TriggerPin names the GPIO of the trigger output. Empty keeps the
	// output in memory.
	TriggerPin string `yaml:"triggerPin"`
	Slots      int    `yaml:"slots"`

	InputQueueSize  int `yaml:"inputQueueSize"`
	PacketQueueSize int `yaml:"packetQueueSize"`
	OutputQueueSize int `yaml:"outputQueueSize"`

	// Device is the configuration before any command is received.
	Device device.Config `yaml:"device"`
}

var defaultConfig = Config{
	MQTTBrokerURL:   "mqtt://localhost:1883/sensorhub/",
	BaudRate:        transport.DefaultBaudRate,
	Terminator:      "cr",
	Slots:           sensor.MaxSlots,
	InputQueueSize:  command.DefaultQueueSize,
	PacketQueueSize: sensor.DefaultQueueSize,
	OutputQueueSize: output.DefaultQueueSize,
}

func init() {
	if val := os.Getenv("SENSORHUB_MQTT_URL"); val != "" {
		defaultConfig.MQTTBrokerURL = val
	}
	if val := os.Getenv("SENSORHUB_SERIAL"); val != "" {
		defaultConfig.Serial = val
	}
	defaultConfig.ID = MachineID()
}

// MachineID identifies the host, falling back to the host name.
func MachineID() string {
	if id, err := machineid.ProtectedID("sensorhub"); err == nil {
		return id[:12]
	}
	if name, err := os.Hostname(); err == nil {
		return name
	}
	return "sensorhub"
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.ID, "id", defaultConfig.ID, "Hub ID")
	flag.StringVar(&defaultConfig.MQTTBrokerURL, "mqtt", defaultConfig.MQTTBrokerURL, "MQTT broker URL")
	flag.StringVar(&defaultConfig.Serial, "serial", defaultConfig.Serial, "Console serial device, empty for stdio")
	flag.IntVar(&defaultConfig.BaudRate, "baud", defaultConfig.BaudRate, "Console serial baud rate")
	flag.StringVar(&defaultConfig.ConsoleAddr, "console", defaultConfig.ConsoleAddr, "Serve console over websocket on this address")
	flag.StringVar(&defaultConfig.Terminator, "terminator", defaultConfig.Terminator, "Command line terminator: cr or lf")
	flag.StringVar(&defaultConfig.TriggerPin, "trigger-pin", defaultConfig.TriggerPin, "GPIO name of the trigger output")
	flag.IntVar(&defaultConfig.Slots, "slots", defaultConfig.Slots, "Max connected sensors")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a config with defaults.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// LoadFile overrides c with values present in a YAML file.
func (c *Config) LoadFile(fn string) error {
	data, err := os.ReadFile(fn)
	if err != nil {
		return err
	}
	return c.Load(data)
}

// Load overrides c with values present in YAML data. Unknown keys fail.
func (c *Config) Load(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// TerminatorByte parses Terminator.
func (c *Config) TerminatorByte() (byte, error) {
	switch strings.ToLower(c.Terminator) {
	case "", "cr", `\r`:
		return command.TerminatorCR, nil
	case "lf", `\n`:
		return command.TerminatorLF, nil
	}
	return 0, fmt.Errorf("config: unknown terminator %q", c.Terminator)
}

// Validate checks the config.
func (c *Config) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("config: hub id is required")
	}
	if c.Slots <= 0 || c.Slots > sensor.MaxSlots {
		return fmt.Errorf("config: slots must be within 1..%d", sensor.MaxSlots)
	}
	if c.Device.FrequencyHz > device.MaxFrequencyHz {
		return fmt.Errorf("config: frequency must be within 0..%d", device.MaxFrequencyHz)
	}
	_, err := c.TerminatorByte()
	return err
}
