// Package env assembles the components of a chained sensor device from
// configuration.
//
// Defaults are overridden by CHAIN_* environment variables, then by a
// YAML file given with -config, then by command line flags.
package env

import (
	"flag"
	"os"
	"strconv"
	"time"

	"github.com/golang/glog"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/robotalks/telechain/pkg/clock"
	"github.com/robotalks/telechain/pkg/cycle"
	"github.com/robotalks/telechain/pkg/link"
	"github.com/robotalks/telechain/pkg/sensor"
)

// Sensor kinds.
const (
	SensorBME280 = "bme280"
	SensorStatic = "static"
	SensorDrift  = "drift"
)

// Config provides the options of a device and its peer.
type Config struct {
	// Device identifies the device in relayed records.
	Device string `yaml:"device"`

	// Port is the serial device connected to the peer.
	Port     string `yaml:"port"`
	BaudRate int    `yaml:"baud"`
	// PeerURL is a ws:// URL used instead of Port when set.
	PeerURL string `yaml:"peer-url"`
	// Listen is the address a websocket peer listens on.
	Listen string `yaml:"listen"`

	AckTimeout time.Duration `yaml:"ack-timeout"`
	Backoff    time.Duration `yaml:"backoff"`
	Interval   time.Duration `yaml:"interval"`

	Sensor      string  `yaml:"sensor"`
	I2CBus      string  `yaml:"i2c-bus"`
	I2CAddr     uint    `yaml:"i2c-addr"`
	Temperature float64 `yaml:"temperature"`
	Humidity    float64 `yaml:"humidity"`

	MinTemperature float64 `yaml:"min-temperature"`
	MaxTemperature float64 `yaml:"max-temperature"`

	MinYear   int    `yaml:"min-year"`
	NTPServer string `yaml:"ntp-server"`

	// StatePath is the bbolt file keeping the chain, empty to disable.
	StatePath string `yaml:"state"`

	// MQTTBrokerURL is where accepted records are relayed, empty to disable.
	// e.g. mqtt://host:port/topic-prefix
	MQTTBrokerURL string `yaml:"mqtt"`

	// File is the YAML file loaded before flags.
	File string `yaml:"-"`
}

// Defaults returns the built-in configuration, before the environment
// is applied.
func Defaults() Config {
	return Config{
		BaudRate:       115200,
		AckTimeout:     link.DefaultAckTimeout,
		Backoff:        cycle.DefaultBackoff,
		Interval:       cycle.DefaultInterval,
		Sensor:         SensorBME280,
		I2CAddr:        sensor.DefaultBME280Addr,
		Temperature:    22,
		Humidity:       45,
		MinTemperature: sensor.DefaultBand.Min,
		MaxTemperature: sensor.DefaultBand.Max,
		MinYear:        clock.DefaultMinYear,
		NTPServer:      clock.DefaultNTPServer,
	}
}

var defaultConfig = Defaults()

func init() {
	defaultConfig.FromEnv(os.Getenv)
	if defaultConfig.Device == "" {
		defaultConfig.Device = MachineID()
	}
}

// FromEnv overrides c with the CHAIN_* variables found by getenv.
func (c *Config) FromEnv(getenv func(string) string) {
	str := func(name string, p *string) {
		if val := getenv(name); val != "" {
			*p = val
		}
	}
	str("CHAIN_DEVICE", &c.Device)
	str("CHAIN_PORT", &c.Port)
	str("CHAIN_PEER_URL", &c.PeerURL)
	str("CHAIN_LISTEN", &c.Listen)
	str("CHAIN_SENSOR", &c.Sensor)
	str("CHAIN_I2C_BUS", &c.I2CBus)
	str("CHAIN_NTP_SERVER", &c.NTPServer)
	str("CHAIN_STATE", &c.StatePath)
	str("CHAIN_MQTT_URL", &c.MQTTBrokerURL)
	str("CHAIN_CONFIG", &c.File)
	if val := getenv("CHAIN_BAUD"); val != "" {
		if baud, err := strconv.Atoi(val); err == nil {
			c.BaudRate = baud
		} else {
			glog.Warningf("ignored CHAIN_BAUD=%q: %v", val, err)
		}
	}
}

// BindFlags binds the options to fs.
func (c *Config) BindFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.File, "config", c.File, "YAML config file")
	fs.StringVar(&c.Device, "device", c.Device, "Device ID")
	fs.StringVar(&c.Port, "port", c.Port, "Serial port of the peer link")
	fs.IntVar(&c.BaudRate, "baud", c.BaudRate, "Serial baud rate")
	fs.StringVar(&c.PeerURL, "peer", c.PeerURL, "Websocket URL of the peer, instead of a serial port")
	fs.StringVar(&c.Listen, "listen", c.Listen, "Websocket listen address of the peer")
	fs.DurationVar(&c.AckTimeout, "ack-timeout", c.AckTimeout, "Acknowledgement timeout")
	fs.DurationVar(&c.Backoff, "backoff", c.Backoff, "Wait before reopening a failed link")
	fs.DurationVar(&c.Interval, "interval", c.Interval, "Wait between cycles")
	fs.StringVar(&c.Sensor, "sensor", c.Sensor, "Sensor kind: bme280, static or drift")
	fs.StringVar(&c.I2CBus, "i2c-bus", c.I2CBus, "I2C bus of the BME280")
	fs.UintVar(&c.I2CAddr, "i2c-addr", c.I2CAddr, "I2C address of the BME280")
	fs.Float64Var(&c.Temperature, "temperature", c.Temperature, "Temperature of static/drift sensors")
	fs.Float64Var(&c.Humidity, "humidity", c.Humidity, "Humidity of static/drift sensors")
	fs.Float64Var(&c.MinTemperature, "min-temp", c.MinTemperature, "Lower bound of the temperature band")
	fs.Float64Var(&c.MaxTemperature, "max-temp", c.MaxTemperature, "Upper bound of the temperature band")
	fs.IntVar(&c.MinYear, "min-year", c.MinYear, "Earliest plausible year of the clock")
	fs.StringVar(&c.NTPServer, "ntp", c.NTPServer, "NTP server, empty to never synchronize")
	fs.StringVar(&c.StatePath, "state", c.StatePath, "File retaining the chain state")
	fs.StringVar(&c.MQTTBrokerURL, "mqtt", c.MQTTBrokerURL, "MQTT broker URL relaying accepted records")
}

// SetupFlags sets up command line flags.
func SetupFlags() {
	defaultConfig.BindFlags(flag.CommandLine)
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// LoadFile overrides c with the YAML file at path.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "read config")
	}
	if err = yaml.Unmarshal(data, c); err != nil {
		return errors.Wrapf(err, "parse config %s", path)
	}
	return nil
}

// Parse parses args with fs, whose flags must be bound to c. A config
// file is loaded between two passes so flags take precedence over it.
func (c *Config) Parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return err
	}
	if c.File == "" {
		return nil
	}
	if err := c.LoadFile(c.File); err != nil {
		return err
	}
	return fs.Parse(args)
}

// Load parses the command line after SetupFlags and returns the config.
func Load() (*Config, error) {
	if err := defaultConfig.Parse(flag.CommandLine, os.Args[1:]); err != nil {
		return nil, err
	}
	return NewConfig(), nil
}

// Band returns the configured temperature band.
func (c *Config) Band() sensor.Band {
	return sensor.Band{Min: c.MinTemperature, Max: c.MaxTemperature}
}

// Configure applies the cycle options to o.
func (c *Config) Configure(o *cycle.Orchestrator) {
	o.Device = c.Device
	o.Band = c.Band()
	o.MinYear = c.MinYear
	o.AckTimeout = c.AckTimeout
	o.Backoff = c.Backoff
	o.Interval = c.Interval
}
