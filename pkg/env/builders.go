package env

import (
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/robotalks/telechain/pkg/clock"
	"github.com/robotalks/telechain/pkg/link"
	"github.com/robotalks/telechain/pkg/link/serial"
	"github.com/robotalks/telechain/pkg/link/websocket"
	"github.com/robotalks/telechain/pkg/relay/mqtt"
	"github.com/robotalks/telechain/pkg/retain"
	"github.com/robotalks/telechain/pkg/sensor"
)

// Serial returns the serial link options.
func (c *Config) Serial() serial.Config {
	return serial.Config{Port: c.Port, BaudRate: c.BaudRate}
}

// Dialer returns how the device reaches its peer.
func (c *Config) Dialer() (link.Dialer, error) {
	switch {
	case c.PeerURL != "":
		if !strings.HasPrefix(c.PeerURL, "ws://") && !strings.HasPrefix(c.PeerURL, "wss://") {
			return nil, errors.Errorf("unsupported peer URL %q", c.PeerURL)
		}
		return websocket.Dialer{URL: c.PeerURL}, nil
	case c.Port != "":
		return c.Serial(), nil
	}
	return nil, errors.New("serial port or peer URL must be specified")
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// OpenSensor opens the configured sensor. The closer releases the hardware.
func (c *Config) OpenSensor() (sensor.Sensor, io.Closer, error) {
	sample := sensor.Sample{Temperature: c.Temperature, Humidity: c.Humidity}
	switch c.Sensor {
	case SensorBME280:
		dev, err := sensor.OpenBME280(c.I2CBus, uint16(c.I2CAddr))
		if err != nil {
			return nil, nil, err
		}
		return dev, dev, nil
	case SensorStatic:
		return sensor.Static(sample), nopCloser{}, nil
	case SensorDrift:
		return sensor.NewDrift(sample, time.Now().UnixNano()), nopCloser{}, nil
	}
	return nil, nil, errors.Errorf("unknown sensor %q", c.Sensor)
}

// Clock returns the time source and the syncer used when its time is
// implausible. The syncer is nil when no NTP server is configured.
func (c *Config) Clock() (clock.Source, clock.Syncer) {
	if c.NTPServer == "" {
		return clock.System, nil
	}
	ntp := clock.NewNTP(c.NTPServer)
	return ntp, ntp
}

// OpenStore opens the retained state, nil if disabled.
func (c *Config) OpenStore() (*retain.Store, error) {
	if c.StatePath == "" {
		return nil, nil
	}
	return retain.Open(c.StatePath)
}

// Publisher creates the MQTT relay, nil if disabled.
func (c *Config) Publisher() (*mqtt.Publisher, error) {
	if c.MQTTBrokerURL == "" {
		return nil, nil
	}
	return mqtt.NewPublisher(c.MQTTBrokerURL, c.Device)
}

// Queue creates an MQTT queue for watching relayed records.
func (c *Config) Queue() (*mqtt.Queue, error) {
	if c.MQTTBrokerURL == "" {
		return nil, errors.New("MQTT broker URL must be specified")
	}
	return mqtt.NewQueueFromURL(c.MQTTBrokerURL)
}
