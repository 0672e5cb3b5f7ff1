package env

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/telechain/pkg/chain"
	"github.com/robotalks/telechain/pkg/clock"
	"github.com/robotalks/telechain/pkg/cycle"
	"github.com/robotalks/telechain/pkg/link/serial"
	"github.com/robotalks/telechain/pkg/link/websocket"
	"github.com/robotalks/telechain/pkg/retain"
	"github.com/robotalks/telechain/pkg/sensor"
)

func baseConfig() *Config {
	conf := Defaults()
	conf.Device = "dev-1"
	return &conf
}

func TestFromEnv(t *testing.T) {
	vars := map[string]string{
		"CHAIN_PORT":     "/dev/ttyUSB0",
		"CHAIN_BAUD":     "9600",
		"CHAIN_SENSOR":   SensorStatic,
		"CHAIN_MQTT_URL": "mqtt://broker:1883/chain/",
	}
	conf := baseConfig()
	conf.FromEnv(func(name string) string { return vars[name] })
	require.Equal(t, "/dev/ttyUSB0", conf.Port)
	require.Equal(t, 9600, conf.BaudRate)
	require.Equal(t, SensorStatic, conf.Sensor)
	require.Equal(t, "mqtt://broker:1883/chain/", conf.MQTTBrokerURL)
	require.Equal(t, "dev-1", conf.Device)

	vars = map[string]string{"CHAIN_BAUD": "fast"}
	conf.FromEnv(func(name string) string { return vars[name] })
	require.Equal(t, 9600, conf.BaudRate)
}

func TestParsePrecedence(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "chain.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
port: /dev/ttyS1
baud: 57600
interval: 30s
sensor: drift
min-temperature: -10
state: /var/lib/chain.db
`), 0644))

	conf := baseConfig()
	conf.Port = "/dev/from-env"
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	conf.BindFlags(fs)
	require.NoError(t, conf.Parse(fs, []string{"-config", file, "-baud", "19200"}))

	require.Equal(t, "/dev/ttyS1", conf.Port)
	require.Equal(t, 19200, conf.BaudRate)
	require.Equal(t, 30*time.Second, conf.Interval)
	require.Equal(t, SensorDrift, conf.Sensor)
	require.Equal(t, sensor.Band{Min: -10, Max: 40}, conf.Band())
	require.Equal(t, "/var/lib/chain.db", conf.StatePath)
	require.Equal(t, file, conf.File)
}

func TestParseErrors(t *testing.T) {
	conf := baseConfig()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	conf.BindFlags(fs)
	require.Error(t, conf.Parse(fs, []string{"-config", filepath.Join(t.TempDir(), "missing.yaml")}))

	file := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(file, []byte("baud: [1, 2]\n"), 0644))
	conf = baseConfig()
	fs = flag.NewFlagSet("test", flag.ContinueOnError)
	conf.BindFlags(fs)
	require.Error(t, conf.Parse(fs, []string{"-config", file}))
}

func TestDialer(t *testing.T) {
	conf := baseConfig()
	_, err := conf.Dialer()
	require.Error(t, err)

	conf.Port = "/dev/ttyUSB0"
	d, err := conf.Dialer()
	require.NoError(t, err)
	require.Equal(t, serial.Config{Port: "/dev/ttyUSB0", BaudRate: 115200}, d)

	conf.PeerURL = "ws://peer:8080/chain"
	d, err = conf.Dialer()
	require.NoError(t, err)
	require.Equal(t, websocket.Dialer{URL: "ws://peer:8080/chain"}, d)

	conf.PeerURL = "http://peer"
	_, err = conf.Dialer()
	require.Error(t, err)
}

func TestOpenSensor(t *testing.T) {
	conf := baseConfig()
	conf.Sensor = SensorStatic
	conf.Temperature, conf.Humidity = 19.5, 60
	s, closer, err := conf.OpenSensor()
	require.NoError(t, err)
	sample, err := s.Read()
	require.NoError(t, err)
	require.Equal(t, sensor.Sample{Temperature: 19.5, Humidity: 60}, sample)
	require.NoError(t, closer.Close())

	conf.Sensor = SensorDrift
	s, _, err = conf.OpenSensor()
	require.NoError(t, err)
	sample, err = s.Read()
	require.NoError(t, err)
	require.Equal(t, sensor.Sample{Temperature: 19.5, Humidity: 60}, sample)

	conf.Sensor = "thermocouple"
	_, _, err = conf.OpenSensor()
	require.Error(t, err)
}

func TestClock(t *testing.T) {
	conf := baseConfig()
	src, syncer := conf.Clock()
	ntp, ok := src.(*clock.NTP)
	require.True(t, ok)
	require.Equal(t, clock.DefaultNTPServer, ntp.Server)
	require.Equal(t, ntp, syncer)

	conf.NTPServer = ""
	src, syncer = conf.Clock()
	_, ok = src.(*clock.NTP)
	require.False(t, ok)
	require.Nil(t, syncer)
}

func TestDisabledComponents(t *testing.T) {
	conf := baseConfig()
	store, err := conf.OpenStore()
	require.NoError(t, err)
	require.Nil(t, store)
	pub, err := conf.Publisher()
	require.NoError(t, err)
	require.Nil(t, pub)
	_, err = conf.Queue()
	require.Error(t, err)
}

func TestOpenStore(t *testing.T) {
	conf := baseConfig()
	conf.StatePath = filepath.Join(t.TempDir(), "state.db")
	store, err := conf.OpenStore()
	require.NoError(t, err)
	require.NotNil(t, store)
	require.NoError(t, store.Close())
}

func TestConfigure(t *testing.T) {
	conf := baseConfig()
	conf.Interval = time.Minute
	conf.MaxTemperature = 30
	o := cycle.New(nil, sensor.Static{})
	conf.Configure(o)
	require.Equal(t, "dev-1", o.Device)
	require.Equal(t, time.Minute, o.Interval)
	require.Equal(t, sensor.Band{Min: 0, Max: 30}, o.Band)
	require.Equal(t, clock.DefaultMinYear, o.MinYear)
	require.Equal(t, 10*time.Second, o.AckTimeout)
	require.Equal(t, 5*time.Second, o.Backoff)
}

func TestMachineID(t *testing.T) {
	id := MachineID()
	require.NotEmpty(t, id)
	require.Equal(t, id, MachineID())
}

func TestNewDevice(t *testing.T) {
	conf := baseConfig()
	conf.Port = "/dev/ttyUSB0"
	conf.Sensor = SensorStatic
	conf.NTPServer = ""
	conf.StatePath = filepath.Join(t.TempDir(), "state.db")

	var saved chain.State
	saved.Extend(chain.Reading{Timestamp: 1700000000, Temperature: 20, Humidity: 50})
	store, err := retain.Open(conf.StatePath)
	require.NoError(t, err)
	require.NoError(t, store.Save(&saved))
	require.NoError(t, store.Close())

	dev, err := conf.NewDevice()
	require.NoError(t, err)
	defer dev.Close()
	o := dev.Orchestrator
	require.Equal(t, saved.Buffer.Snapshot(), o.State.Buffer.Snapshot())
	require.True(t, o.State.Started)
	require.Equal(t, dev.Store, o.Store)
	require.Nil(t, o.Syncer)
	require.Nil(t, dev.Publisher)
	require.Len(t, dev.Runnables(), 1)
	require.NoError(t, dev.Close())
	require.NoError(t, dev.Close())
}

func TestNewDeviceFails(t *testing.T) {
	conf := baseConfig()
	conf.Sensor = SensorStatic
	_, err := conf.NewDevice()
	require.Error(t, err)

	conf.Port = "/dev/ttyUSB0"
	conf.Sensor = "unknown"
	_, err = conf.NewDevice()
	require.Error(t, err)
}
