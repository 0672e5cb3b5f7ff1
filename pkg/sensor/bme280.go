package sensor

import (
	"github.com/pkg/errors"
	"periph.io/x/periph/conn/i2c"
	"periph.io/x/periph/conn/i2c/i2creg"
	"periph.io/x/periph/conn/physic"
	"periph.io/x/periph/devices/bmxx80"
	"periph.io/x/periph/host"
)

// DefaultBME280Addr is the I²C address of a BME280 with SDO pulled low.
const DefaultBME280Addr = 0x76

// BME280 reads a Bosch BME280 over I²C.
type BME280 struct {
	bus i2c.BusCloser
	dev *bmxx80.Dev
}

// OpenBME280 opens the sensor on the named I²C bus ("" for the first one).
func OpenBME280(busName string, addr uint16) (*BME280, error) {
	if _, err := host.Init(); err != nil {
		return nil, errors.Wrap(err, "init host drivers")
	}
	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, errors.Wrapf(err, "open I2C bus %q", busName)
	}
	dev, err := bmxx80.NewI2C(bus, addr, &bmxx80.DefaultOpts)
	if err != nil {
		bus.Close()
		return nil, errors.Wrapf(err, "open BME280 at 0x%02x", addr)
	}
	return &BME280{bus: bus, dev: dev}, nil
}

// Read implements Sensor.
func (s *BME280) Read() (Sample, error) {
	var e physic.Env
	if err := s.dev.Sense(&e); err != nil {
		return Sample{}, Fault(err)
	}
	return FromEnv(e), nil
}

// Close halts the device and releases the bus.
func (s *BME280) Close() error {
	s.dev.Halt()
	return s.bus.Close()
}

// FromEnv converts periph measurements.
func FromEnv(e physic.Env) Sample {
	return Sample{
		Temperature: float64(e.Temperature-physic.ZeroCelsius) / float64(physic.Celsius),
		Humidity:    float64(e.Humidity) / float64(physic.PercentRH),
	}
}
