// Package sensor provides temperature and humidity samples.
package sensor

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
)

// ErrSensorFault indicates the sensor can't be reached or returned
// corrupt data.
var ErrSensorFault = errors.New("sensor fault")

// Fault reports err from a sensor driver as ErrSensorFault. Both remain
// matchable with errors.Is.
func Fault(err error) error {
	return fmt.Errorf("%w: %w", ErrSensorFault, err)
}

// Sample is one measurement.
type Sample struct {
	// Temperature in degrees Celsius.
	Temperature float64
	// Humidity in percent relative humidity.
	Humidity float64
}

// Sensor reads samples.
type Sensor interface {
	Read() (Sample, error)
}

// ReadFunc is func type of Sensor.
type ReadFunc func() (Sample, error)

// Read implements Sensor.
func (f ReadFunc) Read() (Sample, error) {
	return f()
}

// Band is an inclusive temperature range.
type Band struct {
	Min float64
	Max float64
}

// DefaultBand is the range a sample is expected to be in.
var DefaultBand = Band{Min: 0, Max: 40}

// Contains tells whether temp is within the band.
func (b Band) Contains(temp float64) bool {
	return temp >= b.Min && temp <= b.Max
}

// String implements fmt.Stringer.
func (b Band) String() string {
	return fmt.Sprintf("[%g, %g]", b.Min, b.Max)
}

// Static always returns the same sample.
type Static Sample

// Read implements Sensor.
func (s Static) Read() (Sample, error) {
	return Sample(s), nil
}

// Drift simulates a sensor wandering around a base sample, for running
// without hardware.
type Drift struct {
	Base Sample
	Step float64

	current *Sample
	rnd     *rand.Rand
	lock    sync.Mutex
}

// NewDrift creates a Drift sensor.
func NewDrift(base Sample, seed int64) *Drift {
	return &Drift{Base: base, Step: 0.25, rnd: rand.New(rand.NewSource(seed))}
}

// Read implements Sensor.
func (d *Drift) Read() (Sample, error) {
	d.lock.Lock()
	defer d.lock.Unlock()
	if d.current == nil {
		s := d.Base
		d.current = &s
		return s, nil
	}
	d.current.Temperature += (d.rnd.Float64()*2 - 1) * d.Step
	d.current.Humidity += (d.rnd.Float64()*2 - 1) * d.Step
	if d.current.Humidity < 0 {
		d.current.Humidity = 0
	} else if d.current.Humidity > 100 {
		d.current.Humidity = 100
	}
	return *d.current, nil
}
