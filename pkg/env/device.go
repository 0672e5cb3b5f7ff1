package env

import (
	"io"

	"github.com/golang/glog"

	"github.com/robotalks/telechain/pkg/cycle"
	fx "github.com/robotalks/telechain/pkg/framework"
	"github.com/robotalks/telechain/pkg/relay/mqtt"
	"github.com/robotalks/telechain/pkg/retain"
)

// Device is the assembled device.
type Device struct {
	Config       *Config
	Orchestrator *cycle.Orchestrator
	Store        *retain.Store
	Publisher    *mqtt.Publisher

	closers []io.Closer
}

// NewDevice creates Device from config, restoring the retained chain.
func (c *Config) NewDevice() (dev *Device, err error) {
	dev = &Device{Config: c}
	defer func() {
		if err != nil {
			dev.Close()
			dev = nil
		}
	}()

	dialer, err := c.Dialer()
	if err != nil {
		return
	}
	s, closer, err := c.OpenSensor()
	if err != nil {
		return
	}
	dev.closers = append(dev.closers, closer)

	o := cycle.New(dialer, s)
	c.Configure(o)
	o.Clock, o.Syncer = c.Clock()
	dev.Orchestrator = o

	if dev.Store, err = c.OpenStore(); err != nil {
		return
	}
	if dev.Store != nil {
		dev.closers = append(dev.closers, dev.Store)
		o.Store = dev.Store
		var found bool
		if found, err = dev.Store.Load(&o.State); err != nil {
			return
		}
		if found {
			glog.Infof("restored chain of %d digest(s), started %v", o.State.Buffer.Len(), o.State.Started)
		}
	}

	if dev.Publisher, err = c.Publisher(); err != nil {
		return
	}
	if dev.Publisher != nil {
		o.Publisher = dev.Publisher
	}
	return dev, nil
}

// MustNewDevice creates Device and fails on error.
func (c *Config) MustNewDevice() *Device {
	dev, err := c.NewDevice()
	if err != nil {
		glog.Exit(err)
	}
	return dev
}

// Runnables returns what runs the device.
func (d *Device) Runnables() []fx.Runnable {
	runners := []fx.Runnable{fx.NamedRun("cycle", d.Orchestrator)}
	if d.Publisher != nil {
		runners = append(runners, fx.NamedRun("relay", d.Publisher))
	}
	return runners
}

// Close releases the sensor and the retained state.
func (d *Device) Close() error {
	var errs fx.AggregatedError
	for n := len(d.closers) - 1; n >= 0; n-- {
		errs.Add(d.closers[n].Close())
	}
	d.closers = nil
	return errs.Aggregate()
}
