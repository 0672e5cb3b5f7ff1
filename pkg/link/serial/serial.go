// Package serial provides a link.Channel over a serial device.
package serial

import (
	"github.com/golang/glog"
	"github.com/pkg/errors"
	bugserial "go.bug.st/serial"

	"github.com/robotalks/telechain/pkg/link"
)

// DefaultBaudRate is the UART speed used when none is configured.
const DefaultBaudRate = 115200

// Config specifies the serial device, always 8N1 without flow control.
type Config struct {
	Port     string
	BaudRate int
}

// Mode returns the serial mode for the config.
func (c Config) Mode() *bugserial.Mode {
	baud := c.BaudRate
	if baud <= 0 {
		baud = DefaultBaudRate
	}
	return &bugserial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   bugserial.NoParity,
		StopBits: bugserial.OneStopBit,
	}
}

// Open opens the serial device as a channel.
func Open(c Config) (*link.StreamChannel, error) {
	port, err := bugserial.Open(c.Port, c.Mode())
	if err != nil {
		return nil, errors.Wrapf(err, "open serial port %s", c.Port)
	}
	glog.V(1).Infof("serial port %s opened", c.Port)
	return link.NewStreamChannel(port), nil
}

// Dial implements link.Dialer.
func (c Config) Dial() (link.Channel, error) {
	ch, err := Open(c)
	if err != nil {
		return nil, err
	}
	return ch, nil
}

// Ports lists the serial devices found on the system.
func Ports() ([]string, error) {
	return bugserial.GetPortsList()
}
