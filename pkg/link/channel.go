package link

import (
	"bytes"
	"io"
	"sync"
	"time"

	"github.com/golang/glog"
)

// Channel is the byte link to the peer.
type Channel interface {
	io.Writer
	io.Closer
	// ReadLine waits up to timeout for the next complete line and returns
	// it without the line terminator. It fails with ErrTimeout if no
	// complete line arrives in time; a partial line is kept for the next
	// read.
	ReadLine(timeout time.Duration) ([]byte, error)
	// Receive waits up to timeout for input and returns whatever has
	// arrived, terminated or not, including a partial line kept by
	// ReadLine. It fails with ErrTimeout if nothing arrives in time.
	Receive(timeout time.Duration) ([]byte, error)
}

// Dialer opens a Channel.
type Dialer interface {
	Dial() (Channel, error)
}

// DialFunc is func type of Dialer.
type DialFunc func() (Channel, error)

// Dial implements Dialer.
func (f DialFunc) Dial() (Channel, error) {
	return f()
}

// DefaultMaxLineLen bounds a line accumulated by StreamChannel.
const DefaultMaxLineLen = 1024

// StreamChannel implements Channel over an io.ReadWriter, e.g. a serial
// port. Reads happen in a background goroutine, so bytes sent by the peer
// are consumed even while nobody is waiting for a line.
//
// A StreamChannel must be created with NewStreamChannel, which starts the
// reader.
type StreamChannel struct {
	ReadWriter io.ReadWriter
	// MaxLineLen drops the accumulated bytes of an overly long line.
	MaxLineLen int

	byteCh   chan byte
	doneCh   chan struct{}
	err      error
	line     []byte
	stop     sync.Once
	writeMux sync.Mutex
}

// NewStreamChannel creates a StreamChannel.
func NewStreamChannel(rw io.ReadWriter) *StreamChannel {
	c := &StreamChannel{
		ReadWriter: rw,
		MaxLineLen: DefaultMaxLineLen,
		byteCh:     make(chan byte, 64),
		doneCh:     make(chan struct{}),
	}
	go c.readLoop()
	return c
}

// Write implements Channel.
func (c *StreamChannel) Write(p []byte) (int, error) {
	c.writeMux.Lock()
	defer c.writeMux.Unlock()
	select {
	case <-c.doneCh:
		return 0, ErrClosed
	default:
	}
	glog.V(2).Infof("TX %q", p)
	return c.ReadWriter.Write(p)
}

// ReadLine implements Channel.
func (c *StreamChannel) ReadLine(timeout time.Duration) ([]byte, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case b, ok := <-c.byteCh:
			if !ok {
				return nil, c.err
			}
			if b == '\n' {
				line := bytes.TrimSuffix(c.line, []byte{'\r'})
				c.line = nil
				glog.V(2).Infof("RX %q", line)
				return line, nil
			}
			if limit := c.MaxLineLen; limit > 0 && len(c.line) >= limit {
				glog.Warningf("line exceeds %d bytes, dropped", limit)
				c.line = c.line[:0]
			}
			c.line = append(c.line, b)
		case <-timer.C:
			return nil, ErrTimeout
		}
	}
}

// Receive implements Channel.
func (c *StreamChannel) Receive(timeout time.Duration) ([]byte, error) {
	if len(c.line) > 0 {
		p := c.line
		c.line = nil
		glog.V(2).Infof("RX %q", p)
		return p, nil
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	var p []byte
	select {
	case b, ok := <-c.byteCh:
		if !ok {
			return nil, c.err
		}
		p = append(p, b)
	case <-timer.C:
		return nil, ErrTimeout
	}
	// take the rest of what already arrived without waiting
	for len(p) < cap(c.byteCh) {
		select {
		case b, ok := <-c.byteCh:
			if !ok {
				return p, nil
			}
			p = append(p, b)
		default:
			glog.V(2).Infof("RX %q", p)
			return p, nil
		}
	}
	glog.V(2).Infof("RX %q", p)
	return p, nil
}

// Close implements Channel.
func (c *StreamChannel) Close() (err error) {
	c.stop.Do(func() {
		close(c.doneCh)
		if closer, ok := c.ReadWriter.(io.Closer); ok {
			err = closer.Close()
		}
	})
	return
}

func (c *StreamChannel) readLoop() {
	defer close(c.byteCh)
	buf := make([]byte, 64)
	for {
		n, err := c.ReadWriter.Read(buf)
		for _, b := range buf[:n] {
			select {
			case c.byteCh <- b:
			case <-c.doneCh:
				c.err = ErrClosed
				return
			}
		}
		if err != nil {
			select {
			case <-c.doneCh:
				c.err = ErrClosed
			default:
				c.err = err
			}
			return
		}
	}
}
