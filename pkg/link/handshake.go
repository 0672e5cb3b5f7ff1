package link

import (
	"bytes"
	"errors"
	"time"

	"github.com/golang/glog"
)

// Disposition is the outcome of one handshake attempt.
type Disposition int

const (
	// Retry means the same message must be sent again.
	Retry Disposition = iota
	// Advance means the peer accepted the message.
	Advance
	// Resync means the peer asks for a new chain.
	Resync
)

// String implements fmt.Stringer.
func (d Disposition) String() string {
	switch d {
	case Retry:
		return "retry"
	case Advance:
		return "advance"
	case Resync:
		return "resync"
	}
	return "unknown"
}

// Acknowledgement tokens, matched case-insensitively anywhere in a reply.
const (
	TokenFail = "A,B,FAIL"
	TokenOK   = "A,B,OK"
	TokenSync = "A,B,SYNC"
)

// DefaultAckTimeout is how long to wait for an acknowledgement.
const DefaultAckTimeout = 10 * time.Second

// AckBufferSize bounds the reply bytes accumulated in one await.
const AckBufferSize = 128

// HandshakeState is the state of a Handshake.
type HandshakeState int

const (
	// StateSend is transmitting the message.
	StateSend HandshakeState = iota
	// StateAwaitAck is waiting for an acknowledgement.
	StateAwaitAck
	// StateDone means a disposition has been decided.
	StateDone
)

// String implements fmt.Stringer.
func (s HandshakeState) String() string {
	switch s {
	case StateSend:
		return "SEND"
	case StateAwaitAck:
		return "AWAIT_ACK"
	case StateDone:
		return "DONE"
	}
	return "UNKNOWN"
}

var ackTokens = []struct {
	token       []byte
	disposition Disposition
}{
	{[]byte(TokenFail), Retry},
	{[]byte(TokenOK), Advance},
	{[]byte(TokenSync), Resync},
}

// ackScanner accumulates received bytes until a token shows up. Tokens
// are matched as soon as they are complete, terminated or not.
type ackScanner struct {
	buf []byte
}

func (s *ackScanner) feed(p []byte) (d Disposition, found bool, err error) {
	overflow := false
	if room := AckBufferSize - len(s.buf); len(p) > room {
		p, overflow = p[:room], true
	}
	s.buf = append(s.buf, bytes.ToUpper(p)...)
	for _, t := range ackTokens {
		if bytes.Contains(s.buf, t.token) {
			return t.disposition, true, nil
		}
	}
	if overflow {
		return Retry, true, ErrAckOverflow
	}
	return Retry, false, nil
}

// Handshake sends a message and decides what to do from the peer's reply.
type Handshake struct {
	Channel Channel
	Timeout time.Duration

	state HandshakeState
	now   func() time.Time
}

// NewHandshake creates a Handshake with the default timeout.
func NewHandshake(ch Channel) *Handshake {
	return &Handshake{Channel: ch, Timeout: DefaultAckTimeout, now: time.Now}
}

// State returns where the last Attempt got to.
func (h *Handshake) State() HandshakeState {
	return h.state
}

// Attempt transmits msg and awaits the acknowledgement.
//
// A timeout, an A,B,FAIL reply, or too much garbage all result in Retry
// with a nil error. Any other channel failure aborts the attempt with a
// *ReadError or *WriteError; the caller decides when to try again.
func (h *Handshake) Attempt(msg []byte) (Disposition, error) {
	h.state = StateSend
	if _, err := h.Channel.Write(msg); err != nil {
		h.state = StateDone
		return Retry, &WriteError{Err: err}
	}
	h.state = StateAwaitAck
	d, err := h.await()
	h.state = StateDone
	return d, err
}

func (h *Handshake) await() (Disposition, error) {
	now := h.now
	if now == nil {
		now = time.Now
	}
	timeout := h.Timeout
	if timeout <= 0 {
		timeout = DefaultAckTimeout
	}
	deadline := now().Add(timeout)
	var scanner ackScanner
	for {
		remaining := deadline.Sub(now())
		if remaining <= 0 {
			glog.Info("ack timeout, nothing recognized")
			return Retry, nil
		}
		p, err := h.Channel.Receive(remaining)
		if errors.Is(err, ErrTimeout) {
			glog.Info("ack timeout, nothing recognized")
			return Retry, nil
		}
		if err != nil {
			return Retry, &ReadError{Err: err}
		}
		d, found, err := scanner.feed(p)
		if err != nil {
			glog.Warningf("ack: %v", err)
			return Retry, nil
		}
		if found {
			glog.V(1).Infof("ack: %s", d)
			return d, nil
		}
	}
}
