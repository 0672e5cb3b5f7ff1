package link

import (
	"errors"
	"fmt"
)

var (
	// ErrTimeout indicates no complete line arrived in time.
	ErrTimeout = errors.New("timeout")
	// ErrClosed indicates the channel has been closed.
	ErrClosed = errors.New("channel closed")
	// ErrMessageTooLong indicates a message line would exceed MaxMessageLen.
	ErrMessageTooLong = errors.New("message too long")
	// ErrAckOverflow indicates the peer sent more than AckBufferSize bytes
	// without an acknowledgement token.
	ErrAckOverflow = errors.New("acknowledgement buffer overflow")
)

// ReadError wraps a failure reading from the channel, other than a timeout.
type ReadError struct {
	Err error
}

// Error implements error.
func (e *ReadError) Error() string {
	return fmt.Sprintf("channel read error: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *ReadError) Unwrap() error {
	return e.Err
}

// WriteError wraps a failure transmitting a message.
type WriteError struct {
	Err error
}

// Error implements error.
func (e *WriteError) Error() string {
	return fmt.Sprintf("channel write error: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *WriteError) Unwrap() error {
	return e.Err
}
