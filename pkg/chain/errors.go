package chain

import "errors"

var (
	// ErrBufferFull indicates a push into a RingBuffer holding Capacity digests.
	ErrBufferFull = errors.New("buffer full")
	// ErrBufferEmpty indicates a pop from an empty RingBuffer.
	ErrBufferEmpty = errors.New("buffer empty")
	// ErrInvalidDigest indicates a malformed hex digest.
	ErrInvalidDigest = errors.New("invalid digest")
	// ErrInvalidState indicates retained state that can't be decoded.
	ErrInvalidState = errors.New("invalid chain state")
)
