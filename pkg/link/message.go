package link

import (
	"strings"

	"github.com/robotalks/telechain/pkg/chain"
)

// MaxMessageLen bounds a message line, excluding the newline.
const MaxMessageLen = 256

const (
	// MessageHeader starts every message line.
	MessageHeader = "A, B, "
	// FieldSeparator separates the payload and the digests.
	FieldSeparator = ", "

	hexDigestLen = chain.DigestSize * 2
)

// Message is a message line under construction: one reading followed by
// the digests of the chain.
type Message struct {
	Reading chain.Reading
	Digests []chain.Digest
}

// NewMessage starts a message for r.
func NewMessage(r chain.Reading) *Message {
	return &Message{Reading: r}
}

// Encode builds the message for r carrying the live digests of buf,
// oldest first.
func Encode(r chain.Reading, buf *chain.RingBuffer) (*Message, error) {
	m := NewMessage(r)
	for d := range buf.Digests() {
		if err := m.AddDigest(d); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Len returns the length of the encoded line.
func (m *Message) Len() int {
	return len(MessageHeader) + len(m.Reading.Payload()) + len(m.Digests)*(len(FieldSeparator)+hexDigestLen)
}

// AddDigest appends d. It fails with ErrMessageTooLong if the line would
// exceed MaxMessageLen.
func (m *Message) AddDigest(d chain.Digest) error {
	if m.Len()+len(FieldSeparator)+hexDigestLen > MaxMessageLen {
		return ErrMessageTooLong
	}
	m.Digests = append(m.Digests, d)
	return nil
}

// String returns the encoded line without the newline.
func (m *Message) String() string {
	var sb strings.Builder
	sb.Grow(MaxMessageLen)
	sb.WriteString(MessageHeader)
	sb.WriteString(m.Reading.Payload())
	for _, d := range m.Digests {
		sb.WriteString(FieldSeparator)
		sb.WriteString(d.String())
	}
	return sb.String()
}

// Bytes returns the newline terminated line, ready for transmission.
func (m *Message) Bytes() []byte {
	return []byte(m.String() + "\n")
}
