// Package peer implements the receiving end of the digest link.
package peer

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/robotalks/telechain/pkg/chain"
	"github.com/robotalks/telechain/pkg/link"
)

// ErrNotMessage indicates a line without the message header.
var ErrNotMessage = errors.New("not a message line")

// Message is a decoded message line.
type Message struct {
	// Payload is the reading exactly as transmitted.
	Payload string
	Reading chain.Reading
	Digests []chain.Digest
}

// Newest returns the last digest of the message.
func (m *Message) Newest() chain.Digest {
	return m.Digests[len(m.Digests)-1]
}

// Decode parses a message line, with or without its terminator.
func Decode(line string) (*Message, error) {
	line = strings.TrimRight(line, "\r\n")
	rest, ok := strings.CutPrefix(line, link.MessageHeader)
	if !ok {
		return nil, ErrNotMessage
	}
	fields := strings.Split(rest, link.FieldSeparator)
	m := &Message{Payload: fields[0]}
	r, err := parsePayload(m.Payload)
	if err != nil {
		return nil, err
	}
	m.Reading = r
	if len(fields) < 2 {
		return nil, fmt.Errorf("no digests")
	}
	for n, s := range fields[1:] {
		d, err := chain.ParseDigest(s)
		if err != nil {
			return nil, fmt.Errorf("digest %d: %w", n, err)
		}
		m.Digests = append(m.Digests, d)
	}
	return m, nil
}

func parsePayload(payload string) (r chain.Reading, err error) {
	parts := strings.Split(payload, ",")
	if len(parts) != 3 {
		return r, fmt.Errorf("malformed payload %q", payload)
	}
	ts, ok := strings.CutPrefix(parts[0], "UTC:")
	if !ok {
		return r, fmt.Errorf("missing UTC in %q", payload)
	}
	if r.Timestamp, err = strconv.ParseInt(ts, 10, 64); err != nil {
		return r, fmt.Errorf("UTC: %w", err)
	}
	temp, ok := cutAffixes(parts[1], "TEMP:", "degC")
	if !ok {
		return r, fmt.Errorf("missing TEMP in %q", payload)
	}
	if r.Temperature, err = strconv.ParseFloat(temp, 64); err != nil {
		return r, fmt.Errorf("TEMP: %w", err)
	}
	hum, ok := cutAffixes(parts[2], "HUM:", "%")
	if !ok {
		return r, fmt.Errorf("missing HUM in %q", payload)
	}
	if r.Humidity, err = strconv.ParseFloat(hum, 64); err != nil {
		return r, fmt.Errorf("HUM: %w", err)
	}
	return r, nil
}

func cutAffixes(s, prefix, suffix string) (string, bool) {
	s, ok := strings.CutPrefix(s, prefix)
	if !ok {
		return "", false
	}
	return strings.CutSuffix(s, suffix)
}
