package chain

import (
	"github.com/golang/glog"
)

// State is the chain carried from one cycle to the next. It's owned by a
// single orchestrator and passed explicitly. The zero value is a chain
// that hasn't started.
type State struct {
	Buffer  RingBuffer
	Started bool
}

// Extend hashes r into the chain and returns its digest.
//
// A chain that hasn't started is seeded first, so the buffer always ends
// up holding two digests: the previous one (or Seed) and d.
func (s *State) Extend(r Reading) Digest {
	d := Sum(r.Payload())
	if !s.Started {
		s.push(Seed)
		s.push(d)
		s.Started = true
		return d
	}
	if err := s.Buffer.PopOldest(); err != nil {
		glog.Warningf("chain: drop oldest digest: %v", err)
	}
	s.push(d)
	return d
}

// Resync discards the chain; the next Extend starts a new one.
func (s *State) Resync() {
	s.Buffer.Reset()
	s.Started = false
}

func (s *State) push(d Digest) {
	if err := s.Buffer.Push(d); err != nil {
		glog.Warningf("chain: push digest %s: %v", d, err)
	}
}

// MarshalBinary encodes the state as the started flag, the number of live
// digests, then the digests oldest first.
func (s *State) MarshalBinary() ([]byte, error) {
	n := s.Buffer.Len()
	data := make([]byte, 2, 2+n*DigestSize)
	if s.Started {
		data[0] = 1
	}
	data[1] = byte(n)
	for d := range s.Buffer.Digests() {
		data = append(data, d[:]...)
	}
	return data, nil
}

// UnmarshalBinary restores a state encoded by MarshalBinary.
func (s *State) UnmarshalBinary(data []byte) error {
	if len(data) < 2 || data[0] > 1 {
		return ErrInvalidState
	}
	n := int(data[1])
	if n > Capacity || len(data) != 2+n*DigestSize {
		return ErrInvalidState
	}
	var restored State
	restored.Started = data[0] == 1
	for i := 0; i < n; i++ {
		var d Digest
		copy(d[:], data[2+i*DigestSize:])
		if err := restored.Buffer.Push(d); err != nil {
			return err
		}
	}
	*s = restored
	return nil
}
