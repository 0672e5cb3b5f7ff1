package peer

import (
	"github.com/golang/glog"

	"github.com/robotalks/telechain/pkg/chain"
	"github.com/robotalks/telechain/pkg/link"
)

// Verdict is the reply decided for a message line.
type Verdict struct {
	// Reply is one of the link acknowledgement tokens.
	Reply   string
	Reason  string
	Message *Message
}

// Verifier follows the chain of one device.
type Verifier struct {
	last *Message
}

// Last returns the last accepted message, or nil.
func (v *Verifier) Last() *Message {
	return v.last
}

// Check decides how to reply to line without changing the verifier:
//
//   - A,B,FAIL when the line doesn't decode or its newest digest doesn't
//     match its payload, so the device sends it again;
//   - A,B,OK when the message starts a new chain, continues the last
//     accepted one, or repeats it because our reply got lost;
//   - A,B,SYNC otherwise.
func (v *Verifier) Check(line string) Verdict {
	m, err := Decode(line)
	if err != nil {
		return Verdict{Reply: link.TokenFail, Reason: err.Error()}
	}
	verdict := Verdict{Message: m}
	switch {
	case m.Newest() != chain.Sum(m.Payload):
		verdict.Reply, verdict.Reason = link.TokenFail, "digest doesn't match payload"
	case len(m.Digests) < 2:
		verdict.Reply, verdict.Reason = link.TokenSync, "no previous digest"
	case m.Digests[0] == chain.Seed:
		verdict.Reply, verdict.Reason = link.TokenOK, "new chain"
	case v.last == nil:
		verdict.Reply, verdict.Reason = link.TokenSync, "unknown chain"
	case m.Digests[0] == v.last.Newest():
		verdict.Reply, verdict.Reason = link.TokenOK, "chain continues"
	case m.Newest() == v.last.Newest():
		verdict.Reply, verdict.Reason = link.TokenOK, "repeated"
	default:
		verdict.Reply, verdict.Reason = link.TokenSync, "chain broken"
	}
	return verdict
}

// Accept makes m the last message of the chain.
func (v *Verifier) Accept(m *Message) {
	v.last = m
}

// Forget drops the chain, as after requesting a resync.
func (v *Verifier) Forget() {
	v.last = nil
}

// Apply records the effect of replying with token for m.
func (v *Verifier) Apply(token string, m *Message) {
	switch token {
	case link.TokenOK:
		if m != nil {
			v.Accept(m)
		}
	case link.TokenSync:
		v.Forget()
	}
	glog.V(1).Infof("replied %s", token)
}
