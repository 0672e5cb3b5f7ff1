package peer

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang/glog"

	fx "github.com/robotalks/telechain/pkg/framework"
	"github.com/robotalks/telechain/pkg/link"
)

// DefaultPollInterval is how often a waiting Responder checks for
// cancellation.
const DefaultPollInterval = time.Second

// Responder replies to every message on a channel with the Verifier's verdict.
type Responder struct {
	Channel  link.Channel
	Verifier *Verifier
	// Decide may override the verdict, e.g. to ask an operator.
	Decide func(Verdict) string
	// OnReply is called after each reply.
	OnReply      func(Verdict, string)
	PollInterval time.Duration
}

// NewResponder creates a Responder with a fresh Verifier.
func NewResponder(ch link.Channel) *Responder {
	return &Responder{Channel: ch, Verifier: &Verifier{}, PollInterval: DefaultPollInterval}
}

// Next waits up to timeout for a message line and returns its verdict.
// Lines not starting with the message header are skipped.
func (r *Responder) Next(timeout time.Duration) (Verdict, error) {
	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return Verdict{}, link.ErrTimeout
		}
		line, err := r.Channel.ReadLine(remaining)
		if err != nil {
			return Verdict{}, err
		}
		if !strings.HasPrefix(string(line), link.MessageHeader) {
			glog.V(2).Infof("skipped %q", line)
			continue
		}
		return r.Verifier.Check(string(line)), nil
	}
}

// Reply sends token in response to verdict and updates the chain.
func (r *Responder) Reply(v Verdict, token string) error {
	if _, err := r.Channel.Write([]byte(token + "\n")); err != nil {
		return err
	}
	r.Verifier.Apply(token, v.Message)
	if fn := r.OnReply; fn != nil {
		fn(v, token)
	}
	return nil
}

// Run answers messages until ctx is done or the channel fails.
func (r *Responder) Run(ctx context.Context) error {
	poll := r.PollInterval
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		v, err := r.Next(poll)
		if errors.Is(err, link.ErrTimeout) {
			continue
		}
		if err != nil {
			return err
		}
		token := v.Reply
		if fn := r.Decide; fn != nil {
			token = fn(v)
		}
		glog.Infof("%s: %s", token, v.Reason)
		if err = r.Reply(v, token); err != nil {
			return err
		}
	}
}

// Serve is Run for a Responder owning its channel: the channel is closed
// as soon as ctx is done, so a pending read returns without waiting for
// the poll interval.
func (r *Responder) Serve(ctx context.Context) error {
	return fx.RunWithContextCloser(ctx, r.Channel, func() error {
		return r.Run(ctx)
	})
}
