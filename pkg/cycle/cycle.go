// Package cycle runs the sampling cycles of a chained sensor device.
//
// One cycle reads the sensor, extends the digest chain, encodes the
// message and repeats the handshake with the peer until the peer either
// accepts the message or asks for a new chain.
package cycle

import (
	"context"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/telechain/pkg/chain"
	"github.com/robotalks/telechain/pkg/clock"
	"github.com/robotalks/telechain/pkg/framework"
	"github.com/robotalks/telechain/pkg/link"
	"github.com/robotalks/telechain/pkg/relay"
	"github.com/robotalks/telechain/pkg/sensor"
)

// Defaults.
const (
	DefaultBackoff  = 5 * time.Second
	DefaultInterval = 10 * time.Second
)

// Store persists the chain state between cycles.
type Store interface {
	Save(*chain.State) error
}

// Outcome describes a completed cycle.
type Outcome struct {
	Reading     chain.Reading
	Digest      chain.Digest
	Message     string
	Disposition link.Disposition
	// Attempts counts transmissions of the message.
	Attempts int
	InRange  bool
	// SuspendOK tells whether the device could enter a low-power state.
	SuspendOK bool
}

// Orchestrator owns the chain state and drives the cycles.
type Orchestrator struct {
	Dialer     link.Dialer
	Sensor     sensor.Sensor
	Clock      clock.Source
	Syncer     clock.Syncer
	Store      Store
	Publisher  relay.Publisher
	Device     string
	Band       sensor.Band
	MinYear    int
	AckTimeout time.Duration
	Backoff    time.Duration
	Interval   time.Duration

	State chain.State

	channel link.Channel
	last    sensor.Sample
	sleep   func(context.Context, time.Duration) error
}

// New creates an Orchestrator with defaults.
func New(dialer link.Dialer, s sensor.Sensor) *Orchestrator {
	return &Orchestrator{
		Dialer:     dialer,
		Sensor:     s,
		Clock:      clock.System,
		Publisher:  relay.Discard,
		Band:       sensor.DefaultBand,
		MinYear:    clock.DefaultMinYear,
		AckTimeout: link.DefaultAckTimeout,
		Backoff:    DefaultBackoff,
		Interval:   DefaultInterval,
	}
}

// Run implements framework.Runnable. Cycles repeat until ctx is done.
func (o *Orchestrator) Run(ctx context.Context) error {
	defer o.closeChannel()
	for {
		out, err := o.RunCycle(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			glog.Errorf("cycle: %v", err)
		} else {
			glog.Infof("cycle done: %s after %d attempt(s), in range %v",
				out.Disposition, out.Attempts, out.InRange)
		}
		glog.Infof("next cycle in %s", o.Interval)
		if err := o.doSleep(ctx, o.Interval); err != nil {
			return err
		}
	}
}

// RunCycle runs one cycle to completion. It only returns an error when
// the message can't be encoded or ctx is done.
func (o *Orchestrator) RunCycle(ctx context.Context) (out Outcome, err error) {
	sample := o.readSensor()
	out.InRange = o.Band.Contains(sample.Temperature)
	if !out.InRange {
		glog.Warningf("temperature %.3f out of %s", sample.Temperature, o.Band)
	}
	out.SuspendOK = out.InRange

	out.Reading = chain.Reading{
		Timestamp:   o.now(ctx).Unix(),
		Temperature: sample.Temperature,
		Humidity:    sample.Humidity,
	}
	// the chain only advances once the message is known to fit
	next := o.State
	digest := next.Extend(out.Reading)
	msg, err := link.Encode(out.Reading, &next.Buffer)
	if err != nil {
		return out, err
	}
	out.Digest = digest
	o.State = next
	o.save()

	out.Message = msg.String()
	digests := o.State.Buffer.Snapshot()

	data := msg.Bytes()
	for {
		if err = ctx.Err(); err != nil {
			return out, err
		}
		out.Attempts++
		out.Disposition, err = o.attempt(ctx, data)
		if err != nil {
			glog.Errorf("attempt %d: %v", out.Attempts, err)
			o.closeChannel()
			if err = o.doSleep(ctx, o.Backoff); err != nil {
				return out, err
			}
			continue
		}
		if out.Disposition != link.Retry {
			break
		}
		glog.Warningf("attempt %d: no acknowledgement, sending again", out.Attempts)
	}

	switch out.Disposition {
	case link.Resync:
		glog.Info("peer requested a new chain")
		o.State.Resync()
	case link.Advance:
		o.publish(ctx, relay.Record{
			Device:  o.Device,
			Reading: out.Reading,
			Digests: digests,
			InRange: out.InRange,
		})
	}
	o.save()
	return out, nil
}

func (o *Orchestrator) attempt(ctx context.Context, data []byte) (link.Disposition, error) {
	if o.channel == nil {
		ch, err := o.Dialer.Dial()
		if err != nil {
			return link.Retry, err
		}
		o.channel = ch
	}
	h := link.NewHandshake(o.channel)
	if o.AckTimeout > 0 {
		h.Timeout = o.AckTimeout
	}
	return h.Attempt(data)
}

func (o *Orchestrator) readSensor() sensor.Sample {
	s, err := o.Sensor.Read()
	if err != nil {
		glog.Errorf("sensor: %v, reporting previous values", err)
		return o.last
	}
	o.last = s
	return s
}

func (o *Orchestrator) now(ctx context.Context) time.Time {
	src := o.Clock
	if src == nil {
		src = clock.System
	}
	t := src.Now()
	if clock.IsPlausible(t, o.MinYear) || o.Syncer == nil {
		return t
	}
	glog.Warningf("implausible time %s, synchronizing", t.UTC().Format(time.RFC3339))
	if err := o.Syncer.Sync(ctx); err != nil {
		glog.Errorf("time sync: %v", err)
	}
	return src.Now()
}

func (o *Orchestrator) publish(ctx context.Context, r relay.Record) {
	if o.Publisher == nil {
		return
	}
	if err := o.Publisher.Publish(ctx, r); err != nil {
		glog.Warningf("publish: %v", err)
	}
}

func (o *Orchestrator) save() {
	if o.Store == nil {
		return
	}
	if err := o.Store.Save(&o.State); err != nil {
		glog.Errorf("save state: %v", err)
	}
}

func (o *Orchestrator) closeChannel() {
	if o.channel != nil {
		o.channel.Close()
		o.channel = nil
	}
}

func (o *Orchestrator) doSleep(ctx context.Context, d time.Duration) error {
	if o.sleep != nil {
		return o.sleep(ctx, d)
	}
	return framework.Sleep(ctx, d)
}
