package mqtt

import (
	"context"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/robotalks/telechain/pkg/relay"
)

// RecordsTopic is the topic suffix records are published to, under the
// device id.
const RecordsTopic = "chain"

// DefaultPublishTimeout bounds waiting for the broker to acknowledge.
const DefaultPublishTimeout = 5 * time.Second

// Publisher implements relay.Publisher, publishing to
// <prefix><device>/chain.
type Publisher struct {
	Queue   *Queue
	Timeout time.Duration
}

// NewPublisher creates a Publisher for the broker URL.
func NewPublisher(brokerURL, device string) (*Publisher, error) {
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid MQTT URL %q", brokerURL)
	}
	if opts.ClientID == "" {
		opts.SetClientID("telechain:" + device)
	}
	return &Publisher{Queue: NewQueue(opts, topicPrefix), Timeout: DefaultPublishTimeout}, nil
}

// Topic returns the records topic of a device, without prefix.
func Topic(device string) string {
	return device + "/" + RecordsTopic
}

// Publish implements relay.Publisher.
func (p *Publisher) Publish(ctx context.Context, r relay.Record) error {
	payload, err := relay.Encode(r)
	if err != nil {
		return err
	}
	token := p.Queue.Pub(Topic(r.Device), payload)
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultPublishTimeout
	}
	if !token.WaitTimeout(timeout) {
		return context.DeadlineExceeded
	}
	return token.Error()
}

// Run implements framework.Runnable, keeping the broker connection open
// until ctx is done.
func (p *Publisher) Run(ctx context.Context) error {
	token := p.Queue.Connect()
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			glog.Warningf("mqtt connect: %v", err)
		}
		<-ctx.Done()
	case <-ctx.Done():
	}
	p.Queue.Close()
	return ctx.Err()
}

// Watch subscribes to the records of all devices.
func Watch(q *Queue, fn func(relay.Record)) paho.Token {
	return q.Sub("+/"+RecordsTopic, func(topic string, payload []byte) {
		r, err := relay.Decode(payload)
		if err != nil {
			glog.Warningf("%s: bad record: %v", topic, err)
			return
		}
		fn(r)
	})
}
