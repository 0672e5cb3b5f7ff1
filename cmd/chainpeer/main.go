package main

//go-build: CGO_ENABLED=0

import (
	"context"
	"flag"
	"net/http"
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/telechain/pkg/cli/sh"
	"github.com/robotalks/telechain/pkg/env"
	fx "github.com/robotalks/telechain/pkg/framework"
	"github.com/robotalks/telechain/pkg/link"
	"github.com/robotalks/telechain/pkg/link/serial"
	"github.com/robotalks/telechain/pkg/link/websocket"
	"github.com/robotalks/telechain/pkg/peer"
	"github.com/robotalks/telechain/pkg/relay"
	"github.com/robotalks/telechain/pkg/relay/mqtt"
)

var (
	autoReply bool
	watch     bool
)

func init() {
	env.SetupFlags()
	flag.BoolVar(&autoReply, "auto", autoReply, "Answer automatically without a shell.")
	flag.BoolVar(&watch, "watch", watch, "Print records relayed through the MQTT broker.")
}

// session is a websocket connection held open until closed by the peer.
type session struct {
	link.Channel
	done chan struct{}
	once sync.Once
}

func (s *session) Close() error {
	s.once.Do(func() { close(s.done) })
	return s.Channel.Close()
}

func listen(addr string) link.Channel {
	accepted := make(chan link.Channel)
	handler := websocket.Handler(func(ch link.Channel) {
		s := &session{Channel: ch, done: make(chan struct{})}
		select {
		case accepted <- s:
			<-s.done
		default:
			glog.Warning("rejected connection, already serving a device")
		}
	})
	go func() {
		glog.Exit(http.ListenAndServe(addr, handler))
	}()
	glog.Infof("waiting for a device on %s", addr)
	return <-accepted
}

func open(conf *env.Config) link.Channel {
	if conf.Listen != "" {
		return listen(conf.Listen)
	}
	ch, err := serial.Open(conf.Serial())
	if err != nil {
		glog.Exit(err)
	}
	return ch
}

func watchRecords(conf *env.Config) error {
	q, err := conf.Queue()
	if err != nil {
		return err
	}
	mqtt.Watch(q, func(r relay.Record) {
		glog.Infof("%s: %s in range %v %v", r.Device, r.Reading.Payload(), r.InRange, r.Digests)
	})
	return fx.NewRunner().
		HandleSignals().
		Go(fx.RunFunc(func(ctx context.Context) error {
			q.Connect()
			<-ctx.Done()
			q.Close()
			return ctx.Err()
		})).
		Wait()
}

func main() {
	conf, err := env.Load()
	if err != nil {
		glog.Exit(err)
	}
	defer glog.Flush()

	if watch {
		if err := watchRecords(conf); err != nil {
			glog.Exit(err)
		}
		return
	}

	ch := open(conf)
	defer ch.Close()

	if autoReply {
		resp := peer.NewResponder(ch)
		resp.OnReply = func(v peer.Verdict, token string) {
			glog.Infof("%s: %s", token, v.Reason)
		}
		if err := fx.NewRunner().HandleSignals().Go(fx.RunFunc(resp.Serve)).Wait(); err != nil {
			glog.Exit(err)
		}
		return
	}

	if err := sh.New(ch).Run(flag.Args()...); err != nil {
		glog.Exit(err)
	}
}
