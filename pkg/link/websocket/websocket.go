// Package websocket provides a link.Channel over a websocket connection,
// for a peer that isn't wired to the device's UART.
package websocket

import (
	"github.com/pkg/errors"
	"golang.org/x/net/websocket"

	"github.com/robotalks/telechain/pkg/link"
)

// New wraps a websocket.Conn as a channel.
func New(conn *websocket.Conn) *link.StreamChannel {
	conn.PayloadType = websocket.TextFrame
	return link.NewStreamChannel(conn)
}

// Dialer connects to a peer listening on URL.
type Dialer struct {
	URL    string
	Origin string
}

// Dial implements link.Dialer.
func (d Dialer) Dial() (link.Channel, error) {
	origin := d.Origin
	if origin == "" {
		origin = "http://localhost/"
	}
	conn, err := websocket.Dial(d.URL, "", origin)
	if err != nil {
		return nil, errors.Wrapf(err, "dial %s", d.URL)
	}
	return New(conn), nil
}

// Handler serves each incoming connection as a channel. The connection
// is closed when fn returns.
func Handler(fn func(link.Channel)) websocket.Handler {
	return func(conn *websocket.Conn) {
		ch := New(conn)
		defer ch.Close()
		fn(ch)
	}
}
