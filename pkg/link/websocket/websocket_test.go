package websocket

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/telechain/pkg/link"
)

func TestDialHandler(t *testing.T) {
	received := make(chan string, 1)
	srv := httptest.NewServer(Handler(func(ch link.Channel) {
		line, err := ch.ReadLine(time.Second)
		if err != nil {
			received <- err.Error()
			return
		}
		received <- string(line)
		ch.Write([]byte("a,b,ok\n"))
		// keep the connection until the device has read the reply
		ch.ReadLine(time.Second)
	}))
	defer srv.Close()

	ch, err := Dialer{URL: "ws" + strings.TrimPrefix(srv.URL, "http")}.Dial()
	require.NoError(t, err)
	defer ch.Close()

	h := link.NewHandshake(ch)
	h.Timeout = time.Second
	d, err := h.Attempt([]byte("A, B, UTC:1,TEMP:+1.000degC,HUM:1.00%\n"))
	require.NoError(t, err)
	require.Equal(t, link.Advance, d)
	require.Equal(t, "A, B, UTC:1,TEMP:+1.000degC,HUM:1.00%", <-received)
}

func TestDialRefused(t *testing.T) {
	_, err := Dialer{URL: "ws://127.0.0.1:1/peer"}.Dial()
	require.Error(t, err)
}
