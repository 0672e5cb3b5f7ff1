package sh

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/telechain/pkg/chain"
	"github.com/robotalks/telechain/pkg/link"
	"github.com/robotalks/telechain/pkg/peer"
)

func devicePair(t *testing.T) (device link.Channel, s *Shell) {
	devConn, peerConn := net.Pipe()
	device = link.NewStreamChannel(devConn)
	peerCh := link.NewStreamChannel(peerConn)
	t.Cleanup(func() {
		device.Close()
		peerCh.Close()
	})
	s = New(peerCh)
	s.Responder.PollInterval = 20 * time.Millisecond
	return
}

func send(t *testing.T, device link.Channel, state *chain.State, r chain.Reading) string {
	state.Extend(r)
	msg, err := link.Encode(r, &state.Buffer)
	require.NoError(t, err)
	_, err = device.Write(msg.Bytes())
	require.NoError(t, err)
	return msg.String()
}

func TestManualReply(t *testing.T) {
	device, s := devicePair(t)
	require.Error(t, s.Reply(link.TokenOK))

	var state chain.State
	r := chain.Reading{Timestamp: 1700000000, Temperature: 21, Humidity: 40}
	send(t, device, &state, r)
	v, err := s.Recv(time.Second)
	require.NoError(t, err)
	require.Equal(t, link.TokenOK, v.Reply)
	require.Equal(t, r, v.Message.Reading)

	require.NoError(t, s.Reply(link.TokenSync))
	line, err := device.ReadLine(time.Second)
	require.NoError(t, err)
	require.Equal(t, link.TokenSync, string(line))
	require.Nil(t, s.Responder.Verifier.Last())
}

func TestRecvTimeout(t *testing.T) {
	_, s := devicePair(t)
	_, err := s.Recv(10 * time.Millisecond)
	require.ErrorIs(t, err, link.ErrTimeout)
}

func TestAuto(t *testing.T) {
	device, s := devicePair(t)
	replies := make(chan string, 1)
	require.NoError(t, s.StartAuto(func(_ peer.Verdict, token string) { replies <- token }))
	require.Error(t, s.StartAuto(nil))

	var state chain.State
	send(t, device, &state, chain.Reading{Timestamp: 1700000000, Temperature: 21, Humidity: 40})
	line, err := device.ReadLine(time.Second)
	require.NoError(t, err)
	require.Equal(t, link.TokenOK, string(line))
	require.Equal(t, link.TokenOK, <-replies)

	require.NoError(t, s.StopAuto())
	require.NoError(t, s.StopAuto())
	newest, _ := state.Buffer.Newest()
	require.Equal(t, newest, s.Responder.Verifier.Last().Newest())

	// the channel stays open for manual replies
	r := chain.Reading{Timestamp: 1700000010, Temperature: 21.5, Humidity: 41}
	send(t, device, &state, r)
	v, err := s.Recv(time.Second)
	require.NoError(t, err)
	require.Equal(t, link.TokenOK, v.Reply)
	require.Equal(t, r, v.Message.Reading)
	require.Empty(t, replies)

	require.NoError(t, s.StartAuto(nil))
	require.NoError(t, s.StopAuto())
}

func TestFormat(t *testing.T) {
	d := chain.Sum("x")
	m := &peer.Message{
		Reading: chain.Reading{Timestamp: 0, Temperature: -1.5, Humidity: 20},
		Digests: []chain.Digest{chain.Seed, d},
	}
	require.Equal(t, "1970-01-01T00:00:00Z -1.500°C 20.00% newest "+d.String(), FormatMessage(m))
	require.Equal(t, MessageJSON{
		Temperature: -1.5,
		Humidity:    20,
		Digests:     []string{chain.Seed.String(), d.String()},
	}, FormatJSON(m))
}
