// Package sh provides the interactive console of a chain peer.
package sh

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"strconv"
	"time"

	"github.com/abiosoft/ishell"

	fx "github.com/robotalks/telechain/pkg/framework"
	"github.com/robotalks/telechain/pkg/link"
	"github.com/robotalks/telechain/pkg/link/serial"
	"github.com/robotalks/telechain/pkg/peer"
)

// DefaultRecvTimeout is how long recv waits for a message.
const DefaultRecvTimeout = 10 * time.Second

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool

	Shell     *ishell.Shell
	Responder *peer.Responder

	pending *peer.Verdict
	auto    *fx.Runner
}

const (
	shellKey   = "$shell"
	idlePrompt = "peer > "
	autoPrompt = "peer [auto] > "
)

var (
	// flags

	evalOnly   bool
	outputJSON bool

	// commands
	commands = []*ishell.Cmd{
		&RecvCmd,
		&OKCmd,
		&FailCmd,
		&SyncCmd,
		&AutoCmd,
		&StopCmd,
		&LastCmd,
		&PortsCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
}

// AddCmds adds more commands, before New is called.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell answering messages on ch.
func New(ch link.Channel) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,

		Shell:     ishell.New(),
		Responder: peer.NewResponder(ch),
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(idlePrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// MustBeManual wraps command func not allowed while answering automatically.
func MustBeManual(fn func(c *ishell.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if ShellFrom(c).auto != nil {
			c.Err(fmt.Errorf("answering automatically, stop first"))
			return
		}
		fn(c)
	}
}

// Recv waits for the next message and keeps its verdict pending.
func (s *Shell) Recv(timeout time.Duration) (peer.Verdict, error) {
	v, err := s.Responder.Next(timeout)
	if err != nil {
		return v, err
	}
	s.pending = &v
	return v, nil
}

// Reply answers the pending message with token.
func (s *Shell) Reply(token string) error {
	if s.pending == nil {
		return errors.New("no message received")
	}
	if err := s.Responder.Reply(*s.pending, token); err != nil {
		return err
	}
	s.pending = nil
	return nil
}

// StartAuto answers every message with the verifier's verdict until
// StopAuto.
func (s *Shell) StartAuto(onReply func(peer.Verdict, string)) error {
	if s.auto != nil {
		return errors.New("already answering automatically")
	}
	s.pending = nil
	s.Responder.OnReply = onReply
	s.auto = fx.NewRunner().Go(fx.NamedRun("auto", s.Responder))
	s.Shell.SetPrompt(autoPrompt)
	return nil
}

// StopAuto stops answering automatically.
func (s *Shell) StopAuto() error {
	if s.auto == nil {
		return nil
	}
	s.auto.Stop()
	err := s.auto.Wait()
	s.auto = nil
	s.Responder.OnReply = nil
	s.Shell.SetPrompt(idlePrompt)
	return err
}

func (s *Shell) print(c *ishell.Context, m *peer.Message) {
	if s.OutputJSON {
		out, err := json.Marshal(FormatJSON(m))
		if err != nil {
			c.Err(err)
			return
		}
		c.Println(string(out))
		return
	}
	c.Println(FormatMessage(m))
}

// MessageJSON is the JSON form of a message.
type MessageJSON struct {
	Timestamp   int64    `json:"timestamp"`
	Temperature float64  `json:"temperature"`
	Humidity    float64  `json:"humidity"`
	Digests     []string `json:"digests"`
}

// FormatJSON converts a message for JSON output.
func FormatJSON(m *peer.Message) MessageJSON {
	out := MessageJSON{
		Timestamp:   m.Reading.Timestamp,
		Temperature: m.Reading.Temperature,
		Humidity:    m.Reading.Humidity,
		Digests:     make([]string, len(m.Digests)),
	}
	for n, d := range m.Digests {
		out.Digests[n] = d.String()
	}
	return out
}

// FormatMessage prints a message for display.
func FormatMessage(m *peer.Message) string {
	t := time.Unix(m.Reading.Timestamp, 0).UTC().Format(time.RFC3339)
	return fmt.Sprintf("%s %.3f°C %.2f%% newest %s", t,
		m.Reading.Temperature, m.Reading.Humidity, m.Newest())
}

// Run runs the shell.
func (s *Shell) Run(args ...string) error {
	defer s.StopAuto()
	if len(args) > 0 {
		return s.Shell.Process(args...)
	}
	if s.Interactive {
		s.Shell.Run()
		return nil
	}
	return errors.New("command expected")
}

func replyCmd(name, token string) ishell.Cmd {
	return ishell.Cmd{
		Name: name,
		Help: "reply " + token + " to the received message",
		Func: MustBeManual(func(c *ishell.Context) {
			if err := ShellFrom(c).Reply(token); err != nil {
				c.Err(err)
				return
			}
			c.Println(token)
		}),
	}
}

var (
	// RecvCmd waits for a message.
	RecvCmd = ishell.Cmd{
		Name:    "recv",
		Aliases: []string{"r"},
		Help:    "[SECONDS]",
		Func: MustBeManual(func(c *ishell.Context) {
			timeout := DefaultRecvTimeout
			if len(c.Args) > 0 {
				secs, err := strconv.ParseFloat(c.Args[0], 64)
				if err != nil {
					c.Err(err)
					return
				}
				timeout = time.Duration(secs * float64(time.Second))
			}
			s := ShellFrom(c)
			v, err := s.Recv(timeout)
			if errors.Is(err, link.ErrTimeout) {
				c.Println("No message")
				return
			}
			if err != nil {
				c.Err(err)
				return
			}
			if v.Message != nil {
				s.print(c, v.Message)
			}
			c.Printf("suggested %s: %s\n", v.Reply, v.Reason)
		}),
	}

	// OKCmd accepts the received message.
	OKCmd = replyCmd("ok", link.TokenOK)
	// FailCmd asks for the received message again.
	FailCmd = replyCmd("fail", link.TokenFail)
	// SyncCmd asks for a new chain.
	SyncCmd = replyCmd("sync", link.TokenSync)

	// AutoCmd answers automatically.
	AutoCmd = ishell.Cmd{
		Name: "auto",
		Help: "answer every message with the suggested reply",
		Func: func(c *ishell.Context) {
			err := ShellFrom(c).StartAuto(func(v peer.Verdict, token string) {
				c.Printf("%s: %s\n", token, v.Reason)
			})
			if err != nil {
				c.Err(err)
			}
		},
	}

	// StopCmd stops answering automatically.
	StopCmd = ishell.Cmd{
		Name: "stop",
		Help: "stop answering automatically",
		Func: func(c *ishell.Context) {
			if err := ShellFrom(c).StopAuto(); err != nil {
				c.Err(err)
			}
		},
	}

	// LastCmd shows the last accepted message.
	LastCmd = ishell.Cmd{
		Name:    "last",
		Aliases: []string{"l"},
		Help:    "show the last accepted message",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			m := s.Responder.Verifier.Last()
			if m == nil {
				c.Println("No chain")
				return
			}
			s.print(c, m)
		},
	}

	// PortsCmd lists serial ports.
	PortsCmd = ishell.Cmd{
		Name: "ports",
		Help: "list serial ports",
		Func: func(c *ishell.Context) {
			ports, err := serial.Ports()
			if err != nil {
				c.Err(err)
				return
			}
			for _, p := range ports {
				c.Println(p)
			}
		},
	}
)
