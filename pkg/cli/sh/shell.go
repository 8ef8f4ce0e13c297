// Package sh provides an interactive console on a local MS/TP datalink.
package sh

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/mstp.go/pkg/env"
	"github.com/robotalks/mstp.go/pkg/mstp"
)

// Datalink is the part of mstp.Datalink used by the shell.
type Datalink interface {
	Send(dest byte, expectingReply bool, pdu []byte) error
	Do(ctx context.Context, fn func(*mstp.Port) error) error
}

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool
	Timeout     time.Duration

	Shell    *ishell.Shell
	Datalink Datalink
}

const (
	shellKey       = "$shell"
	defaultTimeout = time.Second
)

var (
	// flags

	evalOnly   bool
	outputJSON bool

	// commands
	commands = []*ishell.Cmd{
		&StatusCmd,
		&StatsCmd,
		&SendCmd,
		&MaxMasterCmd,
		&MaxInfoFramesCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
}

// New creates a new shell on a running datalink.
func New(d Datalink) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,
		Timeout:     defaultTimeout,

		Shell:    ishell.New(),
		Datalink: d,
	}
	s.Shell.Set(shellKey, s)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// SetStation updates the prompt with the station address.
func (s *Shell) SetStation(station byte) *Shell {
	s.Shell.SetPrompt(fmt.Sprintf("mstp[%d] > ", station))
	return s
}

// HandlePDU implements mstp.PDUHandler by printing received PDUs.
func (s *Shell) HandlePDU(src byte, pdu []byte) {
	if s.OutputJSON {
		out, _ := json.Marshal(map[string]interface{}{"source": src, "data": hex.EncodeToString(pdu)})
		s.Shell.Println(string(out))
		return
	}
	s.Shell.Printf("RX %d: % X\n", src, pdu)
}

// Do runs fn on the datalink goroutine with the shell timeout.
func (s *Shell) Do(fn func(*mstp.Port) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.Timeout)
	defer cancel()
	return s.Datalink.Do(ctx, fn)
}

// Print prints v as JSON, or formatted by text otherwise.
func (s *Shell) Print(c *ishell.Context, v interface{}, text func() string) {
	if s.OutputJSON {
		out, err := json.Marshal(v)
		if err != nil {
			c.Err(err)
			return
		}
		c.Println(string(out))
		return
	}
	c.Println(text())
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

// ParseAddress parses a MAC address.
func ParseAddress(str string) (byte, error) {
	n, err := strconv.ParseUint(str, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q", str)
	}
	return byte(n), nil
}

// ParseHex parses octets in hex, optionally separated by spaces or colons.
func ParseHex(strs ...string) ([]byte, error) {
	str := strings.NewReplacer(" ", "", ":", "").Replace(strings.Join(strs, ""))
	return hex.DecodeString(str)
}

func formatStatus(st mstp.Status) string {
	return fmt.Sprintf("station %d %s (receive %s)\n"+
		"next %d poll %d sole master %v\n"+
		"max master %d max info frames %d queued %d",
		st.Station, st.MasterState, st.ReceiveState,
		st.NextStation, st.PollStation, st.SoleMaster,
		st.MaxMaster, st.MaxInfoFrames, st.QueueLen)
}

func formatStats(st mstp.Stats) string {
	return fmt.Sprintf("received %d (not for us %d, invalid %d, too long %d, errors %d)\n"+
		"sent %d (errors %d) delivered %d\n"+
		"replies postponed %d dropped %d queue full %d",
		st.FramesReceived, st.FramesNotForUs, st.InvalidFrames, st.FramesTooLong, st.ReceiveErrors,
		st.FramesSent, st.SendErrors, st.PDUsDelivered,
		st.RepliesPostponed, st.RepliesDropped, st.QueueFull)
}

func setByte(c *ishell.Context, name string, set func(*mstp.Port, byte) error) {
	if len(c.Args) != 1 {
		c.Err(fmt.Errorf("%s N expected", name))
		return
	}
	v, err := ParseAddress(c.Args[0])
	if err == nil {
		err = ShellFrom(c).Do(func(p *mstp.Port) error { return set(p, v) })
	}
	if err != nil {
		c.Err(err)
		return
	}
	c.Println("OK")
}

var (
	// StatusCmd prints the state of the port.
	StatusCmd = ishell.Cmd{
		Name:    "status",
		Aliases: []string{"st"},
		Help:    "",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			var st mstp.Status
			if err := s.Do(func(p *mstp.Port) error {
				st = p.Status()
				return nil
			}); err != nil {
				c.Err(err)
				return
			}
			s.Print(c, st, func() string { return formatStatus(st) })
		},
	}

	// StatsCmd prints the counters of the port.
	StatsCmd = ishell.Cmd{
		Name: "stats",
		Help: "",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			var st mstp.Stats
			if err := s.Do(func(p *mstp.Port) error {
				st = p.Stats()
				return nil
			}); err != nil {
				c.Err(err)
				return
			}
			s.Print(c, st, func() string { return formatStats(st) })
		},
	}

	// SendCmd queues a PDU.
	SendCmd = ishell.Cmd{
		Name: "send",
		Help: "DEST HEX [reply]",
		Func: func(c *ishell.Context) {
			if len(c.Args) < 2 {
				c.Err(fmt.Errorf("DEST HEX expected"))
				return
			}
			args := c.Args
			expectingReply := args[len(args)-1] == "reply"
			if expectingReply {
				args = args[:len(args)-1]
			}
			dest, err := ParseAddress(args[0])
			if err != nil {
				c.Err(err)
				return
			}
			pdu, err := ParseHex(args[1:]...)
			if err != nil {
				c.Err(err)
				return
			}
			if err := ShellFrom(c).Datalink.Send(dest, expectingReply, pdu); err != nil {
				c.Err(err)
				return
			}
			c.Println("OK")
		},
	}

	// MaxMasterCmd changes the highest master address polled.
	MaxMasterCmd = ishell.Cmd{
		Name: "max-master",
		Help: "N",
		Func: func(c *ishell.Context) {
			setByte(c, "max-master", (*mstp.Port).SetMaxMaster)
		},
	}

	// MaxInfoFramesCmd changes the number of frames sent per token.
	MaxInfoFramesCmd = ishell.Cmd{
		Name: "max-info-frames",
		Help: "N",
		Func: func(c *ishell.Context) {
			setByte(c, "max-info-frames", (*mstp.Port).SetMaxInfoFrames)
		},
	}
)

// Main is a helper to provide a single call in main. It runs the shell on
// a datalink opened from env configuration.
func Main() {
	flag.Parse()
	d, port := env.Default().MustOpenDatalink()
	defer port.Close()
	s := New(d).SetStation(d.Port.Station())
	d.SetHandler(s)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		if err := d.Run(ctx); err != nil && ctx.Err() == nil {
			log.Fatalln(err)
		}
	}()
	s.Run(flag.Args()...)
}
