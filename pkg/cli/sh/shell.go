// Package sh provides the operator console of a Host station.
package sh

import (
	"context"
	"flag"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/abiosoft/ishell"
	"github.com/golang/glog"

	"github.com/robotalks/radio.go/pkg/env"
	"github.com/robotalks/radio.go/pkg/link"
	"github.com/robotalks/radio.go/pkg/radio/mqtt"
	"github.com/robotalks/radio.go/pkg/serialport"
)

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool

	Shell   *ishell.Shell
	Config  *env.Config
	Port    *serialport.Port
	Console *Console
	Queue   *mqtt.Queue

	stationsLock sync.Mutex
	stations     map[string]link.Status
}

const shellKey = "$shell"

var (
	evalOnly bool

	commands = []*ishell.Cmd{
		&ChannelCmd,
		&PollCmd,
		&BaudCmd,
		&SysUpCmd,
		&SyncCmd,
		&SendCmd,
		&RecvCmd,
		&StationsCmd,
		&PortsCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
}

// New creates a new shell.
func New(conf *env.Config) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		Shell:       ishell.New(),
		Config:      conf,
		stations:    make(map[string]link.Status),
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt("radio > ")
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// Open opens the Host serial port and the broker if configured.
func (s *Shell) Open() error {
	port, err := s.Config.OpenSerial()
	if err != nil {
		return err
	}
	s.Port, s.Console = port, NewConsole(port)
	if s.Config.MQTTBrokerURL == "" {
		return nil
	}
	opts, prefix, err := mqtt.ClientOptionsFromURL(s.Config.MQTTBrokerURL)
	if err != nil {
		return err
	}
	s.Queue = mqtt.NewQueue(opts, prefix)
	mqtt.WatchStatus(s.Queue, s.stationStatus)
	if err := s.Queue.Connect(); err != nil {
		glog.Warningf("broker %s: %v", s.Config.MQTTBrokerURL, err)
	}
	return nil
}

// Close releases the port and the broker connection.
func (s *Shell) Close() {
	if s.Queue != nil {
		s.Queue.Close()
	}
	if s.Port != nil {
		s.Port.Close()
	}
}

func (s *Shell) stationStatus(id string, status link.Status) {
	s.stationsLock.Lock()
	defer s.stationsLock.Unlock()
	s.stations[id] = status
}

// Stations returns the last status of stations, sorted by ID.
func (s *Shell) Stations() ([]string, []link.Status) {
	s.stationsLock.Lock()
	defer s.stationsLock.Unlock()
	ids := make([]string, 0, len(s.stations))
	for id := range s.stations {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	list := make([]link.Status, len(ids))
	for n, id := range ids {
		list[n] = s.stations[id]
	}
	return ids, list
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if err := s.Open(); err != nil {
		log.Fatalln(err)
	}
	defer s.Close()
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

// DoCommand sends a Host command and prints the reply.
func DoCommand(c *ishell.Context, cmd link.HostCmd, args ...byte) (Reply, bool) {
	reply, err := ShellFrom(c).Console.Command(context.Background(), cmd, args...)
	if err != nil {
		c.Err(err)
		return reply, false
	}
	c.Println(reply.String())
	return reply, reply.OK
}

func parseByteArg(c *ishell.Context, index int, what string) (byte, bool) {
	if len(c.Args) <= index {
		c.Err(fmt.Errorf("%s expected", what))
		return 0, false
	}
	val, err := strconv.ParseUint(c.Args[index], 10, 8)
	if err != nil {
		c.Err(fmt.Errorf("invalid %s %q", what, c.Args[index]))
		return 0, false
	}
	return byte(val), true
}

var (
	// ChannelCmd queries or changes the radio channel.
	ChannelCmd = ishell.Cmd{
		Name:    "channel",
		Aliases: []string{"ch"},
		Help:    "[set|override N]",
		Func: func(c *ishell.Context) {
			if len(c.Args) == 0 {
				DoCommand(c, link.CmdChannelGet)
				return
			}
			cmd := link.CmdChannelSet
			switch c.Args[0] {
			case "set":
			case "override":
				cmd = link.CmdChannelSetOverride
			default:
				c.Err(fmt.Errorf("unknown action %q", c.Args[0]))
				return
			}
			if ch, ok := parseByteArg(c, 1, "channel"); ok {
				DoCommand(c, cmd, ch)
			}
		},
	}

	// PollCmd queries or changes the poll time.
	PollCmd = ishell.Cmd{
		Name: "poll",
		Help: "[set MS]",
		Func: func(c *ishell.Context) {
			if len(c.Args) == 0 {
				DoCommand(c, link.CmdPollTimeGet)
				return
			}
			if c.Args[0] != "set" {
				c.Err(fmt.Errorf("unknown action %q", c.Args[0]))
				return
			}
			if ms, ok := parseByteArg(c, 1, "poll time"); ok {
				DoCommand(c, link.CmdPollTimeSet, ms)
			}
		},
	}

	// BaudCmd switches the serial speed of Host and console together.
	BaudCmd = ishell.Cmd{
		Name: "baud",
		Help: "default|fast",
		Func: func(c *ishell.Context) {
			if len(c.Args) != 1 {
				c.Err(fmt.Errorf("default or fast expected"))
				return
			}
			cmd, baud := link.CmdBaudDefault, link.BaudDefault
			switch c.Args[0] {
			case "default":
			case "fast":
				cmd, baud = link.CmdBaudFast, link.BaudFast
			default:
				c.Err(fmt.Errorf("unknown speed %q", c.Args[0]))
				return
			}
			if _, ok := DoCommand(c, cmd); !ok {
				return
			}
			if err := ShellFrom(c).Port.SetBaud(baud); err != nil {
				c.Err(err)
			}
		},
	}

	// SysUpCmd checks the Device is polling.
	SysUpCmd = ishell.Cmd{
		Name:    "sysup",
		Aliases: []string{"up"},
		Func: func(c *ishell.Context) {
			DoCommand(c, link.CmdSysUp)
		},
	}

	// SyncCmd measures the time sync round trip.
	SyncCmd = ishell.Cmd{
		Name: "sync",
		Func: func(c *ishell.Context) {
			d, err := ShellFrom(c).Console.TimeSync(context.Background())
			if err != nil {
				c.Err(err)
				return
			}
			c.Printf("acknowledged in %s\n", d)
		},
	}

	// SendCmd sends text to the Device.
	SendCmd = ishell.Cmd{
		Name: "send",
		Help: "TEXT",
		Func: func(c *ishell.Context) {
			if len(c.Args) == 0 {
				c.Err(fmt.Errorf("text expected"))
				return
			}
			if err := ShellFrom(c).Console.Send([]byte(strings.Join(c.Args, " "))); err != nil {
				c.Err(err)
			}
		},
	}

	// RecvCmd prints data received from the Device.
	RecvCmd = ishell.Cmd{
		Name:    "recv",
		Aliases: []string{"r"},
		Func: func(c *ishell.Context) {
			data := ShellFrom(c).Console.Received()
			if len(data) == 0 {
				c.Println("(nothing)")
				return
			}
			c.Printf("%q\n", data)
		},
	}

	// StationsCmd lists stations publishing status on the broker.
	StationsCmd = ishell.Cmd{
		Name:    "stations",
		Aliases: []string{"st"},
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			if s.Queue == nil {
				c.Err(fmt.Errorf("no broker, use -mqtt"))
				return
			}
			ids, list := s.Stations()
			if len(ids) == 0 {
				c.Println("No stations found")
				return
			}
			for n, id := range ids {
				c.Println(FormatStatus(id, list[n]))
			}
		},
	}
)

// PortsCmd lists serial ports to pick the Host from.
var PortsCmd = ishell.Cmd{
	Name: "ports",
	Func: func(c *ishell.Context) {
		ports, err := serialport.Ports()
		if err != nil {
			c.Err(err)
			return
		}
		current := ShellFrom(c).Config.SerialPath
		for _, p := range ports {
			if p == current {
				p += " *"
			}
			c.Println(p)
		}
	},
}

// FormatStatus prints a station status into friendly string for display.
func FormatStatus(id string, s link.Status) string {
	peer := "down"
	if s.PeerAlive {
		peer = "up"
	}
	return fmt.Sprintf("%s: %s ch=%d poll=%dms peer=%s sent=%d recv=%d resends=%d",
		id, s.Role, s.Settings.Channel, s.Settings.PollTime, peer,
		s.Stats.FramesSent, s.Stats.FramesReceived, s.Stats.Resends)
}

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	New(env.NewConfig()).Run(flag.Args()...)
}
