// Package sh provides an interactive shell talking to the hub console
// over websocket.
package sh

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"
	"sync"

	"github.com/abiosoft/ishell"
	"golang.org/x/net/websocket"

	"github.com/robotalks/sensorhub/pkg/transport"
)

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	URL         string
	Terminator  string

	Shell *ishell.Shell
	Conn  *Conn
}

// Conn is a live console connection.
type Conn struct {
	URL    string
	Cancel func()

	ws   *websocket.Conn
	lock sync.Mutex
}

const (
	shellKey          = "$shell"
	unconnectedPrompt = "[none] > "
)

var (
	// flags

	evalOnly   bool
	consoleURL = "ws://localhost:8899" + transport.ConsolePath
	lineFeed   bool

	// commands
	commands = []*ishell.Cmd{
		&ConnectCmd,
		&CloseCmd,
		&RawCmd,
	}
)

func init() {
	if val := os.Getenv("SENSORHUB_CONSOLE"); val != "" {
		consoleURL = val
	}
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.StringVar(&consoleURL, "url", consoleURL, "Hub console websocket URL.")
	flag.BoolVar(&lineFeed, "lf", lineFeed, "Terminate commands with LF instead of CR.")
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell.
func New(consoleURL string) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		URL:         consoleURL,
		Terminator:  "\r",

		Shell: ishell.New(),
	}
	if lineFeed {
		s.Terminator = "\n"
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(unconnectedPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// MustBeConnected wraps command func requires a connection.
func MustBeConnected(fn func(c *ishell.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if ShellFrom(c).Conn == nil {
			c.Err(fmt.Errorf("not connected"))
			return
		}
		fn(c)
	}
}

// Send sends a command line, the terminator is appended.
func Send(c *ishell.Context, line string) error {
	s := ShellFrom(c)
	if s.Conn == nil {
		err := fmt.Errorf("not connected")
		c.Err(err)
		return err
	}
	if err := s.Conn.Send(line + s.Terminator); err != nil {
		c.Err(err)
		return err
	}
	return nil
}

// Dial opens a console connection. Hub output is passed to onOutput as it
// arrives until the connection closes.
func Dial(consoleURL string, onOutput func(string)) (*Conn, error) {
	u, err := url.Parse(consoleURL)
	if err != nil {
		return nil, err
	}
	origin := "http://" + u.Host
	ws, err := websocket.Dial(consoleURL, "", origin)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	conn := &Conn{URL: consoleURL, ws: ws}
	conn.Cancel = func() {
		cancel()
		ws.Close()
	}
	go func() {
		defer cancel()
		for {
			var msg string
			if err := websocket.Message.Receive(ws, &msg); err != nil {
				if ctx.Err() == nil {
					onOutput(fmt.Sprintf("console closed: %v\n", err))
				}
				return
			}
			onOutput(msg)
		}
	}()
	return conn, nil
}

// Send writes raw text to the hub.
func (c *Conn) Send(text string) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	return websocket.Message.Send(c.ws, text)
}

// Connect connects the hub console at consoleURL.
func (s *Shell) Connect(consoleURL string) error {
	conn, err := Dial(consoleURL, func(msg string) {
		s.Shell.Print(strings.ReplaceAll(msg, "\r", ""))
	})
	if err != nil {
		return err
	}
	s.Disconnect()
	s.Conn = conn
	s.Shell.SetPrompt(fmt.Sprintf("%s > ", conn.ws.RemoteAddr()))
	return nil
}

// Disconnect closes the current connection.
func (s *Shell) Disconnect() {
	if s.Conn != nil {
		s.Conn.Cancel()
		s.Conn = nil
		s.Shell.SetPrompt(unconnectedPrompt)
	}
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if s.URL != "" {
		if err := s.Connect(s.URL); err != nil {
			log.Fatalf("connect %q failed: %v", s.URL, err)
		}
	}

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

var (
	// ConnectCmd connects a hub console.
	ConnectCmd = ishell.Cmd{
		Name:    "connect",
		Aliases: []string{"open"},
		Help:    "[URL]",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			target := s.URL
			if len(c.Args) > 0 {
				target = c.Args[0]
			}
			if err := s.Connect(target); err != nil {
				c.Err(err)
			}
		},
	}

	// CloseCmd closes the console connection.
	CloseCmd = ishell.Cmd{
		Name:    "close",
		Aliases: []string{"x"},
		Help:    "",
		Func: func(c *ishell.Context) {
			ShellFrom(c).Disconnect()
		},
	}

	// RawCmd sends its arguments verbatim as a command line.
	RawCmd = ishell.Cmd{
		Name: "raw",
		Help: "TEXT",
		Func: MustBeConnected(func(c *ishell.Context) {
			Send(c, strings.Join(c.Args, ""))
		}),
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	New(consoleURL).Run(flag.Args()...)
}
