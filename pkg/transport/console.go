package transport

import (
	"context"
	"net/http"
	"sync"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"

	"github.com/robotalks/sensorhub/pkg/framework"
)

// ConsolePath is where the websocket console is served.
const ConsolePath = "/console"

// Console exposes the hub console over websocket.
// Every message received from any client is fed to Receiver as raw bytes,
// and output is sent as text messages to all connected clients.
type Console struct {
	Addr     string
	Receiver Receiver

	lock  sync.Mutex
	conns map[*websocket.Conn]struct{}
}

// NewConsole creates a Console listening on addr.
func NewConsole(addr string) *Console {
	return &Console{Addr: addr, conns: make(map[*websocket.Conn]struct{})}
}

// Name implements framework.Named.
func (c *Console) Name() string {
	return "console:" + c.Addr
}

// Handler returns the websocket handler.
func (c *Console) Handler() http.Handler {
	return websocket.Handler(c.serve)
}

// Clients returns the number of connected clients.
func (c *Console) Clients() int {
	c.lock.Lock()
	defer c.lock.Unlock()
	return len(c.conns)
}

// Write implements io.Writer. Clients failing to receive are dropped.
func (c *Console) Write(p []byte) (int, error) {
	msg := string(p)
	c.lock.Lock()
	defer c.lock.Unlock()
	for conn := range c.conns {
		if err := websocket.Message.Send(conn, msg); err != nil {
			glog.Warningf("console %s: %v", conn.Request().RemoteAddr, err)
			delete(c.conns, conn)
			conn.Close()
		}
	}
	return len(p), nil
}

// Run implements framework.Runnable.
func (c *Console) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle(ConsolePath, c.Handler())
	server := &http.Server{Addr: c.Addr, Handler: mux}
	glog.Infof("console listening on %s%s", c.Addr, ConsolePath)
	return framework.RunWithContextCloser(ctx, server, server.ListenAndServe)
}

func (c *Console) serve(conn *websocket.Conn) {
	remote := conn.Request().RemoteAddr
	glog.Infof("console %s connected", remote)
	c.lock.Lock()
	c.conns[conn] = struct{}{}
	c.lock.Unlock()
	defer func() {
		c.lock.Lock()
		delete(c.conns, conn)
		c.lock.Unlock()
		conn.Close()
		glog.Infof("console %s disconnected", remote)
	}()
	for {
		var msg []byte
		if err := websocket.Message.Receive(conn, &msg); err != nil {
			return
		}
		if rcv := c.Receiver; rcv != nil {
			rcv.ReceiveBytes(msg)
		}
	}
}
