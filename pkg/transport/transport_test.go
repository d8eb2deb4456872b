package transport

import (
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"
)

type blockingWriter struct {
	releaseCh chan error
	lock      sync.Mutex
	written   []string
}

func (w *blockingWriter) Write(p []byte) (int, error) {
	err := <-w.releaseCh
	w.lock.Lock()
	w.written = append(w.written, string(p))
	w.lock.Unlock()
	return len(p), err
}

type completions chan error

func (c completions) SendComplete(err error) {
	c <- err
}

func TestAsyncBusyAndComplete(t *testing.T) {
	w := &blockingWriter{releaseCh: make(chan error)}
	done := make(completions, 2)
	a := NewAsync(w)
	a.Handler = done

	require.NoError(t, a.Send([]byte("one")))
	require.True(t, a.Busy())
	require.Equal(t, ErrBusy, a.Send([]byte("two")))

	w.releaseCh <- nil
	require.NoError(t, <-done)
	require.False(t, a.Busy())

	failure := errors.New("unplugged")
	require.NoError(t, a.Send([]byte("three")))
	w.releaseCh <- failure
	err := <-done
	require.Error(t, err)
	require.True(t, errors.Is(err, failure))
	require.Equal(t, []string{"one", "three"}, w.written)

	require.NoError(t, a.Close())
	require.Equal(t, ErrClosed, a.Send([]byte("four")))
}

func TestReadLoop(t *testing.T) {
	var got []byte
	err := ReadLoop(strings.NewReader("gaf100\r"), ReceiveFunc(func(p []byte) {
		got = append(got, p...)
	}))
	require.NoError(t, err)
	require.Equal(t, "gaf100\r", string(got))
}

func TestConsole(t *testing.T) {
	received := make(chan string, 1)
	c := NewConsole("")
	c.Receiver = ReceiveFunc(func(p []byte) {
		received <- string(p)
	})
	srv := httptest.NewServer(c.Handler())
	defer srv.Close()

	ws, err := websocket.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), "", srv.URL)
	require.NoError(t, err)
	defer ws.Close()

	require.NoError(t, websocket.Message.Send(ws, "q9\r"))
	select {
	case msg := <-received:
		require.Equal(t, "q9\r", msg)
	case <-time.After(5 * time.Second):
		t.Fatal("console did not receive")
	}

	require.Equal(t, 1, c.Clients())
	n, err := c.Write([]byte("Connected: 0\n"))
	require.NoError(t, err)
	require.Equal(t, 13, n)
	var out string
	require.NoError(t, websocket.Message.Receive(ws, &out))
	require.Equal(t, "Connected: 0\n", out)
}
