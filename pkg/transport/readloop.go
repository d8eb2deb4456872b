package transport

import (
	"context"
	"errors"
	"io"
)

// ReadLoop pumps r into rcv until r fails. io.EOF ends the loop cleanly.
func ReadLoop(r io.Reader, rcv Receiver) error {
	buf := make([]byte, 256)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			rcv.ReceiveBytes(buf[:n])
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

// Stdio feeds standard input to Receiver and writes output to Out.
// A blocked read on the terminal can not be interrupted, so Run returns on
// cancellation and leaves the reading goroutine behind.
type Stdio struct {
	In       io.Reader
	Out      io.Writer
	Receiver Receiver
}

// Name implements framework.Named.
func (s *Stdio) Name() string {
	return "stdio"
}

// Write implements io.Writer.
func (s *Stdio) Write(p []byte) (int, error) {
	return s.Out.Write(p)
}

// Run implements framework.Runnable.
func (s *Stdio) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- ReadLoop(s.In, s.Receiver)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}
