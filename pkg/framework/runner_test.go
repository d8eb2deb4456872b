package framework

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRunnerFirstExitStopsAll(t *testing.T) {
	failure := errors.New("port gone")
	r := NewRunner()
	r.Go(
		NamedRun("serial", RunnableFunc(func(ctx context.Context) error {
			return failure
		})),
		NamedRun("loop", RunnableFunc(func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		})),
	)
	require.Equal(t, 2, r.Len())
	err := r.Wait()
	require.ErrorIs(t, err, failure)
	require.Equal(t, "serial: port gone", err.Error())
}

func TestRunnerStop(t *testing.T) {
	r := NewRunner()
	r.Go(RunnableFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}))
	r.Stop()
	require.NoError(t, r.Wait())
}

type closeFunc func() error

func (f closeFunc) Close() error { return f() }

func TestRunWithContextCloser(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	unblock := make(chan struct{})
	var closer io.Closer = closeFunc(func() error {
		close(unblock)
		return nil
	})
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	err := RunWithContextCloser(ctx, closer, func() error {
		<-unblock
		return io.EOF
	})
	require.ErrorIs(t, err, context.Canceled)

	closed := false
	err = RunWithContextCloser(context.Background(), closeFunc(func() error {
		closed = true
		return nil
	}), func() error { return io.EOF })
	require.Equal(t, io.EOF, err)
	require.True(t, closed)
}
