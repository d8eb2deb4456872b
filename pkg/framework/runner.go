package framework

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/golang/glog"
)

type namedRunnable struct {
	Runnable
	name string
}

func (r *namedRunnable) Name() string {
	return r.name
}

// NamedRun wraps a Runnable with a name.
func NamedRun(name string, runnable Runnable) Runnable {
	return &namedRunnable{name: name, Runnable: runnable}
}

// NameOf returns the name of a Named value, or fallback.
func NameOf(v interface{}, fallback string) string {
	if named, ok := v.(Named); ok {
		return named.Name()
	}
	return fallback
}

type exit struct {
	name string
	err  error
}

// Runner supervises a set of Runnables sharing one context.
// Whichever Runnable returns first, the context is canceled so the rest
// wind down; Wait reports every failure by name.
type Runner struct {
	Context context.Context

	names   []string
	cancel  func()
	exitCh  chan exit
	forceCh chan struct{}
}

// NewRunner creates a runner with a default background context.
func NewRunner() *Runner {
	return NewRunnerWith(context.Background())
}

// NewRunnerWith creates a runner derived from ctx.
func NewRunnerWith(ctx context.Context) *Runner {
	ctx, cancel := context.WithCancel(ctx)
	return &Runner{
		Context: ctx,
		cancel:  cancel,
		exitCh:  make(chan exit),
		forceCh: make(chan struct{}),
	}
}

// HandleSignals stops on SIGINT or SIGTERM; a second signal makes Wait
// return without waiting.
func (r *Runner) HandleSignals() *Runner {
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		glog.Infof("%v: stopping", sig)
		r.cancel()
		sig = <-sigCh
		glog.Errorf("%v: forced exit", sig)
		close(r.forceCh)
	}()
	return r
}

// Add lets components register what they need to run.
func (r *Runner) Add(adders ...RunnerAdder) *Runner {
	for _, adder := range adders {
		adder.AddToRunner(r)
	}
	return r
}

// Go starts Runnables.
func (r *Runner) Go(runnables ...Runnable) *Runner {
	for _, runnable := range runnables {
		name := NameOf(runnable, strconv.Itoa(len(r.names)))
		r.names = append(r.names, name)
		go r.run(name, runnable)
	}
	return r
}

// Len is the number of Runnables started.
func (r *Runner) Len() int {
	return len(r.names)
}

func (r *Runner) run(name string, runnable Runnable) {
	glog.V(4).Infof("%s: started", name)
	err := runnable.Run(r.Context)
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		glog.V(4).Infof("%s: stopped", name)
		err = nil
	default:
		glog.Errorf("%s: %v", name, err)
	}
	r.cancel()
	r.exitCh <- exit{name: name, err: err}
}

// Stop cancels all Runnables.
func (r *Runner) Stop() {
	r.cancel()
}

// Wait blocks until every Runnable returned.
func (r *Runner) Wait() error {
	var errs AggregatedError
	for range r.names {
		select {
		case <-r.forceCh:
			return errors.New("forced exit")
		case e := <-r.exitCh:
			if e.err != nil {
				errs.Add(fmt.Errorf("%s: %w", e.name, e.err))
			}
		}
	}
	return errs.Aggregate()
}

// RunWithContextCloser runs fn, which has no context, closing closer when
// ctx is done so fn unblocks. closer is closed on every path.
func RunWithContextCloser(ctx context.Context, closer io.Closer, fn func() error) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- fn()
	}()
	select {
	case <-ctx.Done():
		closer.Close()
		<-errCh
		return ctx.Err()
	case err := <-errCh:
		closer.Close()
		return err
	}
}
