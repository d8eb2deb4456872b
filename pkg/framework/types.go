package framework

import (
	"context"
)

// Named is an abstraction for things with a name.
type Named interface {
	Name() string
}

// Runnable defines a generic interface for background runners.
type Runnable interface {
	Run(context.Context) error
}

// RunnableFunc is the func form of Runnable.
type RunnableFunc func(context.Context) error

// Run implements Runnable.
func (f RunnableFunc) Run(ctx context.Context) error {
	return f(ctx)
}

// Job is a unit of deferred work executed by Loop.
// A Job runs to completion and must not block.
type Job interface {
	RunJob(context.Context)
}

// JobFunc is the func form of Job.
type JobFunc func(context.Context)

// RunJob implements Job.
func (f JobFunc) RunJob(ctx context.Context) {
	f(ctx)
}

// Poster accepts jobs from any goroutine.
type Poster interface {
	// Post enqueues the job for execution on the loop.
	Post(Job)
}

// RunnerAdder provides specific logic to add components to a Runner.
type RunnerAdder interface {
	AddToRunner(*Runner)
}
