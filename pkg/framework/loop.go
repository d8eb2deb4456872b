package framework

import (
	"context"
	"sync"

	"github.com/golang/glog"
)

// Loop is a single-threaded cooperative job queue.
// Jobs posted from any goroutine are executed in FIFO order, one at a
// time, on the goroutine running Run (or RunPending).
type Loop struct {
	jobs jobList
	lock sync.Mutex

	wakeUpCh chan struct{}
	once     sync.Once
}

type jobList struct {
	head *jobItem
	tail *jobItem
	len  int
}

type jobItem struct {
	job  Job
	next *jobItem
}

func (l *jobList) append(item *jobItem) {
	if l.head == nil {
		l.head = item
	} else {
		l.tail.next = item
	}
	l.tail = item
	l.len++
}

func (l *jobList) pop() *jobItem {
	item := l.head
	if item != nil {
		l.head = item.next
		if l.head == nil {
			l.tail = nil
		}
		item.next = nil
		l.len--
	}
	return item
}

var (
	loopCtxKey = &Loop{}
)

// LoopFrom gets the Loop executing the current job.
func LoopFrom(ctx context.Context) *Loop {
	l, _ := ctx.Value(loopCtxKey).(*Loop)
	return l
}

// NewLoop creates a Loop.
func NewLoop() *Loop {
	l := &Loop{}
	l.init()
	return l
}

func (l *Loop) init() {
	l.once.Do(func() {
		l.wakeUpCh = make(chan struct{}, 1)
	})
}

// Name implements Named.
func (l *Loop) Name() string {
	return "loop"
}

// Post implements Poster.
func (l *Loop) Post(job Job) {
	l.init()
	l.lock.Lock()
	l.jobs.append(&jobItem{job: job})
	l.lock.Unlock()
	l.wakeUp()
}

// PostFunc posts a func as a job.
func (l *Loop) PostFunc(fn func(context.Context)) {
	l.Post(JobFunc(fn))
}

// Pending returns the number of jobs waiting for execution.
func (l *Loop) Pending() int {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.jobs.len
}

func (l *Loop) wakeUp() {
	select {
	case l.wakeUpCh <- struct{}{}:
	default:
	}
}

// Run implements Runnable.
func (l *Loop) Run(ctx context.Context) error {
	l.init()
	for {
		l.RunPending(ctx)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wakeUpCh:
		}
	}
}

// RunPending executes jobs until the queue is empty, including jobs
// posted while running. It returns the number of jobs executed.
func (l *Loop) RunPending(ctx context.Context) (n int) {
	jobCtx := context.WithValue(ctx, loopCtxKey, l)
	for {
		if ctx.Err() != nil {
			return
		}
		l.lock.Lock()
		item := l.jobs.pop()
		l.lock.Unlock()
		if item == nil {
			return
		}
		l.runJob(jobCtx, item.job)
		n++
	}
}

func (l *Loop) runJob(ctx context.Context, job Job) {
	if glog.V(5) {
		glog.Infof("run job %T", job)
	}
	job.RunJob(ctx)
}
