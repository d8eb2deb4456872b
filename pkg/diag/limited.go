// Package diag provides rate limited diagnostics for hot paths where a
// fault (e.g. a full queue) may repeat thousands of times per second.
package diag

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/golang/glog"
	"golang.org/x/time/rate"
)

// Limited logs warnings at a bounded rate and counts the suppressed ones.
type Limited struct {
	Prefix string

	limiter    *rate.Limiter
	suppressed atomic.Uint64
}

// NewLimited creates a Limited allowing one message per interval with
// the given burst.
func NewLimited(prefix string, interval time.Duration, burst int) *Limited {
	return &Limited{
		Prefix:  prefix,
		limiter: rate.NewLimiter(rate.Every(interval), burst),
	}
}

// Warningf logs through glog.Warning unless the rate is exceeded.
// It reports whether the message was logged.
func (l *Limited) Warningf(format string, args ...interface{}) bool {
	msg, ok := l.format(format, args...)
	if ok {
		glog.WarningDepth(1, msg)
	}
	return ok
}

// Infof is Warningf at info severity.
func (l *Limited) Infof(format string, args ...interface{}) bool {
	msg, ok := l.format(format, args...)
	if ok {
		glog.InfoDepth(1, msg)
	}
	return ok
}

func (l *Limited) format(format string, args ...interface{}) (string, bool) {
	if !l.limiter.Allow() {
		l.suppressed.Add(1)
		return "", false
	}
	msg := l.Prefix + fmt.Sprintf(format, args...)
	if n := l.suppressed.Swap(0); n > 0 {
		msg = fmt.Sprintf("%s (%d suppressed)", msg, n)
	}
	return msg, true
}

// Suppressed returns the number of messages dropped since the last logged one.
func (l *Limited) Suppressed() uint64 {
	return l.suppressed.Load()
}
