// Package ratelimit throttles repetitive log lines, such as a fetch failing on
// every poll while the backend is down.
package ratelimit

import (
	"sync/atomic"
	"time"
)

// Counter counts a run of repeated events and allows a log at most once per
// interval. It is safe for concurrent use.
type Counter struct {
	interval time.Duration
	lastLog  atomic.Int64
	streak   atomic.Uint64
}

// NewCounter allows one log per interval. A zero or negative interval logs
// every event.
func NewCounter(interval time.Duration) *Counter {
	return &Counter{interval: interval}
}

// Inc records one event at now and reports the streak length and whether a
// log line is due. The first event of a streak is always due.
func (c *Counter) Inc(now time.Time) (uint64, bool) {
	if c == nil {
		return 0, true
	}
	n := c.streak.Add(1)
	if n == 1 || c.interval <= 0 {
		c.lastLog.Store(now.UnixNano())
		return n, true
	}
	last := c.lastLog.Load()
	if now.UnixNano()-last < c.interval.Nanoseconds() {
		return n, false
	}
	return n, c.lastLog.CompareAndSwap(last, now.UnixNano())
}

// Reset ends the streak and returns how long it was.
func (c *Counter) Reset() uint64 {
	if c == nil {
		return 0
	}
	return c.streak.Swap(0)
}
