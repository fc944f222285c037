// Package clock is the time source shared by the window resolver, the
// announcement re-check and the visible console clock.
package clock

import (
	"sync"
	"time"
)

const displayLayout = "15:04:05"

// Clock reports the current instant.
type Clock interface {
	Now() time.Time
}

// System reads the process wall clock.
type System struct{}

func (System) Now() time.Time {
	return time.Now()
}

// Manual is a settable clock for tests and replays.
type Manual struct {
	mu  sync.Mutex
	now time.Time
}

func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Set moves the clock to t, backwards moves included.
func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	m.now = t
	m.mu.Unlock()
}

// Advance moves the clock forward by d and returns the new instant.
func (m *Manual) Advance(d time.Duration) time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
	return m.now
}

// Purpose: Format an instant for the clock pane.
// Key aspects: 24h local wall time plus the UTC equivalent.
// Upstream: console frame builder.
// Downstream: time.Format.
func Display(now time.Time) (local, utc string) {
	return now.Local().Format(displayLayout), now.UTC().Format(displayLayout)
}
