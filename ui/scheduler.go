package ui

import (
	"sync"
	"time"

	"stationconsole/console"
)

// frameThrottle hands console frames to a draw function at no more than
// targetFPS. Frames submitted between draws collapse into the newest one, and
// nothing runs while the console is idle.
type frameThrottle struct {
	draw   func(console.Frame)
	minGap time.Duration
	grace  time.Duration

	mu     sync.Mutex
	latest console.Frame
	dirty  bool

	wake     chan struct{}
	stop     chan struct{}
	exited   chan struct{}
	stopOnce sync.Once
}

func newFrameThrottle(targetFPS int, grace time.Duration, draw func(console.Frame)) *frameThrottle {
	if targetFPS <= 0 {
		targetFPS = 20
	}
	if grace <= 0 {
		grace = 100 * time.Millisecond
	}
	return &frameThrottle{
		draw:   draw,
		minGap: time.Second / time.Duration(targetFPS),
		grace:  grace,
		wake:   make(chan struct{}, 1),
		stop:   make(chan struct{}),
		exited: make(chan struct{}),
	}
}

func (t *frameThrottle) Start() {
	go t.loop()
}

// Submit replaces any frame still waiting to be drawn.
func (t *frameThrottle) Submit(f console.Frame) {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.latest = f
	t.dirty = true
	t.mu.Unlock()
	select {
	case t.wake <- struct{}{}:
	default:
	}
}

// Stop draws a pending frame, waiting at most the grace period, and ends the loop.
func (t *frameThrottle) Stop() {
	t.stopOnce.Do(func() {
		close(t.stop)
		select {
		case <-t.exited:
		case <-time.After(t.grace):
		}
	})
}

func (t *frameThrottle) take() (console.Frame, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.dirty {
		return console.Frame{}, false
	}
	t.dirty = false
	return t.latest, true
}

func (t *frameThrottle) drawPending() {
	if f, ok := t.take(); ok {
		t.draw(f)
	}
}

func (t *frameThrottle) loop() {
	defer close(t.exited)
	gap := time.NewTimer(0)
	defer gap.Stop()
	for {
		select {
		case <-t.stop:
			t.drawPending()
			return
		case <-t.wake:
		}
		// Hold off until minGap has passed since the previous draw.
		select {
		case <-gap.C:
		case <-t.stop:
			t.drawPending()
			return
		}
		t.drawPending()
		gap.Reset(t.minGap)
	}
}
