package ui

import (
	"io"
	"log"
	"os"
	"sync"

	"stationconsole/announce"
	"stationconsole/console"
)

// Headless logs frame transitions instead of drawing. It is used when stdout
// is not a terminal.
type Headless struct {
	logger *log.Logger
	quit   chan struct{}
	once   sync.Once

	mu      sync.Mutex
	started bool
	last    headlessState
}

type headlessState struct {
	selected int
	hasSel   bool
	err      string
	sound    bool
	reader   announce.State
	active   int64
	loaded   bool
}

// NewHeadless logs through logger (std log when nil).
func NewHeadless(logger *log.Logger) *Headless {
	if logger == nil {
		logger = log.Default()
	}
	return &Headless{logger: logger, quit: make(chan struct{})}
}

// Purpose: Log what changed since the previous frame.
// Key aspects: Clock-only frames produce nothing.
// Upstream: console goroutine.
// Downstream: log.Logger.
func (h *Headless) Render(f console.Frame) {
	next := headlessState{
		selected: f.Selected.Number,
		hasSel:   f.HasSelection,
		err:      f.Error,
		sound:    f.Sound,
		reader:   f.ReaderState,
		loaded:   !f.Loading,
	}
	if f.HasActive {
		next.active = f.Active.ID
	}

	h.mu.Lock()
	prev, started := h.last, h.started
	h.last, h.started = next, true
	h.mu.Unlock()

	if next.loaded && (!started || !prev.loaded) {
		h.logger.Printf("Console: %d frequencies loaded, %d encryption keys", len(f.Frequencies), f.EncryptionKeys)
	}
	if next.hasSel && (!prev.hasSel || prev.selected != next.selected) {
		h.logger.Printf("Console: tuned to %s", f.Selected.DisplayName())
	}
	if next.err != prev.err {
		if next.err != "" {
			h.logger.Printf("Console: %s", next.err)
		} else if started {
			h.logger.Printf("Console: station data recovered")
		}
	}
	if next.sound != prev.sound || next.reader != prev.reader {
		h.logger.Printf("Console: reader %s", next.reader)
	}
	if next.active != prev.active {
		if f.HasActive {
			h.logger.Printf("Console: on air %s (%s) on %d", f.Active.Code, f.Active.Type, f.Selected.Number)
		} else {
			h.logger.Printf("Console: off air")
		}
	}
}

func (h *Headless) Announce(ev announce.Event) {
	h.logger.Printf("Announce: %s", announcementLine(ev))
}

func (h *Headless) SystemWriter() io.Writer {
	return os.Stdout
}

func (h *Headless) WaitReady() {}

func (h *Headless) Quit() <-chan struct{} {
	return h.quit
}

func (h *Headless) Stop() {
	h.once.Do(func() { close(h.quit) })
}
