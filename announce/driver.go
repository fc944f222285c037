// Package announce decides when the selected frequency's active transmission
// is spoken aloud. It speaks each distinct activation once per session.
package announce

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"stationconsole/activity"
	"stationconsole/station"
)

const (
	DefaultLocale = "en-US"
	DefaultRate   = 0.9
)

// ErrUnavailable marks a speaker with no working audio output. The driver
// treats it as silence rather than a failure.
var ErrUnavailable = errors.New("speech unavailable")

// Utterance is one piece of text handed to a speaker.
type Utterance struct {
	Text   string
	Locale string
	Rate   float64
}

// Speaker is the text-to-speech capability. Cancel stops everything queued or playing.
type Speaker interface {
	Speak(u Utterance) error
	Cancel() error
}

// State is the announcer's position in its lifecycle.
type State int

const (
	Idle State = iota
	Watching
	Announced
)

func (s State) String() string {
	switch s {
	case Watching:
		return "watching"
	case Announced:
		return "announced"
	default:
		return "idle"
	}
}

// Event describes one announcement.
type Event struct {
	SessionID    uuid.UUID
	Frequency    station.Frequency
	Transmission station.Transmission
	Text         string
	At           time.Time
}

// Options tunes utterances and reporting. Zero values take defaults.
type Options struct {
	Locale string
	Rate   float64
	Sink   func(Event)
	Logf   func(string, ...any)
}

// Driver is not safe for concurrent use; the console goroutine owns it.
type Driver struct {
	speaker Speaker
	opts    Options

	state   State
	marker  int64
	session uuid.UUID

	freq station.Frequency
	ts   []station.Transmission
}

// NewDriver returns an Idle driver. A nil speaker produces no audio.
func NewDriver(sp Speaker, opts Options) *Driver {
	if strings.TrimSpace(opts.Locale) == "" {
		opts.Locale = DefaultLocale
	}
	if opts.Rate <= 0 {
		opts.Rate = DefaultRate
	}
	if opts.Logf == nil {
		opts.Logf = log.Printf
	}
	return &Driver{speaker: sp, opts: opts}
}

// State returns the lifecycle state and, when Announced, the spoken transmission id.
func (d *Driver) State() (State, int64) {
	return d.state, d.marker
}

// Enabled reports whether announcing is on.
func (d *Driver) Enabled() bool {
	return d.state != Idle
}

// Session is the id of the current enabled session, or uuid.Nil while Idle.
func (d *Driver) Session() uuid.UUID {
	return d.session
}

// Purpose: Turn announcing on and evaluate immediately.
// Key aspects: Starts a fresh session with no remembered transmission, so an
// already-active transmission is spoken right away. No-op when already enabled.
// Upstream: console ToggleSoundCommand.
// Downstream: Driver.evaluate.
func (d *Driver) Enable(now time.Time) {
	if d.state != Idle {
		return
	}
	d.session = uuid.New()
	d.marker = 0
	d.state = Watching
	d.evaluate(now)
}

// Purpose: Turn announcing off.
// Key aspects: Cancels in-flight speech synchronously and forgets the marker.
// Upstream: console ToggleSoundCommand, console teardown.
// Downstream: Speaker.Cancel.
func (d *Driver) Disable() {
	wasEnabled := d.state != Idle
	d.state = Idle
	d.marker = 0
	d.session = uuid.Nil
	if !wasEnabled || d.speaker == nil {
		return
	}
	if err := d.speaker.Cancel(); err != nil && !errors.Is(err, ErrUnavailable) {
		d.opts.Logf("Speech: cancel failed: %v", err)
	}
}

// Tick re-resolves on the periodic re-check. Ignored while Idle.
func (d *Driver) Tick(now time.Time) {
	if d.state == Idle {
		return
	}
	d.evaluate(now)
}

// Update replaces the watched frequency and its transmissions, re-evaluating
// when enabled so a window opened by a data refresh is not missed.
func (d *Driver) Update(freq station.Frequency, ts []station.Transmission, now time.Time) {
	d.freq = freq
	d.ts = ts
	if d.state == Idle {
		return
	}
	d.evaluate(now)
}

func (d *Driver) evaluate(now time.Time) {
	active, ok := activity.Resolve(d.ts, now)
	if !ok {
		d.state = Watching
		d.marker = 0
		return
	}
	if d.state == Announced && d.marker == active.ID {
		return
	}
	d.state = Announced
	d.marker = active.ID
	d.speak(active, now)
}

func (d *Driver) speak(t station.Transmission, now time.Time) {
	freq := d.freq
	if t.Frequency.Number != 0 {
		freq = t.Frequency
	}
	text := Text(freq, t)
	if d.speaker != nil {
		if err := d.speaker.Cancel(); err != nil && !errors.Is(err, ErrUnavailable) {
			d.opts.Logf("Speech: cancel before speak failed: %v", err)
		}
		err := d.speaker.Speak(Utterance{Text: text, Locale: d.opts.Locale, Rate: d.opts.Rate})
		if err != nil && !errors.Is(err, ErrUnavailable) {
			d.opts.Logf("Speech: speak transmission %d failed: %v", t.ID, err)
		}
	}
	if d.opts.Sink != nil {
		d.opts.Sink(Event{
			SessionID:    d.session,
			Frequency:    freq,
			Transmission: t,
			Text:         text,
			At:           now,
		})
	}
}

// Text renders the spoken form of a transmission on freq.
func Text(freq station.Frequency, t station.Transmission) string {
	return fmt.Sprintf("Transmission on frequency %d kHz.\nType: %s. Code: %s", freq.Number, t.Type, t.Code)
}
