// Package ui renders console frames in a terminal dashboard, or as log lines
// when no terminal is attached.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"stationconsole/announce"
	"stationconsole/console"
)

const (
	announceMaxLines = 200
	systemMaxLines   = 200
)

type paneEvent struct {
	system bool
	line   string
}

// Dashboard is the tview front end.
type Dashboard struct {
	app       *tview.Application
	pages     *tview.Pages
	clock     *tview.TextView
	reader    *pane
	stations  *pane
	announces *pane
	system    *pane
	tune      *tview.InputField
	focus     focusGroup
	throttle  *frameThrottle

	// Touched only on the tview goroutine.
	announceBuf lineBuffer
	systemBuf   lineBuffer
	tuning      bool

	send     func(console.Command)
	events   chan paneEvent
	stopped  chan struct{}
	closed   atomic.Bool
	ready    chan struct{}
	quit     chan struct{}
	quitOnce sync.Once
}

// Purpose: Build and start the dashboard application.
// Key aspects: Draws are throttled to targetFPS and only the newest frame is
// kept. Key presses become console commands through send.
// Upstream: main when stdout is a terminal.
// Downstream: tview.Application.Run, frameThrottle.
func NewDashboard(targetFPS int, send func(console.Command)) *Dashboard {
	clockView := tview.NewTextView().SetDynamicColors(true).SetWrap(false)
	reader := newPane("Reader")
	reader.tv.SetWrap(true)
	stations := newPane("Station Frequencies")
	announces := newPane("Announcements")
	system := newPane("System")
	system.tv.SetTextColor(tcell.ColorYellow)

	right := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(reader.tv, 9, 0, false).
		AddItem(announces.tv, 0, 1, false)
	body := tview.NewFlex().
		AddItem(stations.tv, 0, 3, true).
		AddItem(right, 0, 2, false)
	layout := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(clockView, 1, 0, false).
		AddItem(body, 0, 1, true).
		AddItem(system.tv, 8, 0, false)

	tune := tview.NewInputField().
		SetLabel("Tune to (number or name): ").
		SetFieldWidth(24)
	tune.SetBorder(true).SetTitle(" Tune ")
	modal := tview.NewFlex().
		AddItem(nil, 0, 1, false).
		AddItem(tview.NewFlex().SetDirection(tview.FlexRow).
			AddItem(nil, 0, 1, false).
			AddItem(tune, 3, 0, true).
			AddItem(nil, 0, 1, false), 48, 0, true).
		AddItem(nil, 0, 1, false)

	pages := tview.NewPages().
		AddPage("main", layout, true, true).
		AddPage("tune", modal, true, false)

	app := tview.NewApplication().SetRoot(pages, true).EnableMouse(false)
	ready := make(chan struct{})
	var once sync.Once
	app.SetBeforeDrawFunc(func(screen tcell.Screen) bool {
		once.Do(func() { close(ready) })
		return false
	})

	if send == nil {
		send = func(console.Command) {}
	}
	d := &Dashboard{
		app:         app,
		pages:       pages,
		clock:       clockView,
		reader:      reader,
		stations:    stations,
		announces:   announces,
		system:      system,
		tune:        tune,
		focus:       newFocusGroup(stations, announces, system),
		announceBuf: lineBuffer{max: announceMaxLines},
		systemBuf:   lineBuffer{max: systemMaxLines},
		send:        send,
		events:      make(chan paneEvent, 256),
		stopped:     make(chan struct{}),
		ready:       ready,
		quit:        make(chan struct{}),
	}
	d.throttle = newFrameThrottle(targetFPS, 100*time.Millisecond, d.draw)
	d.focus.set(nil, 0)
	tune.SetDoneFunc(d.onTuneDone)
	app.SetInputCapture(d.onKey)

	d.throttle.Start()
	go d.runEventLoop()
	go func() {
		if err := app.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "dashboard error: %v\n", err)
		}
		d.requestQuit()
	}()
	return d
}

func (d *Dashboard) onKey(ev *tcell.EventKey) *tcell.EventKey {
	if d.tuning {
		return ev
	}
	switch ev.Key() {
	case tcell.KeyCtrlC:
		d.requestQuit()
		return nil
	case tcell.KeyLeft:
		d.send(console.StepCommand{Delta: -1})
		return nil
	case tcell.KeyRight:
		d.send(console.StepCommand{Delta: 1})
		return nil
	case tcell.KeyTab:
		d.focus.cycle(d.app, 1)
		return nil
	case tcell.KeyBacktab:
		d.focus.cycle(d.app, -1)
		return nil
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'h':
			d.send(console.StepCommand{Delta: -1})
		case 'l':
			d.send(console.StepCommand{Delta: 1})
		case 's':
			d.send(console.ToggleSoundCommand{})
		case 'r':
			d.send(console.RefreshCommand{})
		case 't':
			d.tuning = true
			d.tune.SetText("")
			d.pages.ShowPage("tune")
			d.app.SetFocus(d.tune)
		case 'q':
			d.requestQuit()
		default:
			return ev
		}
		return nil
	}
	if p := d.focus.focused(); p != nil && p.scroll(ev) {
		return nil
	}
	return ev
}

func (d *Dashboard) onTuneDone(key tcell.Key) {
	input := strings.TrimSpace(d.tune.GetText())
	d.tuning = false
	d.pages.HidePage("tune")
	d.focus.set(d.app, d.focus.index)
	if key == tcell.KeyEnter && input != "" {
		d.send(console.TuneCommand{Input: input})
	}
}

// Render queues the frame for the next draw.
func (d *Dashboard) Render(f console.Frame) {
	if d == nil || d.closed.Load() {
		return
	}
	d.throttle.Submit(f)
}

func (d *Dashboard) draw(f console.Frame) {
	clock := clockText(f)
	reader := readerText(f)
	stations := scheduleText(f)
	d.app.QueueUpdateDraw(func() {
		d.clock.SetText(clock)
		d.reader.tv.SetText(reader)
		row, col := d.stations.tv.GetScrollOffset()
		d.stations.tv.SetText(stations)
		d.stations.tv.ScrollTo(row, col)
	})
}

// Announce appends a spoken announcement to its pane.
func (d *Dashboard) Announce(ev announce.Event) {
	d.enqueue(paneEvent{line: announcementLine(ev)})
}

// AppendSystem appends a line to the system pane.
func (d *Dashboard) AppendSystem(line string) {
	d.enqueue(paneEvent{system: true, line: line})
}

func (d *Dashboard) enqueue(ev paneEvent) {
	if d == nil || d.closed.Load() {
		return
	}
	select {
	case d.events <- ev:
	default:
		// Drop when the UI lags rather than block the caller.
	}
}

func (d *Dashboard) runEventLoop() {
	for {
		var ev paneEvent
		select {
		case ev = <-d.events:
		case <-d.stopped:
			return
		}
		d.app.QueueUpdateDraw(func() {
			if ev.system {
				d.system.tv.SetText(d.systemBuf.add(ev.line))
				d.system.tv.ScrollToEnd()
				return
			}
			d.announces.tv.SetText(d.announceBuf.add(ev.line))
			d.announces.tv.ScrollToEnd()
		})
	}
}

// SystemWriter adapts the system pane for the log fan-out.
func (d *Dashboard) SystemWriter() io.Writer {
	return systemWriter{d: d}
}

type systemWriter struct{ d *Dashboard }

func (w systemWriter) Write(p []byte) (int, error) {
	for _, line := range strings.Split(strings.TrimRight(string(p), "\n"), "\n") {
		w.d.AppendSystem(tview.Escape(line))
	}
	return len(p), nil
}

// WaitReady blocks until the first draw.
func (d *Dashboard) WaitReady() {
	<-d.ready
}

func (d *Dashboard) Quit() <-chan struct{} {
	return d.quit
}

func (d *Dashboard) requestQuit() {
	d.quitOnce.Do(func() { close(d.quit) })
}

// Stop tears down the application. Safe to call more than once.
func (d *Dashboard) Stop() {
	if d == nil || !d.closed.CompareAndSwap(false, true) {
		return
	}
	d.throttle.Stop()
	close(d.stopped)
	d.app.Stop()
	d.requestQuit()
}
