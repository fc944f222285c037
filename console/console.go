// Package console runs the live view: one goroutine owns the selection, the
// synchronized data and the announcer, and publishes frames to a View.
package console

import (
	"context"
	"log"
	"time"

	"stationconsole/announce"
	"stationconsole/clock"
	"stationconsole/selection"
	"stationconsole/stationsync"
)

const (
	DefaultClockInterval   = time.Second
	DefaultRecheckInterval = 5 * time.Second
)

// View receives frames. Render is called from the console goroutine and must not block.
type View interface {
	Render(Frame)
}

// Command is an operator action delivered to the console goroutine.
type Command interface {
	command()
}

// StepCommand moves the selection by Delta entries, wrapping at the ends.
type StepCommand struct{ Delta int }

// TuneCommand selects the frequency closest to free-form input.
type TuneCommand struct{ Input string }

// SelectCommand selects an exact frequency number.
type SelectCommand struct{ Number int }

// ToggleSoundCommand flips announcing on or off.
type ToggleSoundCommand struct{}

// RefreshCommand fetches now instead of waiting for the next interval.
type RefreshCommand struct{}

func (StepCommand) command()        {}
func (TuneCommand) command()        {}
func (SelectCommand) command()      {}
func (ToggleSoundCommand) command() {}
func (RefreshCommand) command()     {}

// Ticker is the subset of time.Ticker the console uses.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type stdTicker struct{ t *time.Ticker }

func (s stdTicker) C() <-chan time.Time { return s.t.C }
func (s stdTicker) Stop()               { s.t.Stop() }

func newStdTicker(d time.Duration) Ticker {
	return stdTicker{t: time.NewTicker(d)}
}

// Config holds the console cadences. Zero values take defaults.
type Config struct {
	ClockInterval   time.Duration
	RecheckInterval time.Duration
	Sync            stationsync.Config
	// SoundOnStart enables announcing as soon as Run begins.
	SoundOnStart bool
}

// Options injects collaborators. Store, Driver and Fetcher are required.
type Options struct {
	Fetcher   stationsync.Fetcher
	Store     *selection.Store
	Driver    *announce.Driver
	View      View
	Clock     clock.Clock
	Logger    *log.Logger
	NewTicker func(time.Duration) Ticker
}

// Console is the live view controller.
type Console struct {
	cfg       Config
	store     *selection.Store
	driver    *announce.Driver
	view      View
	clock     clock.Clock
	logger    *log.Logger
	newTicker func(time.Duration) Ticker

	sync     *stationsync.Synchronizer
	results  chan stationsync.Result
	commands chan Command
	done     chan struct{}

	state *stationsync.State
}

// New wires a console. Nothing runs until Run is called.
func New(cfg Config, opts Options) *Console {
	if cfg.ClockInterval <= 0 {
		cfg.ClockInterval = DefaultClockInterval
	}
	if cfg.RecheckInterval <= 0 {
		cfg.RecheckInterval = DefaultRecheckInterval
	}
	if opts.Clock == nil {
		opts.Clock = clock.System{}
	}
	if opts.NewTicker == nil {
		opts.NewTicker = newStdTicker
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	results := make(chan stationsync.Result, 4)
	return &Console{
		cfg:       cfg,
		store:     opts.Store,
		driver:    opts.Driver,
		view:      opts.View,
		clock:     opts.Clock,
		logger:    opts.Logger,
		newTicker: opts.NewTicker,
		sync:      stationsync.New(opts.Fetcher, cfg.Sync, results, opts.Clock, opts.Logger),
		results:   results,
		commands:  make(chan Command, 16),
		done:      make(chan struct{}),
		state:     stationsync.NewState(),
	}
}

// Send queues cmd for the console goroutine. It returns false once the
// console has stopped or ctx is done.
func (c *Console) Send(ctx context.Context, cmd Command) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.commands <- cmd:
		return true
	case <-c.done:
		return false
	case <-ctx.Done():
		return false
	}
}

// Done is closed when Run has returned.
func (c *Console) Done() <-chan struct{} {
	return c.done
}

// Purpose: Own all console state until ctx is cancelled.
// Key aspects: Three tickers (clock, data, re-check) plus commands. The re-check
// ticker only exists while announcing is on. Teardown stops every ticker,
// abandons in-flight fetches and silences speech.
// Upstream: main.
// Downstream: stationsync.Synchronizer, stationsync.State, announce.Driver, View.
func (c *Console) Run(ctx context.Context) error {
	defer close(c.done)

	syncCtx, cancelSync := context.WithCancel(ctx)
	clockTicker := c.newTicker(c.cfg.ClockInterval)
	var recheck Ticker
	var recheckC <-chan time.Time

	startRecheck := func() {
		if recheck != nil {
			return
		}
		recheck = c.newTicker(c.cfg.RecheckInterval)
		recheckC = recheck.C()
	}
	stopRecheck := func() {
		if recheck == nil {
			return
		}
		recheck.Stop()
		recheck, recheckC = nil, nil
	}
	defer func() {
		clockTicker.Stop()
		stopRecheck()
		cancelSync()
		c.driver.Disable()
	}()

	c.logger.Printf("Console: refreshing station data every %s", c.sync.Interval())
	c.sync.Start(syncCtx)
	if c.cfg.SoundOnStart {
		c.driver.Enable(c.clock.Now())
		startRecheck()
	}
	c.render()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-clockTicker.C():
		case res := <-c.results:
			change := c.state.Apply(ctx, res, c.store)
			if change.Data || change.Frequency {
				c.updateDriver()
			}
		case <-recheckC:
			c.driver.Tick(c.clock.Now())
		case cmd := <-c.commands:
			switch cmd := cmd.(type) {
			case ToggleSoundCommand:
				if c.driver.Enabled() {
					stopRecheck()
					c.driver.Disable()
					c.logger.Printf("Console: announcements off")
				} else {
					c.driver.Enable(c.clock.Now())
					startRecheck()
					c.logger.Printf("Console: announcements on")
				}
			case RefreshCommand:
				c.sync.Refresh(syncCtx)
			default:
				if c.handleSelection(ctx, cmd) {
					c.updateDriver()
				}
			}
		}
		c.render()
	}
}

// Wait blocks until background fetches have drained after Run returns.
func (c *Console) Wait() {
	<-c.done
	c.sync.Wait()
}

func (c *Console) handleSelection(ctx context.Context, cmd Command) bool {
	freqs := c.state.Frequencies()
	before, had := c.store.Current()
	switch cmd := cmd.(type) {
	case StepCommand:
		c.store.Step(ctx, freqs, cmd.Delta)
	case TuneCommand:
		c.store.Tune(ctx, freqs, cmd.Input)
	case SelectCommand:
		idx := -1
		for i, f := range freqs {
			if f.Number == cmd.Number {
				idx = i
				break
			}
		}
		if idx < 0 {
			c.logger.Printf("Console: frequency %d is not in the current list", cmd.Number)
			return false
		}
		c.store.Select(ctx, freqs[idx], idx)
	default:
		return false
	}
	after, ok := c.store.Current()
	return ok != had || after.Number() != before.Number()
}

func (c *Console) updateDriver() {
	sel, ok := c.store.Current()
	if !ok {
		c.driver.Update(sel.Frequency, nil, c.clock.Now())
		return
	}
	c.driver.Update(sel.Frequency, c.state.For(sel.Number()), c.clock.Now())
}

func (c *Console) render() {
	if c.view == nil {
		return
	}
	c.view.Render(c.buildFrame())
}
