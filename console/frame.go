package console

import (
	"time"

	"stationconsole/activity"
	"stationconsole/announce"
	"stationconsole/clock"
	"stationconsole/station"
	"stationconsole/stationapi"
)

// Frame is an immutable snapshot of everything the operator sees.
type Frame struct {
	Now      time.Time
	LocalNow string
	UTCNow   string

	Loading     bool
	Error       string
	LastSuccess time.Time

	Frequencies []station.Frequency
	Schedules   []Schedule

	Selected      station.Frequency
	SelectedIndex int
	HasSelection  bool

	Active    station.Transmission
	HasActive bool

	Sound       bool
	ReaderState announce.State
	Spoken      int64

	EncryptionKeys int
}

// Schedule lists the on-air rows of one frequency.
type Schedule struct {
	Frequency station.Frequency
	Rows      []Row
}

// Row is one scheduled or transmitting transmission with display times.
type Row struct {
	Transmission station.Transmission
	Local        string
	UTC          string
	Active       bool
}

// Purpose: Assemble the frame for the current console state.
// Key aspects: Only scheduled/transmitting rows are listed, grouped by number
// in frequency order.
// Upstream: Console.render.
// Downstream: activity.Resolve, clock.Display.
func (c *Console) buildFrame() Frame {
	now := c.clock.Now()
	local, utc := clock.Display(now)
	f := Frame{
		Now:         now,
		LocalNow:    local,
		UTCNow:      utc,
		Loading:     c.state.Loading,
		LastSuccess: c.state.LastSuccess,
		Sound:       c.driver.Enabled(),
	}
	f.ReaderState, f.Spoken = c.driver.State()
	if c.state.Err != nil {
		f.Error = stationapi.UserMessage(c.state.Err)
	}
	if snap := c.state.Snapshot; snap != nil {
		f.Frequencies = snap.Frequencies
		f.EncryptionKeys = len(snap.EncryptionKeys)
	}
	for _, freq := range f.Frequencies {
		sched := Schedule{Frequency: freq}
		for _, t := range c.state.For(freq.Number) {
			if !t.Status.OnAir() {
				continue
			}
			l, u := clock.Display(t.ScheduledTime)
			sched.Rows = append(sched.Rows, Row{
				Transmission: t,
				Local:        l,
				UTC:          u,
				Active:       activity.IsActive(t, now),
			})
		}
		f.Schedules = append(f.Schedules, sched)
	}
	if sel, ok := c.store.Current(); ok {
		f.Selected = sel.Frequency
		f.SelectedIndex = sel.Index
		f.HasSelection = true
		f.Active, f.HasActive = activity.Resolve(c.state.For(sel.Number()), now)
	}
	return f
}
