package stationsync

import (
	"context"
	"time"

	"stationconsole/selection"
	"stationconsole/station"
)

// State is the console's copy of backend data. Only the console goroutine
// touches it.
type State struct {
	Snapshot    *station.Snapshot
	ByFrequency map[int][]station.Transmission
	Err         error
	LastSuccess time.Time
	LastAttempt time.Time
	Loading     bool
	Applied     uint64

	fingerprint uint64
}

// NewState starts in the loading state with no data.
func NewState() *State {
	return &State{Loading: true, ByFrequency: map[int][]station.Transmission{}}
}

// Change reports what an applied result altered.
type Change struct {
	Data      bool
	Frequency bool
	Failed    bool
}

// Purpose: Fold one fetch result into the state and reconcile the selection.
// Key aspects: Failures keep the previous snapshot and set Err; successes
// replace everything and clear Err. Last arrival wins.
// Upstream: console event loop.
// Downstream: selection.Store.Reconcile, station.Fingerprint.
func (s *State) Apply(ctx context.Context, r Result, sel *selection.Store) Change {
	s.Loading = false
	s.LastAttempt = r.At
	if r.Err != nil || r.Snapshot == nil {
		s.Err = r.Err
		return Change{Failed: true}
	}

	var before int
	var hadBefore bool
	if sel != nil {
		if cur, ok := sel.Current(); ok {
			before, hadBefore = cur.Number(), true
		}
	}

	changed := s.Snapshot == nil || !sameFrequencies(s.Snapshot.Frequencies, r.Snapshot.Frequencies)
	fp := station.Fingerprint(r.Snapshot.Transmissions())
	if fp != s.fingerprint {
		changed = true
	}

	s.Snapshot = r.Snapshot
	s.ByFrequency = r.Snapshot.GroupByFrequency()
	s.Err = nil
	s.LastSuccess = r.At
	s.Applied = r.Seq
	s.fingerprint = fp

	var freqChanged bool
	if sel != nil {
		cur, ok := sel.Reconcile(ctx, r.Snapshot.Frequencies)
		freqChanged = ok != hadBefore || (ok && cur.Number() != before)
	}
	return Change{Data: changed, Frequency: freqChanged}
}

// Frequencies returns the last known frequency list.
func (s *State) Frequencies() []station.Frequency {
	if s.Snapshot == nil {
		return nil
	}
	return s.Snapshot.Frequencies
}

// For returns the transmissions owned by the frequency with the given number.
func (s *State) For(number int) []station.Transmission {
	return s.ByFrequency[number]
}

func sameFrequencies(a, b []station.Frequency) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
