// Package activity decides which transmission is on air on a frequency at a
// given instant.
package activity

import (
	"time"

	"stationconsole/station"
)

// Window returns the active window of t. Both bounds are inclusive.
func Window(t station.Transmission) (start, end time.Time) {
	return t.ScheduledTime, t.End()
}

// IsActive reports whether t is on air at instant: its status is scheduled or
// transmitting and start <= instant <= end.
func IsActive(t station.Transmission, instant time.Time) bool {
	if !t.Status.OnAir() {
		return false
	}
	start, end := Window(t)
	return !instant.Before(start) && !instant.After(end)
}

// Purpose: Pick the transmission on air at instant.
// Key aspects: First qualifying entry in list order wins; overlaps are not
// rejected and the list is not sorted.
// Upstream: announce.Driver, console frame builder.
// Downstream: IsActive.
func Resolve(ts []station.Transmission, instant time.Time) (station.Transmission, bool) {
	for _, t := range ts {
		if IsActive(t, instant) {
			return t, true
		}
	}
	return station.Transmission{}, false
}
