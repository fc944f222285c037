// Package speech provides the audio backends behind announce.Speaker.
package speech

import (
	"log"

	"stationconsole/announce"
)

// ErrUnavailable is returned when a backend cannot produce audio right now.
var ErrUnavailable = announce.ErrUnavailable

// Nop is a speaker that produces nothing. It is the default when no
// backend is configured.
type Nop struct{}

func (Nop) Speak(announce.Utterance) error { return nil }
func (Nop) Cancel() error                  { return nil }

var (
	_ announce.Speaker = Nop{}
	_ announce.Speaker = (*Command)(nil)
	_ announce.Speaker = (*MQTT)(nil)
)

func logfOrDefault(logf func(string, ...any)) func(string, ...any) {
	if logf == nil {
		return log.Printf
	}
	return logf
}
