package announce

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"stationconsole/station"
)

type recordingSpeaker struct {
	spoken  []Utterance
	cancels int
	err     error
}

func (r *recordingSpeaker) Speak(u Utterance) error {
	r.spoken = append(r.spoken, u)
	return r.err
}

func (r *recordingSpeaker) Cancel() error {
	r.cancels++
	return r.err
}

var (
	base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	freq = station.Frequency{ID: 7, Number: 4625, Name: "Buzzer"}
)

func tx(id int64, start time.Time, seconds int) station.Transmission {
	return station.Transmission{
		ID:              id,
		Frequency:       freq,
		Code:            "12345",
		Type:            station.TypeNumbers,
		ScheduledTime:   start,
		DurationSeconds: seconds,
		Status:          station.StatusScheduled,
	}
}

func quiet(string, ...any) {}

func TestEnableWithActiveSpeaksOnceThenSuppresses(t *testing.T) {
	sp := &recordingSpeaker{}
	d := NewDriver(sp, Options{Logf: quiet})
	d.Update(freq, []station.Transmission{tx(42, base, 30)}, base.Add(5*time.Second))

	if len(sp.spoken) != 0 {
		t.Fatalf("expected silence while idle")
	}
	d.Enable(base.Add(5 * time.Second))
	if len(sp.spoken) != 1 {
		t.Fatalf("expected one announcement on enable, got %d", len(sp.spoken))
	}
	if st, id := d.State(); st != Announced || id != 42 {
		t.Fatalf("expected Announced(42), got %v(%d)", st, id)
	}
	d.Tick(base.Add(10 * time.Second))
	d.Tick(base.Add(15 * time.Second))
	if len(sp.spoken) != 1 {
		t.Fatalf("expected no repeat for the same transmission, got %d", len(sp.spoken))
	}
}

func TestTickSpeaksWhenWindowOpens(t *testing.T) {
	sp := &recordingSpeaker{}
	d := NewDriver(sp, Options{Logf: quiet})
	d.Update(freq, []station.Transmission{tx(1, base.Add(7*time.Second), 30)}, base)
	d.Enable(base)
	if st, _ := d.State(); st != Watching || len(sp.spoken) != 0 {
		t.Fatalf("expected Watching with no speech, got %v and %d", st, len(sp.spoken))
	}
	d.Tick(base.Add(10 * time.Second))
	if len(sp.spoken) != 1 {
		t.Fatalf("expected exactly one announcement, got %d", len(sp.spoken))
	}
}

func TestUpdateReevaluatesBetweenTicks(t *testing.T) {
	sp := &recordingSpeaker{}
	d := NewDriver(sp, Options{Logf: quiet})
	d.Update(freq, nil, base)
	d.Enable(base)
	d.Update(freq, []station.Transmission{tx(3, base, 30)}, base.Add(2*time.Second))
	if len(sp.spoken) != 1 {
		t.Fatalf("expected data refresh to trigger announcement, got %d", len(sp.spoken))
	}
	d.Update(freq, []station.Transmission{tx(3, base, 30)}, base.Add(4*time.Second))
	if len(sp.spoken) != 1 {
		t.Fatalf("expected refresh with same transmission to stay quiet, got %d", len(sp.spoken))
	}
}

func TestDisableCancelsAndReenableStartsFresh(t *testing.T) {
	sp := &recordingSpeaker{}
	var events []Event
	d := NewDriver(sp, Options{Logf: quiet, Sink: func(e Event) { events = append(events, e) }})
	d.Update(freq, []station.Transmission{tx(9, base, 60)}, base)
	d.Enable(base)
	first := d.Session()

	cancelsBefore := sp.cancels
	d.Disable()
	if sp.cancels != cancelsBefore+1 {
		t.Fatalf("expected disable to cancel speech")
	}
	if st, id := d.State(); st != Idle || id != 0 || d.Session() != uuid.Nil {
		t.Fatalf("expected Idle with cleared marker, got %v(%d)", st, id)
	}
	d.Tick(base.Add(5 * time.Second))
	if len(sp.spoken) != 1 {
		t.Fatalf("expected ticks ignored while idle")
	}

	d.Enable(base.Add(10 * time.Second))
	if len(sp.spoken) != 2 {
		t.Fatalf("expected re-enable to announce again, got %d", len(sp.spoken))
	}
	if len(events) != 2 || events[0].SessionID != first || events[1].SessionID == first {
		t.Fatalf("expected one event per session with distinct ids, got %+v", events)
	}
}

func TestNoActiveClearsMarker(t *testing.T) {
	sp := &recordingSpeaker{}
	d := NewDriver(sp, Options{Logf: quiet})
	d.Update(freq, []station.Transmission{tx(5, base, 10)}, base)
	d.Enable(base)
	d.Tick(base.Add(20 * time.Second))
	if st, id := d.State(); st != Watching || id != 0 {
		t.Fatalf("expected Watching after window closed, got %v(%d)", st, id)
	}
	d.Update(freq, []station.Transmission{tx(5, base.Add(25*time.Second), 10)}, base.Add(25*time.Second))
	if len(sp.spoken) != 2 {
		t.Fatalf("expected the same id to be spoken again after a gap, got %d", len(sp.spoken))
	}
}

func TestDistinctTransmissionSpeaks(t *testing.T) {
	sp := &recordingSpeaker{}
	d := NewDriver(sp, Options{Logf: quiet})
	list := []station.Transmission{tx(1, base, 10), tx(2, base.Add(10*time.Second), 10)}
	d.Update(freq, list, base)
	d.Enable(base)
	// At the shared boundary the first in list order still wins.
	d.Tick(base.Add(10 * time.Second))
	d.Tick(base.Add(15 * time.Second))
	if len(sp.spoken) != 2 {
		t.Fatalf("expected two announcements, got %d", len(sp.spoken))
	}
	if st, id := d.State(); st != Announced || id != 2 {
		t.Fatalf("expected Announced(2), got %v(%d)", st, id)
	}
}

func TestUnavailableSpeakerStillTransitions(t *testing.T) {
	sp := &recordingSpeaker{err: ErrUnavailable}
	var logged int
	d := NewDriver(sp, Options{Logf: func(string, ...any) { logged++ }})
	d.Update(freq, []station.Transmission{tx(4, base, 30)}, base)
	d.Enable(base)
	if st, id := d.State(); st != Announced || id != 4 {
		t.Fatalf("expected Announced(4), got %v(%d)", st, id)
	}
	if logged != 0 {
		t.Fatalf("expected unavailable speech to stay silent, logged %d", logged)
	}

	nilDriver := NewDriver(nil, Options{Logf: quiet})
	nilDriver.Update(freq, []station.Transmission{tx(4, base, 30)}, base)
	nilDriver.Enable(base)
	nilDriver.Disable()
}

func TestUtteranceShape(t *testing.T) {
	sp := &recordingSpeaker{}
	d := NewDriver(sp, Options{Logf: quiet})
	d.Update(freq, []station.Transmission{tx(8, base, 30)}, base)
	d.Enable(base)
	u := sp.spoken[0]
	want := "Transmission on frequency 4625 kHz.\nType: numbers. Code: 12345"
	if u.Text != want {
		t.Fatalf("unexpected text %q", u.Text)
	}
	if u.Locale != "en-US" || u.Rate != 0.9 {
		t.Fatalf("unexpected voice settings %+v", u)
	}
	if sp.cancels == 0 {
		t.Fatalf("expected cancel before speak")
	}
	if !strings.Contains(Text(freq, tx(1, base, 1)), "4625") {
		t.Fatalf("expected frequency number in text")
	}
}
