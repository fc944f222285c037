package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"stationconsole/announce"
	"stationconsole/station"
)

func openTest(t *testing.T) *Recorder {
	t.Helper()
	r, err := Open(filepath.Join(t.TempDir(), "history.db"), func(string, ...any) {})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func event(id int64, at time.Time) announce.Event {
	f := station.Frequency{ID: 1, Number: 4625}
	tr := station.Transmission{ID: id, Frequency: f, Code: "ALFA", Type: station.TypeNames}
	return announce.Event{
		SessionID:    uuid.New(),
		Frequency:    f,
		Transmission: tr,
		Text:         announce.Text(f, tr),
		At:           at,
	}
}

func TestRecordAndRecent(t *testing.T) {
	r := openTest(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	first := event(1, base)
	r.Record(first)
	r.Record(event(2, base.Add(time.Minute)))
	r.Flush()

	got, err := r.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	if got[0].TransmissionID != 2 || got[1].TransmissionID != 1 {
		t.Fatalf("expected newest first, got %d then %d", got[0].TransmissionID, got[1].TransmissionID)
	}
	e := got[1]
	if e.SessionID != first.SessionID.String() || e.FrequencyNumber != 4625 || e.Type != station.TypeNames || e.Code != "ALFA" {
		t.Fatalf("unexpected entry %+v", e)
	}
	if !e.SpokenAt.Equal(base) || e.Text != first.Text {
		t.Fatalf("unexpected time/text %v %q", e.SpokenAt, e.Text)
	}
}

func TestPurgeOlderThan(t *testing.T) {
	r := openTest(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r.Record(event(1, base.Add(-48*time.Hour)))
	r.Record(event(2, base))
	r.Flush()

	n, err := r.PurgeOlderThan(context.Background(), base.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 purged, got %d", n)
	}
	got, _ := r.Recent(context.Background(), 0)
	if len(got) != 1 || got[0].TransmissionID != 2 {
		t.Fatalf("unexpected remaining entries %+v", got)
	}
}

func TestClosedRecorder(t *testing.T) {
	r := openTest(t)
	if err := r.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	r.Record(event(1, time.Now()))
	if _, err := r.Recent(context.Background(), 1); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}
