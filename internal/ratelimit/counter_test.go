package ratelimit

import (
	"testing"
	"time"
)

func TestCounterThrottlesWithinInterval(t *testing.T) {
	c := NewCounter(time.Minute)
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	if n, ok := c.Inc(start); n != 1 || !ok {
		t.Fatalf("expected first event logged, got n=%d ok=%v", n, ok)
	}
	if n, ok := c.Inc(start.Add(10 * time.Second)); n != 2 || ok {
		t.Fatalf("expected second event throttled, got n=%d ok=%v", n, ok)
	}
	if n, ok := c.Inc(start.Add(61 * time.Second)); n != 3 || !ok {
		t.Fatalf("expected event after interval logged, got n=%d ok=%v", n, ok)
	}
	if got := c.Reset(); got != 3 {
		t.Fatalf("expected streak 3, got %d", got)
	}
	if n, ok := c.Inc(start.Add(62 * time.Second)); n != 1 || !ok {
		t.Fatalf("expected new streak logged at once, got n=%d ok=%v", n, ok)
	}
}

func TestCounterZeroIntervalAlwaysLogs(t *testing.T) {
	c := NewCounter(0)
	now := time.Now()
	for i := 0; i < 3; i++ {
		if _, ok := c.Inc(now); !ok {
			t.Fatalf("expected every event logged")
		}
	}
	var nilCounter *Counter
	if _, ok := nilCounter.Inc(now); !ok || nilCounter.Reset() != 0 {
		t.Fatalf("nil counter should log and reset to zero")
	}
}
