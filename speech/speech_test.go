package speech

import (
	"errors"
	"os/exec"
	"strings"
	"testing"
	"time"

	"stationconsole/announce"
)

func TestExpandArgs(t *testing.T) {
	u := announce.Utterance{Text: "Transmission on frequency 4625 kHz.", Locale: "en-US", Rate: 0.9}
	got := ExpandArgs(DefaultArgs, u)
	want := []string{"-v", "en-us", "-s", "158", "Transmission on frequency 4625 kHz."}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("expected %q, got %q", want, got)
	}
	if got := ExpandArgs([]string{"--rate={wpm}"}, announce.Utterance{}); got[0] != "--rate=175" {
		t.Fatalf("expected default rate, got %q", got[0])
	}
}

func TestMissingProgramIsUnavailable(t *testing.T) {
	c := NewCommand("stationconsole-no-such-tts", nil, func(string, ...any) {})
	if c.Available() {
		t.Fatalf("expected program to be missing")
	}
	err := c.Speak(announce.Utterance{Text: "x"})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if err := c.Cancel(); err != nil {
		t.Fatalf("cancel with nothing running: %v", err)
	}
}

func TestCancelKillsRunningProcess(t *testing.T) {
	if _, err := exec.LookPath("sleep"); err != nil {
		t.Skip("sleep not available")
	}
	c := NewCommand("sleep", []string{"30"}, func(string, ...any) {})
	if err := c.Speak(announce.Utterance{Text: "x"}); err != nil {
		t.Fatalf("speak: %v", err)
	}
	if !c.Speaking() {
		t.Fatalf("expected process running")
	}
	if err := c.Cancel(); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if c.Speaking() {
		t.Fatalf("expected process cleared after cancel")
	}
}

func TestEncodeSpeak(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	body, err := EncodeSpeak(announce.Utterance{Text: "hi", Locale: "en-US", Rate: 0.9}, at)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	want := `{"text":"hi","locale":"en-US","rate":0.9,"at":"2026-03-01T12:00:00Z"}`
	if string(body) != want {
		t.Fatalf("expected %s, got %s", want, body)
	}
}

func TestDisconnectedMQTTIsUnavailable(t *testing.T) {
	var m *MQTT
	if err := m.Speak(announce.Utterance{Text: "x"}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if err := (Nop{}).Speak(announce.Utterance{}); err != nil {
		t.Fatalf("nop speak: %v", err)
	}
}
