package config

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadDirectoryMergesFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "app.yaml", `api:
  base_url: "http://station.local/api/"
speech:
  backend: mqtt
  mqtt:
    broker: broker.local
`)
	writeFile(t, dir, "speech.yaml", `speech:
  mqtt:
    topic: radio/room1
refresh:
  data_seconds: 30
`)
	writeFile(t, dir, "notes.txt", "ignored: true\n")

	t.Setenv(EnvAPIBaseURL, "")
	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got := filepath.Clean(cfg.LoadedFrom); got != filepath.Clean(dir) {
		t.Fatalf("expected LoadedFrom=%s, got %s", dir, got)
	}
	if cfg.API.BaseURL != "http://station.local/api/" {
		t.Fatalf("unexpected base url %q", cfg.API.BaseURL)
	}
	if cfg.Speech.MQTT.Broker != "broker.local" || cfg.Speech.MQTT.Topic != "radio/room1" {
		t.Fatalf("expected nested speech.mqtt keys merged, got %+v", cfg.Speech.MQTT)
	}
	if cfg.Refresh.DataSeconds != 30 || cfg.Refresh.RecheckSeconds != 5 {
		t.Fatalf("unexpected refresh %+v", cfg.Refresh)
	}
}

func TestLoadSingleFileAppliesDefaults(t *testing.T) {
	path := writeFile(t, t.TempDir(), "console.yaml", "history:\n  enabled: false\n")
	t.Setenv(EnvAPIBaseURL, "")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.API.BaseURL != DefaultAPIBaseURL || cfg.API.TimeoutSeconds != 5 {
		t.Fatalf("unexpected api defaults %+v", cfg.API)
	}
	if cfg.Refresh.ClockSeconds != 1 || cfg.Refresh.DataSeconds != 10 || cfg.Refresh.RecheckSeconds != 5 {
		t.Fatalf("unexpected refresh defaults %+v", cfg.Refresh)
	}
	if cfg.Selection.Backend != "pebble" || cfg.Selection.Key != "transmission_current_frequency" {
		t.Fatalf("unexpected selection defaults %+v", cfg.Selection)
	}
	if cfg.Speech.Backend != "none" || cfg.Speech.Locale != "en-US" || cfg.Speech.Rate != 0.9 {
		t.Fatalf("unexpected speech defaults %+v", cfg.Speech)
	}
	if cfg.History.IsEnabled() {
		t.Fatalf("expected history disabled")
	}
	if !Default().History.IsEnabled() {
		t.Fatalf("expected history enabled by default")
	}
}

func TestEnvOverridesBaseURL(t *testing.T) {
	t.Setenv(EnvAPIBaseURL, "http://env.example/api/")
	if got := Default().API.BaseURL; got != "http://env.example/api/" {
		t.Fatalf("expected env override, got %q", got)
	}
}

func TestLoadRejectsUnknownBackends(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "app.yaml", "speech:\n  backend: festival\n")
	if _, err := Load(dir); err == nil || !strings.Contains(err.Error(), "speech.backend") {
		t.Fatalf("expected speech.backend error, got %v", err)
	}
}

func TestLoadMissingPath(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing")); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestPrint(t *testing.T) {
	var buf bytes.Buffer
	Default().Print(&buf)
	if !strings.Contains(buf.String(), "Selection: pebble data/prefs") {
		t.Fatalf("unexpected print output:\n%s", buf.String())
	}
}
