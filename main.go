// Command stationconsole is the live operator console for a numbers-station
// backend: it polls station data, shows each frequency's on-air schedule and
// reads out active transmissions on the tuned frequency.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/term"

	"stationconsole/announce"
	"stationconsole/config"
	"stationconsole/console"
	"stationconsole/history"
	"stationconsole/prefstore"
	"stationconsole/selection"
	"stationconsole/speech"
	"stationconsole/stationapi"
	"stationconsole/stationsync"
	"stationconsole/ui"
)

// Version is overridden at build time with -ldflags.
var Version = "dev"

const historyPurgeInterval = 24 * time.Hour

// prefBackend is a selection.KV that also owns a connection or file handle.
type prefBackend interface {
	selection.KV
	Close() error
}

// Purpose: Report whether stdout is a TTY for UI gating.
// Key aspects: Uses term.IsTerminal on stdout fd.
// Upstream: chooseSurface.
// Downstream: term.IsTerminal.
func isStdoutTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// Purpose: Load configuration from env/default locations.
// Key aspects: Tries the env override first, then the default config dir, and
// falls back to built-in defaults when neither exists.
// Upstream: main startup.
// Downstream: config.Load, config.Default.
func loadConsoleConfig() (*config.Config, string, error) {
	candidates := make([]string, 0, 2)
	if envPath := strings.TrimSpace(os.Getenv(config.EnvConfigPath)); envPath != "" {
		candidates = append(candidates, envPath)
	}
	candidates = append(candidates, config.DefaultConfigPath)

	for _, path := range candidates {
		cfg, err := config.Load(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, path, err
		}
		return cfg, cfg.LoadedFrom, nil
	}
	return config.Default(), "built-in defaults", nil
}

// Purpose: Open the preference backend named by selection.backend.
// Key aspects: Redis failures fall back to process memory so the console
// still runs; Pebble failures are fatal because the path is local.
// Upstream: main startup.
// Downstream: prefstore.OpenPebble, prefstore.OpenRedis, prefstore.NewMemory.
func openPrefBackend(ctx context.Context, cfg config.SelectionConfig) (prefBackend, error) {
	switch cfg.Backend {
	case "memory":
		return prefstore.NewMemory(), nil
	case "redis":
		store, err := prefstore.OpenRedis(ctx, prefstore.RedisOptions{
			Addr:      cfg.Redis.Addr,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.KeyPrefix,
			TTL:       time.Duration(cfg.Redis.TTLSeconds) * time.Second,
		})
		if err != nil {
			log.Printf("Selection: %v; keeping the selection in memory", err)
			return prefstore.NewMemory(), nil
		}
		return store, nil
	default:
		return prefstore.OpenPebble(cfg.Path, prefstore.Options{
			CacheSizeBytes: int64(cfg.CacheMB) << 20,
		})
	}
}

// Purpose: Build the announcement speaker named by speech.backend.
// Key aspects: An unreachable broker or missing program degrades to a speaker
// that reports unavailable; announcing still drives the UI and history.
// Upstream: main startup.
// Downstream: speech.NewCommand, speech.DialMQTT.
func openSpeaker(cfg config.SpeechConfig) (announce.Speaker, func()) {
	switch cfg.Backend {
	case "command":
		cmd := speech.NewCommand(cfg.Command, cfg.Args, log.Printf)
		if !cmd.Available() {
			log.Printf("Speech: %q not found on PATH; announcements will be silent", cfg.Command)
		}
		return cmd, func() { _ = cmd.Cancel() }
	case "mqtt":
		m, err := speech.DialMQTT(speech.MQTTConfig{
			Broker:   cfg.MQTT.Broker,
			Port:     cfg.MQTT.Port,
			ClientID: cfg.MQTT.ClientID,
			Username: cfg.MQTT.Username,
			Password: cfg.MQTT.Password,
			Topic:    cfg.MQTT.Topic,
			QoS:      byte(cfg.MQTT.QoS),
		}, log.Printf)
		if err != nil {
			log.Printf("Speech: %v; announcements will be silent", err)
			return (*speech.MQTT)(nil), func() {}
		}
		return m, m.Close
	default:
		return speech.Nop{}, func() {}
	}
}

// Purpose: Pick the front end.
// Key aspects: tview needs an interactive terminal; auto picks tview on a TTY.
// Upstream: main startup.
// Downstream: ui.NewDashboard, ui.NewHeadless.
func chooseSurface(cfg config.UIConfig, send func(console.Command)) ui.Surface {
	renderAllowed := isStdoutTTY()
	switch cfg.Mode {
	case "headless":
		log.Printf("UI disabled (mode=headless)")
	case "tview", "auto":
		if renderAllowed {
			return ui.NewDashboard(cfg.TargetFPS, send)
		}
		if cfg.Mode == "tview" {
			log.Printf("UI disabled (tview requires an interactive console)")
		}
	default:
		log.Printf("UI mode %q not recognized; defaulting to headless", cfg.Mode)
	}
	return ui.NewHeadless(nil)
}

// Purpose: Drop announcement history past retention once a day.
// Key aspects: Runs once at start, then on a daily ticker until ctx is done.
// Upstream: main startup.
// Downstream: history.Recorder.PurgeOlderThan.
func startHistoryPurger(ctx context.Context, rec *history.Recorder, retentionDays int) {
	purge := func() {
		cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)
		n, err := rec.PurgeOlderThan(ctx, cutoff)
		if err != nil {
			log.Printf("History: purge failed: %v", err)
			return
		}
		if n > 0 {
			log.Printf("History: purged %s announcements older than %s", humanize.Comma(n), cutoff.Format("2006-01-02"))
		}
	}
	go func() {
		purge()
		ticker := time.NewTicker(historyPurgeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				purge()
			}
		}
	}()
}

func main() {
	cfg, configSource, err := loadConsoleConfig()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	fanout, err := setupLogging(cfg.Logging, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Logging: %v\n", err)
	}
	defer fanout.Close()
	log.SetFlags(0)
	log.SetOutput(fanout)
	log.Printf("Loaded configuration from %s", configSource)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The dashboard exists before the console it drives.
	var running atomic.Pointer[console.Console]
	surface := chooseSurface(cfg.UI, func(cmd console.Command) {
		if con := running.Load(); con != nil {
			con.Send(ctx, cmd)
		}
	})
	surface.WaitReady()
	defer surface.Stop()
	if _, headless := surface.(*ui.Headless); !headless {
		fanout.SetConsole(surface.SystemWriter(), true)
	}

	log.Printf("Station console %s starting...", Version)
	if cfg.LoadedFrom != "" {
		cfg.Print(logWriter{})
	}

	prefs, err := openPrefBackend(ctx, cfg.Selection)
	if err != nil {
		surface.Stop()
		log.Fatalf("Selection: %v", err)
	}
	defer prefs.Close()
	store := selection.NewStore(prefs, cfg.Selection.Key, log.Printf)

	speaker, closeSpeaker := openSpeaker(cfg.Speech)
	defer closeSpeaker()

	var rec *history.Recorder
	if cfg.History.IsEnabled() {
		rec, err = history.Open(cfg.History.Path, log.Printf)
		if err != nil {
			log.Printf("History: disabled: %v", err)
		} else {
			defer rec.Close()
			startHistoryPurger(ctx, rec, cfg.History.RetentionDays)
		}
	}

	driver := announce.NewDriver(speaker, announce.Options{
		Locale: cfg.Speech.Locale,
		Rate:   cfg.Speech.Rate,
		Logf:   log.Printf,
		Sink: func(ev announce.Event) {
			if rec != nil {
				rec.Record(ev)
			}
			surface.Announce(ev)
		},
	})

	client := stationapi.New(cfg.API.BaseURL, time.Duration(cfg.API.TimeoutSeconds)*time.Second)
	con := console.New(console.Config{
		ClockInterval:   time.Duration(cfg.Refresh.ClockSeconds) * time.Second,
		RecheckInterval: time.Duration(cfg.Refresh.RecheckSeconds) * time.Second,
		Sync: stationsync.Config{
			Interval:       time.Duration(cfg.Refresh.DataSeconds) * time.Second,
			RequestTimeout: time.Duration(cfg.API.TimeoutSeconds) * time.Second,
		},
		SoundOnStart: cfg.Speech.SoundOnStart,
	}, console.Options{
		Fetcher: client,
		Store:   store,
		Driver:  driver,
		View:    surface,
		Logger:  log.Default(),
	})

	running.Store(con)
	runErr := make(chan error, 1)
	go func() { runErr <- con.Run(ctx) }()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	log.Printf("Polling %s every %ds. Press Ctrl+C to stop.", client.BaseURL(), cfg.Refresh.DataSeconds)

	select {
	case sig := <-sigChan:
		log.Printf("Received signal: %v", sig)
	case <-surface.Quit():
		log.Printf("Quit requested")
	case err := <-runErr:
		if err != nil {
			log.Printf("Console stopped: %v", err)
		}
	}
	log.Println("Shutting down gracefully...")

	cancel()
	con.Wait()
	if rec != nil {
		rec.Flush()
	}
	surface.Stop()
	fanout.SetConsole(os.Stdout, true)
	log.Println("Shutdown complete")
}

// logWriter routes multi-line Print output through std log line by line.
type logWriter struct{}

func (logWriter) Write(p []byte) (int, error) {
	for _, line := range strings.Split(strings.TrimRight(string(p), "\n"), "\n") {
		log.Print(line)
	}
	return len(p), nil
}
