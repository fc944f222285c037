package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"stationconsole/activity"
	"stationconsole/config"
	"stationconsole/history"
	"stationconsole/station"
	"stationconsole/stationapi"
)

func main() {
	var (
		baseURL     = flag.String("url", "", "Station API base URL (defaults to config, then "+config.DefaultAPIBaseURL+")")
		raw         = flag.Bool("raw", false, "Print the response body as received")
		jsonOut     = flag.Bool("json", false, "Print the decoded snapshot as indented JSON")
		historyPath = flag.String("history", "", "Print recent announcements from this history database instead of fetching")
		limit       = flag.Int("limit", 20, "Number of history rows to print")
		timeout     = flag.Duration("timeout", 10*time.Second, "Request timeout")
	)
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if *historyPath != "" {
		if err := dumpHistory(ctx, os.Stdout, *historyPath, *limit); err != nil {
			log.Fatalf("history: %v", err)
		}
		return
	}

	url := strings.TrimSpace(*baseURL)
	if url == "" {
		url = config.Default().API.BaseURL
		if path := os.Getenv(config.EnvConfigPath); path != "" {
			if cfg, err := config.Load(path); err == nil {
				url = cfg.API.BaseURL
			}
		}
	}
	client := stationapi.New(url, *timeout)

	if *raw {
		body, err := client.FetchRaw(ctx)
		if err != nil {
			log.Fatalf("%s", stationapi.UserMessage(err))
		}
		_, _ = os.Stdout.Write(body)
		return
	}

	snap, err := client.FetchStationData(ctx)
	if err != nil {
		log.Fatalf("%s", stationapi.UserMessage(err))
	}
	if *jsonOut {
		if err := station.WriteIndented(os.Stdout, snap); err != nil {
			log.Fatalf("encode: %v", err)
		}
		return
	}
	summarize(os.Stdout, client.BaseURL(), snap, time.Now())
}

func summarize(w io.Writer, source string, snap *station.Snapshot, now time.Time) {
	fmt.Fprintf(w, "Source: %s\n", source)
	fmt.Fprintf(w, "Frequencies: %s  scheduled: %s  current: %s  keys: %s\n",
		humanize.Comma(int64(len(snap.Frequencies))),
		humanize.Comma(int64(len(snap.ScheduledTransmissions))),
		humanize.Comma(int64(len(snap.CurrentTransmissions))),
		humanize.Comma(int64(len(snap.EncryptionKeys))))

	for _, f := range snap.Frequencies {
		ts := snap.TransmissionsFor(f.Number)
		line := fmt.Sprintf("  %-32s %d transmissions", f.DisplayName(), len(ts))
		if active, ok := activity.Resolve(ts, now); ok {
			line += fmt.Sprintf("  ON AIR #%d %s until %s", active.ID, active.Code, active.End().UTC().Format("15:04:05"))
		}
		fmt.Fprintln(w, line)
	}
}

func dumpHistory(ctx context.Context, w io.Writer, path string, limit int) error {
	rec, err := history.Open(path, log.Printf)
	if err != nil {
		return err
	}
	defer rec.Close()
	entries, err := rec.Recent(ctx, limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(w, "no announcements recorded")
		return nil
	}
	for _, e := range entries {
		fmt.Fprintf(w, "%s (%s)  %d kHz  #%d %s %s\n",
			e.SpokenAt.UTC().Format("2006-01-02 15:04:05"), humanize.Time(e.SpokenAt),
			e.FrequencyNumber, e.TransmissionID, e.Type, e.Code)
	}
	return nil
}
