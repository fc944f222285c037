package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"stationconsole/config"
	"stationconsole/station"
	"stationconsole/stationapi"
)

const usage = `usage: stationctl [-url URL] <command> [flags]

commands:
  submit -freq N -code CODE [-type numbers|names|mixed]
  status -id ID -status scheduled|transmitting|completed|cancelled|failed
`

func main() {
	baseURL := flag.String("url", "", "Station API base URL")
	timeout := flag.Duration("timeout", 10*time.Second, "Request timeout")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()
	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	url := strings.TrimSpace(*baseURL)
	if url == "" {
		url = config.Default().API.BaseURL
	}
	client := stationapi.New(url, *timeout)
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var (
		t   *station.Transmission
		err error
	)
	switch flag.Arg(0) {
	case "submit":
		fs := flag.NewFlagSet("submit", flag.ExitOnError)
		freq := fs.Int("freq", 0, "Frequency number")
		code := fs.String("code", "", "Transmission code")
		kind := fs.String("type", string(station.TypeNumbers), "Transmission type")
		_ = fs.Parse(flag.Args()[1:])
		t, err = client.SubmitTransmission(ctx, *freq, *code, station.TransmissionType(*kind))
	case "status":
		fs := flag.NewFlagSet("status", flag.ExitOnError)
		id := fs.Int64("id", 0, "Transmission id")
		status := fs.String("status", "", "New status")
		_ = fs.Parse(flag.Args()[1:])
		t, err = client.UpdateTransmissionStatus(ctx, *id, station.Status(*status))
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "stationctl %s: %v\n", flag.Arg(0), err)
		os.Exit(1)
	}
	fmt.Printf("transmission #%d on %s: %s %s (%s), %s at %s\n",
		t.ID, t.Frequency.DisplayName(), t.Type, t.Code, t.Duration(), t.Status,
		t.ScheduledTime.UTC().Format("2006-01-02 15:04:05 UTC"))
}
