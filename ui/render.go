package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rivo/tview"

	"stationconsole/announce"
	"stationconsole/console"
)

const helpLine = "[gray]←/→ h/l step  t tune  s sound  r refresh  Tab focus  q quit[-]"

// clockText renders the clock pane.
func clockText(f console.Frame) string {
	return fmt.Sprintf("[yellow::b]%s[-::-] local   [yellow]%s[-] UTC", f.LocalNow, f.UTCNow)
}

// Purpose: Render the reader pane for the selected frequency.
// Key aspects: Loading, error and stale-data states; sound and active transmission.
// Upstream: Dashboard.Render, Headless.
// Downstream: humanize.RelTime.
func readerText(f console.Frame) string {
	var b strings.Builder
	switch {
	case f.Loading && len(f.Frequencies) == 0:
		b.WriteString("Loading station data...\n")
	case !f.HasSelection:
		b.WriteString("No frequencies available\n")
	default:
		fmt.Fprintf(&b, "[::b]Tuned:[::-] %s  [gray](%d/%d)[-]\n",
			tview.Escape(f.Selected.DisplayName()), f.SelectedIndex+1, len(f.Frequencies))
		if f.Selected.Description != "" {
			fmt.Fprintf(&b, "        [gray]%s[-]\n", tview.Escape(f.Selected.Description))
		}
	}

	if f.Sound {
		if f.ReaderState == announce.Announced {
			fmt.Fprintf(&b, "[::b]Sound:[::-] [green]ON[-] (announced #%d)\n", f.Spoken)
		} else {
			b.WriteString("[::b]Sound:[::-] [green]ON[-] (watching)\n")
		}
	} else {
		b.WriteString("[::b]Sound:[::-] OFF\n")
	}

	if f.HasActive {
		a := f.Active
		fmt.Fprintf(&b, "[::b]On air:[::-] [green]%s[-] (%s) until %s UTC\n",
			tview.Escape(a.Code), a.Type, a.End().UTC().Format("15:04:05"))
	} else if f.HasSelection {
		b.WriteString("[::b]On air:[::-] no active transmission\n")
	}

	switch {
	case f.Error != "":
		fmt.Fprintf(&b, "[red]%s[-]", tview.Escape(f.Error))
		if !f.LastSuccess.IsZero() {
			fmt.Fprintf(&b, " [gray](data from %s)[-]", humanize.RelTime(f.LastSuccess, f.Now, "ago", "from now"))
		}
		b.WriteString("\n")
	case !f.LastSuccess.IsZero():
		fmt.Fprintf(&b, "[gray]Updated %s, %d encryption keys[-]\n",
			humanize.RelTime(f.LastSuccess, f.Now, "ago", "from now"), f.EncryptionKeys)
	}
	b.WriteString(helpLine)
	return b.String()
}

// Purpose: Render every frequency with its upcoming and on-air transmissions.
// Key aspects: Marks the tuned frequency; local, UTC and relative times per row.
// Upstream: Dashboard.Render.
// Downstream: humanize.RelTime.
func scheduleText(f console.Frame) string {
	if len(f.Schedules) == 0 {
		if f.Loading {
			return "Loading..."
		}
		return "No frequencies"
	}
	var b strings.Builder
	for i, s := range f.Schedules {
		marker := "  "
		if f.HasSelection && s.Frequency.Number == f.Selected.Number {
			marker = "[yellow]>[-] "
		}
		fmt.Fprintf(&b, "%s[::b]%s[::-]", marker, tview.Escape(s.Frequency.DisplayName()))
		if s.Frequency.Description != "" {
			fmt.Fprintf(&b, "  [gray]%s[-]", tview.Escape(s.Frequency.Description))
		}
		b.WriteString("\n")
		if len(s.Rows) == 0 {
			b.WriteString("    [gray]no scheduled transmissions[-]\n")
		}
		for _, r := range s.Rows {
			t := r.Transmission
			state := string(t.Status)
			if r.Active {
				state = "[green]ON AIR[-]"
			}
			fmt.Fprintf(&b, "    %s  %s UTC  %-16s %-7s %s  [gray]%s, %s[-]\n",
				r.Local, r.UTC, tview.Escape(t.Code), t.Type, state,
				humanize.RelTime(t.ScheduledTime, f.Now, "ago", "from now"),
				time.Duration(t.DurationSeconds)*time.Second)
		}
		if i < len(f.Schedules)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// announcementLine renders one spoken announcement for the announcements pane.
func announcementLine(ev announce.Event) string {
	text := strings.ReplaceAll(ev.Text, "\n", " ")
	return fmt.Sprintf("%s UTC  %s", ev.At.UTC().Format("15:04:05"), tview.Escape(text))
}
