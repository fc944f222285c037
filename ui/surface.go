package ui

import (
	"io"

	"stationconsole/announce"
	"stationconsole/console"
)

// Surface is a console front end: the tview dashboard or the headless logger.
// Render is called from the console goroutine; the rest may be called from anywhere.
type Surface interface {
	console.View
	Announce(ev announce.Event)
	SystemWriter() io.Writer
	WaitReady()
	// Quit is closed when the operator asks to leave.
	Quit() <-chan struct{}
	Stop()
}
