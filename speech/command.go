package speech

import (
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"stationconsole/announce"
)

const (
	DefaultProgram = "espeak-ng"
	baseWPM        = 175
)

// DefaultArgs is the espeak-ng argument template.
var DefaultArgs = []string{"-v", "{locale}", "-s", "{wpm}", "{text}"}

// Command speaks by running an external TTS program, one process per utterance.
type Command struct {
	program string
	args    []string
	logf    func(string, ...any)

	mu      sync.Mutex
	path    string
	lookErr error
	looked  bool
	running *exec.Cmd
}

// NewCommand builds a command speaker. Empty program or args take the espeak-ng defaults.
func NewCommand(program string, args []string, logf func(string, ...any)) *Command {
	if strings.TrimSpace(program) == "" {
		program = DefaultProgram
	}
	if len(args) == 0 {
		args = DefaultArgs
	}
	return &Command{program: program, args: append([]string(nil), args...), logf: logfOrDefault(logf)}
}

// Available reports whether the program can be found on PATH.
func (c *Command) Available() bool {
	_, err := c.resolve()
	return err == nil
}

func (c *Command) resolve() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.looked {
		c.path, c.lookErr = exec.LookPath(c.program)
		c.looked = true
	}
	return c.path, c.lookErr
}

// Purpose: Start speaking u without waiting for playback to finish.
// Key aspects: Kills any process still playing; missing binary is ErrUnavailable.
// Upstream: announce.Driver.
// Downstream: exec.Cmd.Start.
func (c *Command) Speak(u announce.Utterance) error {
	path, err := c.resolve()
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUnavailable, c.program, err)
	}
	cmd := exec.Command(path, ExpandArgs(c.args, u)...)

	c.mu.Lock()
	c.killLocked()
	if err := cmd.Start(); err != nil {
		c.mu.Unlock()
		return fmt.Errorf("speech: start %s: %w", c.program, err)
	}
	c.running = cmd
	c.mu.Unlock()

	go func() {
		err := cmd.Wait()
		c.mu.Lock()
		if c.running == cmd {
			c.running = nil
		}
		c.mu.Unlock()
		var exitErr *exec.ExitError
		if err != nil && !errors.As(err, &exitErr) {
			c.logf("Speech: %s exited: %v", c.program, err)
		}
	}()
	return nil
}

// Cancel kills the running utterance, if any.
func (c *Command) Cancel() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.killLocked()
	return nil
}

// Speaking reports whether a process is still playing.
func (c *Command) Speaking() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running != nil
}

func (c *Command) killLocked() {
	if c.running == nil || c.running.Process == nil {
		return
	}
	_ = c.running.Process.Kill()
	c.running = nil
}

// ExpandArgs substitutes {text}, {locale} and {wpm} in each template argument.
func ExpandArgs(template []string, u announce.Utterance) []string {
	rate := u.Rate
	if rate <= 0 {
		rate = 1
	}
	wpm := strconv.Itoa(int(baseWPM*rate + 0.5))
	r := strings.NewReplacer(
		"{text}", u.Text,
		"{locale}", strings.ToLower(u.Locale),
		"{wpm}", wpm,
	)
	out := make([]string, len(template))
	for i, arg := range template {
		out[i] = r.Replace(arg)
	}
	return out
}
