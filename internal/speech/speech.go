// Package speech speaks short feedback phrases through an external
// text-to-speech command, falling back to the terminal bell.
package speech

import (
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/verte-zerg/numtrace/internal/logging"
)

// Speaker voices a phrase without blocking the caller.
type Speaker interface {
	Say(text string)
}

// Candidates are the commands tried by Detect, in order.
var Candidates = []string{"espeak-ng", "espeak", "say", "spd-say"}

// Silent drops every phrase.
type Silent struct{}

// Say implements Speaker.
func (Silent) Say(string) {}

// Bell rings the terminal bell instead of speaking.
type Bell struct {
	W io.Writer
}

// Say implements Speaker.
func (b Bell) Say(string) {
	if _, err := io.WriteString(b.W, "\a"); err != nil {
		// Best-effort bell.
		_ = err
	}
}

// Command runs an external program with the phrase as its last argument.
type Command struct {
	name  string
	args  []string
	log   *slog.Logger
	start func(*exec.Cmd) error
}

// NewCommand parses command like a shell word list and checks that the
// program exists.
func NewCommand(command string, logger *slog.Logger) (*Command, error) {
	parts := strings.Fields(strings.TrimSpace(command))
	if len(parts) == 0 {
		return nil, fmt.Errorf("speech command is empty")
	}
	path, err := exec.LookPath(parts[0])
	if err != nil {
		return nil, fmt.Errorf("failed to find speech command: %w", err)
	}
	return &Command{
		name:  path,
		args:  parts[1:],
		log:   logging.OrDiscard(logger),
		start: startDetached,
	}, nil
}

// Say starts the command and returns at once.
func (c *Command) Say(text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	cmd := exec.Command(c.name, append(append([]string(nil), c.args...), text)...)
	if err := c.start(cmd); err != nil {
		c.log.Debug("speech failed", "command", c.name, "err", err)
	}
}

func startDetached(cmd *exec.Cmd) error {
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() {
		_ = cmd.Wait()
	}()
	return nil
}

// Detect returns the first available candidate command, or "".
func Detect() string {
	for _, name := range Candidates {
		if _, err := exec.LookPath(name); err == nil {
			return name
		}
	}
	return ""
}

// New picks a Speaker. Disabled speech is silent; an empty command is
// auto-detected; a missing program falls back to the bell on w.
func New(enabled bool, command string, w io.Writer, logger *slog.Logger) Speaker {
	if !enabled {
		return Silent{}
	}
	if strings.TrimSpace(command) == "" {
		command = Detect()
	}
	if command != "" {
		cmd, err := NewCommand(command, logger)
		if err == nil {
			return cmd
		}
		logging.OrDiscard(logger).Debug("speech unavailable, using bell", "err", err)
	}
	return Bell{W: w}
}

// Phrase returns the feedback spoken when a glyph is finished.
func Phrase(spoken string, completed bool) string {
	if !completed {
		return "Let's try " + spoken + " again"
	}
	return "Great job! That's " + spoken
}
