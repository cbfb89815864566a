package speech

import (
	"bytes"
	"os/exec"
	"testing"

	"github.com/verte-zerg/numtrace/internal/logging"
)

func TestBellRings(t *testing.T) {
	var buf bytes.Buffer
	Bell{W: &buf}.Say("seven")
	if buf.String() != "\a" {
		t.Fatalf("expected a bell, got %q", buf.String())
	}
}

func TestNewDisabledIsSilent(t *testing.T) {
	if _, ok := New(false, "espeak", nil, nil).(Silent); !ok {
		t.Fatalf("disabled speech must be silent")
	}
}

func TestNewFallsBackToBell(t *testing.T) {
	var buf bytes.Buffer
	s := New(true, "numtrace-no-such-speaker-xyz", &buf, nil)
	if _, ok := s.(Bell); !ok {
		t.Fatalf("expected bell fallback, got %T", s)
	}
}

func TestCommandPassesPhraseLast(t *testing.T) {
	var got []string
	c := &Command{
		name: "/usr/bin/espeak",
		args: []string{"-s", "120"},
		log:  logging.Discard(),
		start: func(cmd *exec.Cmd) error {
			got = cmd.Args
			return nil
		},
	}
	c.Say("Great job! That's seven")
	want := []string{"/usr/bin/espeak", "-s", "120", "Great job! That's seven"}
	if len(got) != len(want) {
		t.Fatalf("unexpected args %q", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("arg %d: want %q, got %q", i, want[i], got[i])
		}
	}

	got = nil
	c.Say("   ")
	if got != nil {
		t.Fatalf("blank phrases must not start the command")
	}
}

func TestNewCommandRejectsEmpty(t *testing.T) {
	if _, err := NewCommand("  ", nil); err == nil {
		t.Fatalf("expected error for empty command")
	}
}

func TestPhrase(t *testing.T) {
	if Phrase("seven", true) != "Great job! That's seven" {
		t.Fatalf("unexpected completion phrase")
	}
	if Phrase("seven", false) != "Let's try seven again" {
		t.Fatalf("unexpected retry phrase")
	}
}
