package tui

import (
	"strings"
	"testing"
	"time"
)

func TestRenderFooterFormats(t *testing.T) {
	now := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	m := &Model{
		clock:     func() time.Time { return now },
		hasLast:   true,
		lastAt:    now.Add(-3 * time.Hour),
		total:     1200,
		completed: 900,
	}
	out := m.renderFooter()
	if !containsAll(out, []string{"Last practice 3 hours ago", "1,200 attempts", "75% finished"}) {
		t.Fatalf("footer missing expected segments: %s", out)
	}
}

func TestRenderFooterFirstPractice(t *testing.T) {
	m := &Model{clock: time.Now}
	if out := m.renderFooter(); !strings.Contains(out, "First practice") {
		t.Fatalf("unexpected footer: %s", out)
	}
}

func containsAll(haystack string, needles []string) bool {
	for _, needle := range needles {
		if !strings.Contains(haystack, needle) {
			return false
		}
	}
	return true
}
