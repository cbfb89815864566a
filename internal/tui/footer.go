package tui

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
)

func (m *Model) renderFooter() string {
	if !m.hasLast {
		return footerStyle.Render("First practice! Drag with the mouse to trace.")
	}
	segments := []string{
		"Last practice " + humanize.RelTime(m.lastAt, m.clock(), "ago", "from now"),
		fmt.Sprintf("%s attempts", humanize.Comma(int64(m.total))),
	}
	if m.total > 0 {
		segments = append(segments, fmt.Sprintf("%.0f%% finished", float64(m.completed)/float64(m.total)*100))
	}
	return footerStyle.Render(strings.Join(segments, " · "))
}
