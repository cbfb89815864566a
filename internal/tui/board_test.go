package tui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/numtrace/internal/geom"
	"github.com/verte-zerg/numtrace/internal/glyph"
)

func TestBoardLineCoversCells(t *testing.T) {
	b := newBoard(10, 15, 100, 150)
	b.line(geom.Pt(55, 15), geom.Pt(55, 135), layerDone)
	for row := 1; row <= 13; row++ {
		if b.at(5, row) != layerDone {
			t.Fatalf("row %d not inked", row)
		}
	}
	if b.at(5, 0) != layerEmpty || b.at(4, 6) != layerEmpty {
		t.Fatalf("unexpected ink outside the line")
	}
}

func TestBoardKeepsHigherLayer(t *testing.T) {
	b := newBoard(10, 10, 100, 100)
	p := geom.Pt(42, 42)
	b.set(p, layerHandle)
	b.set(p, layerGuide)
	if b.at(4, 4) != layerHandle {
		t.Fatalf("expected handle to stay on top, got %d", b.at(4, 4))
	}
	b.set(geom.Pt(-5, 50), layerInk)
	b.set(geom.Pt(50, 100), layerInk)
	for _, l := range b.cells {
		if l == layerInk {
			t.Fatalf("points outside the board must be dropped")
		}
	}
}

func TestBoardSkipsPenLifts(t *testing.T) {
	path := []geom.Point{geom.Pt(5, 5), geom.Pt(55, 5), geom.Pt(55, 95), geom.Pt(95, 95)}
	s := glyph.NewStroke(path, []glyph.AutoTrigger{{At: geom.Pt(55, 5), JumpTo: geom.Pt(55, 95)}}, nil, 1)
	b := newBoard(10, 10, 100, 100)
	b.stroke(&s, s.Segments(), layerDone)
	if b.at(2, 0) != layerDone || b.at(7, 9) != layerDone {
		t.Fatalf("expected both runs inked")
	}
	if b.at(5, 4) != layerEmpty {
		t.Fatalf("pen lift must not be drawn")
	}
}

func TestBoardRenderSize(t *testing.T) {
	b := newBoard(12, 6, 100, 150)
	b.line(geom.Pt(0, 0), geom.Pt(100, 150), layerInk)
	out := b.render(boardStyles{layerInk: inkStyle})
	lines := strings.Split(out, "\n")
	if len(lines) != 6 {
		t.Fatalf("expected 6 lines, got %d", len(lines))
	}
	for i, line := range lines {
		if w := lipgloss.Width(line); w != 12 {
			t.Fatalf("line %d has width %d", i, w)
		}
	}
}

func TestProgressColorEnds(t *testing.T) {
	if progressColor(-1) != progressColor(0) || progressColor(2) != progressColor(1) {
		t.Fatalf("progress colour must clamp")
	}
	if progressColor(0) == progressColor(1) {
		t.Fatalf("expected distinct colours at both ends")
	}
}
