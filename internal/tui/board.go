package tui

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/numtrace/internal/geom"
	"github.com/verte-zerg/numtrace/internal/gesture"
	"github.com/verte-zerg/numtrace/internal/glyph"
)

// layer is what occupies a board cell. Higher layers win.
type layer uint8

const (
	layerEmpty layer = iota
	layerGuide
	layerDone
	layerInk
	layerStart
	layerFront
	layerHandle
)

type cellLook struct {
	r        rune
	fallback rune
}

var looks = map[layer]cellLook{
	layerEmpty:  {r: ' ', fallback: ' '},
	layerGuide:  {r: '·', fallback: '.'},
	layerDone:   {r: '█', fallback: '#'},
	layerInk:    {r: '█', fallback: '#'},
	layerStart:  {r: '○', fallback: 'o'},
	layerFront:  {r: '◇', fallback: '+'},
	layerHandle: {r: '●', fallback: '@'},
}

// cellRune keeps every board cell one column wide, even where the locale
// renders ambiguous-width runes double.
func cellRune(l layer) rune {
	look := looks[l]
	if runewidth.RuneWidth(look.r) != 1 {
		return look.fallback
	}
	return look.r
}

var (
	tintStart, _ = colorful.Hex("#F5A623")
	tintEnd, _   = colorful.Hex("#3CB371")
)

// progressColor blends from orange to green as progress goes from 0 to 1.
func progressColor(progress float64) lipgloss.Color {
	progress = geom.Clamp(progress, 0, 1)
	return lipgloss.Color(tintStart.BlendHcl(tintEnd, progress).Clamped().Hex())
}

// board is a character raster of one glyph in terminal cells.
type board struct {
	cols  int
	rows  int
	cells []layer
	norm  gesture.Normalizer
}

func newBoard(cols, rows int, width, height float64) *board {
	return &board{
		cols:  cols,
		rows:  rows,
		cells: make([]layer, cols*rows),
		norm: gesture.Normalizer{
			Bounds: geom.Rect{W: float64(cols), H: float64(rows)},
			Width:  width,
			Height: height,
		},
	}
}

func (b *board) at(col, row int) layer {
	if col < 0 || row < 0 || col >= b.cols || row >= b.rows {
		return layerEmpty
	}
	return b.cells[row*b.cols+col]
}

// set marks the cell under logical point p.
func (b *board) set(p geom.Point, l layer) {
	x, y := b.norm.ToDevice(p)
	col, row := int(math.Floor(x)), int(math.Floor(y))
	if col < 0 || row < 0 || col >= b.cols || row >= b.rows {
		return
	}
	idx := row*b.cols + col
	if l > b.cells[idx] {
		b.cells[idx] = l
	}
}

// line samples the segment at half-cell steps.
func (b *board) line(from, to geom.Point, l layer) {
	x0, y0 := b.norm.ToDevice(from)
	x1, y1 := b.norm.ToDevice(to)
	steps := int(math.Ceil(math.Max(math.Abs(x1-x0), math.Abs(y1-y0)) * 2))
	if steps == 0 {
		b.set(from, l)
		return
	}
	for i := 0; i <= steps; i++ {
		b.set(geom.Lerp(from, to, float64(i)/float64(steps)), l)
	}
}

func (b *board) polyline(points []geom.Point, l layer) {
	if len(points) == 1 {
		b.set(points[0], l)
		return
	}
	for i := 1; i < len(points); i++ {
		b.line(points[i-1], points[i], l)
	}
}

// stroke draws the first segments of s, skipping pen-lift gaps.
func (b *board) stroke(s *glyph.Stroke, segments int, l layer) {
	segments = min(segments, s.Segments())
	for i := 0; i < segments; i++ {
		if s.IsGap(i) {
			continue
		}
		b.line(s.Path[i], s.Path[i+1], l)
	}
}

// boardStyles colours each layer for one render.
type boardStyles map[layer]lipgloss.Style

func (b *board) render(styles boardStyles) string {
	lines := make([]string, b.rows)
	for row := 0; row < b.rows; row++ {
		var line strings.Builder
		var run strings.Builder
		current := layerEmpty
		flush := func() {
			if run.Len() == 0 {
				return
			}
			if style, ok := styles[current]; ok {
				line.WriteString(style.Render(run.String()))
			} else {
				line.WriteString(run.String())
			}
			run.Reset()
		}
		for col := 0; col < b.cols; col++ {
			l := b.at(col, row)
			if l != current {
				flush()
				current = l
			}
			run.WriteRune(cellRune(l))
		}
		flush()
		lines[row] = line.String()
	}
	return strings.Join(lines, "\n")
}
