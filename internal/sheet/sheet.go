// Package sheet renders printable practice sheets: every glyph in a grid
// cell with dashed guides, its strokes in light grey, a start dot and the
// stroke order.
package sheet

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"math"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"

	"github.com/verte-zerg/numtrace/internal/geom"
	"github.com/verte-zerg/numtrace/internal/glyph"
)

// Options controls sheet layout.
type Options struct {
	// Title is printed above the grid when set.
	Title string
	// CellWidth is the width of one glyph cell in pixels.
	CellWidth int
	Columns   int
	// Repeats draws each glyph this many times per row, fading the
	// copies after the first.
	Repeats   int
	Margin    int
	ShowOrder bool
	FontSize  float64
}

// DefaultOptions returns an A4-ish portrait layout.
func DefaultOptions() Options {
	return Options{
		CellWidth: 160,
		Columns:   5,
		Repeats:   1,
		Margin:    40,
		ShowOrder: true,
		FontSize:  14,
	}
}

var (
	guideColor  = color.RGBA{R: 0x9a, G: 0xb8, B: 0xd6, A: 0xff}
	strokeColor = color.RGBA{R: 0xb0, G: 0xb0, B: 0xb0, A: 0xff}
	fadedColor  = color.RGBA{R: 0xdc, G: 0xdc, B: 0xdc, A: 0xff}
	startColor  = color.RGBA{R: 0x3c, G: 0xb3, B: 0x71, A: 0xff}
	orderColor  = color.RGBA{R: 0xd0, G: 0x45, B: 0x45, A: 0xff}
)

// layout holds derived geometry for one render.
type layout struct {
	cellW, cellH float64
	labelH       float64
	scale        float64
	cols, rows   int
	top          float64
}

func newLayout(set []*glyph.Glyph, opts Options) (layout, error) {
	var maxW, maxH float64
	for _, g := range set {
		maxW = math.Max(maxW, g.Width)
		maxH = math.Max(maxH, g.Height)
	}
	if maxW <= 0 || maxH <= 0 {
		return layout{}, fmt.Errorf("glyphs have no drawing area")
	}
	cols := max(opts.Columns, 1)
	repeats := max(opts.Repeats, 1)
	slots := len(set) * repeats
	l := layout{
		cellW:  float64(opts.CellWidth),
		labelH: opts.FontSize * 1.6,
		cols:   cols,
		rows:   (slots + cols - 1) / cols,
		top:    float64(opts.Margin),
	}
	l.scale = l.cellW / maxW
	l.cellH = maxH*l.scale + l.labelH
	if opts.Title != "" {
		l.top += opts.FontSize * 2.5
	}
	return l, nil
}

// Render draws the sheet for set.
func Render(set []*glyph.Glyph, opts Options) (image.Image, error) {
	dc, err := draw(set, opts)
	if err != nil {
		return nil, err
	}
	return dc.Image(), nil
}

// Write encodes the sheet as PNG to w.
func Write(w io.Writer, set []*glyph.Glyph, opts Options) error {
	dc, err := draw(set, opts)
	if err != nil {
		return err
	}
	if err := dc.EncodePNG(w); err != nil {
		return fmt.Errorf("failed to encode sheet: %w", err)
	}
	return nil
}

// SavePNG writes the sheet to path.
func SavePNG(path string, set []*glyph.Glyph, opts Options) error {
	dc, err := draw(set, opts)
	if err != nil {
		return err
	}
	if err := dc.SavePNG(path); err != nil {
		return fmt.Errorf("failed to save sheet: %w", err)
	}
	return nil
}

func draw(set []*glyph.Glyph, opts Options) (*gg.Context, error) {
	if len(set) == 0 {
		return nil, fmt.Errorf("no glyphs to render")
	}
	if opts.CellWidth <= 0 {
		opts.CellWidth = DefaultOptions().CellWidth
	}
	if opts.FontSize <= 0 {
		opts.FontSize = DefaultOptions().FontSize
	}
	l, err := newLayout(set, opts)
	if err != nil {
		return nil, err
	}

	width := int(math.Ceil(float64(2*opts.Margin) + float64(l.cols)*l.cellW))
	height := int(math.Ceil(l.top + float64(opts.Margin) + float64(l.rows)*l.cellH))
	dc := gg.NewContext(width, height)
	dc.SetColor(color.White)
	dc.Clear()

	ttfFont, err := truetype.Parse(gomono.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}
	dc.SetFontFace(truetype.NewFace(ttfFont, &truetype.Options{
		Size:    opts.FontSize,
		DPI:     72,
		Hinting: font.HintingFull,
	}))

	if opts.Title != "" {
		dc.SetColor(color.Black)
		dc.DrawStringAnchored(opts.Title, float64(width)/2, float64(opts.Margin)+opts.FontSize, 0.5, 0.5)
	}

	repeats := max(opts.Repeats, 1)
	slot := 0
	for _, g := range set {
		for r := 0; r < repeats; r++ {
			x := float64(opts.Margin) + float64(slot%l.cols)*l.cellW
			y := l.top + float64(slot/l.cols)*l.cellH
			drawCell(dc, g, l, x, y, r == 0, opts.ShowOrder && r == 0)
			slot++
		}
	}
	return dc, nil
}

func drawCell(dc *gg.Context, g *glyph.Glyph, l layout, x, y float64, primary, showOrder bool) {
	boxH := l.cellH - l.labelH
	toPx := func(p geom.Point) (float64, float64) {
		return x + p.X*l.scale, y + p.Y*l.scale
	}

	// Ascender, midline and baseline guides.
	dc.SetColor(guideColor)
	dc.SetLineWidth(1)
	dc.SetDash(6, 4)
	for _, frac := range []float64{0.1, 0.5, 0.9} {
		gy := y + boxH*frac
		dc.DrawLine(x+4, gy, x+l.cellW-4, gy)
		dc.Stroke()
	}
	dc.SetDash()

	ink := strokeColor
	if !primary {
		ink = fadedColor
	}
	dc.SetColor(ink)
	dc.SetLineWidth(math.Max(2, 6*l.scale))
	dc.SetLineCapRound()
	dc.SetLineJoinRound()
	for i := range g.Strokes {
		for _, run := range g.Strokes[i].Runs() {
			for j, p := range run {
				px, py := toPx(p)
				if j == 0 {
					dc.MoveTo(px, py)
				} else {
					dc.LineTo(px, py)
				}
			}
			dc.Stroke()
		}
	}

	if showOrder {
		for i := range g.Strokes {
			start, ok := strokeStart(&g.Strokes[i])
			if !ok {
				continue
			}
			sx, sy := toPx(start)
			dc.SetColor(startColor)
			dc.DrawCircle(sx, sy, math.Max(3, 5*l.scale))
			dc.Fill()
			if len(g.Strokes) > 1 {
				dc.SetColor(orderColor)
				dc.DrawStringAnchored(fmt.Sprintf("%d", i+1), sx-10, sy-10, 0.5, 0.5)
			}
		}
	}

	if primary {
		dc.SetColor(color.Black)
		dc.DrawStringAnchored(g.SpokenName(), x+l.cellW/2, y+boxH+l.labelH/2, 0.5, 0.5)
	}
}

func strokeStart(s *glyph.Stroke) (geom.Point, bool) {
	runs := s.Runs()
	if len(runs) == 0 || len(runs[0]) == 0 {
		return geom.Point{}, false
	}
	return runs[0][0], true
}
