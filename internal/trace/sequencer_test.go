package trace

import (
	"errors"
	"math"
	"testing"

	"github.com/verte-zerg/numtrace/internal/geom"
	"github.com/verte-zerg/numtrace/internal/gesture"
	"github.com/verte-zerg/numtrace/internal/glyph"
)

const twoStrokeGlyph = `
width = 100
height = 150

[[glyph]]
name = "t"
  [[glyph.stroke]]
  points = [[10, 10], [90, 10]]
  [[glyph.stroke]]
  points = [[50, 10], [50, 140]]
`

func traceLine(s *Sequencer, from, to geom.Point) {
	s.PointerDown(from)
	steps := int(geom.Distance(from, to))
	for i := 1; i <= steps; i++ {
		s.PointerMove(geom.Lerp(from, to, float64(i)/float64(steps)))
	}
	s.PointerUp()
}

func TestSequencerWalksStrokes(t *testing.T) {
	g := loadGlyph(t, twoStrokeGlyph)
	sched, clock := newSched()
	var strokes []int
	glyphDone := 0
	seq := NewSequencer(sched, DefaultOptions(), Hooks{
		OnStrokeComplete: func(i int) { strokes = append(strokes, i) },
		OnGlyphComplete:  func() { glyphDone++ },
	})
	if err := seq.Start(g); err != nil {
		t.Fatalf("start: %v", err)
	}

	traceLine(seq, geom.Pt(10, 10), geom.Pt(90, 10))
	if len(strokes) != 1 || strokes[0] != 0 {
		t.Fatalf("expected stroke 0 complete, got %v", strokes)
	}
	if seq.Stroke() != 0 {
		t.Fatalf("next stroke must wait for the stroke delay")
	}
	seq.PointerDown(geom.Pt(50, 10))
	if seq.Tracer().Dragging() {
		t.Fatalf("input accepted during the stroke delay")
	}

	advance(sched, clock, DefaultOptions().StrokeDelay)
	if seq.Stroke() != 1 {
		t.Fatalf("expected stroke 1 to begin, got %d", seq.Stroke())
	}
	if seq.Tracer().Handle() != geom.Pt(50, 10) {
		t.Fatalf("handle not at the start of stroke 1: %v", seq.Tracer().Handle())
	}

	traceLine(seq, geom.Pt(50, 10), geom.Pt(50, 140))
	if glyphDone != 1 || !seq.Complete() {
		t.Fatalf("expected glyph completion, events=%d complete=%v", glyphDone, seq.Complete())
	}
	if len(strokes) != 2 || strokes[1] != 1 {
		t.Fatalf("expected both strokes reported, got %v", strokes)
	}
	if seq.Stats().Moves == 0 {
		t.Fatalf("expected moves to be counted across strokes")
	}
}

func TestSequencerResetCancelsPendingStroke(t *testing.T) {
	g := loadGlyph(t, twoStrokeGlyph)
	sched, clock := newSched()
	seq := NewSequencer(sched, DefaultOptions(), Hooks{})
	if err := seq.Start(g); err != nil {
		t.Fatalf("start: %v", err)
	}
	traceLine(seq, geom.Pt(10, 10), geom.Pt(90, 10))
	seq.Reset()
	advance(sched, clock, DefaultOptions().StrokeDelay*2)
	if seq.Glyph() != nil || seq.Stroke() != 0 {
		t.Fatalf("stale stroke transition applied after reset")
	}
	if sched.Len() != 0 {
		t.Fatalf("expected no pending continuations, got %d", sched.Len())
	}
}

func TestSequencerRestartIgnoresOldTimers(t *testing.T) {
	g := loadGlyph(t, twoStrokeGlyph)
	sched, clock := newSched()
	seq := NewSequencer(sched, DefaultOptions(), Hooks{})
	if err := seq.Start(g); err != nil {
		t.Fatalf("start: %v", err)
	}
	traceLine(seq, geom.Pt(10, 10), geom.Pt(90, 10))
	if err := seq.Start(g); err != nil {
		t.Fatalf("restart: %v", err)
	}
	advance(sched, clock, DefaultOptions().StrokeDelay)
	if seq.Stroke() != 0 {
		t.Fatalf("restarted glyph jumped to stroke %d", seq.Stroke())
	}
	if seq.Tracer().Handle() != geom.Pt(10, 10) {
		t.Fatalf("handle should be back at the first stroke, got %v", seq.Tracer().Handle())
	}
}

func TestSequencerRejectsGlyphWithoutPaths(t *testing.T) {
	sched, _ := newSched()
	seq := NewSequencer(sched, DefaultOptions(), Hooks{})
	err := seq.Start(&glyph.Glyph{Name: "x", Width: 100, Height: 150})
	if !errors.Is(err, glyph.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	seq.PointerDown(geom.Pt(0, 0))
	if seq.Tracer().Dragging() {
		t.Fatalf("input accepted without a glyph")
	}
}

func TestSequencerProgress(t *testing.T) {
	g := loadGlyph(t, twoStrokeGlyph)
	sched, _ := newSched()
	seq := NewSequencer(sched, DefaultOptions(), Hooks{})
	if seq.Progress() != 0 {
		t.Fatalf("idle progress must be 0")
	}
	if err := seq.Start(g); err != nil {
		t.Fatalf("start: %v", err)
	}
	seq.PointerDown(geom.Pt(10, 10))
	for x := 11.0; x <= 50; x++ {
		seq.PointerMove(geom.Pt(x, 10))
	}
	if p := seq.Progress(); p < 0.4 || p > 0.5 {
		t.Fatalf("expected progress near 0.45, got %v", p)
	}
}

func TestBuiltinDigitsTraceAlongPath(t *testing.T) {
	set, err := glyph.Builtin()
	if err != nil {
		t.Fatalf("load builtin: %v", err)
	}
	for _, g := range set.Glyphs {
		sched, clock := newSched()
		done := false
		seq := NewSequencer(sched, DefaultOptions(), Hooks{OnGlyphComplete: func() { done = true }})
		if err := seq.Start(g); err != nil {
			t.Fatalf("start %s: %v", g.Name, err)
		}
		for si := range g.Strokes {
			s := &g.Strokes[si]
			seq.PointerDown(s.Path[0])
			for i := 0; i < s.Segments() && !seq.Tracer().Complete(); i++ {
				if s.IsGap(i) {
					continue
				}
				a, b := s.Path[i], s.Path[i+1]
				steps := max(1, int(geom.Distance(a, b)))
				for k := 1; k <= steps; k++ {
					seq.PointerMove(geom.Lerp(a, b, float64(k)/float64(steps)))
				}
			}
			seq.PointerUp()
			if !seq.Tracer().Complete() {
				t.Fatalf("glyph %s stroke %d stuck at %d/%d", g.Name, si, seq.Tracer().Committed(), len(s.Path)-1)
			}
			advance(sched, clock, DefaultOptions().StrokeDelay)
		}
		if !done {
			t.Fatalf("glyph %s did not complete", g.Name)
		}
	}
}

type cell struct{ col, row int }

func cellOf(n gesture.Normalizer, p geom.Point) cell {
	x, y := n.ToDevice(p)
	return cell{col: int(math.Floor(x)), row: int(math.Floor(y))}
}

// cellWalk returns the distinct cells a pointer crosses when following run,
// sampling each segment a few times.
func cellWalk(n gesture.Normalizer, run []geom.Point, samples int) []cell {
	var out []cell
	for i := 1; i < len(run); i++ {
		for k := 1; k <= samples; k++ {
			c := cellOf(n, geom.Lerp(run[i-1], run[i], float64(k)/float64(samples)))
			if len(out) == 0 || out[len(out)-1] != c {
				out = append(out, c)
			}
		}
	}
	return out
}

func TestBuiltinDigitsTraceOnCellGrid(t *testing.T) {
	set, err := glyph.Builtin()
	if err != nil {
		t.Fatalf("load builtin: %v", err)
	}
	sizes := []cell{{23, 17}, {13, 8}, {11, 8}, {27, 20}, {53, 40}}
	for _, size := range sizes {
		n := gesture.Normalizer{
			Bounds: geom.Rect{W: float64(size.col), H: float64(size.row)},
			Width:  set.Width,
			Height: set.Height,
		}
		opts := DefaultOptions()
		opts.Resolution = n.Resolution()
		for _, g := range set.Glyphs {
			sched, clock := newSched()
			done := false
			seq := NewSequencer(sched, opts, Hooks{OnGlyphComplete: func() { done = true }})
			if err := seq.Start(g); err != nil {
				t.Fatalf("start %s: %v", g.Name, err)
			}
			for si := range g.Strokes {
				s := &g.Strokes[si]
				tr := seq.Tracer()
				for _, run := range s.Runs() {
					if tr.Complete() || tr.Finishing() {
						break
					}
					seq.PointerUp()
					start := cellOf(n, run[0])
					seq.PointerDown(n.CellCenter(start.col, start.row))
					for _, c := range cellWalk(n, run, 4) {
						seq.PointerMove(n.CellCenter(c.col, c.row))
						if tr.Complete() || tr.Finishing() {
							break
						}
					}
				}
				seq.PointerUp()
				advance(sched, clock, opts.SectionBreakDelay)
				if !tr.Complete() {
					t.Fatalf("%dx%d glyph %s stroke %d stuck at %d/%d", size.col, size.row, g.Name, si, tr.Committed(), len(s.Path)-1)
				}
				advance(sched, clock, opts.StrokeDelay)
			}
			if !done {
				t.Fatalf("%dx%d glyph %s did not complete", size.col, size.row, g.Name)
			}
		}
	}
}

func TestResolutionReachesCorner(t *testing.T) {
	sched, _ := newSched()
	path := geom.Densify([]geom.Point{geom.Pt(0, 0), geom.Pt(40, 0), geom.Pt(40, 40)}, 4)
	corner := glyph.CornerTrigger{At: geom.Pt(40, 0), Forward: geom.Pt(40, 4), Backward: geom.Pt(36, 0)}
	stroke := glyph.NewStroke(path, nil, []glyph.CornerTrigger{corner}, 1)

	exact := NewTracer(sched, DefaultOptions(), TracerHooks{})
	exact.BeginStroke(&stroke)
	exact.PointerDown(geom.Pt(0, 0))
	for x := 4.0; x <= 36; x += 4 {
		exact.PointerMove(geom.Pt(x, 0))
	}
	exact.PointerMove(geom.Pt(37, 0))
	cornerIdx := len(path) - 1 - 10
	if exact.Committed() >= cornerIdx {
		t.Fatalf("exact input committed the corner early: %d", exact.Committed())
	}

	coarse := NewTracer(sched, DefaultOptions(), TracerHooks{})
	coarse.SetResolution(5)
	coarse.BeginStroke(&stroke)
	coarse.PointerDown(geom.Pt(0, 0))
	for x := 4.0; x <= 36; x += 4 {
		coarse.PointerMove(geom.Pt(x, 0))
	}
	coarse.PointerMove(geom.Pt(37, 0))
	if coarse.Committed() != cornerIdx {
		t.Fatalf("expected the corner %d within one input step, got %d", cornerIdx, coarse.Committed())
	}
}
