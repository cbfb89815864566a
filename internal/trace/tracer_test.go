package trace

import (
	"strings"
	"testing"
	"time"

	"github.com/verte-zerg/numtrace/internal/geom"
	"github.com/verte-zerg/numtrace/internal/glyph"
	"github.com/verte-zerg/numtrace/internal/schedule"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func newSched() (*schedule.Scheduler, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	return schedule.New(clock.Now), clock
}

func advance(s *schedule.Scheduler, c *fakeClock, d time.Duration) {
	c.now = c.now.Add(d)
	s.Advance(c.now)
}

func loadGlyph(t *testing.T, src string) *glyph.Glyph {
	t.Helper()
	set, err := glyph.Load(strings.NewReader(src), glyph.LoadOptions{})
	if err != nil {
		t.Fatalf("load glyph: %v", err)
	}
	return set.Glyphs[0]
}

func straightStroke() *glyph.Stroke {
	s := glyph.NewStroke([]geom.Point{geom.Pt(0, 0), geom.Pt(100, 0)}, nil, nil, 1)
	return &s
}

func TestTwoPointScenario(t *testing.T) {
	sched, _ := newSched()
	completed := 0
	opts := DefaultOptions()
	opts.MaxDistance = 10
	tr := NewTracer(sched, opts, TracerHooks{OnComplete: func() { completed++ }})
	tr.BeginStroke(straightStroke())

	tr.PointerDown(geom.Pt(2, 1))
	if !tr.Dragging() {
		t.Fatalf("expected dragging to start near the handle")
	}
	tr.PointerMove(geom.Pt(50, 2))
	if tr.Committed() != 0 {
		t.Fatalf("expected committed index 0 at half progress, got %d", tr.Committed())
	}
	if tr.Complete() {
		t.Fatalf("stroke completed too early")
	}
	tr.PointerMove(geom.Pt(80, 0))
	if !tr.Complete() || tr.Committed() != 1 {
		t.Fatalf("expected completion at final index, got committed=%d complete=%v", tr.Committed(), tr.Complete())
	}
	if completed != 1 {
		t.Fatalf("expected one completion event, got %d", completed)
	}
	tr.PointerMove(geom.Pt(90, 0))
	if completed != 1 {
		t.Fatalf("completion fired again")
	}
}

func TestPointerDownAwayFromHandle(t *testing.T) {
	sched, _ := newSched()
	tr := NewTracer(sched, DefaultOptions(), TracerHooks{})
	tr.BeginStroke(straightStroke())
	tr.PointerDown(geom.Pt(50, 0))
	if tr.Dragging() {
		t.Fatalf("drag must start at the handle")
	}
	tr.PointerMove(geom.Pt(90, 0))
	if tr.Committed() != 0 {
		t.Fatalf("move without drag changed progress")
	}
}

func TestMonotonicAndBoundedCommit(t *testing.T) {
	sched, _ := newSched()
	path := geom.Densify([]geom.Point{geom.Pt(0, 0), geom.Pt(100, 0)}, 4)
	stroke := glyph.NewStroke(path, nil, nil, 1)
	tr := NewTracer(sched, DefaultOptions(), TracerHooks{})
	tr.BeginStroke(&stroke)
	tr.PointerDown(geom.Pt(0, 1))

	prev := 0
	for x := 1.0; x <= 100 && !tr.Complete(); x++ {
		tr.PointerMove(geom.Pt(x, 1))
		if tr.Complete() {
			break
		}
		c := tr.Committed()
		if c < prev {
			t.Fatalf("committed index decreased at x=%.0f: %d -> %d", x, prev, c)
		}
		seg, _, ok := tr.LastProjection()
		if !ok {
			t.Fatalf("move at x=%.0f out of tolerance", x)
		}
		if c > seg {
			t.Fatalf("committed %d ahead of projected segment %d at x=%.0f", c, seg, x)
		}
		prev = c
	}
	if !tr.Complete() {
		t.Fatalf("expected stroke to complete, committed=%d", tr.Committed())
	}
}

func TestBacktrackRegresses(t *testing.T) {
	sched, _ := newSched()
	path := geom.Densify([]geom.Point{geom.Pt(0, 0), geom.Pt(100, 0)}, 4)
	stroke := glyph.NewStroke(path, nil, nil, 1)
	tr := NewTracer(sched, DefaultOptions(), TracerHooks{})
	tr.BeginStroke(&stroke)
	tr.PointerDown(geom.Pt(0, 0))
	for x := 1.0; x <= 50; x++ {
		tr.PointerMove(geom.Pt(x, 1))
	}
	ahead := tr.Committed()
	if ahead != 12 {
		t.Fatalf("expected committed 12 at x=50, got %d", ahead)
	}
	tr.PointerMove(geom.Pt(49, 1))
	if tr.Committed() != ahead {
		t.Fatalf("small jitter must not regress, got %d", tr.Committed())
	}
	tr.PointerMove(geom.Pt(40, 1))
	if tr.Committed() >= ahead {
		t.Fatalf("expected regression after backtracking, got %d", tr.Committed())
	}
	if tr.Stats().Regressions == 0 {
		t.Fatalf("expected regression to be counted")
	}
}

func TestOutOfToleranceIgnored(t *testing.T) {
	sched, _ := newSched()
	var fronts []geom.Point
	tr := NewTracer(sched, DefaultOptions(), TracerHooks{
		OnFrontMarker: func(p geom.Point, visible bool) {
			if visible {
				fronts = append(fronts, p)
			}
		},
	})
	tr.BeginStroke(straightStroke())
	tr.PointerDown(geom.Pt(0, 0))
	tr.PointerMove(geom.Pt(30, 2))
	n := len(fronts)
	tr.PointerMove(geom.Pt(60, 60))
	if len(fronts) != n {
		t.Fatalf("front marker moved on an ignored frame")
	}
	if tr.Stats().Ignored != 1 {
		t.Fatalf("expected one ignored frame, got %d", tr.Stats().Ignored)
	}
	if tr.Front() != geom.Pt(30, 0) {
		t.Fatalf("front marker should stay at last projection, got %v", tr.Front())
	}
}

const penLiftGlyph = `
width = 100
height = 150

[[glyph]]
name = "z"
  [[glyph.stroke]]
  points = [[0, 0], [40, 0], [0, 30], [40, 30]]
    [[glyph.stroke.auto]]
    at = [40, 0]
    jump-to = [0, 30]
`

func TestAutoProgressionJumpsAcrossPenLift(t *testing.T) {
	g := loadGlyph(t, penLiftGlyph)
	stroke := &g.Strokes[0]
	want, ok := geom.NearestIndex(stroke.Path, geom.Pt(0, 30), 10, 0)
	if !ok {
		t.Fatalf("jump target not on path")
	}

	for _, step := range []float64{1, 3} {
		sched, _ := newSched()
		tr := NewTracer(sched, DefaultOptions(), TracerHooks{})
		tr.BeginStroke(stroke)
		tr.PointerDown(geom.Pt(0, 0))
		for x := step; x < 40; x += step {
			tr.PointerMove(geom.Pt(x, 0))
		}
		tr.PointerMove(geom.Pt(39.5, 0))
		if tr.Committed() != want {
			t.Fatalf("step %.0f: expected jump to %d, got %d", step, want, tr.Committed())
		}
		if tr.Handle() != geom.Pt(0, 30) {
			t.Fatalf("step %.0f: handle not at jump target: %v", step, tr.Handle())
		}
		if tr.Stats().Jumps != 1 {
			t.Fatalf("step %.0f: expected one jump, got %d", step, tr.Stats().Jumps)
		}
		for x := 1.0; x <= 40 && !tr.Complete(); x++ {
			tr.PointerMove(geom.Pt(x, 30))
		}
		if !tr.Complete() {
			t.Fatalf("step %.0f: expected completion after the second run", step)
		}
	}
}

func TestPenLiftIsNotTraceable(t *testing.T) {
	g := loadGlyph(t, penLiftGlyph)
	sched, _ := newSched()
	tr := NewTracer(sched, DefaultOptions(), TracerHooks{})
	tr.BeginStroke(&g.Strokes[0])
	tr.PointerDown(geom.Pt(0, 0))
	for x := 1.0; x <= 30; x++ {
		tr.PointerMove(geom.Pt(x, 0))
	}
	before := tr.Committed()
	// On the pen lift and out of reach of the active run.
	tr.PointerMove(geom.Pt(8, 24))
	if tr.Committed() != before {
		t.Fatalf("pen lift segment was traced: %d -> %d", before, tr.Committed())
	}
}

const cornerGlyph = `
width = 100
height = 150

[[glyph]]
name = "L"
  [[glyph.stroke]]
  points = [[0, 0], [0, 40], [40, 40]]
    [[glyph.stroke.corner]]
    at = [0, 40]
    forward = [4, 40]
    backward = [0, 36]
`

func TestCornerIsNotRoundedOff(t *testing.T) {
	g := loadGlyph(t, cornerGlyph)
	sched, _ := newSched()
	opts := DefaultOptions()
	opts.MaxDistance = 8
	tr := NewTracer(sched, opts, TracerHooks{})
	tr.BeginStroke(&g.Strokes[0])
	corner, _ := geom.NearestIndex(g.Strokes[0].Path, geom.Pt(0, 40), 1, 0)

	tr.PointerDown(geom.Pt(0, 0))
	tr.PointerMove(geom.Pt(1, 34))
	if tr.Committed() != 8 {
		t.Fatalf("expected committed 8, got %d", tr.Committed())
	}
	// Cutting the corner projects past it; the commit stops on the corner.
	tr.PointerMove(geom.Pt(10.5, 38))
	if tr.Committed() != corner {
		t.Fatalf("expected commit to stop on corner %d, got %d", corner, tr.Committed())
	}
	tr.PointerMove(geom.Pt(14, 40))
	if tr.Committed() != corner+1 {
		t.Fatalf("expected forward target %d, got %d", corner+1, tr.Committed())
	}
}

func TestCornerBackwardTarget(t *testing.T) {
	g := loadGlyph(t, cornerGlyph)
	sched, _ := newSched()
	opts := DefaultOptions()
	opts.MaxDistance = 8
	tr := NewTracer(sched, opts, TracerHooks{})
	tr.BeginStroke(&g.Strokes[0])
	corner, _ := geom.NearestIndex(g.Strokes[0].Path, geom.Pt(0, 40), 1, 0)

	tr.PointerDown(geom.Pt(0, 0))
	for y := 1.0; y <= 40; y++ {
		tr.PointerMove(geom.Pt(0, y))
	}
	tr.PointerMove(geom.Pt(2, 40))
	if tr.Committed() != corner {
		t.Fatalf("expected to rest on corner %d, got %d", corner, tr.Committed())
	}
	tr.PointerMove(geom.Pt(0, 30))
	if tr.Committed() != corner-1 {
		t.Fatalf("expected backward target %d, got %d", corner-1, tr.Committed())
	}
}

func TestCompletionTriggerFinishesEarly(t *testing.T) {
	src := `
width = 100
height = 150

[[glyph]]
name = "c"
  [[glyph.stroke]]
  points = [[0, 0], [80, 0], [100, 0]]
  completion-trigger = [80, 0]
`
	g := loadGlyph(t, src)
	sched, _ := newSched()
	tr := NewTracer(sched, DefaultOptions(), TracerHooks{})
	tr.BeginStroke(&g.Strokes[0])
	tr.PointerDown(geom.Pt(0, 0))
	for x := 1.0; x <= 82 && !tr.Complete(); x++ {
		tr.PointerMove(geom.Pt(x, 0))
	}
	if !tr.Complete() {
		t.Fatalf("expected completion trigger to finish the stroke, committed=%d", tr.Committed())
	}
	if tr.Committed() != len(g.Strokes[0].Path)-1 {
		t.Fatalf("completion must commit the final point, got %d", tr.Committed())
	}
}

func TestSectionBreakCompletesAfterDelay(t *testing.T) {
	src := `
width = 100
height = 150

[[glyph]]
name = "s"
  [[glyph.stroke]]
  points = [[0, 0], [40, 0], [40, 40]]
    [[glyph.stroke.auto]]
    at = [40, 0]
    jump-to = [40, 40]
    section-break = true
`
	g := loadGlyph(t, src)
	sched, clock := newSched()
	completed := 0
	tr := NewTracer(sched, DefaultOptions(), TracerHooks{OnComplete: func() { completed++ }})
	tr.BeginStroke(&g.Strokes[0])
	tr.PointerDown(geom.Pt(0, 0))
	for x := 1.0; x < 40 && !tr.Finishing(); x++ {
		tr.PointerMove(geom.Pt(x, 0))
	}
	if !tr.Finishing() {
		t.Fatalf("expected section break to be pending")
	}
	committed := tr.Committed()
	tr.PointerMove(geom.Pt(40, 20))
	if tr.Committed() != committed {
		t.Fatalf("input must be ignored while the section break is pending")
	}
	advance(sched, clock, DefaultOptions().SectionBreakDelay)
	if !tr.Complete() || completed != 1 {
		t.Fatalf("expected completion after delay, complete=%v events=%d", tr.Complete(), completed)
	}
}

func TestSettleDelayRestoresHandle(t *testing.T) {
	sched, clock := newSched()
	var handles []bool
	tr := NewTracer(sched, DefaultOptions(), TracerHooks{
		OnHandle: func(_ geom.Point, visible bool) { handles = append(handles, visible) },
	})
	tr.BeginStroke(straightStroke())
	tr.PointerDown(geom.Pt(0, 0))
	tr.PointerMove(geom.Pt(40, 0))
	tr.PointerUp()
	n := len(handles)
	advance(sched, clock, 100*time.Millisecond)
	if len(handles) != n {
		t.Fatalf("handle shown before settle delay")
	}
	advance(sched, clock, 250*time.Millisecond)
	if len(handles) != n+1 || !handles[n] {
		t.Fatalf("expected handle to reappear after settle delay, got %v", handles)
	}
}

func TestPointerDownCancelsSettle(t *testing.T) {
	sched, clock := newSched()
	shown := 0
	tr := NewTracer(sched, DefaultOptions(), TracerHooks{
		OnHandle: func(_ geom.Point, visible bool) {
			if visible {
				shown++
			}
		},
	})
	tr.BeginStroke(straightStroke())
	shown = 0
	tr.PointerDown(geom.Pt(0, 0))
	tr.PointerUp()
	tr.PointerDown(geom.Pt(0, 0))
	advance(sched, clock, time.Second)
	if shown != 0 {
		t.Fatalf("settle fired during an active drag")
	}
}

func TestStaleSettleAfterNewStroke(t *testing.T) {
	sched, clock := newSched()
	var events []geom.Point
	tr := NewTracer(sched, DefaultOptions(), TracerHooks{
		OnHandle: func(p geom.Point, visible bool) {
			if visible {
				events = append(events, p)
			}
		},
	})
	tr.BeginStroke(straightStroke())
	tr.PointerDown(geom.Pt(0, 0))
	tr.PointerMove(geom.Pt(40, 0))
	tr.PointerUp()

	other := glyph.NewStroke([]geom.Point{geom.Pt(0, 50), geom.Pt(100, 50)}, nil, nil, 1)
	tr.BeginStroke(&other)
	events = nil
	advance(sched, clock, time.Second)
	if len(events) != 0 {
		t.Fatalf("stale settle continuation applied: %v", events)
	}
	if tr.Handle() != geom.Pt(0, 50) {
		t.Fatalf("expected handle on the new stroke, got %v", tr.Handle())
	}
}

func TestProgress(t *testing.T) {
	sched, _ := newSched()
	path := geom.Densify([]geom.Point{geom.Pt(0, 0), geom.Pt(100, 0)}, 25)
	stroke := glyph.NewStroke(path, nil, nil, 1)
	tr := NewTracer(sched, DefaultOptions(), TracerHooks{})
	tr.BeginStroke(&stroke)
	tr.PointerDown(geom.Pt(0, 0))
	tr.PointerMove(geom.Pt(38, 0))
	if got := tr.Progress(); got != 0.25 {
		t.Fatalf("expected progress 0.25, got %v", got)
	}
}
