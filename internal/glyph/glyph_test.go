package glyph

import (
	"errors"
	"strings"
	"testing"

	"github.com/verte-zerg/numtrace/internal/geom"
)

func TestBuiltinDigits(t *testing.T) {
	set, err := Builtin()
	if err != nil {
		t.Fatalf("load builtin: %v", err)
	}
	if got := strings.Join(set.Names(), ""); got != "0123456789" {
		t.Fatalf("unexpected glyph order: %q", got)
	}
	for _, g := range set.Glyphs {
		if err := g.Validate(); err != nil {
			t.Fatalf("glyph %s invalid: %v", g.Name, err)
		}
		for si, s := range g.Strokes {
			for i := 1; i < len(s.Path); i++ {
				if s.IsGap(i-1) {
					continue
				}
				if d := geom.Distance(s.Path[i-1], s.Path[i]); d > DefaultDensifyStep+1e-9 {
					t.Fatalf("glyph %s stroke %d segment %d too long: %.2f", g.Name, si, i-1, d)
				}
			}
		}
	}
	four, _ := set.Get("4")
	if len(four.Strokes) != 2 {
		t.Fatalf("expected 2 strokes for 4, got %d", len(four.Strokes))
	}
}

func TestPenLiftStaysSingleGap(t *testing.T) {
	set, err := Builtin()
	if err != nil {
		t.Fatalf("load builtin: %v", err)
	}
	five, _ := set.Get("5")
	s := five.Strokes[0]
	gaps := 0
	for i := 0; i < s.Segments(); i++ {
		if s.IsGap(i) {
			gaps++
			if s.Path[i] != geom.Pt(23.4, 114.2) {
				t.Fatalf("gap starts at %v", s.Path[i])
			}
		}
	}
	if gaps != 1 {
		t.Fatalf("expected 1 gap, got %d", gaps)
	}
	if runs := s.Runs(); len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	for _, p := range five.CompletionPoints {
		best := 1e9
		for i := 0; i < s.Segments(); i++ {
			if s.IsGap(i) {
				continue
			}
			if _, d, _ := geom.ProjectOntoSegment(p, s.Path[i], s.Path[i+1]); d < best {
				best = d
			}
		}
		if best > 1e-6 {
			t.Fatalf("completion point %v is off the traceable path by %.3f", p, best)
		}
	}
}

func TestLoadRejectsMissingPaths(t *testing.T) {
	src := `
width = 100
height = 150

[[glyph]]
name = "x"
`
	_, err := Load(strings.NewReader(src), LoadOptions{})
	if err == nil {
		t.Fatalf("expected configuration error")
	}
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
	var cerr *ConfigurationError
	if !errors.As(err, &cerr) || cerr.Glyph != "x" {
		t.Fatalf("expected glyph name in error, got %v", err)
	}
}

func TestLoadRejectsShortStroke(t *testing.T) {
	src := `
width = 100
height = 150

[[glyph]]
name = "x"
  [[glyph.stroke]]
  points = [[1, 1]]
`
	if _, err := Load(strings.NewReader(src), LoadOptions{}); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestLoadRejectsOffPathTrigger(t *testing.T) {
	src := `
width = 100
height = 150

[[glyph]]
name = "x"
  [[glyph.stroke]]
  points = [[0, 0], [50, 0]]
    [[glyph.stroke.corner]]
    at = [20, 20]
    forward = [30, 0]
    backward = [10, 0]
`
	if _, err := Load(strings.NewReader(src), LoadOptions{}); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestLoadRejectsUnresolvedTriggerTargets(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{
			name: "jump target off path",
			body: `
    [[glyph.stroke.auto]]
    at = [50, 10]
    jump-to = [90, 90]
`,
		},
		{
			name: "completion trigger off path",
			body: `
  completion-trigger = [90, 90]
`,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			src := `
width = 100
height = 150

[[glyph]]
name = "z"
  [[glyph.stroke]]
  points = [[10, 10], [50, 10], [10, 60], [50, 60]]
` + tc.body
			_, err := Load(strings.NewReader(src), LoadOptions{})
			if !errors.Is(err, ErrConfiguration) {
				t.Fatalf("expected ErrConfiguration, got %v", err)
			}
		})
	}
}

func TestLoadResolvesReachableTriggers(t *testing.T) {
	src := `
width = 100
height = 150

[[glyph]]
name = "z"
  [[glyph.stroke]]
  points = [[10, 10], [50, 10], [10, 60], [50, 60]]
  completion-trigger = [46, 60]
    [[glyph.stroke.auto]]
    at = [50, 10]
    jump-to = [10, 60]
`
	set, err := Load(strings.NewReader(src), LoadOptions{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	z, _ := set.Get("z")
	if !z.Strokes[0].HasCompletionTrigger {
		t.Fatalf("expected completion trigger to be kept")
	}
}

func TestLoadKeepsExplicitCompletionPoints(t *testing.T) {
	src := `
width = 100
height = 150

[[glyph]]
name = "l"
completion-points = [[0, 0], [0, 50]]
  [[glyph.stroke]]
  points = [[0, 0], [0, 100]]
`
	set, err := Load(strings.NewReader(src), LoadOptions{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	g, _ := set.Get("l")
	if len(g.CompletionPoints) != 2 {
		t.Fatalf("expected explicit completion points, got %v", g.CompletionPoints)
	}
	if g.Strokes[0].HasCompletionTrigger {
		t.Fatalf("expected no completion trigger")
	}
}

func TestValidateRejectsEmptyCompletionPoints(t *testing.T) {
	g := &Glyph{
		Name:    "x",
		Width:   100,
		Height:  150,
		Strokes: []Stroke{NewStroke([]geom.Point{geom.Pt(0, 0), geom.Pt(1, 1)}, nil, nil, 1)},
	}
	if err := g.Validate(); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestSelect(t *testing.T) {
	set, err := Builtin()
	if err != nil {
		t.Fatalf("load builtin: %v", err)
	}
	got, err := set.Select("73")
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(got) != 2 || got[0].Name != "3" || got[1].Name != "7" {
		t.Fatalf("unexpected selection of %d glyphs", len(got))
	}
	if _, err := set.Select("x"); err == nil {
		t.Fatalf("expected unknown glyph error")
	}
	all, err := set.Select("")
	if err != nil || len(all) != 10 {
		t.Fatalf("expected all glyphs, got %d (%v)", len(all), err)
	}
}
