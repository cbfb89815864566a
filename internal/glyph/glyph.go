// Package glyph defines traceable glyphs and loads them from TOML.
package glyph

import (
	"errors"
	"fmt"

	"github.com/verte-zerg/numtrace/internal/geom"
)

// ErrConfiguration marks glyph data that cannot start a session.
var ErrConfiguration = errors.New("glyph configuration error")

// ConfigurationError describes why a glyph is unusable.
type ConfigurationError struct {
	Glyph  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Glyph == "" {
		return fmt.Sprintf("glyph configuration: %s", e.Reason)
	}
	return fmt.Sprintf("glyph %q: %s", e.Glyph, e.Reason)
}

// Is makes errors.Is(err, ErrConfiguration) match.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

func configErr(name, format string, args ...any) error {
	return &ConfigurationError{Glyph: name, Reason: fmt.Sprintf(format, args...)}
}

// AutoTrigger jumps the committed index from At to JumpTo. It marks a pen
// lift inside one rendered stroke; a section break ends the stroke instead.
type AutoTrigger struct {
	At           geom.Point
	JumpTo       geom.Point
	SectionBreak bool
}

// CornerTrigger forces progress through a sharp corner vertex.
type CornerTrigger struct {
	At       geom.Point
	Forward  geom.Point
	Backward geom.Point
}

// Stroke is one pen stroke of a glyph.
type Stroke struct {
	Path []geom.Point
	// CompletionTrigger is the point that force-completes the stroke.
	CompletionTrigger    geom.Point
	HasCompletionTrigger bool
	Auto                 []AutoTrigger
	Corners              []CornerTrigger

	gaps map[int]bool
}

// IsGap reports whether segment i (Path[i] to Path[i+1]) is a pen lift that
// is neither drawn nor traced.
func (s *Stroke) IsGap(i int) bool {
	return s.gaps[i]
}

// Segments returns the number of segments in the stroke path.
func (s *Stroke) Segments() int {
	if len(s.Path) < 2 {
		return 0
	}
	return len(s.Path) - 1
}

// Runs splits the path at pen-lift gaps into continuous poly-lines.
func (s *Stroke) Runs() [][]geom.Point {
	var runs [][]geom.Point
	start := 0
	for i := 0; i < s.Segments(); i++ {
		if !s.IsGap(i) {
			continue
		}
		if i > start {
			runs = append(runs, s.Path[start:i+1])
		}
		start = i + 1
	}
	if start < len(s.Path)-1 {
		runs = append(runs, s.Path[start:])
	}
	return runs
}

// Glyph is one traceable character.
type Glyph struct {
	Name   string
	Spoken string
	Width  float64
	Height float64

	Strokes          []Stroke
	CompletionPoints []geom.Point
}

// Paths returns the stroke paths in order.
func (g *Glyph) Paths() [][]geom.Point {
	paths := make([][]geom.Point, len(g.Strokes))
	for i := range g.Strokes {
		paths[i] = g.Strokes[i].Path
	}
	return paths
}

// Bounds returns the logical drawing area of the glyph.
func (g *Glyph) Bounds() geom.Rect {
	return geom.Rect{W: g.Width, H: g.Height}
}

// SpokenName returns the word used for speech feedback.
func (g *Glyph) SpokenName() string {
	if g.Spoken != "" {
		return g.Spoken
	}
	return g.Name
}

// Validate checks the invariants a tracing or drawing session relies on.
func (g *Glyph) Validate() error {
	if g == nil {
		return configErr("", "glyph is nil")
	}
	if len(g.Strokes) == 0 {
		return configErr(g.Name, "no paths")
	}
	for i, s := range g.Strokes {
		if len(s.Path) < 2 {
			return configErr(g.Name, "stroke %d has %d points, need at least 2", i, len(s.Path))
		}
	}
	if len(g.CompletionPoints) == 0 {
		return configErr(g.Name, "no completion points")
	}
	if g.Width <= 0 || g.Height <= 0 {
		return configErr(g.Name, "invalid drawing area %.1fx%.1f", g.Width, g.Height)
	}
	return nil
}

// NewStroke builds a stroke from an already densified path and marks the
// segment leaving every auto trigger as a pen lift.
func NewStroke(path []geom.Point, auto []AutoTrigger, corners []CornerTrigger, match float64) Stroke {
	s := Stroke{Path: path, Auto: auto, Corners: corners, gaps: map[int]bool{}}
	for _, a := range auto {
		idx, ok := geom.NearestIndex(path, a.At, match, 0)
		if ok && idx < len(path)-1 {
			s.gaps[idx] = true
		}
	}
	return s
}

// DeriveCompletionPoints samples the traceable parts of every stroke at the
// given spacing, dropping samples closer than half a spacing to one already
// kept so overlapping strokes do not count twice.
func DeriveCompletionPoints(strokes []Stroke, spacing float64) []geom.Point {
	var out []geom.Point
	minGap := spacing / 2
	for i := range strokes {
		for _, run := range strokes[i].Runs() {
			for _, p := range geom.Resample(run, spacing) {
				if nearAny(out, p, minGap) {
					continue
				}
				out = append(out, p)
			}
		}
	}
	return out
}

func nearAny(points []geom.Point, p geom.Point, radius float64) bool {
	for _, q := range points {
		if geom.Distance(p, q) < radius {
			return true
		}
	}
	return false
}
