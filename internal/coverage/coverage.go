// Package coverage detects completion of free-hand drawing over a glyph.
//
// A Tracker samples every pointer position against the glyph's completion
// points and accumulates drawn length. Drawing far more ink than the glyph
// could need trips a flood guard that blocks completion until strokes are
// undone or the board is reset.
package coverage

import (
	"log/slog"

	"github.com/verte-zerg/numtrace/internal/geom"
	"github.com/verte-zerg/numtrace/internal/glyph"
	"github.com/verte-zerg/numtrace/internal/logging"
)

const (
	DefaultLineThickness   = 10.0
	DefaultToleranceFactor = 0.85
	DefaultThreshold       = 0.85
	DefaultFloodFactor     = 5.0
)

// Options configures a Tracker. Zero values take the defaults.
type Options struct {
	LineThickness   float64
	ToleranceFactor float64
	// Tolerance overrides ToleranceFactor * LineThickness when positive.
	Tolerance   float64
	Threshold   float64
	FloodFactor float64
	Logger      *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.LineThickness <= 0 {
		o.LineThickness = DefaultLineThickness
	}
	if o.ToleranceFactor <= 0 {
		o.ToleranceFactor = DefaultToleranceFactor
	}
	if o.Tolerance <= 0 {
		o.Tolerance = o.ToleranceFactor * o.LineThickness
	}
	if o.Threshold <= 0 || o.Threshold > 1 {
		o.Threshold = DefaultThreshold
	}
	if o.FloodFactor <= 0 {
		o.FloodFactor = DefaultFloodFactor
	}
	o.Logger = logging.OrDiscard(o.Logger)
	return o
}

// Hooks receives tracker events. Nil hooks are skipped.
type Hooks struct {
	OnCompletionPointCovered func(id, covered, total int)
	OnFloodWarning           func()
	OnFloodCleared           func()
	OnActivity               func()
	OnReset                  func()
	OnCompletion             func()
}

// Tracker is the state of one free-draw attempt.
type Tracker struct {
	opts  Options
	hooks Hooks
	log   *slog.Logger

	points  []geom.Point
	limit   float64
	covered []bool
	count   int

	strokes [][]geom.Point
	current []geom.Point
	drawing bool
	length  float64

	flooded  bool
	complete bool

	undos    int
	warnings int
}

// New returns a tracker for g. A glyph without completion points fails with
// a *glyph.ConfigurationError.
func New(g *glyph.Glyph, opts Options, hooks Hooks) (*Tracker, error) {
	if g == nil {
		return nil, &glyph.ConfigurationError{Reason: "glyph is nil"}
	}
	if len(g.CompletionPoints) == 0 {
		return nil, &glyph.ConfigurationError{Glyph: g.Name, Reason: "no completion points"}
	}
	if g.Height <= 0 {
		return nil, &glyph.ConfigurationError{Glyph: g.Name, Reason: "drawing area has no height"}
	}
	opts = opts.withDefaults()
	t := &Tracker{
		opts:   opts,
		hooks:  hooks,
		log:    opts.Logger.With("glyph", g.Name),
		points: append([]geom.Point(nil), g.CompletionPoints...),
		limit:  opts.FloodFactor * g.Height,
	}
	t.covered = make([]bool, len(t.points))
	return t, nil
}

// PointerDown starts a pen stroke at p.
func (t *Tracker) PointerDown(p geom.Point) {
	if !t.Enabled() {
		return
	}
	if t.drawing {
		t.endStroke()
	}
	t.drawing = true
	t.current = nil
	t.AddPoint(p)
}

// PointerMove extends the current pen stroke.
func (t *Tracker) PointerMove(p geom.Point) {
	if !t.drawing {
		return
	}
	t.AddPoint(p)
}

// PointerUp closes the current pen stroke.
func (t *Tracker) PointerUp() {
	if !t.drawing {
		return
	}
	t.endStroke()
}

// AddPoint appends p to the pen stroke in progress, starting one when
// needed, and re-evaluates completion.
func (t *Tracker) AddPoint(p geom.Point) {
	if !t.Enabled() {
		return
	}
	t.drawing = true
	if n := len(t.current); n > 0 {
		t.length += geom.Distance(t.current[n-1], p)
	}
	t.current = append(t.current, p)
	for _, id := range t.cover(p) {
		if t.hooks.OnCompletionPointCovered != nil {
			t.hooks.OnCompletionPointCovered(id, t.count, len(t.points))
		}
	}
	if t.hooks.OnActivity != nil {
		t.hooks.OnActivity()
	}
	if t.length > t.limit {
		t.flood()
		return
	}
	t.evaluate()
}

// cover marks completion points within tolerance of p and returns the ids
// newly covered.
func (t *Tracker) cover(p geom.Point) []int {
	var ids []int
	for i, cp := range t.points {
		if t.covered[i] {
			continue
		}
		if geom.Distance(p, cp) <= t.opts.Tolerance {
			t.covered[i] = true
			t.count++
			ids = append(ids, i)
		}
	}
	return ids
}

func (t *Tracker) flood() {
	if t.flooded {
		return
	}
	t.flooded = true
	t.warnings++
	t.log.Debug("flood limit exceeded", "length", t.length, "limit", t.limit)
	if t.hooks.OnFloodWarning != nil {
		t.hooks.OnFloodWarning()
	}
}

func (t *Tracker) evaluate() {
	if t.complete || !t.CheckCompletion() {
		return
	}
	t.complete = true
	if t.drawing {
		t.endStroke()
	}
	t.log.Debug("drawing complete", "covered", t.count, "total", len(t.points))
	if t.hooks.OnCompletion != nil {
		t.hooks.OnCompletion()
	}
}

func (t *Tracker) endStroke() {
	if len(t.current) > 0 {
		t.strokes = append(t.strokes, t.current)
	}
	t.current = nil
	t.drawing = false
}

// CheckCompletion reports whether enough completion points are covered and
// the flood guard is clear.
func (t *Tracker) CheckCompletion() bool {
	return !t.flooded && reached(t.count, len(t.points), t.opts.Threshold)
}

func reached(covered, total int, threshold float64) bool {
	if total == 0 {
		return false
	}
	return float64(covered)/float64(total) >= threshold
}

// Undo removes the most recent pen stroke and rebuilds coverage and length
// from the remaining strokes. It reports whether a stroke was removed.
func (t *Tracker) Undo() bool {
	if t.drawing {
		t.endStroke()
	}
	if len(t.strokes) == 0 {
		return false
	}
	t.strokes = t.strokes[:len(t.strokes)-1]
	t.undos++
	t.rebuild()
	if t.hooks.OnActivity != nil {
		t.hooks.OnActivity()
	}
	return true
}

func (t *Tracker) rebuild() {
	for i := range t.covered {
		t.covered[i] = false
	}
	t.count = 0
	t.length = 0
	for _, s := range t.strokes {
		for i, p := range s {
			if i > 0 {
				t.length += geom.Distance(s[i-1], p)
			}
			t.cover(p)
		}
	}
	wasFlooded := t.flooded
	t.flooded = t.length > t.limit
	if wasFlooded && !t.flooded {
		t.log.Debug("flood cleared", "length", t.length)
		if t.hooks.OnFloodCleared != nil {
			t.hooks.OnFloodCleared()
		}
	}
	wasComplete := t.complete
	t.complete = false
	if wasComplete && t.CheckCompletion() {
		t.complete = true
		return
	}
	t.evaluate()
}

// Reset clears every stroke, flag and counter.
func (t *Tracker) Reset() {
	for i := range t.covered {
		t.covered[i] = false
	}
	t.count = 0
	t.strokes = nil
	t.current = nil
	t.drawing = false
	t.length = 0
	t.flooded = false
	t.complete = false
	t.undos = 0
	t.warnings = 0
	if t.hooks.OnReset != nil {
		t.hooks.OnReset()
	}
}

// Enabled reports whether input is accepted. Flooding blocks completion,
// not drawing, so more ink keeps the guard tripped.
func (t *Tracker) Enabled() bool { return !t.complete }

// Drawing reports whether a pen stroke is in progress.
func (t *Tracker) Drawing() bool { return t.drawing }

// Flooded reports whether the flood guard is active.
func (t *Tracker) Flooded() bool { return t.flooded }

// Complete reports whether the drawing has been accepted.
func (t *Tracker) Complete() bool { return t.complete }

// Covered returns the number of covered completion points.
func (t *Tracker) Covered() int { return t.count }

// Total returns the number of completion points.
func (t *Tracker) Total() int { return len(t.points) }

// Ratio returns the covered fraction of completion points.
func (t *Tracker) Ratio() float64 { return float64(t.count) / float64(len(t.points)) }

// IsCovered reports whether completion point id is covered.
func (t *Tracker) IsCovered(id int) bool {
	return id >= 0 && id < len(t.covered) && t.covered[id]
}

// Points returns the completion points.
func (t *Tracker) Points() []geom.Point { return t.points }

// Length returns the drawn length across all pen strokes.
func (t *Tracker) Length() float64 { return t.length }

// FloodLimit returns the length past which the flood guard trips.
func (t *Tracker) FloodLimit() float64 { return t.limit }

// Tolerance returns the coverage radius around each completion point.
func (t *Tracker) Tolerance() float64 { return t.opts.Tolerance }

// Strokes returns the finished pen strokes followed by the one in progress.
func (t *Tracker) Strokes() [][]geom.Point {
	out := make([][]geom.Point, 0, len(t.strokes)+1)
	out = append(out, t.strokes...)
	if len(t.current) > 0 {
		out = append(out, t.current)
	}
	return out
}

// Undos returns how many strokes were undone.
func (t *Tracker) Undos() int { return t.undos }

// FloodWarnings returns how many times the flood guard tripped.
func (t *Tracker) FloodWarnings() int { return t.warnings }
