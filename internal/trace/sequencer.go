package trace

import (
	"log/slog"

	"github.com/verte-zerg/numtrace/internal/geom"
	"github.com/verte-zerg/numtrace/internal/glyph"
	"github.com/verte-zerg/numtrace/internal/schedule"
)

// Hooks receives glyph-level events from a Sequencer. Nil hooks are skipped.
type Hooks struct {
	OnHandle         func(stroke int, p geom.Point, visible bool)
	OnFrontMarker    func(stroke int, p geom.Point, visible bool)
	OnCommit         func(stroke, index int)
	OnStrokeComplete func(stroke int)
	OnGlyphComplete  func()
}

// Sequencer drives a Tracer through every stroke of a glyph in order.
type Sequencer struct {
	opts   Options
	log    *slog.Logger
	timers *schedule.Group
	tracer *Tracer
	hooks  Hooks

	glyph    *glyph.Glyph
	stroke   int
	complete bool
	gen      uint64
	totals   Stats
}

// NewSequencer returns an idle sequencer.
func NewSequencer(sched *schedule.Scheduler, opts Options, hooks Hooks) *Sequencer {
	opts = opts.withDefaults()
	s := &Sequencer{
		opts:   opts,
		log:    opts.Logger,
		timers: schedule.NewGroup(sched),
		hooks:  hooks,
	}
	s.tracer = NewTracer(sched, opts, TracerHooks{
		OnHandle: func(p geom.Point, visible bool) {
			if s.hooks.OnHandle != nil {
				s.hooks.OnHandle(s.stroke, p, visible)
			}
		},
		OnFrontMarker: func(p geom.Point, visible bool) {
			if s.hooks.OnFrontMarker != nil {
				s.hooks.OnFrontMarker(s.stroke, p, visible)
			}
		},
		OnCommit: func(index int) {
			if s.hooks.OnCommit != nil {
				s.hooks.OnCommit(s.stroke, index)
			}
		},
		OnComplete: s.strokeComplete,
	})
	return s
}

// Start begins tracing g from its first stroke. A glyph without usable
// strokes fails with a *glyph.ConfigurationError and leaves the sequencer
// idle.
func (s *Sequencer) Start(g *glyph.Glyph) error {
	if err := checkStrokes(g); err != nil {
		s.Reset()
		return err
	}
	s.Reset()
	s.glyph = g
	s.log.Debug("trace start", "glyph", g.Name, "strokes", len(g.Strokes))
	s.begin(0)
	return nil
}

func checkStrokes(g *glyph.Glyph) error {
	if g == nil {
		return &glyph.ConfigurationError{Reason: "glyph is nil"}
	}
	if len(g.Strokes) == 0 {
		return &glyph.ConfigurationError{Glyph: g.Name, Reason: "no paths"}
	}
	for _, st := range g.Strokes {
		if len(st.Path) < 2 {
			return &glyph.ConfigurationError{Glyph: g.Name, Reason: "stroke path has fewer than 2 points"}
		}
	}
	return nil
}

func (s *Sequencer) begin(i int) {
	s.stroke = i
	s.tracer.BeginStroke(&s.glyph.Strokes[i])
}

func (s *Sequencer) strokeComplete() {
	done := s.stroke
	s.addTotals(s.tracer.Stats())
	s.log.Debug("stroke complete", "glyph", s.glyph.Name, "stroke", done)
	if s.hooks.OnStrokeComplete != nil {
		s.hooks.OnStrokeComplete(done)
	}
	if done+1 >= len(s.glyph.Strokes) {
		s.complete = true
		s.log.Debug("glyph complete", "glyph", s.glyph.Name)
		if s.hooks.OnGlyphComplete != nil {
			s.hooks.OnGlyphComplete()
		}
		return
	}
	gen := s.gen
	s.timers.After(s.opts.StrokeDelay, func() {
		if gen != s.gen || s.glyph == nil {
			return
		}
		s.begin(done + 1)
	})
}

func (s *Sequencer) addTotals(st Stats) {
	s.totals.Moves += st.Moves
	s.totals.Ignored += st.Ignored
	s.totals.Regressions += st.Regressions
	s.totals.Jumps += st.Jumps
}

// Reset abandons the current glyph and cancels every pending continuation.
func (s *Sequencer) Reset() {
	s.timers.Cancel()
	s.gen++
	s.tracer.Abandon()
	s.glyph = nil
	s.stroke = 0
	s.complete = false
	s.totals = Stats{}
}

// PointerDown forwards to the active stroke.
func (s *Sequencer) PointerDown(p geom.Point) {
	if s.glyph == nil || s.complete {
		return
	}
	s.tracer.PointerDown(p)
}

// PointerMove forwards to the active stroke.
func (s *Sequencer) PointerMove(p geom.Point) {
	if s.glyph == nil || s.complete {
		return
	}
	s.tracer.PointerMove(p)
}

// PointerUp forwards to the active stroke.
func (s *Sequencer) PointerUp() {
	if s.glyph == nil {
		return
	}
	s.tracer.PointerUp()
}

// SetResolution forwards the input step size to the tracer.
func (s *Sequencer) SetResolution(r float64) {
	s.tracer.SetResolution(r)
}

// Progress returns the fraction of the active stroke that is committed.
func (s *Sequencer) Progress() float64 {
	if s.glyph == nil {
		return 0
	}
	return s.tracer.Progress()
}

// Glyph returns the glyph being traced, or nil.
func (s *Sequencer) Glyph() *glyph.Glyph { return s.glyph }

// Stroke returns the index of the active stroke.
func (s *Sequencer) Stroke() int { return s.stroke }

// Complete reports whether every stroke is finished.
func (s *Sequencer) Complete() bool { return s.complete }

// Tracer exposes the stroke tracer for display state.
func (s *Sequencer) Tracer() *Tracer { return s.tracer }

// Stats returns counters summed over finished strokes plus the active one.
func (s *Sequencer) Stats() Stats {
	out := s.totals
	if s.glyph != nil && !s.tracer.Complete() {
		st := s.tracer.Stats()
		out.Moves += st.Moves
		out.Ignored += st.Ignored
		out.Regressions += st.Regressions
		out.Jumps += st.Jumps
	}
	return out
}
