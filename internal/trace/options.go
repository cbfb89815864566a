// Package trace follows a pointer along the strokes of a glyph.
//
// A Tracer owns one stroke at a time and turns continuous pointer positions
// into a committed index along the stroke path. A Sequencer walks a Tracer
// through every stroke of a glyph and reports glyph completion.
package trace

import (
	"log/slog"
	"time"

	"github.com/verte-zerg/numtrace/internal/logging"
)

// Options holds the tolerances and pacing of the tracing engine. Distances
// are in logical glyph units.
type Options struct {
	// GrabRadius is how close a pointer-down must be to the handle.
	GrabRadius float64
	// MaxDistance is the farthest a pointer may be from a segment and
	// still project onto it.
	MaxDistance float64
	// LookBehind and LookAhead bound the segment window around the
	// committed index. FirstLookAhead replaces LookAhead on the first
	// accepted move of a stroke.
	LookBehind     int
	LookAhead      int
	FirstLookAhead int
	// AdvanceThreshold is the segment fraction that commits a new vertex.
	AdvanceThreshold float64
	// FinishThreshold is the fraction on the last segment that finishes
	// the stroke.
	FinishThreshold float64
	// TriggerMatch is how close the committed vertex must be to a trigger.
	TriggerMatch float64
	// TriggerFindRadius bounds the lookup of jump and corner targets.
	TriggerFindRadius float64

	// Resolution is the size of one input step in logical units. Coarse
	// input such as terminal cells widens the tolerances to match. Zero
	// means exact input.
	Resolution float64

	SettleDelay       time.Duration
	SectionBreakDelay time.Duration
	StrokeDelay       time.Duration

	Logger *slog.Logger
}

// DefaultOptions returns tolerances tuned for the built-in 100x150 digits.
func DefaultOptions() Options {
	return Options{
		GrabRadius:        14,
		MaxDistance:       16,
		LookBehind:        3,
		LookAhead:         4,
		FirstLookAhead:    10,
		AdvanceThreshold:  0.5,
		FinishThreshold:   0.7,
		TriggerMatch:      1.0,
		TriggerFindRadius: 10,
		SettleDelay:       300 * time.Millisecond,
		SectionBreakDelay: 250 * time.Millisecond,
		StrokeDelay:       500 * time.Millisecond,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.GrabRadius <= 0 {
		o.GrabRadius = def.GrabRadius
	}
	if o.MaxDistance <= 0 {
		o.MaxDistance = def.MaxDistance
	}
	if o.LookBehind <= 0 {
		o.LookBehind = def.LookBehind
	}
	if o.LookAhead <= 0 {
		o.LookAhead = def.LookAhead
	}
	if o.FirstLookAhead < o.LookAhead {
		o.FirstLookAhead = o.LookAhead
	}
	if o.AdvanceThreshold <= 0 || o.AdvanceThreshold > 1 {
		o.AdvanceThreshold = def.AdvanceThreshold
	}
	if o.FinishThreshold <= 0 || o.FinishThreshold > 1 {
		o.FinishThreshold = def.FinishThreshold
	}
	if o.TriggerMatch <= 0 {
		o.TriggerMatch = def.TriggerMatch
	}
	if o.TriggerFindRadius <= 0 {
		o.TriggerFindRadius = def.TriggerFindRadius
	}
	if o.Resolution < 0 {
		o.Resolution = 0
	}
	if o.SettleDelay < 0 {
		o.SettleDelay = 0
	}
	if o.SectionBreakDelay < 0 {
		o.SectionBreakDelay = 0
	}
	if o.StrokeDelay < 0 {
		o.StrokeDelay = 0
	}
	o.Logger = logging.OrDiscard(o.Logger)
	return o
}
