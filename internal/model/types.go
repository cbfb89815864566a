// Package model defines shared data structures.
package model

import (
	"fmt"
	"time"
)

// Mode selects the practice activity.
type Mode string

const (
	// ModeTrace follows the stroke paths with a draggable handle.
	ModeTrace Mode = "trace"
	// ModeDraw is free drawing judged by coverage.
	ModeDraw Mode = "draw"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeTrace, ModeDraw:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown mode %q (use trace or draw)", s)
	}
}

// Order selects how the next glyph is picked.
type Order string

const (
	OrderSequential Order = "sequential"
	OrderRandom     Order = "random"
)

// ParseOrder validates an order name.
func ParseOrder(s string) (Order, error) {
	switch Order(s) {
	case OrderSequential, OrderRandom:
		return Order(s), nil
	default:
		return "", fmt.Errorf("unknown order %q (use sequential or random)", s)
	}
}

// Config defines practice settings.
type Config struct {
	Glyphs        string
	Mode          Mode
	Order         Order
	Rounds        int
	GlyphFile     string
	FocusWeak     bool
	WeakTop       int
	WeakFactor    float64
	WeakWindow    int
	Speech        bool
	SpeechCommand string
}

// StatsConfig defines filters and options for stats output.
type StatsConfig struct {
	Mode        string
	Since       *time.Time
	Last        int
	CurveWindow int
	Glyphs      string
}

// AttemptStats captures one finished or abandoned glyph attempt.
type AttemptStats struct {
	UUID       string
	StartedAt  time.Time
	EndedAt    time.Time
	Mode       Mode
	Glyph      string
	GlyphSet   string
	Completed  bool
	DurationMs int64

	Strokes     int
	Moves       int
	Ignored     int
	Regressions int
	Jumps       int

	Undos         int
	FloodWarnings int
	Coverage      float64
	InkLength     float64
}

// StrokeStats stores tracer counters for one stroke of a traced attempt.
type StrokeStats struct {
	Stroke      int
	DurationMs  int64
	Moves       int
	Ignored     int
	Regressions int
	Jumps       int
}

// GlyphAggregate aggregates attempts of one glyph.
type GlyphAggregate struct {
	Glyph         string
	Attempts      int
	Completed     int
	DurationSumMs int64
	Regressions   int
	Ignored       int
	Undos         int
	FloodWarnings int
}

// AvgSeconds returns the mean attempt duration.
func (g GlyphAggregate) AvgSeconds() float64 {
	if g.Attempts == 0 {
		return 0
	}
	return float64(g.DurationSumMs) / float64(g.Attempts) / 1000
}

// CompletionRate returns the share of attempts that were completed.
func (g GlyphAggregate) CompletionRate() float64 {
	if g.Attempts == 0 {
		return 0
	}
	return float64(g.Completed) / float64(g.Attempts)
}

// AttemptAggregate summarizes an attempt for reporting.
type AttemptAggregate struct {
	AttemptID   int64
	UUID        string
	EndedAt     time.Time
	Mode        Mode
	Glyph       string
	Completed   bool
	DurationMs  int64
	Regressions int
	Undos       int
	Coverage    float64
}
