// Package gesture normalizes device pointer input into logical glyph
// coordinates.
package gesture

import (
	"fmt"

	"github.com/verte-zerg/numtrace/internal/geom"
)

// Phase is the stage of a pointer gesture.
type Phase int

const (
	// Down starts a gesture.
	Down Phase = iota
	// Move continues a gesture.
	Move
	// Up ends a gesture.
	Up
)

func (p Phase) String() string {
	switch p {
	case Down:
		return "down"
	case Move:
		return "move"
	case Up:
		return "up"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// PointerEvent is a single normalized pointer sample.
type PointerEvent struct {
	Point geom.Point
	Phase Phase
}

// Target consumes normalized pointer events.
type Target interface {
	PointerDown(p geom.Point)
	PointerMove(p geom.Point)
	PointerUp()
}

// Dispatch routes ev to the matching method of t.
func Dispatch(t Target, ev PointerEvent) {
	switch ev.Phase {
	case Down:
		t.PointerDown(ev.Point)
	case Move:
		t.PointerMove(ev.Point)
	case Up:
		t.PointerUp()
	}
}

// Normalizer maps device coordinates inside Bounds onto a logical area of
// Width x Height. Bounds is re-read on every call so a resize between events
// is picked up.
type Normalizer struct {
	Bounds geom.Rect
	Width  float64
	Height float64
}

// ToLogical converts a device position to logical coordinates. Positions
// outside the bounds map outside the logical area; callers decide whether
// to ignore them.
func (n Normalizer) ToLogical(x, y float64) geom.Point {
	if n.Bounds.Empty() {
		return geom.Point{}
	}
	return geom.Point{
		X: (x - n.Bounds.X) / n.Bounds.W * n.Width,
		Y: (y - n.Bounds.Y) / n.Bounds.H * n.Height,
	}
}

// ToDevice converts a logical point back to device coordinates.
func (n Normalizer) ToDevice(p geom.Point) (float64, float64) {
	if n.Width == 0 || n.Height == 0 {
		return n.Bounds.X, n.Bounds.Y
	}
	return n.Bounds.X + p.X/n.Width*n.Bounds.W, n.Bounds.Y + p.Y/n.Height*n.Bounds.H
}

// CellCenter converts an integer cell position to the logical coordinate of
// the cell's centre. Terminal mice report whole cells.
func (n Normalizer) CellCenter(col, row int) geom.Point {
	return n.ToLogical(float64(col)+0.5, float64(row)+0.5)
}

// Resolution returns the logical size of one device cell along its longer
// side, or 0 when the bounds are empty.
func (n Normalizer) Resolution() float64 {
	if n.Bounds.Empty() {
		return 0
	}
	return max(n.Width/n.Bounds.W, n.Height/n.Bounds.H)
}

// Event builds a PointerEvent from a device position.
func (n Normalizer) Event(x, y float64, phase Phase) PointerEvent {
	return PointerEvent{Point: n.ToLogical(x, y), Phase: phase}
}
