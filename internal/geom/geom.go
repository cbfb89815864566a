// Package geom provides the point, segment and poly-line helpers shared by
// the tracing and coverage engines.
package geom

import "math"

// Point is a position in the logical glyph space.
type Point struct {
	X float64
	Y float64
}

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

// Add returns p+q.
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

// Sub returns p-q.
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Scale returns p scaled by k.
func (p Point) Scale(k float64) Point {
	return Point{X: p.X * k, Y: p.Y * k}
}

// Dot returns the dot product of p and q.
func (p Point) Dot(q Point) float64 {
	return p.X*q.X + p.Y*q.Y
}

// Distance returns the Euclidean distance between a and b.
func Distance(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// PathLength sums the distances between consecutive points.
func PathLength(points []Point) float64 {
	total := 0.0
	for i := 1; i < len(points); i++ {
		total += Distance(points[i-1], points[i])
	}
	return total
}

// Lerp interpolates between a and b.
func Lerp(a, b Point, t float64) Point {
	return Point{X: a.X + (b.X-a.X)*t, Y: a.Y + (b.Y-a.Y)*t}
}

// ProjectOntoSegment projects p onto segment ab. The returned fraction is
// clamped to [0, 1]; dist is the distance from p to the projected point.
func ProjectOntoSegment(p, a, b Point) (t, dist float64, proj Point) {
	ab := b.Sub(a)
	lenSq := ab.Dot(ab)
	if lenSq == 0 {
		return 0, Distance(p, a), a
	}
	t = p.Sub(a).Dot(ab) / lenSq
	t = Clamp(t, 0, 1)
	proj = Lerp(a, b, t)
	return t, Distance(p, proj), proj
}

// Clamp restricts v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Densify subdivides every segment so that no piece is longer than step.
// Original vertices are kept, so coordinates authored against them still
// match exactly.
func Densify(path []Point, step float64) []Point {
	if len(path) < 2 || step <= 0 {
		out := make([]Point, len(path))
		copy(out, path)
		return out
	}
	out := make([]Point, 0, len(path))
	out = append(out, path[0])
	for i := 1; i < len(path); i++ {
		a, b := path[i-1], path[i]
		pieces := int(math.Ceil(Distance(a, b) / step))
		for k := 1; k < pieces; k++ {
			out = append(out, Lerp(a, b, float64(k)/float64(pieces)))
		}
		out = append(out, b)
	}
	return out
}

// Resample returns points spaced evenly along the poly-line, starting with
// its first point. The final point is included when it lies at least half a
// spacing past the last sample.
func Resample(points []Point, spacing float64) []Point {
	if len(points) == 0 {
		return nil
	}
	if len(points) == 1 || spacing <= 0 {
		return []Point{points[0]}
	}
	out := []Point{points[0]}
	carried := 0.0
	for i := 1; i < len(points); i++ {
		a, b := points[i-1], points[i]
		seg := Distance(a, b)
		if seg == 0 {
			continue
		}
		pos := spacing - carried
		for pos <= seg {
			out = append(out, Lerp(a, b, pos/seg))
			pos += spacing
		}
		carried = seg - (pos - spacing)
	}
	if carried >= spacing/2 {
		out = append(out, points[len(points)-1])
	}
	return out
}

// NearestIndex finds the index of the path point closest to target within
// radius. Indices >= from are searched first; the whole path is searched
// only when nothing qualifies there. Ties go to the lowest index.
func NearestIndex(path []Point, target Point, radius float64, from int) (int, bool) {
	if from < 0 {
		from = 0
	}
	if idx, ok := nearestIn(path, target, radius, from, len(path)); ok {
		return idx, true
	}
	if from == 0 {
		return -1, false
	}
	return nearestIn(path, target, radius, 0, len(path))
}

func nearestIn(path []Point, target Point, radius float64, start, end int) (int, bool) {
	best := -1
	bestDist := math.Inf(1)
	for i := start; i < end && i < len(path); i++ {
		d := Distance(path[i], target)
		if d <= radius && d < bestDist {
			best = i
			bestDist = d
		}
	}
	return best, best >= 0
}

// Matches reports whether p lies within tol of q.
func Matches(p, q Point, tol float64) bool {
	return Distance(p, q) <= tol
}
