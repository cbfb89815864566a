package trace

import (
	"log/slog"
	"math"

	"github.com/verte-zerg/numtrace/internal/geom"
	"github.com/verte-zerg/numtrace/internal/glyph"
	"github.com/verte-zerg/numtrace/internal/schedule"
)

// TracerHooks receives the tracer's output. Nil hooks are skipped.
type TracerHooks struct {
	// OnHandle shows or hides the idle grab handle.
	OnHandle func(p geom.Point, visible bool)
	// OnFrontMarker shows, moves or hides the live marker under the pointer.
	OnFrontMarker func(p geom.Point, visible bool)
	// OnCommit reports every change of the committed index.
	OnCommit func(index int)
	// OnComplete fires once when the stroke is finished.
	OnComplete func()
}

// Stats counts what happened while tracing one stroke.
type Stats struct {
	Moves       int
	Ignored     int
	Regressions int
	Jumps       int
}

type autoJump struct {
	at           geom.Point
	target       int
	sectionBreak bool
}

type corner struct {
	at       geom.Point
	forward  int
	backward int
}

// limits are the tolerances in effect for the active stroke and input
// resolution.
type limits struct {
	grab       float64
	maxDist    float64
	reach      float64
	behind     int
	ahead      int
	firstAhead int
}

// Tracer converts pointer positions into progress along one stroke.
type Tracer struct {
	opts   Options
	log    *slog.Logger
	timers *schedule.Group
	hooks  TracerHooks

	res     float64
	meanSeg float64
	lim     limits

	stroke     *glyph.Stroke
	path       []geom.Point
	autos      []autoJump
	corners    []corner
	triggerIdx int

	committed int
	dragging  bool
	moved     bool
	complete  bool
	finishing bool
	front     geom.Point
	settle    *schedule.Timer
	gen       uint64

	lastSeg  int
	lastFrac float64
	lastOK   bool

	stats Stats
}

// NewTracer returns an idle tracer. Deferred work is scheduled on sched.
func NewTracer(sched *schedule.Scheduler, opts Options, hooks TracerHooks) *Tracer {
	opts = opts.withDefaults()
	return &Tracer{
		opts:       opts,
		log:        opts.Logger,
		timers:     schedule.NewGroup(sched),
		hooks:      hooks,
		triggerIdx: -1,
		res:        opts.Resolution,
		lim:        limitsFor(opts, opts.Resolution, 0),
	}
}

// SetResolution sets the size of one input step in logical units, such as
// a terminal cell. Zero means exact input.
func (t *Tracer) SetResolution(r float64) {
	t.res = max(r, 0)
	t.lim = limitsFor(t.opts, t.res, t.meanSeg)
}

// limitsFor widens the tolerances so coarse input can still reach every
// vertex: distances grow to one input step, the look-ahead window spans at
// least one and a half steps, and a stop vertex within one step commits.
func limitsFor(opts Options, res, meanSeg float64) limits {
	l := limits{
		grab:       opts.GrabRadius,
		maxDist:    opts.MaxDistance,
		behind:     opts.LookBehind,
		ahead:      opts.LookAhead,
		firstAhead: opts.FirstLookAhead,
	}
	if res <= 0 {
		return l
	}
	l.grab = max(l.grab, res)
	l.maxDist = max(l.maxDist, res)
	l.reach = res
	if meanSeg > 0 {
		l.ahead = max(l.ahead, int(math.Ceil(1.5*res/meanSeg)))
		l.firstAhead = max(l.firstAhead, l.ahead)
	}
	return l
}

// BeginStroke resets the tracer onto stroke s. Pending continuations of the
// previous stroke are cancelled.
func (t *Tracer) BeginStroke(s *glyph.Stroke) {
	t.timers.Cancel()
	t.gen++
	t.stroke = s
	t.path = s.Path
	t.committed = 0
	t.dragging = false
	t.moved = false
	t.complete = false
	t.finishing = false
	t.lastOK = false
	t.stats = Stats{}
	t.meanSeg = 0
	if len(t.path) > 1 {
		t.meanSeg = geom.PathLength(t.path) / float64(len(t.path)-1)
	}
	t.lim = limitsFor(t.opts, t.res, t.meanSeg)
	t.resolveTriggers()
	if len(t.path) == 0 {
		return
	}
	t.front = t.path[0]
	t.emitFront(t.front, false)
	t.emitHandle(t.path[0], true)
}

// Abandon cancels pending work and detaches the stroke. Input is ignored
// until the next BeginStroke.
func (t *Tracer) Abandon() {
	t.timers.Cancel()
	t.gen++
	t.stroke = nil
	t.path = nil
	t.dragging = false
	t.finishing = false
}

// resolveTriggers turns trigger coordinates into path indices once per
// stroke so the same trigger always lands on the same target.
func (t *Tracer) resolveTriggers() {
	t.autos = t.autos[:0]
	t.corners = t.corners[:0]
	t.triggerIdx = -1
	match, find := t.opts.TriggerMatch, t.opts.TriggerFindRadius
	for _, a := range t.stroke.Auto {
		at, ok := geom.NearestIndex(t.path, a.At, match, 0)
		if !ok {
			t.log.Warn("auto trigger not on path", "at", a.At)
			continue
		}
		target := len(t.path) - 1
		if !a.SectionBreak {
			idx, ok := geom.NearestIndex(t.path, a.JumpTo, find, at+1)
			if !ok {
				t.log.Warn("auto trigger target not found", "at", a.At, "jump_to", a.JumpTo)
				continue
			}
			target = idx
		}
		t.autos = append(t.autos, autoJump{at: t.path[at], target: target, sectionBreak: a.SectionBreak})
	}
	for _, c := range t.stroke.Corners {
		at, ok := geom.NearestIndex(t.path, c.At, match, 0)
		if !ok {
			t.log.Warn("corner trigger not on path", "at", c.At)
			continue
		}
		fwd := at + 1
		if idx, ok := nearestAfter(t.path, c.Forward, find, at); ok {
			fwd = idx
		}
		back := at - 1
		if idx, ok := nearestBefore(t.path, c.Backward, find, at); ok {
			back = idx
		}
		t.corners = append(t.corners, corner{
			at:       t.path[at],
			forward:  clampIndex(fwd, len(t.path)),
			backward: clampIndex(back, len(t.path)),
		})
	}
	if t.stroke.HasCompletionTrigger {
		if idx, ok := geom.NearestIndex(t.path, t.stroke.CompletionTrigger, find, 0); ok {
			t.triggerIdx = idx
		}
	}
}

// PointerDown starts dragging when p is within grab range of the handle.
func (t *Tracer) PointerDown(p geom.Point) {
	if !t.accepting() {
		return
	}
	handle := t.path[t.committed]
	if geom.Distance(p, handle) > t.lim.grab {
		return
	}
	t.settle.Stop()
	t.dragging = true
	t.front = handle
	t.emitHandle(handle, false)
	t.emitFront(t.front, true)
}

// PointerMove projects p onto the stroke and updates the committed index.
// Positions out of tolerance are ignored.
func (t *Tracer) PointerMove(p geom.Point) {
	if !t.dragging || !t.accepting() {
		return
	}
	t.stats.Moves++
	seg, frac, proj, ok := t.project(p)
	t.lastSeg, t.lastFrac, t.lastOK = seg, frac, ok
	if !ok {
		t.stats.Ignored++
		return
	}
	t.moved = true
	t.front = proj
	t.emitFront(proj, true)
	if stop, ok := t.reachableStop(p); ok {
		seg, frac = stop-1, 1
	}
	t.apply(seg, frac)
}

// PointerUp ends dragging. The handle returns to the committed point after
// the settle delay unless a new drag starts first.
func (t *Tracer) PointerUp() {
	if !t.dragging {
		return
	}
	t.dragging = false
	if t.complete || t.finishing {
		return
	}
	gen := t.gen
	t.settle = t.timers.After(t.opts.SettleDelay, func() {
		if gen != t.gen || t.dragging || t.complete || t.path == nil {
			return
		}
		t.emitFront(t.front, false)
		t.emitHandle(t.path[t.committed], true)
	})
}

func (t *Tracer) accepting() bool {
	return t.path != nil && !t.complete && !t.finishing
}

// window returns the segment range around the committed index. It never
// crosses a pen lift and never looks back past a corner already behind the
// committed index.
func (t *Tracer) window() (lo, hi int) {
	ahead := t.lim.ahead
	if !t.moved {
		ahead = t.lim.firstAhead
	}
	lo = max(0, t.committed-t.lim.behind)
	hi = min(len(t.path)-2, t.committed+ahead)
	for i := t.committed - 1; i >= lo; i-- {
		if t.stroke.IsGap(i) {
			lo = i + 1
			break
		}
		if _, ok := t.cornerAt(i); ok {
			lo = i
			break
		}
	}
	for i := t.committed; i <= hi; i++ {
		if t.stroke.IsGap(i) {
			hi = i - 1
			break
		}
	}
	return lo, hi
}

// project finds the closest segment in the window. At a corner, forward
// segments win whenever one is in tolerance.
func (t *Tracer) project(p geom.Point) (int, float64, geom.Point, bool) {
	lo, hi := t.window()
	if _, ok := t.cornerAt(t.committed); ok {
		if seg, frac, proj, ok := t.closest(p, t.committed, hi); ok {
			return seg, frac, proj, true
		}
	}
	return t.closest(p, lo, hi)
}

// reachableStop returns the first stop vertex ahead of the committed index
// when p is within one input step of it.
func (t *Tracer) reachableStop(p geom.Point) (int, bool) {
	if t.lim.reach <= 0 {
		return 0, false
	}
	if _, ok := t.cornerAt(t.committed); ok {
		return 0, false
	}
	_, hi := t.window()
	for i := t.committed + 1; i <= hi+1; i++ {
		if t.stopVertex(i) {
			return i, geom.Distance(p, t.path[i]) <= t.lim.reach
		}
	}
	return 0, false
}

func (t *Tracer) closest(p geom.Point, lo, hi int) (int, float64, geom.Point, bool) {
	best := -1
	bestDist := math.Inf(1)
	var bestFrac float64
	var bestProj geom.Point
	for i := lo; i <= hi; i++ {
		if t.stroke.IsGap(i) {
			continue
		}
		frac, dist, proj := geom.ProjectOntoSegment(p, t.path[i], t.path[i+1])
		if dist > t.lim.maxDist {
			continue
		}
		if best < 0 || dist < bestDist || (dist == bestDist && closer(i, best, t.committed)) {
			best, bestDist, bestFrac, bestProj = i, dist, frac, proj
		}
	}
	return best, bestFrac, bestProj, best >= 0
}

// closer reports whether segment i is nearer to the committed index than
// segment j. Equal spans prefer the lower index, which the ascending scan
// already holds.
func closer(i, j, committed int) bool {
	return absInt(i-committed) < absInt(j-committed)
}

func (t *Tracer) apply(seg int, frac float64) {
	last := len(t.path) - 1
	target := t.committed
	switch {
	case seg > t.committed:
		target = seg - 1
		if frac >= t.opts.AdvanceThreshold {
			target = seg
		}
		if frac >= t.opts.FinishThreshold && t.stopVertex(seg+1) {
			target = seg + 1
		}
		target = max(target, t.committed)
	case seg < t.committed:
		if frac < t.opts.AdvanceThreshold || seg+1 < t.committed {
			target = seg
		}
	case frac >= t.opts.FinishThreshold && t.stopVertex(seg+1):
		target = seg + 1
	}

	forward := target > t.committed
	if target != t.committed {
		if c, ok := t.cornerAt(t.committed); ok {
			if forward {
				target = c.forward
			} else {
				target = c.backward
			}
			t.stats.Jumps++
			t.log.Debug("corner progression", "from", t.committed, "to", target)
		} else if forward {
			target = t.stopAtCorner(t.committed, target)
		}
		t.setCommitted(target)
		if forward && t.autoProgress() {
			return
		}
	}

	if t.reachedTrigger(seg, frac) {
		t.log.Debug("completion trigger reached", "committed", t.committed)
		t.completeStroke()
		return
	}
	if t.committed == last {
		t.completeStroke()
	}
}

// stopVertex reports whether vertex i ends a run or sits on a corner. The
// segment leading into such a vertex commits it at FinishThreshold since
// no following segment is a reliable projection target.
func (t *Tracer) stopVertex(i int) bool {
	if i == len(t.path)-1 || t.stroke.IsGap(i) {
		return true
	}
	_, ok := t.cornerAt(i)
	return ok
}

// autoProgress applies an auto trigger on the committed vertex. It reports
// whether the stroke is now finishing.
func (t *Tracer) autoProgress() bool {
	a, ok := t.autoAt(t.committed)
	if !ok {
		return false
	}
	t.stats.Jumps++
	if a.sectionBreak {
		t.log.Debug("section break", "at", t.committed)
		t.finishing = true
		gen := t.gen
		t.timers.After(t.opts.SectionBreakDelay, func() {
			if gen != t.gen {
				return
			}
			t.completeStroke()
		})
		return true
	}
	t.log.Debug("auto progression", "from", t.committed, "to", a.target)
	t.setCommitted(a.target)
	t.front = t.path[t.committed]
	t.emitFront(t.front, true)
	return false
}

func (t *Tracer) reachedTrigger(seg int, frac float64) bool {
	ti := t.triggerIdx
	if ti < 0 || t.committed < ti {
		return false
	}
	return t.committed > ti || seg > ti || (seg == ti && frac >= t.opts.AdvanceThreshold)
}

// stopAtCorner clamps a forward commit to the first corner vertex after
// from.
func (t *Tracer) stopAtCorner(from, to int) int {
	for i := from + 1; i < to; i++ {
		if _, ok := t.cornerAt(i); ok {
			return i
		}
	}
	return to
}

func (t *Tracer) setCommitted(idx int) {
	idx = clampIndex(idx, len(t.path))
	if idx == t.committed {
		return
	}
	if idx < t.committed {
		t.stats.Regressions++
	}
	t.committed = idx
	if t.hooks.OnCommit != nil {
		t.hooks.OnCommit(idx)
	}
}

func (t *Tracer) completeStroke() {
	if t.complete || t.path == nil {
		return
	}
	t.timers.Cancel()
	t.finishing = false
	t.dragging = false
	t.setCommitted(len(t.path) - 1)
	t.complete = true
	t.emitFront(t.front, false)
	if t.hooks.OnComplete != nil {
		t.hooks.OnComplete()
	}
}

func (t *Tracer) cornerAt(idx int) (corner, bool) {
	if idx < 0 || idx >= len(t.path) {
		return corner{}, false
	}
	for _, c := range t.corners {
		if geom.Matches(t.path[idx], c.at, t.opts.TriggerMatch) {
			return c, true
		}
	}
	return corner{}, false
}

func (t *Tracer) autoAt(idx int) (autoJump, bool) {
	for _, a := range t.autos {
		if geom.Matches(t.path[idx], a.at, t.opts.TriggerMatch) {
			return a, true
		}
	}
	return autoJump{}, false
}

func (t *Tracer) emitHandle(p geom.Point, visible bool) {
	if t.hooks.OnHandle != nil {
		t.hooks.OnHandle(p, visible)
	}
}

func (t *Tracer) emitFront(p geom.Point, visible bool) {
	if t.hooks.OnFrontMarker != nil {
		t.hooks.OnFrontMarker(p, visible)
	}
}

// Committed returns the committed index on the active stroke.
func (t *Tracer) Committed() int { return t.committed }

// Dragging reports whether a drag is in progress.
func (t *Tracer) Dragging() bool { return t.dragging }

// Complete reports whether the active stroke is finished.
func (t *Tracer) Complete() bool { return t.complete }

// Finishing reports whether a section break is about to end the stroke.
func (t *Tracer) Finishing() bool { return t.finishing }

// Handle returns the point the pointer must grab to continue.
func (t *Tracer) Handle() geom.Point {
	if t.path == nil {
		return geom.Point{}
	}
	return t.path[t.committed]
}

// Front returns the last accepted projected position.
func (t *Tracer) Front() geom.Point { return t.front }

// LastProjection returns the segment and fraction of the latest move and
// whether that move was in tolerance.
func (t *Tracer) LastProjection() (int, float64, bool) {
	return t.lastSeg, t.lastFrac, t.lastOK
}

// Progress returns committed / (len(path) - 1).
func (t *Tracer) Progress() float64 {
	if len(t.path) < 2 {
		return 0
	}
	return float64(t.committed) / float64(len(t.path)-1)
}

// Stats returns counters for the active stroke.
func (t *Tracer) Stats() Stats { return t.stats }

func nearestAfter(path []geom.Point, target geom.Point, radius float64, idx int) (int, bool) {
	best, bestDist := -1, math.Inf(1)
	for i := idx + 1; i < len(path); i++ {
		if d := geom.Distance(path[i], target); d <= radius && d < bestDist {
			best, bestDist = i, d
		}
	}
	return best, best >= 0
}

func nearestBefore(path []geom.Point, target geom.Point, radius float64, idx int) (int, bool) {
	best, bestDist := -1, math.Inf(1)
	for i := idx - 1; i >= 0; i-- {
		if d := geom.Distance(path[i], target); d <= radius && d < bestDist {
			best, bestDist = i, d
		}
	}
	return best, best >= 0
}

func clampIndex(idx, n int) int {
	if idx < 0 {
		return 0
	}
	if idx >= n {
		return n - 1
	}
	return idx
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
