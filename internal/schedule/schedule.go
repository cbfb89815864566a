// Package schedule runs deferred continuations on the caller's goroutine.
//
// Nothing here starts goroutines or sleeps. The owner of a Scheduler calls
// Advance from its event loop (the TUI does so on a tea.Tick), so every
// callback runs on the same goroutine that handles pointer input.
package schedule

import (
	"sort"
	"time"
)

// Clock returns the current time.
type Clock func() time.Time

// Scheduler is a queue of pending callbacks ordered by due time.
type Scheduler struct {
	now     Clock
	seq     uint64
	pending []*Timer
}

// Timer is a handle to a scheduled callback.
type Timer struct {
	s       *Scheduler
	seq     uint64
	due     time.Time
	fn      func()
	stopped bool
	fired   bool
}

// New returns a Scheduler reading time from clock. A nil clock uses time.Now.
func New(clock Clock) *Scheduler {
	if clock == nil {
		clock = time.Now
	}
	return &Scheduler{now: clock}
}

// Now returns the scheduler's current time.
func (s *Scheduler) Now() time.Time {
	return s.now()
}

// After schedules fn to run once d has elapsed.
func (s *Scheduler) After(d time.Duration, fn func()) *Timer {
	if d < 0 {
		d = 0
	}
	s.seq++
	t := &Timer{s: s, seq: s.seq, due: s.now().Add(d), fn: fn}
	s.pending = append(s.pending, t)
	return t
}

// Stop cancels the timer. It reports whether the callback was still pending.
func (t *Timer) Stop() bool {
	if t == nil || t.stopped || t.fired {
		return false
	}
	t.stopped = true
	t.s.remove(t)
	return true
}

// Pending reports whether the callback has neither fired nor been stopped.
func (t *Timer) Pending() bool {
	return t != nil && !t.stopped && !t.fired
}

// Len returns the number of pending callbacks.
func (s *Scheduler) Len() int {
	return len(s.pending)
}

// NextDue returns the earliest due time among pending callbacks.
func (s *Scheduler) NextDue() (time.Time, bool) {
	if len(s.pending) == 0 {
		return time.Time{}, false
	}
	next := s.pending[0].due
	for _, t := range s.pending[1:] {
		if t.due.Before(next) {
			next = t.due
		}
	}
	return next, true
}

// Advance runs every callback due at or before now, earliest first and in
// scheduling order for equal due times. Callbacks scheduled while advancing
// run in the same call when they are already due. It returns the number of
// callbacks run.
func (s *Scheduler) Advance(now time.Time) int {
	ran := 0
	for {
		due := s.dueAt(now)
		if len(due) == 0 {
			return ran
		}
		for _, t := range due {
			if t.stopped {
				continue
			}
			s.remove(t)
			t.fired = true
			t.fn()
			ran++
		}
	}
}

// Flush runs callbacks using the scheduler's own clock.
func (s *Scheduler) Flush() int {
	return s.Advance(s.now())
}

func (s *Scheduler) dueAt(now time.Time) []*Timer {
	var due []*Timer
	for _, t := range s.pending {
		if !t.due.After(now) {
			due = append(due, t)
		}
	}
	sort.SliceStable(due, func(i, j int) bool {
		if due[i].due.Equal(due[j].due) {
			return due[i].seq < due[j].seq
		}
		return due[i].due.Before(due[j].due)
	})
	return due
}

func (s *Scheduler) remove(t *Timer) {
	for i, p := range s.pending {
		if p == t {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			return
		}
	}
}

// Group tracks timers that belong to one stroke or session so they can be
// cancelled together.
type Group struct {
	s      *Scheduler
	timers []*Timer
}

// NewGroup returns an empty group bound to s.
func NewGroup(s *Scheduler) *Group {
	return &Group{s: s}
}

// After schedules fn through the group's scheduler and tracks the timer.
func (g *Group) After(d time.Duration, fn func()) *Timer {
	g.compact()
	t := g.s.After(d, fn)
	g.timers = append(g.timers, t)
	return t
}

// Cancel stops every pending timer in the group and returns how many were
// still pending.
func (g *Group) Cancel() int {
	stopped := 0
	for _, t := range g.timers {
		if t.Stop() {
			stopped++
		}
	}
	g.timers = g.timers[:0]
	return stopped
}

// Pending returns the number of timers in the group that have not run.
func (g *Group) Pending() int {
	n := 0
	for _, t := range g.timers {
		if t.Pending() {
			n++
		}
	}
	return n
}

func (g *Group) compact() {
	kept := g.timers[:0]
	for _, t := range g.timers {
		if t.Pending() {
			kept = append(kept, t)
		}
	}
	g.timers = kept
}
