package schedule

import (
	"testing"
	"time"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Add(d time.Duration) { c.now = c.now.Add(d) }

func newTestScheduler() (*Scheduler, *fakeClock) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	return New(clock.Now), clock
}

func TestAdvanceRunsDueInOrder(t *testing.T) {
	s, clock := newTestScheduler()
	var order []string
	s.After(20*time.Millisecond, func() { order = append(order, "b") })
	s.After(10*time.Millisecond, func() { order = append(order, "a") })
	s.After(20*time.Millisecond, func() { order = append(order, "c") })
	s.After(time.Second, func() { order = append(order, "late") })

	clock.Add(20 * time.Millisecond)
	if ran := s.Flush(); ran != 3 {
		t.Fatalf("expected 3 callbacks, got %d", ran)
	}
	if len(order) != 3 || order[0] != "a" || order[1] != "b" || order[2] != "c" {
		t.Fatalf("unexpected order: %v", order)
	}
	if s.Len() != 1 {
		t.Fatalf("expected 1 pending callback, got %d", s.Len())
	}
}

func TestStopPreventsCallback(t *testing.T) {
	s, clock := newTestScheduler()
	fired := false
	timer := s.After(5*time.Millisecond, func() { fired = true })
	if !timer.Stop() {
		t.Fatalf("expected stop to report pending timer")
	}
	if timer.Stop() {
		t.Fatalf("expected second stop to be a no-op")
	}
	clock.Add(time.Second)
	s.Flush()
	if fired {
		t.Fatalf("stopped timer fired")
	}
}

func TestCallbackScheduledDuringAdvance(t *testing.T) {
	s, clock := newTestScheduler()
	var order []string
	s.After(0, func() {
		order = append(order, "first")
		s.After(0, func() { order = append(order, "chained") })
		s.After(time.Minute, func() { order = append(order, "later") })
	})
	clock.Add(time.Millisecond)
	s.Flush()
	if len(order) != 2 || order[1] != "chained" {
		t.Fatalf("unexpected order: %v", order)
	}
	next, ok := s.NextDue()
	if !ok || !next.Equal(clock.now.Add(time.Minute)) {
		t.Fatalf("unexpected next due: %v %v", next, ok)
	}
}

func TestGroupCancel(t *testing.T) {
	s, clock := newTestScheduler()
	g := NewGroup(s)
	count := 0
	g.After(time.Millisecond, func() { count++ })
	g.After(2*time.Millisecond, func() { count++ })
	s.After(2*time.Millisecond, func() { count += 10 })
	if g.Pending() != 2 {
		t.Fatalf("expected 2 pending in group, got %d", g.Pending())
	}
	if stopped := g.Cancel(); stopped != 2 {
		t.Fatalf("expected 2 cancelled timers, got %d", stopped)
	}
	clock.Add(time.Second)
	s.Flush()
	if count != 10 {
		t.Fatalf("expected only the ungrouped timer to fire, got %d", count)
	}
}
