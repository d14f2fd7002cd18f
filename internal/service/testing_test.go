package service

import (
	"sync"
	"time"
)

// fakeClock is a manually advanced Clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// fakeScheduler collects deferred callbacks and fires them on demand.
type fakeScheduler struct {
	mu    sync.Mutex
	tasks []*fakeTask
}

type fakeTask struct {
	delay     time.Duration
	fn        func()
	cancelled bool
	fired     bool
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{}
}

func (s *fakeScheduler) After(d time.Duration, fn func()) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	task := &fakeTask{delay: d, fn: fn}
	s.tasks = append(s.tasks, task)
	return func() {
		s.mu.Lock()
		task.cancelled = true
		s.mu.Unlock()
	}
}

// FireAll runs every pending callback, simulating all retry timers elapsing.
func (s *fakeScheduler) FireAll() {
	s.mu.Lock()
	pending := make([]*fakeTask, 0, len(s.tasks))
	for _, task := range s.tasks {
		if !task.cancelled && !task.fired {
			task.fired = true
			pending = append(pending, task)
		}
	}
	s.mu.Unlock()

	for _, task := range pending {
		task.fn()
	}
}

// PendingDelays lists the delays of not-yet-fired, not-cancelled tasks.
func (s *fakeScheduler) PendingDelays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]time.Duration, 0, len(s.tasks))
	for _, task := range s.tasks {
		if !task.cancelled && !task.fired {
			out = append(out, task.delay)
		}
	}
	return out
}
