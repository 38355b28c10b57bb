package clock

import (
	"sort"
	"sync"
	"time"
)

// Fake returns a FakeClock frozen at initial. Time moves only when
// Advance is called.
func Fake(initial time.Time) *FakeClock {
	return &FakeClock{current: initial}
}

// FakeClock is a deterministic Clock for tests. AfterFunc callbacks run
// synchronously inside Advance, in deadline order. Callbacks may schedule
// or stop other timers but must not call Advance.
type FakeClock struct {
	mu      sync.Mutex
	current time.Time
	seq     int
	waiters []*fakeWaiter
}

type fakeWaiter struct {
	deadline time.Time
	seq      int
	callback func()
	stopped  bool
	fired    bool
	clock    *FakeClock
}

func (w *fakeWaiter) Stop() bool {
	w.clock.mu.Lock()
	defer w.clock.mu.Unlock()
	if w.stopped || w.fired {
		return false
	}
	w.stopped = true
	return true
}

// Now returns the current fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// AfterFunc registers f to run once the clock passes now+d.
func (c *FakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	waiter := &fakeWaiter{clock: c, callback: f}
	if d <= 0 {
		waiter.fired = true
		c.mu.Unlock()
		f()
		return waiter
	}
	c.seq++
	waiter.deadline = c.current.Add(d)
	waiter.seq = c.seq
	c.waiters = append(c.waiters, waiter)
	c.mu.Unlock()
	return waiter
}

// Pending returns the number of timers that have neither fired nor been stopped.
func (c *FakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, w := range c.waiters {
		if !w.stopped && !w.fired {
			n++
		}
	}
	return n
}

// Advance moves the clock forward by d and fires every timer whose
// deadline is reached. Timers registered by callbacks fire in the same
// call if their deadline falls inside the window.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.current.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		next := c.nextDue(target)
		if next == nil {
			c.current = target
			c.compact()
			c.mu.Unlock()
			return
		}
		next.fired = true
		if next.deadline.After(c.current) {
			c.current = next.deadline
		}
		c.mu.Unlock()

		next.callback()
	}
}

// nextDue returns the earliest live waiter due at or before target. Caller holds mu.
func (c *FakeClock) nextDue(target time.Time) *fakeWaiter {
	live := make([]*fakeWaiter, 0, len(c.waiters))
	for _, w := range c.waiters {
		if !w.stopped && !w.fired && !w.deadline.After(target) {
			live = append(live, w)
		}
	}
	if len(live) == 0 {
		return nil
	}
	sort.Slice(live, func(i, j int) bool {
		if live[i].deadline.Equal(live[j].deadline) {
			return live[i].seq < live[j].seq
		}
		return live[i].deadline.Before(live[j].deadline)
	})
	return live[0]
}

// compact drops fired and stopped waiters. Caller holds mu.
func (c *FakeClock) compact() {
	kept := c.waiters[:0]
	for _, w := range c.waiters {
		if !w.stopped && !w.fired {
			kept = append(kept, w)
		}
	}
	c.waiters = kept
}
