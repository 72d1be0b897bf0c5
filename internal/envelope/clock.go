package envelope

import (
	"sync"
	"time"
)

var defaultClock = newClock(time.Now)

type clock struct {
	mu   sync.Mutex
	last time.Time
	now  func() time.Time
}

func newClock(now func() time.Time) *clock {
	return &clock{now: now}
}

// Now never returns an instant earlier than a previous call in the same process, even if the
// wall clock steps backwards.
func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now().UTC()
	if t.Before(c.last) {
		t = c.last
	}
	c.last = t
	return t
}

// Now returns the process-wide fetched_at timestamp in UTC.
func Now() time.Time {
	return defaultClock.Now()
}
