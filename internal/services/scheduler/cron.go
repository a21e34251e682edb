// Package scheduler compiles stored schedule records into recurring
// day-of-week triggers and fires them on wall-clock deadlines.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/arcfarm/irrigation-backend/internal/logger"
)

// trigger is one registered day-of-week + time-of-day deadline.
type trigger struct {
	id   string
	days map[time.Weekday]bool
	hour int
	min  int
	sec  int
	fn   func()
}

// nextFire returns the first instant strictly after `after` matching the
// trigger's weekday set and clock time.
func (t *trigger) nextFire(after time.Time, loc *time.Location) time.Time {
	after = after.In(loc)
	for d := 0; d <= 7; d++ {
		day := after.AddDate(0, 0, d)
		cand := time.Date(day.Year(), day.Month(), day.Day(), t.hour, t.min, t.sec, 0, loc)
		if cand.After(after) && t.days[cand.Weekday()] {
			return cand
		}
	}
	// Unreachable for a non-empty day set.
	return time.Time{}
}

// Cron is a small in-process trigger registry. One loop goroutine sleeps
// until the earliest next fire, runs the due callbacks in the cron context,
// and recomputes. Registrations and removals wake the loop.
type Cron struct {
	mu       sync.Mutex
	triggers map[string]*trigger
	loc      *time.Location
	wake     chan struct{}
}

// NewCron builds a registry evaluating trigger times in loc.
func NewCron(loc *time.Location) *Cron {
	if loc == nil {
		loc = time.Local
	}
	return &Cron{
		triggers: make(map[string]*trigger),
		loc:      loc,
		wake:     make(chan struct{}, 1),
	}
}

// Add registers (or replaces) a trigger.
func (c *Cron) Add(id string, days []time.Weekday, hour, min, sec int, fn func()) {
	set := make(map[time.Weekday]bool, len(days))
	for _, d := range days {
		set[d] = true
	}
	c.mu.Lock()
	c.triggers[id] = &trigger{id: id, days: set, hour: hour, min: min, sec: sec, fn: fn}
	c.mu.Unlock()
	c.kick()
}

// Remove drops a trigger. Removing an absent id is not an error.
func (c *Cron) Remove(id string) {
	c.mu.Lock()
	delete(c.triggers, id)
	c.mu.Unlock()
	c.kick()
}

// Has reports whether a trigger is registered.
func (c *Cron) Has(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.triggers[id]
	return ok
}

// Len returns the number of registered triggers.
func (c *Cron) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.triggers)
}

func (c *Cron) kick() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// due returns the earliest upcoming fire time after `now` and the ids firing
// at that instant.
func (c *Cron) due(now time.Time) (time.Time, []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var at time.Time
	var ids []string
	for _, t := range c.triggers {
		n := t.nextFire(now, c.loc)
		if n.IsZero() {
			continue
		}
		switch {
		case at.IsZero() || n.Before(at):
			at, ids = n, []string{t.id}
		case n.Equal(at):
			ids = append(ids, t.id)
		}
	}
	return at, ids
}

// Run blocks, firing triggers until ctx is cancelled.
func (c *Cron) Run(ctx context.Context) {
	for {
		now := time.Now().In(c.loc)
		at, ids := c.due(now)

		if at.IsZero() {
			select {
			case <-ctx.Done():
				return
			case <-c.wake:
			}
			continue
		}

		timer := time.NewTimer(time.Until(at))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-c.wake:
			timer.Stop()
			continue
		case <-timer.C:
			for _, id := range ids {
				c.mu.Lock()
				t, ok := c.triggers[id]
				c.mu.Unlock()
				if !ok {
					continue // removed while we slept
				}
				logger.Debugf("cron: firing trigger %s", id)
				t.fn()
			}
		}
	}
}
