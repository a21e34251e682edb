package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mkTrigger(days []time.Weekday, h, m, s int) *trigger {
	set := make(map[time.Weekday]bool)
	for _, d := range days {
		set[d] = true
	}
	return &trigger{id: "t", days: set, hour: h, min: m, sec: s}
}

func TestNextFireSameDayLater(t *testing.T) {
	// Wednesday 2026-08-19 10:00 UTC.
	after := time.Date(2026, 8, 19, 10, 0, 0, 0, time.UTC)
	tr := mkTrigger([]time.Weekday{time.Wednesday}, 18, 30, 0)

	got := tr.nextFire(after, time.UTC)
	assert.Equal(t, time.Date(2026, 8, 19, 18, 30, 0, 0, time.UTC), got)
}

func TestNextFireSkipsToNextWeek(t *testing.T) {
	// Wednesday 10:00, trigger earlier the same day: next Wednesday.
	after := time.Date(2026, 8, 19, 10, 0, 0, 0, time.UTC)
	tr := mkTrigger([]time.Weekday{time.Wednesday}, 6, 0, 0)

	got := tr.nextFire(after, time.UTC)
	assert.Equal(t, time.Date(2026, 8, 26, 6, 0, 0, 0, time.UTC), got)
}

func TestNextFirePicksEarliestDay(t *testing.T) {
	// Wednesday 10:00; mon,fri at 06:00 → Friday first.
	after := time.Date(2026, 8, 19, 10, 0, 0, 0, time.UTC)
	tr := mkTrigger([]time.Weekday{time.Monday, time.Friday}, 6, 0, 0)

	got := tr.nextFire(after, time.UTC)
	assert.Equal(t, time.Date(2026, 8, 21, 6, 0, 0, 0, time.UTC), got)
	assert.Equal(t, time.Friday, got.Weekday())
}

func TestNextFireIsStrictlyAfter(t *testing.T) {
	// Exactly at the trigger instant: fires next week, not now.
	after := time.Date(2026, 8, 19, 6, 0, 0, 0, time.UTC)
	tr := mkTrigger([]time.Weekday{time.Wednesday}, 6, 0, 0)

	got := tr.nextFire(after, time.UTC)
	assert.Equal(t, time.Date(2026, 8, 26, 6, 0, 0, 0, time.UTC), got)
}

func TestCronRegistry(t *testing.T) {
	c := NewCron(time.UTC)

	c.Add("a", []time.Weekday{time.Monday}, 6, 0, 0, func() {})
	c.Add("b", []time.Weekday{time.Tuesday}, 6, 0, 0, func() {})
	assert.Equal(t, 2, c.Len())
	assert.True(t, c.Has("a"))

	c.Add("a", []time.Weekday{time.Friday}, 7, 0, 0, func() {}) // replace
	assert.Equal(t, 2, c.Len())

	c.Remove("a")
	c.Remove("a") // absent is fine
	assert.False(t, c.Has("a"))
	assert.Equal(t, 1, c.Len())
}

func TestCronDuePicksEarliest(t *testing.T) {
	c := NewCron(time.UTC)
	now := time.Date(2026, 8, 19, 10, 0, 0, 0, time.UTC) // Wednesday

	c.Add("later", []time.Weekday{time.Wednesday}, 20, 0, 0, func() {})
	c.Add("sooner", []time.Weekday{time.Wednesday}, 12, 0, 0, func() {})
	c.Add("also-sooner", []time.Weekday{time.Wednesday}, 12, 0, 0, func() {})

	at, ids := c.due(now)
	assert.Equal(t, time.Date(2026, 8, 19, 12, 0, 0, 0, time.UTC), at)
	assert.ElementsMatch(t, []string{"sooner", "also-sooner"}, ids)
}

func TestCronRunFiresDueTrigger(t *testing.T) {
	c := NewCron(time.UTC)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	var fired atomic.Int32
	next := time.Now().UTC().Add(1200 * time.Millisecond)
	c.Add("soon", []time.Weekday{next.Weekday()}, next.Hour(), next.Minute(), next.Second(), func() {
		fired.Add(1)
	})

	require.Eventually(t, func() bool { return fired.Load() == 1 }, 5*time.Second, 20*time.Millisecond)
}

func TestCronRemovedTriggerDoesNotFire(t *testing.T) {
	c := NewCron(time.UTC)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	var fired atomic.Int32
	next := time.Now().UTC().Add(1200 * time.Millisecond)
	c.Add("gone", []time.Weekday{next.Weekday()}, next.Hour(), next.Minute(), next.Second(), func() {
		fired.Add(1)
	})
	c.Remove("gone")

	time.Sleep(2 * time.Second)
	assert.Equal(t, int32(0), fired.Load())
}
