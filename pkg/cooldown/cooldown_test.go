package cooldown

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestShouldFireFirstTime(t *testing.T) {
	tr := New()
	assert.True(t, tr.ShouldFire("critical_low", time.Hour))
}

func TestCooldownWindow(t *testing.T) {
	now := time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC)
	tr := NewWithClock(func() time.Time { return now })

	assert.True(t, tr.ShouldFire("k", 3600*time.Second))
	tr.MarkFired("k")

	// One second before the cooldown elapses.
	now = now.Add(3600*time.Second - time.Second)
	assert.False(t, tr.ShouldFire("k", 3600*time.Second))

	// Exactly at the cooldown boundary.
	now = now.Add(time.Second)
	assert.True(t, tr.ShouldFire("k", 3600*time.Second))
}

func TestResetForgetsHistory(t *testing.T) {
	now := time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC)
	tr := NewWithClock(func() time.Time { return now })

	tr.MarkFired("k")
	now = now.Add(time.Minute)
	assert.False(t, tr.ShouldFire("k", time.Hour))

	tr.Reset("k")
	assert.True(t, tr.ShouldFire("k", time.Hour))
}

func TestKeysAreIndependent(t *testing.T) {
	now := time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC)
	tr := NewWithClock(func() time.Time { return now })

	tr.MarkFired("a")
	assert.False(t, tr.ShouldFire("a", time.Hour))
	assert.True(t, tr.ShouldFire("b", time.Hour))
}
