// Package cooldown tracks per-key alert firings so repeated conditions do
// not spam the notification channel. Pure timestamp arithmetic; the clock is
// injectable for tests.
package cooldown

import (
	"sync"
	"time"
)

// Tracker records the last firing per alert key.
type Tracker struct {
	mu    sync.Mutex
	now   func() time.Time
	fired map[string]time.Time
}

// New returns a Tracker using the real clock.
func New() *Tracker {
	return NewWithClock(time.Now)
}

// NewWithClock returns a Tracker using the given clock.
func NewWithClock(now func() time.Time) *Tracker {
	return &Tracker{now: now, fired: make(map[string]time.Time)}
}

// ShouldFire reports whether key may fire now: true when no firing is
// recorded, or when at least cooldown has elapsed since the last one.
// It does not record anything; pair with MarkFired.
func (t *Tracker) ShouldFire(key string, cooldown time.Duration) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	last, ok := t.fired[key]
	if !ok {
		return true
	}
	return t.now().Sub(last) >= cooldown
}

// MarkFired records a firing for key at the current time.
func (t *Tracker) MarkFired(key string) {
	t.mu.Lock()
	t.fired[key] = t.now()
	t.mu.Unlock()
}

// Reset forgets the recorded firing for key. A later ShouldFire starts
// fresh; it does not shorten a cooldown that is still in force elsewhere.
func (t *Tracker) Reset(key string) {
	t.mu.Lock()
	delete(t.fired, key)
	t.mu.Unlock()
}
