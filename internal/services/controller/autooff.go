package controller

import (
	"sync"
	"time"
)

// AutoOff owns the single auto-shutoff deadline for the pump. Arming cancels
// any outstanding timer before scheduling the next one, so at most one timer
// is live at any instant. The generation counter invalidates callbacks that
// fired between Stop and the lock acquisition.
type AutoOff struct {
	mu    sync.Mutex
	timer *time.Timer
	gen   uint64
}

// NewAutoOff returns a disarmed supervisor.
func NewAutoOff() *AutoOff { return &AutoOff{} }

// Arm schedules onExpire after d, replacing any outstanding timer.
func (a *AutoOff) Arm(d time.Duration, onExpire func()) {
	a.mu.Lock()
	if a.timer != nil {
		a.timer.Stop()
	}
	a.gen++
	gen := a.gen
	a.timer = time.AfterFunc(d, func() {
		a.mu.Lock()
		live := a.gen == gen
		if live {
			a.timer = nil
		}
		a.mu.Unlock()
		if live {
			onExpire()
		}
	})
	a.mu.Unlock()
}

// Disarm cancels the outstanding timer if present. Idempotent.
func (a *AutoOff) Disarm() {
	a.mu.Lock()
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.gen++
	a.mu.Unlock()
}

// Armed reports whether a deadline is outstanding.
func (a *AutoOff) Armed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.timer != nil
}
