// Package dedup suppresses QoS1 redeliveries by remembering payload hashes
// for a bounded window.
package dedup

import (
	"sync"
	"time"
)

const (
	defaultTTL = 10 * time.Minute
	defaultCap = 10000
)

// Deduper is a TTL cache of recently seen message identifiers.
type Deduper struct {
	mu   sync.Mutex
	ttl  time.Duration
	cap  int
	now  func() time.Time
	seen map[string]time.Time // id -> expiry
}

// New returns a Deduper holding ids for ttl, capped at max entries.
func New(ttl time.Duration, max int) *Deduper {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if max <= 0 {
		max = defaultCap
	}
	return &Deduper{ttl: ttl, cap: max, now: time.Now, seen: make(map[string]time.Time, max)}
}

// ShouldProcess reports whether id is new within the TTL window and records
// it. Empty ids are always processed.
func (d *Deduper) ShouldProcess(id string) bool {
	if id == "" {
		return true
	}
	now := d.now()
	d.mu.Lock()
	defer d.mu.Unlock()
	if exp, ok := d.seen[id]; ok && now.Before(exp) {
		return false
	}
	d.seen[id] = now.Add(d.ttl)
	if len(d.seen) > d.cap {
		d.prune(now)
	}
	return true
}

// prune drops expired entries, then evicts the soonest-expiring ones until
// the cache is back under cap, so a burst of unique ids cannot grow the map
// without bound. Caller holds the lock.
func (d *Deduper) prune(now time.Time) {
	for k, exp := range d.seen {
		if now.After(exp) {
			delete(d.seen, k)
		}
	}
	for len(d.seen) > d.cap {
		var oldest string
		var oldestExp time.Time
		for k, exp := range d.seen {
			if oldestExp.IsZero() || exp.Before(oldestExp) {
				oldest, oldestExp = k, exp
			}
		}
		delete(d.seen, oldest)
	}
}
