package anpr

import (
	"fmt"
	"sync"
	"time"
)

// Dedup window constants. A plate seen twice inside the same 5 second
// bucket is suppressed; entries older than 30 seconds are pruned every
// minute.
const (
	dedupBucket   = 5 * time.Second
	dedupLifetime = 30 * time.Second
	pruneInterval = 60 * time.Second
)

// Deduper suppresses repeated reads of the same plate within a short
// time bucket while still letting genuine re-entries through.
type Deduper struct {
	mu        sync.Mutex
	seen      map[string]time.Time
	lastPrune time.Time
	now       func() time.Time
}

// NewDeduper creates an empty filter.
func NewDeduper() *Deduper {
	return &Deduper{
		seen:      make(map[string]time.Time),
		lastPrune: time.Now(),
		now:       time.Now,
	}
}

// Admit reports whether an event for plate should pass. The first call
// in a time bucket admits; subsequent calls in the same bucket suppress.
func (d *Deduper) Admit(plate string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	d.maybePrune(now)

	key := fmt.Sprintf("%s|%d", plate, now.Unix()/int64(dedupBucket.Seconds()))
	if _, exists := d.seen[key]; exists {
		return false
	}
	d.seen[key] = now
	return true
}

// maybePrune drops entries older than the lifetime, at most once per
// prune interval. Caller holds the lock.
func (d *Deduper) maybePrune(now time.Time) {
	if now.Sub(d.lastPrune) < pruneInterval {
		return
	}
	d.lastPrune = now

	for key, stamp := range d.seen {
		if now.Sub(stamp) > dedupLifetime {
			delete(d.seen, key)
		}
	}
}

// Len returns the number of live entries.
func (d *Deduper) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}
