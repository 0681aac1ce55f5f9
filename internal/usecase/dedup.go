package usecase

import (
	"sync"
	"time"
)

// DedupTable tracks recently seen correlation IDs so webhook re-deliveries
// within the cooldown window do not place a second order. Entries expire
// after the window; expired entries are pruned on every check.
type DedupTable struct {
	mu     sync.Mutex
	window time.Duration
	seen   map[string]time.Time
	now    func() time.Time
}

func NewDedupTable(window time.Duration) *DedupTable {
	return &DedupTable{
		window: window,
		seen:   make(map[string]time.Time),
		now:    time.Now,
	}
}

// Check records the correlation ID and reports whether it was already seen
// within the cooldown window. A duplicate does not refresh the timestamp, so
// a steady stream of re-deliveries still expires at the original deadline.
func (d *DedupTable) Check(correlationID string) (duplicate bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	for id, at := range d.seen {
		if now.Sub(at) >= d.window {
			delete(d.seen, id)
		}
	}

	if _, ok := d.seen[correlationID]; ok {
		return true
	}
	d.seen[correlationID] = now
	return false
}

// Len reports the number of unexpired entries, for status reporting.
func (d *DedupTable) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}
