// Package bridge moves messages between embedding contexts ("frames")
// across untrusted origins. It enforces the origin policy, suppresses
// duplicate and runaway sends, and stamps every message with a source
// envelope before delivery.
package bridge

import (
	"sync"
)

// DefaultDedupeCapacity is the default bound on the duplicate-suppression
// set. Tunable, not an invariant; the value was chosen to cover a busy
// call session without unbounded growth.
const DefaultDedupeCapacity = 128

// Deduper suppresses repeat processing of identical messages. Keys are
// held in an insertion-ordered bounded set; once the set exceeds its
// capacity the oldest quarter of entries is evicted.
type Deduper struct {
	mu       sync.Mutex
	capacity int
	order    []string
	seen     map[string]struct{}
}

// NewDeduper creates a Deduper with the given capacity.
// A capacity of zero or less falls back to DefaultDedupeCapacity.
func NewDeduper(capacity int) *Deduper {
	if capacity <= 0 {
		capacity = DefaultDedupeCapacity
	}
	return &Deduper{
		capacity: capacity,
		seen:     make(map[string]struct{}, capacity),
	}
}

// ShouldProcess records key and reports whether it is being seen for the
// first time within its residency window. A given key is accepted at most
// once while it remains in the set.
func (d *Deduper) ShouldProcess(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, dup := d.seen[key]; dup {
		return false
	}

	d.seen[key] = struct{}{}
	d.order = append(d.order, key)

	if len(d.order) > d.capacity {
		d.evictOldest()
	}

	return true
}

// evictOldest drops the oldest 25% of entries. Caller holds d.mu.
func (d *Deduper) evictOldest() {
	n := len(d.order) / 4
	if n < 1 {
		n = 1
	}
	for _, key := range d.order[:n] {
		delete(d.seen, key)
	}
	d.order = append(d.order[:0], d.order[n:]...)
}

// Len returns the number of keys currently resident in the set.
func (d *Deduper) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.order)
}

// Reset clears the set. Useful for tests.
func (d *Deduper) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.order = nil
	d.seen = make(map[string]struct{}, d.capacity)
}
