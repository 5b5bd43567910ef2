package discovery

import (
	"sync"
	"time"
)

// ttlCache holds one value per filter. Each entry is dropped by a one-shot
// timer ttl after insertion; reads do not renew it. A generation number
// keeps a stale timer from evicting a newer entry.
//
// Writers take a stamp before scanning and hand it to set. A reset or clear
// in between advances the stamp, and the late write is dropped.
type ttlCache[V any] struct {
	mu      sync.Mutex
	ttl     time.Duration
	gen     uint64
	cleared uint64
	resets  map[Filter]uint64
	entries map[Filter]*cacheEntry[V]
}

type cacheEntry[V any] struct {
	value V
	gen   uint64
	timer *time.Timer
}

func newTTLCache[V any](ttl time.Duration) *ttlCache[V] {
	return &ttlCache[V]{
		ttl:     ttl,
		resets:  make(map[Filter]uint64),
		entries: make(map[Filter]*cacheEntry[V]),
	}
}

// stamp returns the invalidation count seen by f so far.
func (c *ttlCache[V]) stamp(f Filter) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cleared + c.resets[f]
}

func (c *ttlCache[V]) get(f Filter) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[f]; ok {
		return e.value, true
	}
	var zero V
	return zero, false
}

// set stores v unless f was invalidated after stamp was taken. It reports
// whether the value was stored.
func (c *ttlCache[V]) set(f Filter, v V, stamp uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cleared+c.resets[f] != stamp {
		return false
	}
	if old, ok := c.entries[f]; ok {
		old.timer.Stop()
	}
	c.gen++
	gen := c.gen
	e := &cacheEntry[V]{value: v, gen: gen}
	e.timer = time.AfterFunc(c.ttl, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if cur, ok := c.entries[f]; ok && cur.gen == gen {
			delete(c.entries, f)
		}
	})
	c.entries[f] = e
	return true
}

func (c *ttlCache[V]) reset(f Filter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resets[f]++
	if e, ok := c.entries[f]; ok {
		e.timer.Stop()
		delete(c.entries, f)
	}
}

func (c *ttlCache[V]) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cleared++
	for f, e := range c.entries {
		e.timer.Stop()
		delete(c.entries, f)
	}
}
