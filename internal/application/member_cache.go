package application

import (
	"sync"
	"time"
)

// memberCache keeps recent member lookups so that repeated bookings by the
// same member do not hit the directory for the role label every time.
type memberCache struct {
	mu         sync.RWMutex
	now        func() time.Time
	ttl        time.Duration
	maxEntries int
	entries    map[string]memberCacheEntry
}

type memberCacheEntry struct {
	member    Member
	found     bool
	expiresAt time.Time
}

func newMemberCache(ttl time.Duration, maxEntries int, now func() time.Time) *memberCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if maxEntries <= 0 {
		maxEntries = 256
	}
	if now == nil {
		now = time.Now
	}
	return &memberCache{
		now:        now,
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]memberCacheEntry),
	}
}

// Get returns the cached member. found is false for ids the directory did not
// know when they were stored.
func (c *memberCache) Get(id string) (member Member, found bool, ok bool) {
	if c == nil {
		return Member{}, false, false
	}
	c.mu.RLock()
	entry, ok := c.entries[id]
	c.mu.RUnlock()
	if !ok {
		return Member{}, false, false
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, id)
		c.mu.Unlock()
		return Member{}, false, false
	}
	return entry.member, entry.found, true
}

func (c *memberCache) Store(id string, member Member, found bool) {
	if c == nil {
		return
	}
	expiry := c.now().Add(c.ttl)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.cleanupLocked()
	if len(c.entries) >= c.maxEntries {
		c.evictOneLocked()
	}
	c.entries[id] = memberCacheEntry{member: member, found: found, expiresAt: expiry}
}

func (c *memberCache) cleanupLocked() {
	now := c.now()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
}

func (c *memberCache) evictOneLocked() {
	for key := range c.entries {
		delete(c.entries, key)
		return
	}
}
