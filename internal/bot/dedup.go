package bot

import (
	"sync"
	"time"
)

const (
	defaultDedupTTL         = 24 * time.Hour
	maxDedupCleanupInterval = 5 * time.Minute
)

// deliveryCache remembers recently handled message IDs so that a webhook
// delivery replayed by the platform is processed only once.
type deliveryCache struct {
	ttl time.Duration
	now func() time.Time

	mu          sync.Mutex
	seen        map[string]time.Time
	lastCleanup time.Time
}

func newDeliveryCache(ttl time.Duration) *deliveryCache {
	if ttl <= 0 {
		ttl = defaultDedupTTL
	}
	return &deliveryCache{
		ttl:  ttl,
		now:  time.Now,
		seen: make(map[string]time.Time),
	}
}

// Claim records id and reports whether this is its first delivery within the
// TTL. Messages without an ID cannot be deduplicated and are always claimed.
func (c *deliveryCache) Claim(id string) bool {
	if id == "" {
		return true
	}

	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if expiresAt, ok := c.seen[id]; ok && now.Before(expiresAt) {
		return false
	}

	c.seen[id] = now.Add(c.ttl)
	c.cleanupExpiredLocked(now)
	return true
}

// Release forgets id so a later redelivery is processed again. Used when
// handling failed before anything was committed.
func (c *deliveryCache) Release(id string) {
	if id == "" {
		return
	}

	c.mu.Lock()
	delete(c.seen, id)
	c.mu.Unlock()
}

// Len returns the number of tracked message IDs.
func (c *deliveryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seen)
}

func (c *deliveryCache) cleanupExpiredLocked(now time.Time) {
	interval := min(c.ttl, maxDedupCleanupInterval)
	if !c.lastCleanup.IsZero() && now.Sub(c.lastCleanup) < interval {
		return
	}
	for id, expiresAt := range c.seen {
		if !now.Before(expiresAt) {
			delete(c.seen, id)
		}
	}
	c.lastCleanup = now
}
