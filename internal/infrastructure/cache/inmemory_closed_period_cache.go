package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// closedPeriodEntry is a cached answer with its expiry
type closedPeriodEntry struct {
	closed    bool
	expiresAt time.Time
}

// InMemoryClosedPeriodCache is a process-local closed period cache for
// single-instance deployments and tests. Entries expire lazily on read.
type InMemoryClosedPeriodCache struct {
	mu      sync.RWMutex
	entries map[string]closedPeriodEntry
	ttl     time.Duration
}

// NewInMemoryClosedPeriodCache creates a new in-memory closed period cache.
// A non-positive ttl falls back to the default.
func NewInMemoryClosedPeriodCache(ttl time.Duration) *InMemoryClosedPeriodCache {
	if ttl <= 0 {
		ttl = defaultClosedPeriodTTL
	}
	return &InMemoryClosedPeriodCache{
		entries: make(map[string]closedPeriodEntry),
		ttl:     ttl,
	}
}

func (c *InMemoryClosedPeriodCache) key(businessID uuid.UUID, month string) string {
	return fmt.Sprintf("%s:%s", businessID.String(), month)
}

// Get returns (closed, true) on a cache hit, (_, false) on a miss
func (c *InMemoryClosedPeriodCache) Get(_ context.Context, businessID uuid.UUID, month string) (bool, bool) {
	key := c.key(businessID, month)

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return false, false
	}
	if time.Now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return false, false
	}
	return entry.closed, true
}

// Set records whether the month is closed
func (c *InMemoryClosedPeriodCache) Set(_ context.Context, businessID uuid.UUID, month string, closed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[c.key(businessID, month)] = closedPeriodEntry{
		closed:    closed,
		expiresAt: time.Now().Add(c.ttl),
	}
}

// Invalidate drops the cached entry for the month
func (c *InMemoryClosedPeriodCache) Invalidate(_ context.Context, businessID uuid.UUID, month string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, c.key(businessID, month))
}
