package catalog

import (
	"strings"
	"sync"
	"time"

	"github.com/leeineian/smartradio/radio"
)

// QueryCache keeps search results in memory for a while.
type QueryCache struct {
	sync.RWMutex
	ttl   time.Duration
	now   func() time.Time
	items map[string]cachedItem
}

type cachedItem struct {
	results   []radio.Candidate
	expiresAt time.Time
}

// NewQueryCache returns a cache whose entries live for ttl.
func NewQueryCache(ttl time.Duration) *QueryCache {
	return &QueryCache{
		ttl:   ttl,
		now:   time.Now,
		items: make(map[string]cachedItem),
	}
}

func normalizeQuery(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}

// Get returns a copy of the cached results for q.
func (c *QueryCache) Get(q string) ([]radio.Candidate, bool) {
	c.RLock()
	defer c.RUnlock()
	item, ok := c.items[normalizeQuery(q)]
	if !ok || !c.now().Before(item.expiresAt) {
		return nil, false
	}
	return append([]radio.Candidate(nil), item.results...), true
}

// Set stores results for q. Empty results are not cached.
func (c *QueryCache) Set(q string, results []radio.Candidate) {
	if len(results) == 0 || c.ttl <= 0 {
		return
	}
	c.Lock()
	c.items[normalizeQuery(q)] = cachedItem{
		results:   append([]radio.Candidate(nil), results...),
		expiresAt: c.now().Add(c.ttl),
	}
	c.Unlock()
}

// Prune drops expired entries and returns how many were removed.
func (c *QueryCache) Prune() int {
	c.Lock()
	defer c.Unlock()
	now := c.now()
	n := 0
	for q, item := range c.items {
		if now.After(item.expiresAt) {
			delete(c.items, q)
			n++
		}
	}
	return n
}

// Len returns the number of stored entries, expired or not.
func (c *QueryCache) Len() int {
	c.RLock()
	defer c.RUnlock()
	return len(c.items)
}
