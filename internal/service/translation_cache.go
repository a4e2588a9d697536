package service

import (
	"sync"
	"time"

	"github.com/klausbr/readium-api/internal/translation"
)

// autoTranslationCache is a TTL-bounded cache of provider translations
// keyed by target language and normalized text. Entries expire a fixed
// duration after creation regardless of reads, and when the cache is
// full the oldest entry by creation time makes room. Expired entries are
// swept opportunistically on writes.
type autoTranslationCache struct {
	mu         sync.Mutex
	ttl        time.Duration
	maxEntries int
	entries    map[string]*cacheEntry
	order      []string

	now func() time.Time
}

type cacheEntry struct {
	result    *translation.AutoResult
	createdAt time.Time
}

func newAutoTranslationCache(ttl time.Duration, maxEntries int) *autoTranslationCache {
	if ttl < time.Second {
		ttl = time.Second
	}
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &autoTranslationCache{
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]*cacheEntry),
		now:        time.Now,
	}
}

// Get returns the cached translation for key, treating expired entries
// as misses.
func (c *autoTranslationCache) Get(key string) (*translation.AutoResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().Sub(entry.createdAt) >= c.ttl {
		delete(c.entries, key)
		return nil, false
	}
	return entry.result, true
}

// Put stores a translation under key, evicting expired entries first and
// then the oldest live entries until the cache fits. Overwriting a key
// counts as a fresh creation, so its eviction slot moves to the back.
func (c *autoTranslationCache) Put(key string, result *translation.AutoResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sweepLocked()

	if _, exists := c.entries[key]; exists {
		for i, k := range c.order {
			if k == key {
				c.order = append(c.order[:i], c.order[i+1:]...)
				break
			}
		}
	} else {
		for len(c.entries) >= c.maxEntries && len(c.order) > 0 {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.entries, oldest)
		}
	}
	c.order = append(c.order, key)

	c.entries[key] = &cacheEntry{result: result, createdAt: c.now()}
}

// sweepLocked drops expired entries and compacts the creation-order list.
// Callers must hold the mutex.
func (c *autoTranslationCache) sweepLocked() {
	now := c.now()
	live := c.order[:0]
	for _, key := range c.order {
		entry, ok := c.entries[key]
		if !ok {
			continue
		}
		if now.Sub(entry.createdAt) >= c.ttl {
			delete(c.entries, key)
			continue
		}
		live = append(live, key)
	}
	c.order = live
}

// translationRateLimiter enforces a minimum interval between provider
// calls for the same key. The timestamp is recorded before checking, so
// a rejected burst still pushes the window forward and a tight retry loop
// never slips through. Entries older than twenty intervals are dropped on
// every check to keep the map from growing without bound.
type translationRateLimiter struct {
	mu          sync.Mutex
	minInterval time.Duration
	lastByKey   map[string]time.Time

	now func() time.Time
}

func newTranslationRateLimiter(minInterval time.Duration) *translationRateLimiter {
	return &translationRateLimiter{
		minInterval: minInterval,
		lastByKey:   make(map[string]time.Time),
		now:         time.Now,
	}
}

// Enforce records a request for key and returns ErrRateLimitExceeded when
// the previous request for the same key was too recent.
func (l *translationRateLimiter) Enforce(key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	previous, seen := l.lastByKey[key]
	l.lastByKey[key] = now

	l.cleanupLocked(now)

	if seen && now.Sub(previous) < l.minInterval {
		return ErrRateLimitExceeded
	}
	return nil
}

func (l *translationRateLimiter) cleanupLocked(now time.Time) {
	interval := l.minInterval
	if interval < time.Millisecond {
		interval = time.Millisecond
	}
	staleThreshold := now.Add(-interval * 20)
	for key, last := range l.lastByKey {
		if !last.After(staleThreshold) {
			delete(l.lastByKey, key)
		}
	}
}
