package cache

import (
	"sync"
	"time"

	"github.com/nutrilog/backend/internal/domain"
)

// Defaults applied when the corresponding option is zero.
const (
	DefaultMaxSize = 1000
	DefaultTTL     = 24 * time.Hour
)

// entry is a single cached nutrition value with the bookkeeping needed
// for expiry and eviction.
type entry struct {
	facts       domain.NutritionFacts
	createdAt   time.Time
	accessCount int
	seq         uint64 // insertion order, breaks eviction ties
}

// FactsCache is a thread-safe, size-bounded, time-expiring memo store for
// nutrition facts keyed by normalized food descriptions.
//
// Expiry is lazy: an entry past its TTL is removed the next time Get sees
// it; there is no background sweep, so stale entries count toward Size
// until then. Eviction is approximate LFU: when Set runs at capacity it
// removes the one live entry with the lowest access count, preferring the
// earliest-inserted on ties. Overwriting a key replaces the entry and
// resets its access count to zero.
type FactsCache struct {
	mu      sync.Mutex
	data    map[string]*entry
	maxSize int
	ttl     time.Duration
	nextSeq uint64

	// now is swappable for expiry tests
	now func() time.Time
}

// Option configures a FactsCache at construction time.
type Option func(*FactsCache)

// WithMaxSize sets the maximum number of live entries.
func WithMaxSize(n int) Option {
	return func(c *FactsCache) {
		if n > 0 {
			c.maxSize = n
		}
	}
}

// WithTTL sets the entry lifetime.
func WithTTL(d time.Duration) Option {
	return func(c *FactsCache) {
		if d > 0 {
			c.ttl = d
		}
	}
}

// WithClock overrides the time source. Used by tests to exercise expiry
// without sleeping.
func WithClock(now func() time.Time) Option {
	return func(c *FactsCache) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates a facts cache with the given options.
func New(opts ...Option) *FactsCache {
	c := &FactsCache{
		data:    make(map[string]*entry),
		maxSize: DefaultMaxSize,
		ttl:     DefaultTTL,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get retrieves the facts stored under key. An expired entry is deleted
// and reported as a miss. A hit increments the entry's access count.
func (c *FactsCache) Get(key string) (domain.NutritionFacts, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.data[key]
	if !ok {
		return domain.NutritionFacts{}, false
	}

	if c.now().Sub(e.createdAt) > c.ttl {
		delete(c.data, key)
		return domain.NutritionFacts{}, false
	}

	e.accessCount++
	return e.facts, true
}

// Set stores facts under key, evicting one least-frequently-used entry
// first when the cache is at capacity. An existing key is replaced with
// a fresh entry, not refreshed in place.
func (c *FactsCache) Set(key string, facts domain.NutritionFacts) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Eviction triggers on raw occupancy, even when key already exists;
	// the victim may then be key itself.
	if len(c.data) >= c.maxSize {
		c.evictLocked()
	}

	c.nextSeq++
	c.data[key] = &entry{
		facts:     facts,
		createdAt: c.now(),
		seq:       c.nextSeq,
	}
}

// evictLocked removes the entry with the lowest access count, preferring
// the earliest-inserted on ties. Caller must hold the mutex.
func (c *FactsCache) evictLocked() {
	var victim string
	var victimEntry *entry

	for key, e := range c.data {
		if victimEntry == nil ||
			e.accessCount < victimEntry.accessCount ||
			(e.accessCount == victimEntry.accessCount && e.seq < victimEntry.seq) {
			victim = key
			victimEntry = e
		}
	}

	if victimEntry != nil {
		delete(c.data, victim)
	}
}

// Clear removes all entries.
func (c *FactsCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string]*entry)
}

// Stats returns a snapshot of the cache. Size includes entries that have
// expired but not yet been lazily removed. HitRate is the mean access
// count across live entries, zero when empty.
func (c *FactsCache) Stats() domain.CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := domain.CacheStats{
		Size:    len(c.data),
		MaxSize: c.maxSize,
	}

	if len(c.data) > 0 {
		total := 0
		for _, e := range c.data {
			total += e.accessCount
		}
		stats.HitRate = float64(total) / float64(len(c.data))
	}

	return stats
}
