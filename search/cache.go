package search

import (
	"math"
	"slices"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of distinct queries kept by default.
const DefaultCacheSize = 1000

// CacheStats reports query cache occupancy and cumulative effectiveness.
type CacheStats struct {
	Size            int       `json:"size"`
	MaxSize         int       `json:"max_size"`
	Hits            uint64    `json:"hits"`
	Misses          uint64    `json:"misses"`
	HitRate         float64   `json:"hit_rate"` // percent, two decimals
	LastInvalidated time.Time `json:"last_invalidated"`
}

// QueryCache maps normalized queries to ranked results.
// Capacity is bounded; the least recently used query is evicted first.
// Hit and miss counters are cumulative and survive InvalidateAll.
type QueryCache struct {
	mu              sync.Mutex
	entries         *lru.Cache[string, []Result]
	maxSize         int
	hits            uint64
	misses          uint64
	generation      uint64
	lastInvalidated time.Time
}

// NewQueryCache creates a cache holding at most maxSize queries.
func NewQueryCache(maxSize int) *QueryCache {
	if maxSize <= 0 {
		maxSize = DefaultCacheSize
	}
	entries, err := lru.New[string, []Result](maxSize)
	if err != nil {
		// lru.New only errors on non-positive size which we guard above.
		panic(err)
	}
	return &QueryCache{
		entries:         entries,
		maxSize:         maxSize,
		lastInvalidated: time.Now(),
	}
}

// Get returns the cached results for query, counting a hit or a miss.
func (c *QueryCache) Get(query string) ([]Result, bool) {
	key := NormalizeQuery(query)

	c.mu.Lock()
	defer c.mu.Unlock()

	results, ok := c.entries.Get(key)
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	return slices.Clone(results), true
}

// Set stores results for query, evicting the oldest entry when full.
func (c *QueryCache) Set(query string, results []Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Add(NormalizeQuery(query), slices.Clone(results))
}

// SetIfGeneration stores results only if no invalidation happened since
// generation was read. It reports whether the entry was stored.
func (c *QueryCache) SetIfGeneration(generation uint64, query string, results []Result) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if generation != c.generation {
		return false
	}
	c.entries.Add(NormalizeQuery(query), slices.Clone(results))
	return true
}

// Generation returns a counter that advances on every InvalidateAll.
func (c *QueryCache) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

// InvalidateAll drops every cached query. Counters are left untouched.
func (c *QueryCache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries.Purge()
	c.generation++
	c.lastInvalidated = time.Now()
}

// Stats returns a snapshot of cache counters.
func (c *QueryCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	var hitRate float64
	if total := c.hits + c.misses; total > 0 {
		hitRate = math.Round(float64(c.hits)/float64(total)*100*100) / 100
	}
	return CacheStats{
		Size:            c.entries.Len(),
		MaxSize:         c.maxSize,
		Hits:            c.hits,
		Misses:          c.misses,
		HitRate:         hitRate,
		LastInvalidated: c.lastInvalidated,
	}
}
