package cache

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"sync/atomic"

	"github.com/jeffreyzhou0924/trademe-detect/internal/classify"
)

// ---------------------------------------------------------------------------
// Analysis Cache — bounded, content-addressed store of AnalysisResults.
// Strict LRU, capacity-bounded only; entries never expire by time. One cache
// lives for the process lifetime, owned by the detection engine.
// ---------------------------------------------------------------------------

// DefaultMaxSize bounds the cache when no capacity is configured.
const DefaultMaxSize = 100

// Key returns the stable content hash for a normalized snippet.
// Identical code re-rendered with different surrounding whitespace maps to
// the same key because extraction normalizes before hashing.
func Key(normalized string) string {
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

type entry struct {
	key    string
	result classify.AnalysisResult
}

// Cache maps codeHash -> AnalysisResult with LRU eviction.
type Cache struct {
	mu       sync.Mutex
	capacity int
	ll       *list.List // front = most recently used
	items    map[string]*list.Element

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

// New creates a cache bounded at capacity entries.
// A capacity <= 0 falls back to DefaultMaxSize.
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultMaxSize
	}
	return &Cache{
		capacity: capacity,
		ll:       list.New(),
		items:    make(map[string]*list.Element, capacity),
	}
}

// Get returns the stored result for hash, promoting the entry to
// most-recently-used on a hit.
func (c *Cache) Get(hash string) (classify.AnalysisResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[hash]
	if !ok {
		c.misses.Add(1)
		return classify.AnalysisResult{}, false
	}
	c.ll.MoveToFront(el)
	c.hits.Add(1)
	return el.Value.(*entry).result, true
}

// Put stores a result under hash, evicting the least-recently-used entry
// when the cache is at capacity. Re-putting an existing key refreshes the
// stored value and promotes it.
func (c *Cache) Put(hash string, result classify.AnalysisResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[hash]; ok {
		el.Value.(*entry).result = result
		c.ll.MoveToFront(el)
		return
	}

	if c.ll.Len() >= c.capacity {
		oldest := c.ll.Back()
		if oldest != nil {
			c.ll.Remove(oldest)
			delete(c.items, oldest.Value.(*entry).key)
			c.evictions.Add(1)
		}
	}
	c.items[hash] = c.ll.PushFront(&entry{key: hash, result: result})
}

// Len returns the current number of entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Size      int   `json:"size"`
	Capacity  int   `json:"capacity"`
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
}

// Snapshot returns the current cache statistics.
func (c *Cache) Snapshot() Stats {
	c.mu.Lock()
	size := c.ll.Len()
	c.mu.Unlock()

	return Stats{
		Size:      size,
		Capacity:  c.capacity,
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
	}
}
