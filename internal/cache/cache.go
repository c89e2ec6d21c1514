// Package cache implements a bounded in-memory cache in front of the
// record store, with pluggable eviction (LRU, LFU, FIFO) and TTL expiry.
package cache

import (
	"encoding/json"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/yte121/openswarm-sub022/internal/model"
)

// sweepCeiling bounds the background expiry interval so memory is
// reclaimed promptly even under long TTLs.
const sweepCeiling = time.Minute

// Entry wraps a cached record with the bookkeeping the eviction strategies
// read. Entries are owned exclusively by the cache and never persisted.
type Entry struct {
	Record     *model.Record
	Timestamp  time.Time // insertion time, FIFO order and LFU tie-break
	LastAccess time.Time // LRU recency
	Frequency  int       // LFU access count
	Size       int64     // serialized byte length
}

// Config configures a Cache. MaxSize is a total byte budget; TTL of zero
// disables expiry; Strategy is required.
type Config struct {
	MaxSize  int64
	TTL      time.Duration
	Strategy Strategy
	OnEvict  func(key string, rec *model.Record)
	Logger   *zap.Logger
}

// Cache is a bounded map of records keyed by identity. All methods are
// synchronous and in-memory; only the background expiry sweep runs off a
// timer. Safe for concurrent use.
type Cache struct {
	mu       sync.Mutex
	entries  map[string]*Entry
	strategy Strategy
	maxSize  int64
	size     int64
	ttl      time.Duration
	onEvict  func(key string, rec *model.Record)
	log      *zap.Logger

	hits      uint64
	misses    uint64
	evictions uint64

	done      chan struct{}
	closeOnce sync.Once
}

// New validates the configuration and starts the cache. Invalid
// configuration is rejected here, not at first use. The expiry sweep (when
// TTL is set) is owned by this instance and stopped by Close.
func New(cfg Config) (*Cache, error) {
	if cfg.MaxSize <= 0 {
		return nil, &ConfigError{Field: "MaxSize", Reason: "must be positive"}
	}
	if cfg.Strategy == nil {
		return nil, &ConfigError{Field: "Strategy", Reason: "must be set"}
	}
	if cfg.TTL < 0 {
		return nil, &ConfigError{Field: "TTL", Reason: "must not be negative"}
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	c := &Cache{
		entries:  make(map[string]*Entry),
		strategy: cfg.Strategy,
		maxSize:  cfg.MaxSize,
		ttl:      cfg.TTL,
		onEvict:  cfg.OnEvict,
		log:      log,
		done:     make(chan struct{}),
	}

	if cfg.TTL > 0 {
		interval := cfg.TTL
		if interval > sweepCeiling {
			interval = sweepCeiling
		}
		go c.sweepLoop(interval)
	}

	return c, nil
}

// Get returns the cached record for key. A hit refreshes recency and
// frequency; an expired entry counts as a miss and is evicted on the spot.
func (c *Cache) Get(key string) (*model.Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}

	now := time.Now()
	if c.expired(e, now) {
		c.evict(key, e)
		c.misses++
		return nil, false
	}

	e.LastAccess = now
	e.Frequency++
	c.strategy.Touched(key, e)
	c.hits++
	return e.Record.Clone(), true
}

// Set inserts or replaces the entry for key, evicting per strategy until
// the new entry fits or the cache is empty.
func (c *Cache) Set(key string, rec *model.Record) {
	size := recordSize(rec)

	c.mu.Lock()
	defer c.mu.Unlock()

	// Replacing an existing key is not an eviction.
	if old, ok := c.entries[key]; ok {
		c.remove(key, old)
	}

	for c.size+size > c.maxSize && len(c.entries) > 0 {
		victim, ok := c.strategy.Victim(c.entries)
		if !ok {
			break
		}
		c.evict(victim, c.entries[victim])
	}

	now := time.Now()
	e := &Entry{
		Record:     rec.Clone(),
		Timestamp:  now,
		LastAccess: now,
		Size:       size,
	}
	c.entries[key] = e
	c.size += size
	c.strategy.Inserted(key, e)
}

// Delete removes the entry and its strategy bookkeeping. Idempotent.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		c.remove(key, e)
	}
}

// Clear removes all entries and resets size and bookkeeping.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*Entry)
	c.size = 0
	c.strategy.Reset()
}

// Keys returns the keys of all non-expired entries, sorted.
func (c *Cache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	keys := make([]string, 0, len(c.entries))
	for key, e := range c.entries {
		if c.expired(e, now) {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Stats holds cache counters.
type Stats struct {
	Hits      uint64  `json:"hits"`
	Misses    uint64  `json:"misses"`
	Evictions uint64  `json:"evictions"`
	SizeBytes int64   `json:"size_bytes"`
	MaxSize   int64   `json:"max_size"`
	Items     int     `json:"items"`
	HitRate   float64 `json:"hit_rate"`
}

// Stats returns a snapshot of the counters. HitRate is zero before any
// access.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := Stats{
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		SizeBytes: c.size,
		MaxSize:   c.maxSize,
		Items:     len(c.entries),
	}
	if total := c.hits + c.misses; total > 0 {
		st.HitRate = float64(c.hits) / float64(total)
	}
	return st
}

// Close stops the background expiry sweep. Idempotent.
func (c *Cache) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *Cache) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.sweep()
		case <-c.done:
			return
		}
	}
}

// sweep reclaims TTL-expired entries, including keys that are never
// re-read.
func (c *Cache) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	removed := 0
	for key, e := range c.entries {
		if c.expired(e, now) {
			c.evict(key, e)
			removed++
		}
	}
	if removed > 0 {
		c.log.Debug("cache sweep", zap.Int("expired", removed), zap.Int("remaining", len(c.entries)))
	}
}

func (c *Cache) expired(e *Entry, now time.Time) bool {
	if c.ttl <= 0 {
		return false
	}
	return now.Sub(e.Timestamp) > c.ttl
}

// evict fires the callback before removing the entry from bookkeeping.
func (c *Cache) evict(key string, e *Entry) {
	if c.onEvict != nil {
		c.onEvict(key, e.Record)
	}
	c.evictions++
	c.remove(key, e)
}

func (c *Cache) remove(key string, e *Entry) {
	delete(c.entries, key)
	c.size -= e.Size
	c.strategy.Removed(key)
}

func recordSize(rec *model.Record) int64 {
	b, err := json.Marshal(rec)
	if err != nil {
		return rec.Value.Size()
	}
	return int64(len(b))
}
