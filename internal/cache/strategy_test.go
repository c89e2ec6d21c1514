package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Interface compliance (compile-time assertions)
var (
	_ Strategy = (*LruEviction)(nil)
	_ Strategy = (*LfuEviction)(nil)
	_ Strategy = (*FifoEviction)(nil)
)

func TestParseStrategy(t *testing.T) {
	for name, want := range map[string]string{
		"lru":  "lru",
		"lfu":  "lfu",
		"fifo": "fifo",
		"":     "lru",
	} {
		s, err := ParseStrategy(name)
		require.NoError(t, err)
		assert.Equal(t, want, s.Name())
	}
}

func TestLRUEvictsLeastRecentlyTouched(t *testing.T) {
	c := newTestCache(t, 3, NewLRU())

	c.Set("A", testRecord("A"))
	c.Set("B", testRecord("B"))
	c.Set("C", testRecord("C"))

	// Touch A: eviction order becomes B, C, A.
	_, ok := c.Get("A")
	require.True(t, ok)

	c.Set("D", testRecord("D"))

	assert.NotContains(t, c.Keys(), "B", "B was least recently touched")
	assert.Contains(t, c.Keys(), "A")
	assert.Contains(t, c.Keys(), "C")
	assert.Contains(t, c.Keys(), "D")
}

func TestLRUSetCountsAsInsertionNotTouch(t *testing.T) {
	c := newTestCache(t, 2, NewLRU())

	c.Set("A", testRecord("A"))
	c.Set("B", testRecord("B"))
	c.Get("B")
	c.Get("A") // A most recent now

	c.Set("C", testRecord("C"))
	assert.NotContains(t, c.Keys(), "B")
	assert.Contains(t, c.Keys(), "A")
}

func TestLFUEvictsMinimumFrequency(t *testing.T) {
	c := newTestCache(t, 3, NewLFU())

	c.Set("A", testRecord("A"))
	c.Set("B", testRecord("B"))
	c.Set("C", testRecord("C"))

	// A and C get hits, B stays at zero.
	c.Get("A")
	c.Get("A")
	c.Get("C")

	c.Set("D", testRecord("D"))
	assert.NotContains(t, c.Keys(), "B")
}

func TestLFUTieBreaksOnOldestInsertion(t *testing.T) {
	c := newTestCache(t, 2, NewLFU())

	c.Set("A", testRecord("A"))
	time.Sleep(5 * time.Millisecond)
	c.Set("B", testRecord("B"))

	// Both at frequency 1; A was inserted first.
	c.Get("A")
	c.Get("B")

	c.Set("C", testRecord("C"))
	assert.NotContains(t, c.Keys(), "A", "tie at min frequency evicts the oldest insertion")
	assert.Contains(t, c.Keys(), "B")
}

func TestLFUTieBreakIgnoresRecency(t *testing.T) {
	c := newTestCache(t, 2, NewLFU())

	c.Set("A", testRecord("A"))
	time.Sleep(5 * time.Millisecond)
	c.Set("B", testRecord("B"))

	// Access B first, then A: A is more recently accessed, but the
	// tie-break is insertion order, not recency.
	c.Get("B")
	c.Get("A")

	c.Set("C", testRecord("C"))
	assert.NotContains(t, c.Keys(), "A")
}

func TestFIFOEvictsOldestInsertionRegardlessOfAccess(t *testing.T) {
	c := newTestCache(t, 3, NewFIFO())

	c.Set("A", testRecord("A"))
	time.Sleep(5 * time.Millisecond)
	c.Set("B", testRecord("B"))
	time.Sleep(5 * time.Millisecond)
	c.Set("C", testRecord("C"))

	// Heavy access on A must not save it.
	for i := 0; i < 10; i++ {
		c.Get("A")
	}

	c.Set("D", testRecord("D"))
	assert.NotContains(t, c.Keys(), "A")
	assert.Contains(t, c.Keys(), "B")
}
