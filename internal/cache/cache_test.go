package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yte121/openswarm-sub022/internal/model"
)

func testRecord(key string) *model.Record {
	return &model.Record{
		ID:       "id-" + key,
		Category: "cat",
		Key:      key,
		Value:    model.TextValue("value-for-" + key),
	}
}

// newTestCache sizes the budget to hold exactly n test records.
func newTestCache(t *testing.T, n int, strategy Strategy, opts ...func(*Config)) *Cache {
	t.Helper()
	size := recordSize(testRecord("k0"))
	cfg := Config{MaxSize: int64(n) * size, Strategy: strategy}
	for _, o := range opts {
		o(&cfg)
	}
	c, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestConfigValidation(t *testing.T) {
	var cerr *ConfigError

	_, err := New(Config{MaxSize: 0, Strategy: NewLRU()})
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "MaxSize", cerr.Field)

	_, err = New(Config{MaxSize: 1024})
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "Strategy", cerr.Field)

	_, err = New(Config{MaxSize: 1024, Strategy: NewLRU(), TTL: -time.Second})
	assert.ErrorAs(t, err, &cerr)

	_, err = ParseStrategy("random")
	assert.ErrorAs(t, err, &cerr)
}

func TestGetSetRoundTrip(t *testing.T) {
	c := newTestCache(t, 4, NewLRU())

	_, ok := c.Get("k1")
	assert.False(t, ok)

	c.Set("k1", testRecord("k1"))
	got, ok := c.Get("k1")
	require.True(t, ok)
	assert.Equal(t, "value-for-k1", got.Value.Text())

	// Cached records are isolated from caller mutation.
	got.Value = model.TextValue("mutated")
	again, ok := c.Get("k1")
	require.True(t, ok)
	assert.Equal(t, "value-for-k1", again.Value.Text())
}

func TestCapacityInvariant(t *testing.T) {
	c := newTestCache(t, 3, NewFIFO())

	for i := 0; i < 20; i++ {
		c.Set(fmt.Sprintf("k%d", i), testRecord(fmt.Sprintf("k%d", i)))
		st := c.Stats()
		assert.LessOrEqual(t, st.SizeBytes, st.MaxSize, "size must never exceed budget")
	}
	assert.LessOrEqual(t, c.Stats().Items, 3)
}

func TestSetReplacesSameKeyWithoutEviction(t *testing.T) {
	c := newTestCache(t, 3, NewLRU())

	c.Set("k1", testRecord("k1"))
	c.Set("k1", testRecord("k1"))

	st := c.Stats()
	assert.Equal(t, 1, st.Items)
	assert.Equal(t, uint64(0), st.Evictions)
}

func TestOnEvictCalledOncePerKey(t *testing.T) {
	evicted := map[string]int{}
	c := newTestCache(t, 2, NewFIFO(), func(cfg *Config) {
		cfg.OnEvict = func(key string, rec *model.Record) {
			require.NotNil(t, rec)
			evicted[key]++
		}
	})

	c.Set("a", testRecord("a"))
	c.Set("b", testRecord("b"))
	c.Set("c", testRecord("c")) // evicts a
	c.Set("d", testRecord("d")) // evicts b

	assert.Equal(t, map[string]int{"a": 1, "b": 1}, evicted)
	assert.Equal(t, uint64(2), c.Stats().Evictions)
}

func TestDeleteIsIdempotent(t *testing.T) {
	c := newTestCache(t, 2, NewLRU())

	c.Set("k1", testRecord("k1"))
	c.Delete("k1")
	c.Delete("k1")

	st := c.Stats()
	assert.Equal(t, 0, st.Items)
	assert.Equal(t, int64(0), st.SizeBytes)
	assert.Equal(t, uint64(0), st.Evictions, "delete is not an eviction")
}

func TestClear(t *testing.T) {
	c := newTestCache(t, 4, NewLRU())

	c.Set("k1", testRecord("k1"))
	c.Set("k2", testRecord("k2"))
	c.Clear()

	st := c.Stats()
	assert.Equal(t, 0, st.Items)
	assert.Equal(t, int64(0), st.SizeBytes)
	assert.Empty(t, c.Keys())

	// Bookkeeping is reset; inserts after clear behave normally.
	c.Set("k3", testRecord("k3"))
	_, ok := c.Get("k3")
	assert.True(t, ok)
}

func TestTTLExpiryOnGet(t *testing.T) {
	c := newTestCache(t, 4, NewLRU(), func(cfg *Config) {
		cfg.TTL = 50 * time.Millisecond
	})

	c.Set("k1", testRecord("k1"))
	time.Sleep(80 * time.Millisecond)

	_, ok := c.Get("k1")
	assert.False(t, ok, "expired entry must read as a miss")
	assert.NotContains(t, c.Keys(), "k1")

	st := c.Stats()
	assert.Equal(t, uint64(1), st.Evictions, "expiry eviction is counted")
	assert.Equal(t, 0, st.Items)
}

func TestBackgroundSweepReclaimsUnreadKeys(t *testing.T) {
	evicted := make(chan string, 1)
	c := newTestCache(t, 4, NewLRU(), func(cfg *Config) {
		cfg.TTL = 30 * time.Millisecond
		cfg.OnEvict = func(key string, _ *model.Record) { evicted <- key }
	})

	c.Set("k1", testRecord("k1"))

	// Never read again; the sweep alone must reclaim it.
	select {
	case key := <-evicted:
		assert.Equal(t, "k1", key)
	case <-time.After(2 * time.Second):
		t.Fatal("sweep did not evict expired entry")
	}
	assert.Equal(t, 0, c.Stats().Items)
}

func TestStatsHitRate(t *testing.T) {
	c := newTestCache(t, 4, NewLRU())

	assert.Equal(t, float64(0), c.Stats().HitRate, "no accesses yet")

	c.Set("k1", testRecord("k1"))
	c.Get("k1")
	c.Get("k1")
	c.Get("missing")

	st := c.Stats()
	assert.Equal(t, uint64(2), st.Hits)
	assert.Equal(t, uint64(1), st.Misses)
	assert.InDelta(t, 2.0/3.0, st.HitRate, 1e-9)
}

func TestOversizedEntryStillInserts(t *testing.T) {
	small := recordSize(testRecord("k0"))
	c, err := New(Config{MaxSize: small, Strategy: NewLRU()})
	require.NoError(t, err)
	t.Cleanup(c.Close)

	c.Set("small", testRecord("small"))

	big := testRecord("big")
	big.Value = model.TextValue(string(make([]byte, int(small*4))))
	c.Set("big", big)

	// Everything evictable was evicted, then the entry went in anyway.
	_, ok := c.Get("big")
	assert.True(t, ok)
	assert.Equal(t, 1, c.Stats().Items)
}

func TestCloseIsIdempotent(t *testing.T) {
	c := newTestCache(t, 2, NewLRU(), func(cfg *Config) {
		cfg.TTL = 10 * time.Millisecond
	})
	c.Close()
	c.Close()
}
