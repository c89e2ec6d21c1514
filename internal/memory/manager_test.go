package memory

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yte121/openswarm-sub022/internal/cache"
	"github.com/yte121/openswarm-sub022/internal/model"
	"github.com/yte121/openswarm-sub022/internal/resolve"
	"github.com/yte121/openswarm-sub022/internal/store"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	backend, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	m, err := New(Config{Backend: backend})
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	return m
}

func TestNewRequiresBackend(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestStoreThenGet(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	stored, err := m.Store(ctx, &model.Record{
		Category: "cfg",
		Key:      "app",
		Value:    model.TextValue("hello"),
	})
	require.NoError(t, err)
	assert.Equal(t, model.DefaultNamespace, stored.Namespace)

	// The just-written value is observable immediately (cache is updated
	// synchronously as part of Store).
	got, err := m.Get(ctx, "cfg", "app", "")
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Value.Text())

	_, err = m.Get(ctx, "cfg", "missing", "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCacheHitMatchesLatestStore(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	_, err := m.Store(ctx, &model.Record{Category: "c", Key: "k", Value: model.TextValue("v1")})
	require.NoError(t, err)
	got, err := m.Get(ctx, "c", "k", "")
	require.NoError(t, err)
	assert.Equal(t, "v1", got.Value.Text())

	// A second store must not leave a stale cache entry behind.
	_, err = m.Store(ctx, &model.Record{Category: "c", Key: "k", Value: model.TextValue("v2")})
	require.NoError(t, err)
	got, err = m.Get(ctx, "c", "k", "")
	require.NoError(t, err)
	assert.Equal(t, "v2", got.Value.Text())
}

func TestGetPopulatesCacheOnMiss(t *testing.T) {
	ctx := context.Background()

	backend, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	c, err := cache.New(cache.Config{MaxSize: 1 << 20, Strategy: cache.NewLRU()})
	require.NoError(t, err)
	m, err := New(Config{Backend: backend, Cache: c})
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })

	// Write through the backend directly so the cache has never seen it.
	_, err = backend.Put(ctx, &model.Record{Category: "c", Key: "cold", Value: model.TextValue("x")})
	require.NoError(t, err)

	_, err = m.Get(ctx, "c", "cold", "")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), c.Stats().Misses)

	_, err = m.Get(ctx, "c", "cold", "")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), c.Stats().Hits, "second read is served by the cache")
}

func TestDefaultShallowMergeEndToEnd(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	_, err := m.Store(ctx, &model.Record{
		Category: "cfg",
		Key:      "app",
		Value:    model.MustJSONValue(map[string]any{"theme": "light"}),
	})
	require.NoError(t, err)

	resolved, err := m.Store(ctx, &model.Record{
		Category: "cfg",
		Key:      "app",
		Value:    model.MustJSONValue(map[string]any{"notifications": true}),
	})
	require.NoError(t, err)

	obj, ok := resolved.Value.Object()
	require.True(t, ok)
	assert.Equal(t, "light", obj["theme"])
	assert.Equal(t, true, obj["notifications"])

	// And the persisted record agrees.
	got, err := m.Get(ctx, "cfg", "app", "")
	require.NoError(t, err)
	obj, ok = got.Value.Object()
	require.True(t, ok)
	assert.Equal(t, "light", obj["theme"])
	assert.Equal(t, true, obj["notifications"])
}

func TestCustomResolver(t *testing.T) {
	ctx := context.Background()

	backend, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	m, err := New(Config{
		Backend: backend,
		Resolver: resolve.Func(func(existing, incoming *model.Record) *model.Record {
			if existing != nil {
				return existing // first write always wins
			}
			return incoming
		}),
	})
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })

	_, err = m.Store(ctx, &model.Record{Category: "c", Key: "k", Value: model.TextValue("first")})
	require.NoError(t, err)
	_, err = m.Store(ctx, &model.Record{Category: "c", Key: "k", Value: model.TextValue("second")})
	require.NoError(t, err)

	got, err := m.Get(ctx, "c", "k", "")
	require.NoError(t, err)
	assert.Equal(t, "first", got.Value.Text())
}

func TestNamespaceResolution(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	// Reserved metadata key supplies the namespace when the field is empty.
	stored, err := m.Store(ctx, &model.Record{
		Category: "c",
		Key:      "k1",
		Value:    model.TextValue("v"),
		Metadata: map[string]any{"namespace": "swarm-7"},
	})
	require.NoError(t, err)
	assert.Equal(t, "swarm-7", stored.Namespace)

	// The explicit field beats the metadata override.
	stored, err = m.Store(ctx, &model.Record{
		Category:  "c",
		Key:       "k2",
		Namespace: "explicit",
		Value:     model.TextValue("v"),
		Metadata:  map[string]any{"namespace": "ignored"},
	})
	require.NoError(t, err)
	assert.Equal(t, "explicit", stored.Namespace)
}

func TestMetadataVersionUsedForLogRow(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	stored, err := m.Store(ctx, &model.Record{
		Category: "c",
		Key:      "k",
		Value:    model.TextValue("v"),
		Metadata: map[string]any{"version": "7.2"},
	})
	require.NoError(t, err)
	assert.Equal(t, "7.2", stored.Version)

	versions, err := m.History(ctx, "c", "k", "")
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.Equal(t, "7.2", versions[0].Version)
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	found, err := m.Update(ctx, "c", "missing", "", Update{Value: payloadPtr(model.TextValue("x"))})
	require.NoError(t, err)
	assert.False(t, found)

	_, err = m.Store(ctx, &model.Record{
		Category: "c",
		Key:      "k",
		Value:    model.MustJSONValue(map[string]any{"a": 1.0}),
		Metadata: map[string]any{"owner": "agent-1"},
	})
	require.NoError(t, err)

	found, err = m.Update(ctx, "c", "k", "", Update{
		Value:    payloadPtr(model.MustJSONValue(map[string]any{"b": 2.0})),
		Metadata: map[string]any{"reviewed": true},
	})
	require.NoError(t, err)
	assert.True(t, found)

	got, err := m.Get(ctx, "c", "k", "")
	require.NoError(t, err)
	obj, ok := got.Value.Object()
	require.True(t, ok)
	assert.Equal(t, 1.0, obj["a"], "existing value keys survive a partial update")
	assert.Equal(t, 2.0, obj["b"])
	assert.Equal(t, "agent-1", got.Metadata["owner"])
	assert.Equal(t, true, got.Metadata["reviewed"])
}

func TestDeleteEvictsCache(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	_, err := m.Store(ctx, &model.Record{Category: "c", Key: "k", Value: model.TextValue("v")})
	require.NoError(t, err)

	existed, err := m.Delete(ctx, "c", "k", "")
	require.NoError(t, err)
	assert.True(t, existed)

	_, err = m.Get(ctx, "c", "k", "")
	assert.ErrorIs(t, err, ErrNotFound)

	existed, err = m.Delete(ctx, "c", "k", "")
	require.NoError(t, err)
	assert.False(t, existed)
}

func TestQueryLiveAndPostFilter(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	for _, key := range []string{"a", "b", "c"} {
		_, err := m.Store(ctx, &model.Record{Category: "cat", Key: key, Value: model.TextValue("v-" + key)})
		require.NoError(t, err)
	}

	all, err := m.Query(ctx, QueryOptions{Filter: store.Filter{Categories: []string{"cat"}}})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	// The post-filter runs in-process after the store returns candidates.
	filtered, err := m.Query(ctx, QueryOptions{
		Filter:     store.Filter{Categories: []string{"cat"}},
		PostFilter: func(r *model.Record) bool { return r.Key != "b" },
	})
	require.NoError(t, err)
	assert.Len(t, filtered, 2)
}

func TestQueryAsOfThroughFacade(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	_, err := m.Store(ctx, &model.Record{Category: "cfg", Key: "app", Value: model.TextValue("V1")})
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)
	t1 := time.Now()
	time.Sleep(10 * time.Millisecond)

	_, err = m.Store(ctx, &model.Record{Category: "cfg", Key: "app", Value: model.TextValue("V2")})
	require.NoError(t, err)

	past, err := m.Query(ctx, QueryOptions{AsOf: &t1, Filter: store.Filter{Categories: []string{"cfg"}}})
	require.NoError(t, err)
	require.Len(t, past, 1)
	assert.Equal(t, "V1", past[0].Value.Text())
}

func TestSearchThroughFacade(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	_, err := m.Store(ctx, &model.Record{Category: "docs", Key: "guide", Value: model.TextValue("sharding strategy notes")})
	require.NoError(t, err)

	res, err := m.Search(ctx, "sharding", nil, 10)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "guide", res[0].Key)
}

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := newTestManager(t)

	for _, key := range []string{"a", "b"} {
		_, err := src.Store(ctx, &model.Record{Category: "cat", Key: key, Value: model.TextValue("v-" + key)})
		require.NoError(t, err)
	}

	snapshot, err := src.Export(ctx)
	require.NoError(t, err)
	require.Len(t, snapshot, 2)

	dst := newTestManager(t)
	n, err := dst.Import(ctx, snapshot)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := dst.Get(ctx, "cat", "a", "")
	require.NoError(t, err)
	assert.Equal(t, "v-a", got.Value.Text())
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	_, err := m.Store(ctx, &model.Record{Category: "c", Key: "k", Value: model.TextValue("v")})
	require.NoError(t, err)
	_, err = m.Get(ctx, "c", "k", "")
	require.NoError(t, err)

	st, err := m.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Backend.TotalRecords)
	assert.Equal(t, uint64(1), st.Cache.Hits)
}

func TestUniquenessAndLogLength(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	for i := 0; i < 5; i++ {
		_, err := m.Store(ctx, &model.Record{Category: "c", Key: "k", Value: model.TextValue("v")})
		require.NoError(t, err)
	}
	_, err := m.Delete(ctx, "c", "k", "")
	require.NoError(t, err)

	live, err := m.Query(ctx, QueryOptions{Filter: store.Filter{Keys: []string{"k"}}})
	require.NoError(t, err)
	assert.Empty(t, live)

	versions, err := m.History(ctx, "c", "k", "")
	require.NoError(t, err)
	assert.Len(t, versions, 6, "one log row per store and delete")
}

func payloadPtr(p model.Payload) *model.Payload { return &p }
