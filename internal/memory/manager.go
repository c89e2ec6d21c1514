// Package memory composes the record store, cache layer and conflict
// resolver into the single facade external callers touch.
package memory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/yte121/openswarm-sub022/internal/cache"
	"github.com/yte121/openswarm-sub022/internal/model"
	"github.com/yte121/openswarm-sub022/internal/resolve"
	"github.com/yte121/openswarm-sub022/internal/store"
)

// ErrNotFound is the facade's not-found sentinel, aliasing the store's.
var ErrNotFound = store.ErrNotFound

// Config assembles a Manager. Backend is required; everything else has a
// default.
type Config struct {
	Backend   store.Backend
	Cache     *cache.Cache     // nil: a default LRU cache is built
	Resolver  resolve.Resolver // nil: resolve.LastWriter
	Logger    *zap.Logger      // nil: zap.NewNop()
	Namespace string           // default namespace, "" means "default"
}

// DefaultCacheConfig is the cache built when Config.Cache is nil: 16 MiB,
// LRU, no TTL expiry.
func DefaultCacheConfig() cache.Config {
	return cache.Config{
		MaxSize:  16 << 20,
		Strategy: cache.NewLRU(),
	}
}

// Manager is the memory facade. Reads are cache-first; writes resolve
// conflicts, persist, then update the cache synchronously, so a store
// followed by a get on the same identity observes the just-written value.
type Manager struct {
	backend  store.Backend
	cache    *cache.Cache
	resolver resolve.Resolver
	log      *zap.Logger
	ns       string
}

// New builds a Manager from the config.
func New(cfg Config) (*Manager, error) {
	if cfg.Backend == nil {
		return nil, errors.New("memory: backend is required")
	}
	c := cfg.Cache
	if c == nil {
		var err error
		c, err = cache.New(DefaultCacheConfig())
		if err != nil {
			return nil, err
		}
	}
	r := cfg.Resolver
	if r == nil {
		r = resolve.NewLastWriter()
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	ns := cfg.Namespace
	if ns == "" {
		ns = model.DefaultNamespace
	}

	return &Manager{backend: cfg.Backend, cache: c, resolver: r, log: log, ns: ns}, nil
}

// Store resolves the incoming record against any existing live record at
// the same identity, persists the result, and updates the cache. Returns
// the resolved, persisted record.
func (m *Manager) Store(ctx context.Context, rec *model.Record) (*model.Record, error) {
	if err := model.ValidateIdentity(rec.Category, rec.Key); err != nil {
		return nil, err
	}

	in := rec.Clone()
	in.Namespace = m.resolveNamespace(in)
	if in.Version == "" {
		if v, ok := in.Metadata["version"].(string); ok && v != "" {
			in.Version = v
		}
	}

	existing, err := m.backend.Get(ctx, in.Category, in.Key, in.Namespace)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	resolved := m.resolver.Resolve(existing, in)

	persisted, err := m.backend.Put(ctx, resolved)
	if err != nil {
		m.log.Error("store failed",
			zap.String("category", in.Category),
			zap.String("key", in.Key),
			zap.String("namespace", in.Namespace),
			zap.Error(err))
		return nil, err
	}

	m.cache.Set(cacheKey(persisted.Category, persisted.Key, persisted.Namespace), persisted)
	m.log.Debug("stored record",
		zap.String("category", persisted.Category),
		zap.String("key", persisted.Key),
		zap.String("namespace", persisted.Namespace),
		zap.Bool("merged", existing != nil))
	return persisted, nil
}

// Get returns the live record for the identity, cache-first. A miss falls
// back to the record store and populates the cache on the way back.
// Returns ErrNotFound when no live record exists.
func (m *Manager) Get(ctx context.Context, category, key, namespace string) (*model.Record, error) {
	if err := model.ValidateIdentity(category, key); err != nil {
		return nil, err
	}
	if namespace == "" {
		namespace = m.ns
	}

	ck := cacheKey(category, key, namespace)
	if rec, ok := m.cache.Get(ck); ok {
		return rec, nil
	}

	rec, err := m.backend.Get(ctx, category, key, namespace)
	if err != nil {
		return nil, err
	}
	m.cache.Set(ck, rec)
	return rec, nil
}

// QueryOptions extends the store filter with time travel and an in-process
// post-filter, evaluated after the persistence-layer predicates.
type QueryOptions struct {
	store.Filter
	AsOf       *time.Time
	PostFilter func(*model.Record) bool
}

// Query returns records matching the options. With AsOf set it reads the
// version log; otherwise the live table.
func (m *Manager) Query(ctx context.Context, opts QueryOptions) ([]*model.Record, error) {
	var (
		records []*model.Record
		err     error
	)
	if opts.AsOf != nil {
		records, err = m.backend.QueryAsOf(ctx, *opts.AsOf, opts.Filter)
	} else {
		records, err = m.backend.QueryLive(ctx, opts.Filter)
	}
	if err != nil {
		return nil, err
	}

	if opts.PostFilter == nil {
		return records, nil
	}
	filtered := records[:0]
	for _, r := range records {
		if opts.PostFilter(r) {
			filtered = append(filtered, r)
		}
	}
	return filtered, nil
}

// Search runs a ranked full-text match over the live records.
func (m *Manager) Search(ctx context.Context, term string, categories []string, limit int) ([]*model.Record, error) {
	return m.backend.Search(ctx, term, categories, limit)
}

// Delete removes the identity from the record store and evicts it from
// the cache. Reports whether a record existed.
func (m *Manager) Delete(ctx context.Context, category, key, namespace string) (bool, error) {
	if err := model.ValidateIdentity(category, key); err != nil {
		return false, err
	}
	if namespace == "" {
		namespace = m.ns
	}

	existed, err := m.backend.Delete(ctx, category, key, namespace)
	if err != nil {
		return false, err
	}
	m.cache.Delete(cacheKey(category, key, namespace))
	if existed {
		m.log.Debug("deleted record",
			zap.String("category", category),
			zap.String("key", key),
			zap.String("namespace", namespace))
	}
	return existed, nil
}

// Update is a partial update of value and/or metadata. It fetches the
// existing record, applies a shallow merge, persists, and reports whether
// a record existed.
type Update struct {
	Value    *model.Payload
	Metadata map[string]any
}

// Update applies a partial update to an existing record. Returns false,
// nil when the identity has no live record.
func (m *Manager) Update(ctx context.Context, category, key, namespace string, upd Update) (bool, error) {
	if err := model.ValidateIdentity(category, key); err != nil {
		return false, err
	}
	if namespace == "" {
		namespace = m.ns
	}

	existing, err := m.backend.Get(ctx, category, key, namespace)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	incoming := existing.Clone()
	if upd.Value != nil {
		incoming.Value = upd.Value.Clone()
	}
	if upd.Metadata != nil {
		incoming.Metadata = upd.Metadata
	}

	resolved := m.resolver.Resolve(existing, incoming)
	persisted, err := m.backend.Put(ctx, resolved)
	if err != nil {
		return false, err
	}
	m.cache.Set(cacheKey(category, key, namespace), persisted)
	return true, nil
}

// History returns the version rows for an identity, newest first.
func (m *Manager) History(ctx context.Context, category, key, namespace string) ([]model.Version, error) {
	if namespace == "" {
		namespace = m.ns
	}
	return m.backend.History(ctx, category, key, namespace)
}

// Export returns a full snapshot of the live records, the read half of
// the import/export collaborator interface.
func (m *Manager) Export(ctx context.Context) ([]*model.Record, error) {
	return m.backend.QueryLive(ctx, store.Filter{Ascending: true, OrderBy: store.OrderByKey})
}

// Import bulk-stores records through the normal conflict-resolution path.
// Returns the number of records stored.
func (m *Manager) Import(ctx context.Context, records []*model.Record) (int, error) {
	imported := 0
	for _, rec := range records {
		if _, err := m.Store(ctx, rec); err != nil {
			return imported, fmt.Errorf("import %s/%s: %w", rec.Category, rec.Key, err)
		}
		imported++
	}
	return imported, nil
}

// Stats combines backend and cache statistics.
type Stats struct {
	Backend *store.Stats `json:"backend"`
	Cache   cache.Stats  `json:"cache"`
}

// Stats returns combined statistics.
func (m *Manager) Stats(ctx context.Context) (*Stats, error) {
	bs, err := m.backend.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return &Stats{Backend: bs, Cache: m.cache.Stats()}, nil
}

// Close stops the cache sweep and closes the backend.
func (m *Manager) Close() error {
	m.cache.Close()
	return m.backend.Close()
}

// resolveNamespace picks the namespace: explicit field, then the reserved
// metadata override, then the manager default.
func (m *Manager) resolveNamespace(rec *model.Record) string {
	if rec.Namespace != "" {
		return rec.Namespace
	}
	if ns, ok := rec.Metadata["namespace"].(string); ok && ns != "" {
		return ns
	}
	return m.ns
}

func cacheKey(category, key, namespace string) string {
	return namespace + "/" + category + "/" + key
}
