// Package store provides the durable record storage interface and its
// SQLite implementation: live records, an append-only version log, and a
// synchronized full-text index.
package store

import (
	"context"
	"time"

	"github.com/yte121/openswarm-sub022/internal/model"
)

// OrderBy names a sortable column for live queries.
type OrderBy string

const (
	OrderByCreatedAt OrderBy = "created_at"
	OrderByUpdatedAt OrderBy = "updated_at"
	OrderByKey       OrderBy = "key"
)

// Filter selects live records. All predicates are ANDed; zero values mean
// "no constraint".
type Filter struct {
	Categories    []string
	Keys          []string
	Namespace     string
	CreatedAfter  time.Time
	CreatedBefore time.Time
	Text          string // full-text match via the text index
	OrderBy       OrderBy
	Ascending     bool
	Limit         int
	Offset        int
}

// Backend defines the record storage contract consumed by the memory
// manager facade.
type Backend interface {
	// Put persists a record with insert-or-replace semantics keyed by the
	// identity tuple, and appends a store row to the version log. Overwrite
	// is the normal update path, not an error.
	Put(ctx context.Context, rec *model.Record) (*model.Record, error)

	// Get returns the live record for the identity tuple, or ErrNotFound.
	Get(ctx context.Context, category, key, namespace string) (*model.Record, error)

	// QueryLive returns live records matching the filter.
	QueryLive(ctx context.Context, f Filter) ([]*model.Record, error)

	// QueryAsOf reconstructs, from the version log, the latest state of
	// each item at or before asOf. Category/key/namespace filters apply;
	// text and time-range predicates do not (the log is not text-indexed).
	QueryAsOf(ctx context.Context, asOf time.Time, f Filter) ([]*model.Record, error)

	// Delete removes the live record and appends a delete row to the
	// version log. Reports whether a record existed.
	Delete(ctx context.Context, category, key, namespace string) (bool, error)

	// Search runs a ranked full-text match over category, key and value.
	Search(ctx context.Context, term string, categories []string, limit int) ([]*model.Record, error)

	// History returns the version rows for an identity, newest first.
	History(ctx context.Context, category, key, namespace string) ([]model.Version, error)

	// Stats summarizes the stored data.
	Stats(ctx context.Context) (*Stats, error)

	// Close releases the underlying database handle.
	Close() error
}
