// Package model defines the core memory data types.
package model

import "time"

// DefaultNamespace is used whenever a caller does not name a namespace.
const DefaultNamespace = "default"

// DefaultVersion is the version tag assigned to records stored without one.
const DefaultVersion = "1.0"

// Record is the current, live stored value for an identity tuple
// (category, key, namespace). At most one live Record exists per tuple;
// prior states are retained as immutable Version rows.
type Record struct {
	ID        string         `json:"id"`
	Category  string         `json:"category"`
	Key       string         `json:"key"`
	Namespace string         `json:"namespace"`
	Value     Payload        `json:"value"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Embedding []byte         `json:"embedding,omitempty"`
	TTL       time.Duration  `json:"ttl,omitempty"`
	Version   string         `json:"version"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Expired reports whether the record is logically expired at now.
// The persistent layer never deletes on TTL; only the cache acts on this.
func (r *Record) Expired(now time.Time) bool {
	if r.TTL <= 0 {
		return false
	}
	return now.After(r.UpdatedAt.Add(r.TTL))
}

// Clone returns a deep copy. Callers across the cache boundary receive
// clones so shared entries are never mutated in place.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	out := *r
	out.Value = r.Value.Clone()
	if r.Metadata != nil {
		out.Metadata = make(map[string]any, len(r.Metadata))
		for k, v := range r.Metadata {
			out.Metadata[k] = v
		}
	}
	if r.Embedding != nil {
		out.Embedding = append([]byte(nil), r.Embedding...)
	}
	return &out
}

// Operation labels a version-log row.
type Operation string

const (
	OpStore  Operation = "store"
	OpDelete Operation = "delete"
)

// Version is an immutable history entry capturing a record's state at a
// point in time. Rows are append-only and never updated after insertion.
type Version struct {
	ID        string         `json:"id"`
	ItemID    string         `json:"item_id"`
	Category  string         `json:"category"`
	Key       string         `json:"key"`
	Namespace string         `json:"namespace"`
	Value     Payload        `json:"value"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Version   string         `json:"version"`
	Timestamp time.Time      `json:"timestamp"`
	Operation Operation      `json:"operation"`
}
