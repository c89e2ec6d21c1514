// Package resolve decides the value actually persisted when a write
// targets an identity tuple that already has a live record.
package resolve

import (
	"github.com/yte121/openswarm-sub022/internal/model"
)

// Resolver merges an incoming write against the existing live record.
// existing is nil on first write; implementations must then return the
// incoming record unmodified.
type Resolver interface {
	Resolve(existing, incoming *model.Record) *model.Record
}

// Func adapts an ordinary merge function to the Resolver interface.
type Func func(existing, incoming *model.Record) *model.Record

func (f Func) Resolve(existing, incoming *model.Record) *model.Record {
	return f(existing, incoming)
}

// LastWriter is the default policy: a shallow, last-writer-wins-per-field
// merge. Fields present on the incoming record overwrite the existing
// ones; absent fields are preserved. When both values are JSON objects
// their top-level keys are merged the same way; any other payload
// combination replaces the value wholesale.
//
// This is not a CRDT: there is no convergence guarantee under concurrent,
// out-of-order application.
type LastWriter struct{}

// NewLastWriter returns the default resolver.
func NewLastWriter() *LastWriter { return &LastWriter{} }

func (*LastWriter) Resolve(existing, incoming *model.Record) *model.Record {
	if existing == nil {
		return incoming
	}

	out := incoming.Clone()
	out.ID = existing.ID
	out.CreatedAt = existing.CreatedAt

	out.Value = mergeValues(existing.Value, incoming.Value)
	out.Metadata = mergeMetadata(existing.Metadata, incoming.Metadata)

	// A write that omits a version keeps the existing one.
	if out.Version == "" {
		out.Version = existing.Version
	}
	if out.Embedding == nil {
		out.Embedding = append([]byte(nil), existing.Embedding...)
	}
	if out.TTL == 0 {
		out.TTL = existing.TTL
	}
	return out
}

// mergeValues merges top-level keys when both payloads are JSON objects,
// incoming winning per key. Everything else is replaced wholesale.
func mergeValues(existing, incoming model.Payload) model.Payload {
	oldObj, oldOK := existing.Object()
	newObj, newOK := incoming.Object()
	if !oldOK || !newOK {
		return incoming.Clone()
	}

	merged := make(map[string]any, len(oldObj)+len(newObj))
	for k, v := range oldObj {
		merged[k] = v
	}
	for k, v := range newObj {
		merged[k] = v
	}

	p, err := model.JSONValue(merged)
	if err != nil {
		return incoming.Clone()
	}
	return p
}

func mergeMetadata(existing, incoming map[string]any) map[string]any {
	if incoming == nil && existing == nil {
		return nil
	}
	merged := make(map[string]any, len(existing)+len(incoming))
	for k, v := range existing {
		merged[k] = v
	}
	for k, v := range incoming {
		merged[k] = v
	}
	return merged
}
