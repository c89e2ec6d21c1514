package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// PayloadKind tags how a payload's bytes should be read back.
type PayloadKind string

const (
	// PayloadJSON marks structured data serialized as JSON.
	PayloadJSON PayloadKind = "json"
	// PayloadText marks free-form text.
	PayloadText PayloadKind = "text"
)

// Payload is an opaque value: serialized bytes plus a schema tag. The store
// and cache never interpret the bytes; only the conflict resolver peeks at
// JSON object payloads to merge top-level keys.
type Payload struct {
	Kind PayloadKind
	Data []byte
}

// TextValue wraps a plain string.
func TextValue(s string) Payload {
	return Payload{Kind: PayloadText, Data: []byte(s)}
}

// JSONValue serializes v as a JSON payload.
func JSONValue(v any) (Payload, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return Payload{}, fmt.Errorf("encode value: %w", err)
	}
	return Payload{Kind: PayloadJSON, Data: b}, nil
}

// MustJSONValue is JSONValue for values known to serialize, e.g. literals
// in tests.
func MustJSONValue(v any) Payload {
	p, err := JSONValue(v)
	if err != nil {
		panic(err)
	}
	return p
}

// Object decodes a JSON payload into a generic map. Returns false when the
// payload is not a JSON object.
func (p Payload) Object() (map[string]any, bool) {
	if p.Kind != PayloadJSON {
		return nil, false
	}
	var m map[string]any
	if err := json.Unmarshal(p.Data, &m); err != nil || m == nil {
		return nil, false
	}
	return m, true
}

// Text returns the payload as a string. For JSON payloads this is the raw
// serialized form, which is what the text index sees.
func (p Payload) Text() string {
	return string(p.Data)
}

// Size returns the serialized byte length, used for cache accounting and
// storage stats.
func (p Payload) Size() int64 {
	return int64(len(p.Data))
}

// Equal compares kind and bytes.
func (p Payload) Equal(o Payload) bool {
	return p.Kind == o.Kind && bytes.Equal(p.Data, o.Data)
}

// Clone copies the underlying bytes.
func (p Payload) Clone() Payload {
	if p.Data == nil {
		return Payload{Kind: p.Kind}
	}
	return Payload{Kind: p.Kind, Data: append([]byte(nil), p.Data...)}
}

// MarshalJSON emits {"kind":"json","data":{...}} with JSON payloads inlined
// rather than base64-encoded, so exports stay readable.
func (p Payload) MarshalJSON() ([]byte, error) {
	switch p.Kind {
	case PayloadJSON:
		return json.Marshal(struct {
			Kind PayloadKind     `json:"kind"`
			Data json.RawMessage `json:"data"`
		}{p.Kind, json.RawMessage(p.Data)})
	default:
		return json.Marshal(struct {
			Kind PayloadKind `json:"kind"`
			Data string      `json:"data"`
		}{PayloadText, string(p.Data)})
	}
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (p *Payload) UnmarshalJSON(b []byte) error {
	var head struct {
		Kind PayloadKind     `json:"kind"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(b, &head); err != nil {
		return err
	}
	switch head.Kind {
	case PayloadJSON:
		p.Kind = PayloadJSON
		p.Data = append([]byte(nil), head.Data...)
	case PayloadText, "":
		var s string
		if err := json.Unmarshal(head.Data, &s); err != nil {
			return err
		}
		p.Kind = PayloadText
		p.Data = []byte(s)
	default:
		return fmt.Errorf("unknown payload kind %q", head.Kind)
	}
	return nil
}
