package cache

import "fmt"

// Strategy decides which entry is removed under capacity pressure. A
// strategy instance belongs to exactly one cache and is called with the
// cache lock held.
type Strategy interface {
	// Name is the config-file identifier for the strategy.
	Name() string
	// Touched is called on every cache hit.
	Touched(key string, e *Entry)
	// Inserted is called after a new entry is added.
	Inserted(key string, e *Entry)
	// Removed is called after an entry leaves the cache for any reason.
	Removed(key string)
	// Victim picks the next entry to evict. Returns false when the cache
	// is empty.
	Victim(entries map[string]*Entry) (string, bool)
	// Reset drops all bookkeeping.
	Reset()
}

// ParseStrategy maps a config string to a fresh strategy instance.
func ParseStrategy(name string) (Strategy, error) {
	switch name {
	case "lru", "":
		return NewLRU(), nil
	case "lfu":
		return NewLFU(), nil
	case "fifo":
		return NewFIFO(), nil
	default:
		return nil, &ConfigError{Field: "Strategy", Reason: fmt.Sprintf("unknown strategy %q", name)}
	}
}

// LruEviction evicts the least recently touched entry. Recency is an
// explicit access list, moved-to-end on every touch.
type LruEviction struct {
	order []string
}

// NewLRU returns an LRU eviction strategy.
func NewLRU() *LruEviction { return &LruEviction{} }

func (s *LruEviction) Name() string { return "lru" }

func (s *LruEviction) Touched(key string, _ *Entry) {
	s.moveToEnd(key)
}

func (s *LruEviction) Inserted(key string, _ *Entry) {
	s.order = append(s.order, key)
}

func (s *LruEviction) Removed(key string) {
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			return
		}
	}
}

func (s *LruEviction) Victim(entries map[string]*Entry) (string, bool) {
	if len(s.order) == 0 {
		return "", false
	}
	return s.order[0], true
}

func (s *LruEviction) Reset() { s.order = nil }

func (s *LruEviction) moveToEnd(key string) {
	for i, k := range s.order {
		if k == key {
			s.order = append(append(s.order[:i], s.order[i+1:]...), key)
			return
		}
	}
}

// LfuEviction evicts from the entries at the globally minimum frequency;
// ties go to the oldest insertion timestamp, not the least recently
// accessed.
type LfuEviction struct{}

// NewLFU returns an LFU eviction strategy.
func NewLFU() *LfuEviction { return &LfuEviction{} }

func (s *LfuEviction) Name() string { return "lfu" }

func (s *LfuEviction) Touched(string, *Entry) {}

func (s *LfuEviction) Inserted(string, *Entry) {}

func (s *LfuEviction) Removed(string) {}

func (s *LfuEviction) Reset() {}

func (s *LfuEviction) Victim(entries map[string]*Entry) (string, bool) {
	var victim string
	var found bool
	for key, e := range entries {
		if !found {
			victim, found = key, true
			continue
		}
		v := entries[victim]
		if e.Frequency < v.Frequency ||
			(e.Frequency == v.Frequency && e.Timestamp.Before(v.Timestamp)) {
			victim = key
		}
	}
	return victim, found
}

// FifoEviction evicts the entry with the oldest insertion timestamp,
// irrespective of access pattern.
type FifoEviction struct{}

// NewFIFO returns a FIFO eviction strategy.
func NewFIFO() *FifoEviction { return &FifoEviction{} }

func (s *FifoEviction) Name() string { return "fifo" }

func (s *FifoEviction) Touched(string, *Entry) {}

func (s *FifoEviction) Inserted(string, *Entry) {}

func (s *FifoEviction) Removed(string) {}

func (s *FifoEviction) Reset() {}

func (s *FifoEviction) Victim(entries map[string]*Entry) (string, bool) {
	var victim string
	var found bool
	for key, e := range entries {
		if !found || e.Timestamp.Before(entries[victim].Timestamp) {
			victim, found = key, true
		}
	}
	return victim, found
}
