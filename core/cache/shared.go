package cache

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Observer receives one call per cache lookup.
type Observer interface {
	ObserveLookup(cache string, hit bool)
}

type nopObserver struct{}

func (nopObserver) ObserveLookup(string, bool) {}

// Shared is a size-bounded LRU map safe for concurrent use.
type Shared[K comparable, V any] struct {
	name     string
	lru      *lru.Cache[K, V]
	observer Observer
}

// NewShared creates a shared cache holding at most size entries.
func NewShared[K comparable, V any](name string, size int, observer Observer) (*Shared[K, V], error) {
	c, err := lru.New[K, V](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s cache: %w", name, err)
	}
	if observer == nil {
		observer = nopObserver{}
	}
	return &Shared[K, V]{name: name, lru: c, observer: observer}, nil
}

// Name returns the cache name used for metrics.
func (s *Shared[K, V]) Name() string {
	return s.name
}

// Get returns the committed id for key.
func (s *Shared[K, V]) Get(key K) (V, bool) {
	v, ok := s.lru.Get(key)
	s.observer.ObserveLookup(s.name, ok)
	return v, ok
}

// Add stores a committed id.
func (s *Shared[K, V]) Add(key K, value V) {
	s.lru.Add(key, value)
}

// Prefill loads entries that are already durable, bypassing any staging.
func (s *Shared[K, V]) Prefill(entries map[K]V) {
	for k, v := range entries {
		s.lru.Add(k, v)
	}
}

// Len returns the number of cached entries.
func (s *Shared[K, V]) Len() int {
	return s.lru.Len()
}

// Purge removes every entry.
func (s *Shared[K, V]) Purge() {
	s.lru.Purge()
}

// Stage returns an empty per-transaction layer over s.
func (s *Shared[K, V]) Stage() *Staged[K, V] {
	return &Staged[K, V]{shared: s, local: make(map[K]V)}
}

// Staged holds entries created or read inside a single transaction.
type Staged[K comparable, V any] struct {
	shared *Shared[K, V]
	local  map[K]V
}

// Get checks the transaction-local entries first, then the shared cache.
func (st *Staged[K, V]) Get(key K) (V, bool) {
	if v, ok := st.local[key]; ok {
		return v, true
	}
	return st.shared.Get(key)
}

// Put stages an id until the transaction commits.
func (st *Staged[K, V]) Put(key K, value V) {
	st.local[key] = value
}

// ResolveBatch partitions keys into those with a known id and the misses, preserving
// the order of the misses and dropping duplicates.
func (st *Staged[K, V]) ResolveBatch(keys []K) (map[K]V, []K) {
	resolved := make(map[K]V, len(keys))
	var misses []K
	seen := make(map[K]struct{}, len(keys))
	for _, k := range keys {
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		if v, ok := st.Get(k); ok {
			resolved[k] = v
			continue
		}
		misses = append(misses, k)
	}
	return resolved, misses
}

// Pending returns the number of staged entries.
func (st *Staged[K, V]) Pending() int {
	return len(st.local)
}

// Promote publishes the staged entries to the shared cache and clears the stage.
func (st *Staged[K, V]) Promote() {
	for k, v := range st.local {
		st.shared.Add(k, v)
	}
	clear(st.local)
}

// Discard drops the staged entries.
func (st *Staged[K, V]) Discard() {
	clear(st.local)
}
