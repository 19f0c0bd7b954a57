package utils

import (
	om "github.com/wk8/go-ordered-map/v2"
)

// A key/value pair, mainly used to seed an OrderedMap from a pre-sorted slice via
// 'NewOrderedMapFromList' when the insertion order itself needs to be decided upfront
// (e.g. to get reproducible builds out of the Jack Lowerer, see jack.NewLowerer).
type MapEntry[K comparable, V any] struct {
	Key   K
	Value V
}

// OrderedMap is a thin wrapper around 'github.com/wk8/go-ordered-map' tailored to how the
// rest of the codebase wants to iterate over it: a range-over-func 'Entries()' iterator
// rather than exposing the underlying library's own Pair/linked-list types directly.
type OrderedMap[K comparable, V any] struct{ inner *om.OrderedMap[K, V] }

// Returns an empty, ready to use OrderedMap.
func NewOrderedMap[K comparable, V any]() OrderedMap[K, V] {
	return OrderedMap[K, V]{inner: om.New[K, V]()}
}

// Builds an OrderedMap from a slice of entries, preserving the slice's order as insertion order.
func NewOrderedMapFromList[K comparable, V any](entries []MapEntry[K, V]) OrderedMap[K, V] {
	om := NewOrderedMap[K, V]()
	for _, entry := range entries {
		om.Set(entry.Key, entry.Value)
	}
	return om
}

// Associates 'value' with 'key', appending it to the insertion order if not already present.
func (m *OrderedMap[K, V]) Set(key K, value V) {
	if m.inner == nil {
		m.inner = om.New[K, V]()
	}
	m.inner.Set(key, value)
}

// Looks up the value associated with 'key', the second return value works like a map's ok-idiom.
func (m OrderedMap[K, V]) Get(key K) (V, bool) {
	if m.inner == nil {
		var zero V
		return zero, false
	}
	return m.inner.Get(key)
}

// Returns how many entries are currently stored.
func (m OrderedMap[K, V]) Size() int {
	if m.inner == nil {
		return 0
	}
	return m.inner.Len()
}

// Entries yields every key/value pair in insertion order, meant to be used as:
//
//	for key, value := range om.Entries() { ... }
func (m OrderedMap[K, V]) Entries() func(yield func(K, V) bool) {
	return func(yield func(K, V) bool) {
		if m.inner == nil {
			return
		}
		for pair := m.inner.Oldest(); pair != nil; pair = pair.Next() {
			if !yield(pair.Key, pair.Value) {
				return
			}
		}
	}
}
