package sync

import "sync"

// TypedSyncMap is a thin generic wrapper around sync.Map. Values that
// fail the assertion back to V are reported as absent, which cannot
// occur while every write goes through this wrapper.
type TypedSyncMap[K comparable, V any] struct {
	m sync.Map
}

func (m *TypedSyncMap[K, V]) Store(key K, value V) { m.m.Store(key, value) }

func (m *TypedSyncMap[K, V]) Load(key K) (V, bool) {
	v, ok := m.m.Load(key)
	if !ok {
		var zero V
		return zero, false
	}

	return assertValue[V](v)
}

// LoadOrStore stores the value if the key is absent, otherwise leaves
// the map untouched. The returned boolean is true when an existing
// value was found.
func (m *TypedSyncMap[K, V]) LoadOrStore(key K, value V) (V, bool) {
	existing, loaded := m.m.LoadOrStore(key, value)
	typed, _ := assertValue[V](existing)
	return typed, loaded
}

// Range calls f sequentially for each key and value present in the map,
// stopping early if f returns false. Entries whose value is not of type
// V are skipped.
func (m *TypedSyncMap[K, V]) Range(f func(key K, value V) bool) {
	m.m.Range(func(k, v any) bool {
		key, ok := k.(K)
		if !ok {
			return true
		}

		value, ok := assertValue[V](v)
		if !ok {
			return true
		}

		return f(key, value)
	})
}

func assertValue[V any](v any) (V, bool) {
	typed, ok := v.(V)
	if !ok {
		var zero V
		return zero, false
	}

	return typed, true
}
