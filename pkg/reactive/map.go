package reactive

import "slices"

// Map is a tracked key/value collection with stable insertion order. Point
// reads subscribe to the read key; structural reads subscribe to the
// iteration key. Mutators dirty the affected key, plus the iteration key when
// membership changes.
type Map[K comparable, V any] struct {
	meta  trackedMeta
	items map[K]V
	order []K
}

// NewMap returns an empty Map.
func NewMap[K comparable, V any]() *Map[K, V] {
	return &Map[K, V]{items: make(map[K]V)}
}

func (m *Map[K, V]) bindSlot(st *State, name string) { m.meta.bindSlot(st, name) }

// Len returns the number of entries. Subscribes to the iteration key.
func (m *Map[K, V]) Len() int {
	node, leave := m.meta.enter()
	defer leave()
	m.meta.depend(node, iterKey)
	return len(m.items)
}

// Get returns the value for key. Subscribes to that key only, whether or not
// it is present, so a node that saw an absent key re-renders when the key
// appears. Nested plain collections are promoted on access.
func (m *Map[K, V]) Get(key K) (V, bool) {
	node, leave := m.meta.enter()
	defer leave()
	m.meta.depend(node, key)
	v, ok := m.items[key]
	if !ok {
		return v, false
	}
	if wrapped, promoted := m.meta.promote(any(v)); promoted {
		if item, okT := wrapped.(V); okT {
			m.items[key] = item
			v = item
		}
	}
	return v, true
}

// Keys returns the keys in insertion order. Subscribes to the iteration key.
func (m *Map[K, V]) Keys() []K {
	node, leave := m.meta.enter()
	defer leave()
	m.meta.depend(node, iterKey)
	return slices.Clone(m.order)
}

// Set writes key to v. An overwrite dirties only that key; a new key also
// dirties the iteration key.
func (m *Map[K, V]) Set(key K, v V) {
	m.meta.mutate(func() []any {
		if m.items == nil {
			m.items = make(map[K]V)
		}
		_, existed := m.items[key]
		m.items[key] = v
		if existed {
			return []any{key}
		}
		m.order = append(m.order, key)
		return []any{key, iterKey}
	})
}

// Delete removes key. Dirties the key and the iteration key; deleting an
// absent key dirties nothing.
func (m *Map[K, V]) Delete(key K) {
	m.meta.mutate(func() []any {
		if _, ok := m.items[key]; !ok {
			return nil
		}
		delete(m.items, key)
		if i := slices.Index(m.order, key); i >= 0 {
			m.order = slices.Delete(m.order, i, i+1)
		}
		return []any{key, iterKey}
	})
}

// Clear removes all entries. Dirties every key plus the iteration key.
func (m *Map[K, V]) Clear() {
	m.meta.mutate(func() []any {
		keys := []any{iterKey}
		for k := range m.items {
			keys = append(keys, k)
		}
		m.items = make(map[K]V)
		m.order = nil
		return keys
	})
}
