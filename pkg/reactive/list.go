package reactive

import "slices"

// List is a tracked ordered collection. Point reads (Get) subscribe to the
// read index; structural reads (Len, Values, Index) subscribe to the
// iteration key. Mutators dirty the precise set of affected indexes, plus the
// iteration key whenever membership or order changes.
type List[T any] struct {
	meta  trackedMeta
	items []T
}

// NewList returns a List seeded with items.
func NewList[T any](items ...T) *List[T] {
	return &List[T]{items: slices.Clone(items)}
}

func (l *List[T]) bindSlot(st *State, name string) { l.meta.bindSlot(st, name) }

// Len returns the number of items. Subscribes to the iteration key.
func (l *List[T]) Len() int {
	node, leave := l.meta.enter()
	defer leave()
	l.meta.depend(node, iterKey)
	return len(l.items)
}

// Get returns the item at index i. Subscribes to that index only. Nested
// plain collections ([]any, map[string]any) are promoted to tracked
// containers sharing this list's owner on first access.
func (l *List[T]) Get(i int) T {
	node, leave := l.meta.enter()
	defer leave()
	if i < 0 || i >= len(l.items) {
		l.meta.outOfRange("reactive.List.Get", i, len(l.items))
	}
	l.meta.depend(node, i)
	if wrapped, ok := l.meta.promote(any(l.items[i])); ok {
		if item, ok := wrapped.(T); ok {
			l.items[i] = item
		}
	}
	return l.items[i]
}

// Values returns a snapshot of all items in order. Subscribes to the
// iteration key.
func (l *List[T]) Values() []T {
	node, leave := l.meta.enter()
	defer leave()
	l.meta.depend(node, iterKey)
	return slices.Clone(l.items)
}

// Index returns the index of the first item for which match returns true, or
// -1. A scan observes the whole collection, so it subscribes to the
// iteration key.
func (l *List[T]) Index(match func(T) bool) int {
	node, leave := l.meta.enter()
	defer leave()
	l.meta.depend(node, iterKey)
	return slices.IndexFunc(l.items, match)
}

// Set replaces the item at index i. Dirties that index only.
func (l *List[T]) Set(i int, v T) {
	l.meta.mutate(func() []any {
		if i < 0 || i >= len(l.items) {
			l.meta.outOfRange("reactive.List.Set", i, len(l.items))
		}
		l.items[i] = v
		return []any{i}
	})
}

// Append adds items to the end. Grows membership, so it dirties the
// iteration key; no existing index is touched.
func (l *List[T]) Append(items ...T) {
	l.meta.mutate(func() []any {
		l.items = append(l.items, items...)
		return []any{iterKey}
	})
}

// Insert places v at index i, shifting later items. Dirties every index from
// i to the new end plus the iteration key.
func (l *List[T]) Insert(i int, v T) {
	l.meta.mutate(func() []any {
		if i < 0 || i > len(l.items) {
			l.meta.outOfRange("reactive.List.Insert", i, len(l.items))
		}
		l.items = slices.Insert(l.items, i, v)
		keys := []any{iterKey}
		for j := i; j < len(l.items); j++ {
			keys = append(keys, j)
		}
		return keys
	})
}

// RemoveAt deletes the item at index i, shifting later items. Dirties every
// index from i to the old end plus the iteration key.
func (l *List[T]) RemoveAt(i int) {
	l.meta.mutate(func() []any {
		if i < 0 || i >= len(l.items) {
			l.meta.outOfRange("reactive.List.RemoveAt", i, len(l.items))
		}
		old := len(l.items)
		l.items = slices.Delete(l.items, i, i+1)
		keys := []any{iterKey}
		for j := i; j < old; j++ {
			keys = append(keys, j)
		}
		return keys
	})
}

// Swap exchanges the items at i and j. Dirties both indexes plus the
// iteration key (order changed).
func (l *List[T]) Swap(i, j int) {
	l.meta.mutate(func() []any {
		if i < 0 || i >= len(l.items) {
			l.meta.outOfRange("reactive.List.Swap", i, len(l.items))
		}
		if j < 0 || j >= len(l.items) {
			l.meta.outOfRange("reactive.List.Swap", j, len(l.items))
		}
		l.items[i], l.items[j] = l.items[j], l.items[i]
		return []any{i, j, iterKey}
	})
}

// Clear removes all items. Dirties every index plus the iteration key.
func (l *List[T]) Clear() {
	l.meta.mutate(func() []any {
		keys := []any{iterKey}
		for j := range l.items {
			keys = append(keys, j)
		}
		l.items = nil
		return keys
	})
}
