package reactive

// Set is a tracked unordered collection of comparable values. Membership is
// value-based, so dependencies are keyed by value, not identity: two nodes
// asking Has for the same value share one watcher set. Structural reads
// subscribe to the iteration key.
type Set[T comparable] struct {
	meta  trackedMeta
	items map[T]struct{}
}

// NewSet returns a Set seeded with items.
func NewSet[T comparable](items ...T) *Set[T] {
	s := &Set[T]{items: make(map[T]struct{}, len(items))}
	for _, v := range items {
		s.items[v] = struct{}{}
	}
	return s
}

func (s *Set[T]) bindSlot(st *State, name string) { s.meta.bindSlot(st, name) }

// Len returns the number of values. Subscribes to the iteration key.
func (s *Set[T]) Len() int {
	node, leave := s.meta.enter()
	defer leave()
	s.meta.depend(node, iterKey)
	return len(s.items)
}

// Has reports membership of v. Subscribes to v's value key, present or not.
func (s *Set[T]) Has(v T) bool {
	node, leave := s.meta.enter()
	defer leave()
	s.meta.depend(node, v)
	_, ok := s.items[v]
	return ok
}

// Values returns a snapshot of the members. Subscribes to the iteration key.
func (s *Set[T]) Values() []T {
	node, leave := s.meta.enter()
	defer leave()
	s.meta.depend(node, iterKey)
	out := make([]T, 0, len(s.items))
	for v := range s.items {
		out = append(out, v)
	}
	return out
}

// Add inserts v. Dirties v's value key and the iteration key; adding an
// existing value dirties nothing.
func (s *Set[T]) Add(v T) {
	s.meta.mutate(func() []any {
		if s.items == nil {
			s.items = make(map[T]struct{})
		}
		if _, ok := s.items[v]; ok {
			return nil
		}
		s.items[v] = struct{}{}
		return []any{v, iterKey}
	})
}

// Remove deletes v. Dirties v's value key and the iteration key; removing an
// absent value dirties nothing.
func (s *Set[T]) Remove(v T) {
	s.meta.mutate(func() []any {
		if _, ok := s.items[v]; !ok {
			return nil
		}
		delete(s.items, v)
		return []any{v, iterKey}
	})
}
