package reactive

// Value is a tracked single-value slot. Reads subscribe the rendering node;
// writes mark every subscribed node dirty.
type Value[T any] struct {
	meta trackedMeta
	v    T
}

// valueKey is the sole dependency key of a Value slot.
type valueKeyType struct{}

var valueKey valueKeyType

func (s *Value[T]) bindSlot(st *State, name string) { s.meta.bindSlot(st, name) }

// Get returns the current value, subscribing the rendering node if a render
// frame is active.
func (s *Value[T]) Get() T {
	node, leave := s.meta.enter()
	defer leave()
	s.meta.depend(node, valueKey)
	return s.v
}

// Set replaces the value and marks subscribed nodes dirty. It panics with a
// usage error when called during an active render pass.
func (s *Value[T]) Set(v T) {
	s.meta.mutate(func() []any {
		s.v = v
		return []any{valueKey}
	})
}

// Update applies fn to the current value. Like Set, it is forbidden during an
// active render pass.
func (s *Value[T]) Update(fn func(T) T) {
	s.meta.mutate(func() []any {
		s.v = fn(s.v)
		return []any{valueKey}
	})
}

// Peek returns the value without recording a dependency. Useful inside
// callbacks that must not subscribe anything.
func (s *Value[T]) Peek() T {
	_, leave := s.meta.enter()
	defer leave()
	return s.v
}
