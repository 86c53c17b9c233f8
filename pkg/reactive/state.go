package reactive

import (
	"reflect"

	"github.com/go-ripple/ripple/pkg/errors"
)

// State is the embeddable base of a tracked state bag. The zero value is
// ready to use; binding happens through [Bind] (or core.UseState, which binds
// on the caller's behalf).
type State struct {
	owner Owner
	name  string
}

// Owner returns the owner this bag is bound to, or nil.
func (s *State) Owner() Owner { return s.owner }

// base lets Bind reach the embedded State through an interface instead of
// reflection on unexported fields.
func (s *State) base() *State { return s }

// Stateful is satisfied by any struct that embeds State.
type Stateful interface {
	base() *State
}

// slot is implemented by the tracked field types (Value, List, Map, Set).
type slot interface {
	bindSlot(st *State, name string)
}

// Bind attaches a state bag to an owner and registers every tracked field.
// Binding an already-bound bag is a no-op, so cached per-node state survives
// re-renders without re-registration. The bag must be a pointer to a struct
// embedding [State]; tracked fields must be addressable slot types declared
// directly on that struct.
func Bind(bag Stateful, owner Owner) {
	st := bag.base()
	if st.owner != nil {
		return
	}
	st.owner = owner

	v := reflect.ValueOf(bag).Elem()
	t := v.Type()
	st.name = t.Name()
	for i := 0; i < t.NumField(); i++ {
		f := v.Field(i)
		if !f.CanAddr() {
			continue
		}
		if sl, ok := f.Addr().Interface().(slot); ok {
			sl.bindSlot(st, st.name+"."+t.Field(i).Name)
		}
	}
}

// slotMeta carries the per-slot binding: the owning bag and the attribute
// name used in usage errors.
type slotMeta struct {
	state *State
	name  string
}

func (m *slotMeta) bindSlot(st *State, name string) {
	m.state = st
	m.name = name
}

func (m *slotMeta) owner() Owner {
	if m.state == nil {
		return nil
	}
	return m.state.owner
}

func (m *slotMeta) attr() string {
	if m.name != "" {
		return m.name
	}
	return "(unbound)"
}

// enter synchronizes a read. With no owner it is free.
func (m *slotMeta) enter() (node string, leave func()) {
	o := m.owner()
	if o == nil {
		return "", func() {}
	}
	return o.Enter()
}

// depSet is the watcher set for one dependency key.
type depSet struct {
	nodes map[string]struct{}
}

func newDepSet() *depSet {
	return &depSet{nodes: make(map[string]struct{})}
}

// Drop implements DepSet.
func (d *depSet) Drop(node string) {
	delete(d.nodes, node)
}

func (d *depSet) add(node string) {
	d.nodes[node] = struct{}{}
}

// collect returns the live watcher ids and prunes dead ones.
func (d *depSet) collect(live func(string) bool, into []string) []string {
	for node := range d.nodes {
		if live == nil || live(node) {
			into = append(into, node)
		} else {
			delete(d.nodes, node)
		}
	}
	return into
}

// iterKeyType is the reserved dependency key for whole-collection reads.
type iterKeyType struct{}

var iterKey iterKeyType

// trackedMeta extends slotMeta with a per-key watcher map.
type trackedMeta struct {
	slotMeta
	deps map[any]*depSet
}

// depend subscribes node to key. Caller holds the owner lock via enter.
func (m *trackedMeta) depend(node string, key any) {
	if node == "" {
		return
	}
	if m.deps == nil {
		m.deps = make(map[any]*depSet)
	}
	set := m.deps[key]
	if set == nil {
		set = newDepSet()
		m.deps[key] = set
	}
	set.add(node)
	m.state.owner.Watch(node, set)
}

// mutate runs fn under the owner's mutation lock and marks the watchers of
// every key fn reports as affected. With no owner, fn just runs.
func (m *trackedMeta) mutate(fn func() []any) {
	o := m.owner()
	if o == nil {
		fn()
		return
	}
	leave := o.EnterMutation(m.attr())
	var dirty []string
	defer func() { leave(dirty) }()
	for _, key := range fn() {
		if set := m.deps[key]; set != nil {
			dirty = set.collect(o.Live, dirty)
		}
	}
}

// promote wraps a plain nested collection in a tracked container bound to the
// same bag, so deep mutations are observed without caller involvement. It
// returns the (possibly wrapped) value and whether wrapping happened; when it
// did, the caller stores the wrapper back so later reads see the same one.
func (m *trackedMeta) promote(v any) (any, bool) {
	switch val := v.(type) {
	case []any:
		nested := NewList(val...)
		nested.meta.slotMeta = m.slotMeta
		return nested, true
	case map[string]any:
		nested := NewMap[string, any]()
		nested.meta.slotMeta = m.slotMeta
		for k, item := range val {
			nested.order = append(nested.order, k)
			nested.items[k] = item
		}
		return nested, true
	default:
		return v, false
	}
}

// outOfRange raises the shared index usage error, so the containers agree on
// one message shape.
func (m *trackedMeta) outOfRange(op string, i, n int) {
	errors.Usage(op, "index %d out of range for %s (len %d)", i, m.attr(), n)
}
