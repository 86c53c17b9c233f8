package core

import (
	"reflect"

	"github.com/go-ripple/ripple/pkg/wire"
)

// Serialize produces the wire tree rooted at id, or nil when the node does
// not exist. Callable props are folded into [wire.CallbackRef] handles.
func (s *Session) Serialize(id wire.NodeID) *wire.Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.serializeLocked(id)
}

func (s *Session) serializeLocked(id wire.NodeID) *wire.Node {
	el := s.elements[id]
	if el == nil {
		return nil
	}
	n := &wire.Node{
		ID:        el.ID,
		Component: el.Component.name,
		Kind:      el.Component.kind.String(),
		Props:     s.wireProps(el.ID, el.Props),
	}
	for _, cid := range el.ChildIDs {
		if child := s.serializeLocked(cid); child != nil {
			n.Children = append(n.Children, child)
		}
	}
	return n
}

// wireProps converts element props to their wire form, substituting a
// CallbackRef for every callable value.
func (s *Session) wireProps(node wire.NodeID, props Props) map[string]any {
	if len(props) == 0 {
		return nil
	}
	out := make(map[string]any, len(props))
	for _, p := range props {
		out[p.Key] = wireValue(node, p.Key, p.Value)
	}
	return out
}

// wirePropValues is wireProps for an already-diffed map, as carried by
// Update patches. Nil entries (dropped props) pass through untouched.
func (s *Session) wirePropValues(node wire.NodeID, values map[string]any) map[string]any {
	out := make(map[string]any, len(values))
	for k, v := range values {
		out[k] = wireValue(node, k, v)
	}
	return out
}

func wireValue(node wire.NodeID, key string, v any) any {
	if v == nil {
		return nil
	}
	if reflect.TypeOf(v).Kind() == reflect.Func {
		return wire.CallbackRef{Node: node, Prop: key}
	}
	return v
}
