package core

import "reflect"

// Prop is one key/value pair of an element's props.
type Prop struct {
	Key   string
	Value any
}

// Props is an ordered property mapping. Order is declaration order and is
// part of props equality; a props value is immutable for the render pass
// that created it.
type Props []Prop

// P builds Props from alternating key/value arguments:
//
//	core.P("label", "Save", "onClick", onSave)
//
// It panics on an odd argument count or a non-string key; both are
// programmer errors at the literal.
func P(pairs ...any) Props {
	if len(pairs)%2 != 0 {
		panic("core.P: odd number of arguments")
	}
	props := make(Props, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			panic("core.P: prop key must be a string")
		}
		props = append(props, Prop{Key: key, Value: pairs[i+1]})
	}
	return props
}

// Get returns the value for key and whether it is present.
func (p Props) Get(key string) (any, bool) {
	for _, kv := range p {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return nil, false
}

// propsEqual reports structural equality of two props lists: same keys in
// the same order with equal values. Callables compare by identity, anything
// else by deep equality.
//
// Func identity is the code pointer, so two closures created from the same
// literal compare equal even when they capture different values. A prop
// whose change must be observable has to carry the changing value as data
// alongside the callback rather than only inside its captures.
func propsEqual(a, b Props) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Key != b[i].Key || !propValueEqual(a[i].Value, b[i].Value) {
			return false
		}
	}
	return true
}

func propValueEqual(x, y any) bool {
	if x == nil || y == nil {
		return x == nil && y == nil
	}
	xv := reflect.ValueOf(x)
	yv := reflect.ValueOf(y)
	if xv.Kind() == reflect.Func || yv.Kind() == reflect.Func {
		return xv.Kind() == reflect.Func && yv.Kind() == reflect.Func &&
			xv.Pointer() == yv.Pointer()
	}
	return reflect.DeepEqual(x, y)
}

// diffProps returns the props of next whose values differ from prev, plus
// the keys of prev that next dropped (reported with nil values). nil means
// no change.
func diffProps(prev, next Props) map[string]any {
	var changed map[string]any
	record := func(key string, value any) {
		if changed == nil {
			changed = make(map[string]any)
		}
		changed[key] = value
	}
	for _, kv := range next {
		old, ok := prev.Get(kv.Key)
		if !ok || !propValueEqual(old, kv.Value) {
			record(kv.Key, kv.Value)
		}
	}
	for _, kv := range prev {
		if _, ok := next.Get(kv.Key); !ok {
			record(kv.Key, nil)
		}
	}
	return changed
}
