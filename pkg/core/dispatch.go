package core

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/go-ripple/ripple/pkg/errors"
	"github.com/go-ripple/ripple/pkg/wire"
)

// DispatchCallback invokes a callable prop previously handed out as a
// [wire.CallbackRef]. Dispatches are serialized with respect to each other
// but run outside the session lock, so a callback body is free to mutate
// tracked state; the caller decides when to Flush the resulting dirt.
//
// Args are matched to the callback's parameters positionally. Missing args
// become zero values, extra args are dropped, and an arg that cannot be
// assigned or converted to its parameter type fails the whole dispatch.
//
// A callback whose first parameter is a context.Context receives the
// session's context and is not fed an event arg in that position. A callback
// whose last result is an error has that error returned to the dispatcher.
func (s *Session) DispatchCallback(node wire.NodeID, prop string, args ...any) error {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	s.mu.Lock()
	el := s.elements[node]
	var value any
	var found bool
	if el != nil {
		value, found = el.Props.Get(prop)
	}
	s.callbackNode = node
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.callbackNode = ""
		s.mu.Unlock()
	}()

	if el == nil {
		return dispatchErr(node, prop, fmt.Errorf("node does not exist"))
	}
	if !found || value == nil {
		return dispatchErr(node, prop, fmt.Errorf("no such prop"))
	}

	// Common signatures get a direct call; everything else goes through
	// reflection.
	switch fn := value.(type) {
	case func():
		return s.invoke(node, prop, func() error { fn(); return nil })
	case func(any):
		var a0 any
		if len(args) > 0 {
			a0 = args[0]
		}
		return s.invoke(node, prop, func() error { fn(a0); return nil })
	case func(...any):
		return s.invoke(node, prop, func() error { fn(args...); return nil })
	case func(context.Context) error:
		return s.invoke(node, prop, func() error { return fn(s.ctx) })
	}

	fv := reflect.ValueOf(value)
	if fv.Kind() != reflect.Func {
		return dispatchErr(node, prop, fmt.Errorf("prop is %T, not a callback", value))
	}
	ft := fv.Type()
	if ft.IsVariadic() {
		return dispatchErr(node, prop, fmt.Errorf("unsupported variadic callback %s", ft))
	}
	in := make([]reflect.Value, ft.NumIn())
	next := 0
	for i := range in {
		pt := ft.In(i)
		if i == 0 && pt == ctxType {
			in[i] = reflect.ValueOf(s.ctx)
			continue
		}
		if next >= len(args) || args[next] == nil {
			in[i] = reflect.Zero(pt)
			next++
			continue
		}
		av := reflect.ValueOf(args[next])
		switch {
		case av.Type().AssignableTo(pt):
			in[i] = av
		case av.Type().ConvertibleTo(pt):
			in[i] = av.Convert(pt)
		default:
			return dispatchErr(node, prop,
				fmt.Errorf("arg %d: cannot use %T as %s", next, args[next], pt))
		}
		next++
	}
	return s.invoke(node, prop, func() error {
		out := fv.Call(in)
		if n := len(out); n > 0 && ft.Out(n-1) == errType {
			if e, _ := out[n-1].Interface().(error); e != nil {
				return e
			}
		}
		return nil
	})
}

var (
	ctxType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errType = reflect.TypeOf((*error)(nil)).Elem()
)

// invoke runs a callback body with panic recovery. A recovered panic is
// reported through the error handler and also returned to the dispatcher; an
// error returned by the callback itself is wrapped the same way.
func (s *Session) invoke(node wire.NodeID, prop string, call func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			re := dispatchErr(node, prop, fmt.Errorf("panic: %v", r))
			re.StackTrace = errors.CaptureStack()
			errors.Report(re)
			err = re
		}
	}()
	if cerr := call(); cerr != nil {
		return dispatchErr(node, prop, cerr)
	}
	return nil
}

func dispatchErr(node wire.NodeID, prop string, err error) *errors.RippleError {
	return &errors.RippleError{
		Op:        "core.Session.DispatchCallback",
		Kind:      errors.KindDispatch,
		Err:       fmt.Errorf("%s.%s: %w", node, prop, err),
		Node:      string(node),
		Timestamp: time.Now(),
	}
}
