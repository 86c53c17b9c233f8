package core

import (
	"context"
	"reflect"
	"time"

	"github.com/go-ripple/ripple/pkg/errors"
	"github.com/go-ripple/ripple/pkg/reactive"
	"github.com/go-ripple/ripple/pkg/wire"
)

// BuildContext is the explicit render context handed to every component
// body. It is only valid while its render pass is executing a frame; every
// method fails fast when used outside one, rather than silently attaching
// work to an unrelated session.
type BuildContext struct {
	session *Session
	pass    *renderPass
}

// Session returns the session driving this render.
func (ctx *BuildContext) Session() *Session { return ctx.session }

// requireFrame returns the innermost frame or raises the outside-render
// usage error.
func (ctx *BuildContext) requireFrame(op string) *frame {
	if ctx == nil || ctx.pass == nil || ctx.session.pass != ctx.pass || len(ctx.pass.frames) == 0 {
		errors.Usage(op, "no active render context; components may only be placed while a render is in progress")
	}
	return ctx.pass.frames[len(ctx.pass.frames)-1]
}

// NodeID returns the id of the element whose body is executing.
func (ctx *BuildContext) NodeID() wire.NodeID {
	return ctx.requireFrame("core.BuildContext.NodeID").id
}

// Props returns the props of the element whose body is executing.
func (ctx *BuildContext) Props() Props {
	return ctx.requireFrame("core.BuildContext.Props").element.Props
}

// Child is one collected child declaration: a component plus props waiting
// to be rendered by a container. Container bodies receive these from
// [BuildContext.Children] and render the ones they want with
// [BuildContext.PlaceChild].
type Child struct {
	component  *Component
	props      Props
	key        string
	childrenFn func(*BuildContext)
	pos        int
	id         wire.NodeID // resolved when the declaring frame reconciles
}

// Component returns the declared component. Containers use this to reject
// children of an unexpected kind.
func (c *Child) Component() *Component { return c.component }

// Props returns the declared props.
func (c *Child) Props() Props { return c.props }

// Key returns the explicit key, or "".
func (c *Child) Key() string { return c.key }

// Place declares a child of the current node. The component body is executed
// only if no element with equal props already exists at the computed
// position (see the reuse rule on Session).
func (ctx *BuildContext) Place(c *Component, props Props) {
	ctx.declare("core.Place", c, props, "", nil)
}

// PlaceKeyed is Place with an explicit key. Keys override the positional
// part of the child's id, so keyed children keep their identity when
// reordered.
func (ctx *BuildContext) PlaceKeyed(c *Component, props Props, key string) {
	ctx.declare("core.Place", c, props, key, nil)
}

// PlaceContainer declares a children-accepting child. children runs in the
// container's scope and declares the container's collected children.
func (ctx *BuildContext) PlaceContainer(c *Component, props Props, children func(*BuildContext)) {
	ctx.declare("core.PlaceContainer", c, props, "", children)
}

// PlaceContainerKeyed is PlaceContainer with an explicit key.
func (ctx *BuildContext) PlaceContainerKeyed(c *Component, props Props, key string, children func(*BuildContext)) {
	ctx.declare("core.PlaceContainer", c, props, key, children)
}

// Text declares a text node child.
func (ctx *BuildContext) Text(value string) {
	ctx.declare("core.Text", textComponent, Props{{Key: "text", Value: value}}, "", nil)
}

func (ctx *BuildContext) declare(op string, c *Component, props Props, key string, childrenFn func(*BuildContext)) {
	f := ctx.requireFrame(op)
	if c == nil {
		errors.Usage(op, "nil component")
	}
	if childrenFn != nil && !c.acceptsChildren {
		errors.Usage(op, "component %s does not accept children", c.name)
	}
	child := &Child{
		component:  c,
		props:      props,
		key:        key,
		childrenFn: childrenFn,
		pos:        f.pos,
	}
	f.pos++
	if f.collecting {
		if acc := f.element.Component.accepted; acc != nil {
			if _, ok := acc[c]; !ok {
				errors.Usage(op, "container %s does not accept %s children",
					f.element.Component.name, c.name)
			}
		}
		f.collected = append(f.collected, child)
	} else {
		f.decls = append(f.decls, child)
	}
}

// Children returns the children collected for the current container node, in
// collection order. Only meaningful inside the body of a component declared
// with [DefineContainer].
func (ctx *BuildContext) Children() []*Child {
	f := ctx.requireFrame("core.BuildContext.Children")
	if !f.element.Component.acceptsChildren {
		errors.Usage("core.BuildContext.Children", "component %s does not accept children", f.element.Component.name)
	}
	return f.collected
}

// PlaceChild renders one collected child. A collected child that no call to
// PlaceChild renders is soft-unmounted: its state is dropped but its element
// and id survive, so rendering it again later starts fresh state without a
// new identity.
func (ctx *BuildContext) PlaceChild(child *Child) {
	f := ctx.requireFrame("core.BuildContext.PlaceChild")
	if child == nil || child.id == "" {
		errors.Usage("core.BuildContext.PlaceChild", "child was not collected by this container")
	}
	f.decls = append(f.decls, child)
}

// OnMount registers fn to run after the pass in which this node first
// mounted, once the session lock is released. Registrations on later
// executions of an already-mounted node are ignored.
func (ctx *BuildContext) OnMount(fn func()) {
	f := ctx.requireFrame("core.BuildContext.OnMount")
	f.state.mountHooks = append(f.state.mountHooks, wrapHook(f.id, "mount", fn))
}

// OnUnmount registers fn to run after the pass that unmounts this node. The
// registrations from the node's most recent execution win.
func (ctx *BuildContext) OnUnmount(fn func()) {
	f := ctx.requireFrame("core.BuildContext.OnUnmount")
	f.state.unmountHooks = append(f.state.unmountHooks, wrapHook(f.id, "unmount", fn))
}

// OnMountAsync is OnMount for long-running work: fn runs on a background
// goroutine tracked by the session, with a context that is cancelled when
// the session closes.
func (ctx *BuildContext) OnMountAsync(fn func(context.Context)) {
	f := ctx.requireFrame("core.BuildContext.OnMountAsync")
	s := ctx.session
	node := f.id
	f.state.mountHooks = append(f.state.mountHooks, func() {
		s.spawn("hook.mount."+string(node), fn)
	})
}

// OnUnmountAsync is the async form of OnUnmount.
func (ctx *BuildContext) OnUnmountAsync(fn func(context.Context)) {
	f := ctx.requireFrame("core.BuildContext.OnUnmountAsync")
	s := ctx.session
	node := f.id
	f.state.unmountHooks = append(f.state.unmountHooks, func() {
		s.spawn("hook.unmount."+string(node), fn)
	})
}

// wrapHook isolates a synchronous hook: a panic is reported through the
// error handler and must not prevent sibling hooks or state cleanup from
// completing.
func wrapHook(node wire.NodeID, phase string, fn func()) hookFunc {
	return func() {
		defer func() {
			if r := recover(); r != nil {
				errors.ReportHookError(&errors.HookError{
					Node:       string(node),
					Phase:      phase,
					Recovered:  r,
					StackTrace: errors.CaptureStack(),
					Timestamp:  time.Now(),
				})
			}
		}()
		fn()
	}
}

// Provide publishes value to this node's descendants, looked up by its
// concrete type via [Provided].
func (ctx *BuildContext) Provide(value any) {
	f := ctx.requireFrame("core.BuildContext.Provide")
	if value == nil {
		errors.Usage("core.BuildContext.Provide", "nil value")
	}
	if f.state.provided == nil {
		f.state.provided = make(map[reflect.Type]any)
	}
	f.state.provided[reflect.TypeOf(value)] = value
}

// Provided returns the nearest ancestor-provided value of type T. Reading a
// type that no ancestor provided is a usage error naming the type.
func Provided[T any](ctx *BuildContext) T {
	f := ctx.requireFrame("core.Provided")
	return providedAt[T](ctx.session, f.id)
}

// ProvidedAt resolves a provided value from the position of a live node.
// This is the lookup used inside dispatched callbacks, where the node id
// comes from the callback scope rather than a render frame.
func ProvidedAt[T any](s *Session, node wire.NodeID) T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return providedAt[T](s, node)
}

// ProvidedInCallback resolves a provided value from the node whose callback
// is currently being dispatched, without threading the node id through the
// callback itself. Calling it when no dispatch is in progress is a usage
// error.
func ProvidedInCallback[T any](s *Session) T {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.callbackNode == "" {
		errors.Usage("core.ProvidedInCallback", "no callback dispatch is in progress")
	}
	return providedAt[T](s, s.callbackNode)
}

func providedAt[T any](s *Session, node wire.NodeID) T {
	typ := reflect.TypeOf((*T)(nil)).Elem()
	for id := node; id != ""; {
		st, ok := s.states[id]
		if !ok {
			break
		}
		if v, ok := st.provided[typ]; ok {
			return v.(T)
		}
		id = st.Parent
	}
	errors.Usage("core.Provided",
		"no value of type %s was provided; call BuildContext.Provide with a %s on an ancestor", typ, typ)
	panic("unreachable")
}

// statefulPtr constrains UseState to pointer-to-struct bags embedding
// reactive.State.
type statefulPtr[T any] interface {
	*T
	reactive.Stateful
}

// UseState returns the node's local state bag for (T, call index), creating
// and binding it on first execution. Repeated executions of the same node
// return the cached instance in call order, so a body may create several
// bags of the same type. Constructing a bag outside a render context is
// ordinary Go and yields independent instances.
func UseState[T any, PT statefulPtr[T]](ctx *BuildContext, construct func() PT) PT {
	f := ctx.requireFrame("core.UseState")
	typ := reflect.TypeOf((*T)(nil)).Elem()
	idx := f.state.stateSeq[typ]
	f.state.stateSeq[typ] = idx + 1
	key := stateKey{typ: typ, index: idx}
	if existing, ok := f.state.local[key]; ok {
		return any(existing).(PT)
	}
	bag := construct()
	if bag == nil {
		errors.Usage("core.UseState", "construct returned nil")
	}
	reactive.Bind(bag, ctx.session)
	f.state.local[key] = bag
	return bag
}
