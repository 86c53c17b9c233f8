package core

// Kind is the closed set of component kinds. Call sites that vary behavior
// by kind switch over it exhaustively.
type Kind int

const (
	// KindComposite is a component with a Go render body that declares
	// children by placing other components.
	KindComposite Kind = iota
	// KindNative is a leaf or container hosted by the presentation layer;
	// it has no body of its own.
	KindNative
	// KindText is the built-in text node.
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindComposite:
		return "composite"
	case KindNative:
		return "native"
	case KindText:
		return "text"
	default:
		return "unknown"
	}
}

// RenderFunc is a component body. It reads state and declares children on
// ctx; it returns nothing because the declared children are the result.
type RenderFunc func(ctx *BuildContext)

// Component is a named, stateless description of a render function. Two
// components are the same identity iff they are the same *Component; the
// pointer is the hash key the reconciler matches on.
type Component struct {
	name            string
	kind            Kind
	acceptsChildren bool
	render          RenderFunc

	// accepted, when non-nil, is the closed set of components this
	// container allows as children.
	accepted map[*Component]struct{}
}

// Define declares a composite component.
func Define(name string, render RenderFunc) *Component {
	return &Component{name: name, kind: KindComposite, render: render}
}

// DefineContainer declares a composite component that accepts children.
// Its body may inspect the collected children via [BuildContext.Children]
// and render any subset of them; children it collects but does not render
// are soft-unmounted (state dropped, identity kept).
func DefineContainer(name string, render RenderFunc) *Component {
	return &Component{name: name, kind: KindComposite, acceptsChildren: true, render: render}
}

// Native declares a leaf component hosted by the presentation layer.
func Native(name string) *Component {
	return &Component{name: name, kind: KindNative}
}

// NativeContainer declares a presentation-layer component that accepts
// children. All collected children are rendered in collection order.
func NativeContainer(name string) *Component {
	return &Component{name: name, kind: KindNative, acceptsChildren: true}
}

// Accepting restricts a container to the given child components. Declaring
// any other component under it is a usage error at the declaration site.
// Include Text's component via [TextComponent] if text children are allowed.
func (c *Component) Accepting(children ...*Component) *Component {
	if !c.acceptsChildren {
		panic("core.Accepting: " + c.name + " does not accept children")
	}
	c.accepted = make(map[*Component]struct{}, len(children))
	for _, ch := range children {
		c.accepted[ch] = struct{}{}
	}
	return c
}

// TextComponent returns the shared component identity of text nodes, for use
// with [Component.Accepting].
func TextComponent() *Component { return textComponent }

// Name returns the component's name as it appears in the wire tree.
func (c *Component) Name() string { return c.name }

// Kind returns the component's kind.
func (c *Component) Kind() Kind { return c.kind }

// AcceptsChildren reports whether the component has container semantics.
func (c *Component) AcceptsChildren() bool { return c.acceptsChildren }

// textComponent is the shared identity of all text nodes.
var textComponent = &Component{name: "text", kind: KindText}
