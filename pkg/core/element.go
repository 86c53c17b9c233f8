package core

import (
	"reflect"

	"github.com/go-ripple/ripple/pkg/reactive"
	"github.com/go-ripple/ripple/pkg/wire"
)

// Element is one instantiation of a Component at one tree position. The
// description part (component + props) is immutable for the render pass that
// created it; ChildIDs is rewritten by each execution of the element.
//
// Elements live in the session's element arena keyed by id. They carry no
// pointers back to the session or to other elements.
type Element struct {
	// ID is the stable path-encoded identity (see id.go).
	ID wire.NodeID
	// Component is the owning component, shared by reference.
	Component *Component
	// Props is the ordered prop mapping for the pass that created it.
	Props Props
	// Key is the explicit key supplied at placement, if any.
	Key string
	// ChildIDs lists the ids of the children actually rendered by the last
	// execution, in order. This is what the wire tree reflects. A container
	// that collected more children than it rendered keeps the full set in
	// its ElementState, not here.
	ChildIDs []wire.NodeID
	// RenderCount is how many times this element's body has executed.
	RenderCount int
}

// clone returns a copy of the element with its own ChildIDs backing array.
func (e *Element) clone() *Element {
	c := *e
	c.ChildIDs = append([]wire.NodeID(nil), e.ChildIDs...)
	return &c
}

// stateKey identifies one local state instance within a node: the state
// bag's concrete type plus the 0-based call-order index for that type, so a
// body may create several bags of the same type.
type stateKey struct {
	typ   reflect.Type
	index int
}

// hookFunc is one registered lifecycle hook, already wrapped so that async
// hooks spawn their task when invoked.
type hookFunc func()

// ElementState is the per-identity lifecycle state of a node, kept separate
// from the Element so that a replaced element snapshot does not drag state
// with it. Created on first execution (mount), destroyed on removal or soft
// unmount.
type ElementState struct {
	// Mounted is true from mount until the state is destroyed.
	Mounted bool
	// Parent is the id of the node that rendered this one ("" for the root).
	Parent wire.NodeID

	// local holds the node's state bags keyed by (type, call index).
	local map[stateKey]reactive.Stateful
	// stateSeq counts UseState calls per bag type during one execution.
	stateSeq map[reflect.Type]int

	// collected is the full ordered set of child declarations a container
	// gathered on its last execution, including ones it chose not to render.
	// Retaining the declarations (not just ids) lets a different subset be
	// re-rendered later without re-invoking the parent that collected them.
	collected []*Child

	// collectFn is the children block the container was last placed with.
	// A container that re-executes on its own (it went dirty while its
	// parent did not) re-runs this block to collect fresh declarations.
	collectFn func(*BuildContext)

	// watched is the set of dependency watcher sets this node is subscribed
	// to, pruned explicitly on unmount so dependency cleanup does not wait
	// on anything else.
	watched map[reactive.DepSet]struct{}

	// provided holds values published by this node for descendants.
	provided map[reflect.Type]any

	mountHooks   []hookFunc
	unmountHooks []hookFunc
}

func newElementState(parent wire.NodeID) *ElementState {
	return &ElementState{
		Mounted:  true,
		Parent:   parent,
		local:    make(map[stateKey]reactive.Stateful),
		stateSeq: make(map[reflect.Type]int),
	}
}

// beginExecution resets the per-execution bookkeeping: call-index counters
// restart and hook registrations are captured fresh.
func (st *ElementState) beginExecution() {
	clear(st.stateSeq)
	st.mountHooks = nil
	st.unmountHooks = nil
}

// collectedIDs returns the ids of the retained collection.
func (st *ElementState) collectedIDs() []wire.NodeID {
	if len(st.collected) == 0 {
		return nil
	}
	ids := make([]wire.NodeID, 0, len(st.collected))
	for _, c := range st.collected {
		ids = append(ids, c.id)
	}
	return ids
}

// CollectedIDs exposes the retained collection for inspection.
func (st *ElementState) CollectedIDs() []wire.NodeID { return st.collectedIDs() }

// watch records a dependency subscription for unmount-time pruning.
func (st *ElementState) watch(deps reactive.DepSet) {
	if st.watched == nil {
		st.watched = make(map[reactive.DepSet]struct{})
	}
	st.watched[deps] = struct{}{}
}

// dropWatches unsubscribes the node from every watcher set it joined.
func (st *ElementState) dropWatches(id wire.NodeID) {
	for deps := range st.watched {
		deps.Drop(string(id))
	}
	st.watched = nil
}
