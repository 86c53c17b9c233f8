package core

import (
	"slices"
	"strings"
	"time"

	"github.com/go-ripple/ripple/pkg/errors"
	"github.com/go-ripple/ripple/pkg/wire"
)

// frame is one entry of the per-pass execution stack: the element whose body
// (or collection block) is currently running, the declarations it has made
// so far, and the call-order position counter its children are numbered by.
type frame struct {
	id      wire.NodeID
	element *Element
	state   *ElementState

	decls      []*Child // children declared for rendering, in call order
	collected  []*Child // container-collected children, in collection order
	pos        int
	collecting bool

	used map[wire.NodeID]*Child // ids claimed by this frame's declarations
}

// renderPass accumulates everything one render produces: patches, the set of
// nodes added, and the lifecycle hooks to run once the lock is released.
type renderPass struct {
	ctx *BuildContext

	frames []*frame

	patches   []wire.Patch
	added     map[wire.NodeID]struct{} // nodes created this pass
	newStates map[wire.NodeID]struct{} // states created this pass (mount pending)

	mountQueue   []hookFunc
	unmountQueue []hookFunc
}

func (s *Session) beginPassLocked() *renderPass {
	pass := &renderPass{
		added:     make(map[wire.NodeID]struct{}),
		newStates: make(map[wire.NodeID]struct{}),
	}
	pass.ctx = &BuildContext{session: s, pass: pass}
	s.pass = pass
	s.renderGID.Store(goroutineID())
	s.renderActive.Store(true)
	return pass
}

// runPass executes fn with panic recovery. Whatever happens, the frame stack
// is left empty so the session is valid for the next render attempt; the
// failure itself propagates to the caller as a RenderError.
func (s *Session) runPass(pass *renderPass, fn func()) (err error) {
	defer func() {
		pass.frames = nil
		if r := recover(); r != nil {
			if re, ok := r.(*errors.RenderError); ok {
				err = re
				return
			}
			err = &errors.RenderError{
				Recovered:  r,
				StackTrace: errors.CaptureStack(),
				Timestamp:  time.Now(),
			}
		}
	}()
	fn()
	return nil
}

// endPass finishes a pass: the lock is released and the render-active flag
// cleared before any lifecycle hook runs, so hook bodies may read and write
// tracked state. Patches reach the sink only on success.
func (s *Session) endPass(pass *renderPass, err error) error {
	var patches []wire.Patch
	if err == nil {
		patches = pass.finalize(s)
	}
	s.pass = nil
	s.renderActive.Store(false)
	s.mu.Unlock()

	var sinkErr error
	if err == nil && s.sink != nil && len(patches) > 0 {
		sinkErr = s.sink.ReceivePatches(patches)
	}

	// Hooks run last: an OnMount observes a client that already holds the
	// node, and hooks fire even when the sink rejected the batch. A failed
	// pass runs no hooks at all.
	if err == nil {
		for _, hook := range pass.unmountQueue {
			hook()
		}
		for _, hook := range pass.mountQueue {
			hook()
		}
	}

	if err != nil {
		return err
	}
	return sinkErr
}

// RenderRoot performs the initial render: it executes the root component and
// its entire declared subtree, and emits exactly one Add patch containing
// the fully populated tree. It may be called once per session.
func (s *Session) RenderRoot(c *Component, props Props) error {
	if c == nil {
		errors.Usage("core.Session.RenderRoot", "nil component")
	}
	s.mu.Lock()
	if s.rootID != "" {
		s.mu.Unlock()
		errors.Usage("core.Session.RenderRoot", "root already rendered; mark it dirty and Flush instead")
	}
	pass := s.beginPassLocked()
	err := s.runPass(pass, func() {
		rootID := wire.NodeID(s.componentToken(c))
		s.rootID = rootID
		el := &Element{ID: rootID, Component: c, Props: props}
		s.elements[rootID] = el
		s.states[rootID] = newElementState("")
		pass.added[rootID] = struct{}{}
		pass.newStates[rootID] = struct{}{}
		pass.patches = append(pass.patches, wire.Patch{Kind: wire.PatchAdd, Node: rootID})
		s.executeElement(pass, el, nil, false)
	})
	return s.endPass(pass, err)
}

// Flush performs an incremental render: every dirty node that is not a
// descendant of another dirty node is re-executed exactly once, its children
// are reconciled against the previous render, and the resulting patches are
// delivered to the sink. A descendant the ancestor's re-execution reached is
// never run twice; one it did not reach (the path short-circuited at an
// unchanged node) keeps its mark and runs in a later sweep of the same pass.
func (s *Session) Flush() error {
	s.mu.Lock()
	if s.rootID == "" || len(s.dirty) == 0 {
		s.mu.Unlock()
		return nil
	}
	pass := s.beginPassLocked()
	err := s.runPass(pass, func() {
		// A re-executed ancestor consumes a descendant's dirty mark only
		// when it actually reaches it; a memoized node in between leaves
		// the descendant marked. Sweep until the set is drained.
		for len(s.dirty) > 0 {
			roots := s.dirtyRootsLocked()
			if len(roots) == 0 {
				break
			}
			for _, id := range roots {
				if _, still := s.dirty[id]; !still {
					continue
				}
				delete(s.dirty, id)
				el := s.elements[id]
				if el == nil {
					continue
				}
				if s.states[id] == nil {
					// soft-unmounted: nothing to re-execute until re-collected
					continue
				}
				prev := el.clone()
				s.executeElement(pass, el, nil, false)
				s.emitUpdateIfChanged(pass, prev, el)
			}
		}
		s.dirtyOrder = s.dirtyOrder[:0]
	})
	return s.endPass(pass, err)
}

// dirtyRootsLocked returns the dirty ids that are not descendants of other
// dirty ids, in mark order.
func (s *Session) dirtyRootsLocked() []wire.NodeID {
	roots := make([]wire.NodeID, 0, len(s.dirty))
	for _, id := range s.dirtyOrder {
		if _, ok := s.dirty[id]; !ok {
			continue
		}
		covered := false
		for other := range s.dirty {
			if other != id && isDescendant(id, other) {
				covered = true
				break
			}
		}
		if !covered {
			roots = append(roots, id)
		}
	}
	return roots
}

// executeElement runs one element: collection block (for containers), body,
// and reconciliation of its children. decl carries the placement that
// triggered this execution, or nil when re-executing a dirty root; skipBody
// re-collects a container's children without re-invoking its body.
func (s *Session) executeElement(pass *renderPass, el *Element, decl *Child, skipBody bool) {
	st := s.states[el.ID]
	if !skipBody {
		// A skipped body cannot re-register its hooks, so they survive.
		st.beginExecution()
	}

	f := &frame{id: el.ID, element: el, state: st}
	pass.frames = append(pass.frames, f)
	defer func() {
		pass.frames = pass.frames[:len(pass.frames)-1]
	}()
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(*errors.RenderError); ok {
				panic(r)
			}
			re := &errors.RenderError{
				Component:  el.Component.name,
				Node:       string(el.ID),
				StackTrace: errors.CaptureStack(),
				Timestamp:  time.Now(),
			}
			if ue, ok := r.(*errors.UsageError); ok {
				re.Err = ue
			} else {
				re.Recovered = r
			}
			panic(re)
		}
	}()

	prevRendered := append([]wire.NodeID(nil), el.ChildIDs...)
	prevCollected := st.collectedIDs()

	collectFn := st.collectFn
	if decl != nil {
		collectFn = decl.childrenFn
		st.collectFn = decl.childrenFn
	}
	switch {
	case collectFn != nil:
		f.collecting = true
		collectFn(pass.ctx)
		f.collecting = false
		s.resolveDecls(pass, f, f.collected, prevRendered, prevCollected)
		st.collected = f.collected
	case el.Component.acceptsChildren:
		// No children block to re-run: replay the retained collection.
		// Replayed ids are claimed up front so identity matching for body
		// declarations cannot adopt them.
		f.collected = st.collected
		f.used = make(map[wire.NodeID]*Child, len(f.collected))
		for _, c := range f.collected {
			f.used[c.id] = c
			if c.pos >= f.pos {
				f.pos = c.pos + 1
			}
		}
	}

	if !skipBody {
		switch el.Component.kind {
		case KindComposite:
			if el.Component.render != nil {
				el.Component.render(pass.ctx)
			}
		case KindNative, KindText:
			// hosted by the presentation layer; nothing to run
		}
	}

	if el.Component.acceptsChildren && (el.Component.render == nil || skipBody) {
		f.decls = s.defaultContainerSelection(f, skipBody, prevRendered, prevCollected)
	}

	s.resolveDecls(pass, f, f.decls, prevRendered, prevCollected)
	s.reconcileChildren(pass, f, prevRendered, prevCollected)

	el.ChildIDs = el.ChildIDs[:0]
	seen := make(map[wire.NodeID]struct{}, len(f.decls))
	for _, d := range f.decls {
		if _, dup := seen[d.id]; dup {
			continue
		}
		seen[d.id] = struct{}{}
		el.ChildIDs = append(el.ChildIDs, d.id)
	}

	if !skipBody {
		el.RenderCount++
	}
	if _, isNew := pass.newStates[el.ID]; isNew {
		pass.mountQueue = append(pass.mountQueue, st.mountHooks...)
	}
}

// defaultContainerSelection decides a container's rendered children when its
// body does not: native containers render everything they collected; a
// composite container re-collected on a props-reuse hit keeps its previous
// visibility choices for children it had already collected, and renders
// newly collected ones.
func (s *Session) defaultContainerSelection(f *frame, skipBody bool, prevRendered, prevCollected []wire.NodeID) []*Child {
	if !skipBody {
		return append(f.decls[:0], f.collected...)
	}
	hidden := make(map[wire.NodeID]struct{})
	for _, id := range prevCollected {
		if !slices.Contains(prevRendered, id) {
			hidden[id] = struct{}{}
		}
	}
	decls := f.decls[:0]
	for _, c := range f.collected {
		if _, hide := hidden[c.id]; hide {
			continue
		}
		decls = append(decls, c)
	}
	return decls
}

// resolveDecls assigns ids to unresolved declarations. Matching order per
// declaration: the computed path id first (covers explicit keys and stable
// positions), then component-identity fallback against the parent's
// unclaimed previous children. Duplicate keys do not raise: the first
// declaration claims the keyed id and later ones fall back to a positional
// id, so both still render.
func (s *Session) resolveDecls(pass *renderPass, f *frame, decls []*Child, prevRendered, prevCollected []wire.NodeID) {
	if f.used == nil {
		f.used = make(map[wire.NodeID]*Child)
	}

	var unmatched []*Child
	for _, d := range decls {
		if d.id != "" {
			f.used[d.id] = d
			continue
		}
		token := s.componentToken(d.component)
		id := childID(f.id, d.key, d.pos, token)
		if _, taken := f.used[id]; taken {
			id = childID(f.id, "", d.pos, token)
		}
		d.id = id
		if _, exists := s.elements[id]; exists {
			f.used[id] = d
		} else {
			unmatched = append(unmatched, d)
		}
	}
	if len(unmatched) == 0 {
		return
	}

	// Component-identity fallback: unclaimed previous children, unkeyed
	// only, in their previous order. A changed key never migrates identity.
	leftovers := make(map[*Component][]wire.NodeID)
	addLeftover := func(id wire.NodeID) {
		if _, claimed := f.used[id]; claimed {
			return
		}
		old := s.elements[id]
		if old == nil || old.Key != "" {
			return
		}
		leftovers[old.Component] = append(leftovers[old.Component], id)
	}
	seen := make(map[wire.NodeID]struct{})
	for _, id := range prevRendered {
		if _, dup := seen[id]; !dup {
			seen[id] = struct{}{}
			addLeftover(id)
		}
	}
	for _, id := range prevCollected {
		if _, dup := seen[id]; !dup {
			seen[id] = struct{}{}
			addLeftover(id)
		}
	}

	for _, d := range unmatched {
		if d.key == "" {
			if ids := leftovers[d.component]; len(ids) > 0 {
				d.id = ids[0]
				leftovers[d.component] = ids[1:]
			}
		}
		f.used[d.id] = d
	}
}

// reconcileChildren tears down previous children that the new declarations
// no longer cover, then renders each declaration in order. A child that is
// still collected but not rendered is soft-unmounted; a child that is no
// longer collected at all is fully removed.
func (s *Session) reconcileChildren(pass *renderPass, f *frame, prevRendered, prevCollected []wire.NodeID) {
	rendered := make(map[wire.NodeID]*Child, len(f.decls))
	for _, d := range f.decls {
		if _, dup := rendered[d.id]; !dup {
			rendered[d.id] = d
		}
	}
	collectedNow := make(map[wire.NodeID]struct{}, len(f.collected))
	for _, c := range f.collected {
		collectedNow[c.id] = struct{}{}
	}

	for _, oldID := range prevRendered {
		if _, ok := rendered[oldID]; ok {
			continue
		}
		if _, exists := s.elements[oldID]; !exists {
			continue
		}
		if _, still := collectedNow[oldID]; still {
			s.softUnmount(pass, oldID)
		} else {
			s.teardown(pass, oldID, true)
		}
	}
	// Previously collected children the container dropped entirely.
	for _, oldID := range prevCollected {
		if _, ok := rendered[oldID]; ok {
			continue
		}
		if _, still := collectedNow[oldID]; still {
			continue
		}
		if slices.Contains(prevRendered, oldID) {
			continue // already handled above
		}
		if _, exists := s.elements[oldID]; exists {
			s.teardown(pass, oldID, false)
		}
	}

	for _, d := range f.decls {
		if rendered[d.id] == d {
			s.renderChild(pass, f, d)
		}
	}
}

// renderChild materializes one declaration: creation and full execution for
// new ids, the reuse rule for existing ones.
func (s *Session) renderChild(pass *renderPass, f *frame, d *Child) {
	el, exists := s.elements[d.id]
	if !exists {
		el = &Element{ID: d.id, Component: d.component, Props: d.props, Key: d.key}
		s.elements[d.id] = el
		s.mountChild(pass, f.id, el, d)
		return
	}

	st := s.states[d.id]
	if st == nil {
		// Re-rendering a soft-unmounted (or never-rendered) collected child:
		// fresh state, same identity.
		el.Props = d.props
		el.Key = d.key
		el.ChildIDs = nil
		s.mountChild(pass, f.id, el, d)
		return
	}

	_, dirtySelf := s.dirty[d.id]
	if st.Mounted && !dirtySelf && propsEqual(el.Props, d.props) {
		if el.Component.acceptsChildren && d.childrenFn != nil {
			// Containers cannot fully short-circuit: their collected
			// children may have changed even though their own props did
			// not. A fresh wrapper is executed with the body skipped; the
			// previous element snapshot stays behind for the diff.
			prev := el
			wrapper := el.clone()
			s.elements[el.ID] = wrapper
			s.executeElement(pass, wrapper, d, true)
			s.emitUpdateIfChanged(pass, prev, wrapper)
		}
		return
	}

	prev := el.clone()
	el.Props = d.props
	el.Key = d.key
	delete(s.dirty, d.id)
	s.executeElement(pass, el, d, false)
	s.emitUpdateIfChanged(pass, prev, el)
}

// mountChild creates lifecycle state for el and executes it. The Add patch
// is queued only for the subtree root: descendants of a node added in this
// pass are carried by that node's serialized tree.
func (s *Session) mountChild(pass *renderPass, parentID wire.NodeID, el *Element, d *Child) {
	s.states[el.ID] = newElementState(parentID)
	pass.newStates[el.ID] = struct{}{}
	_, parentAdded := pass.added[parentID]
	pass.added[el.ID] = struct{}{}
	if !parentAdded {
		pass.patches = append(pass.patches, wire.Patch{Kind: wire.PatchAdd, Node: el.ID})
	}
	s.executeElement(pass, el, d, false)
}

// teardown removes el and its whole subtree: states are destroyed (unmount
// hooks queued, dependency subscriptions dropped), elements deleted.
// Children go first so unmount order is leaf-to-root.
func (s *Session) teardown(pass *renderPass, id wire.NodeID, emitPatch bool) {
	el := s.elements[id]
	st := s.states[id]
	if el != nil {
		for _, cid := range el.ChildIDs {
			s.teardown(pass, cid, false)
		}
		if st != nil {
			for _, c := range st.collected {
				if !slices.Contains(el.ChildIDs, c.id) {
					s.teardown(pass, c.id, false)
				}
			}
		}
	}
	delete(s.elements, id)
	delete(s.dirty, id)
	if st != nil {
		st.Mounted = false
		st.dropWatches(id)
		pass.unmountQueue = append(pass.unmountQueue, st.unmountHooks...)
		delete(s.states, id)
	}
	if emitPatch {
		pass.patches = append(pass.patches, wire.Patch{Kind: wire.PatchRemove, Node: id})
	}
}

// softUnmount destroys a node's lifecycle state but keeps its Element, so a
// later re-render replays it under the same id with fresh state. On the
// wire the node is simply removed.
func (s *Session) softUnmount(pass *renderPass, id wire.NodeID) {
	el := s.elements[id]
	if el != nil {
		for _, cid := range el.ChildIDs {
			s.teardown(pass, cid, false)
		}
		el.ChildIDs = nil
	}
	if st := s.states[id]; st != nil {
		st.Mounted = false
		st.dropWatches(id)
		pass.unmountQueue = append(pass.unmountQueue, st.unmountHooks...)
		delete(s.states, id)
	}
	delete(s.dirty, id)
	pass.patches = append(pass.patches, wire.Patch{Kind: wire.PatchRemove, Node: id})
}

// emitUpdateIfChanged queues an Update patch carrying only what changed
// between two executions of the same element.
func (s *Session) emitUpdateIfChanged(pass *renderPass, prev, next *Element) {
	changed := diffProps(prev.Props, next.Props)
	childChanged := !slices.Equal(prev.ChildIDs, next.ChildIDs)
	if changed == nil && !childChanged {
		return
	}
	patch := wire.Patch{Kind: wire.PatchUpdate, Node: next.ID}
	if changed != nil {
		patch.Props = s.wirePropValues(next.ID, changed)
	}
	if childChanged {
		patch.ChildIDs = append([]wire.NodeID(nil), next.ChildIDs...)
	}
	pass.patches = append(pass.patches, patch)
}

// finalize materializes queued Add patches (their subtrees are only final
// once the pass is done) and enforces the ordering invariant: a parent's Add
// precedes every descendant's. The Add subsequence is re-sorted in place by
// path depth; producers should already emit in the right order, but an
// out-of-order producer is corrected here rather than shipped.
func (pass *renderPass) finalize(s *Session) []wire.Patch {
	patches := pass.patches[:0]
	for _, p := range pass.patches {
		if p.Kind == wire.PatchAdd && p.Tree == nil {
			p.Tree = s.serializeLocked(p.Node)
			if p.Tree == nil {
				continue // added then torn down within one pass
			}
		}
		patches = append(patches, p)
	}

	addSlots := make([]int, 0, len(patches))
	for i, p := range patches {
		if p.Kind == wire.PatchAdd {
			addSlots = append(addSlots, i)
		}
	}
	adds := make([]wire.Patch, len(addSlots))
	for i, slot := range addSlots {
		adds[i] = patches[slot]
	}
	slices.SortStableFunc(adds, func(a, b wire.Patch) int {
		return strings.Count(string(a.Node), "/") - strings.Count(string(b.Node), "/")
	})
	for i, slot := range addSlots {
		patches[slot] = adds[i]
	}
	return patches
}
