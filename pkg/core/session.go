package core

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/go-ripple/ripple/pkg/errors"
	"github.com/go-ripple/ripple/pkg/reactive"
	"github.com/go-ripple/ripple/pkg/wire"
)

// Session owns one rendered tree: the element and state arenas, the dirty
// set, the lock that serializes rendering against concurrent mutation, and
// the background tasks spawned by async lifecycle hooks. A process (or a
// multi-client server) creates one Session per application instance;
// independent sessions share nothing and render fully in parallel.
type Session struct {
	mu sync.Mutex

	id string

	elements map[wire.NodeID]*Element
	states   map[wire.NodeID]*ElementState
	rootID   wire.NodeID

	dirty      map[wire.NodeID]struct{}
	dirtyOrder []wire.NodeID

	componentOrd map[*Component]int

	// renderActive + renderGID identify the goroutine driving an in-progress
	// render pass, so state access from inside a component body can be told
	// apart from access by an unrelated goroutine (which must block on mu
	// instead of failing).
	renderActive atomic.Bool
	renderGID    atomic.Int64

	pass *renderPass // non-nil while a pass is running, guarded by mu

	sink wire.PatchSink

	// OnDirty, if set, is invoked (without the lock) after a mutation marks
	// at least one node dirty, so a host can schedule a Flush.
	OnDirty func()

	// callbackNode is the node whose callback is currently being dispatched.
	callbackNode wire.NodeID
	dispatchMu   sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	tasks  map[*sessionTask]struct{}
	taskMu sync.Mutex
	taskWG sync.WaitGroup
	closed bool
}

type sessionTask struct {
	name string
}

// NewSession creates a session that delivers patches to sink. A nil sink
// discards patches, which is occasionally useful in tests.
func NewSession(sink wire.PatchSink) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	entropy := ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
	return &Session{
		id:           ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String(),
		elements:     make(map[wire.NodeID]*Element),
		states:       make(map[wire.NodeID]*ElementState),
		dirty:        make(map[wire.NodeID]struct{}),
		componentOrd: make(map[*Component]int),
		sink:         sink,
		ctx:          ctx,
		cancel:       cancel,
		tasks:        make(map[*sessionTask]struct{}),
	}
}

// ID returns the session's ULID.
func (s *Session) ID() string { return s.id }

// RootID returns the id of the root element, or "" before the initial
// render.
func (s *Session) RootID() wire.NodeID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rootID
}

// Element returns a snapshot of the element with the given id.
func (s *Session) Element(id wire.NodeID) (Element, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	el, ok := s.elements[id]
	if !ok {
		return Element{}, false
	}
	return *el.clone(), true
}

// CallbackNode returns the id of the node whose callback is being
// dispatched on some goroutine, or "" when no dispatch is in progress.
func (s *Session) CallbackNode() wire.NodeID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.callbackNode
}

// RenderCount returns how many times the node's body has executed.
func (s *Session) RenderCount(id wire.NodeID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if el, ok := s.elements[id]; ok {
		return el.RenderCount
	}
	return 0
}

// inRenderGoroutine reports whether the caller is the goroutine currently
// driving this session's render pass.
func (s *Session) inRenderGoroutine() bool {
	return s.renderActive.Load() && s.renderGID.Load() == goroutineID()
}

// MarkDirty schedules nodes for re-execution on the next Flush. It may be
// called from any goroutine; if a render pass is in progress it blocks until
// the pass releases the session lock, so a render always observes a
// consistent dirty set.
func (s *Session) MarkDirty(ids ...wire.NodeID) {
	if len(ids) == 0 {
		return
	}
	s.mu.Lock()
	marked := 0
	for _, id := range ids {
		if s.markDirtyLocked(id) {
			marked++
		}
	}
	s.mu.Unlock()
	if marked > 0 && s.OnDirty != nil {
		s.OnDirty()
	}
}

func (s *Session) markDirtyLocked(id wire.NodeID) bool {
	if _, ok := s.elements[id]; !ok {
		return false
	}
	if _, ok := s.dirty[id]; ok {
		return false
	}
	s.dirty[id] = struct{}{}
	s.dirtyOrder = append(s.dirtyOrder, id)
	return true
}

// Enter implements reactive.Owner. Inside the render pass it is a free pass
// that names the currently executing node; from any other goroutine it takes
// the session lock and names nothing.
func (s *Session) Enter() (string, func()) {
	if s.inRenderGoroutine() {
		return string(s.currentFrameNode()), func() {}
	}
	s.mu.Lock()
	return "", s.mu.Unlock
}

// EnterMutation implements reactive.Owner. Mutating tracked state from
// inside an active render pass is a contract violation.
func (s *Session) EnterMutation(attr string) func(dirty []string) {
	if s.inRenderGoroutine() {
		errors.Usage("reactive", "cannot mutate %s while a render is in progress", attr)
	}
	s.mu.Lock()
	return func(dirty []string) {
		marked := 0
		for _, id := range dirty {
			if s.markDirtyLocked(wire.NodeID(id)) {
				marked++
			}
		}
		s.mu.Unlock()
		if marked > 0 && s.OnDirty != nil {
			s.OnDirty()
		}
	}
}

// Watch implements reactive.Owner.
func (s *Session) Watch(node string, deps reactive.DepSet) {
	if st, ok := s.states[wire.NodeID(node)]; ok {
		st.watch(deps)
	}
}

// Live implements reactive.Owner. A node counts as live while it holds
// lifecycle state; a soft-unmounted element no longer receives
// notifications.
func (s *Session) Live(node string) bool {
	_, ok := s.states[wire.NodeID(node)]
	return ok
}

// currentFrameNode returns the id of the node whose body is executing, or ""
// between frames. Only called from the render goroutine.
func (s *Session) currentFrameNode() wire.NodeID {
	if s.pass == nil || len(s.pass.frames) == 0 {
		return ""
	}
	return s.pass.frames[len(s.pass.frames)-1].id
}

// spawn runs fn as a session-tracked background task. The session, not the
// garbage collector, keeps the task alive: it stays in the task set until it
// completes and Close joins it.
func (s *Session) spawn(name string, fn func(context.Context)) {
	s.taskMu.Lock()
	if s.closed {
		s.taskMu.Unlock()
		return
	}
	t := &sessionTask{name: name}
	s.tasks[t] = struct{}{}
	s.taskWG.Add(1)
	s.taskMu.Unlock()

	go func() {
		defer func() {
			s.taskMu.Lock()
			delete(s.tasks, t)
			s.taskMu.Unlock()
			s.taskWG.Done()
		}()
		defer errors.Recover(name)
		fn(s.ctx)
	}()
}

// TaskCount reports the number of in-flight background hook tasks.
func (s *Session) TaskCount() int {
	s.taskMu.Lock()
	defer s.taskMu.Unlock()
	return len(s.tasks)
}

// Close tears the session down: outstanding background tasks are cancelled
// and joined, every mounted node is unmounted (hooks run, state cleared) and
// the arenas are emptied. No patches are emitted; the client this session
// served is gone. Close is idempotent.
func (s *Session) Close() {
	s.taskMu.Lock()
	if s.closed {
		s.taskMu.Unlock()
		return
	}
	s.closed = true
	s.taskMu.Unlock()

	s.cancel()
	s.taskWG.Wait()

	s.mu.Lock()
	var hooks []hookFunc
	for id, st := range s.states {
		st.Mounted = false
		st.dropWatches(id)
		hooks = append(hooks, st.unmountHooks...)
	}
	s.elements = make(map[wire.NodeID]*Element)
	s.states = make(map[wire.NodeID]*ElementState)
	s.dirty = make(map[wire.NodeID]struct{})
	s.dirtyOrder = nil
	s.rootID = ""
	s.mu.Unlock()

	for _, hook := range hooks {
		hook()
	}
}
