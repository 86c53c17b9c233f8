// Package core implements the reactive rendering engine: the
// component/element model, the render session, the reconciler and the
// lifecycle rules that make state mutation during rendering safe.
//
// # Model
//
// A [Component] is a named, stateless description of a render function.
// Placing a component produces an [Element]: one instantiation of the
// component at one tree position, with an id that encodes its path, position
// or key, and component identity. Elements and their per-identity lifecycle
// state ([ElementState]) live in arenas owned by the [Session]; all
// cross-references are id lookups, never pointers, so the tree is
// cycle-free by construction.
//
// # Rendering
//
// A component body receives a [BuildContext] and declares children with
// [BuildContext.Place] (or [BuildContext.PlaceContainer] for
// children-accepting components). The
// context is explicit: there is no ambient "current session" global, and
// placing a component with no active render frame fails fast.
//
// The initial render executes the whole tree and emits exactly one Add patch
// for the root. After that, state mutations mark the reading nodes dirty and
// [Session.Flush] re-executes only the dirty roots, reconciles each node's
// previous children against the newly declared ones, and emits minimal
// Add/Update/Remove patches in parent-before-child order.
//
// # Lifecycle and concurrency
//
// Mount and unmount hooks registered during a body run after the render pass
// has released the session lock, so hook bodies may freely read and write
// tracked state. Async hooks become session-tracked background tasks that
// are joined when the session closes. Marking a node dirty from any
// goroutine takes the session lock, so a concurrent mutation blocks until an
// in-progress render completes rather than interleaving with it.
package core
