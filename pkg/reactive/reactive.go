// Package reactive provides the dependency-tracked state layer of the Ripple
// runtime: typed value slots and list/map/set containers that record which
// rendered nodes read them, and that deliver precise dirty notifications when
// they are written.
//
// A state bag is a plain struct that embeds [State] and declares its tracked
// attributes as [Value], [List], [Map] or [Set] fields:
//
//	type CounterState struct {
//	    reactive.State
//	    Count reactive.Value[int]
//	}
//
// Only fields of those slot types are tracked; everything else on the struct
// is invisible to the runtime. A bag does nothing until it is bound to an
// [Owner] (a render session) with [Bind]; unbound bags read and write like
// ordinary data and record no dependencies.
//
// # Granularity
//
// Reads through an accessor that observes one entry (List.Get, Map.Get,
// Set.Has, Value.Get) subscribe the currently rendering node to that entry's
// key. Reads that observe structure (Len, Values, Keys, membership scans)
// subscribe to a reserved iteration key. Writes compute the exact set of
// affected keys and mark every subscribed node dirty; any mutation that
// changes membership or order additionally dirties the iteration key.
//
// # Render safety
//
// Mutating bound state from inside an active render pass is a contract
// violation: the mutator panics with a usage error naming the attribute and
// leaves the data untouched. Mutations from other goroutines block until the
// render pass releases the session lock, so a render always observes a
// consistent dirty set.
package reactive

// Owner is the runtime a bound state bag reports to. It is implemented by
// core.Session. All methods are driven by the slots in this package; user
// code never calls them.
type Owner interface {
	// Enter synchronizes a read. It returns the id of the node currently
	// being rendered by this owner ("" when the caller is not inside a
	// render frame) and a release function. Enter blocks while another
	// goroutine holds the owner's lock.
	Enter() (node string, leave func())

	// EnterMutation synchronizes a write. It panics with a usage error
	// naming attr when invoked from inside this owner's active render pass.
	// The returned release function marks the given watcher nodes dirty
	// before unlocking.
	EnterMutation(attr string) (leave func(dirty []string))

	// Watch records that node is subscribed to deps, so the subscription can
	// be dropped deterministically when the node unmounts. Called while the
	// lock taken by Enter is held.
	Watch(node string, deps DepSet)

	// Live reports whether node is still present in the owner's element
	// store. Watcher entries for dead ids are pruned lazily.
	Live(node string) bool
}

// DepSet is one watcher set inside a slot. The owner calls Drop to prune a
// node's subscription when the node unmounts.
type DepSet interface {
	Drop(node string)
}
