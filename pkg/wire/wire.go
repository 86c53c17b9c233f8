// Package wire defines the boundary types through which tree mutations leave
// the runtime: the transport-agnostic wire tree, the patch set produced by a
// render pass, and the sink that receives it.
//
// The runtime never talks to a network directly. It serializes elements into
// [Node] values, folds callable props into [CallbackRef] handles, and hands
// ordered [Patch] lists to a [PatchSink]. What the sink does with them (JSON
// over a websocket, a test recorder, nothing at all) is the host's business.
package wire

import (
	"encoding/json"
	"fmt"
)

// NodeID is the stable identity of one element in the rendered tree.
// IDs are path-encoded: a node's id embeds its ancestor chain, its position
// or explicit key within the parent, and the component that produced it.
type NodeID string

// Node is one element of the serialized tree. A Node is self-contained: its
// Children carry the full subtree, so a single Add patch describes everything
// a client needs to materialize a new branch.
type Node struct {
	ID        NodeID         `json:"id"`
	Component string         `json:"component"`
	Kind      string         `json:"kind"`
	Props     map[string]any `json:"props,omitempty"`
	Children  []*Node        `json:"children,omitempty"`
}

// CallbackRef is the opaque handle substituted for a callable prop during
// serialization. A client echoes it back in an event to invoke the callback.
type CallbackRef struct {
	Node NodeID `json:"node"`
	Prop string `json:"prop"`
}

// MarshalJSON wraps the ref in a sentinel object so a client can tell a
// callback handle apart from an ordinary map-valued prop.
func (r CallbackRef) MarshalJSON() ([]byte, error) {
	type ref struct {
		Node NodeID `json:"node"`
		Prop string `json:"prop"`
	}
	return json.Marshal(map[string]ref{"$callback": {Node: r.Node, Prop: r.Prop}})
}

// PatchKind identifies the structural operation a patch performs.
type PatchKind int

const (
	// PatchAdd introduces a new subtree. Tree carries the full serialized
	// branch rooted at Node.
	PatchAdd PatchKind = iota
	// PatchUpdate changes an existing node in place: Props holds only the
	// props whose values changed, ChildIDs the new child order when it
	// changed (nil otherwise).
	PatchUpdate
	// PatchRemove tears down the subtree rooted at Node.
	PatchRemove
)

func (k PatchKind) String() string {
	switch k {
	case PatchAdd:
		return "add"
	case PatchUpdate:
		return "update"
	case PatchRemove:
		return "remove"
	default:
		return fmt.Sprintf("PatchKind(%d)", int(k))
	}
}

// Patch is one structural mutation of the rendered tree.
type Patch struct {
	Kind     PatchKind      `json:"kind"`
	Node     NodeID         `json:"node"`
	Tree     *Node          `json:"tree,omitempty"`
	Props    map[string]any `json:"props,omitempty"`
	ChildIDs []NodeID       `json:"childIds,omitempty"`
}

// MarshalJSON emits the kind as its string form; integer tags are useless to
// a remote client.
func (p Patch) MarshalJSON() ([]byte, error) {
	type alias struct {
		Kind     string         `json:"kind"`
		Node     NodeID         `json:"node"`
		Tree     *Node          `json:"tree,omitempty"`
		Props    map[string]any `json:"props,omitempty"`
		ChildIDs []NodeID       `json:"childIds,omitempty"`
	}
	return json.Marshal(alias{
		Kind:     p.Kind.String(),
		Node:     p.Node,
		Tree:     p.Tree,
		Props:    p.Props,
		ChildIDs: p.ChildIDs,
	})
}

// ParsePatchKind is the inverse of [PatchKind.String].
func ParsePatchKind(s string) (PatchKind, error) {
	switch s {
	case "add":
		return PatchAdd, nil
	case "update":
		return PatchUpdate, nil
	case "remove":
		return PatchRemove, nil
	default:
		return 0, fmt.Errorf("wire: unknown patch kind %q", s)
	}
}

// UnmarshalJSON accepts the string kind emitted by MarshalJSON, so a Go
// client can decode the host's patch stream with the same types.
func (p *Patch) UnmarshalJSON(data []byte) error {
	var alias struct {
		Kind     string         `json:"kind"`
		Node     NodeID         `json:"node"`
		Tree     *Node          `json:"tree,omitempty"`
		Props    map[string]any `json:"props,omitempty"`
		ChildIDs []NodeID       `json:"childIds,omitempty"`
	}
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	kind, err := ParsePatchKind(alias.Kind)
	if err != nil {
		return err
	}
	*p = Patch{
		Kind:     kind,
		Node:     alias.Node,
		Tree:     alias.Tree,
		Props:    alias.Props,
		ChildIDs: alias.ChildIDs,
	}
	return nil
}

// PatchSink receives the ordered patch list produced by one render pass.
// It is the only channel through which tree mutations leave the runtime.
type PatchSink interface {
	ReceivePatches(patches []Patch) error
}

// SinkFunc adapts a function to the PatchSink interface.
type SinkFunc func(patches []Patch) error

// ReceivePatches calls f.
func (f SinkFunc) ReceivePatches(patches []Patch) error { return f(patches) }
