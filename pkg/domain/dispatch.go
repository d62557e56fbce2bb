package domain

import (
	"context"
	"fmt"
)

// Behavior is the capability-checked dispatch surface for external
// systems attached to a node (scripting runtime, physics body, audio
// emitter). The core never assumes which methods exist; it asks first.
type Behavior interface {
	// HasMethod reports whether the behavior exposes the named method.
	HasMethod(name string) bool

	// CallMethod invokes the named method. It is only called after
	// HasMethod returned true for the same name.
	CallMethod(ctx context.Context, name string, args []Value) (Value, error)
}

// AttachBehavior appends an external behavior to the node.
func (n *Node) AttachBehavior(b Behavior) {
	n.behaviors = append(n.behaviors, b)
}

// DetachBehaviors drops every attached behavior in this subtree. Used
// when an instance is reset for pooling.
func (n *Node) DetachBehaviors() {
	n.Walk(func(node *Node) {
		node.behaviors = nil
	})
}

// HasMethod reports whether any attached behavior exposes the method.
func (n *Node) HasMethod(name string) bool {
	for _, b := range n.behaviors {
		if b.HasMethod(name) {
			return true
		}
	}
	return false
}

// Call dispatches to the first attached behavior exposing the method.
func (n *Node) Call(ctx context.Context, name string, args ...Value) (Value, error) {
	for _, b := range n.behaviors {
		if b.HasMethod(name) {
			return b.CallMethod(ctx, name, args)
		}
	}
	return NilValue(), fmt.Errorf("%w: %q on node %q", ErrNoSuchMethod, name, n.Name)
}
