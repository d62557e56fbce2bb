package domain

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// TreeHooks defines callbacks for tree lifecycle observability.
// External collaborators (rendering, physics, audio, scripting) attach
// here and react to nodes entering and leaving the live tree.
type TreeHooks struct {
	OnEnterTree func(*Node)
	OnExitTree  func(*Node)
	OnReady     func(*Node)
}

// Tree is a live node tree. Nodes attached under its root receive
// enter-tree, ready and exit-tree notifications. A single logical owner
// goroutine mutates a Tree; see the manager package for the marshaling
// rules.
type Tree struct {
	root  *Node
	hooks TreeHooks
}

// NewTree creates a live tree with the given root node. The root itself
// receives enter-tree and ready immediately.
func NewTree(root *Node, hooks TreeHooks) *Tree {
	t := &Tree{root: root, hooks: hooks}
	root.enterTree(t)
	return t
}

// Root returns the tree's root node.
func (t *Tree) Root() *Node { return t.root }

// FindNode resolves an absolute path like "/Level/Player/Sprite".
// The leading slash is optional; resolution always starts at the root,
// whose name is the first segment.
func (t *Tree) FindNode(path string) *Node {
	path = strings.TrimPrefix(path, "/")
	if path == "" {
		return nil
	}
	first, rest, _ := strings.Cut(path, "/")
	if t.root.Name != first {
		return nil
	}
	if rest == "" {
		return t.root
	}
	return t.root.FindNode(rest)
}

type signalConn struct {
	id int64
	fn func(args ...Value)
}

// Node is the base element of the scene hierarchy. The parent's child
// slice exclusively owns children; Parent is a non-owning back-reference
// used for lookup only, never for lifetime control.
type Node struct {
	ID   string
	Name string
	Type string

	Parent   *Node
	children []*Node

	props     map[string]Value
	groups    map[string]struct{}
	signals   map[string][]signalConn
	behaviors []Behavior

	tree   *Tree
	ready  bool
	nextID int64
}

// NewNode creates a detached node with a fresh identity.
func NewNode(name, typ string) *Node {
	return &Node{
		ID:    uuid.NewString(),
		Name:  name,
		Type:  typ,
		props: make(map[string]Value),
	}
}

// InTree reports whether the node is attached to a live tree.
func (n *Node) InTree() bool { return n.tree != nil }

// Children returns the ordered child list. Callers must not mutate it.
func (n *Node) Children() []*Node { return n.children }

// AddChild appends child to this node, transferring ownership. If the
// child already has a parent it is removed from it first, so a node has
// at most one parent at any time. When this node is part of a live
// tree, the whole attached subtree receives enter-tree notifications
// (parent first), followed by ready (children first, once per node).
func (n *Node) AddChild(child *Node) {
	if child == nil || child == n {
		return
	}
	if child.Parent != nil {
		child.Parent.RemoveChild(child)
	}
	child.Parent = n
	n.children = append(n.children, child)
	if n.tree != nil {
		child.enterTree(n.tree)
	}
}

// RemoveChild detaches child if present. Exit-tree notifications fire
// child-first, before the structural detachment.
func (n *Node) RemoveChild(child *Node) {
	idx := -1
	for i, c := range n.children {
		if c == child {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}
	if child.tree != nil {
		child.exitTree()
	}
	child.Parent = nil
	n.children = append(n.children[:idx], n.children[idx+1:]...)
}

// Detach removes the node from its parent, if any.
func (n *Node) Detach() {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

func (n *Node) enterTree(t *Tree) {
	n.tree = t
	if t.hooks.OnEnterTree != nil {
		t.hooks.OnEnterTree(n)
	}
	for _, c := range n.children {
		c.enterTree(t)
	}
	if !n.ready {
		n.ready = true
		if t.hooks.OnReady != nil {
			t.hooks.OnReady(n)
		}
	}
}

func (n *Node) exitTree() {
	for _, c := range n.children {
		c.exitTree()
	}
	if n.tree != nil && n.tree.hooks.OnExitTree != nil {
		n.tree.hooks.OnExitTree(n)
	}
	n.tree = nil
}

// Child returns a direct child by name, or nil.
func (n *Node) Child(name string) *Node {
	for _, c := range n.children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// FindNode resolves a slash-separated path relative to this node
// (e.g. "Body/Sprite"). An empty path resolves to the node itself. An
// absolute path (leading "/") is resolved from the tree root and fails
// with nil when the node is detached.
func (n *Node) FindNode(path string) *Node {
	if strings.HasPrefix(path, "/") {
		if n.tree == nil {
			return nil
		}
		return n.tree.FindNode(path)
	}
	if path == "" {
		return n
	}
	first, rest, _ := strings.Cut(path, "/")
	child := n.Child(first)
	if child == nil {
		return nil
	}
	return child.FindNode(rest)
}

// Path returns the absolute path from the root to this node.
func (n *Node) Path() string {
	if n.Parent == nil {
		return "/" + n.Name
	}
	return n.Parent.Path() + "/" + n.Name
}

// Property returns the named property and whether it is set.
func (n *Node) Property(name string) (Value, bool) {
	v, ok := n.props[name]
	return v, ok
}

// SetProperty stores a property value on this node.
func (n *Node) SetProperty(name string, v Value) {
	n.props[name] = v
}

// PropertyNames returns the set of property keys in unspecified order.
func (n *Node) PropertyNames() []string {
	names := make([]string, 0, len(n.props))
	for k := range n.props {
		names = append(names, k)
	}
	return names
}

// AddToGroup tags the node with a group name.
func (n *Node) AddToGroup(group string) {
	if n.groups == nil {
		n.groups = make(map[string]struct{})
	}
	n.groups[group] = struct{}{}
}

// RemoveFromGroup removes the tag if present.
func (n *Node) RemoveFromGroup(group string) {
	delete(n.groups, group)
}

// InGroup reports group membership.
func (n *Node) InGroup(group string) bool {
	_, ok := n.groups[group]
	return ok
}

// NodesInGroup collects every node in this subtree tagged with group.
func (n *Node) NodesInGroup(group string) []*Node {
	var out []*Node
	n.Walk(func(node *Node) {
		if node.InGroup(group) {
			out = append(out, node)
		}
	})
	return out
}

// Walk visits the subtree depth-first, parent before children.
func (n *Node) Walk(fn func(*Node)) {
	fn(n)
	for _, c := range n.children {
		c.Walk(fn)
	}
}

// CountNodes returns the number of nodes in this subtree, self
// included. It serves as the per-instance memory proxy.
func (n *Node) CountNodes() int {
	count := 1
	for _, c := range n.children {
		count += c.CountNodes()
	}
	return count
}

// DeclareSignal registers a signal name on the node. Declaring an
// existing signal is a no-op.
func (n *Node) DeclareSignal(name string) {
	if n.signals == nil {
		n.signals = make(map[string][]signalConn)
	}
	if _, ok := n.signals[name]; !ok {
		n.signals[name] = nil
	}
}

// HasSignal reports whether the signal is declared.
func (n *Node) HasSignal(name string) bool {
	_, ok := n.signals[name]
	return ok
}

// Connect attaches a handler to a declared signal and returns a
// connection id usable with Disconnect.
func (n *Node) Connect(signal string, fn func(args ...Value)) (int64, error) {
	if !n.HasSignal(signal) {
		return 0, fmt.Errorf("%w: %q on node %q", ErrNoSuchSignal, signal, n.Name)
	}
	n.nextID++
	id := n.nextID
	n.signals[signal] = append(n.signals[signal], signalConn{id: id, fn: fn})
	return id, nil
}

// Disconnect removes a single connection by id.
func (n *Node) Disconnect(signal string, id int64) {
	conns := n.signals[signal]
	for i, c := range conns {
		if c.id == id {
			n.signals[signal] = append(conns[:i], conns[i+1:]...)
			return
		}
	}
}

// DisconnectAll drops every connection on every signal in this subtree.
// Declarations survive; only handlers are severed. Used when an
// instance is reset for pooling.
func (n *Node) DisconnectAll() {
	n.Walk(func(node *Node) {
		for name := range node.signals {
			node.signals[name] = nil
		}
	})
}

// Emit invokes every handler connected to the signal, in connection
// order.
func (n *Node) Emit(signal string, args ...Value) error {
	conns, ok := n.signals[signal]
	if !ok {
		return fmt.Errorf("%w: %q on node %q", ErrNoSuchSignal, signal, n.Name)
	}
	for _, c := range conns {
		c.fn(args...)
	}
	return nil
}

// Clone deep-copies the subtree rooted at this node. Every node gets a
// fresh identity; structure, types, names, groups, declared signals and
// property values are preserved. Signal connections, attached behaviors
// and tree membership do not carry over.
func (n *Node) Clone() *Node {
	out := NewNode(n.Name, n.Type)
	for k, v := range n.props {
		out.props[k] = v.Clone()
	}
	for g := range n.groups {
		out.AddToGroup(g)
	}
	for name := range n.signals {
		out.DeclareSignal(name)
	}
	for _, c := range n.children {
		out.AddChild(c.Clone())
	}
	return out
}
