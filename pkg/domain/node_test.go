package domain_test

import (
	"context"
	"testing"

	"github.com/arbordev/arbor/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildSubtree() (*domain.Node, *domain.Node, *domain.Node) {
	root := domain.NewNode("Level", "Node")
	player := domain.NewNode("Player", "Node2D")
	sprite := domain.NewNode("Sprite", "Sprite")
	root.AddChild(player)
	player.AddChild(sprite)
	return root, player, sprite
}

func TestAddChild_SingleParentInvariant(t *testing.T) {
	a := domain.NewNode("A", "Node")
	b := domain.NewNode("B", "Node")
	child := domain.NewNode("Child", "Node")

	a.AddChild(child)
	assert.Same(t, a, child.Parent)
	assert.Len(t, a.Children(), 1)

	// Re-parenting must detach from the old parent first.
	b.AddChild(child)
	assert.Same(t, b, child.Parent)
	assert.Empty(t, a.Children())
	assert.Len(t, b.Children(), 1)
}

func TestFindNode_Paths(t *testing.T) {
	root, player, sprite := buildSubtree()
	tree := domain.NewTree(root, domain.TreeHooks{})

	assert.Same(t, sprite, root.FindNode("Player/Sprite"))
	assert.Same(t, player, root.FindNode("Player"))
	assert.Nil(t, root.FindNode("Player/Missing"))

	// Absolute lookup goes through the tree root.
	assert.Same(t, sprite, tree.FindNode("/Level/Player/Sprite"))
	assert.Same(t, sprite, sprite.FindNode("/Level/Player/Sprite"))
	assert.Equal(t, "/Level/Player/Sprite", sprite.Path())
}

func TestTreeNotifications_Order(t *testing.T) {
	var events []string
	hooks := domain.TreeHooks{
		OnEnterTree: func(n *domain.Node) { events = append(events, "enter:"+n.Name) },
		OnExitTree:  func(n *domain.Node) { events = append(events, "exit:"+n.Name) },
		OnReady:     func(n *domain.Node) { events = append(events, "ready:"+n.Name) },
	}

	root := domain.NewNode("Root", "Node")
	domain.NewTree(root, hooks)
	events = nil

	parent := domain.NewNode("Parent", "Node")
	child := domain.NewNode("Child", "Node")
	parent.AddChild(child) // detached, no events yet
	require.Empty(t, events)

	root.AddChild(parent)
	// Enter is parent-first; ready fires per node after its subtree entered.
	assert.Equal(t, []string{"enter:Parent", "enter:Child", "ready:Child", "ready:Parent"}, events)

	events = nil
	root.RemoveChild(parent)
	// Exit is child-first and precedes detachment.
	assert.Equal(t, []string{"exit:Child", "exit:Parent"}, events)
	assert.Nil(t, parent.Parent)
	assert.False(t, parent.InTree())
}

func TestGroups(t *testing.T) {
	root, player, sprite := buildSubtree()
	player.AddToGroup("enemies")
	sprite.AddToGroup("enemies")

	assert.True(t, player.InGroup("enemies"))
	assert.Len(t, root.NodesInGroup("enemies"), 2)

	player.RemoveFromGroup("enemies")
	assert.False(t, player.InGroup("enemies"))
	assert.Len(t, root.NodesInGroup("enemies"), 1)
}

func TestSignals(t *testing.T) {
	n := domain.NewNode("Button", "Button")

	_, err := n.Connect("pressed", func(...domain.Value) {})
	assert.ErrorIs(t, err, domain.ErrNoSuchSignal)

	n.DeclareSignal("pressed")
	var got []int64
	id, err := n.Connect("pressed", func(args ...domain.Value) {
		got = append(got, args[0].Int())
	})
	require.NoError(t, err)

	require.NoError(t, n.Emit("pressed", domain.IntValue(7)))
	assert.Equal(t, []int64{7}, got)

	n.Disconnect("pressed", id)
	require.NoError(t, n.Emit("pressed", domain.IntValue(8)))
	assert.Equal(t, []int64{7}, got, "disconnected handler must not fire")
}

func TestClone_FreshIdentities(t *testing.T) {
	root, player, _ := buildSubtree()
	player.SetProperty("health", domain.IntValue(100))
	player.AddToGroup("enemies")
	player.DeclareSignal("died")

	clone := root.Clone()
	require.Equal(t, 3, clone.CountNodes())
	assert.NotEqual(t, root.ID, clone.ID)

	cp := clone.Child("Player")
	require.NotNil(t, cp)
	assert.NotEqual(t, player.ID, cp.ID)
	assert.True(t, cp.InGroup("enemies"))
	assert.True(t, cp.HasSignal("died"))

	// Mutating the clone never reaches the source.
	cp.SetProperty("health", domain.IntValue(1))
	v, _ := player.Property("health")
	assert.Equal(t, int64(100), v.Int())
}

type fakeBehavior struct {
	methods map[string]domain.Value
}

func (f *fakeBehavior) HasMethod(name string) bool {
	_, ok := f.methods[name]
	return ok
}

func (f *fakeBehavior) CallMethod(_ context.Context, name string, _ []domain.Value) (domain.Value, error) {
	return f.methods[name], nil
}

func TestBehaviorDispatch(t *testing.T) {
	n := domain.NewNode("Player", "Node2D")
	n.AttachBehavior(&fakeBehavior{methods: map[string]domain.Value{
		"take_damage": domain.IntValue(42),
	}})

	assert.True(t, n.HasMethod("take_damage"))
	assert.False(t, n.HasMethod("fly"))

	v, err := n.Call(context.Background(), "take_damage")
	require.NoError(t, err)
	assert.Equal(t, int64(42), v.Int())

	_, err = n.Call(context.Background(), "fly")
	assert.ErrorIs(t, err, domain.ErrNoSuchMethod)
}
