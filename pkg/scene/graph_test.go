package scene

import (
	"testing"

	"github.com/arbordev/arbor/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddEdge_RejectsCycle(t *testing.T) {
	g := NewDependencyGraph()

	require.NoError(t, g.AddEdge("A.scene", "B.scene"))

	err := g.AddEdge("B.scene", "A.scene")
	var cyc *domain.CircularDependencyError
	require.ErrorAs(t, err, &cyc)
	assert.Equal(t, cyc.Cycle[0], cyc.Cycle[len(cyc.Cycle)-1], "cycle must close on itself")

	// Rejection leaves the graph unchanged.
	assert.Empty(t, g.References("B.scene"))
	assert.Equal(t, []string{"A.scene"}, g.Dependents("B.scene"))
	assert.Equal(t, []string{"B.scene"}, g.References("A.scene"))
}

func TestAddEdge_RejectsSelfReference(t *testing.T) {
	g := NewDependencyGraph()
	var cyc *domain.CircularDependencyError
	require.ErrorAs(t, g.AddEdge("A.scene", "A.scene"), &cyc)
}

func TestAddEdge_RejectsTransitiveCycle(t *testing.T) {
	g := NewDependencyGraph()
	require.NoError(t, g.AddEdge("A.scene", "B.scene"))
	require.NoError(t, g.AddEdge("B.scene", "C.scene"))

	err := g.AddEdge("C.scene", "A.scene")
	var cyc *domain.CircularDependencyError
	require.ErrorAs(t, err, &cyc)
	assert.Equal(t, []string{"C.scene", "A.scene", "B.scene", "C.scene"}, cyc.Cycle)
	assert.Empty(t, g.References("C.scene"))
}

func TestImpactSet_TransitiveClosure(t *testing.T) {
	g := NewDependencyGraph()
	// Level -> Enemy -> Gun; Menu -> Enemy
	require.NoError(t, g.AddEdge("Level.scene", "Enemy.scene"))
	require.NoError(t, g.AddEdge("Menu.scene", "Enemy.scene"))
	require.NoError(t, g.AddEdge("Enemy.scene", "Gun.scene"))

	assert.Equal(t, []string{"Enemy.scene"}, g.Dependents("Gun.scene"))
	assert.Equal(t, []string{"Enemy.scene", "Level.scene", "Menu.scene"}, g.ImpactSet("Gun.scene"))
	assert.Empty(t, g.ImpactSet("Level.scene"))
}

func TestReplaceEdges_RestoresOnRejection(t *testing.T) {
	g := NewDependencyGraph()
	require.NoError(t, g.AddEdge("A.scene", "B.scene"))
	require.NoError(t, g.AddEdge("C.scene", "A.scene"))

	// Replacing C's references with one that closes a cycle must fail
	// and keep C's old edge intact.
	err := g.ReplaceEdges("B.scene", []string{"C.scene", "A.scene"}, nil)
	require.Error(t, err)
	assert.Empty(t, g.References("B.scene"))
	assert.Equal(t, []string{"A.scene"}, g.References("C.scene"))
}

func TestReplaceEdges_RecordsMissing(t *testing.T) {
	g := NewDependencyGraph()
	exists := func(p string) bool { return p != "Ghost.scene" }

	require.NoError(t, g.ReplaceEdges("A.scene", []string{"B.scene", "Ghost.scene"}, exists))
	assert.Equal(t, []string{"B.scene"}, g.References("A.scene"))

	missing := g.Missing()
	require.Len(t, missing, 1)
	assert.Equal(t, "A.scene", missing[0].From)
	assert.Equal(t, "Ghost.scene", missing[0].To)
}

func TestRemove(t *testing.T) {
	g := NewDependencyGraph()
	require.NoError(t, g.AddEdge("A.scene", "B.scene"))
	require.NoError(t, g.AddEdge("B.scene", "C.scene"))

	g.Remove("B.scene")
	assert.Empty(t, g.References("A.scene"))
	assert.Empty(t, g.Dependents("C.scene"))
	// A previously cyclic edge is now legal.
	require.NoError(t, g.AddEdge("C.scene", "A.scene"))
}
