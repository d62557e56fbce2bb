package graph_test

import (
	"strings"
	"testing"

	"github.com/arbordev/arbor/internal/presentation/graph"
	"github.com/arbordev/arbor/pkg/scene"
)

func TestGenerateMermaid(t *testing.T) {
	g := scene.NewDependencyGraph()
	if err := g.AddEdge("levels/Level1.scene", "actors/Enemy.scene"); err != nil {
		t.Fatalf("AddEdge failed: %v", err)
	}
	if err := g.AddEdge("actors/Enemy.scene", "fx/Explosion.scene"); err != nil {
		t.Fatalf("AddEdge failed: %v", err)
	}

	out := graph.GenerateMermaid(g, nil)

	for _, want := range []string{
		"graph TD",
		`levels_Level1_scene["levels/Level1.scene"]`,
		"levels_Level1_scene --> actors_Enemy_scene",
		"actors_Enemy_scene --> fx_Explosion_scene",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestGenerateMermaid_MissingDependencies(t *testing.T) {
	g := scene.NewDependencyGraph()
	missing := func(path string) bool { return path != "actors/Ghost.scene" }
	if err := g.ReplaceEdges("Level.scene", []string{"actors/Ghost.scene"}, missing); err != nil {
		t.Fatalf("ReplaceEdges failed: %v", err)
	}

	out := graph.GenerateMermaid(g, nil)

	for _, want := range []string{
		"classDef missing",
		`actors_Ghost_scene["actors/Ghost.scene (missing)"]`,
		"Level_scene -.-> actors_Ghost_scene",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestGenerateMermaid_Overlay(t *testing.T) {
	g := scene.NewDependencyGraph()
	if err := g.AddEdge("Level.scene", "Enemy.scene"); err != nil {
		t.Fatalf("AddEdge failed: %v", err)
	}

	out := graph.GenerateMermaid(g, &graph.Overlay{
		ChangedScene: "Enemy.scene",
		ImpactSet:    []string{"Level.scene"},
	})

	for _, want := range []string{
		"class Enemy_scene changed;",
		"class Level_scene impacted;",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
