package validator_test

import (
	"context"
	"testing"

	"github.com/arbordev/arbor/internal/validator"
	"github.com/arbordev/arbor/pkg/adapters/memory"
	"github.com/arbordev/arbor/pkg/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCache(files map[string]string) *scene.Cache {
	return scene.NewCache(memory.NewLoader(files), scene.NewDependencyGraph())
}

func TestValidateProject_Clean(t *testing.T) {
	cache := newCache(map[string]string{
		"Level.scene": `{"name":"Level","nodes":[{"name":"Level","type":"Node","children":[
			{"name":"E","type":"SceneInstance","source_path":"Enemy.scene"}]}]}`,
		"Enemy.scene": `{"name":"Enemy","nodes":[{"name":"Enemy","type":"Node2D"}]}`,
	})

	report, err := validator.ValidateProject(context.Background(), cache, []string{"Level.scene", "Enemy.scene"})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Scanned)
	assert.Empty(t, report.Issues)
	assert.NoError(t, report.Err())
}

func TestValidateProject_ReportsCyclesAndMissing(t *testing.T) {
	cache := newCache(map[string]string{
		"A.scene": `{"name":"A","nodes":[{"name":"A","type":"Node","children":[
			{"name":"B","type":"SceneInstance","source_path":"B.scene"}]}]}`,
		"B.scene": `{"name":"B","nodes":[{"name":"B","type":"Node","children":[
			{"name":"A","type":"SceneInstance","source_path":"A.scene"}]}]}`,
		"Level.scene": `{"name":"Level","nodes":[{"name":"Level","type":"Node","children":[
			{"name":"G","type":"SceneInstance","source_path":"Ghost.scene"}]}]}`,
		"Broken.scene": `{not json`,
	})

	report, err := validator.ValidateProject(context.Background(), cache,
		[]string{"A.scene", "B.scene", "Level.scene", "Broken.scene"})
	require.NoError(t, err)
	assert.Equal(t, 4, report.Scanned)
	require.Error(t, report.Err())

	joined := report.Err().Error()
	assert.Contains(t, joined, "circular dependency")
	assert.Contains(t, joined, "missing dependency: Level.scene -> Ghost.scene")
	assert.Contains(t, joined, "Broken.scene")
}
