package scene

import (
	"encoding/json"
	"testing"

	"github.com/arbordev/arbor/pkg/domain"
	"github.com/arbordev/arbor/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const enemyScene = `{
  "name": "Enemy",
  "nodes": [
    {
      "name": "Enemy",
      "type": "Node2D",
      "properties": {"health": 100, "speed": 2.5, "spawn": {"x": 0, "y": 16}},
      "groups": ["enemies"],
      "children": [
        {"name": "Sprite", "type": "Sprite", "properties": {"texture": "enemy.png"}}
      ]
    }
  ]
}`

const levelScene = `{
  "name": "Level",
  "nodes": [
    {
      "name": "Level",
      "type": "Node",
      "children": [
        {
          "name": "Boss",
          "type": "SceneInstance",
          "source_path": "Enemy.scene",
          "overrides": {"Enemy/health": 500},
          "editable_children": true
        }
      ]
    }
  ]
}`

func TestParse_BuildsTree(t *testing.T) {
	s, err := Parse("Enemy.scene", []byte(enemyScene), nil)
	require.NoError(t, err)

	assert.Equal(t, "Enemy", s.Name)
	assert.Equal(t, 2, s.NodeCount())

	root := s.FindNode("Enemy")
	require.NotNil(t, root)
	assert.True(t, root.InGroup("enemies"))

	health, ok := root.Property("health")
	require.True(t, ok)
	assert.Equal(t, int64(100), health.Int())

	speed, _ := root.Property("speed")
	assert.Equal(t, domain.KindFloat, speed.Kind())

	spawn, _ := root.Property("spawn")
	assert.Equal(t, domain.Vec2{X: 0, Y: 16}, spawn.Vec2())

	sprite := s.FindNode("Enemy/Sprite")
	require.NotNil(t, sprite)
	assert.Equal(t, "Sprite", sprite.Type)
}

func TestParse_RegistryDefaults(t *testing.T) {
	reg := schema.NewRegistry()
	reg.Register(schema.NodeType{
		Name: "Sprite",
		Fields: schema.Fields{
			{Name: "frame", Type: schema.Int(), Default: domain.IntValue(0)},
		},
		Signals: []string{"frame_changed"},
	})

	s, err := Parse("Enemy.scene", []byte(enemyScene), reg)
	require.NoError(t, err)

	sprite := s.FindNode("Enemy/Sprite")
	require.NotNil(t, sprite)
	frame, ok := sprite.Property("frame")
	require.True(t, ok, "registry default should apply")
	assert.Equal(t, int64(0), frame.Int())
	assert.True(t, sprite.HasSignal("frame_changed"))
}

func TestParse_Malformed(t *testing.T) {
	var loadErr *domain.LoadError

	_, err := Parse("Bad.scene", []byte("{not json"), nil)
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, "Bad.scene", loadErr.Path)

	_, err = Parse("Empty.scene", []byte(`{"name":"Empty","nodes":[]}`), nil)
	require.ErrorAs(t, err, &loadErr)
}

func TestScanMetadata(t *testing.T) {
	meta, err := ScanMetadata("Level.scene", []byte(levelScene))
	require.NoError(t, err)

	assert.Equal(t, "Level.scene", meta.Path)
	assert.Equal(t, []string{"Enemy.scene"}, meta.References)
	assert.Equal(t, 2, meta.Complexity)
}

func TestEncode_RoundTrip(t *testing.T) {
	s, err := Parse("Level.scene", []byte(levelScene), nil)
	require.NoError(t, err)

	raw, err := s.Encode()
	require.NoError(t, err)

	back, err := Parse("Level.scene", raw, nil)
	require.NoError(t, err)

	boss := back.FindNode("Level/Boss")
	require.NotNil(t, boss)
	assert.Equal(t, domain.TypeSceneInstance, boss.Type)

	src, _ := boss.Property(domain.PropSourcePath)
	assert.Equal(t, "Enemy.scene", src.String())
	editable, _ := boss.Property(domain.PropEditableChildren)
	assert.True(t, editable.Bool())
	overrides, _ := boss.Property(domain.PropOverrides)
	assert.Equal(t, int64(500), overrides.Map()["Enemy/health"].Int())

	// The encoded form keeps instance fields at record level, not
	// inside the property bag.
	var f File
	require.NoError(t, json.Unmarshal(raw, &f))
	boss2 := f.Nodes[0].Children[0]
	assert.Equal(t, "Enemy.scene", boss2.SourcePath)
	assert.True(t, boss2.EditableChildren)
	assert.Nil(t, boss2.Properties)
}
