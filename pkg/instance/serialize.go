package instance

import (
	"context"
	"fmt"

	"github.com/arbordev/arbor/pkg/domain"
	"github.com/arbordev/arbor/pkg/scene"
)

// ToDict converts the instance into a JSON-serializable map preserving
// source_path, overrides, editable_children and instance_id. The cloned
// subtree itself is not serialized; it is reproducible from the source
// scene plus the override map.
func (i *Instance) ToDict() map[string]any {
	overrides := make(map[string]any, len(i.overrides))
	for addr, v := range i.overrides {
		overrides[addr] = v.Interface()
	}
	return map[string]any{
		"name":              i.name,
		"type":              domain.TypeSceneInstance,
		"instance_id":       i.id,
		"source_path":       i.sourcePath,
		"overrides":         overrides,
		"editable_children": i.editable,
	}
}

// FromDict reconstructs an instance from its ToDict form: the source
// scene is instanced through the cache and the recorded overrides are
// re-applied. The serialized instance id is preserved.
func FromDict(ctx context.Context, cache *scene.Cache, data map[string]any) (*Instance, error) {
	src, _ := data["source_path"].(string)
	if src == "" {
		return nil, fmt.Errorf("instance data has no source_path")
	}
	name, _ := data["name"].(string)

	inst, err := New(ctx, cache, src, name)
	if err != nil {
		return nil, err
	}
	if id, ok := data["instance_id"].(string); ok && id != "" {
		inst.id = id
	}
	if editable, ok := data["editable_children"].(bool); ok {
		inst.editable = editable
	}
	if raw, ok := data["overrides"].(map[string]any); ok {
		overrides := make(map[string]domain.Value, len(raw))
		for addr, v := range raw {
			overrides[addr] = domain.FromAny(v)
		}
		inst.MergeOverrides(overrides)
	}
	return inst, nil
}
