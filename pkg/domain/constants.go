package domain

// TypeSceneInstance tags a node that embeds another scene by
// reference. The loader keeps these nodes collapsed in templates; they
// expand into the referenced subtree at instantiation time.
const TypeSceneInstance = "SceneInstance"

// Property keys carried by scene-instance nodes.
const (
	// PropSourcePath holds the referenced scene path.
	PropSourcePath = "source_path"
	// PropEditableChildren marks instances whose children may be
	// edited in the embedding scene.
	PropEditableChildren = "editable_children"
	// PropOverrides holds the address→value override map declared in
	// the embedding scene file.
	PropOverrides = "overrides"
)
