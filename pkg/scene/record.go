package scene

import (
	"encoding/json"
	"fmt"

	"github.com/arbordev/arbor/pkg/domain"
	"github.com/arbordev/arbor/pkg/schema"
	"github.com/mitchellh/mapstructure"
)

// Record is the wire representation of one node in a scene file. A
// record of type SceneInstance additionally carries the reference
// fields (source path, overrides, editable children).
type Record struct {
	Name       string         `json:"name" mapstructure:"name"`
	Type       string         `json:"type" mapstructure:"type"`
	Properties map[string]any `json:"properties,omitempty" mapstructure:"properties"`
	Children   []Record       `json:"children,omitempty" mapstructure:"children"`
	Groups     []string       `json:"groups,omitempty" mapstructure:"groups"`

	// Scene-instance fields (present only when Type == SceneInstance).
	SourcePath       string         `json:"source_path,omitempty" mapstructure:"source_path"`
	Overrides        map[string]any `json:"overrides,omitempty" mapstructure:"overrides"`
	EditableChildren bool           `json:"editable_children,omitempty" mapstructure:"editable_children"`
	InstanceID       string         `json:"instance_id,omitempty" mapstructure:"instance_id"`
}

// File is the top-level shape of a serialized scene.
type File struct {
	Name  string   `json:"name" mapstructure:"name"`
	Nodes []Record `json:"nodes" mapstructure:"nodes"`
}

// decodeFile parses raw scene bytes. Decoding goes through a generic
// map first and then mapstructure, so loaders feeding YAML-decoded or
// frontmatter-style maps share the same path as plain JSON files.
func decodeFile(raw []byte) (*File, error) {
	var generic map[string]any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("invalid scene document: %w", err)
	}

	var f File
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  &f,
		TagName: "mapstructure",
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(generic); err != nil {
		return nil, fmt.Errorf("invalid scene record: %w", err)
	}
	if len(f.Nodes) == 0 {
		return nil, fmt.Errorf("scene has no root nodes")
	}
	return &f, nil
}

// countRecords returns the total record count, the coarse complexity
// score of a scene.
func countRecords(records []Record) int {
	n := 0
	for i := range records {
		n += 1 + countRecords(records[i].Children)
	}
	return n
}

// collectReferences walks records and returns the referenced scene
// paths in file order, duplicates removed.
func collectReferences(records []Record) []string {
	var refs []string
	seen := make(map[string]struct{})
	var walk func([]Record)
	walk = func(rs []Record) {
		for i := range rs {
			r := &rs[i]
			if r.Type == domain.TypeSceneInstance && r.SourcePath != "" {
				if _, ok := seen[r.SourcePath]; !ok {
					seen[r.SourcePath] = struct{}{}
					refs = append(refs, r.SourcePath)
				}
			}
			walk(r.Children)
		}
	}
	walk(records)
	return refs
}

// buildNode materializes a record subtree into nodes, instantiating
// through the registry so registered types get their defaults and
// declared signals. SceneInstance records stay collapsed: the reference
// fields land in the node's property bag and expansion happens at
// instantiation time.
func buildNode(r *Record, reg *schema.Registry) *domain.Node {
	var n *domain.Node
	if reg != nil {
		n = reg.New(r.Name, r.Type)
	} else {
		n = domain.NewNode(r.Name, r.Type)
	}
	for k, v := range r.Properties {
		n.SetProperty(k, domain.FromAny(v))
	}
	for _, g := range r.Groups {
		n.AddToGroup(g)
	}
	if r.Type == domain.TypeSceneInstance {
		n.SetProperty(domain.PropSourcePath, domain.StringValue(r.SourcePath))
		n.SetProperty(domain.PropEditableChildren, domain.BoolValue(r.EditableChildren))
		if len(r.Overrides) > 0 {
			// Built key by key: override maps must never be sniffed
			// into vec2/color shapes.
			ov := make(map[string]domain.Value, len(r.Overrides))
			for k, raw := range r.Overrides {
				ov[k] = domain.FromAny(raw)
			}
			n.SetProperty(domain.PropOverrides, domain.MapValue(ov))
		}
	}
	for i := range r.Children {
		n.AddChild(buildNode(&r.Children[i], reg))
	}
	return n
}

// NodeToRecord converts a node subtree back into its wire form,
// preserving scene-instance reference fields.
func NodeToRecord(n *domain.Node) Record {
	r := Record{
		Name:       n.Name,
		Type:       n.Type,
		Properties: make(map[string]any),
	}
	for _, name := range n.PropertyNames() {
		v, _ := n.Property(name)
		if n.Type == domain.TypeSceneInstance {
			switch name {
			case domain.PropSourcePath, domain.PropEditableChildren, domain.PropOverrides:
				continue
			}
		}
		r.Properties[name] = v.Interface()
	}
	if len(r.Properties) == 0 {
		r.Properties = nil
	}
	if n.Type == domain.TypeSceneInstance {
		if v, ok := n.Property(domain.PropSourcePath); ok {
			r.SourcePath = v.String()
		}
		if v, ok := n.Property(domain.PropEditableChildren); ok {
			r.EditableChildren = v.Bool()
		}
		if v, ok := n.Property(domain.PropOverrides); ok {
			r.Overrides = make(map[string]any, len(v.Map()))
			for k, ov := range v.Map() {
				r.Overrides[k] = ov.Interface()
			}
		}
	}
	for _, c := range n.Children() {
		r.Children = append(r.Children, NodeToRecord(c))
	}
	return r
}
