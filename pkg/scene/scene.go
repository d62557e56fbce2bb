// Package scene parses serialized scene files into cached templates,
// scans their dependency metadata, and tracks the scene-to-scene
// reference graph.
package scene

import (
	"encoding/json"
	"strings"

	"github.com/arbordev/arbor/pkg/domain"
	"github.com/arbordev/arbor/pkg/schema"
)

// Scene is an in-memory template: a named, owned root set of nodes
// identified by a stable path. Templates are shared by every instance
// cloned from them and must never be mutated after population.
type Scene struct {
	Name string
	Path string

	roots []*domain.Node
	meta  *domain.SceneMetadata
}

// Parse materializes a scene from raw file bytes. The registry may be
// nil, in which case all records instantiate as plain nodes.
func Parse(path string, raw []byte, reg *schema.Registry) (*Scene, error) {
	f, err := decodeFile(raw)
	if err != nil {
		return nil, &domain.LoadError{Path: path, Reason: err}
	}
	s := &Scene{Name: f.Name, Path: path}
	if s.Name == "" {
		s.Name = baseName(path)
	}
	for i := range f.Nodes {
		s.roots = append(s.roots, buildNode(&f.Nodes[i], reg))
	}
	return s, nil
}

// ScanMetadata computes dependency metadata from raw bytes without
// materializing any node tree.
func ScanMetadata(path string, raw []byte) (*domain.SceneMetadata, error) {
	f, err := decodeFile(raw)
	if err != nil {
		return nil, &domain.LoadError{Path: path, Reason: err}
	}
	return &domain.SceneMetadata{
		Path:       path,
		References: collectReferences(f.Nodes),
		Complexity: countRecords(f.Nodes),
	}, nil
}

// Roots returns the owned root node set.
func (s *Scene) Roots() []*domain.Node { return s.roots }

// Metadata returns the scanned metadata, if the cache attached it.
func (s *Scene) Metadata() *domain.SceneMetadata { return s.meta }

// FindNode resolves "Root/Child/Grandchild" across the root set.
func (s *Scene) FindNode(path string) *domain.Node {
	first, rest, _ := strings.Cut(path, "/")
	for _, r := range s.roots {
		if r.Name == first {
			return r.FindNode(rest)
		}
	}
	return nil
}

// NodeCount returns the total node count across all roots.
func (s *Scene) NodeCount() int {
	n := 0
	for _, r := range s.roots {
		n += r.CountNodes()
	}
	return n
}

// CloneRoots deep-copies the root set with fresh node identities.
func (s *Scene) CloneRoots() []*domain.Node {
	out := make([]*domain.Node, len(s.roots))
	for i, r := range s.roots {
		out[i] = r.Clone()
	}
	return out
}

// Encode serializes the scene back to its wire form.
func (s *Scene) Encode() ([]byte, error) {
	f := File{Name: s.Name}
	for _, r := range s.roots {
		f.Nodes = append(f.Nodes, NodeToRecord(r))
	}
	return json.MarshalIndent(f, "", "  ")
}

func baseName(path string) string {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		path = path[i+1:]
	}
	if i := strings.LastIndexByte(path, '.'); i > 0 {
		path = path[:i]
	}
	return path
}
