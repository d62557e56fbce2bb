// Package instance implements live scene instances: deep clones of
// cached templates carrying per-instance property overrides, variant
// lineage, and pooling state.
package instance

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/arbordev/arbor/pkg/domain"
	"github.com/arbordev/arbor/pkg/scene"
	"github.com/google/uuid"
)

// State tracks the lifecycle of an instance.
type State uint8

const (
	StateUnloaded State = iota
	StateLoading
	StateLoaded
	StateActive
	StatePooled
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateActive:
		return "active"
	case StatePooled:
		return "pooled"
	case StateDestroyed:
		return "destroyed"
	}
	return "unknown"
}

// Instance is a live clone of a cached scene template. The instance
// owns a container root node whose children are the cloned scene
// roots; the override map records every per-instance customization and
// never touches the template.
type Instance struct {
	id            string
	name          string
	sourcePath    string
	parentVariant string

	root      *domain.Node
	overrides map[string]domain.Value
	editable  bool
	fromPool  bool
	state     State

	cache *scene.Cache
}

// buildStack guards against runtime instancing recursion. The static
// dependency graph can miss a cycle introduced by a concurrent edit;
// the stack catches it while the subtree is under construction.
type buildStack struct {
	paths []string
}

func (b *buildStack) push(path string) error {
	for i, p := range b.paths {
		if p == path {
			cycle := append(append([]string(nil), b.paths[i:]...), path)
			return &domain.CircularDependencyError{Cycle: cycle}
		}
	}
	b.paths = append(b.paths, path)
	return nil
}

func (b *buildStack) pop() {
	b.paths = b.paths[:len(b.paths)-1]
}

// New creates an instance of the scene at sourcePath: the template is
// requested from the cache and deep-cloned with fresh node identities.
// Embedded scene-instance nodes expand recursively. Fails with
// SourceNotFoundError when the path does not resolve and with
// CircularDependencyError on static or runtime recursion.
func New(ctx context.Context, cache *scene.Cache, sourcePath, name string) (*Instance, error) {
	return build(ctx, cache, sourcePath, name, &buildStack{})
}

func build(ctx context.Context, cache *scene.Cache, sourcePath, name string, stack *buildStack) (*Instance, error) {
	inst := &Instance{
		id:         uuid.NewString(),
		name:       name,
		sourcePath: sourcePath,
		overrides:  make(map[string]domain.Value),
		state:      StateLoading,
		cache:      cache,
	}
	if inst.name == "" {
		inst.name = domain.TypeSceneInstance
	}

	root := domain.NewNode(inst.name, domain.TypeSceneInstance)
	if err := populate(ctx, cache, root, sourcePath, stack); err != nil {
		inst.state = StateUnloaded
		return nil, err
	}
	inst.root = root
	inst.state = StateLoaded
	return inst, nil
}

// populate clones the template's roots under container and expands
// nested scene-instance nodes.
func populate(ctx context.Context, cache *scene.Cache, container *domain.Node, sourcePath string, stack *buildStack) error {
	if err := stack.push(sourcePath); err != nil {
		return err
	}
	defer stack.pop()

	tmpl, err := cache.Load(ctx, sourcePath)
	if err != nil {
		return err
	}
	for _, root := range tmpl.CloneRoots() {
		container.AddChild(root)
		if err := expandEmbedded(ctx, cache, root, stack); err != nil {
			return err
		}
	}
	return nil
}

// expandEmbedded walks a freshly cloned subtree and materializes every
// collapsed scene-instance node. A missing embedded source degrades to
// a placeholder (the node keeps its reference properties, no children);
// a recursive reference is fatal.
func expandEmbedded(ctx context.Context, cache *scene.Cache, n *domain.Node, stack *buildStack) error {
	if n.Type == domain.TypeSceneInstance {
		src, ok := n.Property(domain.PropSourcePath)
		if !ok || src.String() == "" {
			return nil
		}
		if err := populate(ctx, cache, n, src.String(), stack); err != nil {
			var notFound *domain.SourceNotFoundError
			if errors.As(err, &notFound) {
				return nil // placeholder: degrade, do not abort the load
			}
			return err
		}
		if ov, ok := n.Property(domain.PropOverrides); ok {
			for _, addr := range sortedAddresses(ov.Map()) {
				applyAt(n, addr, ov.Map()[addr])
			}
		}
		return nil
	}
	for _, c := range n.Children() {
		if err := expandEmbedded(ctx, cache, c, stack); err != nil {
			return err
		}
	}
	return nil
}

// ID returns the stable unique id of this instance.
func (i *Instance) ID() string { return i.id }

// Name returns the instance name (the container root's name).
func (i *Instance) Name() string { return i.name }

// SourcePath returns the scene path this instance was cloned from, or
// "" after BreakInstance.
func (i *Instance) SourcePath() string { return i.sourcePath }

// Root returns the owned container node. Its children are the cloned
// scene roots.
func (i *Instance) Root() *domain.Node { return i.root }

// State returns the lifecycle state.
func (i *Instance) State() State { return i.state }

// ParentVariant returns the id of the instance this variant was derived
// from, or "".
func (i *Instance) ParentVariant() string { return i.parentVariant }

// EditableChildren reports whether children may be edited in the
// embedding scene.
func (i *Instance) EditableChildren() bool { return i.editable }

// SetEditableChildren toggles the editable-children flag.
func (i *Instance) SetEditableChildren(v bool) { i.editable = v }

// FromPool reports whether the instance was checked out of a pool.
func (i *Instance) FromPool() bool { return i.fromPool }

// SetName renames the instance and its container root.
func (i *Instance) SetName(name string) {
	i.name = name
	i.root.Name = name
}

// Activate marks the instance live.
func (i *Instance) Activate() { i.state = StateActive }

// MarkPooled marks the instance as resting in a pool.
func (i *Instance) MarkPooled(fromPool bool) {
	i.state = StatePooled
	i.fromPool = fromPool
}

// MarkDestroyed finalizes the instance.
func (i *Instance) MarkDestroyed() { i.state = StateDestroyed }

// NodeCount is the per-instance memory proxy: total nodes in the
// cloned subtree, container excluded.
func (i *Instance) NodeCount() int {
	if i.root == nil {
		return 0
	}
	return i.root.CountNodes() - 1
}

// ApplyPropertyOverride records an override and immediately re-applies
// it onto the live clone. The address is a slash path whose last
// segment is the property name, e.g. "Enemy/health" or
// "Enemy/Sprite/texture". The cached template is never touched. An
// unresolvable address is still recorded (it may resolve after a
// reload) but reported as OverrideTargetError.
func (i *Instance) ApplyPropertyOverride(address string, value domain.Value) error {
	i.overrides[address] = value
	if !applyAt(i.root, address, value) {
		return &domain.OverrideTargetError{Address: address}
	}
	return nil
}

// applyAt resolves address relative to container and sets the property.
func applyAt(container *domain.Node, address string, value domain.Value) bool {
	nodePath, prop := splitAddress(address)
	target := container
	if nodePath != "" {
		target = container.FindNode(nodePath)
	}
	if target == nil {
		return false
	}
	target.SetProperty(prop, value.Clone())
	return true
}

func splitAddress(address string) (nodePath, prop string) {
	idx := strings.LastIndexByte(address, '/')
	if idx < 0 {
		return "", address
	}
	return address[:idx], address[idx+1:]
}

// OverrideDiff returns a copy of the full override map.
func (i *Instance) OverrideDiff() map[string]domain.Value {
	out := make(map[string]domain.Value, len(i.overrides))
	for k, v := range i.overrides {
		out[k] = v.Clone()
	}
	return out
}

// MergeOverrides records and applies additional overrides on top of the
// existing map.
func (i *Instance) MergeOverrides(overrides map[string]domain.Value) {
	for _, addr := range sortedAddresses(overrides) {
		i.overrides[addr] = overrides[addr]
		applyAt(i.root, addr, overrides[addr])
	}
}

// ClearOverrides drops every recorded override. Live properties are not
// reverted; callers reload afterwards when pristine state matters.
func (i *Instance) ClearOverrides() {
	i.overrides = make(map[string]domain.Value)
}

// CreateVariant produces a new instance of the same source scene,
// seeded with a copy of this instance's overrides and recording this
// instance as its parent variant. Edits on the variant never affect the
// parent.
func (i *Instance) CreateVariant(ctx context.Context, name string) (*Instance, error) {
	if i.sourcePath == "" {
		return nil, fmt.Errorf("cannot derive a variant from a broken instance %q", i.name)
	}
	v, err := New(ctx, i.cache, i.sourcePath, name)
	if err != nil {
		return nil, err
	}
	v.parentVariant = i.id
	v.editable = i.editable
	v.MergeOverrides(i.OverrideDiff())
	return v, nil
}

// BreakInstance permanently bakes the overrides into node properties
// and severs the live link to the source scene. Irreversible: the
// instance no longer reloads or pools.
func (i *Instance) BreakInstance() {
	// Overrides are already applied to the live clone; baking means
	// forgetting they were ever overrides.
	i.overrides = make(map[string]domain.Value)
	i.sourcePath = ""
	i.parentVariant = ""
	i.root.Type = "Node"
}

// Reload re-clones from the (possibly updated) cached template and
// re-applies the override map onto the fresh clone. The instance id,
// container node, and name-resolved external references are preserved.
// Soft failure: when the template cannot be loaded the prior subtree is
// kept untouched.
func (i *Instance) Reload(ctx context.Context) error {
	if i.sourcePath == "" {
		return fmt.Errorf("instance %q has no source scene", i.name)
	}

	probe := domain.NewNode(i.name, domain.TypeSceneInstance)
	if err := populate(ctx, i.cache, probe, i.sourcePath, &buildStack{}); err != nil {
		return err // prior state preserved
	}

	for _, old := range append([]*domain.Node(nil), i.root.Children()...) {
		i.root.RemoveChild(old)
	}
	for _, fresh := range append([]*domain.Node(nil), probe.Children()...) {
		probe.RemoveChild(fresh)
		i.root.AddChild(fresh)
	}
	for _, addr := range sortedAddresses(i.overrides) {
		applyAt(i.root, addr, i.overrides[addr])
	}
	i.state = StateLoaded
	return nil
}

// Reset restores the pristine template state for pooling: overrides
// cleared, detached from any parent, external signal connections and
// behaviors severed, subtree re-cloned.
func (i *Instance) Reset(ctx context.Context) error {
	i.root.Detach()
	i.root.DisconnectAll()
	i.root.DetachBehaviors()
	i.ClearOverrides()
	i.editable = false
	return i.Reload(ctx)
}

// ValidateIntegrity reports non-fatal issues: a missing source file or
// override addresses that no longer resolve.
func (i *Instance) ValidateIntegrity() []string {
	var issues []string
	switch {
	case i.sourcePath == "":
		issues = append(issues, "no source scene path")
	case !i.cache.Exists(i.sourcePath):
		issues = append(issues, fmt.Sprintf("source scene not found: %s", i.sourcePath))
	}
	for _, addr := range sortedAddresses(i.overrides) {
		nodePath, _ := splitAddress(addr)
		if nodePath != "" && i.root.FindNode(nodePath) == nil {
			issues = append(issues, fmt.Sprintf("override target not found: %s", addr))
		}
	}
	return issues
}

func sortedAddresses(m map[string]domain.Value) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
