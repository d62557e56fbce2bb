package schema

import (
	"fmt"
	"sync"

	"github.com/arbordev/arbor/pkg/domain"
)

// Field describes one exported variable of a node type: its name, the
// value kind it accepts, and the default applied at instantiation.
type Field struct {
	Name    string
	Type    Type
	Default domain.Value
}

// Fields is the ordered declarative schema of a node type.
type Fields []Field

// Validate checks every present property against the schema. Unknown
// properties pass through untouched; typed fields must conform. All
// failures are reported together.
func (f Fields) Validate(props map[string]domain.Value) error {
	var errs []error
	for _, field := range f {
		v, ok := props[field.Name]
		if !ok {
			continue // defaults cover absent fields
		}
		if err := field.Type.Validate(v); err != nil {
			errs = append(errs, &ValidationError{
				Field:  field.Name,
				Reason: err.Error(),
				Kind:   v.Kind().String(),
			})
		}
	}
	if len(errs) > 0 {
		return &AggregateError{Errors: errs}
	}
	return nil
}

// NodeType registers a node type tag together with its export schema
// and the signals it declares.
type NodeType struct {
	Name    string
	Fields  Fields
	Signals []string
}

// Registry holds the known node types. It replaces dynamic, source
// annotation driven type discovery with explicit registration.
type Registry struct {
	mu    sync.RWMutex
	types map[string]NodeType
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{types: make(map[string]NodeType)}
}

// Register adds a node type. Re-registering a name overwrites it.
func (r *Registry) Register(nt NodeType) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types[nt.Name] = nt
}

// Lookup returns the registered type, if any.
func (r *Registry) Lookup(name string) (NodeType, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	nt, ok := r.types[name]
	return nt, ok
}

// New instantiates a node of the registered type with defaults applied
// and signals declared. Unregistered type tags instantiate as plain
// nodes so scene files never hard-fail on unknown types.
func (r *Registry) New(name, typeTag string) *domain.Node {
	n := domain.NewNode(name, typeTag)
	nt, ok := r.Lookup(typeTag)
	if !ok {
		return n
	}
	for _, f := range nt.Fields {
		if !f.Default.IsNil() {
			n.SetProperty(f.Name, f.Default.Clone())
		}
	}
	for _, sig := range nt.Signals {
		n.DeclareSignal(sig)
	}
	return n
}

// ValidateNode checks a node's properties against its registered
// schema. Nodes of unregistered types always pass.
func (r *Registry) ValidateNode(n *domain.Node) error {
	nt, ok := r.Lookup(n.Type)
	if !ok {
		return nil
	}
	props := make(map[string]domain.Value, len(n.PropertyNames()))
	for _, name := range n.PropertyNames() {
		v, _ := n.Property(name)
		props[name] = v
	}
	if err := nt.Fields.Validate(props); err != nil {
		return fmt.Errorf("node %q (%s): %w", n.Name, n.Type, err)
	}
	return nil
}
