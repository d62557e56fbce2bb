package schema

import (
	"fmt"

	"github.com/arbordev/arbor/pkg/domain"
)

// Type defines the contract for field validation. Implementations
// decide which value kinds conform.
type Type interface {
	// Name returns the human-readable name of the type (e.g. "vec2").
	Name() string
	// Validate checks if a value conforms to this type.
	Validate(v domain.Value) error
}

type kindType struct {
	name  string
	kinds []domain.Kind
}

func (t *kindType) Name() string { return t.name }

func (t *kindType) Validate(v domain.Value) error {
	for _, k := range t.kinds {
		if v.Kind() == k {
			return nil
		}
	}
	return fmt.Errorf("expected %s, got %s", t.name, v.Kind())
}

// String creates a string field type.
func String() Type { return &kindType{name: "string", kinds: []domain.Kind{domain.KindString}} }

// Int creates an integer field type.
func Int() Type { return &kindType{name: "int", kinds: []domain.Kind{domain.KindInt}} }

// Float creates a float field type. Ints conform, mirroring JSON where
// a whole number carries no kind of its own.
func Float() Type {
	return &kindType{name: "float", kinds: []domain.Kind{domain.KindFloat, domain.KindInt}}
}

// Bool creates a boolean field type.
func Bool() Type { return &kindType{name: "bool", kinds: []domain.Kind{domain.KindBool}} }

// Vec2 creates a 2D vector field type.
func Vec2() Type { return &kindType{name: "vec2", kinds: []domain.Kind{domain.KindVec2}} }

// Color creates an RGBA color field type.
func Color() Type { return &kindType{name: "color", kinds: []domain.Kind{domain.KindColor}} }

// Ref creates a node reference field type.
func Ref() Type { return &kindType{name: "ref", kinds: []domain.Kind{domain.KindRef}} }

// ListType validates lists with a specific element type.
type ListType struct {
	elem Type
}

func (t *ListType) Name() string { return "[" + t.elem.Name() + "]" }

func (t *ListType) Validate(v domain.Value) error {
	if v.Kind() != domain.KindList {
		return fmt.Errorf("expected %s, got %s", t.Name(), v.Kind())
	}
	for i, item := range v.List() {
		if err := t.elem.Validate(item); err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
	}
	return nil
}

// List creates a list field type for elements of the given type.
func List(elem Type) Type { return &ListType{elem: elem} }

// CustomType applies a user-defined validation function.
type CustomType struct {
	name     string
	validate func(domain.Value) error
}

func (t *CustomType) Name() string { return t.name }

func (t *CustomType) Validate(v domain.Value) error { return t.validate(v) }

// Custom creates a custom field type with a user-defined validator.
func Custom(name string, validate func(domain.Value) error) Type {
	return &CustomType{name: name, validate: validate}
}

// ParseType converts a type name to a Type. Supports the built-in
// names plus list syntax: "[string]", "[vec2]", etc.
func ParseType(typeStr string) (Type, error) {
	if len(typeStr) > 2 && typeStr[0] == '[' && typeStr[len(typeStr)-1] == ']' {
		elem, err := ParseType(typeStr[1 : len(typeStr)-1])
		if err != nil {
			return nil, err
		}
		return List(elem), nil
	}
	switch typeStr {
	case "string":
		return String(), nil
	case "int":
		return Int(), nil
	case "float":
		return Float(), nil
	case "bool":
		return Bool(), nil
	case "vec2":
		return Vec2(), nil
	case "color":
		return Color(), nil
	case "ref":
		return Ref(), nil
	default:
		return nil, fmt.Errorf("unsupported type: %s", typeStr)
	}
}
