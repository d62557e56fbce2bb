package domain

import (
	"fmt"
	"math"
)

// Kind enumerates the closed set of property kinds the core supports.
type Kind uint8

const (
	KindNil Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindVec2
	KindColor
	KindRef
	KindList
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindVec2:
		return "vec2"
	case KindColor:
		return "color"
	case KindRef:
		return "ref"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Vec2 is a 2D vector property.
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Color is an RGBA color property with components in [0, 1].
type Color struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
	A float64 `json:"a"`
}

// Value is a tagged variant over the supported property kinds. The zero
// Value is Nil. Values are compared and copied by value except for the
// List and Map kinds, which Clone copies deeply.
type Value struct {
	kind Kind
	b    bool
	i    int64   // integer payload, exact across the int64 range
	n    float64 // float payload
	s    string  // string payload for string and ref
	v2   Vec2
	col  Color
	list []Value
	m    map[string]Value
}

func NilValue() Value          { return Value{} }
func BoolValue(v bool) Value   { return Value{kind: KindBool, b: v} }
func IntValue(v int64) Value   { return Value{kind: KindInt, i: v} }
func FloatValue(v float64) Value {
	return Value{kind: KindFloat, n: v}
}
func StringValue(v string) Value { return Value{kind: KindString, s: v} }
func Vec2Value(v Vec2) Value     { return Value{kind: KindVec2, v2: v} }
func ColorValue(v Color) Value   { return Value{kind: KindColor, col: v} }

// RefValue holds a node path reference (e.g. "Player/Sprite").
func RefValue(path string) Value { return Value{kind: KindRef, s: path} }

func ListValue(items ...Value) Value {
	return Value{kind: KindList, list: items}
}

func MapValue(m map[string]Value) Value {
	return Value{kind: KindMap, m: m}
}

func (v Value) Kind() Kind  { return v.kind }
func (v Value) IsNil() bool { return v.kind == KindNil }
func (v Value) Bool() bool  { return v.b }

// Int returns the integer payload, truncating a float payload.
func (v Value) Int() int64 {
	if v.kind == KindFloat {
		return int64(v.n)
	}
	return v.i
}

// Float returns the float payload, widening an integer payload.
func (v Value) Float() float64 {
	if v.kind == KindInt {
		return float64(v.i)
	}
	return v.n
}
func (v Value) String() string {
	if v.kind == KindString || v.kind == KindRef {
		return v.s
	}
	return fmt.Sprintf("%v", v.Interface())
}
func (v Value) Vec2() Vec2   { return v.v2 }
func (v Value) Color() Color { return v.col }
func (v Value) Ref() string  { return v.s }
func (v Value) List() []Value {
	return v.list
}
func (v Value) Map() map[string]Value { return v.m }

// Clone returns a deep copy. Scalar kinds share no state to begin with;
// lists and maps are copied element by element.
func (v Value) Clone() Value {
	switch v.kind {
	case KindList:
		items := make([]Value, len(v.list))
		for i, item := range v.list {
			items[i] = item.Clone()
		}
		return Value{kind: KindList, list: items}
	case KindMap:
		m := make(map[string]Value, len(v.m))
		for k, item := range v.m {
			m[k] = item.Clone()
		}
		return Value{kind: KindMap, m: m}
	default:
		return v
	}
}

// Equal reports deep equality of two values.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNil:
		return true
	case KindBool:
		return v.b == o.b
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.n == o.n
	case KindString, KindRef:
		return v.s == o.s
	case KindVec2:
		return v.v2 == o.v2
	case KindColor:
		return v.col == o.col
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(v.m) != len(o.m) {
			return false
		}
		for k, item := range v.m {
			other, ok := o.m[k]
			if !ok || !item.Equal(other) {
				return false
			}
		}
		return true
	}
	return false
}

// Interface converts the value back into plain Go data suitable for
// JSON encoding. Integers round-trip as int64 when exact.
func (v Value) Interface() any {
	switch v.kind {
	case KindNil:
		return nil
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindFloat:
		return v.n
	case KindString:
		return v.s
	case KindVec2:
		return map[string]any{"x": v.v2.X, "y": v.v2.Y}
	case KindColor:
		return map[string]any{"r": v.col.R, "g": v.col.G, "b": v.col.B, "a": v.col.A}
	case KindRef:
		return map[string]any{"$ref": v.s}
	case KindList:
		out := make([]any, len(v.list))
		for i, item := range v.list {
			out[i] = item.Interface()
		}
		return out
	case KindMap:
		out := make(map[string]any, len(v.m))
		for k, item := range v.m {
			out[k] = item.Interface()
		}
		return out
	}
	return nil
}

// FromAny converts JSON-decoded data into a Value. Maps shaped like
// {"x":…, "y":…} become vec2, {"r","g","b","a"} become color and
// {"$ref":…} become node references; everything else maps structurally.
// Whole floats become ints, matching the behavior of JSON decoding
// where all numbers arrive as float64.
func FromAny(raw any) Value {
	switch v := raw.(type) {
	case nil:
		return NilValue()
	case bool:
		return BoolValue(v)
	case int:
		return IntValue(int64(v))
	case int64:
		return IntValue(v)
	case float64:
		if v == math.Trunc(v) && math.Abs(v) < 1<<53 {
			return IntValue(int64(v))
		}
		return FloatValue(v)
	case string:
		return StringValue(v)
	case Value:
		return v
	case []any:
		items := make([]Value, len(v))
		for i, item := range v {
			items[i] = FromAny(item)
		}
		return ListValue(items...)
	case map[string]any:
		if ref, ok := v["$ref"].(string); ok && len(v) == 1 {
			return RefValue(ref)
		}
		if vec, ok := asVec2(v); ok {
			return Vec2Value(vec)
		}
		if col, ok := asColor(v); ok {
			return ColorValue(col)
		}
		m := make(map[string]Value, len(v))
		for k, item := range v {
			m[k] = FromAny(item)
		}
		return MapValue(m)
	default:
		return StringValue(fmt.Sprintf("%v", v))
	}
}

func asVec2(m map[string]any) (Vec2, bool) {
	if len(m) != 2 {
		return Vec2{}, false
	}
	x, okX := asFloat(m["x"])
	y, okY := asFloat(m["y"])
	if !okX || !okY {
		return Vec2{}, false
	}
	return Vec2{X: x, Y: y}, true
}

func asColor(m map[string]any) (Color, bool) {
	if len(m) != 4 {
		return Color{}, false
	}
	r, okR := asFloat(m["r"])
	g, okG := asFloat(m["g"])
	b, okB := asFloat(m["b"])
	a, okA := asFloat(m["a"])
	if !okR || !okG || !okB || !okA {
		return Color{}, false
	}
	return Color{R: r, G: g, B: b, A: a}, true
}

func asFloat(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}
