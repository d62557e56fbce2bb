package domain

import (
	"testing"
)

func TestFromAny_Kinds(t *testing.T) {
	tests := []struct {
		raw  any
		kind Kind
	}{
		{nil, KindNil},
		{true, KindBool},
		{42, KindInt},
		{float64(42), KindInt}, // whole JSON number decays to int
		{3.5, KindFloat},
		{"hi", KindString},
		{[]any{1, 2}, KindList},
		{map[string]any{"x": 1.0, "y": 2.0}, KindVec2},
		{map[string]any{"r": 1.0, "g": 0.0, "b": 0.0, "a": 1.0}, KindColor},
		{map[string]any{"$ref": "Player/Sprite"}, KindRef},
		{map[string]any{"speed": 4}, KindMap},
	}

	for _, tt := range tests {
		if got := FromAny(tt.raw).Kind(); got != tt.kind {
			t.Errorf("FromAny(%v).Kind() = %v, want %v", tt.raw, got, tt.kind)
		}
	}
}

func TestValue_RoundTrip(t *testing.T) {
	values := []Value{
		NilValue(),
		BoolValue(true),
		IntValue(-9),
		FloatValue(2.25),
		StringValue("scene"),
		Vec2Value(Vec2{X: 1, Y: -2}),
		ColorValue(Color{R: 0.5, G: 0.25, B: 1, A: 1}),
		RefValue("Enemy/Sprite"),
		ListValue(IntValue(1), StringValue("two")),
		MapValue(map[string]Value{"k": BoolValue(false)}),
	}

	for _, v := range values {
		back := FromAny(v.Interface())
		if !v.Equal(back) {
			t.Errorf("round trip changed value: %v -> %v", v.Interface(), back.Interface())
		}
	}
}

func TestValue_LargeIntExact(t *testing.T) {
	big := int64(1)<<62 + 1 // not representable as float64
	v := IntValue(big)
	if got := v.Int(); got != big {
		t.Errorf("IntValue(%d).Int() = %d, precision lost", big, got)
	}
	if back := FromAny(v.Interface()); !v.Equal(back) {
		t.Errorf("large int changed across round trip: %v", back.Interface())
	}
}

func TestValue_CloneIsolation(t *testing.T) {
	inner := map[string]Value{"hp": IntValue(10)}
	v := MapValue(inner)
	c := v.Clone()

	inner["hp"] = IntValue(1)
	if got := c.Map()["hp"].Int(); got != 10 {
		t.Errorf("clone shares state with source: got %d, want 10", got)
	}
}
