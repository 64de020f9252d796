package model

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// Value is a sealed interface over the closed set of attribute value
// variants a component may carry: Null, Bool, Int, Float, String, Point,
// Ref and RefList. Nothing else implements it.
//
// References to other objects are always expressed as Ref or RefList values
// resolved through the store; component data never embeds another object
// directly. This keeps snapshots flat and immutable.
type Value interface {
	value() // sealed
}

// Null is the explicit absent value. A declared attribute may hold Null;
// that is different from the attribute being missing.
type Null struct{}

func (Null) value() {}

// Bool is a boolean attribute value.
type Bool bool

func (Bool) value() {}

// Int is a 64-bit integer attribute value. Integers and floats are distinct
// variants; persistence keeps them distinct via json.Number.
type Int int64

func (Int) value() {}

// Float is a 64-bit floating point attribute value.
type Float float64

func (Float) value() {}

// String is a text attribute value.
type String string

func (String) value() {}

// Point is a 2-D position value, used by diagramming components.
type Point struct {
	X float64
	Y float64
}

func (Point) value() {}

// Ref is a reference to another object, resolved through the same store.
type Ref ObjectID

func (Ref) value() {}

// RefList is an ordered list of object references.
type RefList []ObjectID

func (RefList) value() {}

// ValueType names a value variant in attribute declarations.
type ValueType string

const (
	TypeBool    ValueType = "bool"
	TypeInt     ValueType = "int"
	TypeFloat   ValueType = "float"
	TypeString  ValueType = "string"
	TypePoint   ValueType = "point"
	TypeRef     ValueType = "ref"
	TypeRefList ValueType = "reflist"
)

// TypeOf returns the declared type name of a value. Null has no type of its
// own; it is accepted for any declared attribute type.
func TypeOf(v Value) (ValueType, bool) {
	switch v.(type) {
	case Null:
		return "", false
	case Bool:
		return TypeBool, true
	case Int:
		return TypeInt, true
	case Float:
		return TypeFloat, true
	case String:
		return TypeString, true
	case Point:
		return TypePoint, true
	case Ref:
		return TypeRef, true
	case RefList:
		return TypeRefList, true
	}
	return "", false
}

// References returns the object identities a value refers to. Non-reference
// variants return nil.
func References(v Value) []ObjectID {
	switch val := v.(type) {
	case Ref:
		return []ObjectID{ObjectID(val)}
	case RefList:
		out := make([]ObjectID, len(val))
		copy(out, val)
		return out
	}
	return nil
}

// EncodeValue renders a value as JSON. The encoding is unambiguous so that
// DecodeValue restores the exact variant:
//
//	Null    -> null
//	Bool    -> true / false
//	Int     -> integer number
//	Float   -> number with a decimal point or exponent
//	String  -> string
//	Point   -> {"x": <float>, "y": <float>}
//	Ref     -> {"ref": "<object id>"}
//	RefList -> {"refs": ["<object id>", ...]}
func EncodeValue(v Value) ([]byte, error) {
	switch val := v.(type) {
	case nil:
		return nil, fmt.Errorf("encode value: nil Value")
	case Null:
		return []byte("null"), nil
	case Bool:
		if val {
			return []byte("true"), nil
		}
		return []byte("false"), nil
	case Int:
		return []byte(fmt.Sprintf("%d", int64(val))), nil
	case Float:
		return encodeFloat(float64(val))
	case String:
		return json.Marshal(string(val))
	case Point:
		return []byte(fmt.Sprintf(`{"x":%s,"y":%s}`,
			mustFloat(val.X), mustFloat(val.Y))), nil
	case Ref:
		return json.Marshal(map[string]string{"ref": ObjectID(val).String()})
	case RefList:
		ids := make([]string, len(val))
		for i, id := range val {
			ids[i] = id.String()
		}
		return json.Marshal(map[string][]string{"refs": ids})
	}
	return nil, fmt.Errorf("encode value: unknown variant %T", v)
}

func encodeFloat(f float64) ([]byte, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("encode value: non-finite float %v", f)
	}
	s := fmt.Sprintf("%g", f)
	// Keep the float/int distinction visible in the encoded text.
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return []byte(s), nil
}

func mustFloat(f float64) string {
	b, err := encodeFloat(f)
	if err != nil {
		// Points with non-finite coordinates are rejected at amend time;
		// reaching this is a programming error.
		panic(err)
	}
	return string(b)
}

// DecodeValue parses JSON produced by EncodeValue back into the exact
// variant.
func DecodeValue(data []byte) (Value, error) {
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode value: %w", err)
	}
	return decodeAny(raw)
}

func decodeAny(raw any) (Value, error) {
	switch val := raw.(type) {
	case nil:
		return Null{}, nil
	case bool:
		return Bool(val), nil
	case string:
		return String(val), nil
	case json.Number:
		return decodeNumber(val)
	case map[string]any:
		return decodeObject(val)
	}
	return nil, fmt.Errorf("decode value: unsupported JSON shape %T", raw)
}

func decodeNumber(n json.Number) (Value, error) {
	if !strings.ContainsAny(n.String(), ".eE") {
		i, err := n.Int64()
		if err != nil {
			return nil, fmt.Errorf("decode value: integer %q: %w", n.String(), err)
		}
		return Int(i), nil
	}
	f, err := n.Float64()
	if err != nil {
		return nil, fmt.Errorf("decode value: float %q: %w", n.String(), err)
	}
	return Float(f), nil
}

func decodeObject(m map[string]any) (Value, error) {
	if ref, ok := m["ref"]; ok && len(m) == 1 {
		s, ok := ref.(string)
		if !ok {
			return nil, fmt.Errorf("decode value: ref must be a string")
		}
		id, err := ParseObjectID(s)
		if err != nil {
			return nil, fmt.Errorf("decode value: ref %q: %w", s, err)
		}
		return Ref(id), nil
	}
	if refs, ok := m["refs"]; ok && len(m) == 1 {
		list, ok := refs.([]any)
		if !ok {
			return nil, fmt.Errorf("decode value: refs must be a list")
		}
		out := make(RefList, 0, len(list))
		for i, elem := range list {
			s, ok := elem.(string)
			if !ok {
				return nil, fmt.Errorf("decode value: refs[%d] must be a string", i)
			}
			id, err := ParseObjectID(s)
			if err != nil {
				return nil, fmt.Errorf("decode value: refs[%d] %q: %w", i, s, err)
			}
			out = append(out, id)
		}
		return out, nil
	}
	if len(m) == 2 {
		x, xok := m["x"].(json.Number)
		y, yok := m["y"].(json.Number)
		if xok && yok {
			xf, err := x.Float64()
			if err != nil {
				return nil, fmt.Errorf("decode value: point x: %w", err)
			}
			yf, err := y.Float64()
			if err != nil {
				return nil, fmt.Errorf("decode value: point y: %w", err)
			}
			return Point{X: xf, Y: yf}, nil
		}
	}
	return nil, fmt.Errorf("decode value: unrecognized object shape with keys %v", mapKeys(m))
}

func mapKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

// FromAny converts plain Go values (as produced by YAML or JSON decoding)
// into the variant set. Used by the test harness and the CLI.
func FromAny(raw any) (Value, error) {
	switch val := raw.(type) {
	case nil:
		return Null{}, nil
	case bool:
		return Bool(val), nil
	case int:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case uint64:
		return Int(int64(val)), nil
	case float64:
		return Float(val), nil
	case string:
		return String(val), nil
	case Value:
		return val, nil
	case json.Number:
		return decodeNumber(val)
	case map[string]any:
		return decodeFromAnyMap(val)
	}
	return nil, fmt.Errorf("value from %T is not representable", raw)
}

func decodeFromAnyMap(m map[string]any) (Value, error) {
	// Accept the same shapes as DecodeValue, with numbers as float64.
	norm := make(map[string]any, len(m))
	for k, v := range m {
		if f, ok := v.(float64); ok {
			norm[k] = json.Number(mustFloat(f))
		} else if i, ok := v.(int); ok {
			norm[k] = json.Number(fmt.Sprintf("%d", i))
		} else {
			norm[k] = v
		}
	}
	return decodeObject(norm)
}

// ToAny converts a value into plain Go data for JSON rendering in the CLI
// and harness traces.
func ToAny(v Value) any {
	switch val := v.(type) {
	case Null:
		return nil
	case Bool:
		return bool(val)
	case Int:
		return int64(val)
	case Float:
		return float64(val)
	case String:
		return string(val)
	case Point:
		return map[string]any{"x": val.X, "y": val.Y}
	case Ref:
		return map[string]any{"ref": ObjectID(val).String()}
	case RefList:
		ids := make([]string, len(val))
		for i, id := range val {
			ids[i] = id.String()
		}
		return map[string]any{"refs": ids}
	}
	return nil
}

// ValuesEqual reports deep equality of two values, including the
// int/float variant distinction.
func ValuesEqual(a, b Value) bool {
	switch av := a.(type) {
	case Null:
		_, ok := b.(Null)
		return ok
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case Int:
		bv, ok := b.(Int)
		return ok && av == bv
	case Float:
		bv, ok := b.(Float)
		return ok && av == bv
	case String:
		bv, ok := b.(String)
		return ok && av == bv
	case Point:
		bv, ok := b.(Point)
		return ok && av == bv
	case Ref:
		bv, ok := b.(Ref)
		return ok && av == bv
	case RefList:
		bv, ok := b.(RefList)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if av[i] != bv[i] {
				return false
			}
		}
		return true
	}
	return false
}
