package value

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// Kind identifies the concrete type stored in a Value.
type Kind uint8

const (
	// KindUndefined marks an absent value. Index operators use it for
	// positions that take part in no comparison.
	KindUndefined Kind = iota
	// KindNull represents a null value.
	KindNull
	// KindBool represents a boolean value.
	KindBool
	// KindInt represents an integer value.
	KindInt
	// KindFloat represents a float value.
	KindFloat
	// KindString represents a string value.
	KindString
	// KindArray represents an array value.
	KindArray
	// KindObject represents an object value.
	KindObject
)

// String returns the JSON type name of the kind.
func (k Kind) String() string {
	switch k {
	case KindUndefined:
		return "undefined"
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt, KindFloat:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "invalid"
	}
}

// Value is a small typed JSON value used for documents, filter literals and
// index keys.
//
// Values are immutable once built; Clone returns an independent deep copy.
type Value struct {
	Kind Kind
	I64  int64
	F64  float64
	S    string
	B    bool
	A    []Value
	O    map[string]Value
}

// Undefined returns the undefined (unused) Value.
func Undefined() Value { return Value{} }

// Null returns a null Value.
func Null() Value { return Value{Kind: KindNull} }

// Int returns an int64 Value.
func Int(v int64) Value { return Value{Kind: KindInt, I64: v} }

// Float returns a float64 Value.
func Float(v float64) Value { return Value{Kind: KindFloat, F64: v} }

// String returns a string Value.
func String(v string) Value { return Value{Kind: KindString, S: v} }

// Bool returns a boolean Value.
func Bool(v bool) Value { return Value{Kind: KindBool, B: v} }

// Array returns an array Value.
func Array(v ...Value) Value {
	if v == nil {
		v = []Value{}
	}
	return Value{Kind: KindArray, A: v}
}

// Object returns an object Value.
func Object(v map[string]Value) Value {
	if v == nil {
		v = map[string]Value{}
	}
	return Value{Kind: KindObject, O: v}
}

// IsUndefined reports whether v is the undefined value.
func (v Value) IsUndefined() bool { return v.Kind == KindUndefined }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.Kind == KindNull }

// IsNumber reports whether v is an int or a float.
func (v Value) IsNumber() bool { return v.Kind == KindInt || v.Kind == KindFloat }

// Number returns the numeric value of v as float64.
func (v Value) Number() (float64, bool) {
	switch v.Kind {
	case KindInt:
		return float64(v.I64), true
	case KindFloat:
		return v.F64, true
	default:
		return 0, false
	}
}

// AsInt64 returns the int64 value if Kind is KindInt.
func (v Value) AsInt64() (int64, bool) {
	if v.Kind != KindInt {
		return 0, false
	}
	return v.I64, true
}

// AsString returns the string value if Kind is KindString.
func (v Value) AsString() (string, bool) {
	if v.Kind != KindString {
		return "", false
	}
	return v.S, true
}

// AsBool returns the boolean value if Kind is KindBool.
func (v Value) AsBool() (bool, bool) {
	if v.Kind != KindBool {
		return false, false
	}
	return v.B, true
}

// AsArray returns the array value if Kind is KindArray.
func (v Value) AsArray() ([]Value, bool) {
	if v.Kind != KindArray {
		return nil, false
	}
	return v.A, true
}

// AsObject returns the object value if Kind is KindObject.
func (v Value) AsObject() (map[string]Value, bool) {
	if v.Kind != KindObject {
		return nil, false
	}
	return v.O, true
}

// Truthy reports the boolean interpretation of v used by filter evaluation.
func (v Value) Truthy() bool {
	switch v.Kind {
	case KindBool:
		return v.B
	case KindInt:
		return v.I64 != 0
	case KindFloat:
		return v.F64 != 0
	case KindString:
		return v.S != ""
	case KindArray, KindObject:
		return true
	default:
		return false
	}
}

// Equal reports whether v and o compare equal.
func (v Value) Equal(o Value) bool { return Compare(v, o) == 0 }

// Key returns a stable string representation for use in maps.
//
// Numerically equal ints and floats share a key, so 1 and 1.0 land in the
// same hash bucket.
func (v Value) Key() string {
	switch v.Kind {
	case KindUndefined:
		return "u"
	case KindNull:
		return "null"
	case KindInt:
		return "n:" + strconv.FormatInt(v.I64, 10)
	case KindFloat:
		if v.F64 == math.Trunc(v.F64) && math.Abs(v.F64) < 1<<53 {
			return "n:" + strconv.FormatInt(int64(v.F64), 10)
		}
		return "n:" + strconv.FormatFloat(v.F64, 'g', -1, 64)
	case KindString:
		return "s:" + v.S
	case KindBool:
		if v.B {
			return "b:1"
		}
		return "b:0"
	case KindArray:
		parts := make([]string, len(v.A))
		for i := range v.A {
			parts[i] = v.A[i].Key()
		}
		return "a:[" + strings.Join(parts, "\x1f") + "]"
	case KindObject:
		keys := sortedKeys(v.O)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + "\x1e" + v.O[k].Key()
		}
		return "o:{" + strings.Join(parts, "\x1f") + "}"
	default:
		return "invalid"
	}
}

// Clone creates a deep copy of v, including nested arrays and objects.
func (v Value) Clone() Value {
	switch v.Kind {
	case KindArray:
		arrayCopy := make([]Value, len(v.A))
		for i := range v.A {
			arrayCopy[i] = v.A[i].Clone()
		}
		return Value{Kind: KindArray, A: arrayCopy}
	case KindObject:
		objCopy := make(map[string]Value, len(v.O))
		for k, e := range v.O {
			objCopy[k] = e.Clone()
		}
		return Value{Kind: KindObject, O: objCopy}
	default:
		return v
	}
}

// String renders v as JSON.
func (v Value) String() string {
	b, err := v.MarshalJSON()
	if err != nil {
		return "<invalid>"
	}
	return string(b)
}

func sortedKeys(m map[string]Value) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
