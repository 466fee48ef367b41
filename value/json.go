package value

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
)

// MarshalJSON implements json.Marshaler with the natural JSON encoding.
// Undefined values encode as null.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.writeJSON(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v Value) writeJSON(buf *bytes.Buffer) error {
	switch v.Kind {
	case KindUndefined, KindNull:
		buf.WriteString("null")
	case KindBool:
		buf.WriteString(strconv.FormatBool(v.B))
	case KindInt:
		buf.WriteString(strconv.FormatInt(v.I64, 10))
	case KindFloat:
		b, err := json.Marshal(v.F64)
		if err != nil {
			return err
		}
		buf.Write(b)
	case KindString:
		b, err := json.Marshal(v.S)
		if err != nil {
			return err
		}
		buf.Write(b)
	case KindArray:
		buf.WriteByte('[')
		for i := range v.A {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := v.A[i].writeJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindObject:
		buf.WriteByte('{')
		for i, k := range sortedKeys(v.O) {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			if err := v.O[k].writeJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("value: cannot encode kind %d", v.Kind)
	}
	return nil
}

// UnmarshalJSON implements json.Unmarshaler. Integral numbers decode as
// KindInt, all other numbers as KindFloat.
func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// Parse decodes a single JSON document into a Value.
func Parse(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return Value{}, err
	}
	return FromAny(raw)
}

// ToAny converts v into plain Go values (nil, bool, int64, float64, string,
// []any, map[string]any).
func (v Value) ToAny() any {
	switch v.Kind {
	case KindBool:
		return v.B
	case KindInt:
		return v.I64
	case KindFloat:
		return v.F64
	case KindString:
		return v.S
	case KindArray:
		out := make([]any, len(v.A))
		for i := range v.A {
			out[i] = v.A[i].ToAny()
		}
		return out
	case KindObject:
		out := make(map[string]any, len(v.O))
		for k, e := range v.O {
			out[k] = e.ToAny()
		}
		return out
	default:
		return nil
	}
}

func sortValues(values []Value) {
	slices.SortStableFunc(values, Compare)
}
