package value

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Document is a typed JSON object. Attribute paths such as "a.b.c" resolve
// through nested objects.
type Document map[string]Value

// DocumentFromAny converts a map[string]any document to a typed Document.
func DocumentFromAny(m map[string]any) (Document, error) {
	d := make(Document, len(m))
	for k, v := range m {
		vv, err := FromAny(v)
		if err != nil {
			return nil, err
		}
		d[k] = vv
	}
	return d, nil
}

// ParseDocument decodes a JSON object into a Document.
func ParseDocument(data []byte) (Document, error) {
	v, err := Parse(data)
	if err != nil {
		return nil, err
	}
	obj, ok := v.AsObject()
	if !ok {
		return nil, fmt.Errorf("value: expected JSON object, got %s", v.Kind)
	}
	return Document(obj), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Document) UnmarshalJSON(data []byte) error {
	doc, err := ParseDocument(data)
	if err != nil {
		return err
	}
	*d = doc
	return nil
}

// MarshalJSON implements json.Marshaler with sorted keys.
func (d Document) MarshalJSON() ([]byte, error) {
	if d == nil {
		return []byte("null"), nil
	}
	return Object(d).MarshalJSON()
}

// Clone creates a deep copy of the document.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	clone := make(Document, len(d))
	for k, v := range d {
		clone[k] = v.Clone()
	}
	return clone
}

// Get resolves a dotted attribute path. The second return value is false if
// any segment is missing or a non-object is traversed.
func (d Document) Get(path string) (Value, bool) {
	return d.GetPath(SplitPath(path))
}

// GetPath resolves a pre-split attribute path.
func (d Document) GetPath(segments []string) (Value, bool) {
	if len(segments) == 0 {
		return Value{}, false
	}
	cur, ok := d[segments[0]]
	if !ok {
		return Value{}, false
	}
	for _, s := range segments[1:] {
		obj, isObj := cur.AsObject()
		if !isObj {
			return Value{}, false
		}
		cur, ok = obj[s]
		if !ok {
			return Value{}, false
		}
	}
	return cur, true
}

// Lookup is like Get but returns null for missing paths, matching how
// indexes store documents lacking an indexed attribute.
func (d Document) Lookup(path string) Value {
	v, ok := d.Get(path)
	if !ok {
		return Null()
	}
	return v
}

// Paths returns all attribute paths of the document, descending into nested
// objects.
func (d Document) Paths() []string {
	var out []string
	var walk func(prefix string, obj map[string]Value)
	walk = func(prefix string, obj map[string]Value) {
		for k, v := range obj {
			p := k
			if prefix != "" {
				p = prefix + "." + k
			}
			out = append(out, p)
			if v.Kind == KindObject {
				walk(p, v.O)
			}
		}
	}
	walk("", d)
	return out
}

// String renders the document as JSON.
func (d Document) String() string {
	b, err := json.Marshal(d)
	if err != nil {
		return "<invalid>"
	}
	return string(b)
}

// SplitPath splits a dotted attribute path into its segments.
func SplitPath(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, ".")
}
