package index

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/hupe1980/docquery/model"
	"github.com/hupe1980/docquery/value"
)

var (
	// ErrNotImplemented is returned for operators an index cannot evaluate.
	ErrNotImplemented = errors.New("index: operation not implemented")
	// ErrBadParameter is returned for invalid descriptors, operators or queries.
	ErrBadParameter = errors.New("index: bad parameter")
)

// ErrUniqueViolation is returned when an insert would duplicate a value
// tuple in a unique index.
type ErrUniqueViolation struct {
	ID     ID
	Fields []string
	Values []value.Value
}

// Error implements the error interface.
func (e *ErrUniqueViolation) Error() string {
	return fmt.Sprintf("index %d: unique constraint violated on %v for %v", e.ID, e.Fields, value.Array(e.Values...))
}

// Kind identifies an index implementation.
type Kind uint8

// Index kinds in planner preference order.
const (
	KindPrimary Kind = iota
	KindHash
	KindSkiplist
	KindBitarray
	KindGeo1
	KindGeo2
	KindFulltext
)

var kindNames = map[Kind]string{
	KindPrimary:  "primary",
	KindHash:     "hash",
	KindSkiplist: "skiplist",
	KindBitarray: "bitarray",
	KindGeo1:     "geo1",
	KindGeo2:     "geo2",
	KindFulltext: "fulltext",
}

// String returns the lower-case kind name.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// IsGeo reports whether k is one of the geo kinds.
func (k Kind) IsGeo() bool { return k == KindGeo1 || k == KindGeo2 }

// ParseKind parses a kind name, ignoring case and surrounding space.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown index kind %q", ErrBadParameter, s)
}

// ID identifies an index within a collection.
type ID uint64

// Descriptor is the metadata of one index.
type Descriptor struct {
	ID     ID       `json:"id"`
	Kind   Kind     `json:"type"`
	Fields []string `json:"fields"`
	Unique bool     `json:"unique,omitempty"`

	// GeoJSON marks a geo1 index whose attribute holds [lon, lat].
	GeoJSON bool `json:"geoJson,omitempty"`
	// MinWordLength is the shortest word a fulltext index stores.
	MinWordLength int `json:"minLength,omitempty"`
	// Substrings enables substring queries on a fulltext index.
	Substrings bool `json:"substrings,omitempty"`
}

// Validate checks the descriptor's field count against its kind.
func (d Descriptor) Validate() error {
	if len(d.Fields) == 0 {
		return fmt.Errorf("%w: %s index without fields", ErrBadParameter, d.Kind)
	}
	for _, f := range d.Fields {
		if f == "" {
			return fmt.Errorf("%w: empty field name", ErrBadParameter)
		}
	}
	want := 0
	switch d.Kind {
	case KindPrimary, KindGeo1, KindFulltext:
		want = 1
	case KindGeo2:
		want = 2
	}
	if want > 0 && len(d.Fields) != want {
		return fmt.Errorf("%w: %s index needs %d field(s), got %d", ErrBadParameter, d.Kind, want, len(d.Fields))
	}
	return nil
}

// String renders the descriptor, e.g. skiplist#3[a,b].
func (d Descriptor) String() string {
	s := fmt.Sprintf("%s#%d[%s]", d.Kind, d.ID, strings.Join(d.Fields, ","))
	if d.Unique {
		s += " unique"
	}
	return s
}

// Index is a secondary structure over a collection's documents. Indexes are
// mutated only under the collection's write lock; lookups run concurrently
// under its read lock.
type Index interface {
	// Descriptor returns the index metadata.
	Descriptor() Descriptor

	// Insert adds the document stored at id.
	Insert(id model.RowID, doc value.Document) error

	// Remove deletes the document stored at id. doc is the stored document.
	Remove(id model.RowID, doc value.Document)

	// Len returns the number of indexed documents.
	Len() int
}

// Values extracts the positional values of fields from doc, null for
// missing attributes.
func Values(fields []string, doc value.Document) []value.Value {
	out := make([]value.Value, len(fields))
	for i, f := range fields {
		out[i] = doc.Lookup(f)
	}
	return out
}

// TupleKey returns a hashing key for a value tuple. Numerically equal tuples
// share a key.
func TupleKey(vals []value.Value) string {
	var b strings.Builder
	for _, v := range vals {
		k := v.Key()
		b.WriteString(strconv.Itoa(len(k)))
		b.WriteByte(':')
		b.WriteString(k)
	}
	return b.String()
}
