package value

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompare(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
		want int
	}{
		{"null < bool", Null(), Bool(false), -1},
		{"bool < number", Bool(true), Int(-100), -1},
		{"number < string", Float(1e9), String(""), -1},
		{"string < array", String("zzz"), Array(), -1},
		{"array < object", Array(Int(1)), Object(nil), -1},
		{"undefined first", Undefined(), Null(), -1},
		{"false < true", Bool(false), Bool(true), -1},
		{"int vs float equal", Int(1), Float(1.0), 0},
		{"int vs float less", Int(1), Float(1.5), -1},
		{"strings", String("b"), String("a"), 1},
		{"array prefix", Array(Int(1)), Array(Int(1), Int(2)), -1},
		{"array element", Array(Int(2)), Array(Int(1), Int(2)), 1},
		{"object keys", Object(map[string]Value{"a": Int(1)}), Object(map[string]Value{"b": Int(0)}), -1},
		{"object values", Object(map[string]Value{"a": Int(2)}), Object(map[string]Value{"a": Int(1)}), 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Compare(tc.a, tc.b))
			assert.Equal(t, -tc.want, Compare(tc.b, tc.a))
		})
	}
}

func TestCompareTuples(t *testing.T) {
	assert.Equal(t, 0, CompareTuples([]Value{Int(1), String("a")}, []Value{Int(1), String("a")}))
	assert.Equal(t, -1, CompareTuples([]Value{Int(1)}, []Value{Int(1), String("a")}))
	assert.Equal(t, 0, ComparePrefix([]Value{Int(1), String("a")}, []Value{Int(1)}))
	assert.Equal(t, 1, ComparePrefix([]Value{Int(2), String("a")}, []Value{Int(1)}))
}

func TestKey(t *testing.T) {
	assert.Equal(t, Int(1).Key(), Float(1).Key())
	assert.NotEqual(t, Int(1).Key(), String("1").Key())
	assert.NotEqual(t, Float(1.5).Key(), Int(1).Key())
	assert.Equal(t, Array(Int(1), Null()).Key(), Array(Float(1), Null()).Key())

	a := Object(map[string]Value{"x": Int(1), "y": Bool(true)})
	b := Object(map[string]Value{"y": Bool(true), "x": Int(1)})
	assert.Equal(t, a.Key(), b.Key())
}

func TestSortUnique(t *testing.T) {
	got := SortUnique([]Value{Int(3), Float(1), Int(1), String("a"), Int(3)})
	require.Len(t, got, 3)
	assert.Equal(t, 0, Compare(got[0], Int(1)))
	assert.Equal(t, Int(3), got[1])
	assert.Equal(t, String("a"), got[2])
}

func TestJSONRoundTrip(t *testing.T) {
	in := `{"a":1,"b":1.5,"c":"x","d":[true,null],"e":{"f":-2}}`

	doc, err := ParseDocument([]byte(in))
	require.NoError(t, err)

	assert.Equal(t, Int(1), doc["a"])
	assert.Equal(t, Float(1.5), doc["b"])
	assert.Equal(t, KindArray, doc["d"].Kind)

	out, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.JSONEq(t, in, string(out))
}

func TestDocumentGet(t *testing.T) {
	doc := Document{
		"a": Object(map[string]Value{"b": Object(map[string]Value{"c": Int(7)})}),
		"x": Int(1),
	}

	v, ok := doc.Get("a.b.c")
	require.True(t, ok)
	assert.Equal(t, Int(7), v)

	_, ok = doc.Get("x.y")
	assert.False(t, ok)

	_, ok = doc.Get("missing")
	assert.False(t, ok)

	assert.Equal(t, Null(), doc.Lookup("a.z"))
	assert.ElementsMatch(t, []string{"a", "a.b", "a.b.c", "x"}, doc.Paths())
}

func TestClone(t *testing.T) {
	doc := Document{"arr": Array(Int(1), Int(2))}
	c := doc.Clone()
	c["arr"].A[0] = Int(99)
	assert.Equal(t, Int(1), doc["arr"].A[0])
}

func TestFromAny(t *testing.T) {
	t.Run("Scalars", func(t *testing.T) {
		tests := []struct {
			name     string
			input    any
			expected Value
		}{
			{"nil", nil, Null()},
			{"bool", true, Bool(true)},
			{"string", "hello", String("hello")},
			{"float64", 3.14, Float(3.14)},
			{"int", 1, Int(1)},
			{"json int", json.Number("12"), Int(12)},
			{"json float", json.Number("1.25"), Float(1.25)},
			{"uint32 max", uint32(math.MaxUint32), Int(int64(math.MaxUint32))},
		}

		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				v, err := FromAny(tc.input)
				assert.NoError(t, err)
				assert.Equal(t, tc.expected, v)
			})
		}
	})

	t.Run("Uint64 out of range", func(t *testing.T) {
		_, err := FromAny(uint64(math.MaxUint64))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "out of range")
	})

	t.Run("Nested", func(t *testing.T) {
		v, err := FromAny(map[string]any{"a": []any{1, "s"}})
		require.NoError(t, err)
		obj, ok := v.AsObject()
		require.True(t, ok)
		assert.Equal(t, Array(Int(1), String("s")), obj["a"])
	})

	t.Run("Unsupported", func(t *testing.T) {
		_, err := FromAny(make(chan int))
		assert.Error(t, err)
	})
}

func TestTruthy(t *testing.T) {
	assert.False(t, Null().Truthy())
	assert.False(t, Int(0).Truthy())
	assert.False(t, String("").Truthy())
	assert.True(t, Array().Truthy())
	assert.True(t, Float(0.1).Truthy())
}
