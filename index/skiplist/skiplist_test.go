package skiplist

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/docquery/index"
	"github.com/hupe1980/docquery/indexop"
	"github.com/hupe1980/docquery/model"
	"github.com/hupe1980/docquery/testutil"
	"github.com/hupe1980/docquery/value"
)

func v(x any) value.Value { return value.MustFromAny(x) }

func newIndex(t *testing.T, fields ...string) *Index {
	t.Helper()
	idx, err := index.New(index.Descriptor{ID: 7, Kind: index.KindSkiplist, Fields: fields})
	require.NoError(t, err)
	return idx.(*Index)
}

func TestLookup(t *testing.T) {
	ix := newIndex(t, "a", "b")
	rows := []value.Document{
		{"a": v(1), "b": v(5)},
		{"a": v(1), "b": v(2)},
		{"a": v(2), "b": v(1)},
		{"a": v(1), "b": v(9)},
		{"a": v(3)},
		{"a": v(1), "b": v(5)},
		{"a": v("x"), "b": v(1)},
	}
	for i, d := range rows {
		require.NoError(t, ix.Insert(model.RowID(i), d))
	}
	assert.Equal(t, len(rows), ix.Len())

	ctx := context.Background()

	tests := []struct {
		name string
		op   *indexop.Operator
		want []model.RowID
	}{
		{"full tuple", indexop.Leaf(indexop.Eq, v(1), v(5)), []model.RowID{0, 5}},
		{"prefix", indexop.Leaf(indexop.Eq, v(1)), []model.RowID{1, 0, 5, 3}},
		{"prefix and range", indexop.NewAnd(
			indexop.Leaf(indexop.Eq, v(1)),
			indexop.Leaf(indexop.Gt, v(1), v(2)),
		), []model.RowID{0, 5, 3}},
		{"range stays in prefix", indexop.Leaf(indexop.Lt, v(1), v(5)), []model.RowID{1}},
		{"le", indexop.Leaf(indexop.Le, v(1), v(5)), []model.RowID{1, 0, 5}},
		{"ge", indexop.Leaf(indexop.Ge, v(1), v(5)), []model.RowID{0, 5, 3}},
		{"double range", indexop.NewAnd(
			indexop.Leaf(indexop.Ge, v(1), v(2)),
			indexop.Leaf(indexop.Lt, v(1), v(9)),
		), []model.RowID{1, 0, 5}},
		{"first field range", indexop.Leaf(indexop.Gt, v(1)), []model.RowID{2, 4, 6}},
		{"null position", indexop.Leaf(indexop.Eq, v(3), value.Null()), []model.RowID{4}},
		{"or in key order", indexop.NewOr(
			indexop.Leaf(indexop.Eq, v(2)),
			indexop.Leaf(indexop.Eq, v(1), v(2)),
		), []model.RowID{1, 2}},
		{"overlapping or without duplicates", indexop.NewOr(
			indexop.Leaf(indexop.Eq, v(1)),
			indexop.Leaf(indexop.Ge, v(1), v(5)),
		), []model.RowID{1, 0, 5, 3}},
		{"empty intersection", indexop.NewAnd(
			indexop.Leaf(indexop.Gt, v(1), v(5)),
			indexop.Leaf(indexop.Lt, v(1), v(5)),
		), nil},
		{"no match", indexop.Leaf(indexop.Eq, v(4)), nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ix.Lookup(ctx, tc.op)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	t.Run("reverse", func(t *testing.T) {
		got, err := ix.LookupOrdered(ctx, indexop.Leaf(indexop.Eq, v(1)), true)
		require.NoError(t, err)
		assert.Equal(t, []model.RowID{3, 5, 0, 1}, got)
	})

	t.Run("not implemented", func(t *testing.T) {
		_, err := ix.Lookup(ctx, indexop.Leaf(indexop.Ne, v(1)))
		assert.ErrorIs(t, err, index.ErrNotImplemented)
		_, err = ix.Lookup(ctx, indexop.NewNot(indexop.Leaf(indexop.Eq, v(1))))
		assert.ErrorIs(t, err, index.ErrNotImplemented)
	})

	t.Run("bad operator", func(t *testing.T) {
		_, err := ix.Lookup(ctx, indexop.Leaf(indexop.Eq, v(1), v(2), v(3)))
		assert.ErrorIs(t, err, index.ErrBadParameter)
		_, err = ix.Lookup(ctx, indexop.Leaf(indexop.Eq, value.Undefined(), v(2)))
		assert.ErrorIs(t, err, index.ErrBadParameter)
	})

	t.Run("all", func(t *testing.T) {
		got, err := ix.All(ctx, false)
		require.NoError(t, err)
		assert.Equal(t, []model.RowID{1, 0, 5, 3, 2, 4, 6}, got)
	})

	t.Run("remove", func(t *testing.T) {
		ix.Remove(0, rows[0])
		got, err := ix.Lookup(ctx, indexop.Leaf(indexop.Eq, v(1), v(5)))
		require.NoError(t, err)
		assert.Equal(t, []model.RowID{5}, got)
		assert.Equal(t, len(rows)-1, ix.Len())
	})
}

func TestCondition(t *testing.T) {
	ix := newIndex(t, "a", "b")
	for i := range 20 {
		require.NoError(t, ix.Insert(model.RowID(i), value.Document{"a": v(i % 2), "b": v(i)}))
	}

	op, err := indexop.SkiplistCondition(ix.Descriptor().Fields, v(map[string]any{
		"a": []any{[]any{"==", 1}},
		"b": []any{[]any{">=", 5}, []any{"<", 11}},
	}))
	require.NoError(t, err)

	got, err := ix.Lookup(context.Background(), op)
	require.NoError(t, err)
	assert.Equal(t, []model.RowID{5, 7, 9}, got)
}

func TestMatchesBruteForce(t *testing.T) {
	rng := testutil.NewRNG(4711)
	docs := rng.Documents(2000, 30, 0.1)

	ix := newIndex(t, "bucket", "n")
	for i, d := range docs {
		require.NoError(t, ix.Insert(model.RowID(i), d))
	}

	op := indexop.NewAnd(
		indexop.Leaf(indexop.Eq, v(3)),
		indexop.NewAnd(
			indexop.Leaf(indexop.Gt, v(3), v(100)),
			indexop.Leaf(indexop.Le, v(3), v(1500)),
		),
	)
	got, err := ix.Lookup(context.Background(), op)
	require.NoError(t, err)

	want := testutil.Filter(docs, func(d value.Document) bool {
		n, _ := d["n"].AsInt64()
		return d["bucket"].Equal(v(3)) && n > 100 && n <= 1500
	})
	// Ground truth is in row order, which matches n order here.
	assert.Equal(t, want, got)
}

func TestUnique(t *testing.T) {
	idx, err := index.New(index.Descriptor{ID: 1, Kind: index.KindSkiplist, Fields: []string{"a"}, Unique: true})
	require.NoError(t, err)
	require.NoError(t, idx.Insert(0, value.Document{"a": v(1)}))
	require.NoError(t, idx.Insert(1, value.Document{"a": v(2)}))

	var uv *index.ErrUniqueViolation
	assert.ErrorAs(t, idx.Insert(2, value.Document{"a": v(1.0)}), &uv)
}

func TestCancelled(t *testing.T) {
	ix := newIndex(t, "a")
	require.NoError(t, ix.Insert(0, value.Document{"a": v(1)}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ix.All(ctx, false)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPositions(t *testing.T) {
	before1 := &position{vals: []value.Value{v(1)}, sentinel: -1}
	after1 := &position{vals: []value.Value{v(1)}, sentinel: 1}
	before12 := &position{vals: []value.Value{v(1), v(2)}, sentinel: -1}

	assert.Equal(t, 1, comparePosition([]value.Value{v(1), v(0)}, before1))
	assert.Equal(t, -1, comparePosition([]value.Value{v(1), v(0)}, after1))
	assert.Equal(t, -1, comparePosition([]value.Value{v(1), v(0)}, before12))
	assert.Equal(t, -1, comparePositions(before1, before12, true))
	assert.Equal(t, 1, comparePositions(after1, before12, true))
	assert.Equal(t, -1, comparePositions(nil, before1, true))
	assert.Equal(t, 1, comparePositions(nil, before1, false))

	merged := normalize([]interval{
		{lo: before12, hi: after1},
		{lo: before1, hi: before12},
		{lo: after1, hi: before1},
	})
	require.Len(t, merged, 1)
	assert.Same(t, before1, merged[0].lo)
	assert.Same(t, after1, merged[0].hi)
}
