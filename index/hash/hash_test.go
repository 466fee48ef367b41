package hash

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/docquery/index"
	"github.com/hupe1980/docquery/indexop"
	"github.com/hupe1980/docquery/model"
	"github.com/hupe1980/docquery/value"
)

func doc(kv ...any) value.Document {
	d := value.Document{}
	for i := 0; i < len(kv); i += 2 {
		d[kv[i].(string)] = value.MustFromAny(kv[i+1])
	}
	return d
}

func TestLookup(t *testing.T) {
	ix := New(index.Descriptor{ID: 1, Kind: index.KindHash, Fields: []string{"x", "y"}})

	require.NoError(t, ix.Insert(0, doc("x", 5, "y", "a")))
	require.NoError(t, ix.Insert(1, doc("x", 5.0, "y", "a")))
	require.NoError(t, ix.Insert(2, doc("x", 6, "y", "a")))
	require.NoError(t, ix.Insert(3, doc("x", 6)))
	assert.Equal(t, 4, ix.Len())

	ctx := context.Background()

	t.Run("exact tuple", func(t *testing.T) {
		got, err := ix.Lookup(ctx, indexop.Leaf(indexop.Eq, value.Int(5), value.String("a")))
		require.NoError(t, err)
		assert.Equal(t, []model.RowID{0, 1}, got)
	})

	t.Run("missing attribute is null", func(t *testing.T) {
		got, err := ix.LookupValues(ctx, indexop.HashSearchValue(ix.Descriptor().Fields, doc("x", 6)))
		require.NoError(t, err)
		assert.Equal(t, []model.RowID{3}, got)
	})

	t.Run("alternatives deduplicated", func(t *testing.T) {
		op := indexop.NewOr(
			indexop.Leaf(indexop.Eq, value.Int(6), value.String("a")),
			indexop.NewOr(
				indexop.Leaf(indexop.Eq, value.Int(5), value.String("a")),
				indexop.Leaf(indexop.Eq, value.Int(6), value.String("a")),
			),
		)
		got, err := ix.Lookup(ctx, op)
		require.NoError(t, err)
		assert.Equal(t, []model.RowID{2, 0, 1}, got)
	})

	t.Run("no match", func(t *testing.T) {
		got, err := ix.Lookup(ctx, indexop.Leaf(indexop.Eq, value.Int(7), value.String("a")))
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("partial tuple rejected", func(t *testing.T) {
		_, err := ix.Lookup(ctx, indexop.Leaf(indexop.Eq, value.Int(5)))
		assert.ErrorIs(t, err, index.ErrBadParameter)
	})

	t.Run("range not supported", func(t *testing.T) {
		_, err := ix.Lookup(ctx, indexop.Leaf(indexop.Lt, value.Int(5), value.String("a")))
		assert.ErrorIs(t, err, index.ErrNotImplemented)
	})

	t.Run("cancelled", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := ix.Lookup(cctx, indexop.Leaf(indexop.Eq, value.Int(5), value.String("a")))
		assert.ErrorIs(t, err, context.Canceled)
	})

	ix.Remove(0, doc("x", 5, "y", "a"))
	got, err := ix.LookupValues(ctx, []value.Value{value.Int(5), value.String("a")})
	require.NoError(t, err)
	assert.Equal(t, []model.RowID{1}, got)
	assert.Equal(t, 3, ix.Len())
}

func TestUnique(t *testing.T) {
	idx, err := index.New(index.Descriptor{ID: 0, Kind: index.KindPrimary, Fields: []string{model.KeyAttribute}})
	require.NoError(t, err)
	assert.True(t, idx.Descriptor().Unique)

	require.NoError(t, idx.Insert(0, doc("_key", "a")))
	err = idx.Insert(1, doc("_key", "a"))

	var uv *index.ErrUniqueViolation
	require.True(t, errors.As(err, &uv))
	assert.Equal(t, []string{"_key"}, uv.Fields)

	idx.Remove(0, doc("_key", "a"))
	assert.NoError(t, idx.Insert(1, doc("_key", "a")))
}
