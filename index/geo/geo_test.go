package geo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/docquery/index"
	"github.com/hupe1980/docquery/model"
	"github.com/hupe1980/docquery/testutil"
	"github.com/hupe1980/docquery/value"
)

func v(x any) value.Value { return value.MustFromAny(x) }

func TestDistance(t *testing.T) {
	assert.InDelta(t, 0, Distance(50, 8, 50, 8), 1e-9)
	// One degree of latitude.
	assert.InDelta(t, 111195, Distance(0, 0, 1, 0), 1)
	// Cologne to Frankfurt.
	assert.InDelta(t, 152000, Distance(50.9375, 6.9603, 50.1109, 8.6821), 2000)
}

func TestGeo1(t *testing.T) {
	idx, err := index.New(index.Descriptor{ID: 1, Kind: index.KindGeo1, Fields: []string{"loc"}})
	require.NoError(t, err)
	ix := idx.(*Index)

	docs := []value.Document{
		{"loc": v([]any{0, 0})},
		{"loc": v([]any{0, 2})},
		{"loc": v([]any{0, 1})},
		{"loc": v([]any{"a", 1})},
		{"loc": v([]any{95, 1})},
		{},
	}
	for i, d := range docs {
		require.NoError(t, ix.Insert(model.RowID(i), d))
	}
	assert.Equal(t, 3, ix.Len())

	ctx := context.Background()

	got, err := ix.Near(ctx, 0, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, []model.RowID{0, 2}, model.RowIDs(got))
	assert.InDelta(t, 0, got[0].Score, 1e-9)
	assert.InDelta(t, 111195, got[1].Score, 1)

	got, err = ix.Near(ctx, 0, 3, 10)
	require.NoError(t, err)
	assert.Equal(t, []model.RowID{1, 2, 0}, model.RowIDs(got))

	got, err = ix.Within(ctx, 0, 0, 150000)
	require.NoError(t, err)
	assert.Equal(t, []model.RowID{0, 2}, model.RowIDs(got))

	got, err = ix.Within(ctx, 10, 0, 1000)
	require.NoError(t, err)
	assert.Empty(t, got)

	ix.Remove(0, docs[0])
	got, err = ix.Near(ctx, 0, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, []model.RowID{2}, model.RowIDs(got))
}

func TestGeoJSONAndGeo2(t *testing.T) {
	idx, err := index.New(index.Descriptor{ID: 1, Kind: index.KindGeo1, Fields: []string{"loc"}, GeoJSON: true})
	require.NoError(t, err)
	require.NoError(t, idx.Insert(0, value.Document{"loc": v([]any{100, 10})}))

	got, err := idx.(*Index).Near(context.Background(), 10, 100, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.InDelta(t, 0, got[0].Score, 1e-6)

	idx, err = index.New(index.Descriptor{ID: 2, Kind: index.KindGeo2, Fields: []string{"lat", "lon"}})
	require.NoError(t, err)
	require.NoError(t, idx.Insert(0, value.Document{"lat": v(10), "lon": v(100)}))
	require.NoError(t, idx.Insert(1, value.Document{"lat": v(10)}))
	assert.Equal(t, 1, idx.Len())

	_, err = index.New(index.Descriptor{Kind: index.KindGeo2, Fields: []string{"lat"}})
	assert.ErrorIs(t, err, index.ErrBadParameter)
}

func TestMatchesBruteForce(t *testing.T) {
	rng := testutil.NewRNG(4711)
	docs := rng.Documents(1500, 5, 0)

	idx, err := index.New(index.Descriptor{ID: 1, Kind: index.KindGeo1, Fields: []string{"loc"}})
	require.NoError(t, err)
	ix := idx.(*Index)
	for i, d := range docs {
		require.NoError(t, ix.Insert(model.RowID(i), d))
	}

	const radius = 2000000.0
	got, err := ix.Within(context.Background(), 40, 10, radius)
	require.NoError(t, err)

	want := testutil.Filter(docs, func(d value.Document) bool {
		loc, _ := d["loc"].AsArray()
		lat, _ := loc[0].Number()
		lon, _ := loc[1].Number()
		return Distance(40, 10, lat, lon) <= radius
	})
	assert.ElementsMatch(t, want, model.RowIDs(got))

	for i := 1; i < len(got); i++ {
		assert.LessOrEqual(t, got[i-1].Score, got[i].Score)
	}

	near, err := ix.Near(context.Background(), 40, 10, 5)
	require.NoError(t, err)
	require.Len(t, near, 5)
	if len(got) >= 5 {
		assert.Equal(t, model.RowIDs(got[:5]), model.RowIDs(near))
	}
}

func TestErrors(t *testing.T) {
	ix := New(index.Descriptor{Kind: index.KindGeo1, Fields: []string{"loc"}})
	ctx := context.Background()

	_, err := ix.Near(ctx, 91, 0, 1)
	assert.ErrorIs(t, err, index.ErrBadParameter)
	_, err = ix.Near(ctx, 0, 0, 0)
	assert.ErrorIs(t, err, index.ErrBadParameter)
	_, err = ix.Within(ctx, 0, 0, -1)
	assert.ErrorIs(t, err, index.ErrBadParameter)

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	_, err = ix.Within(cctx, 0, 0, 1)
	assert.ErrorIs(t, err, context.Canceled)
}
