package optimizer

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/docquery/access"
	"github.com/hupe1980/docquery/ast"
	"github.com/hupe1980/docquery/index"
	"github.com/hupe1980/docquery/value"
)

var testDescriptors = []index.Descriptor{
	{ID: 0, Kind: index.KindPrimary, Fields: []string{"_key"}, Unique: true},
	{ID: 1, Kind: index.KindHash, Fields: []string{"a", "b"}},
	{ID: 2, Kind: index.KindSkiplist, Fields: []string{"a", "b", "c"}},
	{ID: 3, Kind: index.KindBitarray, Fields: []string{"t"}},
	{ID: 4, Kind: index.KindSkiplist, Fields: []string{"n"}},
	{ID: 5, Kind: index.KindGeo1, Fields: []string{"loc"}},
}

func planFor(t *testing.T, loop Loop, sort ...SortKey) *Plan {
	t.Helper()
	o := New()
	scopes, err := o.Optimise([]Loop{loop})
	require.NoError(t, err)
	p, err := o.Plan(scopes[0], testDescriptors, sort)
	require.NoError(t, err)
	return p
}

func TestPlanGolden(t *testing.T) {
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)

	tests := []struct {
		name   string
		filter *ast.Node
		source *ast.Node
		sort   []SortKey
	}{
		{
			name: "skiplist_prefix_range",
			filter: ast.Conjunction(
				ast.Eq(p("u.a"), c(1)),
				ast.Gt(p("u.b"), c(2)),
				ast.Eq(p("u.c"), c(3)),
			),
		},
		{
			name:   "hash_over_skiplist",
			filter: ast.And(ast.Eq(p("u.a"), c(1)), ast.Eq(p("u.b"), c(2))),
		},
		{
			name:   "primary_key",
			filter: ast.And(ast.Eq(p("u._key"), c("k1")), ast.Eq(p("u.a"), c(1))),
		},
		{
			name: "bitarray_alternatives",
			filter: ast.Or(
				ast.In(p("u.t"), c([]any{"x", "y"})),
				ast.Eq(p("u.t"), c("z")),
			),
		},
		{
			name:   "impossible",
			filter: ast.And(ast.Gt(p("u.a"), c(5)), ast.Lt(p("u.a"), c(1))),
		},
		{
			name:   "sort_reversed_after_pinned_field",
			filter: ast.Eq(p("u.a"), c(1)),
			sort:   []SortKey{{Attribute: "b", Descending: true}},
		},
		{
			name: "sort_full_index_scan",
			sort: []SortKey{{Attribute: "n"}},
		},
		{
			name:   "sort_in_memory",
			filter: ast.Eq(p("u.t"), c("x")),
			sort:   []SortKey{{Attribute: "n"}},
		},
		{
			name:   "hash_combinations",
			filter: ast.And(ast.In(p("u.a"), c([]any{1, 2})), ast.In(p("u.b"), c([]any{3, 4}))),
		},
		{
			name:   "geo_source",
			source: ast.Call("near", c("places"), c(50.9), c(6.9), c(3)),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var filters []*ast.Node
			if tc.filter != nil {
				filters = append(filters, tc.filter)
			}
			plan := planFor(t, Loop{Variable: "u", Collection: "users", Source: tc.source, Filters: filters}, tc.sort...)
			g.Assert(t, tc.name, []byte(plan.String()))
		})
	}
}

func TestPlanEmptySkipsIndexes(t *testing.T) {
	plan := planFor(t, Loop{Variable: "u", Filters: []*ast.Node{c(false)}})
	assert.True(t, plan.Empty)
	assert.Nil(t, plan.Index)
	assert.Nil(t, plan.Operator)
	assert.Equal(t, "full scan", plan.IndexName())
}

func TestPlanMixedSortDirections(t *testing.T) {
	plan := planFor(t, Loop{Variable: "u", Filters: []*ast.Node{ast.Eq(p("u.a"), c(1))}},
		SortKey{Attribute: "b"},
		SortKey{Attribute: "c", Descending: true},
	)
	assert.False(t, plan.SortByIndex)
	assert.Equal(t, "skiplist#2[a,b,c]", plan.IndexName())
}

func TestPlanSortNeedsPinnedPrefix(t *testing.T) {
	// b follows a in the skiplist, but a is only bounded by a range.
	plan := planFor(t, Loop{Variable: "u", Filters: []*ast.Node{ast.Gt(p("u.a"), c(1))}},
		SortKey{Attribute: "b"},
	)
	require.NotNil(t, plan.Index)
	assert.Equal(t, index.KindSkiplist, plan.Index.Descriptor.Kind)
	assert.False(t, plan.SortByIndex)
}

func TestChooseIndexFulltext(t *testing.T) {
	descs := []index.Descriptor{
		{ID: 1, Kind: index.KindFulltext, Fields: []string{"title"}},
		{ID: 2, Kind: index.KindFulltext, Fields: []string{"body"}},
	}
	scope := &Scope{
		Variable:   "d",
		Source:     SourceFulltext,
		SourceCall: ast.Call("fulltext", c("docs"), c("body"), c("word")),
		Accesses:   access.NewAccesses(),
	}
	choice := ChooseIndex(scope, descs)
	require.NotNil(t, choice)
	assert.Equal(t, index.ID(2), choice.Descriptor.ID)

	scope.SourceCall = ast.Call("fulltext", c("docs"), c("missing"), c("word"))
	assert.Nil(t, ChooseIndex(scope, descs))

	scope.Source = SourceGeo
	assert.Nil(t, ChooseIndex(scope, descs))
}

func TestChooseIndexCombinationLimit(t *testing.T) {
	vals := make([]any, 20)
	for i := range vals {
		vals[i] = i
	}
	plan := planFor(t, Loop{Variable: "u", Filters: []*ast.Node{
		ast.And(ast.In(p("u.a"), c(vals)), ast.In(p("u.b"), c(vals))),
	}})
	assert.Nil(t, plan.Index)
	assert.Nil(t, plan.Operator)
}

func TestPickAccess(t *testing.T) {
	exact := access.NewExact("u.x", 1, value.Int(1))
	list := access.NewList("u.x", 1, []value.Value{value.Int(1), value.Int(2)})
	longList := access.NewList("u.x", 1, []value.Value{value.Int(1), value.Int(2), value.Int(3)})
	rng := access.NewRange("u.x", 1, access.Lower(value.Int(1), false))
	narrow := access.NewRangeDouble("u.x", 1, access.Lower(value.Int(1), false), access.Upper(value.Int(2), false))
	wide := access.NewRangeDouble("u.x", 1, access.Lower(value.Int(1), false), access.Upper(value.Int(9), false))
	all := access.NewAll("u.x", 1)

	assert.Same(t, exact, PickAccess(all, rng, list, exact))
	assert.Same(t, list, PickAccess(longList, list))
	assert.Same(t, narrow, PickAccess(wide, narrow))
	assert.Same(t, rng, PickAccess(all, rng, wide))

	first := access.NewRange("u.x", 1, access.Upper(value.Int(5), false))
	assert.Same(t, first, PickAccess(nil, first, rng))
	assert.Nil(t, PickAccess())
}
