package optimizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/docquery/access"
	"github.com/hupe1980/docquery/ast"
	"github.com/hupe1980/docquery/value"
)

var (
	p = ast.Path
	c = ast.ConstOf
)

func TestOptimiseRanges(t *testing.T) {
	tests := []struct {
		name       string
		filter     *ast.Node
		want       string
		impossible bool
	}{
		{"equality", ast.Eq(p("u.x"), c(5)), "[u.x == 5]", false},
		{"constant on the left", ast.Lt(c(5), p("u.x")), "[u.x > 5]", false},
		{"contradicting ranges", ast.And(ast.Gt(p("u.x"), c(10)), ast.Lt(p("u.x"), c(5))), "[u.x (impossible)]", true},
		{"closed range collapses", ast.And(ast.Ge(p("u.x"), c(3)), ast.Le(p("u.x"), c(3))), "[u.x == 3]", false},
		{"tighter lower bound wins", ast.And(ast.Gt(p("u.x"), c(1)), ast.Le(c(9), p("u.x"))), "[u.x >= 9]", false},
		{"or of equalities", ast.Or(ast.Eq(p("u.x"), c(1)), ast.Eq(p("u.x"), c(2))), "[u.x in [1,2]]", false},
		{"or over different fields", ast.Or(ast.Eq(p("u.x"), c(1)), ast.Eq(p("u.y"), c(2))), "[u.x (all), u.y (all)]", false},
		{"or of ranges widens", ast.Or(ast.Gt(p("u.x"), c(1)), ast.Gt(p("u.x"), c(5))), "[u.x > 1]", false},
		{"or drops impossible branch", ast.Or(
			ast.And(ast.Gt(p("u.x"), c(10)), ast.Lt(p("u.x"), c(5))),
			ast.Eq(p("u.x"), c(1)),
		), "[u.x == 1]", false},
		{"in list", ast.In(p("u.x"), c([]any{3, 1, 1})), "[u.x in [1,3]]", false},
		{"in empty list", ast.In(p("u.x"), ast.List()), "[u.x (impossible)]", true},
		{"in scalar", ast.In(p("u.x"), c(5)), "[u.x (all)]", false},
		{"constant in attribute", ast.In(c(5), p("u.tags")), "[u.tags (all)]", false},
		{"not equal", ast.Ne(p("u.x"), c(1)), "[u.x (all)]", false},
		{"negation", ast.Not(ast.Eq(p("u.x"), c(1))), "[]", false},
		{"reference", ast.Lt(p("u.x"), p("v.y")), "[u.x < v.y, v.y > u.x]", false},
		{"variable reference", ast.Eq(p("u.x"), ast.Ref("v")), "[u.x == v]", false},
		{"same variable", ast.Eq(p("u.x"), p("u.y")), "[u.x (all), u.y (all)]", false},
		{"function operand", ast.Eq(p("u.x"), ast.Call("length", p("u.y"))), "[u.x (all)]", false},
		{"parameter operand", ast.Eq(p("u.x"), ast.Param("p")), "[u.x (all)]", false},
		{"bare function", ast.Call("is_null", p("u.x")), "[]", false},
		{"constant false", c(false), "[ (impossible)]", true},
		{"constant true", c(true), "[]", false},
		{"or false", ast.Or(ast.Eq(p("u.x"), c(1)), c(false)), "[u.x == 1]", false},
		{"and with wider or", ast.And(
			ast.Eq(p("u.x"), c(1)),
			ast.Or(ast.Eq(p("u.x"), c(2)), ast.Eq(p("u.y"), c(3))),
		), "[u.x == 1, u.y (all)]", false},
		{"nested path", ast.Eq(p("u.a.b"), c("z")), `[u.a.b == "z"]`, false},
		{"nil filter", nil, "[]", false},
	}

	o := New()
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res, err := o.OptimiseRanges(tc.filter, nil)
			require.NoError(t, err)
			assert.Equal(t, tc.want, res.Accesses.String())
			assert.Equal(t, tc.impossible, res.Impossible)
		})
	}
}

func TestOptimiseRangesInherited(t *testing.T) {
	inherited := access.NewAccesses(access.NewRange("u.x", 1, access.Upper(value.Int(5), false)))

	res, err := New().OptimiseRanges(ast.Gt(p("u.x"), c(1)), inherited)
	require.NoError(t, err)
	assert.Equal(t, "[u.x > 1 && < 5]", res.Accesses.String())

	res, err = New().OptimiseRanges(ast.Gt(p("u.x"), c(7)), inherited)
	require.NoError(t, err)
	assert.True(t, res.Impossible)

	// The inherited collection is not modified.
	assert.Equal(t, "[u.x < 5]", inherited.String())
}

func TestOptimiseRangesInvalid(t *testing.T) {
	_, err := New().OptimiseRanges(&ast.Node{Type: ast.NodeAnd, Members: []*ast.Node{c(true)}}, nil)
	assert.ErrorIs(t, err, ErrInvalidNode)

	_, err = New().OptimiseRanges(&ast.Node{Type: ast.NodeEq, Members: []*ast.Node{p("u.x")}}, nil)
	assert.ErrorIs(t, err, ErrInvalidNode)
}

func TestOptimise(t *testing.T) {
	o := New()

	scopes, err := o.Optimise([]Loop{
		{Variable: "u", Collection: "users", Filters: []*ast.Node{ast.Eq(p("u.a"), c(1))}},
		{Variable: "v", Collection: "orders", Filters: []*ast.Node{
			ast.Eq(p("v.b"), p("u.a")),
			ast.Gt(p("v.c"), c(2)),
		}},
	})
	require.NoError(t, err)
	require.Len(t, scopes, 2)

	assert.Equal(t, "[u.a == 1]", scopes[0].Accesses.String())
	assert.Equal(t, "[u.a == 1, v.b == u.a, v.c > 2]", scopes[1].Accesses.String())
	assert.Len(t, scopes[1].VariableAccesses(), 2)
	assert.False(t, scopes[1].Empty)

	scopes, err = o.Optimise([]Loop{
		{Variable: "u", Filters: []*ast.Node{c(false)}},
		{Variable: "v", Filters: []*ast.Node{ast.Eq(p("v.b"), c(1))}},
	})
	require.NoError(t, err)
	assert.True(t, scopes[0].Empty)
	assert.True(t, scopes[1].Empty)

	scopes, err = o.Optimise([]Loop{
		{Variable: "g", Source: ast.Call("near", ast.ConstOf("places"), c(0), c(0), c(10))},
		{Variable: "f", Source: ast.Call("fulltext", ast.ConstOf("docs"), c("text"), c("word"))},
		{Variable: "w", Source: ast.Call("length", c("x"))},
	})
	require.NoError(t, err)
	assert.Equal(t, SourceGeo, scopes[0].Source)
	assert.Equal(t, SourceFulltext, scopes[1].Source)
	assert.Equal(t, SourceCollection, scopes[2].Source)

	_, err = o.Optimise([]Loop{{}})
	assert.ErrorIs(t, err, ErrInvalidNode)
}
