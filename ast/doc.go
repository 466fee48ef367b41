// Package ast defines the filter expression tree consumed by the access
// optimiser and a small tree-walking evaluator used to re-check filters on
// candidate rows.
//
// Trees are built either with the constructors in this package or decoded
// from the JSON interchange form emitted by a query front end:
//
//	filter := ast.And(
//	    ast.Eq(ast.Path("u.name"), ast.ConstOf("alice")),
//	    ast.Gt(ast.Path("u.age"), ast.ConstOf(30)),
//	)
//
// Nodes are never mutated after construction.
package ast
