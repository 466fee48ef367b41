// Package optimizer derives index access paths from filter expressions.
//
// OptimiseRanges walks a filter tree and produces one access.FieldAccess per
// constrained attribute path: equalities become Exact, IN lists become List,
// comparisons become ranges and comparisons against other loop variables
// become References. AND merges accesses, OR widens them, NOT and anything
// unsupported contribute nothing.
//
// Optimise applies this to nested loops, letting inner loops inherit the
// accesses of outer ones. ChooseIndex ranks the indexes of a collection for
// a scope, and Plan turns the choice into an executable indexop.Operator,
// deciding along the way whether a requested sort can be served by index
// order.
package optimizer
