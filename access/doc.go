// Package access implements the range and condition algebra of the access
// optimiser.
//
// A FieldAccess summarises what a filter says about one attribute path of one
// loop variable. Its Constraint is exactly one of:
//
//   - Impossible: no value qualifies
//   - Exact: one value
//   - List: a sorted set of values
//   - RangeSingle: one bound
//   - RangeDouble: a lower and an upper bound
//   - Reference: a comparison against another loop variable
//   - All: no usable constraint
//
// Merge folds two accesses under AND and never widens. MergeOr folds them
// under OR and never narrows. Compare ranks accesses for index selection.
package access
