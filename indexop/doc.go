// Package indexop builds index operators: typed trees of positional
// comparisons (==, !=, <, <=, >, >=) combined with &&, || and !.
//
// Operators come from two places. The planner turns the accesses chosen by
// the optimiser into an operator with FromAccesses or FromAccessesBitarray.
// The direct query surface turns user-supplied example and condition objects
// into operators with SkiplistExample, SkiplistCondition, BitarrayExample,
// BitarrayCondition and HashSearchValue.
//
// Leaf values are matched against the index fields by position. An
// undefined value marks a position that takes part in no comparison.
package indexop
