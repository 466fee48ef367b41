package access

import (
	"math"

	"github.com/hupe1980/docquery/value"
)

// Merge combines two accesses on the same field under logical AND. The
// result never admits a value that either input rejects, except that a
// Reference is kept only when nothing better is known: a Reference combined
// with a structurally different access yields the better-ranked of the two,
// leaving the other condition to the filter that is re-evaluated per row.
//
// The result carries a's name. Inputs are not modified.
func Merge(a, b *FieldAccess) *FieldAccess {
	return &FieldAccess{
		FullName:           a.FullName,
		VariableNameLength: a.VariableNameLength,
		Constraint:         and(a.Constraint, b.Constraint),
	}
}

// MergeOr combines two accesses on the same field under logical OR. The
// result admits every value either input admits; it widens to List, a range
// hull or All but never narrows.
func MergeOr(a, b *FieldAccess) *FieldAccess {
	return &FieldAccess{
		FullName:           a.FullName,
		VariableNameLength: a.VariableNameLength,
		Constraint:         or(a.Constraint, b.Constraint),
	}
}

func and(x, y Constraint) Constraint {
	if x.Kind() == KindImpossible || y.Kind() == KindImpossible {
		return Impossible{}
	}
	if x.Kind() == KindAll {
		return cloneConstraint(y)
	}
	if y.Kind() == KindAll {
		return cloneConstraint(x)
	}

	xr, xRef := x.(Reference)
	yr, yRef := y.(Reference)
	switch {
	case xRef && yRef:
		// Different references cannot be folded; keep the smaller one.
		if yr.compare(xr) < 0 {
			return yr
		}
		return xr
	case xRef:
		return cloneConstraint(y)
	case yRef:
		return cloneConstraint(x)
	}

	if xs, ok := points(x); ok {
		return fromPoints(filterPoints(xs, y))
	}
	if ys, ok := points(y); ok {
		return fromPoints(filterPoints(ys, x))
	}

	xl, xu := bounds(x)
	yl, yu := bounds(y)
	return fromBounds(pickBound(xl, yl, tighter), pickBound(xu, yu, tighter))
}

func or(x, y Constraint) Constraint {
	if x.Kind() == KindImpossible {
		return cloneConstraint(y)
	}
	if y.Kind() == KindImpossible {
		return cloneConstraint(x)
	}
	if x.Kind() == KindAll || y.Kind() == KindAll {
		return All{}
	}

	xr, xRef := x.(Reference)
	yr, yRef := y.(Reference)
	if xRef || yRef {
		if xRef && yRef && xr.equal(yr) {
			return xr
		}
		return All{}
	}

	xs, xPoints := points(x)
	ys, yPoints := points(y)
	if xPoints && yPoints {
		union := make([]value.Value, 0, len(xs)+len(ys))
		union = append(union, xs...)
		union = append(union, ys...)
		return fromPoints(value.SortUnique(cloneValues(union)))
	}

	xl, xu := bounds(x)
	yl, yu := bounds(y)
	var lower, upper *Bound
	if xl != nil && yl != nil {
		b := looser(*xl, *yl)
		lower = &b
	}
	if xu != nil && yu != nil {
		b := looser(*xu, *yu)
		upper = &b
	}
	return cloneConstraint(fromBounds(lower, upper))
}

func pickBound(a, b *Bound, pick func(Bound, Bound) Bound) *Bound {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	out := pick(*a, *b)
	return &out
}

func filterPoints(vals []value.Value, c Constraint) []value.Value {
	out := make([]value.Value, 0, len(vals))
	for _, v := range vals {
		if admits(c, v) {
			out = append(out, v.Clone())
		}
	}
	return out
}

func cloneValues(vals []value.Value) []value.Value {
	out := make([]value.Value, len(vals))
	for i := range vals {
		out[i] = vals[i].Clone()
	}
	return out
}

// Compare orders two accesses from better (-1) to worse (1). Kinds are ranked
// Impossible, Exact, List, RangeSingle, RangeDouble, Reference, All. Within a
// kind a shorter List wins and a RangeDouble with a narrower numeric span
// wins; everything else ties.
func Compare(a, b *FieldAccess) int {
	ka, kb := a.Kind(), b.Kind()
	if ka != kb {
		if ka < kb {
			return -1
		}
		return 1
	}

	switch ka {
	case KindList:
		la := len(a.Constraint.(List).Values)
		lb := len(b.Constraint.(List).Values)
		switch {
		case la < lb:
			return -1
		case la > lb:
			return 1
		}
	case KindRangeDouble:
		sa := span(a.Constraint.(RangeDouble))
		sb := span(b.Constraint.(RangeDouble))
		switch {
		case sa < sb:
			return -1
		case sa > sb:
			return 1
		}
	}
	return 0
}

// span is the numeric width of a range; non-numeric bounds are unbounded.
func span(r RangeDouble) float64 {
	lo, ok1 := r.Lower.Value.Number()
	hi, ok2 := r.Upper.Value.Number()
	if !ok1 || !ok2 {
		return math.Inf(1)
	}
	return hi - lo
}
