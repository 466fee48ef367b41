package indexop

import (
	"fmt"

	"github.com/hupe1980/docquery/access"
	"github.com/hupe1980/docquery/value"
)

// MaxCombinations caps how many equality alternatives a List-driven prefix
// may expand to.
const MaxCombinations = 256

// ErrTooManyCombinations is returned when List accesses expand beyond
// MaxCombinations lookups.
var ErrTooManyCombinations = fmt.Errorf("indexop: more than %d lookup combinations", MaxCombinations)

// UsablePrefix returns how many leading accesses an ordered or hashed index
// can use: a run of Exact/List accesses, optionally followed by one range.
// The second result reports whether that trailing range is present.
func UsablePrefix(accs []*access.FieldAccess) (n int, trailingRange bool) {
	for _, a := range accs {
		if a == nil {
			return n, false
		}
		switch a.Kind() {
		case access.KindExact, access.KindList:
			n++
		case access.KindRangeSingle, access.KindRangeDouble:
			return n + 1, true
		default:
			return n, false
		}
	}
	return n, false
}

// Combinations returns the number of equality alternatives the Exact/List
// accesses in accs expand to.
func Combinations(accs []*access.FieldAccess) int {
	n := 1
	for _, a := range accs {
		if a == nil {
			continue
		}
		if l, ok := a.Constraint.(access.List); ok {
			n *= len(l.Values)
			if n > MaxCombinations {
				return n
			}
		}
	}
	return n
}

// FromAccesses builds an operator for an index whose ordered fields are
// matched positionally by accs (nil where a field has no access).
//
// Leading Exact and List accesses become the equality prefix; a List
// expands into an Or of alternatives. The first field without an equality
// may contribute one range leaf (or an And of two for a double range) and
// ends the prefix; later fields are ignored. A nil operator means no field is
// usable.
func FromAccesses(accs []*access.FieldAccess, fieldCount int) (*Operator, error) {
	if len(accs) > fieldCount {
		return nil, fmt.Errorf("%w: %d accesses for %d fields", ErrTooManyValues, len(accs), fieldCount)
	}

	n, trailingRange := UsablePrefix(accs)
	if n == 0 {
		return nil, nil
	}
	eqs := accs[:n]
	if trailingRange {
		eqs = accs[:n-1]
	}
	if Combinations(eqs) > MaxCombinations {
		return nil, ErrTooManyCombinations
	}

	prefixes := [][]value.Value{{}}
	for _, a := range eqs {
		switch c := a.Constraint.(type) {
		case access.Exact:
			for i := range prefixes {
				prefixes[i] = append(prefixes[i], c.Value)
			}
		case access.List:
			next := make([][]value.Value, 0, len(prefixes)*len(c.Values))
			for _, p := range prefixes {
				for _, v := range c.Values {
					next = append(next, withValue(p, v))
				}
			}
			prefixes = next
		}
	}

	branches := make([]*Operator, 0, len(prefixes))
	for _, p := range prefixes {
		if !trailingRange {
			branches = append(branches, Leaf(Eq, p...))
			continue
		}
		branches = append(branches, rangeOperator(p, accs[n-1].Constraint))
	}
	return Fold(Or, branches...), nil
}

// FromAccessesBitarray builds an operator for a bitarray index. Every field
// with an Exact, List or range access contributes one leaf with all other
// positions unused; the leaves are combined with And.
func FromAccessesBitarray(accs []*access.FieldAccess, fieldCount int) (*Operator, error) {
	if len(accs) > fieldCount {
		return nil, fmt.Errorf("%w: %d accesses for %d fields", ErrTooManyValues, len(accs), fieldCount)
	}

	var leaves []*Operator
	for i, a := range accs {
		if a == nil {
			continue
		}
		at := func(t Type, v value.Value) *Operator {
			vals := make([]value.Value, fieldCount)
			vals[i] = v
			return Leaf(t, vals...)
		}
		switch c := a.Constraint.(type) {
		case access.Exact:
			leaves = append(leaves, at(Eq, value.Array(c.Value)))
		case access.List:
			leaves = append(leaves, at(Eq, value.Array(c.Values...)))
		case access.RangeSingle:
			leaves = append(leaves, at(boundType(c.Bound.Type), c.Bound.Value))
		case access.RangeDouble:
			leaves = append(leaves, NewAnd(
				at(boundType(c.Lower.Type), c.Lower.Value),
				at(boundType(c.Upper.Type), c.Upper.Value),
			))
		}
	}
	return Fold(And, leaves...), nil
}

func rangeOperator(prefix []value.Value, c access.Constraint) *Operator {
	switch c := c.(type) {
	case access.RangeSingle:
		return Leaf(boundType(c.Bound.Type), withValue(prefix, c.Bound.Value)...)
	case access.RangeDouble:
		return NewAnd(
			Leaf(boundType(c.Lower.Type), withValue(prefix, c.Lower.Value)...),
			Leaf(boundType(c.Upper.Type), withValue(prefix, c.Upper.Value)...),
		)
	}
	return Leaf(Eq, prefix...)
}

func boundType(t access.BoundType) Type {
	switch t {
	case access.LowerExcluded:
		return Gt
	case access.LowerIncluded:
		return Ge
	case access.UpperExcluded:
		return Lt
	default:
		return Le
	}
}

func withValue(prefix []value.Value, v value.Value) []value.Value {
	out := make([]value.Value, len(prefix), len(prefix)+1)
	copy(out, prefix)
	return append(out, v)
}
