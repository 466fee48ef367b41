package access

import (
	"fmt"

	"github.com/hupe1980/docquery/value"
)

// BoundType says which side of the value line a Bound restricts and whether
// the bound value itself is admitted.
type BoundType uint8

const (
	LowerExcluded BoundType = iota
	LowerIncluded
	UpperExcluded
	UpperIncluded
)

// IsLower reports whether the bound restricts from below.
func (t BoundType) IsLower() bool { return t == LowerExcluded || t == LowerIncluded }

// IsInclusive reports whether the bound value itself is admitted.
func (t BoundType) IsInclusive() bool { return t == LowerIncluded || t == UpperIncluded }

// Operator returns the comparison operator a value must satisfy against the
// bound: ">", ">=", "<" or "<=".
func (t BoundType) Operator() string {
	switch t {
	case LowerExcluded:
		return ">"
	case LowerIncluded:
		return ">="
	case UpperExcluded:
		return "<"
	case UpperIncluded:
		return "<="
	default:
		return "?"
	}
}

// String implements fmt.Stringer.
func (t BoundType) String() string {
	switch t {
	case LowerExcluded:
		return "lower excluded"
	case LowerIncluded:
		return "lower included"
	case UpperExcluded:
		return "upper excluded"
	case UpperIncluded:
		return "upper included"
	default:
		return fmt.Sprintf("BoundType(%d)", uint8(t))
	}
}

// Bound is one side of a range.
type Bound struct {
	Value value.Value
	Type  BoundType
}

// Lower returns a lower bound.
func Lower(v value.Value, inclusive bool) Bound {
	if inclusive {
		return Bound{Value: v, Type: LowerIncluded}
	}
	return Bound{Value: v, Type: LowerExcluded}
}

// Upper returns an upper bound.
func Upper(v value.Value, inclusive bool) Bound {
	if inclusive {
		return Bound{Value: v, Type: UpperIncluded}
	}
	return Bound{Value: v, Type: UpperExcluded}
}

// Admits reports whether v satisfies the bound.
func (b Bound) Admits(v value.Value) bool {
	c := value.Compare(v, b.Value)
	switch b.Type {
	case LowerExcluded:
		return c > 0
	case LowerIncluded:
		return c >= 0
	case UpperExcluded:
		return c < 0
	case UpperIncluded:
		return c <= 0
	}
	return false
}

// String renders the bound as "> 5".
func (b Bound) String() string {
	return b.Type.Operator() + " " + b.Value.String()
}

func (b Bound) clone() Bound {
	return Bound{Value: b.Value.Clone(), Type: b.Type}
}

// tighter returns the more restrictive of two bounds on the same side. At an
// equal value the exclusive bound wins.
func tighter(a, b Bound) Bound {
	c := value.Compare(a.Value, b.Value)
	if a.Type.IsLower() {
		c = -c
	}
	switch {
	case c < 0:
		return a
	case c > 0:
		return b
	case !a.Type.IsInclusive():
		return a
	default:
		return b
	}
}

// looser returns the less restrictive of two bounds on the same side. At an
// equal value the inclusive bound wins.
func looser(a, b Bound) Bound {
	c := value.Compare(a.Value, b.Value)
	if a.Type.IsLower() {
		c = -c
	}
	switch {
	case c > 0:
		return a
	case c < 0:
		return b
	case a.Type.IsInclusive():
		return a
	default:
		return b
	}
}
