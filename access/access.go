package access

import (
	"cmp"
	"fmt"
	"strings"

	"github.com/hupe1980/docquery/ast"
	"github.com/hupe1980/docquery/value"
)

// Kind classifies a FieldAccess. Kinds are ordered from most to least
// selective.
type Kind uint8

const (
	KindImpossible Kind = iota
	KindExact
	KindList
	KindRangeSingle
	KindRangeDouble
	KindReference
	KindAll
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindImpossible:
		return "impossible"
	case KindExact:
		return "exact"
	case KindList:
		return "list"
	case KindRangeSingle:
		return "range single"
	case KindRangeDouble:
		return "range double"
	case KindReference:
		return "reference"
	case KindAll:
		return "all"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Constraint is the payload of a FieldAccess. The concrete types are
// Impossible, Exact, List, RangeSingle, RangeDouble, Reference and All.
type Constraint interface {
	Kind() Kind
	String() string
	isConstraint()
}

// Impossible matches no value.
type Impossible struct{}

// Exact matches a single value.
type Exact struct {
	Value value.Value
}

// List matches any of a sorted, duplicate-free set of values.
type List struct {
	Values []value.Value
}

// RangeSingle matches values on one side of a bound.
type RangeSingle struct {
	Bound Bound
}

// RangeDouble matches values between two bounds. Lower sorts strictly
// before Upper.
type RangeDouble struct {
	Lower Bound
	Upper Bound
}

// ReferenceType says what the other side of a Reference names.
type ReferenceType uint8

const (
	// RefVariable is a bare variable (a.x == b).
	RefVariable ReferenceType = iota
	// RefAttributeAccess is an attribute of another variable (a.x == b.y).
	RefAttributeAccess
)

// Reference compares the field against a non-constant expression on another
// variable. Operator is written from the field's point of view, so for
// a.x < b.y the Reference on a.x carries "<".
type Reference struct {
	Type     ReferenceType
	Name     string
	Node     *ast.Node
	Operator ast.NodeType
}

// All places no constraint on the field.
type All struct{}

func (Impossible) Kind() Kind  { return KindImpossible }
func (Exact) Kind() Kind       { return KindExact }
func (List) Kind() Kind        { return KindList }
func (RangeSingle) Kind() Kind { return KindRangeSingle }
func (RangeDouble) Kind() Kind { return KindRangeDouble }
func (Reference) Kind() Kind   { return KindReference }
func (All) Kind() Kind         { return KindAll }

func (Impossible) isConstraint()  {}
func (Exact) isConstraint()       {}
func (List) isConstraint()        {}
func (RangeSingle) isConstraint() {}
func (RangeDouble) isConstraint() {}
func (Reference) isConstraint()   {}
func (All) isConstraint()         {}

func (Impossible) String() string { return "impossible" }
func (c Exact) String() string    { return "== " + c.Value.String() }
func (c List) String() string     { return "in " + value.Array(c.Values...).String() }
func (c RangeSingle) String() string {
	return c.Bound.String()
}
func (c RangeDouble) String() string {
	return c.Lower.String() + " && " + c.Upper.String()
}
func (c Reference) String() string { return c.Operator.String() + " " + c.Name }
func (All) String() string         { return "all" }

func (r Reference) equal(o Reference) bool {
	return r.Type == o.Type && r.Name == o.Name && r.Operator == o.Operator
}

// compare orders references by name, then operator, then type.
func (r Reference) compare(o Reference) int {
	return cmp.Or(
		cmp.Compare(r.Name, o.Name),
		cmp.Compare(r.Operator, o.Operator),
		cmp.Compare(r.Type, o.Type),
	)
}

// FieldAccess summarises every known constraint on one attribute path of one
// loop variable.
type FieldAccess struct {
	// FullName is the variable-qualified path, e.g. "u.address.city".
	FullName string
	// VariableNameLength marks where the variable name ends in FullName.
	VariableNameLength int
	Constraint         Constraint
}

// New returns a FieldAccess with the given constraint. A nil constraint is
// treated as All.
func New(fullName string, variableNameLength int, c Constraint) *FieldAccess {
	if c == nil {
		c = All{}
	}
	return &FieldAccess{FullName: fullName, VariableNameLength: variableNameLength, Constraint: c}
}

// NewImpossible returns an access no row can satisfy.
func NewImpossible(fullName string, variableNameLength int) *FieldAccess {
	return New(fullName, variableNameLength, Impossible{})
}

// NewAll returns an unconstrained access.
func NewAll(fullName string, variableNameLength int) *FieldAccess {
	return New(fullName, variableNameLength, All{})
}

// NewExact returns an equality access.
func NewExact(fullName string, variableNameLength int, v value.Value) *FieldAccess {
	return New(fullName, variableNameLength, Exact{Value: v})
}

// NewList returns a membership access. Values are sorted and deduplicated;
// an empty list is Impossible and a single value Exact.
func NewList(fullName string, variableNameLength int, values []value.Value) *FieldAccess {
	cp := make([]value.Value, len(values))
	copy(cp, values)
	return New(fullName, variableNameLength, fromPoints(value.SortUnique(cp)))
}

// NewRange returns a single-bound range access.
func NewRange(fullName string, variableNameLength int, b Bound) *FieldAccess {
	return New(fullName, variableNameLength, RangeSingle{Bound: b})
}

// NewRangeDouble returns a double-bound range access, normalised to Exact
// or Impossible when the bounds meet or cross.
func NewRangeDouble(fullName string, variableNameLength int, lower, upper Bound) *FieldAccess {
	return New(fullName, variableNameLength, fromBounds(&lower, &upper))
}

// NewReference returns a cross-variable access.
func NewReference(fullName string, variableNameLength int, ref Reference) *FieldAccess {
	return New(fullName, variableNameLength, ref)
}

// Kind returns the kind of the access's constraint.
func (a *FieldAccess) Kind() Kind { return a.Constraint.Kind() }

// Variable returns the loop variable the access belongs to.
func (a *FieldAccess) Variable() string { return a.FullName[:a.VariableNameLength] }

// Attribute returns the attribute path without the variable prefix. It is
// empty for accesses on the variable itself.
func (a *FieldAccess) Attribute() string {
	if len(a.FullName) <= a.VariableNameLength+1 {
		return ""
	}
	return a.FullName[a.VariableNameLength+1:]
}

// IsImpossible reports whether the access can match no value.
func (a *FieldAccess) IsImpossible() bool { return a.Kind() == KindImpossible }

// Matches reports whether v satisfies the access. References and All admit
// every value.
func (a *FieldAccess) Matches(v value.Value) bool {
	return admits(a.Constraint, v)
}

// Clone returns a deep copy with an independent lifetime. Reference nodes are
// shared since AST nodes are immutable.
func (a *FieldAccess) Clone() *FieldAccess {
	if a == nil {
		return nil
	}
	return &FieldAccess{
		FullName:           a.FullName,
		VariableNameLength: a.VariableNameLength,
		Constraint:         cloneConstraint(a.Constraint),
	}
}

// String renders the access as "u.x == 5".
func (a *FieldAccess) String() string {
	switch a.Kind() {
	case KindImpossible, KindAll:
		return a.FullName + " (" + a.Constraint.String() + ")"
	}
	return a.FullName + " " + a.Constraint.String()
}

func cloneConstraint(c Constraint) Constraint {
	switch c := c.(type) {
	case Exact:
		return Exact{Value: c.Value.Clone()}
	case List:
		vals := make([]value.Value, len(c.Values))
		for i := range c.Values {
			vals[i] = c.Values[i].Clone()
		}
		return List{Values: vals}
	case RangeSingle:
		return RangeSingle{Bound: c.Bound.clone()}
	case RangeDouble:
		return RangeDouble{Lower: c.Lower.clone(), Upper: c.Upper.clone()}
	default:
		return c
	}
}

func admits(c Constraint, v value.Value) bool {
	switch c := c.(type) {
	case Impossible:
		return false
	case Exact:
		return value.Compare(c.Value, v) == 0
	case List:
		return value.Contains(c.Values, v)
	case RangeSingle:
		return c.Bound.Admits(v)
	case RangeDouble:
		return c.Lower.Admits(v) && c.Upper.Admits(v)
	default:
		return true
	}
}

// points returns the finite value set of an Exact or List constraint.
func points(c Constraint) ([]value.Value, bool) {
	switch c := c.(type) {
	case Exact:
		return []value.Value{c.Value}, true
	case List:
		return c.Values, true
	default:
		return nil, false
	}
}

// bounds returns the lower and upper bound of a range or point constraint.
// Nil means unbounded on that side.
func bounds(c Constraint) (lower, upper *Bound) {
	switch c := c.(type) {
	case Exact:
		lo, hi := Lower(c.Value, true), Upper(c.Value, true)
		return &lo, &hi
	case List:
		lo, hi := Lower(c.Values[0], true), Upper(c.Values[len(c.Values)-1], true)
		return &lo, &hi
	case RangeSingle:
		b := c.Bound
		if b.Type.IsLower() {
			return &b, nil
		}
		return nil, &b
	case RangeDouble:
		lo, hi := c.Lower, c.Upper
		return &lo, &hi
	default:
		return nil, nil
	}
}

func fromPoints(vals []value.Value) Constraint {
	switch len(vals) {
	case 0:
		return Impossible{}
	case 1:
		return Exact{Value: vals[0]}
	default:
		return List{Values: vals}
	}
}

func fromBounds(lower, upper *Bound) Constraint {
	switch {
	case lower == nil && upper == nil:
		return All{}
	case lower == nil:
		return RangeSingle{Bound: *upper}
	case upper == nil:
		return RangeSingle{Bound: *lower}
	}

	c := value.Compare(lower.Value, upper.Value)
	switch {
	case c > 0:
		return Impossible{}
	case c == 0:
		if lower.Type.IsInclusive() && upper.Type.IsInclusive() {
			return Exact{Value: lower.Value}
		}
		return Impossible{}
	default:
		return RangeDouble{Lower: *lower, Upper: *upper}
	}
}

// describe is used by Accesses.String.
func describe(items []*FieldAccess) string {
	parts := make([]string, len(items))
	for i, a := range items {
		parts[i] = a.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
