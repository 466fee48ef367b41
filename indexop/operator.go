package indexop

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hupe1980/docquery/value"
)

var (
	// ErrBadParameter is returned for malformed example or condition input.
	ErrBadParameter = errors.New("indexop: bad parameter")
	// ErrTooManyValues is returned when a leaf carries more values than the
	// target index has fields.
	ErrTooManyValues = errors.New("indexop: more values than index fields")
	// ErrNonPrefix is returned when an operator violates the equality-prefix
	// plus trailing-range shape required by ordered indexes.
	ErrNonPrefix = errors.New("indexop: operator is not an equality prefix with one trailing range")
)

// Type tags an Operator.
type Type uint8

const (
	Eq Type = iota
	Ne
	Lt
	Le
	Gt
	Ge
	And
	Or
	Not
)

// String implements fmt.Stringer.
func (t Type) String() string {
	switch t {
	case Eq:
		return "=="
	case Ne:
		return "!="
	case Lt:
		return "<"
	case Le:
		return "<="
	case Gt:
		return ">"
	case Ge:
		return ">="
	case And:
		return "&&"
	case Or:
		return "||"
	case Not:
		return "!"
	default:
		return fmt.Sprintf("Type(%d)", uint8(t))
	}
}

// IsLeaf reports whether t is a comparison.
func (t Type) IsLeaf() bool { return t <= Ge }

// IsRange reports whether t is one of <, <=, >, >=.
func (t Type) IsRange() bool { return t >= Lt && t <= Ge }

// Operator is a query against one index. Leaves compare index fields
// positionally against Values; And and Or combine Left and Right; Not negates
// Left.
type Operator struct {
	Type   Type
	Left   *Operator
	Right  *Operator
	Values []value.Value
}

// Leaf returns a comparison operator.
func Leaf(t Type, values ...value.Value) *Operator {
	return &Operator{Type: t, Values: values}
}

// NewAnd returns left && right.
func NewAnd(left, right *Operator) *Operator {
	return &Operator{Type: And, Left: left, Right: right}
}

// NewOr returns left || right.
func NewOr(left, right *Operator) *Operator {
	return &Operator{Type: Or, Left: left, Right: right}
}

// NewNot returns !operand.
func NewNot(operand *Operator) *Operator {
	return &Operator{Type: Not, Left: operand}
}

// Fold combines operators with t (And or Or) left to right. It returns nil
// for no operators.
func Fold(t Type, ops ...*Operator) *Operator {
	var out *Operator
	for _, op := range ops {
		if out == nil {
			out = op
			continue
		}
		out = &Operator{Type: t, Left: out, Right: op}
	}
	return out
}

// Leaves returns all leaves in left-to-right order.
func (o *Operator) Leaves() []*Operator {
	var out []*Operator
	var walk func(*Operator)
	walk = func(op *Operator) {
		if op == nil {
			return
		}
		if op.Type.IsLeaf() {
			out = append(out, op)
			return
		}
		walk(op.Left)
		walk(op.Right)
	}
	walk(o)
	return out
}

// Validate checks the operator against an index with fieldCount fields.
func (o *Operator) Validate(fieldCount int) error {
	if o == nil {
		return ErrBadParameter
	}
	switch {
	case o.Type.IsLeaf():
		if len(o.Values) > fieldCount {
			return fmt.Errorf("%w: %d values for %d fields", ErrTooManyValues, len(o.Values), fieldCount)
		}
		if len(o.Values) == 0 {
			return fmt.Errorf("%w: leaf without values", ErrBadParameter)
		}
		return nil
	case o.Type == Not:
		if o.Left == nil || o.Right != nil {
			return fmt.Errorf("%w: not requires one operand", ErrBadParameter)
		}
		return o.Left.Validate(fieldCount)
	default:
		if o.Left == nil || o.Right == nil {
			return fmt.Errorf("%w: %s requires two operands", ErrBadParameter, o.Type)
		}
		if err := o.Left.Validate(fieldCount); err != nil {
			return err
		}
		return o.Right.Validate(fieldCount)
	}
}

// ValidatePrefix additionally checks the shape ordered indexes support:
// every leaf has defined values, and only its last position may carry a
// range comparison. Not and Ne are rejected.
func (o *Operator) ValidatePrefix(fieldCount int) error {
	if err := o.Validate(fieldCount); err != nil {
		return err
	}
	var check func(*Operator) error
	check = func(op *Operator) error {
		switch {
		case op.Type == Not || op.Type == Ne:
			return fmt.Errorf("%w: %s", ErrNonPrefix, op.Type)
		case op.Type.IsLeaf():
			for _, v := range op.Values {
				if v.IsUndefined() {
					return fmt.Errorf("%w: unused position", ErrNonPrefix)
				}
			}
			return nil
		default:
			if err := check(op.Left); err != nil {
				return err
			}
			return check(op.Right)
		}
	}
	return check(o)
}

// String renders the operator tree, e.g. (== [1] && > [1,5]).
func (o *Operator) String() string {
	var b strings.Builder
	o.write(&b)
	return b.String()
}

func (o *Operator) write(b *strings.Builder) {
	if o == nil {
		b.WriteString("<nil>")
		return
	}
	switch {
	case o.Type.IsLeaf():
		b.WriteString(o.Type.String())
		b.WriteString(" [")
		for i, v := range o.Values {
			if i > 0 {
				b.WriteByte(',')
			}
			if v.IsUndefined() {
				b.WriteByte('_')
				continue
			}
			b.WriteString(v.String())
		}
		b.WriteByte(']')
	case o.Type == Not:
		b.WriteString("!(")
		o.Left.write(b)
		b.WriteByte(')')
	default:
		b.WriteByte('(')
		o.Left.write(b)
		b.WriteByte(' ')
		b.WriteString(o.Type.String())
		b.WriteByte(' ')
		o.Right.write(b)
		b.WriteByte(')')
	}
}
