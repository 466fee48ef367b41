package indexop

import (
	"fmt"

	"github.com/hupe1980/docquery/value"
)

// SkiplistCondition builds an operator from a skiplist condition object:
//
//	{"a": [["==", 1]], "b": [[">", 2], ["<=", 9]]}
//
// Index fields are visited in order. Fields with "==" extend the equality
// prefix; the first field with range comparisons ("<", "<=", ">", ">=")
// contributes one leaf per comparison, each carrying the prefix plus its
// value. A condition on a later field after a range is an error. Visiting
// stops at the first field the condition does not mention.
func SkiplistCondition(fields []string, cond value.Value) (*Operator, error) {
	obj, ok := cond.AsObject()
	if !ok {
		return nil, fmt.Errorf("%w: condition must be an object", ErrBadParameter)
	}

	var (
		params    []value.Value
		last      *Operator
		numEq     int
		lastNonEq int
	)

fields:
	for i := 1; i <= len(fields); i++ {
		fieldConds, ok := obj[fields[i-1]]
		if !ok {
			break
		}
		conds, ok := fieldConds.AsArray()
		if !ok {
			break
		}

		for _, c := range conds {
			pair, ok := c.AsArray()
			if !ok || len(pair) != 2 {
				return nil, fmt.Errorf("%w: condition on %q must be an [operator, value] pair", ErrBadParameter, fields[i-1])
			}
			op, ok := pair[0].AsString()
			if !ok {
				return nil, fmt.Errorf("%w: operator on %q must be a string", ErrBadParameter, fields[i-1])
			}

			if op == "==" {
				if lastNonEq > 0 {
					return nil, fmt.Errorf("%w: equality on %q after a range", ErrBadParameter, fields[i-1])
				}
				params = append(params, pair[1])
				numEq++
				continue fields
			}

			if lastNonEq > 0 && lastNonEq != i {
				return nil, fmt.Errorf("%w: range on %q after a range on an earlier field", ErrBadParameter, fields[i-1])
			}
			t, ok := rangeOps[op]
			if !ok {
				return nil, fmt.Errorf("%w: unknown operator %q", ErrBadParameter, op)
			}
			lastNonEq = i

			if numEq > 0 {
				last = Leaf(Eq, cloneValues(params)...)
				numEq = 0
			}
			current := Leaf(t, withValue(params, pair[1])...)
			if last == nil {
				last = current
			} else {
				last = NewAnd(last, current)
			}
		}
	}

	if numEq > 0 {
		last = Leaf(Eq, params...)
	}
	if last == nil {
		return nil, fmt.Errorf("%w: condition uses no index field", ErrBadParameter)
	}
	return last, nil
}

var rangeOps = map[string]Type{
	"<":  Lt,
	"<=": Le,
	">":  Gt,
	">=": Ge,
}

// SkiplistExample builds an equality operator over the leading index fields
// present in example. Visiting stops at the first missing field.
func SkiplistExample(fields []string, example value.Document) (*Operator, error) {
	var params []value.Value
	for _, f := range fields {
		v, ok := exampleValue(example, f)
		if !ok {
			break
		}
		params = append(params, v)
	}
	if len(params) == 0 {
		return nil, fmt.Errorf("%w: example uses no leading index field", ErrBadParameter)
	}
	return Leaf(Eq, params...), nil
}

// HashSearchValue returns one value per index field, null for fields the
// example does not mention.
func HashSearchValue(fields []string, example value.Document) []value.Value {
	out := make([]value.Value, len(fields))
	for i, f := range fields {
		v, ok := exampleValue(example, f)
		if !ok {
			v = value.Null()
		}
		out[i] = v
	}
	return out
}

type connective struct {
	key string
	typ Type
}

// bitarrayConnectives lists the accepted keys in lookup priority order.
var bitarrayConnectives = []connective{
	{"&", And}, {"&&", And}, {"and", And},
	{"|", Or}, {"||", Or}, {"or", Or},
	{"!", Not}, {"not", Not},
	{"==", Eq}, {"=", Eq}, {"eq", Eq},
	{"!=", Ne}, {"<>", Ne}, {"ne", Ne},
	{"<=", Le}, {"le", Le},
	{"<", Lt}, {"lt", Lt},
	{">=", Ge}, {"ge", Ge},
	{">", Gt}, {"gt", Gt},
}

// BitarrayCondition builds an operator from a nested bitarray condition:
//
//	{"or": [{"==": {"x": 1}}, {"not": {"==": {"y": "a"}}}]}
//
// And and Or take a two-element array of condition objects, Not a single
// condition object, and comparisons an object of attribute values that is
// expanded like BitarrayExample.
func BitarrayCondition(fields []string, cond value.Value) (*Operator, error) {
	obj, ok := cond.AsObject()
	if !ok {
		return nil, fmt.Errorf("%w: condition must be an object", ErrBadParameter)
	}

	var (
		operand value.Value
		typ     Type
		found   bool
	)
	for _, c := range bitarrayConnectives {
		if v, ok := obj[c.key]; ok {
			operand, typ, found = v, c.typ, true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("%w: no operator in condition", ErrBadParameter)
	}

	switch typ {
	case And, Or:
		pair, ok := operand.AsArray()
		if !ok || len(pair) != 2 {
			return nil, fmt.Errorf("%w: %s requires [left, right]", ErrBadParameter, typ)
		}
		if pair[0].Kind != value.KindObject || pair[1].Kind != value.KindObject {
			return nil, fmt.Errorf("%w: %s operands must be objects", ErrBadParameter, typ)
		}
		left, err := BitarrayCondition(fields, pair[0])
		if err != nil {
			return nil, err
		}
		right, err := BitarrayCondition(fields, pair[1])
		if err != nil {
			return nil, err
		}
		return &Operator{Type: typ, Left: left, Right: right}, nil
	case Not:
		if operand.Kind != value.KindObject {
			return nil, fmt.Errorf("%w: not operand must be an object", ErrBadParameter)
		}
		inner, err := BitarrayCondition(fields, operand)
		if err != nil {
			return nil, err
		}
		return NewNot(inner), nil
	default:
		attrs, ok := operand.AsObject()
		if !ok {
			return nil, fmt.Errorf("%w: %s operand must be an object", ErrBadParameter, typ)
		}
		return Leaf(typ, bitarrayValues(fields, value.Document(attrs))...), nil
	}
}

// BitarrayExample builds one equality leaf over all index fields. Fields the
// example does not mention are unused; an empty list value is wrapped so it
// matches the empty list rather than no alternative at all.
func BitarrayExample(fields []string, example value.Document) (*Operator, error) {
	if example == nil {
		return nil, fmt.Errorf("%w: example must be an object", ErrBadParameter)
	}
	return Leaf(Eq, bitarrayValues(fields, example)...), nil
}

func bitarrayValues(fields []string, attrs value.Document) []value.Value {
	out := make([]value.Value, len(fields))
	for i, f := range fields {
		v, ok := exampleValue(attrs, f)
		if !ok {
			out[i] = value.Undefined()
			continue
		}
		if arr, isArr := v.AsArray(); isArr && len(arr) == 0 {
			v = value.Array(value.Array())
		}
		out[i] = v
	}
	return out
}

// exampleValue looks up a field first as a literal key, then as a dotted
// path through nested objects.
func exampleValue(example value.Document, field string) (value.Value, bool) {
	if v, ok := example[field]; ok {
		return v, true
	}
	return example.Get(field)
}

func cloneValues(vals []value.Value) []value.Value {
	out := make([]value.Value, len(vals))
	copy(out, vals)
	return out
}
