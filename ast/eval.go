package ast

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/hupe1980/docquery/value"
)

var (
	// ErrUnknownFunction is returned when a call names no registered function.
	ErrUnknownFunction = errors.New("ast: unknown function")
	// ErrUnboundVariable is returned for references missing from the bindings.
	ErrUnboundVariable = errors.New("ast: unbound variable")
	// ErrUnboundParameter is returned for bind parameters without a value.
	ErrUnboundParameter = errors.New("ast: unbound parameter")
	// ErrInvalidOperand is returned for arithmetic on non-numeric operands.
	ErrInvalidOperand = errors.New("ast: invalid operand")
)

// Bindings maps variable names to the current row values.
type Bindings map[string]value.Value

// Func is a scalar function callable from expressions.
type Func func(args []value.Value) (value.Value, error)

// EvalOption configures an Evaluator.
type EvalOption func(*Evaluator)

// WithFunction registers or replaces a function. Names are case-insensitive.
func WithFunction(name string, fn Func) EvalOption {
	return func(e *Evaluator) {
		e.funcs[strings.ToUpper(name)] = fn
	}
}

// WithParameters binds values for @parameters.
func WithParameters(params map[string]value.Value) EvalOption {
	return func(e *Evaluator) {
		for k, v := range params {
			e.params[k] = v
		}
	}
}

// Evaluator evaluates expression trees against row bindings.
//
// It is safe for concurrent use once constructed.
type Evaluator struct {
	funcs  map[string]Func
	params map[string]value.Value
}

// NewEvaluator returns an evaluator with the builtin function set.
func NewEvaluator(optFns ...EvalOption) *Evaluator {
	e := &Evaluator{
		funcs:  builtinFuncs(),
		params: make(map[string]value.Value),
	}
	for _, fn := range optFns {
		fn(e)
	}
	return e
}

// Matches evaluates a filter for one row. A nil filter matches everything.
func (e *Evaluator) Matches(filter *Node, bindings Bindings) (bool, error) {
	if filter == nil {
		return true, nil
	}
	v, err := e.Eval(filter, bindings)
	if err != nil {
		return false, err
	}
	return v.Truthy(), nil
}

// Eval evaluates n.
func (e *Evaluator) Eval(n *Node, bindings Bindings) (value.Value, error) {
	if n == nil {
		return value.Null(), nil
	}

	switch n.Type {
	case NodeValue:
		return n.Value, nil
	case NodeList:
		out := make([]value.Value, len(n.Members))
		for i, m := range n.Members {
			v, err := e.Eval(m, bindings)
			if err != nil {
				return value.Value{}, err
			}
			out[i] = v
		}
		return value.Array(out...), nil
	case NodeReference:
		v, ok := bindings[n.Name]
		if !ok {
			return value.Value{}, fmt.Errorf("%w: %s", ErrUnboundVariable, n.Name)
		}
		return v, nil
	case NodeAttributeAccess:
		base, err := e.Eval(n.Member(0), bindings)
		if err != nil {
			return value.Value{}, err
		}
		obj, ok := base.AsObject()
		if !ok {
			return value.Null(), nil
		}
		if v, ok := obj[n.Name]; ok {
			return v, nil
		}
		return value.Null(), nil
	case NodeParameter:
		v, ok := e.params[n.Name]
		if !ok {
			return value.Value{}, fmt.Errorf("%w: @%s", ErrUnboundParameter, n.Name)
		}
		return v, nil
	case NodeAnd:
		lhs, err := e.Eval(n.Member(0), bindings)
		if err != nil || !lhs.Truthy() {
			return value.Bool(false), err
		}
		rhs, err := e.Eval(n.Member(1), bindings)
		if err != nil {
			return value.Value{}, err
		}
		return value.Bool(rhs.Truthy()), nil
	case NodeOr:
		lhs, err := e.Eval(n.Member(0), bindings)
		if err != nil {
			return value.Value{}, err
		}
		if lhs.Truthy() {
			return value.Bool(true), nil
		}
		rhs, err := e.Eval(n.Member(1), bindings)
		if err != nil {
			return value.Value{}, err
		}
		return value.Bool(rhs.Truthy()), nil
	case NodeNot:
		v, err := e.Eval(n.Member(0), bindings)
		if err != nil {
			return value.Value{}, err
		}
		return value.Bool(!v.Truthy()), nil
	case NodeFCall:
		return e.call(n, bindings)
	}

	if n.Type.IsRelational() || n.Type.IsArithmetic() {
		lhs, err := e.Eval(n.Member(0), bindings)
		if err != nil {
			return value.Value{}, err
		}
		rhs, err := e.Eval(n.Member(1), bindings)
		if err != nil {
			return value.Value{}, err
		}
		if n.Type.IsArithmetic() {
			return arithmetic(n.Type, lhs, rhs)
		}
		return value.Bool(relational(n.Type, lhs, rhs)), nil
	}

	return value.Value{}, fmt.Errorf("ast: cannot evaluate node %q", n.Type)
}

func (e *Evaluator) call(n *Node, bindings Bindings) (value.Value, error) {
	fn, ok := e.funcs[n.Name]
	if !ok {
		return value.Value{}, fmt.Errorf("%w: %s", ErrUnknownFunction, n.Name)
	}
	args := make([]value.Value, len(n.Members))
	for i, m := range n.Members {
		v, err := e.Eval(m, bindings)
		if err != nil {
			return value.Value{}, err
		}
		args[i] = v
	}
	return fn(args)
}

func relational(t NodeType, lhs, rhs value.Value) bool {
	if t == NodeIn {
		list, ok := rhs.AsArray()
		if !ok {
			return false
		}
		return value.Contains(list, lhs)
	}

	c := value.Compare(lhs, rhs)
	switch t {
	case NodeEq:
		return c == 0
	case NodeNe:
		return c != 0
	case NodeLt:
		return c < 0
	case NodeLe:
		return c <= 0
	case NodeGt:
		return c > 0
	case NodeGe:
		return c >= 0
	}
	return false
}

func arithmetic(t NodeType, lhs, rhs value.Value) (value.Value, error) {
	a, okA := lhs.Number()
	b, okB := rhs.Number()
	if !okA || !okB {
		return value.Value{}, fmt.Errorf("%w: %s %s %s", ErrInvalidOperand, lhs.Kind, t, rhs.Kind)
	}

	if lhs.Kind == value.KindInt && rhs.Kind == value.KindInt && t != NodeDivide {
		x, y := lhs.I64, rhs.I64
		switch t {
		case NodePlus:
			return value.Int(x + y), nil
		case NodeMinus:
			return value.Int(x - y), nil
		case NodeTimes:
			return value.Int(x * y), nil
		case NodeModulus:
			if y == 0 {
				return value.Value{}, fmt.Errorf("%w: modulus by zero", ErrInvalidOperand)
			}
			return value.Int(x % y), nil
		}
	}

	switch t {
	case NodePlus:
		return value.Float(a + b), nil
	case NodeMinus:
		return value.Float(a - b), nil
	case NodeTimes:
		return value.Float(a * b), nil
	case NodeDivide:
		if b == 0 {
			return value.Value{}, fmt.Errorf("%w: division by zero", ErrInvalidOperand)
		}
		return value.Float(a / b), nil
	case NodeModulus:
		if b == 0 {
			return value.Value{}, fmt.Errorf("%w: modulus by zero", ErrInvalidOperand)
		}
		return value.Float(math.Mod(a, b)), nil
	}
	return value.Value{}, fmt.Errorf("ast: unsupported arithmetic %q", t)
}

func builtinFuncs() map[string]Func {
	return map[string]Func{
		"LENGTH": func(args []value.Value) (value.Value, error) {
			if len(args) != 1 {
				return value.Value{}, fmt.Errorf("LENGTH expects 1 argument, got %d", len(args))
			}
			switch a := args[0]; a.Kind {
			case value.KindString:
				return value.Int(int64(utf8.RuneCountInString(a.S))), nil
			case value.KindArray:
				return value.Int(int64(len(a.A))), nil
			case value.KindObject:
				return value.Int(int64(len(a.O))), nil
			case value.KindNull:
				return value.Int(0), nil
			default:
				return value.Value{}, fmt.Errorf("%w: LENGTH of %s", ErrInvalidOperand, a.Kind)
			}
		},
		"LOWER": stringFunc("LOWER", strings.ToLower),
		"UPPER": stringFunc("UPPER", strings.ToUpper),
		"IS_NULL": func(args []value.Value) (value.Value, error) {
			if len(args) != 1 {
				return value.Value{}, fmt.Errorf("IS_NULL expects 1 argument, got %d", len(args))
			}
			return value.Bool(args[0].IsNull()), nil
		},
		"CONTAINS": func(args []value.Value) (value.Value, error) {
			if len(args) != 2 {
				return value.Value{}, fmt.Errorf("CONTAINS expects 2 arguments, got %d", len(args))
			}
			s, ok1 := args[0].AsString()
			sub, ok2 := args[1].AsString()
			if !ok1 || !ok2 {
				return value.Bool(false), nil
			}
			return value.Bool(strings.Contains(s, sub)), nil
		},
	}
}

func stringFunc(name string, fn func(string) string) Func {
	return func(args []value.Value) (value.Value, error) {
		if len(args) != 1 {
			return value.Value{}, fmt.Errorf("%s expects 1 argument, got %d", name, len(args))
		}
		s, ok := args[0].AsString()
		if !ok {
			return value.Value{}, fmt.Errorf("%w: %s of %s", ErrInvalidOperand, name, args[0].Kind)
		}
		return value.String(fn(s)), nil
	}
}
