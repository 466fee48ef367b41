package optimizer

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/hupe1980/docquery/access"
	"github.com/hupe1980/docquery/ast"
)

// ErrInvalidNode is returned for operator nodes with the wrong number of
// operands.
var ErrInvalidNode = errors.New("optimizer: invalid node")

// Result is the outcome of optimising one filter.
type Result struct {
	// Accesses holds one entry per constrained attribute path.
	Accesses *access.Accesses
	// Impossible is set when no row can satisfy the filter.
	Impossible bool
}

// Option configures an Optimiser.
type Option func(*Optimiser)

// WithLogger sets the logger receiving debug traces of degraded leaves.
func WithLogger(l *slog.Logger) Option {
	return func(o *Optimiser) {
		if l != nil {
			o.logger = l
		}
	}
}

// Optimiser derives field accesses from filter expressions.
//
// It is stateless apart from its logger and safe for concurrent use.
type Optimiser struct {
	logger *slog.Logger
}

// New returns an Optimiser.
func New(optFns ...Option) *Optimiser {
	o := &Optimiser{logger: slog.New(slog.DiscardHandler)}
	for _, fn := range optFns {
		fn(o)
	}
	return o
}

// falseAccess marks a constant-false filter. It belongs to no variable, so it
// only shows up through ContainsImpossible.
func falseAccess() *access.FieldAccess {
	return access.NewImpossible("", 0)
}

// OptimiseRanges walks node and returns the accesses it implies, ANDed with
// the inherited accesses of enclosing scopes. Parts of the tree that cannot
// be used for index access contribute All or nothing; they never fail.
func (o *Optimiser) OptimiseRanges(node *ast.Node, inherited *access.Accesses) (Result, error) {
	accs, err := o.walk(node)
	if err != nil {
		return Result{}, err
	}
	if inherited != nil {
		accs = access.Intersect(inherited, accs)
	}
	return Result{Accesses: accs, Impossible: accs.ContainsImpossible()}, nil
}

func (o *Optimiser) walk(n *ast.Node) (*access.Accesses, error) {
	if n == nil {
		return access.NewAccesses(), nil
	}

	switch {
	case n.Type == ast.NodeAnd || n.Type == ast.NodeOr:
		if len(n.Members) != 2 {
			return nil, fmt.Errorf("%w: %s with %d operands", ErrInvalidNode, n.Type, len(n.Members))
		}
		lhs, err := o.walk(n.Members[0])
		if err != nil {
			return nil, err
		}
		rhs, err := o.walk(n.Members[1])
		if err != nil {
			return nil, err
		}
		if n.Type == ast.NodeAnd {
			return access.Intersect(lhs, rhs), nil
		}
		return access.Union(lhs, rhs), nil

	case n.Type == ast.NodeNot:
		return access.NewAccesses(), nil

	case n.IsConstant():
		v, _ := n.ConstValue()
		if v.Truthy() {
			return access.NewAccesses(), nil
		}
		return access.NewAccesses(falseAccess()), nil

	case n.Type.IsRelational():
		if len(n.Members) != 2 {
			return nil, fmt.Errorf("%w: %s with %d operands", ErrInvalidNode, n.Type, len(n.Members))
		}
		return access.NewAccesses(o.relational(n)...), nil

	default:
		return access.NewAccesses(), nil
	}
}

// operand is one side of a relational leaf.
type operand struct {
	node     *ast.Node
	name     string
	varLen   int
	isAttr   bool // attribute access rooted at a variable
	isVar    bool // bare variable reference
	constant bool
}

func classify(n *ast.Node) operand {
	op := operand{node: n, constant: n.IsConstant()}
	if name, varLen, ok := n.AttributeName(); ok {
		op.name, op.varLen = name, varLen
		op.isVar = n.Type == ast.NodeReference
		op.isAttr = !op.isVar
	}
	return op
}

func (op operand) variable() string { return op.name[:op.varLen] }

func (o *Optimiser) relational(n *ast.Node) []*access.FieldAccess {
	lhs, rhs := classify(n.Members[0]), classify(n.Members[1])

	if n.Type == ast.NodeIn {
		return o.in(n, lhs, rhs)
	}

	switch {
	case lhs.isAttr && rhs.constant:
		return []*access.FieldAccess{o.compare(n, lhs, n.Type, rhs)}
	case lhs.constant && rhs.isAttr:
		return []*access.FieldAccess{o.compare(n, rhs, n.Type.Reverse(), lhs)}
	case lhs.isAttr && (rhs.isAttr || rhs.isVar):
		return o.references(n, lhs, rhs)
	case rhs.isAttr && lhs.isVar:
		return o.references(n, lhs, rhs)
	case lhs.isAttr:
		return []*access.FieldAccess{o.degrade(n, lhs, "non-constant operand")}
	case rhs.isAttr:
		return []*access.FieldAccess{o.degrade(n, rhs, "non-constant operand")}
	}
	return nil
}

func (o *Optimiser) compare(n *ast.Node, attr operand, t ast.NodeType, c operand) *access.FieldAccess {
	v, _ := c.node.ConstValue()
	switch t {
	case ast.NodeEq:
		return access.NewExact(attr.name, attr.varLen, v)
	case ast.NodeLt:
		return access.NewRange(attr.name, attr.varLen, access.Upper(v, false))
	case ast.NodeLe:
		return access.NewRange(attr.name, attr.varLen, access.Upper(v, true))
	case ast.NodeGt:
		return access.NewRange(attr.name, attr.varLen, access.Lower(v, false))
	case ast.NodeGe:
		return access.NewRange(attr.name, attr.varLen, access.Lower(v, true))
	default:
		return o.degrade(n, attr, "operator "+t.String())
	}
}

func (o *Optimiser) in(n *ast.Node, lhs, rhs operand) []*access.FieldAccess {
	switch {
	case lhs.isAttr && rhs.constant:
		v, _ := rhs.node.ConstValue()
		list, ok := v.AsArray()
		if !ok {
			return []*access.FieldAccess{o.degrade(n, lhs, "in operand is not a list")}
		}
		return []*access.FieldAccess{access.NewList(lhs.name, lhs.varLen, list)}
	case lhs.isAttr && (rhs.isAttr || rhs.isVar) && lhs.variable() != rhs.variable():
		return []*access.FieldAccess{reference(lhs, rhs, ast.NodeIn)}
	case lhs.isAttr:
		return []*access.FieldAccess{o.degrade(n, lhs, "in operand is not constant")}
	case rhs.isAttr:
		return []*access.FieldAccess{o.degrade(n, rhs, "attribute on the right of in")}
	}
	return nil
}

// references handles comparisons between two variables' values.
func (o *Optimiser) references(n *ast.Node, lhs, rhs operand) []*access.FieldAccess {
	if n.Type == ast.NodeNe {
		var out []*access.FieldAccess
		for _, side := range []operand{lhs, rhs} {
			if side.isAttr {
				out = append(out, o.degrade(n, side, "operator !="))
			}
		}
		return out
	}

	if lhs.variable() == rhs.variable() {
		var out []*access.FieldAccess
		for _, side := range []operand{lhs, rhs} {
			if side.isAttr {
				out = append(out, o.degrade(n, side, "same-variable reference"))
			}
		}
		return out
	}

	var out []*access.FieldAccess
	if lhs.isAttr {
		out = append(out, reference(lhs, rhs, n.Type))
	}
	if rhs.isAttr {
		out = append(out, reference(rhs, lhs, n.Type.Reverse()))
	}
	return out
}

func reference(attr, target operand, t ast.NodeType) *access.FieldAccess {
	refType := access.RefAttributeAccess
	if target.isVar {
		refType = access.RefVariable
	}
	return access.NewReference(attr.name, attr.varLen, access.Reference{
		Type:     refType,
		Name:     target.name,
		Node:     target.node,
		Operator: t,
	})
}

func (o *Optimiser) degrade(n *ast.Node, attr operand, reason string) *access.FieldAccess {
	o.logger.Debug("access degraded to full scan",
		"attribute", attr.name,
		"reason", reason,
		"expression", n.String(),
	)
	return access.NewAll(attr.name, attr.varLen)
}
