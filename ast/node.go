package ast

import (
	"fmt"
	"strings"

	"github.com/hupe1980/docquery/value"
)

// NodeType tags a Node.
type NodeType uint8

const (
	// NodeInvalid is the zero NodeType.
	NodeInvalid NodeType = iota
	// NodeValue is a constant literal.
	NodeValue
	// NodeList is an array literal whose members may be expressions.
	NodeList
	// NodeReference names a loop variable.
	NodeReference
	// NodeAttributeAccess reads attribute Name of its single member.
	NodeAttributeAccess
	// NodeParameter is a bind parameter.
	NodeParameter

	NodeEq
	NodeNe
	NodeLt
	NodeLe
	NodeGt
	NodeGe
	NodeIn

	NodeAnd
	NodeOr
	NodeNot

	NodePlus
	NodeMinus
	NodeTimes
	NodeDivide
	NodeModulus

	// NodeFCall is a function call; Name holds the upper-cased function name.
	NodeFCall
)

var nodeTypeNames = map[NodeType]string{
	NodeValue:           "value",
	NodeList:            "list",
	NodeReference:       "reference",
	NodeAttributeAccess: "attribute access",
	NodeParameter:       "parameter",
	NodeEq:              "==",
	NodeNe:              "!=",
	NodeLt:              "<",
	NodeLe:              "<=",
	NodeGt:              ">",
	NodeGe:              ">=",
	NodeIn:              "in",
	NodeAnd:             "&&",
	NodeOr:              "||",
	NodeNot:             "!",
	NodePlus:            "+",
	NodeMinus:           "-",
	NodeTimes:           "*",
	NodeDivide:          "/",
	NodeModulus:         "%",
	NodeFCall:           "function call",
}

// String returns the interchange name of the node type.
func (t NodeType) String() string {
	if s, ok := nodeTypeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("NodeType(%d)", uint8(t))
}

// ParseNodeType resolves an interchange name. A few aliases ("and", "or",
// "not", "eq", ...) are accepted.
func ParseNodeType(s string) (NodeType, error) {
	for t, name := range nodeTypeNames {
		if name == s {
			return t, nil
		}
	}
	switch strings.ToLower(s) {
	case "and":
		return NodeAnd, nil
	case "or":
		return NodeOr, nil
	case "not":
		return NodeNot, nil
	case "eq":
		return NodeEq, nil
	case "ne":
		return NodeNe, nil
	case "lt":
		return NodeLt, nil
	case "le":
		return NodeLe, nil
	case "gt":
		return NodeGt, nil
	case "ge":
		return NodeGe, nil
	case "fcall", "call":
		return NodeFCall, nil
	}
	return NodeInvalid, fmt.Errorf("ast: unknown node type %q", s)
}

// IsComparison reports whether t is one of ==, !=, <, <=, >, >=.
func (t NodeType) IsComparison() bool {
	return t >= NodeEq && t <= NodeGe
}

// IsRelational reports whether t is a comparison or the in operator.
func (t NodeType) IsRelational() bool {
	return t.IsComparison() || t == NodeIn
}

// IsArithmetic reports whether t is a binary arithmetic operator.
func (t NodeType) IsArithmetic() bool {
	return t >= NodePlus && t <= NodeModulus
}

// Reverse returns the comparison that holds when the operands are swapped.
func (t NodeType) Reverse() NodeType {
	switch t {
	case NodeLt:
		return NodeGt
	case NodeLe:
		return NodeGe
	case NodeGt:
		return NodeLt
	case NodeGe:
		return NodeLe
	default:
		return t
	}
}

// Node is an immutable node of a filter expression tree.
type Node struct {
	Type    NodeType
	Value   value.Value
	Name    string
	Members []*Node
}

// Const returns a constant literal node.
func Const(v value.Value) *Node {
	return &Node{Type: NodeValue, Value: v}
}

// ConstOf converts a Go value with value.FromAny and wraps it. It panics on
// unsupported input and is meant for tests and hand-built trees.
func ConstOf(v any) *Node {
	return Const(value.MustFromAny(v))
}

// List returns an array literal node.
func List(members ...*Node) *Node {
	return &Node{Type: NodeList, Members: members}
}

// Ref returns a variable reference.
func Ref(name string) *Node {
	return &Node{Type: NodeReference, Name: name}
}

// Attr returns an access of attribute name on base.
func Attr(base *Node, name string) *Node {
	return &Node{Type: NodeAttributeAccess, Name: name, Members: []*Node{base}}
}

// Path builds a reference followed by attribute accesses from a dotted
// path, e.g. Path("u.address.city").
func Path(path string) *Node {
	parts := strings.Split(path, ".")
	n := Ref(parts[0])
	for _, p := range parts[1:] {
		n = Attr(n, p)
	}
	return n
}

// Param returns a bind parameter node.
func Param(name string) *Node {
	return &Node{Type: NodeParameter, Name: name}
}

// Binary returns a binary operator node.
func Binary(t NodeType, lhs, rhs *Node) *Node {
	return &Node{Type: t, Members: []*Node{lhs, rhs}}
}

// Eq returns lhs == rhs.
func Eq(lhs, rhs *Node) *Node { return Binary(NodeEq, lhs, rhs) }

// Ne returns lhs != rhs.
func Ne(lhs, rhs *Node) *Node { return Binary(NodeNe, lhs, rhs) }

// Lt returns lhs < rhs.
func Lt(lhs, rhs *Node) *Node { return Binary(NodeLt, lhs, rhs) }

// Le returns lhs <= rhs.
func Le(lhs, rhs *Node) *Node { return Binary(NodeLe, lhs, rhs) }

// Gt returns lhs > rhs.
func Gt(lhs, rhs *Node) *Node { return Binary(NodeGt, lhs, rhs) }

// Ge returns lhs >= rhs.
func Ge(lhs, rhs *Node) *Node { return Binary(NodeGe, lhs, rhs) }

// In returns lhs in rhs.
func In(lhs, rhs *Node) *Node { return Binary(NodeIn, lhs, rhs) }

// And returns lhs && rhs.
func And(lhs, rhs *Node) *Node { return Binary(NodeAnd, lhs, rhs) }

// Or returns lhs || rhs.
func Or(lhs, rhs *Node) *Node { return Binary(NodeOr, lhs, rhs) }

// Not returns !operand.
func Not(operand *Node) *Node {
	return &Node{Type: NodeNot, Members: []*Node{operand}}
}

// Call returns a function call node. The name is upper-cased.
func Call(name string, args ...*Node) *Node {
	return &Node{Type: NodeFCall, Name: strings.ToUpper(name), Members: args}
}

// Conjunction folds nodes with &&. It returns nil for no nodes.
func Conjunction(nodes ...*Node) *Node {
	var out *Node
	for _, n := range nodes {
		if n == nil {
			continue
		}
		if out == nil {
			out = n
			continue
		}
		out = And(out, n)
	}
	return out
}

// Member returns the i-th member or nil.
func (n *Node) Member(i int) *Node {
	if n == nil || i < 0 || i >= len(n.Members) {
		return nil
	}
	return n.Members[i]
}

// IsConstant reports whether the node evaluates to the same value for every
// row without bind parameters.
func (n *Node) IsConstant() bool {
	if n == nil {
		return false
	}
	switch n.Type {
	case NodeValue:
		return true
	case NodeList:
		for _, m := range n.Members {
			if !m.IsConstant() {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// ConstValue returns the value of a constant node.
func (n *Node) ConstValue() (value.Value, bool) {
	if n == nil {
		return value.Value{}, false
	}
	switch n.Type {
	case NodeValue:
		return n.Value, true
	case NodeList:
		out := make([]value.Value, 0, len(n.Members))
		for _, m := range n.Members {
			v, ok := m.ConstValue()
			if !ok {
				return value.Value{}, false
			}
			out = append(out, v)
		}
		return value.Array(out...), true
	default:
		return value.Value{}, false
	}
}

// AttributeName resolves an attribute access chain rooted at a variable
// reference into its full dotted name ("u.address.city") and the length of
// the variable part ("u"). A bare reference yields just the variable name.
func (n *Node) AttributeName() (fullName string, variableNameLength int, ok bool) {
	var parts []string
	cur := n
	for cur != nil && cur.Type == NodeAttributeAccess {
		parts = append(parts, cur.Name)
		cur = cur.Member(0)
	}
	if cur == nil || cur.Type != NodeReference {
		return "", 0, false
	}

	var b strings.Builder
	b.WriteString(cur.Name)
	for i := len(parts) - 1; i >= 0; i-- {
		b.WriteByte('.')
		b.WriteString(parts[i])
	}
	return b.String(), len(cur.Name), true
}

// Variables returns the names of all variables referenced below n, in first
// occurrence order.
func (n *Node) Variables() []string {
	var out []string
	seen := map[string]struct{}{}
	n.Walk(func(c *Node) bool {
		if c.Type == NodeReference {
			if _, dup := seen[c.Name]; !dup {
				seen[c.Name] = struct{}{}
				out = append(out, c.Name)
			}
		}
		return true
	})
	return out
}

// Walk visits n and its members depth-first. Returning false from fn skips
// the members of the current node.
func (n *Node) Walk(fn func(*Node) bool) {
	if n == nil {
		return
	}
	if !fn(n) {
		return
	}
	for _, m := range n.Members {
		m.Walk(fn)
	}
}

// String renders the expression in query syntax.
func (n *Node) String() string {
	var b strings.Builder
	n.write(&b)
	return b.String()
}

func (n *Node) write(b *strings.Builder) {
	if n == nil {
		b.WriteString("<nil>")
		return
	}
	switch n.Type {
	case NodeValue:
		b.WriteString(n.Value.String())
	case NodeList:
		b.WriteByte('[')
		for i, m := range n.Members {
			if i > 0 {
				b.WriteString(", ")
			}
			m.write(b)
		}
		b.WriteByte(']')
	case NodeReference:
		b.WriteString(n.Name)
	case NodeAttributeAccess:
		n.Member(0).write(b)
		b.WriteByte('.')
		b.WriteString(n.Name)
	case NodeParameter:
		b.WriteByte('@')
		b.WriteString(n.Name)
	case NodeNot:
		b.WriteString("!")
		n.Member(0).write(b)
	case NodeFCall:
		b.WriteString(n.Name)
		b.WriteByte('(')
		for i, m := range n.Members {
			if i > 0 {
				b.WriteString(", ")
			}
			m.write(b)
		}
		b.WriteByte(')')
	default:
		b.WriteByte('(')
		n.Member(0).write(b)
		b.WriteByte(' ')
		b.WriteString(n.Type.String())
		b.WriteByte(' ')
		n.Member(1).write(b)
		b.WriteByte(')')
	}
}
