package ast

import (
	"encoding/json"
	"fmt"

	"github.com/hupe1980/docquery/value"
)

// jsonNode is the interchange form produced by the query front end.
type jsonNode struct {
	Type    string       `json:"type"`
	Name    string       `json:"name,omitempty"`
	Value   *value.Value `json:"value,omitempty"`
	Members []*jsonNode  `json:"subNodes,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (n *Node) MarshalJSON() ([]byte, error) {
	return json.Marshal(toJSONNode(n))
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *Node) UnmarshalJSON(data []byte) error {
	var jn jsonNode
	if err := json.Unmarshal(data, &jn); err != nil {
		return err
	}
	parsed, err := fromJSONNode(&jn)
	if err != nil {
		return err
	}
	*n = *parsed
	return nil
}

// ParseJSON decodes an expression tree from its JSON interchange form:
//
//	{"type": "==", "subNodes": [
//	  {"type": "attribute access", "name": "x", "subNodes": [{"type": "reference", "name": "u"}]},
//	  {"type": "value", "value": 5}
//	]}
func ParseJSON(data []byte) (*Node, error) {
	var n Node
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

func toJSONNode(n *Node) *jsonNode {
	if n == nil {
		return nil
	}
	jn := &jsonNode{Type: n.Type.String(), Name: n.Name}
	if n.Type == NodeValue {
		v := n.Value
		jn.Value = &v
	}
	for _, m := range n.Members {
		jn.Members = append(jn.Members, toJSONNode(m))
	}
	return jn
}

func fromJSONNode(jn *jsonNode) (*Node, error) {
	if jn == nil {
		return nil, fmt.Errorf("ast: null node")
	}
	t, err := ParseNodeType(jn.Type)
	if err != nil {
		return nil, err
	}

	n := &Node{Type: t, Name: jn.Name}
	if t == NodeValue {
		if jn.Value == nil {
			n.Value = value.Null()
		} else {
			n.Value = *jn.Value
		}
	}
	for _, jm := range jn.Members {
		m, err := fromJSONNode(jm)
		if err != nil {
			return nil, err
		}
		n.Members = append(n.Members, m)
	}

	if err := n.validate(); err != nil {
		return nil, err
	}
	return n, nil
}

func (n *Node) validate() error {
	want := -1
	switch {
	case n.Type == NodeAttributeAccess, n.Type == NodeNot:
		want = 1
	case n.Type.IsRelational(), n.Type == NodeAnd, n.Type == NodeOr, n.Type.IsArithmetic():
		want = 2
	case n.Type == NodeValue, n.Type == NodeReference, n.Type == NodeParameter:
		want = 0
	}
	if want >= 0 && len(n.Members) != want {
		return fmt.Errorf("ast: node %q expects %d members, got %d", n.Type, want, len(n.Members))
	}
	if (n.Type == NodeReference || n.Type == NodeAttributeAccess || n.Type == NodeParameter || n.Type == NodeFCall) && n.Name == "" {
		return fmt.Errorf("ast: node %q requires a name", n.Type)
	}
	return nil
}
