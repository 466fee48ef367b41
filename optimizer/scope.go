package optimizer

import (
	"fmt"

	"github.com/hupe1980/docquery/access"
	"github.com/hupe1980/docquery/ast"
)

// SourceKind says where a loop's rows come from.
type SourceKind uint8

const (
	// SourceCollection iterates a collection, possibly through an index.
	SourceCollection SourceKind = iota
	// SourceGeo iterates the result of NEAR or WITHIN.
	SourceGeo
	// SourceFulltext iterates the result of FULLTEXT.
	SourceFulltext
)

// String implements fmt.Stringer.
func (k SourceKind) String() string {
	switch k {
	case SourceGeo:
		return "geo"
	case SourceFulltext:
		return "fulltext"
	default:
		return "collection"
	}
}

// Loop describes one FOR loop of a query.
type Loop struct {
	Variable   string
	Collection string
	// Source is an optional NEAR, WITHIN or FULLTEXT call producing the rows.
	Source *ast.Node
	// Filters are the FILTER conditions attached to the loop.
	Filters []*ast.Node
}

// Scope is the optimised view of one loop.
type Scope struct {
	Variable   string
	Collection string
	Source     SourceKind
	SourceCall *ast.Node
	Filters    []*ast.Node
	// Accesses include those inherited from enclosing loops.
	Accesses *access.Accesses
	// Empty is set when the loop can produce no rows.
	Empty bool
}

// Filter returns the conjunction of the scope's filters, nil if none.
func (s *Scope) Filter() *ast.Node {
	return ast.Conjunction(s.Filters...)
}

// VariableAccesses returns the accesses on the scope's own variable.
func (s *Scope) VariableAccesses() []*access.FieldAccess {
	return s.Accesses.ForVariable(s.Variable)
}

// SourceKindOf classifies a loop source expression.
func SourceKindOf(source *ast.Node) SourceKind {
	if source == nil || source.Type != ast.NodeFCall {
		return SourceCollection
	}
	switch source.Name {
	case "NEAR", "WITHIN":
		return SourceGeo
	case "FULLTEXT":
		return SourceFulltext
	default:
		return SourceCollection
	}
}

// Optimise builds one scope per loop, outermost first. Each loop inherits
// the accesses of the loops enclosing it; once a loop is empty every nested
// loop is empty too.
func (o *Optimiser) Optimise(loops []Loop) ([]*Scope, error) {
	scopes := make([]*Scope, 0, len(loops))
	inherited := access.NewAccesses()
	empty := false

	for _, l := range loops {
		if l.Variable == "" {
			return nil, fmt.Errorf("%w: loop without variable", ErrInvalidNode)
		}

		s := &Scope{
			Variable:   l.Variable,
			Collection: l.Collection,
			Source:     SourceKindOf(l.Source),
			SourceCall: l.Source,
			Filters:    l.Filters,
		}

		res, err := o.OptimiseRanges(s.Filter(), inherited)
		if err != nil {
			return nil, fmt.Errorf("loop %s: %w", l.Variable, err)
		}
		s.Accesses = res.Accesses
		empty = empty || res.Impossible
		s.Empty = empty

		o.logger.Debug("scope optimised",
			"variable", s.Variable,
			"source", s.Source.String(),
			"accesses", s.Accesses.String(),
			"empty", s.Empty,
		)

		scopes = append(scopes, s)
		inherited = s.Accesses
	}
	return scopes, nil
}
