package optimizer

import (
	"fmt"
	"slices"
	"strings"

	"github.com/hupe1980/docquery/access"
	"github.com/hupe1980/docquery/index"
	"github.com/hupe1980/docquery/indexop"
)

// SortKey orders results by an attribute of the loop variable.
type SortKey struct {
	Attribute  string
	Descending bool
}

// String renders the key as "a.b DESC".
func (k SortKey) String() string {
	if k.Descending {
		return k.Attribute + " DESC"
	}
	return k.Attribute + " ASC"
}

// Plan is the execution strategy for one scope.
type Plan struct {
	Variable string
	Source   SourceKind
	// Accesses are the scope's accesses on Variable.
	Accesses []*access.FieldAccess
	// Empty plans produce no rows and touch no index.
	Empty bool
	// Index is nil for a full collection scan.
	Index *IndexChoice
	// Operator is the lookup run against Index. It is nil for geo and
	// fulltext sources and for full ordered scans.
	Operator *indexop.Operator
	Sort     []SortKey
	// SortByIndex is set when the index order already satisfies Sort.
	SortByIndex bool
	// Reverse asks for the index order reversed.
	Reverse bool
}

// Plan selects an index for scope, builds its operator and decides whether
// the requested sort can be served by index order.
func (o *Optimiser) Plan(scope *Scope, descs []index.Descriptor, sort []SortKey) (*Plan, error) {
	p := &Plan{
		Variable: scope.Variable,
		Source:   scope.Source,
		Accesses: scope.VariableAccesses(),
		Empty:    scope.Empty,
		Sort:     sort,
	}
	if p.Empty {
		return p, nil
	}

	p.Index = ChooseIndex(scope, descs)
	if p.Index != nil && scope.Source == SourceCollection {
		op, err := buildOperator(p.Index)
		if err != nil {
			return nil, err
		}
		p.Operator = op
	}

	if len(sort) > 0 && scope.Source == SourceCollection {
		o.planSort(p, scope, descs)
	}

	o.logger.Debug("plan built",
		"variable", p.Variable,
		"index", p.IndexName(),
		"operator", p.Operator.String(),
		"sortByIndex", p.SortByIndex,
	)
	return p, nil
}

func buildOperator(c *IndexChoice) (*indexop.Operator, error) {
	n := len(c.Descriptor.Fields)
	switch c.Descriptor.Kind {
	case index.KindBitarray:
		return indexop.FromAccessesBitarray(c.Accesses, n)
	default:
		return indexop.FromAccesses(c.Accesses, n)
	}
}

// planSort marks the plan as sorted by index when a skiplist's field order
// matches the sort keys. Leading index fields pinned by an Exact access may
// be skipped. Without a usable index a matching skiplist is scanned in full.
func (o *Optimiser) planSort(p *Plan, scope *Scope, descs []index.Descriptor) {
	desc := p.Sort[0].Descending
	attrs := make([]string, len(p.Sort))
	for i, k := range p.Sort {
		if k.Descending != desc {
			return
		}
		attrs[i] = k.Attribute
	}

	matches := func(d index.Descriptor) bool {
		if d.Kind != index.KindSkiplist {
			return false
		}
		for skip := 0; skip+len(attrs) <= len(d.Fields); skip++ {
			if slices.Equal(d.Fields[skip:skip+len(attrs)], attrs) {
				return true
			}
			a := scope.Accesses.Get(scope.Variable + "." + d.Fields[skip])
			if a == nil || a.Kind() != access.KindExact {
				return false
			}
		}
		return false
	}

	if p.Index != nil {
		if matches(p.Index.Descriptor) {
			p.SortByIndex, p.Reverse = true, desc
		}
		return
	}

	for _, d := range descs {
		if matches(d) {
			p.Index = &IndexChoice{Descriptor: d}
			p.SortByIndex, p.Reverse = true, desc
			return
		}
	}
}

// FullScan is the IndexName of a plan without an index.
const FullScan = "full scan"

// IndexName describes the chosen index, FullScan if there is none.
func (p *Plan) IndexName() string {
	if p.Index == nil {
		return FullScan
	}
	return p.Index.Descriptor.String()
}

// String renders the plan for explain output.
func (p *Plan) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "FOR %s IN %s\n", p.Variable, p.Source)
	fmt.Fprintf(&b, "  accesses: %s\n", describeAccesses(p.Accesses))
	if p.Empty {
		b.WriteString("  empty: filter is impossible\n")
		return b.String()
	}

	b.WriteString("  index: ")
	b.WriteString(p.IndexName())
	if p.Index != nil && p.Index.Used > 0 {
		fmt.Fprintf(&b, " (%d of %d fields)", p.Index.Used, len(p.Index.Descriptor.Fields))
	}
	b.WriteByte('\n')

	if p.Operator != nil {
		fmt.Fprintf(&b, "  operator: %s\n", p.Operator)
	}

	if len(p.Sort) > 0 {
		keys := make([]string, len(p.Sort))
		for i, k := range p.Sort {
			keys[i] = k.String()
		}
		b.WriteString("  sort: ")
		b.WriteString(strings.Join(keys, ", "))
		switch {
		case p.SortByIndex && p.Reverse:
			b.WriteString(" (index order, reversed)")
		case p.SortByIndex:
			b.WriteString(" (index order)")
		default:
			b.WriteString(" (in memory)")
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func describeAccesses(accs []*access.FieldAccess) string {
	parts := make([]string, len(accs))
	for i, a := range accs {
		parts[i] = a.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
