package optimizer

import (
	"slices"

	"github.com/hupe1980/docquery/access"
	"github.com/hupe1980/docquery/index"
	"github.com/hupe1980/docquery/indexop"
)

// MaxLookupCombinations caps how many equality lookups a List-driven hash or
// skiplist access may expand to.
const MaxLookupCombinations = indexop.MaxCombinations

// PickAccess returns the best of the candidates by access.Compare. Ties go
// to the candidate declared first. It returns nil for no candidates.
func PickAccess(candidates ...*access.FieldAccess) *access.FieldAccess {
	var best *access.FieldAccess
	for _, c := range candidates {
		if c == nil {
			continue
		}
		if best == nil || access.Compare(c, best) < 0 {
			best = c
		}
	}
	return best
}

// worstAccess returns the worst of the non-nil accesses.
func worstAccess(accs []*access.FieldAccess) *access.FieldAccess {
	var worst *access.FieldAccess
	for _, a := range accs {
		if a == nil {
			continue
		}
		if worst == nil || access.Compare(a, worst) > 0 {
			worst = a
		}
	}
	return worst
}

// IndexChoice is an index selected for a scope.
type IndexChoice struct {
	Descriptor index.Descriptor
	// Accesses is aligned with Descriptor.Fields, nil where a field is not
	// used by the lookup. It is empty for geo and fulltext sources and for
	// full ordered scans.
	Accesses []*access.FieldAccess
	// Used is the number of fields the lookup uses.
	Used int

	worst *access.FieldAccess
	order int
}

// better reports whether c should be preferred over o.
func (c *IndexChoice) better(o *IndexChoice) bool {
	if r := access.Compare(c.worst, o.worst); r != 0 {
		return r < 0
	}
	if c.Used != o.Used {
		return c.Used > o.Used
	}
	if c.Descriptor.Kind != o.Descriptor.Kind {
		return c.Descriptor.Kind < o.Descriptor.Kind
	}
	return c.order < o.order
}

// ChooseIndex selects the index serving a scope, or nil for a full
// collection scan. Loops over NEAR/WITHIN use the first geo index and loops
// over FULLTEXT the fulltext index on the queried attribute; other loops
// rank every usable index by its worst used access, then by the number of
// fields used, then by kind and finally by declaration order.
func ChooseIndex(scope *Scope, descs []index.Descriptor) *IndexChoice {
	if scope.Empty {
		return nil
	}

	switch scope.Source {
	case SourceGeo:
		for _, d := range descs {
			if d.Kind.IsGeo() {
				return &IndexChoice{Descriptor: d}
			}
		}
		return nil
	case SourceFulltext:
		attr, _ := scope.SourceCall.Member(1).ConstValue()
		name, _ := attr.AsString()
		for _, d := range descs {
			if d.Kind == index.KindFulltext && d.Fields[0] == name {
				return &IndexChoice{Descriptor: d}
			}
		}
		return nil
	}

	var best *IndexChoice
	for i, d := range descs {
		accs := make([]*access.FieldAccess, len(d.Fields))
		for j, f := range d.Fields {
			accs[j] = scope.Accesses.Get(scope.Variable + "." + f)
		}

		c := candidate(d, accs)
		if c == nil {
			continue
		}
		c.order = i
		if best == nil || c.better(best) {
			best = c
		}
	}
	return best
}

func isPoint(a *access.FieldAccess) bool {
	if a == nil {
		return false
	}
	k := a.Kind()
	return k == access.KindExact || k == access.KindList
}

func candidate(d index.Descriptor, accs []*access.FieldAccess) *IndexChoice {
	switch d.Kind {
	case index.KindPrimary, index.KindHash:
		for _, a := range accs {
			if !isPoint(a) {
				return nil
			}
		}
		if indexop.Combinations(accs) > MaxLookupCombinations {
			return nil
		}
		return &IndexChoice{Descriptor: d, Accesses: accs, Used: len(accs), worst: worstAccess(accs)}

	case index.KindSkiplist:
		n, trailingRange := indexop.UsablePrefix(accs)
		if n == 0 {
			return nil
		}
		used := slices.Clone(accs[:n])
		eqs := used
		if trailingRange {
			eqs = used[:n-1]
		}
		if indexop.Combinations(eqs) > MaxLookupCombinations {
			return nil
		}
		return &IndexChoice{Descriptor: d, Accesses: used, Used: n, worst: worstAccess(used)}

	case index.KindBitarray:
		used := make([]*access.FieldAccess, len(accs))
		n := 0
		for i, a := range accs {
			if isPoint(a) {
				used[i] = a
				n++
			}
		}
		if n == 0 {
			return nil
		}
		return &IndexChoice{Descriptor: d, Accesses: used, Used: n, worst: worstAccess(used)}
	}
	return nil
}
