package access

// Accesses is an ordered collection holding at most one FieldAccess per full
// attribute path. Entries keep the order in which their path was first seen.
//
// If any entry is impossible the collection as a whole is impossible.
type Accesses struct {
	items []*FieldAccess
	index map[string]int
}

// NewAccesses returns a collection built by adding each access in order.
func NewAccesses(items ...*FieldAccess) *Accesses {
	s := &Accesses{index: make(map[string]int, len(items))}
	for _, a := range items {
		s.Add(a)
	}
	return s
}

// Add inserts a copy of a, merging it with an existing entry for the same
// path under logical AND.
func (s *Accesses) Add(a *FieldAccess) {
	if a == nil {
		return
	}
	if s.index == nil {
		s.index = make(map[string]int)
	}
	if i, ok := s.index[a.FullName]; ok {
		s.items[i] = Merge(s.items[i], a)
		return
	}
	s.index[a.FullName] = len(s.items)
	s.items = append(s.items, a.Clone())
}

// AddAll ANDs every entry of other into s.
func (s *Accesses) AddAll(other *Accesses) {
	if other == nil {
		return
	}
	for _, a := range other.items {
		s.Add(a)
	}
}

// Get returns the entry for fullName or nil.
func (s *Accesses) Get(fullName string) *FieldAccess {
	if s == nil {
		return nil
	}
	if i, ok := s.index[fullName]; ok {
		return s.items[i]
	}
	return nil
}

// Len returns the number of entries.
func (s *Accesses) Len() int {
	if s == nil {
		return 0
	}
	return len(s.items)
}

// Items returns the entries in insertion order. The slice must not be
// modified.
func (s *Accesses) Items() []*FieldAccess {
	if s == nil {
		return nil
	}
	return s.items
}

// ForVariable returns the entries belonging to the named loop variable.
func (s *Accesses) ForVariable(variable string) []*FieldAccess {
	var out []*FieldAccess
	for _, a := range s.Items() {
		if a.Variable() == variable {
			out = append(out, a)
		}
	}
	return out
}

// ContainsImpossible reports whether any entry is impossible.
func (s *Accesses) ContainsImpossible() bool {
	return ContainsImpossible(s.Items())
}

// ContainsImpossible reports whether any access in the slice is impossible.
func ContainsImpossible(items []*FieldAccess) bool {
	for _, a := range items {
		if a.IsImpossible() {
			return true
		}
	}
	return false
}

// Clone returns a deep copy.
func (s *Accesses) Clone() *Accesses {
	out := &Accesses{index: make(map[string]int, s.Len())}
	for _, a := range s.Items() {
		out.index[a.FullName] = len(out.items)
		out.items = append(out.items, a.Clone())
	}
	return out
}

// String renders the collection.
func (s *Accesses) String() string {
	return describe(s.Items())
}

// Intersect returns lhs AND rhs: entries for the same path are merged, all
// other entries pass through.
func Intersect(lhs, rhs *Accesses) *Accesses {
	out := lhs.Clone()
	out.AddAll(rhs)
	return out
}

// Union returns lhs OR rhs. A side that is impossible contributes nothing.
// Paths present on both sides are widened with MergeOr; paths present on
// only one side become All, since rows from the other branch may take any
// value there.
func Union(lhs, rhs *Accesses) *Accesses {
	lImpossible, rImpossible := lhs.ContainsImpossible(), rhs.ContainsImpossible()
	switch {
	case lImpossible && rImpossible:
		return lhs.Clone()
	case lImpossible:
		return rhs.Clone()
	case rImpossible:
		return lhs.Clone()
	}

	out := NewAccesses()
	for _, a := range lhs.Items() {
		if b := rhs.Get(a.FullName); b != nil {
			out.Add(MergeOr(a, b))
		} else {
			out.Add(NewAll(a.FullName, a.VariableNameLength))
		}
	}
	for _, b := range rhs.Items() {
		if lhs.Get(b.FullName) == nil {
			out.Add(NewAll(b.FullName, b.VariableNameLength))
		}
	}
	return out
}
