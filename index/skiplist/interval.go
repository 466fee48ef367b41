package skiplist

import (
	"slices"

	"github.com/hupe1980/docquery/value"
)

// position is a point between index tuples. It sits just before (sentinel
// -1) or just after (sentinel +1) every tuple starting with vals.
type position struct {
	vals     []value.Value
	sentinel int
}

// comparePosition compares a stored tuple with a position. It never
// returns 0.
func comparePosition(tuple []value.Value, p *position) int {
	for i, v := range p.vals {
		if i >= len(tuple) {
			return -1
		}
		if c := value.Compare(tuple[i], v); c != 0 {
			return c
		}
	}
	return -p.sentinel
}

// comparePositions orders two positions. A nil lower position is minus
// infinity and a nil upper position plus infinity; callers pass isLower to
// say which applies.
func comparePositions(a, b *position, isLower bool) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		if isLower {
			return -1
		}
		return 1
	case b == nil:
		if isLower {
			return 1
		}
		return -1
	}

	n := min(len(a.vals), len(b.vals))
	for i := range n {
		if c := value.Compare(a.vals[i], b.vals[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(a.vals) == len(b.vals):
		return cmpInt(a.sentinel, b.sentinel)
	case len(a.vals) < len(b.vals):
		return a.sentinel
	default:
		return -b.sentinel
	}
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// interval holds the tuples strictly between lo and hi.
type interval struct {
	lo, hi *position
}

func (iv interval) empty() bool {
	if iv.lo == nil || iv.hi == nil {
		return false
	}
	return comparePositions(iv.lo, iv.hi, true) >= 0
}

func (iv interval) contains(tuple []value.Value) bool {
	if iv.lo != nil && comparePosition(tuple, iv.lo) < 0 {
		return false
	}
	if iv.hi != nil && comparePosition(tuple, iv.hi) > 0 {
		return false
	}
	return true
}

func intersect(a, b interval) interval {
	out := a
	if comparePositions(b.lo, a.lo, true) > 0 {
		out.lo = b.lo
	}
	if comparePositions(b.hi, a.hi, false) < 0 {
		out.hi = b.hi
	}
	return out
}

// normalize sorts intervals by lower position, drops empty ones and merges
// overlapping neighbours, leaving a disjoint ascending set.
func normalize(ivs []interval) []interval {
	ivs = slices.DeleteFunc(ivs, interval.empty)
	slices.SortStableFunc(ivs, func(a, b interval) int {
		return comparePositions(a.lo, b.lo, true)
	})

	out := ivs[:0]
	for _, iv := range ivs {
		if len(out) == 0 {
			out = append(out, iv)
			continue
		}
		last := &out[len(out)-1]
		if last.hi == nil {
			continue
		}
		if iv.lo != nil && comparePositions(iv.lo, last.hi, true) > 0 {
			out = append(out, iv)
			continue
		}
		if comparePositions(iv.hi, last.hi, false) > 0 {
			last.hi = iv.hi
		}
	}
	return out
}
