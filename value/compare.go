package value

import (
	"cmp"
	"strings"
)

// typeRank orders kinds across types: null < bool < number < string < array < object.
func typeRank(k Kind) int {
	switch k {
	case KindUndefined:
		return 0
	case KindNull:
		return 1
	case KindBool:
		return 2
	case KindInt, KindFloat:
		return 3
	case KindString:
		return 4
	case KindArray:
		return 5
	case KindObject:
		return 6
	default:
		return 7
	}
}

// Compare returns -1, 0 or 1 when a sorts before, equal to or after b.
//
// The order is total: values of different types are ordered by type
// (undefined < null < bool < number < string < array < object), ints and
// floats compare numerically, arrays element-wise and then by length, and
// objects by their sorted key lists and then by the values under those keys.
func Compare(a, b Value) int {
	ra, rb := typeRank(a.Kind), typeRank(b.Kind)
	if ra != rb {
		return cmp.Compare(ra, rb)
	}

	switch a.Kind {
	case KindUndefined, KindNull:
		return 0
	case KindBool:
		switch {
		case a.B == b.B:
			return 0
		case !a.B:
			return -1
		default:
			return 1
		}
	case KindInt, KindFloat:
		if a.Kind == KindInt && b.Kind == KindInt {
			return cmp.Compare(a.I64, b.I64)
		}
		fa, _ := a.Number()
		fb, _ := b.Number()
		return cmp.Compare(fa, fb)
	case KindString:
		return strings.Compare(a.S, b.S)
	case KindArray:
		n := min(len(a.A), len(b.A))
		for i := 0; i < n; i++ {
			if c := Compare(a.A[i], b.A[i]); c != 0 {
				return c
			}
		}
		return cmp.Compare(len(a.A), len(b.A))
	case KindObject:
		ka, kb := sortedKeys(a.O), sortedKeys(b.O)
		n := min(len(ka), len(kb))
		for i := 0; i < n; i++ {
			if c := strings.Compare(ka[i], kb[i]); c != 0 {
				return c
			}
		}
		if c := cmp.Compare(len(ka), len(kb)); c != 0 {
			return c
		}
		for _, k := range ka {
			if c := Compare(a.O[k], b.O[k]); c != 0 {
				return c
			}
		}
		return 0
	}
	return 0
}

// CompareTuples compares two positional tuples element-wise. A shorter tuple
// that is a prefix of the longer one sorts first.
func CompareTuples(a, b []Value) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if c := Compare(a[i], b[i]); c != 0 {
			return c
		}
	}
	return cmp.Compare(len(a), len(b))
}

// ComparePrefix compares the first len(prefix) positions of tuple against
// prefix. Positions beyond the prefix are ignored.
func ComparePrefix(tuple, prefix []Value) int {
	for i := range prefix {
		if i >= len(tuple) {
			return -1
		}
		if c := Compare(tuple[i], prefix[i]); c != 0 {
			return c
		}
	}
	return 0
}

// Comparable reports whether a and b are of the same type class, i.e. an
// ordering between them carries meaning beyond the cross-type rank.
func Comparable(a, b Value) bool {
	return typeRank(a.Kind) == typeRank(b.Kind)
}

// Contains reports whether list holds a value equal to v.
func Contains(list []Value, v Value) bool {
	for i := range list {
		if Compare(list[i], v) == 0 {
			return true
		}
	}
	return false
}

// SortUnique sorts values and drops duplicates in place. The returned slice
// shares storage with the argument.
func SortUnique(values []Value) []Value {
	if len(values) < 2 {
		return values
	}
	sortValues(values)
	out := values[:1]
	for _, v := range values[1:] {
		if Compare(out[len(out)-1], v) != 0 {
			out = append(out, v)
		}
	}
	return out
}
