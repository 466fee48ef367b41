// Package skiplist implements the skiplist index: value tuples kept in
// index order, queried with an equality prefix plus at most one range on
// the following field.
package skiplist

import (
	"context"
	"fmt"
	"slices"

	"github.com/hupe1980/docquery/index"
	"github.com/hupe1980/docquery/indexop"
	"github.com/hupe1980/docquery/model"
	"github.com/hupe1980/docquery/value"
)

func init() {
	index.Register(index.KindSkiplist, func(desc index.Descriptor) (index.Index, error) {
		return New(desc), nil
	})
}

// Index is an ordered index over one or more fields. Documents lacking an
// indexed attribute are stored with null in its position.
type Index struct {
	desc index.Descriptor
	list *list
}

// New returns an empty skiplist index.
func New(desc index.Descriptor) *Index {
	return &Index{
		desc: desc,
		list: newList(uint64(desc.ID) + 1),
	}
}

// Descriptor implements index.Index.
func (ix *Index) Descriptor() index.Descriptor { return ix.desc }

// Len implements index.Index.
func (ix *Index) Len() int { return ix.list.size }

// Insert implements index.Index.
func (ix *Index) Insert(id model.RowID, doc value.Document) error {
	vals := index.Values(ix.desc.Fields, doc)
	if ix.desc.Unique && ix.list.hasTuple(vals) {
		return &index.ErrUniqueViolation{ID: ix.desc.ID, Fields: ix.desc.Fields, Values: vals}
	}
	ix.list.insert(vals, id)
	return nil
}

// Remove implements index.Index.
func (ix *Index) Remove(id model.RowID, doc value.Document) {
	ix.list.delete(index.Values(ix.desc.Fields, doc), id)
}

// Lookup returns the rows matching op in index order. Ne and Not cannot be
// evaluated by an ordered index and yield index.ErrNotImplemented.
func (ix *Index) Lookup(ctx context.Context, op *indexop.Operator) ([]model.RowID, error) {
	return ix.LookupOrdered(ctx, op, false)
}

// LookupOrdered is Lookup with an optional reversed result order.
func (ix *Index) LookupOrdered(ctx context.Context, op *indexop.Operator, reverse bool) ([]model.RowID, error) {
	for _, leaf := range op.Leaves() {
		if leaf.Type == indexop.Ne {
			return nil, fmt.Errorf("%w: skiplist cannot evaluate %s", index.ErrNotImplemented, leaf.Type)
		}
	}
	if hasNot(op) {
		return nil, fmt.Errorf("%w: skiplist cannot evaluate %s", index.ErrNotImplemented, indexop.Not)
	}
	if err := op.ValidatePrefix(len(ix.desc.Fields)); err != nil {
		return nil, fmt.Errorf("%w: %v", index.ErrBadParameter, err)
	}

	ivs := normalize(toIntervals(op))
	return ix.scan(ctx, ivs, reverse)
}

// All returns every row in index order, reversed if requested.
func (ix *Index) All(ctx context.Context, reverse bool) ([]model.RowID, error) {
	return ix.scan(ctx, []interval{{}}, reverse)
}

func (ix *Index) scan(ctx context.Context, ivs []interval, reverse bool) ([]model.RowID, error) {
	step := index.NewStepper(ctx)
	if err := step.Err(); err != nil {
		return nil, err
	}

	var out []model.RowID
	for _, iv := range ivs {
		for n := ix.list.seek(iv.lo); n != nil; n = n.next[0] {
			if err := step.Step(); err != nil {
				return nil, err
			}
			if iv.hi != nil && comparePosition(n.vals, iv.hi) > 0 {
				break
			}
			out = append(out, n.id)
		}
	}
	if reverse {
		slices.Reverse(out)
	}
	return out, nil
}

func hasNot(op *indexop.Operator) bool {
	if op == nil || op.Type.IsLeaf() {
		return false
	}
	if op.Type == indexop.Not {
		return true
	}
	return hasNot(op.Left) || hasNot(op.Right)
}

// toIntervals converts a validated operator into a set of intervals.
func toIntervals(op *indexop.Operator) []interval {
	switch op.Type {
	case indexop.And:
		left := normalize(toIntervals(op.Left))
		right := normalize(toIntervals(op.Right))
		out := make([]interval, 0, len(left)*len(right))
		for _, l := range left {
			for _, r := range right {
				out = append(out, intersect(l, r))
			}
		}
		return out
	case indexop.Or:
		return append(toIntervals(op.Left), toIntervals(op.Right)...)
	default:
		return []interval{leafInterval(op)}
	}
}

func leafInterval(op *indexop.Operator) interval {
	vals := op.Values
	var prefixLo, prefixHi *position
	if len(vals) > 1 {
		prefix := vals[:len(vals)-1]
		prefixLo = &position{vals: prefix, sentinel: -1}
		prefixHi = &position{vals: prefix, sentinel: 1}
	}

	before := &position{vals: vals, sentinel: -1}
	after := &position{vals: vals, sentinel: 1}

	switch op.Type {
	case indexop.Lt:
		return interval{lo: prefixLo, hi: before}
	case indexop.Le:
		return interval{lo: prefixLo, hi: after}
	case indexop.Gt:
		return interval{lo: after, hi: prefixHi}
	case indexop.Ge:
		return interval{lo: before, hi: prefixHi}
	default:
		return interval{lo: before, hi: after}
	}
}
