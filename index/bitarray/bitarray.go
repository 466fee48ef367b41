// Package bitarray implements the bitarray index: one roaring bitmap per
// (field, value) pair, combined natively for arbitrary boolean conditions.
package bitarray

import (
	"context"
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/docquery/index"
	"github.com/hupe1980/docquery/indexop"
	"github.com/hupe1980/docquery/model"
	"github.com/hupe1980/docquery/value"
)

func init() {
	index.Register(index.KindBitarray, func(desc index.Descriptor) (index.Index, error) {
		if desc.Unique {
			return nil, fmt.Errorf("%w: bitarray indexes cannot be unique", index.ErrBadParameter)
		}
		return New(desc), nil
	})
}

type posting struct {
	value value.Value
	rows  *roaring.Bitmap
}

// Index keeps, per field, an inverted map from value to the rows holding it.
// Documents lacking an indexed attribute are stored under null.
type Index struct {
	desc     index.Descriptor
	inverted []map[string]*posting
	universe *roaring.Bitmap
}

// New returns an empty bitarray index.
func New(desc index.Descriptor) *Index {
	inv := make([]map[string]*posting, len(desc.Fields))
	for i := range inv {
		inv[i] = make(map[string]*posting)
	}
	return &Index{
		desc:     desc,
		inverted: inv,
		universe: roaring.New(),
	}
}

// Descriptor implements index.Index.
func (ix *Index) Descriptor() index.Descriptor { return ix.desc }

// Len implements index.Index.
func (ix *Index) Len() int { return int(ix.universe.GetCardinality()) }

// Insert implements index.Index.
func (ix *Index) Insert(id model.RowID, doc value.Document) error {
	for i, v := range index.Values(ix.desc.Fields, doc) {
		key := v.Key()
		p, ok := ix.inverted[i][key]
		if !ok {
			p = &posting{value: v, rows: roaring.New()}
			ix.inverted[i][key] = p
		}
		p.rows.Add(uint32(id))
	}
	ix.universe.Add(uint32(id))
	return nil
}

// Remove implements index.Index.
func (ix *Index) Remove(id model.RowID, doc value.Document) {
	for i, v := range index.Values(ix.desc.Fields, doc) {
		key := v.Key()
		p, ok := ix.inverted[i][key]
		if !ok {
			continue
		}
		p.rows.Remove(uint32(id))
		if p.rows.IsEmpty() {
			delete(ix.inverted[i], key)
		}
	}
	ix.universe.Remove(uint32(id))
}

// Filter decides whether a candidate row is kept.
type Filter func(id model.RowID) bool

// Lookup evaluates op and returns the matching rows in ascending order.
// Leaf positions holding undefined take part in no comparison; an Eq value
// that is an array lists alternatives. filter, if set, is applied to every
// candidate.
func (ix *Index) Lookup(ctx context.Context, op *indexop.Operator, filter Filter) ([]model.RowID, error) {
	if err := op.Validate(len(ix.desc.Fields)); err != nil {
		return nil, fmt.Errorf("%w: %v", index.ErrBadParameter, err)
	}

	step := index.NewStepper(ctx)
	if err := step.Err(); err != nil {
		return nil, err
	}

	bm, err := ix.eval(step, op)
	if err != nil {
		return nil, err
	}

	out := make([]model.RowID, 0, bm.GetCardinality())
	it := bm.Iterator()
	for it.HasNext() {
		if err := step.Step(); err != nil {
			return nil, err
		}
		id := model.RowID(it.Next())
		if filter != nil && !filter(id) {
			continue
		}
		out = append(out, id)
	}
	return out, nil
}

func (ix *Index) eval(step *index.Stepper, op *indexop.Operator) (*roaring.Bitmap, error) {
	switch op.Type {
	case indexop.And, indexop.Or:
		left, err := ix.eval(step, op.Left)
		if err != nil {
			return nil, err
		}
		right, err := ix.eval(step, op.Right)
		if err != nil {
			return nil, err
		}
		if op.Type == indexop.And {
			return roaring.And(left, right), nil
		}
		return roaring.Or(left, right), nil
	case indexop.Not:
		inner, err := ix.eval(step, op.Left)
		if err != nil {
			return nil, err
		}
		return roaring.AndNot(ix.universe, inner), nil
	default:
		return ix.leaf(step, op)
	}
}

// leaf intersects the per-position results of a comparison.
func (ix *Index) leaf(step *index.Stepper, op *indexop.Operator) (*roaring.Bitmap, error) {
	result := ix.universe.Clone()
	for i, v := range op.Values {
		if v.IsUndefined() {
			continue
		}

		var bm *roaring.Bitmap
		var err error
		switch op.Type {
		case indexop.Eq:
			bm = ix.equal(i, v)
		case indexop.Ne:
			bm = roaring.AndNot(ix.universe, ix.equal(i, v))
		default:
			bm, err = ix.compare(step, i, op.Type, v)
			if err != nil {
				return nil, err
			}
		}
		result.And(bm)
	}
	return result, nil
}

func (ix *Index) equal(field int, v value.Value) *roaring.Bitmap {
	alts := []value.Value{v}
	if arr, ok := v.AsArray(); ok {
		alts = arr
	}
	out := roaring.New()
	for _, alt := range alts {
		if p, ok := ix.inverted[field][alt.Key()]; ok {
			out.Or(p.rows)
		}
	}
	return out
}

func (ix *Index) compare(step *index.Stepper, field int, t indexop.Type, v value.Value) (*roaring.Bitmap, error) {
	out := roaring.New()
	for _, p := range ix.inverted[field] {
		if err := step.Step(); err != nil {
			return nil, err
		}
		c := value.Compare(p.value, v)
		var ok bool
		switch t {
		case indexop.Lt:
			ok = c < 0
		case indexop.Le:
			ok = c <= 0
		case indexop.Gt:
			ok = c > 0
		case indexop.Ge:
			ok = c >= 0
		}
		if ok {
			out.Or(p.rows)
		}
	}
	return out, nil
}
