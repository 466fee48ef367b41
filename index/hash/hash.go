// Package hash implements the hash index: exact lookups of complete value
// tuples. The primary index on _key is a unique hash index.
package hash

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
	factory := func(desc index.Descriptor) (index.Index, error) { return New(desc), nil }
	index.Register(index.KindHash, factory)
	index.Register(index.KindPrimary, func(desc index.Descriptor) (index.Index, error) {
		desc.Unique = true
		return New(desc), nil
	})
}

// Index maps value tuples to the rows holding them, in insertion order.
type Index struct {
	desc    index.Descriptor
	buckets map[string][]model.RowID
	size    int
}

// New returns an empty hash index.
func New(desc index.Descriptor) *Index {
	return &Index{
		desc:    desc,
		buckets: make(map[string][]model.RowID),
	}
}

// Descriptor implements index.Index.
func (ix *Index) Descriptor() index.Descriptor { return ix.desc }

// Len implements index.Index.
func (ix *Index) Len() int { return ix.size }

// Insert implements index.Index. A unique index rejects a second row with
// the same tuple.
func (ix *Index) Insert(id model.RowID, doc value.Document) error {
	vals := index.Values(ix.desc.Fields, doc)
	key := index.TupleKey(vals)
	if ix.desc.Unique && len(ix.buckets[key]) > 0 {
		return &index.ErrUniqueViolation{ID: ix.desc.ID, Fields: ix.desc.Fields, Values: vals}
	}
	ix.buckets[key] = append(ix.buckets[key], id)
	ix.size++
	return nil
}

// Remove implements index.Index.
func (ix *Index) Remove(id model.RowID, doc value.Document) {
	key := index.TupleKey(index.Values(ix.desc.Fields, doc))
	rows := ix.buckets[key]
	i := slices.Index(rows, id)
	if i < 0 {
		return
	}
	rows = slices.Delete(rows, i, i+1)
	if len(rows) == 0 {
		delete(ix.buckets, key)
	} else {
		ix.buckets[key] = rows
	}
	ix.size--
}

// LookupValues returns the rows whose tuple equals vals. vals must hold one
// value per index field.
func (ix *Index) LookupValues(ctx context.Context, vals []value.Value) ([]model.RowID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(vals) != len(ix.desc.Fields) {
		return nil, fmt.Errorf("%w: hash lookup needs %d values, got %d", index.ErrBadParameter, len(ix.desc.Fields), len(vals))
	}
	return slices.Clone(ix.buckets[index.TupleKey(vals)]), nil
}

// Lookup evaluates an Eq leaf or an Or of Eq leaves. Results of several
// alternatives are concatenated without duplicates.
func (ix *Index) Lookup(ctx context.Context, op *indexop.Operator) ([]model.RowID, error) {
	if err := op.Validate(len(ix.desc.Fields)); err != nil {
		return nil, fmt.Errorf("%w: %v", index.ErrBadParameter, err)
	}

	var probes [][]value.Value
	var collect func(*indexop.Operator) error
	collect = func(o *indexop.Operator) error {
		switch o.Type {
		case indexop.Eq:
			for _, v := range o.Values {
				if v.IsUndefined() {
					return fmt.Errorf("%w: hash lookup with unused position", index.ErrBadParameter)
				}
			}
			probes = append(probes, o.Values)
			return nil
		case indexop.Or:
			if err := collect(o.Left); err != nil {
				return err
			}
			return collect(o.Right)
		default:
			return fmt.Errorf("%w: hash index cannot evaluate %s", index.ErrNotImplemented, o.Type)
		}
	}
	if err := collect(op); err != nil {
		return nil, err
	}

	if len(probes) == 1 {
		return ix.LookupValues(ctx, probes[0])
	}

	seen := make(map[model.RowID]struct{})
	var out []model.RowID
	for _, p := range probes {
		rows, err := ix.LookupValues(ctx, p)
		if err != nil {
			return nil, err
		}
		for _, id := range rows {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out, nil
}
