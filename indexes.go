package docquery

import (
	"context"
	"fmt"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/docquery/index"
	"github.com/hupe1980/docquery/index/fulltext"
)

// EnsureHashIndex ensures a hash index on fields exists.
func (c *Collection) EnsureHashIndex(ctx context.Context, unique bool, fields ...string) (index.Descriptor, error) {
	return c.EnsureIndex(ctx, index.Descriptor{Kind: index.KindHash, Fields: fields, Unique: unique})
}

// EnsureSkiplistIndex ensures a skiplist index on fields exists.
func (c *Collection) EnsureSkiplistIndex(ctx context.Context, unique bool, fields ...string) (index.Descriptor, error) {
	return c.EnsureIndex(ctx, index.Descriptor{Kind: index.KindSkiplist, Fields: fields, Unique: unique})
}

// EnsureBitarrayIndex ensures a bitarray index on fields exists.
func (c *Collection) EnsureBitarrayIndex(ctx context.Context, fields ...string) (index.Descriptor, error) {
	return c.EnsureIndex(ctx, index.Descriptor{Kind: index.KindBitarray, Fields: fields})
}

// EnsureGeoIndex ensures a geo index exists: on one attribute holding a
// [lat, lon] pair ([lon, lat] with geoJSON), or on separate latitude and
// longitude attributes.
func (c *Collection) EnsureGeoIndex(ctx context.Context, geoJSON bool, fields ...string) (index.Descriptor, error) {
	kind := index.KindGeo1
	if len(fields) == 2 {
		kind = index.KindGeo2
	}
	return c.EnsureIndex(ctx, index.Descriptor{Kind: kind, Fields: fields, GeoJSON: geoJSON})
}

// EnsureFulltextIndex ensures a fulltext index on field exists. A
// minWordLength of 0 selects fulltext.DefaultMinWordLength.
func (c *Collection) EnsureFulltextIndex(ctx context.Context, field string, minWordLength int, substrings bool) (index.Descriptor, error) {
	return c.EnsureIndex(ctx, index.Descriptor{
		Kind:          index.KindFulltext,
		Fields:        []string{field},
		MinWordLength: minWordLength,
		Substrings:    substrings,
	})
}

// EnsureIndex ensures an index matching def exists and returns its
// descriptor. def.ID is ignored.
func (c *Collection) EnsureIndex(ctx context.Context, def index.Descriptor) (index.Descriptor, error) {
	descs, err := c.EnsureIndexes(ctx, def)
	if err != nil {
		return index.Descriptor{}, err
	}
	return descs[0], nil
}

// EnsureIndexes ensures all defs exist, building missing indexes
// concurrently. Either every missing index is created or none is.
//
// An existing index of the same kind on the same fields is returned as is;
// if its options differ the call fails with ErrIndexExists.
func (c *Collection) EnsureIndexes(ctx context.Context, defs ...index.Descriptor) ([]index.Descriptor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]index.Descriptor, len(defs))
	var pending []index.Descriptor
	slot := make([]int, len(defs)) // position in pending, -1 for existing

	for i, def := range defs {
		def = normalizeDescriptor(def)
		if err := def.Validate(); err != nil {
			return nil, translateError(err)
		}

		if existing, ok := c.findLocked(def); ok {
			if !sameOptions(existing, def) {
				return nil, fmt.Errorf("%w: %s", ErrIndexExists, existing)
			}
			out[i], slot[i] = existing, -1
			continue
		}
		if def.Kind == index.KindPrimary {
			return nil, fmt.Errorf("%w: the primary index is on %s", ErrBadParameter, c.primary.Descriptor().Fields[0])
		}

		j := slices.IndexFunc(pending, func(p index.Descriptor) bool { return sameTarget(p, def) })
		if j >= 0 {
			if !sameOptions(pending[j], def) {
				return nil, fmt.Errorf("%w: %s requested twice with different options", ErrIndexExists, def)
			}
			slot[i] = j
			continue
		}

		def.ID = c.nextIndex + index.ID(len(pending))
		slot[i] = len(pending)
		pending = append(pending, def)
	}

	built := make([]index.Index, len(pending))
	g, gctx := errgroup.WithContext(ctx)
	for j, def := range pending {
		g.Go(func() error {
			start := time.Now()
			ix, err := c.buildLocked(gctx, def)
			c.logger.LogIndexBuild(ctx, def.String(), len(c.rows), time.Since(start), err)
			if err != nil {
				return err
			}
			built[j] = ix
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, translateError(err)
	}

	c.indexes = append(c.indexes, built...)
	c.nextIndex += index.ID(len(pending))

	for i, j := range slot {
		if j >= 0 {
			out[i] = pending[j]
		}
	}
	return out, nil
}

// buildLocked creates an index and fills it with every stored document.
// It only reads collection state, so several builds may run at once under
// the exclusive lock.
func (c *Collection) buildLocked(ctx context.Context, desc index.Descriptor) (index.Index, error) {
	ix, err := index.New(desc)
	if err != nil {
		return nil, err
	}
	step := index.NewStepper(ctx)
	if err := step.Err(); err != nil {
		return nil, err
	}
	for _, id := range c.rows {
		if err := step.Step(); err != nil {
			return nil, err
		}
		if err := ix.Insert(id, c.docs[id]); err != nil {
			return nil, err
		}
	}
	return ix, nil
}

func normalizeDescriptor(d index.Descriptor) index.Descriptor {
	d.ID = 0
	d.Fields = slices.Clone(d.Fields)
	switch d.Kind {
	case index.KindPrimary:
		d.Unique = true
	case index.KindFulltext:
		if d.MinWordLength == 0 {
			d.MinWordLength = fulltext.DefaultMinWordLength
		}
	}
	return d
}

func sameTarget(a, b index.Descriptor) bool {
	return a.Kind == b.Kind && slices.Equal(a.Fields, b.Fields)
}

func sameOptions(a, b index.Descriptor) bool {
	return a.Unique == b.Unique &&
		a.GeoJSON == b.GeoJSON &&
		a.MinWordLength == b.MinWordLength &&
		a.Substrings == b.Substrings
}

func (c *Collection) findLocked(def index.Descriptor) (index.Descriptor, bool) {
	for _, ix := range c.indexes {
		if d := ix.Descriptor(); sameTarget(d, def) {
			return d, true
		}
	}
	return index.Descriptor{}, false
}

// Indexes returns the descriptors of all indexes, the primary index first.
func (c *Collection) Indexes() []index.Descriptor {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.descriptorsLocked()
}

func (c *Collection) descriptorsLocked() []index.Descriptor {
	out := make([]index.Descriptor, len(c.indexes))
	for i, ix := range c.indexes {
		out[i] = ix.Descriptor()
	}
	return out
}

// Index returns the descriptor of the index with the given id.
func (c *Collection) Index(id index.ID) (index.Descriptor, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ix, err := c.indexLocked(id)
	if err != nil {
		return index.Descriptor{}, err
	}
	return ix.Descriptor(), nil
}

// DropIndex removes a secondary index. The primary index cannot be dropped.
func (c *Collection) DropIndex(ctx context.Context, id index.ID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if id == PrimaryIndexID {
		return fmt.Errorf("%w: the primary index cannot be dropped", ErrBadParameter)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	i := slices.IndexFunc(c.indexes, func(ix index.Index) bool { return ix.Descriptor().ID == id })
	if i < 0 {
		return fmt.Errorf("%w: unknown index %d", ErrNoIndex, id)
	}
	c.logger.InfoContext(ctx, "index dropped", "index", c.indexes[i].Descriptor().String())
	c.indexes = slices.Delete(c.indexes, i, i+1)
	return nil
}

func (c *Collection) indexLocked(id index.ID) (index.Index, error) {
	for _, ix := range c.indexes {
		if ix.Descriptor().ID == id {
			return ix, nil
		}
	}
	return nil, fmt.Errorf("%w: unknown index %d", ErrNoIndex, id)
}

// indexAs resolves id to an index of type T. Callers hold the lock.
func indexAs[T index.Index](c *Collection, id index.ID) (T, error) {
	var zero T
	ix, err := c.indexLocked(id)
	if err != nil {
		return zero, err
	}
	t, ok := ix.(T)
	if !ok {
		return zero, fmt.Errorf("%w: index %d is a %s index", ErrNoIndex, id, ix.Descriptor().Kind)
	}
	return t, nil
}
