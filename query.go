package docquery

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/hupe1980/docquery/index"
	"github.com/hupe1980/docquery/index/bitarray"
	"github.com/hupe1980/docquery/index/fulltext"
	"github.com/hupe1980/docquery/index/geo"
	"github.com/hupe1980/docquery/index/hash"
	"github.com/hupe1980/docquery/index/skiplist"
	"github.com/hupe1980/docquery/indexop"
	"github.com/hupe1980/docquery/model"
	"github.com/hupe1980/docquery/value"
)

// OffsetResult is the result of Offset. Skip is the internal position to
// pass as internalSkip to fetch the next batch.
type OffsetResult struct {
	Result
	Skip int `json:"skip"`
}

// observe records metrics and logs for a finished query. It is deferred with
// pointers to the query's named results.
func (c *Collection) observe(ctx context.Context, kind string, start time.Time, res **Result, err *error) {
	total, count := 0, 0
	if *res != nil {
		total, count = (*res).Total, (*res).Count
	}
	c.opts.metricsCollector.RecordQuery(kind, count, time.Since(start), *err)
	c.logger.LogQuery(ctx, kind, total, count, *err)
}

// query runs fn in a read scope, turning ErrElementNotFound into an empty
// result and normalising errors.
func (c *Collection) query(ctx context.Context, fn func() (*Result, error)) (*Result, error) {
	var res *Result
	err := c.read(ctx, func() error {
		var err error
		res, err = fn()
		return err
	})
	if errors.Is(err, ErrElementNotFound) {
		return emptyResult(), nil
	}
	if err != nil {
		return nil, translateError(err)
	}
	return res, nil
}

// All returns the documents in insertion order, windowed by skip and limit.
func (c *Collection) All(ctx context.Context, skip int, limit uint) (res *Result, err error) {
	defer c.observe(ctx, "all", time.Now(), &res, &err)
	return c.query(ctx, func() (*Result, error) {
		return c.window(c.rows, skip, limit)
	})
}

// Any returns a random document, or nil if the collection is empty.
func (c *Collection) Any(ctx context.Context) (value.Document, error) {
	var doc value.Document
	err := c.read(ctx, func() error {
		if len(c.rows) == 0 {
			return nil
		}
		doc = c.docs[c.rows[rand.IntN(len(c.rows))]].Clone()
		return nil
	})
	return doc, err
}

// First returns up to n documents, oldest first.
func (c *Collection) First(ctx context.Context, n int) ([]value.Document, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: count must be positive", ErrBadParameter)
	}
	var docs []value.Document
	err := c.read(ctx, func() error {
		var err error
		docs, err = c.documents(c.rows[:min(n, len(c.rows))])
		return err
	})
	return docs, err
}

// Last returns up to n documents, newest first.
func (c *Collection) Last(ctx context.Context, n int) ([]value.Document, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: count must be positive", ErrBadParameter)
	}
	var docs []value.Document
	err := c.read(ctx, func() error {
		ids := make([]model.RowID, 0, min(n, len(c.rows)))
		for i := len(c.rows) - 1; i >= 0 && len(ids) < n; i-- {
			ids = append(ids, c.rows[i])
		}
		var err error
		docs, err = c.documents(ids)
		return err
	})
	return docs, err
}

// Offset reads a batch of documents for incremental iteration. Starting at
// position internalSkip it passes over skip documents and returns up to
// min(batchSize, limit) documents. Total is the collection size.
func (c *Collection) Offset(ctx context.Context, internalSkip, batchSize, skip int, limit uint) (*OffsetResult, error) {
	if internalSkip < 0 || batchSize < 1 {
		return nil, fmt.Errorf("%w: offset needs internalSkip >= 0 and batchSize > 0", ErrBadParameter)
	}
	start := time.Now()

	out := &OffsetResult{}
	err := c.read(ctx, func() error {
		var ids []model.RowID
		pos := internalSkip
		for skipped := 0; pos < len(c.rows) && len(ids) < batchSize && uint(len(ids)) < limit; pos++ {
			if skipped < skip {
				skipped++
				continue
			}
			ids = append(ids, c.rows[pos])
		}
		docs, err := c.documents(ids)
		if err != nil {
			return err
		}
		out.Result = Result{Documents: docs, Total: len(c.rows), Count: len(docs)}
		out.Skip = min(pos, len(c.rows))
		return nil
	})
	res := &out.Result
	c.observe(ctx, "offset", start, &res, &err)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ByExample scans the collection for documents whose attributes equal every
// attribute of example. Example keys are attribute paths.
func (c *Collection) ByExample(ctx context.Context, example value.Document, skip int, limit uint) (res *Result, err error) {
	defer c.observe(ctx, "by_example", time.Now(), &res, &err)
	if example == nil {
		return nil, fmt.Errorf("%w: example must be an object", ErrBadParameter)
	}
	return c.query(ctx, func() (*Result, error) {
		if err := c.checkPaths(exampleKeys(example)...); err != nil {
			return nil, err
		}
		step := index.NewStepper(ctx)
		var ids []model.RowID
		for _, id := range c.rows {
			if err := step.Step(); err != nil {
				return nil, err
			}
			if matchesExample(c.docs[id], example) {
				ids = append(ids, id)
			}
		}
		return c.window(ids, skip, limit)
	})
}

func exampleKeys(example value.Document) []string {
	keys := make([]string, 0, len(example))
	for k := range example {
		keys = append(keys, k)
	}
	return keys
}

func matchesExample(doc, example value.Document) bool {
	for path, want := range example {
		got, ok := doc[path]
		if !ok {
			got, ok = doc.Get(path)
		}
		if !ok || value.Compare(got, want) != 0 {
			return false
		}
	}
	return true
}

// ByExampleHash looks up example in a hash or primary index. Index fields
// the example does not mention are matched against null.
func (c *Collection) ByExampleHash(ctx context.Context, id index.ID, example value.Document, skip int, limit uint) (res *Result, err error) {
	defer c.observe(ctx, "by_example_hash", time.Now(), &res, &err)
	return c.query(ctx, func() (*Result, error) {
		ix, err := indexAs[*hash.Index](c, id)
		if err != nil {
			return nil, err
		}
		if err := c.checkPaths(exampleKeys(example)...); err != nil {
			return nil, err
		}
		fields := ix.Descriptor().Fields
		ids, err := ix.LookupValues(ctx, indexop.HashSearchValue(fields, example))
		if err != nil {
			return nil, err
		}
		return c.window(ids, skip, limit)
	})
}

// ByExampleSkiplist looks up the leading index fields of example in a
// skiplist index.
func (c *Collection) ByExampleSkiplist(ctx context.Context, id index.ID, example value.Document, skip int, limit uint) (res *Result, err error) {
	defer c.observe(ctx, "by_example_skiplist", time.Now(), &res, &err)
	return c.query(ctx, func() (*Result, error) {
		ix, err := indexAs[*skiplist.Index](c, id)
		if err != nil {
			return nil, err
		}
		if err := c.checkPaths(exampleKeys(example)...); err != nil {
			return nil, err
		}
		op, err := indexop.SkiplistExample(ix.Descriptor().Fields, example)
		if err != nil {
			return nil, err
		}
		return c.skiplistLookup(ctx, ix, op, skip, limit)
	})
}

// ByConditionSkiplist runs a skiplist condition such as
// {"a": [["==", 1]], "b": [[">", 2]]}.
func (c *Collection) ByConditionSkiplist(ctx context.Context, id index.ID, cond value.Value, skip int, limit uint) (res *Result, err error) {
	defer c.observe(ctx, "by_condition_skiplist", time.Now(), &res, &err)
	return c.query(ctx, func() (*Result, error) {
		ix, err := indexAs[*skiplist.Index](c, id)
		if err != nil {
			return nil, err
		}
		op, err := indexop.SkiplistCondition(ix.Descriptor().Fields, cond)
		if err != nil {
			return nil, err
		}
		return c.skiplistLookup(ctx, ix, op, skip, limit)
	})
}

func (c *Collection) skiplistLookup(ctx context.Context, ix *skiplist.Index, op *indexop.Operator, skip int, limit uint) (*Result, error) {
	ids, err := ix.Lookup(ctx, op)
	if err != nil {
		return nil, err
	}
	return c.window(ids, skip, limit)
}

// ByExampleBitarray matches example against a bitarray index.
func (c *Collection) ByExampleBitarray(ctx context.Context, id index.ID, example value.Document, skip int, limit uint) (res *Result, err error) {
	defer c.observe(ctx, "by_example_bitarray", time.Now(), &res, &err)
	return c.query(ctx, func() (*Result, error) {
		ix, err := indexAs[*bitarray.Index](c, id)
		if err != nil {
			return nil, err
		}
		if err := c.checkPaths(exampleKeys(example)...); err != nil {
			return nil, err
		}
		op, err := indexop.BitarrayExample(ix.Descriptor().Fields, example)
		if err != nil {
			return nil, err
		}
		return c.bitarrayLookup(ctx, ix, op, skip, limit)
	})
}

// ByConditionBitarray runs a bitarray condition such as
// {"or": [{"==": {"x": 1}}, {"!=": {"y": "a"}}]}.
func (c *Collection) ByConditionBitarray(ctx context.Context, id index.ID, cond value.Value, skip int, limit uint) (res *Result, err error) {
	defer c.observe(ctx, "by_condition_bitarray", time.Now(), &res, &err)
	return c.query(ctx, func() (*Result, error) {
		ix, err := indexAs[*bitarray.Index](c, id)
		if err != nil {
			return nil, err
		}
		op, err := indexop.BitarrayCondition(ix.Descriptor().Fields, cond)
		if err != nil {
			return nil, err
		}
		return c.bitarrayLookup(ctx, ix, op, skip, limit)
	})
}

func (c *Collection) bitarrayLookup(ctx context.Context, ix *bitarray.Index, op *indexop.Operator, skip int, limit uint) (*Result, error) {
	ids, err := ix.Lookup(ctx, op, c.stored)
	if err != nil {
		return nil, err
	}
	return c.window(ids, skip, limit)
}

// stored reports whether the collection holds a document for id.
func (c *Collection) stored(id model.RowID) bool {
	_, ok := c.docs[id]
	return ok
}

// Near returns the limit documents closest to (lat, lon), nearest first.
func (c *Collection) Near(ctx context.Context, id index.ID, lat, lon float64, limit int) (res *Result, err error) {
	defer c.observe(ctx, "near", time.Now(), &res, &err)
	return c.query(ctx, func() (*Result, error) {
		ix, err := indexAs[*geo.Index](c, id)
		if err != nil {
			return nil, err
		}
		cands, err := ix.Near(ctx, lat, lon, limit)
		if err != nil {
			return nil, err
		}
		return c.scored(cands, true)
	})
}

// Within returns the documents at most radius metres from (lat, lon),
// nearest first.
func (c *Collection) Within(ctx context.Context, id index.ID, lat, lon, radius float64) (res *Result, err error) {
	defer c.observe(ctx, "within", time.Now(), &res, &err)
	return c.query(ctx, func() (*Result, error) {
		ix, err := indexAs[*geo.Index](c, id)
		if err != nil {
			return nil, err
		}
		cands, err := ix.Within(ctx, lat, lon, radius)
		if err != nil {
			return nil, err
		}
		return c.scored(cands, true)
	})
}

// Fulltext runs a fulltext query such as "prefix:data,base", best match
// first.
func (c *Collection) Fulltext(ctx context.Context, id index.ID, query string) (res *Result, err error) {
	defer c.observe(ctx, "fulltext", time.Now(), &res, &err)
	return c.query(ctx, func() (*Result, error) {
		ix, err := indexAs[*fulltext.Index](c, id)
		if err != nil {
			return nil, err
		}
		q, err := fulltext.ParseQuery(query)
		if err != nil {
			return nil, err
		}
		cands, err := ix.Query(ctx, q)
		if err != nil {
			return nil, err
		}
		return c.scored(cands, false)
	})
}

func (c *Collection) scored(cands []model.Candidate, distances bool) (*Result, error) {
	docs, err := c.documents(model.RowIDs(cands))
	if err != nil {
		return nil, err
	}
	res := &Result{Documents: docs, Total: len(docs), Count: len(docs)}
	if distances {
		res.Distances = make([]float64, len(cands))
		for i, cand := range cands {
			res.Distances[i] = cand.Score
		}
	}
	return res, nil
}
