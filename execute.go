package docquery

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/docquery/ast"
	"github.com/hupe1980/docquery/index"
	"github.com/hupe1980/docquery/index/bitarray"
	"github.com/hupe1980/docquery/index/fulltext"
	"github.com/hupe1980/docquery/index/geo"
	"github.com/hupe1980/docquery/index/hash"
	"github.com/hupe1980/docquery/index/skiplist"
	"github.com/hupe1980/docquery/model"
	"github.com/hupe1980/docquery/optimizer"
	"github.com/hupe1980/docquery/value"
)

// DefaultVariable is the loop variable of a Query that names none.
const DefaultVariable = "doc"

// Query is a single loop over the collection:
//
//	FOR <Variable> IN <collection or Source> FILTER <Filter> SORT <Sort> LIMIT <Skip>, <Limit>
type Query struct {
	Variable string `json:"variable,omitempty"`
	// Source is an optional NEAR(coll, lat, lon, limit),
	// WITHIN(coll, lat, lon, radius) or FULLTEXT(coll, attribute, query)
	// call.
	Source *ast.Node           `json:"source,omitempty"`
	Filter *ast.Node           `json:"filter,omitempty"`
	Sort   []optimizer.SortKey `json:"sort,omitempty"`
	Skip   int                 `json:"skip,omitempty"`
	// Limit 0 means no limit.
	Limit uint `json:"limit,omitempty"`
}

func (q Query) variable() string {
	if q.Variable == "" {
		return DefaultVariable
	}
	return q.Variable
}

func (q Query) limit() uint {
	if q.Limit == 0 {
		return NoLimit
	}
	return q.Limit
}

// Explain returns the plan Execute would run for q.
func (c *Collection) Explain(ctx context.Context, q Query) (*optimizer.Plan, error) {
	var p *optimizer.Plan
	err := c.read(ctx, func() error {
		var err error
		p, err = c.planLocked(ctx, q)
		return err
	})
	if err != nil {
		return nil, translateError(err)
	}
	return p, nil
}

// Execute plans and runs q. The filter is re-checked against every
// candidate the chosen index returns, so the result never depends on which
// index was picked.
func (c *Collection) Execute(ctx context.Context, q Query) (res *Result, err error) {
	defer c.observe(ctx, "execute", time.Now(), &res, &err)
	return c.query(ctx, func() (*Result, error) {
		p, err := c.planLocked(ctx, q)
		if err != nil {
			return nil, err
		}
		if p.Empty {
			return emptyResult(), nil
		}
		return c.run(ctx, q, p)
	})
}

func (c *Collection) planLocked(ctx context.Context, q Query) (*optimizer.Plan, error) {
	loop := optimizer.Loop{
		Variable:   q.variable(),
		Collection: c.name,
		Source:     q.Source,
	}
	if q.Filter != nil {
		loop.Filters = []*ast.Node{q.Filter}
	}

	scopes, err := c.optimiser.Optimise([]optimizer.Loop{loop})
	if err != nil {
		return nil, err
	}
	p, err := c.optimiser.Plan(scopes[0], c.descriptorsLocked(), q.Sort)
	if err != nil {
		return nil, err
	}

	c.opts.metricsCollector.RecordPlan(p.IndexName(), p.Empty)
	c.logger.LogPlan(ctx, p.Variable, p.IndexName(), p.Operator.String(), p.Empty)
	return p, nil
}

// row is a candidate document with its score from the source.
type row struct {
	id    model.RowID
	doc   value.Document
	score float64
}

func (c *Collection) run(ctx context.Context, q Query, p *optimizer.Plan) (*Result, error) {
	cands, filtered, err := c.candidates(ctx, q, p)
	if err != nil {
		return nil, err
	}

	step := index.NewStepper(ctx)
	seen := roaring.New()
	rows := make([]row, 0, len(cands))
	for _, cand := range cands {
		if err := step.Step(); err != nil {
			return nil, err
		}
		if !seen.CheckedAdd(uint32(cand.RowID)) {
			continue
		}
		doc, ok := c.docs[cand.RowID]
		if !ok {
			c.logger.Error("index refers to a missing document", "row", cand.RowID.String())
			return nil, fmt.Errorf("%w: no document for %s", ErrInternal, cand.RowID)
		}
		if !filtered {
			ok, err := c.matches(q, doc)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
		}
		rows = append(rows, row{id: cand.RowID, doc: doc, score: cand.Score})
	}

	if len(q.Sort) > 0 && !p.SortByIndex {
		sortRows(rows, q.Sort)
	}

	s, e := Window(len(rows), q.Skip, q.limit())
	res := &Result{Documents: make([]value.Document, 0, e-s), Total: len(rows)}
	for _, r := range rows[s:e] {
		res.Documents = append(res.Documents, r.doc.Clone())
	}
	res.Count = len(res.Documents)

	if p.Source == optimizer.SourceGeo {
		res.Distances = make([]float64, 0, e-s)
		for _, r := range rows[s:e] {
			res.Distances = append(res.Distances, r.score)
		}
	}
	return res, nil
}

func (c *Collection) matches(q Query, doc value.Document) (bool, error) {
	return c.opts.evaluator.Matches(q.Filter, ast.Bindings{q.variable(): value.Object(doc)})
}

// candidates produces the rows to check, in source or index order. filtered
// reports whether the filter was already applied.
func (c *Collection) candidates(ctx context.Context, q Query, p *optimizer.Plan) (cands []model.Candidate, filtered bool, err error) {
	switch p.Source {
	case optimizer.SourceGeo, optimizer.SourceFulltext:
		if p.Index == nil {
			return nil, false, fmt.Errorf("%w: %s needs a %s index", ErrNoIndex, q.Source.Name, p.Source)
		}
		cands, err := c.sourceCandidates(ctx, q.Source, p.Index.Descriptor.ID)
		return cands, false, err
	}

	if p.Index == nil {
		return rowCandidates(c.rows), false, nil
	}

	ix, err := c.indexLocked(p.Index.Descriptor.ID)
	if err != nil {
		return nil, false, err
	}

	var ids []model.RowID
	switch ix := ix.(type) {
	case *hash.Index:
		ids, err = ix.Lookup(ctx, p.Operator)
	case *skiplist.Index:
		switch {
		case p.Operator == nil:
			ids, err = ix.All(ctx, p.Reverse)
		case p.SortByIndex:
			ids, err = ix.LookupOrdered(ctx, p.Operator, p.Reverse)
		default:
			ids, err = ix.Lookup(ctx, p.Operator)
		}
	case *bitarray.Index:
		var filterErr error
		ids, err = ix.Lookup(ctx, p.Operator, func(id model.RowID) bool {
			doc, ok := c.docs[id]
			if !ok || filterErr != nil {
				return ok
			}
			match, err := c.matches(q, doc)
			if err != nil {
				filterErr = err
				return false
			}
			return match
		})
		if err == nil {
			err = filterErr
		}
		filtered = true
	default:
		return nil, false, fmt.Errorf("%w: cannot scan a %s index", ErrInternal, p.Index.Descriptor.Kind)
	}
	if err != nil {
		return nil, false, err
	}
	return rowCandidates(ids), filtered, nil
}

// sourceCandidates evaluates the arguments of a NEAR, WITHIN or FULLTEXT
// call and runs it against the index with the given id.
func (c *Collection) sourceCandidates(ctx context.Context, call *ast.Node, id index.ID) ([]model.Candidate, error) {
	args := make([]value.Value, len(call.Members))
	for i := 1; i < len(call.Members); i++ {
		v, err := c.opts.evaluator.Eval(call.Members[i], nil)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}

	number := func(i int) (float64, error) {
		if i >= len(args) {
			return 0, fmt.Errorf("%w: %s expects %d arguments", ErrBadParameter, call.Name, i+1)
		}
		f, ok := args[i].Number()
		if !ok {
			return 0, fmt.Errorf("%w: %s argument %d must be a number", ErrBadParameter, call.Name, i+1)
		}
		return f, nil
	}

	switch call.Name {
	case "FULLTEXT":
		ix, err := indexAs[*fulltext.Index](c, id)
		if err != nil {
			return nil, err
		}
		var text string
		if len(args) > 2 {
			text, _ = args[2].AsString()
		}
		query, err := fulltext.ParseQuery(text)
		if err != nil {
			return nil, err
		}
		return ix.Query(ctx, query)
	}

	ix, err := indexAs[*geo.Index](c, id)
	if err != nil {
		return nil, err
	}
	lat, err := number(1)
	if err != nil {
		return nil, err
	}
	lon, err := number(2)
	if err != nil {
		return nil, err
	}
	arg, err := number(3)
	if err != nil {
		return nil, err
	}
	if call.Name == "WITHIN" {
		return ix.Within(ctx, lat, lon, arg)
	}
	return ix.Near(ctx, lat, lon, int(arg))
}

func rowCandidates(ids []model.RowID) []model.Candidate {
	out := make([]model.Candidate, len(ids))
	for i, id := range ids {
		out[i] = model.Candidate{RowID: id}
	}
	return out
}

func sortRows(rows []row, keys []optimizer.SortKey) {
	slices.SortStableFunc(rows, func(a, b row) int {
		for _, k := range keys {
			r := value.Compare(a.doc.Lookup(k.Attribute), b.doc.Lookup(k.Attribute))
			if k.Descending {
				r = -r
			}
			if r != 0 {
				return r
			}
		}
		return 0
	})
}
