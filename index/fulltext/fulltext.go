// Package fulltext implements the fulltext index: an inverted word index
// over a string attribute with complete, prefix and substring matching.
// Results are ranked with BM25.
package fulltext

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sort"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/docquery/index"
	"github.com/hupe1980/docquery/model"
	"github.com/hupe1980/docquery/value"
)

const (
	k1 = 1.2
	b  = 0.75
)

func init() {
	index.Register(index.KindFulltext, func(desc index.Descriptor) (index.Index, error) {
		if desc.Unique {
			return nil, fmt.Errorf("%w: fulltext indexes cannot be unique", index.ErrBadParameter)
		}
		if desc.MinWordLength < 0 {
			return nil, fmt.Errorf("%w: negative minimum word length", index.ErrBadParameter)
		}
		return New(desc), nil
	})
}

type posting struct {
	rows   *roaring.Bitmap
	counts map[model.RowID]int
}

// Index is an in-memory inverted index. Indexed attribute values are
// strings or arrays of strings; other documents are not indexed.
type Index struct {
	desc        index.Descriptor
	minLength   int
	inverted    map[string]*posting
	words       []string // sorted keys of inverted
	docWords    map[model.RowID][]string
	docLengths  map[model.RowID]int
	totalLength int64
}

// New returns an empty fulltext index.
func New(desc index.Descriptor) *Index {
	minLength := desc.MinWordLength
	if minLength == 0 {
		minLength = DefaultMinWordLength
	}
	return &Index{
		desc:       desc,
		minLength:  minLength,
		inverted:   make(map[string]*posting),
		docWords:   make(map[model.RowID][]string),
		docLengths: make(map[model.RowID]int),
	}
}

// Descriptor implements index.Index.
func (ix *Index) Descriptor() index.Descriptor { return ix.desc }

// Len implements index.Index.
func (ix *Index) Len() int { return len(ix.docLengths) }

func (ix *Index) tokenize(v value.Value) ([]string, bool) {
	if s, ok := v.AsString(); ok {
		return Words(s, ix.minLength), true
	}
	arr, ok := v.AsArray()
	if !ok {
		return nil, false
	}
	var out []string
	for _, e := range arr {
		if s, ok := e.AsString(); ok {
			out = append(out, Words(s, ix.minLength)...)
		}
	}
	return out, true
}

// Insert implements index.Index.
func (ix *Index) Insert(id model.RowID, doc value.Document) error {
	if _, ok := ix.docLengths[id]; ok {
		ix.remove(id)
	}

	tokens, ok := ix.tokenize(doc.Lookup(ix.desc.Fields[0]))
	if !ok {
		return nil
	}

	tf := make(map[string]int)
	for _, t := range tokens {
		tf[t]++
	}

	words := make([]string, 0, len(tf))
	for w, count := range tf {
		p, ok := ix.inverted[w]
		if !ok {
			p = &posting{rows: roaring.New(), counts: make(map[model.RowID]int)}
			ix.inverted[w] = p
			i, _ := slices.BinarySearch(ix.words, w)
			ix.words = slices.Insert(ix.words, i, w)
		}
		p.rows.Add(uint32(id))
		p.counts[id] = count
		words = append(words, w)
	}

	ix.docWords[id] = words
	ix.docLengths[id] = len(tokens)
	ix.totalLength += int64(len(tokens))
	return nil
}

// Remove implements index.Index.
func (ix *Index) Remove(id model.RowID, _ value.Document) {
	ix.remove(id)
}

func (ix *Index) remove(id model.RowID) {
	length, ok := ix.docLengths[id]
	if !ok {
		return
	}
	for _, w := range ix.docWords[id] {
		p := ix.inverted[w]
		p.rows.Remove(uint32(id))
		delete(p.counts, id)
		if p.rows.IsEmpty() {
			delete(ix.inverted, w)
			if i, found := slices.BinarySearch(ix.words, w); found {
				ix.words = slices.Delete(ix.words, i, i+1)
			}
		}
	}
	delete(ix.docWords, id)
	delete(ix.docLengths, id)
	ix.totalLength -= int64(length)
}

// Query returns the documents matching every term of q, best BM25 score
// first. Candidate.Score holds the score. Substring terms require an index
// built with substrings enabled.
func (ix *Index) Query(ctx context.Context, q Query) ([]model.Candidate, error) {
	if len(q) == 0 {
		return nil, fmt.Errorf("%w: empty fulltext query", index.ErrBadParameter)
	}
	if len(q) > MaxQueryWords {
		return nil, fmt.Errorf("%w: fulltext query has %d words, at most %d allowed", index.ErrBadParameter, len(q), MaxQueryWords)
	}
	for _, t := range q {
		if t.Match == Substring && !ix.desc.Substrings {
			return nil, fmt.Errorf("%w: substring query on an index without substrings", index.ErrNotImplemented)
		}
	}

	step := index.NewStepper(ctx)
	if err := step.Err(); err != nil {
		return nil, err
	}

	var (
		result  *roaring.Bitmap
		matched []string
	)
	for _, t := range q {
		words, err := ix.match(step, t)
		if err != nil {
			return nil, err
		}
		rows := roaring.New()
		for _, w := range words {
			rows.Or(ix.inverted[w].rows)
		}
		if result == nil {
			result = rows
		} else {
			result.And(rows)
		}
		if result.IsEmpty() {
			return nil, nil
		}
		matched = append(matched, words...)
	}

	scores := ix.score(result, matched)
	out := make([]model.Candidate, 0, len(scores))
	for id, s := range scores {
		out = append(out, model.Candidate{RowID: id, Score: s})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].RowID < out[j].RowID
	})
	return out, nil
}

// match returns the stored words a term selects.
func (ix *Index) match(step *index.Stepper, t Term) ([]string, error) {
	switch t.Match {
	case Prefix:
		start, _ := slices.BinarySearch(ix.words, t.Word)
		var out []string
		for _, w := range ix.words[start:] {
			if err := step.Step(); err != nil {
				return nil, err
			}
			if !strings.HasPrefix(w, t.Word) {
				break
			}
			out = append(out, w)
		}
		return out, nil
	case Substring:
		var out []string
		for _, w := range ix.words {
			if err := step.Step(); err != nil {
				return nil, err
			}
			if strings.Contains(w, t.Word) {
				out = append(out, w)
			}
		}
		return out, nil
	default:
		if _, ok := ix.inverted[t.Word]; ok {
			return []string{t.Word}, nil
		}
		return nil, nil
	}
}

// score sums BM25 weights of the matched words for every row in rows.
func (ix *Index) score(rows *roaring.Bitmap, words []string) map[model.RowID]float64 {
	scores := make(map[model.RowID]float64, rows.GetCardinality())
	it := rows.Iterator()
	for it.HasNext() {
		scores[model.RowID(it.Next())] = 0
	}

	docCount := len(ix.docLengths)
	avgDL := float64(ix.totalLength) / float64(docCount)
	if avgDL == 0 {
		avgDL = 1
	}

	for _, w := range slices.Compact(slices.Sorted(slices.Values(words))) {
		p := ix.inverted[w]
		idf := computeIDF(docCount, int(p.rows.GetCardinality()))
		for id := range scores {
			count, ok := p.counts[id]
			if !ok {
				continue
			}
			tf := float64(count)
			docLen := float64(ix.docLengths[id])
			num := tf * (k1 + 1)
			denom := tf + k1*(1-b+b*(docLen/avgDL))
			scores[id] += idf * (num / denom)
		}
	}
	return scores
}

// computeIDF is log(1 + (N - n + 0.5) / (n + 0.5)).
func computeIDF(docCount, df int) float64 {
	n := float64(df)
	return math.Log(1 + (float64(docCount)-n+0.5)/(n+0.5))
}
