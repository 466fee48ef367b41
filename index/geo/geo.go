// Package geo implements the geo index: documents located by latitude and
// longitude, queried for the nearest points or all points within a radius.
package geo

import (
	"container/heap"
	"context"
	"fmt"
	"math"
	"slices"
	"sort"

	"github.com/hupe1980/docquery/index"
	"github.com/hupe1980/docquery/model"
	"github.com/hupe1980/docquery/value"
)

// EarthRadius is the mean earth radius in metres.
const EarthRadius = 6371000.0

func init() {
	factory := func(desc index.Descriptor) (index.Index, error) {
		if desc.Unique {
			return nil, fmt.Errorf("%w: geo indexes cannot be unique", index.ErrBadParameter)
		}
		return New(desc), nil
	}
	index.Register(index.KindGeo1, factory)
	index.Register(index.KindGeo2, factory)
}

type point struct {
	id       model.RowID
	lat, lon float64
}

// Index keeps located documents sorted by latitude. Documents without a
// valid coordinate pair are not indexed.
type Index struct {
	desc   index.Descriptor
	points []point
	byID   map[model.RowID]point
}

// New returns an empty geo index.
func New(desc index.Descriptor) *Index {
	return &Index{
		desc: desc,
		byID: make(map[model.RowID]point),
	}
}

// Descriptor implements index.Index.
func (ix *Index) Descriptor() index.Descriptor { return ix.desc }

// Len implements index.Index.
func (ix *Index) Len() int { return len(ix.points) }

// Insert implements index.Index.
func (ix *Index) Insert(id model.RowID, doc value.Document) error {
	lat, lon, ok := ix.coordinates(doc)
	if !ok {
		return nil
	}
	p := point{id: id, lat: lat, lon: lon}
	i := ix.search(lat)
	ix.points = slices.Insert(ix.points, i, p)
	ix.byID[id] = p
	return nil
}

// Remove implements index.Index.
func (ix *Index) Remove(id model.RowID, _ value.Document) {
	p, ok := ix.byID[id]
	if !ok {
		return
	}
	delete(ix.byID, id)
	for i := ix.search(p.lat); i < len(ix.points) && ix.points[i].lat == p.lat; i++ {
		if ix.points[i].id == id {
			ix.points = slices.Delete(ix.points, i, i+1)
			return
		}
	}
}

// search returns the first position whose latitude is >= lat.
func (ix *Index) search(lat float64) int {
	return sort.Search(len(ix.points), func(i int) bool { return ix.points[i].lat >= lat })
}

func (ix *Index) coordinates(doc value.Document) (lat, lon float64, ok bool) {
	if ix.desc.Kind == index.KindGeo2 {
		lat, ok1 := doc.Lookup(ix.desc.Fields[0]).Number()
		lon, ok2 := doc.Lookup(ix.desc.Fields[1]).Number()
		return lat, lon, ok1 && ok2 && Valid(lat, lon)
	}

	pair, isArr := doc.Lookup(ix.desc.Fields[0]).AsArray()
	if !isArr || len(pair) != 2 {
		return 0, 0, false
	}
	a, ok1 := pair[0].Number()
	b, ok2 := pair[1].Number()
	if !ok1 || !ok2 {
		return 0, 0, false
	}
	if ix.desc.GeoJSON {
		a, b = b, a
	}
	return a, b, Valid(a, b)
}

// Valid reports whether lat and lon are a coordinate pair in range.
func Valid(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// Distance returns the haversine distance in metres between two points.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	const rad = math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLon := (lon2 - lon1) * rad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * EarthRadius * math.Asin(math.Min(1, math.Sqrt(a)))
}

// Near returns up to limit documents closest to (lat, lon), nearest first.
// Candidate.Score holds the distance in metres.
func (ix *Index) Near(ctx context.Context, lat, lon float64, limit int) ([]model.Candidate, error) {
	if !Valid(lat, lon) {
		return nil, fmt.Errorf("%w: invalid coordinate (%g, %g)", index.ErrBadParameter, lat, lon)
	}
	if limit <= 0 {
		return nil, fmt.Errorf("%w: near limit must be positive", index.ErrBadParameter)
	}

	step := index.NewStepper(ctx)
	if err := step.Err(); err != nil {
		return nil, err
	}

	h := make(maxHeap, 0, min(limit, len(ix.points)))
	for _, p := range ix.points {
		if err := step.Step(); err != nil {
			return nil, err
		}
		c := model.Candidate{RowID: p.id, Score: Distance(lat, lon, p.lat, p.lon)}
		if h.Len() < limit {
			heap.Push(&h, c)
			continue
		}
		if less(c, h[0]) {
			h[0] = c
			heap.Fix(&h, 0)
		}
	}

	out := []model.Candidate(h)
	slices.SortFunc(out, compare)
	return out, nil
}

// Within returns all documents at most radius metres from (lat, lon),
// nearest first.
func (ix *Index) Within(ctx context.Context, lat, lon, radius float64) ([]model.Candidate, error) {
	if !Valid(lat, lon) {
		return nil, fmt.Errorf("%w: invalid coordinate (%g, %g)", index.ErrBadParameter, lat, lon)
	}
	if radius < 0 || math.IsNaN(radius) {
		return nil, fmt.Errorf("%w: negative radius", index.ErrBadParameter)
	}

	step := index.NewStepper(ctx)
	if err := step.Err(); err != nil {
		return nil, err
	}

	// Every point within radius lies in this latitude band.
	band := radius / EarthRadius * 180 / math.Pi
	var out []model.Candidate
	for i := ix.search(lat - band); i < len(ix.points) && ix.points[i].lat <= lat+band; i++ {
		if err := step.Step(); err != nil {
			return nil, err
		}
		p := ix.points[i]
		if d := Distance(lat, lon, p.lat, p.lon); d <= radius {
			out = append(out, model.Candidate{RowID: p.id, Score: d})
		}
	}
	slices.SortFunc(out, compare)
	return out, nil
}

func compare(a, b model.Candidate) int {
	switch {
	case a.Score < b.Score:
		return -1
	case a.Score > b.Score:
		return 1
	case a.RowID < b.RowID:
		return -1
	case a.RowID > b.RowID:
		return 1
	}
	return 0
}

func less(a, b model.Candidate) bool { return compare(a, b) < 0 }

// maxHeap keeps the farthest of the current best candidates on top.
type maxHeap []model.Candidate

func (h maxHeap) Len() int           { return len(h) }
func (h maxHeap) Less(i, j int) bool { return less(h[j], h[i]) }
func (h maxHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *maxHeap) Push(x any)        { *h = append(*h, x.(model.Candidate)) }
func (h *maxHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
