package docquery

import (
	"math"

	"github.com/hupe1980/docquery/value"
)

// NoLimit disables the limit of a window.
const NoLimit uint = math.MaxUint

// Window returns the slice [s, e) of a result of the given length selected
// by skip and limit. A positive skip drops results from the start, a
// negative skip keeps only the last -skip results.
func Window(length, skip int, limit uint) (s, e int) {
	e = length

	switch {
	case skip > 0:
		s = min(skip, e)
	case skip < 0:
		if -skip < e {
			s = e + skip
		}
	}

	if limit < uint(e-s) {
		e = s + int(limit)
	}
	return s, e
}

// Result is the outcome of a query.
type Result struct {
	// Documents are the returned documents in result order.
	Documents []value.Document `json:"documents"`
	// Total counts every match before windowing.
	Total int `json:"total"`
	// Count is len(Documents).
	Count int `json:"count"`
	// Distances holds the distance in metres of each document for geo
	// queries and is nil otherwise.
	Distances []float64 `json:"distances,omitempty"`
}

func emptyResult() *Result {
	return &Result{Documents: []value.Document{}}
}
