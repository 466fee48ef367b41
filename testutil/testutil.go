package testutil

import (
	"fmt"
	"math"
	"math/rand"
	"sync"

	"github.com/hupe1980/docquery/model"
	"github.com/hupe1980/docquery/value"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float64 returns a pseudo-random number in [0.0,1.0).
func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64()
}

// Zipf returns a Zipfian-distributed value in [0, n).
// s=1.0 gives standard Zipf, s=1.5 gives a heavy tail.
func (r *RNG) Zipf(n int, s float64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.zipfLocked(n, s)
}

// zipfLocked is the internal implementation (caller must hold lock).
func (r *RNG) zipfLocked(n int, s float64) int {
	if n <= 1 {
		return 0
	}

	var hns float64
	for i := 1; i <= n; i++ {
		hns += 1.0 / math.Pow(float64(i), s)
	}

	u := r.rand.Float64() * hns
	var cumulative float64
	for k := 1; k <= n; k++ {
		cumulative += 1.0 / math.Pow(float64(k), s)
		if u <= cumulative {
			return k - 1
		}
	}

	return n - 1
}

// Words is the vocabulary used by Text.
var Words = []string{
	"alpha", "bravo", "charlie", "delta", "echo", "foxtrot", "golf", "hotel",
	"india", "juliett", "kilo", "lima", "mike", "november", "oscar", "papa",
}

// Text returns n words drawn from Words, separated by spaces.
func (r *RNG) Text(n int) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]byte, 0, n*8)
	for i := range n {
		if i > 0 {
			out = append(out, ' ')
		}
		out = append(out, Words[r.rand.Intn(len(Words))]...)
	}
	return string(out)
}

// Documents generates n documents with the shape
//
//	{"_key": "k<i>", "n": <i>, "bucket": <zipf>, "tag": "t<j>",
//	 "loc": [lat, lon], "text": "...", "nested": {"v": <i mod 7>}}
//
// bucket follows a Zipf distribution over bucketCount values; roughly
// missingRate of the documents omit "tag".
func (r *RNG) Documents(n, bucketCount int, missingRate float64) []value.Document {
	docs := make([]value.Document, n)
	for i := range n {
		r.mu.Lock()
		bucket := r.zipfLocked(bucketCount, 1.2)
		missing := r.rand.Float64() < missingRate
		tag := r.rand.Intn(4)
		lat := r.rand.Float64()*180 - 90
		lon := r.rand.Float64()*360 - 180
		r.mu.Unlock()

		doc := value.Document{
			model.KeyAttribute: value.String(fmt.Sprintf("k%d", i)),
			"n":                value.Int(int64(i)),
			"bucket":           value.Int(int64(bucket)),
			"loc":              value.Array(value.Float(lat), value.Float(lon)),
			"text":             value.String(r.Text(4)),
			"nested":           value.Object(map[string]value.Value{"v": value.Int(int64(i % 7))}),
		}
		if !missing {
			doc["tag"] = value.String(fmt.Sprintf("t%d", tag))
		}
		docs[i] = doc
	}
	return docs
}

// Filter returns the positions of docs matching pred, the ground truth for
// index lookups.
func Filter(docs []value.Document, pred func(value.Document) bool) []model.RowID {
	var out []model.RowID
	for i, d := range docs {
		if pred(d) {
			out = append(out, model.RowID(i))
		}
	}
	return out
}
