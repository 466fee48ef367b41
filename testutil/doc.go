// Package testutil provides testing utilities for docquery.
//
// This package is intended for use in tests and benchmarks only.
// It provides a deterministic RNG, document generators and brute-force
// ground truth for index lookups.
//
//	rng := testutil.NewRNG(seed)
//	docs := rng.Documents(1000, 20, 0.1)
//	want := testutil.Filter(docs, func(d value.Document) bool { ... })
package testutil
