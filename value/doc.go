// Package value provides the typed JSON value model shared by the optimiser,
// the index operators and the index adapters.
//
// # Ordering
//
// Compare defines a total order over all values:
//
//	undefined < null < bool < number < string < array < object
//
// Index construction and query evaluation both use Compare, so a value that
// an index stores under a key is found again by a lookup with an equal value.
//
// # Documents
//
// A Document is a map of attribute names to values. Dotted paths resolve
// through nested objects:
//
//	doc, _ := value.ParseDocument([]byte(`{"a": {"b": 1}}`))
//	v, ok := doc.Get("a.b") // 1, true
package value
