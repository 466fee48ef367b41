// Package docquery provides in-memory document collections with secondary
// indexes and an index-selecting query executor.
//
// # Quick Start
//
//	ctx := context.Background()
//	users := docquery.NewCollection("users")
//	users.Insert(ctx, value.Document{"name": value.String("ada"), "age": value.Int(36)})
//	users.EnsureSkiplistIndex(ctx, false, "age")
//
//	res, _ := users.Execute(ctx, docquery.Query{
//	    Filter: ast.Gt(ast.Path("doc.age"), ast.ConstOf(30)),
//	    Sort:   []optimizer.SortKey{{Attribute: "age"}},
//	    Limit:  10,
//	})
//
// # Indexes
//
// Every collection has a unique primary hash index on _key. Secondary
// indexes are created with the Ensure* methods:
//
//	hash      equality lookups on all fields, optionally unique
//	skiplist  ordered; equality on a prefix of fields plus one range
//	bitarray  a bitmap per distinct value, for low-cardinality fields
//	geo       NEAR and WITHIN queries over coordinates
//	fulltext  word, prefix and substring queries over a text attribute
//
// # Query Planning
//
// Execute derives per-attribute access constraints from the filter, picks
// the index with the best worst-case access and turns the constraints into
// an index operator. Explain returns the same plan without running it. A
// filter that can never match yields an empty result without touching any
// index. The filter is always re-checked against candidates, so results do
// not depend on the index chosen.
//
// # Windows
//
// Query results carry the number of all matches in Total. Skip drops
// results from the start; a negative skip keeps only the last -skip
// results. Limit caps the number of returned documents.
//
// # Observability
//
// Structured logging is built on log/slog (see WithLogger) and operation
// metrics on MetricsCollector (see WithMetricsCollector and the
// observability package for Prometheus).
package docquery
