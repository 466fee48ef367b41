// Package index defines the contract shared by the collection's secondary
// indexes.
//
// # Index Kinds
//
//   - Primary: unique hash on _key
//   - Hash: exact tuple lookups, optionally unique
//   - Skiplist: ordered tuples, equality prefix plus one range
//   - Bitarray: per-value bitmaps, arbitrary boolean conditions
//   - Geo1 / Geo2: near and within queries on coordinates
//   - Fulltext: word queries with complete, prefix and substring matching
//
// Implementations live in subpackages and register a Factory for their kind
// from init(); New dispatches on Descriptor.Kind.
//
// # Concurrency
//
// Indexes are not safe for concurrent mutation. The owning collection
// serialises Insert and Remove under its write lock and runs lookups under
// its read lock. Lookups take a context.Context and check it between steps.
package index
