// Package model defines the identity types shared by the collection and its
// indexes.
//
//   - RowID: collection-local document identifier (uint32)
//   - Key: user-facing document key, stored under _key
//   - Candidate: a RowID plus an optional index score
package model
