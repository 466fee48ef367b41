package model

import (
	"fmt"
)

// RowID is a dense, collection-local identifier for a stored document.
// RowIDs are never reused within the lifetime of a collection.
type RowID uint32

// String returns a string representation of the RowID.
func (id RowID) String() string {
	return fmt.Sprintf("Row(%d)", uint32(id))
}

// Key is the user-facing stable identifier stored in a document's _key
// attribute.
type Key string

// KeyAttribute is the attribute holding a document's Key.
const KeyAttribute = "_key"

// Candidate is a document reference produced by an index, optionally
// carrying a score (distance for geo, relevance for fulltext).
type Candidate struct {
	RowID RowID
	Score float64
}

// RowIDs extracts the row ids of cs in order.
func RowIDs(cs []Candidate) []RowID {
	out := make([]RowID, len(cs))
	for i, c := range cs {
		out[i] = c.RowID
	}
	return out
}
