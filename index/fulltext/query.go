package fulltext

import (
	"fmt"
	"strings"

	"github.com/hupe1980/docquery/index"
)

// MaxQueryWords is the largest number of words in one query.
const MaxQueryWords = 32

// Match selects how a query word is matched against stored words.
type Match uint8

const (
	// Complete matches whole words.
	Complete Match = iota
	// Prefix matches stored words starting with the query word.
	Prefix
	// Substring matches stored words containing the query word.
	Substring
)

// String implements fmt.Stringer.
func (m Match) String() string {
	switch m {
	case Prefix:
		return "prefix"
	case Substring:
		return "substring"
	default:
		return "complete"
	}
}

// Term is one word of a query.
type Term struct {
	Word  string
	Match Match
}

// String renders the term in query syntax.
func (t Term) String() string { return t.Match.String() + ":" + t.Word }

// Query is a conjunction of terms: a document matches if it matches every
// term.
type Query []Term

// String renders the query in query syntax.
func (q Query) String() string {
	parts := make([]string, len(q))
	for i, t := range q {
		parts[i] = t.String()
	}
	return strings.Join(parts, ",")
}

// ParseQuery parses a comma-separated list of words, each optionally
// prefixed with "complete:", "prefix:" or "substring:":
//
//	"prefix:data,complete:base"
func ParseQuery(s string) (Query, error) {
	var q Query
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		m := Complete
		if name, word, ok := strings.Cut(part, ":"); ok {
			switch strings.ToLower(strings.TrimSpace(name)) {
			case "complete":
			case "prefix":
				m = Prefix
			case "substring":
				m = Substring
			default:
				return nil, fmt.Errorf("%w: unknown match type %q", index.ErrBadParameter, name)
			}
			part = word
		}

		words := Words(part, 1)
		if len(words) == 0 {
			continue
		}
		for _, w := range words {
			q = append(q, Term{Word: w, Match: m})
		}
	}

	if len(q) == 0 {
		return nil, fmt.Errorf("%w: empty fulltext query", index.ErrBadParameter)
	}
	if len(q) > MaxQueryWords {
		return nil, fmt.Errorf("%w: fulltext query has %d words, at most %d allowed", index.ErrBadParameter, len(q), MaxQueryWords)
	}
	return q, nil
}
