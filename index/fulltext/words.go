package fulltext

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

const (
	// DefaultMinWordLength is the shortest word stored when a descriptor
	// does not set one.
	DefaultMinWordLength = 2
	// MaxWordLength is the length in runes words are truncated to.
	MaxWordLength = 40
)

// Normalize lower-cases s in NFC form.
func Normalize(s string) string {
	// A Caser is stateful and cannot be shared between goroutines.
	return cases.Lower(language.Und).String(norm.NFC.String(s))
}

// Words splits text into normalized words of at least minLength runes.
// Words are separated by anything that is neither a letter nor a digit and
// are truncated to MaxWordLength runes.
func Words(text string, minLength int) []string {
	fields := strings.FieldsFunc(Normalize(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	out := fields[:0]
	for _, f := range fields {
		runes := []rune(f)
		if len(runes) < minLength {
			continue
		}
		if len(runes) > MaxWordLength {
			f = string(runes[:MaxWordLength])
		}
		out = append(out, f)
	}
	return out
}
