// Package judge implements the optional semantic-judge pre-filter and
// client contract. Structural near-misses that
// survive the AST/CFG/DFG comparator but whose identifier vocabulary looks
// unrelated are cheap to discard before ever calling an external model.
package judge

import (
	"strings"

	"github.com/surgebase/porter2"
)

// Stemmer normalises identifier vocabulary to its word stem so that
// "authenticate"/"authentication"/"authenticating" collapse to one term
// before the fuzzy pre-filter compares two files' identifier sets.
type Stemmer struct {
	enabled    bool
	minLength  int
	exclusions map[string]bool
}

// NewStemmer builds a Stemmer. exclusions lists identifiers (lower-cased)
// that should never be stemmed, e.g. well-known acronyms.
func NewStemmer(enabled bool, minLength int, exclusions map[string]bool) *Stemmer {
	if minLength < 0 {
		minLength = 3
	}
	if exclusions == nil {
		exclusions = make(map[string]bool)
	}
	return &Stemmer{enabled: enabled, minLength: minLength, exclusions: exclusions}
}

func (s *Stemmer) IsEnabled() bool { return s.enabled }

// Stem returns word's Porter2 stem, or word unchanged if stemming is
// disabled, the word is excluded, or it's shorter than the minimum length.
func (s *Stemmer) Stem(word string) string {
	if !s.enabled || len(word) < s.minLength || s.exclusions[strings.ToLower(word)] {
		return word
	}
	return porter2.Stem(word)
}

// StemSet stems every word in words and returns the distinct stem set.
func (s *Stemmer) StemSet(words []string) map[string]bool {
	out := make(map[string]bool, len(words))
	for _, w := range words {
		out[s.Stem(w)] = true
	}
	return out
}
