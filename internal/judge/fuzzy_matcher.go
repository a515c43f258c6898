package judge

import (
	"github.com/hbollon/go-edlib"
)

// FuzzyMatcher scores identifier-vocabulary similarity with Jaro-Winkler,
// tolerating the spelling variance a student introduces when disguising a
// copy (renamed but phonetically close identifiers).
type FuzzyMatcher struct {
	enabled   bool
	threshold float64
}

// NewFuzzyMatcher builds a FuzzyMatcher. threshold outside [0,1] falls back
// to 0.80.
func NewFuzzyMatcher(enabled bool, threshold float64) *FuzzyMatcher {
	if threshold < 0 || threshold > 1 {
		threshold = 0.80
	}
	return &FuzzyMatcher{enabled: enabled, threshold: threshold}
}

func (fm *FuzzyMatcher) IsEnabled() bool { return fm.enabled }

// Similarity returns the Jaro-Winkler similarity of a and b in [0,1].
func (fm *FuzzyMatcher) Similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if !fm.enabled || a == "" || b == "" {
		if a == b {
			return 1.0
		}
		return 0.0
	}
	score, err := edlib.StringsSimilarity(a, b, edlib.JaroWinkler)
	if err != nil {
		return 0.0
	}
	return float64(score)
}

// Match reports whether a and b are similar enough to count as the same
// vocabulary term.
func (fm *FuzzyMatcher) Match(a, b string) bool {
	return fm.Similarity(a, b) >= fm.threshold
}

// VocabularyOverlap scores how much of left's stemmed vocabulary has a
// fuzzy match somewhere in right's, used as the judge pre-filter's cheap
// signal before an external model call.
func (fm *FuzzyMatcher) VocabularyOverlap(left, right map[string]bool) float64 {
	if len(left) == 0 || len(right) == 0 {
		return 0
	}
	matched := 0
	for l := range left {
		for r := range right {
			if fm.Match(l, r) {
				matched++
				break
			}
		}
	}
	return float64(matched) / float64(len(left))
}
