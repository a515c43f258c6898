package judge

import (
	"context"

	"github.com/standardbeagle/plagscan/internal/types"
)

// Verdict is the semantic judge's classification for one file pair,
// returned either by an external model or synthesised locally when no
// external judge is configured.
type Verdict struct {
	IsSemanticMatch bool            `json:"is_semantic_match"`
	Explanation     string          `json:"explanation"`
	RiskLevel       types.RiskLevel `json:"risk_level"`
}

// Client is the external collaborator contract for the optional LLM
// semantic judge. Implementations call out to whatever model backs the
// deployment; plagscan never ships one itself.
type Client interface {
	Judge(ctx context.Context, leftSource, rightSource string, structuralScore float64) (*Verdict, error)
}

// PreFilter decides whether a structural near-miss is worth escalating to
// the external Client at all, using stemmed-vocabulary fuzzy overlap as a
// cheap proxy for "these two files are at least talking about the same
// thing" before paying for a model call.
type PreFilter struct {
	stemmer *Stemmer
	fuzzy   *FuzzyMatcher
}

// NewPreFilter builds a PreFilter with the documented defaults: stemming
// enabled, minimum stemmed length 3, Jaro-Winkler threshold 0.80.
func NewPreFilter() *PreFilter {
	return &PreFilter{
		stemmer: NewStemmer(true, 3, defaultExclusions()),
		fuzzy:   NewFuzzyMatcher(true, 0.80),
	}
}

func defaultExclusions() map[string]bool {
	return map[string]bool{"api": true, "http": true, "url": true, "id": true}
}

// ShouldEscalate reports whether leftIdentifiers/rightIdentifiers look
// related enough to justify calling the external Client.
func (p *PreFilter) ShouldEscalate(leftIdentifiers, rightIdentifiers []string) (bool, float64) {
	leftStems := p.stemmer.StemSet(leftIdentifiers)
	rightStems := p.stemmer.StemSet(rightIdentifiers)
	overlap := p.fuzzy.VocabularyOverlap(leftStems, rightStems)
	return overlap >= p.fuzzy.threshold/2, overlap
}

// Evaluate runs the pre-filter and, if it clears, calls client. If client is
// nil (no external judge configured) it returns a verdict synthesised from
// the structural score and pre-filter overlap alone.
func Evaluate(ctx context.Context, client Client, leftSource, rightSource string, leftIdentifiers, rightIdentifiers []string, structuralScore float64) (*Verdict, error) {
	pf := NewPreFilter()
	escalate, overlap := pf.ShouldEscalate(leftIdentifiers, rightIdentifiers)
	if !escalate {
		return &Verdict{IsSemanticMatch: false, Explanation: "vocabulary overlap below pre-filter threshold", RiskLevel: riskFromScore(structuralScore, overlap)}, nil
	}
	if client == nil {
		return &Verdict{IsSemanticMatch: structuralScore >= types.DefaultLLMThreshold, Explanation: "no external judge configured; verdict derived from structural score and vocabulary overlap", RiskLevel: riskFromScore(structuralScore, overlap)}, nil
	}
	return client.Judge(ctx, leftSource, rightSource, structuralScore)
}

// riskFromScore combines the structural score with pre-filter vocabulary
// overlap into a coarse risk band when no external judge is available.
func riskFromScore(structuralScore, overlap float64) types.RiskLevel {
	combined := 0.7*structuralScore + 0.3*overlap
	switch {
	case combined >= 0.85:
		return types.RiskCritical
	case combined >= 0.70:
		return types.RiskHigh
	case combined >= 0.50:
		return types.RiskMedium
	default:
		return types.RiskLow
	}
}
