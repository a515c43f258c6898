package judge

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/plagscan/internal/types"
)

type stubClient struct {
	verdict *Verdict
	err     error
	called  bool
}

func (s *stubClient) Judge(ctx context.Context, leftSource, rightSource string, structuralScore float64) (*Verdict, error) {
	s.called = true
	return s.verdict, s.err
}

func TestStemmer_StemsAboveMinLengthUnlessExcluded(t *testing.T) {
	s := NewStemmer(true, 3, map[string]bool{"api": true})

	assert.NotEqual(t, "authenticate", s.Stem("authenticate"), "a long non-excluded word must be stemmed")
	assert.Equal(t, "api", s.Stem("api"), "excluded words are never stemmed")
	assert.Equal(t, "id", s.Stem("id"), "words under min length are never stemmed")
}

func TestStemmer_DisabledReturnsWordUnchanged(t *testing.T) {
	s := NewStemmer(false, 3, nil)
	assert.Equal(t, "authenticate", s.Stem("authenticate"))
}

func TestFuzzyMatcher_ExactMatchAlwaysOne(t *testing.T) {
	fm := NewFuzzyMatcher(true, 0.8)
	assert.Equal(t, 1.0, fm.Similarity("total", "total"))
}

func TestFuzzyMatcher_ThresholdOutOfRangeFallsBackToDefault(t *testing.T) {
	fm := NewFuzzyMatcher(true, 1.5)
	assert.Equal(t, 0.80, fm.threshold)
}

func TestFuzzyMatcher_VocabularyOverlap_EmptySetsScoreZero(t *testing.T) {
	fm := NewFuzzyMatcher(true, 0.8)
	assert.Equal(t, 0.0, fm.VocabularyOverlap(map[string]bool{}, map[string]bool{"x": true}))
}

func TestPreFilter_ShouldEscalate_UnrelatedVocabularyDoesNotEscalate(t *testing.T) {
	pf := NewPreFilter()
	escalate, _ := pf.ShouldEscalate([]string{"zebra", "quasar"}, []string{"widget", "gadget"})
	assert.False(t, escalate)
}

func TestPreFilter_ShouldEscalate_SharedVocabularyEscalates(t *testing.T) {
	pf := NewPreFilter()
	escalate, overlap := pf.ShouldEscalate([]string{"authenticate", "authorize"}, []string{"authentication", "authorization"})
	assert.True(t, escalate)
	assert.Greater(t, overlap, 0.0)
}

func TestEvaluate_NoClientSynthesisesVerdictFromStructuralScore(t *testing.T) {
	verdict, err := Evaluate(context.Background(), nil,
		"def authenticate(u): ...", "def authenticate(user): ...",
		[]string{"authenticate", "user"}, []string{"authenticate", "user"},
		types.DefaultLLMThreshold+0.05)

	require.NoError(t, err)
	assert.True(t, verdict.IsSemanticMatch)
}

func TestEvaluate_BelowPreFilterNeverCallsClient(t *testing.T) {
	client := &stubClient{verdict: &Verdict{IsSemanticMatch: true}}
	verdict, err := Evaluate(context.Background(), client,
		"...", "...", []string{"zebra"}, []string{"gadget"}, 0.9)

	require.NoError(t, err)
	assert.False(t, client.called, "the pre-filter must reject unrelated vocabulary before calling the external judge")
	assert.False(t, verdict.IsSemanticMatch)
}

func TestEvaluate_EscalatesToClientAndPropagatesError(t *testing.T) {
	client := &stubClient{err: errors.New("upstream unavailable")}
	_, err := Evaluate(context.Background(), client,
		"...", "...", []string{"authenticate"}, []string{"authentication"}, 0.9)

	require.Error(t, err)
	assert.True(t, client.called)
}

func TestEvaluate_EscalatesAndReturnsClientVerdict(t *testing.T) {
	client := &stubClient{verdict: &Verdict{IsSemanticMatch: true, RiskLevel: types.RiskCritical}}
	verdict, err := Evaluate(context.Background(), client,
		"...", "...", []string{"authenticate"}, []string{"authentication"}, 0.9)

	require.NoError(t, err)
	assert.True(t, client.called)
	assert.Equal(t, types.RiskCritical, verdict.RiskLevel)
}
