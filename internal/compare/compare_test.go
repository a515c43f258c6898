package compare

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/plagscan/internal/fingerprint"
	"github.com/standardbeagle/plagscan/internal/parser"
)

func mustFingerprint(t *testing.T, registry *parser.Registry, path, source string) *fingerprint.FileFingerprint {
	t.Helper()
	root, err := registry.Parse([]byte(source), path)
	require.NoError(t, err)
	return fingerprint.Build(path, root)
}

func TestPair_RenamedIdentifiersScoreIdentical(t *testing.T) {
	registry := parser.NewRegistry()
	left := mustFingerprint(t, registry, "a.py", "def f(x):\n    return x + 1\n")
	right := mustFingerprint(t, registry, "b.py", "def g(y):\n    return y + 1\n")

	result := Pair(left, right, DefaultWeights())
	assert.Equal(t, 1.0, result.ASTSimilarity, "renaming f/x to g/y must not change the AST hash set")
	assert.True(t, result.PlagiarismFlag)
}

func TestPair_BranchFreeVsOneIfDivergesOnCFG(t *testing.T) {
	registry := parser.NewRegistry()
	left := mustFingerprint(t, registry, "linear.py", "def f(x):\n    return x + 1\n")
	right := mustFingerprint(t, registry, "branchy.py", "def f(x):\n    if x > 0:\n        return x + 1\n    return x\n")

	result := Pair(left, right, DefaultWeights())
	assert.Less(t, result.CFGSimilarity, 1.0, "a branch-free function and a one-if function must not have identical CFG edge sets")
}

func TestPair_EmptySetsAreDefinedAsPerfectlySimilar(t *testing.T) {
	a := map[string]bool{}
	b := map[string]bool{}
	assert.Equal(t, 1.0, weightedJaccard(a, b))
}

func TestPair_WeightedScoreRespectsWeights(t *testing.T) {
	registry := parser.NewRegistry()
	left := mustFingerprint(t, registry, "a.py", "def f(x):\n    return x + 1\n")
	right := mustFingerprint(t, registry, "b.py", "def f(x):\n    if x > 0:\n        return x + 1\n    return x\n")

	astOnly := Weights{AST: 1, CFG: 0, DFG: 0, Threshold: 0.5}
	result := Pair(left, right, astOnly)
	assert.Equal(t, result.ASTSimilarity, result.WeightedScore)
}

func TestDedupeRegions_CollapsesExactDuplicatesAndSortsByLeftStart(t *testing.T) {
	regions := []MatchedRegion{
		{Layer: "ast", LeftStart: 20, LeftEnd: 25, RightStart: 20, RightEnd: 25, NodeType: "FunctionDeclaration"},
		{Layer: "ast", LeftStart: 1, LeftEnd: 10, RightStart: 1, RightEnd: 10, NodeType: "FunctionDeclaration"},
		{Layer: "ast", LeftStart: 1, LeftEnd: 10, RightStart: 1, RightEnd: 10, NodeType: "FunctionDeclaration"}, // exact duplicate
		{Layer: "ast", LeftStart: 2, LeftEnd: 4, RightStart: 2, RightEnd: 4, NodeType: "IfStatement"},           // nested but distinct span, must be kept
	}

	kept := dedupeRegions(regions)
	require.Len(t, kept, 3)
	assert.Equal(t, uint32(1), kept[0].LeftStart)
	assert.Equal(t, uint32(2), kept[1].LeftStart)
	assert.Equal(t, uint32(20), kept[2].LeftStart)
}
