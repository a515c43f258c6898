package orchestrate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/standardbeagle/plagscan/internal/compare"
	"github.com/standardbeagle/plagscan/internal/parser"
)

// TestMain ensures the errgroup worker pool Run spins up for each call
// leaves nothing running after the test finishes.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)
}

func files(pairs map[string]string) []SourceFile {
	out := make([]SourceFile, 0, len(pairs))
	for path, src := range pairs {
		out = append(out, SourceFile{Path: path, Data: []byte(src)})
	}
	return out
}

func TestRun_ScoresIdenticalFilesAsPlagiarismFlag(t *testing.T) {
	registry := parser.NewRegistry()
	opts := DefaultOptions()

	resp, fps, err := Run(context.Background(), registry, files(map[string]string{
		"a.py": "def f(x):\n    return x + 1\n",
		"b.py": "def f(x):\n    return x + 1\n",
	}), opts)

	require.NoError(t, err)
	require.Len(t, resp.Files, 2)
	require.Len(t, resp.Similarity.Pairs, 1)
	assert.True(t, resp.Similarity.Pairs[0].PlagiarismFlag)
	assert.Equal(t, 1, resp.Summary.SuspiciousPairsCount)
	assert.Len(t, fps, 2)
}

func TestRun_CrossLanguagePairsAreNeverCompared(t *testing.T) {
	registry := parser.NewRegistry()
	opts := DefaultOptions()

	resp, _, err := Run(context.Background(), registry, files(map[string]string{
		"a.py": "def f(x):\n    return x + 1\n",
		"b.js": "function f(x) {\n    return x + 1;\n}\n",
	}), opts)

	require.NoError(t, err)
	assert.Empty(t, resp.Similarity.Pairs, "different language families must never be scored against each other")
}

func TestRun_UnparseableFileIsSkippedNotFatal(t *testing.T) {
	registry := parser.NewRegistry()
	opts := DefaultOptions()

	resp, _, err := Run(context.Background(), registry, files(map[string]string{
		"a.py":       "def f(x):\n    return x + 1\n",
		"b.py":       "def f(x):\n    return x + 1\n",
		"broken.bin": "\x00\x01\x02binary garbage that is not valid utf8 \xff",
	}), opts)

	require.NoError(t, err)
	assert.Equal(t, 2, resp.Summary.TotalFiles)
}

func TestRun_FewerThanTwoProcessableFilesIsInputError(t *testing.T) {
	registry := parser.NewRegistry()
	opts := DefaultOptions()

	_, _, err := Run(context.Background(), registry, files(map[string]string{
		"a.py": "def f(x):\n    return x + 1\n",
	}), opts)

	require.Error(t, err)
}

func TestRun_NegativeWeightIsConfigError(t *testing.T) {
	registry := parser.NewRegistry()
	opts := DefaultOptions()
	opts.Weights = compare.Weights{AST: -1, CFG: 1, DFG: 1, Threshold: 0.5}

	_, _, err := Run(context.Background(), registry, files(map[string]string{
		"a.py": "def f(x):\n    return x + 1\n",
		"b.py": "def g(y):\n    return y + 1\n",
	}), opts)

	require.Error(t, err)
}

func TestRun_ThresholdOutOfRangeIsConfigError(t *testing.T) {
	registry := parser.NewRegistry()
	opts := DefaultOptions()
	opts.Weights.Threshold = 1.5

	_, _, err := Run(context.Background(), registry, files(map[string]string{
		"a.py": "def f(x):\n    return x + 1\n",
		"b.py": "def g(y):\n    return y + 1\n",
	}), opts)

	require.Error(t, err)
}

func TestRun_NoJudgeClientSynthesisesVerdictAboveThreshold(t *testing.T) {
	registry := parser.NewRegistry()
	opts := DefaultOptions()
	opts.JudgeThreshold = 0.01 // force every pair through the judge (0 resets to the default)

	resp, _, err := Run(context.Background(), registry, files(map[string]string{
		"a.py": "def f(x):\n    return x + 1\n",
		"b.py": "def f(x):\n    return x + 1\n",
	}), opts)

	require.NoError(t, err)
	require.Len(t, resp.Similarity.Pairs, 1)
	assert.False(t, resp.Metadata.LLMEnabled, "no JudgeClient was configured")
}
