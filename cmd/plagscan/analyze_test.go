package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/plagscan/internal/config"
	"github.com/standardbeagle/plagscan/internal/orchestrate"
	"github.com/standardbeagle/plagscan/internal/parser"
	"github.com/standardbeagle/plagscan/internal/types"
)

func TestBuildOptions_UsesConfigWeightsAndThresholds(t *testing.T) {
	cfg := &config.Config{
		Weights: config.Weights{
			AST: 0.5, CFG: 0.3, DFG: 0.2,
			PlagiarismThresh: 0.8, GraphThresh: 0.6, ClusterThresh: 0.7,
		},
		Server: config.Server{ParallelWorkers: 4},
	}

	opts := buildOptions(cfg)

	assert.Equal(t, 0.5, opts.Weights.AST)
	assert.Equal(t, 0.8, opts.Weights.Threshold)
	assert.Equal(t, 0.6, opts.GraphThreshold)
	assert.Equal(t, 4, opts.Concurrency)
	assert.Equal(t, "cli", opts.AnalysisType)
}

func TestBuildOptions_ZeroParallelWorkersKeepsDefaultConcurrency(t *testing.T) {
	cfg := &config.Config{Weights: config.Weights{PlagiarismThresh: types.DefaultPlagiarismThreshold}}
	opts := buildOptions(cfg)
	assert.Equal(t, orchestrate.DefaultOptions().Concurrency, opts.Concurrency)
}

func TestRunOnce_WritesToOutputFileWhenSet(t *testing.T) {
	registry := parser.NewRegistry()
	files := []orchestrate.SourceFile{
		{Path: "a.py", Data: []byte("def f(x):\n    return x + 1\n")},
		{Path: "b.py", Data: []byte("def f(x):\n    return x + 1\n")},
	}
	opts := orchestrate.DefaultOptions()
	outPath := filepath.Join(t.TempDir(), "out.json")

	err := runOnce(context.Background(), registry, files, opts, outPath)
	require.NoError(t, err)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(data, &resp))
	assert.NotEmpty(t, resp["analysis_id"])
}

func TestRunOnce_PropagatesOrchestrateError(t *testing.T) {
	registry := parser.NewRegistry()
	files := []orchestrate.SourceFile{
		{Path: "a.py", Data: []byte("def f(x):\n    return x + 1\n")},
	}
	opts := orchestrate.DefaultOptions()

	err := runOnce(context.Background(), registry, files, opts, "")
	require.Error(t, err)
}
