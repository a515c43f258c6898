// Package orchestrate assembles the parser/normaliser/fingerprinter/
// comparator/aggregator pipeline into the single unified response record an
// analysis request produces.
package orchestrate

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/standardbeagle/plagscan/internal/aggregate"
	"github.com/standardbeagle/plagscan/internal/compare"
	plagerrors "github.com/standardbeagle/plagscan/internal/errors"
	"github.com/standardbeagle/plagscan/internal/fingerprint"
	"github.com/standardbeagle/plagscan/internal/importgraph"
	"github.com/standardbeagle/plagscan/internal/judge"
	"github.com/standardbeagle/plagscan/internal/parser"
	"github.com/standardbeagle/plagscan/internal/types"
	"github.com/standardbeagle/plagscan/internal/uir"
)

// SourceFile is one input file's path and raw bytes.
type SourceFile struct {
	Path string
	Data []byte
}

// Summary carries the headline counts from the response schema's `summary`
// object, plus a skipped_files field for the files that never produced a
// fingerprint.
type Summary struct {
	TotalFiles           int     `json:"total_files"`
	SuspiciousPairsCount int     `json:"suspicious_pairs_count"`
	HighestSimilarity    float64 `json:"highest_similarity"`
	ClusterCount         int     `json:"cluster_count"`
	SkippedFiles         int     `json:"skipped_files"`
}

// PairReport is one scored pair plus the optional semantic-judge verdict,
// present only once the pair clears the judge threshold.
type PairReport struct {
	*compare.PairResult
	Verdict *judge.Verdict `json:"verdict,omitempty"`
}

// Similarity bundles the pair list, matrix, graph and cluster list under one
// field, matching the response schema's similarity.* namespace.
type Similarity struct {
	Pairs    []*PairReport       `json:"pairs"`
	Matrix   *aggregate.Matrix   `json:"matrix"`
	Graph    *aggregate.Graph    `json:"graph"`
	Clusters []aggregate.Cluster `json:"clusters"`
}

// FileMetrics is one file's AST size/complexity entry in the response's
// metrics list.
type FileMetrics struct {
	Path            string `json:"path"`
	NodeCount       int    `json:"node_count"`
	FunctionCount   int    `json:"function_count"`
	MaxDepth        int    `json:"max_depth"`
	CyclomaticTotal int    `json:"cyclomatic_total"`
}

// Metadata carries the response's fixed metadata object.
type Metadata struct {
	AnalysisType string             `json:"analysis_type"`
	Timestamp    string             `json:"timestamp"`
	LLMEnabled   bool               `json:"llm_enabled"`
	ImportGraph  *importgraph.Graph `json:"import_graph,omitempty"`
}

// LLMSummary is present only when at least one pair carries a judge verdict.
type LLMSummary struct {
	VerdictCount  int `json:"verdict_count"`
	SemanticMatch int `json:"semantic_match_count"`
}

// Response is the unified record returned for one analysis request.
type Response struct {
	AnalysisID string        `json:"analysis_id"`
	Summary    Summary       `json:"summary"`
	Files      []string      `json:"files"`
	Similarity Similarity    `json:"similarity"`
	Metrics    []FileMetrics `json:"metrics"`
	Metadata   Metadata      `json:"metadata"`
	LLMSummary *LLMSummary   `json:"llm_summary,omitempty"`
	Errors     []string      `json:"errors,omitempty"`
}

// Options controls one Run invocation (weights, thresholds, worker count).
type Options struct {
	Weights          compare.Weights
	GraphThreshold   float64
	ClusterThreshold float64
	Concurrency      int
	AnalysisType     string
	JudgeClient      judge.Client
	JudgeThreshold   float64
}

// DefaultOptions mirrors the documented defaults.
func DefaultOptions() Options {
	return Options{
		Weights:          compare.DefaultWeights(),
		GraphThreshold:   types.DefaultGraphThreshold,
		ClusterThreshold: types.DefaultClusterThreshold,
		Concurrency:      8,
		AnalysisType:     "source",
		JudgeThreshold:   types.DefaultLLMThreshold,
	}
}

// nowStamp and newID are package variables so they can be replaced for
// deterministic output; by default they give the wall-clock time and a
// UUID v4.
var (
	nowStamp = func() string { return time.Now().UTC().Format(time.RFC3339) }
	newID    = func() string { return uuid.New().String() }
)

type fingerprinted struct {
	path        string
	family      types.LanguageFamily
	fingerprint *fingerprint.FileFingerprint
	root        *uir.Node
}

// Run parses, fingerprints, compares and aggregates files, producing one
// Response plus the per-file fingerprints backing it (for callers that cache
// the analysis and need to serve a raw-AST or ad-hoc compare endpoint
// later). Files whose parse fails are recorded in Response.Errors and
// excluded from comparison rather than aborting the whole request. Run
// returns an InputError (via plagerrors) if fewer than two files survive
// parsing, and a ConfigError if opts.Weights is malformed.
func Run(ctx context.Context, registry *parser.Registry, files []SourceFile, opts Options) (*Response, map[string]*fingerprint.FileFingerprint, error) {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 8
	}
	if opts.AnalysisType == "" {
		opts.AnalysisType = "source"
	}
	if opts.JudgeThreshold == 0 {
		opts.JudgeThreshold = types.DefaultLLMThreshold
	}
	if err := validateWeights(opts.Weights); err != nil {
		return nil, nil, err
	}

	sources := make(map[string][]byte, len(files))
	for _, f := range files {
		sources[f.Path] = f.Data
	}

	results := make([]*fingerprinted, len(files))
	errs := make([]string, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			root, err := registry.Parse(f.Data, f.Path)
			if err != nil {
				errs[i] = fmt.Sprintf("%s: %v", f.Path, err)
				return nil
			}
			// fingerprint.Build normalises root in place, rewriting every
			// literal (import paths included) to the sentinel value, so the
			// import graph reads a second, unnormalised parse of the source.
			importRoot, _ := registry.Parse(f.Data, f.Path)
			family := parser.FamilyForExtension(f.Path)
			fp := fingerprint.Build(f.Path, root)
			results[i] = &fingerprinted{path: f.Path, family: family, fingerprint: fp, root: importRoot}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var ok []*fingerprinted
	var failures []string
	for _, e := range errs {
		if e != "" {
			failures = append(failures, e)
		}
	}
	for _, r := range results {
		if r != nil {
			ok = append(ok, r)
		}
	}
	sort.Slice(ok, func(i, j int) bool { return ok[i].path < ok[j].path })

	if len(ok) < 2 {
		return nil, nil, plagerrors.NewInputError(
			fmt.Sprintf("at least two processable files are required, got %d", len(ok)))
	}

	scored := comparePairs(ok, opts.Weights)
	sort.Slice(scored, func(i, j int) bool { return scored[i].WeightedScore > scored[j].WeightedScore })

	// Only pairs whose weighted score clears the emission threshold are
	// reported as SimilarityPairs; the matrix still needs every same-family
	// pair to stay dense, so it's built from scored, not emitted.
	emitted := make([]*compare.PairResult, 0, len(scored))
	for _, p := range scored {
		if p.WeightedScore >= opts.Weights.Threshold {
			emitted = append(emitted, p)
		}
	}

	pairs, err := attachVerdicts(ctx, emitted, sources, opts)
	if err != nil {
		return nil, nil, err
	}

	paths := make([]string, len(ok))
	metrics := make([]FileMetrics, len(ok))
	fingerprints := make(map[string]*fingerprint.FileFingerprint, len(ok))
	for i, r := range ok {
		paths[i] = r.path
		fingerprints[r.path] = r.fingerprint
		metrics[i] = FileMetrics{
			Path:            r.path,
			NodeCount:       r.fingerprint.AST.NodeCount,
			FunctionCount:   r.fingerprint.AST.FunctionCount,
			MaxDepth:        r.fingerprint.AST.MaxDepth,
			CyclomaticTotal: r.fingerprint.AST.CyclomaticTotal,
		}
	}

	matrix := aggregate.BuildMatrix(paths, scored)
	graph := aggregate.BuildGraph(paths, scored, opts.GraphThreshold)
	clusters := aggregate.BuildClusters(paths, scored, opts.ClusterThreshold)

	flagged := 0
	highest := 0.0
	for _, p := range emitted {
		if p.PlagiarismFlag {
			flagged++
		}
		if p.WeightedScore > highest {
			highest = p.WeightedScore
		}
	}

	llmSummary := buildLLMSummary(pairs)

	roots := make(map[string]*uir.Node, len(ok))
	for _, r := range ok {
		roots[r.path] = r.root
	}

	resp := &Response{
		AnalysisID: newID(),
		Summary: Summary{
			TotalFiles:           len(ok),
			SuspiciousPairsCount: flagged,
			HighestSimilarity:    highest,
			ClusterCount:         len(clusters),
			SkippedFiles:         len(failures),
		},
		Files: paths,
		Similarity: Similarity{
			Pairs:    pairs,
			Matrix:   matrix,
			Graph:    graph,
			Clusters: clusters,
		},
		Metrics: metrics,
		Metadata: Metadata{
			AnalysisType: opts.AnalysisType,
			Timestamp:    nowStamp(),
			LLMEnabled:   opts.JudgeClient != nil,
			ImportGraph:  importgraph.Build(roots),
		},
		LLMSummary: llmSummary,
		Errors:     failures,
	}
	return resp, fingerprints, nil
}

var identifierPattern = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)

// tokenizeIdentifiers extracts a coarse identifier vocabulary straight from
// source bytes, for the judge pre-filter's stemmed fuzzy-overlap check. It
// deliberately doesn't distinguish identifiers from keywords or string
// contents: the pre-filter only needs a cheap signal of shared vocabulary,
// not a precise symbol table.
func tokenizeIdentifiers(data []byte) []string {
	return identifierPattern.FindAllString(string(data), -1)
}

// attachVerdicts runs the semantic judge over every pair whose structural
// score clears opts.JudgeThreshold, wrapping each scored pair (verdict or
// not) into a PairReport in the same order as scored.
func attachVerdicts(ctx context.Context, scored []*compare.PairResult, sources map[string][]byte, opts Options) ([]*PairReport, error) {
	reports := make([]*PairReport, len(scored))
	for i, p := range scored {
		report := &PairReport{PairResult: p}
		if p.WeightedScore >= opts.JudgeThreshold {
			leftIDs := tokenizeIdentifiers(sources[p.LeftPath])
			rightIDs := tokenizeIdentifiers(sources[p.RightPath])
			verdict, err := judge.Evaluate(ctx, opts.JudgeClient,
				string(sources[p.LeftPath]), string(sources[p.RightPath]),
				leftIDs, rightIDs, p.WeightedScore)
			if err != nil {
				return nil, fmt.Errorf("judge evaluation for %s/%s: %w", p.LeftPath, p.RightPath, err)
			}
			report.Verdict = verdict
		}
		reports[i] = report
	}
	return reports, nil
}

// buildLLMSummary reports how many pairs carried a judge verdict and how
// many of those were classified as a semantic match; nil if no pair was
// evaluated.
func buildLLMSummary(pairs []*PairReport) *LLMSummary {
	summary := &LLMSummary{}
	for _, p := range pairs {
		if p.Verdict == nil {
			continue
		}
		summary.VerdictCount++
		if p.Verdict.IsSemanticMatch {
			summary.SemanticMatch++
		}
	}
	if summary.VerdictCount == 0 {
		return nil
	}
	return summary
}

// comparePairs scores every same-family pair exactly once; cross-family
// pairs are never scored.
func comparePairs(files []*fingerprinted, weights compare.Weights) []*compare.PairResult {
	var pairs []*compare.PairResult
	for i := 0; i < len(files); i++ {
		for j := i + 1; j < len(files); j++ {
			if files[i].family != files[j].family || files[i].family == types.FamilyUnknown {
				continue
			}
			pairs = append(pairs, compare.Pair(files[i].fingerprint, files[j].fingerprint, weights))
		}
	}
	return pairs
}

// validateWeights rejects a misconfigured weight/threshold with the shared
// ConfigError type rather than letting it silently zero out the score deep
// in comparePairs.
func validateWeights(w compare.Weights) error {
	if w.AST < 0 || w.CFG < 0 || w.DFG < 0 {
		return wrapConfigError("weights", w, fmt.Errorf("layer weights must be non-negative"))
	}
	if w.Threshold < 0 || w.Threshold > 1 {
		return wrapConfigError("threshold", w.Threshold, fmt.Errorf("plagiarism threshold must be in [0,1]"))
	}
	return nil
}

func wrapConfigError(field string, value any, err error) error {
	return plagerrors.NewConfigError(field, fmt.Sprint(value), err)
}
