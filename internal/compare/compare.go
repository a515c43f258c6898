// Package compare scores pairwise similarity between two files' fingerprints.
package compare

import (
	"sort"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"github.com/standardbeagle/plagscan/internal/fingerprint"
	"github.com/standardbeagle/plagscan/internal/types"
	"github.com/standardbeagle/plagscan/internal/uir"
)

// MatchedRegion is one deduplicated overlapping span shared between two
// files, attributed to a specific layer.
type MatchedRegion struct {
	Layer      string `json:"layer"` // "ast", "cfg", or "dfg"
	LeftStart  uint32 `json:"left_start"`
	LeftEnd    uint32 `json:"left_end"`
	RightStart uint32 `json:"right_start"`
	RightEnd   uint32 `json:"right_end"`
	NodeType   string `json:"node_type"`
}

// PairResult is the full comparator output for one file pair.
type PairResult struct {
	LeftPath       string               `json:"left_path"`
	RightPath      string               `json:"right_path"`
	ASTSimilarity  float64              `json:"ast_similarity"`
	CFGSimilarity  float64              `json:"cfg_similarity"`
	DFGSimilarity  float64              `json:"dfg_similarity"`
	WeightedScore  float64              `json:"weighted_score"`
	Confidence     types.ConfidenceBand `json:"confidence"`
	PlagiarismFlag bool                 `json:"plagiarism_flag"`
	MatchedRegions []MatchedRegion      `json:"matched_regions,omitempty"`
}

// Weights carries the three layer weights plus the plagiarism-flag
// threshold; callers load these from config (env overrides
// AST_WEIGHT/CFG_WEIGHT/DATAFLOW_WEIGHT).
type Weights struct {
	AST       float64
	CFG       float64
	DFG       float64
	Threshold float64
}

// DefaultWeights mirrors the documented defaults.
func DefaultWeights() Weights {
	return Weights{
		AST:       types.DefaultASTWeight,
		CFG:       types.DefaultCFGWeight,
		DFG:       types.DefaultDFGWeight,
		Threshold: types.DefaultPlagiarismThreshold,
	}
}

// weightedJaccard computes |A∩B| / |A∪B| over two hash-key sets, with the
// documented empty-set special case: two files that both contribute no
// edges to a layer (e.g. neither has a branch, so the CFG sets are both
// empty) are defined as perfectly similar on that layer rather than
// undefined/zero, so a pair of trivially linear functions isn't penalised
// for having nothing to compare.
func weightedJaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	intersection := 0
	union := make(map[string]bool, len(a)+len(b))
	for k := range a {
		union[k] = true
		if b[k] {
			intersection++
		}
	}
	for k := range b {
		union[k] = true
	}
	if len(union) == 0 {
		return 1.0
	}
	return float64(intersection) / float64(len(union))
}

func astHashSet(fp *fingerprint.ASTFingerprint) map[string]bool {
	out := make(map[string]bool, len(fp.HashSet))
	for h := range fp.HashSet {
		out[h] = true
	}
	return out
}

// Pair scores one file pair across all three layers and enumerates matched
// regions.
func Pair(left, right *fingerprint.FileFingerprint, w Weights) *PairResult {
	astSim := weightedJaccard(astHashSet(left.AST), astHashSet(right.AST))
	cfgSim := weightedJaccard(left.CFG.EdgeHashes, right.CFG.EdgeHashes)
	dfgSim := weightedJaccard(left.DFG.EdgeHashes, right.DFG.EdgeHashes)

	total := w.AST + w.CFG + w.DFG
	var weighted float64
	if total > 0 {
		weighted = (astSim*w.AST + cfgSim*w.CFG + dfgSim*w.DFG) / total
	}

	result := &PairResult{
		LeftPath:       left.Path,
		RightPath:      right.Path,
		ASTSimilarity:  astSim,
		CFGSimilarity:  cfgSim,
		DFGSimilarity:  dfgSim,
		WeightedScore:  weighted,
		Confidence:     types.Band(weighted),
		PlagiarismFlag: weighted >= w.Threshold,
		MatchedRegions: matchedRegions(left.AST, right.AST),
	}
	return result
}

// isRootSpan reports whether info describes the whole-program root node
// (Program/Module), which spans the entire file on both sides and is never
// reported as a matched region of its own.
func isRootSpan(nodeType string) bool {
	return nodeType == uir.TypeProgram || nodeType == uir.TypeModule
}

// matchedRegions finds every subtree hash present in both files' AST hash
// sets and emits one deduplicated MatchedRegion per (left span, right span)
// combination, skipping the whole-program root span.
func matchedRegions(left, right *fingerprint.ASTFingerprint) []MatchedRegion {
	var regions []MatchedRegion
	for hash, leftInfos := range left.HashSet {
		rightInfos, ok := right.HashSet[hash]
		if !ok {
			continue
		}
		for _, li := range leftInfos {
			if isRootSpan(li.NodeType) {
				continue
			}
			for _, ri := range rightInfos {
				regions = append(regions, MatchedRegion{
					Layer:      "ast",
					LeftStart:  li.StartLine,
					LeftEnd:    li.EndLine,
					RightStart: ri.StartLine,
					RightEnd:   ri.EndLine,
					NodeType:   li.NodeType,
				})
			}
		}
	}
	return dedupeRegions(regions)
}

// regionKey hashes a region's (left span, right span) 4-tuple with xxhash;
// dedupeRegions uses it as the key for dropping exact-duplicate spans.
func regionKey(r MatchedRegion) uint64 {
	h := xxhash.New()
	h.WriteString(strconv.FormatUint(uint64(r.LeftStart), 10))
	h.WriteByte('|')
	h.WriteString(strconv.FormatUint(uint64(r.LeftEnd), 10))
	h.WriteByte('|')
	h.WriteString(strconv.FormatUint(uint64(r.RightStart), 10))
	h.WriteByte('|')
	h.WriteString(strconv.FormatUint(uint64(r.RightEnd), 10))
	return h.Sum64()
}

// dedupeRegions collapses exact-duplicate spans (the same 4-tuple reported
// by more than one subtree hash) via an xxhash-keyed set and orders the
// survivors by their left span's start line ascending.
func dedupeRegions(regions []MatchedRegion) []MatchedRegion {
	seen := make(map[uint64]bool, len(regions))
	unique := regions[:0]
	for _, r := range regions {
		key := regionKey(r)
		if seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, r)
	}

	sort.Slice(unique, func(i, j int) bool { return unique[i].LeftStart < unique[j].LeftStart })
	return unique
}
