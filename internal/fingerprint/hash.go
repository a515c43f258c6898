// Package fingerprint computes the three structural fingerprints (AST, CFG,
// DFG) a comparator needs to score similarity between two files.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"

	"github.com/standardbeagle/plagscan/internal/uir"
)

// SubtreeInfo records one non-trivial node's structural fingerprint
// alongside the source lines it spans, for matched-region reporting.
type SubtreeInfo struct {
	Hash      string
	NodeType  string
	StartLine uint32
	EndLine   uint32
	Depth     int
}

// ASTFingerprint is the bag of non-trivial subtree hashes for one file, plus
// size/complexity metrics used for filtering and reporting.
type ASTFingerprint struct {
	Subtrees        []SubtreeInfo
	HashSet         map[string][]SubtreeInfo
	NodeCount       int
	FunctionCount   int
	MaxDepth        int
	CyclomaticTotal int
}

// hashNode computes h(node) = sha256(type | sorted child hashes): a node's
// identity in the AST layer is its shape alone. Name/Value never enter the
// hash, so renaming and literal substitution are invariant by construction
// without depending on the normaliser's canonical var_k/lit_k numbering
// staying stable across incidental edits elsewhere in the file; identity
// distinctions belong to the DFG layer instead.
func hashNode(node *uir.Node, childHashes []string) string {
	sorted := append([]string(nil), childHashes...)
	sort.Strings(sorted)

	h := sha256.New()
	h.Write([]byte(node.Type))
	for _, ch := range sorted {
		h.Write([]byte{'|'})
		h.Write([]byte(ch))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// BuildAST walks a normalised UIR tree and records every non-trivial
// subtree's hash; trivial nodes are excluded from SubtreeInfo.
func BuildAST(root *uir.Node) *ASTFingerprint {
	fp := &ASTFingerprint{HashSet: make(map[string][]SubtreeInfo)}
	var visit func(n *uir.Node, depth int) string
	visit = func(n *uir.Node, depth int) string {
		childHashes := make([]string, 0, len(n.Children))
		for _, c := range n.Children {
			childHashes = append(childHashes, visit(c, depth+1))
		}
		h := hashNode(n, childHashes)

		fp.NodeCount++
		if depth > fp.MaxDepth {
			fp.MaxDepth = depth
		}
		if uir.IsFunctionLike(n.Type) {
			fp.FunctionCount++
		}
		if uir.IsDecisionPoint(n.Type) {
			fp.CyclomaticTotal++
		}

		if !uir.IsTrivial(n.Type) {
			info := SubtreeInfo{Hash: h, NodeType: n.Type, StartLine: n.Start, EndLine: n.End, Depth: depth}
			fp.Subtrees = append(fp.Subtrees, info)
			fp.HashSet[h] = append(fp.HashSet[h], info)
		}
		return h
	}
	visit(root, 0)
	return fp
}

// HashSetKeys returns the distinct hash values present, for Jaccard
// comparison.
func (fp *ASTFingerprint) HashSetKeys() map[string]bool {
	keys := make(map[string]bool, len(fp.HashSet))
	for k := range fp.HashSet {
		keys[k] = true
	}
	return keys
}
