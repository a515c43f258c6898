// Package importgraph builds a best-effort per-project import/module
// dependency graph across every file submitted to one analysis. It
// supplements, but never replaces, the structural similarity graph in
// internal/aggregate: an analysis with no import declarations at all simply
// carries no import graph.
package importgraph

import (
	"crypto/sha256"
	"encoding/hex"
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/standardbeagle/plagscan/internal/uir"
)

// sourceExtensionPattern strips a recognised source extension off an import
// target before resolving it, the same way a module resolver would.
var sourceExtensionPattern = regexp.MustCompile(`\.(js|jsx|ts|tsx|py)$`)

// Edge is one import edge: importer to the module/file path it pulls in,
// resolved relative to the importer for relative targets and left as-is for
// package imports.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Graph is the import/module dependency graph for one analysis's file set.
type Graph struct {
	Edges         []Edge `json:"edges"`
	FileCount     int    `json:"file_count"`
	DirectoryHash string `json:"directory_hash"`
}

// Build walks every file's already-parsed root looking for import
// declarations and returns the combined edge graph, or nil if none of the
// files' ASTs contain one.
func Build(roots map[string]*uir.Node) *Graph {
	edgeSet := make(map[Edge]bool)
	for importer, root := range roots {
		for _, target := range importTargets(root) {
			edgeSet[Edge{From: importer, To: normaliseTarget(importer, target)}] = true
		}
	}
	if len(edgeSet) == 0 {
		return nil
	}

	edges := make([]Edge, 0, len(edgeSet))
	for e := range edgeSet {
		edges = append(edges, e)
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].From != edges[j].From {
			return edges[i].From < edges[j].From
		}
		return edges[i].To < edges[j].To
	})

	names := make([]string, 0, len(roots))
	for p := range roots {
		names = append(names, p)
	}

	return &Graph{
		Edges:         edges,
		FileCount:     len(roots),
		DirectoryHash: directoryHash(names),
	}
}

// importTargets collects every import declaration's target string: a
// quoted module path for curly-brace imports, or a dotted identifier chain
// for scripting-family "import foo.bar" / "from foo.bar import baz".
func importTargets(root *uir.Node) []string {
	var targets []string
	uir.Walk(root, func(n *uir.Node) {
		if n.Type != uir.TypeImportDecl {
			return
		}
		if lit := firstStringLiteral(n); lit != "" {
			targets = append(targets, strings.Trim(lit, `'"`+"`"))
			return
		}
		if dotted := dottedIdentifierPath(n); dotted != "" {
			targets = append(targets, dotted)
		}
	})
	return targets
}

func firstStringLiteral(n *uir.Node) string {
	var found string
	uir.Walk(n, func(c *uir.Node) {
		if found == "" && c.Type == uir.TypeStringLiteral {
			found = c.Value
		}
	})
	return found
}

func dottedIdentifierPath(n *uir.Node) string {
	var parts []string
	uir.Walk(n, func(c *uir.Node) {
		if c.Type == uir.TypeIdentifier {
			parts = append(parts, c.Name)
		}
	})
	return strings.Join(parts, ".")
}

// normaliseTarget resolves a relative import target against its importer's
// directory and strips a trailing source extension; package imports (no
// leading "./" or "../") pass through unchanged.
func normaliseTarget(importer, target string) string {
	target = sourceExtensionPattern.ReplaceAllString(target, "")
	if strings.HasPrefix(target, "./") || strings.HasPrefix(target, "../") {
		dir := path.Dir(filepathToSlash(importer))
		return path.Clean(path.Join(dir, target))
	}
	return target
}

func filepathToSlash(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}

// directoryHash hashes the sorted set of directory prefixes present across
// filenames, so two projects with the same folder layout (regardless of
// file contents) hash identically.
func directoryHash(filenames []string) string {
	dirs := make(map[string]bool)
	for _, f := range filenames {
		parts := strings.Split(filepathToSlash(f), "/")
		for i := 1; i < len(parts); i++ {
			dirs[strings.Join(parts[:i], "/")] = true
		}
	}
	sorted := make([]string, 0, len(dirs))
	for d := range dirs {
		sorted = append(sorted, d)
	}
	sort.Strings(sorted)
	h := sha256.Sum256([]byte(strings.Join(sorted, "\n")))
	return hex.EncodeToString(h[:])
}
