package fingerprint

import (
	"github.com/standardbeagle/plagscan/internal/uir"
)

// DFGFingerprint is the set of data-flow (definition-to-use) edge hashes for
// one file, built per function.
type DFGFingerprint struct {
	EdgeHashes map[string]bool
}

// returnSentinel is the fixed destination identifier used for every edge
// flowing into a return statement.
const returnSentinel = "__return__"

// dfgLocal re-normalises an already-canonicalised name (var_k/func_k from
// the file-wide Normaliser) to a function-local lv_k, so that a function's
// DFG hash doesn't depend on where its variables happened to fall in the
// whole file's var_k numbering; the counter resets to zero at every
// function boundary.
type dfgLocal struct {
	next int
	seen map[string]string
}

func newDFGLocal() *dfgLocal {
	return &dfgLocal{seen: make(map[string]string)}
}

func (d *dfgLocal) get(name string) string {
	if lv, ok := d.seen[name]; ok {
		return lv
	}
	d.next++
	lv := "lv_" + itoa(d.next)
	d.seen[name] = lv
	return lv
}

// defUseWalker performs a single pre-order pass over a function body,
// tracking, at each point, which variable(s) the current expression is
// flowing into (an assignment target or a return statement), and recording
// a (u, d) edge from every identifier it reads to that destination.
type defUseWalker struct {
	local *dfgLocal
	edges map[string]bool
}

func newDefUseWalker() *defUseWalker {
	return &defUseWalker{local: newDFGLocal(), edges: make(map[string]bool)}
}

// dfgEdgeToken serialises a (u, d) data-flow edge keyed on the function-local
// lv_k variable identifiers rather than any positional counter, so two
// independently written functions with the same def-use shape hash
// identically regardless of how many unrelated statements sit between them.
func dfgEdgeToken(prefix, src, dst string) string {
	return prefix + src + "->" + dst
}

// use records one edge from name (the variable being read) into every
// destination currently in flight; a read with no destination in flight
// (e.g. a bare statement expression) produces no edge.
func (w *defUseWalker) use(destinations []string, name string) {
	if name == "" || len(destinations) == 0 {
		return
	}
	lv := w.local.get(name)
	for _, dst := range destinations {
		if lv == dst {
			continue
		}
		w.edges[sha256Hex(dfgEdgeToken("DFG_EDGE:", lv, dst))] = true
	}
}

// walk recurses through a function's body, recognising the node shapes that
// introduce a definition (parameters, variable declarators and their
// targets, assignment left-hand sides, return statements) and threading the
// active destination(s) down into the expression being evaluated for them.
func (w *defUseWalker) walk(n *uir.Node, destinations []string) {
	if n == nil {
		return
	}
	switch n.Type {
	case uir.TypeParameter:
		w.local.get(n.Name)
		return
	case uir.TypeVarDeclarator:
		if len(n.Children) > 0 {
			targets := w.defineTarget(n.Children[0])
			for _, rhs := range n.Children[1:] {
				w.walk(rhs, targets)
			}
			return
		}
	case uir.TypeAssignment, uir.TypeAugAssignment:
		if len(n.Children) > 0 {
			targets := w.defineTarget(n.Children[0])
			for _, rhs := range n.Children[1:] {
				w.walk(rhs, targets)
			}
			return
		}
	case uir.TypeReturnStmt:
		for _, c := range n.Children {
			w.walk(c, []string{returnSentinel})
		}
		return
	case uir.TypeIdentifier:
		w.use(destinations, n.Name)
		return
	}
	for _, c := range n.Children {
		w.walk(c, destinations)
	}
}

// defineTarget handles a (possibly destructured) assignment target: a bare
// identifier is a direct definition, a pattern's identifier descendants are
// each their own definition. Returns the lv_k identifier(s) now in scope as
// flow destinations for the assignment's right-hand side.
func (w *defUseWalker) defineTarget(target *uir.Node) []string {
	if target == nil {
		return nil
	}
	if target.Type == uir.TypeIdentifier {
		return []string{w.local.get(target.Name)}
	}
	var targets []string
	uir.Walk(target, func(n *uir.Node) {
		if n.Type == uir.TypeIdentifier {
			targets = append(targets, w.local.get(n.Name))
		}
	})
	return targets
}

func buildFunctionDFG(fn *uir.Node) map[string]bool {
	var body *uir.Node
	for _, c := range fn.Children {
		if c.Type == uir.TypeBlockStmt {
			body = c
			break
		}
	}
	w := newDefUseWalker()
	for _, c := range fn.Children {
		if c.Type == uir.TypeParameter {
			w.local.get(c.Name)
		}
	}
	if body != nil {
		w.walk(body, nil)
	}
	return w.edges
}

// BuildDFG builds the combined per-function DFG edge-hash set for the whole
// file.
func BuildDFG(root *uir.Node) *DFGFingerprint {
	fp := &DFGFingerprint{EdgeHashes: make(map[string]bool)}
	for _, fn := range collectFunctions(root) {
		for h := range buildFunctionDFG(fn) {
			fp.EdgeHashes[h] = true
		}
	}
	return fp
}
