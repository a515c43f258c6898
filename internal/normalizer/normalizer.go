// Package normalizer canonicalises a parsed UIR tree so that two
// structurally-equivalent programs produce identical fingerprints
// regardless of identifier spelling, literal values, or surface dialect
// (arrow vs declared functions, JSX attribute order).
package normalizer

import (
	"github.com/standardbeagle/plagscan/internal/uir"
)

const (
	literalSentinel = "CONST"
)

// counterSet assigns a canonical name the first time a given original name
// is seen within its reset scope and reuses it on every later occurrence,
// so that a consistent bijective rename of the source produces the same
// canonical assignment (renaming invariance) while def-use identity within
// a scope is preserved for the CFG/DFG builders.
type counterSet struct {
	next int
	seen map[string]string
}

func newCounterSet() *counterSet {
	return &counterSet{seen: make(map[string]string)}
}

func (c *counterSet) canonicalize(prefix, original string) string {
	if existing, ok := c.seen[original]; ok {
		return existing
	}
	c.next++
	name := prefix + itoa(c.next)
	c.seen[original] = name
	return name
}

// Normaliser holds the per-file canonical-name state; canonical counters
// reset per file.
type Normaliser struct {
	vars    *counterSet
	funcs   *counterSet
	classes *counterSet
	hooks   *counterSet
}

// New returns a Normaliser with fresh counters, ready to normalise one file.
func New() *Normaliser {
	return &Normaliser{
		vars:    newCounterSet(),
		funcs:   newCounterSet(),
		classes: newCounterSet(),
		hooks:   newCounterSet(),
	}
}

// Normalise rewrites root in place and also returns it, applying rules 1-9.
func (n *Normaliser) Normalise(root *uir.Node) *uir.Node {
	n.walk(root, nil)
	return root
}

// walk visits node with parent context so call-expression callees can be
// checked against the framework-hook enumeration (rule 4) before the
// identifier itself is canonicalised as an ordinary variable.
func (n *Normaliser) walk(node *uir.Node, parent *uir.Node) {
	if node == nil {
		return
	}

	switch {
	case uir.IsFunctionLike(node.Type):
		node.Name = n.funcs.canonicalize("func_", identityKey(node))
		n.canonicaliseParameters(node)
		if node.Type == uir.TypeArrowFunction {
			node.Type = uir.TypeFunctionDecl
		}
	case uir.IsClassLike(node.Type):
		node.Name = n.classes.canonicalize("class_", identityKey(node))
	case uir.IsMarkupComponent(node.Type):
		node.Name = n.funcs.canonicalize("func_", identityKey(node))
	case node.Type == uir.TypeIdentifier:
		n.canonicaliseIdentifier(node, parent)
	case node.Type == uir.TypeStringLiteral, node.Type == uir.TypeNumericLiteral,
		node.Type == uir.TypeBooleanLiteral, node.Type == uir.TypeNullLiteral:
		node.Value = literalSentinel
	}

	if uir.IsMarkupAttributeHost(node.Type) {
		sortAttributesFirst(node)
	}

	for _, child := range node.Children {
		n.walk(child, node)
	}
}

// canonicaliseParameters applies rule 1's parameter clause: each Parameter
// child (already flattened by the parser, see parser.convertParameterList)
// gets the next var_k.
func (n *Normaliser) canonicaliseParameters(fn *uir.Node) {
	for _, child := range fn.Children {
		if child.Type == uir.TypeParameter {
			child.Name = n.vars.canonicalize("var_", identityKey(child))
		}
	}
}

// canonicaliseIdentifier applies rules 4 and 5: a call callee matching the
// closed framework-hook enumeration goes into its own hook_k pool; import/
// export specifiers are left untouched (rule 5 exemption); everything else
// is an ordinary variable.
func (n *Normaliser) canonicaliseIdentifier(id *uir.Node, parent *uir.Node) {
	if parent != nil && uir.IsImportExportSpecifier(parent.Type) {
		return
	}
	if parent != nil && parent.Type == uir.TypeCallExpr && isCallee(parent, id) && uir.IsFrameworkHook(id.Name) {
		id.Name = n.hooks.canonicalize("hook_", id.Name)
		return
	}
	id.Name = n.vars.canonicalize("var_", id.Name)
}

// isCallee reports whether id is the first (callee) child of a call
// expression, as opposed to one of its arguments.
func isCallee(call *uir.Node, id *uir.Node) bool {
	for _, child := range call.Children {
		if uir.IsTrivial(child.Type) || child.Type == uir.TypeIdentifier || child.Type == uir.TypeMemberExpr {
			return child == id
		}
		return false
	}
	return false
}

// identityKey is the pre-canonicalisation name used as the counterSet map
// key. Anonymous function-likes (arrow functions, unnamed class expressions)
// key off their source span so repeated anonymous declarations each still
// get their own canonical slot rather than collapsing onto the first one.
func identityKey(node *uir.Node) string {
	if node.Name != "" {
		return node.Name
	}
	return spanKey(node)
}

func spanKey(node *uir.Node) string {
	return "@" + itoa(int(node.Start)) + ":" + itoa(int(node.End))
}

// sortAttributesFirst partitions a JSX opening/self-closing element's
// children into attributes first (alphabetised by original attribute name),
// then everything else in original order.
func sortAttributesFirst(node *uir.Node) {
	var attrs, rest []*uir.Node
	for _, child := range node.Children {
		if child.Type == uir.TypeJSXAttribute {
			attrs = append(attrs, child)
		} else {
			rest = append(rest, child)
		}
	}
	if len(attrs) < 2 {
		return
	}
	insertionSort(attrs)
	node.Children = append(attrs, rest...)
}

// insertionSort orders JSX attribute nodes by their original attribute
// name, captured before the identifier pass overwrites it with var_k. The
// normaliser runs the attribute-sort during the same walk that canonicalises
// names, so it sorts by the first (attribute-name) child's pre-rewrite text
// captured via attributeSortKey.
func insertionSort(attrs []*uir.Node) {
	keys := make([]string, len(attrs))
	for i, a := range attrs {
		keys[i] = attributeSortKey(a)
	}
	for i := 1; i < len(attrs); i++ {
		j := i
		for j > 0 && keys[j-1] > keys[j] {
			attrs[j-1], attrs[j] = attrs[j], attrs[j-1]
			keys[j-1], keys[j] = keys[j], keys[j-1]
			j--
		}
	}
}

func attributeSortKey(attr *uir.Node) string {
	if len(attr.Children) == 0 {
		return ""
	}
	first := attr.Children[0]
	if first.Name != "" {
		return first.Name
	}
	return first.Value
}

func itoa(v int) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
