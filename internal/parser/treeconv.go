package parser

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/standardbeagle/plagscan/internal/uir"
)

// kindTable maps a tree-sitter grammar's named-node kind strings onto the
// fixed UIR vocabulary by mapping its production names through a fixed
// vocabulary table to the UIR type set. Kinds absent from the
// table pass through unchanged — the table documents every kind the
// normaliser/fingerprinter specifically reason about; everything else
// still participates in hashing under its raw grammar name.
type kindTable map[string]string

// literalKinds maps literal-bearing leaf kinds to their UIR literal type;
// the node's source text becomes Value (later overwritten with the
// sentinel "CONST" by the normaliser).
type literalKinds map[string]string

var defaultIdentifierKinds = map[string]bool{
	"identifier":                    true,
	"property_identifier":          true,
	"type_identifier":               true,
	"shorthand_property_identifier": true,
	"private_property_identifier":   true,
}

// operatorKinds are unnamed tokens worth preserving as a distinguishing
// Operator child (binary/unary/logical/comparison operators). Most other
// unnamed punctuation (parens, commas, braces, semicolons) is dropped: it
// carries no structural information once child hashes are sorted.
var operatorKinds = map[string]bool{
	"+": true, "-": true, "*": true, "/": true, "%": true, "**": true,
	"==": true, "!=": true, "<": true, ">": true, "<=": true, ">=": true,
	"&&": true, "||": true, "and": true, "or": true, "not": true, "!": true,
	"+=": true, "-=": true, "*=": true, "/=": true, "===": true, "!==": true,
	"??": true, "&": true, "|": true, "^": true, "<<": true, ">>": true,
}

// paramListKinds are the grammar kinds whose children are parameters: each
// named child becomes a flat Parameter node carrying its bound name,
// regardless of whether the grammar wraps it (default_parameter,
// typed_parameter, rest_pattern, ...).
var paramListKinds = map[string]bool{
	"parameters":         true,
	"lambda_parameters":  true,
	"formal_parameters":  true,
}

// functionNameField names the grammar field holding a declaration's
// identifier.
var functionNameField = "name"

// converter walks a tree-sitter tree into a uir.Node using a language-
// specific kind table plus a small set of structural hooks.
type converter struct {
	source  []byte
	kinds   kindTable
	literal literalKinds
	idents  map[string]bool
}

func newConverter(source []byte, kinds kindTable, literal literalKinds) *converter {
	return &converter{source: source, kinds: kinds, literal: literal, idents: defaultIdentifierKinds}
}

func (c *converter) lines(n *tree_sitter.Node) (uint32, uint32) {
	return uint32(n.StartPosition().Row) + 1, uint32(n.EndPosition().Row) + 1
}

func (c *converter) text(n *tree_sitter.Node) string {
	return n.Utf8Text(c.source)
}

// paramName extracts the bound identifier from a (possibly wrapped)
// parameter node: a bare identifier, or one found via the "name"/"pattern"
// field of a typed/default parameter.
func (c *converter) paramName(n *tree_sitter.Node) string {
	if n == nil {
		return ""
	}
	if c.idents[n.Kind()] {
		return c.text(n)
	}
	for _, field := range []string{"name", "pattern", "left"} {
		if inner := n.ChildByFieldName(field); inner != nil {
			return c.paramName(inner)
		}
	}
	count := n.ChildCount()
	for i := uint(0); i < count; i++ {
		if child := n.Child(i); child != nil && child.IsNamed() && c.idents[child.Kind()] {
			return c.text(child)
		}
	}
	return ""
}

// convertParameterList flattens a parameter-list node into Parameter
// children directly on the caller, each parameter name later replaced
// with the next var_k by the normaliser.
func (c *converter) convertParameterList(n *tree_sitter.Node) []*uir.Node {
	var params []*uir.Node
	count := n.ChildCount()
	for i := uint(0); i < count; i++ {
		child := n.Child(i)
		if child == nil || !child.IsNamed() {
			continue
		}
		start, end := c.lines(child)
		params = append(params, &uir.Node{Type: uir.TypeParameter, Name: c.paramName(child), Start: start, End: end})
	}
	return params
}

// convert recursively converts a named tree-sitter node into a uir.Node.
// Unnamed children are skipped unless they are in operatorKinds, in which
// case they're emitted as a trivial Operator node carrying the token text.
func (c *converter) convert(n *tree_sitter.Node) *uir.Node {
	if n == nil {
		return nil
	}
	kind := n.Kind()
	start, end := c.lines(n)

	if c.idents[kind] {
		return &uir.Node{Type: uir.TypeIdentifier, Name: c.text(n), Start: start, End: end}
	}
	if lit, ok := c.literal[kind]; ok {
		return &uir.Node{Type: lit, Value: c.text(n), Start: start, End: end}
	}
	if paramListKinds[kind] {
		// Parameter lists have no UIR node of their own: their elements
		// are spliced directly into the parent by convert.
		return &uir.Node{Type: "__params__", Children: c.convertParameterList(n), Start: start, End: end}
	}

	uirType, ok := c.kinds[kind]
	if !ok {
		uirType = kind
	}

	node := &uir.Node{Type: uirType, Start: start, End: end}

	isDecl := uir.IsFunctionLike(uirType) || uir.IsClassLike(uirType) || uir.IsMarkupComponent(uirType)
	var nameNode *tree_sitter.Node
	if isDecl {
		if nameNode = n.ChildByFieldName(functionNameField); nameNode != nil {
			node.Name = c.paramName(nameNode)
		}
	}

	count := n.ChildCount()
	for i := uint(0); i < count; i++ {
		child := n.Child(i)
		if child == nil {
			continue
		}
		if child.IsNamed() {
			if isDecl && child == nameNode {
				continue
			}
			converted := c.convert(child)
			if converted.Type == "__params__" {
				node.Children = append(node.Children, converted.Children...)
				continue
			}
			node.Children = append(node.Children, converted)
			continue
		}
		text := c.text(child)
		if operatorKinds[text] {
			cs, ce := c.lines(child)
			node.Children = append(node.Children, &uir.Node{Type: uir.TypeOperator, Value: text, Start: cs, End: ce})
		}
	}
	return node
}

// hasSyntaxError walks the tree-sitter tree looking for ERROR or MISSING
// nodes, used by the scripting-family adapter to turn tree-sitter's
// otherwise error-tolerant parse into a fatal ParseError.
func hasSyntaxError(n *tree_sitter.Node) bool {
	if n == nil {
		return false
	}
	if n.IsError() || n.IsMissing() {
		return true
	}
	count := n.ChildCount()
	for i := uint(0); i < count; i++ {
		if hasSyntaxError(n.Child(i)) {
			return true
		}
	}
	return false
}

// firstErrorPosition finds the first ERROR/MISSING node's line/column for
// ParseFailure reporting.
func firstErrorPosition(n *tree_sitter.Node) (int, int) {
	if n == nil {
		return 0, 0
	}
	if n.IsError() || n.IsMissing() {
		p := n.StartPosition()
		return int(p.Row) + 1, int(p.Column) + 1
	}
	count := n.ChildCount()
	for i := uint(0); i < count; i++ {
		if line, col := firstErrorPosition(n.Child(i)); line != 0 {
			return line, col
		}
	}
	return 0, 0
}
