package parser

import (
	"unsafe"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/standardbeagle/plagscan/internal/types"
	"github.com/standardbeagle/plagscan/internal/uir"
)

// curlyKinds maps the shared core of the JavaScript/TypeScript grammars
// (including JSX/TSX extensions) onto the UIR vocabulary for the
// curly-brace family.
var curlyKinds = kindTable{
	"program":                 uir.TypeProgram,
	"statement_block":         uir.TypeBlockStmt,
	"expression_statement":    uir.TypeExprStmt,
	"empty_statement":         uir.TypeEmptyStmt,
	"function_declaration":    uir.TypeFunctionDecl,
	"function_expression":     uir.TypeFunctionExpr,
	"function":                uir.TypeFunctionExpr,
	"arrow_function":          uir.TypeArrowFunction,
	"generator_function_declaration": uir.TypeGeneratorFunc,
	"generator_function":      uir.TypeGeneratorFunc,
	"method_definition":       uir.TypeMethodDef,
	"class_declaration":       uir.TypeClassDecl,
	"class":                   uir.TypeClassExpr,
	"variable_declaration":    uir.TypeVariableDecl,
	"lexical_declaration":     uir.TypeVariableDecl,
	"variable_declarator":     uir.TypeVarDeclarator,
	"assignment_expression":   uir.TypeAssignment,
	"augmented_assignment_expression": uir.TypeAugAssignment,
	"array_pattern":           uir.TypeArrayPattern,
	"object_pattern":          uir.TypeObjectPattern,
	"if_statement":            uir.TypeIfStmt,
	"ternary_expression":      uir.TypeConditional,
	"for_statement":           uir.TypeForStmt,
	"for_in_statement":        uir.TypeForInStmt,
	"while_statement":         uir.TypeWhileStmt,
	"do_statement":            uir.TypeDoWhileStmt,
	"switch_statement":        uir.TypeSwitchStmt,
	"switch_case":             uir.TypeCaseClause,
	"switch_default":          uir.TypeCaseClause,
	"try_statement":           uir.TypeTryStmt,
	"catch_clause":            uir.TypeCatchClause,
	"finally_clause":          uir.TypeBlockStmt,
	"with_statement":          uir.TypeWithStmt,
	"return_statement":        uir.TypeReturnStmt,
	"break_statement":         uir.TypeBreakStmt,
	"continue_statement":      uir.TypeContinueStmt,
	"throw_statement":         uir.TypeRaiseStmt,
	"call_expression":         uir.TypeCallExpr,
	"new_expression":          uir.TypeCallExpr,
	"member_expression":       uir.TypeMemberExpr,
	"subscript_expression":    uir.TypeMemberExpr,
	"binary_expression":       uir.TypeBinaryExpr,
	"unary_expression":        uir.TypeUnaryExpr,
	"update_expression":       uir.TypeUnaryExpr,
	"import_statement":        uir.TypeImportDecl,
	"import_specifier":        uir.TypeImportSpecifier,
	"namespace_import":        uir.TypeImportSpecifier,
	"import_default_specifier": uir.TypeImportSpecifier,
	"export_statement":        uir.TypeExportDecl,
	"export_specifier":        uir.TypeExportSpecifier,
	"decorator":               uir.TypeDecorator,
	"jsx_element":             uir.TypeJSXElement,
	"jsx_fragment":            uir.TypeJSXFragment,
	"jsx_opening_element":     uir.TypeJSXOpeningElement,
	"jsx_closing_element":     uir.TypeJSXClosingElement,
	"jsx_self_closing_element": uir.TypeJSXSelfClosingElement,
	"jsx_attribute":           uir.TypeJSXAttribute,
	"jsx_expression":          uir.TypeJSXExpressionChild,
	// TypeScript-specific: folded onto the closest curly-brace analogue so
	// the comparator still sees comparable structural shapes across typed
	// and untyped dialects.
	"interface_declaration": uir.TypeClassDecl,
	"type_alias_declaration": uir.TypeVariableDecl,
	"enum_declaration":      uir.TypeClassDecl,
}

var curlyBinaryOpField = "operator"

var curlyLiterals = literalKinds{
	"number":            uir.TypeNumericLiteral,
	"string":            uir.TypeStringLiteral,
	"string_fragment":   uir.TypeStringLiteral,
	"template_string":   uir.TypeStringLiteral,
	"true":              uir.TypeBooleanLiteral,
	"false":             uir.TypeBooleanLiteral,
	"null":              uir.TypeNullLiteral,
	"undefined":         uir.TypeNullLiteral,
}

type curlyAdapter struct {
	language *tree_sitter.Language
	family   types.LanguageFamily
}

func newCurlyAdapter(languagePtr unsafe.Pointer, family types.LanguageFamily) *curlyAdapter {
	return &curlyAdapter{language: tree_sitter.NewLanguage(languagePtr), family: family}
}

func (a *curlyAdapter) Family() types.LanguageFamily { return a.family }

// Parse builds the UIR tree for JS/JSX/TS/TSX source. Syntax errors are
// never fatal here: tree-sitter's incremental error recovery means a
// partial tree is still usable for fingerprinting.
func (a *curlyAdapter) Parse(source []byte, filename string) (*uir.Node, *ParseFailure) {
	parser := tree_sitter.NewParser()
	defer parser.Close()
	if err := parser.SetLanguage(a.language); err != nil {
		return nil, &ParseFailure{FilePath: filename, Message: err.Error()}
	}

	tree := parser.Parse(source, nil)
	if tree == nil {
		return nil, &ParseFailure{FilePath: filename, Message: "tree-sitter returned no tree"}
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil {
		return nil, &ParseFailure{FilePath: filename, Message: "tree-sitter returned no root node"}
	}

	conv := newConverter(source, curlyKinds, curlyLiterals)
	node := conv.convert(root)
	node.Language = "javascript"
	if a.family == types.FamilyCurlyBrace {
		node.Language = "typescript"
	}
	reorderJSXAttributes(node)
	return node, nil
}

// reorderJSXAttributes is left as a no-op at parse time: attribute-order
// normalisation is part of the Normaliser, not the parser adapter, so that
// the raw AST endpoint still reflects source
// order.
func reorderJSXAttributes(*uir.Node) {}
