package parser

import (
	"unsafe"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/standardbeagle/plagscan/internal/types"
	"github.com/standardbeagle/plagscan/internal/uir"
)

// pythonKinds maps Python grammar productions onto the UIR vocabulary
// for the scripting family.
var pythonKinds = kindTable{
	"module":                  uir.TypeProgram,
	"block":                   uir.TypeBlockStmt,
	"expression_statement":    uir.TypeExprStmt,
	"function_definition":     uir.TypeFunctionDecl,
	"lambda":                  uir.TypeLambdaExpr,
	"class_definition":        uir.TypeClassDecl,
	"if_statement":            uir.TypeIfStmt,
	"elif_clause":             uir.TypeIfStmt,
	"else_clause":             uir.TypeBlockStmt,
	"conditional_expression":  uir.TypeConditional,
	"for_statement":           uir.TypeForStmt,
	"while_statement":         uir.TypeWhileStmt,
	"try_statement":           uir.TypeTryStmt,
	"except_clause":           uir.TypeCatchClause,
	"except_group_clause":     uir.TypeCatchClause,
	"finally_clause":          uir.TypeBlockStmt,
	"with_statement":          uir.TypeWithStmt,
	"match_statement":         uir.TypeMatchStmt,
	"case_clause":             uir.TypeMatchCase,
	"return_statement":        uir.TypeReturnStmt,
	"raise_statement":         uir.TypeRaiseStmt,
	"break_statement":         uir.TypeBreakStmt,
	"continue_statement":      uir.TypeContinueStmt,
	"assignment":              uir.TypeAssignment,
	"augmented_assignment":    uir.TypeAugAssignment,
	"call":                    uir.TypeCallExpr,
	"attribute":               uir.TypeMemberExpr,
	"binary_operator":         uir.TypeBinaryExpr,
	"comparison_operator":     uir.TypeBinaryExpr,
	"boolean_operator":        uir.TypeLogicalExpr,
	"not_operator":            uir.TypeUnaryExpr,
	"unary_operator":          uir.TypeUnaryExpr,
	"decorator":               uir.TypeDecorator,
	"import_statement":        uir.TypeImportDecl,
	"import_from_statement":   uir.TypeImportDecl,
	"dotted_name":             uir.TypeImportSpecifier,
	"aliased_import":          uir.TypeImportSpecifier,
	"tuple_pattern":           uir.TypeTuplePattern,
	"list_pattern":            uir.TypeArrayPattern,
	"tuple":                   uir.TypeTuplePattern,
	"list":                    uir.TypeArrayPattern,
}

var pythonLiterals = literalKinds{
	"integer": uir.TypeNumericLiteral,
	"float":   uir.TypeNumericLiteral,
	"string":  uir.TypeStringLiteral,
	"true":    uir.TypeBooleanLiteral,
	"false":   uir.TypeBooleanLiteral,
	"none":    uir.TypeNullLiteral,
}

type pythonAdapter struct {
	language *tree_sitter.Language
}

func newPythonAdapter(languagePtr unsafe.Pointer) *pythonAdapter {
	return &pythonAdapter{language: tree_sitter.NewLanguage(languagePtr)}
}

func (a *pythonAdapter) Family() types.LanguageFamily { return types.FamilyScripting }

// Parse builds the UIR tree for Python source. Any tree-sitter ERROR or
// MISSING node makes the file a fatal ParseFailure, recovering the
// original Python-ast-module contract that scripting-family syntax errors
// are fatal.
func (a *pythonAdapter) Parse(source []byte, filename string) (*uir.Node, *ParseFailure) {
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

	if root.HasError() && hasSyntaxError(root) {
		line, col := firstErrorPosition(root)
		return nil, &ParseFailure{FilePath: filename, Line: line, Column: col, Message: "python syntax error"}
	}

	conv := newConverter(source, pythonKinds, pythonLiterals)
	node := conv.convert(root)
	node.Language = "python"
	return node, nil
}
