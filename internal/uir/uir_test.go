package uir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsTrivial(t *testing.T) {
	assert.True(t, IsTrivial(TypeIdentifier))
	assert.True(t, IsTrivial(TypeNumericLiteral))
	assert.False(t, IsTrivial(TypeFunctionDecl))
}

func TestIsFunctionLike(t *testing.T) {
	assert.True(t, IsFunctionLike(TypeFunctionDecl))
	assert.True(t, IsFunctionLike(TypeLambdaExpr))
	assert.False(t, IsFunctionLike(TypeClassDecl))
}

func TestIsClassLike(t *testing.T) {
	assert.True(t, IsClassLike(TypeClassDecl))
	assert.False(t, IsClassLike(TypeFunctionDecl))
}

func TestIsMarkupComponent(t *testing.T) {
	assert.True(t, IsMarkupComponent(TypeJSXElement))
	assert.False(t, IsMarkupComponent(TypeCallExpr))
}

func TestIsFrameworkHook(t *testing.T) {
	assert.True(t, IsFrameworkHook("useState"))
	assert.False(t, IsFrameworkHook("useBanana"))
}

func TestIsScopeStarting(t *testing.T) {
	assert.True(t, IsScopeStarting(TypeIfStmt))
	assert.True(t, IsScopeStarting(TypeForStmt))
	assert.False(t, IsScopeStarting(TypeReturnStmt))
}

func TestIsDecisionPoint(t *testing.T) {
	assert.True(t, IsDecisionPoint(TypeIfStmt))
	assert.True(t, IsDecisionPoint(TypeLogicalExpr))
	assert.False(t, IsDecisionPoint(TypeBlockStmt))
}

func TestIsImportExportSpecifier(t *testing.T) {
	assert.True(t, IsImportExportSpecifier(TypeImportSpecifier))
	assert.False(t, IsImportExportSpecifier(TypeIdentifier))
}

func TestWalk_VisitsEveryNodePreOrder(t *testing.T) {
	root := &Node{
		Type: TypeProgram,
		Children: []*Node{
			{Type: TypeFunctionDecl, Children: []*Node{
				{Type: TypeIdentifier, Name: "x"},
			}},
			{Type: TypeReturnStmt},
		},
	}

	var visited []string
	Walk(root, func(n *Node) { visited = append(visited, n.Type) })

	assert.Equal(t, []string{TypeProgram, TypeFunctionDecl, TypeIdentifier, TypeReturnStmt}, visited)
}

func TestWalk_NilNodeIsNoOp(t *testing.T) {
	called := false
	Walk(nil, func(n *Node) { called = true })
	assert.False(t, called)
}
