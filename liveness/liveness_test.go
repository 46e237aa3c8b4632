package liveness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nativecg/bcplarm64/ast"
)

func TestAnalyzeBlockUseBeforeDef(t *testing.T) {
	// x := y;  (y used, x defined)
	b := &BasicBlock{Statements: []ast.Node{
		&ast.Assignment{Target: &ast.Ident{Name: "x"}, Value: &ast.Ident{Name: "y"}},
	}}
	require.NoError(t, AnalyzeBlock(b))
	assert.Equal(t, []string{"y"}, b.Use)
	assert.Equal(t, []string{"x"}, b.Def)
}

func TestAnalyzeBlockDefDoesNotMaskEarlierUse(t *testing.T) {
	// x := x + 1;  x is used before it is redefined in the same statement.
	b := &BasicBlock{Statements: []ast.Node{
		&ast.Assignment{
			Target: &ast.Ident{Name: "x"},
			Value:  &ast.BinaryOp{Op: "+", Left: &ast.Ident{Name: "x"}, Right: &ast.IntLiteral{Value: 1}},
		},
	}}
	require.NoError(t, AnalyzeBlock(b))
	assert.Equal(t, []string{"x"}, b.Use)
	assert.Empty(t, b.Def)
}

func TestAnalyzeBlockLetDeclarationDefsAfterInitReads(t *testing.T) {
	b := &BasicBlock{Statements: []ast.Node{
		&ast.LetDeclaration{Names: []string{"a"}, Inits: []ast.Node{&ast.Ident{Name: "seed"}}},
	}}
	require.NoError(t, AnalyzeBlock(b))
	assert.Equal(t, []string{"seed"}, b.Use)
	assert.Equal(t, []string{"a"}, b.Def)
}

func TestRunDataFlowAnalysisTwoBlockChain(t *testing.T) {
	// Block "entry": y := 1; x := y
	// Block "exit": RETURN x
	entry := &BasicBlock{
		ID: "entry",
		Statements: []ast.Node{
			&ast.Assignment{Target: &ast.Ident{Name: "y"}, Value: &ast.IntLiteral{Value: 1}},
			&ast.Assignment{Target: &ast.Ident{Name: "x"}, Value: &ast.Ident{Name: "y"}},
		},
		Successors: []string{"exit"},
	}
	exit := &BasicBlock{
		ID:           "exit",
		Statements:   []ast.Node{&ast.ReturnStatement{Value: &ast.Ident{Name: "x"}}},
		Predecessors: []string{"entry"},
	}

	cfg := NewCFG("f")
	cfg.AddBlock(entry)
	cfg.AddBlock(exit)

	la := NewLivenessAnalysis(false)
	require.NoError(t, la.RunDataFlowAnalysis(cfg))

	assert.ElementsMatch(t, []string{"x"}, exit.In)
	assert.Empty(t, exit.Out)
	assert.ElementsMatch(t, []string{"x"}, entry.Out)
	assert.Empty(t, entry.In)
}

func TestRunDataFlowAnalysisToleratesUnknownSuccessor(t *testing.T) {
	b := &BasicBlock{ID: "only", Successors: []string{"ghost"}}
	cfg := NewCFG("f")
	cfg.AddBlock(b)

	la := NewLivenessAnalysis(false)
	assert.NoError(t, la.RunDataFlowAnalysis(cfg))
}

func TestRunDataFlowAnalysisNilCFGIsNoop(t *testing.T) {
	la := NewLivenessAnalysis(false)
	assert.NoError(t, la.RunDataFlowAnalysis(nil))
}

func TestIsLiveAt(t *testing.T) {
	cfg := NewCFG("f")
	cfg.AddBlock(&BasicBlock{ID: "b", In: []string{"a"}})
	assert.True(t, cfg.IsLiveAt("b", "a"))
	assert.False(t, cfg.IsLiveAt("b", "z"))
	assert.False(t, cfg.IsLiveAt("missing", "a"))
}
