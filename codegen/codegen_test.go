package codegen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nativecg/bcplarm64/ast"
	"github.com/nativecg/bcplarm64/ir"
)

func hasOpcode(instrs []ir.Instruction, op ir.OpType) bool {
	for _, i := range instrs {
		if i.Opcode == op {
			return true
		}
	}
	return false
}

func countOpcode(instrs []ir.Instruction, op ir.OpType) int {
	n := 0
	for _, i := range instrs {
		if i.Opcode == op {
			n++
		}
	}
	return n
}

func newGenerator() *CodeGenerator {
	return NewCodeGenerator(Options{MaxPeepholePasses: 3}, ast.NewSymbolTable())
}

func TestCompileFunctionReturnsSumOfParameters(t *testing.T) {
	fn := &ast.FunctionDeclaration{
		Name:       "add",
		Parameters: []string{"a", "b"},
		Body: &ast.Block{Statements: []ast.Node{
			&ast.ReturnStatement{Value: &ast.BinaryOp{
				Op:    "+",
				Left:  &ast.Ident{Name: "a"},
				Right: &ast.Ident{Name: "b"},
			}},
		}},
	}

	stream, err := newGenerator().CompileFunction(fn)
	require.NoError(t, err)
	instrs := stream.Instructions()

	assert.True(t, hasOpcode(instrs, ir.ADD))
	assert.True(t, hasOpcode(instrs, ir.RET))
	assert.Equal(t, ir.RET, instrs[len(instrs)-1].Opcode)
}

func TestCompileFunctionLetDeclarationAndAssignment(t *testing.T) {
	fn := &ast.FunctionDeclaration{
		Name: "counter",
		Body: &ast.Block{Statements: []ast.Node{
			&ast.LetDeclaration{Names: []string{"x"}, Inits: []ast.Node{&ast.IntLiteral{Value: 0}}},
			&ast.Assignment{Target: &ast.Ident{Name: "x"}, Value: &ast.BinaryOp{
				Op: "+", Left: &ast.Ident{Name: "x"}, Right: &ast.IntLiteral{Value: 1},
			}},
			&ast.ReturnStatement{Value: &ast.Ident{Name: "x"}},
		}},
	}

	stream, err := newGenerator().CompileFunction(fn)
	require.NoError(t, err)
	instrs := stream.Instructions()
	assert.True(t, hasOpcode(instrs, ir.ADD))
	assert.True(t, hasOpcode(instrs, ir.RET))
}

func TestCompileFunctionIfStatementBranches(t *testing.T) {
	fn := &ast.FunctionDeclaration{
		Name:       "absval",
		Parameters: []string{"x"},
		Body: &ast.Block{Statements: []ast.Node{
			&ast.IfStatement{
				Cond: &ast.BinaryOp{Op: "<", Left: &ast.Ident{Name: "x"}, Right: &ast.IntLiteral{Value: 0}},
				Then: &ast.ReturnStatement{Value: &ast.UnaryOp{Op: "-", Operand: &ast.Ident{Name: "x"}}},
				Else: &ast.ReturnStatement{Value: &ast.Ident{Name: "x"}},
			},
		}},
	}

	stream, err := newGenerator().CompileFunction(fn)
	require.NoError(t, err)
	instrs := stream.Instructions()
	assert.True(t, hasOpcode(instrs, ir.CMP))
	assert.Equal(t, 1, countOpcode(instrs, ir.RET), "both branches return through the single epilogue RET")
}

func TestCompileFunctionWhileLoop(t *testing.T) {
	fn := &ast.FunctionDeclaration{
		Name:       "sumto",
		Parameters: []string{"n"},
		Body: &ast.Block{Statements: []ast.Node{
			&ast.LetDeclaration{Names: []string{"acc"}, Inits: []ast.Node{&ast.IntLiteral{Value: 0}}},
			&ast.WhileStatement{
				Cond: &ast.BinaryOp{Op: ">", Left: &ast.Ident{Name: "n"}, Right: &ast.IntLiteral{Value: 0}},
				Body: &ast.Block{Statements: []ast.Node{
					&ast.Assignment{Target: &ast.Ident{Name: "acc"}, Value: &ast.BinaryOp{
						Op: "+", Left: &ast.Ident{Name: "acc"}, Right: &ast.Ident{Name: "n"},
					}},
					&ast.Assignment{Target: &ast.Ident{Name: "n"}, Value: &ast.BinaryOp{
						Op: "-", Left: &ast.Ident{Name: "n"}, Right: &ast.IntLiteral{Value: 1},
					}},
				}},
			},
			&ast.ReturnStatement{Value: &ast.Ident{Name: "acc"}},
		}},
	}

	stream, err := newGenerator().CompileFunction(fn)
	require.NoError(t, err)
	instrs := stream.Instructions()
	assert.True(t, hasOpcode(instrs, ir.B), "loop back-edge branch present")
	assert.True(t, hasOpcode(instrs, ir.SUB))
}

func TestCompileFunctionCallArgumentOrdering(t *testing.T) {
	gen := newGenerator()
	callee := &ast.FunctionDeclaration{
		Name:       "helper",
		Parameters: []string{"a"},
		Body:       &ast.Block{Statements: []ast.Node{&ast.ReturnStatement{Value: &ast.Ident{Name: "a"}}}},
	}
	caller := &ast.FunctionDeclaration{
		Name: "caller",
		Body: &ast.Block{Statements: []ast.Node{
			&ast.ReturnStatement{Value: &ast.CallExpr{Callee: "helper", Args: []ast.Node{&ast.IntLiteral{Value: 7}}}},
		}},
	}

	prog := &ast.Program{Functions: []*ast.FunctionDeclaration{callee, caller}}
	stream, err := gen.CompileProgram(prog)
	require.NoError(t, err)
	instrs := stream.Instructions()
	assert.True(t, hasOpcode(instrs, ir.BL))
}

func TestCompileFunctionNestedCallPromotesLeftOperand(t *testing.T) {
	gen := newGenerator()
	helper := &ast.FunctionDeclaration{
		Name:       "helper",
		Parameters: []string{"a"},
		Body:       &ast.Block{Statements: []ast.Node{&ast.ReturnStatement{Value: &ast.Ident{Name: "a"}}}},
	}
	caller := &ast.FunctionDeclaration{
		Name:       "caller",
		Parameters: []string{"x"},
		Body: &ast.Block{Statements: []ast.Node{
			&ast.ReturnStatement{Value: &ast.BinaryOp{
				Op:   "+",
				Left: &ast.Ident{Name: "x"},
				Right: &ast.CallExpr{
					Callee: "helper",
					Args:   []ast.Node{&ast.IntLiteral{Value: 1}},
				},
			}},
		}},
	}

	prog := &ast.Program{Functions: []*ast.FunctionDeclaration{helper, caller}}
	stream, err := gen.CompileProgram(prog)
	require.NoError(t, err)
	assert.True(t, hasOpcode(stream.Instructions(), ir.BL))
}

func TestTemporaryVariableFactoryRegistersSymbolAndMetrics(t *testing.T) {
	symtab := ast.NewSymbolTable()
	metrics := ast.FunctionMetrics{VariableTypes: map[string]ast.VarType{}}
	var f TemporaryVariableFactory

	name1, err := f.Create("fn", ast.INTEGER, symtab, &metrics)
	require.NoError(t, err)
	name2, err := f.Create("fn", ast.FLOAT, symtab, &metrics)
	require.NoError(t, err)

	assert.NotEqual(t, name1, name2)
	assert.Equal(t, 1, metrics.NumVariables)
	assert.Equal(t, 1, metrics.NumFloatVariables)
	_, ok := symtab.Lookup(name1)
	assert.True(t, ok)
	_, ok = symtab.Lookup(name2)
	assert.True(t, ok)
}
