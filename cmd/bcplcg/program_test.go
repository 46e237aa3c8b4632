package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nativecg/bcplarm64/ast"
)

func TestLoadProgramDecodesFunctionsAndReturnStatement(t *testing.T) {
	src := []byte(`{
		"functions": [
			{
				"name": "add",
				"parameters": ["a", "b"],
				"returnType": "INTEGER",
				"body": {
					"kind": "block",
					"statements": [
						{"kind": "return", "value": {"kind": "binary", "op": "+",
							"left": {"kind": "ident", "name": "a"},
							"right": {"kind": "ident", "name": "b"}}}
					]
				}
			}
		]
	}`)

	prog, err := loadProgram(src)
	require.NoError(t, err)
	require.Len(t, prog.Functions, 1)

	fn := prog.Functions[0]
	assert.Equal(t, "add", fn.Name)
	assert.Equal(t, []string{"a", "b"}, fn.Parameters)
	assert.Equal(t, ast.INTEGER, fn.ReturnType)
	require.Len(t, fn.Body.Statements, 1)

	ret, ok := fn.Body.Statements[0].(*ast.ReturnStatement)
	require.True(t, ok)
	bin, ok := ret.Value.(*ast.BinaryOp)
	require.True(t, ok)
	assert.Equal(t, "+", bin.Op)
}

func TestLoadProgramDecodesIfWhileLetAndCall(t *testing.T) {
	src := []byte(`{
		"functions": [{
			"name": "loop",
			"parameters": [],
			"returnType": "INTEGER",
			"body": {
				"kind": "block",
				"statements": [
					{"kind": "let", "names": ["x"], "type": "INTEGER",
						"inits": [{"kind": "int", "intValue": 0}]},
					{"kind": "if",
						"cond": {"kind": "ident", "name": "x"},
						"then": {"kind": "return", "value": {"kind": "int", "intValue": 1}},
						"else": {"kind": "return", "value": {"kind": "int", "intValue": 0}}},
					{"kind": "while",
						"cond": {"kind": "ident", "name": "x"},
						"body": {"kind": "block", "statements": [
							{"kind": "assign",
								"target": {"kind": "ident", "name": "x"},
								"value": {"kind": "call", "callee": "helper",
									"args": [{"kind": "ident", "name": "x"}]}}
						]}}
				]
			}
		}]
	}`)

	prog, err := loadProgram(src)
	require.NoError(t, err)
	require.Len(t, prog.Functions, 1)
	stmts := prog.Functions[0].Body.Statements
	require.Len(t, stmts, 3)

	_, ok := stmts[0].(*ast.LetDeclaration)
	assert.True(t, ok)
	_, ok = stmts[1].(*ast.IfStatement)
	assert.True(t, ok)
	whileStmt, ok := stmts[2].(*ast.WhileStatement)
	require.True(t, ok)
	body, ok := whileStmt.Body.(*ast.Block)
	require.True(t, ok)
	assign, ok := body.Statements[0].(*ast.Assignment)
	require.True(t, ok)
	call, ok := assign.Value.(*ast.CallExpr)
	require.True(t, ok)
	assert.Equal(t, "helper", call.Callee)
}

func TestLoadProgramRejectsUnknownNodeKind(t *testing.T) {
	src := []byte(`{"functions": [{"name": "bad", "body": {"kind": "bogus"}}]}`)
	_, err := loadProgram(src)
	assert.Error(t, err)
}

func TestLoadProgramRejectsNonBlockBody(t *testing.T) {
	src := []byte(`{"functions": [{"name": "bad", "body": {"kind": "ident", "name": "x"}}]}`)
	_, err := loadProgram(src)
	assert.Error(t, err)
}
