package main

import (
	"encoding/json"
	"fmt"

	"github.com/nativecg/bcplarm64/ast"
)

// Building a real BCPL lexer/parser is out of scope (spec.md §1's
// Non-goals name AST construction explicitly); this file is the thin
// substitute goat's cobra command plays for clang's C parser — a JSON
// program description decoded straight into ast.Node trees so the CLI has
// something concrete to hand codegen.

// programFile is the top-level JSON document read from the <program.json>
// argument.
type programFile struct {
	Functions []functionSpec `json:"functions"`
}

type functionSpec struct {
	Name       string          `json:"name"`
	Parameters []string        `json:"parameters"`
	ReturnType string          `json:"returnType"`
	Body       json.RawMessage `json:"body"`
}

// loadProgram decodes raw JSON bytes into an *ast.Program.
func loadProgram(data []byte) (*ast.Program, error) {
	var pf programFile
	if err := json.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("bcplcg: decoding program: %w", err)
	}

	prog := &ast.Program{}
	for _, fs := range pf.Functions {
		body, err := decodeNode(fs.Body)
		if err != nil {
			return nil, fmt.Errorf("bcplcg: function %q: %w", fs.Name, err)
		}
		var block *ast.Block
		if body != nil {
			var ok bool
			block, ok = body.(*ast.Block)
			if !ok {
				return nil, fmt.Errorf("bcplcg: function %q: body must be a block", fs.Name)
			}
		}
		prog.Functions = append(prog.Functions, &ast.FunctionDeclaration{
			Name:       fs.Name,
			Parameters: fs.Parameters,
			ReturnType: parseVarType(fs.ReturnType),
			Body:       block,
		})
	}
	return prog, nil
}

func parseVarType(s string) ast.VarType {
	switch s {
	case "FLOAT":
		return ast.FLOAT
	case "INTEGER":
		return ast.INTEGER
	default:
		return ast.ANY
	}
}

// nodeEnvelope is the discriminated-union shape every node kind decodes
// through: Kind picks the Go type, the rest of the fields are interpreted
// according to it.
type nodeEnvelope struct {
	Kind string `json:"kind"`

	Names []string          `json:"names"`
	Type  string            `json:"type"`
	Inits []json.RawMessage `json:"inits"`

	Target json.RawMessage `json:"target"`
	Value  json.RawMessage `json:"value"`

	Op      string          `json:"op"`
	Left    json.RawMessage `json:"left"`
	Right   json.RawMessage `json:"right"`
	Operand json.RawMessage `json:"operand"`

	Name string `json:"name"`

	IntValue   *int64   `json:"intValue"`
	FloatValue *float64 `json:"floatValue"`

	Callee string            `json:"callee"`
	Args   []json.RawMessage `json:"args"`

	Cond json.RawMessage `json:"cond"`
	Then json.RawMessage `json:"then"`
	Else json.RawMessage `json:"else"`
	Body json.RawMessage `json:"body"`

	Statements []json.RawMessage `json:"statements"`
}

func decodeNode(raw json.RawMessage) (ast.Node, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var env nodeEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}

	switch env.Kind {
	case "":
		return nil, nil
	case "block":
		stmts := make([]ast.Node, 0, len(env.Statements))
		for _, s := range env.Statements {
			n, err := decodeNode(s)
			if err != nil {
				return nil, err
			}
			stmts = append(stmts, n)
		}
		return &ast.Block{Statements: stmts}, nil

	case "let":
		inits := make([]ast.Node, 0, len(env.Inits))
		for _, s := range env.Inits {
			n, err := decodeNode(s)
			if err != nil {
				return nil, err
			}
			inits = append(inits, n)
		}
		return &ast.LetDeclaration{Names: env.Names, Type: parseVarType(env.Type), Inits: inits}, nil

	case "assign":
		target, err := decodeNode(env.Target)
		if err != nil {
			return nil, err
		}
		value, err := decodeNode(env.Value)
		if err != nil {
			return nil, err
		}
		return &ast.Assignment{Target: target, Value: value}, nil

	case "binary":
		left, err := decodeNode(env.Left)
		if err != nil {
			return nil, err
		}
		right, err := decodeNode(env.Right)
		if err != nil {
			return nil, err
		}
		return &ast.BinaryOp{Op: env.Op, Left: left, Right: right}, nil

	case "unary":
		operand, err := decodeNode(env.Operand)
		if err != nil {
			return nil, err
		}
		return &ast.UnaryOp{Op: env.Op, Operand: operand}, nil

	case "ident":
		return &ast.Ident{Name: env.Name}, nil

	case "int":
		if env.IntValue == nil {
			return nil, fmt.Errorf("bcplcg: int literal missing intValue")
		}
		return &ast.IntLiteral{Value: *env.IntValue}, nil

	case "float":
		if env.FloatValue == nil {
			return nil, fmt.Errorf("bcplcg: float literal missing floatValue")
		}
		return &ast.FloatLiteral{Value: *env.FloatValue}, nil

	case "call":
		args := make([]ast.Node, 0, len(env.Args))
		for _, a := range env.Args {
			n, err := decodeNode(a)
			if err != nil {
				return nil, err
			}
			args = append(args, n)
		}
		return &ast.CallExpr{Callee: env.Callee, Args: args}, nil

	case "if":
		cond, err := decodeNode(env.Cond)
		if err != nil {
			return nil, err
		}
		thenN, err := decodeNode(env.Then)
		if err != nil {
			return nil, err
		}
		elseN, err := decodeNode(env.Else)
		if err != nil {
			return nil, err
		}
		return &ast.IfStatement{Cond: cond, Then: thenN, Else: elseN}, nil

	case "while":
		cond, err := decodeNode(env.Cond)
		if err != nil {
			return nil, err
		}
		body, err := decodeNode(env.Body)
		if err != nil {
			return nil, err
		}
		return &ast.WhileStatement{Cond: cond, Body: body}, nil

	case "return":
		value, err := decodeNode(env.Value)
		if err != nil {
			return nil, err
		}
		return &ast.ReturnStatement{Value: value}, nil

	default:
		return nil, fmt.Errorf("bcplcg: unknown node kind %q", env.Kind)
	}
}
