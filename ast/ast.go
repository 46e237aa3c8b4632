// Package ast holds minimal stand-ins for the upstream lexer/parser/AST and
// symbol-table subsystems. Those subsystems are out of scope for this
// repository (see spec.md §1) — this package exists only so the codegen
// core has real, typed inputs to consume and real types to test against.
package ast

// VarType is the static type BCPL's typeless-with-float-extension type
// system assigns to a variable or expression.
type VarType int

const (
	ANY VarType = iota
	INTEGER
	FLOAT
)

func (t VarType) String() string {
	switch t {
	case INTEGER:
		return "INTEGER"
	case FLOAT:
		return "FLOAT"
	default:
		return "ANY"
	}
}

// SymbolKind classifies an entry in the SymbolTable.
type SymbolKind int

const (
	LOCAL_VAR SymbolKind = iota
	STATIC_VAR
	GLOBAL_VAR
	MANIFEST
	LABEL
	FUNCTION
	FLOAT_FUNCTION
	ROUTINE
	RUNTIME_FUNCTION
	RUNTIME_FLOAT_FUNCTION
	RUNTIME_ROUTINE
	RUNTIME_FLOAT_ROUTINE
)

// Symbol is a single entry in a scope of the SymbolTable.
type Symbol struct {
	Name          string
	Kind          SymbolKind
	Type          VarType
	Parameters    []string
	AbsoluteValue int64
}

// Node is implemented by every AST node the codegen core must be able to
// walk. Accept dispatches to the matching Visitor method.
type Node interface {
	Accept(v Visitor) error
}

// Visitor is implemented by passes that walk the AST: the code generator
// and the liveness analyzer's use/def collector.
type Visitor interface {
	VisitProgram(*Program) error
	VisitFunctionDeclaration(*FunctionDeclaration) error
	VisitLetDeclaration(*LetDeclaration) error
	VisitAssignment(*Assignment) error
	VisitBinaryOp(*BinaryOp) error
	VisitUnaryOp(*UnaryOp) error
	VisitIdent(*Ident) error
	VisitIntLiteral(*IntLiteral) error
	VisitFloatLiteral(*FloatLiteral) error
	VisitCallExpr(*CallExpr) error
	VisitIfStatement(*IfStatement) error
	VisitWhileStatement(*WhileStatement) error
	VisitReturnStatement(*ReturnStatement) error
	VisitBlock(*Block) error
}

// Program is the root of a compilation unit.
type Program struct {
	Functions []*FunctionDeclaration
}

func (p *Program) Accept(v Visitor) error { return v.VisitProgram(p) }

// FunctionDeclaration is a BCPL function or routine definition.
type FunctionDeclaration struct {
	Name       string
	Parameters []string
	ReturnType VarType
	Body       *Block
}

func (f *FunctionDeclaration) Accept(v Visitor) error { return v.VisitFunctionDeclaration(f) }

// LetDeclaration introduces one or more locals, optionally with
// initializers (BCPL's LET a, b = 1, 2).
type LetDeclaration struct {
	Names []string
	Type  VarType
	Inits []Node
}

func (l *LetDeclaration) Accept(v Visitor) error { return v.VisitLetDeclaration(l) }

// Assignment is `lhs := rhs` (BCPL's `lhs := rhs`).
type Assignment struct {
	Target Node
	Value  Node
}

func (a *Assignment) Accept(v Visitor) error { return v.VisitAssignment(a) }

// BinaryOp covers arithmetic, comparison, and logical binary operators.
type BinaryOp struct {
	Op    string
	Left  Node
	Right Node
}

func (b *BinaryOp) Accept(v Visitor) error { return v.VisitBinaryOp(b) }

// UnaryOp covers negation and logical/bitwise not.
type UnaryOp struct {
	Op      string
	Operand Node
}

func (u *UnaryOp) Accept(v Visitor) error { return v.VisitUnaryOp(u) }

// Ident references a variable by name.
type Ident struct {
	Name string
}

func (i *Ident) Accept(v Visitor) error { return v.VisitIdent(i) }

// IntLiteral is an integer constant.
type IntLiteral struct {
	Value int64
}

func (l *IntLiteral) Accept(v Visitor) error { return v.VisitIntLiteral(l) }

// FloatLiteral is a floating-point constant.
type FloatLiteral struct {
	Value float64
}

func (l *FloatLiteral) Accept(v Visitor) error { return v.VisitFloatLiteral(l) }

// CallExpr calls a function/routine by name with the given arguments.
type CallExpr struct {
	Callee string
	Args   []Node
}

func (c *CallExpr) Accept(v Visitor) error { return v.VisitCallExpr(c) }

// IfStatement is BCPL's `IF cond THEN stmt [ELSE stmt]`.
type IfStatement struct {
	Cond Node
	Then Node
	Else Node
}

func (i *IfStatement) Accept(v Visitor) error { return v.VisitIfStatement(i) }

// WhileStatement is BCPL's `WHILE cond DO stmt`.
type WhileStatement struct {
	Cond Node
	Body Node
}

func (w *WhileStatement) Accept(v Visitor) error { return v.VisitWhileStatement(w) }

// ReturnStatement is BCPL's `RETURN` or `RESULTIS expr`.
type ReturnStatement struct {
	Value Node
}

func (r *ReturnStatement) Accept(v Visitor) error { return v.VisitReturnStatement(r) }

// Block is a sequence of statements sharing a lexical scope.
type Block struct {
	Statements []Node
}

func (b *Block) Accept(v Visitor) error { return v.VisitBlock(b) }
