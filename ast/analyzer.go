package ast

// FunctionMetrics summarizes a single function's demand on the register
// allocator, cheaply enough to compute ahead of full liveness analysis.
// codegen computes it before compiling a function, but sizes the
// callee-saved reservation (ReserveRegistersBasedOnPressure) from the whole
// VariableRegs pool rather than from these figures.
type FunctionMetrics struct {
	Name              string
	RegisterPressure  int
	MaxLiveVariables  int
	NumVariables      int
	NumFloatVariables int
	VariableTypes     map[string]VarType
}

// ASTAnalyzer walks a function body once to produce FunctionMetrics. It is
// a cheap, syntactic approximation of liveness — an upper bound on
// simultaneously-live names, not the precise fixed-point result the
// liveness package computes from the CFG.
type ASTAnalyzer struct {
	declared map[string]bool
	varTypes map[string]VarType
	maxDepth int
	depth    int
}

// Analyze returns FunctionMetrics for fn.
func (a *ASTAnalyzer) Analyze(fn *FunctionDeclaration) FunctionMetrics {
	a.declared = map[string]bool{}
	a.varTypes = map[string]VarType{}
	a.maxDepth = 0
	a.depth = 0

	for _, p := range fn.Parameters {
		a.declare(p, ANY)
	}

	if fn.Body != nil {
		_ = fn.Body.Accept(a)
	}

	numFloat := 0
	for _, t := range a.varTypes {
		if t == FLOAT {
			numFloat++
		}
	}

	return FunctionMetrics{
		Name:              fn.Name,
		RegisterPressure:  len(a.declared),
		MaxLiveVariables:  a.maxDepth,
		NumVariables:      len(a.declared) - numFloat,
		NumFloatVariables: numFloat,
		VariableTypes:     a.varTypes,
	}
}

// declare registers name as live (if not already) and records its type,
// bumping the simultaneous-live-count high-water mark.
func (a *ASTAnalyzer) declare(name string, t VarType) {
	if !a.declared[name] {
		a.declared[name] = true
		a.bumpDepth(1)
	}
	a.varTypes[name] = t
}

func (a *ASTAnalyzer) bumpDepth(n int) {
	a.depth += n
	if a.depth > a.maxDepth {
		a.maxDepth = a.depth
	}
}

func (a *ASTAnalyzer) VisitProgram(p *Program) error {
	for _, fn := range p.Functions {
		if err := fn.Accept(a); err != nil {
			return err
		}
	}
	return nil
}

func (a *ASTAnalyzer) VisitFunctionDeclaration(f *FunctionDeclaration) error {
	if f.Body == nil {
		return nil
	}
	return f.Body.Accept(a)
}

func (a *ASTAnalyzer) VisitLetDeclaration(l *LetDeclaration) error {
	for _, n := range l.Names {
		a.declare(n, l.Type)
	}
	for _, init := range l.Inits {
		if init == nil {
			continue
		}
		if err := init.Accept(a); err != nil {
			return err
		}
	}
	return nil
}

func (a *ASTAnalyzer) VisitAssignment(n *Assignment) error {
	if err := n.Target.Accept(a); err != nil {
		return err
	}
	return n.Value.Accept(a)
}

func (a *ASTAnalyzer) VisitBinaryOp(n *BinaryOp) error {
	if err := n.Left.Accept(a); err != nil {
		return err
	}
	return n.Right.Accept(a)
}

func (a *ASTAnalyzer) VisitUnaryOp(n *UnaryOp) error {
	return n.Operand.Accept(a)
}

func (a *ASTAnalyzer) VisitIdent(n *Ident) error {
	if !a.declared[n.Name] {
		a.declare(n.Name, ANY)
	}
	return nil
}

func (a *ASTAnalyzer) VisitIntLiteral(*IntLiteral) error     { return nil }
func (a *ASTAnalyzer) VisitFloatLiteral(*FloatLiteral) error { return nil }

func (a *ASTAnalyzer) VisitCallExpr(n *CallExpr) error {
	for _, arg := range n.Args {
		if err := arg.Accept(a); err != nil {
			return err
		}
	}
	return nil
}

func (a *ASTAnalyzer) VisitIfStatement(n *IfStatement) error {
	if err := n.Cond.Accept(a); err != nil {
		return err
	}
	if n.Then != nil {
		if err := n.Then.Accept(a); err != nil {
			return err
		}
	}
	if n.Else != nil {
		return n.Else.Accept(a)
	}
	return nil
}

func (a *ASTAnalyzer) VisitWhileStatement(n *WhileStatement) error {
	if err := n.Cond.Accept(a); err != nil {
		return err
	}
	if n.Body != nil {
		return n.Body.Accept(a)
	}
	return nil
}

func (a *ASTAnalyzer) VisitReturnStatement(n *ReturnStatement) error {
	if n.Value == nil {
		return nil
	}
	return n.Value.Accept(a)
}

func (a *ASTAnalyzer) VisitBlock(n *Block) error {
	for _, stmt := range n.Statements {
		if stmt == nil {
			continue
		}
		if err := stmt.Accept(a); err != nil {
			return err
		}
	}
	return nil
}
