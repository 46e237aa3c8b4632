package liveness

import "github.com/nativecg/bcplarm64/ast"

// blockCollector walks one basic block's statements in order, classifying
// each variable reference as a block-local use or def per spec: a read
// before any write in the block belongs to use; a write belongs to def
// unless the name was already read earlier in the block (a def guarded by
// an in-block use cannot mask that use — the value arriving from outside
// the block is still needed).
type blockCollector struct {
	useSet map[string]bool
	defSet map[string]bool
	use    []string
	def    []string
}

func newBlockCollector() *blockCollector {
	return &blockCollector{useSet: map[string]bool{}, defSet: map[string]bool{}}
}

func (c *blockCollector) markUse(name string) {
	if c.useSet[name] || c.defSet[name] {
		return
	}
	c.useSet[name] = true
	c.use = append(c.use, name)
}

func (c *blockCollector) markDef(name string) {
	if c.useSet[name] || c.defSet[name] {
		return
	}
	c.defSet[name] = true
	c.def = append(c.def, name)
}

// AnalyzeBlock populates b.Use and b.Def from b.Statements, visiting every
// AST node kind via the ast.Visitor interface.
func AnalyzeBlock(b *BasicBlock) error {
	c := newBlockCollector()
	for _, stmt := range b.Statements {
		if stmt == nil {
			continue
		}
		if err := stmt.Accept(c); err != nil {
			return err
		}
	}
	b.Use = c.use
	b.Def = c.def
	return nil
}

func (c *blockCollector) VisitProgram(p *ast.Program) error {
	for _, fn := range p.Functions {
		if err := fn.Accept(c); err != nil {
			return err
		}
	}
	return nil
}

func (c *blockCollector) VisitFunctionDeclaration(f *ast.FunctionDeclaration) error {
	if f.Body == nil {
		return nil
	}
	return f.Body.Accept(c)
}

func (c *blockCollector) VisitLetDeclaration(l *ast.LetDeclaration) error {
	for _, init := range l.Inits {
		if init == nil {
			continue
		}
		if err := init.Accept(c); err != nil {
			return err
		}
	}
	for _, name := range l.Names {
		c.markDef(name)
	}
	return nil
}

func (c *blockCollector) VisitAssignment(a *ast.Assignment) error {
	if err := a.Value.Accept(c); err != nil {
		return err
	}
	if ident, ok := a.Target.(*ast.Ident); ok {
		c.markDef(ident.Name)
		return nil
	}
	return a.Target.Accept(c)
}

func (c *blockCollector) VisitBinaryOp(b *ast.BinaryOp) error {
	if err := b.Left.Accept(c); err != nil {
		return err
	}
	return b.Right.Accept(c)
}

func (c *blockCollector) VisitUnaryOp(u *ast.UnaryOp) error {
	return u.Operand.Accept(c)
}

func (c *blockCollector) VisitIdent(i *ast.Ident) error {
	c.markUse(i.Name)
	return nil
}

func (c *blockCollector) VisitIntLiteral(*ast.IntLiteral) error     { return nil }
func (c *blockCollector) VisitFloatLiteral(*ast.FloatLiteral) error { return nil }

func (c *blockCollector) VisitCallExpr(call *ast.CallExpr) error {
	for _, arg := range call.Args {
		if err := arg.Accept(c); err != nil {
			return err
		}
	}
	return nil
}

func (c *blockCollector) VisitIfStatement(i *ast.IfStatement) error {
	if err := i.Cond.Accept(c); err != nil {
		return err
	}
	if i.Then != nil {
		if err := i.Then.Accept(c); err != nil {
			return err
		}
	}
	if i.Else != nil {
		return i.Else.Accept(c)
	}
	return nil
}

func (c *blockCollector) VisitWhileStatement(w *ast.WhileStatement) error {
	if err := w.Cond.Accept(c); err != nil {
		return err
	}
	if w.Body != nil {
		return w.Body.Accept(c)
	}
	return nil
}

func (c *blockCollector) VisitReturnStatement(r *ast.ReturnStatement) error {
	if r.Value == nil {
		return nil
	}
	return r.Value.Accept(c)
}

func (c *blockCollector) VisitBlock(blk *ast.Block) error {
	for _, stmt := range blk.Statements {
		if stmt == nil {
			continue
		}
		if err := stmt.Accept(c); err != nil {
			return err
		}
	}
	return nil
}
