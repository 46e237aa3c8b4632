package codegen

import (
	"fmt"

	"github.com/nativecg/bcplarm64/ast"
	"github.com/nativecg/bcplarm64/encoder"
	"github.com/nativecg/bcplarm64/ir"
)

// compileStmt lowers a statement-position node. Expression nodes are
// accepted too (a bare CallExpr used for its side effects) — their result
// register is simply discarded.
func (fg *funcGen) compileStmt(n ast.Node) error {
	switch s := n.(type) {
	case nil:
		return nil

	case *ast.Block:
		for _, stmt := range s.Statements {
			if err := fg.compileStmt(stmt); err != nil {
				return err
			}
		}
		return nil

	case *ast.LetDeclaration:
		return fg.compileLetDeclaration(s)

	case *ast.Assignment:
		return fg.compileAssignment(s)

	case *ast.IfStatement:
		return fg.compileIfStatement(s)

	case *ast.WhileStatement:
		return fg.compileWhileStatement(s)

	case *ast.ReturnStatement:
		return fg.compileReturnStatement(s)

	default:
		reg, _, releasable, err := fg.compileExpr(n)
		if err != nil {
			return fmt.Errorf("codegen: statement: %w", err)
		}
		fg.releaseIfScratch(reg, releasable)
		return nil
	}
}

func (fg *funcGen) compileLetDeclaration(l *ast.LetDeclaration) error {
	for i, name := range l.Names {
		if i >= len(l.Inits) || l.Inits[i] == nil {
			continue
		}
		reg, isFloat, releasable, err := fg.compileExpr(l.Inits[i])
		if err != nil {
			return err
		}
		if err := fg.storeVariable(name, reg, isFloat); err != nil {
			return err
		}
		fg.releaseIfScratch(reg, releasable)
	}
	return nil
}

func (fg *funcGen) compileAssignment(a *ast.Assignment) error {
	target, ok := a.Target.(*ast.Ident)
	if !ok {
		return fmt.Errorf("codegen: unsupported assignment target of type %T", a.Target)
	}
	reg, isFloat, releasable, err := fg.compileExpr(a.Value)
	if err != nil {
		return err
	}
	if err := fg.storeVariable(target.Name, reg, isFloat); err != nil {
		return err
	}
	fg.releaseIfScratch(reg, releasable)
	return nil
}

// branchIfFalse emits the CMP/B.EQ pair every conditional statement needs
// to reach falseLabel when cond evaluates to BCPL FALSE (0). This is the
// textbook shape the compare-zero-branch-fusion peephole pattern collapses
// into a single CBZ.
func (fg *funcGen) branchIfFalse(cond ast.Node, falseLabel string) error {
	reg, _, releasable, err := fg.compileExpr(cond)
	if err != nil {
		return err
	}
	cmp, err := encoder.CreateCmpImm(reg, 0)
	if err != nil {
		return err
	}
	fg.emit(cmp, encoder.CreateBCond(ir.EQ, falseLabel))
	fg.releaseIfScratch(reg, releasable)
	return nil
}

func (fg *funcGen) compileIfStatement(s *ast.IfStatement) error {
	elseLabel := fg.nextLabel("else")
	if err := fg.branchIfFalse(s.Cond, elseLabel); err != nil {
		return err
	}
	if err := fg.compileStmt(s.Then); err != nil {
		return err
	}
	if s.Else == nil {
		fg.stream.DefineLabel(elseLabel)
		return nil
	}
	endLabel := fg.nextLabel("endif")
	fg.emit(encoder.CreateB(endLabel))
	fg.stream.DefineLabel(elseLabel)
	if err := fg.compileStmt(s.Else); err != nil {
		return err
	}
	fg.stream.DefineLabel(endLabel)
	return nil
}

func (fg *funcGen) compileWhileStatement(s *ast.WhileStatement) error {
	startLabel := fg.nextLabel("while_start")
	endLabel := fg.nextLabel("while_end")

	fg.stream.DefineLabel(startLabel)
	if err := fg.branchIfFalse(s.Cond, endLabel); err != nil {
		return err
	}
	if err := fg.compileStmt(s.Body); err != nil {
		return err
	}
	fg.emit(encoder.CreateB(startLabel))
	fg.stream.DefineLabel(endLabel)
	return nil
}

func (fg *funcGen) compileReturnStatement(r *ast.ReturnStatement) error {
	if r.Value != nil {
		reg, isFloat, releasable, err := fg.compileExpr(r.Value)
		if err != nil {
			return err
		}
		resultDst := "X0"
		if isFloat {
			resultDst = "D0"
		}
		if reg != resultDst {
			mov, err := moveInstr(resultDst, reg, isFloat)
			if err != nil {
				return err
			}
			fg.emit(mov)
		}
		fg.releaseIfScratch(reg, releasable)
	}
	fg.emit(encoder.CreateB(fg.retLabel))
	return nil
}
