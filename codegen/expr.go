package codegen

import (
	"fmt"

	"github.com/nativecg/bcplarm64/ast"
	"github.com/nativecg/bcplarm64/encoder"
	"github.com/nativecg/bcplarm64/ir"
)

var compareConditions = map[string]ir.Condition{
	"=":  ir.EQ,
	"~=": ir.NE,
	"<":  ir.LT,
	"<=": ir.LE,
	">":  ir.GT,
	">=": ir.GE,
}

// loadVariable returns the register currently (or newly) bound to name.
// The first acquisition in a function loads its value from the frame's
// canonical local slot; every later acquisition trusts the register
// manager's own binding/spill bookkeeping (via GetSpillOffset), which is
// a different, allocator-owned slot space from the frame's regular
// locals — see DESIGN.md for why the two coexist.
func (fg *funcGen) loadVariable(name string) (string, bool, error) {
	isFloat := fg.cfm.IsFloatVariable(name)
	reg, spill, err := fg.rm.AcquireVariableReg(name, isFloat)
	if err != nil {
		return "", false, err
	}
	fg.emit(spill...)

	if !fg.loaded[name] {
		off, err := fg.cfm.GetOffset(name)
		if err == nil {
			load, err := encoder.CreateLdr(reg, "X29", off)
			if err != nil {
				return "", false, err
			}
			fg.emit(load)
		}
		fg.loaded[name] = true
	}
	return reg, isFloat, nil
}

// storeVariable writes valueReg into name's bound register, marking it
// dirty so a later spill (if the allocator evicts it) preserves the
// value.
func (fg *funcGen) storeVariable(name string, valueReg string, isFloat bool) error {
	reg, spill, err := fg.rm.AcquireVariableReg(name, isFloat)
	if err != nil {
		return err
	}
	fg.emit(spill...)
	if reg != valueReg {
		mov, err := moveInstr(reg, valueReg, isFloat)
		if err != nil {
			return err
		}
		fg.emit(mov)
	}
	fg.rm.MarkDirty(reg)
	fg.loaded[name] = true
	return nil
}

func moveInstr(dst, src string, isFloat bool) (ir.Instruction, error) {
	if isFloat {
		return encoder.CreateFmovReg(dst, src)
	}
	return encoder.CreateMovReg(dst, src)
}

func (fg *funcGen) acquireScratchFor(isFloat bool) (string, error) {
	if isFloat {
		return fg.rm.AcquireFPScratchReg()
	}
	return fg.rm.AcquireScratchReg()
}

func (fg *funcGen) releaseIfScratch(reg string, releasable bool) {
	if releasable {
		fg.rm.ReleaseRegister(reg)
	}
}

// compileExpr lowers an expression node, returning the register holding
// its value, whether that register is from the float pool, and whether
// the caller is free to release it once consumed (false for a variable's
// own bound register, which must never be released out from under it).
func (fg *funcGen) compileExpr(n ast.Node) (reg string, isFloat bool, releasable bool, err error) {
	switch e := n.(type) {
	case *ast.Ident:
		reg, isFloat, err = fg.loadVariable(e.Name)
		return reg, isFloat, false, err

	case *ast.IntLiteral:
		dst, err := fg.rm.AcquireScratchReg()
		if err != nil {
			return "", false, false, err
		}
		loads, err := encoder.CreateMovzMovkAbs64(dst, uint64(e.Value), "")
		if err != nil {
			return "", false, false, err
		}
		fg.emit(loads...)
		return dst, false, true, nil

	case *ast.FloatLiteral:
		scratch, err := fg.rm.AcquireScratchReg()
		if err != nil {
			return "", false, false, err
		}
		loads, err := encoder.CreateMovzMovkAbs64(scratch, floatBits(e.Value), "")
		if err != nil {
			return "", false, false, err
		}
		fg.emit(loads...)

		dst, err := fg.rm.AcquireFPScratchReg()
		if err != nil {
			return "", false, false, err
		}
		bitmove, err := encoder.CreateFmovReg(dst, scratch)
		if err != nil {
			return "", false, false, err
		}
		fg.emit(bitmove)
		fg.rm.ReleaseRegister(scratch)
		return dst, true, true, nil

	case *ast.UnaryOp:
		return fg.compileUnaryOp(e)

	case *ast.BinaryOp:
		return fg.compileBinaryOp(e)

	case *ast.CallExpr:
		return fg.compileCallExpr(e)

	default:
		return "", false, false, fmt.Errorf("codegen: cannot compile expression of type %T", n)
	}
}

func (fg *funcGen) compileUnaryOp(u *ast.UnaryOp) (string, bool, bool, error) {
	reg, isFloat, releasable, err := fg.compileExpr(u.Operand)
	if err != nil {
		return "", false, false, err
	}
	dst := reg
	if !releasable {
		dst, err = fg.acquireScratchFor(isFloat)
		if err != nil {
			return "", false, false, err
		}
	}

	switch u.Op {
	case "-":
		if isFloat {
			zero, err := fg.rm.AcquireFPScratchReg()
			if err != nil {
				return "", false, false, err
			}
			zeroBits, err := fg.loadZeroFloat(zero)
			if err != nil {
				return "", false, false, err
			}
			fg.emit(zeroBits...)
			sub, err := encoder.CreateFsub(dst, zero, reg)
			if err != nil {
				return "", false, false, err
			}
			fg.emit(sub)
			fg.rm.ReleaseRegister(zero)
		} else {
			neg, err := encoder.CreateNeg(dst, reg)
			if err != nil {
				return "", false, false, err
			}
			fg.emit(neg)
		}
	case "NOT", "~":
		allOnes, err := fg.rm.AcquireScratchReg()
		if err != nil {
			return "", false, false, err
		}
		loads, err := encoder.CreateMovzMovkAbs64(allOnes, ^uint64(0), "")
		if err != nil {
			return "", false, false, err
		}
		fg.emit(loads...)
		xor, err := encoder.CreateEorReg(dst, reg, allOnes)
		if err != nil {
			return "", false, false, err
		}
		fg.emit(xor)
		fg.rm.ReleaseRegister(allOnes)
	default:
		return "", false, false, fmt.Errorf("codegen: unsupported unary operator %q", u.Op)
	}
	return dst, isFloat, true, nil
}

func (fg *funcGen) loadZeroFloat(fpReg string) ([]ir.Instruction, error) {
	scratch, err := fg.rm.AcquireScratchReg()
	if err != nil {
		return nil, err
	}
	loads, err := encoder.CreateMovzMovkAbs64(scratch, 0, "")
	if err != nil {
		return nil, err
	}
	bitmove, err := encoder.CreateFmovReg(fpReg, scratch)
	if err != nil {
		return nil, err
	}
	fg.rm.ReleaseRegister(scratch)
	return append(loads, bitmove), nil
}

func (fg *funcGen) compileBinaryOp(b *ast.BinaryOp) (string, bool, bool, error) {
	leftReg, leftFloat, leftRel, err := fg.compileExpr(b.Left)
	if err != nil {
		return "", false, false, err
	}
	// A scratch-held left value must be promoted before evaluating a right
	// operand that itself calls out, or the call clobbers it in place.
	if leftRel && containsCall(b.Right) {
		leftReg, err = fg.promoteToTemp(leftReg, leftFloat)
		if err != nil {
			return "", false, false, err
		}
	}
	rightReg, _, rightRel, err := fg.compileExpr(b.Right)
	if err != nil {
		return "", false, false, err
	}

	if cond, ok := compareConditions[b.Op]; ok {
		dst, err := fg.compileComparison(leftReg, rightReg, leftFloat, cond)
		fg.releaseIfScratch(leftReg, leftRel)
		fg.releaseIfScratch(rightReg, rightRel)
		if err != nil {
			return "", false, false, err
		}
		return dst, false, true, nil
	}

	dst := leftReg
	if !leftRel {
		dst, err = fg.acquireScratchFor(leftFloat)
		if err != nil {
			return "", false, false, err
		}
	}

	instr, err := arithInstr(b.Op, dst, leftReg, rightReg, leftFloat)
	if err != nil {
		fg.releaseIfScratch(rightReg, rightRel)
		return "", false, false, err
	}
	fg.emit(instr)
	fg.releaseIfScratch(rightReg, rightRel)

	return dst, leftFloat, true, nil
}

// compileComparison emits CMP/FCMP + CSET + NEG, producing BCPL's
// canonical boolean encoding (TRUE = -1, FALSE = 0) so later logical
// combination (AND/OR over booleans) is just bitwise AND/OR.
func (fg *funcGen) compileComparison(leftReg, rightReg string, isFloat bool, cond ir.Condition) (string, error) {
	var cmp ir.Instruction
	var err error
	if isFloat {
		cmp, err = encoder.CreateFcmp(leftReg, rightReg)
	} else {
		cmp, err = encoder.CreateCmpReg(leftReg, rightReg)
	}
	if err != nil {
		return "", err
	}
	fg.emit(cmp)

	dst, err := fg.rm.AcquireScratchReg()
	if err != nil {
		return "", err
	}
	cset, err := encoder.CreateCset(dst, cond)
	if err != nil {
		return "", err
	}
	neg, err := encoder.CreateNeg(dst, dst)
	if err != nil {
		return "", err
	}
	fg.emit(cset, neg)
	return dst, nil
}

func arithInstr(op, dst, left, right string, isFloat bool) (ir.Instruction, error) {
	if isFloat {
		switch op {
		case "+":
			return encoder.CreateFadd(dst, left, right)
		case "-":
			return encoder.CreateFsub(dst, left, right)
		case "*":
			return encoder.CreateFmul(dst, left, right)
		case "/":
			return encoder.CreateFdiv(dst, left, right)
		default:
			return ir.Instruction{}, fmt.Errorf("codegen: unsupported float operator %q", op)
		}
	}
	switch op {
	case "+":
		return encoder.CreateAddReg(dst, left, right)
	case "-":
		return encoder.CreateSubReg(dst, left, right)
	case "*":
		return encoder.CreateMul(dst, left, right)
	case "/":
		return encoder.CreateSdiv(dst, left, right)
	case "&":
		return encoder.CreateAndReg(dst, left, right)
	case "|":
		return encoder.CreateOrrReg(dst, left, right)
	case "XOR":
		return encoder.CreateEorReg(dst, left, right)
	case "LSHIFT":
		return encoder.CreateLslReg(dst, left, right)
	case "RSHIFT":
		return encoder.CreateAsrReg(dst, left, right)
	default:
		return ir.Instruction{}, fmt.Errorf("codegen: unsupported integer operator %q", op)
	}
}

// argSlot is one already-evaluated call argument, parked in whatever
// register is safe to read from right before the final move into X0-7/D0-7.
type argSlot struct {
	reg        string
	isFloat    bool
	releasable bool
}

// compileCallExpr evaluates every argument before touching any X0-7/D0-7
// argument register, since a later argument that itself calls a function
// would otherwise clobber an earlier argument already parked there (BL may
// clobber any caller-saved register, not just the ones codegen chose to use
// as scratch). An argument left in a plain scratch register when later
// arguments still need evaluating is promoted to a named temporary via
// TemporaryVariableFactory, which binds it into the callee-saved variable
// pool — the only pool InvalidateCallerSaved and a nested BL both leave
// alone.
func (fg *funcGen) compileCallExpr(c *ast.CallExpr) (string, bool, bool, error) {
	slots := make([]argSlot, len(c.Args))
	for i, arg := range c.Args {
		reg, isFloat, releasable, err := fg.compileExpr(arg)
		if err != nil {
			return "", false, false, err
		}
		if releasable && i < len(c.Args)-1 {
			reg, err = fg.promoteToTemp(reg, isFloat)
			if err != nil {
				return "", false, false, err
			}
		}
		slots[i] = argSlot{reg: reg, isFloat: isFloat, releasable: releasable}
	}

	intIdx, fpIdx := 0, 0
	for i := range slots {
		slot := slots[i]
		var target string
		if slot.isFloat {
			if fpIdx >= len(fpArgRegs) {
				return "", false, false, fmt.Errorf("codegen: call to %q passes more than %d float arguments", c.Callee, len(fpArgRegs))
			}
			target = fpArgRegs[fpIdx]
			fpIdx++
		} else {
			if intIdx >= len(argRegs) {
				return "", false, false, fmt.Errorf("codegen: call to %q passes more than %d integer arguments", c.Callee, len(argRegs))
			}
			target = argRegs[intIdx]
			intIdx++
		}
		if slot.reg != target {
			mov, err := moveInstr(target, slot.reg, slot.isFloat)
			if err != nil {
				return "", false, false, err
			}
			fg.emit(mov)
		}
		fg.releaseIfScratch(slot.reg, slot.releasable)
	}

	spillCode, err := fg.rm.InvalidateCallerSaved()
	if err != nil {
		return "", false, false, err
	}
	fg.emit(spillCode...)
	fg.emit(encoder.CreateBL(c.Callee))

	resultIsFloat := fg.calleeReturnsFloat(c.Callee)
	dst, err := fg.acquireScratchFor(resultIsFloat)
	if err != nil {
		return "", false, false, err
	}
	resultSrc := "X0"
	if resultIsFloat {
		resultSrc = "D0"
	}
	if dst != resultSrc {
		mov, err := moveInstr(dst, resultSrc, resultIsFloat)
		if err != nil {
			return "", false, false, err
		}
		fg.emit(mov)
	}
	return dst, resultIsFloat, true, nil
}

func (fg *funcGen) calleeReturnsFloat(name string) bool {
	sym, ok := fg.g.symtab.Lookup(name)
	if !ok {
		return false
	}
	switch sym.Kind {
	case ast.FLOAT_FUNCTION, ast.RUNTIME_FLOAT_FUNCTION, ast.RUNTIME_FLOAT_ROUTINE:
		return true
	}
	return sym.Type == ast.FLOAT
}

// promoteToTemp moves a scratch-held value into a freshly minted named
// temporary bound through the variable register pool, so it survives a
// nested call: InvalidateCallerSaved and the allocator's eviction/spill
// path both only protect variable-pool bindings, never anonymous scratch.
func (fg *funcGen) promoteToTemp(reg string, isFloat bool) (string, error) {
	varType := ast.INTEGER
	if isFloat {
		varType = ast.FLOAT
	}
	name, err := fg.g.tempVar.Create(fg.fn.Name, varType, fg.g.symtab, &fg.metrics)
	if err != nil {
		return "", err
	}
	if err := fg.storeVariable(name, reg, isFloat); err != nil {
		return "", err
	}
	bound, _, err := fg.rm.AcquireVariableReg(name, isFloat)
	if err != nil {
		return "", err
	}
	if bound != reg {
		fg.rm.ReleaseRegister(reg)
	}
	return bound, nil
}
