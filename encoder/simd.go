package encoder

import (
	"fmt"

	"github.com/nativecg/bcplarm64/ir"
)

// CreateAddVectorReg emits ADD Vd.<arrangement>, Vn.<arrangement>,
// Vm.<arrangement> (NEON vector integer add; arrangement is typically "4S").
func CreateAddVectorReg(vd, vn, vm, arrangement string) (ir.Instruction, error) {
	return vectorReg(0x4EA08400, ir.ADD_VECTOR, vd, vn, vm, arrangement, "ADD")
}

// CreateMulVectorReg emits MUL Vd.<arrangement>, Vn.<arrangement>,
// Vm.<arrangement> (NEON vector integer multiply).
func CreateMulVectorReg(vd, vn, vm, arrangement string) (ir.Instruction, error) {
	return vectorReg(0x4EA09C00, ir.MUL_VECTOR, vd, vn, vm, arrangement, "MUL")
}

// CreateFaddVectorReg emits FADD Vd.<arrangement>, Vn.<arrangement>,
// Vm.<arrangement> (NEON vector float add, single-precision 4S lanes).
func CreateFaddVectorReg(vd, vn, vm, arrangement string) (ir.Instruction, error) {
	return vectorReg(0x4E20D400, ir.FADD_VECTOR, vd, vn, vm, arrangement, "FADD")
}

// CreateFmlaVectorReg emits FMLA Vd.<arrangement>, Vn.<arrangement>,
// Vm.<arrangement> (NEON fused vector multiply-accumulate: Vd += Vn*Vm).
func CreateFmlaVectorReg(vd, vn, vm, arrangement string) (ir.Instruction, error) {
	return vectorReg(0x4E20CC00, ir.FMLA_VECTOR, vd, vn, vm, arrangement, "FMLA")
}

// vectorReg packs Rd/Rn/Rm into base, which carries the 4S size bits for
// every constructor above; arrangement appears only in AssemblyText.
// Operands are parsed by GetRegEncoding, so vector registers are named
// with the d prefix (D3 for V3); a v prefix is rejected.
func vectorReg(base uint32, op ir.OpType, vd, vn, vm, arrangement, mnemonic string) (ir.Instruction, error) {
	rd, err := reg5(vd)
	if err != nil {
		return ir.Instruction{}, err
	}
	rn, err := reg5(vn)
	if err != nil {
		return ir.Instruction{}, err
	}
	rm, err := reg5(vm)
	if err != nil {
		return ir.Instruction{}, err
	}
	encoding := base | (rm << 16) | (rn << 5) | rd
	return ir.Instruction{
		Encoding:     encoding,
		AssemblyText: fmt.Sprintf("%s %s.%s, %s.%s, %s.%s", mnemonic, vd, arrangement, vn, arrangement, vm, arrangement),
		Opcode:       op,
		DestReg:      int(rd), SrcReg1: int(rn), SrcReg2: int(rm),
	}, nil
}

// CreateLd1Vector emits LD1 {Vt.<arrangement>}, [Xn] (single-register,
// no-offset NEON load).
func CreateLd1Vector(vt, xn, arrangement string) (ir.Instruction, error) {
	rt, err := reg5(vt)
	if err != nil {
		return ir.Instruction{}, err
	}
	rn, err := reg5(xn)
	if err != nil {
		return ir.Instruction{}, err
	}
	encoding := uint32(0x4C407800) | (rn << 5) | rt
	return ir.Instruction{
		Encoding:     encoding,
		AssemblyText: fmt.Sprintf("LD1 {%s.%s}, [%s]", vt, arrangement, xn),
		Opcode:       ir.LD1_VECTOR,
		DestReg:      int(rt), BaseReg: int(rn),
	}, nil
}
