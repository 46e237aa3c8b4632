package encoder

import (
	"fmt"

	"github.com/nativecg/bcplarm64/ir"
)

// CreateB emits an unconditional branch to label with a placeholder
// imm26; the assembler/JIT backpatches Encoding once the target offset is
// known (see ir.RelocB26).
func CreateB(label string) ir.Instruction {
	return ir.Instruction{
		Encoding:     0x14000000,
		AssemblyText: fmt.Sprintf("B %s", label),
		Opcode:       ir.B,
		TargetLabel:  label,
		Relocation:   ir.RelocB26,
	}
}

// CreateBL emits a branch-with-link to label, placeholder imm26.
func CreateBL(label string) ir.Instruction {
	return ir.Instruction{
		Encoding:     0x94000000,
		AssemblyText: fmt.Sprintf("BL %s", label),
		Opcode:       ir.BL,
		TargetLabel:  label,
		Relocation:   ir.RelocB26,
	}
}

// CreateBCond emits B.cond to label, placeholder imm19.
func CreateBCond(cond ir.Condition, label string) ir.Instruction {
	encoding := uint32(0x54000000) | uint32(cond)&0xF
	return ir.Instruction{
		Encoding:      encoding,
		AssemblyText:  fmt.Sprintf("B.%s %s", cond, label),
		Opcode:        ir.B_COND,
		TargetLabel:   label,
		ConditionCode: cond,
		Relocation:    ir.RelocBCond,
	}
}

// CreateCbz emits CBZ Xn, label (branch if zero), placeholder imm19.
func CreateCbz(xn, label string) (ir.Instruction, error) {
	return compareBranch(0xB4000000, ir.CBZ, xn, label, "CBZ")
}

// CreateCbnz emits CBNZ Xn, label (branch if not zero), placeholder imm19.
func CreateCbnz(xn, label string) (ir.Instruction, error) {
	return compareBranch(0xB5000000, ir.CBNZ, xn, label, "CBNZ")
}

func compareBranch(base uint32, op ir.OpType, xn, label, mnemonic string) (ir.Instruction, error) {
	rn, err := reg5(xn)
	if err != nil {
		return ir.Instruction{}, err
	}
	encoding := base | rn
	return ir.Instruction{
		Encoding:     encoding,
		AssemblyText: fmt.Sprintf("%s %s, %s", mnemonic, xn, label),
		Opcode:       op,
		SrcReg1:      int(rn),
		TargetLabel:  label,
		Relocation:   ir.RelocBCond,
	}, nil
}

// CreateBr emits BR Xn (branch to register, no link).
func CreateBr(xn string) (ir.Instruction, error) {
	rn, err := reg5(xn)
	if err != nil {
		return ir.Instruction{}, err
	}
	encoding := uint32(0xD61F0000) | (rn << 5)
	return ir.Instruction{
		Encoding: encoding, AssemblyText: fmt.Sprintf("BR %s", xn),
		Opcode: ir.BR, SrcReg1: int(rn),
	}, nil
}

// CreateBlr emits BLR Xn (branch to register with link).
func CreateBlr(xn string) (ir.Instruction, error) {
	rn, err := reg5(xn)
	if err != nil {
		return ir.Instruction{}, err
	}
	encoding := uint32(0xD63F0000) | (rn << 5)
	return ir.Instruction{
		Encoding: encoding, AssemblyText: fmt.Sprintf("BLR %s", xn),
		Opcode: ir.BLR, SrcReg1: int(rn),
	}, nil
}

// CreateRet emits RET (return via X30).
func CreateRet() ir.Instruction {
	return ir.Instruction{Encoding: 0xD65F03C0, AssemblyText: "RET", Opcode: ir.RET}
}

// CreateAdrp emits ADRP Xd, symbol, placeholder immhi/immlo.
func CreateAdrp(xd, symbol string) (ir.Instruction, error) {
	rd, err := reg5(xd)
	if err != nil {
		return ir.Instruction{}, err
	}
	encoding := uint32(0x90000000) | rd
	return ir.Instruction{
		Encoding: encoding, AssemblyText: fmt.Sprintf("ADRP %s, %s", xd, symbol),
		Opcode: ir.ADRP, DestReg: int(rd), TargetLabel: symbol, Relocation: ir.RelocAdrpImm,
	}, nil
}

// CreateAdr emits ADR Xd, symbol (PC-relative byte address, +-1MB range),
// placeholder immhi/immlo — used by the ADRP-fusion peephole pattern when
// the target is known to be within range at link/JIT time.
func CreateAdr(xd, symbol string) (ir.Instruction, error) {
	rd, err := reg5(xd)
	if err != nil {
		return ir.Instruction{}, err
	}
	encoding := uint32(0x10000000) | rd
	return ir.Instruction{
		Encoding: encoding, AssemblyText: fmt.Sprintf("ADR %s, %s", xd, symbol),
		Opcode: ir.ADR, DestReg: int(rd), TargetLabel: symbol, Relocation: ir.RelocAdrpImm,
	}, nil
}
