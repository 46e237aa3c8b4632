package encoder

import (
	"fmt"

	"github.com/nativecg/bcplarm64/ir"
)

// CreateFadd emits FADD Dd, Dn, Dm (double-precision).
func CreateFadd(dd, dn, dm string) (ir.Instruction, error) {
	return fpReg(0x1E602800, ir.FADD, dd, dn, dm, "FADD")
}

// CreateFsub emits FSUB Dd, Dn, Dm.
func CreateFsub(dd, dn, dm string) (ir.Instruction, error) {
	return fpReg(0x1E603800, ir.FSUB, dd, dn, dm, "FSUB")
}

// CreateFmul emits FMUL Dd, Dn, Dm.
func CreateFmul(dd, dn, dm string) (ir.Instruction, error) {
	return fpReg(0x1E600800, ir.FMUL, dd, dn, dm, "FMUL")
}

// CreateFdiv emits FDIV Dd, Dn, Dm.
func CreateFdiv(dd, dn, dm string) (ir.Instruction, error) {
	return fpReg(0x1E601800, ir.FDIV, dd, dn, dm, "FDIV")
}

func fpReg(base uint32, op ir.OpType, dd, dn, dm, mnemonic string) (ir.Instruction, error) {
	rd, err := reg5(dd)
	if err != nil {
		return ir.Instruction{}, err
	}
	rn, err := reg5(dn)
	if err != nil {
		return ir.Instruction{}, err
	}
	rm, err := reg5(dm)
	if err != nil {
		return ir.Instruction{}, err
	}
	encoding := base | (rm << 16) | (rn << 5) | rd
	return ir.Instruction{
		Encoding: encoding, AssemblyText: fmt.Sprintf("%s %s, %s, %s", mnemonic, dd, dn, dm),
		Opcode: op, DestReg: int(rd), SrcReg1: int(rn), SrcReg2: int(rm),
	}, nil
}

// CreateFmadd emits FMADD Dd, Dn, Dm, Da (Dd = Da + Dn*Dm).
func CreateFmadd(dd, dn, dm, da string) (ir.Instruction, error) {
	return fpFused(0x1F400000, ir.FMADD, dd, dn, dm, da, "FMADD")
}

// CreateFmsub emits FMSUB Dd, Dn, Dm, Da (Dd = Da - Dn*Dm).
func CreateFmsub(dd, dn, dm, da string) (ir.Instruction, error) {
	return fpFused(0x1F408000, ir.FMSUB, dd, dn, dm, da, "FMSUB")
}

func fpFused(base uint32, op ir.OpType, dd, dn, dm, da, mnemonic string) (ir.Instruction, error) {
	rd, err := reg5(dd)
	if err != nil {
		return ir.Instruction{}, err
	}
	rn, err := reg5(dn)
	if err != nil {
		return ir.Instruction{}, err
	}
	rm, err := reg5(dm)
	if err != nil {
		return ir.Instruction{}, err
	}
	ra, err := reg5(da)
	if err != nil {
		return ir.Instruction{}, err
	}
	encoding := base | (rm << 16) | (ra << 10) | (rn << 5) | rd
	return ir.Instruction{
		Encoding: encoding, AssemblyText: fmt.Sprintf("%s %s, %s, %s, %s", mnemonic, dd, dn, dm, da),
		Opcode: op, DestReg: int(rd), SrcReg1: int(rn), SrcReg2: int(rm),
	}, nil
}

// CreateFcmp emits FCMP Dn, Dm.
func CreateFcmp(dn, dm string) (ir.Instruction, error) {
	rn, err := reg5(dn)
	if err != nil {
		return ir.Instruction{}, err
	}
	rm, err := reg5(dm)
	if err != nil {
		return ir.Instruction{}, err
	}
	encoding := uint32(0x1E602000) | (rm << 16) | (rn << 5)
	return ir.Instruction{
		Encoding: encoding, AssemblyText: fmt.Sprintf("FCMP %s, %s", dn, dm),
		Opcode: ir.FCMP, SrcReg1: int(rn), SrcReg2: int(rm),
	}, nil
}

// CreateScvtf emits SCVTF Dd, Xn (signed 64-bit integer to double).
func CreateScvtf(dd, xn string) (ir.Instruction, error) {
	rd, err := reg5(dd)
	if err != nil {
		return ir.Instruction{}, err
	}
	rn, err := reg5(xn)
	if err != nil {
		return ir.Instruction{}, err
	}
	encoding := uint32(0x9E620000) | (rn << 5) | rd
	return ir.Instruction{
		Encoding: encoding, AssemblyText: fmt.Sprintf("SCVTF %s, %s", dd, xn),
		Opcode: ir.SCVTF, DestReg: int(rd), SrcReg1: int(rn),
	}, nil
}

// CreateFcvtzs emits FCVTZS Xd, Dn (double to signed 64-bit integer,
// rounding toward zero).
func CreateFcvtzs(xd, dn string) (ir.Instruction, error) {
	rd, err := reg5(xd)
	if err != nil {
		return ir.Instruction{}, err
	}
	rn, err := reg5(dn)
	if err != nil {
		return ir.Instruction{}, err
	}
	encoding := uint32(0x9E780000) | (rn << 5) | rd
	return ir.Instruction{
		Encoding: encoding, AssemblyText: fmt.Sprintf("FCVTZS %s, %s", xd, dn),
		Opcode: ir.FCVTZS, DestReg: int(rd), SrcReg1: int(rn),
	}, nil
}
