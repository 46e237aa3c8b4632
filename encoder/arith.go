package encoder

import (
	"fmt"

	"github.com/nativecg/bcplarm64/ir"
)

func reg5(name string) (uint32, error) { return GetRegEncoding(name) }

// CreateAddReg emits ADD Xd, Xn, Xm.
func CreateAddReg(xd, xn, xm string) (ir.Instruction, error) {
	return aluReg(0x8B000000, ir.ADD, xd, xn, xm, "ADD")
}

// CreateSubReg emits SUB Xd, Xn, Xm.
func CreateSubReg(xd, xn, xm string) (ir.Instruction, error) {
	return aluReg(0xCB000000, ir.SUB, xd, xn, xm, "SUB")
}

// CreateAndReg emits AND Xd, Xn, Xm.
func CreateAndReg(xd, xn, xm string) (ir.Instruction, error) {
	return aluReg(0x8A000000, ir.AND, xd, xn, xm, "AND")
}

// CreateOrrReg emits ORR Xd, Xn, Xm.
func CreateOrrReg(xd, xn, xm string) (ir.Instruction, error) {
	return aluReg(0xAA000000, ir.ORR, xd, xn, xm, "ORR")
}

// CreateEorReg emits EOR Xd, Xn, Xm.
func CreateEorReg(xd, xn, xm string) (ir.Instruction, error) {
	return aluReg(0xCA000000, ir.EOR, xd, xn, xm, "EOR")
}

func aluReg(base uint32, op ir.OpType, xd, xn, xm, mnemonic string) (ir.Instruction, error) {
	rd, err := reg5(xd)
	if err != nil {
		return ir.Instruction{}, err
	}
	rn, err := reg5(xn)
	if err != nil {
		return ir.Instruction{}, err
	}
	rm, err := reg5(xm)
	if err != nil {
		return ir.Instruction{}, err
	}
	encoding := base | (rm << 16) | (rn << 5) | rd
	return ir.Instruction{
		Encoding:     encoding,
		AssemblyText: fmt.Sprintf("%s %s, %s, %s", mnemonic, xd, xn, xm),
		Opcode:       op,
		DestReg:      int(rd),
		SrcReg1:      int(rn),
		SrcReg2:      int(rm),
	}, nil
}

// CreateAddImm emits ADD Xd, Xn, #imm12 (imm12 must be in [0, 4095]).
func CreateAddImm(xd, xn string, imm12 uint32) (ir.Instruction, error) {
	return aluImm(0x91000000, ir.ADD, xd, xn, imm12, "ADD")
}

// CreateSubImm emits SUB Xd, Xn, #imm12.
func CreateSubImm(xd, xn string, imm12 uint32) (ir.Instruction, error) {
	return aluImm(0xD1000000, ir.SUB, xd, xn, imm12, "SUB")
}

// CreateAndImm emits AND Xd, Xn, #imm, where imm must satisfy
// CanEncodeAsImmediate(ir.AND, imm) — AArch64's logical-immediate bitmask
// encoding, not an arbitrary 64-bit value.
func CreateAndImm(xd, xn string, imm uint64) (ir.Instruction, error) {
	return logicalImm(0x92000000, ir.AND, xd, xn, imm, "AND")
}

// CreateOrrImm emits ORR Xd, Xn, #imm.
func CreateOrrImm(xd, xn string, imm uint64) (ir.Instruction, error) {
	return logicalImm(0xB2000000, ir.ORR, xd, xn, imm, "ORR")
}

// CreateEorImm emits EOR Xd, Xn, #imm.
func CreateEorImm(xd, xn string, imm uint64) (ir.Instruction, error) {
	return logicalImm(0xD2000000, ir.EOR, xd, xn, imm, "EOR")
}

func logicalImm(base uint32, op ir.OpType, xd, xn string, imm uint64, mnemonic string) (ir.Instruction, error) {
	n, immr, imms, ok := encodeLogicalImmediate(imm)
	if !ok {
		return ir.Instruction{}, fmt.Errorf("encoder: %d is not encodable as a logical immediate", imm)
	}
	rd, err := reg5(xd)
	if err != nil {
		return ir.Instruction{}, err
	}
	rn, err := reg5(xn)
	if err != nil {
		return ir.Instruction{}, err
	}
	encoding := base | (n << 22) | (immr << 16) | (imms << 10) | (rn << 5) | rd
	return ir.Instruction{
		Encoding:      encoding,
		AssemblyText:  fmt.Sprintf("%s %s, %s, #%d", mnemonic, xd, xn, imm),
		Opcode:        op,
		DestReg:       int(rd),
		SrcReg1:       int(rn),
		Immediate:     int64(imm),
		UsesImmediate: true,
	}, nil
}

func aluImm(base uint32, op ir.OpType, xd, xn string, imm12 uint32, mnemonic string) (ir.Instruction, error) {
	if imm12 > 4095 {
		return ir.Instruction{}, fmt.Errorf("encoder: immediate %d exceeds 12-bit range", imm12)
	}
	rd, err := reg5(xd)
	if err != nil {
		return ir.Instruction{}, err
	}
	rn, err := reg5(xn)
	if err != nil {
		return ir.Instruction{}, err
	}
	encoding := base | ((imm12 & 0xFFF) << 10) | (rn << 5) | rd
	return ir.Instruction{
		Encoding:      encoding,
		AssemblyText:  fmt.Sprintf("%s %s, %s, #%d", mnemonic, xd, xn, imm12),
		Opcode:        op,
		DestReg:       int(rd),
		SrcReg1:       int(rn),
		Immediate:     int64(imm12),
		UsesImmediate: true,
	}, nil
}

// CreateMul emits MUL Xd, Xn, Xm (an alias for MADD Xd, Xn, Xm, XZR).
func CreateMul(xd, xn, xm string) (ir.Instruction, error) {
	rd, err := reg5(xd)
	if err != nil {
		return ir.Instruction{}, err
	}
	rn, err := reg5(xn)
	if err != nil {
		return ir.Instruction{}, err
	}
	rm, err := reg5(xm)
	if err != nil {
		return ir.Instruction{}, err
	}
	encoding := uint32(0x9B007C00) | (rm << 16) | (rn << 5) | rd
	return ir.Instruction{
		Encoding:     encoding,
		AssemblyText: fmt.Sprintf("MUL %s, %s, %s", xd, xn, xm),
		Opcode:       ir.MUL,
		DestReg:      int(rd),
		SrcReg1:      int(rn),
		SrcReg2:      int(rm),
	}, nil
}

// CreateSdiv emits SDIV Xd, Xn, Xm.
func CreateSdiv(xd, xn, xm string) (ir.Instruction, error) {
	rd, err := reg5(xd)
	if err != nil {
		return ir.Instruction{}, err
	}
	rn, err := reg5(xn)
	if err != nil {
		return ir.Instruction{}, err
	}
	rm, err := reg5(xm)
	if err != nil {
		return ir.Instruction{}, err
	}
	encoding := uint32(0x9AC00C00) | (rm << 16) | (rn << 5) | rd
	return ir.Instruction{
		Encoding:     encoding,
		AssemblyText: fmt.Sprintf("SDIV %s, %s, %s", xd, xn, xm),
		Opcode:       ir.SDIV,
		DestReg:      int(rd),
		SrcReg1:      int(rn),
		SrcReg2:      int(rm),
	}, nil
}

// CreateMsub emits MSUB Xd, Xn, Xm, Xa (Xd = Xa - Xn*Xm).
func CreateMsub(xd, xn, xm, xa string) (ir.Instruction, error) {
	rd, err := reg5(xd)
	if err != nil {
		return ir.Instruction{}, err
	}
	rn, err := reg5(xn)
	if err != nil {
		return ir.Instruction{}, err
	}
	rm, err := reg5(xm)
	if err != nil {
		return ir.Instruction{}, err
	}
	ra, err := reg5(xa)
	if err != nil {
		return ir.Instruction{}, err
	}
	encoding := uint32(0x9B008000) | (rm << 16) | (ra << 10) | (rn << 5) | rd
	return ir.Instruction{
		Encoding:     encoding,
		AssemblyText: fmt.Sprintf("MSUB %s, %s, %s, %s", xd, xn, xm, xa),
		Opcode:       ir.MSUB,
		DestReg:      int(rd),
		SrcReg1:      int(rn),
		SrcReg2:      int(rm),
	}, nil
}

// CreateCmpReg emits CMP Xn, Xm (alias for SUBS XZR, Xn, Xm).
func CreateCmpReg(xn, xm string) (ir.Instruction, error) {
	rn, err := reg5(xn)
	if err != nil {
		return ir.Instruction{}, err
	}
	rm, err := reg5(xm)
	if err != nil {
		return ir.Instruction{}, err
	}
	encoding := uint32(0xEB000000) | (rm << 16) | (rn << 5) | RegSPOrZero
	return ir.Instruction{
		Encoding:     encoding,
		AssemblyText: fmt.Sprintf("CMP %s, %s", xn, xm),
		Opcode:       ir.CMP,
		DestReg:      RegSPOrZero,
		SrcReg1:      int(rn),
		SrcReg2:      int(rm),
	}, nil
}

// CreateCmpImm emits CMP Xn, #imm12.
func CreateCmpImm(xn string, imm12 uint32) (ir.Instruction, error) {
	if imm12 > 4095 {
		return ir.Instruction{}, fmt.Errorf("encoder: immediate %d exceeds 12-bit range", imm12)
	}
	rn, err := reg5(xn)
	if err != nil {
		return ir.Instruction{}, err
	}
	encoding := uint32(0xF1000000) | ((imm12 & 0xFFF) << 10) | (rn << 5) | RegSPOrZero
	return ir.Instruction{
		Encoding:      encoding,
		AssemblyText:  fmt.Sprintf("CMP %s, #%d", xn, imm12),
		Opcode:        ir.CMP,
		DestReg:       RegSPOrZero,
		SrcReg1:       int(rn),
		Immediate:     int64(imm12),
		UsesImmediate: true,
	}, nil
}

// CreateNeg emits NEG Xd, Xm (alias for SUB Xd, XZR, Xm).
func CreateNeg(xd, xm string) (ir.Instruction, error) {
	return CreateSubReg(xd, "xzr", xm)
}
