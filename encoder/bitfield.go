package encoder

import (
	"fmt"

	"github.com/nativecg/bcplarm64/ir"
)

// CreateLslReg emits LSLV Xd, Xn, Xm (variable-amount logical shift left).
func CreateLslReg(xd, xn, xm string) (ir.Instruction, error) {
	return shiftReg(0x9AC02000, ir.LSL, xd, xn, xm, "LSL")
}

// CreateAsrReg emits ASRV Xd, Xn, Xm (variable-amount arithmetic shift right).
func CreateAsrReg(xd, xn, xm string) (ir.Instruction, error) {
	return shiftReg(0x9AC02800, ir.ASR, xd, xn, xm, "ASR")
}

func shiftReg(base uint32, op ir.OpType, xd, xn, xm, mnemonic string) (ir.Instruction, error) {
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
		Encoding: encoding, AssemblyText: fmt.Sprintf("%s %s, %s, %s", mnemonic, xd, xn, xm),
		Opcode: op, DestReg: int(rd), SrcReg1: int(rn), SrcReg2: int(rm),
	}, nil
}

// CreateLslImm emits LSL Xd, Xn, #shift (an alias for UBFM).
func CreateLslImm(xd, xn string, shift uint32) (ir.Instruction, error) {
	if shift == 0 || shift > 63 {
		return ir.Instruction{}, fmt.Errorf("encoder: LSL shift %d out of range [1, 63]", shift)
	}
	rd, err := reg5(xd)
	if err != nil {
		return ir.Instruction{}, err
	}
	rn, err := reg5(xn)
	if err != nil {
		return ir.Instruction{}, err
	}
	immr := (64 - shift) & 0x3F
	imms := (63 - shift) & 0x3F
	encoding := uint32(0xD3400000) | (immr << 16) | (imms << 10) | (rn << 5) | rd
	return ir.Instruction{
		Encoding: encoding, AssemblyText: fmt.Sprintf("LSL %s, %s, #%d", xd, xn, shift),
		Opcode: ir.LSL, DestReg: int(rd), SrcReg1: int(rn),
		Immediate: int64(shift), UsesImmediate: true, ShiftType: ir.ShiftLSL, ShiftAmount: int(shift),
	}, nil
}

// CreateAsrImm emits ASR Xd, Xn, #shift (an alias for SBFM Xd, Xn, #shift, #63).
func CreateAsrImm(xd, xn string, shift uint32) (ir.Instruction, error) {
	if shift == 0 || shift > 63 {
		return ir.Instruction{}, fmt.Errorf("encoder: ASR shift %d out of range [1, 63]", shift)
	}
	rd, err := reg5(xd)
	if err != nil {
		return ir.Instruction{}, err
	}
	rn, err := reg5(xn)
	if err != nil {
		return ir.Instruction{}, err
	}
	encoding := uint32(0x9340FC00) | (shift << 16) | (rn << 5) | rd
	return ir.Instruction{
		Encoding: encoding, AssemblyText: fmt.Sprintf("ASR %s, %s, #%d", xd, xn, shift),
		Opcode: ir.ASR, DestReg: int(rd), SrcReg1: int(rn),
		Immediate: int64(shift), UsesImmediate: true, ShiftType: ir.ShiftASR, ShiftAmount: int(shift),
	}, nil
}

// CreateUbfx emits UBFX Xd, Xn, #lsb, #width (unsigned bitfield extract).
func CreateUbfx(xd, xn string, lsb, width uint32) (ir.Instruction, error) {
	return bitfieldExtract(0xD3400000, ir.UBFX, xd, xn, lsb, width, "UBFX")
}

// CreateSbfx emits SBFX Xd, Xn, #lsb, #width (signed bitfield extract).
func CreateSbfx(xd, xn string, lsb, width uint32) (ir.Instruction, error) {
	return bitfieldExtract(0x93400000, ir.SBFX, xd, xn, lsb, width, "SBFX")
}

func bitfieldExtract(base uint32, op ir.OpType, xd, xn string, lsb, width uint32, mnemonic string) (ir.Instruction, error) {
	if width == 0 || lsb+width > 64 {
		return ir.Instruction{}, fmt.Errorf("encoder: invalid bitfield lsb=%d width=%d", lsb, width)
	}
	rd, err := reg5(xd)
	if err != nil {
		return ir.Instruction{}, err
	}
	rn, err := reg5(xn)
	if err != nil {
		return ir.Instruction{}, err
	}
	immr := lsb & 0x3F
	imms := (lsb + width - 1) & 0x3F
	encoding := base | (immr << 16) | (imms << 10) | (rn << 5) | rd
	return ir.Instruction{
		Encoding: encoding, AssemblyText: fmt.Sprintf("%s %s, %s, #%d, #%d", mnemonic, xd, xn, lsb, width),
		Opcode: op, DestReg: int(rd), SrcReg1: int(rn),
		Immediate: int64(lsb), UsesImmediate: true, ShiftAmount: int(width),
	}, nil
}

// CreateCsel emits CSEL Xd, Xn, Xm, cond (Xd = cond ? Xn : Xm).
func CreateCsel(xd, xn, xm string, cond ir.Condition) (ir.Instruction, error) {
	return conditionalSelect(0x9A800000, ir.CSEL, xd, xn, xm, cond, "CSEL")
}

// CreateCsinv emits CSINV Xd, Xn, Xm, cond (Xd = cond ? Xn : ~Xm).
func CreateCsinv(xd, xn, xm string, cond ir.Condition) (ir.Instruction, error) {
	return conditionalSelect(0xDA800000, ir.CSINV, xd, xn, xm, cond, "CSINV")
}

func conditionalSelect(base uint32, op ir.OpType, xd, xn, xm string, cond ir.Condition, mnemonic string) (ir.Instruction, error) {
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
	encoding := base | (rm << 16) | (uint32(cond) << 12) | (rn << 5) | rd
	return ir.Instruction{
		Encoding: encoding, AssemblyText: fmt.Sprintf("%s %s, %s, %s, %s", mnemonic, xd, xn, xm, cond),
		Opcode: op, DestReg: int(rd), SrcReg1: int(rn), SrcReg2: int(rm), ConditionCode: cond,
	}, nil
}

// CreateCset emits CSET Xd, cond (an alias for CSINC Xd, XZR, XZR, !cond).
func CreateCset(xd string, cond ir.Condition) (ir.Instruction, error) {
	rd, err := reg5(xd)
	if err != nil {
		return ir.Instruction{}, err
	}
	inv := uint32(cond.Invert())
	encoding := uint32(0x9A9F07E0) | (inv << 12) | rd
	return ir.Instruction{
		Encoding: encoding, AssemblyText: fmt.Sprintf("CSET %s, %s", xd, cond),
		Opcode: ir.CSET, DestReg: int(rd), ConditionCode: cond,
	}, nil
}
