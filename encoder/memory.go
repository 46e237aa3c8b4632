package encoder

import (
	"fmt"

	"github.com/nativecg/bcplarm64/ir"
)

// CreateLdr emits a 64-bit load into xt from [xn, #offset], choosing the
// unsigned-scaled form when offset is a non-negative multiple of 8 within
// range and the unscaled LDUR form for small signed offsets.
func CreateLdr(xt, xn string, offset int) (ir.Instruction, error) {
	return loadStore(xt, xn, offset, 0xF9400000, 0xF8400000, ir.LDR, "LDR")
}

// CreateStr emits a 64-bit store of xt to [xn, #offset].
func CreateStr(xt, xn string, offset int) (ir.Instruction, error) {
	return loadStore(xt, xn, offset, 0xF9000000, 0xF8000000, ir.STR, "STR")
}

// CreateLdrb emits LDRB (zero-extending byte load) Wt, [Xn, #offset].
func CreateLdrb(xt, xn string, offset int) (ir.Instruction, error) {
	return loadStoreByte(xt, xn, offset, 0x39400000, 0x38400000, ir.LDRB, "LDRB")
}

// CreateStrb emits STRB Wt, [Xn, #offset].
func CreateStrb(xt, xn string, offset int) (ir.Instruction, error) {
	return loadStoreByte(xt, xn, offset, 0x39000000, 0x38000000, ir.STRB, "STRB")
}

func loadStore(xt, xn string, offset int, scaledBase, unscaledBase uint32, op ir.OpType, mnemonic string) (ir.Instruction, error) {
	rt, err := reg5(xt)
	if err != nil {
		return ir.Instruction{}, err
	}
	rn, err := reg5(xn)
	if err != nil {
		return ir.Instruction{}, err
	}

	switch {
	case offset == 0:
		encoding := scaledBase | (rn << 5) | rt
		return ir.Instruction{
			Encoding: encoding, AssemblyText: fmt.Sprintf("%s %s, [%s]", mnemonic, xt, xn),
			Opcode: op, DestReg: int(rt), BaseReg: int(rn),
		}, nil
	case offset > 0 && offset%8 == 0 && offset/8 < 4096:
		uimm := uint32(offset / 8)
		encoding := scaledBase | (uimm << 10) | (rn << 5) | rt
		return ir.Instruction{
			Encoding: encoding, AssemblyText: fmt.Sprintf("%s %s, [%s, #%d]", mnemonic, xt, xn, offset),
			Opcode: op, DestReg: int(rt), BaseReg: int(rn), Immediate: int64(offset), UsesImmediate: true,
		}, nil
	case offset >= -256 && offset <= 255:
		simm9 := uint32(offset) & 0x1FF
		encoding := unscaledBase | (simm9 << 12) | (rn << 5) | rt
		return ir.Instruction{
			Encoding: encoding, AssemblyText: fmt.Sprintf("%s %s, [%s, #%d]", mnemonic, xt, xn, offset),
			Opcode: op, DestReg: int(rt), BaseReg: int(rn), Immediate: int64(offset), UsesImmediate: true,
		}, nil
	default:
		// An offset this far out of range cannot be expressed by a single
		// LDR/STR encoding; CallFrameManager keeps every local, spill, and
		// callee-saved offset well inside this bound (§5), so reaching here
		// means a frame layout bug upstream rather than a case to paper
		// over with a synthesized multi-instruction sequence.
		return ir.Instruction{}, fmt.Errorf("encoder: offset %d out of range for %s [%s, #offset]", offset, mnemonic, xn)
	}
}

func loadStoreByte(xt, xn string, offset int, scaledBase, unscaledBase uint32, op ir.OpType, mnemonic string) (ir.Instruction, error) {
	rt, err := reg5(xt)
	if err != nil {
		return ir.Instruction{}, err
	}
	rn, err := reg5(xn)
	if err != nil {
		return ir.Instruction{}, err
	}

	switch {
	case offset >= 0 && offset < 4096:
		encoding := scaledBase | ((uint32(offset) & 0xFFF) << 10) | (rn << 5) | rt
		return ir.Instruction{
			Encoding: encoding, AssemblyText: fmt.Sprintf("%s %s, [%s, #%d]", mnemonic, xt, xn, offset),
			Opcode: op, DestReg: int(rt), BaseReg: int(rn), Immediate: int64(offset), UsesImmediate: true,
		}, nil
	case offset >= -256 && offset <= 255:
		simm9 := uint32(offset) & 0x1FF
		encoding := unscaledBase | (simm9 << 12) | (rn << 5) | rt
		return ir.Instruction{
			Encoding: encoding, AssemblyText: fmt.Sprintf("%s %s, [%s, #%d]", mnemonic, xt, xn, offset),
			Opcode: op, DestReg: int(rt), BaseReg: int(rn), Immediate: int64(offset), UsesImmediate: true,
		}, nil
	default:
		return ir.Instruction{}, fmt.Errorf("encoder: offset %d out of range for %s [%s, #offset]", offset, mnemonic, xn)
	}
}

// CreateStp emits STP Xt1, Xt2, [Xn, #offset]! (pre-index), used by
// CallFrameManager's prologue to push FP/LR and allocate the frame in one
// instruction.
func CreateStp(xt1, xt2, xn string, offset int) (ir.Instruction, error) {
	rt1, err := reg5(xt1)
	if err != nil {
		return ir.Instruction{}, err
	}
	rt2, err := reg5(xt2)
	if err != nil {
		return ir.Instruction{}, err
	}
	rn, err := reg5(xn)
	if err != nil {
		return ir.Instruction{}, err
	}
	imm7 := uint32(offset/8) & 0x7F
	encoding := uint32(0xA9800000) | (imm7 << 15) | (rt2 << 10) | (rn << 5) | rt1
	return ir.Instruction{
		Encoding:     encoding,
		AssemblyText: fmt.Sprintf("STP %s, %s, [%s, #%d]!", xt1, xt2, xn, offset),
		Opcode:       ir.STP,
		DestReg:      int(rt1), SrcReg1: int(rt2), BaseReg: int(rn),
		Immediate: int64(offset), UsesImmediate: true,
	}, nil
}

// CreateLdp emits LDP Xt1, Xt2, [Xn], #offset (post-index), used by the
// epilogue to restore FP/LR and deallocate the frame.
func CreateLdp(xt1, xt2, xn string, offset int) (ir.Instruction, error) {
	rt1, err := reg5(xt1)
	if err != nil {
		return ir.Instruction{}, err
	}
	rt2, err := reg5(xt2)
	if err != nil {
		return ir.Instruction{}, err
	}
	rn, err := reg5(xn)
	if err != nil {
		return ir.Instruction{}, err
	}
	imm7 := uint32(offset/8) & 0x7F
	encoding := uint32(0xA8C00000) | (imm7 << 15) | (rt2 << 10) | (rn << 5) | rt1
	return ir.Instruction{
		Encoding:     encoding,
		AssemblyText: fmt.Sprintf("LDP %s, %s, [%s], #%d", xt1, xt2, xn, offset),
		Opcode:       ir.LDP,
		DestReg:      int(rt1), SrcReg1: int(rt2), BaseReg: int(rn),
		Immediate: int64(offset), UsesImmediate: true,
	}, nil
}
