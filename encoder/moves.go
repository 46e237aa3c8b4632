package encoder

import (
	"fmt"
	"strings"

	"github.com/nativecg/bcplarm64/ir"
)

// movzMovkReloc maps a chunk shift (0/16/32/48) to its relocation tag.
var movzMovkReloc = map[int]ir.RelocationType{
	0:  ir.RelocMovzMovkImm0,
	16: ir.RelocMovzMovkImm16,
	32: ir.RelocMovzMovkImm32,
	48: ir.RelocMovzMovkImm48,
}

// CreateMovzImm emits MOVZ Xd, #imm16, LSL #shift, tagged with the
// relocation a linker/JIT would need to patch this chunk for a symbol.
func CreateMovzImm(xd string, imm16 uint16, shift int, symbol string) (ir.Instruction, error) {
	return movWide(0xD2800000, ir.MOVZ, xd, imm16, shift, symbol, "MOVZ")
}

// CreateMovkImm emits MOVK Xd, #imm16, LSL #shift.
func CreateMovkImm(xd string, imm16 uint16, shift int, symbol string) (ir.Instruction, error) {
	return movWide(0xF2800000, ir.MOVK, xd, imm16, shift, symbol, "MOVK")
}

// CreateMovnImm emits MOVN Xd, #imm16, LSL #shift (move-wide-with-NOT).
func CreateMovnImm(xd string, imm16 uint16, shift int) (ir.Instruction, error) {
	return movWide(0x92800000, ir.MOV, xd, imm16, shift, "", "MOVN")
}

func movWide(base uint32, op ir.OpType, xd string, imm16 uint16, shift int, symbol, mnemonic string) (ir.Instruction, error) {
	if shift != 0 && shift != 16 && shift != 32 && shift != 48 {
		return ir.Instruction{}, fmt.Errorf("encoder: invalid move-wide shift %d", shift)
	}
	rd, err := reg5(xd)
	if err != nil {
		return ir.Instruction{}, err
	}
	hw := uint32(shift / 16)
	encoding := base | (hw << 21) | (uint32(imm16) << 5) | rd

	text := fmt.Sprintf("%s %s, #0x%x", mnemonic, xd, imm16)
	if shift != 0 {
		text += fmt.Sprintf(", LSL #%d", shift)
	}

	reloc := ir.RelocNone
	if mnemonic != "MOVN" {
		reloc = movzMovkReloc[shift]
	}

	return ir.Instruction{
		Encoding:      encoding,
		AssemblyText:  text,
		Opcode:        op,
		DestReg:       int(rd),
		Immediate:     int64(imm16),
		UsesImmediate: true,
		ShiftType:     ir.ShiftLSL,
		ShiftAmount:   shift,
		TargetLabel:   symbol,
		Relocation:    reloc,
	}, nil
}

// CreateMovzMovkAbs64 builds the instruction sequence that loads a full
// 64-bit value into xd. The first instruction is always MOVZ — even when
// the low chunk is zero, so the upper 48 bits are reliably zeroed — and is
// always emitted; the remaining three MOVKs are emitted only for non-zero
// chunks, or unconditionally when symbol is non-empty since every chunk may
// need patching once the symbol's address is known.
func CreateMovzMovkAbs64(xd string, address uint64, symbol string) ([]ir.Instruction, error) {
	chunks := [4]uint16{
		uint16(address),
		uint16(address >> 16),
		uint16(address >> 32),
		uint16(address >> 48),
	}

	first, err := CreateMovzImm(xd, chunks[0], 0, symbol)
	if err != nil {
		return nil, err
	}
	instrs := []ir.Instruction{first}

	for i := 1; i < 4; i++ {
		if chunks[i] == 0 && symbol == "" {
			continue
		}
		instr, err := CreateMovkImm(xd, chunks[i], i*16, symbol)
		if err != nil {
			return nil, err
		}
		instrs = append(instrs, instr)
	}
	return instrs, nil
}

// CreateMovReg emits MOV Xd, Xm. SP can only appear as an ADD/SUB operand,
// never ORR, so any move touching SP becomes ADD Xd, Xn, #0 instead.
func CreateMovReg(xd, xm string) (ir.Instruction, error) {
	if isSP(xd) || isSP(xm) {
		instr, err := CreateAddImm(xd, xm, 0)
		if err != nil {
			return ir.Instruction{}, err
		}
		instr.Opcode = ir.MOV
		instr.AssemblyText = fmt.Sprintf("MOV %s, %s", xd, xm)
		return instr, nil
	}
	instr, err := CreateOrrReg(xd, "xzr", xm)
	if err != nil {
		return ir.Instruction{}, err
	}
	instr.Opcode = ir.MOV
	instr.AssemblyText = fmt.Sprintf("MOV %s, %s", xd, xm)
	return instr, nil
}

func isSP(name string) bool {
	return strings.EqualFold(name, "sp") || strings.EqualFold(name, "wsp")
}

// CreateFmovReg emits FMOV Dd, Dn, or the general-register forms
// FMOV Dd, Xn and FMOV Xd, Dn when one operand is an X register.
func CreateFmovReg(dd, dn string) (ir.Instruction, error) {
	rd, err := reg5(dd)
	if err != nil {
		return ir.Instruction{}, err
	}
	rn, err := reg5(dn)
	if err != nil {
		return ir.Instruction{}, err
	}
	base := uint32(0x1E604000) // FMOV Dd, Dn
	if strings.HasPrefix(strings.ToLower(dn), "x") {
		base = 0x9E670000 // FMOV Dd, Xn
	} else if strings.HasPrefix(strings.ToLower(dd), "x") {
		base = 0x9E660000 // FMOV Xd, Dn
	}
	encoding := base | (rn << 5) | rd
	return ir.Instruction{
		Encoding:     encoding,
		AssemblyText: fmt.Sprintf("FMOV %s, %s", dd, dn),
		Opcode:       ir.FMOV,
		DestReg:      int(rd),
		SrcReg1:      int(rn),
	}, nil
}
