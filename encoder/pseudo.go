package encoder

import (
	"fmt"

	"github.com/nativecg/bcplarm64/ir"
)

// CreateNop emits NOP.
func CreateNop() ir.Instruction {
	return ir.Instruction{Encoding: 0xD503201F, AssemblyText: "NOP", Opcode: ir.NOP}
}

// CreateBrk emits BRK #0 (breakpoint trap, used for unreachable-code
// markers and assertion failures).
func CreateBrk() ir.Instruction {
	return ir.Instruction{Encoding: 0xD4200000, AssemblyText: "BRK #0", Opcode: ir.BRK}
}

// CreateDirective builds a data directive holding a raw 64-bit value
// (`.quad`), optionally annotated with a target label comment for
// readability in listings. The low 32 bits of dataValue double as the
// placeholder Encoding field so a listing dump still shows something
// meaningful; directives are never matched by the peephole optimizer
// regardless of their Encoding.
func CreateDirective(dataValue uint64, targetLabel string, isData bool) ir.Instruction {
	text := fmt.Sprintf(".quad 0x%x", dataValue)
	if targetLabel != "" {
		text += fmt.Sprintf(" ; %s", targetLabel)
	}
	return ir.Instruction{
		Encoding:      uint32(dataValue),
		AssemblyText:  text,
		Opcode:        ir.DIRECTIVE,
		TargetLabel:   targetLabel,
		IsDataValue:   isData,
		Relocation:    ir.RelocNone,
	}
}
