package ir

// RegSPOrZero is the encoding shared by SP and XZR/WZR (context-dependent,
// per the AArch64 ISA: register field 31 means SP in most addressing
// contexts and the zero register everywhere else).
const RegSPOrZero = 31

// Instruction is the central record produced by the encoder and consumed by
// the optimizer/assembler. For every non-directive instruction the semantic
// fields (Opcode, register numbers, Immediate, ...) and the Encoding +
// AssemblyText agree — decoding Encoding must reproduce the same semantic
// fields the constructor was given. The peephole optimizer reads only the
// semantic fields below; AssemblyText is pretty-printer output and is never
// parsed for a correctness decision.
type Instruction struct {
	Encoding     uint32
	AssemblyText string

	Opcode OpType

	DestReg int
	SrcReg1 int
	SrcReg2 int
	BaseReg int

	Immediate     int64
	UsesImmediate bool

	ShiftType   ShiftType
	ShiftAmount int

	ConditionCode Condition

	TargetLabel string
	Relocation  RelocationType

	IsDataValue       bool
	IsLabelDefinition bool
	JITAttribute      JITAttribute
}

// Comment builds a "// <assembly>" trailer the way listing output renders
// it; AssemblyText itself never carries the comment marker.
func (i Instruction) Comment() string {
	return "// " + i.AssemblyText
}

// IsNoop reports whether this instruction was synthesized as a commented
// placeholder (e.g. a spill of a clean register) rather than real code.
func (i Instruction) IsNoop() bool {
	return i.Encoding == 0 && (i.Opcode == UNKNOWN || i.Opcode == NOP)
}

// Label creates a label-definition pseudo-instruction. Label definitions
// carry no encoding of their own; InstructionStream tracks their position
// so later passes can resolve branch targets, and the peephole optimizer
// refuses to remove them (wouldBreakLabelReferences).
func Label(name string) Instruction {
	return Instruction{
		AssemblyText:      name + ":",
		Opcode:            UNKNOWN,
		TargetLabel:       name,
		IsLabelDefinition: true,
	}
}
