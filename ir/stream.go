package ir

// InstructionStream is an ordered sequence of Instructions with label
// insertion/replacement operations. It preserves indices across a rewrite:
// ReplaceInstructions swaps the whole backing slice atomically so that any
// label offsets recorded against it (see LabelOffset) stay resolvable by
// re-scanning rather than by patching stale indices in place.
type InstructionStream struct {
	instrs []Instruction
}

// NewInstructionStream returns an empty stream.
func NewInstructionStream() *InstructionStream {
	return &InstructionStream{}
}

// Append adds an instruction at the end of the stream.
func (s *InstructionStream) Append(instr Instruction) {
	s.instrs = append(s.instrs, instr)
}

// AppendAll adds a sequence of instructions in order.
func (s *InstructionStream) AppendAll(instrs []Instruction) {
	s.instrs = append(s.instrs, instrs...)
}

// DefineLabel appends a label-definition pseudo-instruction for name.
func (s *InstructionStream) DefineLabel(name string) {
	s.Append(Label(name))
}

// Instructions returns the live backing slice. Callers that mean to mutate
// the stream should use ReplaceInstructions rather than writing through this
// slice, so the stream's invariants stay obvious at call sites.
func (s *InstructionStream) Instructions() []Instruction {
	return s.instrs
}

// ReplaceInstructions swaps in a new instruction slice, e.g. after a
// peephole optimization pass.
func (s *InstructionStream) ReplaceInstructions(instrs []Instruction) {
	s.instrs = instrs
}

// Len returns the number of instructions (including label definitions and
// directives) currently in the stream.
func (s *InstructionStream) Len() int {
	return len(s.instrs)
}

// LabelOffset returns the index of name's label definition and whether it
// was found. Re-scans the stream, which stays correct across rewrites that
// shift instruction positions (the alternative — caching offsets — breaks
// the moment a peephole pass shrinks the stream ahead of the label).
func (s *InstructionStream) LabelOffset(name string) (int, bool) {
	for idx, instr := range s.instrs {
		if instr.IsLabelDefinition && instr.TargetLabel == name {
			return idx, true
		}
	}
	return 0, false
}
