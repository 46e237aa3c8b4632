package peephole

import (
	"github.com/nativecg/bcplarm64/encoder"
	"github.com/nativecg/bcplarm64/ir"
)

// builtinPatterns returns the fixed pattern table spec.md §4.5 enumerates.
// Order matters only in that earlier patterns get first refusal at a given
// position within one pass; later passes re-scan from the top regardless.
func builtinPatterns() []Pattern {
	return []Pattern{
		redundantMovePattern(),
		deadStorePattern(),
		redundantComparePattern(),
		constantRedefinitionPattern(),
		multiplyByPowerOfTwoPattern(),
		divideByPowerOfTwoPattern(),
		compareZeroBranchFusionPattern(),
		aluImmediateFusionPattern(),
		loadStoreForwardingPattern(),
		fmulFaddFusionPattern(),
		conditionalSelectSimplificationPattern(),
		bitfieldExtractPattern(),
		addressGenerationReorderPattern(),
		adrpFusionPattern(),
		movAluFusionPattern(),
		booleanCheckSimplificationPattern(),
	}
}

// movSource returns the register a MOV instruction reads from. The
// register-form encoder (ORR Xd, XZR, Xm) carries the source in SrcReg2;
// the SP-aware form (ADD Xd, Xn, #0) carries it in SrcReg1 instead.
func movSource(instr ir.Instruction) int {
	if instr.UsesImmediate {
		return instr.SrcReg1
	}
	return instr.SrcReg2
}

func isFlagProducer(op ir.OpType) bool {
	return op == ir.CMP || op == ir.SUBS || op == ir.FCMP
}

func isFlagConsumer(op ir.OpType) bool {
	switch op {
	case ir.B_COND, ir.CSEL, ir.CSET, ir.CSETM, ir.CSINV:
		return true
	default:
		return false
	}
}

// --- Redundant move: MOV Xd, Xd -> (nothing) ---

func redundantMovePattern() Pattern {
	return Pattern{
		Description: "redundant move",
		WindowSize:  1,
		Match: func(s []ir.Instruction, pos int) MatchResult {
			i := s[pos]
			if i.Opcode == ir.MOV && i.DestReg == movSource(i) {
				return MatchResult{Matched: true, Length: 1}
			}
			return MatchResult{}
		},
		Transform: func(s []ir.Instruction, pos int) []ir.Instruction {
			return nil
		},
	}
}

// --- Dead store: two adjacent stores to the same [base, #offset] ---

func deadStorePattern() Pattern {
	return Pattern{
		Description: "dead store",
		WindowSize:  2,
		Match: func(s []ir.Instruction, pos int) MatchResult {
			if pos+1 >= len(s) {
				return MatchResult{}
			}
			a, b := s[pos], s[pos+1]
			if !isStore(a.Opcode) || a.Opcode != b.Opcode {
				return MatchResult{}
			}
			if a.BaseReg == b.BaseReg && a.Immediate == b.Immediate {
				return MatchResult{Matched: true, Length: 2}
			}
			return MatchResult{}
		},
		Transform: func(s []ir.Instruction, pos int) []ir.Instruction {
			return []ir.Instruction{s[pos+1]}
		},
	}
}

func isStore(op ir.OpType) bool {
	return op == ir.STR || op == ir.STRB
}

// --- Redundant compare: CMP whose flags are never read before the next
// flag-producing instruction, a branch, or a label definition ---

const compareLookahead = 8

func redundantComparePattern() Pattern {
	return Pattern{
		Description: "redundant compare",
		WindowSize:  compareLookahead,
		Match: func(s []ir.Instruction, pos int) MatchResult {
			if s[pos].Opcode != ir.CMP {
				return MatchResult{}
			}
			for i := pos + 1; i < len(s) && i < pos+compareLookahead; i++ {
				n := s[i]
				if n.IsLabelDefinition || n.Opcode == ir.B || n.Opcode == ir.BL ||
					n.Opcode == ir.BR || n.Opcode == ir.BLR || n.Opcode == ir.RET {
					return MatchResult{} // control flow intervenes; be conservative
				}
				if isFlagConsumer(n.Opcode) {
					return MatchResult{} // flags are read
				}
				if isFlagProducer(n.Opcode) {
					return MatchResult{Matched: true, Length: 1} // flags overwritten unread
				}
			}
			return MatchResult{}
		},
		Transform: func(s []ir.Instruction, pos int) []ir.Instruction {
			return nil
		},
	}
}

// --- Constant redefinition: MOVZ Xd,#a immediately redefined by another
// full MOVZ Xd,#b before Xd is read — the first is dead. ---

func constantRedefinitionPattern() Pattern {
	return Pattern{
		Description: "constant folding (dead MOVZ redefinition)",
		WindowSize:  2,
		Match: func(s []ir.Instruction, pos int) MatchResult {
			if pos+1 >= len(s) {
				return MatchResult{}
			}
			a, b := s[pos], s[pos+1]
			if a.Opcode == ir.MOVZ && b.Opcode == ir.MOVZ &&
				a.ShiftAmount == 0 && b.ShiftAmount == 0 && a.DestReg == b.DestReg {
				return MatchResult{Matched: true, Length: 2}
			}
			return MatchResult{}
		},
		Transform: func(s []ir.Instruction, pos int) []ir.Instruction {
			return []ir.Instruction{s[pos+1]}
		},
	}
}

// --- Strength reduction: multiply/divide by a power of two ---

func powerOfTwoShift(v int64) (int, bool) {
	if v <= 0 {
		return 0, false
	}
	shift := 0
	for n := v; n > 1; n >>= 1 {
		if n&1 != 0 {
			return 0, false
		}
		shift++
	}
	return shift, true
}

func multiplyByPowerOfTwoPattern() Pattern {
	return Pattern{
		Description: "strength reduction (multiply by power of two)",
		WindowSize:  2,
		Match: func(s []ir.Instruction, pos int) MatchResult {
			if pos+1 >= len(s) {
				return MatchResult{}
			}
			movz, mul := s[pos], s[pos+1]
			if movz.Opcode != ir.MOVZ || mul.Opcode != ir.MUL {
				return MatchResult{}
			}
			if _, ok := powerOfTwoShift(movz.Immediate); !ok {
				return MatchResult{}
			}
			if mul.SrcReg2 != movz.DestReg {
				return MatchResult{}
			}
			if movz.DestReg == mul.DestReg || movz.DestReg == mul.SrcReg1 {
				return MatchResult{} // register-interference: Xt aliases Xd or Xn
			}
			return MatchResult{Matched: true, Length: 2}
		},
		Transform: func(s []ir.Instruction, pos int) []ir.Instruction {
			movz, mul := s[pos], s[pos+1]
			shift, _ := powerOfTwoShift(movz.Immediate)
			instr, err := encoder.CreateLslImm(xreg(mul.DestReg), xreg(mul.SrcReg1), uint32(shift))
			if err != nil {
				return s[pos : pos+2]
			}
			return []ir.Instruction{instr}
		},
	}
}

func divideByPowerOfTwoPattern() Pattern {
	return Pattern{
		Description: "strength reduction (divide by power of two)",
		WindowSize:  2,
		Match: func(s []ir.Instruction, pos int) MatchResult {
			if pos+1 >= len(s) {
				return MatchResult{}
			}
			movz, div := s[pos], s[pos+1]
			if movz.Opcode != ir.MOVZ || div.Opcode != ir.SDIV {
				return MatchResult{}
			}
			if _, ok := powerOfTwoShift(movz.Immediate); !ok {
				return MatchResult{}
			}
			if div.SrcReg2 != movz.DestReg {
				return MatchResult{}
			}
			if movz.DestReg == div.DestReg || movz.DestReg == div.SrcReg1 {
				return MatchResult{}
			}
			return MatchResult{Matched: true, Length: 2}
		},
		Transform: func(s []ir.Instruction, pos int) []ir.Instruction {
			movz, div := s[pos], s[pos+1]
			shift, _ := powerOfTwoShift(movz.Immediate)
			instr, err := encoder.CreateAsrImm(xreg(div.DestReg), xreg(div.SrcReg1), uint32(shift))
			if err != nil {
				return s[pos : pos+2]
			}
			return []ir.Instruction{instr}
		},
	}
}

// --- Compare-zero + branch fusion ---

func compareZeroBranchFusionPattern() Pattern {
	return Pattern{
		Description: "compare-zero + branch fusion",
		WindowSize:  2,
		Match: func(s []ir.Instruction, pos int) MatchResult {
			if pos+1 >= len(s) {
				return MatchResult{}
			}
			cmp, br := s[pos], s[pos+1]
			if cmp.Opcode != ir.CMP || !cmp.UsesImmediate || cmp.Immediate != 0 {
				return MatchResult{}
			}
			if br.Opcode != ir.B_COND {
				return MatchResult{}
			}
			if br.ConditionCode != ir.EQ && br.ConditionCode != ir.NE {
				return MatchResult{}
			}
			return MatchResult{Matched: true, Length: 2}
		},
		Transform: func(s []ir.Instruction, pos int) []ir.Instruction {
			cmp, br := s[pos], s[pos+1]
			var instr ir.Instruction
			var err error
			if br.ConditionCode == ir.EQ {
				instr, err = encoder.CreateCbz(xreg(cmp.SrcReg1), br.TargetLabel)
			} else {
				instr, err = encoder.CreateCbnz(xreg(cmp.SrcReg1), br.TargetLabel)
			}
			if err != nil {
				return s[pos : pos+2]
			}
			return []ir.Instruction{instr}
		},
	}
}

// --- ALU-immediate fusion: ADD Xd,Xn,#a ; ADD Xd,Xd,#b -> ADD Xd,Xn,#(a+b) ---

func aluImmediateFusionPattern() Pattern {
	return Pattern{
		Description: "ALU-immediate fusion",
		WindowSize:  2,
		Match: func(s []ir.Instruction, pos int) MatchResult {
			if pos+1 >= len(s) {
				return MatchResult{}
			}
			first, second := s[pos], s[pos+1]
			if first.Opcode != ir.ADD || second.Opcode != ir.ADD {
				return MatchResult{}
			}
			if !first.UsesImmediate || !second.UsesImmediate {
				return MatchResult{}
			}
			if second.SrcReg1 != first.DestReg || second.DestReg != first.DestReg {
				return MatchResult{}
			}
			sum := first.Immediate + second.Immediate
			if sum < 0 || sum > 4095 {
				return MatchResult{}
			}
			return MatchResult{Matched: true, Length: 2}
		},
		Transform: func(s []ir.Instruction, pos int) []ir.Instruction {
			first, second := s[pos], s[pos+1]
			instr, err := encoder.CreateAddImm(xreg(first.DestReg), xreg(first.SrcReg1), uint32(first.Immediate+second.Immediate))
			if err != nil {
				return s[pos : pos+2]
			}
			return []ir.Instruction{instr}
		},
	}
}

// --- Load/store forwarding ---

const loadStoreLookahead = 5

func loadStoreForwardingPattern() Pattern {
	return Pattern{
		Description: "load/store forwarding",
		WindowSize:  loadStoreLookahead + 1,
		Match: func(s []ir.Instruction, pos int) MatchResult {
			store := s[pos]
			if store.Opcode != ir.STR {
				return MatchResult{}
			}
			for i := pos + 1; i < len(s) && i <= pos+loadStoreLookahead; i++ {
				n := s[i]
				if n.IsLabelDefinition {
					return MatchResult{}
				}
				if n.Opcode == ir.LDR && n.BaseReg == store.BaseReg && n.Immediate == store.Immediate {
					return MatchResult{Matched: true, Length: i - pos + 1}
				}
				// Conflict: a store to the same address, or a redefinition
				// of the forwarded source register, invalidates forwarding.
				if n.Opcode == ir.STR && n.BaseReg == store.BaseReg && n.Immediate == store.Immediate {
					return MatchResult{}
				}
				if n.DestReg == store.DestReg && n.Opcode != ir.LDR {
					return MatchResult{}
				}
			}
			return MatchResult{}
		},
		Transform: func(s []ir.Instruction, pos int) []ir.Instruction {
			store := s[pos]
			length := 0
			for i := pos + 1; i < len(s) && i <= pos+loadStoreLookahead; i++ {
				if s[i].Opcode == ir.LDR && s[i].BaseReg == store.BaseReg && s[i].Immediate == store.Immediate {
					length = i - pos + 1
					break
				}
			}
			if length == 0 {
				return []ir.Instruction{store}
			}
			load := s[pos+length-1]
			mov, err := encoder.CreateMovReg(xreg(load.DestReg), xreg(store.DestReg))
			out := make([]ir.Instruction, 0, length)
			out = append(out, store)
			out = append(out, s[pos+1:pos+length-1]...)
			if err != nil {
				out = append(out, load)
				return out
			}
			out = append(out, mov)
			return out
		},
	}
}

// --- FMUL + FADD/FSUB fusion ---

func fmulFaddFusionPattern() Pattern {
	return Pattern{
		Description: "FMUL+FADD/FSUB fusion",
		WindowSize:  2,
		Match: func(s []ir.Instruction, pos int) MatchResult {
			if pos+1 >= len(s) {
				return MatchResult{}
			}
			mul, addsub := s[pos], s[pos+1]
			if mul.Opcode != ir.FMUL {
				return MatchResult{}
			}
			if addsub.Opcode != ir.FADD && addsub.Opcode != ir.FSUB {
				return MatchResult{}
			}
			if addsub.SrcReg1 != mul.DestReg || addsub.DestReg != mul.DestReg {
				return MatchResult{}
			}
			return MatchResult{Matched: true, Length: 2}
		},
		Transform: func(s []ir.Instruction, pos int) []ir.Instruction {
			mul, addsub := s[pos], s[pos+1]
			var instr ir.Instruction
			var err error
			if addsub.Opcode == ir.FADD {
				instr, err = encoder.CreateFmadd(dreg(mul.DestReg), dreg(mul.SrcReg1), dreg(mul.SrcReg2), dreg(addsub.SrcReg2))
			} else {
				instr, err = encoder.CreateFmsub(dreg(mul.DestReg), dreg(mul.SrcReg1), dreg(mul.SrcReg2), dreg(addsub.SrcReg2))
			}
			if err != nil {
				return s[pos : pos+2]
			}
			return []ir.Instruction{instr}
		},
	}
}

// --- Conditional select simplification ---

func conditionalSelectSimplificationPattern() Pattern {
	return Pattern{
		Description: "conditional select simplification",
		WindowSize:  1,
		Match: func(s []ir.Instruction, pos int) MatchResult {
			i := s[pos]
			if i.Opcode != ir.CSEL {
				return MatchResult{}
			}
			if i.SrcReg2 == 31 || i.SrcReg1 == i.SrcReg2 {
				return MatchResult{Matched: true, Length: 1}
			}
			return MatchResult{}
		},
		Transform: func(s []ir.Instruction, pos int) []ir.Instruction {
			i := s[pos]
			if i.SrcReg1 == i.SrcReg2 {
				instr, err := encoder.CreateMovReg(xreg(i.DestReg), xreg(i.SrcReg1))
				if err != nil {
					return s[pos : pos+1]
				}
				return []ir.Instruction{instr}
			}
			instr, err := encoder.CreateCsinv(xreg(i.DestReg), xreg(i.SrcReg1), "XZR", i.ConditionCode.Invert())
			if err != nil {
				return s[pos : pos+1]
			}
			return []ir.Instruction{instr}
		},
	}
}

// --- Bitfield extract: LSR/ASR + AND-all-ones -> UBFX/SBFX ---

func bitfieldExtractPattern() Pattern {
	return Pattern{
		Description: "bitfield extract",
		WindowSize:  2,
		Match: func(s []ir.Instruction, pos int) MatchResult {
			if pos+1 >= len(s) {
				return MatchResult{}
			}
			shift, and := s[pos], s[pos+1]
			if shift.Opcode != ir.LSR && shift.Opcode != ir.ASR {
				return MatchResult{}
			}
			if and.Opcode != ir.AND || !and.UsesImmediate {
				return MatchResult{}
			}
			if and.SrcReg1 != shift.DestReg || and.DestReg != shift.DestReg {
				return MatchResult{}
			}
			if !isContiguousOnesFromZero(and.Immediate) {
				return MatchResult{}
			}
			return MatchResult{Matched: true, Length: 2}
		},
		Transform: func(s []ir.Instruction, pos int) []ir.Instruction {
			shift, and := s[pos], s[pos+1]
			width := maskWidth(and.Immediate)
			var instr ir.Instruction
			var err error
			if shift.Opcode == ir.LSR {
				instr, err = encoder.CreateUbfx(xreg(and.DestReg), xreg(shift.SrcReg1), uint32(shift.ShiftAmount), uint32(width))
			} else {
				instr, err = encoder.CreateSbfx(xreg(and.DestReg), xreg(shift.SrcReg1), uint32(shift.ShiftAmount), uint32(width))
			}
			if err != nil {
				return s[pos : pos+2]
			}
			return []ir.Instruction{instr}
		},
	}
}

func isContiguousOnesFromZero(v int64) bool {
	if v <= 0 {
		return false
	}
	return v&(v+1) == 0
}

func maskWidth(v int64) int {
	w := 0
	for v > 0 {
		w++
		v >>= 1
	}
	return w
}

// --- Address generation reordering ---

func addressGenerationReorderPattern() Pattern {
	return Pattern{
		Description: "address generation reorder",
		WindowSize:  2,
		Match: func(s []ir.Instruction, pos int) MatchResult {
			if pos+1 >= len(s) {
				return MatchResult{}
			}
			addImm, addReg := s[pos], s[pos+1]
			if addImm.Opcode != ir.ADD || !addImm.UsesImmediate {
				return MatchResult{}
			}
			if addReg.Opcode != ir.ADD || addReg.UsesImmediate {
				return MatchResult{}
			}
			if addReg.SrcReg1 != addImm.DestReg || addReg.DestReg != addImm.DestReg {
				return MatchResult{}
			}
			return MatchResult{Matched: true, Length: 2}
		},
		Transform: func(s []ir.Instruction, pos int) []ir.Instruction {
			addImm, addReg := s[pos], s[pos+1]
			first, err1 := encoder.CreateAddReg(xreg(addImm.DestReg), xreg(addImm.SrcReg1), xreg(addReg.SrcReg2))
			second, err2 := encoder.CreateAddImm(xreg(addImm.DestReg), xreg(addImm.DestReg), uint32(addImm.Immediate))
			if err1 != nil || err2 != nil {
				return s[pos : pos+2]
			}
			return []ir.Instruction{first, second}
		},
	}
}

// --- ADRP fusion ---

func adrpFusionPattern() Pattern {
	return Pattern{
		Description: "ADRP fusion",
		WindowSize:  2,
		Match: func(s []ir.Instruction, pos int) MatchResult {
			if pos+1 >= len(s) {
				return MatchResult{}
			}
			adrp, add := s[pos], s[pos+1]
			if adrp.Opcode != ir.ADRP || add.Opcode != ir.ADD {
				return MatchResult{}
			}
			if add.Relocation != ir.RelocAddImmLo12 {
				return MatchResult{}
			}
			if adrp.DestReg != add.DestReg || add.SrcReg1 != adrp.DestReg {
				return MatchResult{}
			}
			if adrp.TargetLabel != add.TargetLabel {
				return MatchResult{}
			}
			return MatchResult{Matched: true, Length: 2}
		},
		Transform: func(s []ir.Instruction, pos int) []ir.Instruction {
			adrp := s[pos]
			instr, err := encoder.CreateAdr(xreg(adrp.DestReg), adrp.TargetLabel)
			if err != nil {
				return s[pos : pos+2]
			}
			return []ir.Instruction{instr}
		},
	}
}

// --- MOV+ALU fusion ---

const movAluDeadScanLimit = 24

func movAluFusionPattern() Pattern {
	return Pattern{
		Description: "MOV+ALU fusion",
		WindowSize:  2,
		Match: func(s []ir.Instruction, pos int) MatchResult {
			if pos+1 >= len(s) {
				return MatchResult{}
			}
			movz, op := s[pos], s[pos+1]
			if movz.Opcode != ir.MOVZ || movz.ShiftAmount != 0 {
				return MatchResult{}
			}
			if op.SrcReg2 != movz.DestReg {
				return MatchResult{}
			}
			if !isFusableAluOp(op.Opcode) {
				return MatchResult{}
			}
			if !encoder.CanEncodeAsImmediate(op.Opcode, movz.Immediate) {
				return MatchResult{}
			}
			if !isDeadAfter(s, pos+2, movz.DestReg) {
				return MatchResult{}
			}
			return MatchResult{Matched: true, Length: 2}
		},
		Transform: func(s []ir.Instruction, pos int) []ir.Instruction {
			movz, op := s[pos], s[pos+1]
			instr, err := fuseAluImmediate(op.Opcode, xreg(op.DestReg), xreg(op.SrcReg1), uint32(movz.Immediate))
			if err != nil {
				return s[pos : pos+2]
			}
			return []ir.Instruction{instr}
		},
	}
}

func isFusableAluOp(op ir.OpType) bool {
	switch op {
	case ir.ADD, ir.SUB, ir.CMP, ir.AND, ir.ORR, ir.EOR:
		return true
	default:
		return false
	}
}

func fuseAluImmediate(op ir.OpType, xd, xn string, imm uint32) (ir.Instruction, error) {
	switch op {
	case ir.ADD:
		return encoder.CreateAddImm(xd, xn, imm)
	case ir.SUB:
		return encoder.CreateSubImm(xd, xn, imm)
	case ir.CMP:
		return encoder.CreateCmpImm(xn, imm)
	case ir.AND:
		return encoder.CreateAndImm(xd, xn, uint64(imm))
	case ir.ORR:
		return encoder.CreateOrrImm(xd, xn, uint64(imm))
	case ir.EOR:
		return encoder.CreateEorImm(xd, xn, uint64(imm))
	default:
		return encoder.CreateAddImm(xd, xn, imm)
	}
}

// isDeadAfter walks forward from start looking for a use of reg before any
// redefinition; returns true (dead) if a redefinition or the scan bound is
// hit first without an intervening use, false if reg is read first.
func isDeadAfter(s []ir.Instruction, start, reg int) bool {
	for i := start; i < len(s) && i < start+movAluDeadScanLimit; i++ {
		n := s[i]
		if n.IsLabelDefinition {
			return false // control-flow join; conservatively assume live
		}
		reads := n.SrcReg1 == reg || n.SrcReg2 == reg || n.BaseReg == reg
		writes := n.DestReg == reg && !reads
		if reads {
			return false
		}
		if writes {
			return true
		}
	}
	return true
}

// --- Boolean-check simplification ---

func booleanCheckSimplificationPattern() Pattern {
	return Pattern{
		Description: "boolean-check simplification",
		WindowSize:  4,
		Match: func(s []ir.Instruction, pos int) MatchResult {
			if pos+3 >= len(s) {
				return MatchResult{}
			}
			cmp, cset, cmpZero, br := s[pos], s[pos+1], s[pos+2], s[pos+3]
			if cmp.Opcode != ir.CMP || cset.Opcode != ir.CSET {
				return MatchResult{}
			}
			if cmpZero.Opcode != ir.CMP || !cmpZero.UsesImmediate || cmpZero.Immediate != 0 {
				return MatchResult{}
			}
			if cmpZero.SrcReg1 != cset.DestReg {
				return MatchResult{}
			}
			if br.Opcode != ir.B_COND {
				return MatchResult{}
			}
			if br.ConditionCode != ir.EQ && br.ConditionCode != ir.NE {
				return MatchResult{}
			}
			return MatchResult{Matched: true, Length: 4}
		},
		Transform: func(s []ir.Instruction, pos int) []ir.Instruction {
			cmp, cset, _, br := s[pos], s[pos+1], s[pos+2], s[pos+3]
			cond := cset.ConditionCode
			if br.ConditionCode == ir.EQ {
				cond = cond.Invert()
			}
			newBr := encoder.CreateBCond(cond, br.TargetLabel)
			return []ir.Instruction{cmp, newBr}
		},
	}
}
