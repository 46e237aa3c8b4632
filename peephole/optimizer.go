// Package peephole rewrites a finished instruction stream in place, folding
// and eliminating redundant AArch64 sequences the encoder and register
// allocator emit one instruction at a time without seeing their neighbors.
// Grounded on spec.md §4.5's pattern-table driver, itself modeled on
// original_source's PeepholeOptimizer.
package peephole

import (
	"fmt"

	"github.com/samber/lo"

	"github.com/nativecg/bcplarm64/ir"
)

// DefaultMaxPasses bounds how many full passes Optimize runs before giving
// up on reaching a fixed point, per spec.md §4.5.
const DefaultMaxPasses = 5

// MatchResult is a pattern's verdict on the window starting at a position:
// Length is the number of instructions actually consumed, which may be
// less than the pattern's WindowSize for variable-length lookahead
// patterns (load/store forwarding, MOV+ALU fusion).
type MatchResult struct {
	Matched bool
	Length  int
}

// Pattern is one rewrite rule in the optimizer's table.
type Pattern struct {
	Description string
	WindowSize  int
	Match       func(stream []ir.Instruction, pos int) MatchResult
	Transform   func(stream []ir.Instruction, pos int) []ir.Instruction
}

// PeepholeOptimizer drives repeated passes of the pattern table over an
// InstructionStream until no pattern applies or MaxPasses is reached.
type PeepholeOptimizer struct {
	Patterns  []Pattern
	MaxPasses int
	Debug     bool
}

// NewPeepholeOptimizer returns an optimizer preloaded with every built-in
// pattern (see patterns.go), bounded to maxPasses (DefaultMaxPasses if <=0).
func NewPeepholeOptimizer(maxPasses int, debug bool) *PeepholeOptimizer {
	if maxPasses <= 0 {
		maxPasses = DefaultMaxPasses
	}
	return &PeepholeOptimizer{Patterns: builtinPatterns(), MaxPasses: maxPasses, Debug: debug}
}

func (o *PeepholeOptimizer) tracef(format string, args ...any) {
	if o.Debug {
		fmt.Printf("peephole: "+format+"\n", args...)
	}
}

// Optimize runs passes over stream until a fixed point or MaxPasses is
// reached, and returns the number of passes actually performed. Only the
// instruction at a window's start is checked against isSpecialInstruction:
// a variable-length pattern such as load/store forwarding can scan past a
// BL that lies inside its window.
func (o *PeepholeOptimizer) Optimize(stream *ir.InstructionStream) int {
	passes := 0
	for passes < o.MaxPasses {
		changed := o.applyOptimizationPass(stream)
		passes++
		if !changed {
			break
		}
	}
	o.tracef("converged after %d pass(es)", passes)
	return passes
}

// applyOptimizationPass performs a single left-to-right scan, applying the
// first matching pattern at each position and restarting at the same
// position after a rewrite (so cascading rewrites at one site are caught
// within the same pass), per spec.md's driver algorithm.
func (o *PeepholeOptimizer) applyOptimizationPass(stream *ir.InstructionStream) bool {
	instrs := append([]ir.Instruction{}, stream.Instructions()...)
	changedAny := false

	pos := 0
	for pos < len(instrs) {
		if isSpecialInstruction(instrs[pos]) {
			pos++
			continue
		}

		applied := false
		for _, pattern := range o.Patterns {
			result := pattern.Match(instrs, pos)
			if !result.Matched {
				continue
			}
			if wouldBreakLabelReferences(instrs, pos, result.Length) {
				continue
			}
			replacement := pattern.Transform(instrs, pos)
			o.tracef("%s at %d (%d -> %d instructions)", pattern.Description, pos, result.Length, len(replacement))

			rebuilt := make([]ir.Instruction, 0, len(instrs)-result.Length+len(replacement))
			rebuilt = append(rebuilt, instrs[:pos]...)
			rebuilt = append(rebuilt, replacement...)
			rebuilt = append(rebuilt, instrs[pos+result.Length:]...)
			instrs = rebuilt
			changedAny = true
			applied = true
			break
		}
		if !applied {
			pos++
		}
	}

	stream.ReplaceInstructions(instrs)
	return changedAny
}

// isSpecialInstruction reports whether instr must never be touched by a
// rewrite: labels, data directives, and the instruction kinds spec.md §4.5
// calls out by name (SVC/BRK/DMB/ISB/DSB/MSR/MRS/RET/BL/NOP/UDF), plus any
// instruction carrying a JIT attribute.
func isSpecialInstruction(instr ir.Instruction) bool {
	if instr.IsLabelDefinition || instr.IsDataValue || instr.Opcode == ir.DIRECTIVE {
		return true
	}
	if instr.JITAttribute != ir.JITNone {
		return true
	}
	return lo.Contains([]ir.OpType{
		ir.SVC, ir.BRK, ir.DMB, ir.ISB, ir.DSB, ir.MSR, ir.MRS,
		ir.RET, ir.BL, ir.NOP, ir.UDF,
	}, instr.Opcode)
}

// wouldBreakLabelReferences forbids a rewrite that would shrink a window
// containing a label definition: collapsing such a window could silently
// delete the only record of a branch target's position.
func wouldBreakLabelReferences(instrs []ir.Instruction, pos, length int) bool {
	end := pos + length
	if end > len(instrs) {
		end = len(instrs)
	}
	for i := pos + 1; i < end; i++ {
		if instrs[i].IsLabelDefinition {
			return true
		}
	}
	return false
}
