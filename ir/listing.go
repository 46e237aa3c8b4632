package ir

import (
	"fmt"
	"strings"

	"github.com/klauspost/asmfmt"
)

// RenderListing renders a stream as a Go-plan9-style assembly listing: one
// `WORD $0x...  // <mnemonic>` line per real instruction, and a bare label
// line for label definitions — the same shape goat's arm64Line.String()
// produces for its disassembled-and-reassembled output, reused here for
// debug dumps (--trace-peephole) and JIT-adjacent tooling that wants a
// Go-asm-compatible text form of the stream rather than raw bytes.
//
// Directives are rendered as their own AssemblyText verbatim (it already
// carries the ".quad 0x..." form); everything else becomes a WORD literal
// with the semantic assembly text as a trailing comment so the listing
// stays human-readable without being parsed back for correctness anywhere.
func RenderListing(s *InstructionStream) (string, error) {
	var b strings.Builder
	for _, instr := range s.Instructions() {
		switch {
		case instr.IsLabelDefinition:
			fmt.Fprintf(&b, "%s:\n", instr.TargetLabel)
		case instr.Opcode == DIRECTIVE:
			fmt.Fprintf(&b, "\t%s\n", instr.AssemblyText)
		default:
			fmt.Fprintf(&b, "\tWORD $0x%08x\t%s\n", instr.Encoding, instr.Comment())
		}
	}

	formatted, err := asmfmt.Format(strings.NewReader(b.String()))
	if err != nil {
		// asmfmt is a pretty-printer only; fall back to the unformatted
		// listing rather than losing the dump entirely.
		return b.String(), fmt.Errorf("ir: formatting listing: %w", err)
	}
	return string(formatted), nil
}
