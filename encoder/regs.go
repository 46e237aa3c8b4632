// Package encoder builds ir.Instruction records with bit-exact AArch64
// encodings. Every constructor keeps its semantic fields — opcode, register
// numbers, immediate, condition — in lockstep with the emitted encoding and
// assembly text, per the Instruction invariant the rest of the pipeline
// relies on: the peephole optimizer reads only semantic fields, never
// assembly_text, to decide whether a rewrite applies.
package encoder

import (
	"fmt"
	"strconv"
	"strings"
)

// RegSPOrZero is the shared 5-bit encoding for SP, WSP, XZR and WZR — which
// one it means is entirely a function of instruction context.
const RegSPOrZero = 31

// GetRegEncoding parses a register name (case-insensitive) into its 5-bit
// hardware encoding. "w"/"x" prefixes address integer registers 0-30; "d"
// addresses float registers 0-31; "sp", "wsp", "xzr" and "wzr" all map to 31.
func GetRegEncoding(name string) (uint32, error) {
	if name == "" {
		return 0, fmt.Errorf("encoder: empty register name")
	}
	lower := strings.ToLower(name)

	switch lower {
	case "wzr", "xzr", "wsp", "sp":
		return RegSPOrZero, nil
	}

	prefix := lower[0]
	if prefix != 'w' && prefix != 'x' && prefix != 'd' {
		return 0, fmt.Errorf("encoder: invalid register prefix in %q, must be 'w', 'x', or 'd'", name)
	}

	n, err := strconv.ParseUint(lower[1:], 10, 32)
	if err != nil {
		return 0, fmt.Errorf("encoder: invalid register format %q: %w", name, err)
	}
	if n > 31 {
		return 0, fmt.Errorf("encoder: register number %d out of range [0, 31] in %q", n, name)
	}
	if prefix != 'd' && n > 30 {
		return 0, fmt.Errorf("encoder: register number %d out of range [0, 30] in %q", n, name)
	}
	return uint32(n), nil
}

// MustReg parses name and panics on error. Reserved for call sites that
// already validated the name (e.g. pool constants, not user input).
func MustReg(name string) uint32 {
	r, err := GetRegEncoding(name)
	if err != nil {
		panic(err)
	}
	return r
}
