package peephole

import "fmt"

// xreg renders an integer register index as its 64-bit assembly name, the
// form every encoder.Create* constructor in this package's transforms
// expects. Index 31 is XZR in every ALU/move context a pattern below
// touches; none of these patterns reference SP.
func xreg(n int) string {
	if n == 31 {
		return "XZR"
	}
	return fmt.Sprintf("X%d", n)
}

// dreg renders a float register index as its assembly name.
func dreg(n int) string {
	return fmt.Sprintf("D%d", n)
}
