package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstructionStreamLabelOffset(t *testing.T) {
	s := NewInstructionStream()
	s.Append(Instruction{Opcode: NOP, AssemblyText: "NOP"})
	s.DefineLabel("Lloop")
	s.Append(Instruction{Opcode: ADD, AssemblyText: "ADD X0, X0, X1"})

	off, ok := s.LabelOffset("Lloop")
	require.True(t, ok)
	assert.Equal(t, 1, off)

	_, ok = s.LabelOffset("Lnope")
	assert.False(t, ok)
}

func TestInstructionStreamReplacePreservesLabelLookup(t *testing.T) {
	s := NewInstructionStream()
	s.Append(Instruction{Opcode: MOV, AssemblyText: "MOV X0, X0"})
	s.DefineLabel("Lend")

	// Simulate a peephole pass dropping the redundant MOV.
	kept := s.Instructions()[1:]
	s.ReplaceInstructions(kept)

	off, ok := s.LabelOffset("Lend")
	require.True(t, ok)
	assert.Equal(t, 0, off)
	assert.Equal(t, 1, s.Len())
}

func TestConditionInvert(t *testing.T) {
	cases := []struct {
		in, want Condition
	}{
		{EQ, NE}, {NE, EQ}, {LT, GE}, {GE, LT}, {GT, LE}, {LE, GT},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, c.in.Invert())
	}
}

func TestRenderListing(t *testing.T) {
	s := NewInstructionStream()
	s.DefineLabel("Lfunc")
	s.Append(Instruction{Opcode: ADD, AssemblyText: "ADD X0, X1, X2", Encoding: 0x8B020020})
	out, err := RenderListing(s)
	require.NoError(t, err)
	assert.Contains(t, out, "Lfunc:")
	assert.Contains(t, out, "0x8b020020")
	assert.Contains(t, out, "ADD X0, X1, X2")
}
