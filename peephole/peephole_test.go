package peephole

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nativecg/bcplarm64/encoder"
	"github.com/nativecg/bcplarm64/ir"
)

func runOnce(t *testing.T, instrs []ir.Instruction) []ir.Instruction {
	t.Helper()
	stream := ir.NewInstructionStream()
	stream.AppendAll(instrs)
	opt := NewPeepholeOptimizer(1, false)
	opt.Optimize(stream)
	return stream.Instructions()
}

func TestRedundantMoveIsDropped(t *testing.T) {
	mov, err := encoder.CreateMovReg("X9", "X9")
	require.NoError(t, err)
	out := runOnce(t, []ir.Instruction{mov})
	assert.Empty(t, out)
}

func TestDeadStoreKeepsOnlySecond(t *testing.T) {
	s1, err := encoder.CreateStr("X0", "X29", 16)
	require.NoError(t, err)
	s2, err := encoder.CreateStr("X1", "X29", 16)
	require.NoError(t, err)
	out := runOnce(t, []ir.Instruction{s1, s2})
	require.Len(t, out, 1)
	assert.Equal(t, s2.Encoding, out[0].Encoding)
}

func TestCompareZeroBranchFusesToCbz(t *testing.T) {
	cmp, err := encoder.CreateCmpImm("X9", 0)
	require.NoError(t, err)
	br := encoder.CreateBCond(ir.EQ, "Lskip")
	out := runOnce(t, []ir.Instruction{cmp, br})
	require.Len(t, out, 1)
	assert.Equal(t, ir.CBZ, out[0].Opcode)
	assert.Equal(t, "Lskip", out[0].TargetLabel)
}

func TestCompareZeroBranchNotFusedForOtherConditions(t *testing.T) {
	cmp, err := encoder.CreateCmpImm("X9", 0)
	require.NoError(t, err)
	br := encoder.CreateBCond(ir.LT, "Lskip")
	out := runOnce(t, []ir.Instruction{cmp, br})
	require.Len(t, out, 2)
	assert.Equal(t, ir.CMP, out[0].Opcode)
}

func TestAluImmediateFusion(t *testing.T) {
	first, err := encoder.CreateAddImm("X9", "X10", 4)
	require.NoError(t, err)
	second, err := encoder.CreateAddImm("X9", "X9", 8)
	require.NoError(t, err)
	out := runOnce(t, []ir.Instruction{first, second})
	require.Len(t, out, 1)
	assert.Equal(t, int64(12), out[0].Immediate)
}

func TestMovAluFusionCoversLogicalOps(t *testing.T) {
	for _, tc := range []struct {
		name string
		op   ir.OpType
		make func(xd, xn, xm string) (ir.Instruction, error)
	}{
		{"AND", ir.AND, encoder.CreateAndReg},
		{"ORR", ir.ORR, encoder.CreateOrrReg},
		{"EOR", ir.EOR, encoder.CreateEorReg},
	} {
		t.Run(tc.name, func(t *testing.T) {
			movz, err := encoder.CreateMovzImm("X10", 0xFF, 0, "")
			require.NoError(t, err)
			op, err := tc.make("X9", "X11", "X10")
			require.NoError(t, err)
			ret := encoder.CreateRet()
			out := runOnce(t, []ir.Instruction{movz, op, ret})
			require.Len(t, out, 2)
			assert.Equal(t, tc.op, out[0].Opcode)
			assert.Equal(t, int64(0xFF), out[0].Immediate)
		})
	}
}

func TestMultiplyByPowerOfTwoBecomesLsl(t *testing.T) {
	movz, err := encoder.CreateMovzImm("X10", 8, 0, "")
	require.NoError(t, err)
	mul, err := encoder.CreateMul("X9", "X11", "X10")
	require.NoError(t, err)
	out := runOnce(t, []ir.Instruction{movz, mul})
	require.Len(t, out, 1)
	assert.Equal(t, ir.LSL, out[0].Opcode)
}

func TestMultiplyByPowerOfTwoSkipsOnInterference(t *testing.T) {
	movz, err := encoder.CreateMovzImm("X9", 8, 0, "")
	require.NoError(t, err)
	mul, err := encoder.CreateMul("X9", "X11", "X9")
	require.NoError(t, err)
	out := runOnce(t, []ir.Instruction{movz, mul})
	require.Len(t, out, 2)
}

func TestConditionalSelectWithZeroBecomesCsinv(t *testing.T) {
	csel, err := encoder.CreateCsel("X9", "X10", "XZR", ir.GT)
	require.NoError(t, err)
	out := runOnce(t, []ir.Instruction{csel})
	require.Len(t, out, 1)
	assert.Equal(t, ir.CSINV, out[0].Opcode)
}

func TestConditionalSelectSameOperandsBecomesMov(t *testing.T) {
	csel, err := encoder.CreateCsel("X9", "X10", "X10", ir.GT)
	require.NoError(t, err)
	out := runOnce(t, []ir.Instruction{csel})
	require.Len(t, out, 1)
	assert.Equal(t, ir.MOV, out[0].Opcode)
}

func TestBitfieldExtractFromLsrAnd(t *testing.T) {
	lsr := ir.Instruction{Opcode: ir.LSR, DestReg: 9, SrcReg1: 10, ShiftAmount: 4}
	and := ir.Instruction{Opcode: ir.AND, DestReg: 9, SrcReg1: 9, Immediate: 0xFF, UsesImmediate: true}
	out := runOnce(t, []ir.Instruction{lsr, and})
	require.Len(t, out, 1)
	assert.Equal(t, ir.UBFX, out[0].Opcode)
}

func TestSpecialInstructionsAreNeverTouched(t *testing.T) {
	ret := encoder.CreateRet()
	out := runOnce(t, []ir.Instruction{ret})
	require.Len(t, out, 1)
	assert.Equal(t, ir.RET, out[0].Opcode)
}

func TestWouldBreakLabelReferencesBlocksDeadStoreAcrossLabel(t *testing.T) {
	s1, err := encoder.CreateStr("X0", "X29", 16)
	require.NoError(t, err)
	label := ir.Label("Lmid")
	s2, err := encoder.CreateStr("X1", "X29", 16)
	require.NoError(t, err)

	stream := ir.NewInstructionStream()
	stream.AppendAll([]ir.Instruction{s1, label, s2})
	opt := NewPeepholeOptimizer(1, false)
	opt.Optimize(stream)
	assert.Len(t, stream.Instructions(), 3)
}

func TestOptimizeConvergesWithinMaxPasses(t *testing.T) {
	mov, err := encoder.CreateMovReg("X9", "X9")
	require.NoError(t, err)
	stream := ir.NewInstructionStream()
	stream.Append(mov)
	opt := NewPeepholeOptimizer(5, false)
	passes := opt.Optimize(stream)
	assert.LessOrEqual(t, passes, 5)
	assert.Empty(t, stream.Instructions())
}
