package encoder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nativecg/bcplarm64/ir"
)

func TestGetRegEncoding(t *testing.T) {
	cases := map[string]uint32{
		"x0": 0, "X0": 0, "w1": 1, "d2": 2,
		"xzr": 31, "wzr": 31, "sp": 31, "wsp": 31,
		"X30": 30,
	}
	for name, want := range cases {
		got, err := GetRegEncoding(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}
}

func TestGetRegEncodingErrors(t *testing.T) {
	_, err := GetRegEncoding("")
	assert.Error(t, err)

	_, err = GetRegEncoding("q0")
	assert.Error(t, err)

	_, err = GetRegEncoding("x32")
	assert.Error(t, err)
}

func TestCreateAddReg(t *testing.T) {
	instr, err := CreateAddReg("x0", "x1", "x2")
	require.NoError(t, err)
	assert.Equal(t, uint32(0x8B020020), instr.Encoding)
	assert.Equal(t, ir.ADD, instr.Opcode)
	assert.Equal(t, 0, instr.DestReg)
	assert.Equal(t, 1, instr.SrcReg1)
	assert.Equal(t, 2, instr.SrcReg2)
}

func TestCreateMovzMovkAbs64Zero(t *testing.T) {
	instrs, err := CreateMovzMovkAbs64("x0", 0, "")
	require.NoError(t, err)
	require.Len(t, instrs, 1)
	assert.Equal(t, ir.MOVZ, instrs[0].Opcode)
	assert.Equal(t, ir.RelocMovzMovkImm0, instrs[0].Relocation)
}

func TestCreateMovzMovkAbs64FourChunks(t *testing.T) {
	instrs, err := CreateMovzMovkAbs64("x0", 0xDEADBEEFCAFEBABE, "")
	require.NoError(t, err)
	require.Len(t, instrs, 4)
	assert.Equal(t, ir.MOVZ, instrs[0].Opcode)
	assert.Equal(t, int64(0xBABE), instrs[0].Immediate)
	assert.Equal(t, ir.MOVK, instrs[1].Opcode)
	assert.Equal(t, int64(0xCAFE), instrs[1].Immediate)
	assert.Equal(t, int64(0xBEEF), instrs[2].Immediate)
	assert.Equal(t, int64(0xDEAD), instrs[3].Immediate)
}

func TestCreateMovzMovkAbs64SkipsZeroChunks(t *testing.T) {
	instrs, err := CreateMovzMovkAbs64("x0", 0x0000000100000000, "")
	require.NoError(t, err)
	// Low chunk always MOVZ (even though zero), chunk 2 is the only
	// nonzero MOVK; chunks 1 and 3 are zero and dropped.
	require.Len(t, instrs, 2)
	assert.Equal(t, ir.MOVZ, instrs[0].Opcode)
	assert.Equal(t, int64(0), instrs[0].Immediate)
	assert.Equal(t, ir.MOVK, instrs[1].Opcode)
	assert.Equal(t, 32, instrs[1].ShiftAmount)
}

func TestCreateMovzMovkAbs64WithSymbolForcesAllChunks(t *testing.T) {
	instrs, err := CreateMovzMovkAbs64("x0", 0, "_main")
	require.NoError(t, err)
	require.Len(t, instrs, 4)
	for _, instr := range instrs {
		assert.Equal(t, "_main", instr.TargetLabel)
	}
}

func TestCanEncodeAsImmediateAddSub(t *testing.T) {
	assert.True(t, CanEncodeAsImmediate(ir.ADD, 4095))
	assert.False(t, CanEncodeAsImmediate(ir.ADD, 4096))
	assert.True(t, CanEncodeAsImmediate(ir.ADD, 4095<<12))
	assert.False(t, CanEncodeAsImmediate(ir.ADD, -1))
}

func TestCanEncodeAsImmediateLogical(t *testing.T) {
	assert.True(t, CanEncodeAsImmediate(ir.AND, 0xFF))
	assert.True(t, CanEncodeAsImmediate(ir.ORR, 1))
	assert.False(t, CanEncodeAsImmediate(ir.AND, 0))
	assert.False(t, CanEncodeAsImmediate(ir.EOR, 0x5))
}

func TestCreateAndImmEncodesBitmaskOperand(t *testing.T) {
	instr, err := CreateAndImm("x0", "x1", 0xFF)
	require.NoError(t, err)
	assert.Equal(t, ir.AND, instr.Opcode)
	assert.Equal(t, 0, instr.DestReg)
	assert.Equal(t, 1, instr.SrcReg1)
	assert.Equal(t, int64(0xFF), instr.Immediate)
	assert.True(t, instr.UsesImmediate)
	// sf=1, opc=00 (AND), bits 28:23 = 100100 are fixed regardless of the
	// N:immr:imms operand bits.
	assert.Equal(t, uint32(0x92000000), instr.Encoding&0xFF800000)
}

func TestCreateOrrImmAndCreateEorImmUseDistinctOpcBits(t *testing.T) {
	orr, err := CreateOrrImm("x0", "x1", 1)
	require.NoError(t, err)
	assert.Equal(t, ir.ORR, orr.Opcode)
	assert.Equal(t, uint32(0xB2000000), orr.Encoding&0xFF800000)

	eor, err := CreateEorImm("x0", "x1", 1)
	require.NoError(t, err)
	assert.Equal(t, ir.EOR, eor.Opcode)
	assert.Equal(t, uint32(0xD2000000), eor.Encoding&0xFF800000)
}

func TestCreateAndImmRejectsNonEncodableValue(t *testing.T) {
	_, err := CreateAndImm("x0", "x1", 0)
	assert.Error(t, err)
	_, err = CreateEorImm("x0", "x1", 0x5)
	assert.Error(t, err)
}

func TestConditionBranch(t *testing.T) {
	instr := CreateBCond(ir.EQ, "Lloop")
	assert.Equal(t, ir.B_COND, instr.Opcode)
	assert.Equal(t, "Lloop", instr.TargetLabel)
	assert.Equal(t, ir.EQ, instr.ConditionCode)
}

func TestLdrOffsetForms(t *testing.T) {
	zero, err := CreateLdr("x0", "x1", 0)
	require.NoError(t, err)
	assert.Equal(t, ir.LDR, zero.Opcode)

	scaled, err := CreateLdr("x0", "x1", 16)
	require.NoError(t, err)
	assert.Equal(t, int64(16), scaled.Immediate)

	unscaled, err := CreateLdr("x0", "x1", -8)
	require.NoError(t, err)
	assert.Equal(t, int64(-8), unscaled.Immediate)

	_, err = CreateLdr("x0", "x1", 300)
	assert.Error(t, err)
}
