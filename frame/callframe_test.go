package frame

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nativecg/bcplarm64/ast"
)

func newTestManager(t *testing.T) *CallFrameManager {
	t.Helper()
	SetStackCanariesEnabled(false)
	return NewCallFrameManager("test_fn", false)
}

func TestAddLocalRejectsUnalignedSize(t *testing.T) {
	m := newTestManager(t)
	err := m.AddLocal("x", 3)
	assert.Error(t, err)
}

func TestAddLocalAfterPrologueFails(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.AddLocal("a", 8))
	_, err := m.GeneratePrologue()
	require.NoError(t, err)

	err = m.AddLocal("b", 8)
	assert.Error(t, err)
}

func TestGeneratePrologueOnlyOnce(t *testing.T) {
	m := newTestManager(t)
	_, err := m.GeneratePrologue()
	require.NoError(t, err)
	_, err = m.GeneratePrologue()
	assert.Error(t, err)
}

func TestFrameSizeIs16ByteAligned(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.AddLocal("a", 8))
	require.NoError(t, m.AddLocal("b", 8))
	require.NoError(t, m.AddLocal("c", 8))
	_, err := m.GeneratePrologue()
	require.NoError(t, err)
	assert.Equal(t, 0, m.FrameSize()%16)
}

func TestSpillOffsetsAreStableAndMonotonic(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.AddLocal("a", 8))
	require.NoError(t, m.ReserveRegistersBasedOnPressure(3))
	_, err := m.GeneratePrologue()
	require.NoError(t, err)

	first := m.GetSpillOffset("tmp0")
	second := m.GetSpillOffset("tmp1")
	again := m.GetSpillOffset("tmp0")
	assert.Equal(t, first, again)
	assert.NotEqual(t, first, second)
}

func TestSpillOffsetsDoNotCollideWithFrameAndCalleeSaved(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.AddLocal("a", 8))
	require.NoError(t, m.AddLocal("b", 8))
	require.NoError(t, m.ReserveRegistersBasedOnPressure(2))
	_, err := m.GeneratePrologue()
	require.NoError(t, err)

	calleeSavedEnd := m.currentLocalsOffset
	for _, reg := range m.calleeSavedRegisters {
		off, ok := m.variableOffsets[reg]
		require.True(t, ok)
		if end := off + 8; end > calleeSavedEnd {
			calleeSavedEnd = end
		}
	}

	spill := m.GetSpillOffset("tmp0")
	assert.NotEqual(t, 0, spill, "spill slot must not land on the saved old FP")
	assert.NotEqual(t, 8, spill, "spill slot must not land on the saved return address")
	assert.GreaterOrEqual(t, spill, calleeSavedEnd, "spill slot must come after the callee-saved save area")
}

func TestReserveRegistersBasedOnPressureCapsAtX28(t *testing.T) {
	m := newTestManager(t)
	err := m.ReserveRegistersBasedOnPressure(20)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(m.calleeSavedRegisters), 8)
}

func TestFloatVariableTagging(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.AddLocal("f", 8))
	m.SetVariableType("f", ast.FLOAT)
	assert.True(t, m.IsFloatVariable("f"))

	m.SetVariableType("f", ast.INTEGER)
	assert.False(t, m.IsFloatVariable("f"))
}

func TestMarkVariableAsFloatRequiresExistingLocal(t *testing.T) {
	m := newTestManager(t)
	m.MarkVariableAsFloat("nope")
	assert.False(t, m.IsFloatVariable("nope"))
}

func TestEpilogueBeforePrologueFails(t *testing.T) {
	m := newTestManager(t)
	_, err := m.GenerateEpilogue("Lfault")
	assert.Error(t, err)
}

func TestCanariesAddTwoSlotsToLayout(t *testing.T) {
	SetStackCanariesEnabled(true)
	defer SetStackCanariesEnabled(false)

	m := NewCallFrameManager("canary_fn", false)
	require.NoError(t, m.AddLocal("a", 8))
	off, err := m.GetOffset("a")
	require.NoError(t, err)
	assert.Equal(t, 32, off) // 16 (FP/LR) + 16 (two canaries)
}
