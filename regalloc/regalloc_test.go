package regalloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFrame struct {
	offsets map[string]int
	next    int
}

func newFakeFrame() *fakeFrame {
	return &fakeFrame{offsets: map[string]int{}}
}

func (f *fakeFrame) GetSpillOffset(name string) int {
	if off, ok := f.offsets[name]; ok {
		return off
	}
	off := f.next
	f.offsets[name] = off
	f.next += 8
	return off
}

func TestAcquireVariableRegRebindsSameName(t *testing.T) {
	m := NewRegisterManager(newFakeFrame())
	r1, _, err := m.AcquireVariableReg("a", false)
	require.NoError(t, err)
	r2, _, err := m.AcquireVariableReg("a", false)
	require.NoError(t, err)
	assert.Equal(t, r1, r2)
}

func TestAcquireVariableRegEvictsLRU(t *testing.T) {
	m := NewRegisterManager(newFakeFrame())
	names := []string{"a", "b", "c", "d", "e", "f", "g"}
	for _, n := range names {
		_, _, err := m.AcquireVariableReg(n, false)
		require.NoError(t, err)
	}
	// Pool (7 regs) is now full; acquiring an 8th variable evicts "a".
	reg, _, err := m.AcquireVariableReg("h", false)
	require.NoError(t, err)
	assert.Contains(t, VariableRegs, reg)
	assert.False(t, m.IsVariableSpilled("h"))
}

func TestAcquireVariableRegMarksCleanVictimAsSpilled(t *testing.T) {
	m := NewRegisterManager(newFakeFrame())
	names := []string{"a", "b", "c", "d", "e", "f", "g"}
	for _, n := range names {
		_, _, err := m.AcquireVariableReg(n, false)
		require.NoError(t, err)
	}
	// "a" is never dirtied (never stored through), only read.
	_, _, err := m.AcquireVariableReg("h", false)
	require.NoError(t, err)
	assert.True(t, m.IsVariableSpilled("a"), "a clean eviction victim must still be marked spilled")
}

func TestAcquireVariableRegReacquireAfterCleanEvictionReloads(t *testing.T) {
	m := NewRegisterManager(newFakeFrame())
	names := []string{"a", "b", "c", "d", "e", "f", "g"}
	for _, n := range names {
		_, _, err := m.AcquireVariableReg(n, false)
		require.NoError(t, err)
	}
	_, _, err := m.AcquireVariableReg("h", false) // evicts "a"
	require.NoError(t, err)
	require.True(t, m.IsVariableSpilled("a"))

	_, spillCode, err := m.AcquireVariableReg("a", false)
	require.NoError(t, err)
	assert.NotEmpty(t, spillCode, "reacquiring an evicted variable must reload it")
	assert.False(t, m.IsVariableSpilled("a"), "reloading clears the spilled flag")
}

func TestAcquireVariableRegSecondEvictionPicksTrueLRU(t *testing.T) {
	m := NewRegisterManager(newFakeFrame())
	names := []string{"a", "b", "c", "d", "e", "f", "g"}
	for _, n := range names {
		_, _, err := m.AcquireVariableReg(n, false)
		require.NoError(t, err)
	}
	_, _, err := m.AcquireVariableReg("h", false) // evicts "a"
	require.NoError(t, err)
	_, _, err = m.AcquireVariableReg("i", false) // must evict "b", not the stale "a" slot
	require.NoError(t, err)

	assert.True(t, m.IsVariableSpilled("b"), "second eviction must pick the true LRU victim (b)")
	assert.False(t, m.IsVariableSpilled("h"), "the just-bound variable must not be re-evicted")
}

func TestReservedRegisterStartsInUseDataBase(t *testing.T) {
	m := NewRegisterManager(newFakeFrame())
	assert.Equal(t, InUseDataBase, m.bindings[ReservedRegs[0]].Status)
}

func TestReleaseRegisterDoesNotSpill(t *testing.T) {
	m := NewRegisterManager(newFakeFrame())
	reg, _, err := m.AcquireVariableReg("a", false)
	require.NoError(t, err)
	m.MarkDirty(reg)
	m.ReleaseRegister(reg)
	assert.False(t, m.IsVariableSpilled("a"))
	assert.Equal(t, Free, m.bindings[reg].Status)
}

func TestGenerateSpillCodeSkipsCleanRegister(t *testing.T) {
	m := NewRegisterManager(newFakeFrame())
	reg, _, err := m.AcquireVariableReg("a", false)
	require.NoError(t, err)
	instr, err := m.GenerateSpillCode(reg, "a")
	require.NoError(t, err)
	assert.Contains(t, instr.AssemblyText, "skipping spill")
}

func TestIsScratchAndFPRegisterPredicates(t *testing.T) {
	m := NewRegisterManager(newFakeFrame())
	assert.True(t, m.IsScratchRegister("X9"))
	assert.False(t, m.IsScratchRegister("X21"))
	assert.True(t, m.IsFPRegister("D8"))
	assert.True(t, m.IsFPRegister("D0"))
	assert.False(t, m.IsFPRegister("X9"))
}

func TestResetRestoresReservedBinding(t *testing.T) {
	m := NewRegisterManager(newFakeFrame())
	_, _, err := m.AcquireVariableReg("a", false)
	require.NoError(t, err)
	m.Reset()
	assert.Equal(t, InUseDataBase, m.bindings[ReservedRegs[0]].Status)
	assert.Empty(t, m.variableToReg)
}
