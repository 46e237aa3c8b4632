// Package regalloc binds BCPL variables to physical AArch64 registers: a
// partitioned-pool, LRU-eviction allocator in the style of original_source's
// RegisterManager, restructured from a process-wide singleton into an
// explicit per-compilation context object so nothing leaks state between
// concurrent or sequential compile runs.
package regalloc

import (
	"fmt"

	"github.com/samber/lo"

	"github.com/nativecg/bcplarm64/encoder"
	"github.com/nativecg/bcplarm64/frame"
	"github.com/nativecg/bcplarm64/ir"
)

// RegisterManager maps program variables and temporaries to physical
// registers for a single function compilation. Call Reset between
// functions rather than constructing a fresh manager, so the caller-held
// FrameSlotAllocator reference stays valid.
type RegisterManager struct {
	cfm frame.FrameSlotAllocator

	bindings         map[string]*RegisterBinding
	variableToReg    map[string]string
	lruOrder         []string // least-recently-used first
	fpVariableToReg  map[string]string
	fpLruOrder       []string
	spilledVariables map[string]bool
}

// NewRegisterManager returns a manager whose spill slots are allocated
// through cfm.
func NewRegisterManager(cfm frame.FrameSlotAllocator) *RegisterManager {
	m := &RegisterManager{cfm: cfm}
	m.initializeRegisters()
	return m
}

func (m *RegisterManager) initializeRegisters() {
	m.bindings = map[string]*RegisterBinding{}
	m.variableToReg = map[string]string{}
	m.lruOrder = nil
	m.fpVariableToReg = map[string]string{}
	m.fpLruOrder = nil
	m.spilledVariables = map[string]bool{}

	for _, reg := range VariableRegs {
		m.bindings[reg] = &RegisterBinding{Status: Free}
	}
	for _, reg := range ScratchRegs {
		m.bindings[reg] = &RegisterBinding{Status: Free}
	}
	for _, reg := range ReservedRegs {
		m.bindings[reg] = &RegisterBinding{Status: InUseDataBase, VariableName: "data_base"}
	}
	for _, reg := range FPVariableRegs {
		m.bindings[reg] = &RegisterBinding{Status: Free}
	}
	for _, reg := range FPScratchRegs {
		m.bindings[reg] = &RegisterBinding{Status: Free}
	}
}

// Reset clears all bindings, re-marking the reserved data-base register.
// Must be called between functions.
func (m *RegisterManager) Reset() {
	m.initializeRegisters()
}

func (m *RegisterManager) bumpLRU(order []string, reg string) []string {
	filtered := lo.Filter(order, func(r string, _ int) bool { return r != reg })
	return append(filtered, reg)
}

// AcquireVariableReg binds name to a register from the integer or float
// variable pool (chosen by isFloat), returning the already-bound register
// (LRU-bumped) if name is bound. When the pool is full, evicts the LRU
// victim — always spilling it first (a clean victim is marked dirty so the
// store is emitted), then reloading name from its own spill slot if it was
// previously spilled.
func (m *RegisterManager) AcquireVariableReg(name string, isFloat bool) (string, []ir.Instruction, error) {
	toRegMap, lruOrder, pool := m.variableToReg, m.lruOrder, VariableRegs
	if isFloat {
		toRegMap, lruOrder, pool = m.fpVariableToReg, m.fpLruOrder, FPVariableRegs
	}

	if reg, ok := toRegMap[name]; ok {
		if isFloat {
			m.fpLruOrder = m.bumpLRU(m.fpLruOrder, reg)
		} else {
			m.lruOrder = m.bumpLRU(m.lruOrder, reg)
		}
		return reg, nil, nil
	}

	if free, ok := lo.Find(pool, func(r string) bool { return m.bindings[r].Status == Free }); ok {
		m.bind(free, name, InUseVariable, isFloat)
		return free, nil, nil
	}

	if len(lruOrder) == 0 {
		return "", nil, fmt.Errorf("regalloc: variable pool exhausted with no eviction candidate for %q", name)
	}

	victimReg := lruOrder[0]
	victimName := m.bindings[victimReg].VariableName
	if isFloat {
		m.fpLruOrder = m.fpLruOrder[1:]
	} else {
		m.lruOrder = m.lruOrder[1:]
	}

	// Eviction is the last chance to preserve the victim's value: force the
	// spill store even when the binding was never explicitly dirtied. A
	// variable whose only write so far was its initial load from the
	// frame's canonical local slot is "clean" by Dirty's bookkeeping, but
	// that load never touched this variable's spill slot, so skipping the
	// store here would leave the slot uninitialized.
	m.MarkDirty(victimReg)
	spill, err := m.GenerateSpillCode(victimReg, victimName)
	if err != nil {
		return "", nil, err
	}
	var spillCode []ir.Instruction
	if spill.Opcode != ir.NOP {
		spillCode = append(spillCode, spill)
	}
	// The victim's value now lives solely in its spill slot, so any later
	// re-acquire must reload rather than bind a fresh register with no
	// reload.
	m.spilledVariables[victimName] = true
	delete(toRegMap, victimName)

	if m.spilledVariables[name] {
		off := m.cfm.GetSpillOffset(name)
		reload, err := encoder.CreateLdr(victimReg, "X29", off)
		if err != nil {
			return "", nil, err
		}
		spillCode = append(spillCode, reload)
		delete(m.spilledVariables, name)
	}

	m.bind(victimReg, name, InUseVariable, isFloat)
	return victimReg, spillCode, nil
}

func (m *RegisterManager) bind(reg, name string, status Status, isFloat bool) {
	m.bindings[reg] = &RegisterBinding{Status: status, VariableName: name}
	if isFloat {
		m.fpVariableToReg[name] = reg
		m.fpLruOrder = append(m.fpLruOrder, reg)
	} else {
		m.variableToReg[name] = reg
		m.lruOrder = append(m.lruOrder, reg)
	}
}

// AcquireScratchReg binds no variable and returns a caller-saved integer
// scratch register, or an error if the pool is exhausted — scratch
// registers are pinned for the duration of a single expression and are
// never LRU-eviction victims.
func (m *RegisterManager) AcquireScratchReg() (string, error) {
	return m.acquireScratch(ScratchRegs)
}

// AcquireFPScratchReg is AcquireScratchReg for the float scratch pool.
func (m *RegisterManager) AcquireFPScratchReg() (string, error) {
	return m.acquireScratch(FPScratchRegs)
}

func (m *RegisterManager) acquireScratch(pool []string) (string, error) {
	free, ok := lo.Find(pool, func(r string) bool { return m.bindings[r].Status == Free })
	if !ok {
		return "", fmt.Errorf("regalloc: scratch pool exhausted")
	}
	m.bindings[free] = &RegisterBinding{Status: InUseScratch}
	return free, nil
}

// ReleaseRegister marks reg FREE without spilling, even if dirty — callers
// that need the value preserved must spill explicitly first.
func (m *RegisterManager) ReleaseRegister(reg string) {
	binding, ok := m.bindings[reg]
	if !ok {
		return
	}
	if binding.Status == InUseVariable {
		if name := binding.VariableName; name != "" {
			delete(m.variableToReg, name)
			delete(m.fpVariableToReg, name)
		}
	}
	m.bindings[reg] = &RegisterBinding{Status: Free}
}

// MarkDirty flags reg as holding a value not yet reflected in its spill
// slot; every store through a bound variable register must call this so a
// later eviction spills correctly.
func (m *RegisterManager) MarkDirty(reg string) {
	if binding, ok := m.bindings[reg]; ok {
		binding.Dirty = true
	}
}

func (m *RegisterManager) isDirty(reg string) bool {
	binding, ok := m.bindings[reg]
	return ok && binding.Dirty
}

// InvalidateCallerSaved spills (if dirty) or drops every binding currently
// held in a caller-saved scratch register. Call this immediately before
// emitting a BL.
func (m *RegisterManager) InvalidateCallerSaved() ([]ir.Instruction, error) {
	var spillCode []ir.Instruction
	for _, reg := range append(append([]string{}, ScratchRegs...), FPScratchRegs...) {
		binding := m.bindings[reg]
		if binding.Status != InUseScratch && binding.Status != InUseVariable {
			continue
		}
		if binding.Dirty && binding.VariableName != "" {
			spill, err := m.GenerateSpillCode(reg, binding.VariableName)
			if err != nil {
				return nil, err
			}
			if spill.Opcode != ir.NOP {
				spillCode = append(spillCode, spill)
			}
			m.spilledVariables[binding.VariableName] = true
		}
		m.ReleaseRegister(reg)
	}
	return spillCode, nil
}

// IsVariableSpilled reports whether name currently lives only in its spill
// slot, not in any register.
func (m *RegisterManager) IsVariableSpilled(name string) bool {
	return m.spilledVariables[name]
}

// IsScratchRegister reports whether reg belongs to either scratch pool.
func (m *RegisterManager) IsScratchRegister(reg string) bool {
	return lo.Contains(ScratchRegs, reg) || lo.Contains(FPScratchRegs, reg)
}

// IsFPRegister reports whether reg belongs to either float pool.
func (m *RegisterManager) IsFPRegister(reg string) bool {
	return lo.Contains(FPVariableRegs, reg) || lo.Contains(FPScratchRegs, reg)
}

// GenerateSpillCode returns the store instruction that spills reg's value
// (bound to variableName) to its frame slot, or a commented no-op if reg
// was never marked dirty since its last load.
func (m *RegisterManager) GenerateSpillCode(reg, variableName string) (ir.Instruction, error) {
	if !m.isDirty(reg) {
		return ir.Instruction{
			Opcode:       ir.NOP,
			AssemblyText: fmt.Sprintf("// skipping spill for clean register %s (%s)", reg, variableName),
		}, nil
	}
	offset := m.cfm.GetSpillOffset(variableName)
	return encoder.CreateStr(reg, "X29", offset)
}
