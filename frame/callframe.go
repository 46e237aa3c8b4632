// Package frame builds the per-function AArch64 stack frame: locals, spill
// slots, callee-saved register saves, optional stack canaries, and the
// prologue/epilogue instruction sequences that set it up and tear it down.
package frame

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nativecg/bcplarm64/ast"
	"github.com/nativecg/bcplarm64/encoder"
	"github.com/nativecg/bcplarm64/ir"
)

const (
	// UpperCanaryValue and LowerCanaryValue guard the frame when stack
	// canaries are enabled; a mismatch at epilogue time means something
	// between prologue and epilogue wrote past a local or spill slot.
	UpperCanaryValue uint64 = 0x1122334455667788
	LowerCanaryValue uint64 = 0xAABBCCDDEEFF0011
	canarySize              = 8

	localsBaseOffset = 16 // past the FP/LR prelude at +0/+8
	spillSlotSize    = 8
	pressurePoolLow  = 21
	pressurePoolHigh = 28
)

var enableStackCanaries = false

// SetStackCanariesEnabled toggles canary insertion process-wide, mirroring
// the --enable-stack-canaries CLI flag.
func SetStackCanariesEnabled(enabled bool) {
	enableStackCanaries = enabled
}

type localVar struct {
	name string
	size int
}

// FrameSlotAllocator is the narrow view of CallFrameManager that the
// register allocator depends on when it needs to spill a variable. Keeping
// this as an interface — rather than a direct *CallFrameManager dependency
// — breaks what would otherwise be a circular package relationship: the
// frame package never needs to know about register bindings.
type FrameSlotAllocator interface {
	GetSpillOffset(variableName string) int
}

// CallFrameManager lays out one function's stack frame and emits its
// prologue/epilogue. Create one per function; it is not reusable across
// functions.
type CallFrameManager struct {
	functionName string
	debug        bool

	currentLocalsOffset int
	localDeclarations   []localVar
	localsTotalSize     int

	variableOffsets map[string]int
	floatVariables  map[string]bool

	spillAreaSize        int
	nextSpillOffset      int
	spillAreaBase        int
	spillVariableOffsets map[string]int

	calleeSavedRegisters []string
	finalFrameSize       int
	isPrologueGenerated  bool
}

// NewCallFrameManager returns a manager for functionName. debug gates
// verbose layout tracing, matching the teacher's boolean-flag diagnostics
// convention rather than a leveled logger.
func NewCallFrameManager(functionName string, debug bool) *CallFrameManager {
	base := localsBaseOffset
	if enableStackCanaries {
		base += 2 * canarySize
	}
	return &CallFrameManager{
		functionName:         functionName,
		debug:                debug,
		currentLocalsOffset:  base,
		variableOffsets:      map[string]int{},
		floatVariables:       map[string]bool{},
		spillAreaBase:        base,
		spillVariableOffsets: map[string]int{},
	}
}

func (m *CallFrameManager) debugPrint(msg string) {
	if m.debug {
		fmt.Printf("[frame:%s] %s\n", m.functionName, msg)
	}
}

// AddLocal reserves sizeInBytes (must be a multiple of 8) for variableName.
// Structural misuse — calling this after the prologue is generated — fails
// loudly rather than silently growing a frame the prologue already locked.
func (m *CallFrameManager) AddLocal(variableName string, sizeInBytes int) error {
	if m.isPrologueGenerated {
		return fmt.Errorf("frame: cannot add local %q after prologue is generated", variableName)
	}
	if sizeInBytes%8 != 0 {
		return fmt.Errorf("frame: local variable size must be a multiple of 8 bytes, got %d", sizeInBytes)
	}
	m.localDeclarations = append(m.localDeclarations, localVar{name: variableName, size: sizeInBytes})
	m.localsTotalSize += sizeInBytes
	m.variableOffsets[variableName] = m.currentLocalsOffset
	m.currentLocalsOffset += sizeInBytes
	return nil
}

// AddParameter is a convenience wrapper for an 8-byte incoming parameter.
func (m *CallFrameManager) AddParameter(name string) error {
	return m.AddLocal(name, 8)
}

// HasLocal reports whether variableName has a known frame offset.
func (m *CallFrameManager) HasLocal(variableName string) bool {
	_, ok := m.variableOffsets[variableName]
	return ok
}

// GetOffset returns the FP-relative offset of variableName.
func (m *CallFrameManager) GetOffset(variableName string) (int, error) {
	off, ok := m.variableOffsets[variableName]
	if !ok {
		return 0, fmt.Errorf("frame: no local named %q", variableName)
	}
	return off, nil
}

// SetVariableType records whether variableName is FLOAT, for the register
// manager to pick the matching pool.
func (m *CallFrameManager) SetVariableType(variableName string, t ast.VarType) {
	if t == ast.FLOAT {
		m.floatVariables[variableName] = true
	} else {
		delete(m.floatVariables, variableName)
	}
}

// MarkVariableAsFloat is equivalent to SetVariableType(name, ast.FLOAT), but
// only takes effect for names already known as locals — it is meant for
// retroactively tagging a temporary once its type becomes known, not for
// declaring new storage.
func (m *CallFrameManager) MarkVariableAsFloat(variableName string) {
	if !m.HasLocal(variableName) {
		m.debugPrint(fmt.Sprintf("mark_variable_as_float: %q not found", variableName))
		return
	}
	m.floatVariables[variableName] = true
}

// IsFloatVariable reports whether variableName was tagged FLOAT.
func (m *CallFrameManager) IsFloatVariable(variableName string) bool {
	return m.floatVariables[variableName]
}

// GetSpillOffset returns the stable spill-slot offset for variableName,
// allocating a fresh 8-byte slot on first use. Slots are never reused
// within a function. Offsets are relative to FP (X29) and are based off
// spillAreaBase — the end of the callee-saved save area once the prologue
// has been generated — so they never land on the saved FP/LR pair at
// FP+0/FP+8 or inside the locals/callee-saved regions.
func (m *CallFrameManager) GetSpillOffset(variableName string) int {
	if off, ok := m.spillVariableOffsets[variableName]; ok {
		return off
	}
	off := m.spillAreaBase + m.nextSpillOffset
	m.spillVariableOffsets[variableName] = off
	m.nextSpillOffset += spillSlotSize
	m.spillAreaSize += spillSlotSize
	return off
}

// PreallocateSpillSlots reserves count additional spill slots ahead of
// knowing their variable names, so the frame size is fixed before codegen
// needs to emit an offset into it.
func (m *CallFrameManager) PreallocateSpillSlots(count int) {
	if m.isPrologueGenerated {
		return
	}
	bytes := count * spillSlotSize
	m.spillAreaSize += bytes
	m.debugPrint(fmt.Sprintf("pre-allocated %d spill slots (%d bytes)", count, bytes))
}

// ForceSaveRegister adds regName to the callee-saved save/restore list
// regardless of whether it is otherwise bound to a local.
func (m *CallFrameManager) ForceSaveRegister(regName string) error {
	if m.isPrologueGenerated {
		return fmt.Errorf("frame: cannot force-save %q after prologue is generated", regName)
	}
	m.addCalleeSaved(regName)
	return nil
}

// ForceSaveX19X20 is the common case of ForceSaveRegister used whenever a
// function contains a call: X19/X20 are callee-saved scratch that the
// register manager borrows across BL boundaries for values that must
// survive the call.
func (m *CallFrameManager) ForceSaveX19X20() error {
	if m.isPrologueGenerated {
		return fmt.Errorf("frame: cannot force-save X19/X20 after prologue is generated")
	}
	m.addCalleeSaved("X19")
	m.addCalleeSaved("X20")
	return nil
}

func (m *CallFrameManager) addCalleeSaved(regName string) {
	for _, existing := range m.calleeSavedRegisters {
		if existing == regName {
			return
		}
	}
	m.calleeSavedRegisters = append(m.calleeSavedRegisters, regName)
	m.debugPrint(fmt.Sprintf("added %s to callee-saved set", regName))
}

// ReserveRegistersBasedOnPressure marks X21..X21+pressure-1 (capped at X28)
// for saving, anticipating that the allocator will bind that many
// simultaneously-live variables to callee-saved registers.
func (m *CallFrameManager) ReserveRegistersBasedOnPressure(registerPressure int) error {
	if m.isPrologueGenerated {
		return fmt.Errorf("frame: cannot reserve registers after prologue is generated")
	}
	for i := 0; i < registerPressure; i++ {
		regNum := pressurePoolLow + i
		if regNum > pressurePoolHigh {
			m.debugPrint("register pressure exceeds the callee-saved pool (X21-X28)")
			break
		}
		m.addCalleeSaved(fmt.Sprintf("X%d", regNum))
	}
	return nil
}

func alignTo16(size int) int {
	if size%16 == 0 {
		return size
	}
	return size + (16 - size%16)
}

// layoutCalleeSaved assigns each callee-saved register its own 8-byte slot
// immediately after the locals region, returning the total bytes consumed.
func (m *CallFrameManager) layoutCalleeSaved(startOffset int) int {
	offset := startOffset
	for _, reg := range m.calleeSavedRegisters {
		m.variableOffsets[reg] = offset
		offset += 8
	}
	return offset - startOffset
}

// GeneratePrologue emits the function's entry sequence and permanently
// locks the frame: STP X29,X30,[SP,#-frameSize]!; MOV X29,SP; store every
// callee-saved register at its computed offset; write canary values if
// enabled. May be called exactly once.
func (m *CallFrameManager) GeneratePrologue() ([]ir.Instruction, error) {
	if m.isPrologueGenerated {
		return nil, fmt.Errorf("frame: generate_prologue called more than once for %q", m.functionName)
	}

	calleeSavedStart := m.currentLocalsOffset
	calleeSavedBytes := m.layoutCalleeSaved(calleeSavedStart)
	// The spill region sits after the callee-saved save area rather than
	// between locals and callee-saved (the literal ordering in the frame
	// diagram): spill slots are only handed out lazily while the body is
	// compiled, long after this offset must already be fixed, whereas
	// calleeSavedStart/calleeSavedBytes are both known now. Any caller
	// expecting to spill should call PreallocateSpillSlots before this
	// runs so m.spillAreaSize already reflects the reserved budget.
	m.spillAreaBase = calleeSavedStart + calleeSavedBytes
	totalBeforeAlign := m.spillAreaBase + m.spillAreaSize
	m.finalFrameSize = alignTo16(totalBeforeAlign)
	m.isPrologueGenerated = true

	var instrs []ir.Instruction

	stp, err := encoder.CreateStp("X29", "X30", "SP", -m.finalFrameSize)
	if err != nil {
		return nil, err
	}
	instrs = append(instrs, stp)

	movFp, err := encoder.CreateMovReg("X29", "SP")
	if err != nil {
		return nil, err
	}
	instrs = append(instrs, movFp)

	for _, reg := range m.calleeSavedRegisters {
		off := m.variableOffsets[reg]
		store, err := m.storeRegAtOffset(reg, off)
		if err != nil {
			return nil, err
		}
		instrs = append(instrs, store)
	}

	if enableStackCanaries {
		upper, err := canaryStore(UpperCanaryValue, 16)
		if err != nil {
			return nil, err
		}
		lower, err := canaryStore(LowerCanaryValue, 16+canarySize)
		if err != nil {
			return nil, err
		}
		instrs = append(instrs, upper...)
		instrs = append(instrs, lower...)
	}

	return instrs, nil
}

func (m *CallFrameManager) storeRegAtOffset(reg string, offset int) (ir.Instruction, error) {
	if strings.HasPrefix(strings.ToUpper(reg), "D") {
		return encoder.CreateStr(reg, "X29", offset)
	}
	return encoder.CreateStr(reg, "X29", offset)
}

// canaryStore builds the MOVZ/MOVK-then-STR sequence that plants a 64-bit
// canary value at [X29, #offset], using X16 (IP0) as the scratch register
// since no variable register may be clobbered before the prologue finishes.
func canaryStore(value uint64, offset int) ([]ir.Instruction, error) {
	loads, err := encoder.CreateMovzMovkAbs64("X16", value, "")
	if err != nil {
		return nil, err
	}
	store, err := encoder.CreateStr("X16", "X29", offset)
	if err != nil {
		return nil, err
	}
	return append(loads, store), nil
}

// GenerateEpilogue emits the function's exit sequence: verify canaries (if
// enabled), restore callee-saved registers, restore FP/LR, and RET.
// CanaryFaultLabel names the label to branch to on a canary mismatch; the
// caller is responsible for defining that label (typically a shared
// process-wide fault handler trampoline).
func (m *CallFrameManager) GenerateEpilogue(canaryFaultLabel string) ([]ir.Instruction, error) {
	if !m.isPrologueGenerated {
		return nil, fmt.Errorf("frame: generate_epilogue called before generate_prologue for %q", m.functionName)
	}

	var instrs []ir.Instruction

	if enableStackCanaries {
		checks, err := canaryChecks(canaryFaultLabel)
		if err != nil {
			return nil, err
		}
		instrs = append(instrs, checks...)
	}

	for i := len(m.calleeSavedRegisters) - 1; i >= 0; i-- {
		reg := m.calleeSavedRegisters[i]
		off := m.variableOffsets[reg]
		load, err := encoder.CreateLdr(reg, "X29", off)
		if err != nil {
			return nil, err
		}
		instrs = append(instrs, load)
	}

	ldp, err := encoder.CreateLdp("X29", "X30", "SP", m.finalFrameSize)
	if err != nil {
		return nil, err
	}
	instrs = append(instrs, ldp)
	instrs = append(instrs, encoder.CreateRet())
	return instrs, nil
}

func canaryChecks(faultLabel string) ([]ir.Instruction, error) {
	var instrs []ir.Instruction
	for _, c := range []struct {
		value  uint64
		offset int
	}{
		{UpperCanaryValue, 16},
		{LowerCanaryValue, 16 + canarySize},
	} {
		expect, err := encoder.CreateMovzMovkAbs64("X16", c.value, "")
		if err != nil {
			return nil, err
		}
		load, err := encoder.CreateLdr("X17", "X29", c.offset)
		if err != nil {
			return nil, err
		}
		cmp, err := encoder.CreateCmpReg("X17", "X16")
		if err != nil {
			return nil, err
		}
		instrs = append(instrs, expect...)
		instrs = append(instrs, load, cmp, encoder.CreateBCond(ir.NE, faultLabel))
	}
	return instrs, nil
}

// GetSpillSlotOffsets returns a snapshot of every spill slot assigned so
// far, keyed by variable name.
func (m *CallFrameManager) GetSpillSlotOffsets() map[string]int {
	out := make(map[string]int, len(m.spillVariableOffsets))
	for k, v := range m.spillVariableOffsets {
		out[k] = v
	}
	return out
}

// FrameSize returns the finalized, 16-byte-aligned total frame size. Valid
// only after GeneratePrologue has run.
func (m *CallFrameManager) FrameSize() int {
	return m.finalFrameSize
}

// DisplayFrameLayout renders a human-readable dump of offsets, sorted
// top-down, for --trace-liveness-adjacent debug output.
func (m *CallFrameManager) DisplayFrameLayout() string {
	if !m.isPrologueGenerated && m.functionName == "" {
		return "Call Frame Layout: Not yet configured/finalized.\n"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "--- Call Frame Layout for function: %s (Total Size: %d bytes) ---\n", m.functionName, m.finalFrameSize)
	fmt.Fprintf(&b, "%-9s| %-38s| Type\n", "Offset", "Content")
	b.WriteString(strings.Repeat("-", 56) + "\n")
	fmt.Fprintf(&b, "%-9s| Old Frame Pointer (x29)     <-- FP (x29) points here\n", "+0")
	fmt.Fprintf(&b, "%-9s| Return Address (Caller's PC)\n", "+8")

	if enableStackCanaries {
		fmt.Fprintf(&b, "%-9s| Upper Stack Canary (0x%x)\n", "+16", UpperCanaryValue)
		fmt.Fprintf(&b, "%-9s| Lower Stack Canary (0x%x)\n", fmt.Sprintf("+%d", 16+canarySize), LowerCanaryValue)
	}

	type item struct {
		description string
		offset      int
		kind        string
	}
	var items []item
	for _, decl := range m.localDeclarations {
		if off, ok := m.variableOffsets[decl.name]; ok {
			kind := "int"
			if m.IsFloatVariable(decl.name) {
				kind = "float"
			}
			items = append(items, item{"Local: " + decl.name, off, kind})
		}
	}
	for _, reg := range m.calleeSavedRegisters {
		if off, ok := m.variableOffsets[reg]; ok {
			kind := "int"
			if strings.HasPrefix(reg, "D") {
				kind = "float"
			}
			items = append(items, item{"Saved Reg: " + reg, off, kind})
		}
	}
	for name, off := range m.spillVariableOffsets {
		kind := "int"
		if m.IsFloatVariable(name) {
			kind = "float"
		}
		items = append(items, item{"Spill Slot: " + name, off, kind})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].offset < items[j].offset })

	for _, it := range items {
		fmt.Fprintf(&b, "%-9s| %-38s| %s\n", fmt.Sprintf("+%d", it.offset), it.description, it.kind)
	}
	b.WriteString(strings.Repeat("-", 56) + "\n")
	fmt.Fprintf(&b, "                                     <-- SP (+%d from FP)\n", m.finalFrameSize)
	return b.String()
}
