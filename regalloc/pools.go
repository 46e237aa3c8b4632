package regalloc

// Status classifies what, if anything, a physical register currently holds.
type Status int

const (
	Free Status = iota
	InUseVariable
	InUseScratch
	InUseDataBase
)

func (s Status) String() string {
	switch s {
	case InUseVariable:
		return "IN_USE_VARIABLE"
	case InUseScratch:
		return "IN_USE_SCRATCH"
	case InUseDataBase:
		return "IN_USE_DATA_BASE"
	default:
		return "FREE"
	}
}

// VariableRegs is the callee-saved integer pool bound to long-lived
// variables across the function body.
var VariableRegs = []string{"X21", "X22", "X23", "X24", "X25", "X26", "X27"}

// ScratchRegs is the caller-saved integer pool used for expression
// temporaries; bindings here never survive a BL.
var ScratchRegs = []string{"X9", "X10", "X11", "X12", "X13", "X14", "X15"}

// ReservedRegs holds the register permanently dedicated to the
// data-segment base pointer, never available to the allocator.
var ReservedRegs = []string{"X28"}

// FPVariableRegs is the callee-saved float pool.
var FPVariableRegs = []string{"D8", "D9", "D10", "D11", "D12", "D13", "D14", "D15"}

// FPScratchRegs is the caller-saved float pool.
var FPScratchRegs = []string{
	"D0", "D1", "D2", "D3", "D4", "D5", "D6", "D7",
	"D16", "D17", "D18", "D19", "D20",
}

// RegisterBinding is what a managed register currently holds.
type RegisterBinding struct {
	Status       Status
	VariableName string
	Dirty        bool
}
