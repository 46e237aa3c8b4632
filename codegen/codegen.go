// Package codegen is the glue layer: it walks a function's AST once,
// binding variables to frame slots and physical registers as it goes, and
// emits the AArch64 instruction stream the peephole optimizer then
// cleans up. It does not parse or type-check BCPL source (see spec.md
// §1's Non-goals) — ast.Program is assumed already built and symbol-table
// clean.
package codegen

import (
	"fmt"
	"math"

	"github.com/nativecg/bcplarm64/ast"
	"github.com/nativecg/bcplarm64/encoder"
	"github.com/nativecg/bcplarm64/frame"
	"github.com/nativecg/bcplarm64/ir"
	"github.com/nativecg/bcplarm64/liveness"
	"github.com/nativecg/bcplarm64/peephole"
	"github.com/nativecg/bcplarm64/regalloc"
)

// argRegs is the integer-argument ABI pool (AArch64 passes the first eight
// integer/pointer arguments in X0-X7).
var argRegs = []string{"X0", "X1", "X2", "X3", "X4", "X5", "X6", "X7"}

// fpArgRegs is argRegs for floating-point arguments (D0-D7).
var fpArgRegs = []string{"D0", "D1", "D2", "D3", "D4", "D5", "D6", "D7"}

// canaryFaultLabel is the process-wide trampoline every function's
// epilogue branches to on a stack-canary mismatch; main.go is responsible
// for defining it once at program scope.
const canaryFaultLabel = "_canary_fault_handler"

// Options configures a single compile run, mirroring the CLI flags
// spec.md §8 names.
type Options struct {
	EnableStackCanaries bool
	TracePeephole       bool
	TraceLiveness       bool
	Debug               bool
	MaxPeepholePasses   int
}

// CodeGenerator compiles an ast.Program into an AArch64 instruction
// stream. One CodeGenerator is good for an entire compile run; it carries
// the program-wide symbol table and temporary-variable counter across
// functions.
type CodeGenerator struct {
	opts    Options
	symtab  *ast.SymbolTable
	tempVar TemporaryVariableFactory
}

// NewCodeGenerator returns a generator that registers symbols into symtab
// as it compiles. A fresh, empty *ast.SymbolTable is the common case.
func NewCodeGenerator(opts Options, symtab *ast.SymbolTable) *CodeGenerator {
	frame.SetStackCanariesEnabled(opts.EnableStackCanaries)
	return &CodeGenerator{opts: opts, symtab: symtab}
}

// CompileProgram lowers every function in prog, in declaration order, into
// one combined instruction stream. Every function name is registered in
// the symbol table before any body is compiled, so a call to a function
// declared later in the same program (or a mutually recursive pair)
// resolves correctly.
func (g *CodeGenerator) CompileProgram(prog *ast.Program) (*ir.InstructionStream, error) {
	kind := func(t ast.VarType) ast.SymbolKind {
		if t == ast.FLOAT {
			return ast.FLOAT_FUNCTION
		}
		return ast.FUNCTION
	}
	for _, fn := range prog.Functions {
		if err := g.symtab.AddSymbol(ast.Symbol{Name: fn.Name, Kind: kind(fn.ReturnType), Type: fn.ReturnType}); err != nil {
			return nil, fmt.Errorf("codegen: %w", err)
		}
	}

	out := ir.NewInstructionStream()
	for _, fn := range prog.Functions {
		fnStream, err := g.CompileFunction(fn)
		if err != nil {
			return nil, fmt.Errorf("codegen: function %q: %w", fn.Name, err)
		}
		out.AppendAll(fnStream.Instructions())
	}
	return out, nil
}

// funcGen holds the per-function state threaded through statement and
// expression lowering: the symbol table is program-wide and shared, but
// the frame, register manager, and output stream are fresh per function.
type funcGen struct {
	g      *CodeGenerator
	fn     *ast.FunctionDeclaration
	cfm    *frame.CallFrameManager
	rm     *regalloc.RegisterManager
	stream *ir.InstructionStream

	metrics  ast.FunctionMetrics
	retLabel string
	labelSeq int
	hasCalls bool

	// loaded tracks which variables have already had their first value
	// pulled in from the frame's canonical local slot; see loadVariable.
	loaded map[string]bool
}

// CompileFunction lowers a single function declaration into its own
// instruction stream, already peephole-optimized.
func (g *CodeGenerator) CompileFunction(fn *ast.FunctionDeclaration) (*ir.InstructionStream, error) {
	g.symtab.SetCurrentFunction(fn.Name)
	g.symtab.EnterScope()
	defer g.symtab.ExitScope()

	var analyzer ast.ASTAnalyzer
	metrics := analyzer.Analyze(fn)

	cfm := frame.NewCallFrameManager(fn.Name, g.opts.Debug)
	rm := regalloc.NewRegisterManager(cfm)

	fg := &funcGen{
		g:        g,
		fn:       fn,
		cfm:      cfm,
		rm:       rm,
		stream:   ir.NewInstructionStream(),
		metrics:  metrics,
		retLabel: fmt.Sprintf("_%s_return", fn.Name),
		loaded:   map[string]bool{},
	}

	for _, p := range fn.Parameters {
		if err := cfm.AddParameter(p); err != nil {
			return nil, err
		}
		if err := g.symtab.AddSymbol(ast.Symbol{Name: p, Kind: ast.LOCAL_VAR, Type: ast.ANY}); err != nil {
			return nil, err
		}
	}
	if err := fg.declareLocals(fn.Body); err != nil {
		return nil, err
	}

	// Reserve the whole integer variable pool rather than trusting the
	// pre-pass pressure estimate: TemporaryVariableFactory mints more
	// named variables once the body is walked, and any VariableRegs slot
	// the allocator ends up binding must have been committed to
	// save/restore before the prologue locks the frame.
	if err := cfm.ReserveRegistersBasedOnPressure(len(regalloc.VariableRegs)); err != nil {
		return nil, err
	}
	if containsCall(fn.Body) {
		if err := cfm.ForceSaveX19X20(); err != nil {
			return nil, err
		}
		fg.hasCalls = true
	}

	// Reserve spill-area budget before the frame locks, for the same reason
	// registers are reserved by full pool size above: spills only happen
	// lazily while the body is compiled, once GeneratePrologue has already
	// fixed the frame size. Sizing against both variable pools bounds the
	// common case of simultaneous eviction across every variable-bound
	// register; a function that spills more distinct names than that (e.g.
	// many temporaries cycling through the same register) can still exceed
	// this budget — see DESIGN.md.
	cfm.PreallocateSpillSlots(len(regalloc.VariableRegs) + len(regalloc.FPVariableRegs))

	prologue, err := cfm.GeneratePrologue()
	if err != nil {
		return nil, err
	}
	fg.stream.AppendAll(prologue)

	for i, p := range fn.Parameters {
		if i >= len(argRegs) {
			break // spec.md §1 scopes out >8-argument calls
		}
		off, err := cfm.GetOffset(p)
		if err != nil {
			return nil, err
		}
		store, err := encoder.CreateStr(argRegs[i], "X29", off)
		if err != nil {
			return nil, err
		}
		fg.emit(store)
	}

	if fn.Body != nil {
		if err := fg.compileStmt(fn.Body); err != nil {
			return nil, err
		}
	}

	fg.stream.DefineLabel(fg.retLabel)
	epilogue, err := cfm.GenerateEpilogue(canaryFaultLabel)
	if err != nil {
		return nil, err
	}
	fg.stream.AppendAll(epilogue)

	if g.opts.TraceLiveness {
		fg.runLivenessTrace()
	}

	maxPasses := g.opts.MaxPeepholePasses
	opt := peephole.NewPeepholeOptimizer(maxPasses, g.opts.TracePeephole)
	opt.Optimize(fg.stream)

	return fg.stream, nil
}

// runLivenessTrace builds a single-block CFG spanning the whole function
// body and runs the dataflow pass purely for its --trace-liveness side
// effects; codegen does not yet split basic blocks at branches, so the
// liveness result here is a coarse, whole-body approximation rather than
// per-block precision (see DESIGN.md).
func (fg *funcGen) runLivenessTrace() {
	cfg := liveness.NewCFG(fg.fn.Name)
	block := &liveness.BasicBlock{ID: "entry", Statements: []ast.Node{fg.fn.Body}}
	cfg.AddBlock(block)
	cfg.Entry = "entry"
	analysis := liveness.NewLivenessAnalysis(true)
	_ = analysis.RunDataFlowAnalysis(cfg)
	fmt.Printf("liveness: %s live on entry: %v\n", fg.fn.Name, block.In)
}

func (fg *funcGen) emit(instrs ...ir.Instruction) {
	fg.stream.AppendAll(instrs)
}

func (fg *funcGen) nextLabel(prefix string) string {
	fg.labelSeq++
	return fmt.Sprintf("_%s_%s_%d", fg.fn.Name, prefix, fg.labelSeq)
}

// declareLocals walks body and registers every LetDeclaration's names as
// frame locals ahead of codegen, since CallFrameManager.AddLocal may not
// be called once the prologue is generated.
func (fg *funcGen) declareLocals(n ast.Node) error {
	switch node := n.(type) {
	case nil:
		return nil
	case *ast.Block:
		for _, s := range node.Statements {
			if err := fg.declareLocals(s); err != nil {
				return err
			}
		}
	case *ast.LetDeclaration:
		for _, name := range node.Names {
			if fg.cfm.HasLocal(name) {
				continue
			}
			if err := fg.cfm.AddLocal(name, 8); err != nil {
				return err
			}
			fg.cfm.SetVariableType(name, node.Type)
			if err := fg.g.symtab.AddSymbol(ast.Symbol{Name: name, Kind: ast.LOCAL_VAR, Type: node.Type}); err != nil {
				return err
			}
		}
	case *ast.IfStatement:
		if err := fg.declareLocals(node.Then); err != nil {
			return err
		}
		return fg.declareLocals(node.Else)
	case *ast.WhileStatement:
		return fg.declareLocals(node.Body)
	}
	return nil
}

// containsCall reports whether n's subtree invokes a function, which
// determines whether X19/X20 need to be forced callee-saved for
// call-surviving temporaries.
func containsCall(n ast.Node) bool {
	switch node := n.(type) {
	case nil:
		return false
	case *ast.CallExpr:
		return true
	case *ast.Block:
		for _, s := range node.Statements {
			if containsCall(s) {
				return true
			}
		}
	case *ast.LetDeclaration:
		for _, init := range node.Inits {
			if containsCall(init) {
				return true
			}
		}
	case *ast.Assignment:
		return containsCall(node.Target) || containsCall(node.Value)
	case *ast.BinaryOp:
		return containsCall(node.Left) || containsCall(node.Right)
	case *ast.UnaryOp:
		return containsCall(node.Operand)
	case *ast.IfStatement:
		return containsCall(node.Cond) || containsCall(node.Then) || containsCall(node.Else)
	case *ast.WhileStatement:
		return containsCall(node.Cond) || containsCall(node.Body)
	case *ast.ReturnStatement:
		return containsCall(node.Value)
	}
	return false
}

func floatBits(v float64) uint64 {
	return math.Float64bits(v)
}
