package codegen

import (
	"fmt"

	"github.com/nativecg/bcplarm64/ast"
)

// TemporaryVariableFactory mints fresh compiler-internal names for
// expression intermediates that need a symbol-table entry of their own,
// grounded on original_source's TemporaryVariableFactory: each call
// registers the name in the symbol table and folds it into the owning
// function's metrics. Create allocates no frame slot, and CompileFunction
// reserves callee-saved registers from the full VariableRegs pool before
// the body is compiled, so that reservation does not read these metrics.
type TemporaryVariableFactory struct {
	counter int
}

// Create returns a new unique temporary name, registers it in symtab, and
// updates metrics' variable counts and VariableTypes map in place.
func (f *TemporaryVariableFactory) Create(functionName string, varType ast.VarType, symtab *ast.SymbolTable, metrics *ast.FunctionMetrics) (string, error) {
	name := fmt.Sprintf("_opt_temp_%d", f.counter)
	f.counter++

	if err := symtab.AddSymbol(ast.Symbol{Name: name, Kind: ast.LOCAL_VAR, Type: varType}); err != nil {
		return "", err
	}

	if varType == ast.FLOAT {
		metrics.NumFloatVariables++
	} else {
		metrics.NumVariables++
	}
	if metrics.VariableTypes == nil {
		metrics.VariableTypes = map[string]ast.VarType{}
	}
	metrics.VariableTypes[name] = varType
	metrics.RegisterPressure++

	return name, nil
}
