package ast

import "fmt"

// SymbolTable is a scoped symbol table: EnterScope/ExitScope bracket a
// lexical scope, AddSymbol registers a name within the current scope, and
// Lookup searches from the innermost scope outward.
type SymbolTable struct {
	scopes      []map[string]*Symbol
	currentFunc string
}

// NewSymbolTable returns a table with a single (global) scope open.
func NewSymbolTable() *SymbolTable {
	st := &SymbolTable{}
	st.EnterScope()
	return st
}

// EnterScope pushes a new, empty scope.
func (t *SymbolTable) EnterScope() {
	t.scopes = append(t.scopes, map[string]*Symbol{})
}

// ExitScope pops the innermost scope. Calling it with no open scope beyond
// the global one is a programmer error and panics, mirroring the
// structural-misuse class of error spec.md §7 assigns to the compiler's own
// bugs rather than user source errors.
func (t *SymbolTable) ExitScope() {
	if len(t.scopes) <= 1 {
		panic("ast: ExitScope called with no nested scope open")
	}
	t.scopes = t.scopes[:len(t.scopes)-1]
}

// AddSymbol registers sym in the current scope. Returns an error if a
// symbol with the same name already exists in that scope (duplicate symbol
// is a structural-misuse error per spec.md §7, not a panic — callers at the
// compiler's error-reporting boundary decide how to surface it).
func (t *SymbolTable) AddSymbol(sym Symbol) error {
	scope := t.scopes[len(t.scopes)-1]
	if _, exists := scope[sym.Name]; exists {
		return fmt.Errorf("ast: duplicate symbol %q in current scope", sym.Name)
	}
	scope[sym.Name] = &sym
	return nil
}

// SetSymbolAbsoluteValue updates the AbsoluteValue of an existing symbol,
// searching from the innermost scope outward. Used for MANIFEST constants
// and LABEL addresses resolved after a first pass.
func (t *SymbolTable) SetSymbolAbsoluteValue(name string, value int64) error {
	sym, ok := t.lookupMutable(name)
	if !ok {
		return fmt.Errorf("ast: unknown symbol %q", name)
	}
	sym.AbsoluteValue = value
	return nil
}

// SetCurrentFunction records the name of the function currently being
// compiled, for diagnostics and for RUNTIME_* symbol resolution.
func (t *SymbolTable) SetCurrentFunction(name string) {
	t.currentFunc = name
}

// CurrentFunction returns the name set by SetCurrentFunction.
func (t *SymbolTable) CurrentFunction() string {
	return t.currentFunc
}

// Lookup searches scopes from innermost to outermost.
func (t *SymbolTable) Lookup(name string) (Symbol, bool) {
	sym, ok := t.lookupMutable(name)
	if !ok {
		return Symbol{}, false
	}
	return *sym, true
}

func (t *SymbolTable) lookupMutable(name string) (*Symbol, bool) {
	for i := len(t.scopes) - 1; i >= 0; i-- {
		if sym, ok := t.scopes[i][name]; ok {
			return sym, true
		}
	}
	return nil, false
}
