package sema

import "cursive0/internal/types"

// TypeBinding is one name in scope: its mutability, its type, and the
// permission the place carries.
type TypeBinding struct {
	Mutable bool
	Type    types.TypeID
	Perm    types.Permission
	// Moved marks a non-Bitcopy binding whose value has been moved out.
	Moved bool
	// Region marks a binding introduced by a region statement.
	Region bool
	// Capability is the class path key when the binding provides a
	// capability.
	Capability string
}

// TypeEnv is a stack of scopes, each mapping identifiers to bindings.
// Scope chains are stack-allocated within a single procedure check:
// pushes and pops match statement scopes exactly.
type TypeEnv struct {
	scopes []map[string]*TypeBinding
}

// NewTypeEnv returns an env with one (procedure-level) scope.
func NewTypeEnv() *TypeEnv {
	return &TypeEnv{scopes: []map[string]*TypeBinding{{}}}
}

// Push opens a nested scope.
func (e *TypeEnv) Push() {
	e.scopes = append(e.scopes, map[string]*TypeBinding{})
}

// Pop closes the innermost scope.
func (e *TypeEnv) Pop() {
	e.scopes = e.scopes[:len(e.scopes)-1]
}

// Bind introduces a name in the innermost scope, shadowing any outer
// binding of the same name.
func (e *TypeEnv) Bind(name string, b *TypeBinding) {
	e.scopes[len(e.scopes)-1][name] = b
}

// Lookup walks the chain innermost-out.
func (e *TypeEnv) Lookup(name string) (*TypeBinding, bool) {
	for i := len(e.scopes) - 1; i >= 0; i-- {
		if b, ok := e.scopes[i][name]; ok {
			return b, true
		}
	}
	return nil, false
}

// Depth returns the current scope depth; used by capture analysis to
// decide whether a root binding is local to a parallel arm.
func (e *TypeEnv) Depth() int { return len(e.scopes) }

// boundBelow reports whether name resolves in a scope strictly shallower
// than depth (i.e. it was bound outside the region that began at depth).
func (e *TypeEnv) boundBelow(name string, depth int) bool {
	for i := len(e.scopes) - 1; i >= 0; i-- {
		if _, ok := e.scopes[i][name]; ok {
			return i < depth
		}
	}
	return false
}

// Capabilities returns every capability binding currently in scope.
func (e *TypeEnv) Capabilities() map[string]bool {
	caps := make(map[string]bool)
	for _, scope := range e.scopes {
		for _, b := range scope {
			if b.Capability != "" {
				caps[b.Capability] = true
			}
		}
	}
	return caps
}
