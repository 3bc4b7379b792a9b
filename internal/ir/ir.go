// Package ir defines the small, language-agnostic linear form P4 lowers
// the typed AST into. Every instruction node is span-tagged; the backend
// consumes declarations and never the AST.
package ir

import (
	"cursive0/internal/layout"
	"cursive0/internal/source"
	"cursive0/internal/types"
)

// Module is one compilation unit's lowered declarations.
type Module struct {
	PathKey string
	Decls   []Decl
}

// Decl is a top-level IR declaration.
type Decl interface {
	declNode()
}

// Proc is a defined procedure.
type Proc struct {
	Symbol string
	Params []Param
	Ret    types.TypeID
	RetABI layout.PassKind
	// HasPanicParam marks the trailing __panic out-parameter every user
	// procedure except the entry point receives.
	HasPanicParam bool
	Body          Instr
	Span          source.Span
}

// Param is one lowered parameter.
type Param struct {
	Name string
	Type types.TypeID
	Pass layout.PassKind
}

// ExternProc is a declared-but-not-defined procedure (runtime or foreign).
type ExternProc struct {
	Symbol string
	Params []Param
	Ret    types.TypeID
	// Nounwind is set for runtime-archive symbols: panics are plumbed
	// explicitly, never unwound.
	Nounwind bool
}

// GlobalConst is an initialized read-only global.
type GlobalConst struct {
	Symbol string
	Type   types.TypeID
	Init   Value
}

// GlobalZero is a zero-initialized mutable global.
type GlobalZero struct {
	Symbol string
	Type   types.TypeID
}

// GlobalVTable is a class v-table instance for one implementing type.
type GlobalVTable struct {
	Symbol    string
	ClassPath string
	ImplPath  string
	// Size/Align of the implementing type, stored in the header words.
	Size  uint64
	Align uint64
	// DropSymbol is the drop-glue slot; MethodSymbols fill the ordered
	// method slots.
	DropSymbol    string
	MethodSymbols []string
}

func (*Proc) declNode()         {}
func (*ExternProc) declNode()   {}
func (*GlobalConst) declNode()  {}
func (*GlobalZero) declNode()   {}
func (*GlobalVTable) declNode() {}

// Value is an operand.
type Value interface {
	valueNode()
}

// Local names an SSA-ish local slot.
type Local struct {
	Name string
	Type types.TypeID
}

// Symbol references a global symbol by name.
type Symbol struct {
	Name string
}

// Immediate is a literal encoded as raw little-endian bytes plus its
// type.
type Immediate struct {
	Bytes []byte
	Type  types.TypeID
}

// StrImmediate is a string literal; the backend interns its bytes and
// yields a (ptr, len) pair.
type StrImmediate struct {
	Text string
}

// OpaqueValue is a value the core cannot inspect (backend-produced).
type OpaqueValue struct {
	Note string
}

func (Local) valueNode()        {}
func (Symbol) valueNode()       {}
func (Immediate) valueNode()    {}
func (StrImmediate) valueNode() {}
func (OpaqueValue) valueNode()  {}
