// Package sema implements P3: it types every expression, and enforces the
// permission lattice, safe-pointer states, modal-state typing, key
// conflicts, capability propagation, contract well-formedness, and subset
// conformance. Its product is the read-only τ-map plus per-procedure
// signatures consumed by IR lowering.
package sema

import (
	"fmt"

	"cursive0/internal/ast"
	"cursive0/internal/diag"
	"cursive0/internal/layout"
	"cursive0/internal/source"
	"cursive0/internal/symbols"
	"cursive0/internal/types"
)

// ParamMode distinguishes borrowed from consuming parameters for the ABI
// decision in P4.
type ParamMode uint8

const (
	ModeBorrow ParamMode = iota
	ModeMove
)

// ParamSig is one checked parameter.
type ParamSig struct {
	Name string
	Mode ParamMode
	Type types.TypeID
	// Capability is set when the parameter's type is a capability class.
	Capability string
}

// ProcSig is a procedure's checked signature.
type ProcSig struct {
	PathKey  string
	Params   []ParamSig
	Ret      types.TypeID
	Receiver types.TypeID // NoType for free procedures
	RecvPerm types.Permission
	IsExtern bool
	IsAsync  bool
	// Caps is the transitive capability requirement, closed over the call
	// graph after all bodies are checked.
	Caps map[string]bool
}

// Typed is P3's immutable product.
type Typed struct {
	// Tau maps every checked expression to its unique type.
	Tau map[ast.Expr]types.TypeID
	// Sigs maps every procedure declaration to its signature.
	Sigs map[*ast.ProcedureDecl]*ProcSig
	// UnsafeRanges records the byte span of every unsafe block per file,
	// consulted by the raw-pointer and transmute rules.
	UnsafeRanges map[source.FileID][][2]uint32
	// Statics maps static declarations to their types.
	Statics map[*ast.StaticDecl]types.TypeID
	// VTableSlots lists, per class path key, the ordered method slot names.
	VTableSlots map[string][]string
	// Layout is the size/align/ABI engine, its nominal tables populated
	// during signature collection and shared read-only with P4.
	Layout *layout.Engine
}

// Check runs P3 over every module. Σ and the resolution are read-only; the
// returned Typed plus diagnostics are the only outputs.
func Check(table *symbols.Table, res *symbols.Resolution, in *types.Interner) (*Typed, []diag.Diagnostic) {
	c := &checker{
		table: table,
		res:   res,
		types: in,
		typed: &Typed{
			Tau:          make(map[ast.Expr]types.TypeID),
			Sigs:         make(map[*ast.ProcedureDecl]*ProcSig),
			UnsafeRanges: make(map[source.FileID][][2]uint32),
			Statics:      make(map[*ast.StaticDecl]types.TypeID),
			VTableSlots:  make(map[string][]string),
			Layout:       layout.NewEngine(in),
		},
		callEdges: make(map[string]map[string]bool),
	}

	// Pass 1: signatures, static types, v-table slot orders. Bodies see
	// every signature regardless of declaration order.
	for _, m := range table.Modules {
		c.module = m.PathKey
		for _, f := range m.Files {
			for _, item := range f.Items {
				c.collectSignatures(item)
			}
		}
	}

	// Pass 2: bodies.
	for _, m := range table.Modules {
		c.module = m.PathKey
		for _, f := range m.Files {
			for _, item := range f.Items {
				c.checkItem(item)
			}
		}
	}

	// Pass 3: close capability requirements over the call graph, then
	// re-check every recorded call site against the closure.
	c.closeCapabilities()

	return c.typed, c.diags
}

type checker struct {
	table *symbols.Table
	res   *symbols.Resolution
	types *types.Interner
	typed *Typed
	diags []diag.Diagnostic

	module string

	// Per-procedure state, reset by checkProcedure.
	env        *TypeEnv
	proc       *ast.ProcedureDecl
	sig        *ProcSig
	unsafeN    int
	regions    []regionBinding
	keys       *KeyContext
	capture    *captureSet
	inContract bool

	// callEdges records caller-path-key -> callee-path-key for the
	// capability fixed point; capSites remembers each call site span for
	// the post-closure re-check.
	callEdges map[string]map[string]bool
	capSites  []capSite
}

type regionBinding struct {
	name  string
	state string // "Active", "Frozen", "Freed"
}

type capSite struct {
	caller string
	callee string
	span   source.Span
}

func (c *checker) errorf(code diag.Code, span source.Span, format string, args ...any) {
	c.diags = append(c.diags, diag.New(code, span, fmt.Sprintf(format, args...)))
}

// setTau records an expression's unique type; re-recording a different
// type for the same node is a checker invariant violation.
func (c *checker) setTau(e ast.Expr, t types.TypeID) types.TypeID {
	if prev, ok := c.typed.Tau[e]; ok && prev != t {
		c.diags = append(c.diags, diag.New(diag.Code{
			Severity: diag.SevPanic, Domain: diag.DomainSEM, Number: 999, Name: "TauRemap",
		}, e.ExprSpan(), "expression re-typed inconsistently; please file a bug"))
	}
	c.typed.Tau[e] = t
	return t
}

func (c *checker) lookupDecl(e ast.Expr) *symbols.Decl     { return c.res.Refs[e] }
func (c *checker) lookupType(t ast.TypeExpr) *symbols.Decl { return c.res.TypeRefs[t] }

// inUnsafe reports whether the checker is inside an unsafe block.
func (c *checker) inUnsafe() bool { return c.unsafeN > 0 }

// recordUnsafe registers an unsafe block's byte range for its file.
func (c *checker) recordUnsafe(span source.Span) {
	if !span.HasSpan() {
		return
	}
	c.typed.UnsafeRanges[span.File] = append(c.typed.UnsafeRanges[span.File], [2]uint32{span.Start, span.End})
}

// typeSizeAlign consults the layout engine; ok is false when the type has
// no computable layout (errors already diagnosed elsewhere).
func (c *checker) typeSizeAlign(id types.TypeID) (size, align uint64, ok bool) {
	base, _ := c.types.Unwrap(id)
	return c.typed.Layout.SizeAlign(base)
}

// InUnsafeRange reports whether a span lies inside a recorded unsafe
// region of its file — the P3 invariant for raw-pointer dereferences.
func (t *Typed) InUnsafeRange(span source.Span) bool {
	for _, r := range t.UnsafeRanges[span.File] {
		if span.Start >= r[0] && span.End <= r[1] {
			return true
		}
	}
	return false
}
