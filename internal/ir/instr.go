package ir

import (
	"cursive0/internal/source"
	"cursive0/internal/types"
)

// Instr is one span-tagged instruction node. Instructions form trees:
// control-flow nodes own their bodies, and Seq sequences siblings.
type Instr interface {
	InstrSpan() source.Span
	instrNode()
}

type Base struct {
	Span source.Span
}

func (b Base) InstrSpan() source.Span { return b.Span }

// BindVar introduces a local slot and initializes it.
type BindVar struct {
	Base
	Name  string
	Type  types.TypeID
	Value Value
}

// StoreVar overwrites a local, running drop glue on the previous value
// when the type requires it.
type StoreVar struct {
	Base
	Name  string
	Value Value
}

// StoreVarNoDrop overwrites a local without dropping the previous value
// (first initialization along a path, or Bitcopy types).
type StoreVarNoDrop struct {
	Base
	Name  string
	Value Value
}

// ReadVar loads a local into Result.
type ReadVar struct {
	Base
	Name   string
	Result Local
}

// ReadPtr loads through a pointer value.
type ReadPtr struct {
	Base
	Ptr    Value
	Elem   types.TypeID
	Result Local
}

// WritePtr stores through a pointer value.
type WritePtr struct {
	Base
	Ptr   Value
	Value Value
}

// AddrOf takes the address of a local or field path.
type AddrOf struct {
	Base
	Name string
	// FieldPath is a sequence of field indices applied to the Base slot.
	FieldPath []int
	Result    Local
}

// Alloc bumps a region and writes a value into it, yielding the
// allocation's address.
type Alloc struct {
	Base
	Region string
	Value  Value
	Elem   types.TypeID
	Result Local
}

// If is two-armed control flow producing an optional result local.
type If struct {
	Base
	Cond   Value
	Then   Instr
	Else   Instr // nil for one-armed
	Result *Local
}

// LoopKind distinguishes the loop forms for the backend's branch shapes.
type LoopKind uint8

const (
	LoopForever LoopKind = iota
	LoopWhile
	LoopRange
)

// Loop is a loop node; Cond is nil for LoopForever.
type Loop struct {
	Base
	Kind      LoopKind
	Cond      Instr // evaluated each iteration; produces CondValue
	CondValue Value
	Body      Instr
	Result    *Local
}

// Block scopes a setup/body pair producing a value; locals bound in the
// setup die at the block's close (drop glue runs in reverse order).
type Block struct {
	Base
	Setup []Instr
	Body  Instr
	Value Value
}

// MatchArmIR is one lowered arm: a discriminant test plus bindings.
type MatchArmIR struct {
	// Disc is the variant/state index this arm selects, or -1 for the
	// default arm.
	Disc     int
	Bindings []string
	Body     Instr
}

// Match switches on a scrutinee's discriminant.
type Match struct {
	Base
	Scrutinee Value
	ScrutType types.TypeID
	Arms      []MatchArmIR
	Result    *Local
}

// Call invokes a known symbol or function-typed value.
type Call struct {
	Base
	Callee Value
	Args   []Value
	Result *Local
}

// CallVTable reads a slot from the v-table half of a fat pointer and
// calls it with the data half as first argument.
type CallVTable struct {
	Base
	Recv   Value
	Slot   int
	Args   []Value
	Result *Local
}

// ReadPath loads a global (static) by symbol.
type ReadPath struct {
	Base
	Symbol string
	Result Local
}

// StoreGlobal stores to a mutable global.
type StoreGlobal struct {
	Base
	Symbol string
	Value  Value
}

// Phi merges values from predecessor arms.
type Phi struct {
	Base
	Incoming []Value
	Result   Local
}

// BranchKind is the break/continue/return family.
type BranchKind uint8

const (
	BranchBreak BranchKind = iota
	BranchContinue
	BranchReturn
)

// Branch exits a loop or procedure; Value rides on returns.
type Branch struct {
	Base
	Kind  BranchKind
	Value Value // nil for unit returns and loop exits
}

// Frame materializes an async frame: layout-computed size/align and
// per-captured-variable slot offsets.
type Frame struct {
	Base
	Size   uint64
	Align  uint64
	Slots  map[string]uint64
	Result Local
}

// Region scopes a region's lifetime around its body.
type Region struct {
	Base
	Owner string
	Body  Instr
	Value Value
}

// MoveState marks a place as moved-out so scope-exit drop glue skips it.
type MoveState struct {
	Base
	Place string
}

// CheckPoison guards a cross-module call against a module whose
// initializer panicked.
type CheckPoison struct {
	Base
	Module string
}

// ClearPanic resets the panic slot before a call.
type ClearPanic struct {
	Base
}

// PanicCheck inspects the panic slot after a call, running Cleanup and
// propagating when set.
type PanicCheck struct {
	Base
	Cleanup Instr // nil when nothing needs dropping
}

// LowerPanic raises a panic with a reason, running Cleanup first.
type LowerPanic struct {
	Base
	Reason  string
	Cleanup Instr
}

// InitPanicHandle wires a module's panic slot and poison list at entry.
type InitPanicHandle struct {
	Base
	Module        string
	PoisonModules []string
}

// Seq sequences instructions.
type Seq struct {
	Base
	Items []Instr
}

// Opaque is an instruction the core cannot inspect.
type Opaque struct {
	Base
	Note string
}

func (*BindVar) instrNode()         {}
func (*StoreVar) instrNode()        {}
func (*StoreVarNoDrop) instrNode()  {}
func (*ReadVar) instrNode()         {}
func (*ReadPtr) instrNode()         {}
func (*WritePtr) instrNode()        {}
func (*AddrOf) instrNode()          {}
func (*Alloc) instrNode()           {}
func (*If) instrNode()              {}
func (*Loop) instrNode()            {}
func (*Block) instrNode()           {}
func (*Match) instrNode()           {}
func (*Call) instrNode()            {}
func (*CallVTable) instrNode()      {}
func (*ReadPath) instrNode()        {}
func (*StoreGlobal) instrNode()     {}
func (*Phi) instrNode()             {}
func (*Branch) instrNode()          {}
func (*Frame) instrNode()           {}
func (*Region) instrNode()          {}
func (*MoveState) instrNode()       {}
func (*CheckPoison) instrNode()     {}
func (*ClearPanic) instrNode()      {}
func (*PanicCheck) instrNode()      {}
func (*LowerPanic) instrNode()      {}
func (*InitPanicHandle) instrNode() {}
func (*Seq) instrNode()             {}
func (*Opaque) instrNode()          {}

// NewSeq flattens nested sequences and drops nils.
func NewSeq(span source.Span, items ...Instr) Instr {
	var flat []Instr
	for _, it := range items {
		switch v := it.(type) {
		case nil:
			continue
		case *Seq:
			flat = append(flat, v.Items...)
		default:
			flat = append(flat, it)
		}
	}
	if len(flat) == 1 {
		return flat[0]
	}
	return &Seq{Base: Base{Span: span}, Items: flat}
}

// At constructs the shared span Base for instruction literals.
func At(span source.Span) Base { return Base{Span: span} }
