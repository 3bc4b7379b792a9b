package ast

import "cursive0/internal/source"

// Item is a top-level declaration.
type Item interface {
	ItemSpan() source.Span
	itemNode()
}

// ProcedureDecl declares a procedure, a record/state method, or a class
// method signature (Body == nil inside a class or extern block).
type ProcedureDecl struct {
	Vis      Visibility
	Name     Ident
	Receiver *Receiver // nil for free procedures
	Params   []Param
	Ret      TypeExpr // nil means unit
	Contract *Contract
	Body     *Block // nil for signatures
	Span     source.Span
}

// Receiver is the declared self shorthand on a method.
type Receiver struct {
	// Perm is the receiver permission requirement: const self, self
	// (shared), unique self.
	Perm ReceiverPerm
	// Transition marks a modal transition method: the receiver is consumed
	// by move and the return type names the destination state.
	Transition bool
	Span       source.Span
}

// ReceiverPerm mirrors the three receiver shorthands.
type ReceiverPerm uint8

const (
	RecvConst ReceiverPerm = iota
	RecvShared
	RecvUnique
)

// Param is one declared parameter. Move marks an ownership-consuming
// parameter; a parameter whose type names a capability class ($-prefixed)
// is a capability parameter.
type Param struct {
	Move bool
	Name Ident
	Type TypeExpr
	Span source.Span
}

// Contract is the optional |= P => Q clause on a procedure.
type Contract struct {
	Pre  Expr // nil when only a postcondition is given
	Post Expr // nil when only a precondition is given
	Span source.Span
}

// RecordDecl declares a nominal record with fields, methods, and the set of
// classes it implements.
type RecordDecl struct {
	Vis      Visibility
	Name     Ident
	Generics []Ident // formal type parameters, e.g. record Box<T>
	Classes  []Path  // implemented classes, e.g. record P: Bitcopy
	Fields   []FieldDecl
	Methods  []*ProcedureDecl
	Span     source.Span
}

// FieldDecl is a record, state, or common-prefix field.
type FieldDecl struct {
	Vis  Visibility
	Name Ident
	Type TypeExpr
	Span source.Span
}

// EnumDecl declares a closed variant set. A variant may carry a payload
// tuple; a bare variant has none.
type EnumDecl struct {
	Vis      Visibility
	Name     Ident
	Generics []Ident
	Variants []VariantDecl
	Span     source.Span
}

// VariantDecl is one enum variant.
type VariantDecl struct {
	Name  Ident
	Elems []TypeExpr // payload tuple, empty for bare variants
	Span  source.Span
}

// ModalDecl declares a modal type: common fields plus per-state blocks.
type ModalDecl struct {
	Vis    Visibility
	Name   Ident
	Common []FieldDecl
	States []StateBlock
	Span   source.Span
}

// StateBlock is one state of a modal declaration.
type StateBlock struct {
	Name    Ident
	Fields  []FieldDecl
	Methods []*ProcedureDecl
	Span    source.Span
}

// ClassDecl declares a nominal interface. Capability classes are spelled
// with a leading '$' in the source and carry Capability == true.
type ClassDecl struct {
	Vis        Visibility
	Capability bool
	Name       Ident
	Methods    []*ProcedureDecl // signatures only
	Span       source.Span
}

// TypeAliasDecl binds a name to an existing type.
type TypeAliasDecl struct {
	Vis    Visibility
	Name   Ident
	Target TypeExpr
	Span   source.Span
}

// StaticDecl is a module-level constant or zero-initialized global.
type StaticDecl struct {
	Vis     Visibility
	Mutable bool
	Name    Ident
	Type    TypeExpr
	Value   Expr // nil for zero-initialized
	Span    source.Span
}

// ImportDecl names an assembly and a path to an exported item or module.
// Empty Items imports the whole module; Alias rebinds the imported name.
type ImportDecl struct {
	Assembly Ident
	Path     []Ident
	Items    []Ident
	Alias    Ident // zero when absent
	Span     source.Span
}

// UsingDecl binds a shorter name for a path within the current module.
type UsingDecl struct {
	Path  Path
	Alias Ident // zero when absent; default is the last path segment
	Span  source.Span
}

// ExternBlock declares foreign procedures resolved against the runtime
// archive or another native library.
type ExternBlock struct {
	ABI   string // e.g. "C"
	Procs []*ProcedureDecl
	Span  source.Span
}

// ErrorItem is a parse-recovery placeholder covering an unparseable span.
type ErrorItem struct {
	Span source.Span
	Msg  string
}

func (d *ProcedureDecl) ItemSpan() source.Span { return d.Span }
func (d *RecordDecl) ItemSpan() source.Span    { return d.Span }
func (d *EnumDecl) ItemSpan() source.Span      { return d.Span }
func (d *ModalDecl) ItemSpan() source.Span     { return d.Span }
func (d *ClassDecl) ItemSpan() source.Span     { return d.Span }
func (d *TypeAliasDecl) ItemSpan() source.Span { return d.Span }
func (d *StaticDecl) ItemSpan() source.Span    { return d.Span }
func (d *ImportDecl) ItemSpan() source.Span    { return d.Span }
func (d *UsingDecl) ItemSpan() source.Span     { return d.Span }
func (d *ExternBlock) ItemSpan() source.Span   { return d.Span }
func (d *ErrorItem) ItemSpan() source.Span     { return d.Span }

func (*ProcedureDecl) itemNode() {}
func (*RecordDecl) itemNode()    {}
func (*EnumDecl) itemNode()      {}
func (*ModalDecl) itemNode()     {}
func (*ClassDecl) itemNode()     {}
func (*TypeAliasDecl) itemNode() {}
func (*StaticDecl) itemNode()    {}
func (*ImportDecl) itemNode()    {}
func (*UsingDecl) itemNode()     {}
func (*ExternBlock) itemNode()   {}
func (*ErrorItem) itemNode()     {}
