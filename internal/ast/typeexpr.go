package ast

import "cursive0/internal/source"

// TypeExpr is a syntactic type reference.
type TypeExpr interface {
	TypeSpan() source.Span
	typeNode()
}

// PrimTypeExpr names a primitive: bool, char, i32, usize, f64, (), !.
type PrimTypeExpr struct {
	Name string
	Span source.Span
}

// PtrTypeExpr is Ptr<T>@State. A missing state annotation defaults to
// Valid at binding positions.
type PtrTypeExpr struct {
	Elem  TypeExpr
	State string // "Valid", "Null", "Expired"
	Span  source.Span
}

// RawPtrTypeExpr is *imm T or *mut T.
type RawPtrTypeExpr struct {
	Mut  bool
	Elem TypeExpr
	Span source.Span
}

// SliceTypeExpr is []T.
type SliceTypeExpr struct {
	Elem TypeExpr
	Span source.Span
}

// ArrayTypeExpr is [T; N]; the length must const-evaluate to a usize.
type ArrayTypeExpr struct {
	Elem TypeExpr
	Len  Expr
	Span source.Span
}

// TupleTypeExpr is (T1, T2, ...). The empty tuple is spelled () and parsed
// as PrimTypeExpr{Name: "()"}.
type TupleTypeExpr struct {
	Elems []TypeExpr
	Span  source.Span
}

// UnionTypeExpr is T | E | ... — an unordered member set.
type UnionTypeExpr struct {
	Members []TypeExpr
	Span    source.Span
}

// StringTypeExpr is string, string@View, or string@Managed; Bytes
// distinguishes the bytes spelling.
type StringTypeExpr struct {
	Bytes bool
	Repr  string // "", "View", "Managed"
	Span  source.Span
}

// PathTypeExpr names a declared type, optionally instantiated:
// app::Box<i32>.
type PathTypeExpr struct {
	Path Path
	Args []TypeExpr
	Span source.Span
}

// DynTypeExpr is dyn Class.
type DynTypeExpr struct {
	Class Path
	Span  source.Span
}

// ModalStateTypeExpr is M@State.
type ModalStateTypeExpr struct {
	Path  Path
	State string
	Span  source.Span
}

// FuncTypeExpr is procedure(T1, T2) -> R.
type FuncTypeExpr struct {
	Params []TypeExpr
	Ret    TypeExpr // nil means unit
	Span   source.Span
}

// PermTypeExpr wraps a base type in a permission qualifier, valid only at
// binding positions (elsewhere it is a subset-conformance rejection).
type PermTypeExpr struct {
	Perm string // "const", "shared", "unique"
	Base TypeExpr
	Span source.Span
}

// CapabilityTypeExpr names a capability class: $FileSystem.
type CapabilityTypeExpr struct {
	Name Ident
	Span source.Span
}

func (t *PrimTypeExpr) TypeSpan() source.Span       { return t.Span }
func (t *PtrTypeExpr) TypeSpan() source.Span        { return t.Span }
func (t *RawPtrTypeExpr) TypeSpan() source.Span     { return t.Span }
func (t *SliceTypeExpr) TypeSpan() source.Span      { return t.Span }
func (t *ArrayTypeExpr) TypeSpan() source.Span      { return t.Span }
func (t *TupleTypeExpr) TypeSpan() source.Span      { return t.Span }
func (t *UnionTypeExpr) TypeSpan() source.Span      { return t.Span }
func (t *StringTypeExpr) TypeSpan() source.Span     { return t.Span }
func (t *PathTypeExpr) TypeSpan() source.Span       { return t.Span }
func (t *DynTypeExpr) TypeSpan() source.Span        { return t.Span }
func (t *ModalStateTypeExpr) TypeSpan() source.Span { return t.Span }
func (t *FuncTypeExpr) TypeSpan() source.Span       { return t.Span }
func (t *PermTypeExpr) TypeSpan() source.Span       { return t.Span }
func (t *CapabilityTypeExpr) TypeSpan() source.Span { return t.Span }

func (*PrimTypeExpr) typeNode()       {}
func (*PtrTypeExpr) typeNode()        {}
func (*RawPtrTypeExpr) typeNode()     {}
func (*SliceTypeExpr) typeNode()      {}
func (*ArrayTypeExpr) typeNode()      {}
func (*TupleTypeExpr) typeNode()      {}
func (*UnionTypeExpr) typeNode()      {}
func (*StringTypeExpr) typeNode()     {}
func (*PathTypeExpr) typeNode()       {}
func (*DynTypeExpr) typeNode()        {}
func (*ModalStateTypeExpr) typeNode() {}
func (*FuncTypeExpr) typeNode()       {}
func (*PermTypeExpr) typeNode()       {}
func (*CapabilityTypeExpr) typeNode() {}
