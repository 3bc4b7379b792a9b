// Package types implements the τ universe from spec.md §3: a closed set of
// type variants, a permission lattice, and an interner producing cheap
// TypeID handles so recursive record fields never form a reference cycle.
package types

import "fmt"

// TypeID is a handle into an Interner. The zero value, NoType, never
// denotes a real type.
type TypeID uint32

// NoType marks the absence of a type.
const NoType TypeID = 0

// Prim enumerates the primitive scalar kinds.
type Prim uint8

const (
	PrimInvalid Prim = iota
	PrimBool
	PrimChar
	PrimI8
	PrimI16
	PrimI32
	PrimI64
	PrimU8
	PrimU16
	PrimU32
	PrimU64
	PrimUsize
	PrimF32
	PrimF64
	PrimUnit  // "()"
	PrimNever // "!"
)

func (p Prim) String() string {
	names := [...]string{"invalid", "bool", "char", "i8", "i16", "i32", "i64",
		"u8", "u16", "u32", "u64", "usize", "f32", "f64", "()", "!"}
	if int(p) < len(names) {
		return names[p]
	}
	return fmt.Sprintf("Prim(%d)", p)
}

// IsInteger reports whether p is a signed or unsigned integer prim.
func (p Prim) IsInteger() bool {
	switch p {
	case PrimI8, PrimI16, PrimI32, PrimI64, PrimU8, PrimU16, PrimU32, PrimU64, PrimUsize:
		return true
	}
	return false
}

// IsSigned reports whether an integer prim is signed.
func (p Prim) IsSigned() bool {
	switch p {
	case PrimI8, PrimI16, PrimI32, PrimI64:
		return true
	}
	return false
}

// IsFloat reports whether p is a floating-point prim.
func (p Prim) IsFloat() bool { return p == PrimF32 || p == PrimF64 }

// PtrState is the niche-optimized modal state of Ptr<T>.
type PtrState uint8

const (
	PtrValid PtrState = iota
	PtrNull
	PtrExpired
)

func (s PtrState) String() string {
	switch s {
	case PtrValid:
		return "Valid"
	case PtrNull:
		return "Null"
	case PtrExpired:
		return "Expired"
	}
	return "Unknown"
}

// RawQual distinguishes *const T from *mut T raw pointers.
type RawQual uint8

const (
	RawImm RawQual = iota
	RawMut
)

// Permission is a point in the Unique <= Shared <= Const lattice.
type Permission uint8

const (
	PermUnique Permission = iota
	PermShared
	PermConst
)

func (p Permission) String() string {
	switch p {
	case PermUnique:
		return "unique"
	case PermShared:
		return "shared"
	case PermConst:
		return "const"
	}
	return "unknown"
}

// Satisfies reports whether a place actually holding permission `have` can
// be used somewhere requiring `want`: Unique satisfies everything, Shared
// satisfies Shared/Const, Const satisfies only Const.
func (have Permission) Satisfies(want Permission) bool {
	return have <= want
}

// StringRepr distinguishes a @View (borrowed) string/bytes from @Managed
// (owned) and the polymorphic form used before a use site pins one down.
type StringRepr uint8

const (
	StringPolymorphic StringRepr = iota
	StringView
	StringManaged
)

// Kind discriminates the τ variant stored in a Type.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindPrim
	KindPtr
	KindRawPtr
	KindSlice
	KindArray
	KindTuple
	KindUnion
	KindString
	KindBytes
	KindPathType
	KindDynamic
	KindModalState
	KindFunc
	KindRange
	KindPerm
)

// Type is the tagged-union τ value. Only the fields relevant to Kind are
// meaningful; the zero value of irrelevant fields is ignored.
type Type struct {
	Kind Kind

	Prim Prim // KindPrim

	Elem     TypeID   // KindPtr, KindRawPtr, KindSlice, KindArray, KindPerm (base)
	PtrState PtrState // KindPtr
	RawQual  RawQual  // KindRawPtr

	ArrayLen uint64 // KindArray

	Elems []TypeID // KindTuple, KindUnion (members), KindFunc (params)
	Ret   TypeID   // KindFunc

	Repr StringRepr // KindString, KindBytes

	Path  string   // KindPathType, KindDynamic, KindModalState (module path)
	Args  []TypeID // KindPathType (generic_args, resolved & interned)
	State string   // KindModalState (state name)

	Perm Permission // KindPerm
}

func (t Type) key() string {
	switch t.Kind {
	case KindPrim:
		return fmt.Sprintf("prim:%d", t.Prim)
	case KindPtr:
		return fmt.Sprintf("ptr:%d:%d", t.Elem, t.PtrState)
	case KindRawPtr:
		return fmt.Sprintf("rawptr:%d:%d", t.RawQual, t.Elem)
	case KindSlice:
		return fmt.Sprintf("slice:%d", t.Elem)
	case KindArray:
		return fmt.Sprintf("array:%d:%d", t.Elem, t.ArrayLen)
	case KindTuple:
		return fmt.Sprintf("tuple:%v", t.Elems)
	case KindUnion:
		return fmt.Sprintf("union:%v", sortedIDs(t.Elems))
	case KindString:
		return fmt.Sprintf("string:%d", t.Repr)
	case KindBytes:
		return fmt.Sprintf("bytes:%d", t.Repr)
	case KindPathType:
		return fmt.Sprintf("path:%s:%v", t.Path, t.Args)
	case KindDynamic:
		return fmt.Sprintf("dyn:%s", t.Path)
	case KindModalState:
		return fmt.Sprintf("modal:%s:%s", t.Path, t.State)
	case KindFunc:
		return fmt.Sprintf("func:%v->%d", t.Elems, t.Ret)
	case KindRange:
		return "range"
	case KindPerm:
		return fmt.Sprintf("perm:%d:%d", t.Perm, t.Elem)
	default:
		return "invalid"
	}
}

func sortedIDs(ids []TypeID) []TypeID {
	out := make([]TypeID, len(ids))
	copy(out, ids)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}
