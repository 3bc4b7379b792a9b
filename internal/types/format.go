package types

import (
	"fmt"
	"strings"
)

// Format renders a human-readable type name for diagnostics.
func Format(in *Interner, id TypeID) string {
	if id == NoType {
		return "<invalid>"
	}
	t := in.Get(id)
	switch t.Kind {
	case KindPrim:
		return t.Prim.String()
	case KindPtr:
		return fmt.Sprintf("Ptr<%s>@%s", Format(in, t.Elem), t.PtrState)
	case KindRawPtr:
		qual := "const"
		if t.RawQual == RawMut {
			qual = "mut"
		}
		return fmt.Sprintf("*%s %s", qual, Format(in, t.Elem))
	case KindSlice:
		return fmt.Sprintf("%s[]", Format(in, t.Elem))
	case KindArray:
		return fmt.Sprintf("%s[%d]", Format(in, t.Elem), t.ArrayLen)
	case KindTuple:
		parts := make([]string, len(t.Elems))
		for i, e := range t.Elems {
			parts[i] = Format(in, e)
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case KindUnion:
		parts := make([]string, len(t.Elems))
		for i, e := range t.Elems {
			parts[i] = Format(in, e)
		}
		return strings.Join(parts, " | ")
	case KindString:
		return reprName("String", t.Repr)
	case KindBytes:
		return reprName("Bytes", t.Repr)
	case KindPathType:
		if len(t.Args) == 0 {
			return t.Path
		}
		parts := make([]string, len(t.Args))
		for i, a := range t.Args {
			parts[i] = Format(in, a)
		}
		return fmt.Sprintf("%s<%s>", t.Path, strings.Join(parts, ", "))
	case KindDynamic:
		return "dyn " + t.Path
	case KindModalState:
		return fmt.Sprintf("%s@%s", t.Path, t.State)
	case KindFunc:
		parts := make([]string, len(t.Elems))
		for i, e := range t.Elems {
			parts[i] = Format(in, e)
		}
		return fmt.Sprintf("func(%s) -> %s", strings.Join(parts, ", "), Format(in, t.Ret))
	case KindRange:
		return "Range"
	case KindPerm:
		return fmt.Sprintf("%s %s", t.Perm, Format(in, t.Elem))
	default:
		return "<invalid>"
	}
}

func reprName(base string, r StringRepr) string {
	switch r {
	case StringView:
		return base + "@View"
	case StringManaged:
		return base + "@Managed"
	default:
		return base
	}
}
