package types

// Substitute replaces every occurrence of a formal generic parameter
// (identified by its PathType name with no args, e.g. "T") with the
// corresponding actual from `bind` inside id, reinterning the result.
// Cursive0's conservative subset requires every generic nominal type to be
// fully instantiated at each use site (SPEC_FULL.md, "Generics"), so this
// is the only substitution machinery the compiler needs — there is no
// separate monomorphization IR pass.
func Substitute(in *Interner, id TypeID, bind map[string]TypeID) TypeID {
	t := in.Get(id)
	switch t.Kind {
	case KindPathType:
		if len(t.Args) == 0 {
			if actual, ok := bind[t.Path]; ok {
				return actual
			}
			return id
		}
		args := make([]TypeID, len(t.Args))
		changed := false
		for i, a := range t.Args {
			args[i] = Substitute(in, a, bind)
			changed = changed || args[i] != a
		}
		if !changed {
			return id
		}
		return in.PathType(t.Path, args...)
	case KindPtr:
		elem := Substitute(in, t.Elem, bind)
		if elem == t.Elem {
			return id
		}
		return in.Ptr(elem, t.PtrState)
	case KindRawPtr:
		elem := Substitute(in, t.Elem, bind)
		if elem == t.Elem {
			return id
		}
		return in.RawPtr(t.RawQual, elem)
	case KindSlice:
		elem := Substitute(in, t.Elem, bind)
		if elem == t.Elem {
			return id
		}
		return in.Slice(elem)
	case KindArray:
		elem := Substitute(in, t.Elem, bind)
		if elem == t.Elem {
			return id
		}
		return in.Array(elem, t.ArrayLen)
	case KindTuple:
		elems := substSlice(in, t.Elems, bind)
		if sameSlice(elems, t.Elems) {
			return id
		}
		return in.Tuple(elems...)
	case KindUnion:
		elems := substSlice(in, t.Elems, bind)
		if sameSlice(elems, t.Elems) {
			return id
		}
		return NormalizeUnion(in, elems)
	case KindFunc:
		elems := substSlice(in, t.Elems, bind)
		ret := Substitute(in, t.Ret, bind)
		if sameSlice(elems, t.Elems) && ret == t.Ret {
			return id
		}
		return in.Func(elems, ret)
	case KindPerm:
		base := Substitute(in, t.Elem, bind)
		if base == t.Elem {
			return id
		}
		return in.Perm(t.Perm, base)
	default:
		return id
	}
}

func substSlice(in *Interner, ids []TypeID, bind map[string]TypeID) []TypeID {
	out := make([]TypeID, len(ids))
	for i, id := range ids {
		out[i] = Substitute(in, id, bind)
	}
	return out
}

func sameSlice(a, b []TypeID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
