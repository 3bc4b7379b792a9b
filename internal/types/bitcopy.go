package types

// BitcopyQuery answers whether a nominal PathType implements the Bitcopy
// class. It is supplied by the symbol table (Σ knows which records declare
// `impl Bitcopy for T`); the types package stays free of a symbols import.
type BitcopyQuery func(path string) bool

// IsBitcopy reports whether values of type id may be used by value at a
// place without an explicit 'move' (spec.md §3, "Bitcopy-like types").
// Primitives, pointers (Ptr and RawPtr) are always Bitcopy. Tuples/arrays
// of Bitcopy elements are Bitcopy. Everything else defers to query.
func IsBitcopy(in *Interner, id TypeID, query BitcopyQuery) bool {
	t := in.Get(id)
	switch t.Kind {
	case KindPrim, KindPtr, KindRawPtr:
		return true
	case KindArray:
		return IsBitcopy(in, t.Elem, query)
	case KindTuple:
		for _, e := range t.Elems {
			if !IsBitcopy(in, e, query) {
				return false
			}
		}
		return true
	case KindPathType:
		if query == nil {
			return false
		}
		return query(t.Path)
	default:
		return false
	}
}
