package types

// Interner deduplicates Type values into stable TypeIDs. Shared read-only
// by every phase after P3 finishes; constructing it is the only place
// Type values are compared structurally.
type Interner struct {
	types []Type
	ids   map[string]TypeID

	prims map[Prim]TypeID
}

// NewInterner creates an Interner pre-populated with the primitive table
// and the union/tuple "invalid" sentinel at NoType.
func NewInterner() *Interner {
	in := &Interner{ids: make(map[string]TypeID), prims: make(map[Prim]TypeID)}
	in.types = append(in.types, Type{Kind: KindInvalid}) // NoType == 0
	in.ids[Type{Kind: KindInvalid}.key()] = NoType
	for p := PrimBool; p <= PrimNever; p++ {
		in.prims[p] = in.intern(Type{Kind: KindPrim, Prim: p})
	}
	return in
}

func (in *Interner) intern(t Type) TypeID {
	k := t.key()
	if id, ok := in.ids[k]; ok {
		return id
	}
	id := TypeID(len(in.types))
	in.types = append(in.types, t)
	in.ids[k] = id
	return id
}

// Get returns the Type value for an id.
func (in *Interner) Get(id TypeID) Type { return in.types[id] }

// PrimT returns (interning if needed) the TypeID for a primitive.
func (in *Interner) PrimT(p Prim) TypeID {
	if id, ok := in.prims[p]; ok {
		return id
	}
	return in.intern(Type{Kind: KindPrim, Prim: p})
}

func (in *Interner) Ptr(elem TypeID, state PtrState) TypeID {
	return in.intern(Type{Kind: KindPtr, Elem: elem, PtrState: state})
}

func (in *Interner) RawPtr(q RawQual, elem TypeID) TypeID {
	return in.intern(Type{Kind: KindRawPtr, RawQual: q, Elem: elem})
}

func (in *Interner) Slice(elem TypeID) TypeID {
	return in.intern(Type{Kind: KindSlice, Elem: elem})
}

func (in *Interner) Array(elem TypeID, length uint64) TypeID {
	return in.intern(Type{Kind: KindArray, Elem: elem, ArrayLen: length})
}

func (in *Interner) Tuple(elems ...TypeID) TypeID {
	cp := append([]TypeID(nil), elems...)
	return in.intern(Type{Kind: KindTuple, Elems: cp})
}

// Union builds a Union(members) type. Per spec.md §3 members are an
// unordered set of >=2 non-union types; flattening nested unions and
// deduping is the caller's (type checker's) job via NormalizeUnion.
func (in *Interner) Union(members ...TypeID) TypeID {
	cp := append([]TypeID(nil), members...)
	return in.intern(Type{Kind: KindUnion, Elems: cp})
}

func (in *Interner) StringT(repr StringRepr) TypeID {
	return in.intern(Type{Kind: KindString, Repr: repr})
}

func (in *Interner) BytesT(repr StringRepr) TypeID {
	return in.intern(Type{Kind: KindBytes, Repr: repr})
}

func (in *Interner) PathType(path string, args ...TypeID) TypeID {
	cp := append([]TypeID(nil), args...)
	return in.intern(Type{Kind: KindPathType, Path: path, Args: cp})
}

func (in *Interner) Dynamic(classPath string) TypeID {
	return in.intern(Type{Kind: KindDynamic, Path: classPath})
}

func (in *Interner) ModalState(path, state string) TypeID {
	return in.intern(Type{Kind: KindModalState, Path: path, State: state})
}

func (in *Interner) Func(params []TypeID, ret TypeID) TypeID {
	cp := append([]TypeID(nil), params...)
	return in.intern(Type{Kind: KindFunc, Elems: cp, Ret: ret})
}

func (in *Interner) Range() TypeID {
	return in.intern(Type{Kind: KindRange})
}

func (in *Interner) Perm(p Permission, base TypeID) TypeID {
	return in.intern(Type{Kind: KindPerm, Perm: p, Elem: base})
}

// Unwrap strips a Perm wrapper, if present, returning the base type and the
// permission (PermUnique, i.e. "no restriction noted", if t was not a Perm).
func (in *Interner) Unwrap(id TypeID) (TypeID, Permission) {
	t := in.Get(id)
	if t.Kind == KindPerm {
		return t.Elem, t.Perm
	}
	return id, PermUnique
}
