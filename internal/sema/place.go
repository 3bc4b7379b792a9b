package sema

import (
	"cursive0/internal/ast"
	"cursive0/internal/diag"
	"cursive0/internal/types"
)

// inferPlace is the place-form judgment: the type of e as an
// assignable/addressable place, the permission the place carries, and
// whether e is a place at all. An expression is a place iff it is
// (transitively) an identifier, a field access of a place, an index
// access of a place, or a dereference of a pointer-typed place producer.
func (c *checker) inferPlace(e ast.Expr) (types.TypeID, types.Permission, bool) {
	switch x := e.(type) {
	case *ast.IdentExpr:
		if b, ok := c.env.Lookup(x.Name); ok {
			c.setTau(e, b.Type)
			return b.Type, b.Perm, true
		}
		if d := c.lookupDecl(e); d != nil && d.Static != nil {
			t := c.typed.Statics[d.Static]
			if t == types.NoType {
				t = c.resolveType(d.Static.Type)
			}
			c.setTau(e, t)
			perm := types.PermConst
			if d.Static.Mutable {
				perm = types.PermUnique
			}
			return t, perm, true
		}
		// Fall through to value inference for non-place identifiers.
		t := c.inferExpr(e, types.NoType)
		return t, types.PermConst, false
	case *ast.PathExpr:
		if d := c.lookupDecl(e); d != nil && d.Static != nil {
			t := c.typed.Statics[d.Static]
			c.setTau(e, t)
			perm := types.PermConst
			if d.Static.Mutable {
				perm = types.PermUnique
			}
			return t, perm, true
		}
		t := c.inferExpr(e, types.NoType)
		return t, types.PermConst, false
	case *ast.FieldExpr:
		baseT, basePerm, isPlace := c.inferPlace(x.X)
		fieldT := c.fieldType(baseT, x.Name, e)
		// The permission of the whole propagates to the field.
		c.setTau(e, fieldT)
		return fieldT, basePerm, isPlace
	case *ast.IndexExpr:
		baseT, basePerm, isPlace := c.inferPlace(x.X)
		idxT := c.inferExpr(x.Index, c.usize())
		c.requireAssignable(idxT, c.usize(), x.Index.ExprSpan())
		elemT := c.elemType(baseT, e)
		c.setTau(e, elemT)
		return elemT, basePerm, isPlace
	case *ast.DerefExpr:
		ptrT, _, _ := c.inferPlace(x.X)
		base, _ := c.types.Unwrap(ptrT)
		t := c.types.Get(base)
		switch t.Kind {
		case types.KindPtr:
			switch t.PtrState {
			case types.PtrNull:
				c.errorf(diag.ErrDerefNull, e.ExprSpan(), "dereference of a pointer in the Null state")
			case types.PtrExpired:
				c.errorf(diag.ErrDerefExpired, e.ExprSpan(), "dereference of a pointer in the Expired state")
			}
			c.setTau(e, t.Elem)
			return t.Elem, types.PermUnique, true
		case types.KindRawPtr:
			if !c.inUnsafe() {
				c.errorf(diag.ErrUnsafeRequired, e.ExprSpan(), "raw pointer dereference")
			}
			perm := types.PermConst
			if t.RawQual == types.RawMut {
				perm = types.PermUnique
			}
			// The τ-map records the element type; the Perm wrapper is a
			// place-judgment artifact, not a value type.
			c.setTau(e, t.Elem)
			return c.types.Perm(perm, t.Elem), perm, true
		default:
			c.errorf(diag.ErrTypeMismatch, x.X.ExprSpan(), "expected a pointer, found %s",
				types.Format(c.types, ptrT))
			return types.NoType, types.PermConst, false
		}
	default:
		t := c.inferExpr(e, types.NoType)
		return t, types.PermConst, false
	}
}

// fieldType resolves base.name: record fields (visibility-checked),
// modal common and state fields, and tuple elements are out of scope here
// (tuples index positionally via pattern matching).
func (c *checker) fieldType(baseT types.TypeID, name ast.Ident, at ast.Expr) types.TypeID {
	base, _ := c.types.Unwrap(baseT)
	t := c.types.Get(base)
	switch t.Kind {
	case types.KindPathType:
		d, ok := c.table.Lookup(t.Path)
		if !ok {
			return types.NoType
		}
		switch {
		case d.Record != nil:
			for _, f := range d.Record.Fields {
				if f.Name.Name != name.Name {
					continue
				}
				fd := &symDecl{vis: f.Vis, module: d.Module}
				if !fd.visibleFrom(c.module) {
					c.errorf(diag.ErrVisibilityViolation, name.Span, "field %q", name.Name)
				}
				ft := c.resolveType(f.Type)
				if len(d.Record.Generics) > 0 && len(t.Args) == len(d.Record.Generics) {
					bind := make(map[string]types.TypeID, len(t.Args))
					for i, g := range d.Record.Generics {
						bind[g.Name] = t.Args[i]
					}
					ft = types.Substitute(c.types, ft, bind)
				}
				return ft
			}
			c.errorf(diag.ErrFieldNotFound, name.Span, "%s has no field %q",
				types.Format(c.types, base), name.Name)
			return types.NoType
		case d.Modal != nil:
			// Widened modal type: only common fields are reachable.
			for _, f := range d.Modal.Common {
				if f.Name.Name == name.Name {
					return c.resolveType(f.Type)
				}
			}
			for _, st := range d.Modal.States {
				for _, f := range st.Fields {
					if f.Name.Name == name.Name {
						c.errorf(diag.ErrModalWrongState, name.Span, "%q (declared in state %s)",
							name.Name, st.Name.Name)
						return c.resolveType(f.Type)
					}
				}
			}
			c.errorf(diag.ErrFieldNotFound, name.Span, "%s has no field %q",
				types.Format(c.types, base), name.Name)
			return types.NoType
		case d.Enum != nil:
			c.errorf(diag.ErrFieldNotFound, name.Span,
				"enums have no fields; match on %s instead", d.Name)
			return types.NoType
		}
		return types.NoType
	case types.KindModalState:
		return c.modalStateFieldType(t.Path, t.State, name)
	default:
		c.errorf(diag.ErrFieldNotFound, name.Span, "%s has no field %q",
			types.Format(c.types, base), name.Name)
		return types.NoType
	}
}

// modalStateFieldType looks up a field in a specific state: the state's
// own fields plus the modal's common prefix.
func (c *checker) modalStateFieldType(modalPath, state string, name ast.Ident) types.TypeID {
	d, ok := c.table.Lookup(modalPath)
	if !ok || d.Modal == nil {
		return types.NoType
	}
	for _, f := range d.Modal.Common {
		if f.Name.Name == name.Name {
			return c.resolveType(f.Type)
		}
	}
	for _, st := range d.Modal.States {
		if st.Name.Name != state {
			continue
		}
		for _, f := range st.Fields {
			if f.Name.Name == name.Name {
				return c.resolveType(f.Type)
			}
		}
	}
	c.errorf(diag.ErrFieldNotFound, name.Span, "%s@%s has no field %q", modalPath, state, name.Name)
	return types.NoType
}

// elemType resolves the element type of an indexable base. const-ness of
// the base survives into the element (the caller keeps the base's
// permission).
func (c *checker) elemType(baseT types.TypeID, at ast.Expr) types.TypeID {
	base, _ := c.types.Unwrap(baseT)
	t := c.types.Get(base)
	switch t.Kind {
	case types.KindArray, types.KindSlice:
		return t.Elem
	case types.KindBytes:
		return c.types.PrimT(types.PrimU8)
	default:
		c.errorf(diag.ErrTypeMismatch, at.ExprSpan(), "expected an indexable type, found %s",
			types.Format(c.types, base))
		return types.NoType
	}
}

// symDecl is a tiny helper mirroring Decl.VisibleFrom for record fields,
// which are not Σ entries of their own.
type symDecl struct {
	vis    ast.Visibility
	module string
}

func (d *symDecl) visibleFrom(from string) bool {
	switch d.vis {
	case ast.VisPublic:
		return true
	case ast.VisInternal:
		return assemblyPrefix(d.module) == assemblyPrefix(from)
	default:
		return d.module == from
	}
}

func assemblyPrefix(moduleKey string) string {
	for i := 0; i+1 < len(moduleKey); i++ {
		if moduleKey[i] == ':' && moduleKey[i+1] == ':' {
			return moduleKey[:i]
		}
	}
	return moduleKey
}
