package sema

import (
	"cursive0/internal/ast"
	"cursive0/internal/diag"
	"cursive0/internal/symbols"
	"cursive0/internal/types"
)

var primByName = map[string]types.Prim{
	"bool": types.PrimBool, "char": types.PrimChar,
	"i8": types.PrimI8, "i16": types.PrimI16, "i32": types.PrimI32, "i64": types.PrimI64,
	"u8": types.PrimU8, "u16": types.PrimU16, "u32": types.PrimU32, "u64": types.PrimU64,
	"usize": types.PrimUsize, "f32": types.PrimF32, "f64": types.PrimF64,
	"()": types.PrimUnit, "!": types.PrimNever,
}

// resolveType lowers a syntactic type to an interned τ. Unresolvable
// types come back as NoType with a diagnostic already emitted by the P2
// resolver; sema stays quiet about them to avoid cascades.
func (c *checker) resolveType(t ast.TypeExpr) types.TypeID {
	switch ty := t.(type) {
	case *ast.PrimTypeExpr:
		if p, ok := primByName[ty.Name]; ok {
			return c.types.PrimT(p)
		}
		return types.NoType
	case *ast.PtrTypeExpr:
		state := types.PtrValid
		switch ty.State {
		case "Null":
			state = types.PtrNull
		case "Expired":
			state = types.PtrExpired
		}
		return c.types.Ptr(c.resolveType(ty.Elem), state)
	case *ast.RawPtrTypeExpr:
		q := types.RawImm
		if ty.Mut {
			q = types.RawMut
		}
		return c.types.RawPtr(q, c.resolveType(ty.Elem))
	case *ast.SliceTypeExpr:
		return c.types.Slice(c.resolveType(ty.Elem))
	case *ast.ArrayTypeExpr:
		n, ok := c.constEvalUint(ty.Len)
		if !ok {
			c.errorf(diag.ErrUnsupportedForm, ty.Len.ExprSpan(), "array length must be a constant expression")
			return types.NoType
		}
		return c.types.Array(c.resolveType(ty.Elem), n)
	case *ast.TupleTypeExpr:
		elems := make([]types.TypeID, len(ty.Elems))
		for i, e := range ty.Elems {
			elems[i] = c.resolveType(e)
		}
		return c.types.Tuple(elems...)
	case *ast.UnionTypeExpr:
		members := make([]types.TypeID, len(ty.Members))
		for i, m := range ty.Members {
			members[i] = c.resolveType(m)
		}
		return types.NormalizeUnion(c.types, members)
	case *ast.StringTypeExpr:
		repr := types.StringPolymorphic
		switch ty.Repr {
		case "View":
			repr = types.StringView
		case "Managed":
			repr = types.StringManaged
		}
		if ty.Bytes {
			return c.types.BytesT(repr)
		}
		return c.types.StringT(repr)
	case *ast.PathTypeExpr:
		return c.resolvePathType(ty)
	case *ast.DynTypeExpr:
		if d := c.lookupType(t); d != nil {
			return c.types.Dynamic(d.PathKey)
		}
		return types.NoType
	case *ast.ModalStateTypeExpr:
		if d := c.lookupType(t); d != nil {
			return c.types.ModalState(d.PathKey, ty.State)
		}
		return types.NoType
	case *ast.FuncTypeExpr:
		params := make([]types.TypeID, len(ty.Params))
		for i, p := range ty.Params {
			params[i] = c.resolveType(p)
		}
		ret := c.types.PrimT(types.PrimUnit)
		if ty.Ret != nil {
			ret = c.resolveType(ty.Ret)
		}
		return c.types.Func(params, ret)
	case *ast.PermTypeExpr:
		perm := types.PermShared
		switch ty.Perm {
		case "const":
			perm = types.PermConst
		case "unique":
			perm = types.PermUnique
		}
		return c.types.Perm(perm, c.resolveType(ty.Base))
	case *ast.CapabilityTypeExpr:
		if d := c.lookupType(t); d != nil {
			return c.types.Dynamic(d.PathKey)
		}
		return types.NoType
	}
	return types.NoType
}

// resolvePathType handles named types: aliases expand, generic records
// and enums instantiate, the async aliases desugar to cursive::Async, and
// a bare generic formal becomes a placeholder PathType.
func (c *checker) resolvePathType(ty *ast.PathTypeExpr) types.TypeID {
	d := c.lookupType(ty)
	if d == nil {
		// A bare single-segment name with no binding is a generic formal
		// placeholder inside a generic declaration body.
		if len(ty.Path.Segments) == 1 && len(ty.Args) == 0 {
			return c.types.PathType(ty.Path.Segments[0].Name)
		}
		return types.NoType
	}

	args := make([]types.TypeID, len(ty.Args))
	for i, a := range ty.Args {
		args[i] = c.resolveType(a)
	}

	switch d.Kind {
	case symbols.DeclTypeAlias:
		target := c.resolveType(d.Alias.Target)
		if len(args) > 0 {
			c.errorf(diag.ErrUnsupportedForm, ty.Span, "type aliases take no generic arguments")
		}
		return target
	case symbols.DeclBuiltin:
		return c.resolveBuiltinType(d.Name, args, ty)
	case symbols.DeclRecord:
		if len(d.Record.Generics) != len(args) {
			if len(d.Record.Generics) > 0 {
				c.errorf(diag.ErrUnsupportedForm, ty.Span,
					"generic type %s requires full instantiation (%d arguments)", d.Name, len(d.Record.Generics))
				return types.NoType
			}
		}
		return c.types.PathType(d.PathKey, args...)
	case symbols.DeclEnum:
		if len(d.Enum.Generics) > 0 && len(d.Enum.Generics) != len(args) {
			c.errorf(diag.ErrUnsupportedForm, ty.Span,
				"generic type %s requires full instantiation (%d arguments)", d.Name, len(d.Enum.Generics))
			return types.NoType
		}
		return c.types.PathType(d.PathKey, args...)
	case symbols.DeclModal:
		return c.types.PathType(d.PathKey)
	case symbols.DeclClass:
		return c.types.Dynamic(d.PathKey)
	}
	return types.NoType
}

// resolveBuiltinType desugars the async aliases onto cursive::Async and
// passes the built-in modals through as path types.
func (c *checker) resolveBuiltinType(name string, args []types.TypeID, ty *ast.PathTypeExpr) types.TypeID {
	unit := c.types.PrimT(types.PrimUnit)
	never := c.types.PrimT(types.PrimNever)
	asyncKey := symbols.BuiltinModule + "::Async"
	switch name {
	case "Async":
		if len(args) != 4 {
			c.errorf(diag.ErrUnsupportedForm, ty.Span, "Async takes four type arguments")
			return types.NoType
		}
		return c.types.PathType(asyncKey, args...)
	case "Future":
		// Future<T,E> = Async<(),(),T,E>
		if len(args) != 2 {
			c.errorf(diag.ErrUnsupportedForm, ty.Span, "Future takes two type arguments")
			return types.NoType
		}
		return c.types.PathType(asyncKey, unit, unit, args[0], args[1])
	case "Stream":
		// Stream<T,E> = Async<T,(),(),E>
		if len(args) != 2 {
			c.errorf(diag.ErrUnsupportedForm, ty.Span, "Stream takes two type arguments")
			return types.NoType
		}
		return c.types.PathType(asyncKey, args[0], unit, unit, args[1])
	case "Sequence":
		// Sequence<T> = Async<T,(),(),!>
		if len(args) != 1 {
			c.errorf(diag.ErrUnsupportedForm, ty.Span, "Sequence takes one type argument")
			return types.NoType
		}
		return c.types.PathType(asyncKey, args[0], unit, unit, never)
	case "Range":
		return c.types.Range()
	default:
		return c.types.PathType(symbols.BuiltinModule+"::"+name, args...)
	}
}

// asyncParams unpacks a cursive::Async instantiation into (Out, In,
// Result, E), reporting ok=false for non-async types.
func (c *checker) asyncParams(id types.TypeID) (out, in, result, errT types.TypeID, ok bool) {
	t := c.types.Get(id)
	if t.Kind != types.KindPathType || t.Path != symbols.BuiltinModule+"::Async" || len(t.Args) != 4 {
		return 0, 0, 0, 0, false
	}
	return t.Args[0], t.Args[1], t.Args[2], t.Args[3], true
}

// spawnedElem unpacks cursive::Spawned<T>.
func (c *checker) spawnedElem(id types.TypeID) (types.TypeID, bool) {
	t := c.types.Get(id)
	if t.Kind == types.KindPathType && t.Path == symbols.BuiltinModule+"::Spawned" && len(t.Args) == 1 {
		return t.Args[0], true
	}
	if t.Kind == types.KindModalState && t.Path == symbols.BuiltinModule+"::Spawned" {
		return types.NoType, true
	}
	return types.NoType, false
}
