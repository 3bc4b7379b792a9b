package sema

import (
	"cursive0/internal/ast"
	"cursive0/internal/diag"
	"cursive0/internal/symbols"
	"cursive0/internal/types"
)

// inferCall types callee(args...). Direct procedure calls, enum-variant
// construction, and function-typed value calls all route through here.
func (c *checker) inferCall(x *ast.CallExpr, e ast.Expr, expected types.TypeID) types.TypeID {
	// Enum variant construction and direct calls resolve through Σ.
	if d := c.lookupDecl(x.Callee); d != nil {
		switch d.Kind {
		case symbols.DeclProcedure, symbols.DeclExternProc:
			return c.setTau(e, c.checkDirectCall(d, x))
		case symbols.DeclVariant:
			return c.setTau(e, c.checkVariantCall(d, x))
		}
	}
	calleeT := c.inferExpr(x.Callee, types.NoType)
	base, _ := c.types.Unwrap(calleeT)
	t := c.types.Get(base)
	if t.Kind != types.KindFunc {
		if base != types.NoType {
			c.errorf(diag.ErrNotCallable, x.Callee.ExprSpan(), "%s", types.Format(c.types, calleeT))
		}
		for _, a := range x.Args {
			c.inferExpr(a, types.NoType)
		}
		return c.setTau(e, types.NoType)
	}
	c.checkArgs(x, t.Elems, nil)
	return c.setTau(e, t.Ret)
}

// checkDirectCall types a call to a known procedure, enforcing parameter
// modes, permissions, and the capability requirement at the call site.
func (c *checker) checkDirectCall(d *symbols.Decl, x *ast.CallExpr) types.TypeID {
	sig := c.typed.Sigs[d.Proc]
	if sig == nil {
		for _, a := range x.Args {
			c.inferExpr(a, types.NoType)
		}
		return types.NoType
	}
	c.setTau(x.Callee, c.declValueType(d, x.Callee))

	paramTypes := make([]types.TypeID, len(sig.Params))
	modes := make([]ParamMode, len(sig.Params))
	for i, p := range sig.Params {
		paramTypes[i] = p.Type
		modes[i] = p.Mode
	}
	c.checkArgs(x, paramTypes, modes)

	// Capability flow: record the call edge for the fixed point and the
	// site for the post-closure re-check.
	if c.sig != nil {
		edges := c.callEdges[c.sig.PathKey]
		if edges == nil {
			edges = make(map[string]bool)
			c.callEdges[c.sig.PathKey] = edges
		}
		edges[sig.PathKey] = true
		c.capSites = append(c.capSites, capSite{caller: c.sig.PathKey, callee: sig.PathKey, span: x.Span})
	}
	return sig.Ret
}

func (c *checker) checkVariantCall(d *symbols.Decl, x *ast.CallExpr) types.TypeID {
	v := d.VariantOf.Variants[d.VariantIndex]
	enumKey := d.PathKey[:len(d.PathKey)-len(d.Name)-2]
	if len(x.Args) != len(v.Elems) {
		c.errorf(diag.ErrArityMismatch, x.Span, "variant %s takes %d values, got %d",
			d.Name, len(v.Elems), len(x.Args))
	}
	for i, a := range x.Args {
		want := types.NoType
		if i < len(v.Elems) {
			want = c.resolveType(v.Elems[i])
		}
		got := c.inferExpr(a, want)
		if want != types.NoType {
			c.requireAssignable(got, want, a.ExprSpan())
		}
	}
	c.setTau(x.Callee, c.declValueType(d, x.Callee))
	return c.types.PathType(enumKey)
}

// checkArgs types each argument against its parameter. Borrow-mode
// parameters take their argument as a place (no move required); move-mode
// parameters consume a value and enforce the move discipline.
func (c *checker) checkArgs(x *ast.CallExpr, params []types.TypeID, modes []ParamMode) {
	if len(x.Args) != len(params) {
		c.errorf(diag.ErrArityMismatch, x.Span, "expected %d, got %d", len(params), len(x.Args))
	}
	for i, a := range x.Args {
		if i >= len(params) {
			c.inferExpr(a, types.NoType)
			continue
		}
		want := params[i]
		mode := ModeBorrow
		if modes != nil {
			mode = modes[i]
		}
		if mode == ModeBorrow && isPlaceExpr(a) {
			got, _, _ := c.inferPlace(a)
			c.keyAccess(a, false)
			c.requireAssignable(got, want, a.ExprSpan())
			continue
		}
		got := c.inferExpr(a, want)
		c.requireAssignable(got, want, a.ExprSpan())
		if mode == ModeMove {
			c.requireMoveDiscipline(a, want)
		}
	}
}

// isPlaceExpr mirrors the syntactic place judgment without typing.
func isPlaceExpr(e ast.Expr) bool {
	switch x := e.(type) {
	case *ast.IdentExpr:
		return true
	case *ast.FieldExpr:
		return isPlaceExpr(x.X)
	case *ast.IndexExpr:
		return isPlaceExpr(x.X)
	case *ast.DerefExpr:
		return isPlaceExpr(x.X)
	default:
		return false
	}
}

// inferMethodCall types recv.name(args...): direct record methods first,
// then class methods for implementing receivers, dyn-class dispatch, and
// the built-in modal methods.
func (c *checker) inferMethodCall(x *ast.MethodCallExpr, e ast.Expr) types.TypeID {
	recvT, recvPerm, _ := c.inferPlace(x.Recv)
	c.keyAccess(x.Recv, false)
	base, wrapperPerm := c.types.Unwrap(recvT)
	if c.types.Get(recvT).Kind == types.KindPerm {
		recvPerm = wrapperPerm
	}
	t := c.types.Get(base)

	switch t.Kind {
	case types.KindPathType:
		if bt := c.builtinMethod(t, x, e, recvPerm); bt != types.NoType {
			return c.setTau(e, bt)
		}
		return c.setTau(e, c.recordMethod(t, x, recvPerm))
	case types.KindModalState:
		return c.setTau(e, c.modalMethod(t, x, recvPerm))
	case types.KindDynamic:
		return c.setTau(e, c.dynMethod(t, x, recvPerm))
	default:
		c.errorf(diag.ErrUnresolvedName, x.Name.Span, "type %s has no method %q",
			types.Format(c.types, base), x.Name.Name)
		for _, a := range x.Args {
			c.inferExpr(a, types.NoType)
		}
		return c.setTau(e, types.NoType)
	}
}

func (c *checker) recordMethod(t types.Type, x *ast.MethodCallExpr, recvPerm types.Permission) types.TypeID {
	d, ok := c.table.Lookup(t.Path)
	if !ok || d.Record == nil {
		c.errorf(diag.ErrUnresolvedName, x.Name.Span, "%s has no method %q", t.Path, x.Name.Name)
		return types.NoType
	}
	for _, m := range d.Record.Methods {
		if m.Name.Name == x.Name.Name {
			return c.applyMethod(m, x, recvPerm)
		}
	}
	// Class methods: search every implemented class; two unrelated
	// classes providing the name is an ambiguity.
	var candidates []*ast.ProcedureDecl
	for _, clsPath := range d.Record.Classes {
		clsDecl := c.findClassDecl(clsPath.Last().Name)
		if clsDecl == nil {
			continue
		}
		for _, m := range clsDecl.Methods {
			if m.Name.Name == x.Name.Name {
				candidates = append(candidates, m)
			}
		}
	}
	switch len(candidates) {
	case 0:
		c.errorf(diag.ErrUnresolvedName, x.Name.Span, "%s has no method %q", t.Path, x.Name.Name)
		return types.NoType
	case 1:
		return c.applyMethod(candidates[0], x, recvPerm)
	default:
		c.errorf(diag.ErrLookupMethodAmbig, x.Name.Span, "%q", x.Name.Name)
		return types.NoType
	}
}

func (c *checker) modalMethod(t types.Type, x *ast.MethodCallExpr, recvPerm types.Permission) types.TypeID {
	if bt := c.builtinModalMethod(t, x, recvPerm); bt != types.NoType {
		return bt
	}
	d, ok := c.table.Lookup(t.Path)
	if !ok || d.Modal == nil {
		c.errorf(diag.ErrUnresolvedName, x.Name.Span, "%s has no method %q", t.Path, x.Name.Name)
		return types.NoType
	}
	for _, st := range d.Modal.States {
		if st.Name.Name != t.State {
			continue
		}
		for _, m := range st.Methods {
			if m.Name.Name == x.Name.Name {
				return c.applyMethod(m, x, recvPerm)
			}
		}
	}
	c.errorf(diag.ErrUnresolvedName, x.Name.Span, "%s@%s has no method %q", t.Path, t.State, x.Name.Name)
	return types.NoType
}

func (c *checker) dynMethod(t types.Type, x *ast.MethodCallExpr, recvPerm types.Permission) types.TypeID {
	d, ok := c.table.Lookup(t.Path)
	if !ok || d.Class == nil {
		c.errorf(diag.ErrUnresolvedName, x.Name.Span, "class %s has no method %q", t.Path, x.Name.Name)
		return types.NoType
	}
	for _, m := range d.Class.Methods {
		if m.Name.Name == x.Name.Name {
			return c.applyMethod(m, x, recvPerm)
		}
	}
	c.errorf(diag.ErrUnresolvedName, x.Name.Span, "class %s has no method %q", t.Path, x.Name.Name)
	return types.NoType
}

// applyMethod checks the receiver permission against the declared
// shorthand and types the argument list.
func (c *checker) applyMethod(m *ast.ProcedureDecl, x *ast.MethodCallExpr, recvPerm types.Permission) types.TypeID {
	sig := c.typed.Sigs[m]
	if sig == nil {
		for _, a := range x.Args {
			c.inferExpr(a, types.NoType)
		}
		return types.NoType
	}
	if m.Receiver != nil && !recvPerm.Satisfies(sig.RecvPerm) {
		c.errorf(diag.ErrPermissionTooWeak, x.Name.Span,
			"receiver permission %s does not satisfy required %s", recvPerm, sig.RecvPerm)
	}
	if m.Receiver != nil && sig.RecvPerm == types.PermUnique {
		c.keyAccess(x.Recv, true)
		if c.inContract {
			c.errorf(diag.ErrContractNotPure, x.Name.Span, "call to %q, which takes a unique receiver", x.Name.Name)
		}
	}
	if m.Receiver != nil && m.Receiver.Transition {
		// Transition methods consume the receiver.
		if b, ok := rootBinding(c.env, x.Recv); ok {
			b.Moved = true
		}
	}
	paramTypes := make([]types.TypeID, len(sig.Params))
	modes := make([]ParamMode, len(sig.Params))
	for i, p := range sig.Params {
		paramTypes[i] = p.Type
		modes[i] = p.Mode
	}
	call := &ast.CallExpr{Callee: x.Recv, Args: x.Args, Span: x.Span}
	c.checkArgs(call, paramTypes, modes)

	if c.sig != nil {
		edges := c.callEdges[c.sig.PathKey]
		if edges == nil {
			edges = make(map[string]bool)
			c.callEdges[c.sig.PathKey] = edges
		}
		edges[sig.PathKey] = true
		c.capSites = append(c.capSites, capSite{caller: c.sig.PathKey, callee: sig.PathKey, span: x.Span})
	}
	return sig.Ret
}

// rootBinding finds the environment binding at the root of a place chain.
func rootBinding(env *TypeEnv, e ast.Expr) (*TypeBinding, bool) {
	switch x := e.(type) {
	case *ast.IdentExpr:
		return env.Lookup(x.Name)
	case *ast.FieldExpr:
		return rootBinding(env, x.X)
	case *ast.IndexExpr:
		return rootBinding(env, x.X)
	case *ast.DerefExpr:
		return rootBinding(env, x.X)
	}
	return nil, false
}
