package sema

import (
	"strconv"
	"strings"

	"cursive0/internal/ast"
	"cursive0/internal/diag"
	"cursive0/internal/symbols"
	"cursive0/internal/types"
)

// inferExpr is the value-form judgment Γ ⊢ e ⇒ τ. expected threads the
// bidirectional hint used by literal defaulting and null typing; NoType
// means unconstrained.
func (c *checker) inferExpr(e ast.Expr, expected types.TypeID) types.TypeID {
	switch x := e.(type) {
	case *ast.IntLitExpr:
		return c.setTau(e, c.intLitType(x, expected))
	case *ast.FloatLitExpr:
		t := c.types.PrimT(types.PrimF64)
		if expected != types.NoType {
			et := c.types.Get(expected)
			if et.Kind == types.KindPrim && et.Prim.IsFloat() {
				t = expected
			}
		}
		return c.setTau(e, t)
	case *ast.CharLitExpr:
		return c.setTau(e, c.types.PrimT(types.PrimChar))
	case *ast.StringLitExpr:
		return c.setTau(e, c.types.StringT(types.StringView))
	case *ast.BoolLitExpr:
		return c.setTau(e, c.boolT())
	case *ast.UnitLitExpr:
		return c.setTau(e, c.unit())
	case *ast.NullLitExpr:
		// null is Ptr<T>@Null for the expected element type.
		if expected != types.NoType {
			et := c.types.Get(expected)
			if et.Kind == types.KindPtr {
				return c.setTau(e, c.types.Ptr(et.Elem, types.PtrNull))
			}
		}
		return c.setTau(e, c.types.Ptr(c.unit(), types.PtrNull))
	case *ast.IdentExpr:
		return c.inferIdent(x, e)
	case *ast.PathExpr:
		return c.inferPathExpr(x, e)
	case *ast.FieldExpr:
		t, _, _ := c.inferPlace(e)
		c.keyAccess(e, false)
		c.checkValueUse(e, t)
		return t
	case *ast.IndexExpr:
		t, _, _ := c.inferPlace(e)
		c.keyAccess(e, false)
		c.checkValueUse(e, t)
		return t
	case *ast.CallExpr:
		return c.inferCall(x, e, expected)
	case *ast.MethodCallExpr:
		return c.inferMethodCall(x, e)
	case *ast.UnaryExpr:
		return c.inferUnary(x, e, expected)
	case *ast.BinaryExpr:
		return c.inferBinary(x, e, expected)
	case *ast.AddrOfExpr:
		t, _, isPlace := c.inferPlace(x.X)
		if !isPlace {
			c.errorf(diag.ErrNotAPlace, x.X.ExprSpan(), "'&' requires an addressable place")
		}
		base, _ := c.types.Unwrap(t)
		return c.setTau(e, c.types.Ptr(base, types.PtrValid))
	case *ast.DerefExpr:
		t, _, _ := c.inferPlace(e)
		c.checkValueUse(e, t)
		base, _ := c.types.Unwrap(t)
		return c.setTau(e, base)
	case *ast.CastExpr:
		return c.inferCast(x, e)
	case *ast.TransmuteExpr:
		return c.inferTransmute(x, e)
	case *ast.MoveExpr:
		t, _, isPlace := c.inferPlace(x.X)
		if !isPlace {
			c.errorf(diag.ErrNotAPlace, x.X.ExprSpan(), "'move' requires a place")
		}
		if b, ok := rootBinding(c.env, x.X); ok {
			b.Moved = true
		}
		base, _ := c.types.Unwrap(t)
		return c.setTau(e, base)
	case *ast.IfExpr:
		return c.inferIf(x, e, expected)
	case *ast.MatchExpr:
		return c.inferMatch(x, e, expected)
	case *ast.BlockExpr:
		t := c.checkBlock(x.Block, expected)
		return c.setTau(e, t)
	case *ast.RecordLitExpr:
		return c.inferRecordLit(x, e)
	case *ast.ModalLitExpr:
		return c.inferModalLit(x, e)
	case *ast.TupleExpr:
		elems := make([]types.TypeID, len(x.Elems))
		for i, el := range x.Elems {
			elems[i] = c.inferExpr(el, types.NoType)
		}
		return c.setTau(e, c.types.Tuple(elems...))
	case *ast.RangeExpr:
		if x.Lo != nil {
			loT := c.inferExpr(x.Lo, c.usize())
			c.requireAssignable(loT, c.usize(), x.Lo.ExprSpan())
		}
		if x.Hi != nil {
			hiT := c.inferExpr(x.Hi, c.usize())
			c.requireAssignable(hiT, c.usize(), x.Hi.ExprSpan())
		}
		return c.setTau(e, c.types.Range())
	case *ast.AllocExpr:
		return c.inferAlloc(x, e)
	case *ast.PropagateExpr:
		return c.inferPropagate(x, e)
	case *ast.SpawnExpr:
		return c.inferSpawn(x, e)
	case *ast.WaitExpr:
		return c.inferWait(x, e)
	case *ast.SyncExpr:
		return c.inferSync(x, e)
	case *ast.RaceExpr:
		return c.inferRace(x, e)
	case *ast.AllExpr:
		return c.inferAll(x, e)
	case *ast.YieldExpr:
		return c.inferYield(x, e)
	case *ast.ParallelExpr:
		return c.inferParallel(x, e)
	case *ast.DispatchExpr:
		return c.inferDispatch(x, e)
	case *ast.ContractResultExpr:
		if !c.inContract {
			c.errorf(diag.ErrContractNotPure, e.ExprSpan(), "@result outside a contract")
			return c.setTau(e, types.NoType)
		}
		return c.setTau(e, c.sigRet())
	case *ast.ContractEntryExpr:
		if !c.inContract {
			c.errorf(diag.ErrContractNotPure, e.ExprSpan(), "@entry outside a contract")
		}
		t := c.inferExpr(x.X, types.NoType)
		if !c.isBitcopy(t) {
			c.errorf(diag.ErrContractNotPure, x.X.ExprSpan(), "@entry requires a Bitcopy-like operand")
		}
		return c.setTau(e, t)
	case *ast.ErrorExpr:
		return c.setTau(e, types.NoType)
	}
	return c.setTau(e, types.NoType)
}

func (c *checker) sigRet() types.TypeID {
	if c.sig != nil {
		return c.sig.Ret
	}
	return types.NoType
}

// checkValueUse enforces the move discipline for place reads in value
// position.
func (c *checker) checkValueUse(e ast.Expr, t types.TypeID) {
	if !c.isBitcopy(t) {
		c.errorf(diag.ErrValueUseNonBitcopy, e.ExprSpan(), "%q", placeString(e))
	}
}

func (c *checker) intLitType(x *ast.IntLitExpr, expected types.TypeID) types.TypeID {
	target := c.types.PrimT(types.PrimI32)
	if expected != types.NoType {
		base, _ := c.types.Unwrap(expected)
		et := c.types.Get(base)
		if et.Kind == types.KindPrim && et.Prim.IsInteger() {
			target = base
		}
	}
	p := c.types.Get(target).Prim
	if !intLitInRange(x.Text, p.IsSigned(), primBits(p)) {
		c.errorf(diag.ErrIntegerRangeCheck, x.Span, "%s", p.String())
	}
	return target
}

func primBits(p types.Prim) uint {
	switch p {
	case types.PrimI8, types.PrimU8:
		return 8
	case types.PrimI16, types.PrimU16:
		return 16
	case types.PrimI32, types.PrimU32:
		return 32
	default:
		return 64
	}
}

func (c *checker) inferIdent(x *ast.IdentExpr, e ast.Expr) types.TypeID {
	if b, ok := c.env.Lookup(x.Name); ok {
		if b.Moved {
			c.errorf(diag.ErrValueUseNonBitcopy, x.Span, "%q (moved out)", x.Name)
		}
		c.keyAccess(e, false)
		if !c.isBitcopy(b.Type) {
			c.errorf(diag.ErrValueUseNonBitcopy, x.Span, "%q", x.Name)
		}
		return c.setTau(e, b.Type)
	}
	d := c.lookupDecl(e)
	if d == nil {
		return c.setTau(e, types.NoType)
	}
	return c.setTau(e, c.declValueType(d, e))
}

func (c *checker) inferPathExpr(x *ast.PathExpr, e ast.Expr) types.TypeID {
	d := c.lookupDecl(e)
	if d == nil {
		return c.setTau(e, types.NoType)
	}
	return c.setTau(e, c.declValueType(d, e))
}

// declValueType types a reference to a Σ entry in value position.
func (c *checker) declValueType(d *symbols.Decl, e ast.Expr) types.TypeID {
	switch d.Kind {
	case symbols.DeclStatic:
		t := c.typed.Statics[d.Static]
		if t == types.NoType {
			t = c.resolveType(d.Static.Type)
		}
		return t
	case symbols.DeclProcedure, symbols.DeclExternProc:
		sig := c.typed.Sigs[d.Proc]
		if sig == nil {
			return types.NoType
		}
		params := make([]types.TypeID, len(sig.Params))
		for i, p := range sig.Params {
			params[i] = p.Type
		}
		return c.types.Func(params, sig.Ret)
	case symbols.DeclVariant:
		enumKey := d.PathKey[:len(d.PathKey)-len(d.Name)-2]
		enumT := c.types.PathType(enumKey)
		v := d.VariantOf.Variants[d.VariantIndex]
		if len(v.Elems) == 0 {
			return enumT
		}
		params := make([]types.TypeID, len(v.Elems))
		for i, el := range v.Elems {
			params[i] = c.resolveType(el)
		}
		return c.types.Func(params, enumT)
	default:
		c.errorf(diag.ErrTypeMismatch, e.ExprSpan(), "%s %q cannot be used as a value",
			d.Kind.String(), d.Name)
		return types.NoType
	}
}

func (c *checker) inferUnary(x *ast.UnaryExpr, e ast.Expr, expected types.TypeID) types.TypeID {
	switch x.Op {
	case ast.UnaryNeg:
		t := c.inferExpr(x.X, expected)
		base, _ := c.types.Unwrap(t)
		bt := c.types.Get(base)
		if bt.Kind != types.KindPrim || (!bt.Prim.IsInteger() && !bt.Prim.IsFloat()) {
			c.errorf(diag.ErrTypeMismatch, x.X.ExprSpan(), "expected a numeric type, found %s",
				types.Format(c.types, t))
		}
		return c.setTau(e, base)
	default: // UnaryNot
		t := c.inferExpr(x.X, c.boolT())
		c.requireAssignable(t, c.boolT(), x.X.ExprSpan())
		return c.setTau(e, c.boolT())
	}
}

func (c *checker) inferBinary(x *ast.BinaryExpr, e ast.Expr, expected types.TypeID) types.TypeID {
	switch x.Op {
	case ast.BinAnd, ast.BinOr:
		lt := c.inferExpr(x.X, c.boolT())
		rt := c.inferExpr(x.Y, c.boolT())
		c.requireAssignable(lt, c.boolT(), x.X.ExprSpan())
		c.requireAssignable(rt, c.boolT(), x.Y.ExprSpan())
		return c.setTau(e, c.boolT())
	case ast.BinEq, ast.BinNe, ast.BinLt, ast.BinLe, ast.BinGt, ast.BinGe:
		lt := c.inferExpr(x.X, types.NoType)
		rt := c.inferExpr(x.Y, lt)
		if !c.assignable(rt, lt) && !c.assignable(lt, rt) {
			c.errorf(diag.ErrTypeMismatch, x.Y.ExprSpan(), "expected %s, found %s",
				types.Format(c.types, lt), types.Format(c.types, rt))
		}
		return c.setTau(e, c.boolT())
	default:
		// Arithmetic, bitwise, shifts: operands unify on the left type.
		lt := c.inferExpr(x.X, expected)
		base, _ := c.types.Unwrap(lt)
		rt := c.inferExpr(x.Y, base)
		c.requireAssignable(rt, base, x.Y.ExprSpan())
		bt := c.types.Get(base)
		if bt.Kind != types.KindPrim || (!bt.Prim.IsInteger() && !bt.Prim.IsFloat()) {
			c.errorf(diag.ErrTypeMismatch, x.X.ExprSpan(), "expected a numeric type, found %s",
				types.Format(c.types, lt))
		}
		return c.setTau(e, base)
	}
}

// inferCast enforces the closed cast table: numeric<->numeric, bool<->int,
// char->u32.
func (c *checker) inferCast(x *ast.CastExpr, e ast.Expr) types.TypeID {
	fromT := c.inferExpr(x.X, types.NoType)
	toT := c.resolveType(x.Type)
	fromBase, _ := c.types.Unwrap(fromT)
	if fromBase == types.NoType || toT == types.NoType {
		return c.setTau(e, toT)
	}
	from, to := c.types.Get(fromBase), c.types.Get(toT)
	ok := false
	if from.Kind == types.KindPrim && to.Kind == types.KindPrim {
		fNum := from.Prim.IsInteger() || from.Prim.IsFloat()
		tNum := to.Prim.IsInteger() || to.Prim.IsFloat()
		switch {
		case fNum && tNum:
			ok = true
		case from.Prim == types.PrimBool && to.Prim.IsInteger():
			ok = true
		case from.Prim.IsInteger() && to.Prim == types.PrimBool:
			ok = true
		case from.Prim == types.PrimChar && to.Prim == types.PrimU32:
			ok = true
		}
	}
	if !ok {
		c.errorf(diag.ErrCastInvalid, e.ExprSpan(), "%s to %s",
			types.Format(c.types, fromT), types.Format(c.types, toT))
	}
	return c.setTau(e, toT)
}

func (c *checker) inferTransmute(x *ast.TransmuteExpr, e ast.Expr) types.TypeID {
	if !c.inUnsafe() {
		c.errorf(diag.ErrUnsafeRequired, e.ExprSpan(), "transmute")
	}
	fromT := c.inferExpr(x.X, types.NoType)
	toT := c.resolveType(x.Type)
	fs, fa, fok := c.typeSizeAlign(fromT)
	ts, ta, tok := c.typeSizeAlign(toT)
	if fok && tok && (fs != ts || fa != ta) {
		c.errorf(diag.ErrTransmuteSizeAlign, e.ExprSpan(),
			"transmute requires matching size and alignment (%d/%d vs %d/%d)", fs, fa, ts, ta)
	}
	return c.setTau(e, toT)
}

func (c *checker) inferIf(x *ast.IfExpr, e ast.Expr, expected types.TypeID) types.TypeID {
	condT := c.inferExpr(x.Cond, c.boolT())
	c.requireAssignable(condT, c.boolT(), x.Cond.ExprSpan())
	thenT := c.checkBlock(x.Then, expected)
	if x.Else == nil {
		if !c.assignable(thenT, c.unit()) && !c.isNever(thenT) {
			c.errorf(diag.ErrIfElseTypeMismatch, x.Then.Span,
				"if without else must produce (), found %s", types.Format(c.types, thenT))
		}
		return c.setTau(e, c.unit())
	}
	elseT := c.inferExpr(x.Else, expected)
	return c.setTau(e, c.join(thenT, elseT))
}

func (c *checker) inferRecordLit(x *ast.RecordLitExpr, e ast.Expr) types.TypeID {
	d := c.lookupDecl(e)
	if d == nil {
		return c.setTau(e, types.NoType)
	}
	if d.Record == nil {
		c.errorf(diag.ErrTypeMismatch, x.Span, "expected a record type, found %s", d.Kind.String())
		return c.setTau(e, types.NoType)
	}
	declared := make(map[string]types.TypeID, len(d.Record.Fields))
	order := make([]string, 0, len(d.Record.Fields))
	for _, f := range d.Record.Fields {
		declared[f.Name.Name] = c.resolveType(f.Type)
		order = append(order, f.Name.Name)
	}
	seen := make(map[string]bool, len(x.Fields))
	for _, init := range x.Fields {
		want, ok := declared[init.Name.Name]
		if !ok {
			c.errorf(diag.ErrUnknownField, init.Span, "%q", init.Name.Name)
			c.inferExpr(init.Value, types.NoType)
			continue
		}
		if seen[init.Name.Name] {
			c.errorf(diag.ErrDuplicateField, init.Span, "%q", init.Name.Name)
		}
		seen[init.Name.Name] = true
		got := c.inferExpr(init.Value, want)
		c.requireAssignable(got, want, init.Value.ExprSpan())
		c.requireMoveDiscipline(init.Value, want)
	}
	var missing []string
	for _, name := range order {
		if !seen[name] {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		c.errorf(diag.ErrMissingField, x.Span, "%s", strings.Join(missing, ", "))
	}
	if len(d.Record.Generics) > 0 {
		c.errorf(diag.ErrUnsupportedForm, x.Span,
			"generic record literals require a fully instantiated type annotation")
	}
	return c.setTau(e, c.types.PathType(d.PathKey))
}

// inferModalLit types M@State { ... }: the field set must cover the
// common prefix plus the state's own fields exactly.
func (c *checker) inferModalLit(x *ast.ModalLitExpr, e ast.Expr) types.TypeID {
	d := c.lookupDecl(e)
	if d == nil || d.Modal == nil {
		if d != nil {
			c.errorf(diag.ErrTypeMismatch, x.Span, "expected a modal type, found %s", d.Kind.String())
		}
		return c.setTau(e, types.NoType)
	}
	var stBlock *ast.StateBlock
	for si := range d.Modal.States {
		if d.Modal.States[si].Name.Name == x.State.Name {
			stBlock = &d.Modal.States[si]
		}
	}
	if stBlock == nil {
		c.errorf(diag.ErrUnresolvedName, x.State.Span, "modal %s has no state %q", d.Name, x.State.Name)
		return c.setTau(e, types.NoType)
	}
	declared := make(map[string]types.TypeID)
	var order []string
	for _, f := range d.Modal.Common {
		declared[f.Name.Name] = c.resolveType(f.Type)
		order = append(order, f.Name.Name)
	}
	for _, f := range stBlock.Fields {
		declared[f.Name.Name] = c.resolveType(f.Type)
		order = append(order, f.Name.Name)
	}
	seen := make(map[string]bool)
	for _, init := range x.Fields {
		want, ok := declared[init.Name.Name]
		if !ok {
			c.errorf(diag.ErrUnknownField, init.Span, "%q", init.Name.Name)
			c.inferExpr(init.Value, types.NoType)
			continue
		}
		if seen[init.Name.Name] {
			c.errorf(diag.ErrDuplicateField, init.Span, "%q", init.Name.Name)
		}
		seen[init.Name.Name] = true
		got := c.inferExpr(init.Value, want)
		c.requireAssignable(got, want, init.Value.ExprSpan())
		c.requireMoveDiscipline(init.Value, want)
	}
	var missing []string
	for _, name := range order {
		if !seen[name] {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		c.errorf(diag.ErrMissingField, x.Span, "%s", strings.Join(missing, ", "))
	}
	return c.setTau(e, c.types.ModalState(d.PathKey, x.State.Name))
}

// inferAlloc types ^expr / ^region<-expr: the value allocates into the
// selected Active region and the result is Ptr<T>@Valid.
func (c *checker) inferAlloc(x *ast.AllocExpr, e ast.Expr) types.TypeID {
	if x.Region.Name != "" {
		b, ok := c.env.Lookup(x.Region.Name)
		if !ok || !b.Region {
			c.errorf(diag.ErrRegionNotActive, x.Region.Span, "%q is not a region", x.Region.Name)
		} else {
			rt := c.types.Get(b.Type)
			if rt.Kind == types.KindModalState && rt.State != "Active" {
				c.errorf(diag.ErrRegionNotActive, x.Region.Span, "region %q is %s", x.Region.Name, rt.State)
			}
		}
	} else {
		active := 0
		for _, r := range c.regions {
			if r.state == "Active" {
				active++
			}
		}
		switch {
		case active == 0:
			c.errorf(diag.ErrAllocNoRegion, x.Span, "'^expr' requires exactly one active region in scope")
		case active > 1:
			c.errorf(diag.ErrAllocAmbiguous, x.Span, "multiple active regions; use '^region<-expr'")
		}
	}
	valT := c.inferExpr(x.Value, types.NoType)
	base, _ := c.types.Unwrap(valT)
	return c.setTau(e, c.types.Ptr(base, types.PtrValid))
}

// inferPropagate types x?: the operand must be Union(T, E...) whose error
// members are all present in the enclosing return union; the result is T.
// T is the first member in declaration order.
func (c *checker) inferPropagate(x *ast.PropagateExpr, e ast.Expr) types.TypeID {
	opT := c.inferExpr(x.X, types.NoType)
	base, _ := c.types.Unwrap(opT)
	t := c.types.Get(base)
	if t.Kind != types.KindUnion || len(t.Elems) < 2 {
		c.errorf(diag.ErrPropagateTypeMismatch, x.X.ExprSpan(),
			"'?' requires a union operand, found %s", types.Format(c.types, opT))
		return c.setTau(e, base)
	}
	payload := t.Elems[0]
	retBase, _ := c.types.Unwrap(c.sigRet())
	for _, errMember := range t.Elems[1:] {
		if !types.UnionContains(c.types, retBase, errMember) {
			c.errorf(diag.ErrPropagateTypeMismatch, e.ExprSpan(),
				"error type %s is not part of the enclosing return union",
				types.Format(c.types, errMember))
		}
	}
	return c.setTau(e, payload)
}

// parseIntText is a shared literal parse used by pattern coverage.
func parseIntText(text string) (int64, bool) {
	v, err := strconv.ParseInt(text, 0, 64)
	return v, err == nil
}
