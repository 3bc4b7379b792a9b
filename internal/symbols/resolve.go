package symbols

import (
	"fmt"

	"cursive0/internal/ast"
	"cursive0/internal/diag"
	"cursive0/internal/source"
)

func nospan() source.Span { return source.NoSpan }

// Resolution records, for every identifier and path reference the walk
// visited, the unique Σ entry it binds to. Local bindings (lets, params,
// pattern bindings, loop variables) are not Σ entries and are simply
// skipped here; the type checker gives them types.
type Resolution struct {
	// Refs binds value-position expressions (IdentExpr, PathExpr) to
	// declarations.
	Refs map[ast.Expr]*Decl
	// TypeRefs binds named type expressions to declarations.
	TypeRefs map[ast.TypeExpr]*Decl
}

// Resolve walks every expression and type in every module, binding each
// free identifier and path-prefixed reference to exactly one Σ entry, and
// checking visibility at each reference. P2 succeeds iff the returned
// diagnostics carry no Error severity.
func Resolve(t *Table) (*Resolution, []diag.Diagnostic) {
	r := &resolver{
		table: t,
		res: &Resolution{
			Refs:     make(map[ast.Expr]*Decl),
			TypeRefs: make(map[ast.TypeExpr]*Decl),
		},
	}
	for _, m := range t.Modules {
		r.module = m.PathKey
		r.scope = t.Scope(m.PathKey)
		for _, f := range m.Files {
			for _, item := range f.Items {
				r.item(item)
			}
		}
	}
	return r.res, r.diags
}

type resolver struct {
	table  *Table
	module string
	scope  *ModuleScope
	res    *Resolution
	diags  []diag.Diagnostic

	// locals is a stack of scopes; each scope is the set of names bound
	// locally (parameters, lets, pattern bindings, loop variables).
	locals []map[string]bool

	// generics in scope while resolving a generic record/enum body.
	generics map[string]bool
}

func (r *resolver) errorf(span source.Span, code diag.Code, format string, args ...any) {
	r.diags = append(r.diags, diag.New(code, span, fmt.Sprintf(format, args...)))
}

func (r *resolver) push() { r.locals = append(r.locals, make(map[string]bool)) }
func (r *resolver) pop()  { r.locals = r.locals[:len(r.locals)-1] }

func (r *resolver) bindLocal(name string) {
	if len(r.locals) == 0 {
		r.push()
	}
	r.locals[len(r.locals)-1][name] = true
}

func (r *resolver) isLocal(name string) bool {
	for i := len(r.locals) - 1; i >= 0; i-- {
		if r.locals[i][name] {
			return true
		}
	}
	return false
}

func (r *resolver) item(item ast.Item) {
	switch it := item.(type) {
	case *ast.ProcedureDecl:
		r.procedure(it)
	case *ast.RecordDecl:
		prev := r.generics
		if len(it.Generics) > 0 {
			r.generics = make(map[string]bool)
			for _, g := range it.Generics {
				r.generics[g.Name] = true
			}
		}
		for _, f := range it.Fields {
			r.typeExpr(f.Type)
		}
		for _, m := range it.Methods {
			r.procedure(m)
		}
		for _, c := range it.Classes {
			r.classRef(c)
		}
		r.generics = prev
	case *ast.EnumDecl:
		prev := r.generics
		if len(it.Generics) > 0 {
			r.generics = make(map[string]bool)
			for _, g := range it.Generics {
				r.generics[g.Name] = true
			}
		}
		for _, v := range it.Variants {
			for _, e := range v.Elems {
				r.typeExpr(e)
			}
		}
		r.generics = prev
	case *ast.ModalDecl:
		for _, f := range it.Common {
			r.typeExpr(f.Type)
		}
		for _, s := range it.States {
			for _, f := range s.Fields {
				r.typeExpr(f.Type)
			}
			for _, m := range s.Methods {
				r.procedure(m)
			}
		}
	case *ast.ClassDecl:
		for _, m := range it.Methods {
			r.procedure(m)
		}
	case *ast.TypeAliasDecl:
		r.typeExpr(it.Target)
	case *ast.StaticDecl:
		r.typeExpr(it.Type)
		if it.Value != nil {
			r.expr(it.Value)
		}
	case *ast.ExternBlock:
		for _, proc := range it.Procs {
			r.procedure(proc)
		}
	}
}

func (r *resolver) procedure(p *ast.ProcedureDecl) {
	r.push()
	defer r.pop()
	if p.Receiver != nil {
		r.bindLocal("self")
	}
	for _, param := range p.Params {
		r.typeExpr(param.Type)
		r.bindLocal(param.Name.Name)
	}
	if p.Ret != nil {
		r.typeExpr(p.Ret)
	}
	if p.Contract != nil {
		if p.Contract.Pre != nil {
			r.expr(p.Contract.Pre)
		}
		if p.Contract.Post != nil {
			r.expr(p.Contract.Post)
		}
	}
	if p.Body != nil {
		r.block(p.Body)
	}
}

func (r *resolver) block(b *ast.Block) {
	r.push()
	defer r.pop()
	for _, s := range b.Stmts {
		r.stmt(s)
	}
	if b.Tail != nil {
		r.expr(b.Tail)
	}
}

func (r *resolver) stmt(s ast.Stmt) {
	switch st := s.(type) {
	case *ast.LetStmt:
		if st.Type != nil {
			r.typeExpr(st.Type)
		}
		if st.Value != nil {
			r.expr(st.Value)
		}
		r.bindLocal(st.Name.Name)
	case *ast.AssignStmt:
		r.expr(st.Place)
		r.expr(st.Value)
	case *ast.ExprStmt:
		r.expr(st.X)
	case *ast.ReturnStmt:
		if st.Value != nil {
			r.expr(st.Value)
		}
	case *ast.WhileStmt:
		r.expr(st.Cond)
		r.block(st.Body)
	case *ast.LoopStmt:
		r.block(st.Body)
	case *ast.ForStmt:
		r.expr(st.Iter)
		r.push()
		r.bindLocal(st.Var.Name)
		r.block(st.Body)
		r.pop()
	case *ast.RegionStmt:
		r.push()
		r.bindLocal(st.Name.Name)
		r.block(st.Body)
		r.pop()
	case *ast.UnsafeStmt:
		r.block(st.Body)
	case *ast.KeyBlockStmt:
		for _, k := range st.Keys {
			r.expr(k.Path)
		}
		r.block(st.Body)
	}
}

func (r *resolver) expr(e ast.Expr) {
	switch ex := e.(type) {
	case *ast.IdentExpr:
		if r.isLocal(ex.Name) {
			return
		}
		d := r.lookupName(ex.Name)
		if d == nil {
			r.errorf(ex.Span, diag.ErrUnresolvedName, "%q", ex.Name)
			return
		}
		r.checkVisible(d, ex.Span)
		r.res.Refs[e] = d
	case *ast.PathExpr:
		d := r.lookupPath(ex.Path)
		if d == nil {
			r.errorf(ex.Span, diag.ErrUnresolvedName, "%q", ex.Path.Key())
			return
		}
		r.checkVisible(d, ex.Span)
		r.res.Refs[e] = d
	case *ast.FieldExpr:
		r.expr(ex.X)
	case *ast.IndexExpr:
		r.expr(ex.X)
		r.expr(ex.Index)
	case *ast.CallExpr:
		r.expr(ex.Callee)
		for _, a := range ex.Args {
			r.expr(a)
		}
	case *ast.MethodCallExpr:
		r.expr(ex.Recv)
		for _, a := range ex.Args {
			r.expr(a)
		}
	case *ast.UnaryExpr:
		r.expr(ex.X)
	case *ast.BinaryExpr:
		r.expr(ex.X)
		r.expr(ex.Y)
	case *ast.AddrOfExpr:
		r.expr(ex.X)
	case *ast.DerefExpr:
		r.expr(ex.X)
	case *ast.CastExpr:
		r.expr(ex.X)
		r.typeExpr(ex.Type)
	case *ast.TransmuteExpr:
		r.expr(ex.X)
		r.typeExpr(ex.Type)
	case *ast.MoveExpr:
		r.expr(ex.X)
	case *ast.IfExpr:
		r.expr(ex.Cond)
		r.block(ex.Then)
		if ex.Else != nil {
			r.expr(ex.Else)
		}
	case *ast.MatchExpr:
		r.expr(ex.Scrutinee)
		for _, arm := range ex.Arms {
			r.push()
			r.pattern(arm.Pat)
			r.expr(arm.Body)
			r.pop()
		}
	case *ast.BlockExpr:
		r.block(ex.Block)
	case *ast.RecordLitExpr:
		if d := r.lookupPath(ex.Path); d != nil {
			r.checkVisible(d, ex.Span)
			r.res.Refs[e] = d
		} else {
			r.errorf(ex.Span, diag.ErrUnresolvedName, "%q", ex.Path.Key())
		}
		for _, f := range ex.Fields {
			r.expr(f.Value)
		}
	case *ast.ModalLitExpr:
		if d := r.lookupPath(ex.Path); d != nil {
			r.checkVisible(d, ex.Span)
			r.res.Refs[e] = d
		} else {
			r.errorf(ex.Span, diag.ErrUnresolvedName, "%q", ex.Path.Key())
		}
		for _, f := range ex.Fields {
			r.expr(f.Value)
		}
	case *ast.TupleExpr:
		for _, el := range ex.Elems {
			r.expr(el)
		}
	case *ast.RangeExpr:
		if ex.Lo != nil {
			r.expr(ex.Lo)
		}
		if ex.Hi != nil {
			r.expr(ex.Hi)
		}
	case *ast.AllocExpr:
		if ex.Region.Name != "" && !r.isLocal(ex.Region.Name) {
			r.errorf(ex.Region.Span, diag.ErrUnresolvedName, "%q", ex.Region.Name)
		}
		r.expr(ex.Value)
	case *ast.PropagateExpr:
		r.expr(ex.X)
	case *ast.SpawnExpr:
		r.block(ex.Body)
	case *ast.WaitExpr:
		r.expr(ex.X)
	case *ast.SyncExpr:
		r.expr(ex.X)
	case *ast.RaceExpr:
		for _, arm := range ex.Arms {
			r.expr(arm.Source)
			r.push()
			r.bindLocal(arm.Binding.Name)
			r.expr(arm.Handler)
			r.pop()
		}
	case *ast.AllExpr:
		for _, el := range ex.Elems {
			r.expr(el)
		}
	case *ast.YieldExpr:
		if ex.Value != nil {
			r.expr(ex.Value)
		}
	case *ast.ParallelExpr:
		for _, arm := range ex.Arms {
			r.block(arm)
		}
	case *ast.DispatchExpr:
		for _, k := range ex.Keys {
			r.expr(k.Path)
		}
		r.block(ex.Body)
	case *ast.ContractEntryExpr:
		r.expr(ex.X)
	}
}

func (r *resolver) pattern(p ast.Pattern) {
	switch pt := p.(type) {
	case *ast.BindingPattern:
		r.bindLocal(pt.Name.Name)
	case *ast.VariantPattern:
		if d := r.lookupPath(pt.Path); d != nil {
			r.checkVisible(d, pt.Span)
		}
		for _, el := range pt.Elems {
			r.pattern(el)
		}
	case *ast.TuplePattern:
		for _, el := range pt.Elems {
			r.pattern(el)
		}
	}
}

func (r *resolver) typeExpr(t ast.TypeExpr) {
	switch ty := t.(type) {
	case *ast.PtrTypeExpr:
		r.typeExpr(ty.Elem)
	case *ast.RawPtrTypeExpr:
		r.typeExpr(ty.Elem)
	case *ast.SliceTypeExpr:
		r.typeExpr(ty.Elem)
	case *ast.ArrayTypeExpr:
		r.typeExpr(ty.Elem)
		r.expr(ty.Len)
	case *ast.TupleTypeExpr:
		for _, e := range ty.Elems {
			r.typeExpr(e)
		}
	case *ast.UnionTypeExpr:
		for _, m := range ty.Members {
			r.typeExpr(m)
		}
	case *ast.PathTypeExpr:
		if len(ty.Path.Segments) == 1 && r.generics[ty.Path.Segments[0].Name] {
			return
		}
		d := r.lookupPath(ty.Path)
		if d == nil {
			r.errorf(ty.Span, diag.ErrUnresolvedName, "%q", ty.Path.Key())
			return
		}
		if !d.IsType() && d.Kind != DeclModule {
			r.errorf(ty.Span, diag.ErrUnresolvedName, "%q is a %s, not a type", ty.Path.Key(), d.Kind)
			return
		}
		r.checkVisible(d, ty.Span)
		r.res.TypeRefs[t] = d
	case *ast.DynTypeExpr:
		d := r.lookupPath(ty.Class)
		if d == nil || d.Kind != DeclClass {
			r.errorf(ty.Span, diag.ErrUnresolvedName, "class %q", ty.Class.Key())
			return
		}
		r.checkVisible(d, ty.Span)
		r.res.TypeRefs[t] = d
	case *ast.ModalStateTypeExpr:
		d := r.lookupPath(ty.Path)
		if d == nil || (d.Kind != DeclModal && d.Kind != DeclBuiltin) {
			r.errorf(ty.Span, diag.ErrUnresolvedName, "modal %q", ty.Path.Key())
			return
		}
		r.checkVisible(d, ty.Span)
		r.res.TypeRefs[t] = d
	case *ast.FuncTypeExpr:
		for _, p := range ty.Params {
			r.typeExpr(p)
		}
		if ty.Ret != nil {
			r.typeExpr(ty.Ret)
		}
	case *ast.PermTypeExpr:
		r.typeExpr(ty.Base)
	case *ast.CapabilityTypeExpr:
		if d := r.lookupName(ty.Name.Name); d != nil && d.IsCapability() {
			r.res.TypeRefs[t] = d
			return
		}
		r.errorf(ty.Span, diag.ErrUnresolvedName, "capability class %q", ty.Name.Name)
	}
}

func (r *resolver) classRef(p ast.Path) {
	d := r.lookupPath(p)
	if d == nil {
		r.errorf(p.Span, diag.ErrUnresolvedName, "class %q", p.Key())
		return
	}
	if d.Kind != DeclClass && !(d.Kind == DeclBuiltin) {
		r.errorf(p.Span, diag.ErrUnresolvedName, "%q is a %s, not a class", p.Key(), d.Kind)
	}
}

// lookupName resolves a bare name in the current module: module items
// first, then import/using bindings (most recent wins), then the builtin
// prelude by its reserved key.
func (r *resolver) lookupName(name string) *Decl {
	if d, ok := r.scope.Values[name]; ok {
		return d
	}
	if d, ok := r.scope.Types[name]; ok {
		return d
	}
	if d, ok := r.scope.Classes[name]; ok {
		return d
	}
	if d, ok := r.scope.Imported[name]; ok {
		return d
	}
	if d, ok := r.table.Lookup(BuiltinModule + "::" + name); ok {
		return d
	}
	return nil
}

// lookupPath resolves a "::"-qualified reference: the first segment may be
// a local module alias, a sibling item (Enum::Variant), an assembly, or
// the current module.
func (r *resolver) lookupPath(p ast.Path) *Decl {
	if len(p.Segments) == 0 {
		return nil
	}
	if len(p.Segments) == 1 {
		return r.lookupName(p.Segments[0].Name)
	}

	head := p.Segments[0].Name
	rest := ""
	for i, seg := range p.Segments[1:] {
		if i > 0 {
			rest += "::"
		}
		rest += seg.Name
	}

	// Local module alias from an import.
	if target, ok := r.scope.SubModules[head]; ok {
		if d, ok := r.table.Lookup(target + "::" + rest); ok {
			return d
		}
	}
	// Sibling item path: Enum::Variant within the current module.
	if d, ok := r.table.Lookup(r.module + "::" + p.Key()); ok {
		return d
	}
	// Enum::Variant where the enum came in through an import.
	if base, ok := r.scope.Imported[head]; ok {
		if d, ok := r.table.Lookup(base.PathKey + "::" + rest); ok {
			return d
		}
	}
	if base, ok := r.scope.Types[head]; ok {
		if d, ok := r.table.Lookup(base.PathKey + "::" + rest); ok {
			return d
		}
	}
	// Fully qualified from the assembly root.
	if d, ok := r.table.Lookup(p.Key()); ok {
		return d
	}
	return nil
}

func (r *resolver) checkVisible(d *Decl, span source.Span) {
	if !d.VisibleFrom(r.module) {
		r.errorf(span, diag.ErrVisibilityViolation, "%q", d.PathKey)
	}
}
