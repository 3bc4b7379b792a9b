package symbols

import (
	"fmt"

	"cursive0/internal/ast"
	"cursive0/internal/diag"
)

// Collect runs the first half of P2: in deterministic module order, every
// top-level item is registered under its path key and the module's
// per-kind name maps are built. Imports are bound afterwards (BindImports)
// so cycle detection is independent of item resolution order.
func Collect(modules []*ast.Module) (*Table, []diag.Diagnostic) {
	t := NewTable()
	t.Modules = modules
	var diags []diag.Diagnostic

	for _, m := range modules {
		t.ImportGraph.AddNode(m.PathKey)
		scope := t.Scope(m.PathKey)
		moduleDecl := &Decl{
			Kind: DeclModule, PathKey: m.PathKey, Module: m.PathKey,
			Name: lastSegment(m.PathKey), Vis: ast.VisPublic,
		}
		t.Insert(moduleDecl)

		for _, f := range m.Files {
			for _, item := range f.Items {
				diags = append(diags, t.collectItem(m.PathKey, scope, item)...)
			}
		}
	}
	registerPrelude(t)
	return t, diags
}

func (t *Table) collectItem(moduleKey string, scope *ModuleScope, item ast.Item) []diag.Diagnostic {
	var diags []diag.Diagnostic

	add := func(d *Decl, ns map[string]*Decl) {
		if _, taken := ns[d.Name]; taken {
			diags = append(diags, diag.New(diag.ErrDuplicateTopLevel, d.Span, fmt.Sprintf("%q", d.Name)))
			return
		}
		if !t.Insert(d) {
			diags = append(diags, diag.New(diag.ErrDuplicateTopLevel, d.Span, fmt.Sprintf("%q", d.Name)))
			return
		}
		ns[d.Name] = d
	}

	switch it := item.(type) {
	case *ast.ProcedureDecl:
		add(&Decl{
			Kind: DeclProcedure, PathKey: moduleKey + "::" + it.Name.Name,
			Module: moduleKey, Name: it.Name.Name, Vis: it.Vis, Span: it.Span, Proc: it,
		}, scope.Values)
	case *ast.RecordDecl:
		add(&Decl{
			Kind: DeclRecord, PathKey: moduleKey + "::" + it.Name.Name,
			Module: moduleKey, Name: it.Name.Name, Vis: it.Vis, Span: it.Span, Record: it,
		}, scope.Types)
	case *ast.EnumDecl:
		enumKey := moduleKey + "::" + it.Name.Name
		add(&Decl{
			Kind: DeclEnum, PathKey: enumKey,
			Module: moduleKey, Name: it.Name.Name, Vis: it.Vis, Span: it.Span, Enum: it,
		}, scope.Types)
		for i, v := range it.Variants {
			t.Insert(&Decl{
				Kind: DeclVariant, PathKey: enumKey + "::" + v.Name.Name,
				Module: moduleKey, Name: v.Name.Name, Vis: it.Vis, Span: v.Span,
				VariantOf: it, VariantIndex: i,
			})
		}
	case *ast.ModalDecl:
		add(&Decl{
			Kind: DeclModal, PathKey: moduleKey + "::" + it.Name.Name,
			Module: moduleKey, Name: it.Name.Name, Vis: it.Vis, Span: it.Span, Modal: it,
		}, scope.Types)
	case *ast.ClassDecl:
		add(&Decl{
			Kind: DeclClass, PathKey: moduleKey + "::" + it.Name.Name,
			Module: moduleKey, Name: it.Name.Name, Vis: it.Vis, Span: it.Span, Class: it,
		}, scope.Classes)
	case *ast.TypeAliasDecl:
		add(&Decl{
			Kind: DeclTypeAlias, PathKey: moduleKey + "::" + it.Name.Name,
			Module: moduleKey, Name: it.Name.Name, Vis: it.Vis, Span: it.Span, Alias: it,
		}, scope.Types)
	case *ast.StaticDecl:
		add(&Decl{
			Kind: DeclStatic, PathKey: moduleKey + "::" + it.Name.Name,
			Module: moduleKey, Name: it.Name.Name, Vis: it.Vis, Span: it.Span, Static: it,
		}, scope.Values)
	case *ast.ExternBlock:
		for _, proc := range it.Procs {
			add(&Decl{
				Kind: DeclExternProc, PathKey: moduleKey + "::" + proc.Name.Name,
				Module: moduleKey, Name: proc.Name.Name, Vis: proc.Vis, Span: proc.Span,
				Proc: proc, Extern: it,
			}, scope.Values)
		}
	case *ast.ImportDecl, *ast.UsingDecl:
		// Bound in BindImports after every module is collected.
	case *ast.ErrorItem:
		// Already diagnosed by the parser.
	}
	return diags
}

func lastSegment(pathKey string) string {
	last := pathKey
	for i := len(pathKey) - 2; i >= 0; i-- {
		if pathKey[i] == ':' && pathKey[i+1] == ':' {
			return pathKey[i+2:]
		}
	}
	return last
}
