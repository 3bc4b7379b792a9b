package symbols

import (
	"fmt"
	"strings"

	"cursive0/internal/ast"
	"cursive0/internal/diag"
)

// BindImports runs the second half of P2's collection: each import binds
// its target module and, for item imports, the named items in the same
// step. Cycle detection (a DFS over the bound import edges) runs once
// every import is bound, so it is independent of import order.
func BindImports(t *Table) []diag.Diagnostic {
	var diags []diag.Diagnostic
	for _, m := range t.Modules {
		scope := t.Scope(m.PathKey)
		for _, f := range m.Files {
			for _, item := range f.Items {
				switch it := item.(type) {
				case *ast.ImportDecl:
					diags = append(diags, t.bindImport(m.PathKey, scope, it)...)
				case *ast.UsingDecl:
					diags = append(diags, t.bindUsing(m.PathKey, scope, it)...)
				}
			}
		}
	}
	diags = append(diags, t.checkImportCycles()...)
	return diags
}

// bindImport resolves one import declaration. The first path segment
// names an assembly; the remainder addresses an exported item or module.
// Empty .Items with a module target imports the whole module.
func (t *Table) bindImport(fromModule string, scope *ModuleScope, it *ast.ImportDecl) []diag.Diagnostic {
	var diags []diag.Diagnostic

	target := it.Assembly.Name
	for _, seg := range it.Path {
		target += "::" + seg.Name
	}

	if t.HasModule(target) {
		t.ImportGraph.AddEdge(fromModule, target)
		if len(it.Items) == 0 {
			alias := it.Alias.Name
			if alias == "" {
				alias = lastSegment(target)
			}
			scope.SubModules[alias] = target
			return diags
		}
		for _, item := range it.Items {
			diags = append(diags, t.bindImportedItem(fromModule, scope, target, item, ast.Ident{})...)
		}
		return diags
	}

	// Not a module: the final segment may address one exported item.
	if len(it.Path) > 0 {
		parent := it.Assembly.Name
		for _, seg := range it.Path[:len(it.Path)-1] {
			parent += "::" + seg.Name
		}
		if t.HasModule(parent) {
			t.ImportGraph.AddEdge(fromModule, parent)
			diags = append(diags, t.bindImportedItem(fromModule, scope, parent, it.Path[len(it.Path)-1], it.Alias)...)
			return diags
		}
	}

	if len(t.ExportsUnder(target+"::")) > 0 {
		// The path addresses a directory with no sources of its own;
		// nothing to bind, but the reference is not an error.
		return diags
	}
	diags = append(diags, diag.New(diag.ErrUnresolvedName, it.Span, fmt.Sprintf("%q", target)))
	return diags
}

func (t *Table) bindImportedItem(fromModule string, scope *ModuleScope, targetModule string, item, alias ast.Ident) []diag.Diagnostic {
	var diags []diag.Diagnostic
	d, ok := t.Lookup(targetModule + "::" + item.Name)
	if !ok {
		diags = append(diags, diag.New(diag.ErrUnresolvedName, item.Span,
			fmt.Sprintf("%q in module %s", item.Name, targetModule)))
		return diags
	}
	if !d.VisibleFrom(fromModule) {
		diags = append(diags, diag.New(diag.ErrVisibilityViolation, item.Span, fmt.Sprintf("%q", d.PathKey)))
		return diags
	}
	name := alias.Name
	if name == "" {
		name = item.Name
	}
	if prev, shadowed := scope.Imported[name]; shadowed && prev.VisibleFrom(fromModule) {
		// Most recent binding wins; warn only when the shadowed entity
		// would otherwise have been visible.
		diags = append(diags, diag.New(diag.WarnShadowedImport, item.Span, fmt.Sprintf("%q", name)))
	}
	scope.Imported[name] = d
	return diags
}

// bindUsing binds a shorter local name for an in-scope path.
func (t *Table) bindUsing(fromModule string, scope *ModuleScope, it *ast.UsingDecl) []diag.Diagnostic {
	var diags []diag.Diagnostic
	key := it.Path.Key()
	d, ok := t.Lookup(key)
	if !ok {
		// Resolve relative to the current module.
		d, ok = t.Lookup(fromModule + "::" + key)
	}
	if !ok {
		diags = append(diags, diag.New(diag.ErrUnresolvedName, it.Span, fmt.Sprintf("%q", key)))
		return diags
	}
	if !d.VisibleFrom(fromModule) {
		diags = append(diags, diag.New(diag.ErrVisibilityViolation, it.Span, fmt.Sprintf("%q", d.PathKey)))
		return diags
	}
	name := it.Alias.Name
	if name == "" {
		name = it.Path.Last().Name
	}
	if prev, shadowed := scope.Imported[name]; shadowed && prev.VisibleFrom(fromModule) {
		diags = append(diags, diag.New(diag.WarnShadowedImport, it.Span, fmt.Sprintf("%q", name)))
	}
	scope.Imported[name] = d
	if d.Kind == DeclModule {
		scope.SubModules[name] = d.PathKey
	}
	return diags
}

// checkImportCycles reports each back edge found by the DFS as
// E-SEM-3005.
func (t *Table) checkImportCycles() []diag.Diagnostic {
	var diags []diag.Diagnostic
	for _, cyc := range t.ImportGraph.FindCycles() {
		diags = append(diags, diag.New(diag.ErrImportCycle, nospan(), strings.Join(cyc, " -> ")))
	}
	return diags
}
