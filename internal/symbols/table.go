package symbols

import (
	"sort"

	art "github.com/plar/go-adaptive-radix-tree"

	"cursive0/internal/ast"
	"cursive0/internal/project/dag"
)

// Table is Σ. Path keys share long "::"-joined prefixes, so the flat map
// is an adaptive radix tree: exports-under-a-prefix queries (import
// resolution) walk a subtree instead of scanning every entry.
type Table struct {
	decls art.Tree

	// Modules in deterministic (case-folded) order, as produced by P1.
	Modules []*ast.Module

	scopes map[string]*ModuleScope

	// ImportGraph has one edge per import from the importing module to
	// the imported one.
	ImportGraph *dag.Graph
}

// ModuleScope carries one module's per-kind name maps.
type ModuleScope struct {
	PathKey string
	Types   map[string]*Decl
	Values  map[string]*Decl
	Classes map[string]*Decl
	// Imported binds names introduced by import/using declarations. Later
	// bindings shadow earlier ones (most recent wins).
	Imported map[string]*Decl
	// SubModules maps a locally visible module alias to its path key.
	SubModules map[string]string
}

func newModuleScope(pathKey string) *ModuleScope {
	return &ModuleScope{
		PathKey:    pathKey,
		Types:      make(map[string]*Decl),
		Values:     make(map[string]*Decl),
		Classes:    make(map[string]*Decl),
		Imported:   make(map[string]*Decl),
		SubModules: make(map[string]string),
	}
}

// NewTable creates an empty Σ.
func NewTable() *Table {
	return &Table{
		decls:       art.New(),
		scopes:      make(map[string]*ModuleScope),
		ImportGraph: dag.New(),
	}
}

// Insert registers a declaration under its path key, returning false if
// the key is already taken.
func (t *Table) Insert(d *Decl) bool {
	if _, found := t.decls.Search(art.Key(d.PathKey)); found {
		return false
	}
	t.decls.Insert(art.Key(d.PathKey), art.Value(d))
	return true
}

// Lookup returns the declaration for an exact path key.
func (t *Table) Lookup(pathKey string) (*Decl, bool) {
	v, found := t.decls.Search(art.Key(pathKey))
	if !found {
		return nil, false
	}
	return v.(*Decl), true
}

// ExportsUnder returns every declaration whose path key extends prefix,
// in sorted key order. Used by import resolution to answer "does this
// assembly export anything under this path" without a full scan.
func (t *Table) ExportsUnder(prefix string) []*Decl {
	var out []*Decl
	t.decls.ForEachPrefix(art.Key(prefix), func(node art.Node) bool {
		if node.Kind() == art.Leaf {
			out = append(out, node.Value().(*Decl))
		}
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].PathKey < out[j].PathKey })
	return out
}

// Scope returns (creating on first use) the per-module scope.
func (t *Table) Scope(pathKey string) *ModuleScope {
	s, ok := t.scopes[pathKey]
	if !ok {
		s = newModuleScope(pathKey)
		t.scopes[pathKey] = s
	}
	return s
}

// HasModule reports whether a module with the given path key was parsed.
func (t *Table) HasModule(pathKey string) bool {
	_, ok := t.scopes[pathKey]
	return ok
}
