package symbols_test

import (
	"testing"

	"cursive0/internal/ast"
	"cursive0/internal/diag"
	"cursive0/internal/parser"
	"cursive0/internal/source"
	"cursive0/internal/symbols"
)

func collect(t *testing.T, mods map[string]string) (*symbols.Table, []diag.Diagnostic) {
	t.Helper()
	fs := source.NewFileSet()
	var modules []*ast.Module
	var all []diag.Diagnostic
	keys := make([]string, 0, len(mods))
	for k := range mods {
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
	for _, key := range keys {
		id, _, err := fs.AddVirtual(key+".cursive", []byte(mods[key]))
		if err != nil {
			t.Fatal(err)
		}
		f, diags := parser.ParseFile(fs, id)
		all = append(all, diags...)
		modules = append(modules, &ast.Module{PathKey: key, Files: []*ast.File{f}})
	}
	table, diags := symbols.Collect(modules)
	all = append(all, diags...)
	all = append(all, symbols.BindImports(table)...)
	return table, all
}

func hasCode(diags []diag.Diagnostic, code diag.Code) bool {
	for _, d := range diags {
		if d.Code == code {
			return true
		}
	}
	return false
}

func TestDuplicateTopLevel(t *testing.T) {
	_, diags := collect(t, map[string]string{
		"app": "procedure f() { }\nprocedure f() { }",
	})
	if !hasCode(diags, diag.ErrDuplicateTopLevel) {
		t.Fatalf("expected duplicate-top-level, got %v", diags)
	}
}

func TestImportCycleDetected(t *testing.T) {
	_, diags := collect(t, map[string]string{
		"app":      "import app::lib;\npublic procedure main() -> i32 { 0 }",
		"app::lib": "import app;\npublic procedure helper() { }",
	})
	if !hasCode(diags, diag.ErrImportCycle) {
		t.Fatalf("expected E-SEM-3005 import cycle, got %v", diags)
	}
}

func TestImportItemAndVisibility(t *testing.T) {
	table, diags := collect(t, map[string]string{
		"app":      "import app::lib::{helper};\nprocedure main() -> i32 { 0 }",
		"app::lib": "public procedure helper() { }\nprocedure hidden() { }",
	})
	for _, d := range diags {
		if d.Severity() >= diag.SevError {
			t.Fatalf("unexpected error: %v", d)
		}
	}
	if _, ok := table.Lookup("app::lib::helper"); !ok {
		t.Fatalf("helper not registered")
	}
	_, diags = collect(t, map[string]string{
		"app":      "import app::lib::{hidden};\nprocedure main() -> i32 { 0 }",
		"app::lib": "procedure hidden() { }",
	})
	if !hasCode(diags, diag.ErrVisibilityViolation) {
		t.Fatalf("private import must be rejected, got %v", diags)
	}
}

func TestShadowedImportWarns(t *testing.T) {
	_, diags := collect(t, map[string]string{
		"app":    "import app::a::{item};\nimport app::b::{item};\nprocedure main() -> i32 { 0 }",
		"app::a": "public procedure item() { }",
		"app::b": "public procedure item() { }",
	})
	if !hasCode(diags, diag.WarnShadowedImport) {
		t.Fatalf("expected shadowing warning, got %v", diags)
	}
}

func TestExportsUnderPrefix(t *testing.T) {
	table, _ := collect(t, map[string]string{
		"app": "public procedure one() { }\npublic procedure two() { }\npublic record Rec { x: i32, }",
	})
	decls := table.ExportsUnder("app::")
	if len(decls) < 3 {
		t.Fatalf("expected at least three exports under app::, got %d", len(decls))
	}
	for i := 1; i < len(decls); i++ {
		if decls[i-1].PathKey > decls[i].PathKey {
			t.Fatalf("exports not sorted: %v before %v", decls[i-1].PathKey, decls[i].PathKey)
		}
	}
}

func TestVariantRegisteredUnderEnum(t *testing.T) {
	table, _ := collect(t, map[string]string{
		"app": "enum Color { Red, Green, }",
	})
	d, ok := table.Lookup("app::Color::Red")
	if !ok || d.Kind != symbols.DeclVariant || d.VariantIndex != 0 {
		t.Fatalf("variant lookup failed: %+v", d)
	}
}
