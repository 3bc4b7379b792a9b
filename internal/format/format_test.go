package format_test

import (
	"testing"

	"cursive0/internal/ast"
	"cursive0/internal/format"
	"cursive0/internal/parser"
	"cursive0/internal/source"
)

func parse(t *testing.T, src string) *ast.File {
	t.Helper()
	fs := source.NewFileSet()
	id, _, err := fs.AddVirtual("t.cursive", []byte(src))
	if err != nil {
		t.Fatal(err)
	}
	f, diags := parser.ParseFile(fs, id)
	for _, d := range diags {
		t.Logf("diag: %+v", d)
	}
	return f
}

// itemSignature is the Σ-contribution shape of one item: kind and name.
func itemSignature(it ast.Item) [2]string {
	switch d := it.(type) {
	case *ast.ProcedureDecl:
		return [2]string{"procedure", d.Name.Name}
	case *ast.RecordDecl:
		return [2]string{"record", d.Name.Name}
	case *ast.EnumDecl:
		return [2]string{"enum", d.Name.Name}
	case *ast.ModalDecl:
		return [2]string{"modal", d.Name.Name}
	case *ast.ClassDecl:
		return [2]string{"class", d.Name.Name}
	case *ast.TypeAliasDecl:
		return [2]string{"type", d.Name.Name}
	case *ast.StaticDecl:
		return [2]string{"static", d.Name.Name}
	case *ast.ImportDecl:
		return [2]string{"import", d.Assembly.Name}
	case *ast.UsingDecl:
		return [2]string{"using", d.Path.Key()}
	case *ast.ExternBlock:
		return [2]string{"extern", d.ABI}
	default:
		return [2]string{"?", "?"}
	}
}

// TestRoundTrip checks the print-then-reparse property: the reparsed
// file contributes the same item set to Σ (names and kinds, in order).
func TestRoundTrip(t *testing.T) {
	srcs := []string{
		"procedure main() -> i32 { 0 }",
		"public record Point: Bitcopy {\n    x: i32,\n    y: i32,\n}",
		"enum Shape { Dot, Line(i32, i32), }",
		"modal File {\n    path: string,\n    state Open { handle: i64, }\n    state Closed { }\n}",
		"class Drawable { procedure draw(const self); }",
		"type Meters = i64;",
		"static LIMIT: i32 = 1024;",
		"extern \"C\" { procedure puts(s: *imm u8) -> i32; }",
		"procedure f(p: Ptr<i32>@Valid) -> i32 { *p }",
		"procedure g(x: i32) -> i32 |= x > 0 => @result >= 0 { x }",
	}
	for _, src := range srcs {
		orig := parse(t, src)
		printed := format.File(orig)
		re := parse(t, printed)
		if len(orig.Items) != len(re.Items) {
			t.Fatalf("item count changed after round trip\nsource: %s\nprinted:\n%s", src, printed)
		}
		for i := range orig.Items {
			a, b := itemSignature(orig.Items[i]), itemSignature(re.Items[i])
			if a != b {
				t.Fatalf("item %d changed: %v -> %v\nprinted:\n%s", i, a, b, printed)
			}
		}
	}
}
