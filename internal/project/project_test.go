package project

import (
	"os"
	"path/filepath"
	"testing"

	"cursive0/internal/diag"
)

func writeProject(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

const manifest = `[[assembly]]
name = "app"
kind = "executable"
root = "src"
`

func TestLoadAndDiscover(t *testing.T) {
	root := writeProject(t, map[string]string{
		"cursive.toml":               manifest,
		"src/main.cursive":           "procedure main() -> i32 { 0 }",
		"src/net/dial.cursive":       "procedure dial() { }",
		"src/net/inner/deep.cursive": "procedure deep() { }",
		"src/empty/.keep":            "",
	})
	p, diags := Load(root, "")
	if p == nil {
		t.Fatalf("load failed: %v", diags)
	}
	asm := p.Assemblies[0]
	var keys []string
	for _, m := range asm.Modules {
		keys = append(keys, m.PathKey)
	}
	want := []string{"app", "app::net", "app::net::inner"}
	if len(keys) != len(want) {
		t.Fatalf("module keys %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("module keys %v, want %v", keys, want)
		}
	}
}

func TestOutputPaths(t *testing.T) {
	root := writeProject(t, map[string]string{
		"cursive.toml":     manifest,
		"src/main.cursive": "procedure main() -> i32 { 0 }",
	})
	p, _ := Load(root, "")
	asm := p.Assemblies[0]
	paths := asm.Paths()
	if filepath.Base(paths.ExePath) != "app.exe" {
		t.Fatalf("exe path %q", paths.ExePath)
	}
	obj := asm.ObjectPath("app::net::dial")
	if filepath.Base(obj) != "app.net.dial.o" {
		t.Fatalf("object path %q", obj)
	}
}

func TestReservedKeywordComponent(t *testing.T) {
	root := writeProject(t, map[string]string{
		"cursive.toml":          manifest,
		"src/main.cursive":      "procedure main() -> i32 { 0 }",
		"src/match/bad.cursive": "procedure b() { }",
	})
	_, diags := Load(root, "")
	found := false
	for _, d := range diags {
		if d.Code == diag.ErrModuleInvalidIdent {
			found = true
		}
	}
	if !found {
		t.Fatalf("reserved keyword path component must be rejected, got %v", diags)
	}
}

func TestUnknownAssemblySelector(t *testing.T) {
	root := writeProject(t, map[string]string{
		"cursive.toml":     manifest,
		"src/main.cursive": "procedure main() -> i32 { 0 }",
	})
	p, diags := Load(root, "nosuch")
	if p != nil {
		t.Fatalf("unknown assembly must fail")
	}
	if len(diags) == 0 {
		t.Fatalf("expected a diagnostic")
	}
}

func TestManifestValidation(t *testing.T) {
	root := writeProject(t, map[string]string{
		"cursive.toml": "[[assembly]]\nname = \"x\"\nkind = \"plugin\"\n",
	})
	_, diags := LoadManifest(root)
	found := false
	for _, d := range diags {
		if d.Code == diag.ErrAssemblyInvalid {
			found = true
		}
	}
	if !found {
		t.Fatalf("invalid kind must be rejected, got %v", diags)
	}
}
