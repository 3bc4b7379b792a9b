package driver

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

func TestPipelineAcceptsMinimalExecutable(t *testing.T) {
	root := writeProject(t, map[string]string{
		"cursive.toml":     manifest,
		"src/main.cursive": "procedure main() -> i32 { 0 }",
	})
	res := Run(Options{Dir: root, SkipObjects: true})
	if !res.Success {
		t.Fatalf("expected success, diagnostics:\n%s", diag.RenderAll(res.FileSet, res.Stream))
	}
	ll := filepath.Join(root, "build", "ir", "app.ll")
	raw, err := os.ReadFile(ll)
	if err != nil {
		t.Fatalf("textual IR not written: %v", err)
	}
	if len(raw) == 0 {
		t.Fatalf("empty IR file")
	}
}

func TestPipelineRejectsNullDeref(t *testing.T) {
	root := writeProject(t, map[string]string{
		"cursive.toml":     manifest,
		"src/main.cursive": "procedure main() -> i32 { 0 }\nprocedure foo(p: Ptr<i32>@Null) -> i32 { *p }",
	})
	res := Run(Options{Dir: root, SkipObjects: true})
	if res.Success {
		t.Fatalf("null deref must fail the build")
	}
	found := false
	for _, d := range res.Stream.Items() {
		if d.Code == diag.ErrDerefNull {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected E-PTR-0001 in stream")
	}
}

func TestPhaseGatingSkipsLaterPhases(t *testing.T) {
	root := writeProject(t, map[string]string{
		"cursive.toml":     manifest,
		"src/main.cursive": "procedure main( { }",
	})
	obs := &recordingObserver{}
	res := Run(Options{Dir: root, SkipObjects: true, Observer: obs})
	if res.Success {
		t.Fatalf("parse error must fail the build")
	}
	for _, id := range obs.started {
		if id >= P2Resolve {
			t.Fatalf("phase %s must be skipped after a P1 failure", id)
		}
	}
}

func TestUnresolvedNameFailsP2(t *testing.T) {
	root := writeProject(t, map[string]string{
		"cursive.toml":     manifest,
		"src/main.cursive": "procedure main() -> i32 { nosuch() }",
	})
	res := Run(Options{Dir: root, SkipObjects: true})
	if res.Success {
		t.Fatalf("unresolved name must fail the build")
	}
}

type recordingObserver struct {
	started []PhaseID
}

func (r *recordingObserver) PhaseStart(id PhaseID, detail string) { r.started = append(r.started, id) }
func (r *recordingObserver) PhaseEnd(id PhaseID, ok bool)         {}
