// Package testkit carries shared test helpers: textual golden snapshots
// (regenerated with -update) and a tiny harness for checking program
// sources end to end through the front phases.
package testkit

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
)

var update = flag.Bool("update", false, "rewrite golden files")

// GoldenText compares got against testdata/<name>.golden, rewriting the
// snapshot under -update. Used for IR dumps, where a readable diff
// matters more than encoding stability.
func GoldenText(t *testing.T, name, got string) {
	t.Helper()
	path := filepath.Join("testdata", name+".golden")
	if *update {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("golden mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(got), 0o644); err != nil {
			t.Fatalf("golden write: %v", err)
		}
		return
	}
	want, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("golden read (run with -update to create): %v", err)
	}
	if got != string(want) {
		t.Fatalf("golden mismatch for %s:\n--- want\n%s\n--- got\n%s", name, want, got)
	}
}
