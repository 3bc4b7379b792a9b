package trace

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDisabledSinkIsSilent(t *testing.T) {
	Open("", Off, Text, Stream, 0)
	s := Get()
	if s.Enabled(Error) {
		t.Fatalf("Off sink must not be enabled at any level")
	}
	s.Emit(Error, "test", "dropped")
	s.Close()
}

func TestUnopenablePathDisables(t *testing.T) {
	Open(filepath.Join(t.TempDir(), "no", "such", "dir", "t.log"), Phase, Text, Stream, 0)
	s := Get()
	if s.Enabled(Phase) {
		t.Fatalf("unopenable sink must silently disable tracing")
	}
	s.Close()
}

func TestStreamWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.log")
	Open(path, Detail, Text, Stream, 0)
	s := Get()
	s.Emit(Phase, "P1 parse", "start %s", "app")
	s.Emit(Debug, "P1 parse", "filtered out at Detail level")
	s.Close()
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	got := string(raw)
	if !strings.Contains(got, "start app") {
		t.Fatalf("phase record missing: %q", got)
	}
	if strings.Contains(got, "filtered out") {
		t.Fatalf("debug record must be filtered at Detail level")
	}
}

func TestRingFlushesOnClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "r.log")
	Open(path, Debug, NDJSON, Both, 8)
	s := Get()
	for i := 0; i < 20; i++ {
		s.Emit(Debug, "ring", "record %d", i)
	}
	s.Close()
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	got := string(raw)
	// Both mode writes through and keeps a bounded ring; the flush must
	// not duplicate unboundedly nor drop the newest records.
	if !strings.Contains(got, "record 19") {
		t.Fatalf("newest record missing from flushed output")
	}
	if !strings.Contains(got, `"level":"debug"`) {
		t.Fatalf("ndjson encoding missing: %q", got[:min(len(got), 200)])
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
