package fuzztests

import (
	"testing"

	"cursive0/internal/parser"
	"cursive0/internal/source"
)

func FuzzParser(f *testing.F) {
	for _, seed := range seeds {
		f.Add([]byte(seed))
	}
	f.Fuzz(func(t *testing.T, data []byte) {
		if len(data) > 64<<10 {
			t.Skip()
		}
		fs := source.NewFileSet()
		id, _, err := fs.AddVirtual("fuzz.cursive", data)
		if err != nil {
			return
		}
		// The parser must terminate and recover at item granularity on
		// arbitrary input; panics and hangs are the bugs hunted here.
		file, _ := parser.ParseFile(fs, id)
		if file == nil {
			t.Fatalf("nil file for accepted input")
		}
	})
}
