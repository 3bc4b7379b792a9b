package ir_test

import (
	"testing"

	"cursive0/internal/ir"
	"cursive0/internal/layout"
	"cursive0/internal/source"
	"cursive0/internal/testkit"
	"cursive0/internal/types"
)

func sampleModule(in *types.Interner) *ir.Module {
	i32 := in.PrimT(types.PrimI32)
	res := ir.Local{Name: "t1", Type: i32}
	return &ir.Module{
		PathKey: "app",
		Decls: []ir.Decl{
			&ir.Proc{
				Symbol: "app.main",
				Ret:    i32,
				RetABI: layout.ByValue,
				Body: ir.NewSeq(source.NoSpan,
					&ir.BindVar{Name: "x", Type: i32, Value: ir.Immediate{Bytes: []byte{1, 0, 0, 0}, Type: i32}},
					&ir.ReadVar{Name: "x", Result: res},
					&ir.Branch{Kind: ir.BranchReturn, Value: res},
				),
			},
			&ir.ExternProc{Symbol: "puts", Ret: i32, Nounwind: true},
		},
	}
}

// TestPrintGolden pins the textual dump against a golden snapshot
// (refresh with -update) and checks printing is deterministic.
func TestPrintGolden(t *testing.T) {
	in := types.NewInterner()
	m := sampleModule(in)
	got := ir.Print(in, m)
	testkit.GoldenText(t, "print_main", got)
	if got != ir.Print(in, m) {
		t.Fatalf("printing is not stable")
	}
}

func TestNewSeqFlattens(t *testing.T) {
	a := &ir.ClearPanic{}
	b := &ir.ClearPanic{}
	c := &ir.ClearPanic{}
	seq := ir.NewSeq(source.NoSpan, ir.NewSeq(source.NoSpan, a, b), nil, c)
	s, ok := seq.(*ir.Seq)
	if !ok {
		t.Fatalf("expected Seq, got %T", seq)
	}
	if len(s.Items) != 3 {
		t.Fatalf("nested sequences must flatten, got %d items", len(s.Items))
	}
	if ir.NewSeq(source.NoSpan, a) != ir.Instr(a) {
		t.Fatalf("single-item sequence must collapse")
	}
}
