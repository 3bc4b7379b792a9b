package layout

import (
	"testing"

	"cursive0/internal/types"
)

func engine() (*Engine, *types.Interner) {
	in := types.NewInterner()
	return NewEngine(in), in
}

func TestPrimLayouts(t *testing.T) {
	e, in := engine()
	cases := []struct {
		p           types.Prim
		size, align uint64
	}{
		{types.PrimBool, 1, 1},
		{types.PrimI16, 2, 2},
		{types.PrimI32, 4, 4},
		{types.PrimF64, 8, 8},
		{types.PrimUsize, 8, 8},
		{types.PrimUnit, 0, 1},
	}
	for _, c := range cases {
		l, err := e.Of(in.PrimT(c.p))
		if err != nil {
			t.Fatalf("%v: %v", c.p, err)
		}
		if l.Size != c.size || l.Align != c.align {
			t.Fatalf("%v: got (%d,%d), want (%d,%d)", c.p, l.Size, l.Align, c.size, c.align)
		}
	}
}

func TestRecordOffsets(t *testing.T) {
	e, in := engine()
	e.Records["app::Mixed"] = &RecordInfo{
		FieldNames: []string{"a", "b", "c"},
		Fields: []types.TypeID{
			in.PrimT(types.PrimU8),
			in.PrimT(types.PrimU64),
			in.PrimT(types.PrimU16),
		},
	}
	l, err := e.Of(in.PathType("app::Mixed"))
	if err != nil {
		t.Fatal(err)
	}
	// u8 at 0, u64 rounded to 8, u16 at 16; size rounds to align 8.
	want := []uint64{0, 8, 16}
	for i, off := range l.FieldOffsets {
		if off != want[i] {
			t.Fatalf("field %d offset %d, want %d", i, off, want[i])
		}
	}
	if l.Size != 24 || l.Align != 8 {
		t.Fatalf("size/align (%d,%d), want (24,8)", l.Size, l.Align)
	}
}

func TestEnumDiscriminantAndPayload(t *testing.T) {
	e, in := engine()
	e.Enums["app::Shape"] = &EnumInfo{Variants: []VariantInfo{
		{Name: "Dot"},
		{Name: "Line", Elems: []types.TypeID{in.PrimT(types.PrimI64), in.PrimT(types.PrimI64)}},
	}}
	l, err := e.Of(in.PathType("app::Shape"))
	if err != nil {
		t.Fatal(err)
	}
	if l.DiscSize != 1 {
		t.Fatalf("two variants need a 1-byte discriminant, got %d", l.DiscSize)
	}
	// disc (1) rounded to payload align (8) + 16 payload = 24.
	if l.Size != 24 || l.Align != 8 {
		t.Fatalf("size/align (%d,%d), want (24,8)", l.Size, l.Align)
	}
}

func TestPointerShapes(t *testing.T) {
	e, in := engine()
	ptr, _ := e.Of(in.Ptr(in.PrimT(types.PrimI32), types.PtrValid))
	if ptr.Size != 8 || ptr.Align != 8 {
		t.Fatalf("pointer must be 8/8, got %d/%d", ptr.Size, ptr.Align)
	}
	slice, _ := e.Of(in.Slice(in.PrimT(types.PrimI32)))
	if slice.Size != 16 {
		t.Fatalf("slice must be two words, got %d", slice.Size)
	}
	dyn, _ := e.Of(in.Dynamic("app::Drawable"))
	if dyn.Size != 16 {
		t.Fatalf("dyn must be two words, got %d", dyn.Size)
	}
}

func TestRecursiveValueTypeRejected(t *testing.T) {
	e, in := engine()
	self := in.PathType("app::Node")
	e.Records["app::Node"] = &RecordInfo{FieldNames: []string{"next"}, Fields: []types.TypeID{self}}
	if _, err := e.Of(self); err == nil {
		t.Fatalf("infinitely recursive value type must be rejected")
	}
	// Indirection through a pointer breaks the cycle.
	e2, in2 := engine()
	self2 := in2.PathType("app::Node")
	e2.Records["app::Node"] = &RecordInfo{
		FieldNames: []string{"next"},
		Fields:     []types.TypeID{in2.Ptr(self2, types.PtrValid)},
	}
	if _, err := e2.Of(self2); err != nil {
		t.Fatalf("pointer-indirected recursion must be accepted: %v", err)
	}
}

func TestABIDecisionTable(t *testing.T) {
	e, in := engine()
	i32 := in.PrimT(types.PrimI32)
	unit := in.PrimT(types.PrimUnit)
	big := in.PathType("app::Big")
	e.Records["app::Big"] = &RecordInfo{
		FieldNames: []string{"a", "b", "c"},
		Fields:     []types.TypeID{in.PrimT(types.PrimU64), in.PrimT(types.PrimU64), in.PrimT(types.PrimU64)},
	}

	// Borrowed parameters always pass by reference.
	if e.ABIParam(PassBorrow, i32) != ByRef {
		t.Fatalf("borrowed i32 must be ByRef")
	}
	// Moved register-sized values pass by value.
	if e.ABIParam(PassMove, i32) != ByValue {
		t.Fatalf("moved i32 must be ByValue")
	}
	// Moved zero-sized values pass by value.
	if e.ABIParam(PassMove, unit) != ByValue {
		t.Fatalf("moved () must be ByValue")
	}
	// Moved oversize aggregates fall back to ByRef.
	if e.ABIParam(PassMove, big) != ByRef {
		t.Fatalf("moved 24-byte record must be ByRef")
	}
	// Returns: small by value, big through sret.
	if e.ABIRet(i32) != ByValue || e.ABIRet(big) != SRet {
		t.Fatalf("return kinds wrong: %v %v", e.ABIRet(i32), e.ABIRet(big))
	}

	abi := e.ABIOf([]types.TypeID{i32, big}, []ParamPassMode{PassMove, PassBorrow}, big)
	if !abi.SRetConsumes || abi.StructRetIndex != 0 {
		t.Fatalf("sret must consume argument 0: %+v", abi)
	}
	if abi.Params[0] != ByValue || abi.Params[1] != ByRef {
		t.Fatalf("param kinds wrong: %+v", abi.Params)
	}
	// The ByRef parameter sits at shifted index 2 (after the sret slot).
	if len(abi.PtrValidIndices) != 1 || abi.PtrValidIndices[0] != 2 {
		t.Fatalf("ptr-valid indices wrong: %+v", abi.PtrValidIndices)
	}
}

func TestByValRounding(t *testing.T) {
	e, in := engine()
	// A u32+u8 record (5 bytes of fields, padded to size 8 by its
	// 4-byte alignment) fits one 8-byte word.
	small := in.PathType("app::Small")
	e.Records["app::Small"] = &RecordInfo{
		FieldNames: []string{"a", "b"},
		Fields:     []types.TypeID{in.PrimT(types.PrimU32), in.PrimT(types.PrimU8)},
	}
	if !e.ByValOk(small) {
		t.Fatalf("u32+u8 record must fit a register slot")
	}
}

func TestVTableLayout(t *testing.T) {
	vt := VTableFor("app::Drawable", []string{"draw", "area"})
	if vt.DropOffset != 16 || vt.MethodBase != 24 {
		t.Fatalf("header layout wrong: %+v", vt)
	}
	if vt.SlotIndex("area") != 1 || vt.SlotOffset(1) != 32 {
		t.Fatalf("slot addressing wrong")
	}
}
